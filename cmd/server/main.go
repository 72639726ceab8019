package main

import (
	"os"

	"quickgpt/backend/internal/app"
)

// @title           QuickGPT API
// @version         1.0
// @description     Chat backend that relays prompts to a text or image model and keeps per-user chat history.
// @BasePath        /api
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	os.Exit(app.Run())
}
