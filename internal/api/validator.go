package api

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	app_errors "quickgpt/backend/internal/errors"
)

var (
	validate *validator.Validate
	once     sync.Once
)

// getInstance initializes the validator once. Field names in messages use the JSON names.
func getInstance() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// validateRequest checks payload against its `validate` tags and returns an
// ErrValidation listing every failed field.
func validateRequest(payload interface{}) error {
	err := getInstance().Struct(payload)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return app_errors.Wrap(app_errors.ErrValidation, "Invalid request payload", err)
	}

	var errorMessages []string
	for _, fieldErr := range validationErrors {
		// Example output: "Field 'email' failed on the 'email' tag"
		errorMessages = append(errorMessages, fmt.Sprintf("Field '%s' failed on the '%s' tag", fieldErr.Field(), fieldErr.Tag()))
	}
	return app_errors.New(app_errors.ErrValidation, strings.Join(errorMessages, "; "))
}
