package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"quickgpt/backend/internal/api"
	"quickgpt/backend/internal/auth"
	"quickgpt/backend/internal/config"
	"quickgpt/backend/internal/database"
	"quickgpt/backend/internal/idempotency"
	"quickgpt/backend/internal/llm"
	"quickgpt/backend/internal/logger"
	"quickgpt/backend/internal/repository"
	"quickgpt/backend/internal/service"
	"quickgpt/backend/internal/storage"
)

const (
	defaultOllamaModel = "llama3.2"
	shutdownTimeout    = 15 * time.Second
)

// App holds the wired server and everything that must be released on shutdown.
type App struct {
	Server *http.Server
	Store  repository.Store

	logger  *zap.Logger
	closers []func(context.Context) error
}

// Run loads configuration, serves until SIGINT or SIGTERM, and returns the process exit code.
func Run() int {
	cfg, err := config.LoadConfig()
	if err != nil {
		// The logger is not configured yet.
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		return 1
	}

	log := logger.New(logger.Options{Level: cfg.LogLevel, File: cfg.LogFile, Development: cfg.IsDevelopment()})
	defer func() { _ = log.Sync() }()

	if cfg.ConfigFile != "" {
		log.Info("Successfully loaded configuration from file.", zap.String("file", cfg.ConfigFile))
	} else {
		log.Info("Configuration file not found. Using environment variables and defaults.")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := NewApp(ctx, cfg, log)
	if err != nil {
		log.Error("Failed to initialize application", zap.Error(err))
		return 1
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("Starting server", zap.Int("port", cfg.AppPort), zap.String("store", cfg.StoreDriver))
		serveErr <- app.Server.ListenAndServe()
	}()

	code := 0
	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server failed", zap.Error(err))
			code = 1
		}
	case <-ctx.Done():
		log.Info("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := app.Shutdown(shutdownCtx); err != nil {
		log.Error("Graceful shutdown failed", zap.Error(err))
		code = 1
	}
	return code
}

// NewApp builds the store, upstream providers, services and HTTP server described by cfg.
func NewApp(ctx context.Context, cfg *config.Config, log *zap.Logger) (_ *App, err error) {
	a := &App{logger: log}
	defer func() {
		if err != nil {
			_ = a.close(context.Background())
		}
	}()

	a.Store, err = openStore(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, a.Store.Close)

	provider, err := a.buildProvider(ctx, cfg)
	if err != nil {
		return nil, err
	}

	opts := []service.MessageOption{}
	dedup, err := a.buildIdempotency(ctx, cfg)
	if err != nil {
		return nil, err
	}
	opts = append(opts, service.WithIdempotency(dedup))

	if cfg.S3Bucket != "" {
		mirror, err := storage.NewS3Mirror(ctx, storage.S3Config{
			Bucket:        cfg.S3Bucket,
			Region:        cfg.S3Region,
			PublicBaseURL: cfg.S3PublicBaseURL,
			AccessKey:     cfg.S3AccessKey,
			SecretKey:     cfg.S3SecretKey,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to configure image storage: %w", err)
		}
		opts = append(opts, service.WithImageMirror(mirror))
		log.Info("Generated images will be re-hosted", zap.String("bucket", cfg.S3Bucket))
	}

	hasher := auth.NewPasswordHasher(cfg.BcryptCost)
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTTTL)

	userService := service.NewUserService(a.Store, hasher, tokens, log)
	chatService := service.NewChatService(a.Store, log)
	messageService := service.NewMessageService(a.Store, provider, service.MessageConfig{
		UpstreamTimeout: cfg.UpstreamTimeout,
		StorageTimeout:  cfg.StorageTimeout,
	}, log, opts...)

	strict := cfg.StrictStatusCodes
	router := api.NewRouter(api.Handlers{
		Users:    api.NewUserHandler(userService, log, strict),
		Chats:    api.NewChatHandler(chatService, log, strict),
		Messages: api.NewMessageHandler(messageService, log, strict),
		Auth:     api.NewAuthMiddleware(userService, log, strict),
	}, api.RouterConfig{
		AllowedOrigins: cfg.AllowedOrigins(),
		RequestTimeout: cfg.RequestTimeout,
	}, log)

	a.Server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.AppPort),
		Handler:           router,
		ReadHeaderTimeout: 20 * time.Second,
		// Image generation can take longer than any sensible fixed write timeout.
		WriteTimeout: cfg.UpstreamTimeout + cfg.StorageTimeout + 10*time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return a, nil
}

// Shutdown stops accepting requests, waits for in-flight ones and releases resources.
func (a *App) Shutdown(ctx context.Context) error {
	var errs []error
	if a.Server != nil {
		if err := a.Server.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("server shutdown: %w", err))
		}
	}
	if err := a.close(ctx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// close runs closers in reverse order of acquisition.
func (a *App) close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func openStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (repository.Store, error) {
	switch cfg.StoreDriver {
	case "", "sqlite":
		db, err := database.InitDB(cfg.DatabasePath, log)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		log.Info("Successfully connected to SQLite database.", zap.String("path", cfg.DatabasePath))
		return repository.NewSQLiteRepository(db), nil
	case "mongo":
		db, err := database.ConnectMongo(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, err
		}
		repo := repository.NewMongoRepository(db)
		if err := repo.EnsureIndexes(ctx); err != nil {
			_ = repo.Close(context.Background())
			return nil, err
		}
		log.Info("Successfully connected to MongoDB.", zap.String("database", cfg.MongoDatabase))
		return repo, nil
	case "memory":
		log.Warn("Using the in-memory store; data is lost on restart")
		return repository.NewMemoryRepository(), nil
	default:
		return nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}
}

func (a *App) buildProvider(ctx context.Context, cfg *config.Config) (llm.Provider, error) {
	client := &http.Client{}
	built := map[string]llm.Provider{}
	get := func(name string) (llm.Provider, error) {
		if p, ok := built[name]; ok {
			return p, nil
		}
		p, err := a.newProvider(ctx, name, cfg, client)
		if err != nil {
			return nil, err
		}
		built[name] = p
		return p, nil
	}

	text, err := get(cfg.LLMTextProvider)
	if err != nil {
		return nil, err
	}
	image, err := get(cfg.LLMImageProvider)
	if err != nil {
		return nil, err
	}
	a.logger.Info("Upstream providers configured",
		zap.String("text", cfg.LLMTextProvider), zap.String("image", cfg.LLMImageProvider))

	return llm.WithBreaker(&llm.Composite{Text: text, Image: image}, llm.BreakerConfig{
		Name:        "upstream",
		MaxFailures: cfg.BreakerMaxFailures,
		OpenTimeout: cfg.BreakerOpenTimeout,
	}, a.logger), nil
}

func (a *App) newProvider(ctx context.Context, name string, cfg *config.Config, client *http.Client) (llm.Provider, error) {
	switch name {
	case "openai":
		return llm.NewOpenAIProvider(llm.OpenAIConfig{
			BaseURL:    cfg.OpenAIBaseURL,
			APIKey:     cfg.OpenAIAPIKey,
			TextModel:  cfg.TextModel,
			ImageModel: cfg.ImageModel,
			ImageSize:  cfg.ImageSize,
		}, client), nil
	case "gemini":
		p, err := llm.NewGeminiProvider(ctx, cfg.GeminiAPIKey, cfg.TextModel)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func(context.Context) error { return p.Close() })
		return p, nil
	case "ollama":
		model := cfg.TextModel
		if model == "" {
			model = defaultOllamaModel
		}
		return llm.NewOllamaProvider(cfg.OllamaURL, model, client), nil
	case "mock", "echo":
		return llm.EchoProvider{}, nil
	default:
		return nil, fmt.Errorf("unknown upstream provider %q", name)
	}
}

// reservationTTL covers the upstream call plus the writes that follow it, so
// a key held by a crashed process frees up soon after.
func reservationTTL(cfg *config.Config) time.Duration {
	if cfg.UpstreamTimeout <= 0 || cfg.StorageTimeout <= 0 {
		return 0
	}
	return cfg.UpstreamTimeout + 2*cfg.StorageTimeout
}

func (a *App) buildIdempotency(ctx context.Context, cfg *config.Config) (idempotency.Store, error) {
	switch cfg.IdempotencyBackend {
	case "", "memory":
		return idempotency.NewMemoryStore(cfg.IdempotencyTTL, reservationTTL(cfg)), nil
	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			_ = rdb.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		a.closers = append(a.closers, func(context.Context) error { return rdb.Close() })
		a.logger.Info("Successfully connected to Redis.", zap.String("addr", cfg.RedisAddr))
		return idempotency.NewRedisStore(rdb, cfg.IdempotencyTTL, reservationTTL(cfg)), nil
	default:
		return nil, fmt.Errorf("unknown IDEMPOTENCY_BACKEND %q", cfg.IdempotencyBackend)
	}
}
