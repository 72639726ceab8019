package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ErrMissingJWTSecret is returned when no signing secret is configured.
var ErrMissingJWTSecret = errors.New("config: JWT_SECRET is required")

type Config struct {
	AppPort  int    `mapstructure:"APP_PORT"`
	AppEnv   string `mapstructure:"APP_ENV"`
	LogLevel string `mapstructure:"LOG_LEVEL"`
	LogFile  string `mapstructure:"LOG_FILE"`

	StoreDriver   string `mapstructure:"STORE_DRIVER"`
	DatabasePath  string `mapstructure:"DATABASE_PATH"`
	MongoURI      string `mapstructure:"MONGO_URI"`
	MongoDatabase string `mapstructure:"MONGO_DATABASE"`

	JWTSecret  string        `mapstructure:"JWT_SECRET"`
	JWTTTL     time.Duration `mapstructure:"JWT_TTL"`
	BcryptCost int           `mapstructure:"BCRYPT_COST"`

	CORSAllowedOrigins string        `mapstructure:"CORS_ALLOWED_ORIGINS"`
	StrictStatusCodes  bool          `mapstructure:"STRICT_STATUS_CODES"`
	RequestTimeout     time.Duration `mapstructure:"REQUEST_TIMEOUT"`

	LLMTextProvider  string `mapstructure:"LLM_TEXT_PROVIDER"`
	LLMImageProvider string `mapstructure:"LLM_IMAGE_PROVIDER"`
	OpenAIBaseURL    string `mapstructure:"OPENAI_BASE_URL"`
	OpenAIAPIKey     string `mapstructure:"OPENAI_API_KEY"`
	GeminiAPIKey     string `mapstructure:"GEMINI_API_KEY"`
	OllamaURL        string `mapstructure:"OLLAMA_URL"`
	TextModel        string `mapstructure:"TEXT_MODEL"`
	ImageModel       string `mapstructure:"IMAGE_MODEL"`
	ImageSize        string `mapstructure:"IMAGE_SIZE"`

	UpstreamTimeout    time.Duration `mapstructure:"UPSTREAM_TIMEOUT"`
	StorageTimeout     time.Duration `mapstructure:"STORAGE_TIMEOUT"`
	BreakerMaxFailures uint32        `mapstructure:"BREAKER_MAX_FAILURES"`
	BreakerOpenTimeout time.Duration `mapstructure:"BREAKER_OPEN_TIMEOUT"`

	IdempotencyBackend string        `mapstructure:"IDEMPOTENCY_BACKEND"`
	IdempotencyTTL     time.Duration `mapstructure:"IDEMPOTENCY_TTL"`
	RedisAddr          string        `mapstructure:"REDIS_ADDR"`
	RedisPassword      string        `mapstructure:"REDIS_PASSWORD"`
	RedisDB            int           `mapstructure:"REDIS_DB"`

	S3Bucket        string `mapstructure:"S3_BUCKET"`
	S3Region        string `mapstructure:"S3_REGION"`
	S3PublicBaseURL string `mapstructure:"S3_PUBLIC_BASE_URL"`
	S3AccessKey     string `mapstructure:"S3_ACCESS_KEY"`
	S3SecretKey     string `mapstructure:"S3_SECRET_KEY"`

	// ConfigFile is the .env file that was read, if any.
	ConfigFile string `mapstructure:"-"`
}

var defaults = map[string]any{
	"APP_PORT":  5000,
	"APP_ENV":   "production",
	"LOG_LEVEL": "INFO",
	"LOG_FILE":  "",

	"STORE_DRIVER":   "sqlite",
	"DATABASE_PATH":  "/data/quickgpt.db",
	"MONGO_URI":      "mongodb://localhost:27017",
	"MONGO_DATABASE": "quickgpt",

	"JWT_SECRET":  "",
	"JWT_TTL":     "720h",
	"BCRYPT_COST": 10,

	"CORS_ALLOWED_ORIGINS": "*",
	"STRICT_STATUS_CODES":  false,
	"REQUEST_TIMEOUT":      "30s",

	"LLM_TEXT_PROVIDER":  "openai",
	"LLM_IMAGE_PROVIDER": "openai",
	"OPENAI_BASE_URL":    "",
	"OPENAI_API_KEY":     "",
	"GEMINI_API_KEY":     "",
	"OLLAMA_URL":         "http://ollama:11434",
	"TEXT_MODEL":         "",
	"IMAGE_MODEL":        "",
	"IMAGE_SIZE":         "",

	"UPSTREAM_TIMEOUT":     "60s",
	"STORAGE_TIMEOUT":      "5s",
	"BREAKER_MAX_FAILURES": 5,
	"BREAKER_OPEN_TIMEOUT": "30s",

	"IDEMPOTENCY_BACKEND": "memory",
	"IDEMPOTENCY_TTL":     "24h",
	"REDIS_ADDR":          "localhost:6379",
	"REDIS_PASSWORD":      "",
	"REDIS_DB":            0,

	"S3_BUCKET":          "",
	"S3_REGION":          "us-east-1",
	"S3_PUBLIC_BASE_URL": "",
	"S3_ACCESS_KEY":      "",
	"S3_SECRET_KEY":      "",
}

// LoadConfig reads defaults, then an optional .env file from . or ./backend, then the environment.
func LoadConfig() (*Config, error) {
	v := viper.New()
	v.AddConfigPath(".")
	v.AddConfigPath("./backend")
	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetConfigName(".env")
	v.SetConfigType("env")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	cfg.ConfigFile = v.ConfigFileUsed()

	if strings.TrimSpace(cfg.JWTSecret) == "" {
		return nil, ErrMissingJWTSecret
	}
	cfg.StoreDriver = strings.ToLower(strings.TrimSpace(cfg.StoreDriver))
	cfg.IdempotencyBackend = strings.ToLower(strings.TrimSpace(cfg.IdempotencyBackend))
	return &cfg, nil
}

// AllowedOrigins splits CORS_ALLOWED_ORIGINS on commas.
func (c *Config) AllowedOrigins() []string {
	var origins []string
	for _, o := range strings.Split(c.CORSAllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

// IsDevelopment reports whether APP_ENV selects development behaviour such as console logs.
func (c *Config) IsDevelopment() bool {
	env := strings.ToLower(c.AppEnv)
	return env == "development" || env == "dev" || env == "local"
}
