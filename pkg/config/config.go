package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

var Empty = new(Config)

type Config struct {
	AppEnv       string `envconfig:"APP_ENV"`
	Port         int    `envconfig:"PORT" default:"8080"`
	SentryDSN    string `envconfig:"SENTRY_DSN"`
	AllowOrigins string `envconfig:"ALLOW_ORIGINS"`
	LogLevel     string `envconfig:"LOG_LEVEL" default:"info"`

	DB struct {
		Name      string `envconfig:"DB_NAME"`
		Host      string `envconfig:"DB_HOST"`
		Port      int    `envconfig:"DB_PORT" default:"5432"`
		User      string `envconfig:"DB_USER"`
		Pass      string `envconfig:"DB_PASS"`
		EnableSSL bool   `envconfig:"ENABLE_SSL"`
	}
	Auth struct {
		JWTSecret  string        `envconfig:"AUTH_JWT_SECRET"`
		TokenTTL   time.Duration `envconfig:"AUTH_TOKEN_TTL" default:"15m"`
		RefreshTTL time.Duration `envconfig:"AUTH_REFRESH_TTL" default:"168h"`
	}
	Redis struct {
		URL string        `envconfig:"REDIS_URL"`
		TTL time.Duration `envconfig:"REDIS_CACHE_TTL" default:"5m"`
	}
	TMDB struct {
		BaseURL    string        `envconfig:"TMDB_BASE_URL" default:"https://api.themoviedb.org/3"`
		APIKey     string        `envconfig:"TMDB_API_KEY"`
		Token      string        `envconfig:"TMDB_TOKEN"`
		Language   string        `envconfig:"TMDB_LANGUAGE" default:"en-US"`
		Timeout    time.Duration `envconfig:"TMDB_TIMEOUT" default:"10s"`
		MaxRetries int           `envconfig:"TMDB_MAX_RETRIES" default:"3"`
		RetryDelay time.Duration `envconfig:"TMDB_RETRY_DELAY" default:"1s"`
		RPS        float64       `envconfig:"TMDB_RPS" default:"20"`
	}
	Sync struct {
		Enabled      bool          `envconfig:"SYNC_ENABLED"`
		OnStartup    bool          `envconfig:"SYNC_ON_STARTUP"`
		Interval     time.Duration `envconfig:"SYNC_INTERVAL" default:"6h"`
		PopularPages int           `envconfig:"SYNC_POPULAR_PAGES" default:"5"`
		BatchSize    int           `envconfig:"SYNC_BATCH_SIZE" default:"50"`
		Concurrency  int           `envconfig:"SYNC_CONCURRENCY" default:"4"`
		Delay        time.Duration `envconfig:"SYNC_DELAY" default:"250ms"`
		StaleAfter   time.Duration `envconfig:"SYNC_STALE_AFTER" default:"24h"`
	}
}

// TMDBConfigured reports whether credentials for the metadata provider are present.
func (c *Config) TMDBConfigured() bool {
	return c.TMDB.APIKey != "" || c.TMDB.Token != ""
}

func LoadConfig() (*Config, error) {
	// load default .env file, ignore the error
	_ = godotenv.Load()

	cfg := new(Config)
	err := envconfig.Process("", cfg)
	if err != nil {
		return nil, fmt.Errorf("load config error: %v", err)
	}

	return cfg, nil
}
