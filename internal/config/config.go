package config

import (
	"errors"
	"fmt"
	"time"

	"taprealm/internal/logger"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	AppPort     string        `env:"APP_PORT" envDefault:"8080"`
	DatabaseURL string        `env:"DATABASE_URL"`
	BotToken    string        `env:"BOT_TOKEN"`
	JWTSecret   string        `env:"JWT_SECRET"`
	JWTTTL      time.Duration `env:"JWT_TTL" envDefault:"24h"`
	// DevMode skips init_data validation and accepts a bare tg_id
	DevMode bool `env:"DEV_MODE" envDefault:"false"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	LogJSON  bool   `env:"LOG_JSON" envDefault:"false"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:","`

	// tg id админов бота, через запятую
	AdminTelegramIDs []int64 `env:"ADMIN_TELEGRAM_IDS" envSeparator:","`
	AdminBotEnabled  bool    `env:"ADMIN_BOT_ENABLED" envDefault:"false"`

	// Engine tunables: optional TOML file, then app_settings rows
	SettingsFile           string        `env:"SETTINGS_FILE"`
	SettingsReloadInterval time.Duration `env:"SETTINGS_RELOAD_INTERVAL" envDefault:"30s"`

	// Лимиты запросов к API (per IP / per user)
	APIRateLimit     int           `env:"API_RATE_LIMIT" envDefault:"120"`
	APIRateWindow    time.Duration `env:"API_RATE_WINDOW" envDefault:"1m"`
	AuthRateLimit    int           `env:"AUTH_RATE_LIMIT" envDefault:"10"`
	AuthRateWindow   time.Duration `env:"AUTH_RATE_WINDOW" envDefault:"1m"`
	ActionRateLimit  int           `env:"ACTION_RATE_LIMIT" envDefault:"600"`
	ActionRateWindow time.Duration `env:"ACTION_RATE_WINDOW" envDefault:"1m"`

	TapTrackerIdle    time.Duration `env:"TAP_TRACKER_IDLE" envDefault:"5m"`
	TapTrackerCleanup time.Duration `env:"TAP_TRACKER_CLEANUP" envDefault:"1m"`

	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// Parse reads .env (if present) and the process environment.
func Parse() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL is not set"))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is not set"))
	}
	// в dev режиме init_data не проверяется, токен бота не нужен
	if c.BotToken == "" && !c.DevMode {
		errs = append(errs, errors.New("BOT_TOKEN is not set"))
	}
	if c.AdminBotEnabled && (c.BotToken == "" || len(c.AdminTelegramIDs) == 0) {
		errs = append(errs, errors.New("ADMIN_BOT_ENABLED needs BOT_TOKEN and ADMIN_TELEGRAM_IDS"))
	}
	return errors.Join(errs...)
}

// Загрузка конфига из env
func Load() *Config {
	cfg, err := Parse()
	if err != nil {
		logger.Fatal("invalid config", "error", err)
	}
	return cfg
}
