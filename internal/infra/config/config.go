package config

import (
	"fmt"
	"os"
	"strconv"
	"strings" // For LogLevel normalization
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultPracticumEndpoint = "https://practicum.yandex.ru/api/user_api/homework_statuses/"
	DefaultPollSchedule      = "@every 10m"
	DefaultRequestTimeout    = 30 * time.Second
)

// MissingEnvError is returned when one or more required variables are unset.
// Names lists every missing variable, not only the first one.
type MissingEnvError struct {
	Names []string
}

func (e *MissingEnvError) Error() string {
	return fmt.Sprintf("required environment variables are not set: %s", strings.Join(e.Names, ", "))
}

// AppConfig holds all configuration for the application
type AppConfig struct {
	PracticumToken    string
	TelegramToken     string
	TelegramChatID    int64
	PracticumEndpoint string
	PollSchedule      string        // cron spec, "@every" accepted
	PollMaxBackoff    time.Duration // 0 keeps the fixed sleep
	RequestTimeout    time.Duration
	LogLevel          string
	Environment       string
}

// Load reads configuration from environment variables and .env file (if present).
func Load() (*AppConfig, error) {
	// godotenv.Load will not override existing env variables.
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv builds the configuration from the process environment only.
func FromEnv() (*AppConfig, error) {
	cfg := &AppConfig{}
	var err error

	var missing []string
	required := func(name string) string {
		v := strings.TrimSpace(os.Getenv(name))
		if v == "" {
			missing = append(missing, name)
		}
		return v
	}

	cfg.PracticumToken = required("PRACTICUM_TOKEN")
	cfg.TelegramToken = required("TELEGRAM_TOKEN")
	chatIDStr := required("TELEGRAM_CHAT_ID")
	if len(missing) > 0 {
		return nil, &MissingEnvError{Names: missing}
	}

	cfg.TelegramChatID, err = strconv.ParseInt(chatIDStr, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid TELEGRAM_CHAT_ID: %w", err)
	}

	cfg.PracticumEndpoint = os.Getenv("PRACTICUM_ENDPOINT")
	if cfg.PracticumEndpoint == "" {
		cfg.PracticumEndpoint = DefaultPracticumEndpoint
	}

	cfg.PollSchedule = os.Getenv("POLL_SCHEDULE")
	if cfg.PollSchedule == "" {
		cfg.PollSchedule = DefaultPollSchedule // Default: every 10 minutes
	}

	if cfg.PollMaxBackoff, err = durationEnv("POLL_MAX_BACKOFF", 0); err != nil {
		return nil, err
	}
	if cfg.RequestTimeout, err = durationEnv("REQUEST_TIMEOUT", DefaultRequestTimeout); err != nil {
		return nil, err
	}
	if cfg.RequestTimeout <= 0 {
		return nil, fmt.Errorf("invalid REQUEST_TIMEOUT: must be positive, got %s", cfg.RequestTimeout)
	}

	cfg.LogLevel = strings.ToLower(os.Getenv("LOG_LEVEL"))
	if cfg.LogLevel == "" {
		cfg.LogLevel = "debug" // Default log level
	}

	cfg.Environment = strings.ToLower(os.Getenv("ENVIRONMENT"))
	if cfg.Environment == "" {
		cfg.Environment = "development" // Default environment
	}

	return cfg, nil
}

func durationEnv(name string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid %s: must not be negative", name)
	}
	return d, nil
}
