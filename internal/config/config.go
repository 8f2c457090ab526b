package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port                     string
	AllowedOrigin            string
	LogLevel                 string
	DatabaseURL              string
	RedisAddr                string
	RedisPassword            string
	RedisDB                  int
	DashboardCacheTTLSeconds int
	AuthSecret               string
	SessionTimeoutMinutes    int
	ManagerPIN               string
	MongoURI                 string
	MongoDBName              string
	AlertWebhookURL          string
	ReportCronSchedule       string
	AlertCronSchedule        string
	BootstrapAdminEmail      string
	BootstrapAdminPassword   string
}

// Load reads the optional env file and then the process environment.
// A missing env file is not an error.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("failed loading env file %s: %w", envFile, err)
		}
	} else {
		_ = godotenv.Load()
	}

	cfg := Config{
		Port:                     getEnv("PORT", "8080"),
		AllowedOrigin:            getEnv("ALLOWED_ORIGIN", "http://127.0.0.1:5173"),
		LogLevel:                 getEnv("LOG_LEVEL", "info"),
		DatabaseURL:              os.Getenv("DATABASE_URL"),
		RedisAddr:                os.Getenv("REDIS_ADDR"),
		RedisPassword:            os.Getenv("REDIS_PASSWORD"),
		RedisDB:                  getInt("REDIS_DB", 0, 0),
		DashboardCacheTTLSeconds: getInt("DASHBOARD_CACHE_TTL_SECONDS", 30, 1),
		AuthSecret:               strings.TrimSpace(os.Getenv("AUTH_SECRET")),
		SessionTimeoutMinutes:    getInt("SESSION_TIMEOUT_MINUTES", 30, 1),
		ManagerPIN:               strings.TrimSpace(os.Getenv("MANAGER_PIN")),
		MongoURI:                 os.Getenv("MONGODB_URI"),
		MongoDBName:              getEnv("MONGODB_DB_NAME", "pharmacare"),
		AlertWebhookURL:          strings.TrimSpace(os.Getenv("ALERT_WEBHOOK_URL")),
		ReportCronSchedule:       getEnv("REPORT_CRON_SCHEDULE", "55 23 * * *"),
		AlertCronSchedule:        getEnv("ALERT_CRON_SCHEDULE", "0 8 * * *"),
		BootstrapAdminEmail:      strings.TrimSpace(os.Getenv("BOOTSTRAP_ADMIN_EMAIL")),
		BootstrapAdminPassword:   os.Getenv("BOOTSTRAP_ADMIN_PASSWORD"),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks fields that have no usable fallback. Secret strength is
// checked separately at startup.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Port) == "" {
		return errors.New("PORT must not be empty")
	}
	if _, err := strconv.Atoi(c.Port); err != nil {
		return fmt.Errorf("PORT must be numeric: %w", err)
	}
	if c.ReportCronSchedule == "" || c.AlertCronSchedule == "" {
		return errors.New("cron schedules must not be empty")
	}
	if c.MongoURI != "" && c.MongoDBName == "" {
		return errors.New("MONGODB_DB_NAME must be provided when MONGODB_URI is set")
	}
	return nil
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}

func getEnv(key string, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}

func getInt(key string, fallback int, min int) int {
	parsed, err := strconv.Atoi(getEnv(key, strconv.Itoa(fallback)))
	if err != nil || parsed < min {
		return fallback
	}
	return parsed
}
