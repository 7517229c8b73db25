// config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Telegram struct {
		Token      string `validate:"required"`
		AdminID    int64  `validate:"gte=0"`
		WebhookURL string `validate:"omitempty,url"`
	}
	Sheets struct {
		Enabled            bool
		ServiceAccountJSON string
		SpreadsheetName    string
		SpreadsheetID      string
		CacheTTL           time.Duration `validate:"gt=0"`
	}
	DB struct {
		Enabled      bool
		Host         string
		Port         string
		User         string
		Password     string
		DBName       string
		SSLMode      string
		MaxOpenConns int
		MaxIdleConns int
		ConnLifetime time.Duration
	}
	Stripe struct {
		SecretKey  string
		WebhookKey string
		Currency   string
		SuccessURL string
		CancelURL  string
	}
	GPT struct {
		APIKey    string
		Model     string
		MaxTokens int `validate:"gte=0"`
	}
	Gym struct {
		Name        string
		MonthlyFee  int `validate:"gte=0"`
		Timezone    string
		IdleTimeout time.Duration
	}
	Scheduler struct {
		ReminderSpec string `validate:"required"`
	}
	Server struct {
		Port string `validate:"required"`
	}
	Log struct {
		Level       string
		Development bool
	}
	UpdateTimeout   time.Duration
	ShutdownTimeout time.Duration
}

// envBindings maps config keys to the environment variables the deployment
// already uses. The first variable that is set wins.
var envBindings = map[string][]string{
	"telegram.token":            {"BOT_TOKEN", "TELEGRAM_TOKEN"},
	"telegram.adminid":          {"ADMIN_ID"},
	"telegram.webhookurl":       {"TELEGRAM_WEBHOOK_URL"},
	"sheets.enabled":            {"ENABLE_SHEETS"},
	"sheets.serviceaccountjson": {"GOOGLE_SERVICE_ACCOUNT_JSON"},
	"sheets.spreadsheetname":    {"GOOGLE_SHEET_NAME"},
	"sheets.spreadsheetid":      {"GOOGLE_SHEET_ID"},
	"sheets.cachettl":           {"CACHE_TTL"},
	"db.enabled":                {"DB_ENABLED"},
	"db.host":                   {"DB_HOST"},
	"db.port":                   {"DB_PORT"},
	"db.user":                   {"DB_USER"},
	"db.password":               {"DB_PASSWORD"},
	"db.dbname":                 {"DB_NAME"},
	"db.sslmode":                {"DB_SSL_MODE"},
	"stripe.secretkey":          {"STRIPE_SECRET_KEY"},
	"stripe.webhookkey":         {"STRIPE_WEBHOOK_KEY"},
	"stripe.currency":           {"STRIPE_CURRENCY"},
	"stripe.successurl":         {"STRIPE_SUCCESS_URL"},
	"stripe.cancelurl":          {"STRIPE_CANCEL_URL"},
	"gpt.apikey":                {"OPENAI_API_KEY", "GPT_API_KEY"},
	"gpt.model":                 {"GPT_MODEL"},
	"gym.name":                  {"GYM_NAME"},
	"gym.monthlyfee":            {"GYM_MONTHLY_FEE"},
	"gym.timezone":              {"TIMEZONE"},
	"gym.idletimeout":           {"SESSION_IDLE_TIMEOUT"},
	"scheduler.reminderspec":    {"REMINDER_SPEC"},
	"server.port":               {"SERVER_PORT", "PORT"},
	"log.level":                 {"LOG_LEVEL"},
	"log.development":           {"LOG_DEVELOPMENT"},
	"updatetimeout":             {"UPDATE_TIMEOUT"},
	"shutdowntimeout":           {"SHUTDOWN_TIMEOUT"},
}

// Load reads .env, an optional config.yaml and the environment, in that
// order of increasing precedence, and validates the result.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("$HOME/.gym-bot")

	setDefaults(v)

	for key, envs := range envBindings {
		args := append([]string{key}, envs...)
		if err := v.BindEnv(args...); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	// Process any ${ENV_VAR} syntax in the config values
	for _, key := range v.AllKeys() {
		value := v.GetString(key)
		if strings.HasPrefix(value, "${") && strings.HasSuffix(value, "}") {
			envVar := strings.TrimPrefix(strings.TrimSuffix(value, "}"), "${")
			if envValue := os.Getenv(envVar); envValue != "" {
				v.Set(key, envValue)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("sheets.enabled", true)
	v.SetDefault("sheets.spreadsheetname", "GymAutomationDB")
	v.SetDefault("sheets.cachettl", 5*time.Minute)
	v.SetDefault("db.enabled", false)
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", "5432")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.dbname", "gym_bot")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.maxopenconns", 10)
	v.SetDefault("db.maxidleconns", 2)
	v.SetDefault("db.connlifetime", 5*time.Minute)
	v.SetDefault("stripe.currency", "inr")
	v.SetDefault("gpt.model", "gpt-4o-mini")
	v.SetDefault("gpt.maxtokens", 500)
	v.SetDefault("gym.name", "Iron Paradise Gym")
	v.SetDefault("gym.monthlyfee", 1500)
	v.SetDefault("gym.timezone", "Asia/Kolkata")
	v.SetDefault("gym.idletimeout", 30*time.Minute)
	v.SetDefault("scheduler.reminderspec", "0 9 * * *")
	v.SetDefault("server.port", "8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("updatetimeout", 60*time.Second)
	v.SetDefault("shutdowntimeout", 10*time.Second)
}

// Validate checks the fields the process cannot start without.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := time.LoadLocation(c.Gym.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.Gym.Timezone, err)
	}
	return nil
}

// SheetsReady reports whether the spreadsheet store can be opened.
func (c *Config) SheetsReady() bool {
	return c.Sheets.Enabled && c.Sheets.ServiceAccountJSON != ""
}

// StripeReady reports whether online dues payment is configured.
func (c *Config) StripeReady() bool {
	return c.Stripe.SecretKey != "" && c.Stripe.WebhookKey != ""
}

// Location returns the gym's time zone, defaulting to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Gym.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
