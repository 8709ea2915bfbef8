package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// CalendarConfig identifies one calendar feed by the parts of its URL.
type CalendarConfig struct {
	Class   string `mapstructure:"class"`
	Year    int    `mapstructure:"year"`
	Section string `mapstructure:"section"`
}

// Config holds all configuration values.
type Config struct {
	AppPort  string `mapstructure:"APP_PORT"`
	Env      string `mapstructure:"ENV"`
	LogLevel string `mapstructure:"LOG_LEVEL"`
	Timezone string `mapstructure:"TIMEZONE"`

	// Display control API.
	APIURL             string        `mapstructure:"API_URL"`
	APIUser            string        `mapstructure:"API_USER"`
	APIPass            string        `mapstructure:"API_PASS"`
	UploadTimeout      time.Duration `mapstructure:"UPLOAD_TIMEOUT"`
	APIRatePerSec      float64       `mapstructure:"API_RATE_PER_SEC"`
	MaxPendingRequests int           `mapstructure:"MAX_PENDING_REQUESTS"`
	UploadConcurrency  int           `mapstructure:"UPLOAD_CONCURRENCY"`

	// Calendar feeds.
	ICalURLTemplate string        `mapstructure:"ICAL_URL_TEMPLATE"`
	ICalUser        string        `mapstructure:"ICAL_USER"`
	ICalPass        string        `mapstructure:"ICAL_PASS"`
	FeedTimeout     time.Duration `mapstructure:"FEED_TIMEOUT"`
	PollSchedule    string        `mapstructure:"POLL_SCHEDULE"`

	// Redis configuration. An empty address keeps the session in memory.
	RedisAddr      string        `mapstructure:"REDIS_ADDR"`
	RedisPassword  string        `mapstructure:"REDIS_PASSWORD"`
	RedisSessionDB int           `mapstructure:"REDIS_SESSION_DB"`
	SessionTTL     time.Duration `mapstructure:"SESSION_TTL"`

	Calendars []CalendarConfig    `mapstructure:"calendars"`
	Locations map[string][]string `mapstructure:"locations"`
}

// ConfigError reports required settings that are missing or invalid.
type ConfigError struct {
	Missing []string
	Reason  string
}

func (e *ConfigError) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("configuration error: missing %s", strings.Join(e.Missing, ", "))
	}
	return "configuration error: " + e.Reason
}

var AppConfig Config

// requiredKeys have no sensible default and must come from env or file.
var requiredKeys = []string{"API_URL", "API_USER", "API_PASS", "ICAL_URL_TEMPLATE", "ICAL_USER", "ICAL_PASS"}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("TIMEZONE", "Europe/Berlin")
	v.SetDefault("UPLOAD_TIMEOUT", 7500*time.Millisecond)
	v.SetDefault("API_RATE_PER_SEC", 10)
	v.SetDefault("MAX_PENDING_REQUESTS", 256)
	v.SetDefault("UPLOAD_CONCURRENCY", 4)
	v.SetDefault("FEED_TIMEOUT", 30*time.Second)
	v.SetDefault("POLL_SCHEDULE", "@every 1m")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_SESSION_DB", 0)
	v.SetDefault("SESSION_TTL", 12*time.Hour)

	// Registering the keys lets AutomaticEnv feed them into Unmarshal.
	for _, key := range requiredKeys {
		v.SetDefault(key, "")
	}
}

// Load reads configuration through v. It looks for "config.yaml" in the
// current and "config" directory and lets environment variables override it.
func Load(v *viper.Viper) (Config, error) {
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
		log.Println("No config file found, using environment variables only")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}

func LoadConfig() {
	cfg, err := Load(viper.GetViper())
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	AppConfig = cfg
}

// Validate checks that every required setting is present and usable.
func (c Config) Validate() error {
	var missing []string
	values := map[string]string{
		"API_URL":           c.APIURL,
		"API_USER":          c.APIUser,
		"API_PASS":          c.APIPass,
		"ICAL_URL_TEMPLATE": c.ICalURLTemplate,
		"ICAL_USER":         c.ICalUser,
		"ICAL_PASS":         c.ICalPass,
	}
	for _, key := range requiredKeys {
		if strings.TrimSpace(values[key]) == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return &ConfigError{Missing: missing}
	}
	if len(c.Calendars) == 0 {
		return &ConfigError{Reason: "no calendars configured"}
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return &ConfigError{Reason: fmt.Sprintf("invalid TIMEZONE %q: %v", c.Timezone, err)}
	}
	return nil
}

// Location returns the configured time zone, falling back to local time.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func GetEnv() string {
	return AppConfig.Env
}

func IsProduction() bool {
	return GetEnv() == "production"
}
