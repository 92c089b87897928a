package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"db"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Calendar CalendarConfig `mapstructure:"calendar"`
	Extract  ExtractConfig  `mapstructure:"extract"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Log      LogConfig      `mapstructure:"log"`
	Timezone string         `mapstructure:"timezone"`

	Location *time.Location `mapstructure:"-"`
}

type ServerConfig struct {
	Port         int      `mapstructure:"port"`
	AllowOrigins []string `mapstructure:"allow_origins"`
	MaxUploadMB  int      `mapstructure:"max_upload_mb"`
}

// MaxUploadBytes is the largest accepted timetable image
func (s ServerConfig) MaxUploadBytes() int64 {
	return int64(s.MaxUploadMB) << 20
}

type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// AuthConfig holds the shared secret used to verify identity tokens
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
	Issuer    string `mapstructure:"issuer"`
}

// CalendarConfig selects the external calendar events are pushed to
type CalendarConfig struct {
	Provider       string        `mapstructure:"provider"` // "google" | "caldav"
	GoogleID       string        `mapstructure:"google_calendar_id"`
	CalDAVURL      string        `mapstructure:"caldav_url"`
	CalDAVUsername string        `mapstructure:"caldav_username"`
	CalDAVPassword string        `mapstructure:"caldav_password"`
	CalDAVPath     string        `mapstructure:"caldav_path"`
	MaxConcurrency int           `mapstructure:"max_concurrency"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	GuardTTL       time.Duration `mapstructure:"guard_ttl"`
}

// ExtractConfig points at the vision extraction service
type ExtractConfig struct {
	URL     string        `mapstructure:"url"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type TelegramConfig struct {
	Token      string `mapstructure:"token"`
	DigestTime string `mapstructure:"digest_time"` // "HH:mm", empty disables the morning digest
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// Load reads configuration from defaults, an optional config file and the
// environment (CLASSSYNC_ prefix). A .env file in the working directory is
// loaded first if present.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allow_origins", []string{"http://localhost:3000"})
	v.SetDefault("server.max_upload_mb", 10)

	v.SetDefault("db.path", "./data/classsync.db")

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.issuer", "")

	v.SetDefault("calendar.provider", "google")
	v.SetDefault("calendar.google_calendar_id", "primary")
	v.SetDefault("calendar.caldav_url", "https://caldav.icloud.com")
	v.SetDefault("calendar.caldav_username", "")
	v.SetDefault("calendar.caldav_password", "")
	v.SetDefault("calendar.caldav_path", "")
	v.SetDefault("calendar.max_concurrency", 4)
	v.SetDefault("calendar.request_timeout", "20s")
	v.SetDefault("calendar.guard_ttl", "168h")

	v.SetDefault("extract.url", "")
	v.SetDefault("extract.api_key", "")
	v.SetDefault("extract.timeout", "60s")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.digest_time", "07:00")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.file", "")

	v.SetDefault("timezone", "UTC")

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("CLASSSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks required settings and resolves the time zone
func (c *Config) Validate() error {
	if len(c.Auth.JWTSecret) < 16 {
		return fmt.Errorf("auth.jwt_secret is required and must be at least 16 characters")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}
	switch c.Calendar.Provider {
	case "google", "caldav":
	default:
		return fmt.Errorf("calendar.provider must be google or caldav, got %q", c.Calendar.Provider)
	}
	if c.Calendar.MaxConcurrency <= 0 {
		c.Calendar.MaxConcurrency = 1
	}
	if c.Server.MaxUploadMB <= 0 {
		c.Server.MaxUploadMB = 10
	}

	tz, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return fmt.Errorf("invalid timezone: %w", err)
	}
	c.Location = tz
	return nil
}

// CalDAVConfigured returns true if CalDAV credentials are set
func (c *CalendarConfig) CalDAVConfigured() bool {
	return c.CalDAVUsername != "" && c.CalDAVPassword != ""
}
