package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	DB      DBConfig      `mapstructure:"db"`
	OIDC    OIDCConfig    `mapstructure:"oidc"`
	Log     LogConfig     `mapstructure:"log"`
	Session SessionConfig `mapstructure:"session"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Forum   ForumConfig   `mapstructure:"forum"`
}

// ServerConfig holds server-specific configuration.
type ServerConfig struct {
	Port string    `mapstructure:"port" validate:"required,numeric"`
	TLS  TLSConfig `mapstructure:"tls"`
}

// TLSConfig holds TLS-specific configuration.
type TLSConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	CertFile string `mapstructure:"certFile" validate:"required_if=Enabled true"`
	KeyFile  string `mapstructure:"keyFile" validate:"required_if=Enabled true"`
}

// DBConfig holds database-specific configuration.
type DBConfig struct {
	Driver         string `mapstructure:"driver" validate:"oneof=mysql sqlite3 postgres"`
	DSN            string `mapstructure:"dsn" validate:"required"`
	MigrationsPath string `mapstructure:"migrations_path" validate:"required"`
}

// OIDCConfig holds OIDC client configuration.
// Login is disabled when IssuerURL is empty.
type OIDCConfig struct {
	IssuerURL    string `mapstructure:"issuer_url" validate:"omitempty,url"`
	ClientID     string `mapstructure:"client_id" validate:"required_with=IssuerURL"`
	ClientSecret string `mapstructure:"client_secret"`
	RedirectURL  string `mapstructure:"redirect_url" validate:"required_with=IssuerURL"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`  // e.g., "debug", "info", "warn", "error"
	Format string `mapstructure:"format"` // e.g., "json", "console"
}

// SessionConfig holds session cookie configuration.
type SessionConfig struct {
	SecretKey string `mapstructure:"secretkey"`
	Lifetime  int    `mapstructure:"lifetime" validate:"gt=0"` // hours
}

// CacheConfig holds the SQLite cache configuration.
type CacheConfig struct {
	FilePath string        `mapstructure:"filepath" validate:"required"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// ForumConfig holds the site-wide forum display settings.
type ForumConfig struct {
	// LongPost is the stripped body length above which a linked post is shortened.
	LongPost int `mapstructure:"longpost" validate:"gt=0"`
	// ShortPost is the length a shortened post is cut to.
	ShortPost        int           `mapstructure:"shortpost" validate:"gt=0,ltefield=LongPost"`
	MaxEditingTime   time.Duration `mapstructure:"maxeditingtime"`
	UserMarksRead    bool          `mapstructure:"usermarksread"`
	TrackReadPosts   bool          `mapstructure:"trackreadposts"`
	OldPostDays      int           `mapstructure:"oldpostdays" validate:"gte=0"`
	EnablePortfolios bool          `mapstructure:"enableportfolios"`
	DisplayMode      int           `mapstructure:"displaymode" validate:"oneof=-1 1 2 3"`
	PerPage          int           `mapstructure:"perpage"`
	FullNameDisplay  string        `mapstructure:"fullnamedisplay" validate:"required"`
	Timezone         string        `mapstructure:"timezone" validate:"timezone"`
	WWWRoot          string        `mapstructure:"wwwroot"`
}

// Location returns the configured display timezone, falling back to UTC.
func (f ForumConfig) Location() *time.Location {
	loc, err := time.LoadLocation(f.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// LoadConfig reads configuration from file and environment variables.
func LoadConfig() (*Config, error) {
	v := viper.New()
	SetDefaults(v)

	// Set up viper to read from config file
	v.SetConfigName("config")
	v.SetConfigType("yml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	v.AddConfigPath("/etc/go-course-format/")
	v.AddConfigPath("$HOME/.go-course-format")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		// Config file not found; proceed with defaults and env vars
	}

	v.SetEnvPrefix("COURSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetDefaults registers the default value of every setting on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("db.driver", "mysql")
	v.SetDefault("db.dsn", "course:course@tcp(localhost:3306)/course?parseTime=true&multiStatements=true")
	v.SetDefault("db.migrations_path", "migrations")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("session.lifetime", 24)
	v.SetDefault("cache.filepath", "cache.db")
	v.SetDefault("cache.ttl", time.Minute)

	v.SetDefault("forum.longpost", 600)
	v.SetDefault("forum.shortpost", 300)
	v.SetDefault("forum.maxeditingtime", 30*time.Minute)
	v.SetDefault("forum.usermarksread", false)
	v.SetDefault("forum.trackreadposts", true)
	v.SetDefault("forum.oldpostdays", 14)
	v.SetDefault("forum.enableportfolios", false)
	v.SetDefault("forum.displaymode", 3)
	v.SetDefault("forum.perpage", 100)
	v.SetDefault("forum.fullnamedisplay", "firstname lastname")
	v.SetDefault("forum.timezone", "UTC")
	v.SetDefault("forum.wwwroot", "")
}

// Validate checks the struct tags of the whole configuration tree.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}
