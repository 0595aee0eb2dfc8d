package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/timmy/amtracker/internal/domain"
	"github.com/timmy/amtracker/internal/logger"
)

// maxPageSize mirrors the AniList per-page ceiling.
const maxPageSize = 50

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	Database DatabaseConfig `mapstructure:"database"`
	AniList  AniListConfig  `mapstructure:"anilist"`
	Sync     SyncConfig     `mapstructure:"sync"`
	Airing   AiringConfig   `mapstructure:"airing"`
	Seed     SeedConfig     `mapstructure:"seed"`
	Storage  StorageConfig  `mapstructure:"storage"`
}

type ServerConfig struct {
	Port int        `mapstructure:"port"`
	Mode string     `mapstructure:"mode"`
	CORS CORSConfig `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins  []string `mapstructure:"allowed_origins"`
	AllowAllOrigins bool     `mapstructure:"allow_all_origins"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	File       string `mapstructure:"file"`
	FileOnly   bool   `mapstructure:"file_only"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// DatabaseConfig selects the local state store. sqlite uses Path; postgres
// uses the connection fields.
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	Path            string        `mapstructure:"path"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

type AniListConfig struct {
	Endpoint  string        `mapstructure:"endpoint"`
	Timeout   time.Duration `mapstructure:"timeout"`
	UserAgent string        `mapstructure:"user_agent"`
}

type SyncConfig struct {
	PagesPerKind int    `mapstructure:"pages_per_kind"`
	PageSize     int    `mapstructure:"page_size"`
	DefaultMode  string `mapstructure:"default_mode"`
}

// AiringConfig shapes the "airing soon" window around now.
type AiringConfig struct {
	Lookback time.Duration `mapstructure:"lookback"`
	Horizon  time.Duration `mapstructure:"horizon"`
	PageSize int           `mapstructure:"page_size"`
	MaxPages int           `mapstructure:"max_pages"`
}

type SeedConfig struct {
	Path string `mapstructure:"path"`
}

type StorageConfig struct {
	Type      string `mapstructure:"type"` // local, s3, r2, s3compatible
	LocalDir  string `mapstructure:"local_dir"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	Prefix    string `mapstructure:"prefix"`
}

// DSN returns the postgres connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode)
}

// LoggerConfig converts the log section for logger.New.
func (c *Config) LoggerConfig() *logger.Config {
	return &logger.Config{
		Level:       c.Log.Level,
		Format:      c.Log.Format,
		ServiceName: "amtracker",
		File:        c.Log.File,
		FileOnly:    c.Log.FileOnly,
		MaxSizeMB:   c.Log.MaxSizeMB,
		MaxBackups:  c.Log.MaxBackups,
		MaxAgeDays:  c.Log.MaxAgeDays,
		Compress:    c.Log.Compress,
	}
}

// Validate rejects settings the sync core cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Sync.PageSize < 1 || c.Sync.PageSize > maxPageSize {
		errs = append(errs, fmt.Errorf("sync.page_size must be within 1..%d, got %d", maxPageSize, c.Sync.PageSize))
	}
	if c.Sync.PagesPerKind < 0 {
		errs = append(errs, fmt.Errorf("sync.pages_per_kind must be >= 0, got %d", c.Sync.PagesPerKind))
	}
	if _, err := domain.ParseSortMode(c.Sync.DefaultMode); err != nil {
		errs = append(errs, fmt.Errorf("sync.default_mode: %w", err))
	}
	if c.Airing.PageSize < 1 || c.Airing.PageSize > maxPageSize {
		errs = append(errs, fmt.Errorf("airing.page_size must be within 1..%d, got %d", maxPageSize, c.Airing.PageSize))
	}
	if c.Airing.Horizon <= 0 {
		errs = append(errs, errors.New("airing.horizon must be positive"))
	}
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Errorf("database.driver must be sqlite or postgres, got %q", c.Database.Driver))
	}
	return errors.Join(errs...)
}

func Load(configPath string) (*Config, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Secrets and deployment knobs under their conventional names
	v.BindEnv("log.level", "LOG_LEVEL")
	v.BindEnv("log.format", "LOG_FORMAT")
	v.BindEnv("log.file", "LOG_FILE")
	v.BindEnv("database.driver", "DB_DRIVER")
	v.BindEnv("database.path", "DB_PATH")
	v.BindEnv("database.host", "DB_HOST")
	v.BindEnv("database.user", "DB_USER")
	v.BindEnv("database.password", "DB_PASSWORD")
	v.BindEnv("database.dbname", "DB_NAME")
	v.BindEnv("anilist.endpoint", "ANILIST_ENDPOINT")
	v.BindEnv("storage.type", "STORAGE_TYPE")
	v.BindEnv("storage.endpoint", "STORAGE_ENDPOINT")
	v.BindEnv("storage.access_key", "STORAGE_ACCESS_KEY")
	v.BindEnv("storage.secret_key", "STORAGE_SECRET_KEY")
	v.BindEnv("storage.bucket", "STORAGE_BUCKET")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.cors.allow_all_origins", true)
	v.SetDefault("server.cors.allowed_origins", []string{})

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.file", "")
	v.SetDefault("log.file_only", false)
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 7)
	v.SetDefault("log.max_age_days", 30)
	v.SetDefault("log.compress", true)

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/amtracker.db")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "amtracker")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "amtracker")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_idle_conns", 2)
	v.SetDefault("database.max_open_conns", 4)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("anilist.endpoint", "https://graphql.anilist.co")
	v.SetDefault("anilist.timeout", 15*time.Second)
	v.SetDefault("anilist.user_agent", "amtracker/1.0")

	v.SetDefault("sync.pages_per_kind", 5)
	v.SetDefault("sync.page_size", 50)
	v.SetDefault("sync.default_mode", string(domain.DefaultSortMode))

	v.SetDefault("airing.lookback", 30*time.Minute)
	v.SetDefault("airing.horizon", 48*time.Hour)
	v.SetDefault("airing.page_size", 50)
	v.SetDefault("airing.max_pages", 4)

	v.SetDefault("seed.path", "")

	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.local_dir", "./data/snapshots")
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.use_ssl", true)
	v.SetDefault("storage.bucket", "amtracker")
	v.SetDefault("storage.region", "")
	v.SetDefault("storage.prefix", "snapshots/")
}
