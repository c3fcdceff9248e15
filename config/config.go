package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Storage    StorageConfig    `yaml:"storage"`
	Attendance AttendanceConfig `yaml:"attendance"`
	Auth       AuthConfig       `yaml:"auth"`
	Push       PushConfig       `yaml:"push"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool"`
	Log        LogConfig        `yaml:"log"`
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	RateLimitPerSec float64       `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int           `yaml:"rate_limit_burst"`
	LoginPerMinute  int           `yaml:"login_per_minute"`
	CacheTTLSeconds int           `yaml:"cache_ttl_seconds"`
	CacheTTL        time.Duration `yaml:"-"`
	CORSOrigins     []string      `yaml:"cors_origins"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	Driver                 string `yaml:"driver"` // "postgres" or "sqlite"
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
	LogSQL                 bool   `yaml:"log_sql"`
}

// StorageConfig controls uploaded document handling.
type StorageConfig struct {
	UploadDir        string `yaml:"upload_dir"`
	MaxFileSizeBytes int64  `yaml:"max_file_size_bytes"`
	MaxTaskLetters   int    `yaml:"max_task_letters"`
}

// AttendanceConfig defines the operational time zone.
type AttendanceConfig struct {
	UTCOffsetHours int    `yaml:"utc_offset_hours"`
	ZoneName       string `yaml:"zone_name"`
}

// AuthConfig holds bearer token and admin bootstrap settings.
type AuthConfig struct {
	SecretKey       string        `yaml:"secret_key"`
	Issuer          string        `yaml:"issuer"`
	TokenTTLMinutes int           `yaml:"token_ttl_minutes"`
	TokenTTL        time.Duration `yaml:"-"`
	AllowSetupAdmin bool          `yaml:"allow_setup_admin"`
	BcryptCost      int           `yaml:"bcrypt_cost"`
}

// PushConfig holds the VAPID keys for web push notifications.
// Notifications are disabled when either key is empty.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// Enabled reports whether both VAPID keys are configured.
func (p PushConfig) Enabled() bool {
	return p.PublicKey != "" && p.PrivateKey != ""
}

// WorkerPoolConfig holds the configuration for the notification worker pool.
type WorkerPoolConfig struct {
	Size      int `yaml:"size"`
	QueueSize int `yaml:"queue_size"`
}

// LogConfig selects the zap level and encoder.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

const (
	DefaultMaxFileSize    = 2 * 1024 * 1024
	DefaultMaxTaskLetters = 5
	minSecretKeyLength    = 32
)

// Load reads the configuration from the given path, applies environment
// overrides and fills defaults.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}

	cfg.applyEnv()
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (cfg *Config) applyEnv() {
	if v := os.Getenv("VISITOR_SECRET_KEY"); v != "" {
		cfg.Auth.SecretKey = v
	}
	if v := os.Getenv("VISITOR_DATABASE_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("VISITOR_ALLOW_SETUP_ADMIN"); v != "" {
		cfg.Auth.AllowSetupAdmin = strings.EqualFold(v, "true")
	}
}

// ApplyDefaults fills zero values. Exported so tests can build a Config in code.
func (cfg *Config) ApplyDefaults() {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8000
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 20
	}
	if cfg.Server.LoginPerMinute <= 0 {
		cfg.Server.LoginPerMinute = 5
	}
	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 60
	}
	cfg.Server.CacheTTL = time.Duration(cfg.Server.CacheTTLSeconds) * time.Second

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "postgres"
	}

	if cfg.Storage.UploadDir == "" {
		cfg.Storage.UploadDir = "uploads"
	}
	if cfg.Storage.MaxFileSizeBytes <= 0 {
		cfg.Storage.MaxFileSizeBytes = DefaultMaxFileSize
	}
	if cfg.Storage.MaxTaskLetters <= 0 {
		cfg.Storage.MaxTaskLetters = DefaultMaxTaskLetters
	}

	if cfg.Attendance.UTCOffsetHours == 0 && cfg.Attendance.ZoneName == "" {
		cfg.Attendance.UTCOffsetHours = 7
		cfg.Attendance.ZoneName = "WIB"
	}

	if cfg.Auth.Issuer == "" {
		cfg.Auth.Issuer = "visitor-system"
	}
	if cfg.Auth.TokenTTLMinutes <= 0 {
		cfg.Auth.TokenTTLMinutes = 60
	}
	cfg.Auth.TokenTTL = time.Duration(cfg.Auth.TokenTTLMinutes) * time.Minute

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}

	if cfg.WorkerPool.Size <= 0 {
		log.Printf("worker_pool.size is not set or invalid; defaulting to 1")
		cfg.WorkerPool.Size = 1
	}
	if cfg.WorkerPool.QueueSize <= 0 {
		cfg.WorkerPool.QueueSize = 100
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
}

// Validate rejects configurations the server cannot run with.
func (cfg *Config) Validate() error {
	var errs []error
	if len(cfg.Auth.SecretKey) < minSecretKeyLength {
		errs = append(errs, fmt.Errorf("auth.secret_key must be at least %d characters (or set VISITOR_SECRET_KEY)", minSecretKeyLength))
	}
	if cfg.Database.DSN == "" {
		errs = append(errs, errors.New("database.dsn is required"))
	}
	switch cfg.Database.Driver {
	case "postgres", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("database.driver %q is not supported", cfg.Database.Driver))
	}
	if cfg.Attendance.UTCOffsetHours < -12 || cfg.Attendance.UTCOffsetHours > 14 {
		errs = append(errs, fmt.Errorf("attendance.utc_offset_hours %d is out of range", cfg.Attendance.UTCOffsetHours))
	}
	return errors.Join(errs...)
}
