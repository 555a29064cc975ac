package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigPath is the default configuration file location.
const ConfigPath = "config.yaml"

// FileConfig represents configuration loaded from YAML.
type FileConfig struct {
	Port        string `yaml:"port"`
	LogLevel    string `yaml:"logLevel"`
	DatabaseURL string `yaml:"databaseURL"`

	LMSBaseURL string `yaml:"lmsBaseURL"`
	LMSToken   string `yaml:"lmsToken"`
	LMSTimeout string `yaml:"lmsTimeout"`

	ImageStorage    string `yaml:"imageStorage"` // "filesystem" or "s3"
	ImageDir        string `yaml:"imageDir"`
	S3Endpoint      string `yaml:"s3Endpoint"`
	S3AccessKey     string `yaml:"s3AccessKey"`
	S3SecretKey     string `yaml:"s3SecretKey"`
	S3Bucket        string `yaml:"s3Bucket"`
	S3UseSSL        bool   `yaml:"s3UseSSL"`
	SyncInterval    string `yaml:"syncInterval"`
	StatsInterval   string `yaml:"statsInterval"`
	SyncConcurrency int    `yaml:"syncConcurrency"`

	RedisAddr             string `yaml:"redisAddr"`
	RedisPassword         string `yaml:"redisPassword"`
	SSORateLimitPerMinute int    `yaml:"ssoRateLimitPerMinute"`

	SSOTokenSecret   string `yaml:"ssoTokenSecret"`
	SSOTokenIssuer   string `yaml:"ssoTokenIssuer"`
	SSOTokenAudience string `yaml:"ssoTokenAudience"`
	SSOTokenTTL      string `yaml:"ssoTokenTTL"`
	LMSLoginURL      string `yaml:"lmsLoginURL"`

	PasswordSalt string `yaml:"passwordSalt"`
}

// Load reads config from path (defaults to config.yaml) and applies
// environment overrides.
func Load(path string) (FileConfig, error) {
	cfg := FileConfig{}
	if path == "" {
		path = ConfigPath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	applyEnv(&cfg)
	if err := validateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *FileConfig) {
	if v := os.Getenv("SYNCD_PORT"); v != "" {
		cfg.Port = strings.TrimSpace(v)
	}
	if v := os.Getenv("SYNCD_LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.TrimSpace(v)
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("LMS_BASE_URL"); v != "" {
		cfg.LMSBaseURL = strings.TrimSpace(v)
	}
	if v := os.Getenv("LMS_TOKEN"); v != "" {
		cfg.LMSToken = strings.TrimSpace(v)
	}
	if v := os.Getenv("LMS_TIMEOUT"); v != "" {
		cfg.LMSTimeout = strings.TrimSpace(v)
	}
	if v := os.Getenv("SYNCD_IMAGE_DIR"); v != "" {
		cfg.ImageDir = v
	}
	if v := os.Getenv("SYNCD_IMAGE_STORAGE"); v != "" {
		cfg.ImageStorage = strings.TrimSpace(v)
	}
	if v := os.Getenv("SYNCD_SYNC_INTERVAL"); v != "" {
		cfg.SyncInterval = strings.TrimSpace(v)
	}
	if v := os.Getenv("SYNCD_STATS_INTERVAL"); v != "" {
		cfg.StatsInterval = strings.TrimSpace(v)
	}
	if v := os.Getenv("SYNCD_SYNC_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			cfg.SyncConcurrency = n
		}
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.RedisAddr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.RedisPassword = v
	}
	if v := os.Getenv("SYNCD_SSO_RATE_LIMIT_PER_MINUTE"); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			cfg.SSORateLimitPerMinute = n
		}
	}
	if v := os.Getenv("SSO_TOKEN_SECRET"); v != "" {
		cfg.SSOTokenSecret = v
	}
	if v := os.Getenv("SSO_TOKEN_ISSUER"); v != "" {
		cfg.SSOTokenIssuer = v
	}
	if v := os.Getenv("SSO_TOKEN_AUDIENCE"); v != "" {
		cfg.SSOTokenAudience = v
	}
	if v := os.Getenv("SSO_TOKEN_TTL"); v != "" {
		cfg.SSOTokenTTL = strings.TrimSpace(v)
	}
	if v := os.Getenv("LMS_LOGIN_URL"); v != "" {
		cfg.LMSLoginURL = strings.TrimSpace(v)
	}
	if v := os.Getenv("SYNCD_PASSWORD_SALT"); v != "" {
		cfg.PasswordSalt = v
	}
}

func validateConfig(cfg FileConfig) error {
	if cfg.Port == "" {
		return errors.New("config: port is required (set in config.yaml)")
	}
	if strings.TrimSpace(cfg.LMSBaseURL) == "" {
		return errors.New("config: lmsBaseURL is required (set in config.yaml or LMS_BASE_URL)")
	}
	if strings.TrimSpace(cfg.LMSToken) == "" {
		return errors.New("config: lmsToken is required (set in config.yaml or LMS_TOKEN)")
	}
	if cfg.DatabaseURL == "" {
		return errors.New("config: databaseURL is required (set in config.yaml or DATABASE_URL)")
	}
	switch cfg.ImageStorage {
	case "", "filesystem":
		if strings.TrimSpace(cfg.ImageDir) == "" {
			return errors.New("config: imageDir is required for filesystem image storage")
		}
	case "s3":
		if cfg.S3Endpoint == "" || cfg.S3Bucket == "" {
			return errors.New("config: s3Endpoint and s3Bucket are required for s3 image storage")
		}
	default:
		return fmt.Errorf("config: unknown imageStorage %q (want filesystem or s3)", cfg.ImageStorage)
	}
	if cfg.SSORateLimitPerMinute < 0 {
		return errors.New("config: ssoRateLimitPerMinute must be >= 0")
	}
	if cfg.SSOTokenSecret == "" {
		return errors.New("config: ssoTokenSecret is required (set in config.yaml or SSO_TOKEN_SECRET)")
	}
	if cfg.PasswordSalt == "" {
		return errors.New("config: passwordSalt is required (set in config.yaml or SYNCD_PASSWORD_SALT)")
	}
	return nil
}

// ParseDuration parses an optional duration string, returning def when empty.
func ParseDuration(value string, def time.Duration) (time.Duration, error) {
	if strings.TrimSpace(value) == "" {
		return def, nil
	}
	dur, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", value, err)
	}
	if dur <= 0 {
		return 0, fmt.Errorf("duration %q must be positive", value)
	}
	return dur, nil
}
