package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

const defaultConfigFile = "config.yaml"

// Config is the resolved service configuration.
type Config struct {
	Addr          string
	SQLitePath    string
	MigrationsDir string
	LogLevel      string
	LogFormat     string
	CallTimeout   time.Duration

	// HouseholdIdleTTL bounds how long an unseen household keeps its
	// in-memory workflow, relay and cache entry.
	HouseholdIdleTTL time.Duration

	FDCBaseURL string
	FDCAPIKey  string

	InventoryAPIURL string
	UploadAPIURL    string
	UploadMaxBytes  int64

	GeminiAPIKey string
	GeminiModel  string

	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	LookupCacheTTL time.Duration

	S3Bucket    string
	S3Region    string
	S3AccessKey string
	S3SecretKey string
	S3Prefix    string
}

// Load reads .env (when present), then the YAML file named by CONFIG_FILE
// (default config.yaml, optional), then environment variables. Later sources win.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	path := os.Getenv("CONFIG_FILE")
	explicit := path != ""
	if !explicit {
		path = defaultConfigFile
	}
	fileValues, err := readYAML(path, explicit)
	if err != nil {
		return nil, err
	}
	return resolve(func(key string) string {
		if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
		return strings.TrimSpace(fileValues[key])
	})
}

func readYAML(path string, required bool) (map[string]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !required {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}
	values := map[string]string{}
	if err := yaml.Unmarshal(raw, &values); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return values, nil
}

func resolve(get func(string) string) (*Config, error) {
	or := func(key, fallback string) string {
		if v := get(key); v != "" {
			return v
		}
		return fallback
	}

	var errs []error
	duration := func(key string, fallback time.Duration) time.Duration {
		v := get(key)
		if v == "" {
			return fallback
		}
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			errs = append(errs, fmt.Errorf("%s: invalid duration %q", key, v))
			return fallback
		}
		return d
	}
	integer := func(key string, fallback int64) int64 {
		v := get(key)
		if v == "" {
			return fallback
		}
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 0 {
			errs = append(errs, fmt.Errorf("%s: invalid integer %q", key, v))
			return fallback
		}
		return n
	}

	cfg := &Config{
		Addr:             or("APP_ADDR", ":8080"),
		SQLitePath:       or("SQLITE_PATH", "fridge.db"),
		MigrationsDir:    get("MIGRATIONS_DIR"),
		LogLevel:         strings.ToLower(or("LOG_LEVEL", "info")),
		LogFormat:        strings.ToLower(or("LOG_FORMAT", "text")),
		CallTimeout:      duration("CALL_TIMEOUT", 10*time.Second),
		HouseholdIdleTTL: duration("HOUSEHOLD_IDLE_TTL", 30*time.Minute),
		FDCBaseURL:       or("FDC_BASE_URL", "https://api.nal.usda.gov"),
		FDCAPIKey:        get("FDC_API_KEY"),
		InventoryAPIURL:  get("INVENTORY_API_URL"),
		UploadAPIURL:     get("UPLOAD_API_URL"),
		UploadMaxBytes:   integer("UPLOAD_MAX_BYTES", 50<<20),
		GeminiAPIKey:     get("GEMINI_API_KEY"),
		GeminiModel:      or("GEMINI_MODEL", "gemini-1.5-flash"),
		RedisAddr:        get("REDIS_ADDR"),
		RedisPassword:    get("REDIS_PASSWORD"),
		RedisDB:          int(integer("REDIS_DB", 0)),
		LookupCacheTTL:   duration("LOOKUP_CACHE_TTL", 24*time.Hour),
		S3Bucket:         get("S3_BUCKET"),
		S3Region:         or("S3_REGION", "us-east-1"),
		S3AccessKey:      get("S3_ACCESS_KEY"),
		S3SecretKey:      get("S3_SECRET_KEY"),
		S3Prefix:         or("S3_PREFIX", "uploads"),
	}
	errs = append(errs, cfg.validate()...)
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return cfg, nil
}

func (c *Config) validate() []error {
	var errs []error
	switch c.LogLevel {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("LOG_LEVEL: unknown level %q", c.LogLevel))
	}
	switch c.LogFormat {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("LOG_FORMAT: must be json or text, got %q", c.LogFormat))
	}
	if c.UploadMaxBytes == 0 {
		errs = append(errs, errors.New("UPLOAD_MAX_BYTES: must be greater than 0"))
	}
	if (c.S3AccessKey == "") != (c.S3SecretKey == "") {
		errs = append(errs, errors.New("S3_ACCESS_KEY and S3_SECRET_KEY must be set together"))
	}
	return errs
}

// UseRemoteInventory reports whether items are created through the remote API
// instead of the local store.
func (c *Config) UseRemoteInventory() bool {
	return c.InventoryAPIURL != ""
}
