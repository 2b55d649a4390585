package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// PlaceholderGeminiKey is the sample value shipped in .env templates; it is
// treated the same as a missing key.
const PlaceholderGeminiKey = "your-gemini-api-key-here"

type Config struct {
	AppEnv       string `yaml:"app_env"`
	IsProduction bool   `yaml:"-"`
	Port         string `yaml:"port"`

	DBDriver    string `yaml:"db_driver"`
	DatabaseURL string `yaml:"database_url"`

	JWTSecret      string `yaml:"jwt_secret"`
	JWTExpiryHours int    `yaml:"jwt_expiry_hours"`
	OpenRoleSignup bool   `yaml:"open_role_signup"`

	GeminiAPIKey             string `yaml:"gemini_api_key"`
	GeminiModel              string `yaml:"gemini_model"`
	IsGeminiEnabled          bool   `yaml:"gemini_enabled"`
	CompletionTimeoutSeconds int    `yaml:"completion_timeout_seconds"`

	RedisURL string `yaml:"redis_url"`

	UploadDir     string `yaml:"upload_dir"`
	UploadBaseURL string `yaml:"upload_base_url"`
	MaxUploadMB   int    `yaml:"max_upload_mb"`
	S3            S3     `yaml:"s3"`

	RateLimitWindowSeconds int `yaml:"rate_limit_window_seconds"`
	RateLimitCapacity      int `yaml:"rate_limit_capacity"`

	CORSOrigins []string `yaml:"cors_origins"`
	CronEnabled bool     `yaml:"cron_enabled"`
}

type S3 struct {
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	PublicURL string `yaml:"public_url"`
}

// Enabled reports whether uploads go to an S3-compatible bucket.
func (s S3) Enabled() bool {
	return s.Bucket != "" && s.AccessKey != "" && s.SecretKey != ""
}

func (c *Config) JWTExpiry() time.Duration {
	return time.Duration(c.JWTExpiryHours) * time.Hour
}

func (c *Config) CompletionTimeout() time.Duration {
	return time.Duration(c.CompletionTimeoutSeconds) * time.Second
}

func (c *Config) RateLimitWindow() time.Duration {
	return time.Duration(c.RateLimitWindowSeconds) * time.Second
}

func (c *Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}

// GeminiUsable is false when the completion provider must run in mock mode.
func (c *Config) GeminiUsable() bool {
	key := strings.TrimSpace(c.GeminiAPIKey)
	return c.IsGeminiEnabled && key != "" && key != PlaceholderGeminiKey
}

func Defaults() *Config {
	return &Config{
		AppEnv:                   "development",
		Port:                     "5000",
		DBDriver:                 "sqlite",
		DatabaseURL:              "heirloom.db",
		JWTExpiryHours:           24,
		GeminiModel:              "gemini-2.0-flash",
		IsGeminiEnabled:          true,
		CompletionTimeoutSeconds: 30,
		UploadDir:                "./uploads/documents",
		UploadBaseURL:            "http://127.0.0.1:5000/uploads/documents",
		MaxUploadMB:              10,
		RateLimitWindowSeconds:   10,
		RateLimitCapacity:        5,
		CORSOrigins:              []string{"http://localhost:3000", "http://127.0.0.1:3000", "http://localhost:5173", "http://127.0.0.1:5173"},
		CronEnabled:              true,
	}
}

// Load builds the configuration from defaults, an optional YAML file named by
// CONFIG_FILE, and finally the process environment. The .env file is only
// read outside production.
func Load() (*Config, error) {
	if os.Getenv("APP_ENV") != "production" {
		if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load .env: %w", err)
		}
	}

	cfg := Defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.AppEnv = stringOr(os.Getenv("APP_ENV"), c.AppEnv)
	c.Port = stringOr(os.Getenv("PORT"), c.Port)

	c.DBDriver = strings.ToLower(stringOr(os.Getenv("DB_DRIVER"), c.DBDriver))
	c.DatabaseURL = stringOr(os.Getenv("DATABASE_URL"), c.DatabaseURL)

	c.JWTSecret = stringOr(os.Getenv("JWT_SECRET_KEY"), c.JWTSecret)
	c.JWTExpiryHours = atoiOr(os.Getenv("JWT_EXPIRY_HOURS"), c.JWTExpiryHours)
	c.OpenRoleSignup = boolOr(os.Getenv("OPEN_ROLE_SIGNUP"), c.OpenRoleSignup)

	c.GeminiAPIKey = stringOr(os.Getenv("GEMINI_API_KEY"), c.GeminiAPIKey)
	c.GeminiModel = stringOr(os.Getenv("GEMINI_MODEL"), c.GeminiModel)
	c.IsGeminiEnabled = boolOr(os.Getenv("IS_GEMINI_ENABLED"), c.IsGeminiEnabled)
	c.CompletionTimeoutSeconds = atoiOr(os.Getenv("COMPLETION_TIMEOUT_SECONDS"), c.CompletionTimeoutSeconds)

	c.RedisURL = stringOr(os.Getenv("REDIS_URL"), c.RedisURL)

	c.UploadDir = stringOr(os.Getenv("UPLOAD_DIR"), c.UploadDir)
	c.UploadBaseURL = stringOr(os.Getenv("UPLOAD_BASE_URL"), c.UploadBaseURL)
	c.MaxUploadMB = atoiOr(os.Getenv("MAX_UPLOAD_MB"), c.MaxUploadMB)
	c.S3.Bucket = stringOr(os.Getenv("S3_BUCKET"), c.S3.Bucket)
	c.S3.Region = stringOr(os.Getenv("S3_REGION"), c.S3.Region)
	c.S3.Endpoint = stringOr(os.Getenv("S3_ENDPOINT"), c.S3.Endpoint)
	c.S3.AccessKey = stringOr(os.Getenv("S3_ACCESS_KEY"), c.S3.AccessKey)
	c.S3.SecretKey = stringOr(os.Getenv("S3_SECRET_KEY"), c.S3.SecretKey)
	c.S3.PublicURL = stringOr(os.Getenv("S3_PUBLIC_URL"), c.S3.PublicURL)

	c.RateLimitWindowSeconds = atoiOr(os.Getenv("RATE_LIMIT_WINDOW_SECONDS"), c.RateLimitWindowSeconds)
	c.RateLimitCapacity = atoiOr(os.Getenv("RATE_LIMIT_CAPACITY"), c.RateLimitCapacity)

	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		c.CORSOrigins = splitList(origins)
	}
	c.CronEnabled = boolOr(os.Getenv("CRON_ENABLED"), c.CronEnabled)

	c.IsProduction = c.AppEnv == "production"
}

func (c *Config) validate() error {
	if !slices.Contains([]string{"development", "staging", "production", "test"}, c.AppEnv) {
		return fmt.Errorf("APP_ENV must be one of development, staging, production, test (got %q)", c.AppEnv)
	}
	if !slices.Contains([]string{"sqlite", "postgres", "mysql"}, c.DBDriver) {
		return fmt.Errorf("DB_DRIVER must be sqlite, postgres or mysql (got %q)", c.DBDriver)
	}
	if c.IsProduction && c.JWTSecret == "" {
		return errors.New("JWT_SECRET_KEY must be set in production")
	}
	if c.JWTSecret == "" {
		c.JWTSecret = "heirloom-dev-secret"
	}
	if c.JWTExpiryHours <= 0 {
		c.JWTExpiryHours = 24
	}
	if c.CompletionTimeoutSeconds <= 0 {
		c.CompletionTimeoutSeconds = 30
	}
	return nil
}

func stringOr(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return strings.TrimSpace(s)
}

func atoiOr(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return def
}

// boolOr accepts "1"/"0" as the IS_GEMINI_ENABLED flag always did, plus the
// usual strconv spellings.
func boolOr(s string, def bool) bool {
	if s == "" {
		return def
	}
	if v, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
		return v
	}
	return def
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
