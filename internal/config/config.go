package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"

	StorageLocal = "local"
	StorageS3    = "s3"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Storage  StorageConfig  `yaml:"storage"`
	AWS      AWSConfig      `yaml:"aws"`
	JWT      JWTConfig      `yaml:"jwt"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
	// BaseURL is the public address used to build absolute file references.
	BaseURL     string   `yaml:"base_url"`
	CORSOrigins []string `yaml:"cors_origins"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Driver   string `yaml:"driver"`
	URL      string `yaml:"url"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

// StorageConfig holds uploaded file storage configuration
type StorageConfig struct {
	Driver       string `yaml:"driver"`
	UploadsDir   string `yaml:"uploads_dir"`
	MaxUploadMB  int64  `yaml:"max_upload_mb"`
	PublicS3Base string `yaml:"public_s3_base"`
}

// AWSConfig holds AWS configuration
type AWSConfig struct {
	Region    string `yaml:"region"`
	S3Bucket  string `yaml:"s3_bucket"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Endpoint  string `yaml:"endpoint"`
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret string `yaml:"secret"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string `yaml:"level"`
}

// Load reads configuration from an optional YAML file, overlays environment
// variables (a .env file is loaded first when present) and validates the result.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	_ = godotenv.Load()
	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	setString(&c.JWT.Secret, "JWT_SECRET")
	setString(&c.Server.BaseURL, "BASE_URL")
	setString(&c.Server.Host, "HOST")
	setInt(&c.Server.Port, "PORT")
	if v := strings.TrimSpace(os.Getenv("CORS_ORIGINS")); v != "" {
		c.Server.CORSOrigins = nil
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimRight(strings.TrimSpace(o), "/"); o != "" {
				c.Server.CORSOrigins = append(c.Server.CORSOrigins, o)
			}
		}
	}

	setString(&c.Database.Driver, "DB_DRIVER")
	setString(&c.Database.URL, "DATABASE_URL")

	setString(&c.Storage.Driver, "STORAGE_DRIVER")
	setString(&c.Storage.UploadsDir, "UPLOADS_DIR")

	setString(&c.AWS.Region, "AWS_REGION")
	setString(&c.AWS.S3Bucket, "AWS_S3_BUCKET")
	setString(&c.AWS.AccessKey, "AWS_ACCESS_KEY_ID")
	setString(&c.AWS.SecretKey, "AWS_SECRET_ACCESS_KEY")
	setString(&c.AWS.Endpoint, "AWS_ENDPOINT")

	setString(&c.Log.Level, "LOG_LEVEL")
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 3000
	}
	if c.Server.BaseURL == "" {
		c.Server.BaseURL = fmt.Sprintf("http://localhost:%d", c.Server.Port)
	}
	c.Server.BaseURL = strings.TrimRight(c.Server.BaseURL, "/")
	if len(c.Server.CORSOrigins) == 0 {
		c.Server.CORSOrigins = []string{"*"}
	}
	if c.Database.Driver == "" {
		c.Database.Driver = DriverPostgres
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = StorageLocal
	}
	if c.Storage.UploadsDir == "" {
		c.Storage.UploadsDir = "uploads"
	}
	if c.Storage.MaxUploadMB <= 0 {
		c.Storage.MaxUploadMB = 10
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate reports configuration the server cannot start with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.JWT.Secret) == "" {
		return errors.New("jwt secret is required (set JWT_SECRET)")
	}

	u, err := url.Parse(c.Server.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid base url %q", c.Server.BaseURL)
	}

	switch c.Database.Driver {
	case DriverPostgres, DriverMemory:
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}

	switch c.Storage.Driver {
	case StorageLocal:
	case StorageS3:
		if c.AWS.S3Bucket == "" {
			return errors.New("aws s3_bucket is required for s3 storage")
		}
	default:
		return fmt.Errorf("unsupported storage driver %q", c.Storage.Driver)
	}

	return nil
}

// DSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// MaxUploadBytes returns the upload size limit in bytes
func (c *StorageConfig) MaxUploadBytes() int64 {
	return c.MaxUploadMB << 20
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			*dst = n
		}
	}
}
