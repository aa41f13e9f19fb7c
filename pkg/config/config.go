package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const devJWTSecret = "dev-insecure-secret-change"

// Config holds every tunable of the pipeline, the server and the tools.
type Config struct {
	InputDir   string `yaml:"input_dir"`
	OutputDir  string `yaml:"output_dir"`
	ArchiveDir string `yaml:"archive_dir"`

	Backend          string        `yaml:"backend"`
	BackendURL       string        `yaml:"backend_url"`
	BackendCommand   string        `yaml:"backend_command"`
	BackendModel     string        `yaml:"backend_model"`
	BackendProjector string        `yaml:"backend_projector"`
	BackendTimeout   time.Duration `yaml:"backend_timeout"`

	Workers      int  `yaml:"workers"` // 0 means NumCPU
	MaxImageSide int  `yaml:"max_image_side"`
	EnableOCR    bool `yaml:"enable_ocr"`

	DBDriver      string `yaml:"db_driver"`
	DBDSN         string `yaml:"db_dsn"`
	DBAutoMigrate bool   `yaml:"db_auto_migrate"`

	JWTSecret  string `yaml:"jwt_secret"`
	Port       int    `yaml:"port"`
	UploadBase string `yaml:"upload_base"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		InputDir:       "data",
		OutputDir:      "outputs",
		Backend:        "http",
		BackendURL:     "http://localhost:5000/caption",
		BackendCommand: "./llava.cpp",
		BackendModel:   "Salesforce/blip-image-captioning-base",
		BackendTimeout: 60 * time.Second,
		MaxImageSide:   1024,
		DBDriver:       "postgres",
		DBAutoMigrate:  true,
		JWTSecret:      devJWTSecret,
		Port:           8081,
		UploadBase:     "uploads",
	}
}

// Load reads ./.env (existing variables win), then the YAML file named by IMGCAP_CONFIG
// (default imgcap.yaml, optional), then environment overrides.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return LoadFile(getEnv("IMGCAP_CONFIG", "imgcap.yaml"))
}

// LoadFile applies path (if it exists) and the environment on top of Default.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}
	cfg.applyEnv()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.InputDir = getEnv("IMGCAP_INPUT_DIR", c.InputDir)
	c.OutputDir = getEnv("IMGCAP_OUTPUT_DIR", c.OutputDir)
	c.ArchiveDir = getEnv("ARCHIVE_DIR", c.ArchiveDir)
	c.Backend = strings.ToLower(getEnv("CAPTION_BACKEND", c.Backend))
	c.BackendURL = getEnv("CAPTION_BACKEND_URL", c.BackendURL)
	c.BackendCommand = getEnv("CAPTION_BACKEND_COMMAND", c.BackendCommand)
	c.BackendModel = getEnv("CAPTION_MODEL", c.BackendModel)
	c.BackendProjector = getEnv("CAPTION_PROJECTOR", c.BackendProjector)
	c.BackendTimeout = getEnvAsDuration("CAPTION_TIMEOUT", c.BackendTimeout)
	c.Workers = getEnvAsInt("WORKERS", c.Workers)
	c.MaxImageSide = getEnvAsInt("MAX_IMAGE_SIDE", c.MaxImageSide)
	c.EnableOCR = getEnvAsBool("ENABLE_OCR", c.EnableOCR)
	c.DBDriver = strings.ToLower(getEnv("DB_DRIVER", c.DBDriver))
	c.DBDSN = getEnv("DB_DSN", c.DBDSN)
	c.DBAutoMigrate = getEnvAsBool("DB_AUTO_MIGRATE", c.DBAutoMigrate)
	c.JWTSecret = getEnv("JWT_SECRET", c.JWTSecret)
	c.Port = getEnvAsInt("PORT", c.Port)
	c.UploadBase = getEnv("UPLOAD_BASE", c.UploadBase)
}

func (c *Config) validate() error {
	switch c.Backend {
	case "http", "exec", "ocr":
	default:
		return fmt.Errorf("invalid backend %q (want http, exec or ocr)", c.Backend)
	}
	switch c.DBDriver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("invalid db driver %q (want postgres or sqlite)", c.DBDriver)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative")
	}
	return nil
}

// UsingDevSecret reports whether the JWT secret is still the development fallback.
func (c *Config) UsingDevSecret() bool {
	return c.JWTSecret == devJWTSecret
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsBool accepts the usual spellings; "0", "no" and "false" disable.
func getEnvAsBool(key string, defaultValue bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "":
		return defaultValue
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		if secs, err := strconv.Atoi(value); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultValue
}
