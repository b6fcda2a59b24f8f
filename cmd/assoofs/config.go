package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/kelseyhightower/envconfig"
	"github.com/weberc2/assoofs/pkg/pgdevice"
	"gopkg.in/yaml.v2"
)

const (
	envVarPrefix = "ASSOOFS"
	appName      = "assoofs"
)

const (
	DeviceFile     = "file"
	DeviceMemory   = "memory"
	DeviceS3       = "s3"
	DevicePostgres = "postgres"
)

// Config is read from YAML and then from `ASSOOFS_`-prefixed environment
// variables. Fields without an environment variable or YAML value fall back to
// the values in `applyDefaults`.
type Config struct {
	Device        string `envconfig:"DEVICE"             yaml:"device"`
	Image         string `envconfig:"IMAGE"              yaml:"image"`
	Offset        int64  `envconfig:"OFFSET"             yaml:"offset"`
	CacheCapacity *int   `envconfig:"CACHE_CAPACITY"     yaml:"cacheCapacity"`
	Addr          string `envconfig:"ADDR"               yaml:"addr"`
	LogLevel      string `envconfig:"LOG_LEVEL"          yaml:"logLevel"`
	LogFormat     string `envconfig:"LOG_FORMAT"         yaml:"logFormat"`
	S3Bucket      string `envconfig:"S3_BUCKET"          yaml:"s3Bucket"`
	S3Region      string `envconfig:"S3_REGION"          yaml:"s3Region"`
	S3Prefix      string `envconfig:"S3_PREFIX"          yaml:"s3Prefix"`
	Gzip          bool   `envconfig:"GZIP"               yaml:"gzip"`
	PGTable       string `envconfig:"PG_TABLE"           yaml:"pgTable"`
}

const defaultCacheCapacity = 16

func (c *Config) applyDefaults() {
	if c.Device == "" {
		c.Device = DeviceFile
	}
	if c.CacheCapacity == nil {
		capacity := defaultCacheCapacity
		c.CacheCapacity = &capacity
	}
	if c.Addr == "" {
		c.Addr = "127.0.0.1:8080"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogFormat == "" {
		c.LogFormat = "text"
	}
	if c.S3Region == "" {
		c.S3Region = "us-east-1"
	}
	if c.PGTable == "" {
		c.PGTable = pgdevice.DefaultTable
	}
}

// LoadConfig reads the optional YAML config file and then applies
// environment variable overrides.
func LoadConfig() (*Config, error) {
	configFile := os.Getenv(envVarPrefix + "_CONFIG_FILE")
	if configFile == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("locating config file: %w", err)
		}
		configFile = filepath.Join(home, ".config", appName+".yaml")
	}

	var c Config
	data, err := os.ReadFile(configFile)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	} else if err := yaml.UnmarshalStrict(data, &c); err != nil {
		return nil, fmt.Errorf("unmarshaling config file: %w", err)
	}

	if err := envconfig.Process(envVarPrefix, &c); err != nil {
		return nil, fmt.Errorf("parsing environment variables: %w", err)
	}

	c.applyDefaults()
	return &c, nil
}

func (c *Config) Validate() error {
	if y, e := func() (string, string) {
		if c.Device == "" {
			return "device", "DEVICE"
		}
		if c.Device != DeviceMemory && c.Image == "" {
			return "image", "IMAGE"
		}
		if c.Device == DeviceS3 && c.S3Bucket == "" {
			return "s3Bucket", "S3_BUCKET"
		}
		if c.Device == DeviceS3 && c.S3Region == "" {
			return "s3Region", "S3_REGION"
		}
		if c.Addr == "" {
			return "addr", "ADDR"
		}
		return "", ""
	}(); y != "" {
		return fmt.Errorf(
			"missing required configuration: %s / %s_%s",
			y,
			envVarPrefix,
			e,
		)
	}

	switch c.Device {
	case DeviceFile, DeviceMemory, DeviceS3, DevicePostgres:
	default:
		return fmt.Errorf("unsupported device `%s`", c.Device)
	}
	if c.Offset < 0 {
		return fmt.Errorf("invalid offset `%d`", c.Offset)
	}
	if c.CacheCapacity != nil && *c.CacheCapacity < 0 {
		return fmt.Errorf("invalid cache capacity `%d`", *c.CacheCapacity)
	}
	return nil
}
