// Package config loads dbinspect settings from a YAML file, DBINSPECT_*
// environment variables and command-line flags, in increasing priority.
package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/koustreak/dbinspect/internal/errs"
	"github.com/koustreak/dbinspect/internal/filestore"
	"github.com/koustreak/dbinspect/internal/logger"
	"github.com/spf13/viper"
)

// FileName is the config file looked up when no --config flag is given.
const FileName = "dbinspect"

// EnvPrefix prefixes every environment variable, e.g. DBINSPECT_DATABASE_URI.
const EnvPrefix = "DBINSPECT"

type Config struct {
	Database  DatabaseConfig  `mapstructure:"database"`
	Log       LogConfig       `mapstructure:"log"`
	Server    ServerConfig    `mapstructure:"server"`
	Filestore FilestoreConfig `mapstructure:"filestore"`
}

type DatabaseConfig struct {
	URI             string        `mapstructure:"uri"`
	Schema          string        `mapstructure:"schema"`
	Concurrency     int           `mapstructure:"concurrency"`
	ExcludePrefixes []string      `mapstructure:"exclude_prefixes"`
	MaxConns        int32         `mapstructure:"max_conns"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
	Timeout         time.Duration `mapstructure:"timeout"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type ServerConfig struct {
	Addr         string        `mapstructure:"addr"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type FilestoreConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Region    string `mapstructure:"region"`
}

// New returns a viper instance with defaults and environment binding set
// up. Flags are bound by the caller with BindPFlag.
func New() *viper.Viper {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.uri", "")
	v.SetDefault("database.schema", "")
	v.SetDefault("database.concurrency", 1)
	v.SetDefault("database.exclude_prefixes", []string{})
	v.SetDefault("database.max_conns", 4)
	v.SetDefault("database.connect_timeout", 10*time.Second)
	v.SetDefault("database.timeout", time.Duration(0))

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 2*time.Minute)

	v.SetDefault("filestore.endpoint", "")
	v.SetDefault("filestore.access_key", "")
	v.SetDefault("filestore.secret_key", "")
	v.SetDefault("filestore.bucket", "")
	v.SetDefault("filestore.use_ssl", false)
	v.SetDefault("filestore.region", "")
}

// ReadFile reads path, or when path is empty searches the executable's
// directory and then the working directory for dbinspect.yaml. A missing
// search result is not an error. It returns the file actually used.
func ReadFile(v *viper.Viper, path string) (string, error) {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		if ex, err := os.Executable(); err == nil {
			v.AddConfigPath(filepath.Dir(ex))
		}
		v.AddConfigPath(".")
		v.SetConfigName(FileName)
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path == "" && errors.As(err, &notFound) {
			return "", nil
		}
		return "", errs.Wrap(errs.ErrKindInvalidInput, "read config file", err)
	}
	return v.ConfigFileUsed(), nil
}

// Load decodes the merged settings of v.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "decode config", err)
	}
	return &cfg, nil
}

// Validate checks the settings every inspection needs.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Database.URI) == "":
		return errs.New(errs.ErrKindInvalidInput, "database.uri is required")
	case strings.TrimSpace(c.Database.Schema) == "":
		return errs.New(errs.ErrKindInvalidInput, "database.schema is required")
	case c.Database.Concurrency < 0:
		return errs.Newf(errs.ErrKindInvalidInput, "database.concurrency must not be negative, got %d", c.Database.Concurrency)
	}
	return nil
}

// LoggerConfig converts the log section for logger.New.
func (c *Config) LoggerConfig() *logger.Config {
	lc := logger.DefaultConfig()
	if c.Log.Level != "" {
		lc.Level = c.Log.Level
	}
	if c.Log.Format != "" {
		lc.Format = c.Log.Format
	}
	return lc
}

// StoreConfig converts the filestore section for the MinIO driver.
func (c *Config) StoreConfig() *filestore.Config {
	fc := filestore.DefaultConfig(c.Filestore.Endpoint, c.Filestore.AccessKey, c.Filestore.SecretKey, c.Filestore.Bucket)
	fc.UseSSL = c.Filestore.UseSSL
	fc.Region = c.Filestore.Region
	return fc
}
