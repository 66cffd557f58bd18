package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// WorkerConfig contains all configuration for the render worker.
type WorkerConfig struct {
	Worker  WorkerRuntimeConfig `mapstructure:"worker"`
	Store   StoreConfig         `mapstructure:"store"`
	Render  RenderConfig        `mapstructure:"render"`
	Logging LoggingConfig       `mapstructure:"logging"`
}

// WorkerRuntimeConfig contains worker identity and upload behavior.
type WorkerRuntimeConfig struct {
	Index          int           `mapstructure:"index"`
	WorkDir        string        `mapstructure:"work_dir"`
	UploadAttempts uint          `mapstructure:"upload_attempts"`
	UploadBackoff  time.Duration `mapstructure:"upload_backoff"`
}

// RenderConfig describes how the external render engine is launched.
type RenderConfig struct {
	Command string        `mapstructure:"command"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// LoadWorker loads the worker configuration from the given path.
// If configPath is empty, it looks for worker.yaml in the config/ directory.
// Environment variables with HIVE_WORKER_ prefix override config file values.
func LoadWorker(configPath string) (*WorkerConfig, error) {
	v := viper.New()

	v.SetDefault("worker.index", 0)
	v.SetDefault("worker.work_dir", "/tmp/hive-render")
	v.SetDefault("worker.upload_attempts", 3)
	v.SetDefault("worker.upload_backoff", 2*time.Second)
	v.SetDefault("store.backend", "s3")
	v.SetDefault("store.region", "us-east-1")
	v.SetDefault("store.input_bucket", "hive-render-input")
	v.SetDefault("store.output_bucket", "hive-render-output")
	v.SetDefault("render.command", "blender")
	v.SetDefault("render.timeout", 2*time.Hour)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("worker")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("HIVE_WORKER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg WorkerConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &cfg, nil
}
