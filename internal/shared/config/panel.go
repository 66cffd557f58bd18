package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// PanelConfig contains configuration for the terminal control surface.
type PanelConfig struct {
	Store   StoreConfig   `mapstructure:"store"`
	Asset   AssetConfig   `mapstructure:"asset"`
	Jobs    JobsConfig    `mapstructure:"jobs"`
	Polling PollingConfig `mapstructure:"polling"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// AssetConfig points at the scene file submitted with each job.
type AssetConfig struct {
	Path   string `mapstructure:"path"`
	Format string `mapstructure:"format"`
}

// LoadPanel loads the panel configuration from the given path.
// If configPath is empty, it looks for panel.yaml in the config/ directory.
// Environment variables with HIVE_PANEL_ prefix override config file values.
func LoadPanel(configPath string) (*PanelConfig, error) {
	v := viper.New()

	v.SetDefault("store.backend", "s3")
	v.SetDefault("store.region", "us-east-1")
	v.SetDefault("store.input_bucket", "hive-render-input")
	v.SetDefault("store.output_bucket", "hive-render-output")
	v.SetDefault("asset.format", "png")
	v.SetDefault("jobs.store_backend", "memory")
	v.SetDefault("jobs.result_dir", "render_out")
	v.SetDefault("polling.interval", 5*time.Second)
	v.SetDefault("logging.level", "warn")
	v.SetDefault("logging.format", "text")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("panel")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("HIVE_PANEL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg PanelConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &cfg, nil
}
