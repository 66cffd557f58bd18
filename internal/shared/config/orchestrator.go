package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// OrchestratorConfig contains all configuration for the orchestrator service.
type OrchestratorConfig struct {
	REST    RESTConfig    `mapstructure:"rest"`
	Store   StoreConfig   `mapstructure:"store"`
	Jobs    JobsConfig    `mapstructure:"jobs"`
	Polling PollingConfig `mapstructure:"polling"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// RESTConfig contains REST API server configuration.
type RESTConfig struct {
	Addr         string        `mapstructure:"addr"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// JobsConfig contains job store and result collection configuration.
type JobsConfig struct {
	StoreBackend string `mapstructure:"store_backend"`
	SQLitePath   string `mapstructure:"sqlite_path"`
	ResultDir    string `mapstructure:"result_dir"`
}

// PollingConfig contains completion polling configuration.
type PollingConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

// LoadOrchestrator loads the orchestrator configuration from the given path.
// If configPath is empty, it looks for orchestrator.yaml in the config/ directory.
// Environment variables with HIVE_ORCHESTRATOR_ prefix override config file values.
func LoadOrchestrator(configPath string) (*OrchestratorConfig, error) {
	v := viper.New()

	v.SetDefault("rest.addr", ":8080")
	v.SetDefault("rest.read_timeout", 15*time.Second)
	v.SetDefault("rest.write_timeout", 15*time.Second)
	v.SetDefault("rest.idle_timeout", 60*time.Second)
	v.SetDefault("store.backend", "s3")
	v.SetDefault("store.region", "us-east-1")
	v.SetDefault("store.input_bucket", "hive-render-input")
	v.SetDefault("store.output_bucket", "hive-render-output")
	v.SetDefault("jobs.store_backend", "sqlite")
	v.SetDefault("jobs.sqlite_path", "data/jobs.db")
	v.SetDefault("jobs.result_dir", "render_out")
	v.SetDefault("polling.interval", 5*time.Second)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("orchestrator")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("HIVE_ORCHESTRATOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg OrchestratorConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &cfg, nil
}
