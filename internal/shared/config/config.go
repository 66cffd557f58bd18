package config

// LoggingConfig contains logging-related configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// StoreConfig contains object store configuration shared by all components.
type StoreConfig struct {
	Backend      string `mapstructure:"backend"`
	Region       string `mapstructure:"region"`
	Endpoint     string `mapstructure:"endpoint"`
	InputBucket  string `mapstructure:"input_bucket"`
	OutputBucket string `mapstructure:"output_bucket"`
}
