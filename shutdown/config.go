package shutdown

import "time"

// Config bounds the shutdown sequence.
type Config struct {
	// Timeout is the global limit; hooks still running when it fires
	// are abandoned.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Timeout: 30 * time.Second,
	}
}
