package interpretmessage

import (
	"fmt"
	"time"
)

type Config struct {
	Enabled       bool          `mapstructure:"enabled"`
	MaxJobsActive int           `mapstructure:"max_jobs_active"`
	Timeout       time.Duration `mapstructure:"timeout"`
	// MaxMessageLength caps the message before it reaches the interpreter.
	MaxMessageLength int `mapstructure:"max_message_length"`
}

func DefaultConfig() *Config {
	return &Config{
		Enabled:          true,
		MaxJobsActive:    10,
		Timeout:          15 * time.Second,
		MaxMessageLength: 2000,
	}
}

func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.MaxJobsActive <= 0 {
		return fmt.Errorf("max_jobs_active must be positive")
	}
	if c.MaxMessageLength <= 0 {
		return fmt.Errorf("max_message_length must be positive")
	}
	return nil
}
