package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateMatching(); err != nil {
		return err
	}
	if err := c.validateAlignment(); err != nil {
		return err
	}
	if err := c.validateRepair(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateMatching() error {
	if c.Matching.MinScore < 0 || c.Matching.MinScore > 100 {
		return fmt.Errorf("matching.min_score must be between 0 and 100, got %d", c.Matching.MinScore)
	}
	if c.Matching.Parallelism < 1 {
		return errors.New("matching.parallelism must be at least 1")
	}
	return nil
}

func (c *Config) validateAlignment() error {
	if c.Alignment.DriftTolerance < 0 || c.Alignment.DriftTolerance > 1 {
		return errors.New("alignment.drift_tolerance must be between 0 and 1")
	}
	if c.Alignment.MinRetention < 0 || c.Alignment.MinRetention > 1 {
		return errors.New("alignment.min_retention must be between 0 and 1")
	}
	return nil
}

func (c *Config) validateRepair() error {
	if c.Repair.MaxAttempts < 1 {
		return errors.New("repair.max_attempts must be at least 1")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}
