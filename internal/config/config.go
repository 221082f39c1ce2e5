package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Matching contains configuration for speaker-to-file matching.
type Matching struct {
	// MinScore is the lowest score accepted as a match. Default: 40
	MinScore int `toml:"min_score"`
	// Parallelism bounds how many speakers are matched at once. Default: 4
	Parallelism int `toml:"parallelism"`
}

// Alignment contains configuration for transcript realignment.
type Alignment struct {
	// DriftTolerance is the largest allowed relative difference between the
	// original and cleaned word counts. Default: 0.10
	DriftTolerance float64 `toml:"drift_tolerance"`
	// MinRetention is the retention ratio below which a realignment is
	// flagged as low. Default: 0.90
	MinRetention float64 `toml:"min_retention"`
}

// Repair contains configuration for JSON repair.
type Repair struct {
	MaxAttempts int `toml:"max_attempts"`
}

// LLM contains the connection settings for the JSON rewriter.
type LLM struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	Referer        string `toml:"referer"`
	Title          string `toml:"title"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Enabled reports whether enough settings are present to build a client.
func (l LLM) Enabled() bool {
	return strings.TrimSpace(l.APIKey) != "" && strings.TrimSpace(l.Model) != ""
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
	// Dir, when set, receives a log file in addition to stderr.
	Dir string `toml:"dir"`
}

// Config encapsulates all configuration values for the reconciliation engine.
//
// Configuration sections by subsystem:
//   - Matching: speaker-to-file score threshold and fan-out
//   - Alignment: transcript drift tolerance and retention warning level
//   - Repair: JSON repair attempt bound
//   - LLM: OpenRouter settings for the JSON rewriter
//   - Logging: log format, level, and optional file output
type Config struct {
	Matching  Matching  `toml:"matching"`
	Alignment Alignment `toml:"alignment"`
	Repair    Repair    `toml:"repair"`
	LLM       LLM       `toml:"llm"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the absolute path of the per-user config file.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load reads the config file at path, or when path is empty the per-user
// file and then ./farcomms.toml, whichever exists first. A missing file is
// not an error: the defaults are used. It returns the config, the path it
// resolved and whether that file existed.
func Load(path string) (*Config, string, bool, error) {
	resolved, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}
	var content []byte
	if exists {
		if content, err = os.ReadFile(resolved); err != nil {
			return nil, "", false, fmt.Errorf("read config: %w", err)
		}
	}
	cfg, err := Parse(content)
	if err != nil {
		return nil, "", false, fmt.Errorf("%s: %w", resolved, err)
	}
	return cfg, resolved, exists, nil
}

// Parse decodes TOML content over the defaults, then normalizes and
// validates the result. Unknown keys are rejected.
func Parse(content []byte) (*Config, error) {
	cfg := Default()
	decoder := toml.NewDecoder(bytes.NewReader(content))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return nil, fmt.Errorf("parse config: %s", strings.TrimSpace(strict.String()))
		}
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	candidates := []string{path}
	if path == "" {
		candidates = []string{defaultConfigPath, projectConfigName}
	}
	var first string
	for _, candidate := range candidates {
		expanded, err := expandPath(candidate)
		if err != nil {
			return "", false, err
		}
		if first == "" {
			first = expanded
		}
		info, err := os.Stat(expanded)
		switch {
		case err == nil && !info.IsDir():
			return expanded, true, nil
		case err != nil && !errors.Is(err, fs.ErrNotExist):
			return "", false, fmt.Errorf("stat config: %w", err)
		}
	}
	return first, false, nil
}

// expandPath resolves a leading "~" and makes value absolute.
func expandPath(value string) (string, error) {
	if value == "" {
		return "", nil
	}
	if value == "~" || strings.HasPrefix(value, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		value = home + value[1:]
	}
	return filepath.Abs(value)
}

// CreateSample writes the annotated sample config to path, creating its
// directory.
func CreateSample(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
