package config

const (
	defaultConfigPath        = "~/.config/farcomms/config.toml"
	projectConfigName        = "farcomms.toml"
	defaultMinScore          = 40
	defaultParallelism       = 4
	defaultDriftTolerance    = 0.10
	defaultMinRetention      = 0.90
	defaultRepairAttempts    = 3
	defaultLLMBaseURL        = "https://openrouter.ai/api/v1/chat/completions"
	defaultLLMModel          = "anthropic/claude-3.5-haiku"
	defaultLLMTitle          = "farcomms JSON repair"
	defaultLLMTimeoutSeconds = 60
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Matching: Matching{
			MinScore:    defaultMinScore,
			Parallelism: defaultParallelism,
		},
		Alignment: Alignment{
			DriftTolerance: defaultDriftTolerance,
			MinRetention:   defaultMinRetention,
		},
		Repair: Repair{
			MaxAttempts: defaultRepairAttempts,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			Title:          defaultLLMTitle,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
