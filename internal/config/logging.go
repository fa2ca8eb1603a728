package config

// LoggingConfig controls categorized debug logging.
type LoggingConfig struct {
	// Debug enables file logging under .inkwell/logs. When false no log
	// files are written at all.
	Debug bool `yaml:"debug"`

	// Level: debug, info, warn, error. Default info.
	Level string `yaml:"level"`

	// Categories toggles individual log categories. Absent categories
	// default to enabled.
	Categories map[string]bool `yaml:"categories"`
}

// DefaultLoggingConfig returns production defaults (logging off).
func DefaultLoggingConfig() LoggingConfig {
	return LoggingConfig{
		Debug: false,
		Level: "info",
	}
}
