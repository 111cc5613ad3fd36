package config

// Config is the main application configuration struct.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Engine   EngineConfig   `mapstructure:"engine"`
	Protocol ProtocolConfig `mapstructure:"protocol"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Tracing  TracingConfig  `mapstructure:"tracing"`
}

// --- Core App Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

// EngineConfig describes how the transform and render engines are launched.
//
// Command templates may reference {stylesheet}, {source}, {input} and
// {output}; see internal/engine for the substitution rules.
type EngineConfig struct {
	TransformCommand    []string `mapstructure:"transform_command"`
	RenderCommand       []string `mapstructure:"render_command"`
	FopHome             string   `mapstructure:"fop_home"`
	MimeType            string   `mapstructure:"mime_type"`
	Timeout             int      `mapstructure:"timeout"` // milliseconds, 0 disables
	AllowExternalAccess bool     `mapstructure:"allow_external_access"`
	TempDir             string   `mapstructure:"temp_dir"`
}

type ProtocolConfig struct {
	ResponsePrefix string `mapstructure:"response_prefix"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// MetricsConfig controls the optional health/metrics side server.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Address string `mapstructure:"address"`
}

type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
}
