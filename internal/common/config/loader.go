// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	DefaultResponsePrefix = "RESPONSE:"
	DefaultMimeType       = "application/pdf"
)

// flagKeys maps command-line flags to their viper keys.
var flagKeys = map[string]string{
	"log-level":       "logging.level",
	"log-format":      "logging.format",
	"log-output":      "logging.output",
	"metrics-address": "metrics.address",
	"fop-home":        "engine.fop_home",
}

// RegisterFlags declares the worker's command-line flags on fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "path to a YAML config file")
	fs.String("log-level", "", "log level (debug, info, warn, error)")
	fs.String("log-format", "", "log format (json, console)")
	fs.String("log-output", "", "log destination (stderr or a file path)")
	fs.String("metrics-address", "", "listen address for /metrics, /health and /ready")
	fs.String("fop-home", "", "directory of a custom FOP installation")
}

// Load reads configuration from .env, config files and the environment.
func Load() (*Config, error) {
	return load(viper.New(), "")
}

// LoadWithFlags is Load plus overrides from parsed command-line flags.
func LoadWithFlags(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	for name, key := range flagKeys {
		if f := fs.Lookup(name); f != nil && f.Changed {
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("bind flag %s: %w", name, err)
			}
		}
	}
	if f := fs.Lookup("metrics-address"); f != nil && f.Changed {
		v.Set("metrics.enabled", true)
	}

	path := ""
	if f := fs.Lookup("config"); f != nil {
		path = f.Value.String()
	}
	return load(v, path)
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(path string) (*Config, error) {
	return load(viper.New(), path)
}

func load(v *viper.Viper, path string) (*Config, error) {
	loadEnvFile()
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")

		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("error reading base config: %w", err)
			}
		}

		env := os.Getenv("APP_ENVIRONMENT")
		if env == "" {
			env = "development"
		}
		v.SetConfigName(fmt.Sprintf("config.%s", env))
		_ = v.MergeInConfig() // ignore error if not found
	}

	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// loadEnvFile loads the first .env found walking up from the working
// directory. A missing file is not an error.
func loadEnvFile() {
	possiblePaths := []string{".env", "../.env", "../../.env"}
	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// Find project root by looking for go.mod
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

// setDefaults registers every key so AutomaticEnv can override it.
func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "render-worker")
	v.SetDefault("app.version", "dev")
	v.SetDefault("app.environment", "development")

	v.SetDefault("engine.transform_command", []string{"xsltproc", "{stylesheet}", "{source}"})
	v.SetDefault("engine.render_command", []string{"fop", "-q", "-fo", "{input}", "-pdf", "{output}"})
	v.SetDefault("engine.fop_home", "")
	v.SetDefault("engine.mime_type", DefaultMimeType)
	v.SetDefault("engine.timeout", 0)
	v.SetDefault("engine.allow_external_access", true)
	v.SetDefault("engine.temp_dir", "")

	v.SetDefault("protocol.response_prefix", DefaultResponsePrefix)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stderr")

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.address", "")

	v.SetDefault("tracing.enabled", true)
	v.SetDefault("tracing.sample_ratio", 1.0)
}

// expandEnvVars replaces ${VAR} placeholders in string values.
func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			expanded := os.ExpandEnv(strVal)
			if expanded != strVal && expanded != "" {
				v.Set(key, expanded)
			}
		}
	}
}

// applyDefaults fills values that may have been blanked by a config file.
func applyDefaults(cfg *Config) {
	if cfg.Engine.MimeType == "" {
		cfg.Engine.MimeType = DefaultMimeType
	}
	if cfg.Protocol.ResponsePrefix == "" {
		cfg.Protocol.ResponsePrefix = DefaultResponsePrefix
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" || cfg.Logging.Output == "stdout" {
		cfg.Logging.Output = "stderr"
	}
	if cfg.Metrics.Enabled && cfg.Metrics.Address == "" {
		cfg.Metrics.Address = ":9464"
	}
}

// validateConfig validates critical configuration fields
func validateConfig(cfg *Config) error {
	if len(cfg.Engine.TransformCommand) == 0 {
		return fmt.Errorf("engine.transform_command is required")
	}
	if len(cfg.Engine.RenderCommand) == 0 {
		return fmt.Errorf("engine.render_command is required")
	}
	if cfg.Engine.Timeout < 0 {
		return fmt.Errorf("engine.timeout must not be negative")
	}
	if cfg.Engine.FopHome != "" {
		info, err := os.Stat(cfg.Engine.FopHome)
		if err != nil || !info.IsDir() {
			return fmt.Errorf("engine.fop_home %q is not a directory", cfg.Engine.FopHome)
		}
	}

	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q is not one of debug, info, warn, error", cfg.Logging.Level)
	}

	if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1 {
		return fmt.Errorf("tracing.sample_ratio must be between 0 and 1")
	}

	return nil
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}
