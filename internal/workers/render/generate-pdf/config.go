package generatepdf

import (
	"fmt"
	"os"
	"time"

	"render-worker/internal/common/config"
)

type Config struct {
	Enabled bool `mapstructure:"enabled"`
	// Timeout bounds one engine invocation. Zero leaves it unbounded.
	Timeout          time.Duration `mapstructure:"timeout"`
	CreateOutputDirs bool          `mapstructure:"create_output_dirs"`
	FileMode         os.FileMode   `mapstructure:"file_mode"`
	DirMode          os.FileMode   `mapstructure:"dir_mode"`
}

func DefaultConfig() *Config {
	return &Config{
		Enabled:          true,
		Timeout:          0,
		CreateOutputDirs: true,
		FileMode:         0o644,
		DirMode:          0o755,
	}
}

func (c *Config) Validate() error {
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative")
	}
	if c.FileMode == 0 {
		return fmt.Errorf("file_mode must be set")
	}
	if c.CreateOutputDirs && c.DirMode == 0 {
		return fmt.Errorf("dir_mode must be set when create_output_dirs is on")
	}
	return nil
}

func createConfigFromAppConfig(appConfig *config.Config, custom *Config) *Config {
	if custom != nil {
		return custom
	}
	cfg := DefaultConfig()
	if appConfig != nil {
		cfg.Timeout = config.GetDuration(appConfig.Engine.Timeout)
	}
	return cfg
}
