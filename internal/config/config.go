package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/agentstack/stackctl/pkg/hardware"
)

// Config holds all application configuration.
type Config struct {
	// Deployment layout
	InstallDir  string `mapstructure:"install-dir"`
	ComposeFile string `mapstructure:"compose-file"`
	EnvFile     string `mapstructure:"env-file"`
	ProjectName string `mapstructure:"project-name"`

	// Container runtime
	RuntimeBin string `mapstructure:"runtime-bin"`

	// Model daemon
	OllamaBin string `mapstructure:"ollama-bin"`
	OllamaURL string `mapstructure:"ollama-url"`

	// Run recording
	JournalPath string `mapstructure:"journal-path"`
	LogPath     string `mapstructure:"log-path"`

	// Release bundle
	BundleBucket string `mapstructure:"bundle-bucket"`
	BundleRegion string `mapstructure:"bundle-region"`
	BundleKey    string `mapstructure:"bundle-key"`

	// Orchestrator behavior
	ModelTier     string `mapstructure:"model-tier"` // empty means auto-detect
	ForceRebuild  bool   `mapstructure:"force-rebuild"`
	Yes           bool   `mapstructure:"yes"` // non-interactive
	SettleSeconds int    `mapstructure:"settle-seconds"`
	Verbose       bool   `mapstructure:"verbose"`
}

// Load reads configuration from defaults, config file, environment and
// bound flags, in ascending precedence.
func Load() (*Config, error) {
	viper.SetDefault("install-dir", ".")
	viper.SetDefault("compose-file", "compose.yaml")
	viper.SetDefault("env-file", ".env")
	viper.SetDefault("project-name", "agentstack")
	viper.SetDefault("runtime-bin", "docker")
	viper.SetDefault("ollama-bin", "ollama")
	viper.SetDefault("ollama-url", "http://localhost:11434")
	viper.SetDefault("journal-path", ".agentstack/journal.db")
	viper.SetDefault("log-path", ".agentstack/provision.log")
	viper.SetDefault("bundle-bucket", "agentstack-releases")
	viper.SetDefault("bundle-region", "us-east-1")
	viper.SetDefault("bundle-key", "bundles/agentstack-latest.tar.gz")
	viper.SetDefault("model-tier", "")
	viper.SetDefault("force-rebuild", false)
	viper.SetDefault("yes", false)
	viper.SetDefault("settle-seconds", 10)
	viper.SetDefault("verbose", false)

	// Environment variables (STACKCTL_INSTALL_DIR, etc.)
	viper.SetEnvPrefix("STACKCTL")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	// Config file (optional)
	viper.SetConfigName("stackctl")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("$HOME/.agentstack")
	_ = viper.ReadInConfig()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// Validate checks configuration for errors.
func (c *Config) Validate() error {
	if c.InstallDir == "" {
		return fmt.Errorf("install-dir cannot be empty")
	}
	if c.ComposeFile == "" {
		return fmt.Errorf("compose-file cannot be empty")
	}
	if c.EnvFile == "" {
		return fmt.Errorf("env-file cannot be empty")
	}
	if c.ProjectName == "" {
		return fmt.Errorf("project-name cannot be empty")
	}
	if c.RuntimeBin == "" {
		return fmt.Errorf("runtime-bin cannot be empty")
	}
	if c.JournalPath == "" {
		return fmt.Errorf("journal-path cannot be empty")
	}
	if c.SettleSeconds < 0 {
		return fmt.Errorf("settle-seconds must be non-negative")
	}
	if c.ModelTier != "" {
		if _, ok := hardware.ParseTier(c.ModelTier); !ok {
			return fmt.Errorf("model-tier must be one of minimal, balanced, maximal")
		}
	}
	return nil
}
