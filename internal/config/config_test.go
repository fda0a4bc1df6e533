package config

import (
	"testing"

	"github.com/spf13/viper"
)

func validConfig() *Config {
	return &Config{
		InstallDir:    ".",
		ComposeFile:   "compose.yaml",
		EnvFile:       ".env",
		ProjectName:   "agentstack",
		RuntimeBin:    "docker",
		JournalPath:   ".agentstack/journal.db",
		SettleSeconds: 10,
	}
}

func TestLoadDefaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.ProjectName != "agentstack" {
		t.Errorf("project-name default = %q", cfg.ProjectName)
	}
	if cfg.RuntimeBin != "docker" {
		t.Errorf("runtime-bin default = %q", cfg.RuntimeBin)
	}
	if cfg.OllamaURL != "http://localhost:11434" {
		t.Errorf("ollama-url default = %q", cfg.OllamaURL)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	t.Setenv("STACKCTL_RUNTIME_BIN", "podman")
	t.Setenv("STACKCTL_MODEL_TIER", "balanced")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.RuntimeBin != "podman" {
		t.Errorf("runtime-bin = %q, want podman", cfg.RuntimeBin)
	}
	if cfg.ModelTier != "balanced" {
		t.Errorf("model-tier = %q, want balanced", cfg.ModelTier)
	}
}

func TestValidate(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty install dir", func(c *Config) { c.InstallDir = "" }},
		{"empty compose file", func(c *Config) { c.ComposeFile = "" }},
		{"empty env file", func(c *Config) { c.EnvFile = "" }},
		{"empty project name", func(c *Config) { c.ProjectName = "" }},
		{"empty runtime bin", func(c *Config) { c.RuntimeBin = "" }},
		{"empty journal path", func(c *Config) { c.JournalPath = "" }},
		{"negative settle", func(c *Config) { c.SettleSeconds = -1 }},
		{"bogus tier", func(c *Config) { c.ModelTier = "turbo" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestValidateAcceptsKnownTiers(t *testing.T) {
	for _, tier := range []string{"minimal", "balanced", "maximal"} {
		cfg := validConfig()
		cfg.ModelTier = tier
		if err := cfg.Validate(); err != nil {
			t.Errorf("tier %q rejected: %v", tier, err)
		}
	}
}
