package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Browser backends.
const (
	BackendPlaywright = "playwright"
	BackendChromedp   = "chromedp"
)

// Model providers.
const (
	ProviderOpenAI  = "openai"
	ProviderBedrock = "bedrock"
	ProviderGemini  = "gemini"
)

// Config holds the entire application configuration.
type Config struct {
	Logger  LoggerConfig  `mapstructure:"logger" yaml:"logger"`
	Browser BrowserConfig `mapstructure:"browser" yaml:"browser"`
	LLM     LLMConfig     `mapstructure:"llm" yaml:"llm"`
	Agent   AgentConfig   `mapstructure:"agent" yaml:"agent"`
}

// LoggerConfig configures the zap logger.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// BrowserConfig configures the browser driver used to execute steps.
type BrowserConfig struct {
	Backend         string        `mapstructure:"backend" yaml:"backend"`
	Headless        bool          `mapstructure:"headless" yaml:"headless"`
	InstallDriver   bool          `mapstructure:"install_driver" yaml:"install_driver"`
	ViewportWidth   int           `mapstructure:"viewport_width" yaml:"viewport_width"`
	ViewportHeight  int           `mapstructure:"viewport_height" yaml:"viewport_height"`
	Timeout         time.Duration `mapstructure:"timeout" yaml:"timeout"`
	HighlightCursor bool          `mapstructure:"highlight_cursor" yaml:"highlight_cursor"`
	Args            []string      `mapstructure:"args" yaml:"args"`
}

// LLMConfig selects and configures the model provider.
type LLMConfig struct {
	Provider   string        `mapstructure:"provider" yaml:"provider"`
	Model      string        `mapstructure:"model" yaml:"model"`
	APIKey     string        `mapstructure:"api_key" yaml:"api_key"`
	BaseURL    string        `mapstructure:"base_url" yaml:"base_url"`
	Region     string        `mapstructure:"region" yaml:"region"`
	MaxTokens  int           `mapstructure:"max_tokens" yaml:"max_tokens"`
	MaxRetries int           `mapstructure:"max_retries" yaml:"max_retries"`
	Timeout    time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// AgentConfig configures the tool-calling loop.
type AgentConfig struct {
	MaxSteps    int           `mapstructure:"max_steps" yaml:"max_steps"`
	StepTimeout time.Duration `mapstructure:"step_timeout" yaml:"step_timeout"`
}

// SetDefaults initializes default values for every configuration key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.service_name", "bdd-agent")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 50)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 14)
	v.SetDefault("logger.compress", true)

	v.SetDefault("browser.backend", BackendPlaywright)
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.install_driver", false)
	v.SetDefault("browser.viewport_width", 1280)
	v.SetDefault("browser.viewport_height", 720)
	v.SetDefault("browser.timeout", "30s")
	v.SetDefault("browser.highlight_cursor", true)
	v.SetDefault("browser.args", []string{"--disable-blink-features=AutomationControlled"})

	v.SetDefault("llm.provider", ProviderOpenAI)
	v.SetDefault("llm.model", "gpt-4o")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.region", "us-east-1")
	v.SetDefault("llm.max_tokens", 4096)
	v.SetDefault("llm.max_retries", 5)
	v.SetDefault("llm.timeout", "2m")

	v.SetDefault("agent.max_steps", 40)
	v.SetDefault("agent.step_timeout", "0s")
}

// NewDefaultConfig returns the configuration with only defaults applied.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)
	cfg, err := NewConfigFromViper(v)
	if err != nil {
		// defaults always decode
		panic(err)
	}
	return cfg
}

// Load reads configuration from an optional YAML file and BDD_AGENT_* env vars.
// An empty path searches ./bdd-agent.yaml and $HOME/.bdd-agent/bdd-agent.yaml; a missing
// file is not an error.
func Load(v *viper.Viper, path string) (*Config, error) {
	SetDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("bdd-agent")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.bdd-agent")
	}

	v.SetEnvPrefix("BDD_AGENT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	return NewConfigFromViper(v)
}

// NewConfigFromViper decodes and validates a populated viper instance.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration for values the runtime cannot work with.
func (c *Config) Validate() error {
	switch c.Browser.Backend {
	case BackendPlaywright, BackendChromedp:
	default:
		return fmt.Errorf("browser.backend must be %q or %q, got %q", BackendPlaywright, BackendChromedp, c.Browser.Backend)
	}
	if c.Browser.ViewportWidth < 0 || c.Browser.ViewportHeight < 0 {
		return errors.New("browser viewport dimensions must not be negative")
	}

	switch c.LLM.Provider {
	case ProviderOpenAI, ProviderBedrock, ProviderGemini:
	default:
		return fmt.Errorf("llm.provider must be one of openai, bedrock, gemini; got %q", c.LLM.Provider)
	}
	if c.LLM.Model == "" {
		return errors.New("llm.model is required")
	}
	if c.LLM.MaxRetries < 0 {
		return errors.New("llm.max_retries must not be negative")
	}

	if c.Agent.MaxSteps <= 0 {
		return errors.New("agent.max_steps must be positive")
	}
	if c.Agent.StepTimeout < 0 {
		return errors.New("agent.step_timeout must not be negative")
	}
	return nil
}
