package provider

import "fmt"

// ImageFormat selects how a translator embeds tool-produced images back
// into the wire conversation, since Anthropic and OpenAI-compatible APIs
// disagree on the shape of an inline image block.
type ImageFormat string

const (
	ImageFormatAnthropic ImageFormat = "anthropic"
	ImageFormatOpenAI    ImageFormat = "openai"
)

// ModelConfig describes the target model and its generation parameters.
// ContextLimit and EstimateFactor are optional hints the loop may use for
// truncation decisions; a zero value means unknown, not zero tokens.
type ModelConfig struct {
	Name           string  `yaml:"name"`
	ContextLimit   int     `yaml:"context_limit,omitempty"`
	Temperature    float64 `yaml:"temperature,omitempty"`
	MaxTokens      int     `yaml:"max_tokens,omitempty"`
	EstimateFactor float64 `yaml:"estimate_factor,omitempty"`
}

// AuthMode selects how Config.APIKey (or its absence) is presented to the
// backend. Most OpenAI-compatible hosts want a bearer token; Databricks
// personal-access-token auth is the same header, kept distinct so a future
// OAuth mode has somewhere to go without disturbing existing configs.
type AuthMode string

const (
	AuthModeBearer AuthMode = "bearer"
	AuthModeNone   AuthMode = "none"
)

// Kind selects which translator New builds from a Config.
type Kind string

const (
	KindAnthropic  Kind = "anthropic"
	KindOpenAI     Kind = "openai"
	KindDatabricks Kind = "databricks"
	KindOllama     Kind = "ollama"
)

// Config is the host-independent configuration object every translator in
// this package is built from: a host, optional credentials, the model to
// drive, and the image wire format to use for tool-produced images.
type Config struct {
	Kind        Kind        `yaml:"kind"`
	Host        string      `yaml:"host"`
	APIKey      string      `yaml:"api_key,omitempty"`
	AuthMode    AuthMode    `yaml:"auth_mode,omitempty"`
	Model       ModelConfig `yaml:"model"`
	ImageFormat ImageFormat `yaml:"image_format,omitempty"`
}

// Validate reports the first configuration defect, if any.
func (c Config) Validate() error {
	switch c.Kind {
	case KindAnthropic, KindOpenAI, KindDatabricks, KindOllama:
	default:
		return fmt.Errorf("provider config: unknown kind %q", c.Kind)
	}
	if c.Host == "" {
		return fmt.Errorf("provider config: host is required")
	}
	if c.Model.Name == "" {
		return fmt.Errorf("provider config: model.name is required")
	}
	switch c.AuthMode {
	case "", AuthModeBearer, AuthModeNone:
	default:
		return fmt.Errorf("provider config: unknown auth_mode %q", c.AuthMode)
	}
	switch c.ImageFormat {
	case "", ImageFormatAnthropic, ImageFormatOpenAI:
	default:
		return fmt.Errorf("provider config: unknown image_format %q", c.ImageFormat)
	}
	return nil
}

// ResolvedImageFormat returns the image format a translator should use when
// forwarding a tool-produced image: the configured ImageFormat if set,
// otherwise the format native to Kind (Anthropic-style blocks for
// KindAnthropic, OpenAI-style image_url data URLs for everything else).
func (c Config) ResolvedImageFormat() ImageFormat {
	if c.ImageFormat != "" {
		return c.ImageFormat
	}
	if c.Kind == KindAnthropic {
		return ImageFormatAnthropic
	}
	return ImageFormatOpenAI
}

// New builds the Provider cfg.Kind selects.
func New(cfg Config) (Provider, error) {
	switch cfg.Kind {
	case KindAnthropic:
		return NewAnthropic(cfg)
	case KindOpenAI:
		return NewOpenAICompatible("openai", cfg)
	case KindDatabricks:
		return NewDatabricks(cfg)
	case KindOllama:
		return NewOllama(cfg)
	default:
		return nil, fmt.Errorf("provider config: unknown kind %q", cfg.Kind)
	}
}
