package domain

import "strings"

// ProviderKind names a language model transport.
type ProviderKind string

const (
	ProviderKindOpenAI    ProviderKind = "openai"
	ProviderKindAnthropic ProviderKind = "anthropic"
	ProviderKindOllama    ProviderKind = "ollama"
	ProviderKindGemini    ProviderKind = "gemini"
	ProviderKindUnknown   ProviderKind = "unknown"
)

// ParseProviderKind normalises a configured provider name.
func ParseProviderKind(raw string) ProviderKind {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "openai":
		return ProviderKindOpenAI
	case "anthropic", "claude":
		return ProviderKindAnthropic
	case "ollama":
		return ProviderKindOllama
	case "gemini", "google":
		return ProviderKindGemini
	default:
		return ProviderKindUnknown
	}
}

// ModelDefinition describes a language model declared in the config file.
type ModelDefinition struct {
	Name       string `yaml:"name" mapstructure:"name"`
	Provider   string `yaml:"provider" mapstructure:"provider"`
	Endpoint   string `yaml:"endpoint" mapstructure:"endpoint"`
	AuthEnvVar string `yaml:"auth_env_var" mapstructure:"auth_env_var"`
	ModelID    string `yaml:"model_id" mapstructure:"model_id"`
	MaxTokens  int    `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// GetMaxTokens returns the extraction token budget with default fallback.
func (m ModelDefinition) GetMaxTokens() int {
	if m.MaxTokens <= 0 {
		return DefaultMaxTokens
	}
	return m.MaxTokens
}
