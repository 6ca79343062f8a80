package ai

import (
	"net/http"
	"strings"

	"github.com/doeshing/geogenie-go/internal/domain"
	"github.com/doeshing/geogenie-go/internal/ports"
)

type Factory struct {
	httpClient *http.Client
	store      ports.CredentialStore
}

func NewFactory(store ports.CredentialStore) *Factory {
	return &Factory{
		httpClient: &http.Client{Timeout: domain.DefaultHTTPClientTimeout},
		store:      store,
	}
}

func (f *Factory) ForModel(model domain.ModelDefinition) (ports.CompletionCapability, error) {
	providerKind := domain.ParseProviderKind(model.Provider)
	if providerKind == domain.ProviderKindUnknown {
		providerKind = inferProviderKind(model.Endpoint, model.Name)
	}

	switch providerKind {
	case domain.ProviderKindAnthropic:
		key := resolveKey(f.store, providerKind, model.AuthEnvVar, "ANTHROPIC_API_KEY")
		return newHTTPProvider("anthropic", model, anthropicEndpoint, key, f.httpClient, anthropicAdapter()), nil
	case domain.ProviderKindOpenAI:
		key := resolveKey(f.store, providerKind, model.AuthEnvVar, "OPENAI_API_KEY")
		return newHTTPProvider("openai", model, openAIEndpoint, key, f.httpClient, openaiAdapter()), nil
	case domain.ProviderKindOllama:
		return newHTTPProvider("ollama", model, ollamaEndpoint, "", f.httpClient, ollamaAdapter()), nil
	case domain.ProviderKindGemini:
		key := resolveKey(f.store, providerKind, model.AuthEnvVar, "GEMINI_API_KEY")
		return newGeminiProvider(model, key), nil
	default:
		return newHeuristicProvider(model), nil
	}
}

func inferProviderKind(endpoint string, name string) domain.ProviderKind {
	nameLower := strings.ToLower(name)

	switch {
	case strings.Contains(endpoint, "anthropic.com"), strings.Contains(nameLower, "claude"):
		return domain.ProviderKindAnthropic
	case strings.Contains(endpoint, "openai.com"), strings.HasPrefix(nameLower, "gpt"):
		return domain.ProviderKindOpenAI
	case strings.Contains(endpoint, "googleapis.com"), strings.Contains(nameLower, "gemini"):
		return domain.ProviderKindGemini
	case strings.Contains(nameLower, "ollama"), strings.Contains(endpoint, "11434"), strings.Contains(endpoint, "localhost"):
		return domain.ProviderKindOllama
	default:
		return domain.ProviderKindUnknown
	}
}

var _ ports.ProviderFactory = (*Factory)(nil)
