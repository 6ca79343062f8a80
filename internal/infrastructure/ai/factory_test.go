package ai

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doeshing/geogenie-go/internal/domain"
)

type mapStore map[domain.ProviderKind]string

func (m mapStore) Read(kind domain.ProviderKind) (string, error) {
	if key, ok := m[kind]; ok {
		return key, nil
	}
	return "", errors.New("missing")
}

func (m mapStore) Write(kind domain.ProviderKind, key string) error {
	m[kind] = key
	return nil
}

func TestFactory_ForModel(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "env-openai")
	t.Setenv("ANTHROPIC_API_KEY", "")
	factory := NewFactory(mapStore{domain.ProviderKindAnthropic: "stored-claude"})

	tests := []struct {
		name       string
		model      domain.ModelDefinition
		wantName   string
		wantNative bool
	}{
		{"explicit openai", domain.ModelDefinition{Name: "x", Provider: "openai"}, "openai", true},
		{"claude alias", domain.ModelDefinition{Name: "x", Provider: "claude"}, "anthropic", false},
		{"gemini", domain.ModelDefinition{Name: "x", Provider: "google"}, "gemini", true},
		{"inferred ollama", domain.ModelDefinition{Name: "local", Endpoint: "http://localhost:11434/v1/chat/completions"}, "ollama", false},
		{"inferred from name", domain.ModelDefinition{Name: "gpt-4o"}, "openai", true},
		{"offline", domain.ModelDefinition{Name: "offline", Provider: "heuristic"}, "heuristic", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			capability, err := factory.ForModel(tt.model)
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, capability.Name())
			assert.Equal(t, tt.wantNative, capability.SupportsFunctions())
		})
	}
}

func TestFactory_KeyResolution(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "env-openai")
	t.Setenv("CUSTOM_KEY", "custom")
	factory := NewFactory(mapStore{domain.ProviderKindAnthropic: "stored-claude"})

	capability, err := factory.ForModel(domain.ModelDefinition{Provider: "anthropic"})
	require.NoError(t, err)
	assert.Equal(t, "stored-claude", capability.(*httpProvider).apiKey)

	capability, err = factory.ForModel(domain.ModelDefinition{Provider: "openai"})
	require.NoError(t, err)
	assert.Equal(t, "env-openai", capability.(*httpProvider).apiKey)

	capability, err = factory.ForModel(domain.ModelDefinition{Provider: "openai", AuthEnvVar: "CUSTOM_KEY"})
	require.NoError(t, err)
	assert.Equal(t, "custom", capability.(*httpProvider).apiKey)
}
