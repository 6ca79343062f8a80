package ai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doeshing/geogenie-go/internal/domain"
	"github.com/doeshing/geogenie-go/internal/ports"
)

func TestOpenAIProvider_ToolCall(t *testing.T) {
	var captured map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sk-test", r.Header.Get("authorization"))
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &captured))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":null,"tool_calls":[
			{"type":"function","function":{"name":"execute_buffer","arguments":"{\"INPUT\":\"Roads\",\"DISTANCE\":25}"}}]}}]}`))
	}))
	defer server.Close()

	model := domain.ModelDefinition{Name: "gpt", ModelID: "gpt-4o", Endpoint: server.URL}
	provider := newHTTPProvider("openai", model, openAIEndpoint, "sk-test", server.Client(), openaiAdapter())
	assert.True(t, provider.SupportsFunctions())

	resp, err := provider.Complete(context.Background(), ports.CompletionRequest{
		System: "sys",
		Prompt: "buffer roads",
		Functions: []domain.FunctionSpec{{
			Name:     "execute_buffer",
			Params:   []domain.FunctionParam{{Name: "DISTANCE", Type: "number"}},
			Required: []string{"DISTANCE"},
		}},
	})
	require.NoError(t, err)
	require.NotNil(t, resp.Call)
	assert.Equal(t, "execute_buffer", resp.Call.Name)
	assert.Equal(t, map[string]interface{}{"INPUT": "Roads", "DISTANCE": 25.0}, resp.Call.Args)

	assert.Equal(t, "gpt-4o", captured["model"])
	assert.Equal(t, "auto", captured["tool_choice"])
	tools := captured["tools"].([]interface{})
	require.Len(t, tools, 1)
	messages := captured["messages"].([]interface{})
	assert.Len(t, messages, 2)
}

func TestOllamaProvider_TextOnly(t *testing.T) {
	var captured map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("authorization"))
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &captured))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":" {\"algorithm\": null} "}}]}`))
	}))
	defer server.Close()

	provider := newHTTPProvider("ollama", domain.ModelDefinition{ModelID: "llama3", Endpoint: server.URL}, ollamaEndpoint, "", server.Client(), ollamaAdapter())
	assert.False(t, provider.SupportsFunctions())

	resp, err := provider.Complete(context.Background(), ports.CompletionRequest{
		Prompt:    "x",
		Functions: []domain.FunctionSpec{{Name: "execute_buffer"}},
	})
	require.NoError(t, err)
	assert.Nil(t, resp.Call)
	assert.Equal(t, `{"algorithm": null}`, resp.Text)
	assert.NotContains(t, captured, "tools")
}

func TestAnthropicProvider_Text(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "key-1", r.Header.Get("x-api-key"))
		assert.Equal(t, anthropicVersion, r.Header.Get("anthropic-version"))
		var payload map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "be brief", payload["system"])
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"Buffered roads."}]}`))
	}))
	defer server.Close()

	provider := newHTTPProvider("anthropic", domain.ModelDefinition{Endpoint: server.URL}, anthropicEndpoint, "key-1", server.Client(), anthropicAdapter())
	resp, err := provider.Complete(context.Background(), ports.CompletionRequest{System: "be brief", Prompt: "x"})
	require.NoError(t, err)
	assert.Equal(t, "Buffered roads.", resp.Text)
}

func TestHTTPProvider_Errors(t *testing.T) {
	unauthorized := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer unauthorized.Close()

	provider := newHTTPProvider("openai", domain.ModelDefinition{Endpoint: unauthorized.URL}, openAIEndpoint, "bad", unauthorized.Client(), openaiAdapter())
	_, err := provider.Complete(context.Background(), ports.CompletionRequest{Prompt: "x"})
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)

	missingKey := newHTTPProvider("anthropic", domain.ModelDefinition{}, anthropicEndpoint, "", http.DefaultClient, anthropicAdapter())
	_, err = missingKey.Complete(context.Background(), ports.CompletionRequest{Prompt: "x"})
	assert.ErrorIs(t, err, domain.ErrCapabilityUnavailable)

	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer broken.Close()
	provider = newHTTPProvider("openai", domain.ModelDefinition{Endpoint: broken.URL}, openAIEndpoint, "k", broken.Client(), openaiAdapter())
	_, err = provider.Complete(context.Background(), ports.CompletionRequest{Prompt: "x"})
	assert.ErrorIs(t, err, domain.ErrMalformedOutput)
}
