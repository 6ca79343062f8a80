package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/doeshing/geogenie-go/internal/domain"
	"github.com/doeshing/geogenie-go/internal/ports"
)

const (
	openAIEndpoint    = "https://api.openai.com/v1/chat/completions"
	anthropicEndpoint = "https://api.anthropic.com/v1/messages"
	ollamaEndpoint    = "http://localhost:11434/v1/chat/completions"
	anthropicVersion  = "2023-06-01"
)

type httpProvider struct {
	name       string
	model      domain.ModelDefinition
	endpoint   string
	apiKey     string
	httpClient *http.Client
	adapter    providerAdapter
}

type providerAdapter struct {
	native        bool
	needsKey      bool
	buildRequest  func(domain.ModelDefinition, ports.CompletionRequest) ([]byte, error)
	parseResponse func([]byte) (ports.CompletionResponse, error)
	setHeaders    func(*http.Request, string)
}

func newHTTPProvider(name string, model domain.ModelDefinition, endpoint, apiKey string, client *http.Client, adapter providerAdapter) *httpProvider {
	if model.Endpoint != "" {
		endpoint = model.Endpoint
	}
	return &httpProvider{
		name:       name,
		model:      model,
		endpoint:   endpoint,
		apiKey:     apiKey,
		httpClient: client,
		adapter:    adapter,
	}
}

func (p *httpProvider) Name() string {
	return p.name
}

func (p *httpProvider) SupportsFunctions() bool {
	return p.adapter.native
}

func (p *httpProvider) Complete(ctx context.Context, req ports.CompletionRequest) (ports.CompletionResponse, error) {
	if p.adapter.needsKey && p.apiKey == "" {
		return ports.CompletionResponse{}, fmt.Errorf("%w: no API key configured for %s", domain.ErrCapabilityUnavailable, p.name)
	}

	body, err := p.adapter.buildRequest(p.model, req)
	if err != nil {
		return ports.CompletionResponse{}, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return ports.CompletionResponse{}, err
	}
	httpReq.Header.Set("content-type", "application/json")
	p.adapter.setHeaders(httpReq, p.apiKey)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return ports.CompletionResponse{}, ctx.Err()
		}
		return ports.CompletionResponse{}, fmt.Errorf("%w: %s: %v", domain.ErrCapabilityUnavailable, p.name, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return ports.CompletionResponse{}, err
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return ports.CompletionResponse{}, fmt.Errorf("%w: %s: %s", domain.ErrUnauthenticated, p.name, resp.Status)
	case resp.StatusCode >= 400:
		return ports.CompletionResponse{}, fmt.Errorf("%s: %s: %s", p.name, resp.Status, truncate(string(payload), 200))
	}

	return p.adapter.parseResponse(payload)
}

func openaiAdapter() providerAdapter {
	return providerAdapter{
		native:        true,
		needsKey:      true,
		buildRequest:  buildChatCompletionRequest(true),
		parseResponse: parseChatCompletionResponse,
		setHeaders: func(req *http.Request, key string) {
			req.Header.Set("authorization", "Bearer "+key)
		},
	}
}

func ollamaAdapter() providerAdapter {
	return providerAdapter{
		buildRequest:  buildChatCompletionRequest(false),
		parseResponse: parseChatCompletionResponse,
		setHeaders:    func(*http.Request, string) {},
	}
}

func anthropicAdapter() providerAdapter {
	return providerAdapter{
		needsKey:      true,
		buildRequest:  buildAnthropicRequest,
		parseResponse: parseAnthropicResponse,
		setHeaders: func(req *http.Request, key string) {
			req.Header.Set("x-api-key", key)
			req.Header.Set("anthropic-version", anthropicVersion)
		},
	}
}

func buildChatCompletionRequest(withTools bool) func(domain.ModelDefinition, ports.CompletionRequest) ([]byte, error) {
	return func(model domain.ModelDefinition, req ports.CompletionRequest) ([]byte, error) {
		var messages []chatMessage
		if req.System != "" {
			messages = append(messages, chatMessage{Role: "system", Content: req.System})
		}
		messages = append(messages, chatMessage{Role: "user", Content: req.Prompt})

		payload := chatCompletionRequest{
			Model:       model.ModelID,
			Messages:    messages,
			MaxTokens:   defaultInt(req.MaxTokens, model.GetMaxTokens()),
			Temperature: req.Temperature,
		}
		if withTools && len(req.Functions) > 0 {
			for _, fn := range req.Functions {
				payload.Tools = append(payload.Tools, chatTool{
					Type: "function",
					Function: chatFunction{
						Name:        fn.Name,
						Description: fn.Description,
						Parameters:  jsonSchemaFor(fn),
					},
				})
			}
			payload.ToolChoice = "auto"
		}
		return json.Marshal(payload)
	}
}

func parseChatCompletionResponse(body []byte) (ports.CompletionResponse, error) {
	var response chatCompletionResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return ports.CompletionResponse{}, fmt.Errorf("%w: %v", domain.ErrMalformedOutput, err)
	}

	out := ports.CompletionResponse{Text: response.FirstMessage()}
	name, args, ok, err := response.FirstToolCall()
	if err != nil {
		return ports.CompletionResponse{}, fmt.Errorf("%w: tool arguments: %v", domain.ErrMalformedOutput, err)
	}
	if ok {
		out.Call = &ports.FunctionCall{Name: name, Args: args}
	}
	return out, nil
}

func buildAnthropicRequest(model domain.ModelDefinition, req ports.CompletionRequest) ([]byte, error) {
	request := map[string]interface{}{
		"model":       defaultString(model.ModelID, "claude-3-5-sonnet-20241022"),
		"max_tokens":  defaultInt(req.MaxTokens, model.GetMaxTokens()),
		"temperature": req.Temperature,
		"messages": []map[string]interface{}{
			{
				"role": "user",
				"content": []map[string]string{
					{"type": "text", "text": req.Prompt},
				},
			},
		},
	}
	if req.System != "" {
		request["system"] = req.System
	}
	return json.Marshal(request)
}

func parseAnthropicResponse(body []byte) (ports.CompletionResponse, error) {
	var response struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return ports.CompletionResponse{}, fmt.Errorf("%w: %v", domain.ErrMalformedOutput, err)
	}

	var parts []string
	for _, block := range response.Content {
		if block.Type == "" || block.Type == "text" {
			parts = append(parts, block.Text)
		}
	}
	return ports.CompletionResponse{Text: strings.TrimSpace(strings.Join(parts, "\n"))}, nil
}

// jsonSchemaFor renders a FunctionSpec as a JSON schema object.
func jsonSchemaFor(fn domain.FunctionSpec) map[string]interface{} {
	props := make(map[string]interface{}, len(fn.Params))
	for _, p := range fn.Params {
		props[p.Name] = map[string]interface{}{
			"type":        p.Type,
			"description": p.Description,
		}
	}
	required := fn.Required
	if required == nil {
		required = []string{}
	}
	return map[string]interface{}{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func defaultString(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

func defaultInt(value, fallback int) int {
	if value == 0 {
		return fallback
	}
	return value
}

var _ ports.CompletionCapability = (*httpProvider)(nil)
