package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/doeshing/geogenie-go/internal/domain"
	"github.com/doeshing/geogenie-go/internal/ports"
)

const defaultGeminiModel = "gemini-1.5-flash"

// geminiProvider calls Gemini through the genai SDK with native function declarations.
type geminiProvider struct {
	model  domain.ModelDefinition
	apiKey string
	opts   []option.ClientOption
}

func newGeminiProvider(model domain.ModelDefinition, apiKey string, opts ...option.ClientOption) *geminiProvider {
	return &geminiProvider{model: model, apiKey: apiKey, opts: opts}
}

func (p *geminiProvider) Name() string {
	return "gemini"
}

func (p *geminiProvider) SupportsFunctions() bool {
	return true
}

func (p *geminiProvider) Complete(ctx context.Context, req ports.CompletionRequest) (ports.CompletionResponse, error) {
	if p.apiKey == "" {
		return ports.CompletionResponse{}, fmt.Errorf("%w: no API key configured for gemini", domain.ErrCapabilityUnavailable)
	}

	opts := append([]option.ClientOption{option.WithAPIKey(p.apiKey)}, p.opts...)
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return ports.CompletionResponse{}, fmt.Errorf("%w: gemini client: %v", domain.ErrCapabilityUnavailable, err)
	}
	defer client.Close()

	gm := client.GenerativeModel(defaultString(p.model.ModelID, defaultGeminiModel))
	gm.SetTemperature(req.Temperature)
	gm.SetMaxOutputTokens(int32(defaultInt(req.MaxTokens, p.model.GetMaxTokens())))
	if req.System != "" {
		gm.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(req.System)}}
	}
	if len(req.Functions) > 0 {
		decls := make([]*genai.FunctionDeclaration, 0, len(req.Functions))
		for _, fn := range req.Functions {
			decls = append(decls, geminiDeclaration(fn))
		}
		gm.Tools = []*genai.Tool{{FunctionDeclarations: decls}}
	}

	resp, err := gm.GenerateContent(ctx, genai.Text(req.Prompt))
	if err != nil {
		return ports.CompletionResponse{}, classifyGeminiError(err)
	}
	return geminiResponse(resp), nil
}

func geminiDeclaration(fn domain.FunctionSpec) *genai.FunctionDeclaration {
	props := make(map[string]*genai.Schema, len(fn.Params))
	for _, p := range fn.Params {
		props[p.Name] = &genai.Schema{Type: geminiType(p.Type), Description: p.Description}
	}
	return &genai.FunctionDeclaration{
		Name:        fn.Name,
		Description: fn.Description,
		Parameters: &genai.Schema{
			Type:       genai.TypeObject,
			Properties: props,
			Required:   fn.Required,
		},
	}
}

func geminiType(jsonType string) genai.Type {
	switch jsonType {
	case "number":
		return genai.TypeNumber
	case "integer":
		return genai.TypeInteger
	case "boolean":
		return genai.TypeBoolean
	default:
		return genai.TypeString
	}
}

func geminiResponse(resp *genai.GenerateContentResponse) ports.CompletionResponse {
	var out ports.CompletionResponse
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return out
	}

	var texts []string
	for _, part := range resp.Candidates[0].Content.Parts {
		switch v := part.(type) {
		case genai.Text:
			texts = append(texts, string(v))
		case genai.FunctionCall:
			if out.Call == nil {
				out.Call = &ports.FunctionCall{Name: v.Name, Args: v.Args}
			}
		case *genai.FunctionCall:
			if out.Call == nil && v != nil {
				out.Call = &ports.FunctionCall{Name: v.Name, Args: v.Args}
			}
		}
	}
	out.Text = strings.TrimSpace(strings.Join(texts, "\n"))
	return out
}

func classifyGeminiError(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		if apiErr.Code == http.StatusUnauthorized || apiErr.Code == http.StatusForbidden {
			return fmt.Errorf("%w: gemini: %v", domain.ErrUnauthenticated, err)
		}
	}
	return fmt.Errorf("gemini: %w", err)
}

var _ ports.CompletionCapability = (*geminiProvider)(nil)
