package ai

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/doeshing/geogenie-go/internal/domain"
	"github.com/doeshing/geogenie-go/internal/ports"
)

const userRequestMarker = "User request:"

var (
	numberPattern = regexp.MustCompile(`-?\d+(?:\.\d+)?`)
	epsgPattern   = regexp.MustCompile(`(?i)\bepsg:\d+\b`)
)

// heuristicProvider is the offline capability used when no vendor is configured.
// It answers extraction prompts with the fallback JSON envelope.
type heuristicProvider struct {
	model domain.ModelDefinition
}

func newHeuristicProvider(model domain.ModelDefinition) *heuristicProvider {
	return &heuristicProvider{model: model}
}

func (p *heuristicProvider) Name() string {
	return "heuristic"
}

func (p *heuristicProvider) SupportsFunctions() bool {
	return false
}

func (p *heuristicProvider) Complete(_ context.Context, req ports.CompletionRequest) (ports.CompletionResponse, error) {
	idx := strings.LastIndex(req.Prompt, userRequestMarker)
	if idx < 0 {
		return ports.CompletionResponse{}, nil
	}
	request := strings.TrimSpace(req.Prompt[idx+len(userRequestMarker):])

	envelope := guessOperation(request, firstActiveLayer(req.System+"\n"+req.Prompt))
	body, err := json.Marshal(envelope)
	if err != nil {
		return ports.CompletionResponse{}, err
	}
	return ports.CompletionResponse{Text: string(body)}, nil
}

func guessOperation(request string, layer string) map[string]interface{} {
	lower := strings.ToLower(request)
	params := map[string]interface{}{}
	if layer != "" {
		params["INPUT"] = layer
	}

	var op string
	switch {
	case strings.Contains(lower, "buffer"):
		op = "buffer"
		if n := numberPattern.FindString(lower); n != "" {
			params["DISTANCE"] = n
		}
	case strings.Contains(lower, "reproject"), strings.Contains(lower, "transform"), strings.Contains(lower, "epsg"):
		op = "reproject"
		if code := epsgPattern.FindString(request); code != "" {
			params["TARGET_CRS"] = strings.ToUpper(code)
		}
	case strings.Contains(lower, "dissolve"), strings.Contains(lower, "merge"):
		op = "dissolve"
	case strings.Contains(lower, "intersect"):
		op = "intersection"
	case strings.Contains(lower, "clip"):
		op = "clip"
	}

	if op == "" {
		return map[string]interface{}{
			"algorithm":  nil,
			"parameters": map[string]interface{}{},
			"reasoning":  "Heuristic provider could not match the request (offline fallback)",
		}
	}
	return map[string]interface{}{
		"algorithm":  op,
		"parameters": params,
		"reasoning":  "Matched keyword locally due to missing AI credentials",
	}
}

// firstActiveLayer reads the "- Active Layers:" line of the rendered system prompt.
func firstActiveLayer(prompt string) string {
	for _, line := range strings.Split(prompt, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "- Active Layers:") {
			continue
		}
		names := strings.TrimSpace(strings.TrimPrefix(line, "- Active Layers:"))
		if names == "" || names == "None" {
			return ""
		}
		return strings.TrimSpace(strings.Split(names, ",")[0])
	}
	return ""
}

var _ ports.CompletionCapability = (*heuristicProvider)(nil)
