package ai

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/doeshing/geogenie-go/internal/domain"
)

const fallbackEnvelopeSchema = `{
  "type": "object",
  "required": ["algorithm"],
  "properties": {
    "algorithm":  {"type": ["string", "null"]},
    "parameters": {"type": ["object", "null"]},
    "reasoning":  {"type": ["string", "null"]}
  }
}`

var envelopeSchemaLoader = gojsonschema.NewStringLoader(fallbackEnvelopeSchema)

// fallbackEnvelope is the JSON object a model without native function calling is asked to emit.
type fallbackEnvelope struct {
	Algorithm  string
	Parameters map[string]interface{}
	Reasoning  string
}

// parseFallbackEnvelope locates the first balanced JSON object in text and checks its shape.
func parseFallbackEnvelope(text string) (fallbackEnvelope, error) {
	raw, ok := extractJSONObject(text)
	if !ok {
		return fallbackEnvelope{}, fmt.Errorf("%w: no JSON object in response", domain.ErrMalformedOutput)
	}

	var doc map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return fallbackEnvelope{}, fmt.Errorf("%w: %v", domain.ErrMalformedOutput, err)
	}

	result, err := gojsonschema.Validate(envelopeSchemaLoader, gojsonschema.NewGoLoader(doc))
	if err != nil {
		return fallbackEnvelope{}, fmt.Errorf("%w: schema: %v", domain.ErrMalformedOutput, err)
	}
	if !result.Valid() {
		errs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			errs[i] = desc.String()
		}
		return fallbackEnvelope{}, fmt.Errorf("%w: %s", domain.ErrMalformedOutput, strings.Join(errs, "; "))
	}

	env := fallbackEnvelope{Parameters: map[string]interface{}{}}
	if name, ok := doc["algorithm"].(string); ok {
		env.Algorithm = name
	}
	if params, ok := doc["parameters"].(map[string]interface{}); ok {
		env.Parameters = params
	}
	if reasoning, ok := doc["reasoning"].(string); ok {
		env.Reasoning = reasoning
	}
	return env, nil
}
