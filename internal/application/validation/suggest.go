package validation

import (
	"context"
	"fmt"

	"github.com/doeshing/geogenie-go/internal/domain"
)

// Suggest is advisory only and never affects validity.
func (v *Validator) Suggest(ctx context.Context, operation string, partial map[string]interface{}) (out domain.Suggestions) {
	out = domain.Suggestions{
		MissingRequired:   []domain.MissingParam{},
		RecommendedValues: map[string]interface{}{},
		LayerSuggestions:  map[string][]string{},
		Warnings:          []string{},
	}
	defer func() {
		if r := recover(); r != nil {
			v.logger.Warn("suggestion failed", map[string]interface{}{"operation": operation, "panic": fmt.Sprint(r)})
		}
	}()

	desc, ok := v.catalog.Get(operation)
	if !ok {
		out.Warnings = append(out.Warnings, fmt.Sprintf("Unknown algorithm: %s", operation))
		return out
	}
	present := canonicalize(desc, partial)

	for _, name := range desc.Required {
		if _, ok := present[name]; ok {
			continue
		}
		kind := desc.KindOf(name)
		out.MissingRequired = append(out.MissingRequired, domain.MissingParam{
			Parameter:   name,
			Kind:        kind,
			Description: fmt.Sprintf("Required parameter for %s", desc.Name),
		})
		if kind == domain.KindLayer && v.layers != nil {
			if candidates := v.layers.VisibleCandidates(ctx, desc.LayerTypes[name], domain.MaxLayerSuggestions); len(candidates) > 0 {
				out.LayerSuggestions[name] = candidates
			}
		}
	}

	for _, name := range desc.Optional {
		if _, ok := present[name]; ok {
			continue
		}
		if def, ok := desc.Default(name); ok {
			out.RecommendedValues[name] = def
		}
	}
	return out
}
