package contextbuilder

import (
	"context"
	"fmt"
	"strings"

	"github.com/doeshing/geogenie-go/internal/domain"
)

// LayerByName matches exact, then case-insensitive, then case-insensitive substring.
// The first match in workspace order wins at each tier.
func (b *Builder) LayerByName(ctx context.Context, name string) (domain.Layer, bool) {
	layers, err := b.workspace.Layers(ctx)
	if err != nil {
		b.logger.Warn("layer lookup failed", map[string]interface{}{"layer": name, "error": err.Error()})
		return domain.Layer{}, false
	}
	return matchLayer(layers, name)
}

func matchLayer(layers []domain.Layer, name string) (domain.Layer, bool) {
	if name == "" {
		return domain.Layer{}, false
	}
	for _, layer := range layers {
		if layer.Name == name {
			return layer, true
		}
	}
	lower := strings.ToLower(name)
	for _, layer := range layers {
		if strings.ToLower(layer.Name) == lower {
			return layer, true
		}
	}
	for _, layer := range layers {
		if strings.Contains(strings.ToLower(layer.Name), lower) {
			return layer, true
		}
	}
	return domain.Layer{}, false
}

// ResolveLayer accepts either a stable layer id or a display name.
// Ids are tried first so an already-resolved reference resolves to itself.
func (b *Builder) ResolveLayer(ctx context.Context, ref string) (domain.Layer, bool) {
	if ref == "" {
		return domain.Layer{}, false
	}
	if layer, ok, err := b.workspace.LayerByID(ctx, ref); err == nil && ok {
		return layer, true
	}
	return b.LayerByName(ctx, ref)
}

// ValidateLayer composes lookup with a kind check and always returns a result.
func (b *Builder) ValidateLayer(ctx context.Context, ref string, expected domain.LayerConstraint) (result domain.LayerValidation) {
	defer func() {
		if r := recover(); r != nil {
			result = domain.LayerValidation{Valid: false, Error: fmt.Sprintf("Could not verify layer '%s' exists", ref)}
		}
	}()

	layer, ok := b.ResolveLayer(ctx, ref)
	if !ok {
		return domain.LayerValidation{Valid: false, Error: fmt.Sprintf("Layer '%s' not found", ref)}
	}
	if !layer.Valid {
		return domain.LayerValidation{Valid: false, Error: fmt.Sprintf("Layer '%s' is not valid", ref), Layer: &layer}
	}
	if !layer.Satisfies(expected) {
		return domain.LayerValidation{
			Valid: false,
			Error: fmt.Sprintf("Layer '%s' is not a %s layer", ref, expected),
			Layer: &layer,
		}
	}
	return domain.LayerValidation{Valid: true, Layer: &layer}
}

// EnsureSpatialIndexes creates a spatial index on every valid vector layer lacking one.
// Results are keyed by layer name; layers already indexed report true.
func (b *Builder) EnsureSpatialIndexes(ctx context.Context) map[string]bool {
	results := map[string]bool{}
	layers, err := b.workspace.Layers(ctx)
	if err != nil {
		b.logger.Warn("bulk spatial index creation failed", map[string]interface{}{"error": err.Error()})
		return results
	}
	for _, layer := range layers {
		if layer.Kind != domain.DataVector || !layer.Valid {
			continue
		}
		if layer.HasSpatialIndex {
			results[layer.Name] = true
			continue
		}
		if err := b.workspace.CreateSpatialIndex(ctx, layer.ID); err != nil {
			b.logger.Warn("spatial index creation failed", map[string]interface{}{"layer": layer.Name, "error": err.Error()})
			results[layer.Name] = false
			continue
		}
		b.logger.Info("spatial index created", map[string]interface{}{"layer": layer.Name})
		results[layer.Name] = true
	}
	return results
}

// VisibleCandidates lists up to limit visible, valid layers satisfying the constraint.
func (b *Builder) VisibleCandidates(ctx context.Context, constraint domain.LayerConstraint, limit int) []string {
	layers, err := b.workspace.Layers(ctx)
	if err != nil {
		return nil
	}
	var out []string
	for _, layer := range layers {
		if len(out) >= limit {
			break
		}
		if layer.Valid && layer.Visible && layer.Satisfies(constraint) {
			out = append(out, layer.Name)
		}
	}
	return out
}
