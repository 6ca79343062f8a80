// Package contextbuilder snapshots the host GIS session into a bounded, prompt-sized document
// and resolves the layer references the model and the user produce.
package contextbuilder

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/doeshing/geogenie-go/internal/domain"
	"github.com/doeshing/geogenie-go/internal/ports"
)

// OperationLister supplies the operation names embedded in every snapshot.
type OperationLister interface {
	Names() []string
}

// Builder reads the workspace on demand. It holds no per-request state.
type Builder struct {
	workspace ports.WorkspaceQuery
	catalog   OperationLister
	settings  domain.ContextSettings
	logger    ports.Logger
}

// New creates a Builder.
func New(workspace ports.WorkspaceQuery, catalog OperationLister, settings domain.ContextSettings, logger ports.Logger) *Builder {
	return &Builder{
		workspace: workspace,
		catalog:   catalog,
		settings:  settings,
		logger:    logger,
	}
}

// Build never fails: any collection error yields domain.MinimalSnapshot.
func (b *Builder) Build(ctx context.Context) (snapshot domain.ContextSnapshot) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("context collection panicked", fmt.Errorf("%v", r), nil)
			snapshot = domain.MinimalSnapshot()
		}
	}()

	snapshot, err := b.collect(ctx)
	if err != nil {
		b.logger.Error("context collection failed", err, nil)
		return domain.MinimalSnapshot()
	}
	b.logger.Debug("context built", map[string]interface{}{
		"layers":        len(snapshot.ActiveLayers),
		"visible":       len(snapshot.VisibleLayers()),
		"context_chars": len(fmt.Sprintf("%+v", snapshot)),
	})
	return snapshot
}

func (b *Builder) collect(ctx context.Context) (domain.ContextSnapshot, error) {
	project, err := b.workspace.Project(ctx)
	if err != nil {
		return domain.ContextSnapshot{}, fmt.Errorf("project info: %w", err)
	}
	layers, err := b.workspace.Layers(ctx)
	if err != nil {
		return domain.ContextSnapshot{}, fmt.Errorf("layers: %w", err)
	}
	tree, err := b.workspace.Tree(ctx)
	if err != nil {
		return domain.ContextSnapshot{}, fmt.Errorf("layer tree: %w", err)
	}
	extent, err := b.workspace.CanvasExtent(ctx)
	if err != nil {
		return domain.ContextSnapshot{}, fmt.Errorf("canvas extent: %w", err)
	}

	if project.Title == "" {
		project.Title = "Untitled Project"
	}
	if project.Filename == "" {
		project.Filename = "Unsaved Project"
	}
	project.LayerCount = len(layers)

	summaries := make([]domain.LayerSummary, 0, len(layers))
	selected := map[string]int{}
	for _, layer := range layers {
		if layer.Kind == domain.DataVector && layer.SelectedCount > 0 {
			selected[layer.Name] = layer.SelectedCount
		}
		if !layer.Valid {
			continue
		}
		summaries = append(summaries, b.summarize(layer))
	}
	sort.SliceStable(summaries, func(i, j int) bool {
		if summaries[i].IsVisible != summaries[j].IsVisible {
			return summaries[i].IsVisible
		}
		return strings.ToLower(summaries[i].Name) < strings.ToLower(summaries[j].Name)
	})

	projectCRS := project.CRS
	if projectCRS == "" {
		projectCRS = "Unknown"
	}
	canvas := "Unknown"
	if !extent.IsEmpty() {
		canvas = extent.CanvasString()
	}
	if tree.Groups == nil {
		tree.Groups = []domain.GroupInfo{}
	}
	if tree.LayerOrder == nil {
		tree.LayerOrder = []domain.LayerOrderEntry{}
	}

	return domain.ContextSnapshot{
		Project:             project,
		ActiveLayers:        summaries,
		ProjectCRS:          projectCRS,
		CanvasExtent:        canvas,
		SelectedFeatures:    selected,
		LayerTree:           tree,
		AvailableOperations: b.catalog.Names(),
	}, nil
}

func (b *Builder) summarize(layer domain.Layer) domain.LayerSummary {
	summary := domain.LayerSummary{
		Name:      layer.Name,
		ID:        layer.ID,
		Type:      layer.Type(),
		IsVisible: layer.Visible,
		CRS:       layer.CRS,
		Extent:    layer.Extent.String(),
		Provider:  layer.Provider,
	}

	switch layer.Kind {
	case domain.DataVector:
		summary.GeometryType = string(layer.Geometry)
		if summary.GeometryType == "" {
			summary.GeometryType = string(domain.GeometryUnknown)
		}
		summary.FeatureCount = layer.FeatureCount
		summary.SelectedCount = layer.SelectedCount
		summary.IsEditable = layer.Editable
		summary.Fields = make([]string, 0, len(layer.Fields))
		for _, field := range layer.Fields {
			summary.Fields = append(summary.Fields, field.Name)
		}
		limit := b.settings.GetMaxNumericFields()
		for i := 0; i < len(layer.Fields) && i < limit; i++ {
			if layer.Fields[i].Numeric {
				summary.NumericFields = append(summary.NumericFields, layer.Fields[i].Name)
			}
		}
	case domain.DataRaster:
		summary.BandCount = layer.BandCount
		summary.Width = layer.Width
		summary.Height = layer.Height
		summary.PixelSizeX = layer.PixelSizeX
		summary.PixelSizeY = layer.PixelSizeY
		limit := b.settings.GetMaxBands()
		for i := 1; i <= layer.BandCount && i <= limit; i++ {
			name := fmt.Sprintf("Band %d", i)
			if i-1 < len(layer.BandNames) && layer.BandNames[i-1] != "" {
				name = layer.BandNames[i-1]
			}
			summary.Bands = append(summary.Bands, domain.BandInfo{Index: i, Name: name})
		}
	}
	return summary
}

// Summary renders the short human-readable description shown at confirmation.
func Summary(snapshot domain.ContextSnapshot) string {
	visible := snapshot.VisibleLayers()

	var sb strings.Builder
	sb.WriteString("QGIS Project Context:\n")
	fmt.Fprintf(&sb, "- Project: %s\n", snapshot.Project.Title)
	fmt.Fprintf(&sb, "- CRS: %s\n", snapshot.ProjectCRS)
	fmt.Fprintf(&sb, "- Total layers: %d\n", len(snapshot.ActiveLayers))
	fmt.Fprintf(&sb, "- Visible layers: %d\n", len(visible))

	if len(visible) > 0 {
		names := make([]string, 0, domain.MaxSummaryLayerNames)
		for i := 0; i < len(visible) && i < domain.MaxSummaryLayerNames; i++ {
			names = append(names, visible[i].Name)
		}
		sb.WriteString("- Layer names: " + strings.Join(names, ", "))
		if extra := len(visible) - domain.MaxSummaryLayerNames; extra > 0 {
			fmt.Fprintf(&sb, " (and %d more)", extra)
		}
	}
	return sb.String()
}
