package domain

// LayerType is the human-readable layer classification embedded in prompts.
type LayerType string

const (
	LayerTypePoint   LayerType = "Point Vector"
	LayerTypeLine    LayerType = "Line Vector"
	LayerTypePolygon LayerType = "Polygon Vector"
	LayerTypeVector  LayerType = "Vector"
	LayerTypeRaster  LayerType = "Raster"
	LayerTypeOther   LayerType = "Other"
)

// IsVector reports whether the type denotes any vector layer.
func (t LayerType) IsVector() bool {
	switch t {
	case LayerTypePoint, LayerTypeLine, LayerTypePolygon, LayerTypeVector:
		return true
	}
	return false
}

// ContextSnapshot holds workspace state injected into prompts and logs.
// Built fresh per request and never mutated afterwards.
type ContextSnapshot struct {
	Project             ProjectInfo
	ActiveLayers        []LayerSummary
	ProjectCRS          string
	CanvasExtent        string
	SelectedFeatures    map[string]int
	LayerTree           LayerTreeInfo
	AvailableOperations []string
}

// ProjectInfo is basic project metadata.
type ProjectInfo struct {
	Title      string
	Filename   string
	IsDirty    bool
	LayerCount int
	CRS        string
}

// LayerSummary is the bounded per-layer description.
type LayerSummary struct {
	Name      string
	ID        string
	Type      LayerType
	IsVisible bool
	CRS       string
	Extent    string

	// vector only
	GeometryType  string
	FeatureCount  int64
	Fields        []string
	SelectedCount int
	IsEditable    bool
	NumericFields []string

	// raster only
	BandCount  int
	Width      int
	Height     int
	PixelSizeX float64
	PixelSizeY float64
	Bands      []BandInfo

	Provider string
}

// BandInfo names one raster band.
type BandInfo struct {
	Index int
	Name  string
}

// LayerTreeInfo summarises groups and top-to-bottom order.
type LayerTreeInfo struct {
	Groups     []GroupInfo
	LayerOrder []LayerOrderEntry
}

// GroupInfo describes one layer-tree group.
type GroupInfo struct {
	Name       string
	IsVisible  bool
	LayerCount int
}

// LayerOrderEntry is one layer in tree order.
type LayerOrderEntry struct {
	Name      string
	IsVisible bool
}

// MinimalSnapshot is returned when context collection fails.
func MinimalSnapshot() ContextSnapshot {
	return ContextSnapshot{
		Project:             ProjectInfo{Title: "Unknown Project"},
		ActiveLayers:        []LayerSummary{},
		ProjectCRS:          "Unknown",
		CanvasExtent:        "Unknown",
		SelectedFeatures:    map[string]int{},
		LayerTree:           LayerTreeInfo{Groups: []GroupInfo{}, LayerOrder: []LayerOrderEntry{}},
		AvailableOperations: []string{},
	}
}

// VisibleLayers returns the visible subset in snapshot order.
func (s ContextSnapshot) VisibleLayers() []LayerSummary {
	var out []LayerSummary
	for _, layer := range s.ActiveLayers {
		if layer.IsVisible {
			out = append(out, layer)
		}
	}
	return out
}
