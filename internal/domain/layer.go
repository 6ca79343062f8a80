package domain

// GeometryType of a vector layer.
type GeometryType string

const (
	GeometryPoint   GeometryType = "Point"
	GeometryLine    GeometryType = "Line"
	GeometryPolygon GeometryType = "Polygon"
	GeometryUnknown GeometryType = "Unknown"
	GeometryNull    GeometryType = "Null"
)

// DataKind separates vector from raster datasets.
type DataKind string

const (
	DataVector DataKind = "vector"
	DataRaster DataKind = "raster"
	DataOther  DataKind = "other"
)

// Field is one attribute column.
type Field struct {
	Name    string
	Type    string
	Numeric bool
}

// Layer is the workspace's view of a loaded dataset.
type Layer struct {
	ID              string
	Name            string
	Kind            DataKind
	Geometry        GeometryType
	Valid           bool
	Visible         bool
	CRS             string
	Extent          Extent
	FeatureCount    int64
	Fields          []Field
	SelectedCount   int
	Editable        bool
	Provider        string
	Source          string
	HasSpatialIndex bool

	BandCount  int
	BandNames  []string
	Width      int
	Height     int
	PixelSizeX float64
	PixelSizeY float64
}

// Type classifies the layer for prompts and suggestions.
func (l Layer) Type() LayerType {
	switch l.Kind {
	case DataVector:
		switch l.Geometry {
		case GeometryPoint:
			return LayerTypePoint
		case GeometryLine:
			return LayerTypeLine
		case GeometryPolygon:
			return LayerTypePolygon
		default:
			return LayerTypeVector
		}
	case DataRaster:
		return LayerTypeRaster
	default:
		return LayerTypeOther
	}
}

// Satisfies reports whether the layer meets the constraint.
func (l Layer) Satisfies(c LayerConstraint) bool {
	switch c {
	case LayerAny:
		return true
	case LayerVector:
		return l.Kind == DataVector
	case LayerRaster:
		return l.Kind == DataRaster
	case LayerPoint:
		return l.Kind == DataVector && l.Geometry == GeometryPoint
	case LayerLine:
		return l.Kind == DataVector && l.Geometry == GeometryLine
	case LayerPolygon:
		return l.Kind == DataVector && l.Geometry == GeometryPolygon
	default:
		return false
	}
}

// LayerValidation is the never-failing result of a lookup plus kind check.
type LayerValidation struct {
	Valid bool
	Error string
	Layer *Layer
}

// LayerHandle is an in-memory dataset produced by a backend run.
type LayerHandle interface {
	Name() string
	Source() string
	Kind() DataKind
}

// AttachRequest adds a produced output to the workspace. Handle wins over Path.
type AttachRequest struct {
	Name   string
	Handle LayerHandle
	Path   string
	Kind   DataKind
}
