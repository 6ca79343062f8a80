package workspace

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/doeshing/geogenie-go/internal/domain"
	"github.com/doeshing/geogenie-go/internal/ports"
)

// projectFile is the on-disk workspace: an ordered list of data sources.
type projectFile struct {
	Title  string         `yaml:"title"`
	CRS    string         `yaml:"crs"`
	Canvas *domain.Extent `yaml:"canvas,omitempty"`
	Layers []projectLayer `yaml:"layers"`
}

type projectLayer struct {
	ID       string         `yaml:"id"`
	Name     string         `yaml:"name"`
	Source   string         `yaml:"source"`
	Kind     string         `yaml:"kind,omitempty"`
	Group    string         `yaml:"group,omitempty"`
	Hidden   bool           `yaml:"hidden,omitempty"`
	Editable bool           `yaml:"editable,omitempty"`
	Selected int            `yaml:"selected,omitempty"`
	CRS      string         `yaml:"crs,omitempty"`
	Extent   *domain.Extent `yaml:"extent,omitempty"`

	// raster metadata, GeoPackage tiles and GeoTIFFs are not read directly
	Bands      int      `yaml:"bands,omitempty"`
	BandNames  []string `yaml:"band_names,omitempty"`
	Width      int      `yaml:"width,omitempty"`
	Height     int      `yaml:"height,omitempty"`
	PixelSizeX float64  `yaml:"pixel_size_x,omitempty"`
	PixelSizeY float64  `yaml:"pixel_size_y,omitempty"`
}

// Project is a WorkspaceQuery over a YAML project file whose vector layers live in GeoPackages.
type Project struct {
	path   string
	logger ports.Logger

	mu   sync.Mutex
	file projectFile
}

// OpenProject loads path. A missing file yields an empty project that is created on first Attach.
func OpenProject(path string, logger ports.Logger) (*Project, error) {
	p := &Project{path: path, logger: logger}
	if err := p.reload(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Project) reload() error {
	data, err := os.ReadFile(p.path)
	if errors.Is(err, os.ErrNotExist) {
		p.mu.Lock()
		p.file = projectFile{}
		p.mu.Unlock()
		return nil
	}
	if err != nil {
		return fmt.Errorf("read project %s: %w", p.path, err)
	}
	var file projectFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse project %s: %w", p.path, err)
	}
	p.mu.Lock()
	p.file = file
	p.mu.Unlock()
	return nil
}

func (p *Project) snapshot() projectFile {
	p.mu.Lock()
	defer p.mu.Unlock()
	file := p.file
	file.Layers = append([]projectLayer(nil), p.file.Layers...)
	return file
}

func (p *Project) Project(ctx context.Context) (domain.ProjectInfo, error) {
	file := p.snapshot()
	title := file.Title
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(p.path), filepath.Ext(p.path))
	}
	return domain.ProjectInfo{
		Title:      title,
		Filename:   p.path,
		LayerCount: len(file.Layers),
		CRS:        file.CRS,
	}, nil
}

func (p *Project) Layers(ctx context.Context) ([]domain.Layer, error) {
	file := p.snapshot()
	layers := make([]domain.Layer, 0, len(file.Layers))
	for _, entry := range file.Layers {
		layers = append(layers, p.describe(ctx, entry))
	}
	return layers, nil
}

func (p *Project) LayerByID(ctx context.Context, id string) (domain.Layer, bool, error) {
	for _, entry := range p.snapshot().Layers {
		if entry.ID == id {
			return p.describe(ctx, entry), true, nil
		}
	}
	return domain.Layer{}, false, nil
}

func (p *Project) Tree(ctx context.Context) (domain.LayerTreeInfo, error) {
	file := p.snapshot()
	groupOf := make(map[string]string, len(file.Layers))
	layers := make([]domain.Layer, 0, len(file.Layers))
	for _, entry := range file.Layers {
		groupOf[entry.ID] = entry.Group
		layers = append(layers, domain.Layer{ID: entry.ID, Name: entry.Name, Visible: !entry.Hidden})
	}
	return buildTree(layers, groupOf), nil
}

func (p *Project) CanvasExtent(ctx context.Context) (domain.Extent, error) {
	file := p.snapshot()
	if file.Canvas != nil {
		return *file.Canvas, nil
	}
	layers, err := p.Layers(ctx)
	if err != nil {
		return domain.Extent{}, err
	}
	var canvas domain.Extent
	for _, layer := range layers {
		if layer.Valid {
			canvas = canvas.Union(layer.Extent)
		}
	}
	return canvas, nil
}

// Attach appends the output to the project file and saves it.
func (p *Project) Attach(ctx context.Context, req domain.AttachRequest) (string, error) {
	source, kind := req.Path, req.Kind
	if req.Handle != nil {
		source, kind = req.Handle.Source(), req.Handle.Kind()
	}
	if source == "" {
		return "", fmt.Errorf("attach %s: neither handle nor path given", req.Name)
	}
	if strings.HasPrefix(source, "memory:") {
		return "", fmt.Errorf("attach %s: in-memory output %s cannot be stored in a project file", req.Name, source)
	}

	id := strings.ReplaceAll(req.Name, " ", "_") + "_" + uuid.NewString()[:8]
	entry := projectLayer{ID: id, Name: req.Name, Source: source, Kind: string(kind)}

	p.mu.Lock()
	p.file.Layers = append(p.file.Layers, entry)
	file := p.file
	p.mu.Unlock()

	if err := p.save(file); err != nil {
		return "", err
	}
	p.logger.Info("layer attached", map[string]interface{}{"layer_id": id, "source": source})
	return id, nil
}

func (p *Project) save(file projectFile) error {
	data, err := yaml.Marshal(file)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p.path), domain.DirectoryPermissions); err != nil {
		return err
	}
	return os.WriteFile(p.path, data, 0o644)
}

// Refresh re-reads the project file.
func (p *Project) Refresh(ctx context.Context) {
	if err := p.reload(); err != nil {
		p.logger.Warn("project refresh failed", map[string]interface{}{"error": err.Error()})
	}
}

func (p *Project) CreateSpatialIndex(ctx context.Context, layerID string) error {
	var entry *projectLayer
	for _, candidate := range p.snapshot().Layers {
		if candidate.ID == layerID {
			c := candidate
			entry = &c
			break
		}
	}
	if entry == nil {
		return fmt.Errorf("%w: %s", domain.ErrLayerNotFound, layerID)
	}
	if dataKind(*entry) != domain.DataVector {
		return fmt.Errorf("layer %s is not a vector layer", entry.Name)
	}

	path, table := splitSource(entry.Source)
	db, err := openGeoPackage(path)
	if err != nil {
		return err
	}
	defer db.Close()
	if table == "" {
		if table, err = firstFeatureTable(ctx, db); err != nil {
			return err
		}
	}
	t, err := describeTable(ctx, db, table)
	if err != nil {
		return err
	}
	return createRTree(ctx, db, t)
}

// describe reads layer metadata; unreadable sources produce an invalid layer rather than an error.
func (p *Project) describe(ctx context.Context, entry projectLayer) domain.Layer {
	layer := domain.Layer{
		ID:            entry.ID,
		Name:          entry.Name,
		Kind:          dataKind(entry),
		Visible:       !entry.Hidden,
		CRS:           entry.CRS,
		SelectedCount: entry.Selected,
		Editable:      entry.Editable,
		Source:        entry.Source,
	}
	if entry.Extent != nil {
		layer.Extent = *entry.Extent
	}

	path, table := splitSource(entry.Source)
	if _, err := os.Stat(path); err != nil {
		p.logger.Warn("layer source unavailable", map[string]interface{}{"layer": entry.Name, "source": entry.Source})
		return layer
	}

	if layer.Kind == domain.DataRaster {
		layer.Valid = true
		layer.Provider = "gdal"
		layer.BandCount = entry.Bands
		layer.BandNames = entry.BandNames
		layer.Width = entry.Width
		layer.Height = entry.Height
		layer.PixelSizeX = entry.PixelSizeX
		layer.PixelSizeY = entry.PixelSizeY
		return layer
	}

	db, err := openGeoPackage(path)
	if err != nil {
		p.logger.Warn("open geopackage failed", map[string]interface{}{"layer": entry.Name, "error": err.Error()})
		return layer
	}
	defer db.Close()

	if table == "" {
		if table, err = firstFeatureTable(ctx, db); err != nil {
			p.logger.Warn("no feature table", map[string]interface{}{"layer": entry.Name, "error": err.Error()})
			return layer
		}
	}
	t, err := describeTable(ctx, db, table)
	if err != nil {
		p.logger.Warn("describe layer failed", map[string]interface{}{"layer": entry.Name, "error": err.Error()})
		return layer
	}

	layer.Valid = true
	layer.Provider = "ogr"
	layer.Geometry = t.GeometryType
	layer.FeatureCount = t.Count
	layer.Fields = t.Fields
	layer.HasSpatialIndex = t.HasIndex
	if layer.CRS == "" {
		layer.CRS = t.CRS
	}
	if entry.Extent == nil {
		layer.Extent = t.Extent
	}
	return layer
}

func dataKind(entry projectLayer) domain.DataKind {
	switch strings.ToLower(entry.Kind) {
	case "raster":
		return domain.DataRaster
	case "vector", "":
		return domain.DataVector
	default:
		return domain.DataOther
	}
}

var _ ports.WorkspaceQuery = (*Project)(nil)
