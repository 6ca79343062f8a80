package workspace

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/doeshing/geogenie-go/internal/domain"
	"github.com/doeshing/geogenie-go/internal/ports"
)

// Memory is a session-scoped workspace held entirely in memory.
// It backs dry runs and tests.
type Memory struct {
	mu       sync.Mutex
	project  domain.ProjectInfo
	layers   []domain.Layer
	canvas   domain.Extent
	attached []domain.AttachRequest
	indexErr map[string]error
}

// NewMemory seeds a workspace with layers in tree order.
func NewMemory(project domain.ProjectInfo, layers ...domain.Layer) *Memory {
	m := &Memory{project: project, indexErr: map[string]error{}}
	for _, layer := range layers {
		m.layers = append(m.layers, layer)
		m.canvas = m.canvas.Union(layer.Extent)
	}
	return m
}

// FailIndex makes CreateSpatialIndex fail for one layer id.
func (m *Memory) FailIndex(layerID string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.indexErr[layerID] = err
}

// Attached returns every attach request received so far.
func (m *Memory) Attached() []domain.AttachRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.AttachRequest(nil), m.attached...)
}

func (m *Memory) Project(ctx context.Context) (domain.ProjectInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	info := m.project
	info.LayerCount = len(m.layers)
	return info, nil
}

func (m *Memory) Layers(ctx context.Context) ([]domain.Layer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Layer(nil), m.layers...), nil
}

func (m *Memory) LayerByID(ctx context.Context, id string) (domain.Layer, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, layer := range m.layers {
		if layer.ID == id {
			return layer, true, nil
		}
	}
	return domain.Layer{}, false, nil
}

func (m *Memory) Tree(ctx context.Context) (domain.LayerTreeInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return buildTree(m.layers, nil), nil
}

func (m *Memory) CanvasExtent(ctx context.Context) (domain.Extent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.canvas, nil
}

func (m *Memory) Attach(ctx context.Context, req domain.AttachRequest) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if req.Handle == nil && req.Path == "" {
		return "", fmt.Errorf("attach %s: neither handle nor path given", req.Name)
	}
	m.attached = append(m.attached, req)
	kind := req.Kind
	source := req.Path
	if req.Handle != nil {
		kind = req.Handle.Kind()
		source = req.Handle.Source()
	}
	id := req.Name + "_" + uuid.NewString()[:8]
	m.layers = append(m.layers, domain.Layer{
		ID:      id,
		Name:    req.Name,
		Kind:    kind,
		Valid:   true,
		Visible: true,
		Source:  source,
	})
	return id, nil
}

func (m *Memory) Refresh(ctx context.Context) {}

func (m *Memory) CreateSpatialIndex(ctx context.Context, layerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.indexErr[layerID]; err != nil {
		return err
	}
	for i := range m.layers {
		if m.layers[i].ID == layerID {
			m.layers[i].HasSpatialIndex = true
			return nil
		}
	}
	return fmt.Errorf("%w: %s", domain.ErrLayerNotFound, layerID)
}

var _ ports.WorkspaceQuery = (*Memory)(nil)
