package executor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doeshing/geogenie-go/internal/domain"
	"github.com/doeshing/geogenie-go/internal/infrastructure/workspace"
	"github.com/doeshing/geogenie-go/internal/pkg/logger"
	"github.com/doeshing/geogenie-go/internal/ports"
)

type stubRunner struct {
	mu     sync.Mutex
	known  map[string]bool
	run    func(ctx context.Context, params map[string]interface{}, fb ports.Feedback) (map[string]interface{}, error)
	params []map[string]interface{}
}

func (s *stubRunner) Has(_ context.Context, id string) bool {
	return s.known[id]
}

func (s *stubRunner) Run(ctx context.Context, _ string, params map[string]interface{}, fb ports.Feedback) (map[string]interface{}, error) {
	s.mu.Lock()
	s.params = append(s.params, params)
	s.mu.Unlock()
	return s.run(ctx, params, fb)
}

type stubProbe struct {
	stats domain.OutputStats
	err   error
}

func (p stubProbe) Probe(context.Context, string, domain.DataKind) (domain.OutputStats, error) {
	return p.stats, p.err
}

type memHandle struct{}

func (memHandle) Name() string {
	return "Buffered"
}

func (memHandle) Source() string {
	return "memory:buffered"
}

func (memHandle) Kind() domain.DataKind {
	return domain.DataVector
}

func collect(t *testing.T, h domain.RunHandle) ([]domain.ProgressEvent, domain.TerminalEvent) {
	t.Helper()
	var progress []domain.ProgressEvent
	select {
	case term := <-h.Terminal:
		for ev := range h.Progress {
			progress = append(progress, ev)
		}
		return progress, term
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for terminal event")
	}
	return nil, domain.TerminalEvent{}
}

func newTestAsync(t *testing.T, runner ports.BackendRunner, ws ports.WorkspaceQuery, probe ports.OutputProbe) *Async {
	return NewAsync(runner, ws, probe, domain.ExecutionSettings{CancelGrace: 2 * time.Second}, logger.NewTest(t))
}

func TestAsync_CompletedRun(t *testing.T) {
	ws := workspace.NewMemory(domain.ProjectInfo{},
		domain.Layer{ID: "roads_1", Name: "Roads", Kind: domain.DataVector, Valid: true},
	)
	runner := &stubRunner{
		known: map[string]bool{"native:buffer": true},
		run: func(_ context.Context, _ map[string]interface{}, fb ports.Feedback) (map[string]interface{}, error) {
			fb.SetProgress(50)
			fb.SetProgress(40)
			fb.PushInfo("halfway")
			return map[string]interface{}{"OUTPUT": "buffered_abc", "OUTPUT_LAYER": memHandle{}, "COUNT": 3}, nil
		},
	}
	probe := stubProbe{stats: domain.OutputStats{FeatureCount: 7, GeometryType: "Polygon"}}
	exec := newTestAsync(t, runner, ws, probe)

	params := map[string]interface{}{"INPUT": "roads_1", "DISTANCE": 10.0}
	handle, err := exec.Submit(context.Background(), domain.ExecutionRequest{ExecutionID: "native:buffer", Parameters: params})
	require.NoError(t, err)
	params["DISTANCE"] = 99.0

	progress, term := collect(t, handle)
	require.Equal(t, domain.TerminalCompleted, term.Kind, term.Error)
	require.NotNil(t, term.Envelope)

	env := term.Envelope
	assert.True(t, env.Success)
	assert.Equal(t, 10.0, env.Parameters["DISTANCE"])
	require.Len(t, env.Outputs, 2)
	assert.Equal(t, "memory:buffered_abc", env.Outputs[0].Path)
	assert.Equal(t, "OUTPUT_LAYER", env.Outputs[1].Parameter)
	assert.NotNil(t, env.Outputs[1].Handle)
	assert.Equal(t, int64(7), env.Statistics["OUTPUT"].FeatureCount)

	last := 0
	for _, ev := range progress {
		assert.GreaterOrEqual(t, ev.Percent, last)
		last = ev.Percent
	}
	assert.Equal(t, 100, last)

	layer, _, err := ws.LayerByID(context.Background(), "roads_1")
	require.NoError(t, err)
	assert.True(t, layer.HasSpatialIndex)

	_, busy := exec.Current()
	assert.False(t, busy)
}

func TestAsync_UnknownAlgorithm(t *testing.T) {
	exec := newTestAsync(t, &stubRunner{known: map[string]bool{}}, nil, nil)
	handle, err := exec.Submit(context.Background(), domain.ExecutionRequest{ExecutionID: "native:nope"})
	require.NoError(t, err)

	_, term := collect(t, handle)
	assert.Equal(t, domain.TerminalFailed, term.Kind)
	assert.Equal(t, "Algorithm 'native:nope' not found", term.Error)
}

func TestAsync_BackendError(t *testing.T) {
	runner := &stubRunner{
		known: map[string]bool{"native:clip": true},
		run: func(context.Context, map[string]interface{}, ports.Feedback) (map[string]interface{}, error) {
			return nil, errors.New("invalid geometry")
		},
	}
	handle, err := newTestAsync(t, runner, nil, nil).Submit(context.Background(), domain.ExecutionRequest{ExecutionID: "native:clip"})
	require.NoError(t, err)

	_, term := collect(t, handle)
	assert.Equal(t, domain.TerminalFailed, term.Kind)
	assert.Equal(t, "Error executing native:clip: invalid geometry", term.Error)
}

func TestAsync_IndexFailureDoesNotBlock(t *testing.T) {
	ws := workspace.NewMemory(domain.ProjectInfo{},
		domain.Layer{ID: "roads_1", Name: "Roads", Kind: domain.DataVector, Valid: true},
	)
	ws.FailIndex("roads_1", errors.New("layer is locked"))
	runner := &stubRunner{
		known: map[string]bool{"native:buffer": true},
		run: func(context.Context, map[string]interface{}, ports.Feedback) (map[string]interface{}, error) {
			return map[string]interface{}{}, nil
		},
	}
	handle, err := newTestAsync(t, runner, ws, stubProbe{err: errors.New("unreadable")}).
		Submit(context.Background(), domain.ExecutionRequest{ExecutionID: "native:buffer", Parameters: map[string]interface{}{"INPUT": "roads_1"}})
	require.NoError(t, err)

	_, term := collect(t, handle)
	assert.Equal(t, domain.TerminalCompleted, term.Kind)
	assert.Empty(t, term.Envelope.Outputs)
}

func TestAsync_OnlyLayerParamsAreTagged(t *testing.T) {
	runner := &stubRunner{
		known: map[string]bool{"native:dissolve": true},
		run: func(context.Context, map[string]interface{}, ports.Feedback) (map[string]interface{}, error) {
			return map[string]interface{}{}, nil
		},
	}
	handle, err := newTestAsync(t, runner, nil, nil).Submit(context.Background(), domain.ExecutionRequest{
		ExecutionID: "native:dissolve",
		Parameters:  map[string]interface{}{"INPUT": "roads_1", "FIELD": "roads_1"},
		LayerParams: []string{"INPUT"},
	})
	require.NoError(t, err)

	_, term := collect(t, handle)
	require.Equal(t, domain.TerminalCompleted, term.Kind, term.Error)
	assert.Equal(t, "roads_1", term.Envelope.Parameters["INPUT"])

	runner.mu.Lock()
	defer runner.mu.Unlock()
	require.Len(t, runner.params, 1)
	assert.Equal(t, domain.LayerValue("roads_1"), runner.params[0]["INPUT"])
	assert.Equal(t, "roads_1", runner.params[0]["FIELD"])
}

func blockingRunner(started chan<- struct{}) *stubRunner {
	return &stubRunner{
		known: map[string]bool{"native:buffer": true},
		run: func(ctx context.Context, _ map[string]interface{}, fb ports.Feedback) (map[string]interface{}, error) {
			if started != nil {
				started <- struct{}{}
			}
			for !fb.Canceled() {
				select {
				case <-ctx.Done():
					return nil, ctx.Err()
				case <-time.After(5 * time.Millisecond):
				}
			}
			return map[string]interface{}{"OUTPUT": "late"}, nil
		},
	}
}

func TestAsync_CancelYieldsCancelledTerminal(t *testing.T) {
	started := make(chan struct{}, 1)
	exec := newTestAsync(t, blockingRunner(started), nil, nil)

	handle, err := exec.Submit(context.Background(), domain.ExecutionRequest{ExecutionID: "native:buffer"})
	require.NoError(t, err)
	<-started
	exec.Cancel()

	_, term := collect(t, handle)
	assert.Equal(t, domain.TerminalCancelled, term.Kind)
	assert.Nil(t, term.Envelope)
	assert.Empty(t, term.Error)
}

func TestAsync_CancelRunIgnoresOtherIDs(t *testing.T) {
	started := make(chan struct{}, 1)
	exec := newTestAsync(t, blockingRunner(started), nil, nil)

	handle, err := exec.Submit(context.Background(), domain.ExecutionRequest{ExecutionID: "native:buffer"})
	require.NoError(t, err)
	<-started

	exec.CancelRun("stale-run")
	id, ok := exec.Current()
	require.True(t, ok)
	assert.Equal(t, handle.ID, id)

	exec.CancelRun(handle.ID)
	_, term := collect(t, handle)
	assert.Equal(t, domain.TerminalCancelled, term.Kind)
}

func TestAsync_SubmitReplacesInFlightRun(t *testing.T) {
	started := make(chan struct{}, 2)
	runner := blockingRunner(started)
	exec := newTestAsync(t, runner, nil, nil)

	first, err := exec.Submit(context.Background(), domain.ExecutionRequest{ExecutionID: "native:buffer"})
	require.NoError(t, err)
	<-started

	runner.run = func(context.Context, map[string]interface{}, ports.Feedback) (map[string]interface{}, error) {
		return map[string]interface{}{"OUTPUT": "second"}, nil
	}
	second, err := exec.Submit(context.Background(), domain.ExecutionRequest{ExecutionID: "native:buffer"})
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	_, firstTerm := collect(t, first)
	assert.Equal(t, domain.TerminalCancelled, firstTerm.Kind)

	_, secondTerm := collect(t, second)
	assert.Equal(t, domain.TerminalCompleted, secondTerm.Kind)
	assert.Equal(t, "memory:second", secondTerm.Envelope.Outputs[0].Path)

	select {
	case extra := <-first.Terminal:
		t.Fatalf("unexpected second terminal event: %+v", extra)
	default:
	}
}

func TestNormalizeOutputs(t *testing.T) {
	outputs := normalizeOutputs(map[string]interface{}{
		"OUTPUT":        "/tmp/out.gpkg",
		"OUTPUT_RASTER": "dem_out.tif",
		"OUTPUT_MEM":    "tmp_123",
		"OUTPUT_URI":    "ogr:dbname='x'",
		"OUTPUT_EMPTY":  "",
		"NOT_OUTPUT":    "ignored",
	})

	require.Len(t, outputs, 4)
	got := map[string]domain.OutputDescriptor{}
	for _, out := range outputs {
		got[out.Parameter] = out
	}
	assert.Equal(t, "/tmp/out.gpkg", got["OUTPUT"].Path)
	assert.Equal(t, "memory:tmp_123", got["OUTPUT_MEM"].Path)
	assert.Equal(t, "dem_out.tif", got["OUTPUT_RASTER"].Path)
	assert.Equal(t, domain.DataRaster, got["OUTPUT_RASTER"].Kind)
	assert.Equal(t, "ogr:dbname='x'", got["OUTPUT_URI"].Path)
}

func TestDeepCopy(t *testing.T) {
	in := map[string]interface{}{
		"FIELDS": []string{"a", "b"},
		"NESTED": map[string]interface{}{"k": []interface{}{1, 2}},
	}
	out := deepCopy(in)
	in["FIELDS"].([]string)[0] = "z"
	in["NESTED"].(map[string]interface{})["k"].([]interface{})[0] = 9

	assert.Equal(t, []string{"a", "b"}, out["FIELDS"])
	assert.Equal(t, []interface{}{1, 2}, out["NESTED"].(map[string]interface{})["k"])
}
