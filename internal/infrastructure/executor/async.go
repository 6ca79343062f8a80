package executor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/doeshing/geogenie-go/internal/domain"
	"github.com/doeshing/geogenie-go/internal/pkg/metrics"
	"github.com/doeshing/geogenie-go/internal/ports"
)

// Phase percentages reported around the backend call.
const (
	phaseValidated   = 10
	phaseIndexed     = 20
	phaseBackendEnd  = 90
	phasePostProcess = 100
	backendSpan      = phaseBackendEnd - phaseIndexed
)

// indexedParams are the layer-reference parameters considered by the spatial index pass.
var indexedParams = []string{"INPUT", "OVERLAY", "LAYER", "SOURCE_LAYER", "TARGET_LAYER"}

// Async runs at most one backend operation at a time on a background goroutine.
type Async struct {
	runner    ports.BackendRunner
	workspace ports.WorkspaceQuery
	probe     ports.OutputProbe
	settings  domain.ExecutionSettings
	logger    ports.Logger

	mu      sync.Mutex
	current *run
}

// NewAsync builds an executor. workspace and probe may be nil.
func NewAsync(runner ports.BackendRunner, workspace ports.WorkspaceQuery, probe ports.OutputProbe, settings domain.ExecutionSettings, logger ports.Logger) *Async {
	return &Async{
		runner:    runner,
		workspace: workspace,
		probe:     probe,
		settings:  settings,
		logger:    logger,
	}
}

// Submit starts req in the background. A run already in flight is cancelled first and
// given up to the configured grace period to unwind.
func (a *Async) Submit(ctx context.Context, req domain.ExecutionRequest) (domain.RunHandle, error) {
	if req.ExecutionID == "" {
		return domain.RunHandle{}, errors.New("execution id is required")
	}

	a.mu.Lock()
	previous := a.current
	a.mu.Unlock()
	if previous != nil {
		a.logger.Info("replacing in-flight run", map[string]interface{}{"run_id": previous.id})
		previous.requestCancel()
		select {
		case <-previous.done:
		case <-time.After(a.settings.GetCancelGrace()):
			a.logger.Warn("previous run did not stop within grace period", map[string]interface{}{
				"run_id": previous.id,
				"grace":  a.settings.GetCancelGrace().String(),
			})
		}
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	r := &run{
		id:       uuid.NewString(),
		execID:   req.ExecutionID,
		cancel:   cancel,
		done:     make(chan struct{}),
		progress: make(chan domain.ProgressEvent, a.settings.GetProgressBuffer()),
		terminal: make(chan domain.TerminalEvent, 1),
	}
	req.Parameters = deepCopy(req.Parameters)

	a.mu.Lock()
	a.current = r
	a.mu.Unlock()

	go a.work(runCtx, r, req)

	return domain.RunHandle{
		ID:          r.id,
		ExecutionID: req.ExecutionID,
		Progress:    r.progress,
		Terminal:    r.terminal,
	}, nil
}

// Cancel requests cooperative cancellation of the in-flight run without waiting for it.
func (a *Async) Cancel() {
	a.mu.Lock()
	current := a.current
	a.mu.Unlock()
	if current != nil {
		a.logger.Info("cancel requested", map[string]interface{}{"run_id": current.id})
		current.requestCancel()
	}
}

// CancelRun cancels the in-flight run only if it is runID.
func (a *Async) CancelRun(runID string) {
	a.mu.Lock()
	current := a.current
	a.mu.Unlock()
	if current != nil && current.id == runID {
		a.logger.Info("cancel requested", map[string]interface{}{"run_id": runID})
		current.requestCancel()
	}
}

// Current returns the id of the in-flight run, if any.
func (a *Async) Current() (string, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.current == nil {
		return "", false
	}
	return a.current.id, true
}

func (a *Async) work(ctx context.Context, r *run, req domain.ExecutionRequest) {
	log := a.logger.With(map[string]interface{}{"run_id": r.id, "execution_id": r.execID})
	start := time.Now()
	metrics.RunsActive.Inc()

	defer func() {
		metrics.RunsActive.Dec()
		metrics.RunDuration.WithLabelValues(r.execID).Observe(time.Since(start).Seconds())
		a.mu.Lock()
		if a.current == r {
			a.current = nil
		}
		a.mu.Unlock()
		close(r.done)
	}()
	defer func() {
		if rec := recover(); rec != nil {
			err := fmt.Errorf("%v", rec)
			log.Error("run panicked", err, nil)
			r.finish(domain.TerminalFailed, nil, fmt.Sprintf("Error executing %s: %v", r.execID, err))
		}
	}()

	kind, envelope, errMsg := a.execute(ctx, r, req, log)
	kind = r.finish(kind, envelope, errMsg)
	metrics.RunsTotal.WithLabelValues(r.execID, string(kind)).Inc()
	log.Info("run finished", map[string]interface{}{"kind": string(kind), "duration_ms": time.Since(start).Milliseconds()})
}

func (a *Async) execute(ctx context.Context, r *run, req domain.ExecutionRequest, log ports.Logger) (domain.TerminalKind, *domain.ResultEnvelope, string) {
	if !a.runner.Has(ctx, req.ExecutionID) {
		msg := fmt.Sprintf("Algorithm '%s' not found", req.ExecutionID)
		log.Error("unknown execution id", domain.ErrBackendFailed, nil)
		return domain.TerminalFailed, nil, msg
	}
	r.report(phaseValidated, "Algorithm validated")
	if r.canceled() {
		return domain.TerminalCancelled, nil, ""
	}

	a.ensureIndexes(ctx, req.Parameters, log)
	r.report(phaseIndexed, "Spatial indexes checked")
	if r.canceled() {
		return domain.TerminalCancelled, nil, ""
	}

	log.Info("backend run started", nil)
	raw, err := a.runner.Run(ctx, req.ExecutionID, layerRefs(req), &feedback{run: r, logger: log})
	if r.canceled() {
		return domain.TerminalCancelled, nil, ""
	}
	if err != nil {
		log.Error("backend run failed", err, nil)
		return domain.TerminalFailed, nil, fmt.Sprintf("Error executing %s: %v", req.ExecutionID, err)
	}
	r.report(phaseBackendEnd, "Processing results")

	envelope := &domain.ResultEnvelope{
		Success:     true,
		ExecutionID: req.ExecutionID,
		Parameters:  req.Parameters,
		RawResult:   raw,
		Outputs:     normalizeOutputs(raw),
		Statistics:  map[string]domain.OutputStats{},
	}
	a.collectStatistics(ctx, envelope, log)
	if r.canceled() {
		return domain.TerminalCancelled, nil, ""
	}
	r.report(phasePostProcess, "Completed")
	return domain.TerminalCompleted, envelope, ""
}

// layerRefs tags layer-kind values so the runner resolves only those to data sources.
func layerRefs(req domain.ExecutionRequest) map[string]interface{} {
	if len(req.LayerParams) == 0 {
		return req.Parameters
	}
	params := make(map[string]interface{}, len(req.Parameters))
	for name, value := range req.Parameters {
		params[name] = value
	}
	for _, name := range req.LayerParams {
		if id, ok := params[name].(string); ok && id != "" {
			params[name] = domain.LayerValue(id)
		}
	}
	return params
}

// ensureIndexes is best effort; failures never block the run.
func (a *Async) ensureIndexes(ctx context.Context, params map[string]interface{}, log ports.Logger) {
	if a.workspace == nil {
		return
	}
	for _, name := range indexedParams {
		id, ok := params[name].(string)
		if !ok || id == "" {
			continue
		}
		layer, found, err := a.workspace.LayerByID(ctx, id)
		if err != nil || !found || layer.Kind != domain.DataVector || layer.HasSpatialIndex {
			continue
		}
		if err := a.workspace.CreateSpatialIndex(ctx, id); err != nil {
			log.Warn("spatial index creation failed", map[string]interface{}{"layer": layer.Name, "error": err.Error()})
			continue
		}
		log.Debug("spatial index created", map[string]interface{}{"layer": layer.Name})
	}
}

func (a *Async) collectStatistics(ctx context.Context, envelope *domain.ResultEnvelope, log ports.Logger) {
	if a.probe == nil {
		return
	}
	for _, out := range envelope.Outputs {
		if out.Kind != domain.DataVector || out.Path == "" {
			continue
		}
		stats, err := a.probe.Probe(ctx, out.Path, out.Kind)
		if err != nil {
			log.Warn("output statistics unavailable", map[string]interface{}{
				"category":  string(domain.CategoryPostProcessing),
				"parameter": out.Parameter,
				"error":     err.Error(),
			})
			continue
		}
		envelope.Statistics[out.Parameter] = stats
	}
}
