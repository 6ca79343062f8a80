// Package coordinator drives one natural-language request from prompt to attached result layers.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/doeshing/geogenie-go/internal/application/contextbuilder"
	"github.com/doeshing/geogenie-go/internal/domain"
	"github.com/doeshing/geogenie-go/internal/pkg/metrics"
	"github.com/doeshing/geogenie-go/internal/ports"
)

const (
	eventBuffer        = 64
	maxConfirmAttempts = 3

	noDataMessage = "No data loaded. Please add at least one layer to the project before making a request."
)

// ContextSource builds the snapshot that grounds extraction.
type ContextSource interface {
	Build(ctx context.Context) domain.ContextSnapshot
}

// IntentGateway extracts intents and summarises results.
type IntentGateway interface {
	ExtractIntent(ctx context.Context, prompt string, snapshot domain.ContextSnapshot) domain.RawIntent
	Summarize(ctx context.Context, op string, params map[string]interface{}, envelope domain.ResultEnvelope) string
}

// OperationLookup resolves catalog entries.
type OperationLookup interface {
	Get(name string) (domain.OperationDescriptor, bool)
}

// ParameterValidator normalises raw parameters.
type ParameterValidator interface {
	Validate(ctx context.Context, operation string, raw map[string]interface{}) domain.ValidationResult
}

// RunSubmitter is the async executor as seen by the coordinator.
type RunSubmitter interface {
	Submit(ctx context.Context, req domain.ExecutionRequest) (domain.RunHandle, error)
	CancelRun(runID string)
}

// Dependencies wires a Coordinator.
type Dependencies struct {
	Context   ContextSource
	Gateway   IntentGateway
	Catalog   OperationLookup
	Validator ParameterValidator
	Executor  RunSubmitter
	Workspace ports.WorkspaceQuery
	Confirmer ports.Confirmer
	Logger    ports.Logger
	Settings  domain.Preferences

	// Clock stamps result layer names. Defaults to time.Now.
	Clock func() time.Time
}

type request struct {
	id     string
	cancel context.CancelFunc
	log    ports.Logger
	start  time.Time
	runID  string

	// emitMu serialises the request's events; finished is set once its
	// terminal event is on the way and nothing may follow it.
	emitMu   sync.Mutex
	finished bool
}

// Coordinator owns at most one active request at a time.
type Coordinator struct {
	deps   Dependencies
	events chan domain.Event

	mu      sync.Mutex
	state   domain.State
	current *request
}

// New validates deps and builds a Coordinator in the idle state.
func New(deps Dependencies) (*Coordinator, error) {
	if deps.Context == nil || deps.Gateway == nil || deps.Catalog == nil || deps.Validator == nil ||
		deps.Executor == nil || deps.Workspace == nil || deps.Confirmer == nil || deps.Logger == nil {
		return nil, errors.New("coordinator dependencies not satisfied")
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	return &Coordinator{
		deps:   deps,
		events: make(chan domain.Event, eventBuffer),
		state:  domain.StateIdle,
	}, nil
}

// Events delivers state changes, progress and exactly one terminal event per started request.
func (c *Coordinator) Events() <-chan domain.Event {
	return c.events
}

// State returns the current lifecycle state.
func (c *Coordinator) State() domain.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Process starts a request and reports whether it was accepted.
func (c *Coordinator) Process(ctx context.Context, prompt string) bool {
	_, err := c.Start(ctx, prompt)
	return err == nil
}

// Start begins a request in the background and returns its id. An active request is cancelled first.
func (c *Coordinator) Start(ctx context.Context, prompt string) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		c.deps.Logger.Warn("empty prompt rejected", nil)
		metrics.RequestsTotal.WithLabelValues("rejected").Inc()
		return "", domain.NewStageError(domain.CategoryInput, "Please enter a request.", domain.ErrEmptyPrompt)
	}

	reqCtx, cancel := context.WithCancel(ctx)
	req := &request{id: uuid.NewString(), cancel: cancel, start: time.Now()}
	req.log = c.deps.Logger.With(map[string]interface{}{"request_id": req.id})

	c.mu.Lock()
	previous := c.current
	c.current = req
	c.state = domain.StateIdle
	c.mu.Unlock()

	if previous != nil {
		c.abandon(previous, "Superseded by a new request")
	}

	go c.run(reqCtx, req, prompt)
	return req.id, nil
}

// Cancel abandons the active request, if any, and returns to idle without waiting for the backend.
func (c *Coordinator) Cancel() {
	c.mu.Lock()
	req := c.current
	c.current = nil
	if req != nil {
		c.state = domain.StateIdle
	}
	c.mu.Unlock()
	if req != nil {
		c.abandon(req, "Operation cancelled")
	}
}

func (c *Coordinator) abandon(req *request, reason string) {
	req.log.Info("request cancelled", map[string]interface{}{"reason": reason})
	req.cancel()

	c.mu.Lock()
	runID := req.runID
	c.mu.Unlock()
	if runID != "" {
		c.deps.Executor.CancelRun(runID)
	}

	metrics.RequestsTotal.WithLabelValues("cancelled").Inc()
	ev := domain.Event{Kind: domain.EventCancelled, RequestID: req.id, State: domain.StateIdle, Message: reason}
	// Callers may be the event consumer itself, so this path never blocks.
	if req.emitMu.TryLock() {
		c.handOff(req, ev)
		return
	}
	go func() {
		req.emitMu.Lock()
		c.handOff(req, ev)
	}()
}

// handOff delivers a terminal event without blocking the caller and releases
// req.emitMu once the event is in the channel.
func (c *Coordinator) handOff(req *request, ev domain.Event) {
	if req.finished {
		req.emitMu.Unlock()
		return
	}
	req.finished = true
	select {
	case c.events <- ev:
		req.emitMu.Unlock()
	default:
		go func() {
			defer req.emitMu.Unlock()
			c.events <- ev
		}()
	}
}

func (c *Coordinator) run(ctx context.Context, req *request, prompt string) {
	defer req.cancel()
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic: %v", r)
			req.log.Error("request panicked", err, nil)
			c.fail(req, domain.NewStageError(domain.CategoryExecution, "Internal error while processing the request", err), "")
		}
	}()

	req.log.Info("request started", map[string]interface{}{"prompt": prompt})

	c.transition(req, domain.StateBuildingContext)
	snapshot := c.deps.Context.Build(ctx)
	if c.aborted(ctx, req) {
		return
	}
	if len(snapshot.ActiveLayers) == 0 {
		c.fail(req, domain.NewStageError(domain.CategoryInput, noDataMessage, domain.ErrNoActiveLayers), "")
		return
	}

	c.transition(req, domain.StateExtracting)
	intent := c.extract(ctx, prompt, snapshot)
	if c.aborted(ctx, req) {
		return
	}
	if !intent.Success {
		c.fail(req, domain.NewStageError(domain.CategoryGateway, intent.Error, domain.ErrNoActionableOperation), intent.Reasoning)
		return
	}

	c.transition(req, domain.StateValidating)
	desc, ok := c.deps.Catalog.Get(intent.Operation)
	if !ok {
		c.fail(req, domain.NewStageError(domain.CategoryValidation,
			fmt.Sprintf("Unknown operation: %s", intent.Operation), domain.ErrUnknownOperation), intent.Reasoning)
		return
	}
	result := c.deps.Validator.Validate(ctx, desc.Name, intent.Parameters)
	req.log.Info("parameters validated", map[string]interface{}{
		"operation": desc.Name,
		"valid":     result.Valid,
		"errors":    len(result.Errors),
		"warnings":  len(result.Warnings),
		"missing":   result.MissingRequired,
	})

	c.transition(req, domain.StateAwaitingConfirmation)
	params, proceed := c.confirm(ctx, req, desc, result, snapshot, intent.Reasoning)
	if !proceed {
		return
	}

	c.transition(req, domain.StateDispatched)
	term, ok := c.dispatch(ctx, req, desc, params)
	if !ok || c.aborted(ctx, req) {
		return
	}

	switch term.Kind {
	case domain.TerminalCancelled:
		c.settleCancelled(req, "Operation cancelled")
	case domain.TerminalFailed:
		c.transition(req, domain.StatePostProcessing)
		c.fail(req, domain.NewStageError(domain.CategoryExecution, term.Error, domain.ErrBackendFailed), "")
	default:
		c.transition(req, domain.StatePostProcessing)
		envelope := c.postProcess(ctx, req, desc, params, term.Envelope)
		c.complete(req, envelope)
	}
}

func (c *Coordinator) extract(ctx context.Context, prompt string, snapshot domain.ContextSnapshot) domain.RawIntent {
	callCtx, cancel := context.WithTimeout(ctx, c.deps.Settings.GetTimeout())
	defer cancel()
	return c.deps.Gateway.ExtractIntent(callCtx, prompt, snapshot)
}

// confirm loops until the user confirms a dispatchable parameter set, declines, or runs out of attempts.
func (c *Coordinator) confirm(
	ctx context.Context,
	req *request,
	desc domain.OperationDescriptor,
	result domain.ValidationResult,
	snapshot domain.ContextSnapshot,
	reasoning string,
) (domain.Params, bool) {
	summary := contextbuilder.Summary(snapshot)
	for attempt := 1; ; attempt++ {
		shown := result
		shown.Parameters = result.Parameters.Clone()
		decision, err := c.deps.Confirmer.Confirm(ctx, domain.ConfirmationRequest{
			RequestID:      req.id,
			Operation:      desc,
			Validation:     shown,
			ContextSummary: summary,
			Reasoning:      reasoning,
			Attempt:        attempt,
		})
		if err != nil && ctx.Err() == nil {
			req.log.Warn("confirmation failed", map[string]interface{}{"error": err.Error()})
		}
		if err != nil || !decision.Confirmed {
			c.settleCancelled(req, "Operation cancelled at confirmation")
			return nil, false
		}

		if decision.Parameters != nil {
			result = c.deps.Validator.Validate(ctx, desc.Name, decision.Parameters)
		}
		if result.Confirmable() {
			return result.Parameters, true
		}

		problems := problemsOf(result)
		req.log.Warn("confirmed parameters are not dispatchable", map[string]interface{}{
			"attempt":  attempt,
			"problems": problems,
		})
		if attempt >= maxConfirmAttempts {
			c.fail(req, domain.NewStageError(domain.CategoryValidation, strings.Join(problems, "; "), nil), "")
			return nil, false
		}
	}
}

func (c *Coordinator) dispatch(ctx context.Context, req *request, desc domain.OperationDescriptor, params domain.Params) (domain.TerminalEvent, bool) {
	handle, err := c.deps.Executor.Submit(ctx, domain.ExecutionRequest{
		ExecutionID: desc.ExecutionID,
		Operation:   desc.Name,
		Parameters:  params.Plain(),
		Context:     map[string]string{"request_id": req.id},
		LayerParams: params.NamesOf(domain.KindLayer),
	})
	if err != nil {
		c.fail(req, domain.NewStageError(domain.CategoryExecution, fmt.Sprintf("Could not start %s", desc.DisplayName()), err), "")
		return domain.TerminalEvent{}, false
	}

	c.mu.Lock()
	req.runID = handle.ID
	c.mu.Unlock()
	req.log.Info("run dispatched", map[string]interface{}{"run_id": handle.ID, "execution_id": desc.ExecutionID})

	progress := handle.Progress
	done := ctx.Done()
	for {
		select {
		case ev, ok := <-progress:
			if !ok {
				progress = nil
				continue
			}
			c.relayProgress(req, ev)
		case term := <-handle.Terminal:
			if progress != nil {
				// The executor closes progress right after the terminal event.
				for ev := range progress {
					c.relayProgress(req, ev)
				}
			}
			return term, true
		case <-done:
			c.deps.Executor.CancelRun(handle.ID)
			done = nil
		}
	}
}

func (c *Coordinator) postProcess(
	ctx context.Context,
	req *request,
	desc domain.OperationDescriptor,
	params domain.Params,
	raw *domain.ResultEnvelope,
) *domain.ResultEnvelope {
	var envelope domain.ResultEnvelope
	if raw != nil {
		envelope = *raw
	}
	envelope.Success = true

	base := ResultName(c.deps.Settings.GetResultPrefix(), desc.Name, params, c.deps.Clock())
	outputs := append([]domain.OutputDescriptor(nil), envelope.Outputs...)
	var attached []string
	for i, out := range outputs {
		name := base
		if len(outputs) > 1 {
			name = base + "_" + strings.ToLower(out.Parameter)
		}
		id, err := c.deps.Workspace.Attach(ctx, domain.AttachRequest{
			Name:   name,
			Handle: out.Handle,
			Path:   out.Path,
			Kind:   out.Kind,
		})
		if err != nil {
			req.log.Warn("failed to attach output", map[string]interface{}{
				"category":  string(domain.CategoryPostProcessing),
				"parameter": out.Parameter,
				"path":      out.Path,
				"error":     err.Error(),
			})
			continue
		}
		outputs[i].LayerName = name
		attached = append(attached, id)
		req.log.Info("output attached", map[string]interface{}{"layer": name, "layer_id": id})
	}
	envelope.Outputs = outputs
	envelope.Attached = attached
	if len(attached) > 0 {
		c.deps.Workspace.Refresh(ctx)
	}

	callCtx, cancel := context.WithTimeout(ctx, c.deps.Settings.GetTimeout())
	defer cancel()
	envelope.Summary = c.deps.Gateway.Summarize(callCtx, desc.Name, envelope.Parameters, envelope)
	return &envelope
}

func (c *Coordinator) transition(req *request, state domain.State) {
	c.mu.Lock()
	if c.current != req {
		c.mu.Unlock()
		return
	}
	c.state = state
	c.mu.Unlock()

	metrics.StateTransitions.WithLabelValues(string(state)).Inc()
	req.log.Debug("state changed", map[string]interface{}{"state": string(state)})
	c.emit(req, domain.Event{Kind: domain.EventStateChanged, RequestID: req.id, State: state}, true)
}

func (c *Coordinator) relayProgress(req *request, ev domain.ProgressEvent) {
	if !c.isCurrent(req) {
		return
	}
	c.emit(req, domain.Event{
		Kind:      domain.EventProgress,
		RequestID: req.id,
		State:     domain.StateDispatched,
		Percent:   ev.Percent,
		Message:   ev.Message,
	}, false)
}

// aborted settles a request whose context ended without an explicit Cancel.
func (c *Coordinator) aborted(ctx context.Context, req *request) bool {
	if !c.isCurrent(req) {
		return true
	}
	if ctx.Err() == nil {
		return false
	}
	c.settleCancelled(req, "Request cancelled")
	return true
}

func (c *Coordinator) fail(req *request, err *domain.StageError, detail string) {
	if !c.settle(req, domain.StateFailed) {
		return
	}
	metrics.StateTransitions.WithLabelValues(string(domain.StateFailed)).Inc()
	metrics.RequestsTotal.WithLabelValues("failed").Inc()
	req.log.Error("request failed", err, map[string]interface{}{
		"category": string(err.Category),
		"detail":   detail,
		"elapsed":  time.Since(req.start).String(),
	})
	c.finish(req, domain.Event{
		Kind:      domain.EventFailed,
		RequestID: req.id,
		State:     domain.StateFailed,
		Error:     err.Message,
		Message:   detail,
		Category:  err.Category,
	})
}

func (c *Coordinator) complete(req *request, envelope *domain.ResultEnvelope) {
	if !c.settle(req, domain.StateCompleted) {
		return
	}
	metrics.StateTransitions.WithLabelValues(string(domain.StateCompleted)).Inc()
	metrics.RequestsTotal.WithLabelValues("completed").Inc()
	req.log.Info("request completed", map[string]interface{}{
		"attached": len(envelope.Attached),
		"elapsed":  time.Since(req.start).String(),
	})
	c.finish(req, domain.Event{
		Kind:      domain.EventCompleted,
		RequestID: req.id,
		State:     domain.StateCompleted,
		Percent:   100,
		Message:   envelope.Summary,
		Envelope:  envelope,
	})
}

func (c *Coordinator) settleCancelled(req *request, reason string) {
	if !c.settle(req, domain.StateIdle) {
		return
	}
	metrics.RequestsTotal.WithLabelValues("cancelled").Inc()
	req.log.Info("request cancelled", map[string]interface{}{"reason": reason})
	c.finish(req, domain.Event{Kind: domain.EventCancelled, RequestID: req.id, State: domain.StateIdle, Message: reason})
}

// settle ends req if it is still the active request.
func (c *Coordinator) settle(req *request, state domain.State) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current != req {
		req.log.Debug("dropping events of a stale request", nil)
		return false
	}
	c.current = nil
	c.state = state
	return true
}

func (c *Coordinator) isCurrent(req *request) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current == req
}

// emit sends a non-terminal event for req unless its terminal event already
// went out. Progress (wait=false) is dropped when the consumer lags.
func (c *Coordinator) emit(req *request, ev domain.Event, wait bool) {
	req.emitMu.Lock()
	defer req.emitMu.Unlock()
	if req.finished {
		return
	}
	if wait {
		c.events <- ev
		return
	}
	select {
	case c.events <- ev:
	default:
		req.log.Warn("event dropped", map[string]interface{}{"kind": string(ev.Kind)})
	}
}

// finish delivers req's terminal event from its own run goroutine.
func (c *Coordinator) finish(req *request, ev domain.Event) {
	req.emitMu.Lock()
	defer req.emitMu.Unlock()
	if req.finished {
		return
	}
	req.finished = true
	c.events <- ev
}

func problemsOf(result domain.ValidationResult) []string {
	problems := append([]string(nil), result.Errors...)
	for _, name := range result.MissingRequired {
		problems = append(problems, fmt.Sprintf("Missing required parameter: %s", name))
	}
	if len(problems) == 0 {
		problems = append(problems, "parameters are not valid")
	}
	return problems
}
