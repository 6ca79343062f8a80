package executor

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/doeshing/geogenie-go/internal/domain"
	"github.com/doeshing/geogenie-go/internal/ports"
)

type run struct {
	id     string
	execID string
	cancel context.CancelFunc
	done   chan struct{}

	cancelRequested atomic.Bool

	mu          sync.Mutex
	lastPercent int
	finished    bool
	progress    chan domain.ProgressEvent
	terminal    chan domain.TerminalEvent
}

func (r *run) requestCancel() {
	r.cancelRequested.Store(true)
	r.cancel()
}

func (r *run) canceled() bool {
	return r.cancelRequested.Load()
}

// report publishes progress without blocking. Lower percentages are raised to the last one sent.
func (r *run) report(percent int, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.finished {
		return
	}
	if percent < r.lastPercent {
		percent = r.lastPercent
	}
	if percent > 100 {
		percent = 100
	}
	r.lastPercent = percent
	select {
	case r.progress <- domain.ProgressEvent{RunID: r.id, Percent: percent, Message: message}:
	default:
	}
}

// finish delivers the single terminal event and returns the kind actually sent.
// A run whose cancellation was requested never ends as completed or failed.
func (r *run) finish(kind domain.TerminalKind, envelope *domain.ResultEnvelope, errMsg string) domain.TerminalKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.finished {
		return kind
	}
	r.finished = true

	if r.canceled() {
		kind, envelope, errMsg = domain.TerminalCancelled, nil, ""
	}
	if kind == domain.TerminalFailed && envelope == nil {
		envelope = &domain.ResultEnvelope{ExecutionID: r.execID, Error: errMsg}
	}
	r.terminal <- domain.TerminalEvent{RunID: r.id, Kind: kind, Envelope: envelope, Error: errMsg}
	close(r.progress)
	return kind
}

// feedback scales backend progress into the 20-90 band.
type feedback struct {
	run    *run
	logger ports.Logger
}

func (f *feedback) SetProgress(percent int) {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	f.run.report(phaseIndexed+percent*backendSpan/100, "Running")
}

func (f *feedback) PushInfo(msg string) {
	f.logger.Info(msg, nil)
}

func (f *feedback) PushWarning(msg string) {
	f.logger.Warn(msg, nil)
}

func (f *feedback) Canceled() bool {
	return f.run.canceled()
}

var _ ports.Feedback = (*feedback)(nil)
