package domain

// State is a coordinator lifecycle state.
type State string

const (
	StateIdle                 State = "idle"
	StateBuildingContext      State = "building_context"
	StateExtracting           State = "extracting"
	StateValidating           State = "validating"
	StateAwaitingConfirmation State = "awaiting_confirmation"
	StateDispatched           State = "dispatched"
	StatePostProcessing       State = "post_processing"
	StateCompleted            State = "completed"
	StateFailed               State = "failed"
)

// Terminal reports whether the state ends a request.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// EventKind tags coordinator events.
type EventKind string

const (
	EventStateChanged EventKind = "state_changed"
	EventProgress     EventKind = "progress"
	EventCompleted    EventKind = "completed"
	EventFailed       EventKind = "failed"
	EventCancelled    EventKind = "cancelled"
)

// Event is emitted by the coordinator towards the caller.
type Event struct {
	Kind      EventKind
	RequestID string
	State     State
	Percent   int
	Message   string
	Envelope  *ResultEnvelope
	Error     string
	Category  ErrorCategory
}

// Terminal reports whether no further events follow for the request.
func (e Event) Terminal() bool {
	return e.Kind == EventCompleted || e.Kind == EventFailed || e.Kind == EventCancelled
}

// ConfirmationRequest is shown to the user between validation and dispatch.
type ConfirmationRequest struct {
	RequestID      string
	Operation      OperationDescriptor
	Validation     ValidationResult
	ContextSummary string
	Reasoning      string
	Attempt        int
}

// ConfirmationDecision carries the (possibly edited) final parameters.
type ConfirmationDecision struct {
	Confirmed  bool
	Parameters map[string]interface{}
}
