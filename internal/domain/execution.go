package domain

// ExecutionRequest is owned by the executor for the duration of one run.
type ExecutionRequest struct {
	ExecutionID string
	Parameters  map[string]interface{}
	Operation   string
	Context     map[string]string
	// LayerParams names the parameters whose values are layer ids.
	LayerParams []string
}

// OutputDescriptor references one produced dataset.
type OutputDescriptor struct {
	Parameter string
	Path      string
	Kind      DataKind
	Handle    LayerHandle
	LayerName string
}

// OutputStats summarises one produced dataset.
type OutputStats struct {
	FeatureCount int64
	GeometryType string
	CRS          string
	Extent       string
}

// ResultEnvelope is created once per completed or failed run.
type ResultEnvelope struct {
	Success     bool
	ExecutionID string
	Parameters  map[string]interface{}
	RawResult   map[string]interface{}
	Outputs     []OutputDescriptor
	Statistics  map[string]OutputStats
	Error       string
	Summary     string
	Attached    []string
}

// ProgressEvent is advisory; percentages never decrease within a run.
type ProgressEvent struct {
	RunID   string
	Percent int
	Message string
}

// TerminalKind distinguishes the three ways a run ends.
type TerminalKind string

const (
	TerminalCompleted TerminalKind = "completed"
	TerminalFailed    TerminalKind = "failed"
	TerminalCancelled TerminalKind = "cancelled"
)

// TerminalEvent is delivered exactly once per run.
type TerminalEvent struct {
	RunID    string
	Kind     TerminalKind
	Envelope *ResultEnvelope
	Error    string
}

// RunHandle is returned by Submit.
type RunHandle struct {
	ID          string
	ExecutionID string
	Progress    <-chan ProgressEvent
	Terminal    <-chan TerminalEvent
}
