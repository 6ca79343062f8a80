// Package ports defines the interfaces (ports) for the hexagonal architecture.
//
// This package establishes the contract between the application core and external
// adapters (infrastructure). The core never touches the host GIS session, the language
// model vendors or the processing backend directly; it only sees these interfaces.
//
// Key architectural concepts:
//   - Ports: Interfaces defined here (e.g., WorkspaceQuery, CompletionCapability)
//   - Adapters: Concrete implementations in the infrastructure layer
//   - Dependency inversion: Application depends on abstractions, not implementations
package ports

import (
	"context"

	"github.com/doeshing/geogenie-go/internal/domain"
)

// ConfigProvider loads the latest configuration from persistent storage.
// Implementations typically read from ~/.geogenie/config.yaml.
type ConfigProvider interface {
	Load(context.Context) (domain.Config, error)
}

// WorkspaceQuery is the narrow view of the host GIS session.
type WorkspaceQuery interface {
	Project(ctx context.Context) (domain.ProjectInfo, error)
	Layers(ctx context.Context) ([]domain.Layer, error)
	LayerByID(ctx context.Context, id string) (domain.Layer, bool, error)
	Tree(ctx context.Context) (domain.LayerTreeInfo, error)
	CanvasExtent(ctx context.Context) (domain.Extent, error)
	// Attach adds an output to the workspace and returns the new layer id.
	Attach(ctx context.Context, req domain.AttachRequest) (string, error)
	// Refresh is fire-and-forget.
	Refresh(ctx context.Context)
	CreateSpatialIndex(ctx context.Context, layerID string) error
}

// OutputProbe re-opens a produced dataset to compute summary statistics.
type OutputProbe interface {
	Probe(ctx context.Context, path string, kind domain.DataKind) (domain.OutputStats, error)
}

// CRSResolver validates a coordinate reference system identifier.
type CRSResolver interface {
	// Resolve returns the canonical authority:code form.
	Resolve(raw string) (string, bool)
}

// Feedback is the sink a backend run reports into.
type Feedback interface {
	SetProgress(percent int)
	PushInfo(msg string)
	PushWarning(msg string)
	Canceled() bool
}

// BackendRunner executes one processing algorithm synchronously on the caller's goroutine.
type BackendRunner interface {
	Has(ctx context.Context, executionID string) bool
	Run(ctx context.Context, executionID string, params map[string]interface{}, fb Feedback) (map[string]interface{}, error)
}

// CompletionRequest is a single language model call.
type CompletionRequest struct {
	System      string
	Prompt      string
	Functions   []domain.FunctionSpec
	Temperature float32
	MaxTokens   int
}

// FunctionCall is a structured call returned by a capability with native function support.
type FunctionCall struct {
	Name string
	Args map[string]interface{}
}

// CompletionResponse carries either a structured call or free text.
type CompletionResponse struct {
	Text string
	Call *FunctionCall
}

// CompletionCapability wraps one language model vendor.
// Errors wrapping domain.ErrCapabilityUnavailable or domain.ErrUnauthenticated mean the
// capability could not be reached at all; any other error is a transport failure.
type CompletionCapability interface {
	Name() string
	SupportsFunctions() bool
	Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error)
}

// ProviderFactory builds completion capabilities from model definitions.
type ProviderFactory interface {
	ForModel(domain.ModelDefinition) (CompletionCapability, error)
}

// CredentialStore persists one API key per provider as trimmed plain text.
type CredentialStore interface {
	Read(provider domain.ProviderKind) (string, error)
	Write(provider domain.ProviderKind, key string) error
}

// Confirmer is the human-in-the-loop step between validation and dispatch.
type Confirmer interface {
	Confirm(ctx context.Context, req domain.ConfirmationRequest) (domain.ConfirmationDecision, error)
}

// Logger provides structured logging abstraction for the application layer.
// Implementations can route to different backends (stdout, files, external services).
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, err error, fields map[string]interface{})
	With(fields map[string]interface{}) Logger
}
