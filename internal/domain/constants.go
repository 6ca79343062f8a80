package domain

import "time"

// File permissions constants
const (
	// DirectoryPermissions is the default permission for directories (rwxr-xr-x)
	DirectoryPermissions = 0o755
	// SecureFilePermissions is the permission for sensitive files (rw-------)
	SecureFilePermissions = 0o600
)

// Timeout and duration constants
const (
	// DefaultRequestTimeout bounds a whole request including execution
	DefaultRequestTimeout = 120 * time.Second
	// DefaultHTTPClientTimeout is the timeout for HTTP client requests
	DefaultHTTPClientTimeout = 60 * time.Second
	// DefaultCancelGrace is how long a replaced run may take to unwind
	DefaultCancelGrace = 2 * time.Second
)

// Validation soft limits
const (
	DefaultMaxDistance  = 1_000_000.0
	DefaultMaxSegments  = 100
	DefaultMemoryOutput = "memory:temp_output"
	DefaultOutputParam  = "OUTPUT"
)

// Context bounds
const (
	DefaultMaxNumericFields = 5
	DefaultMaxBands         = 3
	MaxLayerSuggestions     = 3
	MaxSummaryLayerNames    = 5
)

// Execution defaults
const (
	DefaultProgressBuffer = 32
	DefaultQGISProcess    = "qgis_process"
	DefaultResultPrefix   = "GeoGenie"
)

// Model configuration constants
const (
	// DefaultMaxTokens is the extraction token budget
	DefaultMaxTokens = 1000
	// SummaryMaxTokens is the summary token budget
	SummaryMaxTokens         = 200
	ExtractionTemperature    = 0.1
	SummaryTemperature       = 0.3
	NativeCallConfidence     = 0.9
	FallbackCallConfidence   = 0.8
	FunctionNamePrefix       = "execute_"
	ResultTimestampLayout    = "150405"
	TokenEstimateWordsFactor = 1.3
)
