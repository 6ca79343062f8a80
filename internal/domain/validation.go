package domain

// ValidationResult is produced by the parameter validator and consumed at confirmation.
type ValidationResult struct {
	Operation       string
	Valid           bool
	Errors          []string
	Warnings        []string
	MissingRequired []string
	Parameters      Params
	Descriptor      *OperationDescriptor
}

// Confirmable reports whether the result may be dispatched.
func (r ValidationResult) Confirmable() bool {
	return r.Valid && len(r.MissingRequired) == 0
}

// MissingParam describes a still-missing required parameter.
type MissingParam struct {
	Parameter   string
	Kind        ParamKind
	Description string
}

// Suggestions is advisory output for partially filled requests.
type Suggestions struct {
	MissingRequired   []MissingParam
	RecommendedValues map[string]interface{}
	LayerSuggestions  map[string][]string
	Warnings          []string
}
