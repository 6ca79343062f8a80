package domain

// RawIntent is the gateway's extraction result, one per request.
type RawIntent struct {
	Success    bool
	Operation  string
	Parameters map[string]interface{}
	Confidence float64
	Reasoning  string
	Error      string
}

// FailedIntent builds an unsuccessful intent preserving reasoning.
func FailedIntent(err string, reasoning string) RawIntent {
	return RawIntent{
		Success:    false,
		Parameters: map[string]interface{}{},
		Error:      err,
		Reasoning:  reasoning,
	}
}

// FunctionSpec is one callable definition offered to the model.
type FunctionSpec struct {
	Name        string
	Description string
	Params      []FunctionParam
	Required    []string
}

// FunctionParam is one typed argument of a FunctionSpec.
// Type is a JSON schema primitive: string, number, integer or boolean.
type FunctionParam struct {
	Name        string
	Type        string
	Description string
}
