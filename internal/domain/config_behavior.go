package domain

import (
	"fmt"
	"time"
)

// GetDefaultModel retrieves the default model definition from configuration
// Returns an error if the default model is not found
func (c *Config) GetDefaultModel() (ModelDefinition, error) {
	if c.Preferences.DefaultModel == "" {
		return ModelDefinition{}, fmt.Errorf("no default model configured")
	}

	for _, model := range c.Models {
		if model.Name == c.Preferences.DefaultModel {
			return model, nil
		}
	}

	return ModelDefinition{}, fmt.Errorf("default model %s not found in configuration", c.Preferences.DefaultModel)
}

// FindModelByName searches for a model by its name
func (c *Config) FindModelByName(name string) (ModelDefinition, bool) {
	for _, model := range c.Models {
		if model.Name == name {
			return model, true
		}
	}
	return ModelDefinition{}, false
}

// HasModel checks if a model with the given name exists in the configuration
func (c *Config) HasModel(name string) bool {
	_, exists := c.FindModelByName(name)
	return exists
}

// PickModel resolves an override name, the default model, or the first configured model.
func (c *Config) PickModel(override string) (ModelDefinition, error) {
	name := override
	if name == "" {
		name = c.Preferences.DefaultModel
	}
	if name == "" && len(c.Models) > 0 {
		return c.Models[0], nil
	}
	if model, ok := c.FindModelByName(name); ok {
		return model, nil
	}
	return ModelDefinition{}, fmt.Errorf("model %s not configured", name)
}

// GetResultPrefix returns the prefix for generated output layer names.
func (p Preferences) GetResultPrefix() string {
	if p.ResultPrefix == "" {
		return DefaultResultPrefix
	}
	return p.ResultPrefix
}

// GetTimeout returns the request timeout.
func (p Preferences) GetTimeout() time.Duration {
	if p.TimeoutSeconds <= 0 {
		return DefaultRequestTimeout
	}
	return time.Duration(p.TimeoutSeconds) * time.Second
}

// GetMaxDistance returns the soft limit above which distances warn.
func (v ValidationSettings) GetMaxDistance() float64 {
	if v.MaxDistance <= 0 {
		return DefaultMaxDistance
	}
	return v.MaxDistance
}

// GetMaxSegments returns the soft limit above which segment counts warn.
func (v ValidationSettings) GetMaxSegments() int {
	if v.MaxSegments <= 0 {
		return DefaultMaxSegments
	}
	return v.MaxSegments
}

// GetMemoryOutput returns the synthetic in-memory destination.
func (v ValidationSettings) GetMemoryOutput() string {
	if v.MemoryOutput == "" {
		return DefaultMemoryOutput
	}
	return v.MemoryOutput
}

// GetCancelGrace bounds how long Submit waits for a replaced run to stop.
func (e ExecutionSettings) GetCancelGrace() time.Duration {
	if e.CancelGrace <= 0 {
		return DefaultCancelGrace
	}
	return e.CancelGrace
}

// GetProgressBuffer returns the progress channel capacity.
func (e ExecutionSettings) GetProgressBuffer() int {
	if e.ProgressBuffer <= 0 {
		return DefaultProgressBuffer
	}
	return e.ProgressBuffer
}

// GetQGISProcess returns the backend binary name.
func (e ExecutionSettings) GetQGISProcess() string {
	if e.QGISProcess == "" {
		return DefaultQGISProcess
	}
	return e.QGISProcess
}

// GetMaxNumericFields caps numeric field enumeration per vector layer.
func (c ContextSettings) GetMaxNumericFields() int {
	if c.MaxNumericFields <= 0 {
		return DefaultMaxNumericFields
	}
	return c.MaxNumericFields
}

// GetMaxBands caps band enumeration per raster layer.
func (c ContextSettings) GetMaxBands() int {
	if c.MaxBands <= 0 {
		return DefaultMaxBands
	}
	return c.MaxBands
}
