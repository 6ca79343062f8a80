package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/doeshing/geogenie-go/internal/domain"
)

// Validate ensures config structure is consistent.
func Validate(cfg domain.Config) error {
	if len(cfg.Models) == 0 {
		return errors.New("at least one model must be configured")
	}
	seen := map[string]bool{}
	for i, model := range cfg.Models {
		if strings.TrimSpace(model.Name) == "" {
			return fmt.Errorf("models[%d].name must be set", i)
		}
		if seen[model.Name] {
			return fmt.Errorf("model %s is defined twice", model.Name)
		}
		seen[model.Name] = true
		if model.MaxTokens < 0 {
			return fmt.Errorf("model %s: max_tokens must be >= 0", model.Name)
		}
	}
	if cfg.Preferences.DefaultModel != "" && !cfg.HasModel(cfg.Preferences.DefaultModel) {
		return fmt.Errorf("default model %s not found in models list", cfg.Preferences.DefaultModel)
	}
	if err := validatePreferences(cfg.Preferences); err != nil {
		return err
	}
	if err := validateLimits(cfg.Validation); err != nil {
		return err
	}
	if err := validateExecution(cfg.Execution); err != nil {
		return err
	}
	return validateContext(cfg.Context)
}

func validatePreferences(prefs domain.Preferences) error {
	switch strings.ToLower(prefs.LogLevel) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("preferences.log_level must be debug|info|warn|error, got %s", prefs.LogLevel)
	}
	switch strings.ToLower(prefs.LogFormat) {
	case "", "console", "json":
	default:
		return fmt.Errorf("preferences.log_format must be console|json, got %s", prefs.LogFormat)
	}
	if prefs.TimeoutSeconds < 0 {
		return fmt.Errorf("preferences.timeout must be >= 0")
	}
	return nil
}

func validateLimits(v domain.ValidationSettings) error {
	if v.MaxDistance < 0 {
		return fmt.Errorf("validation.max_distance must be >= 0")
	}
	if v.MaxSegments < 0 {
		return fmt.Errorf("validation.max_segments must be >= 0")
	}
	if v.MemoryOutput != "" && !strings.HasPrefix(v.MemoryOutput, "memory:") {
		return fmt.Errorf("validation.memory_output must start with memory:, got %s", v.MemoryOutput)
	}
	return nil
}

func validateExecution(e domain.ExecutionSettings) error {
	if e.CancelGrace < 0 {
		return fmt.Errorf("execution.cancel_grace must be >= 0")
	}
	if e.ProgressBuffer < 0 {
		return fmt.Errorf("execution.progress_buffer must be >= 0")
	}
	return nil
}

func validateContext(ctx domain.ContextSettings) error {
	if ctx.MaxNumericFields < 0 {
		return fmt.Errorf("context.max_numeric_fields must be >= 0")
	}
	if ctx.MaxBands < 0 {
		return fmt.Errorf("context.max_bands must be >= 0")
	}
	return nil
}
