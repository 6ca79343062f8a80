package config

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/doeshing/geogenie-go/internal/domain"
)

func validConfig() domain.Config {
	return domain.Config{
		Preferences: domain.Preferences{DefaultModel: "gpt", LogLevel: "info", LogFormat: "console"},
		Models:      []domain.ModelDefinition{{Name: "gpt", Provider: "openai"}, {Name: "claude", Provider: "anthropic"}},
		Validation:  domain.ValidationSettings{MaxDistance: 1000, MaxSegments: 10, MemoryOutput: "memory:out"},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*domain.Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*domain.Config) {}},
		{name: "no models", mutate: func(c *domain.Config) { c.Models = nil }, wantErr: "at least one model"},
		{name: "unnamed model", mutate: func(c *domain.Config) { c.Models[1].Name = " " }, wantErr: "models[1].name"},
		{name: "duplicate model", mutate: func(c *domain.Config) { c.Models[1].Name = "gpt" }, wantErr: "defined twice"},
		{name: "missing default", mutate: func(c *domain.Config) { c.Preferences.DefaultModel = "x" }, wantErr: "default model x"},
		{name: "bad level", mutate: func(c *domain.Config) { c.Preferences.LogLevel = "loud" }, wantErr: "log_level"},
		{name: "bad format", mutate: func(c *domain.Config) { c.Preferences.LogFormat = "xml" }, wantErr: "log_format"},
		{name: "negative distance", mutate: func(c *domain.Config) { c.Validation.MaxDistance = -1 }, wantErr: "max_distance"},
		{name: "negative segments", mutate: func(c *domain.Config) { c.Validation.MaxSegments = -1 }, wantErr: "max_segments"},
		{name: "memory prefix", mutate: func(c *domain.Config) { c.Validation.MemoryOutput = "out" }, wantErr: "memory_output"},
		{name: "negative grace", mutate: func(c *domain.Config) { c.Execution.CancelGrace = -1 }, wantErr: "cancel_grace"},
		{name: "negative bands", mutate: func(c *domain.Config) { c.Context.MaxBands = -2 }, wantErr: "max_bands"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := Validate(cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			if assert.Error(t, err) {
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}
