package domain_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doeshing/geogenie-go/internal/domain"
)

// TestConfig_GetDefaultModel tests retrieving the default model
func TestConfig_GetDefaultModel(t *testing.T) {
	tests := []struct {
		name        string
		config      domain.Config
		wantError   bool
		wantModelID string
	}{
		{
			name: "returns default model successfully",
			config: domain.Config{
				Preferences: domain.Preferences{DefaultModel: "claude"},
				Models: []domain.ModelDefinition{
					{Name: "claude", ModelID: "claude-3-5-sonnet"},
					{Name: "gpt4", ModelID: "gpt-4o"},
				},
			},
			wantModelID: "claude-3-5-sonnet",
		},
		{
			name: "returns error when default model not found",
			config: domain.Config{
				Preferences: domain.Preferences{DefaultModel: "nonexistent"},
				Models:      []domain.ModelDefinition{{Name: "claude"}},
			},
			wantError: true,
		},
		{
			name: "returns error when no default model configured",
			config: domain.Config{
				Models: []domain.ModelDefinition{{Name: "claude"}},
			},
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model, err := tt.config.GetDefaultModel()
			if tt.wantError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantModelID, model.ModelID)
		})
	}
}

func TestConfig_PickModel(t *testing.T) {
	cfg := domain.Config{
		Preferences: domain.Preferences{DefaultModel: "gpt"},
		Models: []domain.ModelDefinition{
			{Name: "claude", Provider: "anthropic"},
			{Name: "gpt", Provider: "openai"},
		},
	}

	model, err := cfg.PickModel("")
	require.NoError(t, err)
	assert.Equal(t, "gpt", model.Name)

	model, err = cfg.PickModel("claude")
	require.NoError(t, err)
	assert.Equal(t, "claude", model.Name)

	_, err = cfg.PickModel("missing")
	assert.Error(t, err)

	cfg.Preferences.DefaultModel = ""
	model, err = cfg.PickModel("")
	require.NoError(t, err)
	assert.Equal(t, "claude", model.Name)
}

func TestSettings_Defaults(t *testing.T) {
	var cfg domain.Config

	assert.Equal(t, domain.DefaultMaxDistance, cfg.Validation.GetMaxDistance())
	assert.Equal(t, domain.DefaultMaxSegments, cfg.Validation.GetMaxSegments())
	assert.Equal(t, "memory:temp_output", cfg.Validation.GetMemoryOutput())
	assert.Equal(t, domain.DefaultCancelGrace, cfg.Execution.GetCancelGrace())
	assert.Equal(t, "qgis_process", cfg.Execution.GetQGISProcess())
	assert.Equal(t, 5, cfg.Context.GetMaxNumericFields())
	assert.Equal(t, 3, cfg.Context.GetMaxBands())
	assert.Equal(t, "GeoGenie", cfg.Preferences.GetResultPrefix())
	assert.Equal(t, domain.DefaultRequestTimeout, cfg.Preferences.GetTimeout())

	cfg.Validation.MaxDistance = 500
	cfg.Preferences.TimeoutSeconds = 5
	cfg.Execution.CancelGrace = 100 * time.Millisecond
	assert.Equal(t, 500.0, cfg.Validation.GetMaxDistance())
	assert.Equal(t, 5*time.Second, cfg.Preferences.GetTimeout())
	assert.Equal(t, 100*time.Millisecond, cfg.Execution.GetCancelGrace())
}

func TestParseProviderKind(t *testing.T) {
	assert.Equal(t, domain.ProviderKindAnthropic, domain.ParseProviderKind("Claude"))
	assert.Equal(t, domain.ProviderKindGemini, domain.ParseProviderKind("google"))
	assert.Equal(t, domain.ProviderKindOpenAI, domain.ParseProviderKind(" openai "))
	assert.Equal(t, domain.ProviderKindUnknown, domain.ParseProviderKind("other"))
}

func TestHealthReport_Worst(t *testing.T) {
	report := domain.HealthReport{Checks: []domain.HealthCheck{
		{Name: "a", Status: domain.HealthOK},
		{Name: "b", Status: domain.HealthWarn},
	}}
	assert.Equal(t, domain.HealthWarn, report.Worst())

	report.Checks = append(report.Checks, domain.HealthCheck{Name: "c", Status: domain.HealthError})
	assert.Equal(t, domain.HealthError, report.Worst())
}
