package cli

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doeshing/geogenie-go/internal/domain"
)

func confirmationRequest(valid bool) domain.ConfirmationRequest {
	result := domain.ValidationResult{
		Operation: "buffer",
		Valid:     valid,
		Parameters: domain.Params{
			"INPUT":    domain.LayerValue("roads_1"),
			"DISTANCE": domain.NumberValue(10),
		},
	}
	if !valid {
		result.Errors = []string{"DISTANCE is too large"}
	}
	return domain.ConfirmationRequest{
		RequestID:      "r1",
		Operation:      domain.OperationDescriptor{Name: "buffer", ExecutionID: "native:buffer", HumanName: "Buffer"},
		Validation:     result,
		ContextSummary: "QGIS Project Context:\n- Project: City",
		Reasoning:      "Buffer the roads",
		Attempt:        1,
	}
}

func TestPrompter_Confirm(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		valid     bool
		confirmed bool
		params    map[string]interface{}
	}{
		{name: "yes", input: "y\n", valid: true, confirmed: true},
		{name: "default declines", input: "\n", valid: true, confirmed: false},
		{name: "no", input: "no\n", valid: true, confirmed: false},
		{name: "yes on invalid asks again", input: "y\nn\n", valid: false, confirmed: false},
		{
			name:      "edit",
			input:     "e\nDISTANCE=25\nbogus\nFIELD = zone\n\n",
			valid:     false,
			confirmed: true,
			params:    map[string]interface{}{"INPUT": "roads_1", "DISTANCE": "25", "FIELD": "zone"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			p := NewPrompter(strings.NewReader(tt.input), &out)
			called := false
			p.BeforePrompt = func() { called = true }

			decision, err := p.Confirm(context.Background(), confirmationRequest(tt.valid))
			require.NoError(t, err)
			assert.True(t, called)
			assert.Equal(t, tt.confirmed, decision.Confirmed)
			assert.Equal(t, tt.params, decision.Parameters)
			assert.Contains(t, out.String(), "Buffer the roads")
		})
	}
}

func TestPrompter_ClosedInputCancels(t *testing.T) {
	p := NewPrompter(strings.NewReader(""), &bytes.Buffer{})
	_, err := p.Confirm(context.Background(), confirmationRequest(true))
	assert.Error(t, err)
}

func TestPrompter_ContextCancelled(t *testing.T) {
	reader, writer := ioPipe()
	defer writer.Close()
	p := NewPrompter(reader, &bytes.Buffer{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := p.Confirm(ctx, confirmationRequest(true))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAutoConfirmer(t *testing.T) {
	var out bytes.Buffer
	a := autoConfirmer{out: &out}

	decision, err := a.Confirm(context.Background(), confirmationRequest(true))
	require.NoError(t, err)
	assert.True(t, decision.Confirmed)

	decision, err = a.Confirm(context.Background(), confirmationRequest(false))
	require.NoError(t, err)
	assert.False(t, decision.Confirmed)
	assert.Contains(t, out.String(), "DISTANCE is too large")
}

func TestParseAssignments(t *testing.T) {
	params, err := parseAssignments([]string{"INPUT=Roads", "DISTANCE = 10", "EXPR=a=b"})
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"INPUT": "Roads", "DISTANCE": "10", "EXPR": "a=b"}, params)

	_, err = parseAssignments([]string{"=5"})
	assert.Error(t, err)
	_, err = parseAssignments([]string{"DISTANCE"})
	assert.Error(t, err)
}

func TestRenderResult(t *testing.T) {
	var out bytes.Buffer
	RenderResult(&out, &domain.ResultEnvelope{
		Summary: "Buffered roads by 10 m.",
		Outputs: []domain.OutputDescriptor{{Parameter: "OUTPUT", Path: "/tmp/a.gpkg", Kind: domain.DataVector, LayerName: "GeoGenie_buffer_10_120000"}},
		Statistics: map[string]domain.OutputStats{
			"OUTPUT": {FeatureCount: 42, GeometryType: "Polygon", CRS: "EPSG:4326", Extent: "Empty"},
		},
	})
	text := out.String()
	assert.Contains(t, text, "Buffered roads by 10 m.")
	assert.Contains(t, text, "GeoGenie_buffer_10_120000")
	assert.Contains(t, text, "42 features")
}

func TestKindFromPath(t *testing.T) {
	assert.Equal(t, domain.DataRaster, kindFromPath("/data/dem.TIF"))
	assert.Equal(t, domain.DataVector, kindFromPath("/data/roads.gpkg"))
	assert.Equal(t, "roads", layerNameFromPath("/data/roads.gpkg"))
}

func ioPipe() (*io.PipeReader, *io.PipeWriter) {
	return io.Pipe()
}

func TestSpinner_StopIsIdempotent(t *testing.T) {
	var out bytes.Buffer
	s := NewSpinner(&out)

	s.Start("Extracting intent")
	s.Stop()
	s.Stop()

	assert.Contains(t, out.String(), "Extracting intent")
	assert.True(t, strings.HasSuffix(out.String(), "\r\033[K"))
}
