package coordinator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/doeshing/geogenie-go/internal/domain"
)

func TestResultName(t *testing.T) {
	at := time.Date(2024, 1, 2, 9, 5, 7, 0, time.UTC)
	tests := []struct {
		name   string
		op     string
		params domain.Params
		want   string
	}{
		{name: "distance", op: "buffer", params: domain.Params{"DISTANCE": domain.NumberValue(10)}, want: "GeoGenie_buffer_10_090507"},
		{name: "fractional distance", op: "buffer", params: domain.Params{"DISTANCE": domain.NumberValue(2.5)}, want: "GeoGenie_buffer_2.5_090507"},
		{name: "field", op: "dissolve", params: domain.Params{"FIELD": domain.FieldValue("zone type")}, want: "GeoGenie_dissolve_zone_type_090507"},
		{name: "field list", op: "dissolve", params: domain.Params{"FIELD": domain.FieldListValue([]string{"a", "b"})}, want: "GeoGenie_dissolve_a_b_090507"},
		{
			name:   "distance wins over field",
			op:     "buffer",
			params: domain.Params{"DISTANCE": domain.NumberValue(5), "FIELD": domain.FieldValue("x")},
			want:   "GeoGenie_buffer_5_090507",
		},
		{name: "no key parameter", op: "reproject", params: domain.Params{"TARGET_CRS": domain.CRSValue("EPSG:3857")}, want: "GeoGenie_reproject_090507"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResultName("GeoGenie", tt.op, tt.params, at))
		})
	}
}
