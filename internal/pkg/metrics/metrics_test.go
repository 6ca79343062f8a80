package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandler_ExposesCollectors(t *testing.T) {
	RunsActive.Inc()
	defer RunsActive.Dec()
	RunsTotal.WithLabelValues("native:buffer", "completed").Inc()

	srv := httptest.NewServer(Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), "geogenie_runs_active 1")
	assert.Contains(t, string(body), `geogenie_runs_total{execution_id="native:buffer",kind="completed"}`)
}

func TestRequestsTotal_CountsByOutcome(t *testing.T) {
	before := testutil.ToFloat64(RequestsTotal.WithLabelValues("completed"))
	RequestsTotal.WithLabelValues("completed").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(RequestsTotal.WithLabelValues("completed")))
}
