package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_FlowCounters(t *testing.T) {
	c := NewCollector()

	c.SubmissionPublished()
	c.SubmissionPublished()
	c.ResultReceived(true)
	c.ResultReceived(false)
	c.ResultReceived(false)
	c.ErrorReceived(400)
	c.StaleReplyDropped()
	c.Completed(false)
	c.Completed(true)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.submissions))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.results.WithLabelValues("true")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.results.WithLabelValues("false")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.apiErrors.WithLabelValues("400")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.staleReplies))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.completions.WithLabelValues("completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.completions.WithLabelValues("cancelled")))
}

func TestCollector_RecordValidation(t *testing.T) {
	c := NewCollector()

	c.RecordValidation("valid", 20*time.Millisecond)
	c.RecordValidation("", 0)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.validations.WithLabelValues("valid")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.validations.WithLabelValues("unknown")))

	families, err := c.Registry().Gather()
	require.NoError(t, err)
	var samples uint64
	for _, mf := range families {
		if mf.GetName() == "shipflow_validator_request_duration_seconds" {
			samples = mf.GetMetric()[0].GetHistogram().GetSampleCount()
		}
	}
	assert.Equal(t, uint64(2), samples)
}

func TestCollector_Handler(t *testing.T) {
	c := NewCollector()
	c.SubmissionPublished()

	srv := httptest.NewServer(c.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "shipflow_flow_submissions_total 1")
}

func TestCollectorsAreIndependent(t *testing.T) {
	a := NewCollector()
	b := NewCollector()

	a.SubmissionPublished()

	assert.Equal(t, 1.0, testutil.ToFloat64(a.submissions))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.submissions))
}
