package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordAPIRequest(t *testing.T) {
	before := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/api/v1/projects", "200"))
	RecordAPIRequest("GET", "/api/v1/projects", 200, 10*time.Millisecond)
	after := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/api/v1/projects", "200"))
	assert.Equal(t, before+1, after)
}

func TestTrackActiveRequest(t *testing.T) {
	before := testutil.ToFloat64(APIActiveRequests)
	TrackActiveRequest(true)
	assert.Equal(t, before+1, testutil.ToFloat64(APIActiveRequests))
	TrackActiveRequest(false)
	assert.Equal(t, before, testutil.ToFloat64(APIActiveRequests))
}

func TestRecordSoilIDRequestOutcome(t *testing.T) {
	errBefore := testutil.ToFloat64(SoilIDRequests.WithLabelValues("list", "error"))
	RecordSoilIDRequest("list", time.Second, errors.New("boom"))
	assert.Equal(t, errBefore+1, testutil.ToFloat64(SoilIDRequests.WithLabelValues("list", "error")))
}

func TestRecordCacheLookup(t *testing.T) {
	hits := testutil.ToFloat64(SoilIDCacheLookups.WithLabelValues("hit"))
	RecordCacheLookup(true)
	assert.Equal(t, hits+1, testutil.ToFloat64(SoilIDCacheLookups.WithLabelValues("hit")))
}
