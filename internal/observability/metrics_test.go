package observability_test

import (
	"net/http"
	"testing"
	"time"

	"vidgrab/internal/observability"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNilMetricsRecordNothing(t *testing.T) {
	var m *observability.Metrics

	m.RecordJobCreated()
	m.RecordJobStarted()
	m.RecordJobCompleted()
	m.RecordJobFailed()
	m.RecordFetch("ok")
	m.RecordThumbnailFailure()
	m.RecordCleanup(3)
	m.SetStoredJobs(1)
	m.RecordDownloaderRequest("download", "ok")
	m.RecordDownloaderError("download", "io")
	m.RecordHTTPRequest(http.MethodGet, "/", http.StatusOK, time.Second, 10)
	m.JobTimer()()
}

func TestJobLifecycleMetrics(t *testing.T) {
	m := observability.NewWithRegistry(prometheus.NewRegistry())

	m.RecordJobCreated()
	m.RecordJobCreated()
	m.RecordJobStarted()
	m.RecordJobStarted()
	m.RecordJobCompleted()
	m.RecordJobFailed()

	if got := testutil.ToFloat64(m.JobsCreated); got != 2 {
		t.Errorf("created = %v, want 2", got)
	}

	if got := testutil.ToFloat64(m.JobsInProgress); got != 0 {
		t.Errorf("in progress = %v, want 0", got)
	}

	if got := testutil.ToFloat64(m.JobsFailed); got != 1 {
		t.Errorf("failed = %v, want 1", got)
	}
}

func TestLabeledMetrics(t *testing.T) {
	m := observability.NewWithRegistry(prometheus.NewRegistry())

	m.RecordFetch("ok")
	m.RecordFetch("extraction")
	m.RecordFetch("ok")
	m.RecordDownloaderError("download", "transcode")
	m.RecordHTTPRequest(http.MethodPost, "/v1/downloads", http.StatusAccepted, time.Millisecond, 42)

	if got := testutil.ToFloat64(m.FetchesTotal.WithLabelValues("ok")); got != 2 {
		t.Errorf("fetches ok = %v, want 2", got)
	}

	if got := testutil.ToFloat64(m.DownloaderErrors.WithLabelValues("download", "transcode")); got != 1 {
		t.Errorf("transcode errors = %v, want 1", got)
	}

	if got := testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues(http.MethodPost, "/v1/downloads", "202")); got != 1 {
		t.Errorf("http requests = %v, want 1", got)
	}
}
