package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImportMetrics_Counts(t *testing.T) {
	m := NewImportMetrics()
	m.RowsRead.Add(3)
	m.RowsAccepted.Inc()
	m.RowsSkipped.WithLabelValues("skipped_duplicate").Inc()
	m.RowsSkipped.WithLabelValues("skipped_unknown_user").Inc()

	assert.InDelta(t, 3, testutil.ToFloat64(m.RowsRead), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.RowsAccepted), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.RowsSkipped.WithLabelValues("skipped_duplicate")), 0)

	n, err := testutil.GatherAndCount(m.Registry())
	require.NoError(t, err)
	assert.Equal(t, 6, n)
}

func TestImportMetrics_Push(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	m := NewImportMetrics()
	m.RowsRead.Inc()
	require.NoError(t, m.Push(context.Background(), srv.URL, "role_import"))
	assert.Equal(t, "/metrics/job/role_import", gotPath)

	assert.NoError(t, m.Push(context.Background(), "", "role_import"))
}

func TestImportMetrics_PushFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	assert.Error(t, NewImportMetrics().Push(context.Background(), srv.URL, "role_import"))
}
