package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveStoreOperation("file", "save", time.Millisecond, nil)
		m.ObserveLocationCheck(CheckSatisfied)
		m.PollerStarted()
		m.PollerStopped()
		m.ObserveReconcile(3)
	})
	assert.Nil(t, m.Registry())
}

func TestMetrics_StoreOperations(t *testing.T) {
	m := New()
	m.ObserveStoreOperation("file", "save", time.Millisecond, nil)
	m.ObserveStoreOperation("file", "save", time.Millisecond, errors.New("disk full"))
	m.ObserveStoreOperation("file", "load", time.Millisecond, nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.storeOperations.WithLabelValues("file", "save", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.storeOperations.WithLabelValues("file", "save", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.storeOperations.WithLabelValues("file", "load", "ok")))
}

func TestMetrics_ReconcileAndPollers(t *testing.T) {
	m := New()
	m.ObserveReconcile(0)
	m.ObserveReconcile(2)
	m.ObserveReconcile(1)
	m.PollerStarted()
	m.PollerStarted()
	m.PollerStopped()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.reconcilePasses.WithLabelValues("false")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.reconcilePasses.WithLabelValues("true")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.itemsReconciled))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.activePollers))
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.ObserveLocationCheck(CheckPending)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `apclient_monitor_checks_total{result="pending"} 1`))
}
