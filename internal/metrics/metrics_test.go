package metrics

import (
	"database/sql"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveSession(t *testing.T) {
	m := New(nil)

	m.ObserveSession(SessionCommitted)
	m.ObserveSession(SessionCommitted)
	m.ObserveSession(SessionRolledBack)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.SessionsTotal.WithLabelValues(SessionCommitted)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SessionsTotal.WithLabelValues(SessionRolledBack)))

	var nilMetrics *Metrics
	assert.NotPanics(t, func() { nilMetrics.ObserveSession(SessionCommitted) })
}

func TestHandler_ExposesPoolGauges(t *testing.T) {
	m := New(func() sql.DBStats { return sql.DBStats{OpenConnections: 3, InUse: 1, Idle: 2} })

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, 200, rec.Code)
	assert.True(t, strings.Contains(string(body), "db_pool_open_connections 3"), "missing pool gauge in:\n%s", body)
	assert.True(t, strings.Contains(string(body), "db_pool_in_use_connections 1"))
}
