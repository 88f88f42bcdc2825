package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saltyorg/taskd/internal/config"
	"github.com/saltyorg/taskd/internal/database"
	"github.com/saltyorg/taskd/internal/metrics"
)

func openTestDB(t *testing.T) *database.DB {
	t.Helper()
	cfg := &config.DatabaseConfig{
		Backend:  config.BackendSQLite,
		FilePath: filepath.Join(t.TempDir(), "test.db"),
	}
	db, err := database.Open(context.Background(), cfg, database.DefaultPoolConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.EnsureSchema(context.Background()))
	return db
}

func countTasks(t *testing.T, db *database.DB) int64 {
	t.Helper()
	s := db.Factory().NewSession()
	defer s.Close()
	n, err := database.NewTaskRepository(s).Count(context.Background())
	require.NoError(t, err)
	return n
}

// insertRaw writes a row through the request session without committing
func insertRaw(r *http.Request) error {
	tx, err := Session(r.Context()).Tx(r.Context())
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(r.Context(), "INSERT INTO task (name) VALUES (?)", "from handler")
	return err
}

// countingOpener wraps a factory and remembers every session it handed out
type countingOpener struct {
	factory  *database.Factory
	sessions []*database.Session
}

func (o *countingOpener) NewSession() *database.Session {
	s := o.factory.NewSession()
	o.sessions = append(o.sessions, s)
	return s
}

func TestSessions_CommitsOnSuccess(t *testing.T) {
	db := openTestDB(t)
	m := metrics.New(nil)
	opener := &countingOpener{factory: db.Factory()}

	handler := Sessions(opener, m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, insertRaw(r))
		// The same session is returned on every access.
		assert.Same(t, Session(r.Context()), Session(r.Context()))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, `{"ok":true}`, rec.Body.String())
	assert.Len(t, opener.sessions, 1)
	assert.Equal(t, int64(1), countTasks(t, db))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SessionsTotal.WithLabelValues(metrics.SessionCommitted)))

	_, err := opener.sessions[0].Tx(context.Background())
	assert.ErrorIs(t, err, database.ErrSessionClosed, "session must be closed after the request")
}

func TestSessions_RollsBackOnServerError(t *testing.T) {
	db := openTestDB(t)
	m := metrics.New(nil)
	opener := &countingOpener{factory: db.Factory()}

	handler := Sessions(opener, m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, insertRaw(r))
		http.Error(w, "boom", http.StatusInternalServerError)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, int64(0), countTasks(t, db))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SessionsTotal.WithLabelValues(metrics.SessionRolledBack)))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.SessionsTotal.WithLabelValues(metrics.SessionCommitted)))

	_, err := opener.sessions[0].Tx(context.Background())
	assert.ErrorIs(t, err, database.ErrSessionClosed)
}

func TestSessions_CommitFailureReturns500(t *testing.T) {
	db := openTestDB(t)
	m := metrics.New(nil)
	opener := &countingOpener{factory: db.Factory()}

	handler := Sessions(opener, m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, insertRaw(r))
		// End the transaction underneath the session so its commit fails.
		tx, err := Session(r.Context()).Tx(r.Context())
		require.NoError(t, err)
		require.NoError(t, tx.Rollback())

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"detail":"Internal Server Error"}`, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), `"ok"`)
	assert.Equal(t, int64(0), countTasks(t, db))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SessionsTotal.WithLabelValues(metrics.SessionCommitFailed)))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.SessionsTotal.WithLabelValues(metrics.SessionCommitted)))

	_, err := opener.sessions[0].Tx(context.Background())
	assert.ErrorIs(t, err, database.ErrSessionClosed)
	assert.Equal(t, 0, db.Stats().InUse)
}

func TestSessions_ClientErrorStillCommits(t *testing.T) {
	db := openTestDB(t)

	handler := Sessions(db.Factory(), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, insertRaw(r))
		w.WriteHeader(http.StatusNotFound)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, int64(1), countTasks(t, db))
}

func TestSessions_PanicRollsBackAndRepanics(t *testing.T) {
	db := openTestDB(t)
	opener := &countingOpener{factory: db.Factory()}
	errBoom := errors.New("boom")

	inner := Sessions(opener, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, insertRaw(r))
		panic(errBoom)
	}))

	// The original panic value must reach outer middleware unchanged.
	var recovered any
	outer := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() { recovered = recover() }()
		inner.ServeHTTP(w, r)
	})
	outer.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, errBoom, recovered)

	assert.Equal(t, int64(0), countTasks(t, db))
	_, err := opener.sessions[0].Tx(context.Background())
	assert.ErrorIs(t, err, database.ErrSessionClosed)

	// Behind chi's Recoverer the client sees a 500.
	rec := httptest.NewRecorder()
	chimiddleware.Recoverer(inner).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestSessions_UntouchedSessionIsNeverOpened(t *testing.T) {
	db := openTestDB(t)
	m := metrics.New(nil)
	opener := &countingOpener{factory: db.Factory()}

	for _, status := range []int{http.StatusOK, http.StatusInternalServerError} {
		handler := Sessions(opener, m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, status, rec.Code)
	}

	assert.Empty(t, opener.sessions)
	assert.Equal(t, 0, testutil.CollectAndCount(m.SessionsTotal))
}

func TestSessions_CancelledRequestStillReleasesConnection(t *testing.T) {
	db := openTestDB(t)
	opener := &countingOpener{factory: db.Factory()}

	ctx, cancel := context.WithCancel(context.Background())
	handler := Sessions(opener, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, insertRaw(r))
		cancel()
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil).WithContext(ctx))

	require.Len(t, opener.sessions, 1)
	_, err := opener.sessions[0].Tx(context.Background())
	assert.ErrorIs(t, err, database.ErrSessionClosed)
	assert.Equal(t, 0, db.Stats().InUse)
}

func TestSession_PanicsWithoutMiddleware(t *testing.T) {
	assert.Panics(t, func() { Session(context.Background()) })
}
