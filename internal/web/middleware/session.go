package middleware

import (
	"bytes"
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/saltyorg/taskd/internal/database"
	"github.com/saltyorg/taskd/internal/metrics"
)

type scopeKey struct{}

// Scope is the request-scoped session slot
type Scope = database.Scope[*database.Session]

// SessionOpener produces sessions; *database.Factory satisfies it
type SessionOpener interface {
	NewSession() *database.Session
}

// Sessions binds at most one database session to each request. The session
// is created on first use via Session. When the handler chain returns, the
// session is committed if the response status is below 500 and rolled back
// otherwise or on panic, then closed. The response is held back until the
// commit succeeds; a failed commit turns it into a 500.
func Sessions(opener SessionOpener, m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			scope := database.NewScope(opener.NewSession)
			ctx := context.WithValue(r.Context(), scopeKey{}, scope)
			buf := newBufferedWriter(w)

			completed := false
			defer func() {
				rec := recover()

				outcome := database.OutcomeSuccess
				if !completed || buf.status >= http.StatusInternalServerError {
					outcome = database.OutcomeFailure
				}

				// Finish must run even when the request context is already cancelled.
				err := scope.Finish(context.WithoutCancel(ctx), outcome)
				observe(m, scope, outcome, err)

				if err != nil {
					log.Error().
						Err(err).
						Str("outcome", outcome.String()).
						Str("request_id", middleware.GetReqID(ctx)).
						Msg("Failed to finish database session")
				}

				if rec != nil {
					panic(rec)
				}

				var commitErr *database.CommitError
				if errors.As(err, &commitErr) {
					writeServerError(w)
					return
				}
				buf.flush()
			}()

			next.ServeHTTP(buf, r.WithContext(ctx))
			completed = true
		})
	}
}

func observe(m *metrics.Metrics, scope *Scope, outcome database.Outcome, err error) {
	if !scope.Opened() {
		return
	}
	var commitErr *database.CommitError
	switch {
	case errors.As(err, &commitErr):
		m.ObserveSession(metrics.SessionCommitFailed)
	case outcome == database.OutcomeFailure:
		m.ObserveSession(metrics.SessionRolledBack)
	default:
		m.ObserveSession(metrics.SessionCommitted)
	}
}

// Session returns the request's database session, creating it on first call.
// It panics when the Sessions middleware is not installed.
func Session(ctx context.Context) *database.Session {
	scope, ok := ctx.Value(scopeKey{}).(*Scope)
	if !ok {
		panic("middleware: no session scope in request context")
	}
	return scope.Get()
}

func writeServerError(w http.ResponseWriter) {
	w.Header().Del("Content-Length")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	_, _ = w.Write([]byte(`{"detail":"Internal Server Error"}`))
}

// bufferedWriter holds a response in memory until the session is finished
type bufferedWriter struct {
	w           http.ResponseWriter
	status      int
	wroteHeader bool
	body        bytes.Buffer
}

func newBufferedWriter(w http.ResponseWriter) *bufferedWriter {
	return &bufferedWriter{w: w, status: http.StatusOK}
}

func (b *bufferedWriter) Header() http.Header {
	return b.w.Header()
}

func (b *bufferedWriter) WriteHeader(status int) {
	if b.wroteHeader {
		return
	}
	b.wroteHeader = true
	b.status = status
}

func (b *bufferedWriter) Write(p []byte) (int, error) {
	b.wroteHeader = true
	return b.body.Write(p)
}

func (b *bufferedWriter) flush() {
	b.w.WriteHeader(b.status)
	if b.body.Len() > 0 {
		_, _ = b.w.Write(b.body.Bytes())
	}
}
