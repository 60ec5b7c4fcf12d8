// Package middleware holds the chi middleware stack of the job API and the
// adapter that lets handlers return coded errors.
package middleware

import (
	"encoding/json"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"clipforge/internal/httpkit"
	"clipforge/internal/pkg/errors"
	"clipforge/internal/pkg/logger"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

// maxRequestIDLen bounds caller supplied ids before they reach the logs.
const maxRequestIDLen = 128

// jobIDParam is the route parameter naming a job.
const jobIDParam = "jobId"

// statusRecorder remembers the first status written and the body size.
type statusRecorder struct {
	http.ResponseWriter
	code    int
	written int64
}

func (s *statusRecorder) WriteHeader(code int) {
	if s.code != 0 {
		return
	}
	s.code = code
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	if s.code == 0 {
		s.WriteHeader(http.StatusOK)
	}
	n, err := s.ResponseWriter.Write(b)
	s.written += int64(n)
	return n, err
}

func (s *statusRecorder) status() int {
	if s.code == 0 {
		return http.StatusOK
	}
	return s.code
}

// RequestID reuses a well-formed inbound X-Request-ID or mints a uuid, echoes
// it on the response and stores it in the request context for the logger.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if !usableRequestID(id) {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(logger.ContextWithRequestID(r.Context(), id)))
	})
}

func usableRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLen {
		return false
	}
	for i := 0; i < len(id); i++ {
		if c := id[i]; c <= ' ' || c > '~' {
			return false
		}
	}
	return true
}

// Logging writes one access line per request once the handler returns. The
// line names the matched chi route and, for job routes, the job id.
func Logging(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w}
			next.ServeHTTP(rec, r)

			status := rec.status()
			attrs := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"status", status,
				"bytes", rec.written,
				"elapsed_ms", time.Since(start).Milliseconds(),
			}
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if route := rctx.RoutePattern(); route != "" {
					attrs = append(attrs, "route", route)
				}
				if id := rctx.URLParam(jobIDParam); id != "" {
					attrs = append(attrs, "job_id", id)
				}
			}

			reqLog := log.FromContext(r.Context())
			switch {
			case status >= http.StatusInternalServerError:
				reqLog.Error("request served", attrs...)
			case status >= http.StatusBadRequest:
				reqLog.Warn("request served", attrs...)
			default:
				reqLog.Info("request served", attrs...)
			}
		})
	}
}

// Recovery turns a handler panic into an INTERNAL_ERROR envelope. An
// http.ErrAbortHandler panic is passed on so the server drops the connection.
func Recovery(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				log.FromContext(r.Context()).Error("handler panicked",
					"panic", rec,
					"method", r.Method,
					"path", r.URL.Path,
					"stack", string(debug.Stack()),
				)
				httpkit.WriteError(w, errors.Newf(errors.CodeInternal, "handler panicked: %v", rec))
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// Timeout cancels the request context after d. A handler still running then
// gets its writes discarded and the client a 503 TIMEOUT envelope.
func Timeout(d time.Duration) func(http.Handler) http.Handler {
	var env httpkit.ErrorEnvelope
	env.Error.Code = string(errors.CodeTimeout)
	env.Error.Message = "request took longer than " + d.String()
	body, _ := json.Marshal(env)

	return func(next http.Handler) http.Handler {
		th := http.TimeoutHandler(next, d, string(body))
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			th.ServeHTTP(w, r)
		})
	}
}

// ErrorHandlerFunc is a handler that returns its failure instead of writing
// it.
type ErrorHandlerFunc func(w http.ResponseWriter, r *http.Request) error

// WrapHandler adapts fn to http.HandlerFunc, answering a returned error with
// HandleError.
func WrapHandler(log *logger.Logger, fn ErrorHandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := fn(w, r); err != nil {
			HandleError(w, r, log, err)
		}
	}
}

// HandleError logs err with its code and fields and writes its envelope.
// Server side failures are logged at error level with the creation stack;
// client mistakes at warn.
func HandleError(w http.ResponseWriter, r *http.Request, log *logger.Logger, err error) {
	status := errors.GetHTTPStatus(err)
	attrs := []any{
		"code", string(errors.GetCode(err)),
		"status", status,
		"method", r.Method,
		"path", r.URL.Path,
	}
	if id := chi.URLParam(r, jobIDParam); id != "" {
		attrs = append(attrs, "job_id", id)
	}
	for k, v := range errors.GetFields(err) {
		attrs = append(attrs, k, v)
	}

	reqLog := log.FromContext(r.Context()).WithError(err)
	if status >= http.StatusInternalServerError {
		var cerr *errors.Error
		if errors.As(err, &cerr) && len(cerr.Stack) > 0 {
			attrs = append(attrs, "stack", cerr.StackTrace())
		}
		reqLog.Error("job api request failed", attrs...)
	} else {
		reqLog.Warn("job api request rejected", attrs...)
	}

	httpkit.WriteError(w, err)
}
