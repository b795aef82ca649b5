// Package idempotency replays the stored response of a write that is retried with the same Idempotency-Key,
// so a double-submitted order is placed once.
package idempotency

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/fastpix01-lab/fruitamruth/internal/platform/httpx"
)

const (
	// HeaderName carries the client-chosen key.
	HeaderName = "Idempotency-Key"
	// ReplayHeader is set on responses served from the store.
	ReplayHeader = "X-Idempotent-Replay"

	maxKeyLength = 255
)

type middlewareConfig struct {
	ttl     time.Duration
	methods map[string]struct{}
	clock   func() time.Time
	scope   func(*http.Request) string
	logger  func(context.Context, string, map[string]any)
}

// MiddlewareOption customises Middleware.
type MiddlewareOption func(*middlewareConfig)

// WithTTL sets how long completed responses are replayable.
func WithTTL(ttl time.Duration) MiddlewareOption {
	return func(cfg *middlewareConfig) {
		if ttl > 0 {
			cfg.ttl = ttl
		}
	}
}

// WithClock overrides the time source.
func WithClock(clock func() time.Time) MiddlewareOption {
	return func(cfg *middlewareConfig) {
		if clock != nil {
			cfg.clock = clock
		}
	}
}

// WithScope namespaces keys, typically by session id, so two browsers cannot collide.
func WithScope(scope func(*http.Request) string) MiddlewareOption {
	return func(cfg *middlewareConfig) {
		cfg.scope = scope
	}
}

// WithLogger reports store failures.
func WithLogger(logger func(context.Context, string, map[string]any)) MiddlewareOption {
	return func(cfg *middlewareConfig) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

// Middleware guards POST, PUT and DELETE requests carrying an Idempotency-Key header.
// Requests without the header pass straight through.
func Middleware(store Store, opts ...MiddlewareOption) func(http.Handler) http.Handler {
	if store == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	cfg := middlewareConfig{
		ttl: DefaultTTL,
		methods: map[string]struct{}{
			http.MethodPost:   {},
			http.MethodPut:    {},
			http.MethodDelete: {},
		},
		clock:  time.Now,
		logger: func(context.Context, string, map[string]any) {},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := strings.TrimSpace(r.Header.Get(HeaderName))
			if _, guarded := cfg.methods[r.Method]; !guarded || key == "" {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()
			if len(key) > maxKeyLength {
				httpx.WriteError(ctx, w, httpx.NewError("invalid_idempotency_key", "idempotency key is too long", http.StatusBadRequest))
				return
			}

			body, err := readAndReplayBody(r)
			if err != nil {
				httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "unable to read request body", http.StatusBadRequest))
				return
			}

			scope := ""
			if cfg.scope != nil {
				scope = cfg.scope(r)
			}
			scoped := scopedKey(key, scope)
			fingerprint := requestFingerprint(r, body)

			reservation, err := store.Reserve(ctx, scoped, fingerprint, cfg.clock())
			if err != nil {
				if errors.Is(err, ErrFingerprintMismatch) {
					httpx.WriteError(ctx, w, httpx.NewError("idempotency_key_conflict", "idempotency key already used for a different request", http.StatusConflict))
					return
				}
				cfg.logger(ctx, "idempotency.reserve_failed", map[string]any{"error": err.Error()})
				httpx.WriteError(ctx, w, httpx.NewError("idempotency_unavailable", "unable to process idempotency key", http.StatusServiceUnavailable))
				return
			}

			switch reservation.State {
			case ReservationStateCompleted:
				writeStoredResponse(w, reservation.Record)
				return
			case ReservationStatePending:
				httpx.WriteError(ctx, w, httpx.NewError("idempotency_in_progress", "another request is processing this idempotency key", http.StatusConflict))
				return
			}

			recorder := newResponseRecorder()
			next.ServeHTTP(recorder, r)
			resp := recorder.response()
			abandoned := ctx.Err() != nil
			// The record must be settled even when the client has gone away.
			storeCtx := context.WithoutCancel(ctx)

			// Server errors and abandoned requests are released so the client can retry with the same key.
			if resp.Status >= http.StatusInternalServerError || abandoned {
				if err := store.Release(storeCtx, scoped, fingerprint); err != nil {
					cfg.logger(ctx, "idempotency.release_failed", map[string]any{"error": err.Error()})
				}
			} else if err := store.SaveResponse(storeCtx, scoped, fingerprint, resp, cfg.clock(), cfg.ttl); err != nil {
				cfg.logger(ctx, "idempotency.save_failed", map[string]any{"error": err.Error(), "status": resp.Status})
				if releaseErr := store.Release(storeCtx, scoped, fingerprint); releaseErr != nil {
					cfg.logger(ctx, "idempotency.release_failed", map[string]any{"error": releaseErr.Error()})
				}
			}
			recorder.commit(w)
		})
	}
}

func readAndReplayBody(r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return nil, nil
	}
	data, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}
	_ = r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(data))
	return data, nil
}

func requestFingerprint(r *http.Request, body []byte) string {
	var b strings.Builder
	b.WriteString(r.Method)
	b.WriteString("|")
	b.WriteString(r.URL.Path)
	b.WriteString("|")
	b.WriteString(r.URL.RawQuery)
	b.WriteString("|")
	b.WriteString(r.Header.Get("Content-Type"))
	b.WriteString("|")
	if len(body) > 0 {
		b.WriteString(sha256Hex(body))
	}
	return sha256Hex([]byte(b.String()))
}

func scopedKey(key, scope string) string {
	scope = strings.TrimSpace(scope)
	if scope == "" {
		return key
	}
	return scope + "|" + key
}

func writeStoredResponse(w http.ResponseWriter, record Record) {
	for name, values := range record.ResponseHeaders {
		w.Header()[name] = append([]string(nil), values...)
	}
	w.Header().Set(ReplayHeader, "true")
	status := record.ResponseStatus
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	if len(record.ResponseBody) > 0 {
		_, _ = w.Write(record.ResponseBody)
	}
}

// responseRecorder buffers the handler's response so it can be stored before the client sees it.
type responseRecorder struct {
	header http.Header
	status int
	body   bytes.Buffer
}

func newResponseRecorder() *responseRecorder {
	return &responseRecorder{header: make(http.Header)}
}

func (r *responseRecorder) Header() http.Header {
	return r.header
}

func (r *responseRecorder) WriteHeader(status int) {
	if r.status == 0 {
		r.status = status
	}
}

func (r *responseRecorder) Write(data []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.body.Write(data)
}

func (r *responseRecorder) response() Response {
	status := r.status
	if status == 0 {
		status = http.StatusOK
	}
	return Response{Status: status, Headers: r.header.Clone(), Body: r.body.Bytes()}
}

func (r *responseRecorder) commit(w http.ResponseWriter) {
	for name, values := range r.header {
		w.Header()[name] = values
	}
	status := r.status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	if r.body.Len() > 0 {
		_, _ = w.Write(r.body.Bytes())
	}
}
