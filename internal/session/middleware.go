package session

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"
)

// ManagerDeps wires the session middleware.
type ManagerDeps struct {
	Store        Store
	Codec        *TokenCodec
	CookieName   string
	TTL          time.Duration
	SecureCookie bool
	Clock        func() time.Time
	NewID        func() string
	Logger       func(context.Context, string, map[string]any)
}

// Manager loads state for each request and persists it when it changes.
type Manager struct {
	store  Store
	codec  *TokenCodec
	cookie string
	ttl    time.Duration
	secure bool
	now    func() time.Time
	newID  func() string
	logger func(context.Context, string, map[string]any)
}

// NewManager validates deps.
func NewManager(deps ManagerDeps) (*Manager, error) {
	if deps.Store == nil {
		return nil, errors.New("session: store is required")
	}
	if deps.Codec == nil {
		return nil, errors.New("session: token codec is required")
	}
	if deps.TTL <= 0 {
		return nil, errors.New("session: ttl must be positive")
	}
	cookie := strings.TrimSpace(deps.CookieName)
	if cookie == "" {
		cookie = "fa_session"
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	newID := deps.NewID
	if newID == nil {
		newID = NewID
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &Manager{
		store:  deps.Store,
		codec:  deps.Codec,
		cookie: cookie,
		ttl:    deps.TTL,
		secure: deps.SecureCookie,
		now:    func() time.Time { return clock().UTC() },
		newID:  newID,
		logger: logger,
	}, nil
}

// Middleware attaches a State to every request and saves it before the response is committed.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		state := m.load(ctx, r)

		cw := &committingWriter{ResponseWriter: w}
		cw.commit = func() { m.persist(ctx, cw.ResponseWriter, state) }

		next.ServeHTTP(cw, r.WithContext(WithState(ctx, state)))
		cw.flush()
	})
}

func (m *Manager) load(ctx context.Context, r *http.Request) *State {
	cookie, err := r.Cookie(m.cookie)
	if err != nil || strings.TrimSpace(cookie.Value) == "" {
		return NewState(m.newID(), m.now())
	}
	id, err := m.codec.Parse(cookie.Value)
	if err != nil {
		m.logger(ctx, "session.cookie_rejected", map[string]any{"reason": err.Error()})
		return NewState(m.newID(), m.now())
	}
	state, err := m.store.Load(ctx, id)
	switch {
	case err == nil:
		return state
	case errors.Is(err, ErrNotFound):
	case errors.Is(err, ErrCorrupt):
		// Unreadable state would fail on every request until it expired.
		if delErr := m.store.Delete(ctx, id); delErr != nil {
			m.logger(ctx, "session.delete_failed", map[string]any{"sessionId": id, "error": delErr.Error()})
		}
		m.logger(ctx, "session.discarded", map[string]any{"sessionId": id, "error": err.Error()})
	default:
		m.logger(ctx, "session.load_failed", map[string]any{"sessionId": id, "error": err.Error()})
	}
	return NewState(id, m.now())
}

func (m *Manager) persist(ctx context.Context, w http.ResponseWriter, state *State) {
	if !state.Dirty() {
		return
	}
	state.sync(m.now())
	if err := m.store.Save(ctx, state, m.ttl); err != nil {
		m.logger(ctx, "session.save_failed", map[string]any{"sessionId": state.ID, "error": err.Error()})
		return
	}
	token, expires, err := m.codec.Issue(state.ID)
	if err != nil {
		m.logger(ctx, "session.sign_failed", map[string]any{"sessionId": state.ID, "error": err.Error()})
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookie,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		MaxAge:   int(m.ttl / time.Second),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// committingWriter runs commit exactly once, just before headers are sent.
type committingWriter struct {
	http.ResponseWriter
	commit func()
	once   sync.Once
}

func (c *committingWriter) flush() {
	c.once.Do(c.commit)
}

func (c *committingWriter) WriteHeader(status int) {
	c.flush()
	c.ResponseWriter.WriteHeader(status)
}

func (c *committingWriter) Write(b []byte) (int, error) {
	c.flush()
	return c.ResponseWriter.Write(b)
}

func (c *committingWriter) Unwrap() http.ResponseWriter {
	return c.ResponseWriter
}
