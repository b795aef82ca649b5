package di

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fastpix01-lab/fruitamruth/internal/domain"
	"github.com/fastpix01-lab/fruitamruth/internal/platform/config"
	"github.com/fastpix01-lab/fruitamruth/internal/repositories"
	"github.com/fastpix01-lab/fruitamruth/internal/session"
)

type notFoundError struct{}

func (notFoundError) Error() string       { return "not found" }
func (notFoundError) IsNotFound() bool    { return true }
func (notFoundError) IsConflict() bool    { return false }
func (notFoundError) IsUnavailable() bool { return false }

type fakeCategories struct{ items []domain.Category }

func (f *fakeCategories) List(context.Context) ([]domain.Category, error) { return f.items, nil }
func (f *fakeCategories) Get(_ context.Context, id string) (domain.Category, error) {
	for _, c := range f.items {
		if c.ID == id {
			return c, nil
		}
	}
	return domain.Category{}, notFoundError{}
}
func (f *fakeCategories) Insert(context.Context, domain.Category) error { return nil }
func (f *fakeCategories) Rename(_ context.Context, id, name string) (domain.Category, error) {
	return domain.Category{ID: id, Name: name}, nil
}
func (f *fakeCategories) Delete(context.Context, string) error { return nil }
func (f *fakeCategories) Count(context.Context) (int, error)   { return len(f.items), nil }

type fakeProducts struct{ items []domain.Product }

func (f *fakeProducts) List(context.Context, repositories.ProductFilter) ([]domain.Product, error) {
	return f.items, nil
}
func (f *fakeProducts) Get(_ context.Context, id string) (domain.Product, error) {
	for _, p := range f.items {
		if p.ID == id {
			return p, nil
		}
	}
	return domain.Product{}, notFoundError{}
}
func (f *fakeProducts) Insert(context.Context, domain.Product) error { return nil }
func (f *fakeProducts) Update(context.Context, domain.Product) error { return nil }
func (f *fakeProducts) Delete(context.Context, string) error         { return nil }
func (f *fakeProducts) Count(context.Context) (int, error)           { return len(f.items), nil }

type fakeOrders struct{}

func (fakeOrders) Insert(context.Context, domain.Order) error   { return nil }
func (fakeOrders) List(context.Context) ([]domain.Order, error) { return nil, nil }
func (fakeOrders) Get(context.Context, string) (domain.Order, error) {
	return domain.Order{}, notFoundError{}
}
func (fakeOrders) UpdateStatus(context.Context, string, domain.OrderStatus) (domain.Order, error) {
	return domain.Order{}, notFoundError{}
}
func (fakeOrders) Delete(context.Context, string) error { return nil }
func (fakeOrders) Count(context.Context) (int, error)   { return 0, nil }

type fakeRegistry struct {
	categories *fakeCategories
	products   *fakeProducts
	closed     bool
}

func (r *fakeRegistry) Close(context.Context) error                 { r.closed = true; return nil }
func (r *fakeRegistry) Categories() repositories.CategoryRepository { return r.categories }
func (r *fakeRegistry) Products() repositories.ProductRepository    { return r.products }
func (r *fakeRegistry) Orders() repositories.OrderRepository        { return fakeOrders{} }
func (r *fakeRegistry) Health() repositories.HealthRepository       { return nil }

func newTestRegistry() *fakeRegistry {
	created := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	return &fakeRegistry{
		categories: &fakeCategories{items: []domain.Category{{ID: "classic", Name: "Classic", CreatedAt: created}}},
		products: &fakeProducts{items: []domain.Product{{
			ID:         "mango",
			Name:       "Mango Juice",
			Price:      decimal.NewFromInt(120),
			CategoryID: "classic",
			CreatedAt:  created,
		}}},
	}
}

func testConfig() config.Config {
	return config.Config{
		Environment: "test",
		Server:      config.ServerConfig{RequestTimeout: 5 * time.Second},
		Storage:     config.StorageConfig{MaxImageBytes: 5 << 20},
		Session: config.SessionConfig{
			Store:      config.SessionStoreMemory,
			CookieName: "fa_session",
			SigningKey: "0123456789abcdef0123456789abcdef",
			TTL:        time.Hour,
		},
		Checkout:   config.CheckoutConfig{GatewayDelay: time.Millisecond, RepriceOrders: true},
		RateLimits: config.RateLimitConfig{PublicPerMinute: 600, PublicBurst: 50},
	}
}

func TestNewContainerRequiresRegistry(t *testing.T) {
	_, err := NewContainer(context.Background(), testConfig(), Infrastructure{Sessions: session.NewMemoryStore(nil)})
	if err == nil {
		t.Fatalf("expected error without registry")
	}
}

func TestContainerServesStorefront(t *testing.T) {
	reg := newTestRegistry()
	store := session.NewMemoryStore(nil)
	var closed bool
	container, err := NewContainer(context.Background(), testConfig(), Infrastructure{
		Registry: reg,
		Sessions: store,
		Closers:  []func(context.Context) error{func(context.Context) error { closed = true; return nil }},
	})
	if err != nil {
		t.Fatalf("NewContainer: %v", err)
	}

	rr := httptest.NewRecorder()
	container.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/products", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected products 200, got %d: %s", rr.Code, rr.Body.String())
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", bytes.NewBufferString(`{"productId":"mango"}`))
	req.Header.Set("Content-Type", "application/json")
	rr = httptest.NewRecorder()
	container.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected add to cart 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var cookie *http.Cookie
	for _, c := range rr.Result().Cookies() {
		if c.Name == "fa_session" {
			cookie = c
		}
	}
	if cookie == nil {
		t.Fatalf("expected session cookie to be issued")
	}
	if store.Len() != 1 {
		t.Fatalf("expected one stored session, got %d", store.Len())
	}

	rr = httptest.NewRecorder()
	container.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/admin/dashboard", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected admin 401 without token, got %d", rr.Code)
	}

	if err := container.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !closed || !reg.closed {
		t.Fatalf("expected closers and registry to be closed")
	}
}

func TestContainerCloseJoinsErrors(t *testing.T) {
	boom := errors.New("boom")
	container, err := NewContainer(context.Background(), testConfig(), Infrastructure{
		Registry: newTestRegistry(),
		Sessions: session.NewMemoryStore(nil),
		Closers:  []func(context.Context) error{func(context.Context) error { return boom }},
	})
	if err != nil {
		t.Fatalf("NewContainer: %v", err)
	}
	if err := container.Close(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected joined close error, got %v", err)
	}
}

func TestContainerReplaysKeyedWrites(t *testing.T) {
	container, err := NewContainer(context.Background(), testConfig(), Infrastructure{
		Registry: newTestRegistry(),
		Sessions: session.NewMemoryStore(nil),
	})
	if err != nil {
		t.Fatalf("NewContainer: %v", err)
	}

	add := func(cookie *http.Cookie, key string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", bytes.NewBufferString(`{"productId":"mango"}`))
		req.Header.Set("Content-Type", "application/json")
		if key != "" {
			req.Header.Set("Idempotency-Key", key)
		}
		if cookie != nil {
			req.AddCookie(cookie)
		}
		rr := httptest.NewRecorder()
		container.Handler.ServeHTTP(rr, req)
		return rr
	}

	// Open the session first so both keyed requests share its scope.
	first := add(nil, "")
	var cookie *http.Cookie
	for _, c := range first.Result().Cookies() {
		if c.Name == "fa_session" {
			cookie = c
		}
	}
	if cookie == nil {
		t.Fatalf("expected session cookie")
	}

	second := add(cookie, "add-mango-1")
	third := add(cookie, "add-mango-1")
	if second.Code != http.StatusOK || third.Code != http.StatusOK {
		t.Fatalf("expected 200s, got %d and %d", second.Code, third.Code)
	}
	if third.Header().Get("X-Idempotent-Replay") != "true" {
		t.Fatalf("expected the retried add to be replayed")
	}
	if third.Body.String() != second.Body.String() {
		t.Fatalf("expected identical replay body")
	}
}
