package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fastpix01-lab/fruitamruth/internal/domain"
	"github.com/fastpix01-lab/fruitamruth/internal/services"
	"github.com/fastpix01-lab/fruitamruth/internal/session"
)

type stubCatalogService struct {
	listCategoriesFn func(ctx context.Context) ([]domain.Category, error)
	createCategoryFn func(ctx context.Context, name string) (domain.Category, error)
	updateCategoryFn func(ctx context.Context, id, name string) (domain.Category, error)
	deleteCategoryFn func(ctx context.Context, id string) error
	listByCategoryFn func(ctx context.Context, categoryID string) ([]domain.Product, error)
	getProductFn     func(ctx context.Context, id string) (domain.Product, error)
	createProductFn  func(ctx context.Context, input services.ProductInput) (domain.Product, error)
	updateProductFn  func(ctx context.Context, id string, input services.ProductInput) (domain.Product, error)
	deleteProductFn  func(ctx context.Context, id string) error
}

func (s *stubCatalogService) ListCategories(ctx context.Context) ([]domain.Category, error) {
	if s.listCategoriesFn != nil {
		return s.listCategoriesFn(ctx)
	}
	return nil, nil
}

func (s *stubCatalogService) CreateCategory(ctx context.Context, name string) (domain.Category, error) {
	if s.createCategoryFn != nil {
		return s.createCategoryFn(ctx, name)
	}
	return domain.Category{}, nil
}

func (s *stubCatalogService) UpdateCategory(ctx context.Context, id, name string) (domain.Category, error) {
	if s.updateCategoryFn != nil {
		return s.updateCategoryFn(ctx, id, name)
	}
	return domain.Category{}, nil
}

func (s *stubCatalogService) DeleteCategory(ctx context.Context, id string) error {
	if s.deleteCategoryFn != nil {
		return s.deleteCategoryFn(ctx, id)
	}
	return nil
}

func (s *stubCatalogService) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return s.ListProductsByCategory(ctx, "")
}

func (s *stubCatalogService) ListProductsByCategory(ctx context.Context, categoryID string) ([]domain.Product, error) {
	if s.listByCategoryFn != nil {
		return s.listByCategoryFn(ctx, categoryID)
	}
	return nil, nil
}

func (s *stubCatalogService) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	if s.getProductFn != nil {
		return s.getProductFn(ctx, id)
	}
	return domain.Product{}, services.ErrCatalogNotFound
}

func (s *stubCatalogService) CreateProduct(ctx context.Context, input services.ProductInput) (domain.Product, error) {
	if s.createProductFn != nil {
		return s.createProductFn(ctx, input)
	}
	return domain.Product{}, nil
}

func (s *stubCatalogService) UpdateProduct(ctx context.Context, id string, input services.ProductInput) (domain.Product, error) {
	if s.updateProductFn != nil {
		return s.updateProductFn(ctx, id, input)
	}
	return domain.Product{}, nil
}

func (s *stubCatalogService) DeleteProduct(ctx context.Context, id string) error {
	if s.deleteProductFn != nil {
		return s.deleteProductFn(ctx, id)
	}
	return nil
}

type stubOrderService struct {
	placeFn     func(ctx context.Context, draft domain.OrderDraft) (domain.Order, error)
	listFn      func(ctx context.Context) ([]domain.Order, error)
	statusFn    func(ctx context.Context, id, status string) (domain.Order, error)
	deleteFn    func(ctx context.Context, id string) error
	dashboardFn func(ctx context.Context) (domain.DashboardStats, error)
	placed      []domain.OrderDraft
}

func (s *stubOrderService) PlaceOrder(ctx context.Context, draft domain.OrderDraft) (domain.Order, error) {
	s.placed = append(s.placed, draft)
	if s.placeFn != nil {
		return s.placeFn(ctx, draft)
	}
	return domain.Order{ID: "order-1", Status: domain.OrderStatusPending}, nil
}

func (s *stubOrderService) ListOrders(ctx context.Context) ([]domain.Order, error) {
	if s.listFn != nil {
		return s.listFn(ctx)
	}
	return nil, nil
}

func (s *stubOrderService) UpdateOrderStatus(ctx context.Context, id, status string) (domain.Order, error) {
	if s.statusFn != nil {
		return s.statusFn(ctx, id, status)
	}
	return domain.Order{ID: id}, nil
}

func (s *stubOrderService) DeleteOrder(ctx context.Context, id string) error {
	if s.deleteFn != nil {
		return s.deleteFn(ctx, id)
	}
	return nil
}

func (s *stubOrderService) Dashboard(ctx context.Context) (domain.DashboardStats, error) {
	if s.dashboardFn != nil {
		return s.dashboardFn(ctx)
	}
	return domain.DashboardStats{}, nil
}

var (
	_ services.CatalogService = (*stubCatalogService)(nil)
	_ services.OrderService   = (*stubOrderService)(nil)
)

// withState binds a fixed session state so tests can inspect it after the request.
func withState(state *session.State) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(session.WithState(r.Context(), state)))
		})
	}
}

func newTestState() *session.State {
	return session.NewState("5b0c6f0e-8f4f-4b55-9b1e-2b8f0e7c9a11", time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC))
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response %q: %v", rr.Body.String(), err)
	}
	return body
}
