package handlers

import (
	"errors"
	"mime"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/fastpix01-lab/fruitamruth/internal/domain"
	"github.com/fastpix01-lab/fruitamruth/internal/platform/auth"
	"github.com/fastpix01-lab/fruitamruth/internal/platform/httpx"
	"github.com/fastpix01-lab/fruitamruth/internal/platform/money"
	"github.com/fastpix01-lab/fruitamruth/internal/platform/requestctx"
	"github.com/fastpix01-lab/fruitamruth/internal/services"
)

const (
	defaultMaxUploadBytes = 5 << 20
	multipartMemory       = 1 << 20
	formFieldImage        = "image"
)

// AdminHandlers serves the admin console API. Authentication is applied by the router group.
type AdminHandlers struct {
	catalog        services.CatalogService
	orders         services.OrderService
	maxUploadBytes int64
}

// AdminOption customises AdminHandlers.
type AdminOption func(*AdminHandlers)

// WithMaxUploadBytes caps the size of a product image upload.
func WithMaxUploadBytes(n int64) AdminOption {
	return func(h *AdminHandlers) {
		if n > 0 {
			h.maxUploadBytes = n
		}
	}
}

// NewAdminHandlers constructs admin handlers.
func NewAdminHandlers(catalog services.CatalogService, orders services.OrderService, opts ...AdminOption) *AdminHandlers {
	h := &AdminHandlers{catalog: catalog, orders: orders, maxUploadBytes: defaultMaxUploadBytes}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// Routes wires the admin endpoints relative to the /admin group.
func (h *AdminHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/dashboard", h.dashboard)

	r.Get("/categories", h.listCategories)
	r.Post("/categories", h.createCategory)
	r.Put("/categories/{categoryID}", h.updateCategory)
	r.Delete("/categories/{categoryID}", h.deleteCategory)

	r.Get("/products", h.listProducts)
	r.Post("/products", h.createProduct)
	r.Put("/products/{productID}", h.updateProduct)
	r.Delete("/products/{productID}", h.deleteProduct)

	r.Get("/orders", h.listOrders)
	r.Put("/orders/{orderID}/status", h.updateOrderStatus)
	r.Delete("/orders/{orderID}", h.deleteOrder)
}

type categoryRequest struct {
	Name string `json:"name"`
}

type orderStatusRequest struct {
	Status string `json:"status"`
}

func (h *AdminHandlers) dashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.ready(w, r) {
		return
	}
	stats, err := h.orders.Dashboard(ctx)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{
		"products":         stats.Products,
		"categories":       stats.Categories,
		"orders":           stats.Orders,
		"revenue":          stats.Revenue,
		"formattedRevenue": money.Format(stats.Revenue),
	})
}

func (h *AdminHandlers) listCategories(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.ready(w, r) {
		return
	}
	categories, err := h.catalog.ListCategories(ctx)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	items := make([]categoryPayload, 0, len(categories))
	for _, c := range categories {
		items = append(items, buildCategoryPayload(c))
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"categories": items})
}

func (h *AdminHandlers) createCategory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.ready(w, r) {
		return
	}
	var req categoryRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(ctx, w, invalidRequest(err.Error()))
		return
	}
	category, err := h.catalog.CreateCategory(ctx, req.Name)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	h.audit(r, "category.created", category.ID)
	writeJSONResponse(w, http.StatusCreated, buildCategoryPayload(category))
}

func (h *AdminHandlers) updateCategory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.ready(w, r) {
		return
	}
	var req categoryRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(ctx, w, invalidRequest(err.Error()))
		return
	}
	category, err := h.catalog.UpdateCategory(ctx, chi.URLParam(r, "categoryID"), req.Name)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	h.audit(r, "category.updated", category.ID)
	writeJSONResponse(w, http.StatusOK, buildCategoryPayload(category))
}

func (h *AdminHandlers) deleteCategory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.ready(w, r) {
		return
	}
	categoryID := chi.URLParam(r, "categoryID")
	if err := h.catalog.DeleteCategory(ctx, categoryID); err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	h.audit(r, "category.deleted", categoryID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandlers) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.ready(w, r) {
		return
	}
	products, err := h.catalog.ListProductsByCategory(ctx, r.URL.Query().Get("category"))
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"products": buildProductPayloads(products)})
}

func (h *AdminHandlers) createProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.ready(w, r) {
		return
	}
	input, cleanup, err := h.parseProductForm(w, r)
	if err != nil {
		httpx.WriteError(ctx, w, productFormError(err))
		return
	}
	defer cleanup()

	product, err := h.catalog.CreateProduct(ctx, input)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	h.audit(r, "product.created", product.ID)
	writeJSONResponse(w, http.StatusCreated, buildProductPayload(product))
}

func (h *AdminHandlers) updateProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.ready(w, r) {
		return
	}
	input, cleanup, err := h.parseProductForm(w, r)
	if err != nil {
		httpx.WriteError(ctx, w, productFormError(err))
		return
	}
	defer cleanup()

	product, err := h.catalog.UpdateProduct(ctx, chi.URLParam(r, "productID"), input)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	h.audit(r, "product.updated", product.ID)
	writeJSONResponse(w, http.StatusOK, buildProductPayload(product))
}

func (h *AdminHandlers) deleteProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.ready(w, r) {
		return
	}
	productID := chi.URLParam(r, "productID")
	if err := h.catalog.DeleteProduct(ctx, productID); err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	h.audit(r, "product.deleted", productID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandlers) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.ready(w, r) {
		return
	}
	orders, err := h.orders.ListOrders(ctx)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	items := make([]orderPayload, 0, len(orders))
	for _, o := range orders {
		items = append(items, buildOrderPayload(o))
	}
	statuses := domain.OrderStatuses()
	writeJSONResponse(w, http.StatusOK, map[string]any{"orders": items, "statuses": statuses})
}

func (h *AdminHandlers) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.ready(w, r) {
		return
	}
	var req orderStatusRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(ctx, w, invalidRequest(err.Error()))
		return
	}
	order, err := h.orders.UpdateOrderStatus(ctx, chi.URLParam(r, "orderID"), req.Status)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	h.audit(r, "order.status_updated", order.ID)
	writeJSONResponse(w, http.StatusOK, buildOrderPayload(order))
}

func (h *AdminHandlers) deleteOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.ready(w, r) {
		return
	}
	orderID := chi.URLParam(r, "orderID")
	if err := h.orders.DeleteOrder(ctx, orderID); err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	h.audit(r, "order.deleted", orderID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandlers) ready(w http.ResponseWriter, r *http.Request) bool {
	if h.catalog == nil || h.orders == nil {
		httpx.WriteError(r.Context(), w, httpx.NewError("admin_service_unavailable", "admin services are unavailable", http.StatusServiceUnavailable))
		return false
	}
	return true
}

func (h *AdminHandlers) audit(r *http.Request, action, target string) {
	fields := []zap.Field{zap.String("action", action), zap.String("target", target)}
	if identity, ok := auth.IdentityFromContext(r.Context()); ok {
		fields = append(fields, zap.String("actor", identity.UID))
	}
	requestctx.Logger(r.Context()).Info("admin action", fields...)
}

var (
	errUnsupportedForm = errors.New("expected multipart/form-data or application/x-www-form-urlencoded")
	errUploadTooLarge  = errors.New("upload exceeds the allowed size")
)

func productFormError(err error) httpx.Error {
	if errors.Is(err, errUploadTooLarge) {
		return httpx.NewError("image_too_large", "Image must be 5 MB or smaller.", http.StatusRequestEntityTooLarge)
	}
	return invalidRequest(err.Error())
}

// parseProductForm reads the product fields and the optional image file. cleanup releases temporary files.
func (h *AdminHandlers) parseProductForm(w http.ResponseWriter, r *http.Request) (services.ProductInput, func(), error) {
	noop := func() {}
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "multipart/form-data":
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+multipartMemory)
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				return services.ProductInput{}, noop, errUploadTooLarge
			}
			return services.ProductInput{}, noop, err
		}
	case "application/x-www-form-urlencoded":
		if err := r.ParseForm(); err != nil {
			return services.ProductInput{}, noop, err
		}
	default:
		return services.ProductInput{}, noop, errUnsupportedForm
	}

	input := services.ProductInput{
		Name:        r.FormValue("name"),
		Description: r.FormValue("description"),
		Price:       r.FormValue("price"),
		CategoryID:  r.FormValue("categoryId"),
	}
	cleanup := func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}
	if r.MultipartForm == nil {
		return input, cleanup, nil
	}

	file, header, err := r.FormFile(formFieldImage)
	switch {
	case errors.Is(err, http.ErrMissingFile):
		return input, cleanup, nil
	case err != nil:
		cleanup()
		return services.ProductInput{}, noop, err
	}
	prevCleanup := cleanup
	cleanup = func() {
		_ = file.Close()
		prevCleanup()
	}
	input.Image = &services.ImageUpload{
		FileName:    header.Filename,
		ContentType: strings.TrimSpace(header.Header.Get("Content-Type")),
		Body:        file,
	}
	return input, cleanup, nil
}
