package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/fastpix01-lab/fruitamruth/internal/cart"
	"github.com/fastpix01-lab/fruitamruth/internal/checkout"
	"github.com/fastpix01-lab/fruitamruth/internal/domain"
	"github.com/fastpix01-lab/fruitamruth/internal/platform/httpx"
	"github.com/fastpix01-lab/fruitamruth/internal/platform/money"
	"github.com/fastpix01-lab/fruitamruth/internal/platform/requestctx"
	"github.com/fastpix01-lab/fruitamruth/internal/platform/storage"
	"github.com/fastpix01-lab/fruitamruth/internal/services"
	"github.com/fastpix01-lab/fruitamruth/internal/session"
)

const codeValidationFailed = "validation_failed"

func writeJSONResponse(w http.ResponseWriter, status int, payload any) {
	httpx.WriteJSON(w, status, payload)
}

func validationError(message string) httpx.Error {
	return httpx.NewError(codeValidationFailed, message, http.StatusUnprocessableEntity)
}

func invalidRequest(message string) httpx.Error {
	return httpx.NewError("invalid_request", message, http.StatusBadRequest)
}

// requireState returns the session bound by the session middleware, answering 500 when it is absent.
func requireState(w http.ResponseWriter, r *http.Request) (*session.State, bool) {
	state, ok := session.FromContext(r.Context())
	if !ok || state == nil {
		httpx.WriteError(r.Context(), w, httpx.NewError("session_unavailable", "session is not available", http.StatusInternalServerError))
		return nil, false
	}
	return state, true
}

// writeServiceError maps service, checkout and storage errors onto the JSON envelope.
func writeServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	var inputErr *services.InputError
	var validationErr *checkout.ValidationError
	switch {
	case errors.As(err, &inputErr):
		httpx.WriteError(ctx, w, validationError(inputErr.Message))
	case errors.As(err, &validationErr):
		httpx.WriteError(ctx, w, validationError(validationErr.Message))
	case errors.Is(err, storage.ErrImageTooLarge):
		httpx.WriteError(ctx, w, httpx.NewError("image_too_large", "Image must be 5 MB or smaller.", http.StatusRequestEntityTooLarge))
	case errors.Is(err, storage.ErrImageType), errors.Is(err, storage.ErrEmptyImage):
		httpx.WriteError(ctx, w, validationError("Please upload a JPEG, PNG, WebP or GIF image."))
	case errors.Is(err, services.ErrOrderStaleCart):
		httpx.WriteError(ctx, w, httpx.NewError("stale_cart", "Some items in your cart are no longer available.", http.StatusConflict))
	case errors.Is(err, services.ErrCatalogNotFound), errors.Is(err, services.ErrOrderNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("not_found", "resource not found", http.StatusNotFound))
	case errors.Is(err, services.ErrCatalogConflict), errors.Is(err, services.ErrOrderConflict):
		httpx.WriteError(ctx, w, httpx.NewError("conflict", "resource was modified concurrently", http.StatusConflict))
	case errors.Is(err, services.ErrCatalogUnavailable), errors.Is(err, services.ErrOrderUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("service_unavailable", "storage is temporarily unavailable", http.StatusServiceUnavailable))
	case errors.Is(err, context.DeadlineExceeded):
		httpx.WriteError(ctx, w, httpx.NewError("timeout", "request timed out", http.StatusGatewayTimeout))
	default:
		requestctx.Logger(ctx).Error("unhandled service error", zap.Error(err))
		httpx.WriteError(ctx, w, httpx.NewError("internal_error", "an unexpected error occurred", http.StatusInternalServerError))
	}
}

type categoryPayload struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"createdAt,omitempty"`
}

func buildCategoryPayload(c domain.Category) categoryPayload {
	return categoryPayload{ID: c.ID, Name: c.Name, CreatedAt: formatTime(c.CreatedAt)}
}

type productPayload struct {
	ID             string           `json:"id"`
	Name           string           `json:"name"`
	Description    string           `json:"description,omitempty"`
	Price          decimal.Decimal  `json:"price"`
	FormattedPrice string           `json:"formattedPrice"`
	ImageURL       string           `json:"imageUrl,omitempty"`
	CategoryID     string           `json:"categoryId,omitempty"`
	Category       *categoryPayload `json:"category,omitempty"`
	CreatedAt      string           `json:"createdAt,omitempty"`
}

func buildProductPayload(p domain.Product) productPayload {
	payload := productPayload{
		ID:             p.ID,
		Name:           p.Name,
		Description:    p.Description,
		Price:          p.Price,
		FormattedPrice: money.Format(p.Price),
		ImageURL:       p.ImageURL,
		CategoryID:     p.CategoryID,
		CreatedAt:      formatTime(p.CreatedAt),
	}
	if p.Category != nil {
		category := buildCategoryPayload(*p.Category)
		payload.Category = &category
	}
	return payload
}

func buildProductPayloads(products []domain.Product) []productPayload {
	out := make([]productPayload, 0, len(products))
	for _, p := range products {
		out = append(out, buildProductPayload(p))
	}
	return out
}

type cartLinePayload struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	ImageURL  string          `json:"imageUrl,omitempty"`
	Quantity  int             `json:"quantity"`
	LineTotal decimal.Decimal `json:"lineTotal"`
}

type cartPayload struct {
	Lines          []cartLinePayload `json:"lines"`
	TotalItems     int               `json:"totalItems"`
	TotalPrice     decimal.Decimal   `json:"totalPrice"`
	FormattedTotal string            `json:"formattedTotal"`
	Open           bool              `json:"open"`
}

func buildCartPayload(store *cart.Store) cartPayload {
	lines := store.Lines()
	payload := cartPayload{
		Lines:      make([]cartLinePayload, 0, len(lines)),
		TotalItems: store.TotalItems(),
		TotalPrice: store.TotalPrice(),
		Open:       store.IsOpen(),
	}
	for _, line := range lines {
		payload.Lines = append(payload.Lines, cartLinePayload{
			ProductID: line.Product.ID,
			Name:      line.Product.Name,
			Price:     line.Product.Price,
			ImageURL:  line.Product.ImageURL,
			Quantity:  line.Quantity,
			LineTotal: line.Total(),
		})
	}
	payload.FormattedTotal = money.Format(payload.TotalPrice)
	return payload
}

type orderItemPayload struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
}

type orderPayload struct {
	ID             string             `json:"id"`
	CustomerName   string             `json:"customerName"`
	CustomerEmail  string             `json:"customerEmail"`
	Items          []orderItemPayload `json:"items"`
	Total          decimal.Decimal    `json:"total"`
	FormattedTotal string             `json:"formattedTotal"`
	Status         string             `json:"status"`
	CreatedAt      string             `json:"createdAt"`
}

func buildOrderPayload(o domain.Order) orderPayload {
	payload := orderPayload{
		ID:             o.ID,
		CustomerName:   o.CustomerName,
		CustomerEmail:  o.CustomerEmail,
		Items:          make([]orderItemPayload, 0, len(o.Items)),
		Total:          o.Total,
		FormattedTotal: money.Format(o.Total),
		Status:         string(o.Status),
		CreatedAt:      formatTime(o.CreatedAt),
	}
	for _, item := range o.Items {
		payload.Items = append(payload.Items, orderItemPayload{
			ProductID: item.ProductID,
			Name:      item.Name,
			Price:     item.Price,
			Quantity:  item.Quantity,
		})
	}
	return payload
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
