package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/fastpix01-lab/fruitamruth/internal/checkout"
	"github.com/fastpix01-lab/fruitamruth/internal/domain"
	"github.com/fastpix01-lab/fruitamruth/internal/platform/httpx"
	"github.com/fastpix01-lab/fruitamruth/internal/platform/requestctx"
	"github.com/fastpix01-lab/fruitamruth/internal/services"
)

const msgQuickOrderFailed = "Failed to place order. Please try again."

// QuickOrderHandlers places an order straight from the cart without the wizard.
type QuickOrderHandlers struct {
	orders  services.OrderService
	limiter func(http.Handler) http.Handler
}

// NewQuickOrderHandlers constructs the quick order handler.
func NewQuickOrderHandlers(orders services.OrderService, limiter func(http.Handler) http.Handler) *QuickOrderHandlers {
	return &QuickOrderHandlers{orders: orders, limiter: limiter}
}

// Routes wires POST /orders onto the provided router.
func (h *QuickOrderHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.With(optional(h.limiter)).Post("/orders", h.placeOrder)
}

func (h *QuickOrderHandlers) placeOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	state, ok := requireState(w, r)
	if !ok {
		return
	}
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service is unavailable", http.StatusServiceUnavailable))
		return
	}
	var req customerRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(ctx, w, invalidRequest(err.Error()))
		return
	}
	name := strings.TrimSpace(req.CustomerName)
	email := strings.TrimSpace(req.CustomerEmail)
	if name == "" || email == "" {
		httpx.WriteError(ctx, w, validationError("Please enter your name and email."))
		return
	}

	store := state.CartStore()
	if store.IsEmpty() {
		httpx.WriteError(ctx, w, validationError("Your cart is empty."))
		return
	}
	items := store.OrderItems()
	order, err := h.orders.PlaceOrder(ctx, domain.OrderDraft{
		CustomerName:  name,
		CustomerEmail: email,
		Items:         items,
		Total:         store.TotalPrice(),
	})
	if err != nil {
		requestctx.Logger(ctx).Warn("quick order failed", zap.Error(err))
		// Input errors keep their own message; everything else gets the retry prompt.
		var inputErr *services.InputError
		if errors.As(err, &inputErr) {
			httpx.WriteError(ctx, w, validationError(inputErr.Message))
			return
		}
		httpx.WriteError(ctx, w, httpx.NewError("order_failed", msgQuickOrderFailed, http.StatusBadGateway).
			WithDetails(map[string]any{"retryable": true}))
		return
	}

	store.Clear()
	state.MarkDirty()
	writeJSONResponse(w, http.StatusCreated, map[string]any{
		"orderId":  order.ID,
		"estimate": checkout.DeliveryEstimate,
	})
}
