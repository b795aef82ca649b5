package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/fastpix01-lab/fruitamruth/internal/cart"
	"github.com/fastpix01-lab/fruitamruth/internal/platform/httpx"
	"github.com/fastpix01-lab/fruitamruth/internal/services"
)

// CartHandlers exposes the session cart.
type CartHandlers struct {
	catalog services.CatalogService
	limiter func(http.Handler) http.Handler
}

// NewCartHandlers constructs cart handlers. Products are resolved through catalog so prices come from the menu.
func NewCartHandlers(catalog services.CatalogService, limiter func(http.Handler) http.Handler) *CartHandlers {
	return &CartHandlers{catalog: catalog, limiter: limiter}
}

// Routes wires the /cart endpoints onto the provided router.
func (h *CartHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/cart", h.getCart)
	r.Delete("/cart", h.clearCart)
	r.Post("/cart:toggle", h.toggle)
	r.Post("/cart:close", h.closeDrawer)
	r.Put("/cart/items/{productID}", h.updateItem)
	r.Delete("/cart/items/{productID}", h.removeItem)
	r.With(optional(h.limiter)).Post("/cart/items", h.addItem)
}

type addCartItemRequest struct {
	ProductID string `json:"productId"`
}

type updateCartItemRequest struct {
	Quantity *int `json:"quantity"`
}

func (h *CartHandlers) getCart(w http.ResponseWriter, r *http.Request) {
	state, ok := requireState(w, r)
	if !ok {
		return
	}
	writeJSONResponse(w, http.StatusOK, buildCartPayload(state.CartStore()))
}

func (h *CartHandlers) addItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	state, ok := requireState(w, r)
	if !ok {
		return
	}
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_service_unavailable", "catalog service is unavailable", http.StatusServiceUnavailable))
		return
	}
	var req addCartItemRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(ctx, w, invalidRequest(err.Error()))
		return
	}
	productID := strings.TrimSpace(req.ProductID)
	if productID == "" {
		httpx.WriteError(ctx, w, validationError("productId is required"))
		return
	}
	product, err := h.catalog.GetProduct(ctx, productID)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	store := state.CartStore()
	store.Add(cart.ProductFromDomain(product))
	state.MarkDirty()
	writeJSONResponse(w, http.StatusOK, buildCartPayload(store))
}

func (h *CartHandlers) updateItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	state, ok := requireState(w, r)
	if !ok {
		return
	}
	var req updateCartItemRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(ctx, w, invalidRequest(err.Error()))
		return
	}
	if req.Quantity == nil {
		httpx.WriteError(ctx, w, validationError("quantity is required"))
		return
	}
	store := state.CartStore()
	store.UpdateQuantity(chi.URLParam(r, "productID"), *req.Quantity)
	state.MarkDirty()
	writeJSONResponse(w, http.StatusOK, buildCartPayload(store))
}

func (h *CartHandlers) removeItem(w http.ResponseWriter, r *http.Request) {
	state, ok := requireState(w, r)
	if !ok {
		return
	}
	store := state.CartStore()
	store.Remove(chi.URLParam(r, "productID"))
	state.MarkDirty()
	writeJSONResponse(w, http.StatusOK, buildCartPayload(store))
}

func (h *CartHandlers) clearCart(w http.ResponseWriter, r *http.Request) {
	state, ok := requireState(w, r)
	if !ok {
		return
	}
	store := state.CartStore()
	store.Clear()
	state.MarkDirty()
	writeJSONResponse(w, http.StatusOK, buildCartPayload(store))
}

func (h *CartHandlers) toggle(w http.ResponseWriter, r *http.Request) {
	state, ok := requireState(w, r)
	if !ok {
		return
	}
	store := state.CartStore()
	store.Toggle()
	state.MarkDirty()
	writeJSONResponse(w, http.StatusOK, buildCartPayload(store))
}

func (h *CartHandlers) closeDrawer(w http.ResponseWriter, r *http.Request) {
	state, ok := requireState(w, r)
	if !ok {
		return
	}
	store := state.CartStore()
	store.Close()
	state.MarkDirty()
	writeJSONResponse(w, http.StatusOK, buildCartPayload(store))
}

func optional(mw func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	if mw == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return mw
}
