package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fastpix01-lab/fruitamruth/internal/checkout"
	"github.com/fastpix01-lab/fruitamruth/internal/domain"
	"github.com/fastpix01-lab/fruitamruth/internal/platform/httpx"
	"github.com/fastpix01-lab/fruitamruth/internal/platform/requestctx"
)

// CheckoutHandlers drives the checkout wizard for the session in the request.
type CheckoutHandlers struct {
	wizard *checkout.Wizard
}

// NewCheckoutHandlers constructs checkout handlers around wizard.
func NewCheckoutHandlers(wizard *checkout.Wizard) *CheckoutHandlers {
	return &CheckoutHandlers{wizard: wizard}
}

// Routes wires the /checkout endpoints onto the provided router.
func (h *CheckoutHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Put("/checkout/customer", h.setCustomer)
	r.Get("/checkout/address", h.getAddress)
	r.Post("/checkout/address", h.submitAddress)
	r.Get("/checkout/payment", h.getPayment)
	r.Post("/checkout/payment", h.selectPayment)
	r.Get("/checkout/gateway", h.getGateway)
	r.Post("/checkout/gateway:confirm", h.confirm)
	r.Get("/checkout/success", h.getSuccess)
	r.Get("/checkout/back", h.back)
	r.Post("/checkout:reset", h.reset)
}

type customerRequest struct {
	CustomerName  string `json:"customerName"`
	CustomerEmail string `json:"customerEmail"`
}

type paymentRequest struct {
	Method string `json:"method"`
}

type stageResponse struct {
	Stage      checkout.Stage `json:"stage"`
	NextAction string         `json:"nextAction,omitempty"`
}

func (h *CheckoutHandlers) setCustomer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	state, ok := requireState(w, r)
	if !ok {
		return
	}
	var req customerRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(ctx, w, invalidRequest(err.Error()))
		return
	}
	sess := state.CheckoutSession()
	if err := h.wizard.SetCustomer(sess, req.CustomerName, req.CustomerEmail); err != nil {
		h.writeCheckoutError(ctx, w, err)
		return
	}
	state.MarkDirty()
	writeJSONResponse(w, http.StatusOK, map[string]any{
		"customerName":  sess.CustomerName,
		"customerEmail": sess.CustomerEmail,
		"stage":         checkout.StageAddress,
	})
}

func (h *CheckoutHandlers) getAddress(w http.ResponseWriter, r *http.Request) {
	state, ok := requireState(w, r)
	if !ok {
		return
	}
	view, err := h.wizard.Address(state.CheckoutSession(), state.CartStore())
	if err != nil {
		h.writeCheckoutError(r.Context(), w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, view)
}

func (h *CheckoutHandlers) submitAddress(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	state, ok := requireState(w, r)
	if !ok {
		return
	}
	var req domain.Address
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(ctx, w, invalidRequest(err.Error()))
		return
	}
	if err := h.wizard.SubmitAddress(state.CheckoutSession(), state.CartStore(), req); err != nil {
		h.writeCheckoutError(ctx, w, err)
		return
	}
	state.MarkDirty()
	writeJSONResponse(w, http.StatusOK, stageResponse{Stage: checkout.StagePayment})
}

func (h *CheckoutHandlers) getPayment(w http.ResponseWriter, r *http.Request) {
	state, ok := requireState(w, r)
	if !ok {
		return
	}
	view, err := h.wizard.Payment(state.CheckoutSession(), state.CartStore())
	if err != nil {
		h.writeCheckoutError(r.Context(), w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, view)
}

func (h *CheckoutHandlers) selectPayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	state, ok := requireState(w, r)
	if !ok {
		return
	}
	var req paymentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(ctx, w, invalidRequest(err.Error()))
		return
	}
	sess := state.CheckoutSession()
	if err := h.wizard.SelectPaymentMethod(sess, state.CartStore(), req.Method); err != nil {
		h.writeCheckoutError(ctx, w, err)
		return
	}
	state.MarkDirty()
	view, err := h.wizard.Payment(sess, state.CartStore())
	if err != nil {
		h.writeCheckoutError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, stageResponse{Stage: checkout.StageGateway, NextAction: view.NextAction})
}

func (h *CheckoutHandlers) getGateway(w http.ResponseWriter, r *http.Request) {
	state, ok := requireState(w, r)
	if !ok {
		return
	}
	view, err := h.wizard.Gateway(state.CheckoutSession(), state.CartStore())
	if err != nil {
		h.writeCheckoutError(r.Context(), w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, view)
}

func (h *CheckoutHandlers) confirm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	state, ok := requireState(w, r)
	if !ok {
		return
	}
	view, err := h.wizard.Confirm(ctx, state.CheckoutSession(), state.CartStore())
	if err != nil {
		h.writeCheckoutError(ctx, w, err)
		return
	}
	state.MarkDirty()
	writeJSONResponse(w, http.StatusOK, view)
}

func (h *CheckoutHandlers) getSuccess(w http.ResponseWriter, r *http.Request) {
	state, ok := requireState(w, r)
	if !ok {
		return
	}
	view, err := h.wizard.Success(state.CheckoutSession())
	if err != nil {
		h.writeCheckoutError(r.Context(), w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, view)
}

func (h *CheckoutHandlers) back(w http.ResponseWriter, r *http.Request) {
	from, ok := checkout.ParseStage(r.URL.Query().Get("from"))
	if !ok {
		httpx.WriteError(r.Context(), w, invalidRequest("from must name a checkout stage"))
		return
	}
	writeJSONResponse(w, http.StatusOK, stageResponse{Stage: checkout.Back(from)})
}

func (h *CheckoutHandlers) reset(w http.ResponseWriter, r *http.Request) {
	state, ok := requireState(w, r)
	if !ok {
		return
	}
	h.wizard.Reset(state.CheckoutSession())
	state.MarkDirty()
	writeJSONResponse(w, http.StatusOK, stageResponse{Stage: checkout.StageCart})
}

func (h *CheckoutHandlers) writeCheckoutError(ctx context.Context, w http.ResponseWriter, err error) {
	var redirect *checkout.Redirect
	var paymentErr *checkout.PaymentError
	switch {
	case errors.As(err, &redirect):
		w.Header().Set("Location", stagePath(redirect.To))
		writeJSONResponse(w, http.StatusSeeOther, map[string]any{
			"redirect": redirect.To,
			"reason":   redirect.Reason,
		})
	case errors.As(err, &paymentErr):
		httpx.WriteError(ctx, w, httpx.NewError("payment_failed", paymentErr.Message, http.StatusBadGateway).
			WithDetails(map[string]any{"retryable": true}))
	case errors.Is(err, context.Canceled):
		// Cancelled during the gateway wait; no order was placed.
		requestctx.Logger(ctx).Info("checkout confirm cancelled")
		httpx.WriteError(ctx, w, httpx.NewError("request_cancelled", "checkout was interrupted before payment completed", http.StatusServiceUnavailable).
			WithDetails(map[string]any{"retryable": true}))
	default:
		writeServiceError(ctx, w, err)
	}
}

func stagePath(stage checkout.Stage) string {
	if stage == checkout.StageCart {
		return defaultAPIPrefix + "/cart"
	}
	return defaultAPIPrefix + "/checkout/" + string(stage)
}
