// Package checkout implements the staged checkout that turns a cart into a placed order.
package checkout

import (
	"context"
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fastpix01-lab/fruitamruth/internal/cart"
	"github.com/fastpix01-lab/fruitamruth/internal/domain"
	"github.com/fastpix01-lab/fruitamruth/internal/platform/money"
	"github.com/fastpix01-lab/fruitamruth/internal/services"
)

const (
	// DefaultGatewayDelay models the round trip of an online payment gateway.
	DefaultGatewayDelay = 2 * time.Second
	// DeliveryEstimate is quoted on the success stage.
	DeliveryEstimate = "25-30 minutes"

	referencePrefix = "FA-"
)

var (
	phonePattern   = regexp.MustCompile(`^\d{10}$`)
	pincodePattern = regexp.MustCompile(`^\d{6}$`)
)

// OrderPlacer persists orders on behalf of the wizard.
type OrderPlacer interface {
	PlaceOrder(ctx context.Context, draft domain.OrderDraft) (domain.Order, error)
}

// WizardDeps bundles the collaborators of the wizard.
type WizardDeps struct {
	Orders       OrderPlacer
	GatewayDelay time.Duration
	Sleep        func(context.Context, time.Duration) error
	Clock        func() time.Time
	Logger       func(ctx context.Context, event string, fields map[string]any)
}

// Wizard drives a Session and a cart.Store through the checkout stages.
type Wizard struct {
	orders OrderPlacer
	delay  time.Duration
	sleep  func(context.Context, time.Duration) error
	now    func() time.Time
	logger func(context.Context, string, map[string]any)
}

// NewWizard validates the dependencies and returns a ready wizard.
func NewWizard(deps WizardDeps) (*Wizard, error) {
	if deps.Orders == nil {
		return nil, errors.New("checkout wizard: order placer is required")
	}
	delay := deps.GatewayDelay
	if delay <= 0 {
		delay = DefaultGatewayDelay
	}
	sleep := deps.Sleep
	if sleep == nil {
		sleep = sleepContext
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &Wizard{
		orders: deps.Orders,
		delay:  delay,
		sleep:  sleep,
		now: func() time.Time {
			return clock().UTC()
		},
		logger: logger,
	}, nil
}

// PaymentOption describes one choice on the payment stage.
type PaymentOption struct {
	Method      domain.PaymentMethod `json:"method"`
	Label       string               `json:"label"`
	Description string               `json:"description"`
}

var paymentOptionCopy = map[domain.PaymentMethod]PaymentOption{
	domain.PaymentMethodUPI:  {Label: "UPI", Description: "Pay using Google Pay, PhonePe, Paytm or any UPI app"},
	domain.PaymentMethodCard: {Label: "Credit / Debit Card", Description: "Visa, Mastercard, RuPay secure payment"},
	domain.PaymentMethodCOD:  {Label: "Cash on Delivery", Description: "Pay when your order arrives at your doorstep"},
}

// paymentOptions follows the order of domain.PaymentMethods.
func paymentOptions() []PaymentOption {
	methods := domain.PaymentMethods()
	options := make([]PaymentOption, 0, len(methods))
	for _, method := range methods {
		option, ok := paymentOptionCopy[method]
		if !ok {
			option = PaymentOption{Label: method.Label()}
		}
		option.Method = method
		options = append(options, option)
	}
	return options
}

// AddressView is what the address stage renders.
type AddressView struct {
	CustomerName string          `json:"customerName"`
	Address      *domain.Address `json:"address,omitempty"`
}

// PaymentView is what the payment stage renders.
type PaymentView struct {
	Selected   domain.PaymentMethod `json:"selected,omitempty"`
	Options    []PaymentOption      `json:"options"`
	Address    domain.Address       `json:"address"`
	NextAction string               `json:"nextAction"`
}

// GatewayLine is one cart line shown on the gateway stage.
type GatewayLine struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	LineTotal decimal.Decimal `json:"lineTotal"`
}

// GatewayView is what the gateway stage renders before confirm.
type GatewayView struct {
	Title          string               `json:"title"`
	Subtitle       string               `json:"subtitle"`
	ActionLabel    string               `json:"actionLabel"`
	Method         domain.PaymentMethod `json:"method"`
	MethodLabel    string               `json:"methodLabel"`
	Brand          string               `json:"brand,omitempty"`
	Address        domain.Address       `json:"address"`
	Lines          []GatewayLine        `json:"lines"`
	TotalItems     int                  `json:"totalItems"`
	Total          decimal.Decimal      `json:"total"`
	FormattedTotal string               `json:"formattedTotal"`
	Currency       string               `json:"currency"`
}

// SuccessView is the confirmation shown after a placed order.
type SuccessView struct {
	Heading       string          `json:"heading"`
	CustomerName  string          `json:"customerName"`
	CustomerEmail string          `json:"customerEmail"`
	Reference     string          `json:"reference"`
	OrderID       string          `json:"orderId"`
	PaymentMethod string          `json:"paymentMethod"`
	Address       *domain.Address `json:"address,omitempty"`
	Estimate      string          `json:"estimate"`
}

// SetCustomer records who is ordering. Both values are trimmed and required.
func (w *Wizard) SetCustomer(sess *Session, name, email string) error {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	if name == "" || email == "" {
		return invalid(msgCustomerRequired)
	}
	sess.CustomerName = name
	sess.CustomerEmail = email
	return nil
}

// Address returns the address stage view, or a redirect when its preconditions fail.
func (w *Wizard) Address(sess *Session, items *cart.Store) (AddressView, error) {
	if redirect := Guard(StageAddress, sess, items); redirect != nil {
		return AddressView{}, redirect
	}
	view := AddressView{CustomerName: sess.CustomerName}
	if sess.Address != nil {
		addr := *sess.Address
		view.Address = &addr
	}
	return view, nil
}

// SubmitAddress validates and stores the trimmed delivery address.
func (w *Wizard) SubmitAddress(sess *Session, items *cart.Store, input domain.Address) error {
	if redirect := Guard(StageAddress, sess, items); redirect != nil {
		return redirect
	}
	addr := input.Trimmed()
	if addr.FullName == "" || addr.Phone == "" || addr.Line1 == "" || addr.City == "" || addr.State == "" || addr.Pincode == "" {
		return invalid(msgAddressRequired)
	}
	if !phonePattern.MatchString(addr.Phone) {
		return invalid(msgInvalidPhone)
	}
	if !pincodePattern.MatchString(addr.Pincode) {
		return invalid(msgInvalidPincode)
	}
	sess.Address = &addr
	return nil
}

// Payment returns the payment stage view.
func (w *Wizard) Payment(sess *Session, items *cart.Store) (PaymentView, error) {
	if redirect := Guard(StagePayment, sess, items); redirect != nil {
		return PaymentView{}, redirect
	}
	return PaymentView{
		Selected:   sess.PaymentMethod,
		Options:    paymentOptions(),
		Address:    *sess.Address,
		NextAction: nextActionLabel(sess.PaymentMethod),
	}, nil
}

// SelectPaymentMethod stores the chosen method.
func (w *Wizard) SelectPaymentMethod(sess *Session, items *cart.Store, raw string) error {
	if redirect := Guard(StagePayment, sess, items); redirect != nil {
		return redirect
	}
	method, ok := domain.ParsePaymentMethod(raw)
	if !ok {
		return invalid(msgMethodRequired)
	}
	sess.PaymentMethod = method
	return nil
}

// Gateway returns the review shown before confirm.
func (w *Wizard) Gateway(sess *Session, items *cart.Store) (GatewayView, error) {
	if redirect := Guard(StageGateway, sess, items); redirect != nil {
		return GatewayView{}, redirect
	}
	lines := items.Lines()
	view := GatewayView{
		Method:      sess.PaymentMethod,
		MethodLabel: sess.PaymentMethod.Label(),
		Address:     *sess.Address,
		Lines:       make([]GatewayLine, 0, len(lines)),
		TotalItems:  items.TotalItems(),
		Total:       items.TotalPrice(),
		Currency:    money.Code(),
	}
	for _, line := range lines {
		view.Lines = append(view.Lines, GatewayLine{
			ProductID: line.Product.ID,
			Name:      line.Product.Name,
			Quantity:  line.Quantity,
			Price:     line.Product.Price,
			LineTotal: line.Total(),
		})
	}
	view.FormattedTotal = money.Format(view.Total)
	if sess.PaymentMethod.Simulated() {
		view.Title = "Payment Gateway"
		view.Subtitle = "Complete your payment securely"
		view.ActionLabel = "Pay " + view.FormattedTotal
		view.Brand = "Fruit Amruth Pay"
	} else {
		view.Title = "Confirm Order"
		view.Subtitle = "Review and confirm your COD order"
		view.ActionLabel = "Confirm Order " + view.FormattedTotal
	}
	return view, nil
}

// Confirm runs the simulated payment and places exactly one order.
// On failure the cart and session are left as they were so the customer can retry.
func (w *Wizard) Confirm(ctx context.Context, sess *Session, items *cart.Store) (SuccessView, error) {
	if redirect := Guard(StageGateway, sess, items); redirect != nil {
		return SuccessView{}, redirect
	}

	if sess.PaymentMethod.Simulated() {
		if err := w.sleep(ctx, w.delay); err != nil {
			return SuccessView{}, err
		}
	}

	orderItems := items.OrderItems()
	draft := domain.OrderDraft{
		CustomerName:  sess.CustomerName,
		CustomerEmail: sess.CustomerEmail,
		Items:         orderItems,
		Total:         domain.SumItems(orderItems),
	}

	order, err := w.orders.PlaceOrder(ctx, draft)
	if err != nil {
		// Rejected input is a validation failure, not a payment failure.
		var inputErr *services.InputError
		if errors.As(err, &inputErr) {
			w.logger(ctx, "checkout.order_rejected", map[string]any{
				"method": string(sess.PaymentMethod),
				"error":  err.Error(),
			})
			return SuccessView{}, invalid(inputErr.Message)
		}
		w.logger(ctx, "checkout.payment_failed", map[string]any{
			"method": string(sess.PaymentMethod),
			"items":  len(orderItems),
			"error":  err.Error(),
		})
		return SuccessView{}, &PaymentError{Message: msgPaymentFailed, Err: err}
	}

	sess.PaymentComplete = true
	sess.OrderID = order.ID
	sess.OrderReference = NewReference(w.now())
	items.Clear()

	w.logger(ctx, "checkout.order_placed", map[string]any{
		"orderId":   order.ID,
		"reference": sess.OrderReference,
		"method":    string(sess.PaymentMethod),
		"total":     draft.Total.StringFixed(2),
	})
	return w.successView(sess), nil
}

// Success returns the confirmation view, or a redirect to the cart when no order was completed.
func (w *Wizard) Success(sess *Session) (SuccessView, error) {
	if redirect := Guard(StageSuccess, sess, nil); redirect != nil {
		return SuccessView{}, redirect
	}
	return w.successView(sess), nil
}

// Reset abandons the checkout attempt. The cart is not touched.
func (w *Wizard) Reset(sess *Session) {
	sess.Reset()
}

func (w *Wizard) successView(sess *Session) SuccessView {
	view := SuccessView{
		Heading:       "Thank you, " + sess.CustomerName + "!",
		CustomerName:  sess.CustomerName,
		CustomerEmail: sess.CustomerEmail,
		Reference:     sess.OrderReference,
		OrderID:       sess.OrderID,
		PaymentMethod: sess.PaymentMethod.Label(),
		Estimate:      DeliveryEstimate,
	}
	if sess.Address != nil {
		addr := *sess.Address
		view.Address = &addr
	}
	return view
}

// NewReference builds the customer-facing order reference from a timestamp.
func NewReference(at time.Time) string {
	return referencePrefix + strings.ToUpper(strconv.FormatInt(at.UnixMilli(), 36))
}

func nextActionLabel(method domain.PaymentMethod) string {
	if method == domain.PaymentMethodCOD {
		return "Confirm Order"
	}
	return "Continue to Pay"
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
