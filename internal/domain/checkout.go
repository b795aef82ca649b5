package domain

import "strings"

// Address is the delivery address collected during checkout.
type Address struct {
	FullName string `json:"fullName"`
	Phone    string `json:"phone"`
	Line1    string `json:"line1"`
	Line2    string `json:"line2,omitempty"`
	City     string `json:"city"`
	State    string `json:"state"`
	Pincode  string `json:"pincode"`
}

// Trimmed returns a copy with surrounding whitespace removed from every field.
func (a Address) Trimmed() Address {
	return Address{
		FullName: strings.TrimSpace(a.FullName),
		Phone:    strings.TrimSpace(a.Phone),
		Line1:    strings.TrimSpace(a.Line1),
		Line2:    strings.TrimSpace(a.Line2),
		City:     strings.TrimSpace(a.City),
		State:    strings.TrimSpace(a.State),
		Pincode:  strings.TrimSpace(a.Pincode),
	}
}

// PaymentMethod identifies how the customer pays.
type PaymentMethod string

const (
	PaymentMethodUPI  PaymentMethod = "upi"
	PaymentMethodCard PaymentMethod = "card"
	PaymentMethodCOD  PaymentMethod = "cod"
)

var paymentMethodLabels = map[PaymentMethod]string{
	PaymentMethodUPI:  "UPI",
	PaymentMethodCard: "Card",
	PaymentMethodCOD:  "Cash on Delivery",
}

// PaymentMethods lists the methods offered on the payment stage.
func PaymentMethods() []PaymentMethod {
	return []PaymentMethod{PaymentMethodUPI, PaymentMethodCard, PaymentMethodCOD}
}

// ParsePaymentMethod accepts the canonical identifiers plus the cashOnDelivery alias.
func ParsePaymentMethod(raw string) (PaymentMethod, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "upi":
		return PaymentMethodUPI, true
	case "card":
		return PaymentMethodCard, true
	case "cod", "cashondelivery", "cash_on_delivery":
		return PaymentMethodCOD, true
	default:
		return "", false
	}
}

// Label returns the human readable name of the method.
func (m PaymentMethod) Label() string {
	return paymentMethodLabels[m]
}

// Simulated reports whether the method goes through the simulated gateway delay.
func (m PaymentMethod) Simulated() bool {
	return m == PaymentMethodUPI || m == PaymentMethodCard
}
