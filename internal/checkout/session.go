package checkout

import "github.com/fastpix01-lab/fruitamruth/internal/domain"

// Session is the data collected across the wizard for a single checkout attempt.
type Session struct {
	CustomerName    string               `json:"customerName,omitempty"`
	CustomerEmail   string               `json:"customerEmail,omitempty"`
	Address         *domain.Address      `json:"address,omitempty"`
	PaymentMethod   domain.PaymentMethod `json:"paymentMethod,omitempty"`
	PaymentComplete bool                 `json:"paymentComplete"`
	OrderReference  string               `json:"orderReference,omitempty"`
	OrderID         string               `json:"orderId,omitempty"`
}

// Reset returns the session to its initial empty state.
func (s *Session) Reset() {
	*s = Session{}
}
