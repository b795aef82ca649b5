package checkout

import "errors"

var (
	// ErrValidation is wrapped by every input validation failure.
	ErrValidation = errors.New("checkout: validation failed")
	// ErrPaymentFailed is returned when the order could not be placed during confirm.
	ErrPaymentFailed = errors.New("checkout: payment failed")
)

const (
	msgCustomerRequired = "Please enter your name and email."
	msgAddressRequired  = "Please fill in all required fields."
	msgInvalidPhone     = "Please enter a valid 10-digit phone number."
	msgInvalidPincode   = "Please enter a valid 6-digit pincode."
	msgMethodRequired   = "Please select a payment method."
	msgPaymentFailed    = "Payment failed. Please try again."
)

// ValidationError carries the message shown next to the offending form.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return "checkout: " + e.Message
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func invalid(message string) error {
	return &ValidationError{Message: message}
}

// PaymentError reports a failed confirm. The cart and session are left untouched so the customer can retry.
type PaymentError struct {
	Message string
	Err     error
}

func (e *PaymentError) Error() string {
	if e.Err == nil {
		return "checkout: " + e.Message
	}
	return "checkout: " + e.Message + ": " + e.Err.Error()
}

func (e *PaymentError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrPaymentFailed}
	}
	return []error{ErrPaymentFailed, e.Err}
}
