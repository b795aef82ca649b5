package checkout

import (
	"fmt"
	"strings"

	"github.com/fastpix01-lab/fruitamruth/internal/cart"
)

// Stage names a step of the checkout wizard.
type Stage string

const (
	StageCart    Stage = "cart"
	StageAddress Stage = "address"
	StagePayment Stage = "payment"
	StageGateway Stage = "gateway"
	StageSuccess Stage = "success"
)

var stageOrder = []Stage{StageCart, StageAddress, StagePayment, StageGateway, StageSuccess}

// ParseStage resolves a stage name.
func ParseStage(raw string) (Stage, bool) {
	candidate := Stage(strings.ToLower(strings.TrimSpace(raw)))
	for _, stage := range stageOrder {
		if stage == candidate {
			return stage, true
		}
	}
	return "", false
}

// Back returns the stage preceding the given one. Cart and Success have no predecessor inside the wizard.
func Back(stage Stage) Stage {
	switch stage {
	case StagePayment:
		return StageAddress
	case StageGateway:
		return StagePayment
	default:
		return StageCart
	}
}

// Redirect tells the caller to send the customer to an earlier stage.
type Redirect struct {
	To     Stage
	Reason string
}

func (r *Redirect) Error() string {
	return fmt.Sprintf("checkout: redirect to %s: %s", r.To, r.Reason)
}

// Guard evaluates the entry preconditions of stage and returns the earliest unmet one, or nil.
func Guard(stage Stage, sess *Session, items *cart.Store) *Redirect {
	if sess == nil {
		sess = &Session{}
	}
	if stage == StageSuccess {
		if !sess.PaymentComplete {
			return &Redirect{To: StageCart, Reason: "no completed order"}
		}
		return nil
	}
	if stage == StageCart {
		return nil
	}

	if items == nil || items.TotalItems() == 0 {
		return &Redirect{To: StageCart, Reason: "cart is empty"}
	}
	if strings.TrimSpace(sess.CustomerName) == "" {
		return &Redirect{To: StageCart, Reason: "customer name is missing"}
	}
	if stage == StageAddress {
		return nil
	}

	if sess.Address == nil {
		return &Redirect{To: StageAddress, Reason: "delivery address is missing"}
	}
	if stage == StagePayment {
		return nil
	}

	if sess.PaymentMethod == "" {
		return &Redirect{To: StagePayment, Reason: "payment method is missing"}
	}
	return nil
}
