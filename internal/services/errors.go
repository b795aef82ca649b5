package services

import (
	"errors"
	"fmt"

	"github.com/fastpix01-lab/fruitamruth/internal/repositories"
)

var (
	// ErrCatalogInvalidInput indicates the caller supplied invalid catalog data.
	ErrCatalogInvalidInput = errors.New("catalog: invalid input")
	// ErrCatalogNotFound indicates a missing category or product.
	ErrCatalogNotFound = errors.New("catalog: not found")
	// ErrCatalogConflict indicates a concurrent change or duplicate id.
	ErrCatalogConflict = errors.New("catalog: conflict")
	// ErrCatalogUnavailable indicates the backing store could not be reached.
	ErrCatalogUnavailable = errors.New("catalog: unavailable")

	// ErrOrderInvalidInput signals the caller provided invalid order data.
	ErrOrderInvalidInput = errors.New("order: invalid input")
	// ErrOrderNotFound indicates the order could not be located.
	ErrOrderNotFound = errors.New("order: not found")
	// ErrOrderConflict indicates a concurrent change or duplicate id.
	ErrOrderConflict = errors.New("order: conflict")
	// ErrOrderStaleCart indicates the cart references a product that no longer exists.
	ErrOrderStaleCart = errors.New("order: cart references unavailable products")
	// ErrOrderUnavailable indicates the backing store could not be reached.
	ErrOrderUnavailable = errors.New("order: unavailable")
)

const (
	msgCategoryNameRequired = "Category name is required."
	msgNameAndPriceRequired = "Name and price are required."
	msgInvalidPrice         = "Price must be a non-negative amount."
	msgUnknownCategory      = "Selected category does not exist."
	msgCustomerRequired     = "Please enter your name and email."
	msgEmptyOrder           = "Your cart is empty."
	msgInvalidQuantity      = "Item quantities must be positive."
	msgInvalidStatus        = "Unknown order status."
)

// InputError carries a message safe to show to the person who submitted the form.
type InputError struct {
	Kind    error
	Message string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("%v: %s", e.Kind, e.Message)
}

func (e *InputError) Unwrap() error {
	return e.Kind
}

func catalogInput(message string) error {
	return &InputError{Kind: ErrCatalogInvalidInput, Message: message}
}

func orderInput(message string) error {
	return &InputError{Kind: ErrOrderInvalidInput, Message: message}
}

type repoErrorKinds struct {
	notFound    error
	conflict    error
	unavailable error
}

var (
	catalogErrorKinds = repoErrorKinds{notFound: ErrCatalogNotFound, conflict: ErrCatalogConflict, unavailable: ErrCatalogUnavailable}
	orderErrorKinds   = repoErrorKinds{notFound: ErrOrderNotFound, conflict: ErrOrderConflict, unavailable: ErrOrderUnavailable}
)

func mapRepositoryError(err error, kinds repoErrorKinds) error {
	if err == nil {
		return nil
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return fmt.Errorf("%w: %v", kinds.notFound, err)
		case repoErr.IsConflict():
			return fmt.Errorf("%w: %v", kinds.conflict, err)
		case repoErr.IsUnavailable():
			return fmt.Errorf("%w: %w", kinds.unavailable, err)
		}
	}
	return err
}
