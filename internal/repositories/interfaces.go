package repositories

import (
	"context"

	"github.com/fastpix01-lab/fruitamruth/internal/domain"
)

// Registry exposes typed repository accessors and lifecycle hooks for dependency injection.
type Registry interface {
	Close(ctx context.Context) error

	Categories() CategoryRepository
	Products() ProductRepository
	Orders() OrderRepository
	Health() HealthRepository
}

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// CategoryRepository persists menu categories.
type CategoryRepository interface {
	// List returns categories ordered by name.
	List(ctx context.Context) ([]domain.Category, error)
	Get(ctx context.Context, categoryID string) (domain.Category, error)
	Insert(ctx context.Context, category domain.Category) error
	Rename(ctx context.Context, categoryID string, name string) (domain.Category, error)
	// Delete removes the category and detaches every product that referenced it.
	Delete(ctx context.Context, categoryID string) error
	Count(ctx context.Context) (int, error)
}

// ProductRepository persists catalog products. Returned products carry CategoryID only.
type ProductRepository interface {
	// List returns products newest first, optionally narrowed to one category.
	List(ctx context.Context, filter ProductFilter) ([]domain.Product, error)
	Get(ctx context.Context, productID string) (domain.Product, error)
	Insert(ctx context.Context, product domain.Product) error
	Update(ctx context.Context, product domain.Product) error
	Delete(ctx context.Context, productID string) error
	Count(ctx context.Context) (int, error)
}

// OrderRepository persists placed orders.
type OrderRepository interface {
	Insert(ctx context.Context, order domain.Order) error
	// List returns orders newest first.
	List(ctx context.Context) ([]domain.Order, error)
	Get(ctx context.Context, orderID string) (domain.Order, error)
	UpdateStatus(ctx context.Context, orderID string, status domain.OrderStatus) (domain.Order, error)
	Delete(ctx context.Context, orderID string) error
	Count(ctx context.Context) (int, error)
}

// HealthRepository exposes status of downstream dependencies for health checks.
type HealthRepository interface {
	Collect(ctx context.Context) (domain.SystemHealthReport, error)
}

// ProductFilter narrows product listings. An empty CategoryID matches every product.
type ProductFilter struct {
	CategoryID string
}
