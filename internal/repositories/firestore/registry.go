// Package firestore implements the repository interfaces on Cloud Firestore.
package firestore

import (
	"context"
	"errors"

	pfirestore "github.com/fastpix01-lab/fruitamruth/internal/platform/firestore"
	"github.com/fastpix01-lab/fruitamruth/internal/repositories"
)

// Registry bundles the Firestore repositories around one shared provider.
type Registry struct {
	provider   *pfirestore.Provider
	categories *CategoryRepository
	products   *ProductRepository
	orders     *OrderRepository
	health     repositories.HealthRepository
}

var _ repositories.Registry = (*Registry)(nil)

// NewRegistry builds every repository on provider. health may be nil when readiness is not served.
func NewRegistry(provider *pfirestore.Provider, health repositories.HealthRepository) (*Registry, error) {
	if provider == nil {
		return nil, errors.New("firestore registry: provider is required")
	}
	categories, err := NewCategoryRepository(provider)
	if err != nil {
		return nil, err
	}
	products, err := NewProductRepository(provider)
	if err != nil {
		return nil, err
	}
	orders, err := NewOrderRepository(provider)
	if err != nil {
		return nil, err
	}
	return &Registry{
		provider:   provider,
		categories: categories,
		products:   products,
		orders:     orders,
		health:     health,
	}, nil
}

func (r *Registry) Categories() repositories.CategoryRepository { return r.categories }
func (r *Registry) Products() repositories.ProductRepository    { return r.products }
func (r *Registry) Orders() repositories.OrderRepository        { return r.orders }
func (r *Registry) Health() repositories.HealthRepository       { return r.health }

// Close releases the Firestore client.
func (r *Registry) Close(context.Context) error {
	return r.provider.Close()
}
