package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/shopspring/decimal"

	"github.com/fastpix01-lab/fruitamruth/internal/domain"
	pfirestore "github.com/fastpix01-lab/fruitamruth/internal/platform/firestore"
	"github.com/fastpix01-lab/fruitamruth/internal/repositories"
)

const productsCollection = "products"

// Prices are stored as decimal strings so paise never pass through float64.
type productDocument struct {
	Name        string    `firestore:"name"`
	Description string    `firestore:"description"`
	Price       string    `firestore:"price"`
	ImageURL    string    `firestore:"imageUrl"`
	CategoryID  string    `firestore:"categoryId"`
	CreatedAt   time.Time `firestore:"createdAt"`
	UpdatedAt   time.Time `firestore:"updatedAt"`
}

// ProductRepository stores products in the "products" collection.
type ProductRepository struct {
	products *pfirestore.Collection[productDocument]
	now      func() time.Time
}

var _ repositories.ProductRepository = (*ProductRepository)(nil)

// NewProductRepository constructs a Firestore-backed product repository.
func NewProductRepository(provider *pfirestore.Provider) (*ProductRepository, error) {
	if provider == nil {
		return nil, errors.New("product repository requires firestore provider")
	}
	return &ProductRepository{
		products: pfirestore.NewCollection[productDocument](provider, productsCollection),
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

// List needs the composite index (categoryId ASC, createdAt DESC) when filtering.
func (r *ProductRepository) List(ctx context.Context, filter repositories.ProductFilter) ([]domain.Product, error) {
	categoryID := strings.TrimSpace(filter.CategoryID)
	docs, err := r.products.Query(ctx, func(q firestore.Query) firestore.Query {
		if categoryID != "" {
			q = q.Where("categoryId", "==", categoryID)
		}
		return q.OrderBy("createdAt", firestore.Desc)
	})
	if err != nil {
		return nil, err
	}
	out := make([]domain.Product, 0, len(docs))
	for _, doc := range docs {
		product, err := productFromDocument(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, product)
	}
	return out, nil
}

func (r *ProductRepository) Get(ctx context.Context, productID string) (domain.Product, error) {
	doc, err := r.products.Get(ctx, strings.TrimSpace(productID))
	if err != nil {
		return domain.Product{}, err
	}
	return productFromDocument(doc)
}

func (r *ProductRepository) Insert(ctx context.Context, product domain.Product) error {
	created := product.CreatedAt.UTC()
	_, err := r.products.Create(ctx, product.ID, productDocument{
		Name:        product.Name,
		Description: product.Description,
		Price:       product.Price.String(),
		ImageURL:    product.ImageURL,
		CategoryID:  product.CategoryID,
		CreatedAt:   created,
		UpdatedAt:   created,
	})
	return err
}

func (r *ProductRepository) Update(ctx context.Context, product domain.Product) error {
	_, err := r.products.Update(ctx, product.ID, []firestore.Update{
		{Path: "name", Value: product.Name},
		{Path: "description", Value: product.Description},
		{Path: "price", Value: product.Price.String()},
		{Path: "imageUrl", Value: product.ImageURL},
		{Path: "categoryId", Value: product.CategoryID},
		{Path: "updatedAt", Value: r.now()},
	})
	return err
}

func (r *ProductRepository) Delete(ctx context.Context, productID string) error {
	return r.products.Delete(ctx, productID)
}

func (r *ProductRepository) Count(ctx context.Context) (int, error) {
	return r.products.Count(ctx)
}

func productFromDocument(doc pfirestore.Document[productDocument]) (domain.Product, error) {
	price, err := decimal.NewFromString(doc.Data.Price)
	if err != nil {
		return domain.Product{}, fmt.Errorf("products.decode %s: invalid price %q: %w", doc.ID, doc.Data.Price, err)
	}
	created := doc.Data.CreatedAt
	if created.IsZero() {
		created = doc.CreateTime
	}
	return domain.Product{
		ID:          doc.ID,
		Name:        doc.Data.Name,
		Description: doc.Data.Description,
		Price:       price,
		ImageURL:    doc.Data.ImageURL,
		CategoryID:  doc.Data.CategoryID,
		CreatedAt:   created.UTC(),
	}, nil
}
