package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"

	"github.com/fastpix01-lab/fruitamruth/internal/domain"
	"github.com/fastpix01-lab/fruitamruth/internal/repositories"
)

const allCategories = "all"

// CatalogServiceDeps bundles constructor inputs for the catalog service.
type CatalogServiceDeps struct {
	Categories  repositories.CategoryRepository
	Products    repositories.ProductRepository
	Images      ProductImageStore
	Clock       func() time.Time
	IDGenerator func() string
	Logger      func(ctx context.Context, event string, fields map[string]any)
}

type catalogService struct {
	categories repositories.CategoryRepository
	products   repositories.ProductRepository
	images     ProductImageStore
	clock      func() time.Time
	newID      func() string
	sanitize   *bluemonday.Policy
	logger     func(context.Context, string, map[string]any)
}

var _ CatalogService = (*catalogService)(nil)

// NewCatalogService constructs the catalog service with the supplied dependencies.
func NewCatalogService(deps CatalogServiceDeps) (CatalogService, error) {
	if deps.Categories == nil {
		return nil, errors.New("catalog service: category repository is required")
	}
	if deps.Products == nil {
		return nil, errors.New("catalog service: product repository is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return ulid.Make().String() }
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &catalogService{
		categories: deps.Categories,
		products:   deps.Products,
		images:     deps.Images,
		clock:      func() time.Time { return clock().UTC() },
		newID:      idGen,
		sanitize:   bluemonday.StrictPolicy(),
		logger:     logger,
	}, nil
}

func (s *catalogService) ListCategories(ctx context.Context) ([]domain.Category, error) {
	categories, err := s.categories.List(ctx)
	if err != nil {
		return nil, mapRepositoryError(err, catalogErrorKinds)
	}
	return categories, nil
}

func (s *catalogService) CreateCategory(ctx context.Context, name string) (domain.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Category{}, catalogInput(msgCategoryNameRequired)
	}
	category := domain.Category{ID: s.newID(), Name: name, CreatedAt: s.clock()}
	if err := s.categories.Insert(ctx, category); err != nil {
		return domain.Category{}, mapRepositoryError(err, catalogErrorKinds)
	}
	s.logger(ctx, "catalog.category.created", map[string]any{"categoryId": category.ID})
	return category, nil
}

func (s *catalogService) UpdateCategory(ctx context.Context, categoryID string, name string) (domain.Category, error) {
	categoryID = strings.TrimSpace(categoryID)
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Category{}, catalogInput(msgCategoryNameRequired)
	}
	category, err := s.categories.Rename(ctx, categoryID, name)
	if err != nil {
		return domain.Category{}, mapRepositoryError(err, catalogErrorKinds)
	}
	return category, nil
}

func (s *catalogService) DeleteCategory(ctx context.Context, categoryID string) error {
	categoryID = strings.TrimSpace(categoryID)
	if err := s.categories.Delete(ctx, categoryID); err != nil {
		return mapRepositoryError(err, catalogErrorKinds)
	}
	s.logger(ctx, "catalog.category.deleted", map[string]any{"categoryId": categoryID})
	return nil
}

func (s *catalogService) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return s.listProducts(ctx, repositories.ProductFilter{})
}

func (s *catalogService) ListProductsByCategory(ctx context.Context, categoryID string) ([]domain.Product, error) {
	categoryID = strings.TrimSpace(categoryID)
	if strings.EqualFold(categoryID, allCategories) {
		categoryID = ""
	}
	return s.listProducts(ctx, repositories.ProductFilter{CategoryID: categoryID})
}

func (s *catalogService) listProducts(ctx context.Context, filter repositories.ProductFilter) ([]domain.Product, error) {
	products, err := s.products.List(ctx, filter)
	if err != nil {
		return nil, mapRepositoryError(err, catalogErrorKinds)
	}
	if len(products) == 0 {
		return products, nil
	}
	categories, err := s.categoryIndex(ctx)
	if err != nil {
		return nil, err
	}
	for i := range products {
		products[i].Category = categories[products[i].CategoryID]
	}
	return products, nil
}

func (s *catalogService) GetProduct(ctx context.Context, productID string) (domain.Product, error) {
	product, err := s.products.Get(ctx, strings.TrimSpace(productID))
	if err != nil {
		return domain.Product{}, mapRepositoryError(err, catalogErrorKinds)
	}
	if product.CategoryID != "" {
		category, err := s.categories.Get(ctx, product.CategoryID)
		if err == nil {
			product.Category = &category
		}
	}
	return product, nil
}

func (s *catalogService) CreateProduct(ctx context.Context, input ProductInput) (domain.Product, error) {
	product, err := s.buildProduct(ctx, input)
	if err != nil {
		return domain.Product{}, err
	}
	product.ID = s.newID()
	product.CreatedAt = s.clock()

	if input.Image != nil {
		url, err := s.uploadImage(ctx, input.Image)
		if err != nil {
			return domain.Product{}, err
		}
		product.ImageURL = url
	}

	if err := s.products.Insert(ctx, product); err != nil {
		if product.ImageURL != "" {
			s.discardImage(ctx, product.ImageURL)
		}
		return domain.Product{}, mapRepositoryError(err, catalogErrorKinds)
	}
	s.logger(ctx, "catalog.product.created", map[string]any{"productId": product.ID})
	return product, nil
}

func (s *catalogService) UpdateProduct(ctx context.Context, productID string, input ProductInput) (domain.Product, error) {
	existing, err := s.products.Get(ctx, strings.TrimSpace(productID))
	if err != nil {
		return domain.Product{}, mapRepositoryError(err, catalogErrorKinds)
	}
	updated, err := s.buildProduct(ctx, input)
	if err != nil {
		return domain.Product{}, err
	}
	updated.ID = existing.ID
	updated.CreatedAt = existing.CreatedAt
	updated.ImageURL = existing.ImageURL

	if input.Image != nil {
		url, err := s.uploadImage(ctx, input.Image)
		if err != nil {
			return domain.Product{}, err
		}
		updated.ImageURL = url
	}

	if err := s.products.Update(ctx, updated); err != nil {
		if input.Image != nil {
			s.discardImage(ctx, updated.ImageURL)
		}
		return domain.Product{}, mapRepositoryError(err, catalogErrorKinds)
	}
	// The old image goes only once the record points at its replacement.
	if input.Image != nil && existing.HasImage() && existing.ImageURL != updated.ImageURL {
		s.discardImage(ctx, existing.ImageURL)
	}
	s.logger(ctx, "catalog.product.updated", map[string]any{"productId": updated.ID})
	return updated, nil
}

func (s *catalogService) DeleteProduct(ctx context.Context, productID string) error {
	product, err := s.products.Get(ctx, strings.TrimSpace(productID))
	if err != nil {
		return mapRepositoryError(err, catalogErrorKinds)
	}
	if product.HasImage() {
		s.discardImage(ctx, product.ImageURL)
	}
	if err := s.products.Delete(ctx, product.ID); err != nil {
		return mapRepositoryError(err, catalogErrorKinds)
	}
	s.logger(ctx, "catalog.product.deleted", map[string]any{"productId": product.ID})
	return nil
}

func (s *catalogService) buildProduct(ctx context.Context, input ProductInput) (domain.Product, error) {
	name := strings.TrimSpace(input.Name)
	rawPrice := strings.TrimSpace(input.Price)
	if name == "" || rawPrice == "" {
		return domain.Product{}, catalogInput(msgNameAndPriceRequired)
	}
	price, err := decimal.NewFromString(rawPrice)
	if err != nil || price.IsNegative() {
		return domain.Product{}, catalogInput(msgInvalidPrice)
	}

	categoryID := strings.TrimSpace(input.CategoryID)
	if categoryID != "" {
		if _, err := s.categories.Get(ctx, categoryID); err != nil {
			mapped := mapRepositoryError(err, catalogErrorKinds)
			if errors.Is(mapped, ErrCatalogNotFound) {
				return domain.Product{}, catalogInput(msgUnknownCategory)
			}
			return domain.Product{}, mapped
		}
	}

	return domain.Product{
		Name:        name,
		Description: strings.TrimSpace(s.sanitize.Sanitize(input.Description)),
		Price:       price.Round(2),
		CategoryID:  categoryID,
	}, nil
}

func (s *catalogService) uploadImage(ctx context.Context, image *ImageUpload) (string, error) {
	if s.images == nil {
		return "", errors.New("catalog service: image store is not configured")
	}
	url, err := s.images.Upload(ctx, image.FileName, image.ContentType, image.Body)
	if err != nil {
		s.logger(ctx, "catalog.image.upload_failed", map[string]any{"error": err.Error()})
		return "", err
	}
	return url, nil
}

func (s *catalogService) discardImage(ctx context.Context, url string) {
	if s.images == nil {
		return
	}
	if err := s.images.Delete(ctx, url); err != nil {
		s.logger(ctx, "catalog.image.delete_failed", map[string]any{"url": url, "error": err.Error()})
	}
}

func (s *catalogService) categoryIndex(ctx context.Context) (map[string]*domain.Category, error) {
	categories, err := s.categories.List(ctx)
	if err != nil {
		return nil, mapRepositoryError(err, catalogErrorKinds)
	}
	index := make(map[string]*domain.Category, len(categories))
	for i := range categories {
		index[categories[i].ID] = &categories[i]
	}
	return index, nil
}
