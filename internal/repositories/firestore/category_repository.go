package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	"github.com/fastpix01-lab/fruitamruth/internal/domain"
	pfirestore "github.com/fastpix01-lab/fruitamruth/internal/platform/firestore"
	"github.com/fastpix01-lab/fruitamruth/internal/repositories"
)

const categoriesCollection = "categories"

type categoryDocument struct {
	Name      string    `firestore:"name"`
	CreatedAt time.Time `firestore:"createdAt"`
	UpdatedAt time.Time `firestore:"updatedAt"`
}

// CategoryRepository stores categories in the "categories" collection.
type CategoryRepository struct {
	provider   *pfirestore.Provider
	categories *pfirestore.Collection[categoryDocument]
	products   *pfirestore.Collection[productDocument]
	now        func() time.Time
}

var _ repositories.CategoryRepository = (*CategoryRepository)(nil)

// NewCategoryRepository constructs a Firestore-backed category repository.
func NewCategoryRepository(provider *pfirestore.Provider) (*CategoryRepository, error) {
	if provider == nil {
		return nil, errors.New("category repository requires firestore provider")
	}
	return &CategoryRepository{
		provider:   provider,
		categories: pfirestore.NewCollection[categoryDocument](provider, categoriesCollection),
		products:   pfirestore.NewCollection[productDocument](provider, productsCollection),
		now:        func() time.Time { return time.Now().UTC() },
	}, nil
}

func (r *CategoryRepository) List(ctx context.Context) ([]domain.Category, error) {
	docs, err := r.categories.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.OrderBy("name", firestore.Asc)
	})
	if err != nil {
		return nil, err
	}
	out := make([]domain.Category, 0, len(docs))
	for _, doc := range docs {
		out = append(out, categoryFromDocument(doc))
	}
	return out, nil
}

func (r *CategoryRepository) Get(ctx context.Context, categoryID string) (domain.Category, error) {
	doc, err := r.categories.Get(ctx, strings.TrimSpace(categoryID))
	if err != nil {
		return domain.Category{}, err
	}
	return categoryFromDocument(doc), nil
}

func (r *CategoryRepository) Insert(ctx context.Context, category domain.Category) error {
	_, err := r.categories.Create(ctx, category.ID, categoryDocument{
		Name:      category.Name,
		CreatedAt: category.CreatedAt.UTC(),
		UpdatedAt: category.CreatedAt.UTC(),
	})
	return err
}

func (r *CategoryRepository) Rename(ctx context.Context, categoryID string, name string) (domain.Category, error) {
	if _, err := r.categories.Update(ctx, categoryID, []firestore.Update{
		{Path: "name", Value: name},
		{Path: "updatedAt", Value: r.now()},
	}); err != nil {
		return domain.Category{}, err
	}
	return r.Get(ctx, categoryID)
}

// Delete runs in a transaction so products never point at a removed category.
func (r *CategoryRepository) Delete(ctx context.Context, categoryID string) error {
	categoryRef, err := r.categories.Ref(ctx, categoryID)
	if err != nil {
		return err
	}
	productsRef, err := r.products.CollectionRef(ctx)
	if err != nil {
		return err
	}
	now := r.now()
	return r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if _, err := tx.Get(categoryRef); err != nil {
			return pfirestore.WrapError("categories.delete", err)
		}
		linked, err := tx.Documents(productsRef.Where("categoryId", "==", categoryID)).GetAll()
		if err != nil {
			return pfirestore.WrapError("categories.delete.products", err)
		}
		for _, snap := range linked {
			if err := tx.Update(snap.Ref, []firestore.Update{
				{Path: "categoryId", Value: ""},
				{Path: "updatedAt", Value: now},
			}); err != nil {
				return pfirestore.WrapError("categories.delete.detach", err)
			}
		}
		if err := tx.Delete(categoryRef); err != nil {
			return pfirestore.WrapError("categories.delete", err)
		}
		return nil
	})
}

func (r *CategoryRepository) Count(ctx context.Context) (int, error) {
	return r.categories.Count(ctx)
}

func categoryFromDocument(doc pfirestore.Document[categoryDocument]) domain.Category {
	created := doc.Data.CreatedAt
	if created.IsZero() {
		created = doc.CreateTime
	}
	return domain.Category{ID: doc.ID, Name: doc.Data.Name, CreatedAt: created.UTC()}
}
