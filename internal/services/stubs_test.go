package services

import (
	"context"
	"errors"
	"io"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fastpix01-lab/fruitamruth/internal/domain"
	"github.com/fastpix01-lab/fruitamruth/internal/repositories"
)

type testRepoError struct {
	notFound    bool
	conflict    bool
	unavailable bool
}

func (e testRepoError) Error() string       { return "repository failure" }
func (e testRepoError) IsNotFound() bool    { return e.notFound }
func (e testRepoError) IsConflict() bool    { return e.conflict }
func (e testRepoError) IsUnavailable() bool { return e.unavailable }

var (
	errRepoNotFound    = testRepoError{notFound: true}
	errRepoUnavailable = testRepoError{unavailable: true}
)

type memoryCategoryRepo struct {
	items     map[string]domain.Category
	deleted   []string
	insertErr error
}

func newMemoryCategoryRepo(categories ...domain.Category) *memoryCategoryRepo {
	repo := &memoryCategoryRepo{items: map[string]domain.Category{}}
	for _, c := range categories {
		repo.items[c.ID] = c
	}
	return repo
}

func (r *memoryCategoryRepo) List(context.Context) ([]domain.Category, error) {
	out := make([]domain.Category, 0, len(r.items))
	for _, c := range r.items {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *memoryCategoryRepo) Get(_ context.Context, id string) (domain.Category, error) {
	c, ok := r.items[id]
	if !ok {
		return domain.Category{}, errRepoNotFound
	}
	return c, nil
}

func (r *memoryCategoryRepo) Insert(_ context.Context, c domain.Category) error {
	if r.insertErr != nil {
		return r.insertErr
	}
	r.items[c.ID] = c
	return nil
}

func (r *memoryCategoryRepo) Rename(_ context.Context, id, name string) (domain.Category, error) {
	c, ok := r.items[id]
	if !ok {
		return domain.Category{}, errRepoNotFound
	}
	c.Name = name
	r.items[id] = c
	return c, nil
}

func (r *memoryCategoryRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.items[id]; !ok {
		return errRepoNotFound
	}
	delete(r.items, id)
	r.deleted = append(r.deleted, id)
	return nil
}

func (r *memoryCategoryRepo) Count(context.Context) (int, error) { return len(r.items), nil }

type memoryProductRepo struct {
	items     map[string]domain.Product
	order     []string
	calls     *[]string
	insertErr error
	updateErr error
	lastList  repositories.ProductFilter
}

func newMemoryProductRepo(calls *[]string, products ...domain.Product) *memoryProductRepo {
	repo := &memoryProductRepo{items: map[string]domain.Product{}, calls: calls}
	for _, p := range products {
		repo.items[p.ID] = p
		repo.order = append(repo.order, p.ID)
	}
	return repo
}

func (r *memoryProductRepo) note(call string) {
	if r.calls != nil {
		*r.calls = append(*r.calls, call)
	}
}

func (r *memoryProductRepo) List(_ context.Context, filter repositories.ProductFilter) ([]domain.Product, error) {
	r.lastList = filter
	var out []domain.Product
	for _, id := range r.order {
		p, ok := r.items[id]
		if !ok {
			continue
		}
		if filter.CategoryID != "" && p.CategoryID != filter.CategoryID {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (r *memoryProductRepo) Get(_ context.Context, id string) (domain.Product, error) {
	p, ok := r.items[id]
	if !ok {
		return domain.Product{}, errRepoNotFound
	}
	return p, nil
}

func (r *memoryProductRepo) Insert(_ context.Context, p domain.Product) error {
	r.note("product.insert")
	if r.insertErr != nil {
		return r.insertErr
	}
	r.items[p.ID] = p
	r.order = append([]string{p.ID}, r.order...)
	return nil
}

func (r *memoryProductRepo) Update(_ context.Context, p domain.Product) error {
	r.note("product.update")
	if r.updateErr != nil {
		return r.updateErr
	}
	if _, ok := r.items[p.ID]; !ok {
		return errRepoNotFound
	}
	r.items[p.ID] = p
	return nil
}

func (r *memoryProductRepo) Delete(_ context.Context, id string) error {
	r.note("product.delete")
	if _, ok := r.items[id]; !ok {
		return errRepoNotFound
	}
	delete(r.items, id)
	return nil
}

func (r *memoryProductRepo) Count(context.Context) (int, error) { return len(r.items), nil }

type stubImageStore struct {
	calls     *[]string
	uploadFn  func(fileName, contentType string, body io.Reader) (string, error)
	deleteErr error
	deleted   []string
}

func (s *stubImageStore) Upload(_ context.Context, fileName, contentType string, body io.Reader) (string, error) {
	if s.calls != nil {
		*s.calls = append(*s.calls, "image.upload")
	}
	if s.uploadFn != nil {
		return s.uploadFn(fileName, contentType, body)
	}
	return "https://storage.googleapis.com/media/product-images/" + fileName, nil
}

func (s *stubImageStore) Delete(_ context.Context, url string) error {
	if s.calls != nil {
		*s.calls = append(*s.calls, "image.delete")
	}
	s.deleted = append(s.deleted, url)
	return s.deleteErr
}

type memoryOrderRepo struct {
	items     map[string]domain.Order
	inserted  []domain.Order
	insertErr error
	listErr   error
}

func newMemoryOrderRepo(orders ...domain.Order) *memoryOrderRepo {
	repo := &memoryOrderRepo{items: map[string]domain.Order{}}
	for _, o := range orders {
		repo.items[o.ID] = o
	}
	return repo
}

func (r *memoryOrderRepo) Insert(_ context.Context, o domain.Order) error {
	if r.insertErr != nil {
		return r.insertErr
	}
	r.items[o.ID] = o
	r.inserted = append(r.inserted, o)
	return nil
}

func (r *memoryOrderRepo) List(context.Context) ([]domain.Order, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	out := make([]domain.Order, 0, len(r.items))
	for _, o := range r.items {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *memoryOrderRepo) Get(_ context.Context, id string) (domain.Order, error) {
	o, ok := r.items[id]
	if !ok {
		return domain.Order{}, errRepoNotFound
	}
	return o, nil
}

func (r *memoryOrderRepo) UpdateStatus(_ context.Context, id string, status domain.OrderStatus) (domain.Order, error) {
	o, ok := r.items[id]
	if !ok {
		return domain.Order{}, errRepoNotFound
	}
	o.Status = status
	r.items[id] = o
	return o, nil
}

func (r *memoryOrderRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.items[id]; !ok {
		return errRepoNotFound
	}
	delete(r.items, id)
	return nil
}

func (r *memoryOrderRepo) Count(context.Context) (int, error) { return len(r.items), nil }

type recordingPublisher struct {
	events []OrderEvent
	err    error
}

func (p *recordingPublisher) PublishOrderEvent(_ context.Context, event OrderEvent) (string, error) {
	p.events = append(p.events, event)
	if p.err != nil {
		return "", p.err
	}
	return "msg-1", nil
}

type capturedLog struct {
	event  string
	fields map[string]any
}

type logRecorder struct {
	entries []capturedLog
}

func (l *logRecorder) log(_ context.Context, event string, fields map[string]any) {
	l.entries = append(l.entries, capturedLog{event: event, fields: fields})
}

func (l *logRecorder) has(event string) bool {
	for _, e := range l.entries {
		if e.event == event {
			return true
		}
	}
	return false
}

func inputMessage(err error) string {
	var inputErr *InputError
	if errors.As(err, &inputErr) {
		return inputErr.Message
	}
	return ""
}

func domainCategory(id, name string) domain.Category {
	return domain.Category{ID: id, Name: name, CreatedAt: time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)}
}

func domainProduct(id, name, categoryID, price string) domain.Product {
	return domain.Product{
		ID:         id,
		Name:       name,
		Price:      decimal.RequireFromString(price),
		CategoryID: categoryID,
		CreatedAt:  time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC),
	}
}
