package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/firestore/apiv1/firestorepb"
)

// Document is a decoded snapshot with its server timestamps.
type Document[T any] struct {
	ID         string
	Data       T
	CreateTime time.Time
	UpdateTime time.Time
}

// QueryBuilder narrows or orders a collection query.
type QueryBuilder func(firestore.Query) firestore.Query

// Collection gives typed access to one Firestore collection. T must be a struct with firestore tags.
type Collection[T any] struct {
	provider *Provider
	name     string
}

// NewCollection binds a typed collection to provider.
func NewCollection[T any](provider *Provider, name string) *Collection[T] {
	return &Collection[T]{provider: provider, name: strings.TrimSpace(name)}
}

// Name returns the collection id.
func (c *Collection[T]) Name() string { return c.name }

// Create writes a new document and fails with a conflict if id is taken.
func (c *Collection[T]) Create(ctx context.Context, id string, value T) (time.Time, error) {
	ref, err := c.Ref(ctx, id)
	if err != nil {
		return time.Time{}, err
	}
	res, err := ref.Create(ctx, value)
	if err != nil {
		return time.Time{}, WrapError(c.op("create"), err)
	}
	return res.UpdateTime, nil
}

// Update applies field updates to an existing document.
func (c *Collection[T]) Update(ctx context.Context, id string, updates []firestore.Update) (time.Time, error) {
	ref, err := c.Ref(ctx, id)
	if err != nil {
		return time.Time{}, err
	}
	res, err := ref.Update(ctx, updates)
	if err != nil {
		return time.Time{}, WrapError(c.op("update"), err)
	}
	return res.UpdateTime, nil
}

// Get reads and decodes a single document.
func (c *Collection[T]) Get(ctx context.Context, id string) (Document[T], error) {
	ref, err := c.Ref(ctx, id)
	if err != nil {
		return Document[T]{}, err
	}
	snap, err := ref.Get(ctx)
	if err != nil {
		return Document[T]{}, WrapError(c.op("get"), err)
	}
	return decode[T](snap)
}

// Delete removes an existing document. Missing documents yield a not-found error.
func (c *Collection[T]) Delete(ctx context.Context, id string) error {
	ref, err := c.Ref(ctx, id)
	if err != nil {
		return err
	}
	if _, err := ref.Delete(ctx, firestore.Exists); err != nil {
		return WrapError(c.op("delete"), err)
	}
	return nil
}

// Query runs build against the collection and decodes every result.
func (c *Collection[T]) Query(ctx context.Context, build QueryBuilder) ([]Document[T], error) {
	coll, err := c.ref(ctx)
	if err != nil {
		return nil, err
	}
	query := coll.Query
	if build != nil {
		query = build(query)
	}

	iter := query.Documents(ctx)
	defer iter.Stop()

	var docs []Document[T]
	for {
		snap, err := iter.Next()
		if isIteratorDone(err) {
			break
		}
		if err != nil {
			return nil, WrapError(c.op("query"), err)
		}
		doc, err := decode[T](snap)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// Count returns the number of documents using a server-side aggregation.
func (c *Collection[T]) Count(ctx context.Context) (int, error) {
	coll, err := c.ref(ctx)
	if err != nil {
		return 0, err
	}
	result, err := coll.NewAggregationQuery().WithCount("all").Get(ctx)
	if err != nil {
		return 0, WrapError(c.op("count"), err)
	}
	value, ok := result["all"].(*firestorepb.Value)
	if !ok {
		return 0, fmt.Errorf("%s: unexpected count result %T", c.op("count"), result["all"])
	}
	return int(value.GetIntegerValue()), nil
}

// Ref returns the document reference for id.
func (c *Collection[T]) Ref(ctx context.Context, id string) (*firestore.DocumentRef, error) {
	if strings.TrimSpace(id) == "" {
		return nil, errors.New(c.op("ref") + ": document id is required")
	}
	coll, err := c.ref(ctx)
	if err != nil {
		return nil, err
	}
	return coll.Doc(id), nil
}

// CollectionRef returns the underlying collection reference, for transactions.
func (c *Collection[T]) CollectionRef(ctx context.Context) (*firestore.CollectionRef, error) {
	return c.ref(ctx)
}

func (c *Collection[T]) ref(ctx context.Context) (*firestore.CollectionRef, error) {
	if c == nil || c.provider == nil {
		return nil, errors.New("firestore: collection has no provider")
	}
	if c.name == "" {
		return nil, errors.New("firestore: collection name is required")
	}
	client, err := c.provider.Client(ctx)
	if err != nil {
		return nil, err
	}
	return client.Collection(c.name), nil
}

func (c *Collection[T]) op(action string) string {
	return c.name + "." + action
}

// Decode converts a snapshot into a typed document.
func Decode[T any](snap *firestore.DocumentSnapshot) (Document[T], error) {
	return decode[T](snap)
}

func decode[T any](snap *firestore.DocumentSnapshot) (Document[T], error) {
	var data T
	if err := snap.DataTo(&data); err != nil {
		return Document[T]{}, fmt.Errorf("firestore: decode %s: %w", snap.Ref.ID, err)
	}
	return Document[T]{
		ID:         snap.Ref.ID,
		Data:       data,
		CreateTime: snap.CreateTime,
		UpdateTime: snap.UpdateTime,
	}, nil
}
