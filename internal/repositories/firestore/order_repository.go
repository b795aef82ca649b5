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

const ordersCollection = "orders"

type orderItemDocument struct {
	ProductID string `firestore:"productId"`
	Name      string `firestore:"name"`
	Price     string `firestore:"price"`
	Quantity  int    `firestore:"quantity"`
}

type orderDocument struct {
	CustomerName  string              `firestore:"customerName"`
	CustomerEmail string              `firestore:"customerEmail"`
	Items         []orderItemDocument `firestore:"items"`
	Total         string              `firestore:"total"`
	Status        string              `firestore:"status"`
	CreatedAt     time.Time           `firestore:"createdAt"`
	UpdatedAt     time.Time           `firestore:"updatedAt"`
}

// OrderRepository stores orders in the "orders" collection. Items are embedded.
type OrderRepository struct {
	orders *pfirestore.Collection[orderDocument]
	now    func() time.Time
}

var _ repositories.OrderRepository = (*OrderRepository)(nil)

// NewOrderRepository constructs a Firestore-backed order repository.
func NewOrderRepository(provider *pfirestore.Provider) (*OrderRepository, error) {
	if provider == nil {
		return nil, errors.New("order repository requires firestore provider")
	}
	return &OrderRepository{
		orders: pfirestore.NewCollection[orderDocument](provider, ordersCollection),
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

func (r *OrderRepository) Insert(ctx context.Context, order domain.Order) error {
	_, err := r.orders.Create(ctx, order.ID, orderToDocument(order))
	return err
}

func (r *OrderRepository) List(ctx context.Context) ([]domain.Order, error) {
	docs, err := r.orders.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.OrderBy("createdAt", firestore.Desc)
	})
	if err != nil {
		return nil, err
	}
	out := make([]domain.Order, 0, len(docs))
	for _, doc := range docs {
		order, err := orderFromDocument(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, order)
	}
	return out, nil
}

func (r *OrderRepository) Get(ctx context.Context, orderID string) (domain.Order, error) {
	doc, err := r.orders.Get(ctx, strings.TrimSpace(orderID))
	if err != nil {
		return domain.Order{}, err
	}
	return orderFromDocument(doc)
}

func (r *OrderRepository) UpdateStatus(ctx context.Context, orderID string, status domain.OrderStatus) (domain.Order, error) {
	if _, err := r.orders.Update(ctx, orderID, []firestore.Update{
		{Path: "status", Value: string(status)},
		{Path: "updatedAt", Value: r.now()},
	}); err != nil {
		return domain.Order{}, err
	}
	return r.Get(ctx, orderID)
}

func (r *OrderRepository) Delete(ctx context.Context, orderID string) error {
	return r.orders.Delete(ctx, orderID)
}

func (r *OrderRepository) Count(ctx context.Context) (int, error) {
	return r.orders.Count(ctx)
}

func orderToDocument(order domain.Order) orderDocument {
	items := make([]orderItemDocument, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, orderItemDocument{
			ProductID: item.ProductID,
			Name:      item.Name,
			Price:     item.Price.String(),
			Quantity:  item.Quantity,
		})
	}
	created := order.CreatedAt.UTC()
	return orderDocument{
		CustomerName:  order.CustomerName,
		CustomerEmail: order.CustomerEmail,
		Items:         items,
		Total:         order.Total.String(),
		Status:        string(order.Status),
		CreatedAt:     created,
		UpdatedAt:     created,
	}
}

func orderFromDocument(doc pfirestore.Document[orderDocument]) (domain.Order, error) {
	total, err := decimal.NewFromString(doc.Data.Total)
	if err != nil {
		return domain.Order{}, fmt.Errorf("orders.decode %s: invalid total %q: %w", doc.ID, doc.Data.Total, err)
	}
	items := make([]domain.OrderItem, 0, len(doc.Data.Items))
	for _, item := range doc.Data.Items {
		price, err := decimal.NewFromString(item.Price)
		if err != nil {
			return domain.Order{}, fmt.Errorf("orders.decode %s: invalid item price %q: %w", doc.ID, item.Price, err)
		}
		items = append(items, domain.OrderItem{
			ProductID: item.ProductID,
			Name:      item.Name,
			Price:     price,
			Quantity:  item.Quantity,
		})
	}
	status, ok := domain.ParseOrderStatus(doc.Data.Status)
	if !ok {
		status = domain.OrderStatusPending
	}
	created := doc.Data.CreatedAt
	if created.IsZero() {
		created = doc.CreateTime
	}
	return domain.Order{
		ID:            doc.ID,
		CustomerName:  doc.Data.CustomerName,
		CustomerEmail: doc.Data.CustomerEmail,
		Items:         items,
		Total:         total,
		Status:        status,
		CreatedAt:     created.UTC(),
	}, nil
}
