package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/fastpix01-lab/fruitamruth/internal/domain"
	"github.com/fastpix01-lab/fruitamruth/internal/repositories"
)

const orderMetricNamespace = "github.com/fastpix01-lab/fruitamruth/internal/services"

// OrderServiceDeps bundles collaborators required to construct the order service.
type OrderServiceDeps struct {
	Orders     repositories.OrderRepository
	Products   repositories.ProductRepository
	Categories repositories.CategoryRepository
	Events     OrderEventPublisher
	// Reprice re-reads every product before saving so the stored prices come from the catalog.
	Reprice     bool
	Clock       func() time.Time
	IDGenerator func() string
	Meter       metric.Meter
	Logger      func(ctx context.Context, event string, fields map[string]any)
}

type orderService struct {
	orders     repositories.OrderRepository
	products   repositories.ProductRepository
	categories repositories.CategoryRepository
	events     OrderEventPublisher
	reprice    bool
	clock      func() time.Time
	newID      func() string
	placed     metric.Int64Counter
	metered    bool
	logger     func(context.Context, string, map[string]any)
}

var _ OrderService = (*orderService)(nil)

// NewOrderService wires dependencies into a concrete OrderService implementation.
func NewOrderService(deps OrderServiceDeps) (OrderService, error) {
	if deps.Orders == nil {
		return nil, errors.New("order service: order repository is required")
	}
	if deps.Reprice && deps.Products == nil {
		return nil, errors.New("order service: product repository is required for repricing")
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
	meter := deps.Meter
	if meter == nil {
		meter = otel.GetMeterProvider().Meter(orderMetricNamespace)
	}
	placed, err := meter.Int64Counter("orders.placed", metric.WithDescription("Orders placed by outcome"))
	if err != nil {
		logger(context.Background(), "order.metric.register_failed", map[string]any{"error": err.Error()})
	}

	return &orderService{
		orders:     deps.Orders,
		products:   deps.Products,
		categories: deps.Categories,
		events:     deps.Events,
		reprice:    deps.Reprice,
		clock:      func() time.Time { return clock().UTC() },
		newID:      idGen,
		placed:     placed,
		metered:    err == nil,
		logger:     logger,
	}, nil
}

// PlaceOrder stores a pending order. The stored total is always the sum of the stored items.
func (s *orderService) PlaceOrder(ctx context.Context, draft domain.OrderDraft) (domain.Order, error) {
	name := strings.TrimSpace(draft.CustomerName)
	email := strings.TrimSpace(draft.CustomerEmail)
	if name == "" || email == "" {
		return domain.Order{}, orderInput(msgCustomerRequired)
	}
	if len(draft.Items) == 0 {
		return domain.Order{}, orderInput(msgEmptyOrder)
	}

	items := make([]domain.OrderItem, 0, len(draft.Items))
	for _, item := range draft.Items {
		if strings.TrimSpace(item.ProductID) == "" || item.Quantity <= 0 {
			return domain.Order{}, orderInput(msgInvalidQuantity)
		}
		items = append(items, item)
	}
	if s.reprice {
		if err := s.repriceItems(ctx, items); err != nil {
			s.record(ctx, "stale")
			return domain.Order{}, err
		}
	}

	total := domain.SumItems(items)
	if !draft.Total.IsZero() && !draft.Total.Equal(total) {
		s.logger(ctx, "order.total.adjusted", map[string]any{
			"submitted": draft.Total.String(),
			"computed":  total.String(),
		})
	}

	order := domain.Order{
		ID:            s.newID(),
		CustomerName:  name,
		CustomerEmail: email,
		Items:         items,
		Total:         total,
		Status:        domain.OrderStatusPending,
		CreatedAt:     s.clock(),
	}
	if err := s.orders.Insert(ctx, order); err != nil {
		s.record(ctx, "failed")
		return domain.Order{}, mapRepositoryError(err, orderErrorKinds)
	}
	s.record(ctx, "placed")
	s.logger(ctx, "order.placed", map[string]any{
		"orderId": order.ID,
		"items":   len(order.Items),
		"total":   order.Total.String(),
	})

	s.publish(ctx, createdEvent(order))
	return order, nil
}

func (s *orderService) ListOrders(ctx context.Context) ([]domain.Order, error) {
	orders, err := s.orders.List(ctx)
	if err != nil {
		return nil, mapRepositoryError(err, orderErrorKinds)
	}
	return orders, nil
}

func (s *orderService) UpdateOrderStatus(ctx context.Context, orderID string, raw string) (domain.Order, error) {
	status, ok := domain.ParseOrderStatus(raw)
	if !ok {
		return domain.Order{}, orderInput(msgInvalidStatus)
	}
	orderID = strings.TrimSpace(orderID)
	previous, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return domain.Order{}, mapRepositoryError(err, orderErrorKinds)
	}
	if previous.Status == status {
		return previous, nil
	}
	order, err := s.orders.UpdateStatus(ctx, orderID, status)
	if err != nil {
		return domain.Order{}, mapRepositoryError(err, orderErrorKinds)
	}
	s.publish(ctx, OrderEvent{
		Type:           OrderEventStatusChanged,
		OrderID:        order.ID,
		Status:         string(order.Status),
		PreviousStatus: string(previous.Status),
		OccurredAt:     s.clock(),
	})
	return order, nil
}

func (s *orderService) DeleteOrder(ctx context.Context, orderID string) error {
	if err := s.orders.Delete(ctx, strings.TrimSpace(orderID)); err != nil {
		return mapRepositoryError(err, orderErrorKinds)
	}
	s.logger(ctx, "order.deleted", map[string]any{"orderId": orderID})
	return nil
}

// Dashboard counts records and sums every order total, cancelled ones included.
func (s *orderService) Dashboard(ctx context.Context) (domain.DashboardStats, error) {
	var stats domain.DashboardStats
	orders, err := s.orders.List(ctx)
	if err != nil {
		return stats, mapRepositoryError(err, orderErrorKinds)
	}
	stats.Orders = len(orders)
	for _, order := range orders {
		stats.Revenue = stats.Revenue.Add(order.Total)
	}
	if s.products != nil {
		if stats.Products, err = s.products.Count(ctx); err != nil {
			return stats, mapRepositoryError(err, catalogErrorKinds)
		}
	}
	if s.categories != nil {
		if stats.Categories, err = s.categories.Count(ctx); err != nil {
			return stats, mapRepositoryError(err, catalogErrorKinds)
		}
	}
	return stats, nil
}

func (s *orderService) repriceItems(ctx context.Context, items []domain.OrderItem) error {
	for i := range items {
		product, err := s.products.Get(ctx, items[i].ProductID)
		if err != nil {
			mapped := mapRepositoryError(err, catalogErrorKinds)
			if errors.Is(mapped, ErrCatalogNotFound) {
				return errors.Join(ErrOrderStaleCart, mapped)
			}
			return mapped
		}
		if !product.Price.Equal(items[i].Price) {
			s.logger(ctx, "order.item.repriced", map[string]any{
				"productId": product.ID,
				"cartPrice": items[i].Price.String(),
				"price":     product.Price.String(),
			})
		}
		items[i].Price = product.Price
		items[i].Name = product.Name
	}
	return nil
}

func (s *orderService) publish(ctx context.Context, event OrderEvent) {
	if s.events == nil {
		return
	}
	if _, err := s.events.PublishOrderEvent(ctx, event); err != nil {
		s.logger(ctx, "order.event.publish_failed", map[string]any{
			"type":    event.Type,
			"orderId": event.OrderID,
			"error":   err.Error(),
		})
	}
}

func (s *orderService) record(ctx context.Context, outcome string) {
	if !s.metered {
		return
	}
	s.placed.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func createdEvent(order domain.Order) OrderEvent {
	items := make([]OrderEventItem, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, OrderEventItem{
			ProductID: item.ProductID,
			Name:      item.Name,
			Price:     item.Price.String(),
			Quantity:  item.Quantity,
		})
	}
	return OrderEvent{
		Type:          OrderEventCreated,
		OrderID:       order.ID,
		CustomerName:  order.CustomerName,
		CustomerEmail: order.CustomerEmail,
		Items:         items,
		Total:         order.Total.String(),
		Status:        string(order.Status),
		OccurredAt:    order.CreatedAt,
	}
}
