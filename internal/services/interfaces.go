package services

import (
	"context"
	"io"
	"time"

	"github.com/fastpix01-lab/fruitamruth/internal/domain"
)

// CatalogService manages categories and products for the storefront and the admin console.
type CatalogService interface {
	ListCategories(ctx context.Context) ([]domain.Category, error)
	CreateCategory(ctx context.Context, name string) (domain.Category, error)
	UpdateCategory(ctx context.Context, categoryID string, name string) (domain.Category, error)
	DeleteCategory(ctx context.Context, categoryID string) error

	ListProducts(ctx context.Context) ([]domain.Product, error)
	// ListProductsByCategory treats "" and "all" as every product.
	ListProductsByCategory(ctx context.Context, categoryID string) ([]domain.Product, error)
	GetProduct(ctx context.Context, productID string) (domain.Product, error)
	CreateProduct(ctx context.Context, input ProductInput) (domain.Product, error)
	UpdateProduct(ctx context.Context, productID string, input ProductInput) (domain.Product, error)
	DeleteProduct(ctx context.Context, productID string) error
}

// OrderService places orders and exposes them to the admin console.
type OrderService interface {
	PlaceOrder(ctx context.Context, draft domain.OrderDraft) (domain.Order, error)
	ListOrders(ctx context.Context) ([]domain.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID string, status string) (domain.Order, error)
	DeleteOrder(ctx context.Context, orderID string) error
	Dashboard(ctx context.Context) (domain.DashboardStats, error)
}

// SystemService reports service health.
type SystemService interface {
	HealthReport(ctx context.Context) (domain.SystemHealthReport, error)
}

// ProductImageStore keeps product images in object storage.
type ProductImageStore interface {
	Upload(ctx context.Context, fileName, contentType string, body io.Reader) (string, error)
	Delete(ctx context.Context, publicURL string) error
}

// OrderEventPublisher publishes order domain events for downstream consumers such as the mailer.
type OrderEventPublisher interface {
	PublishOrderEvent(ctx context.Context, event OrderEvent) (string, error)
}

// Order event types.
const (
	OrderEventCreated       = "order.created"
	OrderEventStatusChanged = "order.status.changed"
)

// OrderEvent is the wire payload of an order event. Amounts are decimal strings.
type OrderEvent struct {
	Type           string           `json:"type"`
	OrderID        string           `json:"orderId"`
	CustomerName   string           `json:"customerName,omitempty"`
	CustomerEmail  string           `json:"customerEmail,omitempty"`
	Items          []OrderEventItem `json:"items,omitempty"`
	Total          string           `json:"total,omitempty"`
	Status         string           `json:"status"`
	PreviousStatus string           `json:"previousStatus,omitempty"`
	OccurredAt     time.Time        `json:"occurredAt"`
}

// OrderEventItem is one line of an order event.
type OrderEventItem struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	Price     string `json:"price"`
	Quantity  int    `json:"quantity"`
}

// ProductInput is the admin form for creating or editing a product.
type ProductInput struct {
	Name        string
	Description string
	Price       string
	CategoryID  string
	Image       *ImageUpload
}

// ImageUpload is an image file submitted with a product form.
type ImageUpload struct {
	FileName    string
	ContentType string
	Body        io.Reader
}
