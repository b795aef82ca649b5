package firestore

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"

	"github.com/fastpix01-lab/fruitamruth/internal/domain"
	pfirestore "github.com/fastpix01-lab/fruitamruth/internal/platform/firestore"
)

func TestOrderDocumentRoundTripKeepsPaise(t *testing.T) {
	created := time.Date(2025, 4, 2, 9, 30, 0, 0, time.UTC)
	order := domain.Order{
		ID:            "01JABCDEF",
		CustomerName:  "Asha",
		CustomerEmail: "asha@example.com",
		Items: []domain.OrderItem{
			{ProductID: "p1", Name: "Mango Juice", Price: decimal.RequireFromString("99.50"), Quantity: 2},
			{ProductID: "p2", Name: "Watermelon Cooler", Price: decimal.NewFromInt(80), Quantity: 1},
		},
		Total:     decimal.RequireFromString("279.00"),
		Status:    domain.OrderStatusPending,
		CreatedAt: created,
	}

	doc := orderToDocument(order)
	if doc.Items[0].Price != "99.5" || doc.Total != "279" {
		t.Fatalf("unexpected stored amounts: %+v", doc)
	}

	got, err := orderFromDocument(pfirestore.Document[orderDocument]{ID: order.ID, Data: doc})
	if err != nil {
		t.Fatalf("orderFromDocument: %v", err)
	}
	if diff := cmp.Diff(order, got); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestOrderFromDocumentDefaultsUnknownStatus(t *testing.T) {
	got, err := orderFromDocument(pfirestore.Document[orderDocument]{
		ID:         "o1",
		Data:       orderDocument{Total: "0", Status: "lost"},
		CreateTime: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("orderFromDocument: %v", err)
	}
	if got.Status != domain.OrderStatusPending || got.CreatedAt.IsZero() {
		t.Fatalf("unexpected order %+v", got)
	}
}

func TestProductFromDocumentRejectsBadPrice(t *testing.T) {
	if _, err := productFromDocument(pfirestore.Document[productDocument]{ID: "p1", Data: productDocument{Price: "abc"}}); err == nil {
		t.Fatalf("expected price decode error")
	}
	got, err := productFromDocument(pfirestore.Document[productDocument]{ID: "p1", Data: productDocument{
		Name: "Mango Juice", Price: "120", CategoryID: "c1", ImageURL: "https://x/product-images/1.png",
	}})
	if err != nil {
		t.Fatalf("productFromDocument: %v", err)
	}
	if !got.Price.Equal(decimal.NewFromInt(120)) || got.CategoryID != "c1" || !got.HasImage() {
		t.Fatalf("unexpected product %+v", got)
	}
}
