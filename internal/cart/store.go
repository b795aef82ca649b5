// Package cart holds the per-session shopping cart.
package cart

import (
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/fastpix01-lab/fruitamruth/internal/domain"
)

// Product is the subset of catalog data a cart line keeps.
type Product struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	ImageURL string          `json:"imageUrl,omitempty"`
}

// ProductFromDomain copies the cart-relevant fields of a catalog product.
func ProductFromDomain(p domain.Product) Product {
	return Product{
		ID:       p.ID,
		Name:     p.Name,
		Price:    p.Price,
		ImageURL: p.ImageURL,
	}
}

// Line is a product with a positive quantity.
type Line struct {
	Product  Product `json:"product"`
	Quantity int     `json:"quantity"`
}

// Total returns price times quantity for the line.
func (l Line) Total() decimal.Decimal {
	return l.Product.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Snapshot is the serialisable form of a store.
type Snapshot struct {
	Lines []Line `json:"lines"`
	Open  bool   `json:"open"`
}

// Store keeps cart lines in insertion order, unique by product id.
type Store struct {
	mu    sync.Mutex
	lines []Line
	open  bool
}

// NewStore returns an empty, closed cart.
func NewStore() *Store {
	return &Store{}
}

// Restore rebuilds a store from a snapshot, dropping malformed lines.
func Restore(snap Snapshot) *Store {
	s := &Store{open: snap.Open}
	for _, line := range snap.Lines {
		id := strings.TrimSpace(line.Product.ID)
		if id == "" || line.Quantity <= 0 || s.indexOf(id) >= 0 {
			continue
		}
		line.Product.ID = id
		s.lines = append(s.lines, line)
	}
	return s
}

// Add puts one unit of the product in the cart.
func (s *Store) Add(product Product) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if idx := s.indexOf(product.ID); idx >= 0 {
		s.lines[idx].Quantity++
		return
	}
	s.lines = append(s.lines, Line{Product: product, Quantity: 1})
}

// UpdateQuantity sets the quantity of a line; zero or less removes it.
func (s *Store) UpdateQuantity(productID string, quantity int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(productID)
	if idx < 0 {
		return
	}
	if quantity <= 0 {
		s.removeAt(idx)
		return
	}
	s.lines[idx].Quantity = quantity
}

// Remove drops the line for the product if present.
func (s *Store) Remove(productID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if idx := s.indexOf(productID); idx >= 0 {
		s.removeAt(idx)
	}
}

// Clear empties the cart. The drawer flag is left as is.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = nil
}

// Reset empties the cart and closes the drawer.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = nil
	s.open = false
}

// Lines returns a copy of the current lines.
func (s *Store) Lines() []Line {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.copyLines()
}

// Quantity returns the quantity held for the product, or zero.
func (s *Store) Quantity(productID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if idx := s.indexOf(productID); idx >= 0 {
		return s.lines[idx].Quantity
	}
	return 0
}

// TotalItems sums quantities across lines.
func (s *Store) TotalItems() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := 0
	for _, line := range s.lines {
		total += line.Quantity
	}
	return total
}

// TotalPrice sums line totals across lines.
func (s *Store) TotalPrice() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := decimal.Zero
	for _, line := range s.lines {
		total = total.Add(line.Total())
	}
	return total
}

// IsEmpty reports whether the cart holds no items.
func (s *Store) IsEmpty() bool {
	return s.TotalItems() == 0
}

// Toggle flips the drawer visibility.
func (s *Store) Toggle() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.open = !s.open
}

// Close hides the drawer.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.open = false
}

// IsOpen reports drawer visibility.
func (s *Store) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open
}

// Snapshot captures lines and drawer state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{Lines: s.copyLines(), Open: s.open}
}

// OrderItems converts the current lines into order items.
func (s *Store) OrderItems() []domain.OrderItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := make([]domain.OrderItem, 0, len(s.lines))
	for _, line := range s.lines {
		items = append(items, domain.OrderItem{
			ProductID: line.Product.ID,
			Name:      line.Product.Name,
			Price:     line.Product.Price,
			Quantity:  line.Quantity,
		})
	}
	return items
}

func (s *Store) indexOf(productID string) int {
	for i, line := range s.lines {
		if line.Product.ID == productID {
			return i
		}
	}
	return -1
}

func (s *Store) removeAt(idx int) {
	s.lines = append(s.lines[:idx], s.lines[idx+1:]...)
	if len(s.lines) == 0 {
		s.lines = nil
	}
}

func (s *Store) copyLines() []Line {
	if len(s.lines) == 0 {
		return []Line{}
	}
	out := make([]Line, len(s.lines))
	copy(out, s.lines)
	return out
}
