package store

import (
	"errors"
	"fmt"

	"github.com/fjod/go_cart/basket-client/internal/domain"
	"github.com/shopspring/decimal"
)

// ErrInconsistentCart means a line has no matching item in the payload.
// Lines are always derived from the payload, so this points at a bug or at a
// server response that dropped a product the local lines still reference.
var ErrInconsistentCart = errors.New("cart line has no matching payload item")

// Summary is everything a renderer needs, read from one store state.
type Summary struct {
	Items       []domain.DetailLine `json:"items"`
	TotalPrice  decimal.Decimal     `json:"total_price"`
	TotalAmount int                 `json:"total_amount"`
	domain.LoadingStatus
}

func (s *Store) Summary() (*Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	lines, err := detailLines(s.lines, s.payload)
	if err != nil {
		return nil, err
	}
	return &Summary{
		Items:         lines,
		TotalPrice:    totalPrice(lines),
		TotalAmount:   totalAmount(lines),
		LoadingStatus: s.status,
	}, nil
}

// DetailLines joins every line with its payload product.
func (s *Store) DetailLines() ([]domain.DetailLine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return detailLines(s.lines, s.payload)
}

// TotalPrice is the sum of price times amount over the detail lines.
func (s *Store) TotalPrice() (decimal.Decimal, error) {
	lines, err := s.DetailLines()
	if err != nil {
		return decimal.Zero, err
	}
	return totalPrice(lines), nil
}

// TotalAmount is the sum of amounts over the detail lines.
func (s *Store) TotalAmount() (int, error) {
	lines, err := s.DetailLines()
	if err != nil {
		return 0, err
	}
	return totalAmount(lines), nil
}

func detailLines(lines []domain.CartLine, payload []domain.CartItem) ([]domain.DetailLine, error) {
	out := make([]domain.DetailLine, 0, len(lines))
	for _, line := range lines {
		item, ok := findItem(payload, line.ProductID)
		if !ok {
			return nil, fmt.Errorf("product %d: %w", line.ProductID, ErrInconsistentCart)
		}
		out = append(out, domain.DetailLine{
			ProductID: line.ProductID,
			Amount:    line.Amount,
			Product:   item.Product.View(),
		})
	}
	return out, nil
}

func findItem(payload []domain.CartItem, productID int64) (domain.CartItem, bool) {
	for _, item := range payload {
		if item.Product.ID == productID {
			return item, true
		}
	}
	return domain.CartItem{}, false
}

func totalPrice(lines []domain.DetailLine) decimal.Decimal {
	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(line.Product.Price.Mul(decimal.NewFromInt(int64(line.Amount))))
	}
	return total
}

func totalAmount(lines []domain.DetailLine) int {
	total := 0
	for _, line := range lines {
		total += line.Amount
	}
	return total
}
