package store

import (
	"fmt"
	"sync"
	"testing"

	"github.com/fjod/go_cart/basket-client/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func item(id int64, price string, quantity int) domain.CartItem {
	return domain.CartItem{
		Product: domain.Product{
			ID:    id,
			Title: "product",
			Price: decimal.RequireFromString(price),
			Image: domain.ProductImage{File: domain.ImageFile{URL: "https://img.example.com/p.jpg"}},
		},
		Quantity: quantity,
	}
}

func TestStore_DeriveLinesFromPayload(t *testing.T) {
	s := NewStore()
	s.SetPayload([]domain.CartItem{
		item(3, "5.00", 1),
		item(1, "10.00", 2),
		item(7, "1.50", 4),
	})

	s.DeriveLinesFromPayload()

	assert.Equal(t, []domain.CartLine{
		{ProductID: 3, Amount: 1},
		{ProductID: 1, Amount: 2},
		{ProductID: 7, Amount: 4},
	}, s.Lines())
}

func TestStore_DeriveLinesFromPayload_Empty(t *testing.T) {
	s := NewStore()
	s.SetLines([]domain.CartLine{{ProductID: 1, Amount: 1}})

	s.DeriveLinesFromPayload()

	assert.Empty(t, s.Lines())
}

func TestStore_DeriveDiscardsLocalEdits(t *testing.T) {
	s := NewStore()
	s.ApplyPayload([]domain.CartItem{item(1, "10.00", 2)}, true)

	s.UpdateLineAmount(1, 9)
	assert.Equal(t, 9, s.Lines()[0].Amount)

	s.DeriveLinesFromPayload()
	assert.Equal(t, 2, s.Lines()[0].Amount)
}

func TestStore_UpdateLineAmount_UnknownProduct(t *testing.T) {
	s := NewStore()
	s.SetLines([]domain.CartLine{{ProductID: 1, Amount: 2}})

	s.UpdateLineAmount(42, 5)

	assert.Equal(t, []domain.CartLine{{ProductID: 1, Amount: 2}}, s.Lines())
}

func TestStore_ApplyPayload_WithoutDerive(t *testing.T) {
	s := NewStore()
	s.SetLines([]domain.CartLine{{ProductID: 1, Amount: 5}})

	s.ApplyPayload([]domain.CartItem{item(1, "10.00", 3)}, false)

	assert.Equal(t, 5, s.Lines()[0].Amount)
	assert.Equal(t, 3, s.Payload()[0].Quantity)
}

func TestStore_Reset(t *testing.T) {
	s := NewStore()
	s.SetAccessKey("key-1")
	s.ApplyPayload([]domain.CartItem{item(1, "10.00", 2)}, true)

	s.Reset()

	assert.Empty(t, s.Lines())
	assert.Empty(t, s.Payload())
	assert.Equal(t, "key-1", s.AccessKey())
}

func TestStore_SetAccessKey_Overwrites(t *testing.T) {
	s := NewStore()
	assert.Empty(t, s.AccessKey())

	s.SetAccessKey("first")
	s.SetAccessKey("second")

	assert.Equal(t, "second", s.AccessKey())
}

func TestStore_SetAccessKeyIfEmpty(t *testing.T) {
	s := NewStore()

	assert.True(t, s.SetAccessKeyIfEmpty("first"))
	assert.False(t, s.SetAccessKeyIfEmpty("second"))
	assert.Equal(t, "first", s.AccessKey())
}

func TestStore_SetAccessKeyIfEmpty_Concurrent(t *testing.T) {
	s := NewStore()
	var wg sync.WaitGroup
	var m sync.Mutex
	stored := 0

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if s.SetAccessKeyIfEmpty(fmt.Sprintf("key-%d", i)) {
				m.Lock()
				stored++
				m.Unlock()
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, stored)
	assert.NotEmpty(t, s.AccessKey())
}

func TestStore_Status(t *testing.T) {
	s := NewStore()
	assert.Equal(t, domain.LoadingStatus{}, s.Status())

	s.SetLoading(true)
	s.SetLoadingFailed(true)
	assert.Equal(t, domain.LoadingStatus{Loading: true, Failed: true}, s.Status())

	s.SetLoading(false)
	assert.Equal(t, domain.LoadingStatus{Loading: false, Failed: true}, s.Status())
}

func TestStore_LinesReturnsCopy(t *testing.T) {
	s := NewStore()
	s.SetLines([]domain.CartLine{{ProductID: 1, Amount: 2}})

	lines := s.Lines()
	lines[0].Amount = 100

	assert.Equal(t, 2, s.Lines()[0].Amount)
}

func TestStore_ConcurrentAccess(t *testing.T) {
	s := NewStore()
	s.ApplyPayload([]domain.CartItem{item(1, "10.00", 2), item(2, "3.00", 1)}, true)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			s.UpdateLineAmount(1, n)
			s.DeriveLinesFromPayload()
		}(i)
		go func() {
			defer wg.Done()
			_, err := s.DetailLines()
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Len(t, s.Lines(), 2)
}
