package store

import (
	"sync"

	"github.com/fjod/go_cart/basket-client/internal/domain"
)

// Store holds the in-memory mirror of the remote basket.
// Lines are the locally editable positions, payload is the last item list
// confirmed by the server. Lines are rebuilt from payload only through
// DeriveLinesFromPayload.
type Store struct {
	mu        sync.RWMutex
	lines     []domain.CartLine
	payload   []domain.CartItem
	accessKey string
	status    domain.LoadingStatus
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{}
}

// Reset clears both the lines and the payload. The access key is kept.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = nil
	s.payload = nil
}

func (s *Store) SetLines(lines []domain.CartLine) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = cloneLines(lines)
}

func (s *Store) SetPayload(items []domain.CartItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payload = cloneItems(items)
}

// SetAccessKey overwrites the held key. Callers decide whether a key may be replaced.
func (s *Store) SetAccessKey(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessKey = key
}

// SetAccessKeyIfEmpty stores key only when no key is held yet and reports
// whether it did.
func (s *Store) SetAccessKeyIfEmpty(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.accessKey != "" {
		return false
	}
	s.accessKey = key
	return true
}

func (s *Store) AccessKey() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessKey
}

// UpdateLineAmount sets the amount of the line with the given product id.
// Unknown product ids are ignored.
func (s *Store) UpdateLineAmount(productID int64, amount int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.lines {
		if s.lines[i].ProductID == productID {
			s.lines[i].Amount = amount
			return
		}
	}
}

// DeriveLinesFromPayload rebuilds the lines from the payload, dropping any
// local edit the server has not confirmed.
func (s *Store) DeriveLinesFromPayload() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = deriveLines(s.payload)
}

// ApplyPayload replaces the payload and, when derive is set, rebuilds the
// lines from it under the same lock.
func (s *Store) ApplyPayload(items []domain.CartItem, derive bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payload = cloneItems(items)
	if derive {
		s.lines = deriveLines(s.payload)
	}
}

func (s *Store) SetLoading(loading bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status.Loading = loading
}

func (s *Store) SetLoadingFailed(failed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status.Failed = failed
}

func (s *Store) Status() domain.LoadingStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Lines returns a copy of the current lines
func (s *Store) Lines() []domain.CartLine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneLines(s.lines)
}

// Payload returns a copy of the last confirmed item list
func (s *Store) Payload() []domain.CartItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneItems(s.payload)
}

func deriveLines(items []domain.CartItem) []domain.CartLine {
	lines := make([]domain.CartLine, len(items))
	for i, item := range items {
		lines[i] = domain.CartLine{
			ProductID: item.Product.ID,
			Amount:    item.Quantity,
		}
	}
	return lines
}

func cloneLines(lines []domain.CartLine) []domain.CartLine {
	if lines == nil {
		return nil
	}
	out := make([]domain.CartLine, len(lines))
	copy(out, lines)
	return out
}

func cloneItems(items []domain.CartItem) []domain.CartItem {
	if items == nil {
		return nil
	}
	out := make([]domain.CartItem, len(items))
	copy(out, items)
	return out
}
