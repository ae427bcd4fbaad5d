package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/fjod/go_cart/basket-client/internal/api"
	"github.com/fjod/go_cart/basket-client/internal/keystore"
	"github.com/fjod/go_cart/basket-client/internal/store"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// BasketsClient is the part of the baskets API the service depends on
type BasketsClient interface {
	GetBasket(ctx context.Context, accessKey string) (*api.BasketResponse, error)
	AddProduct(ctx context.Context, accessKey string, productID int64, quantity int) (*api.BasketResponse, error)
	UpdateProductQuantity(ctx context.Context, accessKey string, productID int64, quantity int) (*api.BasketResponse, error)
	DeleteProduct(ctx context.Context, accessKey string, productID int64) (*api.BasketResponse, error)
}

// CartService runs the basket actions against the API and reconciles the
// responses into the store.
//
// Failures of LoadCart and UpdateProductAmount are logged and turned into
// store state. Failures of AddProduct and DeleteProduct go back to the caller.
type CartService struct {
	store  *store.Store
	client BasketsClient
	keys   keystore.AccessKeyStore
	logger *zap.Logger
	sfg    singleflight.Group
}

func NewCartService(st *store.Store, client BasketsClient, keys keystore.AccessKeyStore, logger *zap.Logger) *CartService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if keys == nil {
		keys = keystore.NewMemoryStore()
	}
	return &CartService{
		store:  st,
		client: client,
		keys:   keys,
		logger: logger,
	}
}

// RestoreAccessKey loads a previously persisted access key into the store.
// It does nothing when the store already holds a key or none was persisted.
func (s *CartService) RestoreAccessKey(ctx context.Context) error {
	_, err, _ := s.sfg.Do(keystore.KeyName, func() (interface{}, error) {
		if s.store.AccessKey() != "" {
			return nil, nil
		}
		key, err := s.keys.Get(ctx)
		if errors.Is(err, keystore.ErrKeyNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("restore access key: %w", err)
		}
		s.store.SetAccessKey(key)
		s.logger.Info("access key restored")
		return nil, nil
	})
	return err
}

// LoadCart fetches the basket and replaces the local mirror. It never
// returns the fetch error; a failure only sets the loading failed flag.
func (s *CartService) LoadCart(ctx context.Context) {
	s.store.SetLoading(true)
	s.store.SetLoadingFailed(false)
	defer s.store.SetLoading(false)

	resp, err := s.client.GetBasket(ctx, s.store.AccessKey())
	if err != nil {
		s.store.SetLoadingFailed(true)
		s.logger.Error("load cart failed", zap.Error(err))
		return
	}

	if resp.User != nil && resp.User.AccessKey != "" && s.store.SetAccessKeyIfEmpty(resp.User.AccessKey) {
		if err := s.keys.Set(ctx, resp.User.AccessKey); err != nil {
			s.logger.Error("persist access key failed", zap.Error(err))
		}
	}
	s.store.ApplyPayload(resp.Items, true)
}

func (s *CartService) AddProduct(ctx context.Context, productID int64, amount int) error {
	resp, err := s.client.AddProduct(ctx, s.store.AccessKey(), productID, amount)
	if err != nil {
		return fmt.Errorf("add product %d: %w", productID, err)
	}
	s.store.ApplyPayload(resp.Items, true)
	s.logger.Info("product added", zap.Int64("product_id", productID), zap.Int("amount", amount))
	return nil
}

// UpdateProductAmount edits the local line first and then confirms the new
// amount with the API. Amounts below 1 stay local: no request is sent, and
// removal is left to DeleteProduct. A successful response replaces the
// payload but keeps the edited lines; a failed one rolls the lines back to
// the last confirmed payload.
func (s *CartService) UpdateProductAmount(ctx context.Context, productID int64, amount int) {
	s.store.UpdateLineAmount(productID, amount)

	if amount < 1 {
		return
	}

	resp, err := s.client.UpdateProductQuantity(ctx, s.store.AccessKey(), productID, amount)
	if err != nil {
		s.logger.Error("update product amount failed",
			zap.Int64("product_id", productID),
			zap.Int("amount", amount),
			zap.Error(err))
		s.store.DeriveLinesFromPayload()
		return
	}
	s.store.ApplyPayload(resp.Items, false)
}

func (s *CartService) DeleteProduct(ctx context.Context, productID int64) error {
	resp, err := s.client.DeleteProduct(ctx, s.store.AccessKey(), productID)
	if err != nil {
		return fmt.Errorf("delete product %d: %w", productID, err)
	}
	s.store.ApplyPayload(resp.Items, true)
	s.logger.Info("product deleted", zap.Int64("product_id", productID))
	return nil
}

// ResetCart clears the local mirror, e.g. after the order was placed.
func (s *CartService) ResetCart() {
	s.store.Reset()
}

func (s *CartService) AccessKey() string {
	return s.store.AccessKey()
}

// Snapshot returns the detail lines, totals and loading flags of the current cart.
func (s *CartService) Snapshot() (*store.Summary, error) {
	return s.store.Summary()
}
