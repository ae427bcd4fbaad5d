package service

import (
	"context"
	"errors"
	"sync"

	"github.com/fjod/go_cart/basket-client/internal/api"
	"github.com/fjod/go_cart/basket-client/internal/domain"
	"github.com/fjod/go_cart/basket-client/internal/keystore"
	"github.com/shopspring/decimal"
)

type call struct {
	Method    string
	AccessKey string
	ProductID int64
	Quantity  int
}

type mockClient struct {
	m     sync.Mutex
	resp  *api.BasketResponse
	err   error
	calls []call

	// onCall runs before the response is returned, outside the lock.
	onCall func(call)
	// respond replaces resp and err when set.
	respond func(call) (*api.BasketResponse, error)
}

func (c *mockClient) record(cl call) (*api.BasketResponse, error) {
	if c.onCall != nil {
		c.onCall(cl)
	}
	c.m.Lock()
	defer c.m.Unlock()
	c.calls = append(c.calls, cl)
	if c.respond != nil {
		return c.respond(cl)
	}
	if c.err != nil {
		return nil, c.err
	}
	return c.resp, nil
}

func (c *mockClient) GetBasket(_ context.Context, accessKey string) (*api.BasketResponse, error) {
	return c.record(call{Method: "GET", AccessKey: accessKey})
}

func (c *mockClient) AddProduct(_ context.Context, accessKey string, productID int64, quantity int) (*api.BasketResponse, error) {
	return c.record(call{Method: "POST", AccessKey: accessKey, ProductID: productID, Quantity: quantity})
}

func (c *mockClient) UpdateProductQuantity(_ context.Context, accessKey string, productID int64, quantity int) (*api.BasketResponse, error) {
	return c.record(call{Method: "PUT", AccessKey: accessKey, ProductID: productID, Quantity: quantity})
}

func (c *mockClient) DeleteProduct(_ context.Context, accessKey string, productID int64) (*api.BasketResponse, error) {
	return c.record(call{Method: "DELETE", AccessKey: accessKey, ProductID: productID})
}

func (c *mockClient) Calls() []call {
	c.m.Lock()
	defer c.m.Unlock()
	out := make([]call, len(c.calls))
	copy(out, c.calls)
	return out
}

type mockKeyStore struct {
	m      sync.Mutex
	key    string
	getErr error
	setErr error
	sets   int
	gets   int
}

func (k *mockKeyStore) Get(context.Context) (string, error) {
	k.m.Lock()
	defer k.m.Unlock()
	k.gets++
	if k.getErr != nil {
		return "", k.getErr
	}
	if k.key == "" {
		return "", keystore.ErrKeyNotFound
	}
	return k.key, nil
}

func (k *mockKeyStore) Set(_ context.Context, key string) error {
	k.m.Lock()
	defer k.m.Unlock()
	k.sets++
	if k.setErr != nil {
		return k.setErr
	}
	k.key = key
	return nil
}

var errUpstream = errors.New("upstream unavailable")

func cartItem(id int64, price string, quantity int) domain.CartItem {
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

func basket(key string, items ...domain.CartItem) *api.BasketResponse {
	resp := &api.BasketResponse{Items: items}
	if key != "" {
		resp.User = &api.BasketUser{AccessKey: key}
	}
	return resp
}
