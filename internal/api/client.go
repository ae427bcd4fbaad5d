package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

const (
	basketsPath        = "/api/baskets"
	basketProductsPath = "/api/baskets/products"
	accessKeyParam     = "userAccessKey"

	defaultMaxFailures = 5
	maxErrorBodySize   = 4 << 10 // 4KB
)

// Config holds the baskets API client configuration.
type Config struct {
	BaseURL string

	// HTTPClient is used as is when set. Otherwise a client with an
	// otelhttp transport and no timeout is created.
	HTTPClient *http.Client

	// MaxFailures is the number of consecutive failed calls that opens the breaker.
	MaxFailures uint32

	// OpenTimeout is how long the breaker stays open before probing again.
	OpenTimeout time.Duration

	Logger *zap.Logger
}

// Client talks to the remote baskets REST API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	breaker    *gobreaker.CircuitBreaker[[]byte]
	logger     *zap.Logger
}

// New creates a baskets API client
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if _, err := url.ParseRequestURI(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}

	maxFailures := cfg.MaxFailures
	if maxFailures == 0 {
		maxFailures = defaultMaxFailures
	}

	breaker := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:    "baskets-api",
		Timeout: cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		// 4xx responses do not count as failures.
		IsSuccessful: func(err error) bool {
			var statusErr *StatusError
			if errors.As(err, &statusErr) {
				return statusErr.StatusCode < http.StatusInternalServerError
			}
			return err == nil
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})

	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		breaker:    breaker,
		logger:     logger,
	}, nil
}

// GetBasket fetches the basket identified by accessKey. With an empty key the
// server creates a new anonymous basket and returns its key in User.
func (c *Client) GetBasket(ctx context.Context, accessKey string) (*BasketResponse, error) {
	return c.do(ctx, http.MethodGet, basketsPath, accessKey, nil)
}

func (c *Client) AddProduct(ctx context.Context, accessKey string, productID int64, quantity int) (*BasketResponse, error) {
	return c.do(ctx, http.MethodPost, basketProductsPath, accessKey, productRequest{
		ProductID: productID,
		Quantity:  quantity,
	})
}

func (c *Client) UpdateProductQuantity(ctx context.Context, accessKey string, productID int64, quantity int) (*BasketResponse, error) {
	return c.do(ctx, http.MethodPut, basketProductsPath, accessKey, productRequest{
		ProductID: productID,
		Quantity:  quantity,
	})
}

// DeleteProduct removes a product. The product id travels in the request body.
func (c *Client) DeleteProduct(ctx context.Context, accessKey string, productID int64) (*BasketResponse, error) {
	return c.do(ctx, http.MethodDelete, basketProductsPath, accessKey, deleteRequest{
		ProductID: productID,
	})
}

func (c *Client) do(ctx context.Context, method, path, accessKey string, body any) (*BasketResponse, error) {
	endpoint := c.endpoint(path, accessKey)

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request failed: %w", err)
		}
	}

	raw, err := c.breaker.Execute(func() ([]byte, error) {
		return c.send(ctx, method, endpoint, payload)
	})
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}

	var resp BasketResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("%s %s: unmarshal response failed: %w", method, path, err)
	}
	return &resp, nil
}

func (c *Client) send(ctx context.Context, method, endpoint string, payload []byte) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("build request failed: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(msg)}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response failed: %w", err)
	}
	return data, nil
}

func (c *Client) endpoint(path, accessKey string) string {
	if accessKey == "" {
		return c.baseURL + path
	}
	q := url.Values{}
	q.Set(accessKeyParam, accessKey)
	return c.baseURL + path + "?" + q.Encode()
}
