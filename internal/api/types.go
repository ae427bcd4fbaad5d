package api

import (
	"fmt"

	"github.com/fjod/go_cart/basket-client/internal/domain"
)

// BasketResponse is the body every baskets endpoint answers with.
// User is only sent by GET /api/baskets.
type BasketResponse struct {
	User  *BasketUser       `json:"user,omitempty"`
	Items []domain.CartItem `json:"items"`
}

type BasketUser struct {
	AccessKey string `json:"accessKey"`
}

type productRequest struct {
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
}

type deleteRequest struct {
	ProductID int64 `json:"productId"`
}

// StatusError is returned when the API answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status %d", e.StatusCode)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Body)
}
