package poller

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const (
	checkoutTopic = "checkout-outbox"
	consumerGroup = "basket-client"

	defaultRetryDelay = time.Second
)

type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// Cart is the part of the cart service the poller drives.
type Cart interface {
	AccessKey() string
	ResetCart()
	LoadCart(ctx context.Context)
}

// CheckoutCompletedEvent is the outbox message published once a basket was
// turned into an order. UserID carries the basket access key.
type CheckoutCompletedEvent struct {
	CheckoutID string `json:"checkout_id"`
	UserID     string `json:"user_id"`
}

// Poller empties the local cart when a checkout for its basket completes.
type Poller struct {
	reader MessageReader
	cart   Cart
	logger *zap.Logger

	// retryDelay is the pause after a failed read.
	retryDelay time.Duration
}

func NewPoller(cart Cart, logger *zap.Logger, brokers ...string) *Poller {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    checkoutTopic,
		GroupID:  consumerGroup,
		MaxBytes: 10e6, // 10MB
	})
	return NewPollerWithReader(reader, cart, logger)
}

func NewPollerWithReader(reader MessageReader, cart Cart, logger *zap.Logger) *Poller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Poller{reader: reader, cart: cart, logger: logger, retryDelay: defaultRetryDelay}
}

func (p *Poller) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		p.processMessage(ctx)
	}
}

func (p *Poller) Close() {
	if err := p.reader.Close(); err != nil {
		p.logger.Error("error closing kafka reader", zap.Error(err))
	}
}

func (p *Poller) processMessage(ctx context.Context) {
	m, err := p.reader.ReadMessage(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		p.logger.Error("error reading message", zap.Error(err))
		select {
		case <-ctx.Done():
		case <-time.After(p.retryDelay):
		}
		return
	}

	var event CheckoutCompletedEvent
	if err := json.Unmarshal(m.Value, &event); err != nil {
		p.logger.Warn("error parsing message", zap.Error(err), zap.Int64("offset", m.Offset))
		return
	}
	if event.UserID == "" {
		p.logger.Warn("missing user_id", zap.Int64("offset", m.Offset))
		return
	}

	key := p.cart.AccessKey()
	if key == "" || event.UserID != key {
		return
	}

	p.logger.Info("checkout completed, resetting cart", zap.String("checkout_id", event.CheckoutID))
	p.cart.ResetCart()
	p.cart.LoadCart(ctx)
}
