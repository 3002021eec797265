package app

import (
	"context"

	"github.com/V1nSky/key-bot/services/api/internal/domain"
)

// Notifier receives outcomes after they are committed. Its errors are logged
// and never undo the committed change.
type Notifier interface {
	PaymentSubmitted(ctx context.Context, order domain.Order) error
	OrderConfirmed(ctx context.Context, order domain.Order, key domain.Key) error
	OrderRejected(ctx context.Context, order domain.Order) error
}

type NopNotifier struct{}

func (NopNotifier) PaymentSubmitted(context.Context, domain.Order) error { return nil }

func (NopNotifier) OrderConfirmed(context.Context, domain.Order, domain.Key) error { return nil }

func (NopNotifier) OrderRejected(context.Context, domain.Order) error { return nil }
