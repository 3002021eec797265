package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/V1nSky/key-bot/services/api/internal/clock"
	"github.com/V1nSky/key-bot/services/api/internal/domain"
	"github.com/V1nSky/key-bot/services/api/internal/metrics"
)

// AllocationRepository is the transactional surface the engine needs. Every
// call made inside WithTx must observe and mutate the same transaction.
type AllocationRepository interface {
	TxRunner
	GetOrderForUpdate(ctx context.Context, orderID int64) (domain.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID int64, status domain.OrderStatus) error
	// ClaimAvailableKey selects the lowest-id unused key and marks it used in
	// one statement.
	ClaimAvailableKey(ctx context.Context) (domain.Key, error)
	ConfirmOrder(ctx context.Context, orderID, keyID int64, confirmedAt time.Time) error
	CreatePurchase(ctx context.Context, purchase domain.Purchase) (domain.Purchase, error)
	AppendActivity(ctx context.Context, activity domain.Activity) error
}

// AllocationService owns every order status transition and the order to key
// binding.
type AllocationService struct {
	repo  AllocationRepository
	clock clock.Clock
	options

	inflight sync.WaitGroup
}

func NewAllocationService(repo AllocationRepository, clk clock.Clock, opts ...Option) *AllocationService {
	return &AllocationService{
		repo:    repo,
		clock:   clk,
		options: buildOptions(opts),
	}
}

type ConfirmResult struct {
	Order domain.Order
	Key   domain.Key
}

// Confirm moves a pending order to confirmed and issues it a key. Claiming the
// key, binding it, stamping the order and appending the purchase commit
// together or not at all. Confirming twice fails with
// domain.ErrOrderAlreadyConfirmed and never issues a second key.
func (s *AllocationService) Confirm(ctx context.Context, orderID int64) (ConfirmResult, error) {
	if orderID <= 0 {
		return ConfirmResult{}, domain.ErrInvalidID
	}

	now := s.clock.Now()
	var result ConfirmResult

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		order, err := s.repo.GetOrderForUpdate(txCtx, orderID)
		if err != nil {
			return err
		}

		switch order.Status {
		case domain.OrderStatusConfirmed:
			return domain.ErrOrderAlreadyConfirmed
		case domain.OrderStatusPending:
		default:
			return domain.ErrInvalidTransition
		}

		key, err := s.repo.ClaimAvailableKey(txCtx)
		if err != nil {
			return err
		}
		if err := s.repo.ConfirmOrder(txCtx, order.ID, key.ID, now); err != nil {
			return err
		}
		if _, err := s.repo.CreatePurchase(txCtx, domain.Purchase{
			UserID:      order.UserID,
			OrderID:     order.ID,
			KeyID:       key.ID,
			KeyValue:    key.Value,
			PurchasedAt: now,
		}); err != nil {
			return err
		}

		userID := order.UserID
		if err := s.repo.AppendActivity(txCtx, domain.Activity{
			UserID:    &userID,
			Action:    domain.ActionOrderConfirmed,
			Details:   fmt.Sprintf("order_id=%d key_id=%d", order.ID, key.ID),
			CreatedAt: now,
		}); err != nil {
			return err
		}

		keyID := key.ID
		confirmedAt := now
		order.Status = domain.OrderStatusConfirmed
		order.KeyID = &keyID
		order.ConfirmedAt = &confirmedAt
		key.Used = true
		result = ConfirmResult{Order: order, Key: key}
		return nil
	})

	s.metrics.Confirmation(confirmOutcome(err))
	if err != nil {
		s.logFailure("confirm order failed", orderID, err)
		return ConfirmResult{}, err
	}

	s.logger.Info("order confirmed", "order_id", orderID, "user_id", result.Order.UserID, "key_id", result.Key.ID)
	s.dispatch(ctx, "order confirmed", orderID, func(ctx context.Context) error {
		return s.notifier.OrderConfirmed(ctx, result.Order, result.Key)
	})
	return result, nil
}

// Reject closes a created or pending order without issuing a key. Rejecting
// an already rejected order returns it unchanged; a confirmed order cannot be
// rejected.
func (s *AllocationService) Reject(ctx context.Context, orderID int64) (domain.Order, error) {
	if orderID <= 0 {
		return domain.Order{}, domain.ErrInvalidID
	}

	order, changed, err := s.transition(ctx, orderID, domain.OrderStatusRejected)
	if err != nil {
		s.logFailure("reject order failed", orderID, err)
		return domain.Order{}, err
	}
	if !changed {
		return order, nil
	}

	s.metrics.Rejection()
	s.logger.Info("order rejected", "order_id", orderID, "user_id", order.UserID)
	s.dispatch(ctx, "order rejected", orderID, func(ctx context.Context) error {
		return s.notifier.OrderRejected(ctx, order)
	})
	return order, nil
}

// MarkPending records the buyer's claim of payment. A pending order stays
// pending; a confirmed order fails with domain.ErrOrderAlreadyConfirmed so a
// stale click cannot regress it.
func (s *AllocationService) MarkPending(ctx context.Context, orderID int64) (domain.Order, error) {
	if orderID <= 0 {
		return domain.Order{}, domain.ErrInvalidID
	}

	order, _, err := s.transition(ctx, orderID, domain.OrderStatusPending)
	if err != nil {
		s.logFailure("mark order pending failed", orderID, err)
		return domain.Order{}, err
	}

	s.dispatch(ctx, "payment submitted", orderID, func(ctx context.Context) error {
		return s.notifier.PaymentSubmitted(ctx, order)
	})
	return order, nil
}

// dispatch delivers a committed outcome in the background. The caller's
// cancellation does not reach the notifier; failures are only logged.
func (s *AllocationService) dispatch(ctx context.Context, event string, orderID int64, send func(context.Context) error) {
	ctx = context.WithoutCancel(ctx)
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		if err := send(ctx); err != nil {
			s.logger.Warn("notify "+event+" failed", "order_id", orderID, "error", err)
		}
	}()
}

// Drain waits for dispatched notifications to finish, or for ctx to end.
func (s *AllocationService) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// transition applies a non-confirming status change under the order row lock.
// It reports false when the order already had the target status.
func (s *AllocationService) transition(ctx context.Context, orderID int64, next domain.OrderStatus) (domain.Order, bool, error) {
	now := s.clock.Now()
	var (
		result  domain.Order
		changed bool
	)

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		order, err := s.repo.GetOrderForUpdate(txCtx, orderID)
		if err != nil {
			return err
		}
		if order.Status == next {
			result = order
			return nil
		}
		if !order.Status.CanTransitionTo(next) {
			if order.Status == domain.OrderStatusConfirmed && next == domain.OrderStatusPending {
				return domain.ErrOrderAlreadyConfirmed
			}
			return domain.ErrInvalidTransition
		}

		if err := s.repo.UpdateOrderStatus(txCtx, orderID, next); err != nil {
			return err
		}
		userID := order.UserID
		if err := s.repo.AppendActivity(txCtx, domain.Activity{
			UserID:    &userID,
			Action:    domain.ActionOrderStatusUpdated,
			Details:   fmt.Sprintf("order_id=%d status=%s", orderID, next),
			CreatedAt: now,
		}); err != nil {
			return err
		}

		order.Status = next
		result = order
		changed = true
		return nil
	})
	if err != nil {
		return domain.Order{}, false, err
	}
	return result, changed, nil
}

func (s *AllocationService) logFailure(msg string, orderID int64, err error) {
	if isBusinessError(err) {
		s.logger.Debug(msg, "order_id", orderID, "reason", err)
		return
	}
	s.logger.Error(msg, "order_id", orderID, "error", err)
}

func isBusinessError(err error) bool {
	return errors.Is(err, domain.ErrNotFound) ||
		errors.Is(err, domain.ErrOrderAlreadyConfirmed) ||
		errors.Is(err, domain.ErrNoKeyAvailable) ||
		errors.Is(err, domain.ErrInvalidTransition) ||
		errors.Is(err, domain.ErrInvalidID)
}

func confirmOutcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeConfirmed
	case errors.Is(err, domain.ErrOrderAlreadyConfirmed):
		return metrics.OutcomeAlreadyConfirmed
	case errors.Is(err, domain.ErrNoKeyAvailable):
		return metrics.OutcomeNoKey
	case errors.Is(err, domain.ErrNotFound):
		return metrics.OutcomeNotFound
	case errors.Is(err, domain.ErrInvalidTransition), errors.Is(err, domain.ErrInvalidID):
		return metrics.OutcomeInvalid
	default:
		return metrics.OutcomeError
	}
}
