package app

import (
	"context"
	"fmt"

	"github.com/V1nSky/key-bot/services/api/internal/clock"
	"github.com/V1nSky/key-bot/services/api/internal/domain"
)

type OrderRepository interface {
	TxRunner
	EnsureUser(ctx context.Context, user domain.User) (bool, error)
	CreateOrder(ctx context.Context, order domain.Order) (domain.Order, error)
	GetOrder(ctx context.Context, orderID int64) (domain.Order, error)
	ListPendingOrders(ctx context.Context) ([]domain.Order, error)
	ListPurchasesByUser(ctx context.Context, userID int64) ([]domain.Purchase, error)
	AppendActivity(ctx context.Context, activity domain.Activity) error
}

type OrderService struct {
	repo  OrderRepository
	clock clock.Clock
	options
}

func NewOrderService(repo OrderRepository, clk clock.Clock, opts ...Option) *OrderService {
	return &OrderService{
		repo:    repo,
		clock:   clk,
		options: buildOptions(opts),
	}
}

type CreateOrderInput struct {
	UserID int64
	Amount int64
}

// CreateOrder opens an order in the created state, registering the buyer if
// they have not been seen before.
func (s *OrderService) CreateOrder(ctx context.Context, in CreateOrderInput) (domain.Order, error) {
	if in.UserID <= 0 {
		return domain.Order{}, domain.ErrInvalidID
	}
	if in.Amount <= 0 {
		return domain.Order{}, domain.ErrInvalidAmount
	}

	now := s.clock.Now()
	var result domain.Order

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		if _, err := s.repo.EnsureUser(txCtx, domain.User{ID: in.UserID, CreatedAt: now}); err != nil {
			return err
		}

		order, err := s.repo.CreateOrder(txCtx, domain.Order{
			UserID:    in.UserID,
			Amount:    in.Amount,
			Status:    domain.OrderStatusCreated,
			CreatedAt: now,
		})
		if err != nil {
			return err
		}

		userID := in.UserID
		if err := s.repo.AppendActivity(txCtx, domain.Activity{
			UserID:    &userID,
			Action:    domain.ActionOrderCreated,
			Details:   fmt.Sprintf("order_id=%d amount=%d", order.ID, order.Amount),
			CreatedAt: now,
		}); err != nil {
			return err
		}

		result = order
		return nil
	})
	if err != nil {
		s.logger.Error("create order failed", "user_id", in.UserID, "error", err)
		return domain.Order{}, err
	}

	s.metrics.OrderCreated()
	return result, nil
}

func (s *OrderService) GetOrder(ctx context.Context, orderID int64) (domain.Order, error) {
	if orderID <= 0 {
		return domain.Order{}, domain.ErrInvalidID
	}
	return s.repo.GetOrder(ctx, orderID)
}

// PendingOrders lists orders awaiting an administrator, newest first.
func (s *OrderService) PendingOrders(ctx context.Context) ([]domain.Order, error) {
	return s.repo.ListPendingOrders(ctx)
}

// UserPurchases lists the user's purchases with key values, newest first.
func (s *OrderService) UserPurchases(ctx context.Context, userID int64) ([]domain.Purchase, error) {
	if userID <= 0 {
		return nil, domain.ErrInvalidID
	}
	return s.repo.ListPurchasesByUser(ctx, userID)
}
