package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/V1nSky/key-bot/services/api/internal/domain"
	"github.com/V1nSky/key-bot/services/api/internal/testutil"
)

func TestOrderRepository(t *testing.T) {
	pool := testutil.NewTestPool(t)
	repo := NewOrderRepository(pool)
	testutil.ApplyMigrations(t, context.Background(), pool)

	t.Run("CreateOrder and GetOrder round trip", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		testutil.InsertUser(t, ctx, pool, 42)

		created, err := repo.CreateOrder(ctx, domain.Order{UserID: 42, Amount: 500, CreatedAt: time.Now().UTC()})
		if err != nil {
			t.Fatalf("create order: %v", err)
		}
		if created.ID == 0 || created.Status != domain.OrderStatusCreated {
			t.Fatalf("unexpected order: %+v", created)
		}

		got, err := repo.GetOrder(ctx, created.ID)
		if err != nil {
			t.Fatalf("get order: %v", err)
		}
		if got.UserID != 42 || got.Amount != 500 || got.KeyID != nil || got.ConfirmedAt != nil {
			t.Fatalf("unexpected order: %+v", got)
		}

		_, err = repo.GetOrder(ctx, created.ID+1000)
		if err != domain.ErrOrderNotFound {
			t.Fatalf("expected ErrOrderNotFound, got %v", err)
		}
		if !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected ErrNotFound wrap, got %v", err)
		}
	})

	t.Run("CreateOrder for unknown user is rejected", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)

		_, err := repo.CreateOrder(ctx, domain.Order{UserID: 7, Amount: 500, CreatedAt: time.Now().UTC()})
		if err != domain.ErrInvalidID {
			t.Fatalf("expected ErrInvalidID, got %v", err)
		}
	})

	t.Run("ConfirmOrder only updates pending orders", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		orderID := testutil.InsertOrder(t, ctx, pool, 1, 500, "pending")
		keyID := testutil.InsertKey(t, ctx, pool, "AAAA-BBBB-CCCC-DDDD")
		now := time.Now().UTC()

		err := repo.WithTx(ctx, func(txCtx context.Context) error {
			if _, err := repo.GetOrderForUpdate(txCtx, orderID); err != nil {
				return err
			}
			return repo.ConfirmOrder(txCtx, orderID, keyID, now)
		})
		if err != nil {
			t.Fatalf("confirm: %v", err)
		}

		got, err := repo.GetOrder(ctx, orderID)
		if err != nil {
			t.Fatalf("get order: %v", err)
		}
		if got.Status != domain.OrderStatusConfirmed || got.KeyID == nil || *got.KeyID != keyID || got.ConfirmedAt == nil {
			t.Fatalf("unexpected order: %+v", got)
		}

		if err := repo.ConfirmOrder(ctx, orderID, keyID, now); err != domain.ErrOrderAlreadyConfirmed {
			t.Fatalf("expected ErrOrderAlreadyConfirmed, got %v", err)
		}
	})

	t.Run("confirmed status without key violates the schema", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		orderID := testutil.InsertOrder(t, ctx, pool, 1, 500, "pending")

		err := repo.UpdateOrderStatus(ctx, orderID, domain.OrderStatusConfirmed)
		if err != domain.ErrInvalidTransition {
			t.Fatalf("expected ErrInvalidTransition, got %v", err)
		}
		if err := repo.UpdateOrderStatus(ctx, orderID+1000, domain.OrderStatusRejected); err != domain.ErrOrderNotFound {
			t.Fatalf("expected ErrOrderNotFound, got %v", err)
		}
		if err := repo.UpdateOrderStatus(ctx, orderID, domain.OrderStatus("refunded")); err != domain.ErrInvalidTransition {
			t.Fatalf("expected ErrInvalidTransition for unknown status, got %v", err)
		}
	})

	t.Run("ListPendingOrders returns only pending, newest first", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		older := testutil.InsertOrder(t, ctx, pool, 1, 500, "pending")
		testutil.InsertOrder(t, ctx, pool, 1, 500, "created")
		testutil.InsertOrder(t, ctx, pool, 2, 500, "rejected")
		newer := testutil.InsertOrder(t, ctx, pool, 2, 500, "pending")
		if _, err := pool.Exec(ctx, `UPDATE orders SET created_at = created_at - INTERVAL '1 hour' WHERE id = $1`, older); err != nil {
			t.Fatalf("age order: %v", err)
		}

		orders, err := repo.ListPendingOrders(ctx)
		if err != nil {
			t.Fatalf("list pending: %v", err)
		}
		if len(orders) != 2 || orders[0].ID != newer || orders[1].ID != older {
			t.Fatalf("unexpected pending orders: %+v", orders)
		}
	})

	t.Run("ListPurchasesByUser joins key values", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		orderID := testutil.InsertOrder(t, ctx, pool, 9, 500, "pending")
		keyID := testutil.InsertKey(t, ctx, pool, "AAAA-BBBB-CCCC-DDDD")
		now := time.Now().UTC()

		err := repo.WithTx(ctx, func(txCtx context.Context) error {
			if err := repo.ConfirmOrder(txCtx, orderID, keyID, now); err != nil {
				return err
			}
			_, err := repo.CreatePurchase(txCtx, domain.Purchase{UserID: 9, OrderID: orderID, KeyID: keyID, PurchasedAt: now})
			return err
		})
		if err != nil {
			t.Fatalf("confirm: %v", err)
		}

		purchases, err := repo.ListPurchasesByUser(ctx, 9)
		if err != nil {
			t.Fatalf("list purchases: %v", err)
		}
		if len(purchases) != 1 || purchases[0].KeyValue != "AAAA-BBBB-CCCC-DDDD" || purchases[0].OrderID != orderID {
			t.Fatalf("unexpected purchases: %+v", purchases)
		}

		_, err = repo.CreatePurchase(ctx, domain.Purchase{UserID: 9, OrderID: orderID, KeyID: keyID, PurchasedAt: now})
		if err != domain.ErrOrderAlreadyConfirmed {
			t.Fatalf("expected ErrOrderAlreadyConfirmed, got %v", err)
		}

		empty, err := repo.ListPurchasesByUser(ctx, 10)
		if err != nil {
			t.Fatalf("list purchases: %v", err)
		}
		if len(empty) != 0 {
			t.Fatalf("expected no purchases, got %+v", empty)
		}
	})
}
