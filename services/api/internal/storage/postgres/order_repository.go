package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/V1nSky/key-bot/services/api/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const orderColumns = `id, user_id, amount, status, key_id, created_at, confirmed_at`

type OrderRepository struct {
	conn
}

func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{conn: conn{pool: pool}}
}

func (r *OrderRepository) CreateOrder(ctx context.Context, order domain.Order) (domain.Order, error) {
	const stmt = `
INSERT INTO orders (user_id, amount, status, created_at)
VALUES ($1, $2, $3, $4)
RETURNING id`

	if order.Status == "" {
		order.Status = domain.OrderStatusCreated
	}
	err := r.queryRow(ctx, stmt, order.UserID, order.Amount, order.Status, order.CreatedAt).Scan(&order.ID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.Order{}, domain.ErrInvalidID
		}
		if isCheckViolation(err) {
			return domain.Order{}, domain.ErrInvalidAmount
		}
		return domain.Order{}, fmt.Errorf("create order: %w", err)
	}
	order.KeyID = nil
	order.ConfirmedAt = nil
	return order, nil
}

func (r *OrderRepository) GetOrder(ctx context.Context, orderID int64) (domain.Order, error) {
	o, err := scanOrder(r.queryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, orderID))
	if err != nil {
		if isNoRows(err) {
			return domain.Order{}, domain.ErrOrderNotFound
		}
		return domain.Order{}, fmt.Errorf("get order: %w", err)
	}
	return o, nil
}

// GetOrderForUpdate reads the order and holds its row lock until the
// surrounding transaction ends.
func (r *OrderRepository) GetOrderForUpdate(ctx context.Context, orderID int64) (domain.Order, error) {
	o, err := scanOrder(r.queryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, orderID))
	if err != nil {
		if isNoRows(err) {
			return domain.Order{}, domain.ErrOrderNotFound
		}
		return domain.Order{}, fmt.Errorf("get order for update: %w", err)
	}
	return o, nil
}

func (r *OrderRepository) UpdateOrderStatus(ctx context.Context, orderID int64, status domain.OrderStatus) error {
	if !status.Valid() {
		return domain.ErrInvalidTransition
	}
	tag, err := r.exec(ctx, `UPDATE orders SET status = $2 WHERE id = $1`, orderID, status)
	if err != nil {
		if isCheckViolation(err) {
			return domain.ErrInvalidTransition
		}
		return fmt.Errorf("update order status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrOrderNotFound
	}
	return nil
}

// ClaimAvailableKey marks the oldest unused key as used and returns it.
// Concurrent claimers skip each other's locked rows, so no key is handed out
// twice.
func (r *OrderRepository) ClaimAvailableKey(ctx context.Context) (domain.Key, error) {
	const stmt = `
UPDATE keys SET used = TRUE
WHERE id = (
	SELECT id FROM keys
	WHERE NOT used
	ORDER BY id
	LIMIT 1
	FOR UPDATE SKIP LOCKED
)
RETURNING id, value, used, created_at`

	var k domain.Key
	if err := r.queryRow(ctx, stmt).Scan(&k.ID, &k.Value, &k.Used, &k.CreatedAt); err != nil {
		if isNoRows(err) {
			return domain.Key{}, domain.ErrNoKeyAvailable
		}
		return domain.Key{}, fmt.Errorf("claim key: %w", err)
	}
	return k, nil
}

// ConfirmOrder binds the key and stamps the order. Only a pending order is
// updated; anything else means another confirmation won.
func (r *OrderRepository) ConfirmOrder(ctx context.Context, orderID, keyID int64, confirmedAt time.Time) error {
	const stmt = `
UPDATE orders
SET status = 'confirmed', key_id = $2, confirmed_at = $3
WHERE id = $1 AND status = 'pending'`

	tag, err := r.exec(ctx, stmt, orderID, keyID, confirmedAt)
	if err != nil {
		if isUniqueViolation(err, "orders_key_id_key") {
			return fmt.Errorf("key %d already bound: %w", keyID, domain.ErrOrderAlreadyConfirmed)
		}
		return fmt.Errorf("confirm order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrOrderAlreadyConfirmed
	}
	return nil
}

func (r *OrderRepository) CreatePurchase(ctx context.Context, p domain.Purchase) (domain.Purchase, error) {
	const stmt = `
INSERT INTO purchases (user_id, order_id, key_id, purchased_at)
VALUES ($1, $2, $3, $4)
RETURNING id`

	if err := r.queryRow(ctx, stmt, p.UserID, p.OrderID, p.KeyID, p.PurchasedAt).Scan(&p.ID); err != nil {
		if isUniqueViolation(err, "") {
			return domain.Purchase{}, domain.ErrOrderAlreadyConfirmed
		}
		return domain.Purchase{}, fmt.Errorf("create purchase: %w", err)
	}
	return p, nil
}

// ListPendingOrders returns orders awaiting review, newest first.
func (r *OrderRepository) ListPendingOrders(ctx context.Context) ([]domain.Order, error) {
	query := `SELECT ` + orderColumns + `
FROM orders
WHERE status = 'pending'
ORDER BY created_at DESC, id DESC`

	rows, err := r.query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list pending orders: %w", err)
	}
	defer rows.Close()

	orders := []domain.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, o)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate orders: %w", rows.Err())
	}
	return orders, nil
}

// ListPurchasesByUser joins each purchase with its key value, newest first.
func (r *OrderRepository) ListPurchasesByUser(ctx context.Context, userID int64) ([]domain.Purchase, error) {
	const query = `
SELECT p.id, p.user_id, p.order_id, p.key_id, k.value, p.purchased_at
FROM purchases p
JOIN keys k ON k.id = p.key_id
WHERE p.user_id = $1
ORDER BY p.purchased_at DESC, p.id DESC`

	rows, err := r.query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list purchases: %w", err)
	}
	defer rows.Close()

	purchases := []domain.Purchase{}
	for rows.Next() {
		var p domain.Purchase
		if err := rows.Scan(&p.ID, &p.UserID, &p.OrderID, &p.KeyID, &p.KeyValue, &p.PurchasedAt); err != nil {
			return nil, fmt.Errorf("scan purchase: %w", err)
		}
		purchases = append(purchases, p)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate purchases: %w", rows.Err())
	}
	return purchases, nil
}

func scanOrder(row pgx.Row) (domain.Order, error) {
	var (
		o      domain.Order
		status string
	)
	if err := row.Scan(&o.ID, &o.UserID, &o.Amount, &status, &o.KeyID, &o.CreatedAt, &o.ConfirmedAt); err != nil {
		return domain.Order{}, err
	}
	o.Status = domain.OrderStatus(status)
	return o, nil
}
