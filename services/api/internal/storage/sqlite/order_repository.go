package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/V1nSky/key-bot/services/api/internal/domain"
)

const orderColumns = `id, user_id, amount, status, key_id, created_at, confirmed_at`

type OrderRepository struct {
	conn
}

func NewOrderRepository(db *DB) *OrderRepository {
	return &OrderRepository{conn: conn{db: db.db}}
}

func (r *OrderRepository) CreateOrder(ctx context.Context, order domain.Order) (domain.Order, error) {
	if order.Status == "" {
		order.Status = domain.OrderStatusCreated
	}
	err := r.queryRow(ctx,
		`INSERT INTO orders (user_id, amount, status, created_at) VALUES (?, ?, ?, ?) RETURNING id`,
		order.UserID, order.Amount, string(order.Status), toMicros(order.CreatedAt),
	).Scan(&order.ID)
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
	o, err := scanOrder(r.queryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = ?`, orderID))
	if err != nil {
		if isNoRows(err) {
			return domain.Order{}, domain.ErrOrderNotFound
		}
		return domain.Order{}, fmt.Errorf("get order: %w", err)
	}
	return o, nil
}

// GetOrderForUpdate reads the order. Transactions begin with the database
// write lock held, so the row cannot change until commit.
func (r *OrderRepository) GetOrderForUpdate(ctx context.Context, orderID int64) (domain.Order, error) {
	return r.GetOrder(ctx, orderID)
}

func (r *OrderRepository) UpdateOrderStatus(ctx context.Context, orderID int64, status domain.OrderStatus) error {
	if !status.Valid() {
		return domain.ErrInvalidTransition
	}
	res, err := r.exec(ctx, `UPDATE orders SET status = ? WHERE id = ?`, string(status), orderID)
	if err != nil {
		if isCheckViolation(err) {
			return domain.ErrInvalidTransition
		}
		return fmt.Errorf("update order status: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("update order status: %w", err)
	} else if n == 0 {
		return domain.ErrOrderNotFound
	}
	return nil
}

// ClaimAvailableKey marks the oldest unused key as used and returns it.
func (r *OrderRepository) ClaimAvailableKey(ctx context.Context) (domain.Key, error) {
	const stmt = `
UPDATE keys SET used = 1
WHERE id = (SELECT id FROM keys WHERE used = 0 ORDER BY id LIMIT 1)
RETURNING id, value, used, created_at`

	k, err := scanKey(r.queryRow(ctx, stmt))
	if err != nil {
		if isNoRows(err) {
			return domain.Key{}, domain.ErrNoKeyAvailable
		}
		return domain.Key{}, fmt.Errorf("claim key: %w", err)
	}
	return k, nil
}

func (r *OrderRepository) ConfirmOrder(ctx context.Context, orderID, keyID int64, confirmedAt time.Time) error {
	res, err := r.exec(ctx,
		`UPDATE orders SET status = 'confirmed', key_id = ?, confirmed_at = ? WHERE id = ? AND status = 'pending'`,
		keyID, toMicros(confirmedAt), orderID,
	)
	if err != nil {
		if isUniqueViolation(err, "orders.key_id") {
			return fmt.Errorf("key %d already bound: %w", keyID, domain.ErrOrderAlreadyConfirmed)
		}
		return fmt.Errorf("confirm order: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("confirm order: %w", err)
	} else if n == 0 {
		return domain.ErrOrderAlreadyConfirmed
	}
	return nil
}

func (r *OrderRepository) CreatePurchase(ctx context.Context, p domain.Purchase) (domain.Purchase, error) {
	err := r.queryRow(ctx,
		`INSERT INTO purchases (user_id, order_id, key_id, purchased_at) VALUES (?, ?, ?, ?) RETURNING id`,
		p.UserID, p.OrderID, p.KeyID, toMicros(p.PurchasedAt),
	).Scan(&p.ID)
	if err != nil {
		if isUniqueViolation(err, "") {
			return domain.Purchase{}, domain.ErrOrderAlreadyConfirmed
		}
		return domain.Purchase{}, fmt.Errorf("create purchase: %w", err)
	}
	return p, nil
}

func (r *OrderRepository) ListPendingOrders(ctx context.Context) ([]domain.Order, error) {
	rows, err := r.query(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE status = 'pending' ORDER BY created_at DESC, id DESC`,
	)
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

func (r *OrderRepository) ListPurchasesByUser(ctx context.Context, userID int64) ([]domain.Purchase, error) {
	const query = `
SELECT p.id, p.user_id, p.order_id, p.key_id, k.value, p.purchased_at
FROM purchases p
JOIN keys k ON k.id = p.key_id
WHERE p.user_id = ?
ORDER BY p.purchased_at DESC, p.id DESC`

	rows, err := r.query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list purchases: %w", err)
	}
	defer rows.Close()

	purchases := []domain.Purchase{}
	for rows.Next() {
		var (
			p         domain.Purchase
			purchased int64
		)
		if err := rows.Scan(&p.ID, &p.UserID, &p.OrderID, &p.KeyID, &p.KeyValue, &purchased); err != nil {
			return nil, fmt.Errorf("scan purchase: %w", err)
		}
		p.PurchasedAt = fromMicros(purchased)
		purchases = append(purchases, p)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate purchases: %w", rows.Err())
	}
	return purchases, nil
}

func scanOrder(row scanner) (domain.Order, error) {
	var (
		o         domain.Order
		status    string
		keyID     sql.NullInt64
		created   int64
		confirmed sql.NullInt64
	)
	if err := row.Scan(&o.ID, &o.UserID, &o.Amount, &status, &keyID, &created, &confirmed); err != nil {
		return domain.Order{}, err
	}
	o.Status = domain.OrderStatus(status)
	o.KeyID = fromNullInt(keyID)
	o.CreatedAt = fromMicros(created)
	o.ConfirmedAt = fromNullMicros(confirmed)
	return o, nil
}
