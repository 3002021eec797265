package postgres

import (
	"context"
	"fmt"

	"github.com/V1nSky/key-bot/services/api/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AdminRepository serves read-only reporting queries.
type AdminRepository struct {
	conn
}

func NewAdminRepository(pool *pgxpool.Pool) *AdminRepository {
	return &AdminRepository{conn: conn{pool: pool}}
}

// UserRepository registers users. EnsureUser and AppendActivity come from the
// shared connection helpers.
type UserRepository struct {
	conn
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{conn: conn{pool: pool}}
}

func (r *AdminRepository) GetStats(ctx context.Context) (domain.Stats, error) {
	const query = `
SELECT
	(SELECT COUNT(*) FROM users),
	(SELECT COUNT(*) FROM orders WHERE status = 'confirmed'),
	(SELECT COALESCE(SUM(amount), 0)::BIGINT FROM orders WHERE status = 'confirmed'),
	(SELECT COUNT(*) FROM keys WHERE NOT used),
	(SELECT COUNT(*) FROM orders WHERE status = 'pending')`

	var s domain.Stats
	err := r.queryRow(ctx, query).
		Scan(&s.TotalUsers, &s.TotalSales, &s.TotalRevenue, &s.AvailableKeys, &s.PendingOrders)
	if err != nil {
		return domain.Stats{}, fmt.Errorf("get stats: %w", err)
	}
	return s, nil
}

func (r *AdminRepository) ListActivity(ctx context.Context, limit int) ([]domain.Activity, error) {
	const query = `
SELECT id, user_id, action, details, created_at
FROM activity
ORDER BY created_at DESC, id DESC
LIMIT $1`

	rows, err := r.query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list activity: %w", err)
	}
	defer rows.Close()

	entries := []domain.Activity{}
	for rows.Next() {
		var a domain.Activity
		if err := rows.Scan(&a.ID, &a.UserID, &a.Action, &a.Details, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		entries = append(entries, a)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate activity: %w", rows.Err())
	}
	return entries, nil
}
