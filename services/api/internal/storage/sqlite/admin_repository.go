package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/V1nSky/key-bot/services/api/internal/domain"
)

type UserRepository struct {
	conn
}

func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{conn: conn{db: db.db}}
}

type AdminRepository struct {
	conn
}

func NewAdminRepository(db *DB) *AdminRepository {
	return &AdminRepository{conn: conn{db: db.db}}
}

func (r *AdminRepository) GetStats(ctx context.Context) (domain.Stats, error) {
	const query = `
SELECT
	(SELECT COUNT(*) FROM users),
	(SELECT COUNT(*) FROM orders WHERE status = 'confirmed'),
	(SELECT COALESCE(SUM(amount), 0) FROM orders WHERE status = 'confirmed'),
	(SELECT COUNT(*) FROM keys WHERE used = 0),
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
	rows, err := r.query(ctx,
		`SELECT id, user_id, action, details, created_at FROM activity ORDER BY created_at DESC, id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list activity: %w", err)
	}
	defer rows.Close()

	entries := []domain.Activity{}
	for rows.Next() {
		var (
			a       domain.Activity
			userID  sql.NullInt64
			created int64
		)
		if err := rows.Scan(&a.ID, &userID, &a.Action, &a.Details, &created); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		a.UserID = fromNullInt(userID)
		a.CreatedAt = fromMicros(created)
		entries = append(entries, a)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate activity: %w", rows.Err())
	}
	return entries, nil
}
