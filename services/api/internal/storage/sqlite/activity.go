package sqlite

import (
	"context"
	"fmt"

	"github.com/V1nSky/key-bot/services/api/internal/domain"
)

func (c conn) AppendActivity(ctx context.Context, a domain.Activity) error {
	const stmt = `
INSERT INTO activity (user_id, action, details, created_at)
VALUES (?, ?, ?, ?)`

	if _, err := c.exec(ctx, stmt, a.UserID, a.Action, a.Details, toMicros(a.CreatedAt)); err != nil {
		return fmt.Errorf("append activity: %w", err)
	}
	return nil
}

// EnsureUser inserts the user unless it exists and reports whether it did.
// A non-empty username replaces the stored one.
func (c conn) EnsureUser(ctx context.Context, u domain.User) (bool, error) {
	res, err := c.exec(ctx,
		`INSERT INTO users (id, username, created_at) VALUES (?, ?, ?) ON CONFLICT (id) DO NOTHING`,
		u.ID, u.Username, toMicros(u.CreatedAt),
	)
	if err != nil {
		return false, fmt.Errorf("ensure user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("ensure user: %w", err)
	}
	if n == 1 {
		return true, nil
	}

	if u.Username != "" {
		if _, err := c.exec(ctx, `UPDATE users SET username = ? WHERE id = ?`, u.Username, u.ID); err != nil {
			return false, fmt.Errorf("update username: %w", err)
		}
	}
	return false, nil
}
