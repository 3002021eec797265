package postgres

import (
	"context"
	"fmt"

	"github.com/V1nSky/key-bot/services/api/internal/domain"
)

// AppendActivity writes one action log entry, inside the caller's transaction
// when there is one.
func (c conn) AppendActivity(ctx context.Context, a domain.Activity) error {
	const stmt = `
INSERT INTO activity (user_id, action, details, created_at)
VALUES ($1, $2, $3, $4)`

	if _, err := c.exec(ctx, stmt, a.UserID, a.Action, a.Details, a.CreatedAt); err != nil {
		return fmt.Errorf("append activity: %w", err)
	}
	return nil
}

// EnsureUser inserts the user unless it exists and reports whether it did.
// An existing row keeps its username unless the new one is non-empty.
func (c conn) EnsureUser(ctx context.Context, u domain.User) (bool, error) {
	const stmt = `
INSERT INTO users (id, username, created_at)
VALUES ($1, $2, $3)
ON CONFLICT (id) DO UPDATE
SET username = EXCLUDED.username
WHERE EXCLUDED.username <> '' AND users.username <> EXCLUDED.username
RETURNING (xmax = 0)`

	var inserted bool
	err := c.queryRow(ctx, stmt, u.ID, u.Username, u.CreatedAt).Scan(&inserted)
	if err != nil {
		if isNoRows(err) {
			return false, nil
		}
		return false, fmt.Errorf("ensure user: %w", err)
	}
	return inserted, nil
}
