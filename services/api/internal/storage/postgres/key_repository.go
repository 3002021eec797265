package postgres

import (
	"context"
	"fmt"

	"github.com/V1nSky/key-bot/services/api/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

type KeyRepository struct {
	conn
}

func NewKeyRepository(pool *pgxpool.Pool) *KeyRepository {
	return &KeyRepository{conn: conn{pool: pool}}
}

func (r *KeyRepository) CreateKey(ctx context.Context, key domain.Key) (domain.Key, error) {
	const stmt = `
INSERT INTO keys (value, used, created_at)
VALUES ($1, FALSE, $2)
RETURNING id`

	if err := r.queryRow(ctx, stmt, key.Value, key.CreatedAt).Scan(&key.ID); err != nil {
		if isUniqueViolation(err, "keys_value_key") {
			return domain.Key{}, domain.ErrDuplicateKey
		}
		return domain.Key{}, fmt.Errorf("create key: %w", err)
	}
	key.Used = false
	return key, nil
}

func (r *KeyRepository) CountAvailableKeys(ctx context.Context) (int, error) {
	var n int
	if err := r.queryRow(ctx, `SELECT COUNT(*) FROM keys WHERE NOT used`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count available keys: %w", err)
	}
	return n, nil
}

// NextAvailableKey returns the oldest unused key without claiming it. Inside
// a transaction the row stays locked until commit; rows locked by other
// transactions are skipped.
func (r *KeyRepository) NextAvailableKey(ctx context.Context) (domain.Key, error) {
	query := `
SELECT id, value, used, created_at
FROM keys
WHERE NOT used
ORDER BY id
LIMIT 1`
	if txFromContext(ctx) != nil {
		query += `
FOR UPDATE SKIP LOCKED`
	}

	var k domain.Key
	if err := r.queryRow(ctx, query).Scan(&k.ID, &k.Value, &k.Used, &k.CreatedAt); err != nil {
		if isNoRows(err) {
			return domain.Key{}, domain.ErrNoKeyAvailable
		}
		return domain.Key{}, fmt.Errorf("next available key: %w", err)
	}
	return k, nil
}

// MarkKeyUsed flags a key as issued. Marking an already used key is a no-op.
// Callers must bind the key to a confirmed order in the same transaction.
func (r *KeyRepository) MarkKeyUsed(ctx context.Context, keyID int64) error {
	tag, err := r.exec(ctx, `UPDATE keys SET used = TRUE WHERE id = $1`, keyID)
	if err != nil {
		return fmt.Errorf("mark key used: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrKeyNotFound
	}
	return nil
}

func (r *KeyRepository) ListKeys(ctx context.Context) ([]domain.Key, error) {
	const query = `
SELECT id, value, used, created_at
FROM keys
ORDER BY created_at DESC, id DESC`

	rows, err := r.query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}
	defer rows.Close()

	keys := []domain.Key{}
	for rows.Next() {
		var k domain.Key
		if err := rows.Scan(&k.ID, &k.Value, &k.Used, &k.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan key: %w", err)
		}
		keys = append(keys, k)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate keys: %w", rows.Err())
	}
	return keys, nil
}
