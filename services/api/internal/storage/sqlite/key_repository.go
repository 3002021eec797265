package sqlite

import (
	"context"
	"fmt"

	"github.com/V1nSky/key-bot/services/api/internal/domain"
)

type KeyRepository struct {
	conn
}

func NewKeyRepository(db *DB) *KeyRepository {
	return &KeyRepository{conn: conn{db: db.db}}
}

func (r *KeyRepository) CreateKey(ctx context.Context, key domain.Key) (domain.Key, error) {
	err := r.queryRow(ctx,
		`INSERT INTO keys (value, used, created_at) VALUES (?, 0, ?) RETURNING id`,
		key.Value, toMicros(key.CreatedAt),
	).Scan(&key.ID)
	if err != nil {
		if isUniqueViolation(err, "keys.value") {
			return domain.Key{}, domain.ErrDuplicateKey
		}
		return domain.Key{}, fmt.Errorf("create key: %w", err)
	}
	key.Used = false
	return key, nil
}

func (r *KeyRepository) CountAvailableKeys(ctx context.Context) (int, error) {
	var n int
	if err := r.queryRow(ctx, `SELECT COUNT(*) FROM keys WHERE used = 0`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count available keys: %w", err)
	}
	return n, nil
}

// NextAvailableKey returns the oldest unused key without claiming it.
func (r *KeyRepository) NextAvailableKey(ctx context.Context) (domain.Key, error) {
	row := r.queryRow(ctx, `SELECT id, value, used, created_at FROM keys WHERE used = 0 ORDER BY id LIMIT 1`)
	k, err := scanKey(row)
	if err != nil {
		if isNoRows(err) {
			return domain.Key{}, domain.ErrNoKeyAvailable
		}
		return domain.Key{}, fmt.Errorf("next available key: %w", err)
	}
	return k, nil
}

// MarkKeyUsed flags a key as issued. Callers must bind the key to a
// confirmed order in the same transaction.
func (r *KeyRepository) MarkKeyUsed(ctx context.Context, keyID int64) error {
	res, err := r.exec(ctx, `UPDATE keys SET used = 1 WHERE id = ?`, keyID)
	if err != nil {
		return fmt.Errorf("mark key used: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("mark key used: %w", err)
	} else if n == 0 {
		return domain.ErrKeyNotFound
	}
	return nil
}

func (r *KeyRepository) ListKeys(ctx context.Context) ([]domain.Key, error) {
	rows, err := r.query(ctx, `SELECT id, value, used, created_at FROM keys ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}
	defer rows.Close()

	keys := []domain.Key{}
	for rows.Next() {
		k, err := scanKey(rows)
		if err != nil {
			return nil, fmt.Errorf("scan key: %w", err)
		}
		keys = append(keys, k)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate keys: %w", rows.Err())
	}
	return keys, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanKey(row scanner) (domain.Key, error) {
	var (
		k       domain.Key
		created int64
	)
	if err := row.Scan(&k.ID, &k.Value, &k.Used, &created); err != nil {
		return domain.Key{}, err
	}
	k.CreatedAt = fromMicros(created)
	return k, nil
}
