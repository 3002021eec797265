package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/V1nSky/key-bot/services/api/internal/clock"
	"github.com/V1nSky/key-bot/services/api/internal/domain"
	"github.com/V1nSky/key-bot/services/api/internal/keygen"
)

// MaxGenerateBatch caps a single GenerateKeys call.
const MaxGenerateBatch = 1000

type KeyRepository interface {
	TxRunner
	CreateKey(ctx context.Context, key domain.Key) (domain.Key, error)
	CountAvailableKeys(ctx context.Context) (int, error)
	NextAvailableKey(ctx context.Context) (domain.Key, error)
	ListKeys(ctx context.Context) ([]domain.Key, error)
	AppendActivity(ctx context.Context, activity domain.Activity) error
}

type InventoryService struct {
	repo  KeyRepository
	clock clock.Clock
	options
}

func NewInventoryService(repo KeyRepository, clk clock.Clock, opts ...Option) *InventoryService {
	return &InventoryService{
		repo:    repo,
		clock:   clk,
		options: buildOptions(opts),
	}
}

// AddKey stores a new unused key. A value already in the inventory fails with
// domain.ErrDuplicateKey and leaves the inventory unchanged.
func (s *InventoryService) AddKey(ctx context.Context, value string) (domain.Key, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return domain.Key{}, domain.ErrInvalidKeyValue
	}

	now := s.clock.Now()
	var result domain.Key

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		key, err := s.repo.CreateKey(txCtx, domain.Key{Value: value, CreatedAt: now})
		if err != nil {
			return err
		}
		if err := s.repo.AppendActivity(txCtx, domain.Activity{
			Action:    domain.ActionKeyAdded,
			Details:   fmt.Sprintf("key_id=%d", key.ID),
			CreatedAt: now,
		}); err != nil {
			return err
		}
		result = key
		return nil
	})
	if err != nil {
		if !errors.Is(err, domain.ErrDuplicateKey) {
			s.logger.Error("add key failed", "error", err)
		}
		return domain.Key{}, err
	}

	s.metrics.KeysAdded(1)
	return result, nil
}

// GenerateKeys creates count keys with gen and adds them, skipping values that
// already exist. It returns how many keys were actually added.
func (s *InventoryService) GenerateKeys(ctx context.Context, count int, gen keygen.Generator) (int, error) {
	if count <= 0 || count > MaxGenerateBatch {
		return 0, domain.ErrInvalidCount
	}

	values, err := keygen.Batch(gen, count)
	if err != nil {
		return 0, fmt.Errorf("generate keys: %w", err)
	}

	added := 0
	for _, value := range values {
		if _, err := s.AddKey(ctx, value); err != nil {
			if errors.Is(err, domain.ErrDuplicateKey) {
				continue
			}
			return added, err
		}
		added++
	}
	s.logger.Info("generated keys", "requested", count, "added", added)
	return added, nil
}

func (s *InventoryService) AvailableKeyCount(ctx context.Context) (int, error) {
	return s.repo.CountAvailableKeys(ctx)
}

// NextAvailableKey reports which key the next confirmation would issue. It
// does not reserve it.
func (s *InventoryService) NextAvailableKey(ctx context.Context) (domain.Key, error) {
	return s.repo.NextAvailableKey(ctx)
}

// ListKeys returns every key, most recently added first.
func (s *InventoryService) ListKeys(ctx context.Context) ([]domain.Key, error) {
	return s.repo.ListKeys(ctx)
}
