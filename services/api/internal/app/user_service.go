package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/V1nSky/key-bot/services/api/internal/clock"
	"github.com/V1nSky/key-bot/services/api/internal/domain"
)

type UserRepository interface {
	TxRunner
	EnsureUser(ctx context.Context, user domain.User) (bool, error)
	AppendActivity(ctx context.Context, activity domain.Activity) error
}

type UserService struct {
	repo  UserRepository
	clock clock.Clock
	options
}

func NewUserService(repo UserRepository, clk clock.Clock, opts ...Option) *UserService {
	return &UserService{
		repo:    repo,
		clock:   clk,
		options: buildOptions(opts),
	}
}

// Register records a user on first contact. Repeated calls are harmless and
// report created=false.
func (s *UserService) Register(ctx context.Context, userID int64, username string) (bool, error) {
	if userID <= 0 {
		return false, domain.ErrInvalidID
	}

	now := s.clock.Now()
	username = strings.TrimSpace(username)
	var created bool

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		var err error
		created, err = s.repo.EnsureUser(txCtx, domain.User{ID: userID, Username: username, CreatedAt: now})
		if err != nil || !created {
			return err
		}
		return s.repo.AppendActivity(txCtx, domain.Activity{
			UserID:    &userID,
			Action:    domain.ActionUserRegistered,
			Details:   fmt.Sprintf("username=%s", username),
			CreatedAt: now,
		})
	})
	if err != nil {
		s.logger.Error("register user failed", "user_id", userID, "error", err)
		return false, err
	}
	return created, nil
}
