package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound is the root of every lookup miss; match with errors.Is.
var ErrNotFound = errors.New("not found")

var (
	ErrOrderNotFound         = fmt.Errorf("order %w", ErrNotFound)
	ErrKeyNotFound           = fmt.Errorf("key %w", ErrNotFound)
	ErrDuplicateKey          = errors.New("key already exists")
	ErrOrderAlreadyConfirmed = errors.New("order already confirmed")
	ErrNoKeyAvailable        = errors.New("no key available")
	ErrInvalidTransition     = errors.New("invalid order status transition")
	ErrInvalidAmount         = errors.New("invalid amount")
	ErrInvalidKeyValue       = errors.New("invalid key value")
	ErrInvalidCount          = errors.New("invalid count")
	ErrInvalidID             = errors.New("invalid id")
)
