package domain

import "time"

// Key is a redeemable license key. Once Used is set it is never reassigned.
type Key struct {
	ID        int64
	Value     string
	Used      bool
	CreatedAt time.Time
}
