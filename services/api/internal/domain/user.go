package domain

import "time"

type User struct {
	ID        int64
	Username  string
	CreatedAt time.Time
}

// Activity is one entry of the append-only action log.
type Activity struct {
	ID        int64
	UserID    *int64
	Action    string
	Details   string
	CreatedAt time.Time
}

const (
	ActionUserRegistered     = "user_registered"
	ActionKeyAdded           = "key_added"
	ActionOrderCreated       = "order_created"
	ActionOrderStatusUpdated = "order_status_updated"
	ActionOrderConfirmed     = "order_confirmed"
)

type Stats struct {
	TotalUsers    int
	TotalSales    int
	TotalRevenue  int64
	AvailableKeys int
	PendingOrders int
}
