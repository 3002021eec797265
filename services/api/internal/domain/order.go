package domain

import "time"

type OrderStatus string

const (
	OrderStatusCreated   OrderStatus = "created"
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusRejected  OrderStatus = "rejected"
)

// IsTerminal reports whether no transition may leave the status.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusConfirmed || s == OrderStatusRejected
}

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusCreated, OrderStatusPending, OrderStatusConfirmed, OrderStatusRejected:
		return true
	}
	return false
}

// CanTransitionTo follows created -> pending -> {confirmed | rejected}, with
// created -> rejected also allowed.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	switch s {
	case OrderStatusCreated:
		return next == OrderStatusPending || next == OrderStatusRejected
	case OrderStatusPending:
		return next == OrderStatusConfirmed || next == OrderStatusRejected
	}
	return false
}

// Order is a buyer's request to purchase one key. KeyID is set iff the order
// is confirmed.
type Order struct {
	ID          int64
	UserID      int64
	Amount      int64
	Status      OrderStatus
	KeyID       *int64
	CreatedAt   time.Time
	ConfirmedAt *time.Time
}

// Purchase is the audit record appended once per confirmed order.
type Purchase struct {
	ID          int64
	UserID      int64
	OrderID     int64
	KeyID       int64
	KeyValue    string
	PurchasedAt time.Time
}
