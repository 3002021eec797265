package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/V1nSky/key-bot/services/api/internal/app"
	"github.com/V1nSky/key-bot/services/api/internal/authz"
	"github.com/V1nSky/key-bot/services/api/internal/domain"
)

// OrderService is the minimal interface needed for order endpoints.
type OrderService interface {
	CreateOrder(ctx context.Context, in app.CreateOrderInput) (domain.Order, error)
	GetOrder(ctx context.Context, orderID int64) (domain.Order, error)
	PendingOrders(ctx context.Context) ([]domain.Order, error)
	UserPurchases(ctx context.Context, userID int64) ([]domain.Purchase, error)
}

// AllocationService performs order status transitions.
type AllocationService interface {
	Confirm(ctx context.Context, orderID int64) (app.ConfirmResult, error)
	Reject(ctx context.Context, orderID int64) (domain.Order, error)
	MarkPending(ctx context.Context, orderID int64) (domain.Order, error)
}

// StockCounter reports how many keys are for sale.
type StockCounter interface {
	AvailableKeyCount(ctx context.Context) (int, error)
}

type orderResponse struct {
	ID          int64      `json:"id"`
	UserID      int64      `json:"user_id"`
	Amount      int64      `json:"amount"`
	Status      string     `json:"status"`
	KeyID       *int64     `json:"key_id,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	ConfirmedAt *time.Time `json:"confirmed_at,omitempty"`
}

func newOrderResponse(o domain.Order) orderResponse {
	return orderResponse{
		ID:          o.ID,
		UserID:      o.UserID,
		Amount:      o.Amount,
		Status:      string(o.Status),
		KeyID:       o.KeyID,
		CreatedAt:   o.CreatedAt,
		ConfirmedAt: o.ConfirmedAt,
	}
}

type confirmResponse struct {
	OrderID     int64     `json:"order_id"`
	UserID      int64     `json:"user_id"`
	Status      string    `json:"status"`
	Key         string    `json:"key"`
	ConfirmedAt time.Time `json:"confirmed_at"`
}

// HandleCreateOrder opens an order for the caller at the configured price.
// It refuses when the inventory is empty so buyers are not asked to pay for
// a key that cannot be delivered.
func HandleCreateOrder(orders OrderService, stock StockCounter, az Authorizer, price int64, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}
		p, ok := authorize(w, r, az, authz.ActionCreateOrder, authz.ShopResource())
		if !ok {
			return
		}

		available, err := stock.AvailableKeyCount(r.Context())
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		if available == 0 {
			writeError(w, http.StatusConflict, codeNoKeysAvailable, "no keys available, try again later")
			return
		}

		order, err := orders.CreateOrder(r.Context(), app.CreateOrderInput{UserID: p.UserID, Amount: price})
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, newOrderResponse(order))
	}
}

// HandleOrder serves the /orders/ subtree: GET /orders/pending,
// GET /orders/{id} and POST /orders/{id}/{paid,confirm,reject}.
func HandleOrder(orders OrderService, engine AllocationService, az Authorizer, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		parts := splitPath(r.URL.Path)
		if len(parts) < 2 || len(parts) > 3 || parts[0] != "orders" {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}

		if len(parts) == 2 && parts[1] == "pending" {
			handlePendingOrders(w, r, orders, az, logger)
			return
		}

		orderID, ok := parseID(parts[1])
		if !ok {
			writeError(w, http.StatusBadRequest, codeInvalidID, domain.ErrInvalidID.Error())
			return
		}

		if len(parts) == 2 {
			if r.Method != http.MethodGet {
				writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
				return
			}
			handleGetOrder(w, r, orders, az, orderID, logger)
			return
		}

		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}
		switch parts[2] {
		case "paid":
			handleMarkPaid(w, r, orders, engine, az, orderID, logger)
		case "confirm":
			handleConfirm(w, r, engine, az, orderID, logger)
		case "reject":
			handleReject(w, r, engine, az, orderID, logger)
		default:
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
		}
	}
}

func handlePendingOrders(w http.ResponseWriter, r *http.Request, orders OrderService, az Authorizer, logger *slog.Logger) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
		return
	}
	if _, ok := authorize(w, r, az, authz.ActionListPending, authz.ShopResource()); !ok {
		return
	}

	pending, err := orders.PendingOrders(r.Context())
	if err != nil {
		writeServiceError(w, r, logger, err)
		return
	}
	resp := make([]orderResponse, 0, len(pending))
	for _, o := range pending {
		resp = append(resp, newOrderResponse(o))
	}
	writeJSON(w, http.StatusOK, resp)
}

func handleGetOrder(w http.ResponseWriter, r *http.Request, orders OrderService, az Authorizer, orderID int64, logger *slog.Logger) {
	if _, ok := actorID(r); !ok {
		writeError(w, http.StatusUnauthorized, codeUnauthorized, "missing or invalid "+userIDHeader)
		return
	}
	order, err := orders.GetOrder(r.Context(), orderID)
	if err != nil {
		writeServiceError(w, r, logger, err)
		return
	}
	if _, ok := authorize(w, r, az, authz.ActionReadOrder, authz.OrderResource(order.ID, order.UserID)); !ok {
		return
	}
	writeJSON(w, http.StatusOK, newOrderResponse(order))
}

func handleMarkPaid(w http.ResponseWriter, r *http.Request, orders OrderService, engine AllocationService, az Authorizer, orderID int64, logger *slog.Logger) {
	if _, ok := actorID(r); !ok {
		writeError(w, http.StatusUnauthorized, codeUnauthorized, "missing or invalid "+userIDHeader)
		return
	}
	order, err := orders.GetOrder(r.Context(), orderID)
	if err != nil {
		writeServiceError(w, r, logger, err)
		return
	}
	if _, ok := authorize(w, r, az, authz.ActionMarkPaid, authz.OrderResource(order.ID, order.UserID)); !ok {
		return
	}

	order, err = engine.MarkPending(r.Context(), orderID)
	if err != nil {
		writeServiceError(w, r, logger, err)
		return
	}
	writeJSON(w, http.StatusOK, newOrderResponse(order))
}

func handleConfirm(w http.ResponseWriter, r *http.Request, engine AllocationService, az Authorizer, orderID int64, logger *slog.Logger) {
	if _, ok := authorize(w, r, az, authz.ActionConfirmOrder, authz.OrderResource(orderID, 0)); !ok {
		return
	}

	res, err := engine.Confirm(r.Context(), orderID)
	if err != nil {
		writeServiceError(w, r, logger, err)
		return
	}

	var confirmedAt time.Time
	if res.Order.ConfirmedAt != nil {
		confirmedAt = *res.Order.ConfirmedAt
	}
	writeJSON(w, http.StatusOK, confirmResponse{
		OrderID:     res.Order.ID,
		UserID:      res.Order.UserID,
		Status:      string(res.Order.Status),
		Key:         res.Key.Value,
		ConfirmedAt: confirmedAt,
	})
}

func handleReject(w http.ResponseWriter, r *http.Request, engine AllocationService, az Authorizer, orderID int64, logger *slog.Logger) {
	if _, ok := authorize(w, r, az, authz.ActionRejectOrder, authz.OrderResource(orderID, 0)); !ok {
		return
	}

	order, err := engine.Reject(r.Context(), orderID)
	if err != nil {
		writeServiceError(w, r, logger, err)
		return
	}
	writeJSON(w, http.StatusOK, newOrderResponse(order))
}
