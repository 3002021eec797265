package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/V1nSky/key-bot/services/api/internal/authz"
	"github.com/V1nSky/key-bot/services/api/internal/domain"
)

type UserService interface {
	Register(ctx context.Context, userID int64, username string) (bool, error)
}

type registerRequest struct {
	Username string `json:"username"`
}

type registerResponse struct {
	UserID  int64 `json:"user_id"`
	Created bool  `json:"created"`
}

type purchaseResponse struct {
	OrderID     int64     `json:"order_id"`
	Key         string    `json:"key"`
	PurchasedAt time.Time `json:"purchased_at"`
}

// HandleRegisterUser records the caller on first contact. The body is
// optional.
func HandleRegisterUser(users UserService, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}
		userID, ok := actorID(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, codeUnauthorized, "missing or invalid "+userIDHeader)
			return
		}

		var req registerRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		created, err := users.Register(r.Context(), userID, req.Username)
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		status := http.StatusOK
		if created {
			status = http.StatusCreated
		}
		writeJSON(w, status, registerResponse{UserID: userID, Created: created})
	}
}

// HandleUserPurchases serves GET /users/{id}/purchases.
func HandleUserPurchases(orders OrderService, az Authorizer, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		parts := splitPath(r.URL.Path)
		if len(parts) != 3 || parts[0] != "users" || parts[2] != "purchases" {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}
		userID, ok := parseID(parts[1])
		if !ok {
			writeError(w, http.StatusBadRequest, codeInvalidID, domain.ErrInvalidID.Error())
			return
		}
		if _, ok := authorize(w, r, az, authz.ActionReadPurchases, authz.UserResource(userID)); !ok {
			return
		}

		purchases, err := orders.UserPurchases(r.Context(), userID)
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		resp := make([]purchaseResponse, 0, len(purchases))
		for _, p := range purchases {
			resp = append(resp, purchaseResponse{OrderID: p.OrderID, Key: p.KeyValue, PurchasedAt: p.PurchasedAt})
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
