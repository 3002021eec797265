package http

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/V1nSky/key-bot/services/api/internal/authz"
	"github.com/V1nSky/key-bot/services/api/internal/domain"
)

type AdminService interface {
	Stats(ctx context.Context) (domain.Stats, error)
	RecentActivity(ctx context.Context, limit int) ([]domain.Activity, error)
}

type statsResponse struct {
	TotalUsers    int   `json:"total_users"`
	TotalSales    int   `json:"total_sales"`
	TotalRevenue  int64 `json:"total_revenue"`
	AvailableKeys int   `json:"available_keys"`
	PendingOrders int   `json:"pending_orders"`
}

type activityResponse struct {
	ID        int64     `json:"id"`
	UserID    *int64    `json:"user_id,omitempty"`
	Action    string    `json:"action"`
	Details   string    `json:"details,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func HandleAdminStats(admin AdminService, az Authorizer, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}
		if _, ok := authorize(w, r, az, authz.ActionReadStats, authz.ShopResource()); !ok {
			return
		}
		stats, err := admin.Stats(r.Context())
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, statsResponse{
			TotalUsers:    stats.TotalUsers,
			TotalSales:    stats.TotalSales,
			TotalRevenue:  stats.TotalRevenue,
			AvailableKeys: stats.AvailableKeys,
			PendingOrders: stats.PendingOrders,
		})
	}
}

// HandleAdminActivity serves GET /admin/activity?limit=N.
func HandleAdminActivity(admin AdminService, az Authorizer, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}
		if _, ok := authorize(w, r, az, authz.ActionReadStats, authz.ShopResource()); !ok {
			return
		}

		limit := 0
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 0 {
				writeError(w, http.StatusBadRequest, codeInvalidLimit, "limit must be a non-negative integer")
				return
			}
			limit = n
		}

		entries, err := admin.RecentActivity(r.Context(), limit)
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		resp := make([]activityResponse, 0, len(entries))
		for _, a := range entries {
			resp = append(resp, activityResponse{
				ID:        a.ID,
				UserID:    a.UserID,
				Action:    a.Action,
				Details:   a.Details,
				CreatedAt: a.CreatedAt,
			})
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
