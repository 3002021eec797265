package http

import (
	"log/slog"
	"net/http"

	"github.com/V1nSky/key-bot/services/api/internal/metrics"
)

// Services bundles what the router dispatches to.
type Services struct {
	Orders     OrderService
	Allocation AllocationService
	Inventory  InventoryService
	Users      UserService
	Admin      AdminService
	Authorizer Authorizer
	Storage    Pinger
}

// RouterConfig holds the request-independent settings of the API.
type RouterConfig struct {
	Price       int64
	CORSOrigins []string
	Metrics     *metrics.Metrics
	Logger      *slog.Logger
}

// NewRouter wires every route, wrapped in CORS and request logging.
func NewRouter(svc Services, cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	m := cfg.Metrics
	az := svc.Authorizer

	mux := http.NewServeMux()
	handle := func(pattern, name string, h http.Handler) {
		mux.Handle(pattern, m.Instrument(name, h))
	}

	mux.HandleFunc("/health", HealthHandler(svc.Storage))
	mux.Handle("/metrics", m.Handler())

	handle("/users", "register_user", HandleRegisterUser(svc.Users, logger))
	handle("/users/", "user_purchases", HandleUserPurchases(svc.Orders, az, logger))

	handle("/orders", "create_order", HandleCreateOrder(svc.Orders, svc.Inventory, az, cfg.Price, logger))
	handle("/orders/", "order", HandleOrder(svc.Orders, svc.Allocation, az, logger))

	handle("/keys", "keys", HandleKeys(svc.Inventory, az, logger))
	handle("/keys/available", "available_keys", HandleAvailableKeys(svc.Inventory, az, logger))
	handle("/keys/generate", "generate_keys", HandleGenerateKeys(svc.Inventory, az, logger))

	handle("/admin/stats", "admin_stats", HandleAdminStats(svc.Admin, az, logger))
	handle("/admin/activity", "admin_activity", HandleAdminActivity(svc.Admin, az, logger))

	mux.Handle("/", NotFoundHandler())

	return RequestLogger(CORS(cfg.CORSOrigins, mux), logger)
}
