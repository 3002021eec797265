package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/V1nSky/key-bot/services/api/internal/app"
	"github.com/V1nSky/key-bot/services/api/internal/authz"
	"github.com/V1nSky/key-bot/services/api/internal/clock"
	"github.com/V1nSky/key-bot/services/api/internal/metrics"
	"github.com/V1nSky/key-bot/services/api/internal/notify"
	transporthttp "github.com/V1nSky/key-bot/services/api/internal/transport/http"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.serve(cmd.Context())
		},
	}
}

// services is the application layer built over one store.
type services struct {
	orders     *app.OrderService
	allocation *app.AllocationService
	inventory  *app.InventoryService
	users      *app.UserService
	admin      *app.AdminService
}

func (c *cli) newServices(st *store, m *metrics.Metrics) services {
	clk := clock.NewSystem()

	var notifier app.Notifier = notify.Log{Logger: c.logger}
	if c.cfg.NotifyWebhookURL != "" {
		notifier = notify.Multi{notifier, notify.NewWebhook(c.cfg.NotifyWebhookURL, c.cfg.NotifyTimeout)}
	}
	opts := []app.Option{app.WithLogger(c.logger), app.WithMetrics(m), app.WithNotifier(notifier)}

	return services{
		orders:     app.NewOrderService(st.orders, clk, opts...),
		allocation: app.NewAllocationService(st.orders, clk, opts...),
		inventory:  app.NewInventoryService(st.keys, clk, opts...),
		users:      app.NewUserService(st.users, clk, opts...),
		admin:      app.NewAdminService(st.admin, opts...),
	}
}

func (c *cli) serve(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := c.logger

	st, err := openStore(ctx, c.cfg, true)
	if err != nil {
		return err
	}
	defer st.Close()

	az, err := authz.New(c.cfg.AdminIDs, logger)
	if err != nil {
		return err
	}
	if len(c.cfg.AdminIDs) == 0 {
		logger.Warn("ADMIN_IDS not set, nobody can confirm orders")
	}

	m := metrics.New()
	m.RegisterRuntime()
	svc := c.newServices(st, m)

	handler := transporthttp.NewRouter(transporthttp.Services{
		Orders:     svc.orders,
		Allocation: svc.allocation,
		Inventory:  svc.inventory,
		Users:      svc.users,
		Admin:      svc.admin,
		Authorizer: az,
		Storage:    st,
	}, transporthttp.RouterConfig{
		Price:       c.cfg.Price,
		CORSOrigins: c.cfg.CORSOrigins,
		Metrics:     m,
		Logger:      logger,
	})

	server := &http.Server{
		Addr:              ":" + c.cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("api listening", "port", c.cfg.Port, "backend", st.kind, "price", c.cfg.Price)

	srvErr := make(chan error, 1)
	go func() {
		srvErr <- server.ListenAndServe()
	}()

	stopCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			return err
		}
	case <-stopCtx.Done():
		logger.Info("shutdown signal received, stopping server")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server shutdown error", "error", err)
	}
	if err := svc.allocation.Drain(shutdownCtx); err != nil {
		logger.Warn("notifications still in flight at shutdown", "error", err)
	}
	logger.Info("server stopped")
	return nil
}
