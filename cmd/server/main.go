package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"kasa-backend/internal/admin"
	"kasa-backend/internal/audit"
	"kasa-backend/internal/auth"
	"kasa-backend/internal/cashflow"
	"kasa-backend/internal/cashregister"
	"kasa-backend/internal/cashregister/gormstore"
	"kasa-backend/internal/config"
	"kasa-backend/internal/dashboard"
	"kasa-backend/internal/database"
	"kasa-backend/internal/httpx"
	"kasa-backend/internal/logging"
	"kasa-backend/internal/models"
	"kasa-backend/internal/notify"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type notifier interface {
	notify.Publisher
	notify.Subscriber
}

func newNotifier(cfg *config.Config, logger *zap.Logger) (notifier, func(), error) {
	if cfg.RedisAddr == "" {
		logger.Info("session events stay in-process; set REDIS_ADDR to fan out across instances")
		return notify.NewHub(16), func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("ping redis: %w", err)
	}

	logger.Info("session events published through redis", zap.String("addr", cfg.RedisAddr))
	return notify.NewRedisPublisher(client, cfg.NotifyPrefix, logger), func() { _ = client.Close() }, nil
}

func main() {
	cfg, warnings, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	for _, w := range warnings {
		logger.Warn(w)
	}

	if err := database.Init(cfg, logger); err != nil {
		logger.Fatal("database init failed", zap.Error(err))
	}

	events, closeEvents, err := newNotifier(cfg, logger)
	if err != nil {
		logger.Fatal("notifier init failed", zap.Error(err))
	}
	defer closeEvents()

	svc := cashregister.NewService(gormstore.New(database.DB),
		cashregister.WithPublisher(events),
		cashregister.WithLogger(logger),
		cashregister.WithTxTimeout(cfg.TxTimeout),
	)

	app := fiber.New(fiber.Config{
		ErrorHandler: httpx.ErrorHandler(logger),
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(cfg.AllowedOrigins(), ","),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
	}))

	api := app.Group("/api")

	// Public auth
	api.Post("/auth/register-super-admin", auth.RegisterSuperAdminHandler(cfg))
	api.Post("/auth/login", auth.LoginHandler(cfg))

	// Protected
	protected := api.Group("")
	protected.Use(auth.JWTMiddleware(cfg))

	protected.Get("/auth/me", auth.MeHandler())

	// Super admin routes
	adminRoutes := protected.Group("/admin")
	adminRoutes.Use(auth.RequireRole(models.RoleSuperAdmin))

	adminRoutes.Post("/branches", admin.CreateBranchHandler())
	adminRoutes.Get("/branches", admin.ListBranchesHandler())
	adminRoutes.Get("/branches/:id", admin.GetBranchHandler())
	adminRoutes.Put("/branches/:id", admin.UpdateBranchHandler())
	adminRoutes.Delete("/branches/:id", admin.DeleteBranchHandler())
	adminRoutes.Post("/branches/:id/users", admin.CreateBranchUserHandler())
	adminRoutes.Get("/branches/:id/users", admin.ListBranchUsersHandler())

	// Registers
	managers := auth.RequireRole(models.RoleSuperAdmin, models.RoleBranchAdmin)
	protected.Post("/registers", managers, admin.CreateRegisterHandler(svc))
	protected.Get("/registers", admin.ListRegistersHandler(svc))
	protected.Put("/registers/:id/active", managers, admin.SetRegisterActiveHandler(svc))
	protected.Get("/registers/:id/open-session", admin.OpenSessionOfRegisterHandler(svc))

	// Sessions
	protected.Post("/sessions", cashflow.OpenSessionHandler(svc))
	protected.Get("/sessions", cashflow.ListSessionsHandler(svc))
	protected.Get("/sessions/:id/summary", cashflow.SessionSummaryHandler(svc))
	protected.Post("/sessions/:id/close", cashflow.CloseSessionHandler(svc))
	protected.Post("/sessions/:id/movements", cashflow.CreateMovementHandler(svc))
	protected.Get("/sessions/:id/movements", cashflow.ListMovementsHandler(svc))
	protected.Get("/sessions/:id/events", cashflow.SessionEventsHandler(svc, events, logger))

	// Payments
	protected.Post("/payments", cashflow.CreatePaymentHandler(svc))
	protected.Put("/payments/:id/status", cashflow.UpdatePaymentStatusHandler(svc))

	// Reports
	protected.Get("/reports/cash-differences", managers, dashboard.CashDifferencesHandler(svc))

	// Audit logs
	protected.Get("/audit-logs", managers, audit.ListAuditLogsHandler(svc.Repository()))

	go func() {
		addr := ":" + cfg.HTTPPort
		logger.Info("server starting", zap.String("addr", addr))
		if err := app.Listen(addr); err != nil {
			logger.Fatal("server stopped", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Error("shutdown failed", zap.Error(err))
	}
}
