package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"student-portal/internal/adapters/http/middleware"
	"student-portal/internal/adapters/http/routes"
	"student-portal/internal/adapters/mail"
	"student-portal/internal/adapters/persistence/models"
	"student-portal/internal/adapters/persistence/repositories"
	"student-portal/internal/config"
	"student-portal/internal/core/services"
	"student-portal/internal/pkg/logger"
	"student-portal/internal/pkg/metrics"
	"student-portal/internal/pkg/password"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	// Load configuration; missing store or mail settings fail here
	cfg, err := config.Load()
	if err != nil {
		logger.New(0, "text").Fatal("failed to load configuration", "error", err)
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Format)

	// run owns every deferred cleanup, so exit only after it returns
	if err := run(cfg, log); err != nil {
		log.Fatal("server exited", "error", err)
	}
}

// run wires the application and serves until shutdown
func run(cfg *config.Config, log *logger.Logger) error {
	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New("student_portal", reg)

	// Connect to database
	db := config.NewDatabase(cfg, log)
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Database.ConnectTimeout)
	gdb, err := db.DB(ctx)
	cancel()
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	// Auto migrate (creates tables if not exist)
	if err := models.AutoMigrate(gdb); err != nil {
		return fmt.Errorf("failed to auto migrate: %w", err)
	}
	log.Info("database migration completed")

	// Initialize repositories
	users := repositories.NewUserRepository(db)
	roster := repositories.NewRosterRepository(db)
	otps := repositories.NewOTPRepository(db)

	if cfg.OTP.Store == config.OTPStoreRedis {
		rdb, err := config.ConnectRedis(context.Background(), cfg)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		defer rdb.Close()
		otps = repositories.NewRedisOTPRepository(rdb, cfg.OTP.Retention)
		log.Info("otp store: redis")
	}

	hasher := password.NewHasher(password.DefaultCost)

	// Seed the bootstrap super admin
	if err := config.NewSeeder(users, hasher, cfg.SuperAdmin, log).Run(context.Background()); err != nil {
		log.Warn("seeding failed", "error", err)
	}

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "Student Portal API",
		ErrorHandler: middleware.CustomErrorHandler,
	})

	// Setup middlewares
	middleware.Setup(app, cfg)

	// Setup routes
	svc := routes.Setup(app, routes.Deps{
		Config: cfg,
		Users:  users,
		Roster: roster,
		OTPs:   otps,
		Mailer: mail.NewSMTPMailer(mail.Config{
			Host:     cfg.Mail.Host,
			Port:     cfg.Mail.Port,
			Username: cfg.Mail.Username,
			Password: cfg.Mail.Password,
			From:     cfg.Mail.From,
		}, log.With("component", "mail")),
		Hasher:   hasher,
		Health:   db,
		Logger:   log,
		Metrics:  m,
		Gatherer: reg,
	})

	// OTP cleanup sweep
	cronService := services.NewCronService(svc.OTP, cfg.OTP.CleanupSchedule, log.With("component", "cron"))
	if err := cronService.Start(); err != nil {
		return fmt.Errorf("failed to start cron: %w", err)
	}
	defer cronService.Stop()

	// Graceful shutdown
	go gracefulShutdown(app, log)

	// Start server; Listen returns once gracefulShutdown has drained it
	log.Info("server starting", "port", cfg.Port, "mode", cfg.AppMode)
	if err := app.Listen(":" + cfg.Port); err != nil {
		return fmt.Errorf("server stopped: %w", err)
	}
	return nil
}

// gracefulShutdown handles graceful shutdown
func gracefulShutdown(app *fiber.App, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Error("error during shutdown", "error", err)
	}
	log.Info("server stopped gracefully")
}
