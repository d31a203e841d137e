package routes

import (
	"student-portal/internal/adapters/http/handlers"
	"student-portal/internal/adapters/http/middleware"
	"student-portal/internal/adapters/persistence/repositories"
	"student-portal/internal/config"
	"student-portal/internal/core/services"
	"student-portal/internal/pkg/logger"
	"student-portal/internal/pkg/metrics"
	"student-portal/internal/pkg/password"
	"student-portal/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Deps are the collaborators the route table is built from
type Deps struct {
	Config *config.Config

	Users  repositories.UserRepository
	Roster repositories.RosterRepository
	OTPs   repositories.OTPRepository
	Mailer services.Mailer
	Hasher *password.Hasher
	Health handlers.HealthChecker

	Logger   *logger.Logger
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer

	// Clock overrides time.Now for services (tests)
	Clock services.Clock
}

// Services are the wired core services
type Services struct {
	Credentials  *services.CredentialService
	Roster       *services.RosterService
	OTP          *services.OTPService
	Sessions     *services.SessionService
	RoleAdmin    *services.RoleAdminService
	Registration *services.RegistrationService
}

// NewServices builds the core services from deps
func NewServices(d Deps) *Services {
	cfg := d.Config

	credentials := services.NewCredentialService(d.Users, d.Hasher, d.Logger)
	roster := services.NewRosterService(d.Roster, d.Logger, d.Metrics)
	otp := services.NewOTPService(d.OTPs, d.Mailer, services.OTPOptions{
		Length:         cfg.OTP.Length,
		TTL:            cfg.OTP.TTL,
		MaxAttempts:    cfg.OTP.MaxAttempts,
		ResendCooldown: cfg.OTP.ResendCooldown,
		VerifiedWindow: cfg.OTP.VerifiedWindow,
		Retention:      cfg.OTP.Retention,
		Now:            d.Clock,
	}, d.Logger.With("component", "otp"), d.Metrics)
	sessions := services.NewSessionService(credentials, services.SessionOptions{
		Secret: cfg.Session.Secret,
		TTL:    cfg.Session.TTL,
		Now:    d.Clock,
	}, d.Logger.With("component", "session"), d.Metrics)

	return &Services{
		Credentials: credentials,
		Roster:      roster,
		OTP:         otp,
		Sessions:    sessions,
		RoleAdmin:   services.NewRoleAdminService(d.Users, d.Logger.With("component", "role_admin"), d.Metrics),
		Registration: services.NewRegistrationService(credentials, roster, otp, services.RegistrationOptions{
			RequireRosterMatch: cfg.Registration.RequireRosterMatch,
			RequireOTP:         cfg.Registration.RequireOTP,
		}, d.Logger.With("component", "registration"), d.Metrics),
	}
}

// Setup configures all routes for the application and returns the services
// so background jobs can share them
func Setup(app *fiber.App, d Deps) *Services {
	cfg := d.Config
	svc := NewServices(d)

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(d.Health, cfg.AppMode)
	authHandler := handlers.NewAuthHandler(svc.Registration, svc.Credentials, svc.Roster, svc.OTP, svc.Sessions, handlers.CookieOptions{
		Name:     cfg.Session.CookieName,
		Secure:   cfg.Cookie.Secure,
		SameSite: cfg.Cookie.SameSite,
		Domain:   cfg.Cookie.Domain,
	})
	adminHandler := handlers.NewAdminHandler(svc.RoleAdmin, svc.Roster)
	portalHandler := handlers.NewPortalHandler(cfg.Gate.CallbackParam)

	requireSession := middleware.RequireSession(svc.Sessions, cfg.Session.CookieName)

	app.Use(middleware.Metrics(d.Metrics))

	// Edge gate runs before every page handler
	app.Use(middleware.AccessGate(middleware.GatePolicy{
		LoginPath:         cfg.Gate.LoginPath,
		LandingPath:       cfg.Gate.LandingPath,
		ProtectedPrefixes: cfg.Gate.ProtectedPrefixes,
		CallbackParam:     cfg.Gate.CallbackParam,
	}, cfg.Session.CookieName))

	// Health check & root routes
	app.Get("/", healthHandler.Root)
	app.Get("/health", healthHandler.HealthCheck)
	if d.Gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	setupAuthRoutes(app.Group("/auth", middleware.NoCacheHeaders()), authHandler, requireSession, cfg)
	setupAdminRoutes(app.Group("/admin", middleware.NoCacheHeaders(), requireSession), adminHandler)

	// Pages
	app.Get(cfg.Gate.LoginPath, portalHandler.LoginPage)
	app.Get(cfg.Gate.LandingPath, requireSession, portalHandler.Landing)
	app.Get(cfg.Gate.LandingPath+"/me", requireSession, portalHandler.Me)

	// 404
	app.Use(func(c *fiber.Ctx) error {
		return response.NotFound(c, "Route not found")
	})

	return svc
}

// setupAuthRoutes configures authentication routes
func setupAuthRoutes(router fiber.Router, h *handlers.AuthHandler, requireSession fiber.Handler, cfg *config.Config) {
	authLimit, strictLimit := passThrough, passThrough
	if cfg.RateLimit {
		authLimit, strictLimit = middleware.AuthRateLimiter(), middleware.StrictRateLimiter()
	}

	// Public routes
	router.Post("/register", authLimit, h.Register)
	router.Post("/login", authLimit, h.Login)
	router.Post("/logout", h.Logout)
	router.Post("/send-otp", strictLimit, h.SendOTP)
	router.Post("/verify-otp", strictLimit, h.VerifyOTP)
	router.Post("/verify-membership", h.VerifyMembership)
	router.Post("/verify-studentship", h.VerifyStudentship)
	router.Post("/check-status", h.CheckStatus)

	// Protected routes
	router.Get("/session", requireSession, h.Session)
}

// setupAdminRoutes configures admin routes (session already required)
func setupAdminRoutes(router fiber.Router, h *handlers.AdminHandler) {
	router.Get("/users", middleware.AdminOrSuperAdmin(), h.ListUsers)

	superAdmin := middleware.SuperAdminOnly()
	router.Patch("/users/promote", superAdmin, h.Promote)
	router.Patch("/users/demote", superAdmin, h.Demote)
	router.Patch("/users/status", superAdmin, h.SetStatus)
	router.Post("/roster/reconcile", superAdmin, h.ReconcileRoster)
}

func passThrough(c *fiber.Ctx) error {
	return c.Next()
}
