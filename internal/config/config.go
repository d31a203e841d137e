package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// OTP store drivers
const (
	OTPStoreDatabase = "database"
	OTPStoreRedis    = "redis"
)

// MaxOTPAttempts is the hard ceiling on failed attempts per code
const MaxOTPAttempts = 5

// Config holds all configuration for the application
type Config struct {
	AppMode        string `env:"APP_MODE" envDefault:"dev"`
	Port           string `env:"PORT" envDefault:"3000"`
	AllowedOrigins string `env:"ALLOWED_ORIGINS"`
	RateLimit      bool   `env:"RATE_LIMIT_ENABLED" envDefault:"true"`

	Log          LogConfig          `envPrefix:"LOG_"`
	Database     DatabaseConfig     `envPrefix:"DB_"`
	Redis        RedisConfig        `envPrefix:"REDIS_"`
	Session      SessionConfig      `envPrefix:"SESSION_"`
	Cookie       CookieConfig       `envPrefix:"COOKIE_"`
	OTP          OTPConfig          `envPrefix:"OTP_"`
	Mail         MailConfig
	Registration RegistrationConfig `envPrefix:"REGISTRATION_"`
	Gate         GateConfig         `envPrefix:"GATE_"`
	SuperAdmin   SuperAdminConfig   `envPrefix:"SUPERADMIN_"`
}

// LogConfig holds logger configuration
type LogConfig struct {
	Level  int    `env:"LEVEL" envDefault:"0"`
	Format string `env:"FORMAT" envDefault:"text"`
}

// DatabaseConfig holds record store configuration
type DatabaseConfig struct {
	DSN            string        `env:"DSN,required,notEmpty"`
	ConnectTimeout time.Duration `env:"CONNECT_TIMEOUT" envDefault:"10s"`
	MaxIdleConns   int           `env:"MAX_IDLE_CONNS" envDefault:"10"`
	MaxOpenConns   int           `env:"MAX_OPEN_CONNS" envDefault:"100"`
	ConnMaxLife    time.Duration `env:"CONN_MAX_LIFETIME" envDefault:"1h"`
}

// RedisConfig holds Redis configuration (OTP_STORE=redis only)
type RedisConfig struct {
	URL string `env:"URL"`
}

// SessionConfig holds session token configuration
type SessionConfig struct {
	Secret     string        `env:"SECRET,required,notEmpty"`
	TTL        time.Duration `env:"TTL" envDefault:"30m"`
	CookieName string        `env:"COOKIE" envDefault:"session_token"`
}

// CookieConfig holds cookie configuration
type CookieConfig struct {
	Secure   bool   `env:"SECURE" envDefault:"false"`
	SameSite string `env:"SAMESITE" envDefault:"lax"`
	Domain   string `env:"DOMAIN"`
}

// OTPConfig holds one-time code configuration
type OTPConfig struct {
	Store           string        `env:"STORE" envDefault:"database"`
	Length          int           `env:"LENGTH" envDefault:"6"`
	TTL             time.Duration `env:"TTL" envDefault:"10m"`
	MaxAttempts     int           `env:"MAX_ATTEMPTS" envDefault:"5"`
	ResendCooldown  time.Duration `env:"RESEND_COOLDOWN" envDefault:"60s"`
	VerifiedWindow  time.Duration `env:"VERIFIED_WINDOW" envDefault:"30m"`
	Retention       time.Duration `env:"RETENTION" envDefault:"24h"`
	CleanupSchedule string        `env:"CLEANUP_SCHEDULE" envDefault:"@every 5m"`
}

// MailConfig holds outbound email configuration
type MailConfig struct {
	Host     string `env:"SMTP_HOST,required,notEmpty"`
	Port     int    `env:"SMTP_PORT,required"`
	Username string `env:"SMTP_USERNAME,required,notEmpty"`
	Password string `env:"SMTP_PASSWORD,required,notEmpty"`
	From     string `env:"MAIL_FROM,required,notEmpty"`
}

// RegistrationConfig holds registration policy
type RegistrationConfig struct {
	RequireRosterMatch bool `env:"REQUIRE_ROSTER_MATCH" envDefault:"true"`
	RequireOTP         bool `env:"REQUIRE_OTP" envDefault:"true"`
}

// GateConfig holds the edge access gate policy
type GateConfig struct {
	LoginPath         string   `env:"LOGIN_PATH" envDefault:"/login"`
	LandingPath       string   `env:"LANDING_PATH" envDefault:"/portal"`
	ProtectedPrefixes []string `env:"PROTECTED_PREFIXES" envSeparator:"," envDefault:"/portal"`
	CallbackParam     string   `env:"CALLBACK_PARAM" envDefault:"callbackUrl"`
}

// SuperAdminConfig seeds the first super admin when set
type SuperAdminConfig struct {
	Email    string `env:"EMAIL"`
	Password string `env:"PASSWORD"`
	Name     string `env:"NAME" envDefault:"Super Admin"`
	Matric   string `env:"MATRIC" envDefault:"SUPERADMIN"`
}

// Load reads configuration from .env file and environment variables
func Load() (*Config, error) {
	// Load .env file (ignore error if file doesn't exist in production)
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using environment variables")
	}
	return Parse()
}

// Parse builds the config from the process environment and validates it
func Parse() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.AppMode = strings.TrimSpace(cfg.AppMode)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field rules the struct tags cannot express
func (c *Config) Validate() error {
	var errs []error

	if c.AppMode != "dev" && c.AppMode != "prod" {
		errs = append(errs, fmt.Errorf("invalid APP_MODE: '%s' (must be 'dev' or 'prod')", c.AppMode))
	}
	if c.IsProd() && len(c.Session.Secret) < 32 {
		errs = append(errs, errors.New("SESSION_SECRET must be at least 32 bytes in prod"))
	}
	if c.Session.TTL <= 0 {
		errs = append(errs, errors.New("SESSION_TTL must be positive"))
	}

	switch c.OTP.Store {
	case OTPStoreDatabase:
	case OTPStoreRedis:
		if c.Redis.URL == "" {
			errs = append(errs, errors.New("REDIS_URL is required when OTP_STORE=redis"))
		}
	default:
		errs = append(errs, fmt.Errorf("invalid OTP_STORE: '%s' (must be 'database' or 'redis')", c.OTP.Store))
	}
	if c.OTP.MaxAttempts < 1 || c.OTP.MaxAttempts > MaxOTPAttempts {
		errs = append(errs, fmt.Errorf("OTP_MAX_ATTEMPTS must be between 1 and %d", MaxOTPAttempts))
	}
	if c.OTP.Length < 4 || c.OTP.Length > 10 {
		errs = append(errs, errors.New("OTP_LENGTH must be between 4 and 10"))
	}
	if c.OTP.TTL <= 0 {
		errs = append(errs, errors.New("OTP_TTL must be positive"))
	}

	if !strings.HasPrefix(c.Gate.LoginPath, "/") || !strings.HasPrefix(c.Gate.LandingPath, "/") {
		errs = append(errs, errors.New("GATE_LOGIN_PATH and GATE_LANDING_PATH must be absolute paths"))
	}

	if (c.SuperAdmin.Email == "") != (c.SuperAdmin.Password == "") {
		errs = append(errs, errors.New("SUPERADMIN_EMAIL and SUPERADMIN_PASSWORD must be set together"))
	}

	return errors.Join(errs...)
}

// IsDev returns true if running in development mode
func (c *Config) IsDev() bool {
	return c.AppMode == "dev"
}

// IsProd returns true if running in production mode
func (c *Config) IsProd() bool {
	return c.AppMode == "prod"
}

// GetAllowedOrigins returns allowed origins for CORS
func (c *Config) GetAllowedOrigins() string {
	if c.AllowedOrigins == "" {
		if c.IsDev() {
			return "*"
		}
		return "https://portal.example.edu"
	}
	return c.AllowedOrigins
}
