package config // package config loads application configuration from environment variables

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// devJWTSecret is only ever used outside production so local runs work
// without a populated .env file.
const devJWTSecret = "ecowaste-dev-secret-do-not-use-in-production"

// ErrMissingSecret is returned by Load when a production deployment has no
// JWT_SECRET configured.
var ErrMissingSecret = errors.New("JWT_SECRET must be set in production")

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.
type Config struct {
	Env    string // application environment (development, test, production)
	Port   string // HTTP port to listen on
	DBUser string // database username
	DBPass string // database password (optional)
	DBHost string // database host address
	DBPort string // database port number
	DBName string // database name

	JWTSecret        string        // secret used to sign session tokens
	JWTSecretDefault bool          // true when the development fallback secret is in use
	SessionTTL       time.Duration // lifetime of the auth-token cookie and its JWT
	BcryptCost       int           // bcrypt cost for password hashing
	CookieSecure     bool          // mark the session cookie Secure

	BaseURL              string        // public URL used for links inside outbound emails
	EmailVerificationTTL time.Duration // how long a verification link stays redeemable
	PasswordResetTTL     time.Duration // how long a password reset link stays redeemable

	SMTP        SMTPConfig
	RabbitMQURL string // empty disables the email queue; mail is then sent inline
}

// SMTPConfig describes the outbound mail relay.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// IsProduction reports whether the environment name denotes a production deployment.
func (c Config) IsProduction() bool {
	switch strings.ToLower(c.Env) {
	case "production", "prod":
		return true
	}
	return false
}

// Load reads configuration values from environment variables.  Missing
// database settings fall back to local defaults.  A production environment
// without JWT_SECRET is a hard error.
func Load() (Config, error) {
	cfg := Config{
		Env:    envStr("APP_ENV", "development"),
		Port:   envStr("APP_PORT", "8080"),
		DBUser: envStr("DB_USER", "root"),
		DBPass: os.Getenv("DB_PASS"),
		DBHost: envStr("DB_HOST", "127.0.0.1"),
		DBPort: envStr("DB_PORT", "3306"),
		DBName: envStr("DB_NAME", "waste_platform"),

		JWTSecret:    os.Getenv("JWT_SECRET"),
		SessionTTL:   envDur("SESSION_TTL", 7*24*time.Hour),
		BcryptCost:   envInt("BCRYPT_COST", 12),
		CookieSecure: envBool("COOKIE_SECURE", false),

		BaseURL:              strings.TrimRight(envStr("BASE_URL", "http://localhost:3000"), "/"),
		EmailVerificationTTL: envDur("EMAIL_VERIFICATION_TTL", 24*time.Hour),
		PasswordResetTTL:     envDur("PASSWORD_RESET_TTL", time.Hour),

		SMTP: SMTPConfig{
			Host:     envStr("SMTP_HOST", "smtp.gmail.com"),
			Port:     envInt("SMTP_PORT", 587),
			Username: os.Getenv("SMTP_USER"),
			Password: os.Getenv("SMTP_PASS"),
			From:     envStr("FROM_EMAIL", "noreply@ecowastecert.com"),
		},
		RabbitMQURL: firstNonEmpty(os.Getenv("RABBITMQ_URL"), os.Getenv("AMQP_URL")),
	}
	if cfg.IsProduction() {
		cfg.CookieSecure = true
	}
	if cfg.JWTSecret == "" {
		if cfg.IsProduction() {
			return Config{}, ErrMissingSecret
		}
		cfg.JWTSecret = devJWTSecret
		cfg.JWTSecretDefault = true
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		return Config{}, fmt.Errorf("invalid BCRYPT_COST: %d", cfg.BcryptCost)
	}
	if cfg.SessionTTL <= 0 {
		return Config{}, fmt.Errorf("invalid SESSION_TTL: %s", cfg.SessionTTL)
	}
	return cfg, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func envStr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func envBool(k string, d bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	switch v {
	case "1", "true", "TRUE", "True", "yes", "YES", "on", "ON":
		return true
	case "0", "false", "FALSE", "False", "no", "NO", "off", "OFF":
		return false
	}
	return d
}

func envInt(k string, d int) int {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	return d
}

func envDur(k string, d time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if dur, err := time.ParseDuration(v); err == nil {
		return dur
	}
	return d
}
