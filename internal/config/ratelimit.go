package config

import (
	"fmt"
	"net"
	"strings"
	"time"
)

// Rate limit backends.
const (
	RateLimitMemory = "memory"
	RateLimitRedis  = "redis"
)

// RouteRule is the fixed-window budget for a single route.
type RouteRule struct {
	Window time.Duration
	Max    int
}

// RateLimitConfig selects the counter backend and holds per-route budgets.
// Routes are identified by the names used in router.go.
type RateLimitConfig struct {
	Enabled bool
	Backend string
	Prefix  string
	Rules   map[string]RouteRule

	// TrustedProxies are the networks whose X-Forwarded-For header names the
	// client.  Empty means the TCP peer address is the client.
	TrustedProxies []*net.IPNet
}

// Route names with their own budget.
const (
	RouteAuth          = "auth"
	RoutePasswordReset = "password-reset"
	RouteApproach      = "approach-requests"
	RouteAdminDash     = "admin-dashboard"
	RouteAdminUsers    = "admin-users"
	RouteCollectorStat = "collector-stats"
	RouteNotifications = "notifications"
)

// LoadRateLimitConfig reads the limiter settings.  TRUSTED_PROXIES is a
// comma separated CIDR list; a malformed entry is an error.
func LoadRateLimitConfig() (RateLimitConfig, error) {
	cfg := RateLimitConfig{
		Enabled: envBool("RATE_LIMIT_ENABLED", true),
		Backend: strings.ToLower(envStr("RATE_LIMIT_BACKEND", RateLimitMemory)),
		Prefix:  envStr("RATE_LIMIT_PREFIX", "rl"),
		Rules: map[string]RouteRule{
			RouteAuth:          {Window: time.Minute, Max: 10},
			RoutePasswordReset: {Window: time.Minute, Max: 5},
			RouteApproach:      {Window: time.Minute, Max: 20},
			RouteAdminDash:     {Window: time.Minute, Max: 50},
			RouteAdminUsers:    {Window: time.Minute, Max: 100},
			RouteCollectorStat: {Window: time.Minute, Max: 50},
			RouteNotifications: {Window: time.Minute, Max: 100},
		},
	}
	if cfg.Backend != RateLimitRedis {
		cfg.Backend = RateLimitMemory
	}
	// RATE_LIMIT_<ROUTE>_MAX / RATE_LIMIT_<ROUTE>_WINDOW override a single route.
	for name, rule := range cfg.Rules {
		env := "RATE_LIMIT_" + strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
		rule.Max = envInt(env+"_MAX", rule.Max)
		rule.Window = envDur(env+"_WINDOW", rule.Window)
		if rule.Max < 1 {
			rule.Max = 1
		}
		if rule.Window <= 0 {
			rule.Window = time.Minute
		}
		cfg.Rules[name] = rule
	}
	proxies, err := parseCIDRs(envStr("TRUSTED_PROXIES", ""))
	if err != nil {
		return RateLimitConfig{}, err
	}
	cfg.TrustedProxies = proxies
	return cfg, nil
}

func parseCIDRs(s string) ([]*net.IPNet, error) {
	var out []*net.IPNet
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		_, n, err := net.ParseCIDR(p)
		if err != nil {
			return nil, fmt.Errorf("invalid TRUSTED_PROXIES entry %q: %w", p, err)
		}
		out = append(out, n)
	}
	return out, nil
}

// Rule returns the budget for a route, falling back to a generous default.
func (c RateLimitConfig) Rule(route string) RouteRule {
	if r, ok := c.Rules[route]; ok {
		return r
	}
	return RouteRule{Window: time.Minute, Max: 100}
}
