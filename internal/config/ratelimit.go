package config

import "time"

// RateLimitConfig tunes the Redis token bucket in front of the API.
type RateLimitConfig struct {
	Enabled        bool
	Capacity       int           // bucket size
	RefillTokens   int           // tokens added per RefillInterval
	RefillInterval time.Duration // refill period
	TTL            time.Duration // idle bucket expiry
	KeyStrategy    string        // "ip", "principal", "ip_principal_route"
	Prefix         string        // Redis key prefix
	Debug          bool          // expose X-RateLimit-* headers
}

func LoadRateLimitConfig() RateLimitConfig {
	def := RateLimitConfig{
		Enabled:        envBool("RATE_LIMIT_ENABLED", true),
		Capacity:       envInt("RATE_LIMIT_CAPACITY", 60),
		RefillTokens:   envInt("RATE_LIMIT_REFILL_TOKENS", 1),
		RefillInterval: envDur("RATE_LIMIT_REFILL_INTERVAL", time.Second),
		TTL:            envDur("RATE_LIMIT_TTL", 10*time.Minute),
		KeyStrategy:    envStr("RATE_LIMIT_KEY_STRATEGY", "ip_principal_route"),
		Prefix:         envStr("RATE_LIMIT_PREFIX", "rl"),
		Debug:          envBool("RATE_LIMIT_DEBUG", false),
	}
	if b := envInt("RATE_LIMIT_BURST", -1); b > 0 {
		def.Capacity = b
	}
	if every := envDur("RATE_LIMIT_REFILL_EVERY", 0); every > 0 {
		def.RefillTokens = 1
		def.RefillInterval = every
	}
	return def.normalize()
}

// SignupRateLimitConfig is a tighter bucket for the public signup route,
// keyed by client IP.
func SignupRateLimitConfig(base RateLimitConfig) RateLimitConfig {
	c := base
	c.Capacity = envInt("SIGNUP_RATE_LIMIT_CAPACITY", 5)
	c.RefillInterval = envDur("SIGNUP_RATE_LIMIT_REFILL_INTERVAL", time.Minute)
	c.RefillTokens = 1
	c.KeyStrategy = "ip"
	c.Prefix = base.Prefix + ":signup"
	return c.normalize()
}

func (c RateLimitConfig) normalize() RateLimitConfig {
	if c.Capacity < 1 {
		c.Capacity = 1
	}
	if c.RefillTokens < 1 {
		c.RefillTokens = 1
	}
	if c.RefillInterval <= 0 {
		c.RefillInterval = time.Second
	}
	if minTTL := 5 * c.RefillInterval; c.TTL < minTTL {
		c.TTL = minTTL
	}
	return c
}
