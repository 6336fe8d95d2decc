package ratelimit

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Rule limits one method and path. A Path ending in "/" matches by prefix.
type Rule struct {
	Method string
	Path   string
	Limit  int
	Window time.Duration
	Burst  int
}

// Config holds rate limiting configuration.
type Config struct {
	Enabled   bool
	Rules     []Rule
	Whitelist map[string]bool
}

// DefaultRules limit the calls that start pipeline runs or call an LLM.
func DefaultRules() []Rule {
	return []Rule{
		{Method: "POST", Path: "/runs/stream", Limit: 10, Window: time.Hour, Burst: 2},
		{Method: "POST", Path: "/merge", Limit: 600, Window: time.Minute, Burst: 60},
		{Method: "POST", Path: "/report", Limit: 600, Window: time.Minute, Burst: 60},
	}
}

// DefaultConfig enables the default rules.
func DefaultConfig() *Config {
	return &Config{Enabled: true, Rules: DefaultRules(), Whitelist: map[string]bool{}}
}

// LoadConfig reads RATE_LIMIT_ENABLED, RATE_LIMIT_RUNS_PER_HOUR and
// RATE_LIMIT_WHITELIST on top of the defaults.
func LoadConfig() *Config {
	cfg := DefaultConfig()
	if v, err := strconv.ParseBool(os.Getenv("RATE_LIMIT_ENABLED")); err == nil {
		cfg.Enabled = v
	}
	if n, err := strconv.Atoi(os.Getenv("RATE_LIMIT_RUNS_PER_HOUR")); err == nil && n > 0 {
		cfg.Rules[0].Limit = n
	}
	for _, ip := range strings.Split(os.Getenv("RATE_LIMIT_WHITELIST"), ",") {
		if ip = strings.TrimSpace(ip); ip != "" {
			cfg.Whitelist[ip] = true
		}
	}
	return cfg
}

// Match returns the rule for method and path, preferring exact paths over prefixes.
func (c *Config) Match(method, path string) *Rule {
	for i := range c.Rules {
		if c.Rules[i].Method == method && c.Rules[i].Path == path {
			return &c.Rules[i]
		}
	}
	for i := range c.Rules {
		r := &c.Rules[i]
		if r.Method == method && strings.HasSuffix(r.Path, "/") && strings.HasPrefix(path, r.Path) {
			return r
		}
	}
	return nil
}
