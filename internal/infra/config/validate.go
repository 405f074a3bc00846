package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// ValidationError accumulates config validation errors.
type ValidationError struct {
	Errors []string
}

func (v *ValidationError) Error() string {
	return "config validation failed:\n  - " + strings.Join(v.Errors, "\n  - ")
}

// HasErrors reports whether any validation errors have been recorded.
func (v *ValidationError) HasErrors() bool {
	return len(v.Errors) > 0
}

// Add records a formatted validation error.
func (v *ValidationError) Add(format string, args ...interface{}) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}

// Validate checks cfg for structural correctness. It returns a *ValidationError
// when one or more problems are found, allowing callers to inspect all issues.
func Validate(cfg *Config) error {
	ve := &ValidationError{}
	validateLogger(cfg, ve)
	validateTracer(cfg, ve)
	validateRelay(cfg, ve)
	validateHistory(cfg, ve)
	validateHUD(cfg, ve)
	if ve.HasErrors() {
		return ve
	}
	return nil
}

var validLogLevels = map[string]bool{
	"": true, "debug": true, "info": true, "warn": true, "warning": true, "error": true,
}

var validLogFormats = map[string]bool{"": true, "text": true, "json": true}

func validateLogger(cfg *Config, ve *ValidationError) {
	if !validLogLevels[strings.ToLower(cfg.Logger.Level)] {
		ve.Add("logger.level %q is not one of debug, info, warn, error", cfg.Logger.Level)
	}
	if !validLogFormats[strings.ToLower(cfg.Logger.Format)] {
		ve.Add("logger.format %q must be text or json", cfg.Logger.Format)
	}
}

func validateTracer(cfg *Config, ve *ValidationError) {
	if !cfg.Tracer.Enabled {
		return
	}
	switch cfg.Tracer.Exporter {
	case "", "noop", "stdout":
	case "file":
		if cfg.Tracer.File == "" {
			ve.Add("tracer.file is required for the file exporter")
		}
	default:
		ve.Add("tracer.exporter %q is not supported", cfg.Tracer.Exporter)
	}
}

func validateRelay(cfg *Config, ve *ValidationError) {
	r := cfg.Relay
	if r.Addr == "" {
		ve.Add("relay.addr is required")
	} else if _, _, err := net.SplitHostPort(r.Addr); err != nil {
		ve.Add("relay.addr %q is not a valid host:port", r.Addr)
	}
	if r.RateLimit < 0 {
		ve.Add("relay.rate_limit must be >= 0")
	}
	if r.ClientQueue <= 0 {
		ve.Add("relay.client_queue must be > 0")
	}
	for i, t := range r.Auth.Tokens {
		if t.Token == "" {
			ve.Add("relay.auth.tokens[%d].token is required", i)
		}
	}
	for i, o := range r.AllowedOrigins {
		if o == "*" {
			continue
		}
		if u, err := url.Parse(o); err != nil || u.Scheme == "" || u.Host == "" {
			ve.Add("relay.allowed_origins[%d] %q must be an origin like http://host:port", i, o)
		}
	}
}

func validateHistory(cfg *Config, ve *ValidationError) {
	h := cfg.Relay.History
	if !h.Enabled {
		return
	}
	if h.Path == "" {
		ve.Add("relay.history.path is required when history is enabled")
	}
	if h.MaxAge < 0 {
		ve.Add("relay.history.max_age must be >= 0")
	}
	if h.Replay < 0 {
		ve.Add("relay.history.replay must be >= 0")
	}
}

func validateHUD(cfg *Config, ve *ValidationError) {
	h := cfg.HUD
	if h.ServerURL == "" {
		ve.Add("hud.server_url is required")
	} else if u, err := url.Parse(h.ServerURL); err != nil || (u.Scheme != "ws" && u.Scheme != "wss") {
		ve.Add("hud.server_url %q must be a ws:// or wss:// URL", h.ServerURL)
	}
	if h.RevealCadence <= 0 {
		ve.Add("hud.reveal_cadence must be > 0")
	}
	switch h.RevealMode {
	case "", "interleave", "serial":
	default:
		ve.Add("hud.reveal_mode %q must be interleave or serial", h.RevealMode)
	}
	if h.FrameInterval <= 0 {
		ve.Add("hud.frame_interval must be > 0")
	}
	if h.BootDelay < 0 {
		ve.Add("hud.boot_delay must be >= 0")
	}
	if h.Reconnect.Interval <= 0 {
		ve.Add("hud.reconnect.interval must be > 0")
	}
	if h.Reconnect.MaxFailures == 0 {
		ve.Add("hud.reconnect.max_failures must be > 0")
	}
	if h.Reconnect.BreakerReset <= 0 {
		ve.Add("hud.reconnect.breaker_reset must be > 0")
	}
}
