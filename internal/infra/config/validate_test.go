package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateDefaultsPass(t *testing.T) {
	require.NoError(t, Validate(Defaults()))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"bad log level", func(c *Config) { c.Logger.Level = "loud" }, "logger.level"},
		{"bad log format", func(c *Config) { c.Logger.Format = "xml" }, "logger.format"},
		{"bad exporter", func(c *Config) { c.Tracer.Enabled = true; c.Tracer.Exporter = "jaeger" }, "tracer.exporter"},
		{"file exporter without file", func(c *Config) { c.Tracer.Enabled = true; c.Tracer.Exporter = "file" }, "tracer.file"},
		{"missing relay addr", func(c *Config) { c.Relay.Addr = "" }, "relay.addr is required"},
		{"bad relay addr", func(c *Config) { c.Relay.Addr = "localhost" }, "not a valid host:port"},
		{"negative rate limit", func(c *Config) { c.Relay.RateLimit = -1 }, "relay.rate_limit"},
		{"zero client queue", func(c *Config) { c.Relay.ClientQueue = 0 }, "relay.client_queue"},
		{"empty token", func(c *Config) { c.Relay.Auth.Tokens = []TokenConfig{{Name: "x"}} }, "relay.auth.tokens[0].token"},
		{"bad origin", func(c *Config) { c.Relay.AllowedOrigins = []string{"localhost"} }, "relay.allowed_origins[0]"},
		{"history path", func(c *Config) { c.Relay.History.Path = "" }, "relay.history.path"},
		{"history max age", func(c *Config) { c.Relay.History.MaxAge = -time.Second }, "relay.history.max_age"},
		{"server url scheme", func(c *Config) { c.HUD.ServerURL = "http://x/ws" }, "hud.server_url"},
		{"missing server url", func(c *Config) { c.HUD.ServerURL = "" }, "hud.server_url is required"},
		{"zero cadence", func(c *Config) { c.HUD.RevealCadence = 0 }, "hud.reveal_cadence"},
		{"reveal mode", func(c *Config) { c.HUD.RevealMode = "random" }, "hud.reveal_mode"},
		{"frame interval", func(c *Config) { c.HUD.FrameInterval = 0 }, "hud.frame_interval"},
		{"boot delay", func(c *Config) { c.HUD.BootDelay = -time.Second }, "hud.boot_delay"},
		{"reconnect interval", func(c *Config) { c.HUD.Reconnect.Interval = 0 }, "hud.reconnect.interval"},
		{"max failures", func(c *Config) { c.HUD.Reconnect.MaxFailures = 0 }, "hud.reconnect.max_failures"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(cfg)
			err := Validate(cfg)
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidateAccumulates(t *testing.T) {
	cfg := Defaults()
	cfg.Relay.Addr = ""
	cfg.HUD.RevealCadence = 0
	cfg.HUD.FrameInterval = 0

	err := Validate(cfg)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Len(t, ve.Errors, 3)
}

func TestValidateHistoryDisabledSkipsChecks(t *testing.T) {
	cfg := Defaults()
	cfg.Relay.History.Enabled = false
	cfg.Relay.History.Path = ""
	assert.NoError(t, Validate(cfg))
}

func TestValidateWildcardOrigin(t *testing.T) {
	cfg := Defaults()
	cfg.Relay.AllowedOrigins = []string{"*"}
	assert.NoError(t, Validate(cfg))
}
