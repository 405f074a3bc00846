package main

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/pterm/pterm"

	"jarvis-hud/internal/adapter/gateway"
	"jarvis-hud/internal/domain"
	"jarvis-hud/internal/infra/config"
)

// parseSendArgs turns "ROLE CONTENT..." into an event. Content words are
// joined with spaces; a missing content sends an empty message.
func parseSendArgs(args []string) (domain.ConversationEvent, error) {
	if len(args) == 0 {
		return domain.ConversationEvent{}, fmt.Errorf("usage: jarvis send ROLE CONTENT")
	}
	role, err := domain.ParseRole(args[0])
	if err != nil {
		return domain.ConversationEvent{}, err
	}
	return domain.ConversationEvent{Role: role, Content: strings.Join(args[1:], " ")}, nil
}

// relayBaseURL derives the relay's HTTP address from the HUD's server URL,
// falling back to the relay's listen address.
func relayBaseURL(cfg *config.Config) string {
	if u, err := url.Parse(cfg.HUD.ServerURL); err == nil && u.Host != "" {
		scheme := "http"
		if u.Scheme == "wss" {
			scheme = "https"
		}
		return scheme + "://" + u.Host
	}
	return "http://" + cfg.Relay.Addr
}

// sendToken picks the token for posting: the HUD's own, else the first relay token.
func sendToken(cfg *config.Config) string {
	if cfg.HUD.Token != "" {
		return cfg.HUD.Token
	}
	if len(cfg.Relay.Auth.Tokens) > 0 {
		return cfg.Relay.Auth.Tokens[0].Token
	}
	return ""
}

func runSend(args []string) error {
	ev, err := parseSendArgs(args)
	if err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	echo, err := gateway.NewPublisher(relayBaseURL(cfg), sendToken(cfg)).Publish(ctx, ev)
	if err != nil {
		return err
	}
	pterm.Success.Printfln("sent %s: %q", echo.Role, echo.Content)
	return nil
}
