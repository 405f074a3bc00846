package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"jarvis-hud/internal/infra/config"
)

func main() {
	cmd := "hud"
	if len(os.Args) >= 2 && !strings.HasPrefix(os.Args[1], "--config") {
		cmd = os.Args[1]
	}

	var err error
	switch cmd {
	case "--help", "-h", "help":
		showUsage()
		return
	case "hud":
		err = runHUD()
	case "relay":
		err = runRelay()
	case "send":
		err = runSend(positionalArgs(os.Args[2:]))
	case "doctor":
		err = runDoctor()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\nRun 'jarvis --help' for usage information.\n", cmd)
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", cmd, err)
		os.Exit(1)
	}
}

func showUsage() {
	fmt.Println(`jarvis - terminal HUD for a voice assistant

USAGE:
    jarvis [COMMAND] [FLAGS]

COMMANDS:
    hud                     Show the HUD (default)
    relay                   Run the event relay the assistant backend posts to
    send ROLE CONTENT       Post one conversation event to the relay
                            ROLE is "user" or "assistant"
    doctor                  Run health checks on your setup

FLAGS:
    -h, --help         Show this help message
    --config PATH      Specify config file path (default: ./config.yaml)

CONFIGURATION:
    Config file: ./config.yaml (or JARVIS_CONFIG)
    Environment: JARVIS_* variables override config
    Secrets:     values prefixed "enc:" are decrypted with JARVIS_CONFIG_KEY

EXAMPLES:
    jarvis relay                              # start the relay on 127.0.0.1:8000
    jarvis                                    # open the HUD
    jarvis send user "What's the weather?"    # simulate the backend
    jarvis send assistant "Clear skies, sir."`)
}

// configPath resolves the config file: --config flag, then JARVIS_CONFIG,
// then ./config.yaml.
func configPath() string {
	for i, arg := range os.Args {
		if arg == "--config" && i+1 < len(os.Args) {
			return os.Args[i+1]
		}
		if strings.HasPrefix(arg, "--config=") {
			return strings.TrimPrefix(arg, "--config=")
		}
	}
	if p := os.Getenv("JARVIS_CONFIG"); p != "" {
		return p
	}
	return "config.yaml"
}

// positionalArgs drops --config and its value from args.
func positionalArgs(args []string) []string {
	var out []string
	for i := 0; i < len(args); i++ {
		switch {
		case args[i] == "--config":
			i++
		case strings.HasPrefix(args[i], "--config="):
		default:
			out = append(out, args[i])
		}
	}
	return out
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath())
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
