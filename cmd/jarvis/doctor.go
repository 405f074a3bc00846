package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pterm/pterm"

	"jarvis-hud/internal/adapter/gateway"
	"jarvis-hud/internal/infra/config"
	"jarvis-hud/internal/usecase/presentation"
	"jarvis-hud/internal/usecase/scheduling"
)

// CheckStatus represents the result of a health check.
type CheckStatus string

const (
	StatusPass CheckStatus = "PASS"
	StatusWarn CheckStatus = "WARN"
	StatusFail CheckStatus = "FAIL"
)

// CheckResult holds the outcome of a single health check.
type CheckResult struct {
	Name    string
	Status  CheckStatus
	Message string
	Fix     string // optional fix suggestion
}

// Check is a named health check function.
type Check struct {
	Name string
	Fn   func(cfg *config.Config) CheckResult
}

// runDoctor executes all health checks and reports results.
func runDoctor() error {
	cfgPath := configPath()

	// Try to load config; some checks work without it.
	cfg, cfgErr := config.Load(cfgPath)

	checks := []Check{
		{Name: "Config file", Fn: checkConfigFile(cfgPath, cfgErr)},
		{Name: "Relay auth", Fn: checkRelayAuth},
		{Name: "History store", Fn: checkHistoryDir},
		{Name: "Retention schedule", Fn: checkRetentionSchedule},
		{Name: "HUD settings", Fn: checkHUDSettings},
		{Name: "HUD log file", Fn: checkLogDir},
		{Name: "Relay reachable", Fn: checkRelayReachable},
	}

	_, warn, fail := reportChecks(os.Stdout, cfg, checks)
	if fail > 0 {
		return fmt.Errorf("%d check(s) failed", fail)
	}
	if warn > 0 {
		pterm.Info.Println("jarvis should work, but consider addressing the warnings.")
	} else {
		pterm.Success.Println("All checks passed! jarvis is ready to run.")
	}
	return nil
}

// reportChecks runs checks against cfg and prints one line per result
// followed by a summary table.
func reportChecks(w io.Writer, cfg *config.Config, checks []Check) (pass, warn, fail int) {
	pterm.DefaultSection.WithWriter(w).Println("jarvis doctor")

	for _, check := range checks {
		result := check.Fn(cfg)
		result.Name = check.Name

		printerFor(result.Status).WithWriter(w).Printfln("%s: %s", result.Name, result.Message)
		if result.Fix != "" {
			fmt.Fprintln(w, pterm.Gray("    Fix: "+result.Fix))
		}

		switch result.Status {
		case StatusPass:
			pass++
		case StatusWarn:
			warn++
		case StatusFail:
			fail++
		}
	}

	fmt.Fprintln(w)
	pterm.DefaultTable.
		WithWriter(w).
		WithHasHeader().
		WithData(pterm.TableData{
			{"Passed", "Warnings", "Failed"},
			{fmt.Sprint(pass), fmt.Sprint(warn), fmt.Sprint(fail)},
		}).
		Render() //nolint:errcheck
	return pass, warn, fail
}

func printerFor(s CheckStatus) *pterm.PrefixPrinter {
	switch s {
	case StatusPass:
		return &pterm.Success
	case StatusWarn:
		return &pterm.Warning
	default:
		return &pterm.Error
	}
}

// checkConfigFile verifies the config file exists and parses correctly.
// A missing file is only a warning: the defaults are usable.
func checkConfigFile(cfgPath string, cfgErr error) func(*config.Config) CheckResult {
	return func(_ *config.Config) CheckResult {
		if cfgErr != nil {
			return CheckResult{
				Status:  StatusFail,
				Message: fmt.Sprintf("config error: %v", cfgErr),
				Fix:     "Check config.yaml syntax, file permissions (no group/world write) and JARVIS_CONFIG_KEY",
			}
		}
		if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
			return CheckResult{
				Status:  StatusWarn,
				Message: fmt.Sprintf("no config file at %s, using defaults", cfgPath),
				Fix:     "Create config.yaml or set JARVIS_CONFIG",
			}
		}
		return CheckResult{
			Status:  StatusPass,
			Message: fmt.Sprintf("config loaded from %s", cfgPath),
		}
	}
}

// checkRelayAuth warns when the relay accepts every client on a non-loopback address.
func checkRelayAuth(cfg *config.Config) CheckResult {
	if cfg == nil {
		return CheckResult{Status: StatusWarn, Message: "cannot check: config not loaded"}
	}
	if len(cfg.Relay.Auth.Tokens) > 0 {
		return CheckResult{
			Status:  StatusPass,
			Message: fmt.Sprintf("%d token(s) configured", len(cfg.Relay.Auth.Tokens)),
		}
	}
	if strings.HasPrefix(cfg.Relay.Addr, "127.0.0.1:") || strings.HasPrefix(cfg.Relay.Addr, "localhost:") {
		return CheckResult{Status: StatusPass, Message: "open relay on loopback"}
	}
	return CheckResult{
		Status:  StatusWarn,
		Message: fmt.Sprintf("relay on %s accepts any client", cfg.Relay.Addr),
		Fix:     "Add relay.auth.tokens or bind relay.addr to 127.0.0.1",
	}
}

// checkHistoryDir verifies the history database directory is writable.
func checkHistoryDir(cfg *config.Config) CheckResult {
	if cfg == nil {
		return CheckResult{Status: StatusWarn, Message: "cannot check: config not loaded"}
	}
	if !cfg.Relay.History.Enabled {
		return CheckResult{Status: StatusPass, Message: "history disabled (no replay)"}
	}
	return checkWritableDir(filepath.Dir(cfg.Relay.History.Path))
}

// checkRetentionSchedule verifies the retention schedule parses.
func checkRetentionSchedule(cfg *config.Config) CheckResult {
	if cfg == nil || !cfg.Relay.History.Enabled {
		return CheckResult{Status: StatusPass, Message: "not applicable"}
	}
	sched, err := scheduling.ParseSchedule(cfg.Relay.History.RetentionSchedule)
	if err != nil {
		return CheckResult{
			Status:  StatusFail,
			Message: err.Error(),
			Fix:     `Use a cron expression, a descriptor like "@hourly" or a duration like "30m"`,
		}
	}
	return CheckResult{
		Status:  StatusPass,
		Message: fmt.Sprintf("next prune at %s", sched.Next(time.Now()).Format(time.RFC3339)),
	}
}

// checkHUDSettings verifies the reveal mode and timings.
func checkHUDSettings(cfg *config.Config) CheckResult {
	if cfg == nil {
		return CheckResult{Status: StatusWarn, Message: "cannot check: config not loaded"}
	}
	mode, err := presentation.ParseRevealMode(cfg.HUD.RevealMode)
	if err != nil {
		return CheckResult{
			Status:  StatusFail,
			Message: err.Error(),
			Fix:     `Set hud.reveal_mode to "interleave" or "serial"`,
		}
	}
	return CheckResult{
		Status:  StatusPass,
		Message: fmt.Sprintf("%s reveal every %s, frame every %s", mode, cfg.HUD.RevealCadence, cfg.HUD.FrameInterval),
	}
}

// checkLogDir verifies the HUD can write its log file.
func checkLogDir(cfg *config.Config) CheckResult {
	if cfg == nil {
		return CheckResult{Status: StatusWarn, Message: "cannot check: config not loaded"}
	}
	if cfg.HUD.LogFile == "" {
		return CheckResult{Status: StatusPass, Message: "HUD logs are discarded"}
	}
	return checkWritableDir(filepath.Dir(cfg.HUD.LogFile))
}

func checkWritableDir(dir string) CheckResult {
	absDir, _ := filepath.Abs(dir)

	info, err := os.Stat(absDir)
	if os.IsNotExist(err) {
		if mkErr := os.MkdirAll(absDir, 0o700); mkErr != nil {
			return CheckResult{
				Status:  StatusFail,
				Message: fmt.Sprintf("directory %s does not exist and cannot be created: %v", absDir, mkErr),
				Fix:     fmt.Sprintf("Create the directory: mkdir -p %s", absDir),
			}
		}
		return CheckResult{Status: StatusPass, Message: fmt.Sprintf("directory created at %s", absDir)}
	}
	if err != nil {
		return CheckResult{Status: StatusFail, Message: fmt.Sprintf("cannot stat directory: %v", err)}
	}
	if !info.IsDir() {
		return CheckResult{Status: StatusFail, Message: fmt.Sprintf("%s exists but is not a directory", absDir)}
	}

	testFile := filepath.Join(absDir, ".doctor-check")
	if err := os.WriteFile(testFile, []byte("ok"), 0o600); err != nil {
		return CheckResult{
			Status:  StatusFail,
			Message: fmt.Sprintf("directory %s is not writable: %v", absDir, err),
			Fix:     fmt.Sprintf("Fix permissions: chmod 700 %s", absDir),
		}
	}
	os.Remove(testFile)

	return CheckResult{Status: StatusPass, Message: fmt.Sprintf("directory %s writable", absDir)}
}

// checkRelayReachable queries the relay's status endpoint.
func checkRelayReachable(cfg *config.Config) CheckResult {
	if cfg == nil {
		return CheckResult{Status: StatusWarn, Message: "cannot check: config not loaded"}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	base := relayBaseURL(cfg)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/api/v1/status", nil)
	if err != nil {
		return CheckResult{Status: StatusFail, Message: err.Error()}
	}
	if tok := sendToken(cfg); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return CheckResult{
			Status:  StatusWarn,
			Message: fmt.Sprintf("relay not reachable at %s", base),
			Fix:     "Start it with 'jarvis relay'",
		}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var st gateway.StatusResponse
		if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
			return CheckResult{Status: StatusWarn, Message: fmt.Sprintf("relay at %s sent an unreadable status: %v", base, err)}
		}
		return CheckResult{
			Status: StatusPass,
			Message: fmt.Sprintf("relay up at %s (%d client(s), %d stored event(s))",
				base, st.Clients.Connected, st.History.Stored),
		}
	case http.StatusUnauthorized:
		return CheckResult{
			Status:  StatusFail,
			Message: "relay rejected the token",
			Fix:     "Set hud.token to one of relay.auth.tokens",
		}
	default:
		return CheckResult{Status: StatusWarn, Message: fmt.Sprintf("relay answered %s", resp.Status)}
	}
}
