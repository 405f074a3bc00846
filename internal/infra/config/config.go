package config

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/argon2"
	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Logger LoggerConfig `yaml:"logger"`
	Tracer TracerConfig `yaml:"tracer"`
	Relay  RelayConfig  `yaml:"relay"`
	HUD    HUDConfig    `yaml:"hud"`
}

// RelayConfig holds the event relay settings.
type RelayConfig struct {
	Addr           string        `yaml:"addr"`
	Auth           AuthConfig    `yaml:"auth"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
	RateLimit      int           `yaml:"rate_limit"` // requests per minute per IP, 0 disables
	ClientQueue    int           `yaml:"client_queue"`
	History        HistoryConfig `yaml:"history"`
}

// AuthConfig holds relay authentication settings.
// An empty token list leaves the relay open.
type AuthConfig struct {
	Tokens []TokenConfig `yaml:"tokens,omitempty"`
}

// TokenConfig holds a single relay auth token.
type TokenConfig struct {
	Token string `yaml:"token"`
	Name  string `yaml:"name"`
}

// HistoryConfig holds conversation history persistence settings.
type HistoryConfig struct {
	Enabled           bool          `yaml:"enabled"`
	Path              string        `yaml:"path"`
	RetentionSchedule string        `yaml:"retention_schedule"` // cron expression or duration string
	MaxAge            time.Duration `yaml:"max_age"`
	Replay            int           `yaml:"replay"` // events sent to a HUD on connect
}

// HUDConfig holds the terminal display settings.
type HUDConfig struct {
	ServerURL     string          `yaml:"server_url"`
	Token         string          `yaml:"token"`
	RevealCadence time.Duration   `yaml:"reveal_cadence"`
	RevealMode    string          `yaml:"reveal_mode"` // "interleave" or "serial"
	FrameInterval time.Duration   `yaml:"frame_interval"`
	BootDelay     time.Duration   `yaml:"boot_delay"`
	Replay        bool            `yaml:"replay"`
	Reconnect     ReconnectConfig `yaml:"reconnect"`
	LogFile       string          `yaml:"log_file"`
}

// ReconnectConfig controls how the HUD re-dials the relay.
type ReconnectConfig struct {
	Interval     time.Duration `yaml:"interval"`
	MaxFailures  uint32        `yaml:"max_failures"`
	BreakerReset time.Duration `yaml:"breaker_reset"`
}

// LoggerConfig holds logging settings.
type LoggerConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// TracerConfig holds tracing settings.
type TracerConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Exporter string `yaml:"exporter"` // noop, stdout or file
	File     string `yaml:"file"`     // span output for the file exporter
}

// defaultDataDir returns the persistent data directory under $HOME/.jarvis.
// Falls back to "./data" if $HOME cannot be determined.
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./data"
	}
	return filepath.Join(home, ".jarvis")
}

// Defaults returns a Config with sensible defaults.
func Defaults() *Config {
	dataDir := defaultDataDir()
	return &Config{
		Logger: LoggerConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Tracer: TracerConfig{
			Exporter: "noop",
		},
		Relay: RelayConfig{
			Addr:           "127.0.0.1:8000",
			AllowedOrigins: []string{"http://localhost:5173"},
			RateLimit:      600,
			ClientQueue:    256,
			History: HistoryConfig{
				Enabled:           true,
				Path:              filepath.Join(dataDir, "history.db"),
				RetentionSchedule: "@hourly",
				MaxAge:            7 * 24 * time.Hour,
				Replay:            20,
			},
		},
		HUD: HUDConfig{
			ServerURL:     "ws://127.0.0.1:8000/ws",
			RevealCadence: 30 * time.Millisecond,
			RevealMode:    "interleave",
			FrameInterval: 16 * time.Millisecond,
			BootDelay:     3 * time.Second,
			Replay:        false,
			Reconnect: ReconnectConfig{
				Interval:     2 * time.Second,
				MaxFailures:  5,
				BreakerReset: 30 * time.Second,
			},
			LogFile: filepath.Join(dataDir, "hud.log"),
		},
	}
}

// Load reads a YAML config file, applies env var overrides, and decrypts secrets.
// A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return finish(cfg)
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}

	if err := validatePermissions(absPath); err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return finish(cfg)
}

func finish(cfg *Config) (*Config, error) {
	ApplyEnvOverrides(cfg)

	if passphrase := os.Getenv("JARVIS_CONFIG_KEY"); passphrase != "" {
		if err := decryptSecrets(cfg, passphrase); err != nil {
			return nil, fmt.Errorf("decrypt secrets: %w", err)
		}
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnvOverrides maps JARVIS_* env vars to config fields.
// Malformed numeric or duration values are ignored.
func ApplyEnvOverrides(cfg *Config) {
	if v := os.Getenv("JARVIS_LOGGER_LEVEL"); v != "" {
		cfg.Logger.Level = v
	}
	if v := os.Getenv("JARVIS_LOGGER_FORMAT"); v != "" {
		cfg.Logger.Format = v
	}
	if v := os.Getenv("JARVIS_LOGGER_OUTPUT"); v != "" {
		cfg.Logger.Output = v
	}
	if v := os.Getenv("JARVIS_TRACER_ENABLED"); v == "true" {
		cfg.Tracer.Enabled = true
	}
	if v := os.Getenv("JARVIS_TRACER_EXPORTER"); v != "" {
		cfg.Tracer.Exporter = v
	}
	if v := os.Getenv("JARVIS_TRACER_FILE"); v != "" {
		cfg.Tracer.File = v
	}

	if v := os.Getenv("JARVIS_RELAY_ADDR"); v != "" {
		cfg.Relay.Addr = v
	}
	if v := os.Getenv("JARVIS_RELAY_ALLOWED_ORIGINS"); v != "" {
		cfg.Relay.AllowedOrigins = splitAndTrim(v, ",")
	}
	if v := os.Getenv("JARVIS_RELAY_TOKEN"); v != "" {
		cfg.Relay.Auth.Tokens = append(cfg.Relay.Auth.Tokens, TokenConfig{Token: v, Name: "env"})
	}
	if v := os.Getenv("JARVIS_RELAY_RATE_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Relay.RateLimit = n
		}
	}
	if v := os.Getenv("JARVIS_HISTORY_ENABLED"); v != "" {
		cfg.Relay.History.Enabled = v == "true"
	}
	if v := os.Getenv("JARVIS_HISTORY_PATH"); v != "" {
		cfg.Relay.History.Path = v
	}
	if v := os.Getenv("JARVIS_HISTORY_MAX_AGE"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Relay.History.MaxAge = d
		}
	}

	if v := os.Getenv("JARVIS_HUD_SERVER_URL"); v != "" {
		cfg.HUD.ServerURL = v
	}
	if v := os.Getenv("JARVIS_HUD_TOKEN"); v != "" {
		cfg.HUD.Token = v
	}
	if v := os.Getenv("JARVIS_HUD_REVEAL_MODE"); v != "" {
		cfg.HUD.RevealMode = v
	}
	if v := os.Getenv("JARVIS_HUD_REVEAL_CADENCE"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.HUD.RevealCadence = d
		}
	}
	if v := os.Getenv("JARVIS_HUD_BOOT_DELAY"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.HUD.BootDelay = d
		}
	}
	if v := os.Getenv("JARVIS_HUD_LOG_FILE"); v != "" {
		cfg.HUD.LogFile = v
	}
}

// splitAndTrim splits s by sep, trims whitespace and drops empty elements.
func splitAndTrim(s, sep string) []string {
	parts := strings.Split(s, sep)
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// decryptSecrets finds "enc:..." values in relay and HUD tokens and decrypts them.
func decryptSecrets(cfg *Config, passphrase string) error {
	for i := range cfg.Relay.Auth.Tokens {
		tok := &cfg.Relay.Auth.Tokens[i]
		if strings.HasPrefix(tok.Token, "enc:") {
			decrypted, err := DecryptValue(strings.TrimPrefix(tok.Token, "enc:"), passphrase)
			if err != nil {
				return fmt.Errorf("relay auth token %s: %w", tok.Name, err)
			}
			tok.Token = decrypted
		}
	}

	if strings.HasPrefix(cfg.HUD.Token, "enc:") {
		decrypted, err := DecryptValue(strings.TrimPrefix(cfg.HUD.Token, "enc:"), passphrase)
		if err != nil {
			return fmt.Errorf("hud token: %w", err)
		}
		cfg.HUD.Token = decrypted
	}

	return nil
}

// EncryptValue encrypts a plaintext value with AES-256-GCM using a passphrase.
func EncryptValue(plaintext, passphrase string) (string, error) {
	salt := make([]byte, 16)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	gcm, err := newGCM(passphrase, salt)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	ciphertext := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	// Format: hex(salt) + ":" + hex(nonce+ciphertext)
	return hex.EncodeToString(salt) + ":" + hex.EncodeToString(ciphertext), nil
}

// DecryptValue decrypts a value produced by EncryptValue.
func DecryptValue(encrypted, passphrase string) (string, error) {
	saltHex, dataHex, ok := strings.Cut(encrypted, ":")
	if !ok {
		return "", fmt.Errorf("invalid encrypted format")
	}

	salt, err := hex.DecodeString(saltHex)
	if err != nil {
		return "", fmt.Errorf("decode salt: %w", err)
	}

	data, err := hex.DecodeString(dataHex)
	if err != nil {
		return "", fmt.Errorf("decode ciphertext: %w", err)
	}

	gcm, err := newGCM(passphrase, salt)
	if err != nil {
		return "", err
	}

	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize {
		return "", fmt.Errorf("ciphertext too short")
	}

	nonce, ciphertext := data[:nonceSize], data[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("decrypt: %w", err)
	}

	return string(plaintext), nil
}

func newGCM(passphrase string, salt []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(deriveKey(passphrase, salt))
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create gcm: %w", err)
	}
	return gcm, nil
}

// deriveKey uses Argon2id to derive a 32-byte key from passphrase + salt.
func deriveKey(passphrase string, salt []byte) []byte {
	return argon2.IDKey([]byte(passphrase), salt, 1, 64*1024, 4, 32)
}

// validatePermissions rejects config files writable by group or others.
func validatePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat config: %w", err)
	}
	mode := info.Mode().Perm()
	if mode&0o022 != 0 {
		return fmt.Errorf("config file %s has insecure permissions %o (want 0600 or 0644)", path, mode)
	}
	return nil
}
