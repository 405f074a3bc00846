package theme

import (
	"os"
	"strings"
)

// SymbolSet holds the glyphs used by the HUD, allowing runtime switching
// between Unicode and ASCII fallback sets.
type SymbolSet struct {
	Ring         rune // ring outline
	RingMark     rune // rotating marker on a ring
	Sphere       rune // sphere wireframe
	SphereBright rune // sphere meridian facing the viewer
	Particle     rune // far particle line
	ParticleNear rune // near particle line
	Connected    string
	Connecting   string
	Disconnected string
	Bullet       string
}

var unicodeSymbols = SymbolSet{
	Ring:         '·',
	RingMark:     '◆',
	Sphere:       '∙',
	SphereBright: '●',
	Particle:     '.',
	ParticleNear: '│',
	Connected:    "●",
	Connecting:   "◌",
	Disconnected: "○",
	Bullet:       "•",
}

var asciiSymbols = SymbolSet{
	Ring:         '.',
	RingMark:     '*',
	Sphere:       ':',
	SphereBright: 'o',
	Particle:     '.',
	ParticleNear: '|',
	Connected:    "[on]",
	Connecting:   "[..]",
	Disconnected: "[off]",
	Bullet:       "*",
}

// Symbols is the active set, chosen by InitSymbols.
var Symbols = unicodeSymbols

// DetectUnicodeSupport checks whether the terminal likely supports Unicode.
// Priority: JARVIS_ASCII_SYMBOLS env (explicit override) > locale detection.
func DetectUnicodeSupport() bool {
	if v := os.Getenv("JARVIS_ASCII_SYMBOLS"); v == "1" || strings.EqualFold(v, "true") {
		return false
	}

	for _, key := range []string{"LC_ALL", "LC_CTYPE", "LANG"} {
		val := strings.ToLower(os.Getenv(key))
		if strings.Contains(val, "utf-8") || strings.Contains(val, "utf8") {
			return true
		}
	}

	// Most modern terminals support Unicode; default to true.
	return true
}

// InitSymbols selects the active symbol set based on terminal capabilities.
// Called automatically by init(), but can be called again if the
// environment changes (e.g., in tests).
func InitSymbols() {
	if DetectUnicodeSupport() {
		Symbols = unicodeSymbols
		return
	}
	Symbols = asciiSymbols
}

func init() {
	InitSymbols()
}
