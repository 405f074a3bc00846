package hud

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"jarvis-hud/internal/adapter/tui/theme"
)

// Clock is the time panel beside the avatar: HH:MM with seconds, the month
// and day, and a power reading fixed at boot.
type Clock struct {
	now   time.Time
	power int
}

// NewClock creates a clock showing now. The power reading is drawn once
// from [91, 100].
func NewClock(now time.Time, rng *rand.Rand) Clock {
	return Clock{now: now, power: 91 + rng.IntN(10)}
}

// Set moves the clock to t.
func (c *Clock) Set(t time.Time) { c.now = t }

// Time returns the displayed time.
func (c Clock) Time() time.Time { return c.now }

// Power returns the power percentage.
func (c Clock) Power() int { return c.power }

// HourMinute formats the main reading.
func (c Clock) HourMinute() string { return c.now.Format("15:04") }

// Seconds formats the seconds reading.
func (c Clock) Seconds() string { return c.now.Format("05") }

// Date returns the month name and day of month.
func (c Clock) Date() (month, day string) {
	return c.now.Month().String(), fmt.Sprint(c.now.Day())
}

// View renders the panel content.
func (c Clock) View(width int) string {
	month, day := c.Date()
	timeLine := theme.ClockTime.Render(c.HourMinute()) + " " + theme.ClockSeconds.Render(c.Seconds())
	dateLine := theme.ClockDate.Render(strings.ToUpper(month) + " " + day)
	powerLine := theme.TextMuted.Render("POWER ") + theme.ClockPower.Render(fmt.Sprintf("%d%%", c.power))

	center := lipgloss.NewStyle().Width(width).Align(lipgloss.Center)
	return lipgloss.JoinVertical(lipgloss.Center,
		center.Render(timeLine),
		center.Render(dateLine),
		center.Render(powerLine),
	)
}
