package attendance

import (
	"fmt"
	"time"

	"github.com/kozaktomas/gatewatch/internal/backend"
)

func greeting(name string, in *backend.CheckIn) string {
	if in.EntryNumber > 1 {
		return fmt.Sprintf("Welcome back, %s (entry #%d at %s)", name, in.EntryNumber, in.TimeIn.Local().Format("15:04"))
	}
	return fmt.Sprintf("Welcome, %s (checked in at %s)", name, in.TimeIn.Local().Format("15:04"))
}

func farewell(name string, out *backend.CheckOut) string {
	label := out.BreakLabel
	if label == "" {
		label = out.BreakType
	}
	return fmt.Sprintf("Goodbye, %s: %s after %s, %s today",
		name, label, FormatSeconds(out.SessionDuration), FormatSeconds(out.TodayTotal))
}

// FormatSeconds renders a duration in seconds as "3h 05m" or "12m".
func FormatSeconds(s int64) string {
	d := time.Duration(max(s, 0)) * time.Second
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	if h == 0 {
		return fmt.Sprintf("%dm", m)
	}
	return fmt.Sprintf("%dh %02dm", h, m)
}
