package logic

import (
	"fmt"
	"strings"
	"time"
)

// FormatDuration renders a duration as "2 days 3 hours 4 minutes 5 seconds",
// omitting zero components. Sub-second durations render as "0 seconds".
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}

	var b strings.Builder
	days := int64(d.Hours()) / 24
	if days > 0 {
		fmt.Fprintf(&b, "%d days ", days)
	}
	hours := int64(d.Hours()) % 24
	if hours > 0 {
		fmt.Fprintf(&b, "%d hours ", hours)
	}
	minutes := int64(d.Minutes()) % 60
	if minutes > 0 {
		fmt.Fprintf(&b, "%d minutes ", minutes)
	}
	seconds := int64(d.Seconds()) % 60
	if seconds > 0 {
		fmt.Fprintf(&b, "%d seconds ", seconds)
	}

	out := strings.TrimSpace(b.String())
	if out == "" {
		return "0 seconds"
	}
	return out
}
