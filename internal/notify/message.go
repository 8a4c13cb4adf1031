package notify

import (
	"fmt"
	"time"

	"github.com/sweeney/power-watch/internal/logic"
)

const timeLayout = "2006-01-02 15:04:05 MST"

// TransitionText renders the chat message for a confirmed transition. The
// text carries the confirmation time, so a duplicate delivery after a crash
// identifies itself to the reader.
func TransitionText(t logic.Transition) string {
	switch t.To {
	case logic.StateDown:
		if t.PrevSince.IsZero() {
			return fmt.Sprintf("🔴 Power is DOWN since %s.", t.At.Format(timeLayout))
		}
		return fmt.Sprintf("🔴 Power is DOWN since %s. It was up for %s.",
			t.At.Format(timeLayout), logic.FormatDuration(t.At.Sub(t.PrevSince)))
	case logic.StateUp:
		if t.PrevSince.IsZero() {
			return fmt.Sprintf("🟢 Power is UP since %s.", t.At.Format(timeLayout))
		}
		return fmt.Sprintf("🟢 Power is UP since %s. It was down for %s.",
			t.At.Format(timeLayout), logic.FormatDuration(t.At.Sub(t.PrevSince)))
	default:
		return fmt.Sprintf("⚪ Power state is %s since %s.", t.To, t.At.Format(timeLayout))
	}
}

// OutageText renders the boot-time report for a heartbeat gap long enough to
// mean the host lost power.
func OutageText(gap time.Duration) string {
	return fmt.Sprintf("🟢 Power is back. The watcher was offline for about %s.", logic.FormatDuration(gap))
}

// RestartText renders the boot-time note for a heartbeat gap too short to be
// an outage, most likely a redeploy.
func RestartText(gap time.Duration) string {
	return fmt.Sprintf("⚙️ Watcher restarted after %s, most likely a redeploy.", logic.FormatDuration(gap))
}
