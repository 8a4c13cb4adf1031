package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/power-watch/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"dur": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
	"stateOrUnknown": func(s string) string {
		if s == "" {
			return "UNKNOWN"
		}
		return s
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Power Watch</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.up { color: green; font-weight: bold; }
.down { color: red; font-weight: bold; }
.unknown { color: orange; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>Power Watch</h1>

<h2>State</h2>
<table>
<tr><th>Power</th><td class="{{if eq (stateOrUnknown (printf "%s" .Power)) "UP"}}up{{else if eq (stateOrUnknown (printf "%s" .Power)) "DOWN"}}down{{else}}unknown{{end}}">{{stateOrUnknown (printf "%s" .Power)}}</td></tr>
{{if not .Since.IsZero}}<tr><th>Since</th><td>{{.Since.UTC.Format "2006-01-02T15:04:05Z"}} ({{dur .StateDur}})</td></tr>{{end}}
<tr><th>Ready</th><td>{{if .Baselined}}yes{{else}}no{{end}}</td></tr>
</table>

<h2>Health</h2>
<table>
<tr><th>Sensor ({{.Config.Source}})</th><td class="{{if .SensorHealthy}}connected{{else}}disconnected{{end}}">{{if .SensorHealthy}}healthy{{else}}unhealthy{{end}}</td></tr>
{{if .Config.Broker}}<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>{{end}}
<tr><th>Store</th><td class="{{if .StoreHealthy}}connected{{else}}disconnected{{end}}">{{if .StoreHealthy}}healthy{{else}}unhealthy{{end}}</td></tr>
<tr><th>Redis</th><td>{{.Config.RedisAddr}}</td></tr>
</table>

<h2>Event Counts</h2>
<table>
<tr><th>UP</th><td>{{.Counts.Up}}</td></tr>
<tr><th>DOWN</th><td>{{.Counts.Down}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{dur .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Poll</th><td>{{.Config.PollMs}}ms</td></tr>
<tr><th>Debounce</th><td>{{.Config.DebounceSamples}} samples / {{.Config.DebounceHoldMs}}ms</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a> · <a href="/metrics">metrics</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	// Snapshot has method receivers but the template wants plain fields.
	data := struct {
		status.Snapshot
		Uptime   time.Duration
		StateDur time.Duration
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
		StateDur: snap.StateDuration(),
	}
	indexTmpl.Execute(w, data)
}
