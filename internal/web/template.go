package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/ledctl/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
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
	"percent": func(level, max uint16) string {
		if max == 0 {
			return "0%"
		}
		return fmt.Sprintf("%d%%", int(level)*100/int(max))
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>LED {{.Config.Name}}</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.lit { color: green; font-weight: bold; }
.dark { color: #888; }
.unknown { color: orange; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>LED {{.Config.Name}}</h1>

<h2>Channel</h2>
<table>
{{if .Ready}}<tr><th>Brightness</th><td id="brightness" class="{{if .State.Brightness}}lit{{else}}dark{{end}}">{{.State.Brightness}} / {{.State.MaxBrightness}} ({{percent .State.Brightness .State.MaxBrightness}})</td></tr>
<tr><th>Target</th><td>{{.State.Target}}</td></tr>
<tr><th>Phase</th><td id="phase">{{.Phase}}</td></tr>
<tr><th>Mode</th><td>{{.State.Mode}}</td></tr>
<tr><th>Pin</th><td>{{.State.Pin}} ({{.Config.Pin}})</td></tr>{{else}}<tr><th>State</th><td class="unknown">UNKNOWN</td></tr>{{end}}
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
</table>

<h2>Commands</h2>
<table>
<tr><th>Received</th><td>{{.Counts.Commands}}</td></tr>
<tr><th>Changed</th><td>{{.Counts.Changed}}</td></tr>
<tr><th>Unchanged</th><td>{{.Counts.Unchanged}}</td></tr>
<tr><th>Rejected</th><td>{{.Counts.Rejected}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Driver</th><td>{{.Config.Driver}}</td></tr>
<tr><th>Flash interval</th><td>{{.Config.FlashIntervalMs}}ms</td></tr>
<tr><th>Fade interval</th><td>{{.Config.FadeIntervalMs}}ms</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatS 0}}disabled{{else}}{{.Config.HeartbeatS}}s{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a> | <a href="/metrics">metrics</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	// Snapshot has Uptime() and State.Phase() methods but the template needs fields.
	data := struct {
		status.Snapshot
		Uptime time.Duration
		Phase  string
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
		Phase:    string(snap.State.Phase()),
	}
	indexTmpl.Execute(w, data)
}
