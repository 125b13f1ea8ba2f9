package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/weather-station/internal/status"
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
	"ago": func(now, t time.Time) string {
		if t.IsZero() {
			return "never"
		}
		return now.Sub(t).Truncate(100*time.Millisecond).String() + " ago"
	},
	"orNone": func(s string) string {
		if s == "" {
			return "none"
		}
		return s
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta http-equiv="refresh" content="10">
<title>Weather Station</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.value { font-weight: bold; }
.pending { color: orange; }
.error { color: red; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>Weather Station</h1>

<h2>Latest Record</h2>
{{if .HasRecord}}<table>
<tr><th>Pressure</th><td id="pressure" class="value">{{.Record.PressureKPa}} kPa</td></tr>
<tr><th>Humidity</th><td id="humidity" class="value">{{.Record.HumidityPct}} %</td></tr>
<tr><th>Temperature</th><td id="temperature" class="value">{{.Record.TemperatureC}} &deg;C</td></tr>
<tr><th>Updated</th><td>{{ago .Now .RecordTime}}</td></tr>
</table>{{else}}<p class="pending">No record yet.</p>{{end}}

<h2>Sensors</h2>
<table>
<tr><th>DHT humidity</th><td>{{.Humidity.Humidity}} % ({{ago .Now .HumidityTime}})</td></tr>
<tr><th>DHT temperature</th><td>{{.Humidity.Temperature}} &deg;C</td></tr>
<tr><th>DHT last error</th><td{{if .HumidityError}} class="error"{{end}}>{{orNone .HumidityError}}</td></tr>
<tr><th>BMP last error</th><td{{if .PressureError}} class="error"{{end}}>{{orNone .PressureError}}</td></tr>
</table>

<h2>Read Counts</h2>
<table>
<tr><th>DHT ok / failed</th><td>{{.Counts.HumidityOK}} / {{.Counts.HumidityFailed}}</td></tr>
<tr><th>BMP ok / failed</th><td>{{.Counts.PressureOK}} / {{.Counts.PressureFailed}}</td></tr>
<tr><th>Records</th><td>{{.Counts.Records}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{orNone .Config.Broker}}</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Pressure interval</th><td>{{.Config.IntervalMs}}ms</td></tr>
<tr><th>Humidity interval</th><td>{{.Config.HumidityIntervalMs}}ms</td></tr>
<tr><th>Checksum</th><td>{{.Config.Checksum}}</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a> | <a href="/latest">latest</a> | <a href="/metrics">metrics</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) error {
	data := struct {
		status.Snapshot
		Uptime time.Duration
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
	}
	return indexTmpl.Execute(w, data)
}
