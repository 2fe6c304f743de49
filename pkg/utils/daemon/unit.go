// Package daemon installs the jiobatt daemon as a systemd service.
package daemon

import (
	"strconv"
	"strings"
)

const (
	// UnitName is the systemd unit jiobatt is installed as.
	UnitName = "jiobatt.service"

	unitDir = "/etc/systemd/system"
)

const unitTemplate = `[Unit]
Description=jiobatt JioFi battery daemon
Wants=network-online.target
After=network-online.target

[Service]
Type=simple
ExecStart=@EXEC@ daemon --config @CONFIG@ --daemon-socket @SOCKET@
ExecReload=/bin/kill -HUP $MAINPID
Restart=on-failure
RestartSec=10
StateDirectory=jiobatt

[Install]
WantedBy=multi-user.target
`

// UnitOptions are the values substituted into the unit file.
type UnitOptions struct {
	ExePath    string
	ConfigPath string
	SocketPath string
}

// RenderUnit returns the unit file text. Paths are quoted for systemd.
func RenderUnit(o UnitOptions) string {
	r := strings.NewReplacer(
		"@EXEC@", quote(o.ExePath),
		"@CONFIG@", quote(o.ConfigPath),
		"@SOCKET@", quote(o.SocketPath),
	)
	return r.Replace(unitTemplate)
}

func quote(s string) string {
	if !strings.ContainsAny(s, " \t\"'\\") {
		return s
	}
	return strconv.Quote(s)
}
