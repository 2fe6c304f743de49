package gui

const (
	tooltipDefault = "jiobatt - JioFi battery"
	tooltipRefresh = "Read the router battery now"
	tooltipRestart = `Restart the router.

The router drops off the network for a minute or two.`
	tooltipQuit = `Quit the jiobatt tray icon, but keep the jiobatt daemon running.

The daemon keeps watching the battery and sending alerts.`
)
