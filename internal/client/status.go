package client

// Status is the observable state of a Manager.
type Status string

const (
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
	StatusDisconnected Status = "disconnected"
	StatusError        Status = "error"
	// StatusStopped is terminal; it follows Stop.
	StatusStopped Status = "stopped"
)
