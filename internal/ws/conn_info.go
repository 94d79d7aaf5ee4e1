package ws

import "time"

// ConnInfo describes one live subscription: who holds it, the scope key it
// is registered under, and enough request metadata to correlate logs and
// traces for the connection's lifetime.
type ConnInfo struct {
	ConnID      string
	UserID      int
	Role        string
	Scope       string
	DeviceID    string
	IP          string
	RequestID   string
	TraceID     string
	ConnectedAt time.Time
}
