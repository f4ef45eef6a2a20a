package ws

import (
	"time"

	"github.com/google/uuid"
)

type ConnInfo struct {
	ConnID      string
	Kind        string
	ResourceID  string
	UserID      string
	DeviceID    string
	IP          string
	RequestID   string
	TraceID     string
	ConnectedAt time.Time
}

func newConnID() string {
	return uuid.NewString()
}
