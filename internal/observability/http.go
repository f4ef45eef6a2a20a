package observability

import (
	"net"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// ClientMeta identifies the caller of a realtime connection in lifecycle
// events and logs.
type ClientMeta struct {
	RequestID string
	DeviceID  string
	IP        string
}

// ClientMetaFromRequest reads caller metadata. Browsers cannot attach
// headers to a websocket handshake, so the device and request ids also
// come from the device_id and request_id query parameters. A missing
// request id is generated.
func ClientMetaFromRequest(r *http.Request) ClientMeta {
	query := r.URL.Query()
	meta := ClientMeta{
		RequestID: firstNonEmpty(r.Header.Get("X-Request-Id"), query.Get("request_id")),
		DeviceID:  firstNonEmpty(r.Header.Get("X-Device-Id"), query.Get("device_id")),
		IP:        clientIP(r),
	}
	if meta.RequestID == "" {
		meta.RequestID = uuid.NewString()
	}
	return meta
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if realIP := strings.TrimSpace(r.Header.Get("X-Real-Ip")); realIP != "" {
		return realIP
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
