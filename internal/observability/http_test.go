package observability

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClientMetaFromHeaders(t *testing.T) {
	req := httptest.NewRequest("GET", "/ws/chat-rooms/r1", nil)
	req.Header.Set("X-Request-Id", "req-1")
	req.Header.Set("X-Device-Id", "dev-1")
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")

	meta := ClientMetaFromRequest(req)

	assert.Equal(t, "req-1", meta.RequestID)
	assert.Equal(t, "dev-1", meta.DeviceID)
	assert.Equal(t, "203.0.113.7", meta.IP)
}

func TestClientMetaFromQuery(t *testing.T) {
	req := httptest.NewRequest("GET", "/ws/live-streams/s1?device_id=dev-2&request_id=req-2", nil)
	req.RemoteAddr = "198.51.100.4:5555"

	meta := ClientMetaFromRequest(req)

	assert.Equal(t, "req-2", meta.RequestID)
	assert.Equal(t, "dev-2", meta.DeviceID)
	assert.Equal(t, "198.51.100.4", meta.IP)
}

func TestClientMetaGeneratesRequestID(t *testing.T) {
	req := httptest.NewRequest("GET", "/ws/chat-rooms/r1", nil)
	req.Header.Set("X-Real-Ip", "192.0.2.9")

	meta := ClientMetaFromRequest(req)

	assert.NotEmpty(t, meta.RequestID)
	assert.Empty(t, meta.DeviceID)
	assert.Equal(t, "192.0.2.9", meta.IP)
}

type failingPublisher struct {
	calls int
}

func (p *failingPublisher) PublishWithHeaders(ctx context.Context, routingKey string, event any, headers map[string]string) error {
	p.calls++
	return errors.New("broker down")
}

func TestPublishEventWithoutPublisher(t *testing.T) {
	SetPublisher(nil)
	assert.NoError(t, PublishEvent(context.Background(), "ws_events.room", EventEnvelope{EventType: "ws"}, nil))
}

func TestPublishEventReturnsPublisherError(t *testing.T) {
	pub := &failingPublisher{}
	SetPublisher(pub)
	defer SetPublisher(nil)

	err := PublishEvent(context.Background(), "ws_events.room", EventEnvelope{EventType: "ws"}, BuildHeaders("req-1", "trace-1"))

	assert.Error(t, err)
	assert.Equal(t, 1, pub.calls)
}

func TestBuildHeadersSkipsEmpty(t *testing.T) {
	assert.Equal(t, map[string]string{"x-request-id": "req-1"}, BuildHeaders("req-1", ""))
	assert.Empty(t, BuildHeaders("", ""))
}
