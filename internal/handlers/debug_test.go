package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"vidchat-service/internal/mocks"
	"vidchat-service/internal/telemetry"
	"vidchat-service/internal/ws"
)

func TestDebugRoutesDisabled(t *testing.T) {
	router := setupRouter(func(r *gin.Engine) {
		RegisterDebugRoutes(r, nil, ws.NewHub(), false)
	})
	assert.Equal(t, http.StatusNotFound, doRequest(router, http.MethodGet, "/debug/connections", "").Code)
}

func TestDebugConnections(t *testing.T) {
	hub := ws.NewHub()
	hub.Add("room:r1", &websocket.Conn{}, ws.ConnInfo{UserID: "u1"})
	hub.Add("chat:s1", &websocket.Conn{}, ws.ConnInfo{UserID: "u2"})
	hub.Add("chat:s1", &websocket.Conn{}, ws.ConnInfo{UserID: "u2"})
	router := setupRouter(func(r *gin.Engine) {
		RegisterDebugRoutes(r, nil, hub, true)
	})

	rec := doRequest(router, http.MethodGet, "/debug/connections", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"total":3,"topics":[
		{"topic":"chat:s1","connections":2,"users":["u2"]},
		{"topic":"room:r1","connections":1,"users":["u1"]}]}`, rec.Body.String())

	rec = doRequest(router, http.MethodGet, "/debug/connections?prefix=room:", "")
	assert.JSONEq(t, `{"total":1,"topics":[{"topic":"room:r1","connections":1,"users":["u1"]}]}`, rec.Body.String())

	assert.Equal(t, http.StatusServiceUnavailable, doRequest(router, http.MethodPost, "/debug/audit", "").Code)
}

func TestDebugAuditProbe(t *testing.T) {
	pub := new(mocks.PublisherMock)
	pub.On("Publish", mock.Anything, "audit.vidchat", mock.MatchedBy(func(env telemetry.AuditEnvelope) bool {
		return env.Payload.Action == "debug.audit_probe" && env.Payload.Resource == "video:v1" && env.RequestID == "req-9"
	})).Return(nil)
	emitter := telemetry.NewAuditEmitter(pub, "audit.vidchat", "vidchat-service", "test")
	router := setupRouter(func(r *gin.Engine) {
		RegisterDebugRoutes(r, emitter, ws.NewHub(), true)
	})

	req := httptest.NewRequest(http.MethodPost, "/debug/audit?resource=video:v1", nil)
	req.Header.Set("X-Request-ID", "req-9")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.JSONEq(t, `{"request_id":"req-9"}`, rec.Body.String())
	pub.AssertExpectations(t)
}
