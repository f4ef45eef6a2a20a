package observability

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vidchat_http_requests_total",
			Help: "Total number of HTTP requests processed by the service.",
		},
		[]string{"method", "route", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vidchat_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
	grpcServerHandledTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "grpc_server_handled_total",
			Help: "Total number of gRPC requests handled by the server.",
		},
		[]string{"grpc_service", "grpc_method", "grpc_code"},
	)
	wsActiveConnections = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "vidchat_ws_active_connections",
			Help: "Number of active websocket connections.",
		},
		[]string{"kind"},
	)
	wsEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vidchat_ws_events_total",
			Help: "Total number of websocket events.",
		},
		[]string{"kind", "event"},
	)
	amqpPublishErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "vidchat_amqp_publish_errors_total",
			Help: "Total number of AMQP publish errors.",
		},
	)
	relaySessionsActive = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "vidchat_relay_sessions_active",
			Help: "Number of open relay sessions.",
		},
		[]string{"kind"},
	)
	relayEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vidchat_relay_events_total",
			Help: "Total number of realtime events applied by relay sessions.",
		},
		[]string{"kind", "event"},
	)
	relayEnrichmentFallbacksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "vidchat_relay_enrichment_fallbacks_total",
			Help: "Messages rendered with the anonymous identity after a failed profile lookup.",
		},
	)
	realtimeDroppedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vidchat_realtime_dropped_total",
			Help: "Events dropped because a subscriber buffer was full.",
		},
		[]string{"source"},
	)
	changefeedReconnectsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "vidchat_changefeed_reconnects_total",
			Help: "Number of times the Postgres change listener reconnected.",
		},
	)
	uploadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vidchat_uploads_total",
			Help: "Video uploads by result.",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		grpcServerHandledTotal,
		wsActiveConnections,
		wsEventsTotal,
		amqpPublishErrorsTotal,
		relaySessionsActive,
		relayEventsTotal,
		relayEnrichmentFallbacksTotal,
		realtimeDroppedTotal,
		changefeedReconnectsTotal,
		uploadsTotal,
	)
}

func HTTPMetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		status := c.Writer.Status()

		httpRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

func GRPCServerMetricsUnaryInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		resp, err := handler(ctx, req)
		statusInfo := status.Convert(err)
		service, method := splitFullMethod(info.FullMethod)
		grpcServerHandledTotal.WithLabelValues(service, method, statusInfo.Code().String()).Inc()
		return resp, err
	}
}

func splitFullMethod(fullMethod string) (string, string) {
	parts := strings.Split(fullMethod, "/")
	if len(parts) < 3 {
		return "unknown", "unknown"
	}
	return parts[1], parts[2]
}

func IncWSActive(kind string) {
	wsActiveConnections.WithLabelValues(kind).Inc()
}

func DecWSActive(kind string) {
	wsActiveConnections.WithLabelValues(kind).Dec()
}

func IncWSEvent(kind, event string) {
	wsEventsTotal.WithLabelValues(kind, event).Inc()
}

func IncAMQPPublishError() {
	amqpPublishErrorsTotal.Inc()
}

func IncRelaySessions(kind string) {
	relaySessionsActive.WithLabelValues(kind).Inc()
}

func DecRelaySessions(kind string) {
	relaySessionsActive.WithLabelValues(kind).Dec()
}

func IncRelayEvent(kind, event string) {
	relayEventsTotal.WithLabelValues(kind, event).Inc()
}

func IncEnrichmentFallback() {
	relayEnrichmentFallbacksTotal.Inc()
}

func IncRealtimeDropped(source string) {
	realtimeDroppedTotal.WithLabelValues(source).Inc()
}

func IncChangefeedReconnect() {
	changefeedReconnectsTotal.Inc()
}

func IncUpload(result string) {
	uploadsTotal.WithLabelValues(result).Inc()
}
