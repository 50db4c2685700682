package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chat_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)

	// Business metrics
	MessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_messages_sent_total",
			Help: "Total text messages persisted",
		},
	)

	ImagesUploaded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_images_uploaded_total",
			Help: "Total images persisted",
		},
	)

	OTPsIssued = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_otps_issued_total",
			Help: "Total one-time passcodes issued",
		},
	)

	OTPsVerified = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_otps_verified_total",
			Help: "Total OTP verification attempts",
		},
		[]string{"result"}, // "ok" or "invalid"
	)

	// Codec metrics
	EncryptDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "chat_encrypt_duration_seconds",
			Help:    "Payload encryption latency",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05},
		},
	)

	// Live channel metrics
	ConnectedClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chat_connected_clients",
			Help: "Currently connected websocket listeners",
		},
	)

	// Rate limit metrics
	RateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_rate_limit_hits_total",
			Help: "Total rate limit hits",
		},
		[]string{"endpoint"},
	)
)
