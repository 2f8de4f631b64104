package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/farmsight/agrirag/internal/sensor"
)

// Config holds the HTTP server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1).
	Host string
	// Port is the TCP port to listen on (default: 8000).
	Port int
	// ReadTimeout is the maximum duration for reading the request.
	ReadTimeout time.Duration
	// WriteTimeout is the maximum duration for writing the response.
	// Must cover a full retrieval + generation round trip.
	WriteTimeout time.Duration
	// ShutdownTimeout is the maximum duration for a graceful shutdown.
	ShutdownTimeout time.Duration
	// Logger is the structured logger used by the server and its handlers.
	// If nil, [slog.Default] is used.
	Logger *slog.Logger
	// Pingers is the ordered list of dependency probes run by GET /api/ready.
	// If empty, /api/ready returns 200 with no checks (liveness-only mode).
	Pingers []Pinger
	// RateLimit is the sustained request rate allowed per IP on rate-limited
	// endpoints (requests/second). Defaults to 10 if zero.
	RateLimit float64
	// RateBurst is the maximum instantaneous burst per IP. Defaults to 20 if zero.
	RateBurst int
	// APIKey is the Bearer token required on POST /sensor and POST /ask.
	// If empty, authentication is disabled (development mode).
	APIKey string
}

// answerer is the interface handleAsk calls to produce an answer.
// *advisor.Service satisfies it; tests inject a fake.
type answerer interface {
	// Answer generates an answer for question, optionally augmented with the
	// given sensor payload.
	Answer(ctx context.Context, question string, payload *sensor.Payload) (string, error)
}

// Server is the HTTP server exposing the advisory API.
type Server struct {
	// store persists and retrieves per-device sensor readings.
	store sensor.Store
	// advisor answers questions; set to *advisor.Service in production,
	// overridden by a fake in tests.
	advisor answerer
	// cfg holds the resolved server configuration.
	cfg *Config
	// httpServer is the underlying net/http server.
	httpServer *http.Server
	// log is the structured logger for this server instance.
	log *slog.Logger
	// pingers is the ordered list of dependency probes for GET /api/ready.
	pingers []Pinger
	// metrics holds this instance's Prometheus metrics.
	metrics *serverMetrics
	// stopRL stops the rate limiter's background eviction goroutine on shutdown.
	stopRL func()
}

// sensorRequest is the JSON body for POST /sensor.
type sensorRequest struct {
	// DeviceID identifies the reporting device.
	DeviceID string `json:"device_id"`
	// Payload is the free-form telemetry document.
	Payload *sensor.Payload `json:"payload"`
}

// sensorResponse is the JSON response for POST /sensor.
type sensorResponse struct {
	// Status is "ok" on success.
	Status string `json:"status"`
	// Message is a short human-readable confirmation.
	Message string `json:"message"`
}

// askRequest is the JSON body for POST /ask.
type askRequest struct {
	// DeviceID optionally selects the device whose latest reading augments
	// the question.
	DeviceID string `json:"device_id,omitempty"`
	// Question is the farmer's natural-language question.
	Question string `json:"question"`
}

// askResponse is the JSON response for POST /ask.
type askResponse struct {
	// Answer is the generated advisory text.
	Answer string `json:"answer"`
	// SensorPayload echoes the reading used for composition, or null when
	// no device was given or the device has never reported.
	SensorPayload *sensor.Payload `json:"sensor_payload"`
}

// errorResponse is the JSON body for error statuses.
type errorResponse struct {
	// Error is the failure description.
	Error string `json:"error"`
}
