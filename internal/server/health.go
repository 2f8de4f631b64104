package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/farmsight/agrirag/internal/logging"
)

// probeTimeout caps each dependency probe so /api/ready stays responsive
// when a dependency hangs instead of refusing connections.
const probeTimeout = 5 * time.Second

// Pinger reports whether one dependency is reachable. A nil return means
// healthy; errors should say what failed. Implementations must tolerate
// concurrent calls.
type Pinger interface {
	Ping(ctx context.Context) error

	// Name labels the dependency in readiness responses, e.g. "sensor-db".
	Name() string
}

// MultiPinger runs several probes as one, failing on the first error.
type MultiPinger struct {
	pingers []Pinger
}

// NewMultiPinger combines the given probes into a single Pinger.
func NewMultiPinger(pingers ...Pinger) *MultiPinger {
	return &MultiPinger{pingers: pingers}
}

// Ping probes each dependency in order; the first failure is returned
// prefixed with its name.
func (m *MultiPinger) Ping(ctx context.Context) error {
	for _, p := range m.pingers {
		if err := p.Ping(ctx); err != nil {
			return fmt.Errorf("%s: %w", p.Name(), err)
		}
	}
	return nil
}

func (m *MultiPinger) Name() string { return "multi" }

// readyCheck is one dependency's result inside a readiness response.
type readyCheck struct {
	Name string `json:"name"`
	OK   bool   `json:"ok"`
	// Error carries the failure reason; omitted when OK.
	Error string `json:"error,omitempty"`
}

// readyResponse is the body of GET /api/ready.
type readyResponse struct {
	Ready  bool         `json:"ready"`
	Checks []readyCheck `json:"checks"`
}

// handleReady probes every registered dependency with its own short timeout
// and reports 200 only if all pass, 503 otherwise. /api/health answers
// liveness; this endpoint answers whether the service can actually do work.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	resp := readyResponse{Ready: true}

	for _, p := range s.pingers {
		probeCtx, cancel := context.WithTimeout(r.Context(), probeTimeout)
		err := p.Ping(probeCtx)
		cancel()

		check := readyCheck{Name: p.Name(), OK: err == nil}
		if err != nil {
			check.Error = err.Error()
			resp.Ready = false
			log.Warn("readiness probe failed",
				slog.String("dependency", p.Name()),
				slog.Any("error", err),
			)
		}
		resp.Checks = append(resp.Checks, check)
	}

	status := http.StatusOK
	if !resp.Ready {
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, resp)
}
