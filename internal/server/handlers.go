package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/farmsight/agrirag/internal/sensor"
)

// handleSensor handles POST /sensor. It upserts the payload as the latest
// reading for the device; a repeat post from the same device replaces the
// previous reading.
func (s *Server) handleSensor(w http.ResponseWriter, r *http.Request) {
	var req sensorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.metrics.sensorSavesTotal.WithLabelValues(outcomeError).Inc()
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.DeviceID) == "" {
		s.metrics.sensorSavesTotal.WithLabelValues(outcomeError).Inc()
		writeError(w, r, http.StatusBadRequest, "device_id is required")
		return
	}
	if req.Payload == nil || req.Payload.Len() == 0 {
		s.metrics.sensorSavesTotal.WithLabelValues(outcomeError).Inc()
		writeError(w, r, http.StatusBadRequest, "payload is required")
		return
	}

	if err := s.store.Save(r.Context(), req.DeviceID, req.Payload); err != nil {
		s.metrics.sensorSavesTotal.WithLabelValues(outcomeError).Inc()
		writeError(w, r, http.StatusInternalServerError, err.Error())
		return
	}

	s.metrics.sensorSavesTotal.WithLabelValues(outcomeOK).Inc()
	writeJSON(w, http.StatusOK, sensorResponse{Status: "ok", Message: "sensor saved"})
}

// handleAsk handles POST /ask. With a device_id the device's latest reading
// augments the prompt; without one (or for a device that has never reported)
// the question goes through bare and sensor_payload comes back null.
func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.observeAsk(outcomeError, start)
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		s.observeAsk(outcomeError, start)
		writeError(w, r, http.StatusBadRequest, "question required")
		return
	}

	var payload *sensor.Payload
	if req.DeviceID != "" {
		reading, err := s.store.Latest(r.Context(), req.DeviceID)
		if err != nil {
			s.observeAsk(outcomeError, start)
			writeError(w, r, http.StatusInternalServerError, err.Error())
			return
		}
		if reading != nil {
			payload = reading.Payload
		}
	}

	answer, err := s.advisor.Answer(r.Context(), req.Question, payload)
	if err != nil {
		s.observeAsk(outcomeError, start)
		writeError(w, r, http.StatusInternalServerError, err.Error())
		return
	}

	s.observeAsk(outcomeOK, start)
	writeJSON(w, http.StatusOK, askResponse{Answer: answer, SensorPayload: payload})
}

// observeAsk records the outcome and duration of one /ask request.
func (s *Server) observeAsk(outcome string, start time.Time) {
	s.metrics.askRequestsTotal.WithLabelValues(outcome).Inc()
	s.metrics.askDurationSeconds.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
}
