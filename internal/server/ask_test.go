package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

// ---------------------------------------------------------------------------
// POST /ask — three scenarios: no device, known device, unknown device
// ---------------------------------------------------------------------------

func TestHandleAsk_WithoutDevice(t *testing.T) {
	t.Parallel()

	adv := &fakeAdvisor{answer: "Irrigate at dawn."}
	s, _ := newTestServer(t, adv)

	w := postJSON(s.handleAsk, "/ask", `{"question":"When should I irrigate?"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp askResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Answer != "Irrigate at dawn." {
		t.Errorf("answer: got %q", resp.Answer)
	}
	if resp.SensorPayload != nil {
		t.Errorf("sensor_payload should be null without a device, got %v", resp.SensorPayload)
	}
	if adv.lastPayload != nil {
		t.Error("advisor should receive nil payload without a device")
	}

	// The JSON must carry an explicit null, not omit the field.
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(w.Body.Bytes(), &raw); err != nil {
		t.Fatal(err)
	}
	if string(raw["sensor_payload"]) != "null" {
		t.Errorf("sensor_payload field: want null, got %s", raw["sensor_payload"])
	}
}

func TestHandleAsk_WithKnownDevice(t *testing.T) {
	t.Parallel()

	adv := &fakeAdvisor{answer: "Hold off on fertilizer."}
	s, store := newTestServer(t, adv)

	postJSON(s.handleSensor, "/sensor", `{"device_id":"field-7","payload":{"soil_moisture":18.5,"ph":6.4}}`)
	if r, err := store.Latest(context.Background(), "field-7"); err != nil || r == nil {
		t.Fatalf("seed reading: %v %v", r, err)
	}

	w := postJSON(s.handleAsk, "/ask", `{"device_id":"field-7","question":"Fertilizer now?"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp askResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.SensorPayload == nil {
		t.Fatal("sensor_payload should echo the stored reading")
	}
	if resp.SensorPayload.String() != "soil_moisture: 18.5\nph: 6.4" {
		t.Errorf("sensor_payload: got %q", resp.SensorPayload.String())
	}
	if adv.lastPayload == nil || adv.lastPayload.String() != "soil_moisture: 18.5\nph: 6.4" {
		t.Errorf("advisor should receive the stored payload, got %v", adv.lastPayload)
	}
	if adv.lastQuestion != "Fertilizer now?" {
		t.Errorf("advisor question: got %q", adv.lastQuestion)
	}
}

func TestHandleAsk_WithUnknownDevice(t *testing.T) {
	t.Parallel()

	adv := &fakeAdvisor{answer: "General advice."}
	s, _ := newTestServer(t, adv)

	w := postJSON(s.handleAsk, "/ask", `{"device_id":"never-seen","question":"Any advice?"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("unknown device must not fail the request, got %d", w.Code)
	}
	var resp askResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.SensorPayload != nil {
		t.Errorf("sensor_payload should be null for unknown device, got %v", resp.SensorPayload)
	}
	if adv.lastPayload != nil {
		t.Error("advisor should receive nil payload for unknown device")
	}
}

func TestHandleAsk_EmptyQuestion(t *testing.T) {
	t.Parallel()

	adv := &fakeAdvisor{answer: "should never be called"}
	s, _ := newTestServer(t, adv)

	for _, body := range []string{`{}`, `{"question":""}`, `{"question":"   "}`} {
		w := postJSON(s.handleAsk, "/ask", body)
		if w.Code != http.StatusBadRequest {
			t.Errorf("body %s: expected 400, got %d", body, w.Code)
		}
	}
	if adv.lastQuestion != "" {
		t.Error("advisor must not run for an empty question")
	}
}

func TestHandleAsk_InvalidJSON(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t, &fakeAdvisor{})
	w := postJSON(s.handleAsk, "/ask", `{{`)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestHandleAsk_AdvisorError(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t, &fakeAdvisor{err: errors.New("provider unavailable")})
	w := postJSON(s.handleAsk, "/ask", `{"question":"q"}`)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	var resp errorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if resp.Error != "provider unavailable" {
		t.Errorf("error body: got %q", resp.Error)
	}
}

func TestHandleAsk_StoreErrorIs500(t *testing.T) {
	t.Parallel()

	s, err := newWithRegistry(failingStore{}, &fakeAdvisor{answer: "x"}, &Config{},
		prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	t.Cleanup(s.stopRL)

	w := postJSON(s.handleAsk, "/ask", `{"device_id":"field-7","question":"q"}`)
	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected 500 on store error, got %d", w.Code)
	}
}
