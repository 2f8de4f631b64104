package advisor

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/farmsight/agrirag/internal/sensor"
)

func payloadFromJSON(t *testing.T, doc string) *sensor.Payload {
	t.Helper()
	var p sensor.Payload
	if err := json.Unmarshal([]byte(doc), &p); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	return &p
}

func Test_Compose_NoPayloadPassesThrough(t *testing.T) {
	t.Parallel()

	q := "When should I irrigate my wheat field?"
	if got := Compose(q, nil); got != q {
		t.Errorf("question should pass through unchanged, got %q", got)
	}
}

func Test_Compose_EmptyPayloadPassesThrough(t *testing.T) {
	t.Parallel()

	q := "When should I irrigate?"
	if got := Compose(q, payloadFromJSON(t, `{}`)); got != q {
		t.Errorf("empty payload should pass through, got %q", got)
	}
}

func Test_Compose_StructureWithPayload(t *testing.T) {
	t.Parallel()

	q := "Should I add fertilizer now?"
	p := payloadFromJSON(t, `{"soil_moisture": 18.5, "ph": 6.4, "temperature_c": 31.2}`)
	got := Compose(q, p)

	if !strings.HasPrefix(got, "You are an agritech assistant.") {
		t.Errorf("missing preamble: %q", got[:60])
	}
	wantBlock := "[Sensor Readings]\nsoil_moisture: 18.5\nph: 6.4\ntemperature_c: 31.2\n\n"
	if !strings.Contains(got, wantBlock) {
		t.Errorf("sensor block wrong or out of order:\n%s", got)
	}
	if !strings.Contains(got, "[User Question]\n"+q+"\n\n") {
		t.Errorf("missing user question section:\n%s", got)
	}
	if !strings.Contains(got, "favor the most conservative/safe option") {
		t.Errorf("missing safety trailer:\n%s", got)
	}
	// Sections in order: preamble, readings, question, trailer.
	ri := strings.Index(got, "[Sensor Readings]")
	qi := strings.Index(got, "[User Question]")
	ti := strings.Index(got, "Important:")
	if !(ri < qi && qi < ti) {
		t.Errorf("sections out of order: readings=%d question=%d trailer=%d", ri, qi, ti)
	}
}

func Test_Compose_Deterministic(t *testing.T) {
	t.Parallel()

	p := payloadFromJSON(t, `{"b": 2, "a": 1, "c": 3}`)
	first := Compose("q", p)
	for i := 0; i < 5; i++ {
		if got := Compose("q", p); got != first {
			t.Fatalf("composition not deterministic on iteration %d", i)
		}
	}
	// Keys stay in document order, not sorted.
	if strings.Index(first, "b: 2") > strings.Index(first, "a: 1") {
		t.Error("sensor lines should keep document order, not sorted order")
	}
}
