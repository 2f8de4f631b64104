package sensor

import (
	"encoding/json"
	"testing"
)

func Test_Payload_PreservesKeyOrder(t *testing.T) {
	t.Parallel()

	doc := `{"soil_moisture": 18.5, "ph": 6.4, "temperature_c": 31.2, "crop": "tomato"}`

	var p Payload
	if err := json.Unmarshal([]byte(doc), &p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	want := []string{"soil_moisture", "ph", "temperature_c", "crop"}
	fields := p.Fields()
	if len(fields) != len(want) {
		t.Fatalf("want %d fields, got %d", len(want), len(fields))
	}
	for i, k := range want {
		if fields[i].Key != k {
			t.Errorf("field[%d]: want key %q, got %q", i, k, fields[i].Key)
		}
	}
}

func Test_Payload_NumbersKeepTextualForm(t *testing.T) {
	t.Parallel()

	var p Payload
	if err := json.Unmarshal([]byte(`{"ph": 6.4, "count": 12}`), &p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	lines := p.Lines()
	if lines[0] != "ph: 6.4" {
		t.Errorf("want 'ph: 6.4', got %q", lines[0])
	}
	if lines[1] != "count: 12" {
		t.Errorf("want 'count: 12', got %q", lines[1])
	}
}

func Test_Payload_RoundTrip(t *testing.T) {
	t.Parallel()

	doc := `{"b": "two", "a": 1, "flag": true, "nested": {"x": 1}}`

	var p Payload
	if err := json.Unmarshal([]byte(doc), &p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	out, err := json.Marshal(&p)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var p2 Payload
	if err := json.Unmarshal(out, &p2); err != nil {
		t.Fatalf("re-unmarshal: %v", err)
	}
	if p2.String() != p.String() {
		t.Errorf("round trip changed rendering:\n  before: %q\n  after:  %q", p.String(), p2.String())
	}
	if p2.Fields()[0].Key != "b" {
		t.Errorf("round trip lost key order: first key %q", p2.Fields()[0].Key)
	}
}

func Test_Payload_NilMarshalsToNull(t *testing.T) {
	t.Parallel()

	var p *Payload
	out, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("marshal nil: %v", err)
	}
	if string(out) != "null" {
		t.Errorf("want null, got %s", out)
	}
}

func Test_Payload_RejectsNonObject(t *testing.T) {
	t.Parallel()

	var p Payload
	if err := json.Unmarshal([]byte(`[1, 2, 3]`), &p); err == nil {
		t.Error("want error for JSON array, got nil")
	}
	if err := json.Unmarshal([]byte(`"scalar"`), &p); err == nil {
		t.Error("want error for JSON string, got nil")
	}
}

func Test_Payload_DuplicateKeysKeepLastValue(t *testing.T) {
	t.Parallel()

	var p Payload
	if err := json.Unmarshal([]byte(`{"ph": 6.0, "ec": 1.1, "ph": 6.4}`), &p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if p.Len() != 2 {
		t.Fatalf("want 2 fields after dedupe, got %d", p.Len())
	}
	if got := p.Lines()[0]; got != "ph: 6.4" {
		t.Errorf("want last value at first position, got %q", got)
	}
}

func Test_Payload_Lines_CompositeValues(t *testing.T) {
	t.Parallel()

	var p Payload
	if err := json.Unmarshal([]byte(`{"zones": ["a", "b"], "ok": false, "note": null}`), &p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	lines := p.Lines()
	if lines[0] != `zones: ["a","b"]` {
		t.Errorf("array rendering: got %q", lines[0])
	}
	if lines[1] != "ok: false" {
		t.Errorf("bool rendering: got %q", lines[1])
	}
	if lines[2] != "note: null" {
		t.Errorf("null rendering: got %q", lines[2])
	}
}
