package sensor

import (
	"context"
	"encoding/json"
	"testing"
)

// openTestStore opens an in-memory SQLiteStore for use in tests.
func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open in-memory store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// payloadFromJSON decodes a JSON document into a Payload, failing the test on error.
func payloadFromJSON(t *testing.T, doc string) *Payload {
	t.Helper()
	var p Payload
	if err := json.Unmarshal([]byte(doc), &p); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	return &p
}

func Test_Store_SaveAndLatest(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	p := payloadFromJSON(t, `{"soil_moisture": 18.5, "ph": 6.4}`)
	if err := s.Save(ctx, "field-7", p); err != nil {
		t.Fatalf("save: %v", err)
	}

	r, err := s.Latest(ctx, "field-7")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if r == nil {
		t.Fatal("want reading, got nil")
	}
	if r.DeviceID != "field-7" {
		t.Errorf("device id: want field-7, got %s", r.DeviceID)
	}
	if r.Payload.String() != "soil_moisture: 18.5\nph: 6.4" {
		t.Errorf("payload rendering: got %q", r.Payload.String())
	}
	if r.UpdatedAt.IsZero() {
		t.Error("updated_at should be set")
	}
}

func Test_Store_SaveReplacesPreviousReading(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.Save(ctx, "field-7", payloadFromJSON(t, `{"ph": 6.0}`)); err != nil {
		t.Fatalf("first save: %v", err)
	}
	if err := s.Save(ctx, "field-7", payloadFromJSON(t, `{"ph": 6.4, "ec": 1.2}`)); err != nil {
		t.Fatalf("second save: %v", err)
	}

	r, err := s.Latest(ctx, "field-7")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if r.Payload.String() != "ph: 6.4\nec: 1.2" {
		t.Errorf("want replaced payload, got %q", r.Payload.String())
	}
}

func Test_Store_LatestUnknownDevice(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)

	r, err := s.Latest(context.Background(), "never-seen")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if r != nil {
		t.Errorf("want nil reading for unknown device, got %+v", r)
	}
}

func Test_Store_DevicesIsolated(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.Save(ctx, "field-1", payloadFromJSON(t, `{"ph": 6.0}`)); err != nil {
		t.Fatalf("save field-1: %v", err)
	}
	if err := s.Save(ctx, "field-2", payloadFromJSON(t, `{"ph": 7.1}`)); err != nil {
		t.Fatalf("save field-2: %v", err)
	}

	r1, err := s.Latest(ctx, "field-1")
	if err != nil {
		t.Fatalf("latest field-1: %v", err)
	}
	if r1.Payload.String() != "ph: 6.0" {
		t.Errorf("field-1 payload: got %q", r1.Payload.String())
	}
}

func Test_Store_SaveValidation(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.Save(ctx, "", payloadFromJSON(t, `{"ph": 6.0}`)); err == nil {
		t.Error("want error for empty device id")
	}
	if err := s.Save(ctx, "field-1", nil); err == nil {
		t.Error("want error for nil payload")
	}
}

func Test_Store_Ping(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)

	if err := s.Ping(context.Background()); err != nil {
		t.Errorf("ping: %v", err)
	}
}
