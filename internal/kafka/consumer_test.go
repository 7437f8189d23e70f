package kafka

import (
	"testing"

	"github.com/treerootboy/airflow-notification-plugin/internal/models"
)

func TestDecodeEvent(t *testing.T) {
	raw := `{"event_type":"task_failed","dag_id":"etl_daily","task_id":"load","try_number":2}`
	ev, err := decodeEvent([]byte(raw))
	if err != nil {
		t.Fatal(err)
	}
	if ev.Type != models.EventTaskFailed || ev.DagID != "etl_daily" || ev.TaskID != "load" {
		t.Fatalf("decoded %+v", ev)
	}
}

func TestDecodeEventInvalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", `{{{`},
		{"unknown event type", `{"event_type":"task_started","dag_id":"etl_daily"}`},
		{"missing event type", `{"dag_id":"etl_daily"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := decodeEvent([]byte(tt.data)); err == nil {
				t.Errorf("decodeEvent(%q) succeeded, want error", tt.data)
			}
		})
	}
}

func TestDecodeEventMissingDagID(t *testing.T) {
	// A missing dag_id is accepted here; the dispatcher logs the warning.
	ev, err := decodeEvent([]byte(`{"event_type":"dag_failed"}`))
	if err != nil {
		t.Fatal(err)
	}
	if ev.DagID != "" {
		t.Errorf("dag_id = %q", ev.DagID)
	}
}
