package template

import (
	"strings"
	"testing"

	"github.com/treerootboy/airflow-notification-plugin/internal/models"
)

func TestDefaultCoversAllEventTypes(t *testing.T) {
	for _, event := range models.EventTypes {
		tmpl := Default(event)
		if tmpl.Body == "" {
			t.Errorf("Default(%s) has empty body", event)
		}
		if !tmpl.Active {
			t.Errorf("Default(%s) is not active", event)
		}
		if !strings.Contains(tmpl.Body, "{{ dag_id }}") {
			t.Errorf("Default(%s) body %q does not reference dag_id", event, tmpl.Body)
		}
	}
}

func TestDefaultUnknownEvent(t *testing.T) {
	tmpl := Default(models.EventType("something_else"))
	if tmpl.Body != genericBody {
		t.Errorf("got %q, want generic body", tmpl.Body)
	}
}

func TestDefaultRendersCleanly(t *testing.T) {
	ctx := map[string]any{
		"dag_id":         "etl_daily",
		"task_id":        "load",
		"execution_date": "2024-05-01T00:00:00Z",
	}
	for _, event := range models.EventTypes {
		msg, err := Render(Default(event).Body, ctx)
		if err != nil {
			t.Fatalf("Default(%s): %v", event, err)
		}
		if strings.Contains(msg, "{{") {
			t.Errorf("Default(%s) rendered %q with leftover placeholder", event, msg)
		}
		if !strings.Contains(msg, "etl_daily") {
			t.Errorf("Default(%s) rendered %q without dag id", event, msg)
		}
	}
}
