package template

import "github.com/treerootboy/airflow-notification-plugin/internal/models"

// defaultBodies are the compiled-in message bodies used when no template
// row is configured for an event type. Every event type has one, so
// template resolution never fails.
var defaultBodies = map[models.EventType]string{
	models.EventTaskSuccess: "✅ Task {{ task_id }} in DAG {{ dag_id }} succeeded at {{ execution_date }}",
	models.EventTaskFailed:  "❌ Task {{ task_id }} in DAG {{ dag_id }} failed at {{ execution_date }}",
	models.EventTaskRetry:   "🔄 Task {{ task_id }} in DAG {{ dag_id }} is retrying at {{ execution_date }}",
	models.EventSLAMiss:     "⏰ SLA missed for task {{ task_id }} in DAG {{ dag_id }}",
	models.EventDagSuccess:  "✅ DAG {{ dag_id }} completed successfully at {{ execution_date }}",
	models.EventDagFailed:   "❌ DAG {{ dag_id }} failed at {{ execution_date }}",
}

const genericBody = "Event occurred: {{ dag_id }}"

// Default returns the built-in channel-agnostic template for an event
// type. Unrecognized event types fall back to a generic body.
func Default(event models.EventType) models.Template {
	body, ok := defaultBodies[event]
	if !ok {
		body = genericBody
	}
	return models.Template{
		Name:      "default_" + string(event),
		EventType: event,
		Body:      body,
		Active:    true,
	}
}
