package models

// EventType is a workflow lifecycle transition emitted by the orchestrator.
type EventType string

const (
	EventTaskSuccess EventType = "task_success"
	EventTaskFailed  EventType = "task_failed"
	EventTaskRetry   EventType = "task_retry"
	EventSLAMiss     EventType = "sla_miss"
	EventDagSuccess  EventType = "dag_success"
	EventDagFailed   EventType = "dag_failed"
)

// EventTypes lists every supported event type.
var EventTypes = []EventType{
	EventTaskSuccess, EventTaskFailed, EventTaskRetry,
	EventSLAMiss, EventDagSuccess, EventDagFailed,
}

// Valid reports whether t is a supported event type.
func (t EventType) Valid() bool {
	switch t {
	case EventTaskSuccess, EventTaskFailed, EventTaskRetry,
		EventSLAMiss, EventDagSuccess, EventDagFailed:
		return true
	}
	return false
}

// Event is a single inbound lifecycle event. Both task-scoped and
// DAG-run-scoped payloads decode into this shape; fields absent from a
// given payload stay at their zero value and render as empty in templates.
type Event struct {
	Type            EventType `json:"event_type"`
	DagID           string    `json:"dag_id"`
	TaskID          string    `json:"task_id,omitempty"`
	RunID           string    `json:"run_id,omitempty"`
	ExecutionDate   string    `json:"execution_date,omitempty"`
	State           string    `json:"state,omitempty"`
	TryNumber       int       `json:"try_number,omitempty"`
	MaxTries        int       `json:"max_tries,omitempty"`
	StartDate       string    `json:"start_date,omitempty"`
	EndDate         string    `json:"end_date,omitempty"`
	Duration        float64   `json:"duration,omitempty"`
	Hostname        string    `json:"hostname,omitempty"`
	LogURL          string    `json:"log_url,omitempty"`
	ExternalTrigger bool      `json:"external_trigger,omitempty"`
}

// Context flattens the event into the variable map used for template
// rendering. Zero-valued numeric fields are omitted so templates that do
// not reference them never see a stray "0".
func (e Event) Context() map[string]any {
	ctx := map[string]any{
		"dag_id":         e.DagID,
		"task_id":        e.TaskID,
		"run_id":         e.RunID,
		"execution_date": e.ExecutionDate,
		"state":          e.State,
		"start_date":     e.StartDate,
		"end_date":       e.EndDate,
		"hostname":       e.Hostname,
		"log_url":        e.LogURL,
	}
	if e.TryNumber > 0 {
		ctx["try_number"] = e.TryNumber
	}
	if e.MaxTries > 0 {
		ctx["max_tries"] = e.MaxTries
	}
	if e.Duration > 0 {
		ctx["duration"] = e.Duration
	}
	if e.ExternalTrigger {
		ctx["external_trigger"] = e.ExternalTrigger
	}
	return ctx
}
