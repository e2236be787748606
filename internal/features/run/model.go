package run

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Status string

const (
	// StatusScheduled marks a duration-based run awaiting its fire time.
	StatusScheduled Status = "scheduled"
	// StatusRunning marks a claimed run whose action may be in flight.
	StatusRunning Status = "running"

	// Terminal states. A run is immutable once terminal.
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
	// StatusConditionNotMet records an execution-time gate that came up
	// false. Distinct from failure: the action was never invoked.
	StatusConditionNotMet Status = "condition_not_met"
	// StatusCanceled records a scheduled run removed before its fire time.
	StatusCanceled Status = "canceled"
	// StatusInvalidConfig records a run skipped because its automation or
	// pub no longer exists.
	StatusInvalidConfig Status = "invalid_configuration"
)

// Terminal reports whether the status ends the run's lifecycle.
func (s Status) Terminal() bool {
	switch s {
	case StatusSuccess, StatusFailure, StatusConditionNotMet, StatusCanceled, StatusInvalidConfig:
		return true
	}
	return false
}

// ActionRunResult captures what the invoked action reported.
type ActionRunResult struct {
	Status Status                 `json:"status" bson:"status"`
	Result map[string]interface{} `json:"result,omitempty" bson:"result,omitempty"`
	Error  string                 `json:"error,omitempty" bson:"error,omitempty"`
}

// AutomationRun is one instance of an automation firing for one pub.
// History is append-only: runs transition to a terminal state exactly once
// and are never updated afterwards.
type AutomationRun struct {
	ID           primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	AutomationID primitive.ObjectID `json:"automation_id" bson:"automation_id"`
	TriggerID    primitive.ObjectID `json:"trigger_id" bson:"trigger_id"`
	PubID        primitive.ObjectID `json:"pub_id" bson:"pub_id"`
	StageID      primitive.ObjectID `json:"stage_id" bson:"stage_id"`
	Status       Status             `json:"status" bson:"status"`
	ScheduledFor *time.Time         `json:"scheduled_for,omitempty" bson:"scheduled_for,omitempty"`
	StartedAt    *time.Time         `json:"started_at,omitempty" bson:"started_at,omitempty"`
	FinishedAt   *time.Time         `json:"finished_at,omitempty" bson:"finished_at,omitempty"`
	ActionRun    *ActionRunResult   `json:"action_run,omitempty" bson:"action_run,omitempty"`
	CreatedAt    time.Time          `json:"created_at" bson:"created_at"`
}
