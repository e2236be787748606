package automation

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"go-pubflow/internal/features/condition"
)

// TriggerEvent enumerates the event kinds a trigger may watch.
type TriggerEvent string

const (
	// Instantaneous stage events.
	EventPubEnteredStage TriggerEvent = "pub_entered_stage"
	EventPubLeftStage    TriggerEvent = "pub_left_stage"

	// Duration-based: fires N seconds after a pub enters the stage.
	EventPubInStageFor TriggerEvent = "pub_in_stage_for"

	// Sequential: fires on another automation's outcome.
	EventAutomationSucceeded TriggerEvent = "automation_succeeded"
	EventAutomationFailed    TriggerEvent = "automation_failed"

	// External intake.
	EventManual  TriggerEvent = "manual"
	EventWebhook TriggerEvent = "webhook"
)

// IsSequential reports whether the event watches another automation's
// outcome and therefore requires SourceAutomationID.
func (e TriggerEvent) IsSequential() bool {
	return e == EventAutomationSucceeded || e == EventAutomationFailed
}

// IsDurationBased reports whether matching creates a scheduled run instead
// of dispatching immediately.
func (e TriggerEvent) IsDurationBased() bool {
	return e == EventPubInStageFor
}

// Trigger is one event specification on an automation.
type Trigger struct {
	ID                 primitive.ObjectID     `json:"id" bson:"_id"`
	Event              TriggerEvent           `json:"event" bson:"event"`
	Config             map[string]interface{} `json:"config,omitempty" bson:"config,omitempty"`
	SourceAutomationID *primitive.ObjectID    `json:"source_automation_id,omitempty" bson:"source_automation_id,omitempty"`
}

// Duration reads the duration config of a pub_in_stage_for trigger.
func (t Trigger) Duration() (time.Duration, bool) {
	raw, ok := t.Config["duration"]
	if !ok {
		return 0, false
	}
	switch v := raw.(type) {
	case int:
		return time.Duration(v) * time.Second, v > 0
	case int32:
		return time.Duration(v) * time.Second, v > 0
	case int64:
		return time.Duration(v) * time.Second, v > 0
	case float64:
		return time.Duration(v * float64(time.Second)), v > 0
	default:
		return 0, false
	}
}

// ConditionTiming decides when the condition tree is evaluated relative to
// the trigger and the (possibly deferred) execution moment.
type ConditionTiming string

const (
	TimingOnTrigger   ConditionTiming = "on_trigger"
	TimingOnExecution ConditionTiming = "on_execution"
	TimingBoth        ConditionTiming = "both"
)

// ChecksTrigger reports whether the condition gates candidate selection.
func (t ConditionTiming) ChecksTrigger() bool {
	return t == TimingOnTrigger || t == TimingBoth
}

// ChecksExecution reports whether the condition is re-checked at the
// execution moment against fresh context.
func (t ConditionTiming) ChecksExecution() bool {
	return t == TimingOnExecution || t == TimingBoth
}

// ActionInvocation names the single opaque action an automation runs.
type ActionInvocation struct {
	Action string                 `json:"action" bson:"action"`
	Config map[string]interface{} `json:"config,omitempty" bson:"config,omitempty"`
}

// AutomationDefinition is the authored aggregate: triggers, optional
// condition tree, timing policy, exactly one action. It is persisted as a
// single document and always replaced as a unit.
type AutomationDefinition struct {
	ID              primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	StageID         primitive.ObjectID `json:"stage_id" bson:"stage_id"`
	Name            string             `json:"name" bson:"name"`
	Icon            string             `json:"icon,omitempty" bson:"icon,omitempty"`
	Rank            string             `json:"rank" bson:"rank"`
	Triggers        []Trigger          `json:"triggers" bson:"triggers"`
	Condition       *condition.Item    `json:"condition,omitempty" bson:"condition,omitempty"`
	ConditionTiming ConditionTiming    `json:"condition_timing" bson:"condition_timing"`
	Action          ActionInvocation   `json:"action" bson:"action"`
	CreatedAt       time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at" bson:"updated_at"`
}

// SequentialSources lists the automations this definition watches.
func (d *AutomationDefinition) SequentialSources() []primitive.ObjectID {
	var out []primitive.ObjectID
	for _, t := range d.Triggers {
		if t.Event.IsSequential() && t.SourceAutomationID != nil {
			out = append(out, *t.SourceAutomationID)
		}
	}
	return out
}
