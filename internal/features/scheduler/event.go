package scheduler

import (
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"go-pubflow/internal/features/automation"
)

// Event is one occurrence flowing into the engine: a stage transition, a
// manual or webhook invocation, or another automation's outcome. The pub
// snapshot is captured at event time; execution-time condition checks
// refetch instead of reusing it.
type Event struct {
	ID                 uuid.UUID
	Kind               automation.TriggerEvent
	StageID            primitive.ObjectID
	PubID              primitive.ObjectID
	Snapshot           map[string]interface{}
	SourceAutomationID *primitive.ObjectID
	TargetAutomationID *primitive.ObjectID
	OccurredAt         time.Time
}

// NewEvent stamps identity and occurrence time.
func NewEvent(kind automation.TriggerEvent, stageID, pubID primitive.ObjectID, snapshot map[string]interface{}) Event {
	return Event{
		ID:         uuid.New(),
		Kind:       kind,
		StageID:    stageID,
		PubID:      pubID,
		Snapshot:   snapshot,
		OccurredAt: time.Now(),
	}
}

// matches decides whether one trigger of def is a candidate for ev.
func matches(def *automation.AutomationDefinition, t automation.Trigger, ev *Event) bool {
	switch {
	case t.Event.IsSequential():
		// Sequential triggers match only the watched automation's outcome
		// of the required polarity.
		return ev.Kind == t.Event &&
			ev.SourceAutomationID != nil &&
			t.SourceAutomationID != nil &&
			*t.SourceAutomationID == *ev.SourceAutomationID
	case t.Event.IsDurationBased():
		// Duration triggers are anchored at stage entry.
		return ev.Kind == automation.EventPubEnteredStage
	case t.Event == automation.EventManual:
		return ev.Kind == automation.EventManual &&
			ev.TargetAutomationID != nil &&
			*ev.TargetAutomationID == def.ID
	default:
		return t.Event == ev.Kind
	}
}
