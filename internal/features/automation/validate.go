package automation

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"go-pubflow/internal/common/models"
	"go-pubflow/internal/features/condition"
)

// ActionValidator checks a named action's config against the schema the
// action registry declares for it.
type ActionValidator interface {
	ValidateAction(name string, config map[string]interface{}) error
}

// Validate checks the whole aggregate as a unit: trigger list, condition
// tree, timing policy and action. existing carries the current automations
// (used to resolve sequential sources and to reject cycles). Validation is
// pure; re-validating an already-valid definition finds nothing and
// changes nothing.
func Validate(def *AutomationDefinition, existing []AutomationDefinition, actions ActionValidator) models.ValidationErrors {
	var errs models.ValidationErrors

	if def.Name == "" {
		errs = append(errs, models.ValidationError{Field: "name", Message: "name is required"})
	}
	if def.StageID.IsZero() {
		errs = append(errs, models.ValidationError{Field: "stage_id", Message: "stage is required"})
	}

	switch def.ConditionTiming {
	case TimingOnTrigger, TimingOnExecution, TimingBoth:
	default:
		errs = append(errs, models.ValidationError{
			Field:   "condition_timing",
			Message: fmt.Sprintf("unknown condition timing %q", def.ConditionTiming),
		})
	}

	if len(def.Triggers) == 0 {
		errs = append(errs, models.ValidationError{Field: "triggers", Message: "at least one trigger is required"})
	}

	byID := make(map[primitive.ObjectID]bool, len(existing))
	for i := range existing {
		byID[existing[i].ID] = true
	}

	for i, t := range def.Triggers {
		field := fmt.Sprintf("triggers[%d]", i)
		errs = append(errs, validateTrigger(def, t, field, byID)...)
	}

	if g := graphWithout(existing, def.ID); g.WouldCycle(def.ID, def.SequentialSources()) {
		errs = append(errs, models.ValidationError{
			Field:   "triggers",
			Message: "sequential triggers form a cycle",
		})
	}

	if def.Action.Action == "" {
		errs = append(errs, models.ValidationError{Field: "action", Message: "action is required"})
	} else if actions != nil {
		if err := actions.ValidateAction(def.Action.Action, def.Action.Config); err != nil {
			errs = append(errs, models.ValidationError{Field: "action", Message: err.Error()})
		}
	}

	if def.Condition != nil {
		errs = append(errs, condition.Validate(def.Condition)...)
	}

	return errs
}

func validateTrigger(def *AutomationDefinition, t Trigger, field string, existing map[primitive.ObjectID]bool) models.ValidationErrors {
	var errs models.ValidationErrors

	switch t.Event {
	case EventPubEnteredStage, EventPubLeftStage, EventManual, EventWebhook:
	case EventPubInStageFor:
		if _, ok := t.Duration(); !ok {
			errs = append(errs, models.ValidationError{
				Field:   field,
				Message: "duration trigger requires a positive duration (seconds)",
			})
		}
	case EventAutomationSucceeded, EventAutomationFailed:
		// handled below with the other sequential checks
	default:
		errs = append(errs, models.ValidationError{
			Field:   field,
			Message: fmt.Sprintf("unknown trigger event %q", t.Event),
		})
		return errs
	}

	if t.Event.IsSequential() {
		if t.SourceAutomationID == nil {
			errs = append(errs, models.ValidationError{
				Field:   field,
				Message: "sequential trigger requires source_automation_id",
			})
			return errs
		}
		if *t.SourceAutomationID == def.ID {
			errs = append(errs, models.ValidationError{
				Field:   field,
				Message: "automation cannot watch its own outcome",
			})
			return errs
		}
		if !existing[*t.SourceAutomationID] {
			errs = append(errs, models.ValidationError{
				Field:   field,
				Message: "source automation does not exist",
			})
		}
	} else if t.SourceAutomationID != nil {
		errs = append(errs, models.ValidationError{
			Field:   field,
			Message: fmt.Sprintf("source_automation_id is only valid on sequential triggers, not %q", t.Event),
		})
	}

	return errs
}

// graphWithout builds the dependency graph from existing definitions,
// excluding the edges of the definition under validation (its new edges
// are supplied to WouldCycle instead).
func graphWithout(existing []AutomationDefinition, id primitive.ObjectID) *TriggerGraph {
	g := NewTriggerGraph()
	for i := range existing {
		if existing[i].ID == id {
			continue
		}
		g.Set(existing[i].ID, existing[i].SequentialSources())
	}
	return g
}
