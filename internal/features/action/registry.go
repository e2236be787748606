package action

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"go-pubflow/internal/features/pub"
)

type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
)

// Outcome is what an invoked action reports back to the scheduler.
type Outcome struct {
	Status Status                 `json:"status"`
	Result map[string]interface{} `json:"result,omitempty"`
	Error  string                 `json:"error,omitempty"`
}

// Invocation carries the runtime context an action runs against.
type Invocation struct {
	AutomationID primitive.ObjectID
	RunID        primitive.ObjectID
	StageID      primitive.ObjectID
	Pub          *pub.Pub
}

// Action is one named, opaque, invokable operation. ValidateConfig is the
// schema check used at authoring time; Invoke runs asynchronously from the
// engine's point of view and only ever reports an Outcome.
type Action interface {
	Name() string
	ValidateConfig(config map[string]interface{}) error
	Invoke(ctx context.Context, config map[string]interface{}, inv Invocation) Outcome
}

// Registry resolves action names for validation and dispatch.
type Registry interface {
	// ValidateAction checks config against the named action's schema.
	// Satisfies the automation package's ActionValidator.
	ValidateAction(name string, config map[string]interface{}) error

	// Invoke runs the named action. The returned error only flags an
	// unknown action (persisted-data integrity error); action failures are
	// reported inside the Outcome.
	Invoke(ctx context.Context, name string, config map[string]interface{}, inv Invocation) (Outcome, error)
}

type RegistryImpl struct {
	actions map[string]Action
	logger  *zap.Logger
}

// NewRegistry wires the built-in actions.
func NewRegistry(pubRepo pub.PubRepository, logger *zap.Logger) Registry {
	r := &RegistryImpl{
		actions: make(map[string]Action),
		logger:  logger,
	}
	r.register(NewWebhookAction())
	r.register(NewRunScriptAction())
	r.register(NewUpdateFieldAction(pubRepo))
	r.register(NewNoteAction(logger))
	return r
}

func (r *RegistryImpl) register(a Action) {
	r.actions[a.Name()] = a
}

func (r *RegistryImpl) ValidateAction(name string, config map[string]interface{}) error {
	a, ok := r.actions[name]
	if !ok {
		return fmt.Errorf("unknown action %q", name)
	}
	return a.ValidateConfig(config)
}

func (r *RegistryImpl) Invoke(ctx context.Context, name string, config map[string]interface{}, inv Invocation) (Outcome, error) {
	a, ok := r.actions[name]
	if !ok {
		return Outcome{}, fmt.Errorf("unknown action %q", name)
	}

	outcome := a.Invoke(ctx, config, inv)
	if outcome.Status == StatusFailure {
		r.logger.Warn("action reported failure",
			zap.String("action", name),
			zap.String("automationId", inv.AutomationID.Hex()),
			zap.String("runId", inv.RunID.Hex()),
			zap.String("error", outcome.Error))
	}
	return outcome, nil
}

func failure(err error) Outcome {
	return Outcome{Status: StatusFailure, Error: err.Error()}
}

func success(result map[string]interface{}) Outcome {
	return Outcome{Status: StatusSuccess, Result: result}
}
