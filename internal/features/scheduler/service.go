package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"go-pubflow/internal/config"
	"go-pubflow/internal/features/action"
	"go-pubflow/internal/features/automation"
	"go-pubflow/internal/features/condition"
	"go-pubflow/internal/features/pub"
	"go-pubflow/internal/features/run"
)

// RunNotifier receives run state changes (live feed, metrics). Must not
// block.
type RunNotifier interface {
	NotifyRun(r *run.AutomationRun)
}

type SchedulerService interface {
	// HandleEvent drives one event through candidate selection, condition
	// timing, scheduling and dispatch. Candidate failures are recorded on
	// their runs and never propagate out of the per-event loop.
	HandleEvent(ctx context.Context, ev Event) error

	// TriggerManual fires one automation's manual trigger for one pub.
	TriggerManual(ctx context.Context, automationID, pubID string) error

	// HandleWebhook feeds an external webhook event for one pub.
	HandleWebhook(ctx context.Context, pubID string, payload map[string]interface{}) error

	// StageEventEmitter: stage transitions from the pub service.
	PubEnteredStage(ctx context.Context, p *pub.Pub) error
	PubLeftStage(ctx context.Context, p *pub.Pub, formerStageID primitive.ObjectID) error

	// StartPolling / StopPolling manage the durable due-run loop.
	StartPolling() error
	StopPolling() error
}

type SchedulerServiceImpl struct {
	AutomationRepo automation.AutomationRepository
	RunRepo        run.RunRepository
	PubRepo        pub.PubRepository
	Registry       action.Registry
	Evaluator      condition.Evaluator
	Notifier       RunNotifier
	Logger         *zap.Logger

	poll time.Duration
	now  func() time.Time

	cron *cron.Cron
	mu   sync.Mutex
}

func NewSchedulerService(
	cfg *config.Config,
	automationRepo automation.AutomationRepository,
	runRepo run.RunRepository,
	pubRepo pub.PubRepository,
	registry action.Registry,
	evaluator condition.Evaluator,
	notifier RunNotifier,
	logger *zap.Logger,
) SchedulerService {
	return &SchedulerServiceImpl{
		AutomationRepo: automationRepo,
		RunRepo:        runRepo,
		PubRepo:        pubRepo,
		Registry:       registry,
		Evaluator:      evaluator,
		Notifier:       notifier,
		Logger:         logger,
		poll:           cfg.SchedulerPoll,
		now:            time.Now,
	}
}

func (s *SchedulerServiceImpl) PubEnteredStage(ctx context.Context, p *pub.Pub) error {
	return s.HandleEvent(ctx, NewEvent(automation.EventPubEnteredStage, p.StageID, p.ID, p.Snapshot()))
}

func (s *SchedulerServiceImpl) PubLeftStage(ctx context.Context, p *pub.Pub, formerStageID primitive.ObjectID) error {
	return s.HandleEvent(ctx, NewEvent(automation.EventPubLeftStage, formerStageID, p.ID, p.Snapshot()))
}

func (s *SchedulerServiceImpl) TriggerManual(ctx context.Context, automationID, pubID string) error {
	def, err := s.AutomationRepo.GetByID(ctx, automationID)
	if err != nil {
		return err
	}
	if def == nil {
		return fmt.Errorf("automation not found")
	}
	p, err := s.PubRepo.GetByID(ctx, pubID)
	if err != nil {
		return err
	}
	if p == nil {
		return fmt.Errorf("pub not found")
	}

	ev := NewEvent(automation.EventManual, def.StageID, p.ID, p.Snapshot())
	ev.TargetAutomationID = &def.ID
	return s.HandleEvent(ctx, ev)
}

func (s *SchedulerServiceImpl) HandleWebhook(ctx context.Context, pubID string, payload map[string]interface{}) error {
	p, err := s.PubRepo.GetByID(ctx, pubID)
	if err != nil {
		return err
	}
	if p == nil {
		return fmt.Errorf("pub not found")
	}

	snapshot := p.Snapshot()
	snapshot["webhook"] = payload
	return s.HandleEvent(ctx, NewEvent(automation.EventWebhook, p.StageID, p.ID, snapshot))
}

func (s *SchedulerServiceImpl) HandleEvent(ctx context.Context, ev Event) error {
	defs, err := s.AutomationRepo.ListByStage(ctx, ev.StageID)
	if err != nil {
		return fmt.Errorf("failed to load stage automations: %w", err)
	}

	// Candidates are considered in ascending rank order but dispatched
	// concurrently and independently: one candidate's failure never
	// cancels a sibling.
	var wg sync.WaitGroup
	for i := range defs {
		def := defs[i]
		for _, trig := range def.Triggers {
			if !matches(&def, trig, &ev) {
				continue
			}
			s.considerCandidate(ctx, &def, trig, &ev, &wg)
		}
	}
	wg.Wait()
	return nil
}

// considerCandidate applies the condition-timing policy and either drops
// the candidate, schedules a future run, or dispatches immediately.
func (s *SchedulerServiceImpl) considerCandidate(ctx context.Context, def *automation.AutomationDefinition, trig automation.Trigger, ev *Event, wg *sync.WaitGroup) {
	if def.ConditionTiming.ChecksTrigger() && def.Condition != nil {
		ok := s.evaluateCondition(def, primitive.NilObjectID, ev.PubID, ev.Snapshot)
		if !ok {
			// Discarded before any run exists.
			return
		}
	}

	if trig.Event.IsDurationBased() {
		d, ok := trig.Duration()
		if !ok {
			s.Logger.Warn("automation skipped: invalid configuration",
				zap.String("automationId", def.ID.Hex()),
				zap.String("pubId", ev.PubID.Hex()),
				zap.String("diagnostic", "invalid_configuration"))
			return
		}
		due := s.now().Add(d)
		r := &run.AutomationRun{
			AutomationID: def.ID,
			TriggerID:    trig.ID,
			PubID:        ev.PubID,
			StageID:      def.StageID,
			Status:       run.StatusScheduled,
			ScheduledFor: &due,
		}
		if err := s.RunRepo.Create(ctx, r); err != nil {
			s.Logger.Error("failed to schedule run", zap.Error(err),
				zap.String("automationId", def.ID.Hex()))
			return
		}
		s.notify(r)
		return
	}

	started := s.now()
	r := &run.AutomationRun{
		AutomationID: def.ID,
		TriggerID:    trig.ID,
		PubID:        ev.PubID,
		StageID:      def.StageID,
		Status:       run.StatusRunning,
		StartedAt:    &started,
	}
	if err := s.RunRepo.Create(ctx, r); err != nil {
		s.Logger.Error("failed to create run", zap.Error(err),
			zap.String("automationId", def.ID.Hex()))
		return
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		s.execute(ctx, def, r)
	}()
}

// execute is the execution gate and dispatch shared by immediate runs and
// claimed scheduled runs. The run must be in the running state.
func (s *SchedulerServiceImpl) execute(ctx context.Context, def *automation.AutomationDefinition, r *run.AutomationRun) {
	p, err := s.PubRepo.GetByID(ctx, r.PubID.Hex())
	if err != nil || p == nil {
		s.finishInvalid(ctx, r, "pub no longer exists")
		return
	}

	if def.ConditionTiming.ChecksExecution() && def.Condition != nil {
		// Context may have changed since the trigger fired; the gate runs
		// against the refetched pub, not the trigger-time snapshot.
		if !s.evaluateCondition(def, r.ID, p.ID, p.Snapshot()) {
			if err := s.RunRepo.Finish(ctx, r.ID, run.StatusConditionNotMet, nil); err != nil {
				s.Logger.Error("failed to finish run", zap.Error(err), zap.String("runId", r.ID.Hex()))
				return
			}
			r.Status = run.StatusConditionNotMet
			s.notify(r)
			return
		}
	}

	outcome, err := s.Registry.Invoke(ctx, def.Action.Action, def.Action.Config, action.Invocation{
		AutomationID: def.ID,
		RunID:        r.ID,
		StageID:      def.StageID,
		Pub:          p,
	})
	if err != nil {
		s.finishInvalid(ctx, r, err.Error())
		return
	}

	status := run.StatusSuccess
	outcomeKind := automation.EventAutomationSucceeded
	if outcome.Status == action.StatusFailure {
		status = run.StatusFailure
		outcomeKind = automation.EventAutomationFailed
	}
	result := &run.ActionRunResult{
		Status: status,
		Result: outcome.Result,
		Error:  outcome.Error,
	}
	if err := s.RunRepo.Finish(ctx, r.ID, status, result); err != nil {
		s.Logger.Error("failed to finish run", zap.Error(err), zap.String("runId", r.ID.Hex()))
		return
	}
	r.Status = status
	r.ActionRun = result
	s.notify(r)

	// The outcome becomes a sequential event; chains terminate because the
	// trigger graph is acyclic by authoring-time validation.
	outcomeEv := NewEvent(outcomeKind, def.StageID, p.ID, p.Snapshot())
	outcomeEv.SourceAutomationID = &def.ID
	if err := s.HandleEvent(ctx, outcomeEv); err != nil {
		s.Logger.Error("failed to propagate outcome event", zap.Error(err),
			zap.String("automationId", def.ID.Hex()))
	}
}

// evaluateCondition runs the tree fail-closed and surfaces leaf
// diagnostics to the author via the diagnostic log sink.
func (s *SchedulerServiceImpl) evaluateCondition(def *automation.AutomationDefinition, runID, pubID primitive.ObjectID, env map[string]interface{}) bool {
	// Evaluate never mutates the tree; concurrent dispatches for the same
	// automation share one definition.
	ok, diags := condition.Evaluate(def.Condition, s.Evaluator, env)
	for _, d := range diags {
		s.Logger.Warn("condition evaluation error",
			zap.String("automationId", def.ID.Hex()),
			zap.String("runId", hexOrEmpty(runID)),
			zap.String("pubId", pubID.Hex()),
			zap.String("diagnostic", "evaluation_error"),
			zap.String("expression", d.Expression),
			zap.NamedError("cause", d.Err))
	}
	return ok
}

func (s *SchedulerServiceImpl) finishInvalid(ctx context.Context, r *run.AutomationRun, reason string) {
	s.Logger.Warn("automation skipped: invalid configuration",
		zap.String("automationId", r.AutomationID.Hex()),
		zap.String("runId", r.ID.Hex()),
		zap.String("pubId", r.PubID.Hex()),
		zap.String("diagnostic", "invalid_configuration"),
		zap.String("reason", reason))
	if err := s.RunRepo.Finish(ctx, r.ID, run.StatusInvalidConfig, nil); err != nil {
		s.Logger.Error("failed to finish run", zap.Error(err), zap.String("runId", r.ID.Hex()))
		return
	}
	r.Status = run.StatusInvalidConfig
	s.notify(r)
}

func (s *SchedulerServiceImpl) notify(r *run.AutomationRun) {
	if s.Notifier != nil {
		s.Notifier.NotifyRun(r)
	}
}

func hexOrEmpty(id primitive.ObjectID) string {
	if id.IsZero() {
		return ""
	}
	return id.Hex()
}
