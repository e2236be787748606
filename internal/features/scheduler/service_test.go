package scheduler

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"go-pubflow/internal/features/action"
	"go-pubflow/internal/features/automation"
	"go-pubflow/internal/features/condition"
	"go-pubflow/internal/features/expression"
	"go-pubflow/internal/features/pub"
	"go-pubflow/internal/features/run"
)

// ---- in-memory fakes ----

type memAutomations struct {
	mu   sync.Mutex
	defs []automation.AutomationDefinition
}

func (m *memAutomations) Create(ctx context.Context, def *automation.AutomationDefinition) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if def.ID.IsZero() {
		def.ID = primitive.NewObjectID()
	}
	m.defs = append(m.defs, *def)
	return nil
}

func (m *memAutomations) GetByID(ctx context.Context, id string) (*automation.AutomationDefinition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.defs {
		if m.defs[i].ID.Hex() == id {
			d := m.defs[i]
			return &d, nil
		}
	}
	return nil, nil
}

func (m *memAutomations) ListByStage(ctx context.Context, stageID primitive.ObjectID) ([]automation.AutomationDefinition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []automation.AutomationDefinition
	for i := range m.defs {
		if m.defs[i].StageID == stageID {
			out = append(out, m.defs[i])
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Rank < out[j].Rank })
	return out, nil
}

func (m *memAutomations) List(ctx context.Context) ([]automation.AutomationDefinition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]automation.AutomationDefinition(nil), m.defs...), nil
}

func (m *memAutomations) Replace(ctx context.Context, def *automation.AutomationDefinition) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.defs {
		if m.defs[i].ID == def.ID {
			m.defs[i] = *def
			return nil
		}
	}
	return nil
}

func (m *memAutomations) ListWatching(ctx context.Context, sourceID primitive.ObjectID) ([]automation.AutomationDefinition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []automation.AutomationDefinition
	for i := range m.defs {
		for _, src := range m.defs[i].SequentialSources() {
			if src == sourceID {
				out = append(out, m.defs[i])
				break
			}
		}
	}
	return out, nil
}

func (m *memAutomations) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.defs {
		if m.defs[i].ID.Hex() == id {
			m.defs = append(m.defs[:i], m.defs[i+1:]...)
			return nil
		}
	}
	return nil
}

func (m *memAutomations) DeleteByStage(ctx context.Context, stageID primitive.ObjectID) ([]primitive.ObjectID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []primitive.ObjectID
	var kept []automation.AutomationDefinition
	for i := range m.defs {
		if m.defs[i].StageID == stageID {
			ids = append(ids, m.defs[i].ID)
		} else {
			kept = append(kept, m.defs[i])
		}
	}
	m.defs = kept
	return ids, nil
}

type memRuns struct {
	mu   sync.Mutex
	runs []run.AutomationRun
}

func (m *memRuns) Create(ctx context.Context, r *run.AutomationRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r.ID = primitive.NewObjectID()
	r.CreatedAt = time.Now()
	m.runs = append(m.runs, *r)
	return nil
}

func (m *memRuns) GetByID(ctx context.Context, id string) (*run.AutomationRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.runs {
		if m.runs[i].ID.Hex() == id {
			r := m.runs[i]
			return &r, nil
		}
	}
	return nil, nil
}

func (m *memRuns) ListByAutomation(ctx context.Context, automationID primitive.ObjectID, limit int) ([]run.AutomationRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []run.AutomationRun
	for i := range m.runs {
		if m.runs[i].AutomationID == automationID {
			out = append(out, m.runs[i])
		}
	}
	return out, nil
}

func (m *memRuns) ListByPub(ctx context.Context, pubID primitive.ObjectID, limit int) ([]run.AutomationRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []run.AutomationRun
	for i := range m.runs {
		if m.runs[i].PubID == pubID {
			out = append(out, m.runs[i])
		}
	}
	return out, nil
}

func (m *memRuns) ClaimDue(ctx context.Context, now time.Time) (*run.AutomationRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	best := -1
	for i := range m.runs {
		if m.runs[i].Status != run.StatusScheduled || m.runs[i].ScheduledFor == nil || m.runs[i].ScheduledFor.After(now) {
			continue
		}
		if best < 0 || m.runs[i].ScheduledFor.Before(*m.runs[best].ScheduledFor) {
			best = i
		}
	}
	if best < 0 {
		return nil, nil
	}
	m.runs[best].Status = run.StatusRunning
	m.runs[best].StartedAt = &now
	r := m.runs[best]
	return &r, nil
}

func (m *memRuns) Finish(ctx context.Context, id primitive.ObjectID, status run.Status, result *run.ActionRunResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.runs {
		if m.runs[i].ID == id {
			if m.runs[i].Status != run.StatusRunning {
				return run.ErrConflict
			}
			now := time.Now()
			m.runs[i].Status = status
			m.runs[i].FinishedAt = &now
			m.runs[i].ActionRun = result
			return nil
		}
	}
	return run.ErrConflict
}

func (m *memRuns) Cancel(ctx context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.runs {
		if m.runs[i].ID == id {
			if m.runs[i].Status != run.StatusScheduled {
				return run.ErrConflict
			}
			m.runs[i].Status = run.StatusCanceled
			return nil
		}
	}
	return run.ErrConflict
}

func (m *memRuns) CancelPending(ctx context.Context, automationIDs []primitive.ObjectID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for i := range m.runs {
		if m.runs[i].Status != run.StatusScheduled {
			continue
		}
		for _, id := range automationIDs {
			if m.runs[i].AutomationID == id {
				m.runs[i].Status = run.StatusCanceled
				n++
			}
		}
	}
	return n, nil
}

func (m *memRuns) byStatus(status run.Status) []run.AutomationRun {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []run.AutomationRun
	for i := range m.runs {
		if m.runs[i].Status == status {
			out = append(out, m.runs[i])
		}
	}
	return out
}

func (m *memRuns) all() []run.AutomationRun {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]run.AutomationRun(nil), m.runs...)
}

type memPubs struct {
	mu   sync.Mutex
	pubs map[primitive.ObjectID]pub.Pub
}

func newMemPubs(pubs ...pub.Pub) *memPubs {
	m := &memPubs{pubs: make(map[primitive.ObjectID]pub.Pub)}
	for _, p := range pubs {
		m.pubs[p.ID] = p
	}
	return m
}

func (m *memPubs) Create(ctx context.Context, p *pub.Pub) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	m.pubs[p.ID] = *p
	return nil
}

func (m *memPubs) GetByID(ctx context.Context, id string) (*pub.Pub, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, err
	}
	if p, ok := m.pubs[oid]; ok {
		return &p, nil
	}
	return nil, nil
}

func (m *memPubs) ListByStage(ctx context.Context, stageID primitive.ObjectID) ([]pub.Pub, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []pub.Pub
	for _, p := range m.pubs {
		if p.StageID == stageID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memPubs) Update(ctx context.Context, p *pub.Pub) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pubs[p.ID] = *p
	return nil
}

func (m *memPubs) SetValue(ctx context.Context, id primitive.ObjectID, field string, value interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.pubs[id]
	if p.Values == nil {
		p.Values = make(map[string]interface{})
	}
	p.Values[field] = value
	m.pubs[id] = p
	return nil
}

func (m *memPubs) SetStage(ctx context.Context, id, stageID primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.pubs[id]
	p.StageID = stageID
	m.pubs[id] = p
	return nil
}

func (m *memPubs) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}
	delete(m.pubs, oid)
	return nil
}

// fakeRegistry records invocations and reports the configured outcome per
// action name.
type fakeRegistry struct {
	mu       sync.Mutex
	outcomes map[string]action.Outcome
	invoked  []string
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{outcomes: make(map[string]action.Outcome)}
}

func (f *fakeRegistry) ValidateAction(name string, config map[string]interface{}) error {
	return nil
}

func (f *fakeRegistry) Invoke(ctx context.Context, name string, config map[string]interface{}, inv action.Invocation) (action.Outcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invoked = append(f.invoked, name)
	if out, ok := f.outcomes[name]; ok {
		return out, nil
	}
	return action.Outcome{Status: action.StatusSuccess}, nil
}

func (f *fakeRegistry) invocations() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.invoked...)
}

type recordingNotifier struct {
	mu       sync.Mutex
	statuses []run.Status
}

func (n *recordingNotifier) NotifyRun(r *run.AutomationRun) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.statuses = append(n.statuses, r.Status)
}

// ---- fixture ----

type fixture struct {
	svc         *SchedulerServiceImpl
	automations *memAutomations
	runs        *memRuns
	pubs        *memPubs
	registry    *fakeRegistry
	notifier    *recordingNotifier
	clock       time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		automations: &memAutomations{},
		runs:        &memRuns{},
		pubs:        newMemPubs(),
		registry:    newFakeRegistry(),
		notifier:    &recordingNotifier{},
		clock:       time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	f.svc = &SchedulerServiceImpl{
		AutomationRepo: f.automations,
		RunRepo:        f.runs,
		PubRepo:        f.pubs,
		Registry:       f.registry,
		Evaluator:      expression.NewTengoEvaluator(),
		Notifier:       f.notifier,
		Logger:         zap.NewNop(),
		poll:           time.Second,
	}
	f.svc.now = func() time.Time { return f.clock }
	return f
}

func (f *fixture) addPub(stageID primitive.ObjectID, values map[string]interface{}) pub.Pub {
	p := pub.Pub{ID: primitive.NewObjectID(), Title: "A pub", StageID: stageID, Values: values}
	f.pubs.Create(context.Background(), &p)
	return p
}

func (f *fixture) addAutomation(def automation.AutomationDefinition) automation.AutomationDefinition {
	if def.Rank == "" {
		def.Rank = "n"
	}
	if def.ConditionTiming == "" {
		def.ConditionTiming = automation.TimingOnTrigger
	}
	f.automations.Create(context.Background(), &def)
	return def
}

func enteredTrigger() automation.Trigger {
	return automation.Trigger{ID: primitive.NewObjectID(), Event: automation.EventPubEnteredStage}
}

func conditionOf(expr string) *condition.Item {
	root := condition.NewBlock(condition.BlockAnd, "")
	leaf := condition.NewLeaf(expr, "n")
	root.Items = []condition.Item{leaf}
	return &root
}

// ---- tests ----

func TestHandleEvent_EnteredStageRunsAction(t *testing.T) {
	f := newFixture(t)
	stageID := primitive.NewObjectID()
	p := f.addPub(stageID, nil)
	f.addAutomation(automation.AutomationDefinition{
		StageID:  stageID,
		Name:     "greet",
		Triggers: []automation.Trigger{enteredTrigger()},
		Action:   automation.ActionInvocation{Action: "note"},
	})

	err := f.svc.PubEnteredStage(context.Background(), &p)
	require.NoError(t, err)

	succeeded := f.runs.byStatus(run.StatusSuccess)
	require.Len(t, succeeded, 1)
	assert.Equal(t, p.ID, succeeded[0].PubID)
	assert.Equal(t, []string{"note"}, f.registry.invocations())
	assert.Contains(t, f.notifier.statuses, run.StatusSuccess)
}

func TestHandleEvent_TriggerConditionGatesBeforeAnyRun(t *testing.T) {
	f := newFixture(t)
	stageID := primitive.NewObjectID()
	f.addAutomation(automation.AutomationDefinition{
		StageID:         stageID,
		Name:            "urgent only",
		Triggers:        []automation.Trigger{enteredTrigger()},
		Condition:       conditionOf(`priority > 3`),
		ConditionTiming: automation.TimingOnTrigger,
		Action:          automation.ActionInvocation{Action: "note"},
	})

	low := f.addPub(stageID, map[string]interface{}{"priority": 2})
	require.NoError(t, f.svc.PubEnteredStage(context.Background(), &low))
	assert.Empty(t, f.runs.all(), "a discarded candidate must leave no run behind")

	high := f.addPub(stageID, map[string]interface{}{"priority": 10})
	require.NoError(t, f.svc.PubEnteredStage(context.Background(), &high))
	require.Len(t, f.runs.byStatus(run.StatusSuccess), 1)
}

func TestHandleEvent_ConcurrentDispatchSharesCondition(t *testing.T) {
	// two triggers matching the same event dispatch concurrently against
	// one definition; the execution-time condition walk must not reorder
	// the shared tree
	f := newFixture(t)
	stageID := primitive.NewObjectID()
	p := f.addPub(stageID, map[string]interface{}{"priority": 5})

	root := condition.NewBlock(condition.BlockAnd, "")
	root.Items = []condition.Item{
		condition.NewLeaf(`priority > 3`, "t"),
		condition.NewLeaf(`priority < 100`, "b"),
	}
	def := f.addAutomation(automation.AutomationDefinition{
		StageID:         stageID,
		Name:            "double take",
		Triggers:        []automation.Trigger{enteredTrigger(), enteredTrigger()},
		Condition:       &root,
		ConditionTiming: automation.TimingOnExecution,
		Action:          automation.ActionInvocation{Action: "note"},
	})

	require.NoError(t, f.svc.PubEnteredStage(context.Background(), &p))

	require.Len(t, f.runs.byStatus(run.StatusSuccess), 2)
	stored, err := f.automations.GetByID(context.Background(), def.ID.Hex())
	require.NoError(t, err)
	ranks := []string{stored.Condition.Items[0].Rank, stored.Condition.Items[1].Rank}
	assert.Equal(t, []string{"t", "b"}, ranks, "stored item order must survive dispatch")
}

func TestHandleEvent_DurationTriggerSchedules(t *testing.T) {
	f := newFixture(t)
	stageID := primitive.NewObjectID()
	p := f.addPub(stageID, nil)
	f.addAutomation(automation.AutomationDefinition{
		StageID: stageID,
		Name:    "nudge after an hour",
		Triggers: []automation.Trigger{{
			ID:     primitive.NewObjectID(),
			Event:  automation.EventPubInStageFor,
			Config: map[string]interface{}{"duration": 3600},
		}},
		Action: automation.ActionInvocation{Action: "note"},
	})

	require.NoError(t, f.svc.PubEnteredStage(context.Background(), &p))

	scheduled := f.runs.byStatus(run.StatusScheduled)
	require.Len(t, scheduled, 1)
	assert.Equal(t, f.clock.Add(time.Hour), scheduled[0].ScheduledFor.UTC())
	assert.Empty(t, f.registry.invocations(), "nothing runs before the timer elapses")

	// not due yet
	f.clock = f.clock.Add(30 * time.Minute)
	f.svc.drainDue()
	assert.Empty(t, f.registry.invocations())

	// due now
	f.clock = f.clock.Add(31 * time.Minute)
	f.svc.drainDue()
	assert.Equal(t, []string{"note"}, f.registry.invocations())
	assert.Len(t, f.runs.byStatus(run.StatusSuccess), 1)
}

func TestExecute_ExecutionGateUsesFreshContext(t *testing.T) {
	f := newFixture(t)
	stageID := primitive.NewObjectID()
	// stored pub says priority 2; the trigger-time snapshot will claim 10
	p := f.addPub(stageID, map[string]interface{}{"priority": 2})
	f.addAutomation(automation.AutomationDefinition{
		StageID:         stageID,
		Name:            "stale snapshot",
		Triggers:        []automation.Trigger{enteredTrigger()},
		Condition:       conditionOf(`priority > 3`),
		ConditionTiming: automation.TimingOnExecution,
		Action:          automation.ActionInvocation{Action: "note"},
	})

	ev := NewEvent(automation.EventPubEnteredStage, stageID, p.ID, map[string]interface{}{"priority": 10})
	require.NoError(t, f.svc.HandleEvent(context.Background(), ev))

	notMet := f.runs.byStatus(run.StatusConditionNotMet)
	require.Len(t, notMet, 1, "gate must evaluate the refetched pub, not the snapshot")
	assert.Empty(t, f.registry.invocations())
	assert.Contains(t, f.notifier.statuses, run.StatusConditionNotMet)
}

func TestExecute_PubDeletedBeforeExecution(t *testing.T) {
	f := newFixture(t)
	stageID := primitive.NewObjectID()
	f.addAutomation(automation.AutomationDefinition{
		StageID:  stageID,
		Name:     "orphan",
		Triggers: []automation.Trigger{enteredTrigger()},
		Action:   automation.ActionInvocation{Action: "note"},
	})

	ghost := NewEvent(automation.EventPubEnteredStage, stageID, primitive.NewObjectID(), nil)
	require.NoError(t, f.svc.HandleEvent(context.Background(), ghost))

	require.Len(t, f.runs.byStatus(run.StatusInvalidConfig), 1)
	assert.Empty(t, f.registry.invocations())
}

func TestHandleEvent_SequentialChain(t *testing.T) {
	f := newFixture(t)
	stageID := primitive.NewObjectID()
	p := f.addPub(stageID, nil)

	first := f.addAutomation(automation.AutomationDefinition{
		StageID:  stageID,
		Name:     "first",
		Rank:     "b",
		Triggers: []automation.Trigger{enteredTrigger()},
		Action:   automation.ActionInvocation{Action: "note"},
	})
	f.addAutomation(automation.AutomationDefinition{
		StageID: stageID,
		Name:    "on success",
		Rank:    "c",
		Triggers: []automation.Trigger{{
			ID:                 primitive.NewObjectID(),
			Event:              automation.EventAutomationSucceeded,
			SourceAutomationID: &first.ID,
		}},
		Action: automation.ActionInvocation{Action: "update_field"},
	})
	f.addAutomation(automation.AutomationDefinition{
		StageID: stageID,
		Name:    "on failure",
		Rank:    "d",
		Triggers: []automation.Trigger{{
			ID:                 primitive.NewObjectID(),
			Event:              automation.EventAutomationFailed,
			SourceAutomationID: &first.ID,
		}},
		Action: automation.ActionInvocation{Action: "webhook"},
	})

	require.NoError(t, f.svc.PubEnteredStage(context.Background(), &p))

	invoked := f.registry.invocations()
	assert.Equal(t, []string{"note", "update_field"}, invoked,
		"success chain follows, failure watcher stays quiet")
	assert.Len(t, f.runs.byStatus(run.StatusSuccess), 2)
}

func TestHandleEvent_SequentialChainOnFailure(t *testing.T) {
	f := newFixture(t)
	stageID := primitive.NewObjectID()
	p := f.addPub(stageID, nil)
	f.registry.outcomes["note"] = action.Outcome{Status: action.StatusFailure, Error: "boom"}

	first := f.addAutomation(automation.AutomationDefinition{
		StageID:  stageID,
		Name:     "first",
		Rank:     "b",
		Triggers: []automation.Trigger{enteredTrigger()},
		Action:   automation.ActionInvocation{Action: "note"},
	})
	f.addAutomation(automation.AutomationDefinition{
		StageID: stageID,
		Name:    "on failure",
		Rank:    "c",
		Triggers: []automation.Trigger{{
			ID:                 primitive.NewObjectID(),
			Event:              automation.EventAutomationFailed,
			SourceAutomationID: &first.ID,
		}},
		Action: automation.ActionInvocation{Action: "webhook"},
	})

	require.NoError(t, f.svc.PubEnteredStage(context.Background(), &p))

	assert.Equal(t, []string{"note", "webhook"}, f.registry.invocations())
	require.Len(t, f.runs.byStatus(run.StatusFailure), 1)
	failed := f.runs.byStatus(run.StatusFailure)[0]
	require.NotNil(t, failed.ActionRun)
	assert.Equal(t, "boom", failed.ActionRun.Error)
}

func TestTriggerManual_OnlyTargetFires(t *testing.T) {
	f := newFixture(t)
	stageID := primitive.NewObjectID()
	p := f.addPub(stageID, nil)

	target := f.addAutomation(automation.AutomationDefinition{
		StageID:  stageID,
		Name:     "target",
		Rank:     "b",
		Triggers: []automation.Trigger{{ID: primitive.NewObjectID(), Event: automation.EventManual}},
		Action:   automation.ActionInvocation{Action: "note"},
	})
	f.addAutomation(automation.AutomationDefinition{
		StageID:  stageID,
		Name:     "bystander",
		Rank:     "c",
		Triggers: []automation.Trigger{{ID: primitive.NewObjectID(), Event: automation.EventManual}},
		Action:   automation.ActionInvocation{Action: "webhook"},
	})

	require.NoError(t, f.svc.TriggerManual(context.Background(), target.ID.Hex(), p.ID.Hex()))

	assert.Equal(t, []string{"note"}, f.registry.invocations())
	runs := f.runs.all()
	require.Len(t, runs, 1)
	assert.Equal(t, target.ID, runs[0].AutomationID)
}

func TestTriggerManual_UnknownAutomation(t *testing.T) {
	f := newFixture(t)
	p := f.addPub(primitive.NewObjectID(), nil)

	err := f.svc.TriggerManual(context.Background(), primitive.NewObjectID().Hex(), p.ID.Hex())

	assert.Error(t, err)
}

func TestHandleWebhook_PayloadVisibleToCondition(t *testing.T) {
	f := newFixture(t)
	stageID := primitive.NewObjectID()
	p := f.addPub(stageID, nil)
	f.addAutomation(automation.AutomationDefinition{
		StageID:         stageID,
		Name:            "approved hook",
		Triggers:        []automation.Trigger{{ID: primitive.NewObjectID(), Event: automation.EventWebhook}},
		Condition:       conditionOf(`webhook.status == "approved"`),
		ConditionTiming: automation.TimingOnTrigger,
		Action:          automation.ActionInvocation{Action: "note"},
	})

	require.NoError(t, f.svc.HandleWebhook(context.Background(), p.ID.Hex(),
		map[string]interface{}{"status": "rejected"}))
	assert.Empty(t, f.runs.all())

	require.NoError(t, f.svc.HandleWebhook(context.Background(), p.ID.Hex(),
		map[string]interface{}{"status": "approved"}))
	assert.Len(t, f.runs.byStatus(run.StatusSuccess), 1)
}

func TestDrainDue_DeletedAutomation(t *testing.T) {
	f := newFixture(t)
	stageID := primitive.NewObjectID()
	p := f.addPub(stageID, nil)
	def := f.addAutomation(automation.AutomationDefinition{
		StageID: stageID,
		Name:    "doomed",
		Triggers: []automation.Trigger{{
			ID:     primitive.NewObjectID(),
			Event:  automation.EventPubInStageFor,
			Config: map[string]interface{}{"duration": 60},
		}},
		Action: automation.ActionInvocation{Action: "note"},
	})

	require.NoError(t, f.svc.PubEnteredStage(context.Background(), &p))
	require.Len(t, f.runs.byStatus(run.StatusScheduled), 1)

	require.NoError(t, f.automations.Delete(context.Background(), def.ID.Hex()))
	f.clock = f.clock.Add(2 * time.Minute)
	f.svc.drainDue()

	assert.Len(t, f.runs.byStatus(run.StatusInvalidConfig), 1)
	assert.Empty(t, f.registry.invocations())
}

func TestDrainDue_CanceledRunNeverExecutes(t *testing.T) {
	f := newFixture(t)
	stageID := primitive.NewObjectID()
	p := f.addPub(stageID, nil)
	f.addAutomation(automation.AutomationDefinition{
		StageID: stageID,
		Name:    "waiting",
		Triggers: []automation.Trigger{{
			ID:     primitive.NewObjectID(),
			Event:  automation.EventPubInStageFor,
			Config: map[string]interface{}{"duration": 60},
		}},
		Action: automation.ActionInvocation{Action: "note"},
	})

	require.NoError(t, f.svc.PubEnteredStage(context.Background(), &p))
	scheduled := f.runs.byStatus(run.StatusScheduled)
	require.Len(t, scheduled, 1)

	require.NoError(t, f.runs.Cancel(context.Background(), scheduled[0].ID))
	f.clock = f.clock.Add(2 * time.Minute)
	f.svc.drainDue()

	assert.Empty(t, f.registry.invocations())
	assert.Len(t, f.runs.byStatus(run.StatusCanceled), 1)
}

func TestHandleEvent_InvalidDurationSkipsWithoutRun(t *testing.T) {
	f := newFixture(t)
	stageID := primitive.NewObjectID()
	p := f.addPub(stageID, nil)
	f.addAutomation(automation.AutomationDefinition{
		StageID: stageID,
		Name:    "bad config",
		Triggers: []automation.Trigger{{
			ID:     primitive.NewObjectID(),
			Event:  automation.EventPubInStageFor,
			Config: map[string]interface{}{"duration": "soon"},
		}},
		Action: automation.ActionInvocation{Action: "note"},
	})

	require.NoError(t, f.svc.PubEnteredStage(context.Background(), &p))

	assert.Empty(t, f.runs.all())
	assert.Empty(t, f.registry.invocations())
}
