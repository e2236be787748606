package automation

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"go-pubflow/internal/features/condition"
	"go-pubflow/internal/features/run"
	"go-pubflow/internal/rank"
)

type AutomationService interface {
	CreateAutomation(ctx context.Context, def *AutomationDefinition) error
	GetAutomation(ctx context.Context, id string) (*AutomationDefinition, error)
	ListAutomations(ctx context.Context, stageID string) ([]AutomationDefinition, error)
	UpdateAutomation(ctx context.Context, def *AutomationDefinition) error
	MoveAutomation(ctx context.Context, id, afterID string) error
	DeleteAutomation(ctx context.Context, id string) error
}

type AutomationServiceImpl struct {
	Repo    AutomationRepository
	RunRepo run.RunRepository
	Actions ActionValidator
	Logger  *zap.Logger
}

func NewAutomationService(repo AutomationRepository, runRepo run.RunRepository, actions ActionValidator, logger *zap.Logger) AutomationService {
	return &AutomationServiceImpl{
		Repo:    repo,
		RunRepo: runRepo,
		Actions: actions,
		Logger:  logger,
	}
}

// CreateAutomation validates the definition as a unit and appends it to
// its stage's ordering.
func (s *AutomationServiceImpl) CreateAutomation(ctx context.Context, def *AutomationDefinition) error {
	existing, err := s.Repo.List(ctx)
	if err != nil {
		return err
	}
	if err := Validate(def, existing, s.Actions).OrNil(); err != nil {
		return err
	}
	condition.Normalize(def.Condition)

	if def.Rank == "" {
		siblings, err := s.Repo.ListByStage(ctx, def.StageID)
		if err != nil {
			return err
		}
		last := ""
		if n := len(siblings); n > 0 {
			last = siblings[n-1].Rank
		}
		key, err := rank.Next(last)
		if err != nil {
			return err
		}
		def.Rank = key
	}

	return s.Repo.Create(ctx, def)
}

func (s *AutomationServiceImpl) GetAutomation(ctx context.Context, id string) (*AutomationDefinition, error) {
	return s.Repo.GetByID(ctx, id)
}

func (s *AutomationServiceImpl) ListAutomations(ctx context.Context, stageID string) ([]AutomationDefinition, error) {
	if stageID == "" {
		return s.Repo.List(ctx)
	}
	oid, err := primitive.ObjectIDFromHex(stageID)
	if err != nil {
		return nil, err
	}
	return s.Repo.ListByStage(ctx, oid)
}

// UpdateAutomation re-validates the merged definition and replaces the
// stored aggregate in a single write.
func (s *AutomationServiceImpl) UpdateAutomation(ctx context.Context, def *AutomationDefinition) error {
	current, err := s.Repo.GetByID(ctx, def.ID.Hex())
	if err != nil {
		return err
	}
	if current == nil {
		return fmt.Errorf("automation not found")
	}
	if def.Rank == "" {
		def.Rank = current.Rank
	}
	def.CreatedAt = current.CreatedAt

	existing, err := s.Repo.List(ctx)
	if err != nil {
		return err
	}
	if err := Validate(def, existing, s.Actions).OrNil(); err != nil {
		return err
	}
	condition.Normalize(def.Condition)

	return s.Repo.Replace(ctx, def)
}

// MoveAutomation places an automation directly after another one in its
// stage's ordering (or first when afterID is empty). Only the moved
// automation's rank changes; when the gap is exhausted the whole stage is
// rebalanced first.
func (s *AutomationServiceImpl) MoveAutomation(ctx context.Context, id, afterID string) error {
	def, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if def == nil {
		return fmt.Errorf("automation not found")
	}

	key, err := s.rankAfter(ctx, def, afterID)
	if errors.Is(err, rank.ErrNoRoom) {
		if err := s.rebalanceStage(ctx, def.StageID); err != nil {
			return err
		}
		// the moved automation's own rank changed during the rebalance
		def, err = s.Repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		key, err = s.rankAfter(ctx, def, afterID)
	}
	if err != nil {
		return err
	}

	def.Rank = key
	return s.Repo.Replace(ctx, def)
}

func (s *AutomationServiceImpl) rankAfter(ctx context.Context, def *AutomationDefinition, afterID string) (string, error) {
	siblings, err := s.Repo.ListByStage(ctx, def.StageID)
	if err != nil {
		return "", err
	}

	lower, upper := "", ""
	if afterID == "" {
		// move to the front
		for i := range siblings {
			if siblings[i].ID != def.ID {
				upper = siblings[i].Rank
				break
			}
		}
	} else {
		found := false
		for i := range siblings {
			if siblings[i].ID.Hex() != afterID {
				continue
			}
			found = true
			lower = siblings[i].Rank
			for j := i + 1; j < len(siblings); j++ {
				if siblings[j].ID != def.ID {
					upper = siblings[j].Rank
					break
				}
			}
			break
		}
		if !found {
			return "", fmt.Errorf("automation %s not found in stage", afterID)
		}
	}

	keys, err := rank.Between(lower, upper, 1)
	if err != nil {
		return "", err
	}
	return keys[0], nil
}

// rebalanceStage rewrites every rank in the stage with fresh evenly spaced
// keys, preserving the current order.
func (s *AutomationServiceImpl) rebalanceStage(ctx context.Context, stageID primitive.ObjectID) error {
	siblings, err := s.Repo.ListByStage(ctx, stageID)
	if err != nil {
		return err
	}
	keys, err := rank.Between("", "", len(siblings))
	if err != nil {
		return err
	}
	for i := range siblings {
		siblings[i].Rank = keys[i]
		if err := s.Repo.Replace(ctx, &siblings[i]); err != nil {
			return err
		}
	}
	s.Logger.Info("rebalanced automation ranks",
		zap.String("stageId", stageID.Hex()),
		zap.Int("count", len(siblings)))
	return nil
}

// DeleteAutomation removes the definition, cancels its pending scheduled
// runs so no deleted automation ever executes, and flags any automation
// left watching the deleted one's outcomes.
func (s *AutomationServiceImpl) DeleteAutomation(ctx context.Context, id string) error {
	def, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if def == nil {
		return fmt.Errorf("automation not found")
	}

	if err := s.Repo.Delete(ctx, id); err != nil {
		return err
	}
	canceled, err := s.RunRepo.CancelPending(ctx, []primitive.ObjectID{def.ID})
	if err != nil {
		return fmt.Errorf("failed to cancel pending runs: %w", err)
	}
	if canceled > 0 {
		s.Logger.Info("canceled pending runs for deleted automation",
			zap.String("automationId", def.ID.Hex()),
			zap.Int64("count", canceled))
	}

	// Sequential triggers pointing at the deleted automation can never fire
	// again; surface each dangling watcher to its author.
	watchers, err := s.Repo.ListWatching(ctx, def.ID)
	if err != nil {
		s.Logger.Error("failed to list watchers of deleted automation", zap.Error(err),
			zap.String("automationId", def.ID.Hex()))
		return nil
	}
	for i := range watchers {
		s.Logger.Warn("automation watches a deleted automation",
			zap.String("automationId", watchers[i].ID.Hex()),
			zap.String("sourceAutomationId", def.ID.Hex()),
			zap.String("diagnostic", "invalid_configuration"))
	}
	return nil
}
