package stage

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"go-pubflow/internal/features/automation"
	"go-pubflow/internal/features/run"
	"go-pubflow/internal/rank"
)

type StageService interface {
	CreateStage(ctx context.Context, s *Stage) error
	GetStage(ctx context.Context, id string) (*Stage, error)
	ListStages(ctx context.Context) ([]Stage, error)
	UpdateStage(ctx context.Context, s *Stage) error
	DeleteStage(ctx context.Context, id string) error
}

type StageServiceImpl struct {
	Repo           StageRepository
	AutomationRepo automation.AutomationRepository
	RunRepo        run.RunRepository
	Logger         *zap.Logger
}

func NewStageService(repo StageRepository, automationRepo automation.AutomationRepository, runRepo run.RunRepository, logger *zap.Logger) StageService {
	return &StageServiceImpl{
		Repo:           repo,
		AutomationRepo: automationRepo,
		RunRepo:        runRepo,
		Logger:         logger,
	}
}

func (s *StageServiceImpl) CreateStage(ctx context.Context, st *Stage) error {
	if st.Name == "" {
		return fmt.Errorf("stage name is required")
	}
	if st.Rank == "" {
		stages, err := s.Repo.List(ctx)
		if err != nil {
			return err
		}
		last := ""
		if n := len(stages); n > 0 {
			last = stages[n-1].Rank
		}
		key, err := rank.Next(last)
		if err != nil {
			return err
		}
		st.Rank = key
	}
	return s.Repo.Create(ctx, st)
}

func (s *StageServiceImpl) GetStage(ctx context.Context, id string) (*Stage, error) {
	return s.Repo.GetByID(ctx, id)
}

func (s *StageServiceImpl) ListStages(ctx context.Context) ([]Stage, error) {
	return s.Repo.List(ctx)
}

func (s *StageServiceImpl) UpdateStage(ctx context.Context, st *Stage) error {
	if st.Name == "" {
		return fmt.Errorf("stage name is required")
	}
	return s.Repo.Update(ctx, st)
}

// DeleteStage cascades: the stage's automations are removed with it and
// their pending scheduled runs canceled.
func (s *StageServiceImpl) DeleteStage(ctx context.Context, id string) error {
	st, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if st == nil {
		return fmt.Errorf("stage not found")
	}

	automationIDs, err := s.AutomationRepo.DeleteByStage(ctx, st.ID)
	if err != nil {
		return fmt.Errorf("failed to delete stage automations: %w", err)
	}
	canceled, err := s.RunRepo.CancelPending(ctx, automationIDs)
	if err != nil {
		return fmt.Errorf("failed to cancel pending runs: %w", err)
	}
	if canceled > 0 {
		s.Logger.Info("canceled pending runs for deleted stage",
			zap.String("stageId", st.ID.Hex()),
			zap.Int64("count", canceled))
	}

	return s.Repo.Delete(ctx, id)
}
