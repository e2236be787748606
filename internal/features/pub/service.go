package pub

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// StageEventEmitter receives stage-transition events. The scheduler
// implements it; the indirection keeps this package free of a scheduler
// dependency.
type StageEventEmitter interface {
	PubEnteredStage(ctx context.Context, p *Pub) error
	PubLeftStage(ctx context.Context, p *Pub, formerStageID primitive.ObjectID) error
}

type PubService interface {
	CreatePub(ctx context.Context, p *Pub) error
	GetPub(ctx context.Context, id string) (*Pub, error)
	ListPubs(ctx context.Context, stageID string) ([]Pub, error)
	UpdatePub(ctx context.Context, p *Pub) error
	DeletePub(ctx context.Context, id string) error

	// MovePub moves a pub to another stage and feeds the resulting
	// pub_left_stage / pub_entered_stage events into the engine.
	MovePub(ctx context.Context, id string, stageID string) (*Pub, error)
}

type PubServiceImpl struct {
	Repo    PubRepository
	Emitter StageEventEmitter
}

func NewPubService(repo PubRepository, emitter StageEventEmitter) PubService {
	return &PubServiceImpl{
		Repo:    repo,
		Emitter: emitter,
	}
}

func (s *PubServiceImpl) CreatePub(ctx context.Context, p *Pub) error {
	if p.Title == "" {
		return fmt.Errorf("pub title is required")
	}
	if p.StageID.IsZero() {
		return fmt.Errorf("pub stage is required")
	}
	if err := s.Repo.Create(ctx, p); err != nil {
		return err
	}
	// A freshly created pub enters its initial stage.
	return s.Emitter.PubEnteredStage(ctx, p)
}

func (s *PubServiceImpl) GetPub(ctx context.Context, id string) (*Pub, error) {
	return s.Repo.GetByID(ctx, id)
}

func (s *PubServiceImpl) ListPubs(ctx context.Context, stageID string) ([]Pub, error) {
	oid, err := primitive.ObjectIDFromHex(stageID)
	if err != nil {
		return nil, err
	}
	return s.Repo.ListByStage(ctx, oid)
}

func (s *PubServiceImpl) UpdatePub(ctx context.Context, p *Pub) error {
	return s.Repo.Update(ctx, p)
}

func (s *PubServiceImpl) DeletePub(ctx context.Context, id string) error {
	return s.Repo.Delete(ctx, id)
}

func (s *PubServiceImpl) MovePub(ctx context.Context, id string, stageID string) (*Pub, error) {
	target, err := primitive.ObjectIDFromHex(stageID)
	if err != nil {
		return nil, fmt.Errorf("invalid stage id: %w", err)
	}

	p, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("pub not found")
	}
	if p.StageID == target {
		return p, nil
	}

	former := p.StageID
	if err := s.Repo.SetStage(ctx, p.ID, target); err != nil {
		return nil, err
	}
	p.StageID = target

	// Leave first, then enter: the left-stage snapshot still reflects the
	// pub as it was in the former stage.
	if err := s.Emitter.PubLeftStage(ctx, p, former); err != nil {
		return nil, err
	}
	if err := s.Emitter.PubEnteredStage(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}
