package run

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"go-pubflow/internal/database"
)

// ErrConflict is returned when a conditional transition found the run in a
// different state: someone else already claimed, canceled or finished it.
var ErrConflict = errors.New("run: conflicting state transition")

type RunRepository interface {
	Create(ctx context.Context, r *AutomationRun) error
	GetByID(ctx context.Context, id string) (*AutomationRun, error)
	ListByAutomation(ctx context.Context, automationID primitive.ObjectID, limit int) ([]AutomationRun, error)
	ListByPub(ctx context.Context, pubID primitive.ObjectID, limit int) ([]AutomationRun, error)

	// ClaimDue atomically flips the oldest due scheduled run to running and
	// returns it, or nil when nothing is due. The claim-before-run
	// transition guarantees each scheduled run executes or is canceled
	// exactly once, even across concurrent pollers and restarts.
	ClaimDue(ctx context.Context, now time.Time) (*AutomationRun, error)

	// Finish moves a running run to a terminal state. ErrConflict when the
	// run is not in the running state.
	Finish(ctx context.Context, id primitive.ObjectID, status Status, result *ActionRunResult) error

	// Cancel moves a scheduled run to canceled. ErrConflict when the timer
	// already won the race.
	Cancel(ctx context.Context, id primitive.ObjectID) error

	// CancelPending cancels every scheduled run of the given automations
	// (automation or stage deletion).
	CancelPending(ctx context.Context, automationIDs []primitive.ObjectID) (int64, error)
}

type RunRepositoryImpl struct {
	Collection *mongo.Collection
}

func NewRunRepository(mongodb *database.MongodbDB) RunRepository {
	return &RunRepositoryImpl{
		Collection: mongodb.DB.Collection("automation_runs"),
	}
}

func (r *RunRepositoryImpl) Create(ctx context.Context, ar *AutomationRun) error {
	ar.ID = primitive.NewObjectID()
	ar.CreatedAt = time.Now()
	_, err := r.Collection.InsertOne(ctx, ar)
	return err
}

func (r *RunRepositoryImpl) GetByID(ctx context.Context, id string) (*AutomationRun, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, err
	}
	var ar AutomationRun
	err = r.Collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&ar)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &ar, nil
}

func (r *RunRepositoryImpl) ListByAutomation(ctx context.Context, automationID primitive.ObjectID, limit int) ([]AutomationRun, error) {
	return r.list(ctx, bson.M{"automation_id": automationID}, limit)
}

func (r *RunRepositoryImpl) ListByPub(ctx context.Context, pubID primitive.ObjectID, limit int) ([]AutomationRun, error) {
	return r.list(ctx, bson.M{"pub_id": pubID}, limit)
}

func (r *RunRepositoryImpl) list(ctx context.Context, filter bson.M, limit int) ([]AutomationRun, error) {
	if limit <= 0 {
		limit = 50
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(int64(limit))
	cursor, err := r.Collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	var runs []AutomationRun
	if err = cursor.All(ctx, &runs); err != nil {
		return nil, err
	}
	return runs, nil
}

func (r *RunRepositoryImpl) ClaimDue(ctx context.Context, now time.Time) (*AutomationRun, error) {
	filter := bson.M{
		"status":        StatusScheduled,
		"scheduled_for": bson.M{"$lte": now},
	}
	update := bson.M{"$set": bson.M{
		"status":     StatusRunning,
		"started_at": now,
	}}
	opts := options.FindOneAndUpdate().
		SetSort(bson.D{{Key: "scheduled_for", Value: 1}}).
		SetReturnDocument(options.After)

	var ar AutomationRun
	err := r.Collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&ar)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &ar, nil
}

func (r *RunRepositoryImpl) Finish(ctx context.Context, id primitive.ObjectID, status Status, result *ActionRunResult) error {
	now := time.Now()
	res, err := r.Collection.UpdateOne(ctx,
		bson.M{"_id": id, "status": StatusRunning},
		bson.M{"$set": bson.M{
			"status":      status,
			"finished_at": now,
			"action_run":  result,
		}},
	)
	if err != nil {
		return err
	}
	if res.ModifiedCount == 0 {
		return ErrConflict
	}
	return nil
}

func (r *RunRepositoryImpl) Cancel(ctx context.Context, id primitive.ObjectID) error {
	now := time.Now()
	res, err := r.Collection.UpdateOne(ctx,
		bson.M{"_id": id, "status": StatusScheduled},
		bson.M{"$set": bson.M{"status": StatusCanceled, "finished_at": now}},
	)
	if err != nil {
		return err
	}
	if res.ModifiedCount == 0 {
		return ErrConflict
	}
	return nil
}

func (r *RunRepositoryImpl) CancelPending(ctx context.Context, automationIDs []primitive.ObjectID) (int64, error) {
	if len(automationIDs) == 0 {
		return 0, nil
	}
	now := time.Now()
	res, err := r.Collection.UpdateMany(ctx,
		bson.M{"status": StatusScheduled, "automation_id": bson.M{"$in": automationIDs}},
		bson.M{"$set": bson.M{"status": StatusCanceled, "finished_at": now}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}
