package automation

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"go-pubflow/internal/database"
)

type AutomationRepository interface {
	Create(ctx context.Context, def *AutomationDefinition) error
	GetByID(ctx context.Context, id string) (*AutomationDefinition, error)
	ListByStage(ctx context.Context, stageID primitive.ObjectID) ([]AutomationDefinition, error)
	List(ctx context.Context) ([]AutomationDefinition, error)
	Replace(ctx context.Context, def *AutomationDefinition) error
	ListWatching(ctx context.Context, sourceID primitive.ObjectID) ([]AutomationDefinition, error)
	Delete(ctx context.Context, id string) error
	DeleteByStage(ctx context.Context, stageID primitive.ObjectID) ([]primitive.ObjectID, error)
}

type AutomationRepositoryImpl struct {
	Collection *mongo.Collection
}

func NewAutomationRepository(mongodb *database.MongodbDB) AutomationRepository {
	return &AutomationRepositoryImpl{
		Collection: mongodb.DB.Collection("automations"),
	}
}

func (r *AutomationRepositoryImpl) Create(ctx context.Context, def *AutomationDefinition) error {
	def.ID = primitive.NewObjectID()
	def.CreatedAt = time.Now()
	def.UpdatedAt = time.Now()
	_, err := r.Collection.InsertOne(ctx, def)
	return err
}

func (r *AutomationRepositoryImpl) GetByID(ctx context.Context, id string) (*AutomationDefinition, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, err
	}
	var def AutomationDefinition
	err = r.Collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&def)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &def, nil
}

// ListByStage returns the stage's automations in ascending rank order,
// the order candidates are considered in.
func (r *AutomationRepositoryImpl) ListByStage(ctx context.Context, stageID primitive.ObjectID) ([]AutomationDefinition, error) {
	opts := options.Find().SetSort(bson.D{{Key: "rank", Value: 1}})
	cursor, err := r.Collection.Find(ctx, bson.M{"stage_id": stageID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	var defs []AutomationDefinition
	if err = cursor.All(ctx, &defs); err != nil {
		return nil, err
	}
	return defs, nil
}

func (r *AutomationRepositoryImpl) List(ctx context.Context) ([]AutomationDefinition, error) {
	cursor, err := r.Collection.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	var defs []AutomationDefinition
	if err = cursor.All(ctx, &defs); err != nil {
		return nil, err
	}
	return defs, nil
}

// Replace swaps the whole aggregate in one write. The definition is a
// single document, so triggers, condition and action can never be observed
// out of sync.
func (r *AutomationRepositoryImpl) Replace(ctx context.Context, def *AutomationDefinition) error {
	def.UpdatedAt = time.Now()
	_, err := r.Collection.ReplaceOne(ctx, bson.M{"_id": def.ID}, def)
	return err
}

// ListWatching returns the automations holding a sequential trigger that
// watches sourceID's outcomes.
func (r *AutomationRepositoryImpl) ListWatching(ctx context.Context, sourceID primitive.ObjectID) ([]AutomationDefinition, error) {
	cursor, err := r.Collection.Find(ctx, bson.M{"triggers.source_automation_id": sourceID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	var defs []AutomationDefinition
	if err = cursor.All(ctx, &defs); err != nil {
		return nil, err
	}
	return defs, nil
}

func (r *AutomationRepositoryImpl) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}
	_, err = r.Collection.DeleteOne(ctx, bson.M{"_id": oid})
	return err
}

// DeleteByStage removes every automation of a stage (stage cascade) and
// returns their ids so pending scheduled runs can be canceled.
func (r *AutomationRepositoryImpl) DeleteByStage(ctx context.Context, stageID primitive.ObjectID) ([]primitive.ObjectID, error) {
	defs, err := r.ListByStage(ctx, stageID)
	if err != nil {
		return nil, err
	}
	ids := make([]primitive.ObjectID, len(defs))
	for i := range defs {
		ids[i] = defs[i].ID
	}
	if _, err := r.Collection.DeleteMany(ctx, bson.M{"stage_id": stageID}); err != nil {
		return nil, err
	}
	return ids, nil
}
