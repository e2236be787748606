package stage

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"go-pubflow/internal/database"
)

type StageRepository interface {
	Create(ctx context.Context, s *Stage) error
	GetByID(ctx context.Context, id string) (*Stage, error)
	List(ctx context.Context) ([]Stage, error)
	Update(ctx context.Context, s *Stage) error
	Delete(ctx context.Context, id string) error
}

type StageRepositoryImpl struct {
	Collection *mongo.Collection
}

func NewStageRepository(mongodb *database.MongodbDB) StageRepository {
	return &StageRepositoryImpl{
		Collection: mongodb.DB.Collection("stages"),
	}
}

func (r *StageRepositoryImpl) Create(ctx context.Context, s *Stage) error {
	s.ID = primitive.NewObjectID()
	s.CreatedAt = time.Now()
	s.UpdatedAt = time.Now()
	_, err := r.Collection.InsertOne(ctx, s)
	return err
}

func (r *StageRepositoryImpl) GetByID(ctx context.Context, id string) (*Stage, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, err
	}
	var s Stage
	err = r.Collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&s)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

func (r *StageRepositoryImpl) List(ctx context.Context) ([]Stage, error) {
	opts := options.Find().SetSort(bson.D{{Key: "rank", Value: 1}})
	cursor, err := r.Collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	var stages []Stage
	if err = cursor.All(ctx, &stages); err != nil {
		return nil, err
	}
	return stages, nil
}

func (r *StageRepositoryImpl) Update(ctx context.Context, s *Stage) error {
	s.UpdatedAt = time.Now()
	_, err := r.Collection.UpdateOne(ctx, bson.M{"_id": s.ID}, bson.M{"$set": s})
	return err
}

func (r *StageRepositoryImpl) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}
	_, err = r.Collection.DeleteOne(ctx, bson.M{"_id": oid})
	return err
}
