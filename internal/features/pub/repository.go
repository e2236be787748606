package pub

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"go-pubflow/internal/database"
)

type PubRepository interface {
	Create(ctx context.Context, p *Pub) error
	GetByID(ctx context.Context, id string) (*Pub, error)
	ListByStage(ctx context.Context, stageID primitive.ObjectID) ([]Pub, error)
	Update(ctx context.Context, p *Pub) error
	SetValue(ctx context.Context, id primitive.ObjectID, field string, value interface{}) error
	SetStage(ctx context.Context, id, stageID primitive.ObjectID) error
	Delete(ctx context.Context, id string) error
}

type PubRepositoryImpl struct {
	Collection *mongo.Collection
}

func NewPubRepository(mongodb *database.MongodbDB) PubRepository {
	return &PubRepositoryImpl{
		Collection: mongodb.DB.Collection("pubs"),
	}
}

func (r *PubRepositoryImpl) Create(ctx context.Context, p *Pub) error {
	p.ID = primitive.NewObjectID()
	p.CreatedAt = time.Now()
	p.UpdatedAt = time.Now()
	_, err := r.Collection.InsertOne(ctx, p)
	return err
}

func (r *PubRepositoryImpl) GetByID(ctx context.Context, id string) (*Pub, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, err
	}
	var p Pub
	err = r.Collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&p)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (r *PubRepositoryImpl) ListByStage(ctx context.Context, stageID primitive.ObjectID) ([]Pub, error) {
	cursor, err := r.Collection.Find(ctx, bson.M{"stage_id": stageID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	var pubs []Pub
	if err = cursor.All(ctx, &pubs); err != nil {
		return nil, err
	}
	return pubs, nil
}

func (r *PubRepositoryImpl) Update(ctx context.Context, p *Pub) error {
	p.UpdatedAt = time.Now()
	_, err := r.Collection.UpdateOne(ctx, bson.M{"_id": p.ID}, bson.M{"$set": p})
	return err
}

func (r *PubRepositoryImpl) SetValue(ctx context.Context, id primitive.ObjectID, field string, value interface{}) error {
	_, err := r.Collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"values." + field: value,
		"updated_at":      time.Now(),
	}})
	return err
}

func (r *PubRepositoryImpl) SetStage(ctx context.Context, id, stageID primitive.ObjectID) error {
	_, err := r.Collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"stage_id":   stageID,
		"updated_at": time.Now(),
	}})
	return err
}

func (r *PubRepositoryImpl) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}
	_, err = r.Collection.DeleteOne(ctx, bson.M{"_id": oid})
	return err
}
