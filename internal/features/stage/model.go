package stage

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Stage is a named node in the workflow; it owns pubs and automations.
type Stage struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name      string             `json:"name" bson:"name"`
	Rank      string             `json:"rank" bson:"rank"`
	CreatedAt time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time          `json:"updated_at" bson:"updated_at"`
}
