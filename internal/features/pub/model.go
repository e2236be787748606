package pub

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Pub is the workflow entity that moves through stages. Values holds the
// free-form field data conditions are evaluated against.
type Pub struct {
	ID        primitive.ObjectID     `json:"id" bson:"_id,omitempty"`
	Title     string                 `json:"title" bson:"title"`
	StageID   primitive.ObjectID     `json:"stage_id" bson:"stage_id"`
	Values    map[string]interface{} `json:"values,omitempty" bson:"values,omitempty"`
	CreatedAt time.Time              `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time              `json:"updated_at" bson:"updated_at"`
}

// Snapshot flattens the pub into the expression environment: field values
// at top level, identity under "pub".
func (p *Pub) Snapshot() map[string]interface{} {
	env := make(map[string]interface{}, len(p.Values)+1)
	for k, v := range p.Values {
		env[k] = v
	}
	env["pub"] = map[string]interface{}{
		"id":       p.ID.Hex(),
		"title":    p.Title,
		"stage_id": p.StageID.Hex(),
	}
	return env
}
