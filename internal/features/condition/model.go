package condition

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Kind string

const (
	KindCondition Kind = "condition"
	KindBlock     Kind = "block"
)

type BlockType string

const (
	BlockAnd BlockType = "and"
	BlockOr  BlockType = "or"
	BlockNot BlockType = "not"
)

// MaxAuthoringDepth caps block nesting at edit time. This is a usability
// cap, not a correctness invariant; evaluation tolerates deeper persisted
// trees up to maxEvalDepth.
const MaxAuthoringDepth = 3

// maxEvalDepth bounds structural recursion against malformed persisted data.
const maxEvalDepth = 8

// Item is the tagged union over condition leaves and blocks. Kind is the
// discriminant: a leaf carries Expression, a block carries Type and Items.
// Items within a block are kept sorted by Rank.
type Item struct {
	ID         primitive.ObjectID `json:"id" bson:"_id"`
	Rank       string             `json:"rank" bson:"rank"`
	Kind       Kind               `json:"kind" bson:"kind"`
	Expression string             `json:"expression,omitempty" bson:"expression,omitempty"`
	Type       BlockType          `json:"type,omitempty" bson:"type,omitempty"`
	Items      []Item             `json:"items,omitempty" bson:"items,omitempty"`
}

// IsBlock reports whether the item is a block node.
func (it *Item) IsBlock() bool {
	return it.Kind == KindBlock
}

// NewBlock builds an empty block shell. Callers must add at least one item
// before the tree passes validation.
func NewBlock(t BlockType, rank string) Item {
	return Item{
		ID:   primitive.NewObjectID(),
		Rank: rank,
		Kind: KindBlock,
		Type: t,
	}
}

// NewLeaf builds a condition leaf around an opaque predicate expression.
func NewLeaf(expression, rank string) Item {
	return Item{
		ID:         primitive.NewObjectID(),
		Rank:       rank,
		Kind:       KindCondition,
		Expression: expression,
	}
}
