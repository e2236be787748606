package condition

import (
	"fmt"
	"sort"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Evaluator is the injected pure predicate boundary. Implementations must
// be side-effect free and must not perform I/O.
type Evaluator interface {
	Eval(expression string, env map[string]interface{}) (bool, error)
}

// Diagnostic records a leaf that could not be evaluated. The leaf counts
// as false (fail-closed); the diagnostic is surfaced to the author.
type Diagnostic struct {
	ItemID     primitive.ObjectID
	Expression string
	Err        error
}

// Evaluate walks the tree post-order and reduces it to a single boolean.
// Leaf evaluation errors never abort the walk: the failing leaf evaluates
// to false and is reported in the returned diagnostics. Each block's items
// are visited in rank order without mutating the tree, so concurrent
// evaluations may share one tree.
func Evaluate(root *Item, evaluator Evaluator, env map[string]interface{}) (bool, []Diagnostic) {
	var diags []Diagnostic
	result := evalItem(root, evaluator, env, 0, &diags)
	return result, diags
}

func evalItem(item *Item, evaluator Evaluator, env map[string]interface{}, depth int, diags *[]Diagnostic) bool {
	if item == nil {
		return false
	}
	if depth > maxEvalDepth {
		*diags = append(*diags, Diagnostic{
			ItemID: item.ID,
			Err:    fmt.Errorf("condition: tree exceeds evaluation depth %d", maxEvalDepth),
		})
		return false
	}

	if !item.IsBlock() {
		ok, err := evaluator.Eval(item.Expression, env)
		if err != nil {
			*diags = append(*diags, Diagnostic{ItemID: item.ID, Expression: item.Expression, Err: err})
			return false
		}
		return ok
	}

	switch item.Type {
	case BlockAnd:
		for _, child := range orderedChildren(item) {
			if !evalItem(child, evaluator, env, depth+1, diags) {
				return false
			}
		}
		return len(item.Items) > 0
	case BlockOr:
		for _, child := range orderedChildren(item) {
			if evalItem(child, evaluator, env, depth+1, diags) {
				return true
			}
		}
		return false
	case BlockNot:
		if len(item.Items) != 1 {
			*diags = append(*diags, Diagnostic{
				ItemID: item.ID,
				Err:    fmt.Errorf("condition: not-block has %d items, want 1", len(item.Items)),
			})
			return false
		}
		return !evalItem(&item.Items[0], evaluator, env, depth+1, diags)
	default:
		*diags = append(*diags, Diagnostic{
			ItemID: item.ID,
			Err:    fmt.Errorf("condition: unknown block type %q", item.Type),
		})
		return false
	}
}

// orderedChildren sorts pointers to the block's items by rank so the walk
// visits siblings in authoring order even when the stored slice is not.
func orderedChildren(block *Item) []*Item {
	children := make([]*Item, len(block.Items))
	for i := range block.Items {
		children[i] = &block.Items[i]
	}
	sort.SliceStable(children, func(i, j int) bool {
		return children[i].Rank < children[j].Rank
	})
	return children
}
