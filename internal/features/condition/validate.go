package condition

import (
	"fmt"

	"go-pubflow/internal/common/models"
)

// Validate checks the structural invariants of a condition tree: the root
// is a block, no block is empty, NOT blocks hold exactly one item, leaves
// carry a non-empty expression and a rank, and nesting stays within the
// authoring cap. Returns nil for a valid tree.
func Validate(root *Item) models.ValidationErrors {
	var errs models.ValidationErrors
	if root == nil {
		return nil
	}
	if !root.IsBlock() {
		errs = append(errs, models.ValidationError{
			Field:   "condition",
			Message: "root must be a block",
		})
		return errs
	}
	validateItem(root, "condition", 0, &errs)
	return errs
}

func validateItem(item *Item, path string, depth int, errs *models.ValidationErrors) {
	if item.Rank == "" && depth > 0 {
		*errs = append(*errs, models.ValidationError{Field: path, Message: "item has no rank"})
	}

	switch item.Kind {
	case KindCondition:
		if item.Expression == "" {
			*errs = append(*errs, models.ValidationError{Field: path, Message: "condition expression is empty"})
		}
		if len(item.Items) > 0 {
			*errs = append(*errs, models.ValidationError{Field: path, Message: "condition leaf cannot have child items"})
		}
	case KindBlock:
		if depth >= MaxAuthoringDepth {
			*errs = append(*errs, models.ValidationError{
				Field:   path,
				Message: fmt.Sprintf("nesting exceeds max depth %d", MaxAuthoringDepth),
			})
			return
		}
		switch item.Type {
		case BlockAnd, BlockOr:
			if len(item.Items) == 0 {
				*errs = append(*errs, models.ValidationError{Field: path, Message: "block has no items"})
			}
		case BlockNot:
			if len(item.Items) != 1 {
				*errs = append(*errs, models.ValidationError{
					Field:   path,
					Message: fmt.Sprintf("not-block must hold exactly one item, has %d", len(item.Items)),
				})
			}
		default:
			*errs = append(*errs, models.ValidationError{
				Field:   path,
				Message: fmt.Sprintf("unknown block type %q", item.Type),
			})
		}
		for i := range item.Items {
			validateItem(&item.Items[i], fmt.Sprintf("%s.items[%d]", path, i), depth+1, errs)
		}
	default:
		*errs = append(*errs, models.ValidationError{
			Field:   path,
			Message: fmt.Sprintf("unknown item kind %q", item.Kind),
		})
	}
}
