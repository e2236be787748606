package condition

import (
	"errors"
	"fmt"
	"sort"

	"go-pubflow/internal/rank"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrItemNotFound = errors.New("condition: item not found")
	ErrNotABlock    = errors.New("condition: parent is not a block")
	ErrEmptyBlock   = errors.New("condition: removing the last item would leave an empty block; remove the block instead")
	ErrTooDeep      = fmt.Errorf("condition: nesting exceeds max depth %d", MaxAuthoringDepth)
	ErrMoveIntoSelf = errors.New("condition: cannot move a block into its own subtree")
)

// AddItem inserts item under the block parentBlockID with a fresh ID and a
// fresh rank. A nil afterSiblingID appends; otherwise the item lands
// directly after that sibling. When neighbors leave no rank room the whole
// sibling set is rebalanced (the allowed fallback) before inserting.
func AddItem(root *Item, parentBlockID primitive.ObjectID, item Item, afterSiblingID *primitive.ObjectID) (*Item, error) {
	parent, depth := findWithDepth(root, parentBlockID)
	if parent == nil {
		return nil, ErrItemNotFound
	}
	if !parent.IsBlock() {
		return nil, ErrNotABlock
	}
	if item.Kind == KindBlock && depth+1 >= MaxAuthoringDepth {
		return nil, ErrTooDeep
	}

	sortItems(parent)

	lower, upper := "", ""
	if afterSiblingID == nil {
		if n := len(parent.Items); n > 0 {
			lower = parent.Items[n-1].Rank
		}
	} else {
		idx := indexOfChild(parent, *afterSiblingID)
		if idx < 0 {
			return nil, ErrItemNotFound
		}
		lower = parent.Items[idx].Rank
		if idx+1 < len(parent.Items) {
			upper = parent.Items[idx+1].Rank
		}
	}

	keys, err := rank.Between(lower, upper, 1)
	if errors.Is(err, rank.ErrNoRoom) {
		rebalance(parent)
		// Recompute neighbors against the regenerated keys.
		if afterSiblingID == nil {
			lower, upper = parent.Items[len(parent.Items)-1].Rank, ""
		} else {
			idx := indexOfChild(parent, *afterSiblingID)
			lower = parent.Items[idx].Rank
			upper = ""
			if idx+1 < len(parent.Items) {
				upper = parent.Items[idx+1].Rank
			}
		}
		keys, err = rank.Between(lower, upper, 1)
	}
	if err != nil {
		return nil, err
	}

	item.ID = primitive.NewObjectID()
	item.Rank = keys[0]
	parent.Items = append(parent.Items, item)
	sortItems(parent)

	return find(root, item.ID), nil
}

// MoveItem relocates an item under newParentBlockID, ranked between the
// named neighbors (either may be absent). Only the moved item's rank
// changes; neighbors keep their keys. rank.ErrNoRoom is returned untouched
// so callers can rebalance explicitly without breaking that guarantee.
func MoveItem(root *Item, itemID, newParentBlockID primitive.ObjectID, beforeSiblingID, afterSiblingID *primitive.ObjectID) error {
	oldParent, idx := findParent(root, itemID)
	if oldParent == nil {
		return ErrItemNotFound
	}
	item := oldParent.Items[idx]

	newParent, depth := findWithDepth(root, newParentBlockID)
	if newParent == nil {
		return ErrItemNotFound
	}
	if !newParent.IsBlock() {
		return ErrNotABlock
	}
	if item.IsBlock() {
		if item.ID == newParentBlockID || find(&item, newParentBlockID) != nil {
			return ErrMoveIntoSelf
		}
		if depth+1 >= MaxAuthoringDepth {
			return ErrTooDeep
		}
	}
	if oldParent.ID != newParent.ID && len(oldParent.Items) == 1 {
		return ErrEmptyBlock
	}

	lower, upper := "", ""
	if afterSiblingID != nil {
		after := find(root, *afterSiblingID)
		if after == nil {
			return ErrItemNotFound
		}
		lower = after.Rank
	}
	if beforeSiblingID != nil {
		before := find(root, *beforeSiblingID)
		if before == nil {
			return ErrItemNotFound
		}
		upper = before.Rank
	}

	keys, err := rank.Between(lower, upper, 1)
	if err != nil {
		return err
	}

	oldParent.Items = append(oldParent.Items[:idx], oldParent.Items[idx+1:]...)
	// oldParent may alias newParent; resolve again after the removal.
	newParent, _ = findWithDepth(root, newParentBlockID)

	item.Rank = keys[0]
	newParent.Items = append(newParent.Items, item)
	sortItems(newParent)

	return nil
}

// RemoveItem deletes an item. An edit that would leave the parent block
// empty is rejected; empty blocks are never persisted.
func RemoveItem(root *Item, itemID primitive.ObjectID) error {
	parent, idx := findParent(root, itemID)
	if parent == nil {
		return ErrItemNotFound
	}
	if len(parent.Items) == 1 {
		return ErrEmptyBlock
	}
	parent.Items = append(parent.Items[:idx], parent.Items[idx+1:]...)
	return nil
}

// Normalize re-sorts every block's items by rank, recursively. Applied
// before persisting so stored trees read in authoring order.
func Normalize(root *Item) {
	if root == nil || !root.IsBlock() {
		return
	}
	sortItems(root)
	for i := range root.Items {
		Normalize(&root.Items[i])
	}
}

func sortItems(block *Item) {
	sort.SliceStable(block.Items, func(i, j int) bool {
		return block.Items[i].Rank < block.Items[j].Rank
	})
}

// rebalance regenerates every sibling key over the full key space.
func rebalance(block *Item) {
	n := len(block.Items)
	if n == 0 {
		return
	}
	keys, err := rank.Between("", "", n)
	if err != nil {
		return
	}
	for i := range block.Items {
		block.Items[i].Rank = keys[i]
	}
}

func find(root *Item, id primitive.ObjectID) *Item {
	it, _ := findWithDepth(root, id)
	return it
}

func findWithDepth(root *Item, id primitive.ObjectID) (*Item, int) {
	if root == nil {
		return nil, 0
	}
	if root.ID == id {
		return root, 0
	}
	for i := range root.Items {
		if it, d := findWithDepth(&root.Items[i], id); it != nil {
			return it, d + 1
		}
	}
	return nil, 0
}

func findParent(root *Item, id primitive.ObjectID) (*Item, int) {
	if root == nil {
		return nil, -1
	}
	for i := range root.Items {
		if root.Items[i].ID == id {
			return root, i
		}
		if p, idx := findParent(&root.Items[i], id); p != nil {
			return p, idx
		}
	}
	return nil, -1
}

func indexOfChild(parent *Item, id primitive.ObjectID) int {
	for i := range parent.Items {
		if parent.Items[i].ID == id {
			return i
		}
	}
	return -1
}
