package condition

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_NilAndValidTrees(t *testing.T) {
	assert.Nil(t, Validate(nil))

	root := NewBlock(BlockAnd, "")
	_, err := AddItem(&root, root.ID, NewLeaf("priority > 3", ""), nil)
	require.NoError(t, err)
	not, err := AddItem(&root, root.ID, NewBlock(BlockNot, ""), nil)
	require.NoError(t, err)
	_, err = AddItem(&root, not.ID, NewLeaf("archived", ""), nil)
	require.NoError(t, err)

	assert.Empty(t, Validate(&root))
}

func TestValidate_Defects(t *testing.T) {
	withChild := NewLeaf("x", "n")
	withChild.Items = []Item{NewLeaf("y", "n")}

	unknownKind := NewLeaf("x", "n")
	unknownKind.Kind = "mystery"

	unknownType := NewBlock("xor", "")
	unknownType.Items = []Item{NewLeaf("x", "n")}

	noRank := NewBlock(BlockAnd, "")
	noRank.Items = []Item{NewLeaf("x", "")}

	tests := []struct {
		name string
		root Item
		want string
	}{
		{"root must be block", NewLeaf("x", ""), "root must be a block"},
		{"empty and block", NewBlock(BlockAnd, ""), "block has no items"},
		{"not with two items", block(BlockNot, leaf("a"), leaf("b")), "exactly one item"},
		{"leaf without expression", block(BlockAnd, leaf("")), "expression is empty"},
		{"leaf with children", block(BlockAnd, withChild), "cannot have child items"},
		{"unknown kind", block(BlockAnd, unknownKind), "unknown item kind"},
		{"unknown block type", unknownType, "unknown block type"},
		{"missing rank", noRank, "no rank"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := Validate(&tt.root)
			require.NotEmpty(t, errs)
			found := false
			for _, e := range errs {
				if strings.Contains(e.Message, tt.want) {
					found = true
				}
			}
			assert.True(t, found, "expected a %q error, got %v", tt.want, errs)
		})
	}
}

func TestValidate_NestingCap(t *testing.T) {
	deepest := block(BlockAnd, leaf("x"))
	l2 := block(BlockAnd, deepest)
	l1 := block(BlockAnd, l2)
	root := block(BlockAnd, l1)

	errs := Validate(&root)

	require.NotEmpty(t, errs)
	assert.Contains(t, errs[0].Message, "max depth")
}
