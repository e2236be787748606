package automation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestTriggerGraph_WouldCycle(t *testing.T) {
	a := primitive.NewObjectID()
	b := primitive.NewObjectID()
	c := primitive.NewObjectID()

	g := NewTriggerGraph()

	// self reference is always a cycle
	assert.True(t, g.WouldCycle(a, []primitive.ObjectID{a}))

	// a -> b alone is fine
	assert.False(t, g.WouldCycle(a, []primitive.ObjectID{b}))
	g.Set(a, []primitive.ObjectID{b})

	// closing b -> a makes a two-cycle
	assert.True(t, g.WouldCycle(b, []primitive.ObjectID{a}))

	// b -> c extends the chain, c -> a would close a three-cycle
	g.Set(b, []primitive.ObjectID{c})
	assert.True(t, g.WouldCycle(c, []primitive.ObjectID{a}))
	assert.False(t, g.WouldCycle(c, []primitive.ObjectID{}))
}

func TestTriggerGraph_Remove(t *testing.T) {
	a := primitive.NewObjectID()
	b := primitive.NewObjectID()

	g := NewTriggerGraph()
	g.Set(a, []primitive.ObjectID{b})
	g.Remove(a)

	// with a's edges gone, b -> a no longer cycles
	assert.False(t, g.WouldCycle(b, []primitive.ObjectID{a}))
}

func TestBuildTriggerGraph(t *testing.T) {
	a := primitive.NewObjectID()
	b := primitive.NewObjectID()

	defs := []AutomationDefinition{
		{ID: a, Triggers: []Trigger{{Event: EventAutomationSucceeded, SourceAutomationID: &b}}},
		{ID: b, Triggers: []Trigger{{Event: EventPubEnteredStage}}},
	}

	g := BuildTriggerGraph(defs)

	assert.True(t, g.WouldCycle(b, []primitive.ObjectID{a}))
	assert.False(t, g.WouldCycle(b, nil))
}
