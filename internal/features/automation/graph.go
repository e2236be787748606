package automation

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TriggerGraph is the explicit adjacency structure over sequential
// dependencies: an edge A -> B exists when some trigger of A watches B's
// outcome. Cycles are rejected at authoring time; the runtime feedback
// loop is never used for cycle detection.
type TriggerGraph struct {
	edges map[primitive.ObjectID][]primitive.ObjectID
}

func NewTriggerGraph() *TriggerGraph {
	return &TriggerGraph{edges: make(map[primitive.ObjectID][]primitive.ObjectID)}
}

// BuildTriggerGraph assembles the graph from the current definitions.
func BuildTriggerGraph(defs []AutomationDefinition) *TriggerGraph {
	g := NewTriggerGraph()
	for i := range defs {
		g.Set(defs[i].ID, defs[i].SequentialSources())
	}
	return g
}

// Set replaces the outgoing edges of one automation.
func (g *TriggerGraph) Set(id primitive.ObjectID, sources []primitive.ObjectID) {
	if len(sources) == 0 {
		delete(g.edges, id)
		return
	}
	g.edges[id] = sources
}

// Remove drops an automation and its outgoing edges.
func (g *TriggerGraph) Remove(id primitive.ObjectID) {
	delete(g.edges, id)
}

// WouldCycle reports whether giving automation id the edges id -> sources
// would close a loop, including a direct self-reference. The check is a
// reachability search over the existing edges with the candidate edges
// substituted in.
func (g *TriggerGraph) WouldCycle(id primitive.ObjectID, sources []primitive.ObjectID) bool {
	for _, src := range sources {
		if src == id {
			return true
		}
		if g.reaches(src, id, make(map[primitive.ObjectID]bool)) {
			return true
		}
	}
	return false
}

// reaches walks edges depth-first from from, looking for to.
func (g *TriggerGraph) reaches(from, to primitive.ObjectID, seen map[primitive.ObjectID]bool) bool {
	if from == to {
		return true
	}
	if seen[from] {
		return false
	}
	seen[from] = true
	for _, next := range g.edges[from] {
		if g.reaches(next, to, seen) {
			return true
		}
	}
	return false
}
