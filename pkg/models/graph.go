package models

import (
	"errors"
	"fmt"
)

type edgeKey struct {
	source string
	handle string
}

// Graph is the adjacency view of a journey's node/edge lists, built once per
// execution so the walker never scans the flat lists.
type Graph struct {
	nodes map[string]*CanvasNode
	edges map[edgeKey]string
	start *CanvasNode
}

// NewGraph indexes the content's nodes and edges. It enforces the structural
// invariants the canvas editor is supposed to guarantee: exactly one start
// node, unique node IDs, at most one edge per (source, handle) pair, and edge
// endpoints that reference known nodes.
func NewGraph(content GraphContent) (*Graph, error) {
	graph := &Graph{
		nodes: make(map[string]*CanvasNode, len(content.Nodes)),
		edges: make(map[edgeKey]string, len(content.Edges)),
	}

	for _, node := range content.Nodes {
		if node.ID == "" {
			return nil, errors.New("graph contains a node without an id")
		}

		if _, exists := graph.nodes[node.ID]; exists {
			return nil, fmt.Errorf("graph contains duplicate node id %q", node.ID)
		}

		graph.nodes[node.ID] = node

		if node.Type == NodeTypeStart {
			if graph.start != nil {
				return nil, errors.New("graph contains more than one start node")
			}

			graph.start = node
		}
	}

	if graph.start == nil {
		return nil, errors.New("graph contains no start node")
	}

	for _, edge := range content.Edges {
		if _, exists := graph.nodes[edge.Source]; !exists {
			return nil, fmt.Errorf("edge references unknown source node %q", edge.Source)
		}

		if _, exists := graph.nodes[edge.Target]; !exists {
			return nil, fmt.Errorf("edge references unknown target node %q", edge.Target)
		}

		key := edgeKey{source: edge.Source, handle: edge.Handle()}
		if _, exists := graph.edges[key]; exists {
			return nil, fmt.Errorf("node %q has more than one edge on handle %q", edge.Source, edge.Handle())
		}

		graph.edges[key] = edge.Target
	}

	return graph, nil
}

// Start returns the graph's single start node.
func (g *Graph) Start() *CanvasNode {
	return g.start
}

// NodeByID looks a node up by its id.
func (g *Graph) NodeByID(id string) (*CanvasNode, bool) {
	node, ok := g.nodes[id]

	return node, ok
}

// Next resolves the target of the edge leaving source on the given handle.
// A missing edge is a terminal path, not an error.
func (g *Graph) Next(sourceID, handle string) (*CanvasNode, bool) {
	targetID, ok := g.edges[edgeKey{source: sourceID, handle: handle}]
	if !ok {
		return nil, false
	}

	node, ok := g.nodes[targetID]

	return node, ok
}
