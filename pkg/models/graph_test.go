package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func linearContent() GraphContent {
	return GraphContent{
		Nodes: []*CanvasNode{
			{ID: "start", Type: NodeTypeStart},
			{ID: "mail", Type: NodeTypeEmail, Config: map[string]any{"template_id": "t1"}},
			{ID: "end", Type: NodeTypeEnd},
		},
		Edges: []*CanvasEdge{
			{Source: "start", SourceHandle: HandleOutput, Target: "mail"},
			{Source: "mail", SourceHandle: HandleOutput, Target: "end"},
		},
	}
}

func TestNewGraph(t *testing.T) {
	graph, err := NewGraph(linearContent())
	require.NoError(t, err)

	assert.Equal(t, "start", graph.Start().ID)

	node, ok := graph.NodeByID("mail")
	require.True(t, ok)
	assert.Equal(t, NodeTypeEmail, node.Type)

	next, ok := graph.Next("start", HandleOutput)
	require.True(t, ok)
	assert.Equal(t, "mail", next.ID)

	_, ok = graph.Next("end", HandleOutput)
	assert.False(t, ok, "terminal node has no outgoing edge")
}

func TestNewGraphDefaultsEmptyHandleToOutput(t *testing.T) {
	content := linearContent()
	content.Edges[0].SourceHandle = ""

	graph, err := NewGraph(content)
	require.NoError(t, err)

	next, ok := graph.Next("start", HandleOutput)
	require.True(t, ok)
	assert.Equal(t, "mail", next.ID)
}

func TestNewGraphRequiresSingleStart(t *testing.T) {
	content := linearContent()
	content.Nodes = append(content.Nodes, &CanvasNode{ID: "start2", Type: NodeTypeStart})

	_, err := NewGraph(content)
	require.Error(t, err)

	_, err = NewGraph(GraphContent{Nodes: []*CanvasNode{{ID: "end", Type: NodeTypeEnd}}})
	require.Error(t, err)
}

func TestNewGraphRejectsDuplicateEdgeHandle(t *testing.T) {
	content := linearContent()
	content.Edges = append(content.Edges, &CanvasEdge{Source: "start", SourceHandle: HandleOutput, Target: "end"})

	_, err := NewGraph(content)
	require.Error(t, err)
}

func TestNewGraphRejectsDanglingEdges(t *testing.T) {
	content := linearContent()
	content.Edges = append(content.Edges, &CanvasEdge{Source: "ghost", Target: "end"})

	_, err := NewGraph(content)
	require.Error(t, err)
}

func TestValidateContent(t *testing.T) {
	require.NoError(t, ValidateContent(linearContent()))

	broken := linearContent()
	broken.Nodes[1].Config = map[string]any{} // email without template_id

	err := ValidateContent(broken)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mail")
}

func TestValidateNodeConfigSchemas(t *testing.T) {
	tests := []struct {
		name    string
		node    *CanvasNode
		wantErr bool
	}{
		{
			name: "valid delay",
			node: &CanvasNode{ID: "d", Type: NodeTypeDelay, Config: map[string]any{"amount": float64(2), "unit": "hours"}},
		},
		{
			name:    "delay with bad unit",
			node:    &CanvasNode{ID: "d", Type: NodeTypeDelay, Config: map[string]any{"amount": float64(2), "unit": "weeks"}},
			wantErr: true,
		},
		{
			name: "valid branch",
			node: &CanvasNode{ID: "b", Type: NodeTypeBranch, Config: map[string]any{
				"condition": map[string]any{"type": "segment", "segment_id": "s1"},
			}},
		},
		{
			name:    "branch without condition",
			node:    &CanvasNode{ID: "b", Type: NodeTypeBranch, Config: map[string]any{}},
			wantErr: true,
		},
		{
			name:    "incentive with invalid kind",
			node:    &CanvasNode{ID: "i", Type: NodeTypeIncentive, Config: map[string]any{"kind": "stars"}},
			wantErr: true,
		},
		{
			name: "start accepts anything",
			node: &CanvasNode{ID: "s", Type: NodeTypeStart, Config: map[string]any{"whatever": true}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateNodeConfig(tt.node)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}
