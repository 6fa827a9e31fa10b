package templates

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storycanvas/domain/core/aggregates"
	"storycanvas/domain/core/valueobjects"
)

const testTemplateJSON = `{
  "id": "mystery",
  "nodes": [
    {"id": "premise", "kind": "text", "x": 0, "y": 0, "width": 100, "height": 50,
     "content": {"text": "A body in the library"}},
    {"id": "suspects", "kind": "folder", "x": 200, "y": 0, "width": 100, "height": 50,
     "content": {"label": "Suspects"}, "linkedCanvasId": "suspects"},
    {"id": "clues", "kind": "list", "x": 0, "y": 100, "width": 100, "height": 80,
     "content": {"title": "Clues"}, "childIds": ["clue-1"]},
    {"id": "clue-1", "kind": "text", "x": 10, "y": 120, "width": 80, "height": 30,
     "content": {"text": "The candlestick"}, "parentId": "clues"}
  ],
  "connections": [
    {"id": "premise-clue", "from": "premise", "to": "clue-1", "type": "leads-to"}
  ],
  "subCanvases": {
    "suspects": {
      "id": "suspects",
      "nodes": [
        {"id": "butler", "kind": "character", "x": 0, "y": 0, "width": 100, "height": 50,
         "content": {"name": "The Butler"}}
      ],
      "connections": []
    }
  }
}`

func parseTestTemplate(t *testing.T) *Template {
	t.Helper()
	tpl, err := Parse([]byte(testTemplateJSON))
	require.NoError(t, err)
	return tpl
}

func TestInstantiateWithSuffixRemapsEveryID(t *testing.T) {
	tpl := parseTestTemplate(t)

	inst, err := InstantiateWithSuffix(tpl, "T1")
	require.NoError(t, err)
	assert.Equal(t, "T1", inst.Suffix)

	ids := make(map[string]bool)
	for _, node := range inst.Nodes {
		ids[node.ID.String()] = true
	}
	assert.True(t, ids["premise-T1"])
	assert.True(t, ids["clues-T1"])
	assert.True(t, ids["clue-1-T1"])
	assert.False(t, ids["premise"], "placeholder ids never reach a live graph")

	for _, node := range inst.Nodes {
		if node.ID.String() == "clue-1-T1" {
			assert.Equal(t, "clues-T1", node.ParentID.String())
		}
		if node.ID.String() == "clues-T1" {
			require.Len(t, node.ChildIDs, 1)
			assert.Equal(t, "clue-1-T1", node.ChildIDs[0].String())
		}
		if node.ID.String() == "suspects-T1" {
			assert.Equal(t, "suspects-T1", node.LinkedCanvasID)
		}
	}

	require.Len(t, inst.Connections, 1)
	assert.Equal(t, "premise-clue-T1", inst.Connections[0].ID.String())
	assert.Equal(t, "premise-T1", inst.Connections[0].From.String())
	assert.Equal(t, "clue-1-T1", inst.Connections[0].To.String())

	assert.Empty(t, inst.Graph.danglingRefs())
}

func TestInstantiateSubCanvases(t *testing.T) {
	tpl := parseTestTemplate(t)

	inst, err := InstantiateWithSuffix(tpl, "T1")
	require.NoError(t, err)

	sub, ok := inst.SubCanvases[aggregates.CanvasID("suspects-T1")]
	require.True(t, ok, "folder sub-template lands under the remapped canvas identity")
	require.Len(t, sub.Nodes, 1)
	assert.NotEqual(t, "butler", sub.Nodes[0].ID.String(), "sub-canvas gets its own suffix")
	assert.Empty(t, sub.danglingRefs())
}

func TestInstantiateTwiceIsCollisionFree(t *testing.T) {
	tpl := parseTestTemplate(t)

	first, err := Instantiate(tpl)
	require.NoError(t, err)
	second, err := Instantiate(tpl)
	require.NoError(t, err)
	assert.NotEqual(t, first.Suffix, second.Suffix)

	forest := aggregates.NewForest()
	canvasA, err := aggregates.NewCanvas("story-1", "main", forest, nil)
	require.NoError(t, err)
	canvasB, err := aggregates.NewCanvas("story-1", "main-2", forest, nil)
	require.NoError(t, err)

	require.NoError(t, canvasA.LoadSnapshot(first.Nodes, first.Connections))
	require.NoError(t, canvasB.LoadSnapshot(second.Nodes, second.Connections),
		"both instantiations must coexist in one forest")
}

func TestInstantiateSkipsEmptySubTemplate(t *testing.T) {
	tpl, err := Parse([]byte(`{
		"id": "sparse",
		"nodes": [
			{"id": "empty-folder", "kind": "folder", "x": 0, "y": 0, "width": 50, "height": 50,
			 "content": {}, "linkedCanvasId": "nothing"}
		],
		"connections": [],
		"subCanvases": {"nothing": {"id": "nothing", "nodes": [], "connections": []}}
	}`))
	require.NoError(t, err)

	inst, err := InstantiateWithSuffix(tpl, "T1")
	require.NoError(t, err)
	assert.Empty(t, inst.SubCanvases, "empty sub-templates seed nothing")
	require.Len(t, inst.Nodes, 1)
	assert.Equal(t, "nothing-T1", inst.Nodes[0].LinkedCanvasID,
		"the folder still points at its derived canvas")
}

func TestInstantiateRejectsBadInput(t *testing.T) {
	tpl := parseTestTemplate(t)

	_, err := InstantiateWithSuffix(nil, "T1")
	assert.Error(t, err)
	_, err = InstantiateWithSuffix(tpl, "")
	assert.Error(t, err)
}

func TestParseRejectsInvalidTemplates(t *testing.T) {
	cases := []struct {
		name string
		json string
	}{
		{
			name: "character payload missing name",
			json: `{"id": "bad", "nodes": [
				{"id": "n1", "kind": "character", "x": 0, "y": 0, "width": 10, "height": 10,
				 "content": {"role": "villain"}}
			], "connections": []}`,
		},
		{
			name: "duplicate node id",
			json: `{"id": "bad", "nodes": [
				{"id": "n1", "kind": "text", "x": 0, "y": 0, "width": 10, "height": 10, "content": {}},
				{"id": "n1", "kind": "text", "x": 5, "y": 5, "width": 10, "height": 10, "content": {}}
			], "connections": []}`,
		},
		{
			name: "dangling connection endpoint",
			json: `{"id": "bad", "nodes": [
				{"id": "n1", "kind": "text", "x": 0, "y": 0, "width": 10, "height": 10, "content": {}}
			], "connections": [{"id": "c1", "from": "n1", "to": "ghost", "type": "leads-to"}]}`,
		},
		{
			name: "linked canvas on non-folder",
			json: `{"id": "bad", "nodes": [
				{"id": "n1", "kind": "text", "x": 0, "y": 0, "width": 10, "height": 10,
				 "content": {}, "linkedCanvasId": "somewhere"}
			], "connections": []}`,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.json))
			assert.Error(t, err)
		})
	}
}

func TestNewSuffixIsUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		s := NewSuffix()
		require.NotEmpty(t, s)
		require.False(t, seen[s])
		seen[s] = true
	}
	_ = valueobjects.MustNodeID("anchor").WithSuffix(NewSuffix())
}
