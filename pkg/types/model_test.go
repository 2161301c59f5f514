// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModel_AddNode_RejectsDuplicates(t *testing.T) {
	m := NewModel("test")
	require.NoError(t, m.AddNode(Node{ID: 1, X: 0, Y: 0, Z: 0}))

	err := m.AddNode(Node{ID: 1, X: 5, Y: 0, Z: 0})
	assert.ErrorContains(t, err, "duplicate node id 1")

	// The original node survives intact.
	assert.Equal(t, 0.0, m.Node(1).X)
	assert.Len(t, m.Nodes(), 1)
}

func TestModel_AddElement_RejectsDanglingNode(t *testing.T) {
	m := NewModel("test")
	require.NoError(t, m.AddNode(Node{ID: 1}))

	err := m.AddElement(Element{ID: 1, Kind: ElementBeam, Nodes: []int{1, 2}})
	assert.ErrorContains(t, err, "undefined node 2")
	assert.Empty(t, m.Elements())
}

func TestModel_AddElement_RequiresTwoNodes(t *testing.T) {
	m := NewModel("test")
	require.NoError(t, m.AddNode(Node{ID: 1}))

	err := m.AddElement(Element{ID: 1, Kind: ElementBeam, Nodes: []int{1}})
	assert.ErrorContains(t, err, "need at least 2")
}

func TestModel_InsertionOrderPreserved(t *testing.T) {
	m := NewModel("test")
	// Insert out of numeric order; collections must keep insertion order.
	for _, id := range []int{3, 1, 2} {
		require.NoError(t, m.AddNode(Node{ID: id}))
	}
	ids := m.NodeIDs()
	assert.Equal(t, []int{3, 1, 2}, ids)
}

func TestModel_AddCombination_ValidatesCaseRefs(t *testing.T) {
	m := NewModel("test")
	require.NoError(t, m.AddLoadCase(LoadCase{ID: 1, Kind: LoadDead, Title: "DL"}))

	err := m.AddCombination(LoadCombination{
		ID:      10,
		Title:   "ULS",
		Factors: []CaseFactor{{CaseID: 1, Factor: 1.35}, {CaseID: 2, Factor: 1.5}},
	})
	assert.ErrorContains(t, err, "undefined load case 2")

	require.NoError(t, m.AddCombination(LoadCombination{
		ID:      10,
		Title:   "ULS",
		Factors: []CaseFactor{{CaseID: 1, Factor: 1.35}},
	}))
}

func TestModel_AddCombination_RejectsCaseIDCollision(t *testing.T) {
	m := NewModel("test")
	require.NoError(t, m.AddLoadCase(LoadCase{ID: 1, Kind: LoadDead, Title: "DL"}))

	err := m.AddCombination(LoadCombination{ID: 1, Title: "C"})
	assert.ErrorContains(t, err, "collides with a load case")
}

func TestModel_Validate_CatchesDanglingMaterial(t *testing.T) {
	m := NewModel("test")
	require.NoError(t, m.AddNode(Node{ID: 1}))
	require.NoError(t, m.AddNode(Node{ID: 2}))
	require.NoError(t, m.AddElement(Element{ID: 1, Kind: ElementBeam, Nodes: []int{1, 2}}))

	m.Element(1).Material = "GHOST"
	err := m.Validate()
	assert.ErrorContains(t, err, `undefined material "GHOST"`)
}

func TestModel_AttachResult_ReplacesWithoutMutatingGeometry(t *testing.T) {
	m := NewModel("test")
	require.NoError(t, m.AddNode(Node{ID: 1, X: 1.5}))

	first := &AnalysisResult{JobID: "job-1"}
	second := &AnalysisResult{JobID: "job-2"}

	m.AttachResult(first)
	assert.Same(t, first, m.Result())

	m.AttachResult(second)
	assert.Same(t, second, m.Result())
	assert.Equal(t, 1.5, m.Node(1).X)
}

func TestEquivalent_ToleratesSmallNumericDrift(t *testing.T) {
	build := func(x float64) *Model {
		m := NewModel("frame")
		require.NoError(t, m.AddNode(Node{ID: 1}))
		require.NoError(t, m.AddNode(Node{ID: 2, X: x}))
		require.NoError(t, m.AddElement(Element{ID: 1, Kind: ElementBeam, Nodes: []int{1, 2}}))
		return m
	}

	a := build(5.0)
	b := build(5.0 + 1e-12)
	c := build(5.1)

	assert.True(t, Equivalent(a, b, 1e-9))
	assert.False(t, Equivalent(a, c, 1e-9))
}

func TestEquivalent_DetectsSupportDifferences(t *testing.T) {
	a := NewModel("m")
	b := NewModel("m")
	require.NoError(t, a.AddNode(Node{ID: 1, Support: &Support{Kind: SupportPinned}}))
	require.NoError(t, b.AddNode(Node{ID: 1, Support: &Support{Kind: SupportFixed}}))

	assert.False(t, Equivalent(a, b, 1e-9))
}
