// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package staad

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/staad-bridge/pkg/types"
)

func testWriter() *Writer {
	// A fixed date keeps expected output stable.
	return &Writer{Date: "12-Jan-26"}
}

// simpleBeam builds a model directly through the entity API: two
// joints, one member, a named material and a catalogue section.
func simpleBeam(t *testing.T) *types.Model {
	t.Helper()
	m := types.NewModel("Simple Beam")
	require.NoError(t, m.AddNode(types.Node{ID: 1, Support: &types.Support{Kind: types.SupportPinned}}))
	require.NoError(t, m.AddNode(types.Node{ID: 2, X: 5, Support: &types.Support{Kind: types.SupportPinned}}))
	require.NoError(t, m.AddElement(types.Element{ID: 1, Kind: types.ElementBeam, Nodes: []int{1, 2}}))
	require.NoError(t, m.AddMaterial(types.Material{Name: "A", Elastic: 2.05e11, Poisson: 0.3, Density: 7850}))
	require.NoError(t, m.AddSection(types.Section{Name: "B"}))
	m.Element(1).Material = "A"
	m.Element(1).Section = "B"
	require.NoError(t, m.AddLoadCase(types.LoadCase{
		ID: 1, Kind: types.LoadDead, Title: "DL",
		SelfWeight: &types.SelfWeight{Direction: types.DirGY, Factor: -1},
	}))
	require.NoError(t, m.AddLoadCase(types.LoadCase{
		ID: 2, Kind: types.LoadLive, Title: "LL",
		Loads: []types.Load{{NodeID: 2, Direction: types.DirGY, Magnitude: -10000}},
	}))
	require.NoError(t, m.AddCombination(types.LoadCombination{
		ID: 10, Title: "ULS",
		Factors: []types.CaseFactor{{CaseID: 1, Factor: 1.35}, {CaseID: 2, Factor: 1.5}},
	}))
	return m
}

func TestWriter_EmitsBlocksInFormatOrder(t *testing.T) {
	var out strings.Builder
	require.NoError(t, testWriter().Write(&out, simpleBeam(t)))
	doc := out.String()

	order := []string{
		"STAAD SPACE Simple Beam",
		"START JOB INFORMATION",
		"END JOB INFORMATION",
		"INPUT WIDTH 79",
		"UNIT METER NEWTON",
		"JOINT COORDINATES",
		"MEMBER INCIDENCES",
		"DEFINE MATERIAL START",
		"ISOTROPIC A",
		"END DEFINE MATERIAL",
		"MEMBER PROPERTY",
		"1 TABLE ST B",
		"CONSTANTS",
		"MATERIAL A MEMB 1",
		"SUPPORTS",
		"1 2 PINNED",
		"LOAD 1 LOADTYPE Dead TITLE DL",
		"SELFWEIGHT Y -1",
		"LOAD 2 LOADTYPE Live TITLE LL",
		"JOINT LOAD",
		"LOAD COMB 10 ULS",
		"PERFORM ANALYSIS",
		"FINISH",
	}
	at := 0
	for _, want := range order {
		i := strings.Index(doc[at:], want)
		require.GreaterOrEqual(t, i, 0, "missing or misordered %q", want)
		at += i + len(want)
	}
}

func TestWriter_IsIdempotent(t *testing.T) {
	m := simpleBeam(t)
	w := testWriter()

	var first, second strings.Builder
	require.NoError(t, w.Write(&first, m))
	require.NoError(t, w.Write(&second, m))
	assert.Equal(t, first.String(), second.String())
}

func TestWriter_DoesNotMutateModel(t *testing.T) {
	m := simpleBeam(t)
	require.NoError(t, testWriter().Write(&strings.Builder{}, m))
	assert.True(t, types.Equivalent(m, simpleBeam(t), 0))
}

func TestWriter_WrapsLongBlocksAtColumnLimit(t *testing.T) {
	m := types.NewModel("Grid")
	for i := 1; i <= 120; i++ {
		require.NoError(t, m.AddNode(types.Node{ID: i, X: float64(i) * 1.25}))
	}
	for i := 1; i < 120; i++ {
		require.NoError(t, m.AddElement(types.Element{ID: i, Kind: types.ElementBeam, Nodes: []int{i, i + 1}}))
	}

	var out strings.Builder
	require.NoError(t, testWriter().Write(&out, m))
	for _, ln := range strings.Split(out.String(), "\n") {
		assert.LessOrEqual(t, len(ln), columnLimit, "line over limit: %q", ln)
	}
}

func TestWriter_ConvertsBackToDocumentUnits(t *testing.T) {
	m := types.NewModel("kn model")
	m.LengthUnit, m.ForceUnit = types.UnitMeter, types.UnitKN
	require.NoError(t, m.AddNode(types.Node{ID: 1}))
	require.NoError(t, m.AddNode(types.Node{ID: 2, X: 5}))
	require.NoError(t, m.AddElement(types.Element{ID: 1, Kind: types.ElementBeam, Nodes: []int{1, 2}}))
	require.NoError(t, m.AddLoadCase(types.LoadCase{
		ID: 1, Kind: types.LoadLive, Title: "LL",
		Loads: []types.Load{
			{NodeID: 2, Direction: types.DirGX, Magnitude: 10000},
			{ElementID: 1, Direction: types.DirGY, Magnitude: -5000},
		},
	}))

	var out strings.Builder
	require.NoError(t, testWriter().Write(&out, m))
	doc := out.String()

	assert.Contains(t, doc, "UNIT METER KN")
	assert.Contains(t, doc, "2 FX 10\n")
	assert.Contains(t, doc, "1 UNI GY -5\n")
}

func TestRoundTrip_PortalFrame(t *testing.T) {
	r := NewReader()
	original, err := r.Read(strings.NewReader(portalFrame))
	require.NoError(t, err)

	var out strings.Builder
	require.NoError(t, testWriter().Write(&out, original))

	reread, err := NewReader().Read(strings.NewReader(out.String()))
	require.NoError(t, err)
	assert.True(t, types.Equivalent(original, reread, 1e-9))
}

func TestRoundTrip_BuiltModel(t *testing.T) {
	m := simpleBeam(t)

	var out strings.Builder
	require.NoError(t, testWriter().Write(&out, m))

	reread, err := NewReader().Read(strings.NewReader(out.String()))
	require.NoError(t, err)
	assert.True(t, types.Equivalent(m, reread, 1e-9))

	// A second projection of the re-read model is byte-identical.
	var again strings.Builder
	require.NoError(t, testWriter().Write(&again, reread))
	assert.Equal(t, out.String(), again.String())
}

func TestRoundTrip_PrismaticSections(t *testing.T) {
	doc := `STAAD SPACE
UNIT CM KN
JOINT COORDINATES
1 0 0 0; 2 400 0 0; 3 800 0 0
MEMBER INCIDENCES
1 1 2; 2 2 3
MEMBER PROPERTY
1 2 PRIS AX 54 IX 21 IY 1340 IZ 3692
FINISH
`
	original, err := NewReader().Read(strings.NewReader(doc))
	require.NoError(t, err)

	var out strings.Builder
	require.NoError(t, testWriter().Write(&out, original))

	reread, err := NewReader().Read(strings.NewReader(out.String()))
	require.NoError(t, err)
	assert.True(t, types.Equivalent(original, reread, 1e-9))
}
