// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types holds the program-agnostic structural model shared by the
// codec, analysis, and dispatch stages: nodes, elements, materials,
// sections, load cases, and analysis results, plus the configuration
// structs for the pipeline.
package types

import "fmt"

// DOF names a nodal degree of freedom in the global axis system.
type DOF string

const (
	DOFFx DOF = "FX"
	DOFFy DOF = "FY"
	DOFFz DOF = "FZ"
	DOFMx DOF = "MX"
	DOFMy DOF = "MY"
	DOFMz DOF = "MZ"
)

// SupportKind is the closed set of nodal restraint types.
type SupportKind string

const (
	SupportFixed  SupportKind = "fixed"
	SupportPinned SupportKind = "pinned"
	// SupportFixedBut releases the listed degrees of freedom and keeps
	// the rest fixed.
	SupportFixedBut SupportKind = "fixed-but"
)

// Support describes the restraint applied at a node.
type Support struct {
	Kind SupportKind `json:"kind" yaml:"kind"`

	// Released lists the freed degrees of freedom; meaningful only for
	// SupportFixedBut.
	Released []DOF `json:"released,omitempty" yaml:"released,omitempty"`
}

// Node is a point in the model geometry. Coordinates are stored in
// metres regardless of the source document's unit system.
type Node struct {
	ID      int      `json:"id" yaml:"id"`
	X       float64  `json:"x" yaml:"x"`
	Y       float64  `json:"y" yaml:"y"`
	Z       float64  `json:"z" yaml:"z"`
	Support *Support `json:"support,omitempty" yaml:"support,omitempty"`
}

// ElementKind is the closed set of element types.
type ElementKind string

const (
	// ElementBeam is a two-node line element (a STAAD member).
	ElementBeam ElementKind = "beam"
	// ElementPlate is a three- or four-node shell element.
	ElementPlate ElementKind = "plate"
)

// Element connects nodes in a fixed order; the order defines the local
// axis orientation. Material and Section reference entries in the owning
// model by name and may be empty until assignment blocks are read.
type Element struct {
	ID       int         `json:"id" yaml:"id"`
	Kind     ElementKind `json:"kind" yaml:"kind"`
	Nodes    []int       `json:"nodes" yaml:"nodes"`
	Material string      `json:"material,omitempty" yaml:"material,omitempty"`
	Section  string      `json:"section,omitempty" yaml:"section,omitempty"`
}

// Material holds isotropic mechanical properties in SI units
// (N/m² for moduli, kg/m³ for density).
type Material struct {
	Name    string  `json:"name" yaml:"name"`
	Elastic float64 `json:"elastic" yaml:"elastic"`
	Poisson float64 `json:"poisson" yaml:"poisson"`
	Density float64 `json:"density" yaml:"density"`
	Alpha   float64 `json:"alpha,omitempty" yaml:"alpha,omitempty"`
	Damping float64 `json:"damping,omitempty" yaml:"damping,omitempty"`
	Shear   float64 `json:"shear,omitempty" yaml:"shear,omitempty"`
}

// Section holds prismatic profile properties, independent of material.
// Area in m², second moments of area in m⁴.
type Section struct {
	Name string  `json:"name" yaml:"name"`
	Area float64 `json:"area" yaml:"area"`
	IX   float64 `json:"ix" yaml:"ix"`
	IY   float64 `json:"iy" yaml:"iy"`
	IZ   float64 `json:"iz" yaml:"iz"`
}

// Model owns the entity collections. Collections are keyed by identifier
// and preserve insertion order so re-serialization is deterministic.
// A model is populated by the reader (or by Add calls), optionally
// annotated with an AnalysisResult, and read-only once handed to a
// writer or exporter.
type Model struct {
	Title      string
	LengthUnit LengthUnit
	ForceUnit  ForceUnit

	// Engineer and Part populate the job information header block.
	Engineer string
	Part     string

	// ZUp records the vertical-axis convention of the source document.
	ZUp bool

	nodeIDs    []int
	nodes      map[int]*Node
	elementIDs []int
	elements   map[int]*Element
	matNames   []string
	materials  map[string]*Material
	secNames   []string
	sections   map[string]*Section
	caseIDs    []int
	cases      map[int]*LoadCase
	comboIDs   []int
	combos     map[int]*LoadCombination

	result *AnalysisResult
}

// NewModel returns an empty model with SI storage units.
func NewModel(title string) *Model {
	return &Model{
		Title:      title,
		LengthUnit: UnitMeter,
		ForceUnit:  UnitNewton,
		nodes:      make(map[int]*Node),
		elements:   make(map[int]*Element),
		materials:  make(map[string]*Material),
		sections:   make(map[string]*Section),
		cases:      make(map[int]*LoadCase),
		combos:     make(map[int]*LoadCombination),
	}
}

// AddNode inserts a node. Duplicate identifiers are an error, never a
// silent overwrite.
func (m *Model) AddNode(n Node) error {
	if _, ok := m.nodes[n.ID]; ok {
		return fmt.Errorf("duplicate node id %d", n.ID)
	}
	m.nodeIDs = append(m.nodeIDs, n.ID)
	m.nodes[n.ID] = &n
	return nil
}

// AddElement inserts an element. Every referenced node must already
// exist in the model.
func (m *Model) AddElement(e Element) error {
	if _, ok := m.elements[e.ID]; ok {
		return fmt.Errorf("duplicate element id %d", e.ID)
	}
	if len(e.Nodes) < 2 {
		return fmt.Errorf("element %d references %d nodes, need at least 2", e.ID, len(e.Nodes))
	}
	for _, id := range e.Nodes {
		if _, ok := m.nodes[id]; !ok {
			return fmt.Errorf("element %d references undefined node %d", e.ID, id)
		}
	}
	m.elementIDs = append(m.elementIDs, e.ID)
	m.elements[e.ID] = &e
	return nil
}

// AddMaterial inserts a material keyed by name.
func (m *Model) AddMaterial(mat Material) error {
	if _, ok := m.materials[mat.Name]; ok {
		return fmt.Errorf("duplicate material %q", mat.Name)
	}
	m.matNames = append(m.matNames, mat.Name)
	m.materials[mat.Name] = &mat
	return nil
}

// AddSection inserts a section keyed by name.
func (m *Model) AddSection(s Section) error {
	if _, ok := m.sections[s.Name]; ok {
		return fmt.Errorf("duplicate section %q", s.Name)
	}
	m.secNames = append(m.secNames, s.Name)
	m.sections[s.Name] = &s
	return nil
}

// AddLoadCase inserts a primary load case.
func (m *Model) AddLoadCase(lc LoadCase) error {
	if _, ok := m.cases[lc.ID]; ok {
		return fmt.Errorf("duplicate load case id %d", lc.ID)
	}
	m.caseIDs = append(m.caseIDs, lc.ID)
	m.cases[lc.ID] = &lc
	return nil
}

// AddCombination inserts a load combination. Factors must reference
// existing load cases.
func (m *Model) AddCombination(c LoadCombination) error {
	if _, ok := m.combos[c.ID]; ok {
		return fmt.Errorf("duplicate load combination id %d", c.ID)
	}
	if _, ok := m.cases[c.ID]; ok {
		return fmt.Errorf("load combination id %d collides with a load case", c.ID)
	}
	for _, f := range c.Factors {
		if _, ok := m.cases[f.CaseID]; !ok {
			return fmt.Errorf("load combination %d references undefined load case %d", c.ID, f.CaseID)
		}
	}
	m.comboIDs = append(m.comboIDs, c.ID)
	m.combos[c.ID] = &c
	return nil
}

// Node returns the node with the given id, or nil.
func (m *Model) Node(id int) *Node { return m.nodes[id] }

// Element returns the element with the given id, or nil.
func (m *Model) Element(id int) *Element { return m.elements[id] }

// Material returns the material with the given name, or nil.
func (m *Model) Material(name string) *Material { return m.materials[name] }

// Section returns the section with the given name, or nil.
func (m *Model) Section(name string) *Section { return m.sections[name] }

// LoadCase returns the load case with the given id, or nil.
func (m *Model) LoadCase(id int) *LoadCase { return m.cases[id] }

// Combination returns the load combination with the given id, or nil.
func (m *Model) Combination(id int) *LoadCombination { return m.combos[id] }

// Nodes returns the nodes in insertion order.
func (m *Model) Nodes() []*Node {
	out := make([]*Node, len(m.nodeIDs))
	for i, id := range m.nodeIDs {
		out[i] = m.nodes[id]
	}
	return out
}

// Elements returns the elements in insertion order.
func (m *Model) Elements() []*Element {
	out := make([]*Element, len(m.elementIDs))
	for i, id := range m.elementIDs {
		out[i] = m.elements[id]
	}
	return out
}

// Materials returns the materials in insertion order.
func (m *Model) Materials() []*Material {
	out := make([]*Material, len(m.matNames))
	for i, name := range m.matNames {
		out[i] = m.materials[name]
	}
	return out
}

// Sections returns the sections in insertion order.
func (m *Model) Sections() []*Section {
	out := make([]*Section, len(m.secNames))
	for i, name := range m.secNames {
		out[i] = m.sections[name]
	}
	return out
}

// LoadCases returns the primary load cases in insertion order.
func (m *Model) LoadCases() []*LoadCase {
	out := make([]*LoadCase, len(m.caseIDs))
	for i, id := range m.caseIDs {
		out[i] = m.cases[id]
	}
	return out
}

// Combinations returns the load combinations in insertion order.
func (m *Model) Combinations() []*LoadCombination {
	out := make([]*LoadCombination, len(m.comboIDs))
	for i, id := range m.comboIDs {
		out[i] = m.combos[id]
	}
	return out
}

// NodeIDs returns all node identifiers in insertion order.
func (m *Model) NodeIDs() []int { return append([]int(nil), m.nodeIDs...) }

// ElementIDs returns all element identifiers in insertion order.
func (m *Model) ElementIDs() []int { return append([]int(nil), m.elementIDs...) }

// AttachResult attaches an analysis result set, replacing any previous
// one. Results reference entities by identifier only; attaching never
// mutates geometry.
func (m *Model) AttachResult(r *AnalysisResult) { m.result = r }

// Result returns the attached analysis result, or nil.
func (m *Model) Result() *AnalysisResult { return m.result }

// Validate checks cross-entity referential integrity: element material
// and section assignments, and load targets. A failure here after
// construction through the Add methods indicates a programming error.
func (m *Model) Validate() error {
	for _, id := range m.elementIDs {
		e := m.elements[id]
		if e.Material != "" {
			if _, ok := m.materials[e.Material]; !ok {
				return fmt.Errorf("element %d references undefined material %q", e.ID, e.Material)
			}
		}
		if e.Section != "" {
			if _, ok := m.sections[e.Section]; !ok {
				return fmt.Errorf("element %d references undefined section %q", e.ID, e.Section)
			}
		}
	}
	for _, id := range m.caseIDs {
		for _, ld := range m.cases[id].Loads {
			if ld.NodeID != 0 {
				if _, ok := m.nodes[ld.NodeID]; !ok {
					return fmt.Errorf("load case %d targets undefined node %d", id, ld.NodeID)
				}
			}
			if ld.ElementID != 0 {
				if _, ok := m.elements[ld.ElementID]; !ok {
					return fmt.Errorf("load case %d targets undefined element %d", id, ld.ElementID)
				}
			}
		}
	}
	return nil
}
