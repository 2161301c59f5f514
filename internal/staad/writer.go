// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package staad

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pdiddy/staad-bridge/pkg/types"
)

// Writer projects models into std documents. The block order is fixed
// by the format; entity order within blocks follows the model's
// insertion order, so writing the same model twice produces identical
// bytes.
type Writer struct {
	// Date is the value of the ENGINEER DATE job line. It is fixed at
	// construction so repeated writes stay byte-identical.
	Date string
}

// NewWriter returns a writer stamped with today's date.
func NewWriter() *Writer {
	return &Writer{Date: time.Now().Format("02-Jan-06")}
}

// Write renders the model as a complete std document. The model is not
// modified. Unit conversion back to the model's declared unit system is
// the inverse of the reader's scaling.
func (w *Writer) Write(dst io.Writer, m *types.Model) error {
	if err := m.Validate(); err != nil {
		return fmt.Errorf("model not writable: %w", err)
	}
	lengthFactor, err := m.LengthUnit.Factor()
	if err != nil {
		return err
	}
	forceFactor, err := m.ForceUnit.Factor()
	if err != nil {
		return err
	}

	d := &docWriter{dst: dst, lf: lengthFactor, ff: forceFactor}
	d.header(m, w.Date)
	d.joints(m)
	d.members(m)
	d.shells(m)
	d.materials(m)
	d.properties(m)
	d.constants(m)
	d.supports(m)
	d.loads(m)
	d.combinations(m)
	d.line("PERFORM ANALYSIS")
	d.line("FINISH")
	return d.err
}

// docWriter accumulates output lines, wrapping each to the column
// limit and capturing the first write error.
type docWriter struct {
	dst io.Writer
	lf  float64
	ff  float64
	err error
}

func (d *docWriter) line(s string) {
	if d.err != nil {
		return
	}
	for _, frag := range wrapLine(s) {
		if _, err := fmt.Fprintln(d.dst, frag); err != nil {
			d.err = err
			return
		}
	}
}

func (d *docWriter) linef(format string, args ...any) {
	d.line(fmt.Sprintf(format, args...))
}

func (d *docWriter) packed(records []string) {
	for _, ln := range packRecords(records) {
		d.line(ln)
	}
}

func (d *docWriter) header(m *types.Model, date string) {
	d.line(strings.TrimRight("STAAD SPACE "+m.Title, " "))
	d.line("START JOB INFORMATION")
	if m.Engineer != "" {
		d.line("ENGINEER NAME " + m.Engineer)
	}
	d.line("ENGINEER DATE " + date)
	if m.Part != "" {
		d.line("JOB PART " + m.Part)
	}
	d.line("END JOB INFORMATION")
	d.line("INPUT WIDTH 79")
	d.linef("UNIT %s %s", m.LengthUnit, m.ForceUnit)
	if m.ZUp {
		d.line("SET Z UP")
	}
}

func (d *docWriter) joints(m *types.Model) {
	nodes := m.Nodes()
	if len(nodes) == 0 {
		return
	}
	d.line("JOINT COORDINATES")
	records := make([]string, len(nodes))
	for i, n := range nodes {
		records[i] = fmt.Sprintf("%d %s %s %s", n.ID,
			formatNum(n.X/d.lf), formatNum(n.Y/d.lf), formatNum(n.Z/d.lf))
	}
	d.packed(records)
}

func (d *docWriter) members(m *types.Model) {
	var records []string
	for _, e := range m.Elements() {
		if e.Kind != types.ElementBeam {
			continue
		}
		records = append(records, fmt.Sprintf("%d %d %d", e.ID, e.Nodes[0], e.Nodes[1]))
	}
	if len(records) == 0 {
		return
	}
	d.line("MEMBER INCIDENCES")
	d.packed(records)
}

func (d *docWriter) shells(m *types.Model) {
	var records []string
	for _, e := range m.Elements() {
		if e.Kind != types.ElementPlate {
			continue
		}
		parts := make([]string, 0, len(e.Nodes)+1)
		parts = append(parts, fmt.Sprintf("%d", e.ID))
		for _, id := range e.Nodes {
			parts = append(parts, fmt.Sprintf("%d", id))
		}
		records = append(records, strings.Join(parts, " "))
	}
	if len(records) == 0 {
		return
	}
	d.line("ELEMENT INCIDENCES SHELL")
	d.packed(records)
}

func (d *docWriter) materials(m *types.Model) {
	mats := m.Materials()
	if len(mats) == 0 {
		return
	}
	stress := d.ff / (d.lf * d.lf)
	density := d.ff / (d.lf * d.lf * d.lf) / standardGravity

	d.line("DEFINE MATERIAL START")
	for _, mat := range mats {
		d.line("ISOTROPIC " + mat.Name)
		if mat.Elastic != 0 {
			d.line("E " + formatNum(mat.Elastic/stress))
		}
		if mat.Poisson != 0 {
			d.line("POISSON " + formatNum(mat.Poisson))
		}
		if mat.Density != 0 {
			d.line("DENSITY " + formatNum(mat.Density/density))
		}
		if mat.Alpha != 0 {
			d.line("ALPHA " + formatNum(mat.Alpha))
		}
		if mat.Damping != 0 {
			d.line("DAMP " + formatNum(mat.Damping))
		}
		if mat.Shear != 0 {
			d.line("G " + formatNum(mat.Shear/stress))
		}
	}
	d.line("END DEFINE MATERIAL")
}

// properties emits one MEMBER PROPERTY line per assigned section, in
// section insertion order. Sections with only zero numeric properties
// are written as catalogue profiles so the name survives a round trip;
// the rest are written as explicit prismatic values. Sections assigned
// to no member are dropped, matching what the format can express.
func (d *docWriter) properties(m *types.Model) {
	assigned := make(map[string][]int)
	for _, e := range m.Elements() {
		if e.Kind == types.ElementBeam && e.Section != "" {
			assigned[e.Section] = append(assigned[e.Section], e.ID)
		}
	}
	if len(assigned) == 0 {
		return
	}
	area := d.lf * d.lf
	inertia := area * area

	d.line("MEMBER PROPERTY")
	for _, s := range m.Sections() {
		ids := assigned[s.Name]
		if len(ids) == 0 {
			continue
		}
		if s.Area == 0 && s.IX == 0 && s.IY == 0 && s.IZ == 0 {
			d.linef("%s TABLE ST %s", compressIDs(ids), s.Name)
			continue
		}
		var b strings.Builder
		b.WriteString(compressIDs(ids))
		b.WriteString(" PRIS")
		if s.Area != 0 {
			b.WriteString(" AX " + formatNum(s.Area/area))
		}
		if s.IX != 0 {
			b.WriteString(" IX " + formatNum(s.IX/inertia))
		}
		if s.IY != 0 {
			b.WriteString(" IY " + formatNum(s.IY/inertia))
		}
		if s.IZ != 0 {
			b.WriteString(" IZ " + formatNum(s.IZ/inertia))
		}
		d.line(b.String())
	}
}

func (d *docWriter) constants(m *types.Model) {
	assigned := make(map[string][]int)
	for _, e := range m.Elements() {
		if e.Material != "" {
			assigned[e.Material] = append(assigned[e.Material], e.ID)
		}
	}
	if len(assigned) == 0 {
		return
	}
	d.line("CONSTANTS")
	for _, mat := range m.Materials() {
		ids := assigned[mat.Name]
		if len(ids) == 0 {
			continue
		}
		d.linef("MATERIAL %s MEMB %s", mat.Name, compressIDs(ids))
	}
}

// supports groups nodes that share a restraint signature onto one line,
// in order of each signature's first appearance.
func (d *docWriter) supports(m *types.Model) {
	type group struct {
		clause string
		ids    []int
	}
	var groups []group
	index := make(map[string]int)

	for _, n := range m.Nodes() {
		if n.Support == nil {
			continue
		}
		clause := supportClause(n.Support)
		i, ok := index[clause]
		if !ok {
			i = len(groups)
			index[clause] = i
			groups = append(groups, group{clause: clause})
		}
		groups[i].ids = append(groups[i].ids, n.ID)
	}
	if len(groups) == 0 {
		return
	}
	d.line("SUPPORTS")
	for _, g := range groups {
		d.linef("%s %s", compressIDs(g.ids), g.clause)
	}
}

func supportClause(s *types.Support) string {
	switch s.Kind {
	case types.SupportPinned:
		return "PINNED"
	case types.SupportFixedBut:
		parts := make([]string, 0, len(s.Released)+2)
		parts = append(parts, "FIXED", "BUT")
		for _, dof := range s.Released {
			parts = append(parts, string(dof))
		}
		return strings.Join(parts, " ")
	default:
		return "FIXED"
	}
}

// loads emits each primary case with its applied loads in stored order,
// switching the JOINT LOAD and MEMBER LOAD markers whenever the target
// type changes.
func (d *docWriter) loads(m *types.Model) {
	moment := d.ff * d.lf
	lineLoad := d.ff / d.lf

	for _, lc := range m.LoadCases() {
		head := fmt.Sprintf("LOAD %d LOADTYPE %s", lc.ID, lc.Kind)
		if lc.Title != "" {
			head += " TITLE " + lc.Title
		}
		d.line(head)

		if sw := lc.SelfWeight; sw != nil {
			axis := strings.TrimPrefix(string(sw.Direction), "G")
			d.linef("SELFWEIGHT %s %s", axis, formatNum(sw.Factor))
		}

		mode := ""
		for _, ld := range lc.Loads {
			if ld.NodeID != 0 {
				if mode != "JOINT" {
					d.line("JOINT LOAD")
					mode = "JOINT"
				}
				dof, mag := jointLoadTerm(ld, d.ff, moment)
				d.linef("%d %s %s", ld.NodeID, dof, formatNum(mag))
			} else {
				if mode != "MEMBER" {
					d.line("MEMBER LOAD")
					mode = "MEMBER"
				}
				d.linef("%d UNI %s %s", ld.ElementID, ld.Direction, formatNum(ld.Magnitude/lineLoad))
			}
		}
	}
}

func jointLoadTerm(ld types.Load, forceFactor, momentFactor float64) (string, float64) {
	switch ld.Direction {
	case types.DirGX:
		return "FX", ld.Magnitude / forceFactor
	case types.DirGY:
		return "FY", ld.Magnitude / forceFactor
	case types.DirGZ:
		return "FZ", ld.Magnitude / forceFactor
	default:
		return string(ld.Direction), ld.Magnitude / momentFactor
	}
}

func (d *docWriter) combinations(m *types.Model) {
	for _, c := range m.Combinations() {
		d.line(strings.TrimRight(fmt.Sprintf("LOAD COMB %d %s", c.ID, c.Title), " "))
		var b strings.Builder
		for i, f := range c.Factors {
			if i > 0 {
				b.WriteByte(' ')
			}
			fmt.Fprintf(&b, "%d %s", f.CaseID, formatNum(f.Factor))
		}
		if b.Len() > 0 {
			d.line(b.String())
		}
	}
}
