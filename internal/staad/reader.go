// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package staad

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pdiddy/staad-bridge/pkg/types"
)

// blockKind identifies a recognized document block.
type blockKind int

const (
	kindHeader blockKind = iota
	kindJobInfo
	kindInputWidth
	kindUnit
	kindSet
	kindJoints
	kindMembers
	kindShells
	kindMaterials
	kindProperty
	kindConstants
	kindSupports
	kindComb
	kindLoad
	kindPerform
	kindFinish
	kindUnknown
)

// blockTable maps block keywords to kinds. Matching is case-insensitive
// and ordered: longer keywords are listed before their prefixes
// ("LOAD COMB" before "LOAD").
var blockTable = []struct {
	keyword string
	kind    blockKind
}{
	{"STAAD", kindHeader},
	{"START JOB INFORMATION", kindJobInfo},
	{"INPUT WIDTH", kindInputWidth},
	{"UNIT", kindUnit},
	{"SET", kindSet},
	{"JOINT COORDINATES", kindJoints},
	{"MEMBER INCIDENCES", kindMembers},
	{"ELEMENT INCIDENCES SHELL", kindShells},
	{"DEFINE MATERIAL START", kindMaterials},
	{"MEMBER PROPERTY", kindProperty},
	{"CONSTANTS", kindConstants},
	{"SUPPORTS", kindSupports},
	{"LOAD COMB", kindComb},
	{"LOAD", kindLoad},
	{"PERFORM ANALYSIS", kindPerform},
	{"FINISH", kindFinish},
}

// blockNames gives the display name used in FormatError and warnings.
var blockNames = map[blockKind]string{
	kindHeader:    "STAAD",
	kindJobInfo:   "JOB INFORMATION",
	kindUnit:      "UNIT",
	kindSet:       "SET",
	kindJoints:    "JOINT COORDINATES",
	kindMembers:   "MEMBER INCIDENCES",
	kindShells:    "ELEMENT INCIDENCES SHELL",
	kindMaterials: "DEFINE MATERIAL",
	kindProperty:  "MEMBER PROPERTY",
	kindConstants: "CONSTANTS",
	kindSupports:  "SUPPORTS",
	kindComb:      "LOAD COMB",
	kindLoad:      "LOAD",
}

func classify(text string) (blockKind, bool) {
	upper := strings.ToUpper(text)
	for _, entry := range blockTable {
		if upper == entry.keyword || strings.HasPrefix(upper, entry.keyword+" ") {
			return entry.kind, true
		}
	}
	return kindUnknown, false
}

// rawBlock is one segmented block: its header line plus data lines.
type rawBlock struct {
	kind   blockKind
	header line
	data   []line
}

// Reader parses std documents into models. A Reader is single-use per
// document; Warnings reports blocks that were skipped.
type Reader struct {
	warnings []string

	unitSeen     bool
	lengthFactor float64
	forceFactor  float64
	sectionSeq   int
}

// NewReader returns a reader with SI scale factors until a UNIT block
// declares otherwise.
func NewReader() *Reader {
	return &Reader{lengthFactor: 1, forceFactor: 1}
}

// Warnings lists the unsupported blocks and directives skipped during
// the last Read, in document order.
func (r *Reader) Warnings() []string { return r.warnings }

func (r *Reader) warnf(format string, args ...any) {
	r.warnings = append(r.warnings, fmt.Sprintf(format, args...))
}

// Read consumes a complete std document and returns a fully populated
// model, or a *FormatError. Partial models are never returned.
func (r *Reader) Read(src io.Reader) (*types.Model, error) {
	lines, err := readLines(src)
	if err != nil {
		return nil, err
	}

	blocks, err := r.segment(lines)
	if err != nil {
		return nil, err
	}

	if err := r.checkUnitsPrecedeGeometry(blocks); err != nil {
		return nil, err
	}

	model := types.NewModel("")

	// Semantic order is fixed regardless of document block order:
	// units and header first, then geometry, then properties and loads.
	passes := []struct {
		kind blockKind
		fn   func(*types.Model, rawBlock) error
	}{
		{kindUnit, r.readUnits},
		{kindHeader, r.readHeader},
		{kindSet, r.readSet},
		{kindJobInfo, r.readJobInfo},
		{kindJoints, r.readJoints},
		{kindMembers, r.readMembers},
		{kindShells, r.readShells},
		{kindMaterials, r.readMaterials},
		{kindProperty, r.readProperties},
		{kindConstants, r.readConstants},
		{kindSupports, r.readSupports},
		{kindLoad, r.readLoadCase},
		{kindComb, r.readCombination},
	}
	for _, pass := range passes {
		for _, b := range blocks {
			if b.kind != pass.kind {
				continue
			}
			if err := pass.fn(model, b); err != nil {
				return nil, err
			}
		}
	}

	if err := model.Validate(); err != nil {
		return nil, formatErrf("", 0, "inconsistent model: %v", err)
	}
	return model, nil
}

// segment splits logical lines into blocks. Unrecognized block headers
// open a discard block and produce a warning rather than an error.
func (r *Reader) segment(lines []line) ([]rawBlock, error) {
	var blocks []rawBlock
	var cur *rawBlock

	push := func(kind blockKind, header line) {
		blocks = append(blocks, rawBlock{kind: kind, header: header})
		cur = &blocks[len(blocks)-1]
	}

	for _, ln := range lines {
		upper := strings.ToUpper(ln.text)

		// Blocks with explicit terminators swallow everything up to
		// their END line.
		if cur != nil && (cur.kind == kindJobInfo || cur.kind == kindMaterials) {
			if upper == "END JOB INFORMATION" || upper == "END DEFINE MATERIAL" {
				cur = nil
				continue
			}
			cur.data = append(cur.data, ln)
			continue
		}

		if kind, ok := classify(ln.text); ok {
			push(kind, ln)
			continue
		}

		if cur != nil && blockAccepts(cur.kind, upper) {
			cur.data = append(cur.data, ln)
			continue
		}

		r.warnf("line %d: skipping unrecognized block %q", ln.num, firstWord(ln.text))
		push(kindUnknown, ln)
	}
	return blocks, nil
}

// blockAccepts reports whether a line belongs to the open block's data.
func blockAccepts(kind blockKind, upper string) bool {
	first := firstWord(upper)
	numeric := isNumericToken(first)
	switch kind {
	case kindJoints, kindMembers, kindShells, kindProperty, kindSupports, kindComb, kindUnknown:
		return numeric
	case kindConstants:
		return first == "MATERIAL" || first == "BETA"
	case kindLoad:
		if numeric {
			return true
		}
		return first == "SELFWEIGHT" || upper == "JOINT LOAD" || upper == "MEMBER LOAD"
	default:
		return false
	}
}

func firstWord(s string) string {
	if i := strings.IndexAny(s, " \t"); i >= 0 {
		return s[:i]
	}
	return s
}

func isNumericToken(s string) bool {
	_, err := strconv.Atoi(s)
	return err == nil
}

// checkUnitsPrecedeGeometry enforces the mandatory units header: it
// must exist and appear before any geometry or load block.
func (r *Reader) checkUnitsPrecedeGeometry(blocks []rawBlock) error {
	unitAt := -1
	for i, b := range blocks {
		switch b.kind {
		case kindUnit:
			if unitAt < 0 {
				unitAt = i
			}
		case kindJoints, kindMembers, kindShells, kindLoad, kindComb:
			if unitAt < 0 {
				return formatErrf(blockNames[b.kind], b.header.num,
					"block precedes the mandatory UNIT header")
			}
		}
	}
	if unitAt < 0 {
		return formatErrf("UNIT", 0, "document has no UNIT header block")
	}
	return nil
}

func (r *Reader) readHeader(m *types.Model, b rawBlock) error {
	fields := strings.Fields(b.header.text)
	if len(fields) >= 2 && strings.EqualFold(fields[1], "SPACE") {
		m.Title = strings.Join(fields[2:], " ")
		return nil
	}
	return formatErrf("STAAD", b.header.num, "unsupported structure type in %q", b.header.text)
}

func (r *Reader) readUnits(m *types.Model, b rawBlock) error {
	// Mid-document unit switches are not supported; the first
	// declaration wins.
	if r.unitSeen {
		r.warnf("line %d: ignoring additional UNIT declaration", b.header.num)
		return nil
	}
	fields := strings.Fields(strings.ToUpper(b.header.text))
	if len(fields) != 3 {
		return formatErrf("UNIT", b.header.num, "expected UNIT <length> <force>, got %q", b.header.text)
	}
	lu, fu := types.LengthUnit(fields[1]), types.ForceUnit(fields[2])
	lf, err := lu.Factor()
	if err != nil {
		return formatErrf("UNIT", b.header.num, "%v", err)
	}
	ff, err := fu.Factor()
	if err != nil {
		return formatErrf("UNIT", b.header.num, "%v", err)
	}
	m.LengthUnit, m.ForceUnit = lu, fu
	r.lengthFactor, r.forceFactor = lf, ff
	r.unitSeen = true
	return nil
}

func (r *Reader) readSet(m *types.Model, b rawBlock) error {
	upper := strings.ToUpper(b.header.text)
	if upper == "SET Z UP" {
		m.ZUp = true
		return nil
	}
	r.warnf("line %d: skipping unsupported directive %q", b.header.num, b.header.text)
	return nil
}

func (r *Reader) readJobInfo(m *types.Model, b rawBlock) error {
	for _, ln := range b.data {
		upper := strings.ToUpper(ln.text)
		switch {
		case strings.HasPrefix(upper, "ENGINEER NAME "):
			m.Engineer = strings.TrimSpace(ln.text[len("ENGINEER NAME "):])
		case strings.HasPrefix(upper, "JOB PART "):
			m.Part = strings.TrimSpace(ln.text[len("JOB PART "):])
		}
		// ENGINEER DATE and other job fields carry no model semantics.
	}
	return nil
}

// records splits a data line on ';' into individual entity records.
func records(ln line) []string {
	var out []string
	for _, rec := range strings.Split(ln.text, ";") {
		rec = strings.TrimSpace(rec)
		if rec != "" {
			out = append(out, rec)
		}
	}
	return out
}

func (r *Reader) readJoints(m *types.Model, b rawBlock) error {
	const block = "JOINT COORDINATES"
	for _, ln := range b.data {
		for _, rec := range records(ln) {
			fields := strings.Fields(rec)
			if len(fields) != 4 {
				return formatErrf(block, ln.num, "expected <id> <x> <y> <z>, got %q", rec)
			}
			id, err := strconv.Atoi(fields[0])
			if err != nil {
				return formatErrf(block, ln.num, "non-numeric joint id %q", fields[0])
			}
			var coords [3]float64
			for i, f := range fields[1:] {
				v, err := strconv.ParseFloat(f, 64)
				if err != nil {
					return formatErrf(block, ln.num, "non-numeric coordinate %q", f)
				}
				coords[i] = v * r.lengthFactor
			}
			if err := m.AddNode(types.Node{ID: id, X: coords[0], Y: coords[1], Z: coords[2]}); err != nil {
				return formatErrf(block, ln.num, "%v", err)
			}
		}
	}
	return nil
}

func (r *Reader) readMembers(m *types.Model, b rawBlock) error {
	const block = "MEMBER INCIDENCES"
	for _, ln := range b.data {
		for _, rec := range records(ln) {
			ids, err := parseInts(strings.Fields(rec))
			if err != nil || len(ids) != 3 {
				return formatErrf(block, ln.num, "expected <id> <start> <end>, got %q", rec)
			}
			e := types.Element{ID: ids[0], Kind: types.ElementBeam, Nodes: ids[1:]}
			if err := m.AddElement(e); err != nil {
				return formatErrf(block, ln.num, "%v", err)
			}
		}
	}
	return nil
}

func (r *Reader) readShells(m *types.Model, b rawBlock) error {
	const block = "ELEMENT INCIDENCES SHELL"
	for _, ln := range b.data {
		for _, rec := range records(ln) {
			ids, err := parseInts(strings.Fields(rec))
			if err != nil || len(ids) < 4 || len(ids) > 5 {
				return formatErrf(block, ln.num, "expected <id> and 3 or 4 node ids, got %q", rec)
			}
			e := types.Element{ID: ids[0], Kind: types.ElementPlate, Nodes: ids[1:]}
			if err := m.AddElement(e); err != nil {
				return formatErrf(block, ln.num, "%v", err)
			}
		}
	}
	return nil
}

func (r *Reader) readMaterials(m *types.Model, b rawBlock) error {
	const block = "DEFINE MATERIAL"
	var cur *types.Material

	flush := func(ln line) error {
		if cur == nil {
			return nil
		}
		if err := m.AddMaterial(*cur); err != nil {
			return formatErrf(block, ln.num, "%v", err)
		}
		cur = nil
		return nil
	}

	// Stress-like properties are declared in force/length² of the
	// document's unit system; densities are weight per volume.
	stressFactor := r.forceFactor / (r.lengthFactor * r.lengthFactor)
	densityFactor := r.forceFactor / (r.lengthFactor * r.lengthFactor * r.lengthFactor) / standardGravity

	for _, ln := range b.data {
		fields := strings.Fields(ln.text)
		key := strings.ToUpper(fields[0])

		if key == "ISOTROPIC" {
			if len(fields) != 2 {
				return formatErrf(block, ln.num, "expected ISOTROPIC <name>, got %q", ln.text)
			}
			if err := flush(ln); err != nil {
				return err
			}
			cur = &types.Material{Name: fields[1]}
			continue
		}
		if cur == nil {
			return formatErrf(block, ln.num, "property %q outside ISOTROPIC definition", fields[0])
		}
		if key == "TYPE" {
			continue
		}
		if len(fields) != 2 {
			return formatErrf(block, ln.num, "expected <property> <value>, got %q", ln.text)
		}
		v, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return formatErrf(block, ln.num, "non-numeric value %q for %s", fields[1], key)
		}
		switch key {
		case "E":
			cur.Elastic = v * stressFactor
		case "G":
			cur.Shear = v * stressFactor
		case "POISSON":
			cur.Poisson = v
		case "DENSITY":
			cur.Density = v * densityFactor
		case "ALPHA":
			cur.Alpha = v
		case "DAMP":
			cur.Damping = v
		default:
			return formatErrf(block, ln.num, "unknown material property %q", fields[0])
		}
	}
	if len(b.data) > 0 {
		return flush(b.data[len(b.data)-1])
	}
	return nil
}

func (r *Reader) readProperties(m *types.Model, b rawBlock) error {
	const block = "MEMBER PROPERTY"
	areaFactor := r.lengthFactor * r.lengthFactor
	inertiaFactor := areaFactor * areaFactor

	for _, ln := range b.data {
		fields := strings.Fields(ln.text)

		split := -1
		for i, f := range fields {
			u := strings.ToUpper(f)
			if u == "TABLE" || u == "PRIS" {
				split = i
				break
			}
		}
		if split < 1 {
			return formatErrf(block, ln.num, "expected member list followed by TABLE or PRIS, got %q", ln.text)
		}
		ids, err := expandIDs(fields[:split])
		if err != nil {
			return formatErrf(block, ln.num, "%v", err)
		}

		var section types.Section
		spec := fields[split:]
		switch strings.ToUpper(spec[0]) {
		case "TABLE":
			// Catalogue profile: TABLE ST <name>. Properties come
			// from the catalogue, not the document.
			if len(spec) != 3 || !strings.EqualFold(spec[1], "ST") {
				return formatErrf(block, ln.num, "expected TABLE ST <name>, got %q", ln.text)
			}
			section = types.Section{Name: spec[2]}
		case "PRIS":
			r.sectionSeq++
			section = types.Section{Name: fmt.Sprintf("PRIS_%d", r.sectionSeq)}
			if (len(spec)-1)%2 != 0 {
				return formatErrf(block, ln.num, "odd property list in %q", ln.text)
			}
			for i := 1; i < len(spec); i += 2 {
				v, err := strconv.ParseFloat(spec[i+1], 64)
				if err != nil {
					return formatErrf(block, ln.num, "non-numeric value %q for %s", spec[i+1], spec[i])
				}
				switch strings.ToUpper(spec[i]) {
				case "AX":
					section.Area = v * areaFactor
				case "IX":
					section.IX = v * inertiaFactor
				case "IY":
					section.IY = v * inertiaFactor
				case "IZ":
					section.IZ = v * inertiaFactor
				default:
					return formatErrf(block, ln.num, "unknown profile property %q", spec[i])
				}
			}
		}

		if m.Section(section.Name) == nil {
			if err := m.AddSection(section); err != nil {
				return formatErrf(block, ln.num, "%v", err)
			}
		}
		for _, id := range ids {
			e := m.Element(id)
			if e == nil {
				return formatErrf(block, ln.num, "property assigned to undefined member %d", id)
			}
			e.Section = section.Name
		}
	}
	return nil
}

func (r *Reader) readConstants(m *types.Model, b rawBlock) error {
	const block = "CONSTANTS"
	for _, ln := range b.data {
		fields := strings.Fields(ln.text)
		switch strings.ToUpper(fields[0]) {
		case "BETA":
			r.warnf("line %d: skipping BETA angle assignment", ln.num)
		case "MATERIAL":
			if len(fields) < 4 || !strings.EqualFold(fields[2], "MEMB") {
				if len(fields) == 3 && strings.EqualFold(fields[2], "ALL") {
					if m.Material(fields[1]) == nil {
						return formatErrf(block, ln.num, "assignment references undefined material %q", fields[1])
					}
					for _, e := range m.Elements() {
						e.Material = fields[1]
					}
					continue
				}
				return formatErrf(block, ln.num, "expected MATERIAL <name> MEMB <ids>, got %q", ln.text)
			}
			name := fields[1]
			if m.Material(name) == nil {
				return formatErrf(block, ln.num, "assignment references undefined material %q", name)
			}
			ids, err := expandIDs(fields[3:])
			if err != nil {
				return formatErrf(block, ln.num, "%v", err)
			}
			for _, id := range ids {
				e := m.Element(id)
				if e == nil {
					return formatErrf(block, ln.num, "material assigned to undefined member %d", id)
				}
				e.Material = name
			}
		}
	}
	return nil
}

func (r *Reader) readSupports(m *types.Model, b rawBlock) error {
	const block = "SUPPORTS"
	for _, ln := range b.data {
		fields := strings.Fields(strings.ToUpper(ln.text))

		kindAt := -1
		for i, f := range fields {
			if f == "FIXED" || f == "PINNED" {
				kindAt = i
				break
			}
		}
		if kindAt < 1 {
			return formatErrf(block, ln.num, "expected node list followed by FIXED, PINNED or FIXED BUT, got %q", ln.text)
		}
		ids, err := expandIDs(fields[:kindAt])
		if err != nil {
			return formatErrf(block, ln.num, "%v", err)
		}

		sup := types.Support{Kind: types.SupportFixed}
		rest := fields[kindAt:]
		switch {
		case rest[0] == "PINNED":
			sup.Kind = types.SupportPinned
		case len(rest) >= 2 && rest[1] == "BUT":
			sup.Kind = types.SupportFixedBut
			for i := 2; i < len(rest); i++ {
				tok := rest[i]
				if strings.HasPrefix(tok, "K") {
					// Spring constants are not carried by the model.
					r.warnf("line %d: ignoring spring constant %s", ln.num, tok)
					i++
					continue
				}
				dof := types.DOF(tok)
				switch dof {
				case types.DOFFx, types.DOFFy, types.DOFFz, types.DOFMx, types.DOFMy, types.DOFMz:
					sup.Released = append(sup.Released, dof)
				default:
					return formatErrf(block, ln.num, "unknown degree of freedom %q", tok)
				}
			}
		}

		for _, id := range ids {
			n := m.Node(id)
			if n == nil {
				return formatErrf(block, ln.num, "support assigned to undefined joint %d", id)
			}
			s := sup
			s.Released = append([]types.DOF(nil), sup.Released...)
			n.Support = &s
		}
	}
	return nil
}

// loadDirections maps SELFWEIGHT and member load axes to directions.
var loadDirections = map[string]types.Direction{
	"X": types.DirGX, "Y": types.DirGY, "Z": types.DirGZ,
	"GX": types.DirGX, "GY": types.DirGY, "GZ": types.DirGZ,
}

func (r *Reader) readLoadCase(m *types.Model, b rawBlock) error {
	const block = "LOAD"
	fields := strings.Fields(b.header.text)
	if len(fields) < 2 {
		return formatErrf(block, b.header.num, "expected LOAD <id>, got %q", b.header.text)
	}
	id, err := strconv.Atoi(fields[1])
	if err != nil {
		return formatErrf(block, b.header.num, "non-numeric load case id %q", fields[1])
	}

	lc := types.LoadCase{ID: id, Kind: types.LoadLive}
	rest := fields[2:]
	if len(rest) > 0 && strings.EqualFold(rest[0], "LOADTYPE") {
		if len(rest) < 2 {
			return formatErrf(block, b.header.num, "LOADTYPE without a value")
		}
		lc.Kind = types.LoadKind(rest[1])
		rest = rest[2:]
	}
	if len(rest) > 0 && strings.EqualFold(rest[0], "TITLE") {
		rest = rest[1:]
	}
	lc.Title = strings.Join(rest, " ")

	const (
		modeNone = iota
		modeJoint
		modeMember
	)
	mode := modeNone
	momentFactor := r.forceFactor * r.lengthFactor
	lineFactor := r.forceFactor / r.lengthFactor

	for _, ln := range b.data {
		upper := strings.ToUpper(ln.text)
		switch {
		case upper == "JOINT LOAD":
			mode = modeJoint
			continue
		case upper == "MEMBER LOAD":
			mode = modeMember
			continue
		case strings.HasPrefix(upper, "SELFWEIGHT"):
			f := strings.Fields(upper)
			if len(f) != 3 {
				return formatErrf(block, ln.num, "expected SELFWEIGHT <axis> <factor>, got %q", ln.text)
			}
			dir, ok := loadDirections[f[1]]
			if !ok {
				return formatErrf(block, ln.num, "unknown selfweight axis %q", f[1])
			}
			factor, err := strconv.ParseFloat(f[2], 64)
			if err != nil {
				return formatErrf(block, ln.num, "non-numeric selfweight factor %q", f[2])
			}
			lc.SelfWeight = &types.SelfWeight{Direction: dir, Factor: factor}
			continue
		}

		f := strings.Fields(upper)
		switch mode {
		case modeJoint:
			// <ids...> <FX..MZ> <magnitude>
			if len(f) < 3 {
				return formatErrf(block, ln.num, "expected <joints> <dof> <magnitude>, got %q", ln.text)
			}
			dof := types.DOF(f[len(f)-2])
			mag, err := strconv.ParseFloat(f[len(f)-1], 64)
			if err != nil {
				return formatErrf(block, ln.num, "non-numeric magnitude %q", f[len(f)-1])
			}
			var dir types.Direction
			switch dof {
			case types.DOFFx:
				dir, mag = types.DirGX, mag*r.forceFactor
			case types.DOFFy:
				dir, mag = types.DirGY, mag*r.forceFactor
			case types.DOFFz:
				dir, mag = types.DirGZ, mag*r.forceFactor
			case types.DOFMx, types.DOFMy, types.DOFMz:
				dir, mag = types.Direction(dof), mag*momentFactor
			default:
				return formatErrf(block, ln.num, "unknown joint load direction %q", string(dof))
			}
			ids, err := expandIDs(f[:len(f)-2])
			if err != nil {
				return formatErrf(block, ln.num, "%v", err)
			}
			for _, nid := range ids {
				if m.Node(nid) == nil {
					return formatErrf(block, ln.num, "joint load targets undefined joint %d", nid)
				}
				lc.Loads = append(lc.Loads, types.Load{NodeID: nid, Direction: dir, Magnitude: mag})
			}
		case modeMember:
			// <ids...> UNI <GX|GY|GZ> <magnitude>
			if len(f) < 4 || f[len(f)-3] != "UNI" {
				return formatErrf(block, ln.num, "expected <members> UNI <axis> <magnitude>, got %q", ln.text)
			}
			dir, ok := loadDirections[f[len(f)-2]]
			if !ok {
				return formatErrf(block, ln.num, "unknown member load axis %q", f[len(f)-2])
			}
			mag, err := strconv.ParseFloat(f[len(f)-1], 64)
			if err != nil {
				return formatErrf(block, ln.num, "non-numeric magnitude %q", f[len(f)-1])
			}
			ids, err := expandIDs(f[:len(f)-3])
			if err != nil {
				return formatErrf(block, ln.num, "%v", err)
			}
			for _, eid := range ids {
				if m.Element(eid) == nil {
					return formatErrf(block, ln.num, "member load targets undefined member %d", eid)
				}
				lc.Loads = append(lc.Loads, types.Load{ElementID: eid, Direction: dir, Magnitude: mag * lineFactor})
			}
		default:
			return formatErrf(block, ln.num, "load data before JOINT LOAD or MEMBER LOAD marker: %q", ln.text)
		}
	}

	if err := m.AddLoadCase(lc); err != nil {
		return formatErrf(block, b.header.num, "%v", err)
	}
	return nil
}

func (r *Reader) readCombination(m *types.Model, b rawBlock) error {
	const block = "LOAD COMB"
	fields := strings.Fields(b.header.text)
	if len(fields) < 3 {
		return formatErrf(block, b.header.num, "expected LOAD COMB <id> <title>, got %q", b.header.text)
	}
	id, err := strconv.Atoi(fields[2])
	if err != nil {
		return formatErrf(block, b.header.num, "non-numeric combination id %q", fields[2])
	}
	combo := types.LoadCombination{ID: id, Title: strings.Join(fields[3:], " ")}

	for _, ln := range b.data {
		f := strings.Fields(ln.text)
		if len(f)%2 != 0 {
			return formatErrf(block, ln.num, "expected <case> <factor> pairs, got %q", ln.text)
		}
		for i := 0; i < len(f); i += 2 {
			caseID, err := strconv.Atoi(f[i])
			if err != nil {
				return formatErrf(block, ln.num, "non-numeric load case id %q", f[i])
			}
			factor, err := strconv.ParseFloat(f[i+1], 64)
			if err != nil {
				return formatErrf(block, ln.num, "non-numeric factor %q", f[i+1])
			}
			combo.Factors = append(combo.Factors, types.CaseFactor{CaseID: caseID, Factor: factor})
		}
	}

	if err := m.AddCombination(combo); err != nil {
		return formatErrf(block, b.header.num, "%v", err)
	}
	return nil
}

// standardGravity converts STAAD weight densities to mass densities.
const standardGravity = 9.80665

func parseInts(tokens []string) ([]int, error) {
	out := make([]int, len(tokens))
	for i, t := range tokens {
		v, err := strconv.Atoi(t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
