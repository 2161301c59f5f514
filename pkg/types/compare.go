// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "math"

// Equivalent reports whether two models describe the same structure
// within the given numeric tolerance. Entity order and identifiers must
// match; coordinates and numeric properties may differ by tol relative
// error. Attached analysis results are not compared.
func Equivalent(a, b *Model, tol float64) bool {
	if a.Title != b.Title || a.LengthUnit != b.LengthUnit || a.ForceUnit != b.ForceUnit || a.ZUp != b.ZUp {
		return false
	}
	if len(a.nodeIDs) != len(b.nodeIDs) || len(a.elementIDs) != len(b.elementIDs) ||
		len(a.matNames) != len(b.matNames) || len(a.secNames) != len(b.secNames) ||
		len(a.caseIDs) != len(b.caseIDs) || len(a.comboIDs) != len(b.comboIDs) {
		return false
	}
	for _, id := range a.nodeIDs {
		na, nb := a.nodes[id], b.nodes[id]
		if nb == nil || !close3(na.X, na.Y, na.Z, nb.X, nb.Y, nb.Z, tol) {
			return false
		}
		if !supportsEqual(na.Support, nb.Support) {
			return false
		}
	}
	for _, id := range a.elementIDs {
		ea, eb := a.elements[id], b.elements[id]
		if eb == nil || ea.Kind != eb.Kind || ea.Material != eb.Material || ea.Section != eb.Section {
			return false
		}
		if len(ea.Nodes) != len(eb.Nodes) {
			return false
		}
		for i := range ea.Nodes {
			if ea.Nodes[i] != eb.Nodes[i] {
				return false
			}
		}
	}
	for _, name := range a.matNames {
		ma, mb := a.materials[name], b.materials[name]
		if mb == nil ||
			!closeTo(ma.Elastic, mb.Elastic, tol) || !closeTo(ma.Poisson, mb.Poisson, tol) ||
			!closeTo(ma.Density, mb.Density, tol) || !closeTo(ma.Shear, mb.Shear, tol) {
			return false
		}
	}
	for _, name := range a.secNames {
		sa, sb := a.sections[name], b.sections[name]
		if sb == nil || !closeTo(sa.Area, sb.Area, tol) ||
			!closeTo(sa.IX, sb.IX, tol) || !closeTo(sa.IY, sb.IY, tol) || !closeTo(sa.IZ, sb.IZ, tol) {
			return false
		}
	}
	for _, id := range a.caseIDs {
		ca, cb := a.cases[id], b.cases[id]
		if cb == nil || ca.Title != cb.Title || ca.Kind != cb.Kind || len(ca.Loads) != len(cb.Loads) {
			return false
		}
		if (ca.SelfWeight == nil) != (cb.SelfWeight == nil) {
			return false
		}
		if ca.SelfWeight != nil &&
			(ca.SelfWeight.Direction != cb.SelfWeight.Direction ||
				!closeTo(ca.SelfWeight.Factor, cb.SelfWeight.Factor, tol)) {
			return false
		}
		for i := range ca.Loads {
			la, lb := ca.Loads[i], cb.Loads[i]
			if la.NodeID != lb.NodeID || la.ElementID != lb.ElementID || la.Direction != lb.Direction ||
				!closeTo(la.Magnitude, lb.Magnitude, tol) {
				return false
			}
		}
	}
	for _, id := range a.comboIDs {
		ca, cb := a.combos[id], b.combos[id]
		if cb == nil || ca.Title != cb.Title || len(ca.Factors) != len(cb.Factors) {
			return false
		}
		for i := range ca.Factors {
			if ca.Factors[i].CaseID != cb.Factors[i].CaseID ||
				!closeTo(ca.Factors[i].Factor, cb.Factors[i].Factor, tol) {
				return false
			}
		}
	}
	return true
}

func closeTo(a, b, tol float64) bool {
	if a == b {
		return true
	}
	scale := math.Max(math.Abs(a), math.Abs(b))
	if scale < 1 {
		scale = 1
	}
	return math.Abs(a-b) <= tol*scale
}

func close3(x1, y1, z1, x2, y2, z2, tol float64) bool {
	return closeTo(x1, x2, tol) && closeTo(y1, y2, tol) && closeTo(z1, z2, tol)
}

func supportsEqual(a, b *Support) bool {
	if (a == nil) != (b == nil) {
		return false
	}
	if a == nil {
		return true
	}
	if a.Kind != b.Kind || len(a.Released) != len(b.Released) {
		return false
	}
	for i := range a.Released {
		if a.Released[i] != b.Released[i] {
			return false
		}
	}
	return true
}
