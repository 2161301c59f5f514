// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// LoadKind categorizes a primary load case (the STAAD LOADTYPE).
type LoadKind string

const (
	LoadDead    LoadKind = "Dead"
	LoadLive    LoadKind = "Live"
	LoadWind    LoadKind = "Wind"
	LoadSeismic LoadKind = "Seismic"
)

// Direction is a global load direction. Translational loads use the
// GX/GY/GZ global axes; joint moments use the MX/MY/MZ axes.
type Direction string

const (
	DirGX Direction = "GX"
	DirGY Direction = "GY"
	DirGZ Direction = "GZ"
	DirMX Direction = "MX"
	DirMY Direction = "MY"
	DirMZ Direction = "MZ"
)

// Load is a single applied load. Exactly one of NodeID or ElementID is
// set: a node target is a joint load, an element target a uniform
// member load. Magnitude is stored in newtons (per metre for member
// loads).
type Load struct {
	NodeID    int       `json:"node_id,omitempty" yaml:"node_id,omitempty"`
	ElementID int       `json:"element_id,omitempty" yaml:"element_id,omitempty"`
	Direction Direction `json:"direction" yaml:"direction"`
	Magnitude float64   `json:"magnitude" yaml:"magnitude"`
}

// SelfWeight is a gravity load applied to the whole structure.
type SelfWeight struct {
	Direction Direction `json:"direction" yaml:"direction"`
	Factor    float64   `json:"factor" yaml:"factor"`
}

// LoadCase is a primary load case: an ordered list of applied loads.
type LoadCase struct {
	ID         int         `json:"id" yaml:"id"`
	Kind       LoadKind    `json:"kind" yaml:"kind"`
	Title      string      `json:"title" yaml:"title"`
	SelfWeight *SelfWeight `json:"self_weight,omitempty" yaml:"self_weight,omitempty"`
	Loads      []Load      `json:"loads" yaml:"loads"`
}

// CaseFactor weights one primary case inside a combination.
type CaseFactor struct {
	CaseID int     `json:"case_id" yaml:"case_id"`
	Factor float64 `json:"factor" yaml:"factor"`
}

// LoadCombination is a weighted sum of primary load cases. Factor order
// follows the source document.
type LoadCombination struct {
	ID      int          `json:"id" yaml:"id"`
	Title   string       `json:"title" yaml:"title"`
	Factors []CaseFactor `json:"factors" yaml:"factors"`
}
