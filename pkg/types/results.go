// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Displacement holds nodal translations (metres) and rotations
// (radians) for one load case.
type Displacement struct {
	DX float64 `json:"dx" yaml:"dx" msgpack:"dx"`
	DY float64 `json:"dy" yaml:"dy" msgpack:"dy"`
	DZ float64 `json:"dz" yaml:"dz" msgpack:"dz"`
	RX float64 `json:"rx" yaml:"rx" msgpack:"rx"`
	RY float64 `json:"ry" yaml:"ry" msgpack:"ry"`
	RZ float64 `json:"rz" yaml:"rz" msgpack:"rz"`
}

// MemberForces holds element end forces (newtons) and moments
// (newton-metres) for one load case.
type MemberForces struct {
	FX float64 `json:"fx" yaml:"fx" msgpack:"fx"`
	FY float64 `json:"fy" yaml:"fy" msgpack:"fy"`
	FZ float64 `json:"fz" yaml:"fz" msgpack:"fz"`
	MX float64 `json:"mx" yaml:"mx" msgpack:"mx"`
	MY float64 `json:"my" yaml:"my" msgpack:"my"`
	MZ float64 `json:"mz" yaml:"mz" msgpack:"mz"`
}

// AnalysisResult maps entity identifiers to computed quantities per
// load case. It references the model's entities by identifier only, so
// a result set can be discarded or replaced without touching geometry.
type AnalysisResult struct {
	// JobID is the remote job that produced this result.
	JobID string `json:"job_id" yaml:"job_id"`

	// Displacements is keyed by load case id, then node id.
	Displacements map[int]map[int]Displacement `json:"displacements" yaml:"displacements"`

	// Forces is keyed by load case id, then element id.
	Forces map[int]map[int]MemberForces `json:"forces" yaml:"forces"`
}
