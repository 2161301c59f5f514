// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "fmt"

// LengthUnit is a declared length unit of a source document. Internal
// storage is always metres; the unit is kept so a round trip re-emits
// the document in its original system.
type LengthUnit string

const (
	UnitMeter LengthUnit = "METER"
	UnitCM    LengthUnit = "CM"
	UnitMM    LengthUnit = "MMS"
	UnitFeet  LengthUnit = "FEET"
	UnitInch  LengthUnit = "INCHES"
)

// ForceUnit is a declared force unit of a source document. Internal
// storage is always newtons.
type ForceUnit string

const (
	UnitNewton   ForceUnit = "NEWTON"
	UnitKN       ForceUnit = "KN"
	UnitMetricT  ForceUnit = "MTON"
	UnitKilogram ForceUnit = "KGS"
)

// lengthFactors maps a length unit to metres.
var lengthFactors = map[LengthUnit]float64{
	UnitMeter: 1,
	UnitCM:    0.01,
	UnitMM:    0.001,
	UnitFeet:  0.3048,
	UnitInch:  0.0254,
}

// forceFactors maps a force unit to newtons.
var forceFactors = map[ForceUnit]float64{
	UnitNewton:   1,
	UnitKN:       1000,
	UnitMetricT:  9806.65,
	UnitKilogram: 9.80665,
}

// Factor returns the multiplier from this length unit to metres.
func (u LengthUnit) Factor() (float64, error) {
	f, ok := lengthFactors[u]
	if !ok {
		return 0, fmt.Errorf("unsupported length unit %q", string(u))
	}
	return f, nil
}

// Factor returns the multiplier from this force unit to newtons.
func (u ForceUnit) Factor() (float64, error) {
	f, ok := forceFactors[u]
	if !ok {
		return 0, fmt.Errorf("unsupported force unit %q", string(u))
	}
	return f, nil
}
