package params

import (
	"math"

	"github.com/soundops/dawlink/internal/wire"
)

// Result reports a conversion outcome. Requested echoes the caller's input
// so clamping is detectable without re-deriving it.
type Result struct {
	Requested float64 `json:"requested"`
	Value     float64 `json:"value"`
	Clamped   bool    `json:"clamped"`
}

// Range is a parameter's declared display range (e.g. -15..15 dB,
// 10..22000 Hz) as opposed to its normalized control range.
type Range struct {
	Lo float64 `json:"lo"`
	Hi float64 `json:"hi"`
}

func (r Range) span() (float64, error) {
	if r.Hi == r.Lo {
		return 0, wire.Errorf(wire.KindInvalidSpec, "degenerate display range [%g, %g]", r.Lo, r.Hi)
	}
	return r.Hi - r.Lo, nil
}

// NormalizePercent maps a percentage to the control space: percent/100,
// clamped to the spec range.
func NormalizePercent(spec Spec, percent float64) (Result, error) {
	if err := spec.Validate(); err != nil {
		return Result{}, err
	}
	v, clamped := spec.Clamp(percent / 100)
	return Result{Requested: percent, Value: v, Clamped: clamped}, nil
}

// DenormalizePercent maps a control value back to a percentage.
func DenormalizePercent(spec Spec, norm float64) (Result, error) {
	if err := spec.Validate(); err != nil {
		return Result{}, err
	}
	v, clamped := spec.Clamp(norm)
	return Result{Requested: norm, Value: v * 100, Clamped: clamped}, nil
}

// NormalizeDB maps a display dB value to the control space. The mapping is
// affine between the display range and [Min, Max]: it relates the printed
// dB figure to the control position, not acoustic power.
func NormalizeDB(spec Spec, r Range, db float64) (Result, error) {
	if err := spec.Validate(); err != nil {
		return Result{}, err
	}
	span, err := r.span()
	if err != nil {
		return Result{}, err
	}
	norm := spec.Min + (db-r.Lo)/span*(spec.Max-spec.Min)
	v, clamped := spec.Clamp(norm)
	return Result{Requested: db, Value: v, Clamped: clamped}, nil
}

// DenormalizeDB maps a control value back to display dB.
func DenormalizeDB(spec Spec, r Range, norm float64) (Result, error) {
	if err := spec.Validate(); err != nil {
		return Result{}, err
	}
	span, err := r.span()
	if err != nil {
		return Result{}, err
	}
	v, clamped := spec.Clamp(norm)
	var frac float64
	if spec.Max != spec.Min {
		frac = (v - spec.Min) / (spec.Max - spec.Min)
	}
	return Result{Requested: norm, Value: r.Lo + frac*span, Clamped: clamped}, nil
}

// NormalizeHz maps a frequency to the control space on a log scale:
// log(hz/lo) / log(hi/lo), rescaled onto [Min, Max].
func NormalizeHz(spec Spec, r Range, hz float64) (Result, error) {
	if err := spec.Validate(); err != nil {
		return Result{}, err
	}
	if err := validateHzRange(r); err != nil {
		return Result{}, err
	}
	if hz <= 0 {
		v, _ := spec.Clamp(spec.Min)
		return Result{Requested: hz, Value: v, Clamped: true}, nil
	}
	frac := math.Log(hz/r.Lo) / math.Log(r.Hi/r.Lo)
	v, clamped := spec.Clamp(spec.Min + frac*(spec.Max-spec.Min))
	return Result{Requested: hz, Value: v, Clamped: clamped}, nil
}

// DenormalizeHz maps a control value back to a frequency:
// hz = lo * (hi/lo)^frac.
func DenormalizeHz(spec Spec, r Range, norm float64) (Result, error) {
	if err := spec.Validate(); err != nil {
		return Result{}, err
	}
	if err := validateHzRange(r); err != nil {
		return Result{}, err
	}
	v, clamped := spec.Clamp(norm)
	var frac float64
	if spec.Max != spec.Min {
		frac = (v - spec.Min) / (spec.Max - spec.Min)
	}
	return Result{Requested: norm, Value: r.Lo * math.Pow(r.Hi/r.Lo, frac), Clamped: clamped}, nil
}

func validateHzRange(r Range) error {
	if r.Lo <= 0 || r.Hi <= 0 {
		return wire.Errorf(wire.KindInvalidSpec, "frequency range [%g, %g] must be positive", r.Lo, r.Hi)
	}
	if r.Hi == r.Lo {
		return wire.Errorf(wire.KindInvalidSpec, "degenerate frequency range [%g, %g]", r.Lo, r.Hi)
	}
	return nil
}
