// Package params converts human parameter values (dB, %, Hz, enum names)
// into the host's normalized control space and back. All functions are pure;
// out-of-range input is clamped and flagged, never rejected.
package params

import (
	"fmt"
	"strings"

	"github.com/soundops/dawlink/internal/wire"
)

// Unit hints advertised in cached parameter metadata.
const (
	UnitDB      = "dB"
	UnitHz      = "Hz"
	UnitPercent = "percent"
	UnitRaw     = "raw"
)

// Spec describes one host parameter's control range. For quantized
// parameters the control space is the index range [0, len(ValueItems)-1]
// mapped affinely onto [Min, Max]. Display, when set, is the printed-unit
// range behind a normalized control: a filter frequency knob with
// [Min, Max] = [0, 1] and Display 10..22000 Hz takes "180hz" requests.
type Spec struct {
	Name        string   `json:"name"`
	Min         float64  `json:"min"`
	Max         float64  `json:"max"`
	IsQuantized bool     `json:"is_quantized"`
	ValueItems  []string `json:"value_items,omitempty"`
	UnitHint    string   `json:"unit_hint,omitempty"`
	Display     *Range   `json:"display,omitempty"`
}

// Validate checks the spec invariants: Min <= Max, and quantized specs
// carry at least one value item.
func (s Spec) Validate() error {
	if s.Min > s.Max {
		return wire.Errorf(wire.KindInvalidSpec, "parameter %q: min %g > max %g", s.Name, s.Min, s.Max)
	}
	if s.IsQuantized && len(s.ValueItems) == 0 {
		return wire.Errorf(wire.KindInvalidSpec, "parameter %q: quantized without value items", s.Name)
	}
	return nil
}

// Clamp confines v to [Min, Max], reporting whether clamping occurred.
func (s Spec) Clamp(v float64) (float64, bool) {
	if v < s.Min {
		return s.Min, true
	}
	if v > s.Max {
		return s.Max, true
	}
	return v, false
}

// ItemValue returns the control value for a quantized item index.
func (s Spec) ItemValue(index int) float64 {
	n := len(s.ValueItems)
	if n <= 1 {
		return s.Min
	}
	return s.Min + float64(index)*(s.Max-s.Min)/float64(n-1)
}

// ItemIndex resolves a symbolic token against a quantized spec: "min",
// "max", or a case-insensitive exact match of one value item.
func (s Spec) ItemIndex(token string) (int, error) {
	if err := s.Validate(); err != nil {
		return 0, err
	}
	if !s.IsQuantized {
		return 0, wire.Errorf(wire.KindInvalidSpec, "parameter %q is not quantized", s.Name)
	}
	t := strings.ToLower(strings.TrimSpace(token))
	switch t {
	case "min", "minimum":
		return 0, nil
	case "max", "maximum":
		return len(s.ValueItems) - 1, nil
	}
	for i, item := range s.ValueItems {
		if strings.ToLower(item) == t {
			return i, nil
		}
	}
	return 0, wire.InvalidParam("value", "no item %q on parameter %q (have %s)",
		token, s.Name, strings.Join(s.ValueItems, ", "))
}

// SnapIndex snaps a raw control value to the nearest quantized item index.
func (s Spec) SnapIndex(v float64) (int, error) {
	if err := s.Validate(); err != nil {
		return 0, err
	}
	if !s.IsQuantized {
		return 0, wire.Errorf(wire.KindInvalidSpec, "parameter %q is not quantized", s.Name)
	}
	n := len(s.ValueItems)
	if n == 1 || s.Max == s.Min {
		return 0, nil
	}
	pos := (v - s.Min) / (s.Max - s.Min) * float64(n-1)
	idx := int(pos + 0.5)
	if pos < 0 {
		idx = 0
	}
	if idx > n-1 {
		idx = n - 1
	}
	return idx, nil
}

func (s Spec) String() string {
	if s.IsQuantized {
		return fmt.Sprintf("%s [%d items]", s.Name, len(s.ValueItems))
	}
	return fmt.Sprintf("%s [%g..%g]", s.Name, s.Min, s.Max)
}
