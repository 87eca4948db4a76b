package params

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/soundops/dawlink/internal/wire"
)

// ValueKind tags the interpretation of a parsed parameter value.
type ValueKind int

const (
	// KindNumber is a raw control-space number.
	KindNumber ValueKind = iota
	// KindPercent is a percentage of the control range ("50%").
	KindPercent
	// KindDB is a display decibel figure ("-6dB").
	KindDB
	// KindHz is a display frequency ("180hz").
	KindHz
	// KindSymbol is "min", "max", or a quantized item name ("Square").
	KindSymbol
)

// Value is a parsed parameter request, before it is applied to a spec.
type Value struct {
	Kind   ValueKind
	Number float64
	Symbol string
}

// Parse interprets a raw param value from a request envelope. Numbers pass
// through as control-space values; strings accept the human forms the tool
// layer forwards unparsed: "50%", "-6dB", "min", "max", enum names, and
// bare numerals.
func Parse(raw any) (Value, error) {
	switch v := raw.(type) {
	case float64:
		return Value{Kind: KindNumber, Number: v}, nil
	case int:
		return Value{Kind: KindNumber, Number: float64(v)}, nil
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return Value{}, wire.InvalidParam("value", "bad number %q", v.String())
		}
		return Value{Kind: KindNumber, Number: f}, nil
	case string:
		return parseString(v)
	default:
		return Value{}, wire.InvalidParam("value", "unsupported value type %T", raw)
	}
}

func parseString(s string) (Value, error) {
	raw := strings.TrimSpace(s)
	lower := strings.ToLower(raw)
	switch {
	case lower == "":
		return Value{}, wire.InvalidParam("value", "empty value")
	case strings.HasSuffix(lower, "%"):
		f, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(lower, "%")), 64)
		if err != nil {
			return Value{}, wire.InvalidParam("value", "bad percentage %q", raw)
		}
		return Value{Kind: KindPercent, Number: f}, nil
	case strings.HasSuffix(lower, "db"):
		f, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(lower, "db")), 64)
		if err != nil {
			return Value{}, wire.InvalidParam("value", "bad decibel value %q", raw)
		}
		return Value{Kind: KindDB, Number: f}, nil
	case strings.HasSuffix(lower, "hz"):
		f, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(lower, "hz")), 64)
		if err != nil {
			return Value{}, wire.InvalidParam("value", "bad frequency %q", raw)
		}
		return Value{Kind: KindHz, Number: f}, nil
	}
	if f, err := strconv.ParseFloat(lower, 64); err == nil {
		return Value{Kind: KindNumber, Number: f}, nil
	}
	return Value{Kind: KindSymbol, Symbol: raw}, nil
}

// Apply resolves a parsed value against a spec into a final control value.
// Percentages scale across the full control range (0% = Min, 100% = Max),
// matching how the host prints them. dB and Hz figures go through the
// display-range converters when the spec declares a Display range; without
// one the spec range is taken to already be in the requested unit, so the
// figure clamps into it directly (EQ gains declared as -15..15 dB).
func Apply(spec Spec, val Value) (Result, error) {
	if err := spec.Validate(); err != nil {
		return Result{}, err
	}
	switch val.Kind {
	case KindSymbol:
		return applySymbol(spec, val.Symbol)
	case KindPercent:
		target := spec.Min + val.Number/100*(spec.Max-spec.Min)
		v, clamped := spec.Clamp(target)
		return snap(spec, Result{Requested: val.Number, Value: v, Clamped: clamped})
	case KindDB:
		if spec.Display != nil && spec.UnitHint == UnitDB {
			return NormalizeDB(spec, *spec.Display, val.Number)
		}
		v, clamped := spec.Clamp(val.Number)
		return snap(spec, Result{Requested: val.Number, Value: v, Clamped: clamped})
	case KindHz:
		if spec.Display != nil {
			return NormalizeHz(spec, *spec.Display, val.Number)
		}
		v, clamped := spec.Clamp(val.Number)
		return snap(spec, Result{Requested: val.Number, Value: v, Clamped: clamped})
	case KindNumber:
		v, clamped := spec.Clamp(val.Number)
		return snap(spec, Result{Requested: val.Number, Value: v, Clamped: clamped})
	default:
		return Result{}, wire.InvalidParam("value", "unknown value kind %d", val.Kind)
	}
}

func applySymbol(spec Spec, symbol string) (Result, error) {
	lower := strings.ToLower(strings.TrimSpace(symbol))
	if !spec.IsQuantized {
		switch lower {
		case "min", "minimum":
			return Result{Requested: spec.Min, Value: spec.Min}, nil
		case "max", "maximum":
			return Result{Requested: spec.Max, Value: spec.Max}, nil
		}
		return Result{}, wire.InvalidParam("value", "parameter %q takes numeric values, got %q", spec.Name, symbol)
	}
	idx, err := spec.ItemIndex(symbol)
	if err != nil {
		return Result{}, err
	}
	v := spec.ItemValue(idx)
	return Result{Requested: float64(idx), Value: v}, nil
}

// snap rounds quantized results to the nearest item position.
func snap(spec Spec, res Result) (Result, error) {
	if !spec.IsQuantized {
		return res, nil
	}
	idx, err := spec.SnapIndex(res.Value)
	if err != nil {
		return Result{}, err
	}
	res.Value = spec.ItemValue(idx)
	return res, nil
}
