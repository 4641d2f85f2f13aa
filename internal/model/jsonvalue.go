package model

import (
	"fmt"
	"math/big"
)

// ValueFromJSON converts a JSON-decoded value (as produced by
// encoding/json into an any: float64, string, bool, or nested
// map/slice for KindJSON) into a typed Value of kind, for callers at a
// wire boundary (the REST layer, the CLI) that only ever see JSON.
func ValueFromJSON(kind Kind, raw any) (Value, error) {
	switch kind {
	case KindInt, KindPrimaryKey, KindForeignKey:
		switch n := raw.(type) {
		case float64:
			return Value{Kind: kind, Int: big.NewInt(int64(n))}, nil
		case string:
			i, ok := new(big.Int).SetString(n, 10)
			if !ok {
				return Value{}, fmt.Errorf("model: invalid integer %q", n)
			}
			return Value{Kind: kind, Int: i}, nil
		default:
			return Value{}, fmt.Errorf("model: expected integer, got %T", raw)
		}
	case KindFloat, KindTimestamp, KindDate, KindTime:
		f, ok := raw.(float64)
		if !ok {
			return Value{}, fmt.Errorf("model: expected number, got %T", raw)
		}
		return Value{Kind: kind, Float: f}, nil
	case KindDecimal:
		s, ok := raw.(string)
		if !ok {
			return Value{}, fmt.Errorf("model: expected decimal string, got %T", raw)
		}
		return Value{Kind: KindDecimal, Decimal: s}, nil
	case KindBool:
		b, ok := raw.(bool)
		if !ok {
			return Value{}, fmt.Errorf("model: expected bool, got %T", raw)
		}
		return Value{Kind: KindBool, Bool: b}, nil
	case KindText:
		s, ok := raw.(string)
		if !ok {
			return Value{}, fmt.Errorf("model: expected string, got %T", raw)
		}
		return Value{Kind: KindText, Text: s}, nil
	case KindBytes:
		s, ok := raw.(string)
		if !ok {
			return Value{}, fmt.Errorf("model: expected string, got %T", raw)
		}
		return Value{Kind: KindBytes, Bytes: []byte(s)}, nil
	case KindJSON:
		return Value{Kind: KindJSON, JSON: raw}, nil
	default:
		return Value{}, fmt.Errorf("model: unknown kind %q", kind)
	}
}

// ToJSON renders v back to a plain any suitable for encoding/json, the
// inverse of ValueFromJSON. Integers that a float64 holds exactly
// (magnitude up to 2^53) render as a JSON number; larger ones render as
// their decimal string.
func (v Value) ToJSON() (any, error) {
	switch v.Kind {
	case KindInt, KindPrimaryKey, KindForeignKey:
		if v.Int == nil {
			return nil, nil
		}
		if v.Int.IsInt64() {
			if n := v.Int.Int64(); n >= -(1<<53) && n <= 1<<53 {
				return float64(n), nil
			}
		}
		return v.Int.String(), nil
	case KindFloat, KindTimestamp, KindDate, KindTime:
		return v.Float, nil
	case KindDecimal:
		return v.Decimal, nil
	case KindBool:
		return v.Bool, nil
	case KindText:
		return v.Text, nil
	case KindBytes:
		return string(v.Bytes), nil
	case KindJSON:
		return v.JSON, nil
	default:
		return nil, fmt.Errorf("model: unknown kind %q", v.Kind)
	}
}

// FieldsFromJSON builds a Fields map for every name in raw that d
// declares, decoding each value per its declared Kind. A key not
// declared on d fails the whole call with a plain error (not an
// errs.InvalidColumnError).
func FieldsFromJSON(d *Descriptor, raw map[string]any) (map[string]Value, error) {
	out := make(map[string]Value, len(raw))
	for name, v := range raw {
		spec, ok := d.Fields[name]
		if !ok {
			return nil, fmt.Errorf("model: field %q not declared on %s", name, d.Namespace)
		}
		val, err := ValueFromJSON(spec.Kind, v)
		if err != nil {
			return nil, fmt.Errorf("model: field %q: %w", name, err)
		}
		out[name] = val
	}
	return out, nil
}

// FieldsToJSON renders every field of fields to a plain JSON-friendly
// map, e.g. for a REST response or CLI output.
func FieldsToJSON(fields map[string]Value) (map[string]any, error) {
	out := make(map[string]any, len(fields))
	for name, v := range fields {
		j, err := v.ToJSON()
		if err != nil {
			return nil, fmt.Errorf("model: field %q: %w", name, err)
		}
		out[name] = j
	}
	return out, nil
}
