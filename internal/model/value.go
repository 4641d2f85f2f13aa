// Package model defines the typed field values, model descriptors, and
// index manifests that the writer, planner, and executor operate on. It
// replaces the process-wide model registry the original implementation
// relied on (see spec §9, "Avoiding the process-wide model registry"):
// callers build one *Descriptor per record type and pass it explicitly
// into the writer and planner rather than looking it up by name from
// mutable global state.
package model

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"
)

// Kind identifies the semantic type of a field value, independent of how
// Go represents it in memory.
type Kind string

const (
	KindInt        Kind = "int"
	KindFloat      Kind = "float"
	KindDecimal    Kind = "decimal"
	KindBool       Kind = "bool"
	KindTimestamp  Kind = "timestamp"
	KindDate       Kind = "date"
	KindTime       Kind = "time"
	KindText       Kind = "text"
	KindBytes      Kind = "bytes"
	KindJSON       Kind = "json"
	KindPrimaryKey Kind = "pk"
	KindForeignKey Kind = "fk"
)

// Value holds one field's value along with enough type information to
// encode it to, and decode it from, the string form stored in a record
// hash. Only the member matching Kind is meaningful.
type Value struct {
	Kind    Kind
	Int     *big.Int // KindInt, KindPrimaryKey, KindForeignKey
	Float   float64  // KindFloat, KindTimestamp, KindDate, KindTime
	Decimal string   // KindDecimal: exact decimal string, stored as-is
	Bool    bool      // KindBool
	Text    string    // KindText
	Bytes   []byte    // KindBytes
	JSON    any       // KindJSON
}

func Int(v int64) Value        { return Value{Kind: KindInt, Int: big.NewInt(v)} }
func BigInt(v *big.Int) Value  { return Value{Kind: KindInt, Int: v} }
func Float(v float64) Value    { return Value{Kind: KindFloat, Float: v} }
func Decimal(v string) Value   { return Value{Kind: KindDecimal, Decimal: v} }
func Bool(v bool) Value        { return Value{Kind: KindBool, Bool: v} }
func Timestamp(v float64) Value { return Value{Kind: KindTimestamp, Float: v} }
func Date(v float64) Value     { return Value{Kind: KindDate, Float: v} }
func TimeOfDay(v float64) Value { return Value{Kind: KindTime, Float: v} }
func Text(v string) Value      { return Value{Kind: KindText, Text: v} }
func Bytes(v []byte) Value     { return Value{Kind: KindBytes, Bytes: v} }
func JSONValue(v any) Value    { return Value{Kind: KindJSON, JSON: v} }
func PrimaryKey(id int64) Value { return Value{Kind: KindPrimaryKey, Int: big.NewInt(id)} }
func ForeignKey(id int64) Value { return Value{Kind: KindForeignKey, Int: big.NewInt(id)} }

// AsFloat returns v's value as a float64 where that is meaningful: for
// numeric kinds directly, for Decimal/Int/PrimaryKey/ForeignKey via
// parsing, for Bool as 0/1. Text/Bytes/JSON have no numeric form.
func (v Value) AsFloat() (float64, bool) {
	switch v.Kind {
	case KindFloat, KindTimestamp, KindDate, KindTime:
		return v.Float, true
	case KindInt, KindPrimaryKey, KindForeignKey:
		if v.Int == nil {
			return 0, false
		}
		f, _ := new(big.Float).SetInt(v.Int).Float64()
		return f, true
	case KindDecimal:
		f, err := strconv.ParseFloat(v.Decimal, 64)
		return f, err == nil
	case KindBool:
		if v.Bool {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

// AsString returns v's value as a string where that is meaningful for
// text-oriented key-generators (FULL_TEXT, IDENTITY, SIMPLE).
func (v Value) AsString() (string, bool) {
	switch v.Kind {
	case KindText:
		return v.Text, true
	case KindBytes:
		return string(v.Bytes), true
	case KindDecimal:
		return v.Decimal, true
	case KindInt, KindPrimaryKey, KindForeignKey:
		if v.Int == nil {
			return "", false
		}
		return v.Int.String(), true
	default:
		return "", false
	}
}

// Encode renders v to the canonical string form persisted as a record
// hash sub-value.
func (v Value) Encode() (string, error) {
	switch v.Kind {
	case KindInt, KindPrimaryKey, KindForeignKey:
		if v.Int == nil {
			return "", fmt.Errorf("model: nil integer value")
		}
		return v.Int.String(), nil
	case KindFloat, KindTimestamp, KindDate, KindTime:
		return strconv.FormatFloat(v.Float, 'g', -1, 64), nil
	case KindDecimal:
		return v.Decimal, nil
	case KindBool:
		if v.Bool {
			return "1", nil
		}
		return "", nil
	case KindText:
		return v.Text, nil
	case KindBytes:
		// Go strings are byte slices with no implied encoding, so this
		// is already a lossless, allocation-free octet round trip; no
		// latin-1 transcoding step is needed the way the original
		// Python implementation required one.
		return string(v.Bytes), nil
	case KindJSON:
		b, err := json.Marshal(v.JSON)
		if err != nil {
			return "", fmt.Errorf("model: encode json field: %w", err)
		}
		return string(b), nil
	default:
		return "", fmt.Errorf("model: unknown kind %q", v.Kind)
	}
}

// Decode parses s, the stored hash sub-value, into a Value of the given
// kind.
func Decode(kind Kind, s string) (Value, error) {
	switch kind {
	case KindInt, KindPrimaryKey, KindForeignKey:
		i, ok := new(big.Int).SetString(s, 10)
		if !ok {
			return Value{}, fmt.Errorf("model: invalid integer %q", s)
		}
		return Value{Kind: kind, Int: i}, nil
	case KindFloat, KindTimestamp, KindDate, KindTime:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return Value{}, fmt.Errorf("model: invalid float %q: %w", s, err)
		}
		return Value{Kind: kind, Float: f}, nil
	case KindDecimal:
		return Value{Kind: KindDecimal, Decimal: s}, nil
	case KindBool:
		return Value{Kind: KindBool, Bool: s == "1"}, nil
	case KindText:
		return Value{Kind: KindText, Text: s}, nil
	case KindBytes:
		return Value{Kind: KindBytes, Bytes: []byte(s)}, nil
	case KindJSON:
		var v any
		if err := json.Unmarshal([]byte(s), &v); err != nil {
			return Value{}, fmt.Errorf("model: invalid json %q: %w", s, err)
		}
		return Value{Kind: KindJSON, JSON: v}, nil
	default:
		return Value{}, fmt.Errorf("model: unknown kind %q", kind)
	}
}
