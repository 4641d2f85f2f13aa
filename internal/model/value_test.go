package model

import "testing"

func TestValueEncodeDecodeRoundTrip(t *testing.T) {
	cases := []Value{
		Int(42),
		Float(3.25),
		Decimal("19.99"),
		Bool(true),
		Bool(false),
		Timestamp(1700000000.5),
		Text("hello world"),
		Bytes([]byte{0, 1, 2, 255}),
		JSONValue(map[string]any{"a": float64(1), "b": "two"}),
		PrimaryKey(7),
		ForeignKey(9),
	}
	for _, v := range cases {
		s, err := v.Encode()
		if err != nil {
			t.Fatalf("Encode(%+v): %v", v, err)
		}
		got, err := Decode(v.Kind, s)
		if err != nil {
			t.Fatalf("Decode(%q, %q): %v", v.Kind, s, err)
		}
		gs, err := got.Encode()
		if err != nil {
			t.Fatalf("re-encode: %v", err)
		}
		if gs != s {
			t.Errorf("round trip mismatch for %+v: %q != %q", v, s, gs)
		}
	}
}

func TestValueBoolEncoding(t *testing.T) {
	if s, _ := Bool(true).Encode(); s != "1" {
		t.Errorf("Bool(true).Encode() = %q, want \"1\"", s)
	}
	if s, _ := Bool(false).Encode(); s != "" {
		t.Errorf("Bool(false).Encode() = %q, want \"\"", s)
	}
}

func TestValueAsFloat(t *testing.T) {
	if f, ok := Int(5).AsFloat(); !ok || f != 5 {
		t.Errorf("Int(5).AsFloat() = %v, %v", f, ok)
	}
	if f, ok := Decimal("2.5").AsFloat(); !ok || f != 2.5 {
		t.Errorf("Decimal(2.5).AsFloat() = %v, %v", f, ok)
	}
	if _, ok := Text("x").AsFloat(); ok {
		t.Error("Text.AsFloat() should not be ok")
	}
}

func TestValueKindMismatchRejected(t *testing.T) {
	if _, err := Decode(KindInt, "not-a-number"); err == nil {
		t.Error("expected error decoding invalid integer")
	}
	if _, err := Decode(KindJSON, "{not json"); err == nil {
		t.Error("expected error decoding invalid json")
	}
}
