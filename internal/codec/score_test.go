package codec

import (
	"math"
	"testing"
)

func TestPrefixScoreEmpty(t *testing.T) {
	if got := PrefixScore("", false); got != 0 {
		t.Errorf("PrefixScore(\"\", false) = %v, want 0", got)
	}
	if got := PrefixScore("", true); got != 0 {
		t.Errorf("PrefixScore(\"\", true) = %v, want 0", got)
	}
}

func TestPrefixScoreMonotonicNext(t *testing.T) {
	cases := []string{"a", "z", "hello", "hello world this is long", "\x00x"}
	for _, s := range cases {
		lo := PrefixScore(s, false)
		hi := PrefixScore(s, true)
		if !(lo < hi) {
			t.Errorf("PrefixScore(%q, false)=%v not < PrefixScore(%q, true)=%v", s, lo, s, hi)
		}
	}
}

func TestPrefixScoreOrdersLexicographically(t *testing.T) {
	pairs := [][2]string{
		{"a", "b"},
		{"abc", "abd"},
		{"abc", "abcd"},
		{"", "a"},
		{"apple", "banana"},
		{"gmail", "yahoo"},
	}
	for _, p := range pairs {
		a, b := PrefixScore(p[0], false), PrefixScore(p[1], false)
		if !(a < b) {
			t.Errorf("PrefixScore(%q)=%v not < PrefixScore(%q)=%v", p[0], a, p[1], b)
		}
	}
}

func TestPrefixScoreLongStringSharesPrefixScore(t *testing.T) {
	short := "1234567"
	long := "1234567890123"
	if PrefixScore(short, false) != PrefixScore(long, false) {
		t.Errorf("expected equal scores for shared 7-byte prefix: %v vs %v",
			PrefixScore(short, false), PrefixScore(long, false))
	}
}

func TestPrefixScoreNonNegative(t *testing.T) {
	for _, s := range []string{"", "x", "xyz", "a much longer string than seven bytes"} {
		if PrefixScore(s, false) < 0 {
			t.Errorf("PrefixScore(%q) is negative", s)
		}
	}
}

func TestToScoreString(t *testing.T) {
	if got := ToScoreString(12.5, false); got != "12.5" {
		t.Errorf("ToScoreString(12.5,false) = %q", got)
	}
	if got := ToScoreString(12.5, true); got != "(12.5" {
		t.Errorf("ToScoreString(12.5,true) = %q", got)
	}
}

// A wildcard at the start of a glob leaves PrefixScan with an empty
// literal prefix, whose exclusive upper bound must widen to +inf rather
// than collapsing the scan window to [0,0) — see ToScoreString's own
// infinity cases, which that widened bound depends on.
func TestToScoreStringInfinity(t *testing.T) {
	if got := ToScoreString(math.Inf(1), false); got != "+inf" {
		t.Errorf("ToScoreString(+Inf,false) = %q, want +inf", got)
	}
	if got := ToScoreString(math.Inf(1), true); got != "(+inf" {
		t.Errorf("ToScoreString(+Inf,true) = %q, want (+inf", got)
	}
	if got := ToScoreString(math.Inf(-1), false); got != "-inf" {
		t.Errorf("ToScoreString(-Inf,false) = %q, want -inf", got)
	}
}
