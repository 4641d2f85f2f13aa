// Package keygen implements the required built-in key-generators and a
// name-based registry for custom ones. Every generator is a pure,
// side-effect-free model.Generator: given a field name and the record's
// full field map, it returns the index contribution that field makes,
// with no dependency on anything outside its arguments (keygens must be
// deterministic and side-effect free).
package keygen

import (
	"sort"
	"strings"

	"github.com/romkit/rom/internal/codec"
	"github.com/romkit/rom/internal/model"
)

// Numeric yields the field's own value as the score of its per-field
// sorted index. Pair with model.FamilyScored.
func Numeric(field string, record map[string]model.Value) model.Contribution {
	f, ok := record[field].AsFloat()
	if !ok {
		return model.Contribution{}
	}
	return model.Contribution{Score: f, HasScore: true}
}

// Boolean yields "True" or "False" as a single inverted-index term. Pair
// with model.FamilySet.
func Boolean(field string, record map[string]model.Value) model.Contribution {
	v, ok := record[field]
	if !ok {
		return model.Contribution{}
	}
	b := v.Bool
	if v.Kind != model.KindBool {
		f, _ := v.AsFloat()
		b = f != 0
	}
	return model.Contribution{SetTerms: []string{boolTerm(b)}}
}

func boolTerm(b bool) string {
	if b {
		return "True"
	}
	return "False"
}

var punctCutset = " \t\n\r!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"

// FullText lowercases the field's text, splits on whitespace, strips
// ASCII punctuation from both ends of each token, deduplicates, and
// sorts the surviving tokens. Pair with model.FamilySet.
func FullText(field string, record map[string]model.Value) model.Contribution {
	s, ok := record[field].AsString()
	if !ok {
		return model.Contribution{}
	}
	lowered := strings.ToLower(s)
	seen := make(map[string]bool)
	var tokens []string
	for _, raw := range strings.Fields(lowered) {
		tok := strings.Trim(raw, punctCutset)
		if tok == "" || seen[tok] {
			continue
		}
		seen[tok] = true
		tokens = append(tokens, tok)
	}
	sort.Strings(tokens)
	return model.Contribution{SetTerms: tokens}
}

// Simple yields the prefix score of the field's string value as the
// score of its per-field sorted index, an order-preserving single-term
// index. Pair with model.FamilyScored.
func Simple(field string, record map[string]model.Value) model.Contribution {
	s, ok := record[field].AsString()
	if !ok {
		return model.Contribution{}
	}
	return model.Contribution{Score: codec.PrefixScore(s, false), HasScore: true}
}

// SimpleCI is Simple with the value lowercased first, the SIMPLE_CI
// built-in. Pair with model.FamilyScored.
func SimpleCI(field string, record map[string]model.Value) model.Contribution {
	s, ok := record[field].AsString()
	if !ok {
		return model.Contribution{}
	}
	return model.Contribution{Score: codec.PrefixScore(strings.ToLower(s), false), HasScore: true}
}

// Identity yields the whole field value as a single inverted-index
// term. Pair with model.FamilySet.
func Identity(field string, record map[string]model.Value) model.Contribution {
	s, ok := record[field].AsString()
	if !ok {
		return model.Contribution{}
	}
	return model.Contribution{SetTerms: []string{s}}
}

// IdentityCI is Identity with the value lowercased first, the
// IDENTITY_CI built-in. Pair with model.FamilySet.
func IdentityCI(field string, record map[string]model.Value) model.Contribution {
	s, ok := record[field].AsString()
	if !ok {
		return model.Contribution{}
	}
	return model.Contribution{SetTerms: []string{strings.ToLower(s)}}
}

// ForeignKey yields the referenced id as the score of its per-field
// sorted index, letting range/order-by queries traverse the relation
// without a join. Pair with model.FamilyScored.
func ForeignKey(field string, record map[string]model.Value) model.Contribution {
	f, ok := record[field].AsFloat()
	if !ok {
		return model.Contribution{}
	}
	return model.Contribution{Score: f, HasScore: true}
}

// Prefix yields the field's string value as a single scan-index term,
// unmodified. Pair with model.FamilyPrefix.
func Prefix(field string, record map[string]model.Value) model.Contribution {
	s, ok := record[field].AsString()
	if !ok {
		return model.Contribution{}
	}
	return model.Contribution{SetTerms: []string{s}}
}

// Suffix yields the field's string value reversed, so that a suffix
// query can run the same prefix-scan machinery against the reversed
// string. Pair with model.FamilySuffix; the scanner reverses its query
// string to match.
func Suffix(field string, record map[string]model.Value) model.Contribution {
	s, ok := record[field].AsString()
	if !ok {
		return model.Contribution{}
	}
	return model.Contribution{SetTerms: []string{reverse(s)}}
}

func reverse(s string) string {
	r := []rune(s)
	for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
		r[i], r[j] = r[j], r[i]
	}
	return string(r)
}

// GeoUnits maps the backing store's accepted geo distance units to
// their length in meters, used to convert a query's radius into the
// unit the backing store's GEORADIUS command expects.
var GeoUnits = map[string]float64{
	"m":  1,
	"km": 1000,
	"mi": 1609.344,
	"ft": 0.3048,
}

// Geo builds a geo-field generator reading longitude from lonField and
// latitude from latField, the GEO built-in. Unlike the other
// generators, composite geo fields are constructed rather than named
// directly, since a geo index needs two source columns.
func Geo(lonField, latField string) model.Generator {
	return func(field string, record map[string]model.Value) model.Contribution {
		lon, ok1 := record[lonField].AsFloat()
		lat, ok2 := record[latField].AsFloat()
		if !ok1 || !ok2 {
			return model.Contribution{}
		}
		return model.Contribution{Lon: lon, Lat: lat, HasGeo: true}
	}
}

// Registry resolves a stable registered name to a model.Generator, the
// "custom function variant with a stable registered name" the schema
// needs so indexes can be rebuilt from the descriptor alone rather than
// from a serialized closure.
type Registry struct {
	generators map[string]model.Generator
}

// NewRegistry returns a Registry pre-populated with every required
// built-in under its canonical name.
func NewRegistry() *Registry {
	r := &Registry{generators: make(map[string]model.Generator)}
	r.Register("NUMERIC", Numeric)
	r.Register("BOOLEAN", Boolean)
	r.Register("FULL_TEXT", FullText)
	r.Register("SIMPLE", Simple)
	r.Register("SIMPLE_CI", SimpleCI)
	r.Register("IDENTITY", Identity)
	r.Register("IDENTITY_CI", IdentityCI)
	r.Register("FOREIGN_KEY", ForeignKey)
	r.Register("PREFIX", Prefix)
	r.Register("SUFFIX", Suffix)
	return r
}

// Register adds or replaces the generator registered under name.
func (r *Registry) Register(name string, gen model.Generator) {
	r.generators[name] = gen
}

// Get resolves name to its generator.
func (r *Registry) Get(name string) (model.Generator, bool) {
	g, ok := r.generators[name]
	return g, ok
}

// Family returns the index family a built-in name's generator pairs
// with, used when building a model.FieldSpec from a registered name
// alone. Custom-registered names have no implicit family; the caller
// must set FieldSpec.Family explicitly.
func Family(name string) (model.IndexFamily, bool) {
	switch name {
	case "NUMERIC", "SIMPLE", "SIMPLE_CI", "FOREIGN_KEY":
		return model.FamilyScored, true
	case "BOOLEAN", "FULL_TEXT", "IDENTITY", "IDENTITY_CI":
		return model.FamilySet, true
	case "PREFIX":
		return model.FamilyPrefix, true
	case "SUFFIX":
		return model.FamilySuffix, true
	default:
		return "", false
	}
}
