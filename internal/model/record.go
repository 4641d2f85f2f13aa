package model

import (
	"fmt"

	"github.com/romkit/rom/internal/codec"
)

// Record is one in-memory instance of a descriptor's record type: the
// primary-key id (0 for a not-yet-saved record) plus its field values.
//
// Snapshot, when set, is the field values the caller last read from the
// backing store (typically populated by a prior Get); a save compares
// it against the record's live state field-by-field for every field
// Fields is about to change, giving genuine "changed out from under
// you" detection. A Record built fresh (Snapshot left nil) gets no such
// protection — there is nothing yet to compare against — matching
// spec.md §5's "caller passes old-state and new-state field maps" data
// flow.
type Record struct {
	ID       int64
	Fields   map[string]Value
	Snapshot map[string]Value
}

// Encode renders every field present in r to its canonical string form,
// keyed by field name, ready to be written to a record hash.
func (r *Record) Encode(d *Descriptor) (map[string]string, error) {
	out := make(map[string]string, len(r.Fields))
	for name, v := range r.Fields {
		spec, ok := d.Fields[name]
		if !ok {
			return nil, fmt.Errorf("model: field %q not declared on %s", name, d.Namespace)
		}
		if v.Kind != spec.Kind {
			return nil, fmt.Errorf("model: field %q: value kind %q does not match declared kind %q", name, v.Kind, spec.Kind)
		}
		s, err := v.Encode()
		if err != nil {
			return nil, fmt.Errorf("model: field %q: %w", name, err)
		}
		out[name] = s
	}
	return out, nil
}

// DecodeRecord parses a record hash, as loaded from the backing store,
// back into typed field values per d. Hash entries naming a field not
// declared on d are ignored rather than rejected, so a descriptor can
// drop a field without breaking reads of records written under an
// older version of it.
func DecodeRecord(d *Descriptor, hash map[string]string) (*Record, error) {
	rec := &Record{Fields: make(map[string]Value, len(hash))}
	for name, raw := range hash {
		spec, ok := d.Fields[name]
		if !ok {
			continue
		}
		v, err := Decode(spec.Kind, raw)
		if err != nil {
			return nil, fmt.Errorf("model: field %q: %w", name, err)
		}
		rec.Fields[name] = v
	}
	if pk, ok := rec.Fields[d.PKField]; ok && pk.Int != nil {
		rec.ID = pk.Int.Int64()
	}
	return rec, nil
}

// BuildManifest runs every indexed field's key-generator against r and
// assembles the resulting Manifest, ready to be diffed against a
// record's prior manifest and written atomically alongside the record's
// fields. Prefix/suffix terms are stored as the bare term the keygen
// produced; the writer appends the record's own id (the "\0<id>" tie
// breaker spec §3 describes) when it turns a manifest entry into an
// actual ZSET member, so the term recorded here stays stable across
// writes and its prefix score is computed from the term alone.
func BuildManifest(d *Descriptor, r *Record) *Manifest {
	m := &Manifest{}
	for _, name := range d.FieldOrder {
		spec := d.Fields[name]
		if spec.Keygen == nil {
			continue
		}
		c := spec.Keygen(name, r.Fields)
		switch spec.Family {
		case FamilySet:
			for _, t := range c.SetTerms {
				m.SetKeys = append(m.SetKeys, FieldTerm{Field: name, Term: t})
			}
		case FamilyScored:
			if c.HasScore {
				m.ScoredKeys = append(m.ScoredKeys, name)
			}
		case FamilyPrefix:
			for _, t := range c.SetTerms {
				m.PrefixKeys = append(m.PrefixKeys, FieldTerm{Field: name, Term: t})
			}
		case FamilySuffix:
			for _, t := range c.SetTerms {
				m.SuffixKeys = append(m.SuffixKeys, FieldTerm{Field: name, Term: t})
			}
		case FamilyGeo:
			if c.HasGeo {
				m.GeoNames = append(m.GeoNames, name)
			}
		}
	}
	return m
}

// ScanScore is a convenience wrapper around codec.PrefixScore for
// callers (the writer, the scanner) that need to turn a manifest's scan
// term back into the score it was stored under.
func ScanScore(term string, next bool) float64 {
	return codec.PrefixScore(term, next)
}
