package model

import "fmt"

// IndexFamily identifies which of the five index shapes a field's
// key-generator populates. It is intrinsic to the generator (set once
// by the keygen constructor that produced it), not inferred per call,
// so Descriptor and the writer always know how to interpret a
// Contribution without inspecting its contents.
type IndexFamily string

const (
	FamilySet    IndexFamily = "set"    // plain inverted index: BOOLEAN, FULL_TEXT, IDENTITY, IDENTITY_CI
	FamilyScored IndexFamily = "scored" // per-field sorted index: NUMERIC, SIMPLE, SIMPLE_CI, FOREIGN_KEY
	FamilyPrefix IndexFamily = "prefix" // prefix-scan index: case-sensitive/-insensitive prefix matching
	FamilySuffix IndexFamily = "suffix" // suffix-scan index
	FamilyGeo    IndexFamily = "geo"    // geo sorted set
)

// Contribution is what a key-generator returns for one field of one
// record. Only the members matching the field's declared IndexFamily
// are meaningful.
type Contribution struct {
	// SetTerms holds plain inverted-index terms (FamilySet), or the
	// literal prefix/suffix substrings a FamilyPrefix/FamilySuffix
	// generator wants scanned (FULL_TEXT contributes one term per
	// token, to FamilySet only).
	SetTerms []string

	// Score is the value this field contributes to its own per-field
	// sorted index (FamilyScored).
	Score    float64
	HasScore bool

	// Lon/Lat are the coordinates contributed to a geo sorted set
	// (FamilyGeo).
	Lon, Lat float64
	HasGeo   bool
}

// Generator maps one field's value, together with the rest of the
// record (key-generators may be composite, reading more than one
// field), to the index contribution that field makes. It is a plain
// function value so that built-in generators (see the keygen package)
// and caller-supplied custom ones share the same seam; Descriptor never
// looks a generator up by name from global state.
type Generator func(field string, record map[string]Value) Contribution

// FieldSpec declares one field of a record type: its semantic kind,
// whether it participates in a single-field unique constraint, and the
// key-generator (if any) that produces its secondary-index terms. A nil
// Keygen means the field is stored but not searchable.
type FieldSpec struct {
	Name     string
	Kind     Kind
	Required bool
	Unique   bool
	Keygen   Generator
	Family   IndexFamily

	// Prefixed and Suffixed add a prefix-scan and/or suffix-scan entry
	// for this field's own string value on top of whatever Keygen/Family
	// already does, mirroring the original per-column prefix/suffix
	// flags that compose with the column's existing index rather than
	// replacing it — e.g. an IDENTITY-indexed email field can also carry
	// Prefixed and Suffixed so startswith and endswith both work against
	// the same field.
	Prefixed bool
	Suffixed bool

	// KeygenName is the stable registered name of Keygen (see the
	// keygen package's Registry), e.g. "FULL_TEXT" or a caller-chosen
	// custom name. Descriptors built from persisted configuration carry
	// only this name plus Family/Kind; Keygen itself is re-resolved
	// from a Registry at load time rather than serialized, so a
	// descriptor never needs to marshal a function value to be rebuilt
	// later.
	KeygenName string

	// GeoLon and GeoLat name the two plain fields a FamilyGeo field's
	// Keygen reads (keygen.Geo is the only composite, multi-field
	// generator among the built-ins). A write that changes either of
	// them must also recompute this field's manifest entry even though
	// this field's own name never appears in the caller's changed-field
	// set.
	GeoLon, GeoLat string
}

// UniqueConstraint declares a composite unique constraint spanning more
// than one field; the constraint's key is built from all Fields' encoded
// values joined together, so any single-field change that leaves the
// tuple unique is permitted.
type UniqueConstraint struct {
	Name   string
	Fields []string
}

// Descriptor is the explicit, caller-owned schema for one record
// namespace: a replacement for the model registry a process-wide
// singleton class hierarchy would otherwise require. Store, writer, and
// planner all take a *Descriptor as an argument rather than resolving
// one from a global map, so two goroutines can use differently
// configured descriptors for the same namespace in tests without
// cross-talk.
type Descriptor struct {
	Namespace  string
	PKField    string
	Fields     map[string]*FieldSpec
	FieldOrder []string
	Unique     []UniqueConstraint
}

// NewDescriptor returns an empty descriptor for namespace with the given
// primary-key field name (conventionally "id").
func NewDescriptor(namespace, pkField string) *Descriptor {
	return &Descriptor{
		Namespace: namespace,
		PKField:   pkField,
		Fields:    make(map[string]*FieldSpec),
	}
}

// AddField registers spec and preserves declaration order for callers
// that want to iterate fields deterministically (e.g. CLI output).
func (d *Descriptor) AddField(spec *FieldSpec) *Descriptor {
	if _, exists := d.Fields[spec.Name]; !exists {
		d.FieldOrder = append(d.FieldOrder, spec.Name)
	}
	d.Fields[spec.Name] = spec
	return d
}

// AddUnique registers a composite unique constraint.
func (d *Descriptor) AddUnique(name string, fields ...string) *Descriptor {
	d.Unique = append(d.Unique, UniqueConstraint{Name: name, Fields: fields})
	return d
}

// Field looks up a field spec by name.
func (d *Descriptor) Field(name string) (*FieldSpec, bool) {
	f, ok := d.Fields[name]
	return f, ok
}

// Validate checks invariants that must hold before the descriptor is
// used to drive a write: every unique constraint must reference known
// fields, constraint names must be unique, and the primary-key field
// must be declared.
func (d *Descriptor) Validate() error {
	if d.PKField == "" {
		return fmt.Errorf("model: descriptor %s has no primary-key field", d.Namespace)
	}
	if _, ok := d.Fields[d.PKField]; !ok {
		return fmt.Errorf("model: descriptor %s: primary-key field %q not declared", d.Namespace, d.PKField)
	}
	seen := make(map[string]bool, len(d.Unique))
	for _, u := range d.Unique {
		if seen[u.Name] {
			return fmt.Errorf("model: descriptor %s: duplicate unique constraint %q", d.Namespace, u.Name)
		}
		seen[u.Name] = true
		if len(u.Fields) == 0 {
			return fmt.Errorf("model: descriptor %s: unique constraint %q has no fields", d.Namespace, u.Name)
		}
		for _, f := range u.Fields {
			if _, ok := d.Fields[f]; !ok {
				return fmt.Errorf("model: descriptor %s: unique constraint %q references undeclared field %q", d.Namespace, u.Name, f)
			}
		}
	}
	return nil
}

// UniqueFieldNames returns the names of fields whose FieldSpec.Unique is
// set, in declaration order.
func (d *Descriptor) UniqueFieldNames() []string {
	var names []string
	for _, name := range d.FieldOrder {
		if d.Fields[name].Unique {
			names = append(names, name)
		}
	}
	return names
}
