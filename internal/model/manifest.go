package model

import "encoding/json"

// FieldTerm pairs a field name with one term that field contributed to
// an inverted or prefix/suffix index, enough information to remove that
// exact index entry later without recomputing the key-generator.
type FieldTerm struct {
	Field string `json:"field"`
	Term  string `json:"term"`
}

// Manifest is the per-record index manifest: the single source of truth
// for which index entries a given record participates in, stored
// alongside the record's own fields under a hidden hash sub-key. Every
// index write updates the manifest in the same atomic script that
// updates the indexes themselves (see the writer package), and every
// index cleanup (on delete, or on update when a field's contribution
// changes) walks the manifest rather than recomputing key-generators
// against the old values.
//
// The five slices mirror the five index families a record can appear
// in: plain inverted-index sets, per-field sorted (NUMERIC-style)
// indexes, prefix-scan indexes, suffix-scan indexes, and geo indexes.
// Removing a record's footprint from the index space is exactly: SREM
// each SetKeys entry, ZREM the record id from each ScoredKeys field's
// sorted index and from each PrefixKeys/SuffixKeys field's scan index,
// and ZREM it from each GeoNames geoset.
type Manifest struct {
	SetKeys    []FieldTerm `json:"set_keys"`
	ScoredKeys []string    `json:"scored_keys"`
	PrefixKeys []FieldTerm `json:"prefix_keys"`
	SuffixKeys []FieldTerm `json:"suffix_keys"`
	GeoNames   []string    `json:"geo_names"`
}

// Empty reports whether the manifest carries no index footprint at all,
// meaning the record has no indexed fields.
func (m *Manifest) Empty() bool {
	return len(m.SetKeys) == 0 && len(m.ScoredKeys) == 0 &&
		len(m.PrefixKeys) == 0 && len(m.SuffixKeys) == 0 && len(m.GeoNames) == 0
}

// Marshal renders the manifest to the JSON form stored in the record's
// hidden manifest sub-key.
func (m *Manifest) Marshal() (string, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// UnmarshalManifest parses a manifest previously produced by Marshal. An
// empty string (no prior manifest, e.g. a record written before indexing
// was added to its descriptor) decodes to an empty Manifest rather than
// an error.
func UnmarshalManifest(s string) (*Manifest, error) {
	if s == "" {
		return &Manifest{}, nil
	}
	var m Manifest
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// Diff computes the index entries present in m but absent from next,
// i.e. the entries a write must remove because next no longer produces
// them. Entries present in both manifests are left untouched by the
// caller so that a field's unchanged contribution never causes a
// needless remove-then-add pair on its sorted/scan indexes.
func (m *Manifest) Diff(next *Manifest) *Manifest {
	removed := &Manifest{}
	setNext := toSetKeySet(next.SetKeys)
	for _, ft := range m.SetKeys {
		if !setNext[ft] {
			removed.SetKeys = append(removed.SetKeys, ft)
		}
	}
	scoredNext := toStringSet(next.ScoredKeys)
	for _, f := range m.ScoredKeys {
		if !scoredNext[f] {
			removed.ScoredKeys = append(removed.ScoredKeys, f)
		}
	}
	prefixNext := toSetKeySet(next.PrefixKeys)
	for _, ft := range m.PrefixKeys {
		if !prefixNext[ft] {
			removed.PrefixKeys = append(removed.PrefixKeys, ft)
		}
	}
	suffixNext := toSetKeySet(next.SuffixKeys)
	for _, ft := range m.SuffixKeys {
		if !suffixNext[ft] {
			removed.SuffixKeys = append(removed.SuffixKeys, ft)
		}
	}
	geoNext := toStringSet(next.GeoNames)
	for _, g := range m.GeoNames {
		if !geoNext[g] {
			removed.GeoNames = append(removed.GeoNames, g)
		}
	}
	return removed
}

func toSetKeySet(items []FieldTerm) map[FieldTerm]bool {
	out := make(map[FieldTerm]bool, len(items))
	for _, it := range items {
		out[it] = true
	}
	return out
}

func toStringSet(items []string) map[string]bool {
	out := make(map[string]bool, len(items))
	for _, it := range items {
		out[it] = true
	}
	return out
}
