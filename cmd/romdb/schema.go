package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/romkit/rom/internal/keygen"
	"github.com/romkit/rom/internal/model"
)

// schemaFile is the minimal on-disk descriptor shape the CLI reads to
// build a *model.Descriptor. The record-type declaration syntax proper
// is explicitly out of core scope (spec.md §1); this is the thin JSON
// convenience cmd/romdb needs so the same binary can drive any
// namespace without a compiled-in schema, grounded on spec.md §9's
// "dynamic keygens... represented as an enum of built-ins... with a
// stable registered name" — every field here names a built-in by that
// registered string.
type schemaFile struct {
	Namespace string        `json:"namespace"`
	PKField   string        `json:"pk_field"`
	Fields    []schemaField `json:"fields"`
	Unique    []schemaUnique `json:"unique"`
}

type schemaField struct {
	Name     string `json:"name"`
	Kind     string `json:"kind"`
	Unique   bool   `json:"unique"`
	Required bool   `json:"required"`
	Keygen   string `json:"keygen"` // e.g. NUMERIC, FULL_TEXT, SIMPLE, PREFIX...
	// GeoLon/GeoLat name the two fields a "GEO" keygen composes; only
	// meaningful when Keygen == "GEO".
	GeoLon string `json:"geo_lon"`
	GeoLat string `json:"geo_lat"`
	// Prefix/Suffix add a prefix-scan/suffix-scan entry for this field
	// on top of whatever Keygen already does, so a single field can
	// support startswith and endswith alongside its primary index.
	Prefix bool `json:"prefix"`
	Suffix bool `json:"suffix"`
}

type schemaUnique struct {
	Name   string   `json:"name"`
	Fields []string `json:"fields"`
}

func loadSchema(path string) (*model.Descriptor, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("romdb: read schema: %w", err)
	}
	var sf schemaFile
	if err := json.Unmarshal(b, &sf); err != nil {
		return nil, fmt.Errorf("romdb: parse schema: %w", err)
	}
	if sf.PKField == "" {
		sf.PKField = "id"
	}

	reg := keygen.NewRegistry()
	d := model.NewDescriptor(sf.Namespace, sf.PKField)
	for _, f := range sf.Fields {
		kind := model.Kind(f.Kind)
		spec := &model.FieldSpec{
			Name:     f.Name,
			Kind:     kind,
			Unique:   f.Unique,
			Required: f.Required,
			Prefixed: f.Prefix,
			Suffixed: f.Suffix,
		}
		if f.Keygen != "" {
			spec.KeygenName = f.Keygen
			if f.Keygen == "GEO" {
				spec.Keygen = keygen.Geo(f.GeoLon, f.GeoLat)
				spec.Family = model.FamilyGeo
				spec.GeoLon = f.GeoLon
				spec.GeoLat = f.GeoLat
			} else {
				gen, ok := reg.Get(f.Keygen)
				if !ok {
					return nil, fmt.Errorf("romdb: field %q: unknown keygen %q", f.Name, f.Keygen)
				}
				family, ok := keygen.Family(f.Keygen)
				if !ok {
					return nil, fmt.Errorf("romdb: field %q: keygen %q has no known index family", f.Name, f.Keygen)
				}
				spec.Keygen = gen
				spec.Family = family
				// Each keygen feeds only the one family keygen.Family
				// names for it; FULL_TEXT gets its token set and no
				// prefix index.
			}
		}
		d.AddField(spec)
	}
	if _, ok := d.Fields[sf.PKField]; !ok {
		d.AddField(&model.FieldSpec{Name: sf.PKField, Kind: model.KindPrimaryKey})
	}
	for _, u := range sf.Unique {
		d.AddUnique(u.Name, u.Fields...)
	}
	return d, nil
}
