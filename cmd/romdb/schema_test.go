package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/romkit/rom/internal/model"
)

func writeSchema(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "schema.json")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write schema: %v", err)
	}
	return path
}

func TestLoadSchemaBuildsDescriptor(t *testing.T) {
	path := writeSchema(t, `{
		"namespace": "widgets",
		"pk_field": "id",
		"fields": [
			{"name": "sku", "kind": "text", "unique": true, "keygen": "IDENTITY"},
			{"name": "price", "kind": "float", "keygen": "NUMERIC"}
		],
		"unique": [{"name": "sku", "fields": ["sku"]}]
	}`)

	d, err := loadSchema(path)
	if err != nil {
		t.Fatalf("loadSchema: %v", err)
	}
	if d.Namespace != "widgets" || d.PKField != "id" {
		t.Errorf("namespace/pk = %s/%s", d.Namespace, d.PKField)
	}
	if _, ok := d.Fields["id"]; !ok {
		t.Error("expected auto-added primary key field")
	}
	sku, ok := d.Fields["sku"]
	if !ok || sku.Family != model.FamilySet {
		t.Errorf("sku field = %+v, ok=%v", sku, ok)
	}
	if len(d.UniqueFieldNames()) == 0 {
		t.Error("expected at least one unique constraint")
	}
	if err := d.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoadSchemaRejectsUnknownKeygen(t *testing.T) {
	path := writeSchema(t, `{
		"namespace": "widgets",
		"fields": [{"name": "sku", "kind": "text", "keygen": "NOT_A_KEYGEN"}]
	}`)
	if _, err := loadSchema(path); err == nil {
		t.Error("expected error for unknown keygen")
	}
}

func TestLoadSchemaPrefixSuffixFlags(t *testing.T) {
	path := writeSchema(t, `{
		"namespace": "widgets",
		"fields": [
			{"name": "email", "kind": "text", "keygen": "IDENTITY", "prefix": true, "suffix": true}
		]
	}`)
	d, err := loadSchema(path)
	if err != nil {
		t.Fatalf("loadSchema: %v", err)
	}
	email, ok := d.Fields["email"]
	if !ok || !email.Prefixed || !email.Suffixed {
		t.Errorf("email field = %+v, ok=%v, want Prefixed and Suffixed set", email, ok)
	}
	if email.Family != model.FamilySet {
		t.Errorf("email family = %v, want unchanged FamilySet from its IDENTITY keygen", email.Family)
	}
}

func TestLoadSchemaGeoComposite(t *testing.T) {
	path := writeSchema(t, `{
		"namespace": "places",
		"fields": [
			{"name": "lon", "kind": "float"},
			{"name": "lat", "kind": "float"},
			{"name": "loc", "kind": "text", "keygen": "GEO", "geo_lon": "lon", "geo_lat": "lat"}
		]
	}`)
	d, err := loadSchema(path)
	if err != nil {
		t.Fatalf("loadSchema: %v", err)
	}
	loc, ok := d.Fields["loc"]
	if !ok || loc.Family != model.FamilyGeo || loc.Keygen == nil {
		t.Errorf("loc field = %+v, ok=%v", loc, ok)
	}
}
