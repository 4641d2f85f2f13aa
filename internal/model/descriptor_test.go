package model

import "testing"

func sampleDescriptor() *Descriptor {
	d := NewDescriptor("users", "id")
	d.AddField(&FieldSpec{Name: "id", Kind: KindPrimaryKey})
	d.AddField(&FieldSpec{Name: "email", Kind: KindText, Unique: true, Family: FamilySet,
		Keygen: func(field string, rec map[string]Value) Contribution {
			v := rec[field]
			return Contribution{SetTerms: []string{v.Text}}
		}})
	d.AddField(&FieldSpec{Name: "age", Kind: KindInt, Family: FamilyScored,
		Keygen: func(field string, rec map[string]Value) Contribution {
			f, _ := rec[field].AsFloat()
			return Contribution{Score: f, HasScore: true}
		}})
	return d
}

func TestDescriptorValidate(t *testing.T) {
	d := sampleDescriptor()
	if err := d.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestDescriptorValidateMissingPK(t *testing.T) {
	d := NewDescriptor("users", "id")
	if err := d.Validate(); err == nil {
		t.Error("expected error for undeclared primary key")
	}
}

func TestDescriptorValidateDuplicateUnique(t *testing.T) {
	d := sampleDescriptor()
	d.AddUnique("u1", "email")
	d.AddUnique("u1", "email")
	if err := d.Validate(); err == nil {
		t.Error("expected error for duplicate unique constraint name")
	}
}

func TestDescriptorValidateUnknownUniqueField(t *testing.T) {
	d := sampleDescriptor()
	d.AddUnique("u1", "nope")
	if err := d.Validate(); err == nil {
		t.Error("expected error for unique constraint referencing undeclared field")
	}
}

func TestUniqueFieldNames(t *testing.T) {
	d := sampleDescriptor()
	names := d.UniqueFieldNames()
	if len(names) != 1 || names[0] != "email" {
		t.Errorf("UniqueFieldNames() = %v, want [email]", names)
	}
}

func TestBuildManifest(t *testing.T) {
	d := sampleDescriptor()
	rec := &Record{ID: 1, Fields: map[string]Value{
		"id":    PrimaryKey(1),
		"email": Text("a@example.com"),
		"age":   Int(30),
	}}
	m := BuildManifest(d, rec)
	if len(m.SetKeys) != 1 || m.SetKeys[0] != (FieldTerm{Field: "email", Term: "a@example.com"}) {
		t.Errorf("SetKeys = %v", m.SetKeys)
	}
	if len(m.ScoredKeys) != 1 || m.ScoredKeys[0] != "age" {
		t.Errorf("ScoredKeys = %v", m.ScoredKeys)
	}
	if !m.Empty() && len(m.SetKeys)+len(m.ScoredKeys) == 0 {
		t.Error("Empty() inconsistent with contents")
	}
}

func TestManifestMarshalRoundTrip(t *testing.T) {
	m := &Manifest{
		SetKeys:    []FieldTerm{{Field: "email", Term: "a@example.com"}},
		ScoredKeys: []string{"age"},
		GeoNames:   []string{"location"},
	}
	s, err := m.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	got, err := UnmarshalManifest(s)
	if err != nil {
		t.Fatalf("UnmarshalManifest: %v", err)
	}
	if len(got.SetKeys) != 1 || got.SetKeys[0].Term != "a@example.com" {
		t.Errorf("round trip SetKeys = %v", got.SetKeys)
	}
	if len(got.ScoredKeys) != 1 || got.ScoredKeys[0] != "age" {
		t.Errorf("round trip ScoredKeys = %v", got.ScoredKeys)
	}
}

func TestManifestUnmarshalEmptyString(t *testing.T) {
	m, err := UnmarshalManifest("")
	if err != nil {
		t.Fatalf("UnmarshalManifest(\"\"): %v", err)
	}
	if !m.Empty() {
		t.Error("expected empty manifest for empty string input")
	}
}

func TestManifestDiff(t *testing.T) {
	old := &Manifest{
		SetKeys:    []FieldTerm{{Field: "email", Term: "old@example.com"}},
		ScoredKeys: []string{"age"},
	}
	next := &Manifest{
		SetKeys:    []FieldTerm{{Field: "email", Term: "new@example.com"}},
		ScoredKeys: []string{"age"},
	}
	removed := old.Diff(next)
	if len(removed.SetKeys) != 1 || removed.SetKeys[0].Term != "old@example.com" {
		t.Errorf("Diff SetKeys = %v", removed.SetKeys)
	}
	if len(removed.ScoredKeys) != 0 {
		t.Errorf("unchanged scored key should not appear in diff, got %v", removed.ScoredKeys)
	}
}
