package keygen

import (
	"reflect"
	"testing"

	"github.com/romkit/rom/internal/model"
)

func TestNumeric(t *testing.T) {
	rec := map[string]model.Value{"age": model.Int(30)}
	c := Numeric("age", rec)
	if !c.HasScore || c.Score != 30 {
		t.Errorf("Numeric() = %+v", c)
	}
}

func TestBoolean(t *testing.T) {
	rec := map[string]model.Value{"active": model.Bool(true)}
	c := Boolean("active", rec)
	if !reflect.DeepEqual(c.SetTerms, []string{"True"}) {
		t.Errorf("Boolean(true) = %v, want [True]", c.SetTerms)
	}
	rec["active"] = model.Bool(false)
	c = Boolean("active", rec)
	if !reflect.DeepEqual(c.SetTerms, []string{"False"}) {
		t.Errorf("Boolean(false) = %v, want [False]", c.SetTerms)
	}
}

func TestFullText(t *testing.T) {
	rec := map[string]model.Value{"name": model.Text("Hello, World! hello")}
	c := FullText("name", rec)
	want := []string{"hello", "world"}
	if !reflect.DeepEqual(c.SetTerms, want) {
		t.Errorf("FullText() = %v, want %v", c.SetTerms, want)
	}
}

func TestFullTextDedupAndSort(t *testing.T) {
	rec := map[string]model.Value{"name": model.Text("zeta alpha alpha zeta")}
	c := FullText("name", rec)
	want := []string{"alpha", "zeta"}
	if !reflect.DeepEqual(c.SetTerms, want) {
		t.Errorf("FullText() = %v, want %v", c.SetTerms, want)
	}
}

func TestSimpleOrdersLikePrefixScore(t *testing.T) {
	a := Simple("name", map[string]model.Value{"name": model.Text("alice")})
	b := Simple("name", map[string]model.Value{"name": model.Text("bob")})
	if !(a.Score < b.Score) {
		t.Errorf("Simple(alice)=%v not < Simple(bob)=%v", a.Score, b.Score)
	}
}

func TestSimpleCILowercases(t *testing.T) {
	upper := SimpleCI("name", map[string]model.Value{"name": model.Text("ALICE")})
	lower := Simple("name", map[string]model.Value{"name": model.Text("alice")})
	if upper.Score != lower.Score {
		t.Errorf("SimpleCI(ALICE)=%v != Simple(alice)=%v", upper.Score, lower.Score)
	}
}

func TestIdentityAndIdentityCI(t *testing.T) {
	rec := map[string]model.Value{"slug": model.Text("My-Slug")}
	c := Identity("slug", rec)
	if !reflect.DeepEqual(c.SetTerms, []string{"My-Slug"}) {
		t.Errorf("Identity() = %v", c.SetTerms)
	}
	ci := IdentityCI("slug", rec)
	if !reflect.DeepEqual(ci.SetTerms, []string{"my-slug"}) {
		t.Errorf("IdentityCI() = %v", ci.SetTerms)
	}
}

func TestForeignKey(t *testing.T) {
	rec := map[string]model.Value{"author_id": model.ForeignKey(42)}
	c := ForeignKey("author_id", rec)
	if !c.HasScore || c.Score != 42 {
		t.Errorf("ForeignKey() = %+v", c)
	}
}

func TestSuffixReversesValue(t *testing.T) {
	rec := map[string]model.Value{"name": model.Text("hello")}
	c := Suffix("name", rec)
	if !reflect.DeepEqual(c.SetTerms, []string{"olleh"}) {
		t.Errorf("Suffix() = %v, want [olleh]", c.SetTerms)
	}
}

func TestGeo(t *testing.T) {
	gen := Geo("lon", "lat")
	rec := map[string]model.Value{"lon": model.Float(0), "lat": model.Float(50)}
	c := gen("location", rec)
	if !c.HasGeo || c.Lon != 0 || c.Lat != 50 {
		t.Errorf("Geo() = %+v", c)
	}
}

func TestRegistryBuiltins(t *testing.T) {
	r := NewRegistry()
	for _, name := range []string{"NUMERIC", "BOOLEAN", "FULL_TEXT", "SIMPLE", "SIMPLE_CI", "IDENTITY", "IDENTITY_CI", "FOREIGN_KEY", "PREFIX", "SUFFIX"} {
		if _, ok := r.Get(name); !ok {
			t.Errorf("registry missing built-in %q", name)
		}
	}
	if _, ok := r.Get("NOPE"); ok {
		t.Error("registry should not resolve unknown name")
	}
}

func TestRegistryCustom(t *testing.T) {
	r := NewRegistry()
	r.Register("UPPER_ID", Identity)
	if _, ok := r.Get("UPPER_ID"); !ok {
		t.Error("registry should resolve custom-registered name")
	}
}

func TestFamilyLookup(t *testing.T) {
	fam, ok := Family("NUMERIC")
	if !ok || fam != model.FamilyScored {
		t.Errorf("Family(NUMERIC) = %v, %v", fam, ok)
	}
	if _, ok := Family("CUSTOM"); ok {
		t.Error("Family() should not resolve an unregistered custom name")
	}
}
