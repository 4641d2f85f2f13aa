package executor

import (
	"context"
	"testing"

	"github.com/romkit/rom/internal/indexstore"
	"github.com/romkit/rom/internal/planner"
	"github.com/romkit/rom/internal/storetest"
	"github.com/romkit/rom/pkg/store"
)

func seedScoredField(ctx context.Context, t *testing.T, backend store.Backend, ns, field string, scores map[string]float64) {
	t.Helper()
	key := ns + ":" + field + ":idx"
	for id, score := range scores {
		if err := backend.ZAdd(ctx, key, store.ZMember{Member: id, Score: score}); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
}

func TestRunRangeSelectiveTakesSubrangePath(t *testing.T) {
	ctx := context.Background()
	backend := storetest.New()
	idx := indexstore.New("widgets", backend)
	exec := New("widgets", idx, backend)

	seedScoredField(ctx, t, backend, "widgets", "price", map[string]float64{
		"1": 10, "2": 20, "3": 30, "4": 40, "5": 50,
	})

	lo, hi := 15.0, 25.0
	atoms := []planner.Atom{{Kind: planner.Range, Field: "price", Lo: &lo, Hi: &hi}}
	plan, err := planner.Build(ctx, idx, atoms)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !plan.Estimates[0].Negative {
		t.Fatalf("expected the planner to mark a 1-of-5 range selective")
	}

	res, err := exec.Run(ctx, plan, Options{Count: -1})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.IDs) != 1 || res.IDs[0] != "2" {
		t.Errorf("Run(selective range) = %v, want [2]", res.IDs)
	}
}

func TestRunRangeWideMatchTakesUnionPath(t *testing.T) {
	ctx := context.Background()
	backend := storetest.New()
	idx := indexstore.New("widgets", backend)
	exec := New("widgets", idx, backend)

	seedScoredField(ctx, t, backend, "widgets", "price", map[string]float64{
		"1": 10, "2": 20, "3": 30, "4": 40, "5": 50,
	})

	lo := 5.0
	atoms := []planner.Atom{{Kind: planner.Range, Field: "price", Lo: &lo}}
	plan, err := planner.Build(ctx, idx, atoms)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if plan.Estimates[0].Negative {
		t.Fatalf("expected the planner not to mark a 5-of-5 range selective")
	}

	res, err := exec.Run(ctx, plan, Options{Count: -1})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.IDs) != 5 {
		t.Errorf("Run(wide range) = %v, want all 5", res.IDs)
	}
}

// TestRunRangeSelectiveWithTermIntersectsCorrectly exercises seedRange's
// negative-path through intersect rather than seed, the branch that
// narrows an already-seeded candidate set by a selective range atom.
func TestRunRangeSelectiveWithTermIntersectsCorrectly(t *testing.T) {
	ctx := context.Background()
	backend := storetest.New()
	idx := indexstore.New("widgets", backend)
	exec := New("widgets", idx, backend)

	seedScoredField(ctx, t, backend, "widgets", "price", map[string]float64{
		"1": 10, "2": 20, "3": 30, "4": 40, "5": 50,
	})
	if err := backend.SAdd(ctx, "widgets:color:red:idx", "2"); err != nil {
		t.Fatalf("SAdd: %v", err)
	}

	// The term atom (1 candidate) and the range atom (1 match) have the
	// same estimated work, so the stable sort keeps the term atom first
	// and the range is intersected rather than seeded, exercising
	// intersect's Range branch instead of seed's.
	lo, hi := 15.0, 25.0
	atoms := []planner.Atom{
		{Kind: planner.Term, Field: "color", Terms: []string{"red"}},
		{Kind: planner.Range, Field: "price", Lo: &lo, Hi: &hi},
	}
	plan, err := planner.Build(ctx, idx, atoms)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if plan.Estimates[0].Atom.Kind != planner.Term || plan.Estimates[1].Atom.Kind != planner.Range {
		t.Fatalf("expected term atom seeded first and range intersected second, got %+v", plan.Estimates)
	}
	if !plan.Estimates[1].Negative {
		t.Fatalf("expected the range atom to still be marked selective once intersected")
	}

	res, err := exec.Run(ctx, plan, Options{Count: -1})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.IDs) != 1 || res.IDs[0] != "2" {
		t.Errorf("Run(term & selective range) = %v, want [2]", res.IDs)
	}
}
