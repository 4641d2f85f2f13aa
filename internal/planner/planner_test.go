package planner

import (
	"context"
	"testing"

	"github.com/romkit/rom/internal/indexstore"
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

func TestEstimateWorkRangeMarksSelectiveRangeNegative(t *testing.T) {
	ctx := context.Background()
	backend := storetest.New()
	idx := indexstore.New("widgets", backend)
	seedScoredField(ctx, t, backend, "widgets", "price", map[string]float64{
		"1": 10, "2": 20, "3": 30, "4": 40, "5": 50,
	})

	lo, hi := 15.0, 25.0
	est, err := EstimateWork(ctx, idx, Atom{Kind: Range, Field: "price", Lo: &lo, Hi: &hi})
	if err != nil {
		t.Fatalf("EstimateWork: %v", err)
	}
	if !est.Negative {
		t.Errorf("expected a 1-of-5 selective range to be marked Negative, got %+v", est)
	}
	if est.Work != -1 {
		t.Errorf("Work = %d, want -1", est.Work)
	}
}

func TestEstimateWorkRangeWideMatchNotNegative(t *testing.T) {
	ctx := context.Background()
	backend := storetest.New()
	idx := indexstore.New("widgets", backend)
	seedScoredField(ctx, t, backend, "widgets", "price", map[string]float64{
		"1": 10, "2": 20, "3": 30, "4": 40, "5": 50,
	})

	lo := 5.0
	est, err := EstimateWork(ctx, idx, Atom{Kind: Range, Field: "price", Lo: &lo})
	if err != nil {
		t.Fatalf("EstimateWork: %v", err)
	}
	if est.Negative {
		t.Errorf("expected a 5-of-5 range to not be marked Negative, got %+v", est)
	}
	if est.Work != 5 {
		t.Errorf("Work = %d, want 5", est.Work)
	}
}
