// Package planner implements the query planner (C5): given an ordered
// list of filter atoms, it estimates the work each atom costs against
// the current index state and reorders them cheapest-first so the
// executor intersects the smallest candidate sets first.
package planner

import (
	"context"
	"fmt"
	"sort"

	"github.com/romkit/rom/internal/indexstore"
)

// AtomKind identifies which filter shape an Atom represents.
type AtomKind string

const (
	Term    AtomKind = "term"
	OrTerms AtomKind = "or_terms"
	Range   AtomKind = "range"
	Prefix  AtomKind = "prefix"
	Suffix  AtomKind = "suffix"
	Pattern AtomKind = "pattern"
	Geo     AtomKind = "geo"
)

// Atom is one filter condition in a query.
type Atom struct {
	Kind  AtomKind
	Field string
	Terms []string // Term (len 1), OrTerms

	Lo, Hi         *float64 // Range
	PrefixOrSuffix string   // Prefix, Suffix: the literal value
	Glob           string   // Pattern: the glob to match within the prefix window

	GeoName   string // Geo
	Lon, Lat  float64
	Radius    float64
	Unit      string
	GeoCount  int
}

// Estimate is the cost probe result for one atom: Work is an absolute
// estimate of candidate-set size; Negative marks a selective range scan
// the executor should satisfy via sub-range extraction instead of
// union-then-prune.
type Estimate struct {
	Atom     Atom
	Work     int64
	Negative bool
}

// EstimateWork runs the cost-estimate probe (spec §4.5 step 1) for one
// atom against idx.
func EstimateWork(ctx context.Context, idx *indexstore.Store, atom Atom) (Estimate, error) {
	switch atom.Kind {
	case Term:
		n, err := idx.Card(ctx, indexstore.KindSet, atom.Field, atom.Terms[0])
		return Estimate{Atom: atom, Work: n}, err

	case OrTerms:
		var total int64
		for _, term := range atom.Terms {
			n, err := idx.Card(ctx, indexstore.KindSet, atom.Field, term)
			if err != nil {
				return Estimate{}, err
			}
			total += n
		}
		return Estimate{Atom: atom, Work: total}, nil

	case Range:
		whole, err := idx.Card(ctx, indexstore.KindScored, atom.Field, "")
		if err != nil {
			return Estimate{}, err
		}
		ids, err := idx.RangeScored(ctx, atom.Field, atom.Lo, atom.Hi)
		if err != nil {
			return Estimate{}, err
		}
		size := int64(len(ids))
		if whole > 0 && size*3 <= whole*2 {
			return Estimate{Atom: atom, Work: -size, Negative: true}, nil
		}
		return Estimate{Atom: atom, Work: size}, nil

	case Prefix, Suffix, Pattern:
		forSuffix := atom.Kind == Suffix
		value := atom.PrefixOrSuffix
		ids, err := idx.PrefixScan(ctx, atom.Field, value, "", forSuffix, 0)
		if err != nil {
			return Estimate{}, err
		}
		return Estimate{Atom: atom, Work: int64(len(ids))}, nil

	case Geo:
		n, err := idx.Card(ctx, indexstore.KindGeo, atom.GeoName, "")
		if err != nil {
			return Estimate{}, err
		}
		work := n
		if atom.GeoCount > 0 && int64(atom.GeoCount) < work {
			work = int64(atom.GeoCount)
		}
		return Estimate{Atom: atom, Work: work}, nil

	default:
		return Estimate{}, fmt.Errorf("planner: unknown atom kind %q", atom.Kind)
	}
}

// Plan is the ordered, cost-estimated atom list the executor consumes.
type Plan struct {
	Estimates []Estimate
}

// Build estimates every atom's cost and reorders them ascending by
// absolute work, preserving a leading negative-estimate marker (spec
// §4.5 steps 1-2).
func Build(ctx context.Context, idx *indexstore.Store, atoms []Atom) (Plan, error) {
	estimates := make([]Estimate, 0, len(atoms))
	for _, atom := range atoms {
		e, err := EstimateWork(ctx, idx, atom)
		if err != nil {
			return Plan{}, err
		}
		estimates = append(estimates, e)
	}
	sort.SliceStable(estimates, func(i, j int) bool {
		return abs(estimates[i].Work) < abs(estimates[j].Work)
	})
	return Plan{Estimates: estimates}, nil
}

func abs(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}
