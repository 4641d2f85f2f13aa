package rom

import (
	"context"
	"time"

	"github.com/romkit/rom/internal/executor"
	"github.com/romkit/rom/internal/planner"
)

// QueryBuilder assembles filter conditions into a planner.Plan and runs
// it through the executor. It deliberately does no cost estimation of
// its own (spec.md §1 places the human-friendly query builder DSL out
// of core scope) — it only translates each call into a planner.Atom and
// lets internal/planner and internal/executor do the real work.
type QueryBuilder struct {
	store         *Store
	atoms         []planner.Atom
	order         *executor.OrderBy
	offset, count int64
	cache         *time.Duration
	err           error
}

// Filter matches records whose field field carries the exact indexed
// term (spec.md §6's "get_by(field=value)" generalized to a query atom).
func (q *QueryBuilder) Filter(field, term string) *QueryBuilder {
	q.atoms = append(q.atoms, planner.Atom{Kind: planner.Term, Field: field, Terms: []string{term}})
	return q
}

// FilterOr matches records whose field field carries any of terms.
func (q *QueryBuilder) FilterOr(field string, terms ...string) *QueryBuilder {
	q.atoms = append(q.atoms, planner.Atom{Kind: planner.OrTerms, Field: field, Terms: terms})
	return q
}

// FilterRange matches records whose numeric index on field falls within
// [lo, hi]; either bound may be nil for unbounded.
func (q *QueryBuilder) FilterRange(field string, lo, hi *float64) *QueryBuilder {
	q.atoms = append(q.atoms, planner.Atom{Kind: planner.Range, Field: field, Lo: lo, Hi: hi})
	return q
}

// StartsWith matches records whose field field's prefix index has the
// given literal prefix.
func (q *QueryBuilder) StartsWith(field, prefix string) *QueryBuilder {
	q.atoms = append(q.atoms, planner.Atom{Kind: planner.Prefix, Field: field, PrefixOrSuffix: prefix})
	return q
}

// EndsWith matches records whose field field's suffix index has the
// given literal suffix.
func (q *QueryBuilder) EndsWith(field, suffix string) *QueryBuilder {
	q.atoms = append(q.atoms, planner.Atom{Kind: planner.Suffix, Field: field, PrefixOrSuffix: suffix})
	return q
}

// Like matches records whose field field's value matches glob (caller
// syntax: '?' zero or one char, '*' any run, '+' at least one char,
// '!' exactly one char). The literal run before the first wildcard seeds the
// scan's score window, so a glob with no leading wildcard is cheap and
// one starting with a wildcard scans the whole index.
func (q *QueryBuilder) Like(field, glob string) *QueryBuilder {
	q.atoms = append(q.atoms, planner.Atom{
		Kind:           planner.Pattern,
		Field:          field,
		Glob:           glob,
		PrefixOrSuffix: literalPrefix(glob),
	})
	return q
}

// Near matches records within radius (in unit: "m", "km", "mi", or
// "ft") of (lon, lat) on the named geo index, nearest first; count, if
// positive, caps how many candidates the geo probe itself returns.
func (q *QueryBuilder) Near(geoName string, lon, lat, radius float64, unit string, count int) *QueryBuilder {
	q.atoms = append(q.atoms, planner.Atom{
		Kind: planner.Geo, GeoName: geoName, Lon: lon, Lat: lat, Radius: radius, Unit: unit, GeoCount: count,
	})
	return q
}

// OrderBy re-scores the result by field's scored index, descending if
// desc is set.
func (q *QueryBuilder) OrderBy(field string, desc bool) *QueryBuilder {
	q.order = &executor.OrderBy{Field: field, Desc: desc}
	return q
}

// Limit bounds the materialized page to [offset, offset+count). A
// negative count means unlimited.
func (q *QueryBuilder) Limit(offset, count int64) *QueryBuilder {
	q.offset, q.count = offset, count
	return q
}

func (q *QueryBuilder) options() executor.Options {
	return executor.Options{OrderBy: q.order, Offset: q.offset, Count: q.count, Cache: q.cache}
}

// All runs the query and returns the matching primary keys.
func (q *QueryBuilder) All(ctx context.Context) ([]int64, error) {
	if q.err != nil {
		return nil, q.err
	}
	plan, err := planner.Build(ctx, q.store.index, q.atoms)
	if err != nil {
		return nil, err
	}
	result, err := q.store.exec.Run(ctx, plan, q.options())
	if err != nil {
		return nil, err
	}
	return parseIDs(result.IDs)
}

// Count runs the query and returns how many records matched.
func (q *QueryBuilder) Count(ctx context.Context) (int64, error) {
	ids, err := q.All(ctx)
	if err != nil {
		return 0, err
	}
	return int64(len(ids)), nil
}

// CachedResult runs the query, leaves its temporary result set in place
// for ttl instead of deleting it, and returns the cache key a later
// Store.PageCached call pages through.
func (q *QueryBuilder) CachedResult(ctx context.Context, ttl time.Duration) (string, error) {
	if q.err != nil {
		return "", q.err
	}
	q.cache = &ttl
	plan, err := planner.Build(ctx, q.store.index, q.atoms)
	if err != nil {
		return "", err
	}
	result, err := q.store.exec.Run(ctx, plan, q.options())
	if err != nil {
		return "", err
	}
	return result.CacheKey, nil
}

// literalPrefix extracts the literal leading bytes of a glob up to the
// first wildcard, mirroring internal/executor's unexported helper of
// the same name so the planner's cost probe and the executor's scan
// both see the same literal window for a Like filter.
func literalPrefix(glob string) string {
	for i := 0; i < len(glob); i++ {
		switch glob[i] {
		case '?', '*', '+', '!':
			return glob[:i]
		}
	}
	return glob
}
