// Package executor implements the query executor (C6): it runs a
// planner.Plan against the backing store by seeding a temporary sorted
// set and intersecting each subsequent atom's candidates into it,
// optionally re-scoring by an order-by field, then either materializes
// the final id list or leaves the temporary set in place (with a TTL)
// for the caller to page through later as a cached result.
package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/romkit/rom/internal/codec"
	"github.com/romkit/rom/internal/indexstore"
	"github.com/romkit/rom/internal/planner"
	"github.com/romkit/rom/pkg/store"
)

// OrderBy names a field to re-score the result by, optionally
// descending (a leading "-" in the caller-facing DSL, already split out
// here as Desc).
type OrderBy struct {
	Field string
	Desc  bool
}

// Options controls how Executor.Run materializes its result.
type Options struct {
	OrderBy *OrderBy
	Offset  int64
	Count   int64 // -1 means "no limit"

	// Cache, if non-nil, requests a cached result: the temporary set is
	// expired after *Cache instead of deleted, and Result.CacheKey names
	// it for the caller to page through with a later GetCached call.
	Cache *time.Duration
}

// Result is what one query execution produces.
type Result struct {
	IDs      []string
	CacheKey string
}

// Executor runs plans against one namespace's indexes.
type Executor struct {
	Namespace string
	Index     *indexstore.Store
	Backend   store.Backend
}

// New returns an Executor bound to namespace.
func New(namespace string, idx *indexstore.Store, backend store.Backend) *Executor {
	return &Executor{Namespace: namespace, Index: idx, Backend: backend}
}

func (e *Executor) tempKey() string {
	return fmt.Sprintf("%s:%s", e.Namespace, uuid.NewString())
}

// Run executes plan and returns the matching ids (or a cache key, if
// opts.Cache is set).
func (e *Executor) Run(ctx context.Context, plan planner.Plan, opts Options) (Result, error) {
	if len(plan.Estimates) == 0 {
		return Result{}, fmt.Errorf("executor: empty plan")
	}

	dest := e.tempKey()
	defer func() {
		if opts.Cache == nil {
			_, _ = e.Backend.Del(ctx, dest)
		}
	}()

	first := plan.Estimates[0]
	if err := e.seed(ctx, dest, first); err != nil {
		return Result{}, err
	}

	for _, est := range plan.Estimates[1:] {
		if err := e.intersect(ctx, dest, est); err != nil {
			return Result{}, err
		}
	}

	if opts.OrderBy != nil {
		weight := 1.0
		if opts.OrderBy.Desc {
			weight = -1.0
		}
		orderKey := e.scoredKey(opts.OrderBy.Field)
		if _, err := e.Backend.ZInterStore(ctx, dest, []string{dest, orderKey}, []float64{0, weight}); err != nil {
			return Result{}, err
		}
	}

	if opts.Cache != nil {
		if err := e.Backend.Expire(ctx, dest, *opts.Cache); err != nil {
			return Result{}, err
		}
		return Result{CacheKey: dest}, nil
	}

	return e.materialize(ctx, dest, opts.Offset, opts.Count)
}

// GetCached pages through a previously cached result set by key.
func (e *Executor) GetCached(ctx context.Context, cacheKey string, offset, count int64) ([]string, error) {
	stop := offset + count - 1
	if count < 0 {
		stop = -1
	}
	return e.Backend.ZRange(ctx, cacheKey, offset, stop)
}

func (e *Executor) materialize(ctx context.Context, dest string, offset, count int64) (Result, error) {
	stop := offset + count - 1
	if count < 0 {
		stop = -1
	}
	ids, err := e.Backend.ZRange(ctx, dest, offset, stop)
	if err != nil {
		return Result{}, err
	}
	return Result{IDs: ids}, nil
}

func (e *Executor) scoredKey(field string) string { return fmt.Sprintf("%s:%s:idx", e.Namespace, field) }
func (e *Executor) setKey(field, term string) string {
	return fmt.Sprintf("%s:%s:%s:idx", e.Namespace, field, term)
}

func (e *Executor) seed(ctx context.Context, dest string, est planner.Estimate) error {
	atom := est.Atom
	switch atom.Kind {
	case planner.Term:
		return e.seedFromSet(ctx, dest, atom)

	case planner.OrTerms:
		keys := make([]string, len(atom.Terms))
		for i, term := range atom.Terms {
			keys[i] = e.setKey(atom.Field, term)
		}
		_, err := e.Backend.SUnionStore(ctx, dest+":scratch", keys...)
		if err != nil {
			return err
		}
		members, err := e.Backend.SMembers(ctx, dest+":scratch")
		if err != nil {
			return err
		}
		for _, m := range members {
			if err := e.Backend.ZAdd(ctx, dest, store.ZMember{Member: m, Score: 0}); err != nil {
				return err
			}
		}
		_, err = e.Backend.Del(ctx, dest+":scratch")
		return err

	case planner.Range:
		return e.seedRange(ctx, dest, atom, est.Negative)

	case planner.Prefix, planner.Suffix, planner.Pattern:
		return e.seedScan(ctx, dest, atom)

	case planner.Geo:
		return e.seedGeo(ctx, dest, atom)

	default:
		return fmt.Errorf("executor: unknown atom kind %q", atom.Kind)
	}
}

func (e *Executor) seedFromSet(ctx context.Context, dest string, atom planner.Atom) error {
	ids, err := e.Backend.SMembers(ctx, e.setKey(atom.Field, atom.Terms[0]))
	if err != nil {
		return err
	}
	for _, id := range ids {
		if err := e.Backend.ZAdd(ctx, dest, store.ZMember{Member: id, Score: 0}); err != nil {
			return err
		}
	}
	return nil
}

// seedRange populates dest with a range atom's candidates. When the
// planner marked the range as selective (negative, few matches against
// a large index), it pulls exactly the matching sub-range directly out
// of the scored index in one ZRANGEBYSCORE call; otherwise it copies
// the whole index into dest and trims, cheaper when most of the index
// is going to end up in the result anyway.
func (e *Executor) seedRange(ctx context.Context, dest string, atom planner.Atom, negative bool) error {
	if negative {
		return e.seedRangeSubrange(ctx, dest, atom)
	}
	_, err := e.Backend.ZUnionStore(ctx, dest, []string{e.scoredKey(atom.Field)}, nil)
	if err != nil {
		return err
	}
	if atom.Lo != nil {
		if _, err := e.Backend.ZRemRangeByScore(ctx, dest, "-inf", codec.ToScoreString(*atom.Lo, true)); err != nil {
			return err
		}
	}
	if atom.Hi != nil {
		if _, err := e.Backend.ZRemRangeByScore(ctx, dest, codec.ToScoreString(*atom.Hi, true), "+inf"); err != nil {
			return err
		}
	}
	return nil
}

func (e *Executor) seedRangeSubrange(ctx context.Context, dest string, atom planner.Atom) error {
	loStr, hiStr := "-inf", "+inf"
	if atom.Lo != nil {
		loStr = codec.ToScoreString(*atom.Lo, false)
	}
	if atom.Hi != nil {
		hiStr = codec.ToScoreString(*atom.Hi, false)
	}
	res, err := e.Backend.ZRangeByScore(ctx, e.scoredKey(atom.Field), loStr, hiStr, 0, -1)
	if err != nil {
		return err
	}
	for _, sid := range res {
		if err := e.Backend.ZAdd(ctx, dest, store.ZMember{Member: sid.Member, Score: sid.Score}); err != nil {
			return err
		}
	}
	return nil
}

func (e *Executor) seedScan(ctx context.Context, dest string, atom planner.Atom) error {
	forSuffix := atom.Kind == planner.Suffix
	value := atom.PrefixOrSuffix
	if atom.Kind == planner.Pattern {
		value = literalPrefix(atom.Glob)
	}
	ids, err := e.Index.PrefixScan(ctx, atom.Field, value, globForPattern(atom), forSuffix, 0)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if err := e.Backend.ZAdd(ctx, dest, store.ZMember{Member: id, Score: 0}); err != nil {
			return err
		}
	}
	return nil
}

func globForPattern(atom planner.Atom) string {
	if atom.Kind == planner.Pattern {
		return atom.Glob
	}
	return ""
}

// literalPrefix extracts the literal leading bytes of a glob up to the
// first wildcard (? * + !), used to seed the scan's score window; a
// wildcard at position 0 means the whole index must be scanned.
func literalPrefix(glob string) string {
	for i := 0; i < len(glob); i++ {
		switch glob[i] {
		case '?', '*', '+', '!':
			return glob[:i]
		}
	}
	return glob
}

func (e *Executor) seedGeo(ctx context.Context, dest string, atom planner.Atom) error {
	results, err := e.Index.GeoWithin(ctx, atom.GeoName, atom.Lon, atom.Lat, atom.Radius, atom.Unit, atom.GeoCount)
	if err != nil {
		return err
	}
	for _, r := range results {
		if err := e.Backend.ZAdd(ctx, dest, store.ZMember{Member: r.Member, Score: r.Distance}); err != nil {
			return err
		}
	}
	return nil
}

func (e *Executor) intersect(ctx context.Context, dest string, est planner.Estimate) error {
	atom := est.Atom
	switch atom.Kind {
	case planner.Term:
		// the term index is a plain set, not a sorted set, so it must be
		// staged into a zero-scored scratch zset before it can intersect
		// with dest.
		scratch := dest + ":scratch"
		if err := e.seedFromSet(ctx, scratch, atom); err != nil {
			return err
		}
		_, err := e.Backend.ZInterStore(ctx, dest, []string{dest, scratch}, []float64{1, 0})
		_, _ = e.Backend.Del(ctx, scratch)
		return err

	case planner.Range:
		scratch := dest + ":scratch"
		if err := e.seedRange(ctx, scratch, atom, est.Negative); err != nil {
			return err
		}
		_, err := e.Backend.ZInterStore(ctx, dest, []string{dest, scratch}, []float64{1, 1})
		_, _ = e.Backend.Del(ctx, scratch)
		return err

	case planner.Prefix, planner.Suffix, planner.Pattern:
		scratch := dest + ":scratch"
		if err := e.seedScan(ctx, scratch, atom); err != nil {
			return err
		}
		_, err := e.Backend.ZInterStore(ctx, dest, []string{dest, scratch}, []float64{1, 0})
		_, _ = e.Backend.Del(ctx, scratch)
		return err

	case planner.OrTerms:
		scratch := dest + ":scratch"
		if err := e.seed(ctx, scratch, est); err != nil {
			return err
		}
		_, err := e.Backend.ZInterStore(ctx, dest, []string{dest, scratch}, []float64{1, 0})
		_, _ = e.Backend.Del(ctx, scratch)
		return err

	case planner.Geo:
		scratch := dest + ":scratch"
		if err := e.seedGeo(ctx, scratch, atom); err != nil {
			return err
		}
		_, err := e.Backend.ZInterStore(ctx, dest, []string{dest, scratch}, []float64{1, 0})
		_, _ = e.Backend.Del(ctx, scratch)
		return err

	default:
		return fmt.Errorf("executor: unknown atom kind %q", atom.Kind)
	}
}
