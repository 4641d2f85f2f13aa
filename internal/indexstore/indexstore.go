// Package indexstore implements the read-only index accessors (C3) the
// query planner and executor use to estimate and satisfy filters. Every
// operation here is read-only; all mutation is funneled through the
// writer package.
package indexstore

import (
	"context"
	"fmt"
	"math"

	"github.com/romkit/rom/internal/codec"
	"github.com/romkit/rom/internal/keygen"
	"github.com/romkit/rom/pkg/store"
)

// Kind identifies which of the index families Card and the scan
// operations address.
type Kind string

const (
	KindSet    Kind = "set"
	KindScored Kind = "scored"
	KindPrefix Kind = "prefix"
	KindSuffix Kind = "suffix"
	KindGeo    Kind = "geo"
)

// Store wraps a store.Backend with the typed read operations the
// planner and executor depend on.
type Store struct {
	Namespace string
	Backend   store.Backend
}

// New returns an indexstore.Store bound to namespace.
func New(namespace string, backend store.Backend) *Store {
	return &Store{Namespace: namespace, Backend: backend}
}

func (s *Store) setKey(field, term string) string { return fmt.Sprintf("%s:%s:%s:idx", s.Namespace, field, term) }
func (s *Store) scoredKey(field string) string     { return fmt.Sprintf("%s:%s:idx", s.Namespace, field) }
func (s *Store) prefixKey(field string) string      { return fmt.Sprintf("%s:%s:pre", s.Namespace, field) }
func (s *Store) suffixKey(field string) string      { return fmt.Sprintf("%s:%s:suf", s.Namespace, field) }
func (s *Store) geoKey(name string) string          { return fmt.Sprintf("%s:%s:geo", s.Namespace, name) }

// Card returns the cardinality of one index: the set at field/term for
// KindSet, or the whole sorted set for KindScored/KindPrefix/KindSuffix.
func (s *Store) Card(ctx context.Context, kind Kind, field, term string) (int64, error) {
	switch kind {
	case KindSet:
		return s.Backend.SCard(ctx, s.setKey(field, term))
	case KindScored:
		return s.Backend.ZCard(ctx, s.scoredKey(field))
	case KindPrefix:
		return s.Backend.ZCard(ctx, s.prefixKey(field))
	case KindSuffix:
		return s.Backend.ZCard(ctx, s.suffixKey(field))
	case KindGeo:
		return s.Backend.ZCard(ctx, s.geoKey(field))
	default:
		return 0, fmt.Errorf("indexstore: unknown kind %q", kind)
	}
}

// RangeScored returns the ids whose score on field's sorted index falls
// within [lo, hi] (either bound may be nil for unbounded).
func (s *Store) RangeScored(ctx context.Context, field string, lo, hi *float64) ([]string, error) {
	loStr, hiStr := "-inf", "+inf"
	if lo != nil {
		loStr = codec.ToScoreString(*lo, false)
	}
	if hi != nil {
		hiStr = codec.ToScoreString(*hi, false)
	}
	res, err := s.Backend.ZRangeByScore(ctx, s.scoredKey(field), loStr, hiStr, 0, -1)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(res))
	for i, r := range res {
		ids[i] = r.Member
	}
	return ids, nil
}

// Members returns the ids currently holding term in field's inverted
// index.
func (s *Store) Members(ctx context.Context, field, term string) ([]string, error) {
	return s.Backend.SMembers(ctx, s.setKey(field, term))
}

// PrefixScan returns the ids whose value in field starts with prefix
// (or, for suffix indexes, ends with it — see forSuffix), optionally
// further filtered by glob pattern.
func (s *Store) PrefixScan(ctx context.Context, field, prefix, pattern string, forSuffix bool, limit int) ([]string, error) {
	key := s.prefixKey(field)
	queryPrefix := prefix
	if forSuffix {
		key = s.suffixKey(field)
		queryPrefix = reverse(prefix)
	}
	lo := codec.PrefixScore(queryPrefix, false)
	hi := codec.PrefixScore(queryPrefix, true)
	if queryPrefix == "" {
		// A wildcard at position 0 (or an explicit empty startswith/
		// endswith) has no literal run to bound a score window with, so
		// the whole index must be scanned (spec §4.7's pattern-prefix
		// extraction rule).
		hi = math.Inf(1)
	}
	if limit <= 0 {
		limit = 1_000_000
	}
	return s.Backend.RunScan(ctx, key, lo, hi, globToLuaPattern(pattern), limit)
}

func reverse(s string) string {
	r := []rune(s)
	for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
		r[i], r[j] = r[j], r[i]
	}
	return string(r)
}

// globToLuaPattern converts the caller-facing glob syntax ('?' zero or
// one char, '*' any run, '+' at least one char, '!' exactly one char)
// into the Lua pattern the scan script matches with.
func globToLuaPattern(glob string) string {
	if glob == "" {
		return ""
	}
	var b []byte
	for i := 0; i < len(glob); i++ {
		switch glob[i] {
		case '?':
			b = append(b, '.', '?')
		case '*':
			b = append(b, '.', '-')
		case '+':
			b = append(b, '.', '+')
		case '!':
			b = append(b, '.')
		case '%', '^', '$', '(', ')', '.', '[', ']', '-':
			b = append(b, '%', glob[i])
		default:
			b = append(b, glob[i])
		}
	}
	return string(b)
}

// GeoWithin returns ids within radius (in unit) of (lon, lat) on the
// named geo index, nearest first.
func (s *Store) GeoWithin(ctx context.Context, name string, lon, lat, radius float64, unit string, count int) ([]store.GeoResult, error) {
	perMeter, ok := keygen.GeoUnits[unit]
	if !ok {
		return nil, fmt.Errorf("indexstore: unknown geo unit %q", unit)
	}
	var c int64
	if count > 0 {
		c = int64(count)
	}
	return s.Backend.GeoRadius(ctx, s.geoKey(name), lon, lat, radius*perMeter, c)
}
