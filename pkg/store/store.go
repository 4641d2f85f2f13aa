// Package store defines the backing-store contract the core engine
// depends on, and a go-redis-backed implementation of it. Every
// operation the engine uses (string GET/SET/INCR, hash, set,
// sorted-set, geo, key, atomic server-side scripting) is represented as
// one method here. There is no pipelining method: every Backend call is
// its own round trip to the store. Production
// code talks to a *RedisBackend, tests talk to an
// internal/storetest.FakeBackend, and neither internal/writer,
// internal/indexstore, nor internal/entitylock know which one they
// have. Prefix/suffix/pattern scanning (RunScan) has no separate
// package of its own: internal/indexstore.Store.PrefixScan is its only
// caller, so the block-walking logic lives there instead of behind a
// redundant internal/scanner seam.
package store

import (
	"context"
	"time"
)

// ZMember is one member/score pair for a ZADD call.
type ZMember struct {
	Member string
	Score  float64
}

// ScoredID is one id/score pair returned from a sorted-set range read.
type ScoredID struct {
	Member string
	Score  float64
}

// GeoPoint is one member's coordinates for a GEOADD call.
type GeoPoint struct {
	Member    string
	Lon, Lat  float64
}

// GeoResult is one member returned from a geo radius query, with its
// distance from the query center in meters.
type GeoResult struct {
	Member   string
	Distance float64
}

// WriteRequest carries every argument the atomic write script's
// contract (spec §4.4) takes, already encoded to the string/float forms
// the backing store expects.
type WriteRequest struct {
	Namespace string
	ID        int64
	IsDelete  bool

	UniqueNew     map[string]string // field -> new encoded value
	UniqueDeleted map[string]string // field -> old encoded value

	FieldDeletions []string
	FieldData      map[string]string

	// TouchedFields names every field this write is fully authoritative
	// for: SetTerms/ScoredTerms/PrefixTerms/SuffixTerms/GeoTerms must
	// carry that field's *complete* current contribution (possibly
	// none, if the field no longer indexes to anything). Any manifest
	// entry for a field absent from TouchedFields is left exactly as
	// the script finds it in the record's existing manifest — the
	// caller is never asked to vouch for a field it isn't writing this
	// call, since doing so would require a snapshot of that field's
	// value that could go stale the instant a concurrent write commits.
	TouchedFields []string

	// SetTerms, ScoredTerms, PrefixTerms, SuffixTerms, and GeoTerms carry
	// the index entries TouchedFields' current field values produce
	// (empty for a delete, which implicitly touches every field). The
	// write script reads the record's existing manifest itself and
	// diffs the touched portion of it against these to figure out what
	// to remove; entries for untouched fields are carried forward from
	// that same fresh read instead of being recomputed from a value the
	// Go layer captured before the script dispatched.
	SetTerms    []FieldTerm
	ScoredTerms []FieldScore
	PrefixTerms []FieldTerm
	SuffixTerms []FieldTerm
	GeoTerms    []FieldGeo

	// OldValuesForRaceCheck maps field -> the encoded value the caller
	// last observed; skipped entirely when IsDelete is true.
	OldValuesForRaceCheck map[string]string
}

// FieldTerm pairs a field name with a plain term.
type FieldTerm struct {
	Field string
	Term  string
}

// FieldScore pairs a field name with a numeric score.
type FieldScore struct {
	Field string
	Score float64
}

// FieldGeo pairs a geo field name with the coordinates to store.
type FieldGeo struct {
	Field    string
	Lon, Lat float64
}

// WriteOutcome is the result of running the atomic write script:
// exactly one of Changes, UniqueField, or RaceFields is meaningful.
type WriteOutcome struct {
	Changes     int
	UniqueField string
	RaceFields  []string
}

// Backend is the full backing-store contract the core engine depends
// on.
type Backend interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Incr(ctx context.Context, key string) (int64, error)
	Del(ctx context.Context, keys ...string) (int64, error)
	Exists(ctx context.Context, key string) (bool, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error

	HGet(ctx context.Context, key, field string) (string, bool, error)
	HMGet(ctx context.Context, key string, fields []string) (map[string]string, error)
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HSet(ctx context.Context, key string, fields map[string]string) error
	HDel(ctx context.Context, key string, fields []string) (int64, error)
	HLen(ctx context.Context, key string) (int64, error)

	SAdd(ctx context.Context, key string, members ...string) error
	SRem(ctx context.Context, key string, members ...string) error
	SIsMember(ctx context.Context, key, member string) (bool, error)
	SCard(ctx context.Context, key string) (int64, error)
	SMembers(ctx context.Context, key string) ([]string, error)
	SInterStore(ctx context.Context, dest string, keys ...string) (int64, error)
	SUnionStore(ctx context.Context, dest string, keys ...string) (int64, error)

	ZAdd(ctx context.Context, key string, members ...ZMember) error
	ZRem(ctx context.Context, key string, members ...string) error
	ZCard(ctx context.Context, key string) (int64, error)
	ZRank(ctx context.Context, key, member string) (int64, bool, error)
	ZRangeByScore(ctx context.Context, key string, lo, hi string, offset, count int64) ([]ScoredID, error)
	ZRevRangeByScore(ctx context.Context, key string, hi, lo string, offset, count int64) ([]ScoredID, error)
	ZRemRangeByScore(ctx context.Context, key, lo, hi string) (int64, error)
	ZInterStore(ctx context.Context, dest string, keys []string, weights []float64) (int64, error)
	ZUnionStore(ctx context.Context, dest string, keys []string, weights []float64) (int64, error)
	ZRange(ctx context.Context, key string, start, stop int64) ([]string, error)

	GeoAdd(ctx context.Context, key string, points ...GeoPoint) error
	GeoRadius(ctx context.Context, key string, lon, lat, radiusMeters float64, count int64) ([]GeoResult, error)

	// RunWrite executes the atomic write script (spec §4.4).
	RunWrite(ctx context.Context, req WriteRequest) (WriteOutcome, error)

	// RunScan executes the prefix/suffix/pattern scan script (spec
	// §4.7) over the ZSET at key, between the score window [lo, hi),
	// optionally filtering members' terms by pattern, a Lua pattern
	// already translated from the caller's glob.
	RunScan(ctx context.Context, key string, lo, hi float64, pattern string, limit int) ([]string, error)

	// TryLock and Unlock back internal/entitylock's optional mutual
	// exclusion primitive (spec §5).
	TryLock(ctx context.Context, key, token string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key, token string) (bool, error)
}
