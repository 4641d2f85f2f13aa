package store

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/romkit/rom/internal/codec"
	"github.com/romkit/rom/pkg/config"
)

//go:embed script/write.lua
var writeScriptSource string

//go:embed script/scan.lua
var scanScriptSource string

// RedisBackend implements Backend against a real go-redis client,
// modeled on the teacher's config-driven client wrapper
// (internal/vector.QdrantClient) adapted from an HTTP API to a Redis
// connection, and on the write-path-serialization shape a reviewed
// zmux store.go uses around its own *redis.Client.
type RedisBackend struct {
	rdb         *redis.Client
	writeScript *redis.Script
	scanScript  *redis.Script
}

// NewRedisBackend dials a Redis connection per cfg and verifies it with
// a PING before returning.
func NewRedisBackend(ctx context.Context, cfg config.RedisConfig) (*RedisBackend, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Username:     cfg.Username,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("store: connect to redis at %s: %w", cfg.Addr, err)
	}
	return &RedisBackend{
		rdb:         rdb,
		writeScript: redis.NewScript(writeScriptSource),
		scanScript:  redis.NewScript(scanScriptSource),
	}, nil
}

// Close releases the underlying connection pool.
func (b *RedisBackend) Close() error {
	return b.rdb.Close()
}

func (b *RedisBackend) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := b.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	return v, err == nil, err
}

func (b *RedisBackend) Set(ctx context.Context, key, value string) error {
	return b.rdb.Set(ctx, key, value, 0).Err()
}

func (b *RedisBackend) Incr(ctx context.Context, key string) (int64, error) {
	return b.rdb.Incr(ctx, key).Result()
}

func (b *RedisBackend) Del(ctx context.Context, keys ...string) (int64, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	return b.rdb.Del(ctx, keys...).Result()
}

func (b *RedisBackend) Exists(ctx context.Context, key string) (bool, error) {
	n, err := b.rdb.Exists(ctx, key).Result()
	return n > 0, err
}

func (b *RedisBackend) Expire(ctx context.Context, key string, ttl time.Duration) error {
	return b.rdb.Expire(ctx, key, ttl).Err()
}

func (b *RedisBackend) HGet(ctx context.Context, key, field string) (string, bool, error) {
	v, err := b.rdb.HGet(ctx, key, field).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	return v, err == nil, err
}

func (b *RedisBackend) HMGet(ctx context.Context, key string, fields []string) (map[string]string, error) {
	if len(fields) == 0 {
		return map[string]string{}, nil
	}
	vals, err := b.rdb.HMGet(ctx, key, fields...).Result()
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(fields))
	for i, f := range fields {
		if s, ok := vals[i].(string); ok {
			out[f] = s
		}
	}
	return out, nil
}

func (b *RedisBackend) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	return b.rdb.HGetAll(ctx, key).Result()
}

func (b *RedisBackend) HSet(ctx context.Context, key string, fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}
	args := make([]interface{}, 0, len(fields)*2)
	for f, v := range fields {
		args = append(args, f, v)
	}
	return b.rdb.HSet(ctx, key, args...).Err()
}

func (b *RedisBackend) HDel(ctx context.Context, key string, fields []string) (int64, error) {
	if len(fields) == 0 {
		return 0, nil
	}
	return b.rdb.HDel(ctx, key, fields...).Result()
}

func (b *RedisBackend) HLen(ctx context.Context, key string) (int64, error) {
	return b.rdb.HLen(ctx, key).Result()
}

func (b *RedisBackend) SAdd(ctx context.Context, key string, members ...string) error {
	if len(members) == 0 {
		return nil
	}
	args := make([]interface{}, len(members))
	for i, m := range members {
		args[i] = m
	}
	return b.rdb.SAdd(ctx, key, args...).Err()
}

func (b *RedisBackend) SRem(ctx context.Context, key string, members ...string) error {
	if len(members) == 0 {
		return nil
	}
	args := make([]interface{}, len(members))
	for i, m := range members {
		args[i] = m
	}
	return b.rdb.SRem(ctx, key, args...).Err()
}

func (b *RedisBackend) SIsMember(ctx context.Context, key, member string) (bool, error) {
	return b.rdb.SIsMember(ctx, key, member).Result()
}

func (b *RedisBackend) SCard(ctx context.Context, key string) (int64, error) {
	return b.rdb.SCard(ctx, key).Result()
}

func (b *RedisBackend) SMembers(ctx context.Context, key string) ([]string, error) {
	return b.rdb.SMembers(ctx, key).Result()
}

func (b *RedisBackend) SInterStore(ctx context.Context, dest string, keys ...string) (int64, error) {
	return b.rdb.SInterStore(ctx, dest, keys...).Result()
}

func (b *RedisBackend) SUnionStore(ctx context.Context, dest string, keys ...string) (int64, error) {
	return b.rdb.SUnionStore(ctx, dest, keys...).Result()
}

func (b *RedisBackend) ZAdd(ctx context.Context, key string, members ...ZMember) error {
	if len(members) == 0 {
		return nil
	}
	zs := make([]redis.Z, len(members))
	for i, m := range members {
		zs[i] = redis.Z{Score: m.Score, Member: m.Member}
	}
	return b.rdb.ZAdd(ctx, key, zs...).Err()
}

func (b *RedisBackend) ZRem(ctx context.Context, key string, members ...string) error {
	if len(members) == 0 {
		return nil
	}
	args := make([]interface{}, len(members))
	for i, m := range members {
		args[i] = m
	}
	return b.rdb.ZRem(ctx, key, args...).Err()
}

func (b *RedisBackend) ZCard(ctx context.Context, key string) (int64, error) {
	return b.rdb.ZCard(ctx, key).Result()
}

func (b *RedisBackend) ZRank(ctx context.Context, key, member string) (int64, bool, error) {
	r, err := b.rdb.ZRank(ctx, key, member).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	return r, err == nil, err
}

func (b *RedisBackend) ZRangeByScore(ctx context.Context, key string, lo, hi string, offset, count int64) ([]ScoredID, error) {
	res, err := b.rdb.ZRangeByScoreWithScores(ctx, key, &redis.ZRangeBy{
		Min: lo, Max: hi, Offset: offset, Count: count,
	}).Result()
	return toScoredIDs(res), err
}

func (b *RedisBackend) ZRevRangeByScore(ctx context.Context, key string, hi, lo string, offset, count int64) ([]ScoredID, error) {
	res, err := b.rdb.ZRevRangeByScoreWithScores(ctx, key, &redis.ZRangeBy{
		Min: lo, Max: hi, Offset: offset, Count: count,
	}).Result()
	return toScoredIDs(res), err
}

func (b *RedisBackend) ZRemRangeByScore(ctx context.Context, key, lo, hi string) (int64, error) {
	return b.rdb.ZRemRangeByScore(ctx, key, lo, hi).Result()
}

func (b *RedisBackend) ZInterStore(ctx context.Context, dest string, keys []string, weights []float64) (int64, error) {
	store := &redis.ZStore{Keys: keys}
	if len(weights) > 0 {
		store.Weights = weights
	}
	return b.rdb.ZInterStore(ctx, dest, store).Result()
}

func (b *RedisBackend) ZUnionStore(ctx context.Context, dest string, keys []string, weights []float64) (int64, error) {
	store := &redis.ZStore{Keys: keys}
	if len(weights) > 0 {
		store.Weights = weights
	}
	return b.rdb.ZUnionStore(ctx, dest, store).Result()
}

func (b *RedisBackend) ZRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	return b.rdb.ZRange(ctx, key, start, stop).Result()
}

func (b *RedisBackend) GeoAdd(ctx context.Context, key string, points ...GeoPoint) error {
	if len(points) == 0 {
		return nil
	}
	locs := make([]*redis.GeoLocation, len(points))
	for i, p := range points {
		locs[i] = &redis.GeoLocation{Name: p.Member, Longitude: p.Lon, Latitude: p.Lat}
	}
	return b.rdb.GeoAdd(ctx, key, locs...).Err()
}

func (b *RedisBackend) GeoRadius(ctx context.Context, key string, lon, lat, radiusMeters float64, count int64) ([]GeoResult, error) {
	q := &redis.GeoRadiusQuery{
		Radius:    radiusMeters,
		Unit:      "m",
		WithDist:  true,
		Count:     int(count),
		Sort:      "ASC",
		StoreDist: "",
	}
	res, err := b.rdb.GeoRadius(ctx, key, lon, lat, q).Result()
	if err != nil {
		return nil, err
	}
	out := make([]GeoResult, len(res))
	for i, r := range res {
		out[i] = GeoResult{Member: r.Name, Distance: r.Dist}
	}
	return out, nil
}

func toScoredIDs(zs []redis.Z) []ScoredID {
	out := make([]ScoredID, len(zs))
	for i, z := range zs {
		member, _ := z.Member.(string)
		out[i] = ScoredID{Member: member, Score: z.Score}
	}
	return out
}

// writeScriptArgs is the JSON payload shape the write.lua script
// decodes from ARGV[1]; field names are snake_case to match the
// script's cjson access.
type writeScriptArgs struct {
	Namespace             string                  `json:"namespace"`
	ID                    int64                   `json:"id"`
	IsDelete              bool                    `json:"is_delete"`
	UniqueNew             map[string]string       `json:"unique_new"`
	UniqueDeleted         map[string]string       `json:"unique_deleted"`
	FieldDeletions        []string                `json:"field_deletions"`
	FieldData             map[string]string       `json:"field_data"`
	TouchedFields         []string                `json:"touched_fields"`
	SetTerms              []scriptFieldTerm       `json:"set_terms"`
	ScoredTerms           []scriptFieldScore      `json:"scored_terms"`
	PrefixTerms           []scriptFieldScoredTerm `json:"prefix_terms"`
	SuffixTerms           []scriptFieldScoredTerm `json:"suffix_terms"`
	GeoTerms              []scriptFieldGeo        `json:"geo_terms"`
	OldValuesForRaceCheck map[string]string       `json:"old_values_for_race_check"`
}

type scriptFieldTerm struct {
	Field string `json:"field"`
	Term  string `json:"term"`
}

type scriptFieldScore struct {
	Field string  `json:"field"`
	Score float64 `json:"score"`
}

type scriptFieldScoredTerm struct {
	Field string  `json:"field"`
	Term  string  `json:"term"`
	Score float64 `json:"score"`
}

type scriptFieldGeo struct {
	Field string  `json:"field"`
	Lon   float64 `json:"lon"`
	Lat   float64 `json:"lat"`
}

// RunWrite marshals req into the write script's JSON argument and runs
// it as a single atomic command.
func (b *RedisBackend) RunWrite(ctx context.Context, req WriteRequest) (WriteOutcome, error) {
	args := writeScriptArgs{
		Namespace:             req.Namespace,
		ID:                    req.ID,
		IsDelete:              req.IsDelete,
		UniqueNew:             req.UniqueNew,
		UniqueDeleted:         req.UniqueDeleted,
		FieldDeletions:        req.FieldDeletions,
		FieldData:             req.FieldData,
		TouchedFields:         req.TouchedFields,
		OldValuesForRaceCheck: req.OldValuesForRaceCheck,
	}
	for _, t := range req.SetTerms {
		args.SetTerms = append(args.SetTerms, scriptFieldTerm{Field: t.Field, Term: t.Term})
	}
	for _, s := range req.ScoredTerms {
		args.ScoredTerms = append(args.ScoredTerms, scriptFieldScore{Field: s.Field, Score: s.Score})
	}
	for _, t := range req.PrefixTerms {
		args.PrefixTerms = append(args.PrefixTerms, scriptFieldScoredTerm{Field: t.Field, Term: t.Term, Score: codec.PrefixScore(t.Term, false)})
	}
	for _, t := range req.SuffixTerms {
		args.SuffixTerms = append(args.SuffixTerms, scriptFieldScoredTerm{Field: t.Field, Term: t.Term, Score: codec.PrefixScore(t.Term, false)})
	}
	for _, g := range req.GeoTerms {
		args.GeoTerms = append(args.GeoTerms, scriptFieldGeo{Field: g.Field, Lon: g.Lon, Lat: g.Lat})
	}

	payload, err := json.Marshal(args)
	if err != nil {
		return WriteOutcome{}, fmt.Errorf("store: marshal write args: %w", err)
	}

	recordKey := fmt.Sprintf("%s:%d", req.Namespace, req.ID)
	raw, err := b.writeScript.Run(ctx, b.rdb, []string{recordKey}, string(payload)).Result()
	if err != nil {
		return WriteOutcome{}, fmt.Errorf("store: run write script: %w", err)
	}
	s, ok := raw.(string)
	if !ok {
		return WriteOutcome{}, fmt.Errorf("store: unexpected write script result type %T", raw)
	}
	var out struct {
		Changes int      `json:"changes"`
		Unique  string   `json:"unique"`
		Race    []string `json:"race"`
	}
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return WriteOutcome{}, fmt.Errorf("store: decode write script result: %w", err)
	}
	return WriteOutcome{Changes: out.Changes, UniqueField: out.Unique, RaceFields: out.Race}, nil
}

// RunScan runs the prefix/suffix scan script against key.
func (b *RedisBackend) RunScan(ctx context.Context, key string, lo, hi float64, pattern string, limit int) ([]string, error) {
	raw, err := b.scanScript.Run(ctx, b.rdb,
		[]string{key},
		codec.ToScoreString(lo, false),
		codec.ToScoreString(hi, true),
		pattern,
		limit,
	).Result()
	if err != nil {
		return nil, fmt.Errorf("store: run scan script: %w", err)
	}
	items, ok := raw.([]interface{})
	if !ok {
		return nil, fmt.Errorf("store: unexpected scan script result type %T", raw)
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		if s, ok := it.(string); ok {
			out = append(out, s)
		}
	}
	return out, nil
}

var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
else
  return 0
end
`)

// TryLock backs internal/entitylock: SET key token NX PX ttl.
func (b *RedisBackend) TryLock(ctx context.Context, key, token string, ttl time.Duration) (bool, error) {
	return b.rdb.SetNX(ctx, key, token, ttl).Result()
}

// Unlock compares-and-deletes key only if it still holds token.
func (b *RedisBackend) Unlock(ctx context.Context, key, token string) (bool, error) {
	res, err := unlockScript.Run(ctx, b.rdb, []string{key}, token).Int64()
	if err != nil {
		return false, err
	}
	return res == 1, nil
}
