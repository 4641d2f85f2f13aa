// Package storetest provides an in-memory implementation of
// pkg/store.Backend for unit tests, playing the same role the
// teacher's internal/testutil.TestDB plays for its own tests: a
// same-process fake that exercises the real calling code without a
// live backing-store connection. Unlike the production RedisBackend,
// FakeBackend does not run the embedded Lua scripts (there is no Lua
// interpreter in a plain Go test binary); instead it reimplements the
// write and scan algorithms directly against its own maps, preserving
// exactly the same contract and return shapes.
package storetest

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/romkit/rom/internal/codec"
	"github.com/romkit/rom/internal/model"
	"github.com/romkit/rom/pkg/store"
)

// FakeBackend is a goroutine-safe, in-memory backing store.
type FakeBackend struct {
	mu sync.Mutex

	strings map[string]string
	hashes  map[string]map[string]string
	sets    map[string]map[string]bool
	zsets   map[string]map[string]float64
	geo     map[string]map[string][2]float64
	locks   map[string]string
}

// New returns an empty FakeBackend.
func New() *FakeBackend {
	return &FakeBackend{
		strings: make(map[string]string),
		hashes:  make(map[string]map[string]string),
		sets:    make(map[string]map[string]bool),
		zsets:   make(map[string]map[string]float64),
		geo:     make(map[string]map[string][2]float64),
		locks:   make(map[string]string),
	}
}

var _ store.Backend = (*FakeBackend)(nil)

func (f *FakeBackend) Get(_ context.Context, key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.strings[key]
	return v, ok, nil
}

func (f *FakeBackend) Set(_ context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.strings[key] = value
	return nil
}

func (f *FakeBackend) Incr(_ context.Context, key string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	if v, ok := f.strings[key]; ok {
		fmt.Sscanf(v, "%d", &n)
	}
	n++
	f.strings[key] = fmt.Sprintf("%d", n)
	return n, nil
}

func (f *FakeBackend) Del(_ context.Context, keys ...string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, k := range keys {
		if _, ok := f.strings[k]; ok {
			delete(f.strings, k)
			n++
		}
		if _, ok := f.hashes[k]; ok {
			delete(f.hashes, k)
			n++
		}
		if _, ok := f.sets[k]; ok {
			delete(f.sets, k)
			n++
		}
		if _, ok := f.zsets[k]; ok {
			delete(f.zsets, k)
			n++
		}
		if _, ok := f.geo[k]; ok {
			delete(f.geo, k)
			n++
		}
	}
	return n, nil
}

func (f *FakeBackend) Exists(_ context.Context, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, a := f.strings[key]
	_, b := f.hashes[key]
	_, c := f.sets[key]
	_, d := f.zsets[key]
	return a || b || c || d, nil
}

func (f *FakeBackend) Expire(_ context.Context, _ string, _ time.Duration) error {
	return nil
}

func (f *FakeBackend) HGet(_ context.Context, key, field string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.hashes[key][field]
	return v, ok, nil
}

func (f *FakeBackend) HMGet(_ context.Context, key string, fields []string) (map[string]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]string, len(fields))
	h := f.hashes[key]
	for _, field := range fields {
		if v, ok := h[field]; ok {
			out[field] = v
		}
	}
	return out, nil
}

func (f *FakeBackend) HGetAll(_ context.Context, key string) (map[string]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]string, len(f.hashes[key]))
	for k, v := range f.hashes[key] {
		out[k] = v
	}
	return out, nil
}

func (f *FakeBackend) HSet(_ context.Context, key string, fields map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	h, ok := f.hashes[key]
	if !ok {
		h = make(map[string]string)
		f.hashes[key] = h
	}
	for k, v := range fields {
		h[k] = v
	}
	return nil
}

func (f *FakeBackend) HDel(_ context.Context, key string, fields []string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	h := f.hashes[key]
	var n int64
	for _, field := range fields {
		if _, ok := h[field]; ok {
			delete(h, field)
			n++
		}
	}
	return n, nil
}

func (f *FakeBackend) HLen(_ context.Context, key string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.hashes[key])), nil
}

func (f *FakeBackend) SAdd(_ context.Context, key string, members ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sets[key]
	if !ok {
		s = make(map[string]bool)
		f.sets[key] = s
	}
	for _, m := range members {
		s[m] = true
	}
	return nil
}

func (f *FakeBackend) SRem(_ context.Context, key string, members ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := f.sets[key]
	for _, m := range members {
		delete(s, m)
	}
	return nil
}

func (f *FakeBackend) SIsMember(_ context.Context, key, member string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sets[key][member], nil
}

func (f *FakeBackend) SCard(_ context.Context, key string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.sets[key])), nil
}

func (f *FakeBackend) SMembers(_ context.Context, key string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.sets[key]))
	for m := range f.sets[key] {
		out = append(out, m)
	}
	sort.Strings(out)
	return out, nil
}

func (f *FakeBackend) SInterStore(_ context.Context, dest string, keys ...string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(keys) == 0 {
		f.sets[dest] = map[string]bool{}
		return 0, nil
	}
	result := make(map[string]bool)
	for m := range f.sets[keys[0]] {
		result[m] = true
	}
	for _, k := range keys[1:] {
		cur := f.sets[k]
		for m := range result {
			if !cur[m] {
				delete(result, m)
			}
		}
	}
	f.sets[dest] = result
	return int64(len(result)), nil
}

func (f *FakeBackend) SUnionStore(_ context.Context, dest string, keys ...string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	result := make(map[string]bool)
	for _, k := range keys {
		for m := range f.sets[k] {
			result[m] = true
		}
	}
	f.sets[dest] = result
	return int64(len(result)), nil
}

func (f *FakeBackend) ZAdd(_ context.Context, key string, members ...store.ZMember) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	z, ok := f.zsets[key]
	if !ok {
		z = make(map[string]float64)
		f.zsets[key] = z
	}
	for _, m := range members {
		z[m.Member] = m.Score
	}
	return nil
}

func (f *FakeBackend) ZRem(_ context.Context, key string, members ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	z := f.zsets[key]
	for _, m := range members {
		delete(z, m)
	}
	return nil
}

func (f *FakeBackend) ZCard(_ context.Context, key string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.zsets[key])), nil
}

func (f *FakeBackend) ZRank(_ context.Context, key, member string) (int64, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	items := sortedZItems(f.zsets[key])
	for i, it := range items {
		if it.member == member {
			return int64(i), true, nil
		}
	}
	return 0, false, nil
}

type zItem struct {
	member string
	score  float64
}

func sortedZItems(z map[string]float64) []zItem {
	items := make([]zItem, 0, len(z))
	for m, s := range z {
		items = append(items, zItem{m, s})
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].score != items[j].score {
			return items[i].score < items[j].score
		}
		return items[i].member < items[j].member
	})
	return items
}

func parseBound(s string) (val float64, exclusive bool) {
	if s == "-inf" {
		return -1e308, false
	}
	if s == "+inf" {
		return 1e308, false
	}
	if strings.HasPrefix(s, "(") {
		fmt.Sscanf(s[1:], "%g", &val)
		return val, true
	}
	fmt.Sscanf(s, "%g", &val)
	return val, false
}

func (f *FakeBackend) ZRangeByScore(_ context.Context, key string, lo, hi string, offset, count int64) ([]store.ScoredID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	loVal, loExcl := parseBound(lo)
	hiVal, hiExcl := parseBound(hi)
	items := sortedZItems(f.zsets[key])
	var out []store.ScoredID
	for _, it := range items {
		if it.score < loVal || (loExcl && it.score == loVal) {
			continue
		}
		if it.score > hiVal || (hiExcl && it.score == hiVal) {
			continue
		}
		out = append(out, store.ScoredID{Member: it.member, Score: it.score})
	}
	return applyOffsetCount(out, offset, count), nil
}

func (f *FakeBackend) ZRevRangeByScore(ctx context.Context, key string, hi, lo string, offset, count int64) ([]store.ScoredID, error) {
	out, err := f.ZRangeByScore(ctx, key, lo, hi, 0, -1)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return applyOffsetCount(out, offset, count), nil
}

func applyOffsetCount(items []store.ScoredID, offset, count int64) []store.ScoredID {
	if offset > 0 {
		if offset >= int64(len(items)) {
			return nil
		}
		items = items[offset:]
	}
	if count >= 0 && count < int64(len(items)) {
		items = items[:count]
	}
	return items
}

func (f *FakeBackend) ZRemRangeByScore(_ context.Context, key, lo, hi string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	loVal, loExcl := parseBound(lo)
	hiVal, hiExcl := parseBound(hi)
	z := f.zsets[key]
	var n int64
	for m, s := range z {
		if s < loVal || (loExcl && s == loVal) {
			continue
		}
		if s > hiVal || (hiExcl && s == hiVal) {
			continue
		}
		delete(z, m)
		n++
	}
	return n, nil
}

func (f *FakeBackend) ZInterStore(_ context.Context, dest string, keys []string, weights []float64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(keys) == 0 {
		f.zsets[dest] = map[string]float64{}
		return 0, nil
	}
	result := make(map[string]float64)
	for m, s := range f.zsets[keys[0]] {
		result[m] = s * weightOf(weights, 0)
	}
	for i, k := range keys[1:] {
		cur := f.zsets[k]
		for m := range result {
			s, ok := cur[m]
			if !ok {
				delete(result, m)
				continue
			}
			result[m] += s * weightOf(weights, i+1)
		}
	}
	f.zsets[dest] = result
	return int64(len(result)), nil
}

func (f *FakeBackend) ZUnionStore(_ context.Context, dest string, keys []string, weights []float64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	result := make(map[string]float64)
	for i, k := range keys {
		for m, s := range f.zsets[k] {
			result[m] += s * weightOf(weights, i)
		}
	}
	f.zsets[dest] = result
	return int64(len(result)), nil
}

func weightOf(weights []float64, i int) float64 {
	if i < len(weights) {
		return weights[i]
	}
	return 1
}

func (f *FakeBackend) ZRange(_ context.Context, key string, start, stop int64) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	items := sortedZItems(f.zsets[key])
	n := int64(len(items))
	if start < 0 {
		start += n
	}
	if stop < 0 {
		stop += n
	}
	if start < 0 {
		start = 0
	}
	if stop >= n {
		stop = n - 1
	}
	if start > stop || n == 0 {
		return nil, nil
	}
	out := make([]string, 0, stop-start+1)
	for i := start; i <= stop; i++ {
		out = append(out, items[i].member)
	}
	return out, nil
}

func (f *FakeBackend) GeoAdd(_ context.Context, key string, points ...store.GeoPoint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.geo[key]
	if !ok {
		g = make(map[string][2]float64)
		f.geo[key] = g
	}
	for _, p := range points {
		g[p.Member] = [2]float64{p.Lon, p.Lat}
	}
	return nil
}

func (f *FakeBackend) GeoRadius(_ context.Context, key string, lon, lat, radiusMeters float64, count int64) ([]store.GeoResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []store.GeoResult
	for m, coords := range f.geo[key] {
		d := haversineMeters(lon, lat, coords[0], coords[1])
		if d <= radiusMeters {
			out = append(out, store.GeoResult{Member: m, Distance: d})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Distance < out[j].Distance })
	if count > 0 && int64(len(out)) > count {
		out = out[:count]
	}
	return out, nil
}

const earthRadiusMeters = 6372797.560856

func haversineMeters(lon1, lat1, lon2, lat2 float64) float64 {
	toRad := func(d float64) float64 { return d * math.Pi / 180 }
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Asin(math.Sqrt(a))
	return earthRadiusMeters * c
}

func (f *FakeBackend) TryLock(_ context.Context, key, token string, _ time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, held := f.locks[key]; held {
		return false, nil
	}
	f.locks[key] = token
	return true, nil
}

func (f *FakeBackend) Unlock(_ context.Context, key, token string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.locks[key] != token {
		return false, nil
	}
	delete(f.locks, key)
	return true, nil
}

func (f *FakeBackend) RunScan(_ context.Context, key string, lo, hi float64, pattern string, limit int) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	re, err := compileScanPattern(pattern)
	if err != nil {
		return nil, err
	}
	items := sortedZItems(f.zsets[key])
	var out []string
	for _, it := range items {
		if it.score < lo || it.score >= hi {
			continue
		}
		term, id := splitMember(it.member)
		if re == nil || re.MatchString(term) {
			out = append(out, id)
			if len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

// compileScanPattern translates the restricted Lua pattern
// indexstore.globToLuaPattern produces ('.', '.?', '.-', '.+', and
// '%'-escaped literals) into an equivalent unanchored Go regexp, so
// this fake mirrors scan.lua's real string.find semantics instead of
// only matching glob-free literal substrings. Returns a nil *Regexp
// for the empty pattern, meaning "match everything".
func compileScanPattern(pattern string) (*regexp.Regexp, error) {
	if pattern == "" {
		return nil, nil
	}
	var b strings.Builder
	for i := 0; i < len(pattern); i++ {
		c := pattern[i]
		switch {
		case c == '%' && i+1 < len(pattern):
			b.WriteString(regexp.QuoteMeta(string(pattern[i+1])))
			i++
		case c == '.' && i+1 < len(pattern) && pattern[i+1] == '-':
			b.WriteString(".*?")
			i++
		case c == '.' && i+1 < len(pattern) && (pattern[i+1] == '?' || pattern[i+1] == '+'):
			b.WriteByte('.')
			b.WriteByte(pattern[i+1])
			i++
		case c == '.':
			b.WriteByte('.')
		default:
			b.WriteString(regexp.QuoteMeta(string(c)))
		}
	}
	return regexp.Compile(b.String())
}

func splitMember(member string) (term, id string) {
	if i := strings.IndexByte(member, 0); i >= 0 {
		return member[:i], member[i+1:]
	}
	return member, member
}

func keyOf(ns, field, term string) string { return fmt.Sprintf("%s:%s:%s:idx", ns, field, term) }
func scoredKeyOf(ns, field string) string { return fmt.Sprintf("%s:%s:idx", ns, field) }
func prefixKeyOf(ns, field string) string { return fmt.Sprintf("%s:%s:pre", ns, field) }
func suffixKeyOf(ns, field string) string { return fmt.Sprintf("%s:%s:suf", ns, field) }
func geoKeyOf(ns, name string) string     { return fmt.Sprintf("%s:%s:geo", ns, name) }

// RunWrite reimplements the write.lua algorithm natively so tests
// exercise the exact same eleven-step contract without a Lua
// interpreter: it reads the record's manifest itself, fresh, with a
// fallback to the legacy per-namespace manifest hash, and diffs it
// against the caller's current term lists to compute what to remove —
// mirroring write.lua exactly so a removal list is never trusted from
// outside this call.
func (f *FakeBackend) RunWrite(_ context.Context, req store.WriteRequest) (store.WriteOutcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	recordKey := fmt.Sprintf("%s:%d", req.Namespace, req.ID)
	id := fmt.Sprintf("%d", req.ID)
	legacyManifestKey := req.Namespace + "::"

	// 1. Race check.
	if !req.IsDelete {
		var changed []string
		for field, expected := range req.OldValuesForRaceCheck {
			if f.hashes[recordKey][field] != expected {
				changed = append(changed, field)
			}
		}
		if len(changed) > 0 {
			return store.WriteOutcome{RaceFields: changed}, nil
		}
	}

	// 2. Manifest read, fresh: the record's own "-index-data-" field, or
	// the legacy namespace-wide manifest hash keyed by id when absent.
	currentManifestRaw, fromCurrent := f.hashes[recordKey]["-index-data-"]
	fromLegacy := false
	if !fromCurrent {
		currentManifestRaw, fromLegacy = f.hashes[legacyManifestKey][id]
	}
	oldManifest, err := model.UnmarshalManifest(currentManifestRaw)
	if err != nil {
		oldManifest = &model.Manifest{}
	}

	newManifest := &model.Manifest{}
	for _, ft := range req.SetTerms {
		newManifest.SetKeys = append(newManifest.SetKeys, model.FieldTerm{Field: ft.Field, Term: ft.Term})
	}
	for _, ft := range req.PrefixTerms {
		newManifest.PrefixKeys = append(newManifest.PrefixKeys, model.FieldTerm{Field: ft.Field, Term: ft.Term})
	}
	for _, ft := range req.SuffixTerms {
		newManifest.SuffixKeys = append(newManifest.SuffixKeys, model.FieldTerm{Field: ft.Field, Term: ft.Term})
	}
	for _, fs := range req.ScoredTerms {
		newManifest.ScoredKeys = append(newManifest.ScoredKeys, fs.Field)
	}
	for _, fg := range req.GeoTerms {
		newManifest.GeoNames = append(newManifest.GeoNames, fg.Field)
	}

	// The caller only vouches for the fields named in TouchedFields;
	// every other field's manifest entry carries straight over from
	// oldManifest, the one this call just read fresh, so a write that
	// only recomputed its own fields can never revert a concurrent
	// write to a field it never touched. A delete touches nothing here
	// since it wipes everything unconditionally below.
	if !req.IsDelete {
		touched := make(map[string]bool, len(req.TouchedFields))
		for _, f := range req.TouchedFields {
			touched[f] = true
		}
		for _, ft := range oldManifest.SetKeys {
			if !touched[ft.Field] {
				newManifest.SetKeys = append(newManifest.SetKeys, ft)
			}
		}
		for _, field := range oldManifest.ScoredKeys {
			if !touched[field] {
				newManifest.ScoredKeys = append(newManifest.ScoredKeys, field)
			}
		}
		for _, ft := range oldManifest.PrefixKeys {
			if !touched[ft.Field] {
				newManifest.PrefixKeys = append(newManifest.PrefixKeys, ft)
			}
		}
		for _, ft := range oldManifest.SuffixKeys {
			if !touched[ft.Field] {
				newManifest.SuffixKeys = append(newManifest.SuffixKeys, ft)
			}
		}
		for _, name := range oldManifest.GeoNames {
			if !touched[name] {
				newManifest.GeoNames = append(newManifest.GeoNames, name)
			}
		}
	}

	removed := oldManifest.Diff(newManifest)

	// 3. Unique precheck.
	for field, value := range req.UniqueNew {
		uk := fmt.Sprintf("%s:%s:uidx", req.Namespace, field)
		if owner, ok := f.hashes[uk][value]; ok && owner != id {
			return store.WriteOutcome{UniqueField: field}, nil
		}
	}

	// 4. Unique commit.
	for field, value := range req.UniqueNew {
		uk := fmt.Sprintf("%s:%s:uidx", req.Namespace, field)
		if f.hashes[uk] == nil {
			f.hashes[uk] = make(map[string]string)
		}
		f.hashes[uk][value] = id
	}

	// 5. Unique removal.
	for field, value := range req.UniqueDeleted {
		uk := fmt.Sprintf("%s:%s:uidx", req.Namespace, field)
		if f.hashes[uk][value] == id {
			delete(f.hashes[uk], value)
		}
	}

	changes := 0

	// 6. Field deletions.
	if len(req.FieldDeletions) > 0 {
		if f.hashes[recordKey] != nil {
			for _, field := range req.FieldDeletions {
				delete(f.hashes[recordKey], field)
			}
		}
		changes += len(req.FieldDeletions)
	}

	// 7. Field updates.
	if len(req.FieldData) > 0 {
		if f.hashes[recordKey] == nil {
			f.hashes[recordKey] = make(map[string]string)
		}
		for field, value := range req.FieldData {
			f.hashes[recordKey][field] = value
			changes++
		}
	}

	// 8. Manifest-driven cleanup, computed above from the manifest this
	// call itself just read.
	for _, ft := range removed.SetKeys {
		delete(f.sets[keyOf(req.Namespace, ft.Field, ft.Term)], id)
		changes++
	}
	for _, field := range removed.ScoredKeys {
		delete(f.zsets[scoredKeyOf(req.Namespace, field)], id)
		changes++
	}
	for _, ft := range removed.PrefixKeys {
		delete(f.zsets[prefixKeyOf(req.Namespace, ft.Field)], ft.Term+"\x00"+id)
		changes++
	}
	for _, ft := range removed.SuffixKeys {
		delete(f.zsets[suffixKeyOf(req.Namespace, ft.Field)], ft.Term+"\x00"+id)
		changes++
	}
	for _, name := range removed.GeoNames {
		delete(f.geo[geoKeyOf(req.Namespace, name)], id)
		changes++
	}

	// 9. Delete shortcut.
	if req.IsDelete {
		delete(f.hashes, recordKey)
		delete(f.hashes[legacyManifestKey], id)
		return store.WriteOutcome{Changes: changes}, nil
	}

	// 10. New index emission.
	for _, ft := range req.SetTerms {
		k := keyOf(req.Namespace, ft.Field, ft.Term)
		if f.sets[k] == nil {
			f.sets[k] = make(map[string]bool)
		}
		f.sets[k][id] = true
		changes++
	}
	for _, fs := range req.ScoredTerms {
		k := scoredKeyOf(req.Namespace, fs.Field)
		if f.zsets[k] == nil {
			f.zsets[k] = make(map[string]float64)
		}
		f.zsets[k][id] = fs.Score
		changes++
	}
	for _, ft := range req.PrefixTerms {
		k := prefixKeyOf(req.Namespace, ft.Field)
		if f.zsets[k] == nil {
			f.zsets[k] = make(map[string]float64)
		}
		f.zsets[k][ft.Term+"\x00"+id] = codec.PrefixScore(ft.Term, false)
		changes++
	}
	for _, ft := range req.SuffixTerms {
		k := suffixKeyOf(req.Namespace, ft.Field)
		if f.zsets[k] == nil {
			f.zsets[k] = make(map[string]float64)
		}
		f.zsets[k][ft.Term+"\x00"+id] = codec.PrefixScore(ft.Term, false)
		changes++
	}
	for _, fg := range req.GeoTerms {
		k := geoKeyOf(req.Namespace, fg.Field)
		if f.geo[k] == nil {
			f.geo[k] = make(map[string][2]float64)
		}
		f.geo[k][id] = [2]float64{fg.Lon, fg.Lat}
		changes++
	}

	// 11. Manifest write: an empty manifest is the field's absence, not
	// an empty-arrays blob, so a never-indexed record stays bare.
	if f.hashes[recordKey] == nil {
		f.hashes[recordKey] = make(map[string]string)
	}
	if newManifest.Empty() {
		delete(f.hashes[recordKey], "-index-data-")
	} else {
		marshaled, err := newManifest.Marshal()
		if err != nil {
			return store.WriteOutcome{}, err
		}
		f.hashes[recordKey]["-index-data-"] = marshaled
	}

	// A record migrates off the legacy manifest hash the moment it goes
	// through a write, whether or not it was actually found there.
	if _, stillInLegacy := f.hashes[legacyManifestKey][id]; fromLegacy || stillInLegacy {
		delete(f.hashes[legacyManifestKey], id)
	}

	return store.WriteOutcome{Changes: changes}, nil
}
