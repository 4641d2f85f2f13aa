// Package rom is the caller-visible facade atop the core engine: it
// combines the index store, writer, planner, and executor behind a
// single Store type so an application can Save/Get/GetBy/Delete/Query
// records without touching any of those packages directly, the same
// role internal/memory.Service played atop internal/database.
package rom

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/romkit/rom/internal/errs"
	"github.com/romkit/rom/internal/executor"
	"github.com/romkit/rom/internal/indexstore"
	"github.com/romkit/rom/internal/keygen"
	"github.com/romkit/rom/internal/model"
	"github.com/romkit/rom/internal/writer"
	"github.com/romkit/rom/pkg/store"
)

// compositeSeparator joins encoded component values of a multi-column
// unique constraint; a lone nullByte stands in for an absent component.
const compositeSeparator = "\x00\x00"
const nullByte = "\x00"

// Store is the top-level facade for one record namespace.
type Store struct {
	Descriptor *model.Descriptor
	Backend    store.Backend

	index *indexstore.Store
	write *writer.Writer
	exec  *executor.Executor
}

// New validates d and returns a Store bound to backend.
func New(d *model.Descriptor, backend store.Backend) (*Store, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	idx := indexstore.New(d.Namespace, backend)
	return &Store{
		Descriptor: d,
		Backend:    backend,
		index:      idx,
		write:      writer.New(d.Namespace, d.PKField, backend),
		exec:       executor.New(d.Namespace, idx, backend),
	}, nil
}

func (s *Store) recordKey(id int64) string {
	return fmt.Sprintf("%s:%d", s.Descriptor.Namespace, id)
}

func (s *Store) counterKey() string {
	return fmt.Sprintf("%s:%s:", s.Descriptor.Namespace, s.Descriptor.PKField)
}

func (s *Store) uidxKey(field string) string {
	return fmt.Sprintf("%s:%s:uidx", s.Descriptor.Namespace, field)
}

// Get fetches the record with the given primary key. The second return
// value is false if no such record exists.
func (s *Store) Get(ctx context.Context, id int64) (*model.Record, bool, error) {
	hash, err := s.Backend.HGetAll(ctx, s.recordKey(id))
	if err != nil {
		return nil, false, err
	}
	if len(hash) == 0 {
		return nil, false, nil
	}
	rec, err := model.DecodeRecord(s.Descriptor, hash)
	if err != nil {
		return nil, false, err
	}
	rec.ID = id
	rec.Snapshot = make(map[string]model.Value, len(rec.Fields))
	for k, v := range rec.Fields {
		rec.Snapshot[k] = v
	}
	return rec, true, nil
}

// GetMany fetches several records by id, skipping ones that no longer
// exist.
func (s *Store) GetMany(ctx context.Context, ids []int64) ([]*model.Record, error) {
	out := make([]*model.Record, 0, len(ids))
	for _, id := range ids {
		rec, ok, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, rec)
		}
	}
	return out, nil
}

// GetBy looks a record up by the current value of one of its unique
// fields (spec §6's "get_by(field=value)" unique-lookup form).
func (s *Store) GetBy(ctx context.Context, field string, value model.Value) (*model.Record, bool, error) {
	spec, ok := s.Descriptor.Field(field)
	if !ok {
		return nil, false, &errs.QueryError{Reason: fmt.Sprintf("get_by: field %q not declared", field)}
	}
	if !spec.Unique {
		return nil, false, &errs.QueryError{Reason: fmt.Sprintf("get_by: field %q is not a unique field", field)}
	}
	enc, err := value.Encode()
	if err != nil {
		return nil, false, err
	}
	idStr, found, err := s.Backend.HGet(ctx, s.uidxKey(field), enc)
	if err != nil || !found {
		return nil, false, err
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		return nil, false, fmt.Errorf("rom: corrupt unique index %s: %w", s.uidxKey(field), err)
	}
	return s.Get(ctx, id)
}

// Save persists rec. A zero rec.ID allocates a new primary key and
// inserts; a non-zero id merges rec.Fields into the record's existing
// state, recomputing every derived index entry from the merged result.
// Save always re-reads the record's current state immediately before
// writing, so a *errs.DataRaceError only ever reflects a write that
// actually interleaved with this one; see SaveWithRetry for the
// refresh-and-retry convenience spec.md §5 describes.
func (s *Store) Save(ctx context.Context, rec *model.Record) (int64, error) {
	if rec.ID == 0 {
		return s.create(ctx, rec)
	}
	return s.update(ctx, rec)
}

func (s *Store) create(ctx context.Context, rec *model.Record) (int64, error) {
	id, err := s.Backend.Incr(ctx, s.counterKey())
	if err != nil {
		return 0, err
	}
	rec.ID = id
	rec.Fields[s.Descriptor.PKField] = model.PrimaryKey(id)

	fieldData, err := rec.Encode(s.Descriptor)
	if err != nil {
		return 0, err
	}
	touched := allDescriptorFields(s.Descriptor)
	manifest, scored, geo := buildIndexTerms(s.Descriptor, rec.Fields, touched)
	uniqueNew, err := s.uniqueValues(rec.Fields, changedSet(rec.Fields))
	if err != nil {
		return 0, err
	}

	req := writer.Request{
		ID:             id,
		UniqueNew:      uniqueNew,
		FieldData:      fieldData,
		TouchedFields:  setToSlice(touched),
		NewManifest:    manifest,
		NewScoredTerms: scored,
		NewGeoTerms:    geo,
	}
	if _, err := s.write.Write(ctx, req); err != nil {
		return 0, err
	}
	return id, nil
}

func (s *Store) update(ctx context.Context, rec *model.Record) (int64, error) {
	id := rec.ID
	hash, err := s.Backend.HGetAll(ctx, s.recordKey(id))
	if err != nil {
		return 0, err
	}
	if len(hash) == 0 {
		return 0, &errs.DataRaceError{Fields: []string{s.Descriptor.PKField}}
	}
	oldRecord, err := model.DecodeRecord(s.Descriptor, hash)
	if err != nil {
		return 0, err
	}

	changed := changedSet(rec.Fields)
	merged := mergeFields(oldRecord.Fields, rec.Fields)
	merged[s.Descriptor.PKField] = model.PrimaryKey(id)

	fieldData, err := (&model.Record{ID: id, Fields: rec.Fields}).Encode(s.Descriptor)
	if err != nil {
		return 0, err
	}
	touched := touchedFields(s.Descriptor, changed)
	manifest, scored, geo := buildIndexTerms(s.Descriptor, merged, touched)

	uniqueNew, err := s.uniqueValues(merged, changed)
	if err != nil {
		return 0, err
	}
	uniqueDeleted, err := s.uniqueValues(oldRecord.Fields, changed)
	if err != nil {
		return 0, err
	}

	raceCheck := make(map[string]string, len(changed))
	for field := range changed {
		if v, ok := hash[field]; ok {
			raceCheck[field] = v
		}
	}

	req := writer.Request{
		ID:                    id,
		UniqueNew:             uniqueNew,
		UniqueDeleted:         uniqueDeleted,
		FieldData:             fieldData,
		TouchedFields:         setToSlice(touched),
		NewManifest:           manifest,
		NewScoredTerms:        scored,
		NewGeoTerms:           geo,
		OldValuesForRaceCheck: raceCheck,
	}
	if _, err := s.write.Write(ctx, req); err != nil {
		return 0, err
	}
	return id, nil
}

// SaveWithRetry retries Save up to maxAttempts times when it fails with
// a data race, the convenience spec.md §5 attributes to
// original_source/rom/util.py's refresh loop: each retry re-reads
// current state from scratch (Save always does), so a transient
// collision with a concurrent writer typically clears within a couple
// of attempts.
func (s *Store) SaveWithRetry(ctx context.Context, rec *model.Record, maxAttempts int) (int64, error) {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	var lastErr error
	for i := 0; i < maxAttempts; i++ {
		id, err := s.Save(ctx, rec)
		if err == nil {
			return id, nil
		}
		var raceErr *errs.DataRaceError
		if !errors.As(err, &raceErr) {
			return 0, err
		}
		lastErr = err
	}
	return 0, lastErr
}

// Delete removes the record with the given id and every index entry its
// manifest names.
func (s *Store) Delete(ctx context.Context, id int64) error {
	hash, err := s.Backend.HGetAll(ctx, s.recordKey(id))
	if err != nil {
		return err
	}
	if len(hash) == 0 {
		return nil
	}
	oldRecord, err := model.DecodeRecord(s.Descriptor, hash)
	if err != nil {
		return err
	}
	uniqueDeleted, err := s.uniqueValues(oldRecord.Fields, allFieldNames(oldRecord.Fields))
	if err != nil {
		return err
	}

	req := writer.Request{
		ID:            id,
		IsDelete:      true,
		UniqueDeleted: uniqueDeleted,
	}
	_, err = s.write.Write(ctx, req)
	return err
}

// Reindex rebuilds a record's manifest-attributed index entries from its
// current hash state, the minimal batch re-indexing operation
// original_source/rom/util.py exposes as a session-level helper; useful
// after a descriptor change adds or removes a keygen. It does not touch
// unique constraints or run a race check.
func (s *Store) Reindex(ctx context.Context, id int64) error {
	hash, err := s.Backend.HGetAll(ctx, s.recordKey(id))
	if err != nil {
		return err
	}
	if len(hash) == 0 {
		return fmt.Errorf("rom: reindex: no record %s:%d", s.Descriptor.Namespace, id)
	}
	rec, err := model.DecodeRecord(s.Descriptor, hash)
	if err != nil {
		return err
	}
	rec.Fields[s.Descriptor.PKField] = model.PrimaryKey(id)
	touched := allDescriptorFields(s.Descriptor)
	manifest, scored, geo := buildIndexTerms(s.Descriptor, rec.Fields, touched)

	req := writer.Request{
		ID:             id,
		TouchedFields:  setToSlice(touched),
		NewManifest:    manifest,
		NewScoredTerms: scored,
		NewGeoTerms:    geo,
	}
	_, err = s.write.Write(ctx, req)
	return err
}

// Query starts a QueryBuilder against this store's namespace.
func (s *Store) Query() *QueryBuilder {
	return &QueryBuilder{store: s, count: -1}
}

// PageCached reads a page of ids from a cache key a prior
// QueryBuilder.CachedResult call produced.
func (s *Store) PageCached(ctx context.Context, cacheKey string, offset, count int64) ([]int64, error) {
	members, err := s.exec.GetCached(ctx, cacheKey, offset, count)
	if err != nil {
		return nil, err
	}
	return parseIDs(members)
}

// buildIndexTerms mirrors model.BuildManifest's field/keygen walk, also
// capturing the score and coordinate payloads the manifest itself only
// names (the manifest records which fields have a scored/geo entry, not
// the value to write, since that's a per-write concern, not a
// cleanup-bookkeeping one). Only fields named in touched contribute an
// entry; every other descriptor field is left out entirely so the
// caller (internal/writer, then the atomic script) never vouches for a
// field it didn't actually recompute from a fresh value.
func buildIndexTerms(d *model.Descriptor, fields map[string]model.Value, touched map[string]bool) (*model.Manifest, []store.FieldScore, []store.FieldGeo) {
	m := &model.Manifest{}
	var scored []store.FieldScore
	var geo []store.FieldGeo
	for _, name := range d.FieldOrder {
		if !touched[name] {
			continue
		}
		spec := d.Fields[name]
		if spec.Keygen != nil {
			c := spec.Keygen(name, fields)
			switch spec.Family {
			case model.FamilySet:
				for _, t := range c.SetTerms {
					m.SetKeys = append(m.SetKeys, model.FieldTerm{Field: name, Term: t})
				}
			case model.FamilyScored:
				if c.HasScore {
					m.ScoredKeys = append(m.ScoredKeys, name)
					scored = append(scored, store.FieldScore{Field: name, Score: c.Score})
				}
			case model.FamilyPrefix:
				for _, t := range c.SetTerms {
					m.PrefixKeys = append(m.PrefixKeys, model.FieldTerm{Field: name, Term: t})
				}
			case model.FamilySuffix:
				for _, t := range c.SetTerms {
					m.SuffixKeys = append(m.SuffixKeys, model.FieldTerm{Field: name, Term: t})
				}
			case model.FamilyGeo:
				if c.HasGeo {
					m.GeoNames = append(m.GeoNames, name)
					geo = append(geo, store.FieldGeo{Field: name, Lon: c.Lon, Lat: c.Lat})
				}
			}
		}

		// Prefixed/Suffixed add a scan-index entry for the field's own
		// string value independent of its primary Family, so one field
		// (e.g. a SIMPLE or IDENTITY email column) can support
		// startswith and endswith without a second declared field.
		if spec.Prefixed {
			c := keygen.Prefix(name, fields)
			for _, t := range c.SetTerms {
				m.PrefixKeys = append(m.PrefixKeys, model.FieldTerm{Field: name, Term: t})
			}
		}
		if spec.Suffixed {
			c := keygen.Suffix(name, fields)
			for _, t := range c.SetTerms {
				m.SuffixKeys = append(m.SuffixKeys, model.FieldTerm{Field: name, Term: t})
			}
		}
	}
	return m, scored, geo
}

// uniqueValues returns the encoded unique-index values fields carries
// for every unique constraint (single-field or composite) touching a
// field named in changed. A constraint with no component in changed is
// omitted entirely, since its stored uidx entry is still correct.
func (s *Store) uniqueValues(fields map[string]model.Value, changed map[string]bool) (map[string]string, error) {
	out := map[string]string{}
	for _, name := range s.Descriptor.UniqueFieldNames() {
		if !changed[name] {
			continue
		}
		v, ok := fields[name]
		if !ok {
			continue
		}
		enc, err := v.Encode()
		if err != nil {
			return nil, err
		}
		out[name] = enc
	}
	for _, uc := range s.Descriptor.Unique {
		touched := false
		for _, f := range uc.Fields {
			if changed[f] {
				touched = true
				break
			}
		}
		if !touched {
			continue
		}
		parts := make([]string, len(uc.Fields))
		for i, f := range uc.Fields {
			v, ok := fields[f]
			if !ok {
				parts[i] = nullByte
				continue
			}
			enc, err := v.Encode()
			if err != nil {
				return nil, err
			}
			parts[i] = enc
		}
		out[uc.Name] = strings.Join(parts, compositeSeparator)
	}
	return out, nil
}

func changedSet(fields map[string]model.Value) map[string]bool {
	out := make(map[string]bool, len(fields))
	for name := range fields {
		out[name] = true
	}
	return out
}

// allDescriptorFields returns every field name d declares, for the
// create and Reindex paths where the whole record is always touched.
func allDescriptorFields(d *model.Descriptor) map[string]bool {
	out := make(map[string]bool, len(d.FieldOrder))
	for _, name := range d.FieldOrder {
		out[name] = true
	}
	return out
}

// touchedFields extends changed with any FamilyGeo field whose GeoLon or
// GeoLat names a changed field: keygen.Geo is the only built-in
// generator that reads more than one field, so a write that only
// changes the longitude column must still recompute the geo field's own
// manifest entry even though the geo field's name never appears in
// changed itself.
func touchedFields(d *model.Descriptor, changed map[string]bool) map[string]bool {
	out := make(map[string]bool, len(changed))
	for name := range changed {
		out[name] = true
	}
	for _, name := range d.FieldOrder {
		spec := d.Fields[name]
		if spec.Family != model.FamilyGeo {
			continue
		}
		if (spec.GeoLon != "" && changed[spec.GeoLon]) || (spec.GeoLat != "" && changed[spec.GeoLat]) {
			out[name] = true
		}
	}
	return out
}

func setToSlice(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for name := range set {
		out = append(out, name)
	}
	return out
}

func allFieldNames(fields map[string]model.Value) map[string]bool {
	return changedSet(fields)
}

func mergeFields(base, overlay map[string]model.Value) map[string]model.Value {
	out := make(map[string]model.Value, len(base)+len(overlay))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range overlay {
		out[k] = v
	}
	return out
}

func parseIDs(members []string) ([]int64, error) {
	out := make([]int64, len(members))
	for i, m := range members {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("rom: malformed id %q in result: %w", m, err)
		}
		out[i] = id
	}
	return out, nil
}
