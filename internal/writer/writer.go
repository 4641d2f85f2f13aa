// Package writer implements the atomic write protocol (C4): every
// mutation to a record and its secondary indexes funnels through
// Writer.Write, which runs as a single indivisible operation on the
// backing store so that race checks, unique constraints, and index
// bookkeeping all observe one consistent snapshot.
package writer

import (
	"context"

	"github.com/romkit/rom/internal/errs"
	"github.com/romkit/rom/internal/model"
	"github.com/romkit/rom/pkg/store"
)

// Writer dispatches write requests to a backing store.
type Writer struct {
	Namespace string
	PKField   string
	Backend   store.Backend
}

// New returns a Writer bound to namespace.
func New(namespace, pkField string, backend store.Backend) *Writer {
	return &Writer{Namespace: namespace, PKField: pkField, Backend: backend}
}

// Request describes one atomic write: the fields to persist, the index
// entries to add and remove, the unique constraints touched, and the
// race-check snapshot the caller observed before editing. Save and
// Delete operations both go through this same shape; IsDelete controls
// whether step 9 short-circuits the script.
type Request struct {
	ID       int64
	IsDelete bool

	UniqueNew     map[string]string
	UniqueDeleted map[string]string

	FieldDeletions []string
	FieldData      map[string]string

	// TouchedFields names every field this write is fully authoritative
	// for; NewManifest, NewScoredTerms, and NewGeoTerms must carry only
	// these fields' contributions. A field absent from TouchedFields
	// keeps whatever the atomic script finds in the record's existing
	// manifest the instant it runs, so this write can never revert a
	// concurrent write to a field it never touched. Ignored on delete,
	// which implicitly touches every field.
	TouchedFields []string

	// NewManifest names every index entry TouchedFields' current field
	// values produce. The writer never reads or diffs the record's
	// *previous* manifest — the atomic script does that itself, against
	// whatever it finds in the record's hash the instant it runs, so a
	// concurrent write to an unrelated field can never be reverted by
	// this one recomputing cleanup from a stale pre-read.
	NewManifest *model.Manifest

	// NewScoredTerms and NewGeoTerms carry the actual score/coordinate
	// values written for the fields NewManifest.ScoredKeys and
	// NewManifest.GeoNames name; the manifest itself only records which
	// fields have an entry (needed for cleanup), not the value to
	// write now.
	NewScoredTerms []store.FieldScore
	NewGeoTerms    []store.FieldGeo

	OldValuesForRaceCheck map[string]string
}

// Write runs req as a single atomic script invocation and returns the
// number of underlying index/field changes made. A unique-constraint
// collision or a detected data race is returned as *errs.UniqueError or
// *errs.DataRaceError respectively; neither case mutates anything.
func (w *Writer) Write(ctx context.Context, req Request) (int, error) {
	sreq := store.WriteRequest{
		Namespace:             w.Namespace,
		ID:                    req.ID,
		IsDelete:              req.IsDelete,
		UniqueNew:             req.UniqueNew,
		UniqueDeleted:         req.UniqueDeleted,
		FieldDeletions:        req.FieldDeletions,
		FieldData:             req.FieldData,
		TouchedFields:         req.TouchedFields,
		OldValuesForRaceCheck: req.OldValuesForRaceCheck,
	}

	if !req.IsDelete && req.NewManifest != nil {
		for _, ft := range req.NewManifest.SetKeys {
			sreq.SetTerms = append(sreq.SetTerms, store.FieldTerm(ft))
		}
		for _, ft := range req.NewManifest.PrefixKeys {
			sreq.PrefixTerms = append(sreq.PrefixTerms, store.FieldTerm(ft))
		}
		for _, ft := range req.NewManifest.SuffixKeys {
			sreq.SuffixTerms = append(sreq.SuffixTerms, store.FieldTerm(ft))
		}
		sreq.ScoredTerms = req.NewScoredTerms
		sreq.GeoTerms = req.NewGeoTerms
	}

	outcome, err := w.Backend.RunWrite(ctx, sreq)
	if err != nil {
		return 0, err
	}
	if outcome.UniqueField != "" {
		return 0, &errs.UniqueError{
			Namespace: w.Namespace,
			Field:     outcome.UniqueField,
			Value:     req.UniqueNew[outcome.UniqueField],
		}
	}
	if len(outcome.RaceFields) > 0 {
		return 0, &errs.DataRaceError{Fields: outcome.RaceFields}
	}
	return outcome.Changes, nil
}
