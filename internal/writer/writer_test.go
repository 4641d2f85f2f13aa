package writer

import (
	"context"
	"errors"
	"testing"

	"github.com/romkit/rom/internal/errs"
	"github.com/romkit/rom/internal/model"
	"github.com/romkit/rom/internal/storetest"
	"github.com/romkit/rom/pkg/store"
)

func TestWriteNewRecord(t *testing.T) {
	backend := storetest.New()
	w := New("users", "id", backend)

	manifest := &model.Manifest{SetKeys: []model.FieldTerm{{Field: "email", Term: "a@example.com"}}}
	n, err := w.Write(context.Background(), Request{
		ID:          1,
		UniqueNew:   map[string]string{"email": "a@example.com"},
		FieldData:   map[string]string{"id": "1", "email": "a@example.com"},
		NewManifest: manifest,
	})
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if n == 0 {
		t.Error("expected nonzero changes")
	}

	members, err := backend.SMembers(context.Background(), "users:email:a@example.com:idx")
	if err != nil {
		t.Fatalf("SMembers: %v", err)
	}
	if len(members) != 1 || members[0] != "1" {
		t.Errorf("SMembers = %v, want [1]", members)
	}
}

func TestWriteUniqueCollision(t *testing.T) {
	backend := storetest.New()
	w := New("users", "id", backend)
	ctx := context.Background()

	if _, err := w.Write(ctx, Request{
		ID:        1,
		UniqueNew: map[string]string{"email": "a@example.com"},
		FieldData: map[string]string{"id": "1", "email": "a@example.com"},
	}); err != nil {
		t.Fatalf("first write: %v", err)
	}

	_, err := w.Write(ctx, Request{
		ID:        2,
		UniqueNew: map[string]string{"email": "a@example.com"},
		FieldData: map[string]string{"id": "2", "email": "a@example.com"},
	})
	var uniqueErr *errs.UniqueError
	if !errors.As(err, &uniqueErr) {
		t.Fatalf("expected UniqueError, got %v", err)
	}
	if uniqueErr.Field != "email" {
		t.Errorf("UniqueError.Field = %q", uniqueErr.Field)
	}
}

func TestWriteDataRace(t *testing.T) {
	backend := storetest.New()
	w := New("users", "id", backend)
	ctx := context.Background()

	if _, err := w.Write(ctx, Request{
		ID:        1,
		FieldData: map[string]string{"id": "1", "name": "old"},
	}); err != nil {
		t.Fatalf("first write: %v", err)
	}

	_, err := w.Write(ctx, Request{
		ID:                    1,
		FieldData:             map[string]string{"name": "new"},
		OldValuesForRaceCheck: map[string]string{"name": "stale"},
	})
	var raceErr *errs.DataRaceError
	if !errors.As(err, &raceErr) {
		t.Fatalf("expected DataRaceError, got %v", err)
	}
}

// TestWriteDisjointFieldUpdatesDoNotClobber reproduces the concurrent-
// writer scenario two disjoint-field updates can hit: each writer only
// vouches for the one field it actually recomputed (TouchedFields), so
// neither write's manifest payload ever mentions the other's field.
// Applying them in either order must leave both fields' final index
// state intact instead of one write reverting the other's just-committed
// change back to its old term.
func TestWriteDisjointFieldUpdatesDoNotClobber(t *testing.T) {
	backend := storetest.New()
	w := New("users", "id", backend)
	ctx := context.Background()

	initial := &model.Manifest{SetKeys: []model.FieldTerm{
		{Field: "tag1", Term: "red"},
		{Field: "tag2", Term: "big"},
	}}
	if _, err := w.Write(ctx, Request{
		ID:            1,
		FieldData:     map[string]string{"id": "1", "tag1": "red", "tag2": "big"},
		TouchedFields: []string{"tag1", "tag2"},
		NewManifest:   initial,
	}); err != nil {
		t.Fatalf("initial write: %v", err)
	}

	writerA := Request{
		ID:            1,
		FieldData:     map[string]string{"tag1": "blue"},
		TouchedFields: []string{"tag1"},
		NewManifest:   &model.Manifest{SetKeys: []model.FieldTerm{{Field: "tag1", Term: "blue"}}},
	}
	writerB := Request{
		ID:            1,
		FieldData:     map[string]string{"tag2": "small"},
		TouchedFields: []string{"tag2"},
		NewManifest:   &model.Manifest{SetKeys: []model.FieldTerm{{Field: "tag2", Term: "small"}}},
	}

	// writerA and writerB were each built from a view of the record that
	// never looked at the other's field, exactly as two goroutines racing
	// on disjoint fields would build them; applying B first and then A
	// (or the reverse) must not matter.
	if _, err := w.Write(ctx, writerB); err != nil {
		t.Fatalf("writerB: %v", err)
	}
	if _, err := w.Write(ctx, writerA); err != nil {
		t.Fatalf("writerA: %v", err)
	}

	redMembers, _ := backend.SMembers(ctx, "users:tag1:red:idx")
	if len(redMembers) != 0 {
		t.Errorf("expected tag1=red index cleaned up, got %v", redMembers)
	}
	blueMembers, _ := backend.SMembers(ctx, "users:tag1:blue:idx")
	if len(blueMembers) != 1 || blueMembers[0] != "1" {
		t.Errorf("expected tag1=blue index to contain 1, got %v", blueMembers)
	}
	bigMembers, _ := backend.SMembers(ctx, "users:tag2:big:idx")
	if len(bigMembers) != 0 {
		t.Errorf("expected tag2=big index cleaned up, got %v", bigMembers)
	}
	smallMembers, _ := backend.SMembers(ctx, "users:tag2:small:idx")
	if len(smallMembers) != 1 || smallMembers[0] != "1" {
		t.Errorf("expected tag2=small index to contain 1, got %v", smallMembers)
	}
}

func TestWriteManifestCleanupOnDelete(t *testing.T) {
	backend := storetest.New()
	w := New("users", "id", backend)
	ctx := context.Background()

	manifest := &model.Manifest{
		SetKeys:    []model.FieldTerm{{Field: "email", Term: "a@example.com"}},
		ScoredKeys: []string{"age"},
	}
	if _, err := w.Write(ctx, Request{
		ID:             1,
		FieldData:      map[string]string{"id": "1", "email": "a@example.com", "age": "30"},
		NewManifest:    manifest,
		NewScoredTerms: []store.FieldScore{{Field: "age", Score: 30}},
	}); err != nil {
		t.Fatalf("initial write: %v", err)
	}

	if _, err := w.Write(ctx, Request{
		ID:       1,
		IsDelete: true,
	}); err != nil {
		t.Fatalf("delete write: %v", err)
	}

	members, _ := backend.SMembers(ctx, "users:email:a@example.com:idx")
	if len(members) != 0 {
		t.Errorf("expected set index cleaned up, got %v", members)
	}
}
