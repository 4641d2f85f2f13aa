package indexstore

import (
	"context"
	"testing"

	"github.com/romkit/rom/internal/codec"
	"github.com/romkit/rom/internal/storetest"
	"github.com/romkit/rom/pkg/store"
)

func seedPrefixTerm(ctx context.Context, t *testing.T, backend store.Backend, ns, field, term, id string) {
	t.Helper()
	key := ns + ":" + field + ":pre"
	if err := backend.ZAdd(ctx, key, store.ZMember{
		Member: term + "\x00" + id,
		Score:  codec.PrefixScore(term, false),
	}); err != nil {
		t.Fatalf("seed prefix term: %v", err)
	}
}

// A glob whose wildcard sits at position 0 has no literal run to seed a
// scan window with, so PrefixScan must fall back to scanning the whole
// prefix index rather than the empty [0,0) window codec.PrefixScore("")
// would otherwise produce for both bounds.
func TestPrefixScanEmptyPrefixScansWholeIndex(t *testing.T) {
	ctx := context.Background()
	backend := storetest.New()
	idx := New("users", backend)

	seedPrefixTerm(ctx, t, backend, "users", "email", "alice@gmail.com", "1")
	seedPrefixTerm(ctx, t, backend, "users", "email", "bob@yahoo.com", "2")

	ids, err := idx.PrefixScan(ctx, "email", "", "gmail", false, 0)
	if err != nil {
		t.Fatalf("PrefixScan: %v", err)
	}
	if len(ids) != 1 || ids[0] != "1" {
		t.Errorf("PrefixScan(\"\", *gmail*) = %v, want [1]", ids)
	}
}

func TestPrefixScanLiteralPrefixWindow(t *testing.T) {
	ctx := context.Background()
	backend := storetest.New()
	idx := New("users", backend)

	seedPrefixTerm(ctx, t, backend, "users", "name", "alice", "1")
	seedPrefixTerm(ctx, t, backend, "users", "name", "alan", "2")
	seedPrefixTerm(ctx, t, backend, "users", "name", "bob", "3")

	ids, err := idx.PrefixScan(ctx, "name", "al", "", false, 0)
	if err != nil {
		t.Fatalf("PrefixScan: %v", err)
	}
	if len(ids) != 2 {
		t.Errorf("PrefixScan(al) = %v, want 2 matches", ids)
	}
}

func TestPrefixScanWithWildcardGlob(t *testing.T) {
	ctx := context.Background()
	backend := storetest.New()
	idx := New("users", backend)

	seedPrefixTerm(ctx, t, backend, "users", "email", "alice@gmail.com", "1")
	seedPrefixTerm(ctx, t, backend, "users", "email", "bob@yahoo.com", "2")

	// PrefixScan translates the raw glob to a Lua pattern itself; pass
	// the caller-facing glob syntax, not an already-translated pattern.
	ids, err := idx.PrefixScan(ctx, "email", "", "*@gmail*", false, 0)
	if err != nil {
		t.Fatalf("PrefixScan: %v", err)
	}
	if len(ids) != 1 || ids[0] != "1" {
		t.Errorf("PrefixScan with *@gmail* glob = %v, want [1]", ids)
	}
}
