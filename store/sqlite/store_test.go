package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/xraph/launchpad/event"
	"github.com/xraph/launchpad/store"
	"github.com/xraph/launchpad/store/sqlite"
	"github.com/xraph/launchpad/store/storetest"
	"github.com/xraph/launchpad/types"
)

func open(t *testing.T, path string) *sqlite.Store {
	t.Helper()
	s, err := sqlite.Open(context.Background(), path)
	if err != nil {
		t.Fatalf("Open(%s): %v", path, err)
	}
	return s
}

func TestStoreConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		return open(t, filepath.Join(t.TempDir(), "launchpad.db"))
	})
}

func TestInMemoryDatabase(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		return open(t, ":memory:")
	})
}

func TestMigrateIsIdempotentAndDurable(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "launchpad.db")

	s := open(t, path)
	for range 2 {
		if err := s.Migrate(ctx); err != nil {
			t.Fatalf("Migrate: %v", err)
		}
	}
	groups, err := s.MigrationStatus(ctx)
	if err != nil {
		t.Fatalf("MigrationStatus: %v", err)
	}
	if len(groups) != 1 {
		t.Fatalf("got %d migration groups, want 1", len(groups))
	}
	if want := len(sqlite.Migrations.Migrations()); len(groups[0].Applied) != want {
		t.Errorf("recorded %d migrations, want %d", len(groups[0].Applied), want)
	}
	if len(groups[0].Pending) != 0 {
		t.Errorf("%d migrations still pending", len(groups[0].Pending))
	}

	st, err := s.GetVestingState(ctx)
	if err != nil {
		t.Fatal(err)
	}
	st.GlobalAllocated = types.NewAmount(42)
	if err := s.SaveVestingState(ctx, st); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	reopened := open(t, path)
	defer reopened.Close()
	if err := reopened.Migrate(ctx); err != nil {
		t.Fatal(err)
	}
	st, err = reopened.GetVestingState(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if st.GlobalAllocated.Uint64() != 42 {
		t.Errorf("GlobalAllocated after reopen = %s, want 42", st.GlobalAllocated)
	}
}

func TestOffsetWithoutLimit(t *testing.T) {
	ctx := context.Background()
	s := open(t, ":memory:")
	defer s.Close()
	if err := s.Migrate(ctx); err != nil {
		t.Fatal(err)
	}
	for i := range 3 {
		r := event.New(event.KindReleased, event.LedgerVesting, common.Address{byte(i + 1)}, time.Unix(int64(i), 0))
		if err := s.AppendEvent(ctx, r); err != nil {
			t.Fatal(err)
		}
	}

	got, err := s.ListEvents(ctx, event.ListOpts{Offset: 1})
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d events, want 2", len(got))
	}
	if got[0].Actor != (common.Address{2}) {
		t.Errorf("first event actor = %s, want the second appended", got[0].Actor)
	}
}
