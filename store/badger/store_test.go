package badger_test

import (
	"context"
	"testing"

	badgerdb "github.com/dgraph-io/badger/v4"

	"github.com/xraph/launchpad/store"
	"github.com/xraph/launchpad/store/badger"
	"github.com/xraph/launchpad/store/storetest"
	"github.com/xraph/launchpad/types"
)

func openInMemory(t *testing.T) *badger.Store {
	t.Helper()
	s, err := badger.OpenWithOptions(badgerdb.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestStoreConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store { return openInMemory(t) })
}

func TestReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := badger.Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	st, err := s.GetVestingState(ctx)
	if err != nil {
		t.Fatal(err)
	}
	st.GlobalClaimed = types.NewAmount(17)
	if err := s.SaveVestingState(ctx, st); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	s, err = badger.Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	st, err = s.GetVestingState(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if st.GlobalClaimed.Uint64() != 17 {
		t.Errorf("GlobalClaimed after reopen = %s, want 17", st.GlobalClaimed)
	}
}
