// Package storetest is a conformance suite every store.Store backend runs
// from its own tests.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/xraph/launchpad"
	"github.com/xraph/launchpad/event"
	"github.com/xraph/launchpad/presale"
	"github.com/xraph/launchpad/store"
	"github.com/xraph/launchpad/types"
	"github.com/xraph/launchpad/vesting"
)

// Factory returns a migrated, empty store. The suite closes it.
type Factory func(t *testing.T) store.Store

var (
	alice = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	bob   = common.HexToAddress("0x00000000000000000000000000000000000000b2")
	carol = common.HexToAddress("0xc000000000000000000000000000000000000003")
	usdc  = common.HexToAddress("0x00000000000000000000000000000000000000c0")
	sale  = common.HexToAddress("0x00000000000000000000000000000000000000d3")

	epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
)

// Run exercises every store operation against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s store.Store)
	}{
		{"VestingState", testVestingState},
		{"Schedules", testSchedules},
		{"PresaleState", testPresaleState},
		{"Presales", testPresales},
		{"Whitelist", testWhitelist},
		{"Purchases", testPurchases},
		{"DeletePresaleCascades", testDeletePresale},
		{"Tokens", testTokens},
		{"Events", testEvents},
		{"Transactions", testTransactions},
		{"Close", testClose},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStore(t)
			t.Cleanup(func() { _ = s.Close() })
			if err := s.Migrate(context.Background()); err != nil {
				t.Fatalf("Migrate: %v", err)
			}
			tt.fn(t, s)
		})
	}
}

func amt(n uint64) *uint256.Int { return types.NewAmount(n) }

func sameAmount(t *testing.T, what string, got, want *uint256.Int) {
	t.Helper()
	if got == nil || !got.Eq(want) {
		t.Errorf("%s = %v, want %s", what, got, want)
	}
}

func sameTime(t *testing.T, what string, got, want time.Time) {
	t.Helper()
	if !got.Equal(want) {
		t.Errorf("%s = %v, want %v", what, got, want)
	}
}

func testVestingState(t *testing.T, s store.Store) {
	ctx := context.Background()

	st, err := s.GetVestingState(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !st.GlobalAllocated.IsZero() || st.TGEUnlocked || !st.StartTime.IsZero() {
		t.Fatalf("fresh state = %+v, want zero", st)
	}

	want := &vesting.State{
		GlobalAllocated: amt(1_000),
		GlobalClaimed:   amt(250),
		TGEUnlocked:     true,
		StartTime:       epoch,
		Paused:          true,
		UpdatedAt:       epoch.Add(time.Hour),
	}
	if err := s.SaveVestingState(ctx, want); err != nil {
		t.Fatal(err)
	}
	got, err := s.GetVestingState(ctx)
	if err != nil {
		t.Fatal(err)
	}
	sameAmount(t, "GlobalAllocated", got.GlobalAllocated, want.GlobalAllocated)
	sameAmount(t, "GlobalClaimed", got.GlobalClaimed, want.GlobalClaimed)
	sameTime(t, "StartTime", got.StartTime, want.StartTime)
	sameTime(t, "UpdatedAt", got.UpdatedAt, want.UpdatedAt)
	if !got.TGEUnlocked || !got.Paused {
		t.Errorf("flags = %v/%v, want true/true", got.TGEUnlocked, got.Paused)
	}
}

func schedule(b common.Address, total uint64, group string) *vesting.Schedule {
	return &vesting.Schedule{
		Entity:           types.NewEntity(epoch),
		Beneficiary:      b,
		TotalAllocation:  amt(total),
		VestingPrincipal: amt(total * 9 / 10),
		Cliff:            90 * 24 * time.Hour,
		Duration:         365 * 24 * time.Hour,
		Released:         amt(0),
		ClaimedTotal:     amt(total / 10),
		TGEClaimed:       true,
		TGEBps:           1_000,
		Group:            group,
	}
}

func testSchedules(t *testing.T, s store.Store) {
	ctx := context.Background()

	if _, err := s.GetSchedule(ctx, alice); !errors.Is(err, launchpad.ErrScheduleNotFound) {
		t.Fatalf("GetSchedule(missing) error = %v, want ErrScheduleNotFound", err)
	}
	if err := s.DeleteSchedule(ctx, alice); !errors.Is(err, launchpad.ErrScheduleNotFound) {
		t.Fatalf("DeleteSchedule(missing) error = %v, want ErrScheduleNotFound", err)
	}

	for _, sch := range []*vesting.Schedule{
		schedule(carol, 300, "team"),
		schedule(bob, 200, "seed"),
		schedule(alice, 100, "seed"),
	} {
		if err := s.SaveSchedule(ctx, sch); err != nil {
			t.Fatal(err)
		}
	}

	got, err := s.GetSchedule(ctx, bob)
	if err != nil {
		t.Fatal(err)
	}
	want := schedule(bob, 200, "seed")
	sameAmount(t, "TotalAllocation", got.TotalAllocation, want.TotalAllocation)
	sameAmount(t, "VestingPrincipal", got.VestingPrincipal, want.VestingPrincipal)
	sameAmount(t, "ClaimedTotal", got.ClaimedTotal, want.ClaimedTotal)
	sameTime(t, "CreatedAt", got.CreatedAt, want.CreatedAt)
	if got.Beneficiary != bob || got.Cliff != want.Cliff || got.Duration != want.Duration ||
		got.TGEBps != want.TGEBps || !got.TGEClaimed || got.Group != "seed" {
		t.Errorf("GetSchedule = %+v, want %+v", got, want)
	}

	// Overwrite in place.
	got.Released = amt(45)
	if err := s.SaveSchedule(ctx, got); err != nil {
		t.Fatal(err)
	}
	again, err := s.GetSchedule(ctx, bob)
	if err != nil {
		t.Fatal(err)
	}
	sameAmount(t, "Released", again.Released, amt(45))

	all, err := s.ListSchedules(ctx, vesting.ListOpts{})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 || all[0].Beneficiary != alice || all[1].Beneficiary != bob || all[2].Beneficiary != carol {
		t.Fatalf("ListSchedules order wrong: %v", beneficiaries(all))
	}

	seed, err := s.ListSchedules(ctx, vesting.ListOpts{Group: "seed"})
	if err != nil {
		t.Fatal(err)
	}
	if len(seed) != 2 {
		t.Errorf("group filter returned %d schedules, want 2", len(seed))
	}

	paged, err := s.ListSchedules(ctx, vesting.ListOpts{Offset: 1, Limit: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(paged) != 1 || paged[0].Beneficiary != bob {
		t.Errorf("page(1,1) = %v, want [bob]", beneficiaries(paged))
	}
	tail, err := s.ListSchedules(ctx, vesting.ListOpts{Offset: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(tail) != 1 || tail[0].Beneficiary != carol {
		t.Errorf("offset 2 = %v, want [carol]", beneficiaries(tail))
	}

	if err := s.DeleteSchedule(ctx, bob); err != nil {
		t.Fatal(err)
	}
	if _, err := s.GetSchedule(ctx, bob); !errors.Is(err, launchpad.ErrScheduleNotFound) {
		t.Errorf("deleted schedule still readable: %v", err)
	}
}

func beneficiaries(ss []*vesting.Schedule) []common.Address {
	out := make([]common.Address, len(ss))
	for i, s := range ss {
		out[i] = s.Beneficiary
	}
	return out
}

func testPresaleState(t *testing.T, s store.Store) {
	ctx := context.Background()

	st, err := s.GetPresaleState(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if st.LastID != 0 || st.Paused {
		t.Fatalf("fresh state = %+v, want zero", st)
	}

	if err := s.SavePresaleState(ctx, &presale.State{LastID: 7, Paused: true, UpdatedAt: epoch}); err != nil {
		t.Fatal(err)
	}
	st, err = s.GetPresaleState(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if st.LastID != 7 || !st.Paused {
		t.Errorf("state = %+v, want LastID 7 paused", st)
	}
	sameTime(t, "UpdatedAt", st.UpdatedAt, epoch)
}

func newPresale(id uint64) *presale.Presale {
	return &presale.Presale{
		Entity:           types.NewEntity(epoch),
		ID:               id,
		SaleToken:        sale,
		PaymentToken:     usdc,
		TokensToSell:     amt(100),
		TokensRemaining:  amt(60),
		StartTime:        epoch.Add(24 * time.Hour),
		EndTime:          epoch.Add(10 * 24 * time.Hour),
		Price:            amt(3),
		SaleDecimals:     18,
		Destination:      carol,
		WhitelistEnabled: true,
		DeferToVesting:   true,
		Vesting:          vesting.Template{Cliff: time.Hour, Duration: 48 * time.Hour, TGEBps: 500, Group: "public"},
	}
}

func testPresales(t *testing.T, s store.Store) {
	ctx := context.Background()

	if _, err := s.GetPresale(ctx, 1); !errors.Is(err, launchpad.ErrPresaleNotFound) {
		t.Fatalf("GetPresale(missing) error = %v, want ErrPresaleNotFound", err)
	}

	for _, id := range []uint64{3, 1, 2} {
		if err := s.SavePresale(ctx, newPresale(id)); err != nil {
			t.Fatal(err)
		}
	}

	got, err := s.GetPresale(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	want := newPresale(2)
	sameAmount(t, "TokensToSell", got.TokensToSell, want.TokensToSell)
	sameAmount(t, "TokensRemaining", got.TokensRemaining, want.TokensRemaining)
	sameAmount(t, "Price", got.Price, want.Price)
	sameTime(t, "StartTime", got.StartTime, want.StartTime)
	sameTime(t, "EndTime", got.EndTime, want.EndTime)
	if got.SaleToken != sale || got.PaymentToken != usdc || got.Destination != carol ||
		got.SaleDecimals != 18 || !got.WhitelistEnabled || !got.DeferToVesting || got.Vesting != want.Vesting {
		t.Errorf("GetPresale = %+v, want %+v", got, want)
	}

	got.Paused = true
	got.PaymentToken = common.Address{}
	if err := s.SavePresale(ctx, got); err != nil {
		t.Fatal(err)
	}
	again, err := s.GetPresale(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if !again.Paused || !again.PaysNative() {
		t.Errorf("update not persisted: %+v", again)
	}

	list, err := s.ListPresales(ctx, presale.ListOpts{})
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 3 || list[0].ID != 1 || list[2].ID != 3 {
		t.Errorf("ListPresales not ordered by id: %d items", len(list))
	}
	paged, err := s.ListPresales(ctx, presale.ListOpts{Offset: 1, Limit: 5})
	if err != nil {
		t.Fatal(err)
	}
	if len(paged) != 2 || paged[0].ID != 2 {
		t.Errorf("paged presales = %d items", len(paged))
	}
}

func testWhitelist(t *testing.T, s store.Store) {
	ctx := context.Background()

	ok, err := s.IsWhitelisted(ctx, 1, alice)
	if err != nil || ok {
		t.Fatalf("IsWhitelisted(fresh) = %v, %v", ok, err)
	}
	for range 2 {
		if err := s.SetWhitelisted(ctx, 1, alice, true); err != nil {
			t.Fatalf("SetWhitelisted: %v", err)
		}
	}
	if ok, _ := s.IsWhitelisted(ctx, 1, alice); !ok {
		t.Error("alice should be whitelisted on presale 1")
	}
	if ok, _ := s.IsWhitelisted(ctx, 2, alice); ok {
		t.Error("whitelists are per presale")
	}
	if err := s.SetWhitelisted(ctx, 1, alice, false); err != nil {
		t.Fatal(err)
	}
	if ok, _ := s.IsWhitelisted(ctx, 1, alice); ok {
		t.Error("alice should be removed")
	}
	if err := s.SetWhitelisted(ctx, 1, bob, false); err != nil {
		t.Errorf("removing an absent address: %v", err)
	}
}

func purchase(presaleID uint64, buyer common.Address, amount uint64, seq int) *presale.Purchase {
	return &presale.Purchase{
		Entity:         types.NewEntity(epoch),
		PresaleID:      presaleID,
		Buyer:          buyer,
		Amount:         amt(amount),
		LastPurchaseAt: epoch.Add(time.Duration(seq) * time.Minute),
		Seq:            seq,
	}
}

func testPurchases(t *testing.T, s store.Store) {
	ctx := context.Background()

	if _, err := s.GetPurchase(ctx, 1, alice); !errors.Is(err, launchpad.ErrPurchaseNotFound) {
		t.Fatalf("GetPurchase(missing) error = %v, want ErrPurchaseNotFound", err)
	}

	for _, p := range []*presale.Purchase{
		purchase(1, carol, 10, 0),
		purchase(1, alice, 20, 1),
		purchase(1, bob, 30, 2),
		purchase(2, alice, 5, 0),
	} {
		if err := s.SavePurchase(ctx, p); err != nil {
			t.Fatal(err)
		}
	}

	p, err := s.GetPurchase(ctx, 1, alice)
	if err != nil {
		t.Fatal(err)
	}
	sameAmount(t, "Amount", p.Amount, amt(20))
	sameTime(t, "LastPurchaseAt", p.LastPurchaseAt, epoch.Add(time.Minute))
	if p.Seq != 1 {
		t.Errorf("Seq = %d, want 1", p.Seq)
	}

	p.Amount = amt(25)
	if err := s.SavePurchase(ctx, p); err != nil {
		t.Fatal(err)
	}

	mine, err := s.ListPurchasesByBuyer(ctx, alice)
	if err != nil {
		t.Fatal(err)
	}
	if len(mine) != 2 || mine[0].PresaleID != 1 || mine[1].PresaleID != 2 {
		t.Fatalf("ListPurchasesByBuyer = %d items", len(mine))
	}
	sameAmount(t, "updated Amount", mine[0].Amount, amt(25))

	n, err := s.CountParticipants(ctx, 1)
	if err != nil || n != 3 {
		t.Fatalf("CountParticipants = %d, %v; want 3", n, err)
	}
	buyers, err := s.ListParticipants(ctx, 1, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(buyers) != 3 || buyers[0] != carol || buyers[1] != alice || buyers[2] != bob {
		t.Errorf("ListParticipants = %v, want carol, alice, bob", buyers)
	}
	mid, err := s.ListParticipants(ctx, 1, 1, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(mid) != 1 || mid[0] != alice {
		t.Errorf("ListParticipants(1,1) = %v, want [alice]", mid)
	}
	if n, _ := s.CountParticipants(ctx, 9); n != 0 {
		t.Errorf("CountParticipants(empty) = %d", n)
	}
}

func testDeletePresale(t *testing.T, s store.Store) {
	ctx := context.Background()

	if err := s.DeletePresale(ctx, 1); !errors.Is(err, launchpad.ErrPresaleNotFound) {
		t.Fatalf("DeletePresale(missing) error = %v, want ErrPresaleNotFound", err)
	}
	if err := s.SavePresale(ctx, newPresale(1)); err != nil {
		t.Fatal(err)
	}
	if err := s.SetWhitelisted(ctx, 1, alice, true); err != nil {
		t.Fatal(err)
	}
	if err := s.SavePurchase(ctx, purchase(1, alice, 10, 0)); err != nil {
		t.Fatal(err)
	}

	if err := s.DeletePresale(ctx, 1); err != nil {
		t.Fatal(err)
	}
	if _, err := s.GetPresale(ctx, 1); !errors.Is(err, launchpad.ErrPresaleNotFound) {
		t.Errorf("presale survived delete: %v", err)
	}
	if ok, _ := s.IsWhitelisted(ctx, 1, alice); ok {
		t.Error("whitelist survived delete")
	}
	if n, _ := s.CountParticipants(ctx, 1); n != 0 {
		t.Errorf("%d purchases survived delete", n)
	}
}

func testTokens(t *testing.T, s store.Store) {
	ctx := context.Background()

	b, err := s.GetBalance(ctx, usdc, alice)
	if err != nil {
		t.Fatal(err)
	}
	sameAmount(t, "fresh balance", b, amt(0))

	huge := new(uint256.Int).SetAllOne()
	if err := s.SetBalance(ctx, usdc, alice, huge); err != nil {
		t.Fatal(err)
	}
	if err := s.SetBalance(ctx, sale, alice, amt(7)); err != nil {
		t.Fatal(err)
	}
	b, _ = s.GetBalance(ctx, usdc, alice)
	sameAmount(t, "max balance", b, huge)
	b, _ = s.GetBalance(ctx, sale, alice)
	sameAmount(t, "second token", b, amt(7))

	a, err := s.GetAllowance(ctx, usdc, alice, bob)
	if err != nil {
		t.Fatal(err)
	}
	sameAmount(t, "fresh allowance", a, amt(0))
	if err := s.SetAllowance(ctx, usdc, alice, bob, amt(50)); err != nil {
		t.Fatal(err)
	}
	a, _ = s.GetAllowance(ctx, usdc, alice, bob)
	sameAmount(t, "allowance", a, amt(50))
	a, _ = s.GetAllowance(ctx, usdc, bob, alice)
	sameAmount(t, "reverse allowance", a, amt(0))
}

func testEvents(t *testing.T, s store.Store) {
	ctx := context.Background()

	records := []*event.Record{
		event.New(event.KindScheduleCreated, event.LedgerVesting, alice, epoch).About(bob).With("total", "100"),
		event.New(event.KindPresaleCreated, event.LedgerPresale, alice, epoch.Add(time.Hour)).ForPresale(1),
		event.New(event.KindPurchased, event.LedgerPresale, bob, epoch.Add(2*time.Hour)).ForPresale(1).About(bob),
		event.New(event.KindReleased, event.LedgerVesting, bob, epoch.Add(3*time.Hour)).About(bob),
	}
	for _, r := range records {
		if err := s.AppendEvent(ctx, r); err != nil {
			t.Fatal(err)
		}
	}

	all, err := s.ListEvents(ctx, event.ListOpts{})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 4 {
		t.Fatalf("ListEvents = %d records, want 4", len(all))
	}
	for i, r := range all {
		if r.ID.String() != records[i].ID.String() || r.Kind != records[i].Kind {
			t.Errorf("record %d = %s %s, want %s %s", i, r.ID, r.Kind, records[i].ID, records[i].Kind)
		}
	}
	if all[0].Fields["total"] != "100" || all[0].Subject != bob || all[0].Actor != alice {
		t.Errorf("record 0 = %+v", all[0])
	}
	sameTime(t, "OccurredAt", all[2].OccurredAt, epoch.Add(2*time.Hour))

	tests := []struct {
		name string
		opts event.ListOpts
		want int
	}{
		{"ledger", event.ListOpts{Ledger: event.LedgerPresale}, 2},
		{"kind", event.ListOpts{Kind: event.KindReleased}, 1},
		{"subject", event.ListOpts{Subject: bob}, 3},
		{"presale", event.ListOpts{PresaleID: 1}, 2},
		{"since", event.ListOpts{Since: epoch.Add(2 * time.Hour)}, 2},
		{"limit", event.ListOpts{Limit: 3}, 3},
		{"offset", event.ListOpts{Offset: 3}, 1},
		{"combined", event.ListOpts{Ledger: event.LedgerVesting, Subject: bob, Limit: 1}, 1},
	}
	for _, tt := range tests {
		got, err := s.ListEvents(ctx, tt.opts)
		if err != nil {
			t.Fatalf("%s: %v", tt.name, err)
		}
		if len(got) != tt.want {
			t.Errorf("%s: got %d records, want %d", tt.name, len(got), tt.want)
		}
	}
}

func testTransactions(t *testing.T, s store.Store) {
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.SetBalance(ctx, usdc, alice, amt(10)); err != nil {
			return err
		}
		return s.RunInTx(ctx, func(ctx context.Context) error {
			if err := s.SetBalance(ctx, usdc, bob, amt(20)); err != nil {
				return err
			}
			return s.AppendEvent(ctx, event.New(event.KindReleased, event.LedgerVesting, bob, epoch))
		})
	})
	if err != nil {
		t.Fatal(err)
	}
	b, _ := s.GetBalance(ctx, usdc, bob)
	sameAmount(t, "committed nested write", b, amt(20))

	err = s.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.SetBalance(ctx, usdc, alice, amt(99)); err != nil {
			return err
		}
		if err := s.SaveSchedule(ctx, schedule(carol, 10, "")); err != nil {
			return err
		}
		if err := s.AppendEvent(ctx, event.New(event.KindScheduleCreated, event.LedgerVesting, alice, epoch)); err != nil {
			return err
		}
		return s.RunInTx(ctx, func(ctx context.Context) error { return boom })
	})
	if !errors.Is(err, boom) {
		t.Fatalf("RunInTx error = %v, want boom", err)
	}

	b, _ = s.GetBalance(ctx, usdc, alice)
	sameAmount(t, "rolled back balance", b, amt(10))
	if _, err := s.GetSchedule(ctx, carol); !errors.Is(err, launchpad.ErrScheduleNotFound) {
		t.Errorf("rolled back schedule visible: %v", err)
	}
	events, _ := s.ListEvents(ctx, event.ListOpts{})
	if len(events) != 1 {
		t.Errorf("journal has %d records after rollback, want 1", len(events))
	}
}

func testClose(t *testing.T, s store.Store) {
	ctx := context.Background()

	if err := s.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := s.Ping(ctx); !errors.Is(err, launchpad.ErrStoreClosed) {
		t.Errorf("Ping after Close = %v, want ErrStoreClosed", err)
	}
	err := s.RunInTx(ctx, func(context.Context) error { return nil })
	if !errors.Is(err, launchpad.ErrStoreClosed) {
		t.Errorf("RunInTx after Close = %v, want ErrStoreClosed", err)
	}
}
