package launchpad_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/xraph/launchpad"
	"github.com/xraph/launchpad/store/memory"
	"github.com/xraph/launchpad/token"
	"github.com/xraph/launchpad/types"
	"github.com/xraph/launchpad/vesting"
)

var (
	admin     = common.HexToAddress("0x00000000000000000000000000000000000000a0")
	custody   = common.HexToAddress("0x00000000000000000000000000000000000000c0")
	saleAddr  = common.HexToAddress("0x00000000000000000000000000000000000000c1")
	saleToken = common.HexToAddress("0x0000000000000000000000000000000000000070")
	usdc      = common.HexToAddress("0x0000000000000000000000000000000000000071")
	recovery  = common.HexToAddress("0x00000000000000000000000000000000000000ee")
	treasury  = common.HexToAddress("0x00000000000000000000000000000000000000d0")
	alice     = common.HexToAddress("0x0000000000000000000000000000000000000a11")
	bob       = common.HexToAddress("0x0000000000000000000000000000000000000b0b")
	carol     = common.HexToAddress("0x0000000000000000000000000000000000000ca1")
)

const day = 24 * time.Hour

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

type testClock struct{ now time.Time }

func (c *testClock) Now() time.Time          { return c.now }
func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type fixture struct {
	t     *testing.T
	ctx   context.Context
	clock *testClock
	lp    *launchpad.Launchpad
	bank  *token.Bank
}

func newFixture(t *testing.T, opts ...launchpad.Option) *fixture {
	t.Helper()
	clock := &testClock{now: epoch}
	base := []launchpad.Option{
		launchpad.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		launchpad.WithClock(clock.Now),
		launchpad.WithAdmin(admin),
		launchpad.WithVestingAddress(custody),
		launchpad.WithPresaleAddress(saleAddr),
		launchpad.WithSaleToken(saleToken),
		launchpad.WithRecoveryAddress(recovery),
	}
	lp := launchpad.New(memory.New(), append(base, opts...)...)

	ctx := context.Background()
	if err := lp.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { _ = lp.Stop() })

	return &fixture{t: t, ctx: ctx, clock: clock, lp: lp, bank: lp.Bank()}
}

func ether(n uint64) *uint256.Int {
	v, err := types.Units(n, 18)
	if err != nil {
		panic(err)
	}
	return v
}

func amt(n uint64) *uint256.Int { return uint256.NewInt(n) }

func (f *fixture) mint(tokenAddr, to common.Address, amount *uint256.Int) {
	f.t.Helper()
	if err := f.bank.Mint(f.ctx, tokenAddr, to, amount); err != nil {
		f.t.Fatalf("mint: %v", err)
	}
}

func (f *fixture) approve(tokenAddr, owner, spender common.Address, amount *uint256.Int) {
	f.t.Helper()
	if err := f.bank.Approve(f.ctx, tokenAddr, owner, spender, amount); err != nil {
		f.t.Fatalf("approve: %v", err)
	}
}

func (f *fixture) balance(tokenAddr, holder common.Address) *uint256.Int {
	f.t.Helper()
	v, err := f.bank.BalanceOf(f.ctx, tokenAddr, holder)
	if err != nil {
		f.t.Fatalf("balance: %v", err)
	}
	return v
}

// fundAdmin gives the admin sale tokens and lets vesting custody pull them.
func (f *fixture) fundAdmin(amount *uint256.Int) {
	f.t.Helper()
	f.mint(saleToken, admin, amount)
	f.approve(saleToken, admin, custody, amount)
}

func (f *fixture) createSchedule(beneficiary common.Address, total *uint256.Int, cliff, duration time.Duration, bps uint16) {
	f.t.Helper()
	if err := f.lp.Vesting().CreateSchedule(f.ctx, admin, beneficiary, total, cliff, duration, bps, "seed"); err != nil {
		f.t.Fatalf("CreateSchedule(%s): %v", beneficiary.Hex(), err)
	}
}

func (f *fixture) start() {
	f.t.Helper()
	st, err := f.lp.Vesting().State(f.ctx)
	if err != nil {
		f.t.Fatal(err)
	}
	f.fundAdmin(st.GlobalAllocated)
	if err := f.lp.Vesting().StartContract(f.ctx, admin); err != nil {
		f.t.Fatalf("StartContract: %v", err)
	}
}

func (f *fixture) schedule(b common.Address) *vesting.Schedule {
	f.t.Helper()
	s, err := f.lp.Vesting().Schedule(f.ctx, b)
	if err != nil {
		f.t.Fatalf("Schedule(%s): %v", b.Hex(), err)
	}
	return s
}

func (f *fixture) releasable(b common.Address) *uint256.Int {
	f.t.Helper()
	r, err := f.lp.Vesting().Releasable(f.ctx, b)
	if err != nil {
		f.t.Fatalf("Releasable(%s): %v", b.Hex(), err)
	}
	return r
}

// checkInvariants verifies the global and per-schedule accounting bounds.
func (f *fixture) checkInvariants() {
	f.t.Helper()
	st, err := f.lp.Vesting().State(f.ctx)
	if err != nil {
		f.t.Fatal(err)
	}
	all, err := f.lp.Vesting().ListSchedules(f.ctx, vesting.ListOpts{})
	if err != nil {
		f.t.Fatal(err)
	}

	sum, claimed := types.Zero(), types.Zero()
	for _, s := range all {
		if s.TotalAllocation.IsZero() {
			f.t.Errorf("%s: live schedule with zero total", s.Beneficiary.Hex())
		}
		if s.Released.Gt(s.VestingPrincipal) {
			f.t.Errorf("%s: released %s > principal %s", s.Beneficiary.Hex(), s.Released, s.VestingPrincipal)
		}
		if s.ClaimedTotal.Gt(s.TotalAllocation) {
			f.t.Errorf("%s: claimed %s > total %s", s.Beneficiary.Hex(), s.ClaimedTotal, s.TotalAllocation)
		}
		sum.Add(sum, s.TotalAllocation)
		claimed.Add(claimed, s.ClaimedTotal)
	}
	if !sum.Eq(st.GlobalAllocated) {
		f.t.Errorf("globalAllocated = %s, sum of totals = %s", st.GlobalAllocated, sum)
	}
	if !claimed.Eq(st.GlobalClaimed) {
		f.t.Errorf("globalClaimed = %s, sum of claimed = %s", st.GlobalClaimed, claimed)
	}
}

func wantErr(t *testing.T, err, target error) {
	t.Helper()
	if !errors.Is(err, target) {
		t.Fatalf("error = %v, want %v", err, target)
	}
}
