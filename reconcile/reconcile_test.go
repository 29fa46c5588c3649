package reconcile_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/xraph/launchpad"
	"github.com/xraph/launchpad/presale"
	"github.com/xraph/launchpad/reconcile"
	"github.com/xraph/launchpad/store/memory"
	"github.com/xraph/launchpad/types"
)

var (
	admin     = common.HexToAddress("0x00000000000000000000000000000000000000a0")
	custody   = common.HexToAddress("0x00000000000000000000000000000000000000c0")
	saleAddr  = common.HexToAddress("0x00000000000000000000000000000000000000c1")
	saleToken = common.HexToAddress("0x0000000000000000000000000000000000000070")
	recovery  = common.HexToAddress("0x00000000000000000000000000000000000000ee")
	alice     = common.HexToAddress("0x0000000000000000000000000000000000000a11")
	bob       = common.HexToAddress("0x0000000000000000000000000000000000000b0b")
	thief     = common.HexToAddress("0x00000000000000000000000000000000000000ff")
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

type reportSink struct {
	mu      sync.Mutex
	reports []*reconcile.Report
}

func (s *reportSink) Name() string { return "report-sink" }

func (s *reportSink) OnReconciled(_ context.Context, report interface{}) error {
	r, ok := report.(*reconcile.Report)
	if !ok {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports = append(s.reports, r)
	return nil
}

func (s *reportSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.reports)
}

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func newLaunchpad(t *testing.T, opts ...launchpad.Option) *launchpad.Launchpad {
	t.Helper()
	base := []launchpad.Option{
		launchpad.WithLogger(quiet()),
		launchpad.WithClock(func() time.Time { return epoch }),
		launchpad.WithAdmin(admin),
		launchpad.WithVestingAddress(custody),
		launchpad.WithPresaleAddress(saleAddr),
		launchpad.WithSaleToken(saleToken),
		launchpad.WithRecoveryAddress(recovery),
	}
	lp := launchpad.New(memory.New(), append(base, opts...)...)
	if err := lp.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { _ = lp.Stop() })
	return lp
}

// seed creates two schedules, funds custody and unlocks the TGE.
func seed(t *testing.T, lp *launchpad.Launchpad) {
	t.Helper()
	ctx := context.Background()
	for _, b := range []common.Address{alice, bob} {
		if err := lp.Vesting().CreateSchedule(ctx, admin, b, uint256.NewInt(1_000), 0, 100*24*time.Hour, 1_000, "seed"); err != nil {
			t.Fatalf("CreateSchedule: %v", err)
		}
	}
	if err := lp.Bank().Mint(ctx, saleToken, admin, uint256.NewInt(2_000)); err != nil {
		t.Fatal(err)
	}
	if err := lp.Bank().Approve(ctx, saleToken, admin, custody, uint256.NewInt(2_000)); err != nil {
		t.Fatal(err)
	}
	if err := lp.Vesting().StartContract(ctx, admin); err != nil {
		t.Fatalf("StartContract: %v", err)
	}
	if _, err := lp.Vesting().ClaimTGE(ctx, alice); err != nil {
		t.Fatalf("ClaimTGE: %v", err)
	}
}

func TestCheckCleanLedger(t *testing.T) {
	sink := &reportSink{}
	lp := newLaunchpad(t, launchpad.WithPlugin(sink))
	seed(t, lp)

	r, err := reconcile.NewAuditor(lp).Check(context.Background())
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if !r.OK() {
		t.Fatalf("findings = %+v, want none", r.Findings)
	}
	if r.Schedules != 2 {
		t.Errorf("Schedules = %d, want 2", r.Schedules)
	}
	if !r.SumAllocated.Eq(uint256.NewInt(2_000)) {
		t.Errorf("SumAllocated = %s, want 2000", r.SumAllocated)
	}
	if !r.SumClaimed.Eq(uint256.NewInt(100)) {
		t.Errorf("SumClaimed = %s, want 100", r.SumClaimed)
	}
	if r.CustodyBalance == nil || !r.CustodyBalance.Eq(uint256.NewInt(1_900)) {
		t.Errorf("CustodyBalance = %v, want 1900", r.CustodyBalance)
	}
	if r.ID.IsNil() {
		t.Error("report has no id")
	}
	if got := sink.count(); got != 1 {
		t.Errorf("plugin saw %d reports, want 1", got)
	}
}

func TestCheckBeforeUnlockSkipsCustody(t *testing.T) {
	lp := newLaunchpad(t)
	if err := lp.Vesting().CreateSchedule(context.Background(), admin, alice, uint256.NewInt(500), 0, time.Hour, 0, ""); err != nil {
		t.Fatal(err)
	}

	r, err := reconcile.NewAuditor(lp).Check(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !r.OK() {
		t.Fatalf("findings = %+v, want none", r.Findings)
	}
	if r.CustodyBalance != nil {
		t.Errorf("CustodyBalance = %s, want nil before unlock", r.CustodyBalance)
	}
}

func TestCheckFindsCorruption(t *testing.T) {
	tests := []struct {
		name    string
		corrupt func(t *testing.T, lp *launchpad.Launchpad)
		want    []reconcile.Check
	}{
		{
			name: "global allocated drift",
			corrupt: func(t *testing.T, lp *launchpad.Launchpad) {
				ctx := context.Background()
				st, _ := lp.Store().GetVestingState(ctx)
				st.GlobalAllocated = uint256.NewInt(1_500)
				if err := lp.Store().SaveVestingState(ctx, st); err != nil {
					t.Fatal(err)
				}
			},
			want: []reconcile.Check{reconcile.CheckGlobalAllocated},
		},
		{
			name: "schedule bounds",
			corrupt: func(t *testing.T, lp *launchpad.Launchpad) {
				ctx := context.Background()
				s, err := lp.Store().GetSchedule(ctx, bob)
				if err != nil {
					t.Fatal(err)
				}
				s.Released = uint256.NewInt(5_000)
				if err := lp.Store().SaveSchedule(ctx, s); err != nil {
					t.Fatal(err)
				}
			},
			want: []reconcile.Check{reconcile.CheckReleasedBound},
		},
		{
			name: "claimed beyond total",
			corrupt: func(t *testing.T, lp *launchpad.Launchpad) {
				ctx := context.Background()
				s, _ := lp.Store().GetSchedule(ctx, bob)
				s.ClaimedTotal = uint256.NewInt(1_001)
				if err := lp.Store().SaveSchedule(ctx, s); err != nil {
					t.Fatal(err)
				}
			},
			want: []reconcile.Check{reconcile.CheckClaimedBound, reconcile.CheckGlobalClaimed},
		},
		{
			name: "custody drained",
			corrupt: func(t *testing.T, lp *launchpad.Launchpad) {
				if err := lp.Bank().Transfer(context.Background(), saleToken, custody, thief, uint256.NewInt(10)); err != nil {
					t.Fatal(err)
				}
			},
			want: []reconcile.Check{reconcile.CheckCustodyCoverage},
		},
		{
			name: "presale supply",
			corrupt: func(t *testing.T, lp *launchpad.Launchpad) {
				ctx := context.Background()
				p := &presale.Presale{
					Entity:          types.NewEntity(epoch),
					ID:              7,
					TokensToSell:    uint256.NewInt(10),
					TokensRemaining: uint256.NewInt(11),
					Price:           uint256.NewInt(1),
					StartTime:       epoch,
					EndTime:         epoch.Add(time.Hour),
				}
				if err := lp.Store().SavePresale(ctx, p); err != nil {
					t.Fatal(err)
				}
			},
			want: []reconcile.Check{reconcile.CheckPresaleSupply, reconcile.CheckPresaleSequence},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lp := newLaunchpad(t)
			seed(t, lp)
			tt.corrupt(t, lp)

			r, err := reconcile.NewAuditor(lp, reconcile.WithPageSize(1)).Check(context.Background())
			if err != nil {
				t.Fatalf("Check: %v", err)
			}
			if r.OK() {
				t.Fatal("report OK, want findings")
			}
			for _, c := range tt.want {
				if !r.Has(c) {
					t.Errorf("missing finding %s in %+v", c, r.Findings)
				}
			}
			if len(r.Findings) != len(tt.want) {
				t.Errorf("findings = %+v, want exactly %v", r.Findings, tt.want)
			}
		})
	}
}

func TestValidateSpec(t *testing.T) {
	tests := []struct {
		spec string
		ok   bool
	}{
		{"@every 15m", true},
		{"@hourly", true},
		{"*/5 * * * *", true},
		{"0 */5 * * * *", true},
		{"not a spec", false},
		{"", false},
	}
	for _, tt := range tests {
		err := reconcile.ValidateSpec(tt.spec)
		if (err == nil) != tt.ok {
			t.Errorf("ValidateSpec(%q) = %v, want ok=%v", tt.spec, err, tt.ok)
		}
	}
}

func TestSchedulerRunNowKeepsLast(t *testing.T) {
	lp := newLaunchpad(t)
	ctx := context.Background()

	s, err := reconcile.NewScheduler(ctx, reconcile.NewAuditor(lp), reconcile.DefaultSpec)
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}
	if s.Last() != nil {
		t.Fatal("Last before any run is not nil")
	}

	r, err := s.RunNow(ctx)
	if err != nil {
		t.Fatalf("RunNow: %v", err)
	}
	if s.Last() != r {
		t.Error("Last does not return the latest report")
	}

	s.Start()
	stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := s.Stop(stopCtx); err != nil {
		t.Errorf("Stop: %v", err)
	}
}

func TestSchedulerRejectsBadSpec(t *testing.T) {
	lp := newLaunchpad(t)
	if _, err := reconcile.NewScheduler(context.Background(), reconcile.NewAuditor(lp), "every tuesday"); err == nil {
		t.Fatal("NewScheduler accepted an invalid spec")
	}
}
