package observability_test

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/xraph/launchpad"
	"github.com/xraph/launchpad/observability"
	"github.com/xraph/launchpad/reconcile"
	"github.com/xraph/launchpad/store/memory"
)

var (
	admin     = common.HexToAddress("0x00000000000000000000000000000000000000a0")
	custody   = common.HexToAddress("0x00000000000000000000000000000000000000c0")
	saleAddr  = common.HexToAddress("0x00000000000000000000000000000000000000c1")
	saleToken = common.HexToAddress("0x0000000000000000000000000000000000000070")
	recovery  = common.HexToAddress("0x00000000000000000000000000000000000000ee")
	alice     = common.HexToAddress("0x0000000000000000000000000000000000000a11")
)

func counterValue(t *testing.T, c observability.Counter) float64 {
	t.Helper()
	pc, ok := c.(prometheus.Counter)
	if !ok {
		t.Fatalf("counter %T is not a prometheus.Counter", c)
	}
	return testutil.ToFloat64(pc)
}

func TestMetricsTrackLedgerActivity(t *testing.T) {
	factory := observability.NewPrometheusFactory()
	metrics := observability.NewMetricsExtension(factory)

	epoch := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	lp := launchpad.New(memory.New(),
		launchpad.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		launchpad.WithClock(func() time.Time { return epoch }),
		launchpad.WithAdmin(admin),
		launchpad.WithVestingAddress(custody),
		launchpad.WithPresaleAddress(saleAddr),
		launchpad.WithSaleToken(saleToken),
		launchpad.WithRecoveryAddress(recovery),
		launchpad.WithPlugin(metrics),
	)
	ctx := context.Background()
	if err := lp.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer lp.Stop()

	if err := lp.Vesting().CreateSchedule(ctx, admin, alice, uint256.NewInt(1_000), 0, time.Hour, 500, ""); err != nil {
		t.Fatal(err)
	}
	if err := lp.Bank().Mint(ctx, saleToken, admin, uint256.NewInt(1_000)); err != nil {
		t.Fatal(err)
	}
	if err := lp.Bank().Approve(ctx, saleToken, admin, custody, uint256.NewInt(1_000)); err != nil {
		t.Fatal(err)
	}
	if err := lp.Vesting().StartContract(ctx, admin); err != nil {
		t.Fatal(err)
	}
	if _, err := lp.Vesting().ClaimTGE(ctx, alice); err != nil {
		t.Fatal(err)
	}
	if _, err := reconcile.NewAuditor(lp).Check(ctx); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		c    observability.Counter
		want float64
	}{
		{"schedules created", metrics.SchedulesCreated, 1},
		{"vesting started", metrics.VestingStarted, 1},
		{"tge claims", metrics.TGEClaims, 1},
		{"releases", metrics.Releases, 0},
		{"events recorded", metrics.EventsRecorded, 3},
		{"reconcile runs", metrics.ReconcileRuns, 1},
		{"reconcile failures", metrics.ReconcileFailures, 0},
	}
	for _, tt := range tests {
		if got := counterValue(t, tt.c); got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestPrometheusFactoryReusesCollectors(t *testing.T) {
	f := observability.NewPrometheusFactory()

	a := f.Counter("launchpad.test.hits")
	b := f.Counter("launchpad.test.hits")
	a.Inc()
	b.Add(2)
	if got := counterValue(t, a); got != 3 {
		t.Errorf("counter = %v, want 3", got)
	}

	h := f.Histogram("launchpad.test.size")
	h.Observe(5)
	f.Histogram("launchpad.test.size").Observe(7)

	rec := httptest.NewRecorder()
	f.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body := rec.Body.String()
	for _, want := range []string{
		"launchpad_test_hits_total 3",
		"launchpad_test_size_count 2",
		"launchpad_test_size_sum 12",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("exposition missing %q", want)
		}
	}
}

func TestOnReconciledCountsFindings(t *testing.T) {
	metrics := observability.NewMetricsExtension(observability.NewPrometheusFactory())
	report := &reconcile.Report{
		Duration: "3ms",
		Findings: []reconcile.Finding{
			{Check: reconcile.CheckGlobalAllocated},
			{Check: reconcile.CheckCustodyCoverage},
		},
	}
	if err := metrics.OnReconciled(context.Background(), report); err != nil {
		t.Fatal(err)
	}
	if got := counterValue(t, metrics.ReconcileFailures); got != 1 {
		t.Errorf("failures = %v, want 1", got)
	}
	if got := counterValue(t, metrics.ReconcileFindings); got != 2 {
		t.Errorf("findings = %v, want 2", got)
	}
}
