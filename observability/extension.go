// Package observability provides a metrics extension for Launchpad that
// records ledger activity through a MetricFactory.
package observability

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/xraph/launchpad/event"
	"github.com/xraph/launchpad/plugin"
	"github.com/xraph/launchpad/presale"
	"github.com/xraph/launchpad/reconcile"
	"github.com/xraph/launchpad/vesting"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin               = (*MetricsExtension)(nil)
	_ plugin.OnInit               = (*MetricsExtension)(nil)
	_ plugin.OnEvent              = (*MetricsExtension)(nil)
	_ plugin.OnScheduleCreated    = (*MetricsExtension)(nil)
	_ plugin.OnVestingStarted     = (*MetricsExtension)(nil)
	_ plugin.OnTGEClaimed         = (*MetricsExtension)(nil)
	_ plugin.OnReleased           = (*MetricsExtension)(nil)
	_ plugin.OnBeneficiaryDeleted = (*MetricsExtension)(nil)
	_ plugin.OnPresaleCreated     = (*MetricsExtension)(nil)
	_ plugin.OnPresaleCancelled   = (*MetricsExtension)(nil)
	_ plugin.OnPurchased          = (*MetricsExtension)(nil)
	_ plugin.OnReconciled         = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records ledger activity. Amount histograms observe raw
// token units.
type MetricsExtension struct {
	factory MetricFactory

	EventsRecorded Counter

	// Vesting metrics
	SchedulesCreated    Counter
	ScheduleAllocation  Histogram
	VestingStarted      Counter
	VestingFunded       Histogram
	TGEClaims           Counter
	TGEClaimedAmount    Histogram
	Releases            Counter
	ReleasedAmount      Histogram
	BeneficiaryDeleted  Counter
	ReclaimedAllocation Histogram

	// Presale metrics
	PresalesCreated   Counter
	PresalesCancelled Counter
	Purchases         Counter
	PurchasedAmount   Histogram
	PurchaseCost      Histogram

	// Reconciliation metrics
	ReconcileRuns      Counter
	ReconcileFailures  Counter
	ReconcileFindings  Counter
	ReconcileLatencyMs Histogram
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		EventsRecorded: factory.Counter("launchpad.events.recorded"),

		SchedulesCreated:    factory.Counter("launchpad.vesting.schedules.created"),
		ScheduleAllocation:  factory.Histogram("launchpad.vesting.schedule.allocation"),
		VestingStarted:      factory.Counter("launchpad.vesting.started"),
		VestingFunded:       factory.Histogram("launchpad.vesting.funded"),
		TGEClaims:           factory.Counter("launchpad.vesting.tge.claims"),
		TGEClaimedAmount:    factory.Histogram("launchpad.vesting.tge.amount"),
		Releases:            factory.Counter("launchpad.vesting.releases"),
		ReleasedAmount:      factory.Histogram("launchpad.vesting.released.amount"),
		BeneficiaryDeleted:  factory.Counter("launchpad.vesting.beneficiaries.deleted"),
		ReclaimedAllocation: factory.Histogram("launchpad.vesting.reclaimed.amount"),

		PresalesCreated:   factory.Counter("launchpad.presale.created"),
		PresalesCancelled: factory.Counter("launchpad.presale.cancelled"),
		Purchases:         factory.Counter("launchpad.presale.purchases"),
		PurchasedAmount:   factory.Histogram("launchpad.presale.purchased.amount"),
		PurchaseCost:      factory.Histogram("launchpad.presale.purchase.cost"),

		ReconcileRuns:      factory.Counter("launchpad.reconcile.runs"),
		ReconcileFailures:  factory.Counter("launchpad.reconcile.failures"),
		ReconcileFindings:  factory.Counter("launchpad.reconcile.findings"),
		ReconcileLatencyMs: factory.Histogram("launchpad.reconcile.latency_ms"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ interface{}) error {
	return nil
}

// OnEvent implements plugin.OnEvent.
func (m *MetricsExtension) OnEvent(_ context.Context, _ *event.Record) error {
	m.EventsRecorded.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Vesting hooks
// ──────────────────────────────────────────────────

func (m *MetricsExtension) OnScheduleCreated(_ context.Context, s *vesting.Schedule) error {
	m.SchedulesCreated.Inc()
	m.ScheduleAllocation.Observe(units(s.TotalAllocation))
	return nil
}

func (m *MetricsExtension) OnVestingStarted(_ context.Context, _ time.Time, funded *uint256.Int) error {
	m.VestingStarted.Inc()
	m.VestingFunded.Observe(units(funded))
	return nil
}

func (m *MetricsExtension) OnTGEClaimed(_ context.Context, _ common.Address, amount *uint256.Int) error {
	m.TGEClaims.Inc()
	m.TGEClaimedAmount.Observe(units(amount))
	return nil
}

func (m *MetricsExtension) OnReleased(_ context.Context, _ common.Address, amount *uint256.Int) error {
	m.Releases.Inc()
	m.ReleasedAmount.Observe(units(amount))
	return nil
}

func (m *MetricsExtension) OnBeneficiaryDeleted(_ context.Context, _ common.Address, reclaimed *uint256.Int) error {
	m.BeneficiaryDeleted.Inc()
	m.ReclaimedAllocation.Observe(units(reclaimed))
	return nil
}

// ──────────────────────────────────────────────────
// Presale hooks
// ──────────────────────────────────────────────────

func (m *MetricsExtension) OnPresaleCreated(_ context.Context, _ *presale.Presale) error {
	m.PresalesCreated.Inc()
	return nil
}

func (m *MetricsExtension) OnPresaleCancelled(_ context.Context, _ uint64) error {
	m.PresalesCancelled.Inc()
	return nil
}

func (m *MetricsExtension) OnPurchased(_ context.Context, _ *presale.Purchase, amount, cost *uint256.Int) error {
	m.Purchases.Inc()
	m.PurchasedAmount.Observe(units(amount))
	m.PurchaseCost.Observe(units(cost))
	return nil
}

// ──────────────────────────────────────────────────
// Reconciliation hooks
// ──────────────────────────────────────────────────

// OnReconciled implements plugin.OnReconciled.
func (m *MetricsExtension) OnReconciled(_ context.Context, report interface{}) error {
	r, ok := report.(*reconcile.Report)
	if !ok {
		return nil
	}
	m.ReconcileRuns.Inc()
	if !r.OK() {
		m.ReconcileFailures.Inc()
		m.ReconcileFindings.Add(float64(len(r.Findings)))
	}
	if d, err := time.ParseDuration(r.Duration); err == nil {
		m.ReconcileLatencyMs.Observe(float64(d.Milliseconds()))
	}
	return nil
}

// units converts x to the nearest float64; nil is 0.
func units(x *uint256.Int) float64 {
	if x == nil {
		return 0
	}
	f, _ := new(big.Float).SetInt(x.ToBig()).Float64()
	return f
}
