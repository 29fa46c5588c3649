package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/holiman/uint256"

	"github.com/xraph/launchpad"
	"github.com/xraph/launchpad/id"
	"github.com/xraph/launchpad/presale"
	"github.com/xraph/launchpad/types"
	"github.com/xraph/launchpad/vesting"
)

// DefaultPageSize is how many records the auditor reads per store call.
const DefaultPageSize = 500

// Auditor checks a Launchpad's persisted state.
type Auditor struct {
	lp       *launchpad.Launchpad
	logger   *slog.Logger
	pageSize int
}

// Option configures an Auditor.
type Option func(*Auditor)

// WithLogger sets the logger for the auditor.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Auditor) { a.logger = logger }
}

// WithPageSize sets how many records are read per store call.
func WithPageSize(n int) Option {
	return func(a *Auditor) {
		if n > 0 {
			a.pageSize = n
		}
	}
}

func NewAuditor(lp *launchpad.Launchpad, opts ...Option) *Auditor {
	a := &Auditor{
		lp:       lp,
		logger:   lp.Logger(),
		pageSize: DefaultPageSize,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Check audits the ledgers in one read transaction, hands the report to the
// OnReconciled plugins and returns it. A report with findings is not an
// error; err is set only when the state could not be read.
func (a *Auditor) Check(ctx context.Context) (*Report, error) {
	began := time.Now()
	r := &Report{
		ID:           id.NewReportID(),
		CheckedAt:    a.lp.Now().UTC(),
		SumAllocated: types.Zero(),
		SumClaimed:   types.Zero(),
	}

	err := a.lp.Store().RunInTx(ctx, func(ctx context.Context) error {
		if err := a.checkVesting(ctx, r); err != nil {
			return err
		}
		return a.checkPresales(ctx, r)
	})
	if err != nil {
		return nil, fmt.Errorf("reconcile: %w", err)
	}
	r.Duration = time.Since(began).String()

	for _, f := range r.Findings {
		a.logger.Warn("reconcile: invariant violated",
			"report_id", r.ID.String(),
			"check", string(f.Check),
			"subject", f.Subject,
			"detail", f.Detail,
		)
	}
	a.logger.Info("reconcile: check complete",
		"report_id", r.ID.String(),
		"schedules", r.Schedules,
		"presales", r.Presales,
		"findings", len(r.Findings),
	)

	a.lp.Plugins().EmitReconciled(ctx, r)
	return r, nil
}

func (a *Auditor) checkVesting(ctx context.Context, r *Report) error {
	s := a.lp.Store()

	st, err := s.GetVestingState(ctx)
	if err != nil {
		return err
	}
	r.GlobalAllocated = types.OrZero(st.GlobalAllocated)
	r.GlobalClaimed = types.OrZero(st.GlobalClaimed)

	for offset := 0; ; offset += a.pageSize {
		page, err := s.ListSchedules(ctx, vesting.ListOpts{Offset: offset, Limit: a.pageSize})
		if err != nil {
			return err
		}
		for _, sch := range page {
			a.checkSchedule(r, sch)
		}
		r.Schedules += len(page)
		if len(page) < a.pageSize {
			break
		}
	}

	if !r.SumAllocated.Eq(r.GlobalAllocated) {
		r.add(CheckGlobalAllocated, "vesting", "schedules total %s, global allocated %s", r.SumAllocated, r.GlobalAllocated)
	}
	if !r.SumClaimed.Eq(r.GlobalClaimed) {
		r.add(CheckGlobalClaimed, "vesting", "schedules claimed %s, global claimed %s", r.SumClaimed, r.GlobalClaimed)
	}

	if !st.TGEUnlocked {
		return nil
	}
	if st.StartTime.IsZero() {
		r.add(CheckVestingStartTime, "vesting", "tge unlocked without a start time")
	}

	custody, err := a.lp.Tokens().BalanceOf(ctx, a.lp.SaleToken(), a.lp.VestingAddress())
	if err != nil {
		return err
	}
	r.CustodyBalance = custody
	if outstanding, err := types.Sub(r.GlobalAllocated, r.GlobalClaimed); err != nil {
		r.add(CheckGlobalClaimed, "vesting", "global claimed %s exceeds global allocated %s", r.GlobalClaimed, r.GlobalAllocated)
	} else if custody.Lt(outstanding) {
		r.add(CheckCustodyCoverage, a.lp.VestingAddress().Hex(), "custody holds %s, outstanding %s", custody, outstanding)
	}
	return nil
}

func (a *Auditor) checkSchedule(r *Report, sch *vesting.Schedule) {
	subject := sch.Beneficiary.Hex()
	total := types.OrZero(sch.TotalAllocation)
	claimed := types.OrZero(sch.ClaimedTotal)

	if total.IsZero() {
		r.add(CheckEmptySchedule, subject, "schedule persisted with zero total")
	}
	if types.OrZero(sch.Released).Gt(types.OrZero(sch.VestingPrincipal)) {
		r.add(CheckReleasedBound, subject, "released %s exceeds principal %s", sch.Released, sch.VestingPrincipal)
	}
	if claimed.Gt(total) {
		r.add(CheckClaimedBound, subject, "claimed %s exceeds total %s", claimed, total)
	}

	r.SumAllocated = saturatingAdd(r.SumAllocated, total)
	r.SumClaimed = saturatingAdd(r.SumClaimed, claimed)
}

func (a *Auditor) checkPresales(ctx context.Context, r *Report) error {
	s := a.lp.Store()

	st, err := s.GetPresaleState(ctx)
	if err != nil {
		return err
	}

	for offset := 0; ; offset += a.pageSize {
		page, err := s.ListPresales(ctx, presale.ListOpts{Offset: offset, Limit: a.pageSize})
		if err != nil {
			return err
		}
		for _, p := range page {
			subject := fmt.Sprintf("presale %d", p.ID)
			if types.OrZero(p.TokensRemaining).Gt(types.OrZero(p.TokensToSell)) {
				r.add(CheckPresaleSupply, subject, "remaining %s exceeds supply %s", p.TokensRemaining, p.TokensToSell)
			}
			if p.ID > st.LastID {
				r.add(CheckPresaleSequence, subject, "id beyond last issued id %d", st.LastID)
			}
		}
		r.Presales += len(page)
		if len(page) < a.pageSize {
			break
		}
	}
	return nil
}

// saturatingAdd keeps summing corrupt data from aborting the audit; an
// overflowed sum cannot equal a valid global, so it still surfaces.
func saturatingAdd(a, b *uint256.Int) *uint256.Int {
	sum, err := types.Add(a, b)
	if err != nil {
		return new(uint256.Int).SetAllOne()
	}
	return sum
}
