package launchpad

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/xraph/launchpad/access"
	"github.com/xraph/launchpad/event"
	"github.com/xraph/launchpad/types"
	"github.com/xraph/launchpad/vesting"
)

// Vester is the surface of the vesting ledger the presale ledger depends on.
type Vester interface {
	TGEUnlocked(ctx context.Context) (bool, error)
	Schedule(ctx context.Context, beneficiary common.Address) (*vesting.Schedule, error)
	CreateSchedule(ctx context.Context, caller, beneficiary common.Address, total *uint256.Int, cliff, duration time.Duration, tgeBps uint16, group string) error
	UpdateVestingAmount(ctx context.Context, caller, beneficiary common.Address, newAmount *uint256.Int) error
	AddVestingAmount(ctx context.Context, caller, beneficiary common.Address, additional *uint256.Int) error
}

var _ Vester = (*VestingLedger)(nil)

// VestingLedger tracks per-beneficiary schedules, the one-time TGE unlock
// and linear release after a cliff. All windows are relative to the single
// start time recorded at unlock.
type VestingLedger struct {
	lp    *Launchpad
	guard *guard
}

// ──────────────────────────────────────────────────
// Views
// ──────────────────────────────────────────────────

// State returns the ledger-wide counters.
func (v *VestingLedger) State(ctx context.Context) (*vesting.State, error) {
	return v.lp.store.GetVestingState(ctx)
}

// TGEUnlocked reports whether StartContract has run.
func (v *VestingLedger) TGEUnlocked(ctx context.Context) (bool, error) {
	st, err := v.lp.store.GetVestingState(ctx)
	if err != nil {
		return false, err
	}
	return st.TGEUnlocked, nil
}

// Schedule returns beneficiary's schedule or ErrScheduleNotFound.
func (v *VestingLedger) Schedule(ctx context.Context, beneficiary common.Address) (*vesting.Schedule, error) {
	return v.lp.store.GetSchedule(ctx, beneficiary)
}

// ListSchedules pages through schedules ordered by beneficiary.
func (v *VestingLedger) ListSchedules(ctx context.Context, opts vesting.ListOpts) ([]*vesting.Schedule, error) {
	return v.lp.store.ListSchedules(ctx, opts)
}

// Releasable returns the amount beneficiary can release now. A beneficiary
// without a schedule has nothing releasable.
func (v *VestingLedger) Releasable(ctx context.Context, beneficiary common.Address) (*uint256.Int, error) {
	st, err := v.lp.store.GetVestingState(ctx)
	if err != nil {
		return nil, err
	}
	s, err := v.lp.store.GetSchedule(ctx, beneficiary)
	if errors.Is(err, ErrScheduleNotFound) {
		return types.Zero(), nil
	}
	if err != nil {
		return nil, err
	}
	return vesting.Releasable(s, st, v.lp.now())
}

// ──────────────────────────────────────────────────
// Schedule management
// ──────────────────────────────────────────────────

// CreateSchedule allocates total to beneficiary. tgeBps of it unlocks at the
// TGE and the rest vests linearly over duration after cliff. Once the TGE has
// unlocked, total is pulled from caller into custody.
func (v *VestingLedger) CreateSchedule(ctx context.Context, caller, beneficiary common.Address, total *uint256.Int, cliff, duration time.Duration, tgeBps uint16, group string) error {
	return v.lp.mutate(ctx, v.guard, func(ctx context.Context) error {
		if err := v.lp.authorize(ctx, caller, access.RoleVestingAdmin, access.RoleVestingManager); err != nil {
			return err
		}
		return v.createSchedule(ctx, caller, beneficiary, total, cliff, duration, tgeBps, group)
	})
}

// BatchCreateSchedules creates one schedule per beneficiary with a shared
// shape. Either every schedule is created or none is.
func (v *VestingLedger) BatchCreateSchedules(ctx context.Context, caller common.Address, beneficiaries []common.Address, amounts []*uint256.Int, cliff, duration time.Duration, tgeBps uint16, group string) error {
	return v.lp.mutate(ctx, v.guard, func(ctx context.Context) error {
		if err := v.lp.authorize(ctx, caller, access.RoleVestingAdmin, access.RoleVestingManager); err != nil {
			return err
		}
		if len(beneficiaries) != len(amounts) {
			return fmt.Errorf("%w: %d beneficiaries, %d amounts", ErrLengthMismatch, len(beneficiaries), len(amounts))
		}
		if tgeBps > types.BpsDenominator {
			return ErrInvalidBps
		}
		for i, b := range beneficiaries {
			if err := v.createSchedule(ctx, caller, b, amounts[i], cliff, duration, tgeBps, group); err != nil {
				return fmt.Errorf("launchpad: batch entry %d (%s): %w", i, b.Hex(), err)
			}
		}
		return nil
	})
}

func (v *VestingLedger) createSchedule(ctx context.Context, caller, beneficiary common.Address, total *uint256.Int, cliff, duration time.Duration, tgeBps uint16, group string) error {
	if beneficiary == (common.Address{}) {
		return invalid("beneficiary", "must not be the zero address", ErrZeroAddress)
	}
	if total == nil || total.IsZero() {
		return invalid("total", "must be positive", ErrZeroAmount)
	}
	if tgeBps > types.BpsDenominator {
		return ErrInvalidBps
	}
	if cliff < 0 || duration < 0 {
		return invalid("duration", "must not be negative", ErrInvalidDuration)
	}

	if _, err := v.lp.store.GetSchedule(ctx, beneficiary); err == nil {
		return fmt.Errorf("%w: %s", ErrScheduleExists, beneficiary.Hex())
	} else if !errors.Is(err, ErrScheduleNotFound) {
		return err
	}

	_, principal, err := vesting.Split(total, tgeBps)
	if err != nil {
		return err
	}

	st, err := v.lp.store.GetVestingState(ctx)
	if err != nil {
		return err
	}
	if st.GlobalAllocated, err = types.Add(st.GlobalAllocated, total); err != nil {
		return err
	}

	now := v.lp.now()
	s := &vesting.Schedule{
		Entity:           types.NewEntity(now),
		Beneficiary:      beneficiary,
		TotalAllocation:  total.Clone(),
		VestingPrincipal: principal,
		Cliff:            cliff,
		Duration:         duration,
		Released:         types.Zero(),
		ClaimedTotal:     types.Zero(),
		TGEBps:           tgeBps,
		Group:            group,
	}
	if err := v.lp.store.SaveSchedule(ctx, s); err != nil {
		return err
	}
	st.UpdatedAt = now
	if err := v.lp.store.SaveVestingState(ctx, st); err != nil {
		return err
	}

	if st.TGEUnlocked {
		if err := v.pull(ctx, caller, total); err != nil {
			return err
		}
	}

	v.lp.logger.Debug("vesting schedule created",
		"beneficiary", beneficiary.Hex(),
		"total", total.Dec(),
		"tge_bps", tgeBps,
		"group", group,
	)

	created := s.Clone()
	rec := event.New(event.KindScheduleCreated, event.LedgerVesting, caller, now).
		About(beneficiary).
		With("total", total.Dec()).
		With("principal", principal.Dec()).
		With("cliff", cliff.String()).
		With("duration", duration.String()).
		With("tge_bps", strconv.Itoa(int(tgeBps))).
		With("group", group)
	return v.lp.record(ctx, rec, func(ctx context.Context) {
		v.lp.plugins.EmitScheduleCreated(ctx, created)
	})
}

// UpdateVestingAmount replaces beneficiary's allocation before the TGE,
// recomputing the split with the schedule's bps. By default the stored total
// becomes the recomputed principal; WithStrictVestingTotals stores newAmount.
// The global allocation moves by the change in stored total.
func (v *VestingLedger) UpdateVestingAmount(ctx context.Context, caller, beneficiary common.Address, newAmount *uint256.Int) error {
	return v.lp.mutate(ctx, v.guard, func(ctx context.Context) error {
		s, st, err := v.editable(ctx, caller, beneficiary)
		if err != nil {
			return err
		}
		if newAmount == nil || newAmount.IsZero() {
			return invalid("amount", "must be positive", ErrZeroAmount)
		}

		_, principal, err := vesting.Split(newAmount, s.TGEBps)
		if err != nil {
			return err
		}
		newTotal := principal
		if v.lp.strictTotals {
			newTotal = newAmount.Clone()
		}
		if newTotal.IsZero() {
			return invalid("amount", "leaves an empty allocation", ErrZeroAmount)
		}

		oldTotal := types.OrZero(s.TotalAllocation)
		allocated, err := types.Sub(st.GlobalAllocated, oldTotal)
		if err != nil {
			return err
		}
		if st.GlobalAllocated, err = types.Add(allocated, newTotal); err != nil {
			return err
		}

		now := v.lp.now()
		s.TotalAllocation = newTotal
		s.VestingPrincipal = principal
		s.Touch(now)
		st.UpdatedAt = now
		if err := v.save(ctx, s, st); err != nil {
			return err
		}

		rec := event.New(event.KindVestingAmountUpdated, event.LedgerVesting, caller, now).
			About(beneficiary).
			With("old_total", oldTotal.Dec()).
			With("new_total", newTotal.Dec()).
			With("principal", principal.Dec())
		return v.lp.record(ctx, rec)
	})
}

// AddVestingAmount adds to beneficiary's allocation before the TGE and
// recomputes the split from the new total.
func (v *VestingLedger) AddVestingAmount(ctx context.Context, caller, beneficiary common.Address, additional *uint256.Int) error {
	return v.lp.mutate(ctx, v.guard, func(ctx context.Context) error {
		s, st, err := v.editable(ctx, caller, beneficiary)
		if err != nil {
			return err
		}
		if additional == nil || additional.IsZero() {
			return invalid("amount", "must be positive", ErrZeroAmount)
		}

		total, err := types.Add(s.TotalAllocation, additional)
		if err != nil {
			return err
		}
		_, principal, err := vesting.Split(total, s.TGEBps)
		if err != nil {
			return err
		}
		if st.GlobalAllocated, err = types.Add(st.GlobalAllocated, additional); err != nil {
			return err
		}

		now := v.lp.now()
		s.TotalAllocation = total
		s.VestingPrincipal = principal
		s.Touch(now)
		st.UpdatedAt = now
		if err := v.save(ctx, s, st); err != nil {
			return err
		}

		rec := event.New(event.KindVestingAmountAdded, event.LedgerVesting, caller, now).
			About(beneficiary).
			With("added", additional.Dec()).
			With("new_total", total.Dec()).
			With("principal", principal.Dec())
		return v.lp.record(ctx, rec)
	})
}

// UpdateVestingDates changes beneficiary's cliff and duration before the TGE.
// duration must exceed cliff.
func (v *VestingLedger) UpdateVestingDates(ctx context.Context, caller, beneficiary common.Address, cliff, duration time.Duration) error {
	return v.lp.mutate(ctx, v.guard, func(ctx context.Context) error {
		s, _, err := v.editable(ctx, caller, beneficiary)
		if err != nil {
			return err
		}
		if cliff < 0 || duration <= cliff {
			return invalid("duration", "must exceed the cliff", ErrInvalidDuration)
		}

		oldCliff, oldDuration := s.Cliff, s.Duration
		now := v.lp.now()
		s.Cliff = cliff
		s.Duration = duration
		s.Touch(now)
		if err := v.lp.store.SaveSchedule(ctx, s); err != nil {
			return err
		}

		rec := event.New(event.KindVestingDatesUpdated, event.LedgerVesting, caller, now).
			About(beneficiary).
			With("old_cliff", oldCliff.String()).
			With("old_duration", oldDuration.String()).
			With("cliff", cliff.String()).
			With("duration", duration.String())
		return v.lp.record(ctx, rec)
	})
}

// UpdateVestingGroup relabels beneficiary's schedule before the TGE.
func (v *VestingLedger) UpdateVestingGroup(ctx context.Context, caller, beneficiary common.Address, group string) error {
	return v.lp.mutate(ctx, v.guard, func(ctx context.Context) error {
		s, _, err := v.editable(ctx, caller, beneficiary)
		if err != nil {
			return err
		}

		old := s.Group
		now := v.lp.now()
		s.Group = group
		s.Touch(now)
		if err := v.lp.store.SaveSchedule(ctx, s); err != nil {
			return err
		}

		rec := event.New(event.KindVestingGroupUpdated, event.LedgerVesting, caller, now).
			About(beneficiary).
			With("old_group", old).
			With("group", group)
		return v.lp.record(ctx, rec)
	})
}

// DeleteBeneficiary removes beneficiary's schedule. After the TGE it is only
// allowed before the beneficiary's cliff ends, and everything not yet paid
// out is returned from custody to the recovery address.
func (v *VestingLedger) DeleteBeneficiary(ctx context.Context, caller, beneficiary common.Address) error {
	return v.lp.mutate(ctx, v.guard, func(ctx context.Context) error {
		if err := v.lp.authorize(ctx, caller, access.RoleVestingManager); err != nil {
			return err
		}
		s, err := v.lp.store.GetSchedule(ctx, beneficiary)
		if err != nil {
			return err
		}
		st, err := v.lp.store.GetVestingState(ctx)
		if err != nil {
			return err
		}

		now := v.lp.now()
		if st.TGEUnlocked {
			if !now.Before(s.End(st.StartTime)) {
				return ErrFullyVested
			}
			if !now.Before(s.CliffEnd(st.StartTime)) {
				return ErrVestingInProgress
			}
		}

		total := types.OrZero(s.TotalAllocation)
		claimed := types.OrZero(s.ClaimedTotal)
		reclaimed, err := types.Sub(total, claimed)
		if err != nil {
			return err
		}
		if st.GlobalAllocated, err = types.Sub(st.GlobalAllocated, total); err != nil {
			return err
		}
		if st.GlobalClaimed, err = types.Sub(st.GlobalClaimed, claimed); err != nil {
			return err
		}
		st.UpdatedAt = now

		if err := v.lp.store.DeleteSchedule(ctx, beneficiary); err != nil {
			return err
		}
		if err := v.lp.store.SaveVestingState(ctx, st); err != nil {
			return err
		}

		if !st.TGEUnlocked {
			reclaimed = types.Zero()
		} else if !reclaimed.IsZero() {
			if err := v.lp.tokens.Transfer(ctx, v.lp.saleToken, v.lp.vestingAddress, v.lp.recoveryAddress, reclaimed); err != nil {
				return transferFailed(err)
			}
		}

		v.lp.logger.Info("vesting beneficiary deleted",
			"beneficiary", beneficiary.Hex(),
			"reclaimed", reclaimed.Dec(),
		)

		rec := event.New(event.KindBeneficiaryDeleted, event.LedgerVesting, caller, now).
			About(beneficiary).
			With("total", total.Dec()).
			With("reclaimed", reclaimed.Dec())
		return v.lp.record(ctx, rec, func(ctx context.Context) {
			v.lp.plugins.EmitBeneficiaryDeleted(ctx, beneficiary, reclaimed)
		})
	})
}

// ──────────────────────────────────────────────────
// TGE and payouts
// ──────────────────────────────────────────────────

// StartContract unlocks the TGE and starts every vesting clock. Custody is
// topped up from caller to cover the global allocation.
func (v *VestingLedger) StartContract(ctx context.Context, caller common.Address) error {
	return v.lp.mutate(ctx, v.guard, func(ctx context.Context) error {
		if err := v.lp.authorize(ctx, caller, access.RoleVestingAdmin); err != nil {
			return err
		}
		st, err := v.lp.store.GetVestingState(ctx)
		if err != nil {
			return err
		}
		if st.TGEUnlocked {
			return ErrAlreadyStarted
		}

		now := v.lp.now()
		st.TGEUnlocked = true
		st.StartTime = now
		st.UpdatedAt = now
		if err := v.lp.store.SaveVestingState(ctx, st); err != nil {
			return err
		}

		custody, err := v.lp.tokens.BalanceOf(ctx, v.lp.saleToken, v.lp.vestingAddress)
		if err != nil {
			return err
		}
		shortfall := types.Zero()
		if st.GlobalAllocated.Gt(custody) {
			shortfall.Sub(st.GlobalAllocated, custody)
			if err := v.pull(ctx, caller, shortfall); err != nil {
				return err
			}
		}

		v.lp.logger.Info("vesting started",
			"start_time", now,
			"global_allocated", st.GlobalAllocated.Dec(),
			"funded", shortfall.Dec(),
		)

		rec := event.New(event.KindVestingStarted, event.LedgerVesting, caller, now).
			With("start_time", now.UTC().Format(time.RFC3339)).
			With("global_allocated", st.GlobalAllocated.Dec()).
			With("funded", shortfall.Dec())
		return v.lp.record(ctx, rec, func(ctx context.Context) {
			v.lp.plugins.EmitVestingStarted(ctx, now, shortfall)
		})
	})
}

// ClaimTGE pays caller the TGE share of its current total, once.
func (v *VestingLedger) ClaimTGE(ctx context.Context, caller common.Address) (*uint256.Int, error) {
	var amount *uint256.Int
	err := v.lp.mutate(ctx, v.guard, func(ctx context.Context) error {
		st, err := v.payable(ctx)
		if err != nil {
			return err
		}
		s, err := v.lp.store.GetSchedule(ctx, caller)
		if err != nil {
			return err
		}
		if s.TGEClaimed {
			return ErrTGEAlreadyClaimed
		}

		if amount, err = s.TGEAmount(); err != nil {
			return err
		}
		if err := v.payout(ctx, s, st, amount); err != nil {
			return err
		}
		s.TGEClaimed = true
		if err := v.save(ctx, s, st); err != nil {
			return err
		}

		paid := amount.Clone()
		rec := event.New(event.KindTGEClaimed, event.LedgerVesting, caller, s.UpdatedAt).
			About(caller).
			With("amount", paid.Dec()).
			With("claimed_total", s.ClaimedTotal.Dec())
		if err := v.lp.record(ctx, rec, func(ctx context.Context) {
			v.lp.plugins.EmitTGEClaimed(ctx, caller, paid)
		}); err != nil {
			return err
		}
		return v.transferOut(ctx, caller, amount)
	})
	if err != nil {
		return nil, err
	}
	return amount, nil
}

// Release pays caller amount of its linearly vested principal.
func (v *VestingLedger) Release(ctx context.Context, caller common.Address, amount *uint256.Int) error {
	return v.lp.mutate(ctx, v.guard, func(ctx context.Context) error {
		st, err := v.payable(ctx)
		if err != nil {
			return err
		}
		if amount == nil || amount.IsZero() {
			return invalid("amount", "must be positive", ErrZeroAmount)
		}
		s, err := v.lp.store.GetSchedule(ctx, caller)
		if err != nil {
			return err
		}
		releasable, err := vesting.Releasable(s, st, v.lp.now())
		if err != nil {
			return err
		}
		if amount.Gt(releasable) {
			return fmt.Errorf("%w: requested %s, releasable %s", ErrExceedsReleasable, amount.Dec(), releasable.Dec())
		}

		if s.Released, err = types.Add(s.Released, amount); err != nil {
			return err
		}
		if err := v.payout(ctx, s, st, amount); err != nil {
			return err
		}
		if err := v.save(ctx, s, st); err != nil {
			return err
		}

		paid := amount.Clone()
		rec := event.New(event.KindReleased, event.LedgerVesting, caller, s.UpdatedAt).
			About(caller).
			With("amount", paid.Dec()).
			With("released", s.Released.Dec()).
			With("claimed_total", s.ClaimedTotal.Dec())
		if err := v.lp.record(ctx, rec, func(ctx context.Context) {
			v.lp.plugins.EmitReleased(ctx, caller, paid)
		}); err != nil {
			return err
		}
		return v.transferOut(ctx, caller, amount)
	})
}

// ──────────────────────────────────────────────────
// Administration
// ──────────────────────────────────────────────────

// Pause blocks ClaimTGE and Release.
func (v *VestingLedger) Pause(ctx context.Context, caller common.Address) error {
	return v.setPaused(ctx, caller, true)
}

// Unpause lifts Pause.
func (v *VestingLedger) Unpause(ctx context.Context, caller common.Address) error {
	return v.setPaused(ctx, caller, false)
}

func (v *VestingLedger) setPaused(ctx context.Context, caller common.Address, paused bool) error {
	return v.lp.mutate(ctx, v.guard, func(ctx context.Context) error {
		if err := v.lp.authorize(ctx, caller, access.RoleVestingAdmin); err != nil {
			return err
		}
		st, err := v.lp.store.GetVestingState(ctx)
		if err != nil {
			return err
		}
		if st.Paused == paused {
			if paused {
				return ErrPaused
			}
			return ErrNotPaused
		}

		now := v.lp.now()
		st.Paused = paused
		st.UpdatedAt = now
		if err := v.lp.store.SaveVestingState(ctx, st); err != nil {
			return err
		}

		kind := event.KindVestingUnpaused
		if paused {
			kind = event.KindVestingPaused
		}
		v.lp.logger.Info("vesting pause changed", "paused", paused)
		return v.lp.record(ctx, event.New(kind, event.LedgerVesting, caller, now))
	})
}

// EmergencyWithdraw sweeps custody's whole balance of tokenAddr (token.Native
// for native currency) to to. Accounting is left untouched.
func (v *VestingLedger) EmergencyWithdraw(ctx context.Context, caller, to, tokenAddr common.Address) (*uint256.Int, error) {
	var swept *uint256.Int
	err := v.lp.mutate(ctx, v.guard, func(ctx context.Context) error {
		if err := v.lp.authorize(ctx, caller, access.RoleVestingAdmin); err != nil {
			return err
		}
		if to == (common.Address{}) {
			return invalid("to", "must not be the zero address", ErrZeroAddress)
		}
		bal, err := v.lp.tokens.BalanceOf(ctx, tokenAddr, v.lp.vestingAddress)
		if err != nil {
			return err
		}
		swept = bal
		if !bal.IsZero() {
			if err := v.lp.tokens.Transfer(ctx, tokenAddr, v.lp.vestingAddress, to, bal); err != nil {
				return transferFailed(err)
			}
		}

		v.lp.logger.Warn("vesting emergency withdraw",
			"token", tokenAddr.Hex(),
			"to", to.Hex(),
			"amount", bal.Dec(),
		)

		rec := event.New(event.KindEmergencyWithdrawn, event.LedgerVesting, caller, v.lp.now()).
			About(to).
			With("token", tokenAddr.Hex()).
			With("amount", bal.Dec())
		return v.lp.record(ctx, rec)
	})
	if err != nil {
		return nil, err
	}
	return swept, nil
}

// ──────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────

// editable loads a schedule for a manager edit made before the TGE.
func (v *VestingLedger) editable(ctx context.Context, caller, beneficiary common.Address) (*vesting.Schedule, *vesting.State, error) {
	if err := v.lp.authorize(ctx, caller, access.RoleVestingManager); err != nil {
		return nil, nil, err
	}
	st, err := v.lp.store.GetVestingState(ctx)
	if err != nil {
		return nil, nil, err
	}
	if st.TGEUnlocked {
		return nil, nil, ErrAlreadyStarted
	}
	s, err := v.lp.store.GetSchedule(ctx, beneficiary)
	if err != nil {
		return nil, nil, err
	}
	return s, st, nil
}

// payable loads the state for a payout, which needs an unpaused, started ledger.
func (v *VestingLedger) payable(ctx context.Context) (*vesting.State, error) {
	st, err := v.lp.store.GetVestingState(ctx)
	if err != nil {
		return nil, err
	}
	if st.Paused {
		return nil, ErrPaused
	}
	if !st.TGEUnlocked {
		return nil, ErrNotStarted
	}
	return st, nil
}

// payout books amount as claimed on s and st.
func (v *VestingLedger) payout(ctx context.Context, s *vesting.Schedule, st *vesting.State, amount *uint256.Int) error {
	var err error
	if s.ClaimedTotal, err = types.Add(s.ClaimedTotal, amount); err != nil {
		return err
	}
	if s.ClaimedTotal.Gt(s.TotalAllocation) {
		return fmt.Errorf("%w: claimed %s of %s", ErrExceedsAllocation, s.ClaimedTotal.Dec(), types.OrZero(s.TotalAllocation).Dec())
	}
	if st.GlobalClaimed, err = types.Add(st.GlobalClaimed, amount); err != nil {
		return err
	}
	now := v.lp.now()
	s.Touch(now)
	st.UpdatedAt = now
	return nil
}

func (v *VestingLedger) save(ctx context.Context, s *vesting.Schedule, st *vesting.State) error {
	if err := v.lp.store.SaveSchedule(ctx, s); err != nil {
		return err
	}
	return v.lp.store.SaveVestingState(ctx, st)
}

// pull moves amount of the sale token from caller into custody.
func (v *VestingLedger) pull(ctx context.Context, caller common.Address, amount *uint256.Int) error {
	err := v.lp.tokens.TransferFrom(ctx, v.lp.saleToken, v.lp.vestingAddress, caller, v.lp.vestingAddress, amount)
	return transferFailed(err)
}

// transferOut pays amount of the sale token from custody to to. It runs last
// so every state change is staged before the recipient's hook can observe it.
func (v *VestingLedger) transferOut(ctx context.Context, to common.Address, amount *uint256.Int) error {
	err := v.lp.tokens.Transfer(ctx, v.lp.saleToken, v.lp.vestingAddress, to, amount)
	return transferFailed(err)
}
