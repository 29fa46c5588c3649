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
	"github.com/xraph/launchpad/presale"
	"github.com/xraph/launchpad/token"
	"github.com/xraph/launchpad/types"
)

// PresaleLedger runs time-boxed sales of the sale token. Buyers pay in a
// payment token or native currency; a sale may defer delivery into vesting.
type PresaleLedger struct {
	lp     *Launchpad
	guard  *guard
	vester Vester
}

// ──────────────────────────────────────────────────
// Views
// ──────────────────────────────────────────────────

// State returns the ledger-wide presale state.
func (p *PresaleLedger) State(ctx context.Context) (*presale.State, error) {
	return p.lp.store.GetPresaleState(ctx)
}

// Presale returns the presale with presaleID or ErrPresaleNotFound.
func (p *PresaleLedger) Presale(ctx context.Context, presaleID uint64) (*presale.Presale, error) {
	return p.lp.store.GetPresale(ctx, presaleID)
}

// ListPresales pages through live presales ordered by id.
func (p *PresaleLedger) ListPresales(ctx context.Context, opts presale.ListOpts) ([]*presale.Presale, error) {
	return p.lp.store.ListPresales(ctx, opts)
}

// IsWhitelisted reports whether addr may buy in a whitelisted presale.
func (p *PresaleLedger) IsWhitelisted(ctx context.Context, presaleID uint64, addr common.Address) (bool, error) {
	if _, err := p.lp.store.GetPresale(ctx, presaleID); err != nil {
		return false, err
	}
	return p.lp.store.IsWhitelisted(ctx, presaleID, addr)
}

// UserPurchase returns user's position in a presale. A user who never bought
// gets a zero position.
func (p *PresaleLedger) UserPurchase(ctx context.Context, presaleID uint64, user common.Address) (*presale.Purchase, error) {
	if _, err := p.lp.store.GetPresale(ctx, presaleID); err != nil {
		return nil, err
	}
	pu, err := p.lp.store.GetPurchase(ctx, presaleID, user)
	if errors.Is(err, ErrPurchaseNotFound) {
		return &presale.Purchase{PresaleID: presaleID, Buyer: user, Amount: types.Zero(), Seq: -1}, nil
	}
	return pu, err
}

// UserTotalPurchase sums user's purchases across every presale.
func (p *PresaleLedger) UserTotalPurchase(ctx context.Context, user common.Address) (*uint256.Int, error) {
	purchases, err := p.lp.store.ListPurchasesByBuyer(ctx, user)
	if err != nil {
		return nil, err
	}
	total := types.Zero()
	for _, pu := range purchases {
		if total, err = types.Add(total, pu.Amount); err != nil {
			return nil, err
		}
	}
	return total, nil
}

// PresaleUsers returns participants [start, end) in first-purchase order.
// The range must be non-empty and within the participant count.
func (p *PresaleLedger) PresaleUsers(ctx context.Context, presaleID uint64, start, end int) ([]common.Address, error) {
	count, err := p.PresaleUserCount(ctx, presaleID)
	if err != nil {
		return nil, err
	}
	if start < 0 || end <= start || end > count {
		return nil, fmt.Errorf("%w: [%d, %d) of %d participants", ErrInvalidRange, start, end, count)
	}
	return p.lp.store.ListParticipants(ctx, presaleID, start, end-start)
}

// PresaleUserCount returns how many distinct buyers a presale has.
func (p *PresaleLedger) PresaleUserCount(ctx context.Context, presaleID uint64) (int, error) {
	if _, err := p.lp.store.GetPresale(ctx, presaleID); err != nil {
		return 0, err
	}
	return p.lp.store.CountParticipants(ctx, presaleID)
}

// ──────────────────────────────────────────────────
// Presale management
// ──────────────────────────────────────────────────

// CreatePresale validates cfg and stores it under the next id. The engine's
// sale token is the presale's initial sale token.
func (p *PresaleLedger) CreatePresale(ctx context.Context, caller common.Address, cfg presale.Config) (*presale.Presale, error) {
	var created *presale.Presale
	err := p.lp.mutate(ctx, p.guard, func(ctx context.Context) error {
		if err := p.lp.authorize(ctx, caller, access.RolePresaleAdmin); err != nil {
			return err
		}
		now := p.lp.now()
		if err := validateConfig(cfg, now); err != nil {
			return err
		}
		if cfg.DeferToVesting {
			unlocked, err := p.vester.TGEUnlocked(ctx)
			if err != nil {
				return err
			}
			if unlocked {
				return fmt.Errorf("%w: deferred delivery needs a locked TGE", ErrAlreadyStarted)
			}
		}

		st, err := p.lp.store.GetPresaleState(ctx)
		if err != nil {
			return err
		}
		st.LastID++
		st.UpdatedAt = now
		if err := p.lp.store.SavePresaleState(ctx, st); err != nil {
			return err
		}

		ps := &presale.Presale{
			Entity:           types.NewEntity(now),
			ID:               st.LastID,
			SaleToken:        p.lp.saleToken,
			PaymentToken:     cfg.PaymentToken,
			TokensToSell:     cfg.TokensToSell.Clone(),
			TokensRemaining:  cfg.TokensToSell.Clone(),
			StartTime:        cfg.StartTime,
			EndTime:          cfg.EndTime,
			Price:            cfg.Price.Clone(),
			SaleDecimals:     cfg.SaleDecimals,
			Destination:      cfg.Destination,
			WhitelistEnabled: cfg.WhitelistEnabled,
			DeferToVesting:   cfg.DeferToVesting,
			Vesting:          cfg.Vesting,
		}
		if err := p.lp.store.SavePresale(ctx, ps); err != nil {
			return err
		}
		created = ps.Clone()

		p.lp.logger.Info("presale created",
			"presale_id", ps.ID,
			"tokens_to_sell", ps.TokensToSell.Dec(),
			"price", ps.Price.Dec(),
			"start_time", ps.StartTime,
			"end_time", ps.EndTime,
		)

		notified := ps.Clone()
		rec := event.New(event.KindPresaleCreated, event.LedgerPresale, caller, now).
			ForPresale(ps.ID).
			With("tokens_to_sell", ps.TokensToSell.Dec()).
			With("price", ps.Price.Dec()).
			With("payment_token", ps.PaymentToken.Hex()).
			With("start_time", formatTime(ps.StartTime)).
			With("end_time", formatTime(ps.EndTime)).
			With("defer_to_vesting", strconv.FormatBool(ps.DeferToVesting))
		return p.lp.record(ctx, rec, func(ctx context.Context) {
			p.lp.plugins.EmitPresaleCreated(ctx, notified)
		})
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func validateConfig(cfg presale.Config, now time.Time) error {
	if !cfg.StartTime.After(now) {
		return invalid("start_time", "must be in the future", ErrInvalidTime)
	}
	if !cfg.EndTime.After(cfg.StartTime) {
		return invalid("end_time", "must be after the start time", ErrInvalidTime)
	}
	if cfg.Price == nil || cfg.Price.IsZero() {
		return invalid("price", "must be positive", ErrZeroAmount)
	}
	if cfg.TokensToSell == nil || cfg.TokensToSell.IsZero() {
		return invalid("tokens_to_sell", "must be positive", ErrZeroAmount)
	}
	if cfg.SaleDecimals == 0 || cfg.SaleDecimals > types.MaxDecimals {
		return invalid("sale_decimals", fmt.Sprintf("must be between 1 and %d", types.MaxDecimals), ErrInvalidInput)
	}
	if cfg.Destination == (common.Address{}) {
		return invalid("destination", "must not be the zero address", ErrZeroAddress)
	}
	if cfg.Vesting.TGEBps > types.BpsDenominator {
		return ErrInvalidBps
	}
	if cfg.Vesting.Cliff < 0 || cfg.Vesting.Duration < 0 {
		return invalid("vesting", "durations must not be negative", ErrInvalidDuration)
	}
	return nil
}

// CancelPresale deletes a presale that has not started.
func (p *PresaleLedger) CancelPresale(ctx context.Context, caller common.Address, presaleID uint64) error {
	return p.lp.mutate(ctx, p.guard, func(ctx context.Context) error {
		if err := p.lp.authorize(ctx, caller, access.RolePresaleAdmin); err != nil {
			return err
		}
		ps, err := p.lp.store.GetPresale(ctx, presaleID)
		if err != nil {
			return err
		}
		now := p.lp.now()
		if ps.Started(now) {
			return ErrSaleStarted
		}
		if err := p.lp.store.DeletePresale(ctx, presaleID); err != nil {
			return err
		}
		p.lp.logger.Info("presale cancelled", "presale_id", presaleID)

		rec := event.New(event.KindPresaleCancelled, event.LedgerPresale, caller, now).ForPresale(presaleID)
		return p.lp.record(ctx, rec, func(ctx context.Context) {
			p.lp.plugins.EmitPresaleCancelled(ctx, presaleID)
		})
	})
}

// ChangeSaleTimes moves the sale window. A zero time leaves that bound
// unchanged. The start can only move before the sale starts and only into
// the future; the end can only move before the sale ends and must stay after
// the start.
func (p *PresaleLedger) ChangeSaleTimes(ctx context.Context, caller common.Address, presaleID uint64, start, end time.Time) error {
	return p.edit(ctx, caller, presaleID, func(ctx context.Context, ps *presale.Presale, now time.Time) (*event.Record, error) {
		if start.IsZero() && end.IsZero() {
			return nil, invalid("times", "nothing to change", ErrInvalidTime)
		}
		rec := event.New(event.KindSaleTimesChanged, event.LedgerPresale, caller, now).ForPresale(presaleID)

		if !start.IsZero() {
			if ps.Started(now) {
				return nil, ErrSaleStarted
			}
			if !start.After(now) {
				return nil, invalid("start_time", "must be in the future", ErrInvalidTime)
			}
			rec.With("old_start_time", formatTime(ps.StartTime)).With("start_time", formatTime(start))
			ps.StartTime = start
		}
		if !end.IsZero() {
			if ps.Ended(now) {
				return nil, ErrSaleEnded
			}
			rec.With("old_end_time", formatTime(ps.EndTime)).With("end_time", formatTime(end))
			ps.EndTime = end
		}
		if !ps.EndTime.After(ps.StartTime) {
			return nil, invalid("end_time", "must be after the start time", ErrInvalidTime)
		}
		return rec, nil
	})
}

// ChangeSaleTokenAddress replaces the sale token before the sale starts.
func (p *PresaleLedger) ChangeSaleTokenAddress(ctx context.Context, caller common.Address, presaleID uint64, tokenAddr common.Address) error {
	return p.edit(ctx, caller, presaleID, func(_ context.Context, ps *presale.Presale, now time.Time) (*event.Record, error) {
		if tokenAddr == (common.Address{}) {
			return nil, invalid("sale_token", "must not be the zero address", ErrZeroAddress)
		}
		if ps.Started(now) {
			return nil, ErrSaleStarted
		}
		rec := event.New(event.KindSaleTokenChanged, event.LedgerPresale, caller, now).
			ForPresale(presaleID).
			With("old_token", ps.SaleToken.Hex()).
			With("token", tokenAddr.Hex())
		ps.SaleToken = tokenAddr
		return rec, nil
	})
}

// ChangePaymentToken replaces the payment token before the sale starts.
// token.Native switches the sale to native currency.
func (p *PresaleLedger) ChangePaymentToken(ctx context.Context, caller common.Address, presaleID uint64, tokenAddr common.Address) error {
	return p.edit(ctx, caller, presaleID, func(_ context.Context, ps *presale.Presale, now time.Time) (*event.Record, error) {
		if ps.Started(now) {
			return nil, ErrSaleStarted
		}
		rec := event.New(event.KindPaymentTokenChanged, event.LedgerPresale, caller, now).
			ForPresale(presaleID).
			With("old_token", ps.PaymentToken.Hex()).
			With("token", tokenAddr.Hex())
		ps.PaymentToken = tokenAddr
		return rec, nil
	})
}

// ChangePrice sets the unit price outside the active window.
func (p *PresaleLedger) ChangePrice(ctx context.Context, caller common.Address, presaleID uint64, price *uint256.Int) error {
	return p.edit(ctx, caller, presaleID, func(_ context.Context, ps *presale.Presale, now time.Time) (*event.Record, error) {
		if price == nil || price.IsZero() {
			return nil, invalid("price", "must be positive", ErrZeroAmount)
		}
		if ps.Phase(now) == presale.PhaseActive {
			return nil, ErrSaleActive
		}
		rec := event.New(event.KindPriceChanged, event.LedgerPresale, caller, now).
			ForPresale(presaleID).
			With("old_price", ps.Price.Dec()).
			With("price", price.Dec())
		ps.Price = price.Clone()
		return rec, nil
	})
}

// UpdateWhitelistingStatus turns whitelist gating on or off.
func (p *PresaleLedger) UpdateWhitelistingStatus(ctx context.Context, caller common.Address, presaleID uint64, enabled bool) error {
	return p.edit(ctx, caller, presaleID, func(_ context.Context, ps *presale.Presale, now time.Time) (*event.Record, error) {
		ps.WhitelistEnabled = enabled
		rec := event.New(event.KindWhitelistStatusChanged, event.LedgerPresale, caller, now).
			ForPresale(presaleID).
			With("enabled", strconv.FormatBool(enabled))
		return rec, nil
	})
}

// AddWhitelist allows addrs to buy.
func (p *PresaleLedger) AddWhitelist(ctx context.Context, caller common.Address, presaleID uint64, addrs []common.Address) error {
	statuses := make([]bool, len(addrs))
	for i := range statuses {
		statuses[i] = true
	}
	return p.BatchUpdateWhitelist(ctx, caller, presaleID, addrs, statuses)
}

// RemoveWhitelist revokes addrs.
func (p *PresaleLedger) RemoveWhitelist(ctx context.Context, caller common.Address, presaleID uint64, addrs []common.Address) error {
	return p.BatchUpdateWhitelist(ctx, caller, presaleID, addrs, make([]bool, len(addrs)))
}

// BatchUpdateWhitelist sets each address's whitelist membership.
func (p *PresaleLedger) BatchUpdateWhitelist(ctx context.Context, caller common.Address, presaleID uint64, addrs []common.Address, statuses []bool) error {
	return p.lp.mutate(ctx, p.guard, func(ctx context.Context) error {
		if err := p.lp.authorize(ctx, caller, access.RolePresaleAdmin); err != nil {
			return err
		}
		if len(addrs) != len(statuses) {
			return fmt.Errorf("%w: %d addresses, %d statuses", ErrLengthMismatch, len(addrs), len(statuses))
		}
		if _, err := p.lp.store.GetPresale(ctx, presaleID); err != nil {
			return err
		}
		now := p.lp.now()
		for i, a := range addrs {
			if a == (common.Address{}) {
				return invalid("address", fmt.Sprintf("entry %d is the zero address", i), ErrZeroAddress)
			}
			if err := p.lp.store.SetWhitelisted(ctx, presaleID, a, statuses[i]); err != nil {
				return err
			}
			rec := event.New(event.KindWhitelistUpdated, event.LedgerPresale, caller, now).
				ForPresale(presaleID).
				About(a).
				With("allowed", strconv.FormatBool(statuses[i]))
			if err := p.lp.record(ctx, rec); err != nil {
				return err
			}
		}
		return nil
	})
}

// TogglePausePresale pauses or resumes one presale. Requesting the current
// state fails with ErrPauseUnchanged.
func (p *PresaleLedger) TogglePausePresale(ctx context.Context, caller common.Address, presaleID uint64, paused bool) error {
	return p.edit(ctx, caller, presaleID, func(_ context.Context, ps *presale.Presale, now time.Time) (*event.Record, error) {
		if ps.Paused == paused {
			return nil, ErrPauseUnchanged
		}
		ps.Paused = paused
		kind := event.KindPresaleUnpaused
		if paused {
			kind = event.KindPresalePaused
		}
		return event.New(kind, event.LedgerPresale, caller, now).ForPresale(presaleID), nil
	})
}

// Pause stops buys in every presale.
func (p *PresaleLedger) Pause(ctx context.Context, caller common.Address) error {
	return p.setPaused(ctx, caller, true)
}

// Unpause lifts Pause.
func (p *PresaleLedger) Unpause(ctx context.Context, caller common.Address) error {
	return p.setPaused(ctx, caller, false)
}

func (p *PresaleLedger) setPaused(ctx context.Context, caller common.Address, paused bool) error {
	return p.lp.mutate(ctx, p.guard, func(ctx context.Context) error {
		if err := p.lp.authorize(ctx, caller, access.RolePresaleAdmin); err != nil {
			return err
		}
		st, err := p.lp.store.GetPresaleState(ctx)
		if err != nil {
			return err
		}
		if st.Paused == paused {
			if paused {
				return ErrPaused
			}
			return ErrNotPaused
		}
		now := p.lp.now()
		st.Paused = paused
		st.UpdatedAt = now
		if err := p.lp.store.SavePresaleState(ctx, st); err != nil {
			return err
		}

		kind := event.KindSalesUnpaused
		if paused {
			kind = event.KindSalesPaused
		}
		p.lp.logger.Info("presale sales pause changed", "paused", paused)
		return p.lp.record(ctx, event.New(kind, event.LedgerPresale, caller, now))
	})
}

// edit runs an admin change to one presale. fn mutates ps and returns the
// record to journal with it.
func (p *PresaleLedger) edit(ctx context.Context, caller common.Address, presaleID uint64, fn func(ctx context.Context, ps *presale.Presale, now time.Time) (*event.Record, error)) error {
	return p.lp.mutate(ctx, p.guard, func(ctx context.Context) error {
		if err := p.lp.authorize(ctx, caller, access.RolePresaleAdmin); err != nil {
			return err
		}
		ps, err := p.lp.store.GetPresale(ctx, presaleID)
		if err != nil {
			return err
		}
		now := p.lp.now()
		rec, err := fn(ctx, ps, now)
		if err != nil {
			return err
		}
		ps.Touch(now)
		if err := p.lp.store.SavePresale(ctx, ps); err != nil {
			return err
		}
		return p.lp.record(ctx, rec)
	})
}

// ──────────────────────────────────────────────────
// Buying
// ──────────────────────────────────────────────────

// Buy purchases amount raw units of the sale token for caller. value is the
// native currency caller attaches; it must cover the cost of a native-paid
// presale, any excess is refunded, and it must be zero for a token-paid one.
func (p *PresaleLedger) Buy(ctx context.Context, caller common.Address, presaleID uint64, amount, value *uint256.Int) (*presale.Purchase, error) {
	var bought *presale.Purchase
	err := p.lp.mutate(ctx, p.guard, func(ctx context.Context) error {
		now := p.lp.now()
		ps, err := p.checkBuy(ctx, caller, presaleID, amount, now)
		if err != nil {
			return err
		}

		_, cost, err := presale.Cost(amount, ps.Price, ps.SaleDecimals)
		if err != nil {
			return err
		}

		// Reserve before paying.
		if ps.TokensRemaining, err = types.Sub(ps.TokensRemaining, amount); err != nil {
			return err
		}
		ps.Touch(now)
		if err := p.lp.store.SavePresale(ctx, ps); err != nil {
			return err
		}

		if err := p.collect(ctx, caller, ps, cost, types.OrZero(value)); err != nil {
			return err
		}

		pu, err := p.accumulate(ctx, caller, presaleID, amount, now)
		if err != nil {
			return err
		}

		if ps.DeferToVesting {
			if err := p.deferToVesting(ctx, caller, ps, amount); err != nil {
				return err
			}
		}

		p.lp.logger.Debug("presale purchase",
			"presale_id", presaleID,
			"buyer", caller.Hex(),
			"amount", amount.Dec(),
			"cost", cost.Dec(),
		)

		bought = pu.Clone()
		notified, paid, spent := pu.Clone(), amount.Clone(), cost.Clone()
		rec := event.New(event.KindPurchased, event.LedgerPresale, caller, now).
			ForPresale(presaleID).
			About(caller).
			With("amount", amount.Dec()).
			With("cost", cost.Dec()).
			With("payment_token", ps.PaymentToken.Hex()).
			With("tokens_remaining", ps.TokensRemaining.Dec())
		return p.lp.record(ctx, rec, func(ctx context.Context) {
			p.lp.plugins.EmitPurchased(ctx, notified, paid, spent)
		})
	})
	if err != nil {
		return nil, err
	}
	return bought, nil
}

func (p *PresaleLedger) checkBuy(ctx context.Context, caller common.Address, presaleID uint64, amount *uint256.Int, now time.Time) (*presale.Presale, error) {
	ps, err := p.lp.store.GetPresale(ctx, presaleID)
	if err != nil {
		return nil, err
	}
	st, err := p.lp.store.GetPresaleState(ctx)
	if err != nil {
		return nil, err
	}
	if st.Paused {
		return nil, ErrPaused
	}
	if ps.Paused {
		return nil, ErrPresalePaused
	}
	if ps.Phase(now) != presale.PhaseActive {
		return nil, ErrSaleNotActive
	}
	if amount == nil || amount.IsZero() {
		return nil, invalid("amount", "must be positive", ErrZeroAmount)
	}
	if amount.Gt(ps.TokensRemaining) {
		return nil, fmt.Errorf("%w: requested %s, remaining %s", ErrExceedsRemaining, amount.Dec(), ps.TokensRemaining.Dec())
	}
	if ps.WhitelistEnabled {
		ok, err := p.lp.store.IsWhitelisted(ctx, presaleID, caller)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrNotWhitelisted
		}
	}
	return ps, nil
}

// collect takes cost from caller to the presale's destination.
func (p *PresaleLedger) collect(ctx context.Context, caller common.Address, ps *presale.Presale, cost, value *uint256.Int) error {
	custody := p.lp.presaleAddress

	if !ps.PaysNative() {
		if !value.IsZero() {
			return ErrUnexpectedValue
		}
		allowed, err := p.lp.tokens.Allowance(ctx, ps.PaymentToken, caller, custody)
		if err != nil {
			return err
		}
		if allowed.Lt(cost) {
			return fmt.Errorf("%w: allowed %s, cost %s", ErrInsufficientAllowance, allowed.Dec(), cost.Dec())
		}
		return transferFailed(p.lp.tokens.TransferFrom(ctx, ps.PaymentToken, custody, caller, ps.Destination, cost))
	}

	if value.Lt(cost) {
		return fmt.Errorf("%w: sent %s, cost %s", ErrInsufficientPayment, value.Dec(), cost.Dec())
	}
	if err := p.lp.tokens.Transfer(ctx, token.Native, caller, custody, value); err != nil {
		return transferFailed(err)
	}
	if err := p.lp.tokens.Transfer(ctx, token.Native, custody, ps.Destination, cost); err != nil {
		return transferFailed(err)
	}
	refund, err := types.Sub(value, cost)
	if err != nil {
		return err
	}
	if !refund.IsZero() {
		if err := p.lp.tokens.Transfer(ctx, token.Native, custody, caller, refund); err != nil {
			return transferFailed(err)
		}
	}
	return nil
}

// accumulate adds amount to caller's position, enrolling first-time buyers.
func (p *PresaleLedger) accumulate(ctx context.Context, caller common.Address, presaleID uint64, amount *uint256.Int, now time.Time) (*presale.Purchase, error) {
	pu, err := p.lp.store.GetPurchase(ctx, presaleID, caller)
	switch {
	case errors.Is(err, ErrPurchaseNotFound):
		seq, err := p.lp.store.CountParticipants(ctx, presaleID)
		if err != nil {
			return nil, err
		}
		pu = &presale.Purchase{
			Entity:    types.NewEntity(now),
			PresaleID: presaleID,
			Buyer:     caller,
			Amount:    types.Zero(),
			Seq:       seq,
		}
	case err != nil:
		return nil, err
	}

	if pu.Amount, err = types.Add(pu.Amount, amount); err != nil {
		return nil, err
	}
	pu.LastPurchaseAt = now
	pu.Touch(now)
	if err := p.lp.store.SavePurchase(ctx, pu); err != nil {
		return nil, err
	}
	return pu, nil
}

// deferToVesting books a purchase into the buyer's vesting schedule, acting
// as the presale custody address.
func (p *PresaleLedger) deferToVesting(ctx context.Context, buyer common.Address, ps *presale.Presale, amount *uint256.Int) error {
	unlocked, err := p.vester.TGEUnlocked(ctx)
	if err != nil {
		return err
	}
	if unlocked {
		return fmt.Errorf("%w: deferred delivery needs a locked TGE", ErrAlreadyStarted)
	}

	self := p.lp.presaleAddress
	s, err := p.vester.Schedule(ctx, buyer)
	switch {
	case errors.Is(err, ErrScheduleNotFound):
		t := ps.Vesting
		return p.vester.CreateSchedule(ctx, self, buyer, amount, t.Cliff, t.Duration, t.TGEBps, t.Group)
	case err != nil:
		return err
	case p.lp.strictTotals:
		return p.vester.AddVestingAmount(ctx, self, buyer, amount)
	default:
		extended, err := types.Add(s.VestingPrincipal, amount)
		if err != nil {
			return err
		}
		return p.vester.UpdateVestingAmount(ctx, self, buyer, extended)
	}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
