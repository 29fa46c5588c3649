package launchpad_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/xraph/launchpad"
	"github.com/xraph/launchpad/presale"
	"github.com/xraph/launchpad/token"
	"github.com/xraph/launchpad/vesting"
)

func (f *fixture) presaleConfig() presale.Config {
	return presale.Config{
		StartTime:    f.clock.now.Add(day),
		EndTime:      f.clock.now.Add(10 * day),
		Price:        amt(1),
		TokensToSell: ether(100),
		PaymentToken: usdc,
		SaleDecimals: 18,
		Destination:  treasury,
	}
}

func (f *fixture) createPresale(edit func(*presale.Config)) *presale.Presale {
	f.t.Helper()
	cfg := f.presaleConfig()
	if edit != nil {
		edit(&cfg)
	}
	ps, err := f.lp.Presale().CreatePresale(f.ctx, admin, cfg)
	if err != nil {
		f.t.Fatalf("CreatePresale: %v", err)
	}
	return ps
}

func (f *fixture) presale(id uint64) *presale.Presale {
	f.t.Helper()
	ps, err := f.lp.Presale().Presale(f.ctx, id)
	if err != nil {
		f.t.Fatalf("Presale(%d): %v", id, err)
	}
	return ps
}

// fundBuyer gives buyer payment tokens approved to the presale address.
func (f *fixture) fundBuyer(buyer common.Address, amount *uint256.Int) {
	f.t.Helper()
	f.mint(usdc, buyer, amount)
	f.approve(usdc, buyer, saleAddr, amount)
}

func TestCreatePresaleValidation(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name    string
		edit    func(*presale.Config)
		wantErr error
	}{
		{"start not in future", func(c *presale.Config) { c.StartTime = epoch }, launchpad.ErrInvalidTime},
		{"end before start", func(c *presale.Config) { c.EndTime = c.StartTime }, launchpad.ErrInvalidTime},
		{"zero price", func(c *presale.Config) { c.Price = amt(0) }, launchpad.ErrZeroAmount},
		{"zero supply", func(c *presale.Config) { c.TokensToSell = nil }, launchpad.ErrZeroAmount},
		{"zero decimals", func(c *presale.Config) { c.SaleDecimals = 0 }, launchpad.ErrInvalidInput},
		{"zero destination", func(c *presale.Config) { c.Destination = common.Address{} }, launchpad.ErrZeroAddress},
		{"bad template bps", func(c *presale.Config) { c.Vesting.TGEBps = 20_000 }, launchpad.ErrInvalidBps},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := f.presaleConfig()
			tt.edit(&cfg)
			_, err := f.lp.Presale().CreatePresale(f.ctx, admin, cfg)
			wantErr(t, err, tt.wantErr)

			var ve *launchpad.ValidationError
			if tt.wantErr != launchpad.ErrInvalidBps && !errors.As(err, &ve) {
				t.Errorf("expected a ValidationError, got %T", err)
			}
		})
	}

	_, err := f.lp.Presale().CreatePresale(f.ctx, alice, f.presaleConfig())
	wantErr(t, err, launchpad.ErrUnauthorized)

	st, _ := f.lp.Presale().State(f.ctx)
	if st.LastID != 0 {
		t.Errorf("rejected creations consumed ids: last id %d", st.LastID)
	}
}

func TestPresaleIDsAndCancel(t *testing.T) {
	f := newFixture(t)
	for want := uint64(1); want <= 3; want++ {
		if ps := f.createPresale(nil); ps.ID != want {
			t.Fatalf("presale id = %d, want %d", ps.ID, want)
		}
	}

	if err := f.lp.Presale().CancelPresale(f.ctx, admin, 2); err != nil {
		t.Fatal(err)
	}
	_, err := f.lp.Presale().Presale(f.ctx, 2)
	wantErr(t, err, launchpad.ErrPresaleNotFound)
	wantErr(t, f.lp.Presale().CancelPresale(f.ctx, admin, 2), launchpad.ErrPresaleNotFound)

	if ps := f.createPresale(nil); ps.ID != 4 {
		t.Errorf("ids must not be reused: got %d", ps.ID)
	}

	all, err := f.lp.Presale().ListPresales(f.ctx, presale.ListOpts{})
	if err != nil {
		t.Fatal(err)
	}
	var ids []uint64
	for _, ps := range all {
		ids = append(ids, ps.ID)
	}
	if len(ids) != 3 || ids[0] != 1 || ids[1] != 3 || ids[2] != 4 {
		t.Errorf("live ids = %v, want [1 3 4]", ids)
	}

	f.clock.Advance(day)
	wantErr(t, f.lp.Presale().CancelPresale(f.ctx, admin, 1), launchpad.ErrSaleStarted)
}

func TestBuyScenario(t *testing.T) {
	f := newFixture(t)
	ps := f.createPresale(nil)
	f.fundBuyer(alice, amt(100))
	f.clock.Advance(day)

	pu, err := f.lp.Presale().Buy(f.ctx, alice, ps.ID, ether(10), nil)
	if err != nil {
		t.Fatalf("Buy: %v", err)
	}

	if got := f.balance(usdc, treasury); got.Uint64() != 10 {
		t.Errorf("destination balance = %s, want 10", got)
	}
	if got := f.presale(ps.ID).TokensRemaining; !got.Eq(ether(90)) {
		t.Errorf("tokens remaining = %s, want 90 ether", got)
	}
	if !pu.Amount.Eq(ether(10)) || pu.Seq != 0 || !pu.LastPurchaseAt.Equal(f.clock.now) {
		t.Errorf("purchase = %+v", pu)
	}
	allowed, _ := f.bank.Allowance(f.ctx, usdc, alice, saleAddr)
	if allowed.Uint64() != 90 {
		t.Errorf("allowance left = %s, want 90", allowed)
	}
}

func TestBuyFractionalUnitsAreFree(t *testing.T) {
	f := newFixture(t)
	ps := f.createPresale(func(c *presale.Config) { c.Price = amt(7) })
	f.fundBuyer(alice, amt(100))
	f.clock.Advance(day)

	half := new(uint256.Int).Div(ether(1), uint256.NewInt(2))
	if _, err := f.lp.Presale().Buy(f.ctx, alice, ps.ID, half, nil); err != nil {
		t.Fatal(err)
	}
	if got := f.balance(usdc, treasury); !got.IsZero() {
		t.Errorf("sub-unit purchase cost %s, want 0", got)
	}

	oneAndHalf := new(uint256.Int).Add(ether(1), half)
	if _, err := f.lp.Presale().Buy(f.ctx, alice, ps.ID, oneAndHalf, nil); err != nil {
		t.Fatal(err)
	}
	if got := f.balance(usdc, treasury); got.Uint64() != 7 {
		t.Errorf("destination = %s, want 7", got)
	}
}

func TestBuyNative(t *testing.T) {
	f := newFixture(t)
	ps := f.createPresale(func(c *presale.Config) {
		c.PaymentToken = token.Native
		c.Price = amt(2)
	})
	f.mint(token.Native, alice, amt(50))
	f.clock.Advance(day)

	_, err := f.lp.Presale().Buy(f.ctx, alice, ps.ID, ether(3), amt(5))
	wantErr(t, err, launchpad.ErrInsufficientPayment)

	if _, err := f.lp.Presale().Buy(f.ctx, alice, ps.ID, ether(3), amt(10)); err != nil {
		t.Fatal(err)
	}
	if got := f.balance(token.Native, treasury); got.Uint64() != 6 {
		t.Errorf("destination = %s, want 6", got)
	}
	if got := f.balance(token.Native, alice); got.Uint64() != 44 {
		t.Errorf("buyer = %s, want 44 after refund", got)
	}
	if got := f.balance(token.Native, saleAddr); !got.IsZero() {
		t.Errorf("presale custody kept %s", got)
	}

	_, err = f.lp.Presale().Buy(f.ctx, alice, ps.ID, ether(1), amt(100))
	wantErr(t, err, launchpad.ErrInsufficientBalance)
}

func TestBuyRejections(t *testing.T) {
	f := newFixture(t)
	ps := f.createPresale(nil)
	f.fundBuyer(alice, amt(5))

	_, err := f.lp.Presale().Buy(f.ctx, alice, ps.ID, ether(1), nil)
	wantErr(t, err, launchpad.ErrSaleNotActive)

	f.clock.Advance(day)
	tests := []struct {
		name    string
		id      uint64
		amount  *uint256.Int
		value   *uint256.Int
		wantErr error
	}{
		{"unknown presale", 9, ether(1), nil, launchpad.ErrPresaleNotFound},
		{"zero amount", ps.ID, amt(0), nil, launchpad.ErrZeroAmount},
		{"over remaining", ps.ID, ether(101), nil, launchpad.ErrExceedsRemaining},
		{"value on token sale", ps.ID, ether(1), amt(1), launchpad.ErrUnexpectedValue},
		{"allowance too low", ps.ID, ether(6), nil, launchpad.ErrInsufficientAllowance},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.lp.Presale().Buy(f.ctx, alice, tt.id, tt.amount, tt.value)
			wantErr(t, err, tt.wantErr)
		})
	}

	if got := f.presale(ps.ID).TokensRemaining; !got.Eq(ether(100)) {
		t.Errorf("failed buys reserved tokens: remaining %s", got)
	}
	if n, _ := f.lp.Presale().PresaleUserCount(f.ctx, ps.ID); n != 0 {
		t.Errorf("failed buys enrolled %d participants", n)
	}

	f.clock.Advance(10 * day)
	_, err = f.lp.Presale().Buy(f.ctx, alice, ps.ID, ether(1), nil)
	wantErr(t, err, launchpad.ErrSaleNotActive)
}

func TestBuyRollsBackOnTransferFailure(t *testing.T) {
	f := newFixture(t)
	ps := f.createPresale(nil)
	f.fundBuyer(alice, amt(100))
	f.clock.Advance(day)

	f.bank.RegisterReceiver(treasury, token.ReceiverFunc(func(context.Context, common.Address, common.Address, *uint256.Int) error {
		return errors.New("treasury closed")
	}))

	_, err := f.lp.Presale().Buy(f.ctx, alice, ps.ID, ether(10), nil)
	wantErr(t, err, launchpad.ErrTransferFailed)
	wantErr(t, err, token.ErrRejected)

	if got := f.presale(ps.ID).TokensRemaining; !got.Eq(ether(100)) {
		t.Errorf("remaining = %s after failed transfer", got)
	}
	pu, err := f.lp.Presale().UserPurchase(f.ctx, ps.ID, alice)
	if err != nil {
		t.Fatal(err)
	}
	if !pu.Amount.IsZero() || pu.Seq != -1 {
		t.Errorf("purchase recorded despite failure: %+v", pu)
	}
	if got := f.balance(usdc, alice); got.Uint64() != 100 {
		t.Errorf("buyer debited: %s", got)
	}
	allowed, _ := f.bank.Allowance(f.ctx, usdc, alice, saleAddr)
	if allowed.Uint64() != 100 {
		t.Errorf("allowance consumed: %s", allowed)
	}
}

func TestBuyReentrantRefundRejected(t *testing.T) {
	f := newFixture(t)
	ps := f.createPresale(func(c *presale.Config) { c.PaymentToken = token.Native })
	f.mint(token.Native, alice, amt(100))
	f.clock.Advance(day)

	f.bank.RegisterReceiver(alice, token.ReceiverFunc(func(ctx context.Context, _, _ common.Address, _ *uint256.Int) error {
		_, err := f.lp.Presale().Buy(ctx, alice, ps.ID, ether(90), nil)
		return err
	}))

	_, err := f.lp.Presale().Buy(f.ctx, alice, ps.ID, ether(10), amt(20))
	wantErr(t, err, launchpad.ErrReentrantCall)
	if got := f.presale(ps.ID).TokensRemaining; !got.Eq(ether(100)) {
		t.Errorf("remaining = %s after rejected buy", got)
	}
}

func TestWhitelistGating(t *testing.T) {
	f := newFixture(t)
	ps := f.createPresale(func(c *presale.Config) { c.WhitelistEnabled = true })
	f.fundBuyer(alice, amt(10))
	f.fundBuyer(bob, amt(10))
	f.clock.Advance(day)

	if err := f.lp.Presale().AddWhitelist(f.ctx, admin, ps.ID, []common.Address{alice}); err != nil {
		t.Fatal(err)
	}
	if ok, _ := f.lp.Presale().IsWhitelisted(f.ctx, ps.ID, alice); !ok {
		t.Error("alice should be whitelisted")
	}

	if _, err := f.lp.Presale().Buy(f.ctx, alice, ps.ID, ether(1), nil); err != nil {
		t.Fatalf("whitelisted buy: %v", err)
	}
	_, err := f.lp.Presale().Buy(f.ctx, bob, ps.ID, ether(1), nil)
	wantErr(t, err, launchpad.ErrNotWhitelisted)

	if err := f.lp.Presale().RemoveWhitelist(f.ctx, admin, ps.ID, []common.Address{alice}); err != nil {
		t.Fatal(err)
	}
	_, err = f.lp.Presale().Buy(f.ctx, alice, ps.ID, ether(1), nil)
	wantErr(t, err, launchpad.ErrNotWhitelisted)

	if err := f.lp.Presale().UpdateWhitelistingStatus(f.ctx, admin, ps.ID, false); err != nil {
		t.Fatal(err)
	}
	if _, err := f.lp.Presale().Buy(f.ctx, bob, ps.ID, ether(1), nil); err != nil {
		t.Errorf("buy with whitelist off: %v", err)
	}

	err = f.lp.Presale().BatchUpdateWhitelist(f.ctx, admin, ps.ID, []common.Address{alice, bob}, []bool{true})
	wantErr(t, err, launchpad.ErrLengthMismatch)
	err = f.lp.Presale().AddWhitelist(f.ctx, admin, ps.ID, []common.Address{carol, {}})
	wantErr(t, err, launchpad.ErrZeroAddress)
	if ok, _ := f.lp.Presale().IsWhitelisted(f.ctx, ps.ID, carol); ok {
		t.Error("partial whitelist batch was kept")
	}
	err = f.lp.Presale().AddWhitelist(f.ctx, bob, ps.ID, []common.Address{bob})
	wantErr(t, err, launchpad.ErrUnauthorized)
}

func TestAuthorizationPrecedesValidation(t *testing.T) {
	f := newFixture(t)
	ps := f.createPresale(nil)

	tests := []struct {
		name string
		call func() error
	}{
		{"ChangeSaleTimes", func() error {
			return f.lp.Presale().ChangeSaleTimes(f.ctx, bob, ps.ID, time.Time{}, time.Time{})
		}},
		{"ChangeSaleTokenAddress", func() error {
			return f.lp.Presale().ChangeSaleTokenAddress(f.ctx, bob, ps.ID, common.Address{})
		}},
		{"ChangePrice", func() error {
			return f.lp.Presale().ChangePrice(f.ctx, bob, ps.ID, nil)
		}},
		{"BatchUpdateWhitelist", func() error {
			return f.lp.Presale().BatchUpdateWhitelist(f.ctx, bob, ps.ID, []common.Address{alice}, nil)
		}},
		{"BatchCreateSchedules", func() error {
			return f.lp.Vesting().BatchCreateSchedules(f.ctx, bob, []common.Address{alice}, nil, 0, day, 10_001, "")
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			wantErr(t, err, launchpad.ErrUnauthorized)
			if launchpad.IsPrecondition(err) {
				t.Errorf("unauthorized caller saw input error %v", err)
			}
		})
	}
}

func TestPauses(t *testing.T) {
	f := newFixture(t)
	a := f.createPresale(nil)
	b := f.createPresale(nil)
	f.fundBuyer(alice, amt(100))
	f.clock.Advance(day)

	if err := f.lp.Presale().TogglePausePresale(f.ctx, admin, a.ID, true); err != nil {
		t.Fatal(err)
	}
	wantErr(t, f.lp.Presale().TogglePausePresale(f.ctx, admin, a.ID, true), launchpad.ErrPauseUnchanged)
	_, err := f.lp.Presale().Buy(f.ctx, alice, a.ID, ether(1), nil)
	wantErr(t, err, launchpad.ErrPresalePaused)
	if _, err := f.lp.Presale().Buy(f.ctx, alice, b.ID, ether(1), nil); err != nil {
		t.Fatalf("buy in unpaused presale: %v", err)
	}

	if err := f.lp.Presale().Pause(f.ctx, admin); err != nil {
		t.Fatal(err)
	}
	wantErr(t, f.lp.Presale().Pause(f.ctx, admin), launchpad.ErrPaused)
	_, err = f.lp.Presale().Buy(f.ctx, alice, b.ID, ether(1), nil)
	wantErr(t, err, launchpad.ErrPaused)

	if err := f.lp.Presale().Unpause(f.ctx, admin); err != nil {
		t.Fatal(err)
	}
	wantErr(t, f.lp.Presale().Unpause(f.ctx, admin), launchpad.ErrNotPaused)
	if err := f.lp.Presale().TogglePausePresale(f.ctx, admin, a.ID, false); err != nil {
		t.Fatal(err)
	}
	if _, err := f.lp.Presale().Buy(f.ctx, alice, a.ID, ether(1), nil); err != nil {
		t.Errorf("buy after unpause: %v", err)
	}
}

func TestChangeSaleTimes(t *testing.T) {
	f := newFixture(t)
	ps := f.createPresale(nil)
	start, end := ps.StartTime, ps.EndTime

	wantErr(t, f.lp.Presale().ChangeSaleTimes(f.ctx, admin, ps.ID, time.Time{}, time.Time{}), launchpad.ErrInvalidTime)
	wantErr(t, f.lp.Presale().ChangeSaleTimes(f.ctx, admin, ps.ID, epoch, time.Time{}), launchpad.ErrInvalidTime)
	wantErr(t, f.lp.Presale().ChangeSaleTimes(f.ctx, admin, ps.ID, end.Add(day), time.Time{}), launchpad.ErrInvalidTime)

	newStart := start.Add(day)
	if err := f.lp.Presale().ChangeSaleTimes(f.ctx, admin, ps.ID, newStart, time.Time{}); err != nil {
		t.Fatal(err)
	}
	if got := f.presale(ps.ID); !got.StartTime.Equal(newStart) || !got.EndTime.Equal(end) {
		t.Errorf("window = %v..%v", got.StartTime, got.EndTime)
	}

	f.clock.Advance(3 * day)
	wantErr(t, f.lp.Presale().ChangeSaleTimes(f.ctx, admin, ps.ID, f.clock.now.Add(day), time.Time{}), launchpad.ErrSaleStarted)
	wantErr(t, f.lp.Presale().ChangeSaleTimes(f.ctx, admin, ps.ID, time.Time{}, newStart), launchpad.ErrInvalidTime)

	newEnd := end.Add(5 * day)
	if err := f.lp.Presale().ChangeSaleTimes(f.ctx, admin, ps.ID, time.Time{}, newEnd); err != nil {
		t.Fatal(err)
	}

	f.clock.Advance(30 * day)
	wantErr(t, f.lp.Presale().ChangeSaleTimes(f.ctx, admin, ps.ID, time.Time{}, newEnd.Add(day)), launchpad.ErrSaleEnded)
}

func TestPresaleEdits(t *testing.T) {
	f := newFixture(t)
	ps := f.createPresale(nil)
	other := common.HexToAddress("0x0000000000000000000000000000000000000072")

	if err := f.lp.Presale().ChangeSaleTokenAddress(f.ctx, admin, ps.ID, other); err != nil {
		t.Fatal(err)
	}
	wantErr(t, f.lp.Presale().ChangeSaleTokenAddress(f.ctx, admin, ps.ID, common.Address{}), launchpad.ErrZeroAddress)
	if err := f.lp.Presale().ChangePaymentToken(f.ctx, admin, ps.ID, token.Native); err != nil {
		t.Fatal(err)
	}
	if err := f.lp.Presale().ChangePrice(f.ctx, admin, ps.ID, amt(3)); err != nil {
		t.Fatal(err)
	}

	got := f.presale(ps.ID)
	if got.SaleToken != other || !got.PaysNative() || got.Price.Uint64() != 3 {
		t.Errorf("presale = %+v", got)
	}

	f.clock.Advance(day)
	wantErr(t, f.lp.Presale().ChangeSaleTokenAddress(f.ctx, admin, ps.ID, saleToken), launchpad.ErrSaleStarted)
	wantErr(t, f.lp.Presale().ChangePaymentToken(f.ctx, admin, ps.ID, usdc), launchpad.ErrSaleStarted)
	wantErr(t, f.lp.Presale().ChangePrice(f.ctx, admin, ps.ID, amt(4)), launchpad.ErrSaleActive)
	wantErr(t, f.lp.Presale().ChangePrice(f.ctx, admin, ps.ID, amt(0)), launchpad.ErrZeroAmount)

	f.clock.Advance(20 * day)
	if err := f.lp.Presale().ChangePrice(f.ctx, admin, ps.ID, amt(4)); err != nil {
		t.Errorf("price change after the window: %v", err)
	}
}

func TestParticipants(t *testing.T) {
	f := newFixture(t)
	ps := f.createPresale(nil)
	f.clock.Advance(day)

	buyers := []common.Address{carol, alice, bob}
	for _, b := range buyers {
		f.fundBuyer(b, amt(10))
		if _, err := f.lp.Presale().Buy(f.ctx, b, ps.ID, ether(1), nil); err != nil {
			t.Fatal(err)
		}
	}
	// A repeat buyer keeps its place.
	if _, err := f.lp.Presale().Buy(f.ctx, carol, ps.ID, ether(2), nil); err != nil {
		t.Fatal(err)
	}

	n, err := f.lp.Presale().PresaleUserCount(f.ctx, ps.ID)
	if err != nil || n != 3 {
		t.Fatalf("user count = %d, %v", n, err)
	}
	users, err := f.lp.Presale().PresaleUsers(f.ctx, ps.ID, 0, 3)
	if err != nil {
		t.Fatal(err)
	}
	for i, want := range buyers {
		if users[i] != want {
			t.Errorf("user %d = %s, want %s", i, users[i].Hex(), want.Hex())
		}
	}
	users, err = f.lp.Presale().PresaleUsers(f.ctx, ps.ID, 1, 2)
	if err != nil || len(users) != 1 || users[0] != alice {
		t.Errorf("PresaleUsers(1, 2) = %v, %v", users, err)
	}

	for _, r := range [][2]int{{-1, 1}, {2, 2}, {2, 1}, {0, 4}} {
		_, err := f.lp.Presale().PresaleUsers(f.ctx, ps.ID, r[0], r[1])
		wantErr(t, err, launchpad.ErrInvalidRange)
	}
	_, err = f.lp.Presale().PresaleUsers(f.ctx, 42, 0, 1)
	wantErr(t, err, launchpad.ErrPresaleNotFound)

	pu, _ := f.lp.Presale().UserPurchase(f.ctx, ps.ID, carol)
	if !pu.Amount.Eq(ether(3)) || pu.Seq != 0 {
		t.Errorf("carol purchase = %+v", pu)
	}
}

func TestUserTotalPurchase(t *testing.T) {
	f := newFixture(t)
	a := f.createPresale(nil)
	b := f.createPresale(nil)
	f.fundBuyer(alice, amt(100))
	f.clock.Advance(day)

	for _, id := range []uint64{a.ID, b.ID, b.ID} {
		if _, err := f.lp.Presale().Buy(f.ctx, alice, id, ether(2), nil); err != nil {
			t.Fatal(err)
		}
	}
	total, err := f.lp.Presale().UserTotalPurchase(f.ctx, alice)
	if err != nil {
		t.Fatal(err)
	}
	if !total.Eq(ether(6)) {
		t.Errorf("total = %s, want 6 ether", total)
	}
	if total, _ := f.lp.Presale().UserTotalPurchase(f.ctx, bob); !total.IsZero() {
		t.Errorf("non-buyer total = %s", total)
	}
}

func TestBuyDefersToVesting(t *testing.T) {
	tests := []struct {
		name          string
		opts          []launchpad.Option
		wantTotal     *uint256.Int
		wantPrincipal *uint256.Int
	}{
		// 10 creates 10/9; extending by 5 rewrites from principal 9+5=14.
		{"carried", nil, mustEther(t, "12.6"), mustEther(t, "12.6")},
		{"strict", []launchpad.Option{launchpad.WithStrictVestingTotals()}, ether(15), mustEther(t, "13.5")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.opts...)
			ps := f.createPresale(func(c *presale.Config) {
				c.DeferToVesting = true
				c.Vesting = vesting.Template{Cliff: 30 * day, Duration: 90 * day, TGEBps: 1000, Group: "presale"}
			})
			f.fundBuyer(alice, amt(100))
			f.clock.Advance(day)

			if _, err := f.lp.Presale().Buy(f.ctx, alice, ps.ID, ether(10), nil); err != nil {
				t.Fatal(err)
			}
			s := f.schedule(alice)
			if !s.TotalAllocation.Eq(ether(10)) || !s.VestingPrincipal.Eq(ether(9)) || s.Group != "presale" || s.Cliff != 30*day {
				t.Errorf("created schedule = %+v", s)
			}

			if _, err := f.lp.Presale().Buy(f.ctx, alice, ps.ID, ether(5), nil); err != nil {
				t.Fatal(err)
			}
			s = f.schedule(alice)
			if !s.TotalAllocation.Eq(tt.wantTotal) || !s.VestingPrincipal.Eq(tt.wantPrincipal) {
				t.Errorf("extended schedule total %s principal %s, want %s / %s",
					s.TotalAllocation, s.VestingPrincipal, tt.wantTotal, tt.wantPrincipal)
			}
			f.checkInvariants()

			f.start()
			_, err := f.lp.Presale().Buy(f.ctx, alice, ps.ID, ether(1), nil)
			wantErr(t, err, launchpad.ErrAlreadyStarted)

			cfg := f.presaleConfig()
			cfg.DeferToVesting = true
			_, err = f.lp.Presale().CreatePresale(f.ctx, admin, cfg)
			wantErr(t, err, launchpad.ErrAlreadyStarted)
		})
	}
}

func mustEther(t *testing.T, s string) *uint256.Int {
	t.Helper()
	// Parses a decimal ether amount with at most one fractional digit.
	whole, frac := s, "0"
	for i := range s {
		if s[i] == '.' {
			whole, frac = s[:i], s[i+1:]
			break
		}
	}
	w, err := uint256.FromDecimal(whole + "0")
	if err != nil {
		t.Fatal(err)
	}
	fr, err := uint256.FromDecimal(frac)
	if err != nil {
		t.Fatal(err)
	}
	w.Add(w, fr)
	return w.Mul(w, uint256.NewInt(100_000_000_000_000_000))
}
