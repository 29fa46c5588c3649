package launchpad_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/xraph/launchpad"
	"github.com/xraph/launchpad/presale"
	"github.com/xraph/launchpad/store/memory"
	"github.com/xraph/launchpad/types"
	"github.com/xraph/launchpad/vesting"
)

// TestDocumentationExamples verifies that the package documentation examples
// work end to end.
func TestDocumentationExamples(t *testing.T) {
	t.Run("QuickStartExample", func(t *testing.T) {
		store := memory.New()

		lp := launchpad.New(store,
			launchpad.WithLogger(slog.Default()),
			launchpad.WithAdmin(admin),
			launchpad.WithVestingAddress(custody),
			launchpad.WithPresaleAddress(saleAddr),
			launchpad.WithSaleToken(saleToken),
			launchpad.WithRecoveryAddress(recovery),
		)

		ctx := context.Background()
		if err := lp.Start(ctx); err != nil {
			t.Fatal(err)
		}
		defer lp.Stop()

		total, err := types.Units(1000, 18)
		if err != nil {
			t.Fatal(err)
		}
		if err := lp.Vesting().CreateSchedule(ctx, admin, alice, total, 90*day, 365*day, 1000, "seed"); err != nil {
			t.Fatal(err)
		}

		// Fund custody through the admin's allowance.
		if err := lp.Bank().Mint(ctx, saleToken, admin, total); err != nil {
			t.Fatal(err)
		}
		if err := lp.Bank().Approve(ctx, saleToken, admin, custody, total); err != nil {
			t.Fatal(err)
		}
		if err := lp.Vesting().StartContract(ctx, admin); err != nil {
			t.Fatal(err)
		}

		tge, err := lp.Vesting().ClaimTGE(ctx, alice)
		if err != nil {
			t.Fatal(err)
		}
		if tge.Dec() != "100000000000000000000" {
			t.Errorf("tge = %s", tge)
		}
	})

	t.Run("PresaleExample", func(t *testing.T) {
		f := newFixture(t)

		ps, err := f.lp.Presale().CreatePresale(f.ctx, admin, presale.Config{
			StartTime:      f.clock.now.Add(time.Hour),
			EndTime:        f.clock.now.Add(7 * day),
			Price:          amt(2),
			TokensToSell:   ether(1000),
			PaymentToken:   usdc,
			SaleDecimals:   18,
			Destination:    treasury,
			DeferToVesting: true,
			Vesting:        vesting.Template{Cliff: 30 * day, Duration: 180 * day, TGEBps: 2000, Group: "presale"},
		})
		if err != nil {
			t.Fatal(err)
		}

		f.fundBuyer(bob, amt(200))
		f.clock.Advance(2 * time.Hour)

		purchase, err := f.lp.Presale().Buy(f.ctx, bob, ps.ID, ether(25), nil)
		if err != nil {
			t.Fatal(err)
		}
		if !purchase.Amount.Eq(ether(25)) {
			t.Errorf("purchase = %s", purchase.Amount)
		}
		if got := f.balance(usdc, treasury); got.Uint64() != 50 {
			t.Errorf("treasury = %s, want 50", got)
		}

		s := f.schedule(bob)
		if !s.TotalAllocation.Eq(ether(25)) || !s.VestingPrincipal.Eq(ether(20)) {
			t.Errorf("schedule = %s / %s", s.TotalAllocation, s.VestingPrincipal)
		}
	})
}
