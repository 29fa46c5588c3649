// Package launchpad provides a token vesting ledger and a presale ledger for
// Go applications.
//
// Launchpad is designed as a library, not a service. Import it directly into
// your Go application and back it with the store that suits your deployment.
// It provides:
//
//   - Per-beneficiary vesting schedules with a one-time TGE unlock, a cliff
//     and linear release in whole-second steps
//   - Time-boxed presales paid in a payment token or native currency, with
//     optional whitelisting and deferred delivery into vesting
//   - All-or-nothing operations: state changes and token transfers commit
//     together or not at all
//   - Re-entrancy protection for transfer receive hooks
//   - An append-only journal of every state change
//   - Memory, SQLite, PostgreSQL, MongoDB and Badger stores
//   - Invariant reconciliation with scheduled audits
//
// # Quick Start
//
//	import (
//	    "github.com/xraph/launchpad"
//	    "github.com/xraph/launchpad/store/sqlite"
//	)
//
//	store, err := sqlite.Open(ctx, "launchpad.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	lp := launchpad.New(store,
//	    launchpad.WithAdmin(admin),
//	    launchpad.WithVestingAddress(custody),
//	    launchpad.WithPresaleAddress(sale),
//	    launchpad.WithSaleToken(token),
//	    launchpad.WithRecoveryAddress(treasury),
//	)
//	if err := lp.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer lp.Stop()
//
// # Vesting
//
// Managers allocate schedules before the TGE. tgeBps of the total unlocks
// once the admin starts the contract; the rest vests linearly over duration
// after cliff, measured from the single start time:
//
//	err := lp.Vesting().CreateSchedule(ctx, admin, alice, total, 90*day, 365*day, 1000, "seed")
//	err = lp.Vesting().StartContract(ctx, admin)
//	tge, err := lp.Vesting().ClaimTGE(ctx, alice)
//	amount, err := lp.Vesting().Releasable(ctx, alice)
//	err = lp.Vesting().Release(ctx, alice, amount)
//
// # Presales
//
// Only whole sale-token units are charged: a purchase of amount raw units
// costs floor(amount / 10^decimals) * price of the payment token.
//
//	ps, err := lp.Presale().CreatePresale(ctx, admin, presale.Config{...})
//	purchase, err := lp.Presale().Buy(ctx, buyer, ps.ID, amount, nil)
//
// # Amounts
//
// Amounts are 256-bit unsigned integers (holiman/uint256) in raw token
// units. Every computation is checked: overflow and underflow fail the
// operation instead of wrapping.
//
// # Concurrency
//
// Mutating operations on one Launchpad are serialized and each runs in a
// single store transaction. Receive hooks run inside that transaction and
// may not call back into the ledger whose transfer triggered them.
// Serialization is per process: two engines sharing one database are not
// coordinated.
package launchpad
