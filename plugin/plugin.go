// Package plugin provides an extensible plugin system for Launchpad.
// Plugins hook into ledger events to extend functionality. Hooks run after
// the operation that produced them has committed; a failing hook is logged
// and never rolls anything back.
package plugin

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/xraph/launchpad/event"
	"github.com/xraph/launchpad/presale"
	"github.com/xraph/launchpad/vesting"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the plugin is initialized.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, l interface{}) error
}

// OnShutdown is called when the plugin is shutting down.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// OnEvent receives every journal record.
type OnEvent interface {
	Plugin
	OnEvent(ctx context.Context, r *event.Record) error
}

// ──────────────────────────────────────────────────
// Vesting hooks
// ──────────────────────────────────────────────────

type OnScheduleCreated interface {
	Plugin
	OnScheduleCreated(ctx context.Context, s *vesting.Schedule) error
}

// OnVestingStarted is called once, when the TGE unlocks. funded is the
// shortfall pulled into custody.
type OnVestingStarted interface {
	Plugin
	OnVestingStarted(ctx context.Context, startTime time.Time, funded *uint256.Int) error
}

type OnTGEClaimed interface {
	Plugin
	OnTGEClaimed(ctx context.Context, beneficiary common.Address, amount *uint256.Int) error
}

type OnReleased interface {
	Plugin
	OnReleased(ctx context.Context, beneficiary common.Address, amount *uint256.Int) error
}

type OnBeneficiaryDeleted interface {
	Plugin
	OnBeneficiaryDeleted(ctx context.Context, beneficiary common.Address, reclaimed *uint256.Int) error
}

// ──────────────────────────────────────────────────
// Presale hooks
// ──────────────────────────────────────────────────

type OnPresaleCreated interface {
	Plugin
	OnPresaleCreated(ctx context.Context, p *presale.Presale) error
}

type OnPresaleCancelled interface {
	Plugin
	OnPresaleCancelled(ctx context.Context, presaleID uint64) error
}

// OnPurchased is called after a buy. p is the buyer's cumulative position;
// amount and cost describe this purchase only.
type OnPurchased interface {
	Plugin
	OnPurchased(ctx context.Context, p *presale.Purchase, amount, cost *uint256.Int) error
}

// ──────────────────────────────────────────────────
// Reconciliation hooks
// ──────────────────────────────────────────────────

// OnReconciled is called after each invariant audit with its report.
type OnReconciled interface {
	Plugin
	OnReconciled(ctx context.Context, report interface{}) error
}
