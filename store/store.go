package store

import (
	"context"

	"github.com/xraph/launchpad/event"
	"github.com/xraph/launchpad/presale"
	"github.com/xraph/launchpad/token"
	"github.com/xraph/launchpad/vesting"
)

// Store is the unified storage interface for all Launchpad state. The
// sub-interfaces use distinct method names so they embed without conflicts.
//
// RunInTx runs fn atomically. A call made with a context already inside a
// transaction joins it, so nested operations commit or roll back together.
// Backends return launchpad sentinel errors (ErrScheduleNotFound,
// ErrPresaleNotFound, ErrPurchaseNotFound) for missing records.
type Store interface {
	vesting.Store
	presale.Store
	token.Store
	event.Store

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
