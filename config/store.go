package config

import (
	"context"
	"fmt"

	"github.com/xraph/launchpad/store"
	"github.com/xraph/launchpad/store/badger"
	"github.com/xraph/launchpad/store/memory"
	"github.com/xraph/launchpad/store/postgres"
	"github.com/xraph/launchpad/store/sqlite"
)

// Open connects to the configured backend. The caller owns the returned
// store and must Close it.
func (s StoreConfig) Open(ctx context.Context) (store.Store, error) {
	switch s.Driver {
	case DriverMemory:
		return memory.New(), nil
	case DriverSQLite:
		return sqlite.Open(ctx, s.Path)
	case DriverPostgres:
		return postgres.Open(ctx, s.DSN)
	case DriverBadger:
		return badger.Open(s.Path)
	default:
		return nil, fmt.Errorf("config: store driver %q cannot be opened from configuration", s.Driver)
	}
}
