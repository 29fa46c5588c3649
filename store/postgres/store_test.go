package postgres_test

import (
	"context"
	"os"
	"testing"

	"github.com/xraph/grove/drivers/pgdriver"

	"github.com/xraph/launchpad/store"
	"github.com/xraph/launchpad/store/postgres"
	"github.com/xraph/launchpad/store/storetest"
)

// Set LAUNCHPAD_TEST_POSTGRES_DSN to a disposable database to run these.
func dsn(t *testing.T) string {
	t.Helper()
	v := os.Getenv("LAUNCHPAD_TEST_POSTGRES_DSN")
	if v == "" {
		t.Skip("LAUNCHPAD_TEST_POSTGRES_DSN not set")
	}
	return v
}

func TestStoreConformance(t *testing.T) {
	url := dsn(t)
	storetest.Run(t, func(t *testing.T) store.Store {
		ctx := context.Background()
		s, err := postgres.Open(ctx, url)
		if err != nil {
			t.Fatal(err)
		}
		if err := s.Migrate(ctx); err != nil {
			t.Fatal(err)
		}
		for _, table := range []string{
			"launchpad_vesting_state", "launchpad_vesting_schedules",
			"launchpad_presale_state", "launchpad_presales", "launchpad_whitelist", "launchpad_purchases",
			"launchpad_token_balances", "launchpad_token_allowances", "launchpad_events",
		} {
			if _, err := pgdriver.Unwrap(s.DB()).Exec(ctx, "TRUNCATE "+table); err != nil {
				t.Fatalf("truncate %s: %v", table, err)
			}
		}
		return s
	})
}
