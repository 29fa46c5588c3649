package sqlite

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the Launchpad store (SQLite).
var Migrations = migrate.NewGroup("launchpad")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_launchpad_vesting",
			Version: "20260101000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				return execAll(ctx, exec, `
CREATE TABLE IF NOT EXISTS launchpad_vesting_state (
    id               INTEGER PRIMARY KEY CHECK (id = 1),
    global_allocated TEXT    NOT NULL DEFAULT '0',
    global_claimed   TEXT    NOT NULL DEFAULT '0',
    tge_unlocked     INTEGER NOT NULL DEFAULT 0,
    start_time       INTEGER NOT NULL DEFAULT 0,
    paused           INTEGER NOT NULL DEFAULT 0,
    updated_at       INTEGER NOT NULL DEFAULT 0
)`, `
CREATE TABLE IF NOT EXISTS launchpad_vesting_schedules (
    beneficiary       TEXT PRIMARY KEY,
    total_allocation  TEXT    NOT NULL DEFAULT '0',
    vesting_principal TEXT    NOT NULL DEFAULT '0',
    cliff             INTEGER NOT NULL DEFAULT 0,
    duration          INTEGER NOT NULL DEFAULT 0,
    released          TEXT    NOT NULL DEFAULT '0',
    claimed_total     TEXT    NOT NULL DEFAULT '0',
    tge_claimed       INTEGER NOT NULL DEFAULT 0,
    tge_bps           INTEGER NOT NULL DEFAULT 0,
    group_name        TEXT    NOT NULL DEFAULT '',
    created_at        INTEGER NOT NULL DEFAULT 0,
    updated_at        INTEGER NOT NULL DEFAULT 0
)`,
					`CREATE INDEX IF NOT EXISTS idx_launchpad_schedules_group ON launchpad_vesting_schedules (group_name)`)
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				return execAll(ctx, exec, `DROP TABLE IF EXISTS launchpad_vesting_schedules`, `DROP TABLE IF EXISTS launchpad_vesting_state`)
			},
		},
		&migrate.Migration{
			Name:    "create_launchpad_presales",
			Version: "20260101000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				return execAll(ctx, exec, `
CREATE TABLE IF NOT EXISTS launchpad_presale_state (
    id         INTEGER PRIMARY KEY CHECK (id = 1),
    last_id    INTEGER NOT NULL DEFAULT 0,
    paused     INTEGER NOT NULL DEFAULT 0,
    updated_at INTEGER NOT NULL DEFAULT 0
)`, `
CREATE TABLE IF NOT EXISTS launchpad_presales (
    id                INTEGER PRIMARY KEY,
    sale_token        TEXT    NOT NULL,
    payment_token     TEXT    NOT NULL,
    tokens_to_sell    TEXT    NOT NULL DEFAULT '0',
    tokens_remaining  TEXT    NOT NULL DEFAULT '0',
    start_time        INTEGER NOT NULL,
    end_time          INTEGER NOT NULL,
    price             TEXT    NOT NULL DEFAULT '0',
    sale_decimals     INTEGER NOT NULL DEFAULT 18,
    destination       TEXT    NOT NULL,
    whitelist_enabled INTEGER NOT NULL DEFAULT 0,
    defer_to_vesting  INTEGER NOT NULL DEFAULT 0,
    vesting_cliff     INTEGER NOT NULL DEFAULT 0,
    vesting_duration  INTEGER NOT NULL DEFAULT 0,
    vesting_tge_bps   INTEGER NOT NULL DEFAULT 0,
    vesting_group     TEXT    NOT NULL DEFAULT '',
    paused            INTEGER NOT NULL DEFAULT 0,
    created_at        INTEGER NOT NULL DEFAULT 0,
    updated_at        INTEGER NOT NULL DEFAULT 0
)`, `
CREATE TABLE IF NOT EXISTS launchpad_whitelist (
    presale_id INTEGER NOT NULL,
    address    TEXT    NOT NULL,
    PRIMARY KEY (presale_id, address)
)`, `
CREATE TABLE IF NOT EXISTS launchpad_purchases (
    presale_id       INTEGER NOT NULL,
    buyer            TEXT    NOT NULL,
    amount           TEXT    NOT NULL DEFAULT '0',
    last_purchase_at INTEGER NOT NULL DEFAULT 0,
    seq              INTEGER NOT NULL,
    created_at       INTEGER NOT NULL DEFAULT 0,
    updated_at       INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (presale_id, buyer)
)`,
					`CREATE UNIQUE INDEX IF NOT EXISTS idx_launchpad_purchases_seq ON launchpad_purchases (presale_id, seq)`,
					`CREATE INDEX IF NOT EXISTS idx_launchpad_purchases_buyer ON launchpad_purchases (buyer)`)
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				return execAll(ctx, exec, `DROP TABLE IF EXISTS launchpad_purchases`, `DROP TABLE IF EXISTS launchpad_whitelist`, `DROP TABLE IF EXISTS launchpad_presales`, `DROP TABLE IF EXISTS launchpad_presale_state`)
			},
		},
		&migrate.Migration{
			Name:    "create_launchpad_tokens",
			Version: "20260101000003",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				return execAll(ctx, exec, `
CREATE TABLE IF NOT EXISTS launchpad_token_balances (
    token  TEXT NOT NULL,
    holder TEXT NOT NULL,
    amount TEXT NOT NULL DEFAULT '0',
    PRIMARY KEY (token, holder)
)`, `
CREATE TABLE IF NOT EXISTS launchpad_token_allowances (
    token   TEXT NOT NULL,
    owner   TEXT NOT NULL,
    spender TEXT NOT NULL,
    amount  TEXT NOT NULL DEFAULT '0',
    PRIMARY KEY (token, owner, spender)
)`)
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				return execAll(ctx, exec, `DROP TABLE IF EXISTS launchpad_token_allowances`, `DROP TABLE IF EXISTS launchpad_token_balances`)
			},
		},
		&migrate.Migration{
			Name:    "create_launchpad_events",
			Version: "20260101000004",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				return execAll(ctx, exec, `
CREATE TABLE IF NOT EXISTS launchpad_events (
    seq         INTEGER PRIMARY KEY AUTOINCREMENT,
    id          TEXT    NOT NULL UNIQUE,
    kind        TEXT    NOT NULL,
    ledger      TEXT    NOT NULL,
    actor       TEXT    NOT NULL,
    subject     TEXT    NOT NULL,
    presale_id  INTEGER NOT NULL DEFAULT 0,
    fields      TEXT    NOT NULL DEFAULT '{}',
    occurred_at INTEGER NOT NULL
)`,
					`CREATE INDEX IF NOT EXISTS idx_launchpad_events_kind ON launchpad_events (ledger, kind)`,
					`CREATE INDEX IF NOT EXISTS idx_launchpad_events_subject ON launchpad_events (subject)`,
					`CREATE INDEX IF NOT EXISTS idx_launchpad_events_presale ON launchpad_events (presale_id)`)
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				return execAll(ctx, exec, `DROP TABLE IF EXISTS launchpad_events`)
			},
		},
	)
}

// execAll runs each statement in order, stopping at the first failure.
func execAll(ctx context.Context, exec migrate.Executor, stmts ...string) error {
	for _, stmt := range stmts {
		if _, err := exec.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
