package launchpad

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sasha-s/go-deadlock"

	"github.com/xraph/launchpad/access"
	"github.com/xraph/launchpad/event"
	"github.com/xraph/launchpad/plugin"
	"github.com/xraph/launchpad/store"
	"github.com/xraph/launchpad/token"
)

// Launchpad owns one vesting ledger and one presale ledger over a shared
// store. Mutations across both ledgers are serialized.
type Launchpad struct {
	store   store.Store
	plugins *plugin.Registry
	logger  *slog.Logger
	clock   func() time.Time

	access        access.Checker
	defaultAccess bool
	tokens        token.Ledger
	bank          *token.Bank

	admins          []common.Address
	vestingAddress  common.Address
	presaleAddress  common.Address
	saleToken       common.Address
	recoveryAddress common.Address
	strictTotals    bool
	skipMigrate     bool

	// mu serializes mutating operations, held across commit.
	mu deadlock.Mutex

	vesting *VestingLedger
	presale *PresaleLedger
}

// New creates a new Launchpad instance. Unless WithTokens is given, balances
// live in s through a token.Bank; unless WithAccess is given, roles come from
// an access.Static seeded by WithAdmin.
func New(s store.Store, opts ...Option) *Launchpad {
	l := &Launchpad{
		store:   s,
		plugins: plugin.NewRegistry(),
		logger:  slog.Default(),
		clock:   time.Now,
	}

	for _, opt := range opts {
		opt(l)
	}

	if l.tokens == nil {
		l.bank = token.NewBank(s).WithLogger(l.logger)
		l.tokens = l.bank
	}
	if l.access == nil {
		l.access = access.NewStatic(l.bootstrapGrants())
		l.defaultAccess = true
	}

	l.vesting = &VestingLedger{lp: l, guard: &guard{name: "vesting"}}
	l.presale = &PresaleLedger{lp: l, guard: &guard{name: "presale"}, vester: l.vesting}

	return l
}

// Option configures a Launchpad instance.
type Option func(*Launchpad)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Launchpad) {
		l.logger = logger
		l.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(l *Launchpad) {
		_ = l.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithPluginTimeout bounds each plugin hook call.
func WithPluginTimeout(d time.Duration) Option {
	return func(l *Launchpad) {
		l.plugins.WithTimeout(d)
	}
}

// WithClock replaces the wall clock. The clock must never go backwards.
func WithClock(clock func() time.Time) Option {
	return func(l *Launchpad) {
		l.clock = clock
	}
}

// WithAccess sets the role checker.
func WithAccess(c access.Checker) Option {
	return func(l *Launchpad) {
		l.access = c
	}
}

// WithTokens sets the transfer primitive. Transfers made through a ledger
// outside the store only roll back if it honors the store's transactions.
func WithTokens(t token.Ledger) Option {
	return func(l *Launchpad) {
		l.tokens = t
	}
}

// WithAdmin grants the admin and manager roles of both ledgers to addrs at
// construction.
func WithAdmin(addrs ...common.Address) Option {
	return func(l *Launchpad) {
		l.admins = append(l.admins, addrs...)
	}
}

// WithVestingAddress sets the address holding vesting custody.
func WithVestingAddress(addr common.Address) Option {
	return func(l *Launchpad) {
		l.vestingAddress = addr
	}
}

// WithPresaleAddress sets the address the presale ledger acts as. It
// receives native payments before they are forwarded and is the spender of
// payment token allowances.
func WithPresaleAddress(addr common.Address) Option {
	return func(l *Launchpad) {
		l.presaleAddress = addr
	}
}

// WithSaleToken sets the token being vested and sold.
func WithSaleToken(addr common.Address) Option {
	return func(l *Launchpad) {
		l.saleToken = addr
	}
}

// WithRecoveryAddress sets where deleted beneficiaries' tokens are returned.
func WithRecoveryAddress(addr common.Address) Option {
	return func(l *Launchpad) {
		l.recoveryAddress = addr
	}
}

// WithStrictVestingTotals makes UpdateVestingAmount keep the TGE cut inside
// the stored total and makes presale buys extend schedules by the purchased
// amount. Without it the historical arithmetic is kept: the stored total is
// overwritten with the recomputed principal.
func WithStrictVestingTotals() Option {
	return func(l *Launchpad) {
		l.strictTotals = true
	}
}

// WithoutMigrate makes Start skip store migration, for schemas managed
// out of band.
func WithoutMigrate() Option {
	return func(l *Launchpad) {
		l.skipMigrate = true
	}
}

func (l *Launchpad) bootstrapGrants() map[access.Role][]common.Address {
	managers := append([]common.Address{}, l.admins...)
	if l.presaleAddress != (common.Address{}) {
		managers = append(managers, l.presaleAddress)
	}
	return map[access.Role][]common.Address{
		access.RoleVestingAdmin:   l.admins,
		access.RoleVestingManager: managers,
		access.RolePresaleAdmin:   l.admins,
	}
}

// Start validates the configuration, migrates the store and initializes
// plugins.
func (l *Launchpad) Start(ctx context.Context) error {
	required := []struct {
		name string
		addr common.Address
	}{
		{"vesting address", l.vestingAddress},
		{"presale address", l.presaleAddress},
		{"sale token", l.saleToken},
		{"recovery address", l.recoveryAddress},
	}
	for _, r := range required {
		if r.addr == (common.Address{}) {
			return fmt.Errorf("%w: %s is required", ErrNotConfigured, r.name)
		}
	}
	if l.vestingAddress == l.presaleAddress {
		return fmt.Errorf("%w: vesting and presale addresses must differ", ErrNotConfigured)
	}

	if !l.skipMigrate {
		if err := l.store.Migrate(ctx); err != nil {
			return fmt.Errorf("%w: %w", ErrMigrationFailed, err)
		}
	}

	// A caller-supplied checker that accepts grants gets the same bootstrap
	// grants the default one was built with.
	if g, ok := l.access.(access.Granter); ok && !l.defaultAccess {
		for role, addrs := range l.bootstrapGrants() {
			for _, a := range addrs {
				if err := g.Grant(ctx, role, a); err != nil {
					return fmt.Errorf("launchpad: bootstrap grant %s: %w", role, err)
				}
			}
		}
	}

	l.plugins.EmitInit(ctx, l)

	l.logger.Info("launchpad started",
		"vesting_address", l.vestingAddress.Hex(),
		"presale_address", l.presaleAddress.Hex(),
		"sale_token", l.saleToken.Hex(),
		"strict_totals", l.strictTotals,
		"plugins", l.plugins.Count(),
	)

	return nil
}

// Stop shuts down plugins and closes the store.
func (l *Launchpad) Stop() error {
	l.plugins.EmitShutdown(context.Background())
	return l.store.Close()
}

// Vesting returns the vesting ledger.
func (l *Launchpad) Vesting() *VestingLedger { return l.vesting }

// Presale returns the presale ledger.
func (l *Launchpad) Presale() *PresaleLedger { return l.presale }

// Tokens returns the transfer primitive.
func (l *Launchpad) Tokens() token.Ledger { return l.tokens }

// Bank returns the store-backed token bank, or nil when WithTokens replaced it.
func (l *Launchpad) Bank() *token.Bank { return l.bank }

// Store returns the underlying store.
func (l *Launchpad) Store() store.Store { return l.store }

// Plugins returns the plugin registry.
func (l *Launchpad) Plugins() *plugin.Registry { return l.plugins }

// Logger returns the logger.
func (l *Launchpad) Logger() *slog.Logger { return l.logger }

// Now returns the current time on the engine's clock.
func (l *Launchpad) Now() time.Time { return l.now() }

func (l *Launchpad) now() time.Time { return l.clock() }

// VestingAddress returns the vesting custody address.
func (l *Launchpad) VestingAddress() common.Address { return l.vestingAddress }

// PresaleAddress returns the presale custody address.
func (l *Launchpad) PresaleAddress() common.Address { return l.presaleAddress }

// SaleToken returns the token being vested and sold.
func (l *Launchpad) SaleToken() common.Address { return l.saleToken }

// Events lists journal records.
func (l *Launchpad) Events(ctx context.Context, opts event.ListOpts) ([]*event.Record, error) {
	return l.store.ListEvents(ctx, opts)
}

func (l *Launchpad) authorize(ctx context.Context, caller common.Address, roles ...access.Role) error {
	ok, err := access.HasAny(ctx, l.access, caller, roles...)
	if err != nil {
		return fmt.Errorf("launchpad: role check: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: %s lacks %v", ErrUnauthorized, caller.Hex(), roles)
	}
	return nil
}
