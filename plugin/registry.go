package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/sasha-s/go-deadlock"

	"github.com/xraph/launchpad/event"
	"github.com/xraph/launchpad/presale"
	"github.com/xraph/launchpad/vesting"
)

// DefaultTimeout bounds a single hook call.
const DefaultTimeout = 5 * time.Second

// Registry manages all registered plugins and provides efficient dispatch.
// It uses type-cached discovery for O(1) dispatch performance.
type Registry struct {
	mu      deadlock.RWMutex
	plugins []Plugin
	logger  *slog.Logger
	timeout time.Duration

	// Type-cached plugin lists for efficient dispatch
	onInit               []OnInit
	onShutdown           []OnShutdown
	onEvent              []OnEvent
	onScheduleCreated    []OnScheduleCreated
	onVestingStarted     []OnVestingStarted
	onTGEClaimed         []OnTGEClaimed
	onReleased           []OnReleased
	onBeneficiaryDeleted []OnBeneficiaryDeleted
	onPresaleCreated     []OnPresaleCreated
	onPresaleCancelled   []OnPresaleCancelled
	onPurchased          []OnPurchased
	onReconciled         []OnReconciled
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		logger:  slog.Default(),
		timeout: DefaultTimeout,
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// WithTimeout sets the per-hook timeout.
func (r *Registry) WithTimeout(d time.Duration) *Registry {
	if d > 0 {
		r.timeout = d
	}
	return r
}

// Register adds a plugin to the registry and caches its interfaces.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}

	r.plugins = append(r.plugins, p)

	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
	}
	if v, ok := p.(OnEvent); ok {
		r.onEvent = append(r.onEvent, v)
	}
	if v, ok := p.(OnScheduleCreated); ok {
		r.onScheduleCreated = append(r.onScheduleCreated, v)
	}
	if v, ok := p.(OnVestingStarted); ok {
		r.onVestingStarted = append(r.onVestingStarted, v)
	}
	if v, ok := p.(OnTGEClaimed); ok {
		r.onTGEClaimed = append(r.onTGEClaimed, v)
	}
	if v, ok := p.(OnReleased); ok {
		r.onReleased = append(r.onReleased, v)
	}
	if v, ok := p.(OnBeneficiaryDeleted); ok {
		r.onBeneficiaryDeleted = append(r.onBeneficiaryDeleted, v)
	}
	if v, ok := p.(OnPresaleCreated); ok {
		r.onPresaleCreated = append(r.onPresaleCreated, v)
	}
	if v, ok := p.(OnPresaleCancelled); ok {
		r.onPresaleCancelled = append(r.onPresaleCancelled, v)
	}
	if v, ok := p.(OnPurchased); ok {
		r.onPurchased = append(r.onPurchased, v)
	}
	if v, ok := p.(OnReconciled); ok {
		r.onReconciled = append(r.onReconciled, v)
	}

	r.logger.Info("plugin registered",
		"name", p.Name(),
		"interfaces", implementedInterfaces(p),
	)

	return nil
}

var hookTypes = []struct {
	name string
	typ  reflect.Type
}{
	{"OnInit", reflect.TypeOf((*OnInit)(nil)).Elem()},
	{"OnShutdown", reflect.TypeOf((*OnShutdown)(nil)).Elem()},
	{"OnEvent", reflect.TypeOf((*OnEvent)(nil)).Elem()},
	{"OnScheduleCreated", reflect.TypeOf((*OnScheduleCreated)(nil)).Elem()},
	{"OnVestingStarted", reflect.TypeOf((*OnVestingStarted)(nil)).Elem()},
	{"OnTGEClaimed", reflect.TypeOf((*OnTGEClaimed)(nil)).Elem()},
	{"OnReleased", reflect.TypeOf((*OnReleased)(nil)).Elem()},
	{"OnBeneficiaryDeleted", reflect.TypeOf((*OnBeneficiaryDeleted)(nil)).Elem()},
	{"OnPresaleCreated", reflect.TypeOf((*OnPresaleCreated)(nil)).Elem()},
	{"OnPresaleCancelled", reflect.TypeOf((*OnPresaleCancelled)(nil)).Elem()},
	{"OnPurchased", reflect.TypeOf((*OnPurchased)(nil)).Elem()},
	{"OnReconciled", reflect.TypeOf((*OnReconciled)(nil)).Elem()},
}

func implementedInterfaces(p Plugin) []string {
	var names []string
	v := reflect.TypeOf(p)
	for _, h := range hookTypes {
		if v.Implements(h.typ) {
			names = append(names, h.name)
		}
	}
	return names
}

// Get returns a plugin by name.
func (r *Registry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// List returns all registered plugins.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, len(r.plugins))
	copy(result, r.plugins)
	return result
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// ──────────────────────────────────────────────────
// Event emission methods
// ──────────────────────────────────────────────────

// dispatch runs call for every hook in hooks, logging failures.
func dispatch[H Plugin](ctx context.Context, r *Registry, hook string, hooks []H, call func(H) error) {
	for _, h := range hooks {
		if err := r.callWithTimeout(ctx, h.Name(), func() error {
			return call(h)
		}); err != nil {
			r.logger.Warn("plugin "+hook+" failed",
				"plugin", h.Name(),
				"error", err,
			)
		}
	}
}

func snapshot[H any](r *Registry, list *[]H) []H {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return *list
}

// EmitInit calls OnInit for all plugins that implement it.
func (r *Registry) EmitInit(ctx context.Context, l interface{}) {
	dispatch(ctx, r, "OnInit", snapshot(r, &r.onInit), func(p OnInit) error {
		return p.OnInit(ctx, l)
	})
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	dispatch(ctx, r, "OnShutdown", snapshot(r, &r.onShutdown), func(p OnShutdown) error {
		return p.OnShutdown(ctx)
	})
}

func (r *Registry) EmitEvent(ctx context.Context, rec *event.Record) {
	dispatch(ctx, r, "OnEvent", snapshot(r, &r.onEvent), func(p OnEvent) error {
		return p.OnEvent(ctx, rec)
	})
}

func (r *Registry) EmitScheduleCreated(ctx context.Context, s *vesting.Schedule) {
	dispatch(ctx, r, "OnScheduleCreated", snapshot(r, &r.onScheduleCreated), func(p OnScheduleCreated) error {
		return p.OnScheduleCreated(ctx, s)
	})
}

func (r *Registry) EmitVestingStarted(ctx context.Context, startTime time.Time, funded *uint256.Int) {
	dispatch(ctx, r, "OnVestingStarted", snapshot(r, &r.onVestingStarted), func(p OnVestingStarted) error {
		return p.OnVestingStarted(ctx, startTime, funded)
	})
}

func (r *Registry) EmitTGEClaimed(ctx context.Context, beneficiary common.Address, amount *uint256.Int) {
	dispatch(ctx, r, "OnTGEClaimed", snapshot(r, &r.onTGEClaimed), func(p OnTGEClaimed) error {
		return p.OnTGEClaimed(ctx, beneficiary, amount)
	})
}

func (r *Registry) EmitReleased(ctx context.Context, beneficiary common.Address, amount *uint256.Int) {
	dispatch(ctx, r, "OnReleased", snapshot(r, &r.onReleased), func(p OnReleased) error {
		return p.OnReleased(ctx, beneficiary, amount)
	})
}

func (r *Registry) EmitBeneficiaryDeleted(ctx context.Context, beneficiary common.Address, reclaimed *uint256.Int) {
	dispatch(ctx, r, "OnBeneficiaryDeleted", snapshot(r, &r.onBeneficiaryDeleted), func(p OnBeneficiaryDeleted) error {
		return p.OnBeneficiaryDeleted(ctx, beneficiary, reclaimed)
	})
}

func (r *Registry) EmitPresaleCreated(ctx context.Context, ps *presale.Presale) {
	dispatch(ctx, r, "OnPresaleCreated", snapshot(r, &r.onPresaleCreated), func(p OnPresaleCreated) error {
		return p.OnPresaleCreated(ctx, ps)
	})
}

func (r *Registry) EmitPresaleCancelled(ctx context.Context, presaleID uint64) {
	dispatch(ctx, r, "OnPresaleCancelled", snapshot(r, &r.onPresaleCancelled), func(p OnPresaleCancelled) error {
		return p.OnPresaleCancelled(ctx, presaleID)
	})
}

func (r *Registry) EmitPurchased(ctx context.Context, purchase *presale.Purchase, amount, cost *uint256.Int) {
	dispatch(ctx, r, "OnPurchased", snapshot(r, &r.onPurchased), func(p OnPurchased) error {
		return p.OnPurchased(ctx, purchase, amount, cost)
	})
}

func (r *Registry) EmitReconciled(ctx context.Context, report interface{}) {
	dispatch(ctx, r, "OnReconciled", snapshot(r, &r.onReconciled), func(p OnReconciled) error {
		return p.OnReconciled(ctx, report)
	})
}

// callWithTimeout calls a plugin function with a timeout.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(r.timeout):
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
