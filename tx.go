package launchpad

import (
	"context"
	"fmt"

	"github.com/xraph/launchpad/event"
)

type outboxKey struct{}

// outbox collects the plugin notifications of one outermost operation.
type outbox struct {
	notes  []func(ctx context.Context)
	failed error
}

// atomically runs fn in a store transaction. The outermost call holds the
// engine lock until commit and then delivers queued notifications. Nested
// calls join the transaction; a failed nested call fails the outermost one
// even if an intermediate caller ignored the error.
func (l *Launchpad) atomically(ctx context.Context, fn func(ctx context.Context) error) error {
	if ob, nested := ctx.Value(outboxKey{}).(*outbox); nested {
		err := l.store.RunInTx(ctx, fn)
		if err != nil && ob.failed == nil {
			ob.failed = err
		}
		return err
	}

	ob := &outbox{}
	txCtx := context.WithValue(ctx, outboxKey{}, ob)

	l.mu.Lock()
	err := l.store.RunInTx(txCtx, func(ctx context.Context) error {
		if err := fn(ctx); err != nil {
			return err
		}
		return ob.failed
	})
	l.mu.Unlock()
	if err != nil {
		return err
	}

	for _, note := range ob.notes {
		note(ctx)
	}
	return nil
}

// record journals r inside the current transaction and queues r, plus any
// typed notifications, for delivery after commit.
func (l *Launchpad) record(ctx context.Context, r *event.Record, notify ...func(ctx context.Context)) error {
	if err := l.store.AppendEvent(ctx, r); err != nil {
		return fmt.Errorf("launchpad: journal %s: %w", r.Kind, err)
	}
	ob, ok := ctx.Value(outboxKey{}).(*outbox)
	if !ok {
		return nil
	}
	ob.notes = append(ob.notes, func(ctx context.Context) { l.plugins.EmitEvent(ctx, r) })
	ob.notes = append(ob.notes, notify...)
	return nil
}

// guard rejects re-entry into one ledger from within its own operation, such
// as a receive hook calling back while a transfer is in flight.
type guard struct {
	name string
}

type guardKey struct{ g *guard }

func (g *guard) enter(ctx context.Context) (context.Context, error) {
	if ctx.Value(guardKey{g}) != nil {
		return nil, fmt.Errorf("%w: %s ledger", ErrReentrantCall, g.name)
	}
	return context.WithValue(ctx, guardKey{g}, struct{}{}), nil
}

// mutate runs fn atomically under g.
func (l *Launchpad) mutate(ctx context.Context, g *guard, fn func(ctx context.Context) error) error {
	return l.atomically(ctx, func(ctx context.Context) error {
		ctx, err := g.enter(ctx)
		if err != nil {
			return err
		}
		return fn(ctx)
	})
}
