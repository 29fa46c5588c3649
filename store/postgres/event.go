package postgres

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/xraph/launchpad/event"
	"github.com/xraph/launchpad/store/internal/sqlstore"
)

// ==================== Event Store ====================

func (s *Store) AppendEvent(ctx context.Context, r *event.Record) error {
	m, err := sqlstore.ToEventModel(r)
	if err != nil {
		return wrap("encode event", err)
	}
	if _, err := s.q(ctx).NewInsert(m).Exec(ctx); err != nil {
		return wrap("append event", err)
	}
	return nil
}

func (s *Store) ListEvents(ctx context.Context, opts event.ListOpts) ([]*event.Record, error) {
	var ms []sqlstore.EventModel
	q := s.q(ctx).NewSelect(&ms)
	argIdx := 0
	where := func(col string, v any) {
		argIdx++
		q = q.Where(fmt.Sprintf("%s = $%d", col, argIdx), v)
	}
	if opts.Ledger != "" {
		where("ledger", string(opts.Ledger))
	}
	if opts.Kind != "" {
		where("kind", string(opts.Kind))
	}
	if opts.Subject != (common.Address{}) {
		where("subject", sqlstore.Addr(opts.Subject))
	}
	if opts.PresaleID != 0 {
		where("presale_id", int64(opts.PresaleID))
	}
	if !opts.Since.IsZero() {
		argIdx++
		q = q.Where(fmt.Sprintf("occurred_at >= $%d", argIdx), sqlstore.Nanos(opts.Since))
	}
	if err := page(q.OrderExpr("seq ASC"), opts.Offset, opts.Limit).Scan(ctx); err != nil {
		return nil, wrap("list events", err)
	}
	out, err := sqlstore.Records(ms)
	if err != nil {
		return nil, wrap("decode event", err)
	}
	return out, nil
}
