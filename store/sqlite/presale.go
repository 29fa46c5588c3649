package sqlite

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/xraph/launchpad"
	"github.com/xraph/launchpad/presale"
	"github.com/xraph/launchpad/store/internal/sqlstore"
)

// ==================== Presale Store ====================

func (s *Store) GetPresaleState(ctx context.Context) (*presale.State, error) {
	m := new(sqlstore.PresaleStateModel)
	err := s.q(ctx).NewSelect(m).Where("id = ?", sqlstore.SingletonID).Scan(ctx)
	if isNoRows(err) {
		return &presale.State{}, nil
	}
	if err != nil {
		return nil, wrap("get presale state", err)
	}
	return m.State(), nil
}

func (s *Store) SavePresaleState(ctx context.Context, st *presale.State) error {
	m := sqlstore.ToPresaleStateModel(st)
	if _, err := upsert(s.q(ctx).NewInsert(m), "id", "last_id", "paused", "updated_at").Exec(ctx); err != nil {
		return wrap("save presale state", err)
	}
	return nil
}

func (s *Store) GetPresale(ctx context.Context, presaleID uint64) (*presale.Presale, error) {
	m := new(sqlstore.PresaleModel)
	err := s.q(ctx).NewSelect(m).Where("id = ?", int64(presaleID)).Scan(ctx)
	if isNoRows(err) {
		return nil, launchpad.ErrPresaleNotFound
	}
	if err != nil {
		return nil, wrap("get presale", err)
	}
	p, err := m.Presale()
	if err != nil {
		return nil, wrap("decode presale", err)
	}
	return p, nil
}

func (s *Store) SavePresale(ctx context.Context, p *presale.Presale) error {
	m := sqlstore.ToPresaleModel(p)
	_, err := upsert(s.q(ctx).NewInsert(m), "id",
		"sale_token", "payment_token", "tokens_to_sell", "tokens_remaining",
		"start_time", "end_time", "price", "sale_decimals", "destination", "whitelist_enabled",
		"defer_to_vesting", "vesting_cliff", "vesting_duration", "vesting_tge_bps", "vesting_group",
		"paused", "created_at", "updated_at",
	).Exec(ctx)
	if err != nil {
		return wrap("save presale", err)
	}
	return nil
}

// DeletePresale removes the presale with its whitelist and purchases.
func (s *Store) DeletePresale(ctx context.Context, presaleID uint64) error {
	pid := int64(presaleID)
	return s.RunInTx(ctx, func(ctx context.Context) error {
		res, err := s.q(ctx).NewDelete((*sqlstore.PresaleModel)(nil)).Where("id = ?", pid).Exec(ctx)
		if err != nil {
			return wrap("delete presale", err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return launchpad.ErrPresaleNotFound
		}
		if _, err := s.q(ctx).NewDelete((*sqlstore.WhitelistModel)(nil)).Where("presale_id = ?", pid).Exec(ctx); err != nil {
			return wrap("delete whitelist", err)
		}
		if _, err := s.q(ctx).NewDelete((*sqlstore.PurchaseModel)(nil)).Where("presale_id = ?", pid).Exec(ctx); err != nil {
			return wrap("delete purchases", err)
		}
		return nil
	})
}

func (s *Store) ListPresales(ctx context.Context, opts presale.ListOpts) ([]*presale.Presale, error) {
	var ms []sqlstore.PresaleModel
	q := s.q(ctx).NewSelect(&ms).OrderExpr("id ASC")
	if err := page(q, opts.Offset, opts.Limit).Scan(ctx); err != nil {
		return nil, wrap("list presales", err)
	}
	out, err := sqlstore.Presales(ms)
	if err != nil {
		return nil, wrap("decode presale", err)
	}
	return out, nil
}

func (s *Store) IsWhitelisted(ctx context.Context, presaleID uint64, a common.Address) (bool, error) {
	n, err := s.q(ctx).NewSelect(new(sqlstore.WhitelistModel)).
		Where("presale_id = ?", int64(presaleID)).
		Where("address = ?", sqlstore.Addr(a)).
		Count(ctx)
	if err != nil {
		return false, wrap("read whitelist", err)
	}
	return n > 0, nil
}

func (s *Store) SetWhitelisted(ctx context.Context, presaleID uint64, a common.Address, allowed bool) error {
	m := &sqlstore.WhitelistModel{PresaleID: int64(presaleID), Address: sqlstore.Addr(a)}
	var err error
	if allowed {
		_, err = s.q(ctx).NewInsert(m).OnConflict("(presale_id, address) DO NOTHING").Exec(ctx)
	} else {
		_, err = s.q(ctx).NewDelete((*sqlstore.WhitelistModel)(nil)).
			Where("presale_id = ?", m.PresaleID).
			Where("address = ?", m.Address).
			Exec(ctx)
	}
	if err != nil {
		return wrap("write whitelist", err)
	}
	return nil
}

func (s *Store) GetPurchase(ctx context.Context, presaleID uint64, buyer common.Address) (*presale.Purchase, error) {
	m := new(sqlstore.PurchaseModel)
	err := s.q(ctx).NewSelect(m).
		Where("presale_id = ?", int64(presaleID)).
		Where("buyer = ?", sqlstore.Addr(buyer)).
		Scan(ctx)
	if isNoRows(err) {
		return nil, launchpad.ErrPurchaseNotFound
	}
	if err != nil {
		return nil, wrap("get purchase", err)
	}
	p, err := m.Purchase()
	if err != nil {
		return nil, wrap("decode purchase", err)
	}
	return p, nil
}

func (s *Store) SavePurchase(ctx context.Context, p *presale.Purchase) error {
	m := sqlstore.ToPurchaseModel(p)
	_, err := upsert(s.q(ctx).NewInsert(m), "presale_id, buyer",
		"amount", "last_purchase_at", "seq", "created_at", "updated_at",
	).Exec(ctx)
	if err != nil {
		return wrap("save purchase", err)
	}
	return nil
}

func (s *Store) ListPurchasesByBuyer(ctx context.Context, buyer common.Address) ([]*presale.Purchase, error) {
	var ms []sqlstore.PurchaseModel
	err := s.q(ctx).NewSelect(&ms).
		Where("buyer = ?", sqlstore.Addr(buyer)).
		OrderExpr("presale_id ASC").
		Scan(ctx)
	if err != nil {
		return nil, wrap("list purchases", err)
	}
	out, err := sqlstore.Purchases(ms)
	if err != nil {
		return nil, wrap("decode purchase", err)
	}
	return out, nil
}

func (s *Store) ListParticipants(ctx context.Context, presaleID uint64, offset, limit int) ([]common.Address, error) {
	var ms []sqlstore.PurchaseModel
	q := s.q(ctx).NewSelect(&ms).
		Column("buyer").
		Where("presale_id = ?", int64(presaleID)).
		OrderExpr("seq ASC")
	if err := page(q, offset, limit).Scan(ctx); err != nil {
		return nil, wrap("list participants", err)
	}
	out, err := sqlstore.Buyers(ms)
	if err != nil {
		return nil, wrap("decode participant", err)
	}
	return out, nil
}

func (s *Store) CountParticipants(ctx context.Context, presaleID uint64) (int, error) {
	n, err := s.q(ctx).NewSelect(new(sqlstore.PurchaseModel)).
		Where("presale_id = ?", int64(presaleID)).
		Count(ctx)
	if err != nil {
		return 0, wrap("count participants", err)
	}
	return int(n), nil
}
