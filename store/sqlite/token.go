package sqlite

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/xraph/launchpad/store/internal/sqlstore"
	"github.com/xraph/launchpad/types"
)

// ==================== Token Store ====================

func (s *Store) GetBalance(ctx context.Context, token, holder common.Address) (*uint256.Int, error) {
	m := new(sqlstore.BalanceModel)
	err := s.q(ctx).NewSelect(m).
		Where("token = ?", sqlstore.Addr(token)).
		Where("holder = ?", sqlstore.Addr(holder)).
		Scan(ctx)
	if isNoRows(err) {
		return types.Zero(), nil
	}
	if err != nil {
		return nil, wrap("get balance", err)
	}
	x, err := sqlstore.ParseAmount(m.Amount)
	if err != nil {
		return nil, wrap("decode balance", err)
	}
	return x, nil
}

func (s *Store) SetBalance(ctx context.Context, token, holder common.Address, amt *uint256.Int) error {
	m := &sqlstore.BalanceModel{
		Token:  sqlstore.Addr(token),
		Holder: sqlstore.Addr(holder),
		Amount: sqlstore.Amount(amt),
	}
	if _, err := upsert(s.q(ctx).NewInsert(m), "token, holder", "amount").Exec(ctx); err != nil {
		return wrap("set balance", err)
	}
	return nil
}

func (s *Store) GetAllowance(ctx context.Context, token, owner, spender common.Address) (*uint256.Int, error) {
	m := new(sqlstore.AllowanceModel)
	err := s.q(ctx).NewSelect(m).
		Where("token = ?", sqlstore.Addr(token)).
		Where("owner = ?", sqlstore.Addr(owner)).
		Where("spender = ?", sqlstore.Addr(spender)).
		Scan(ctx)
	if isNoRows(err) {
		return types.Zero(), nil
	}
	if err != nil {
		return nil, wrap("get allowance", err)
	}
	x, err := sqlstore.ParseAmount(m.Amount)
	if err != nil {
		return nil, wrap("decode allowance", err)
	}
	return x, nil
}

func (s *Store) SetAllowance(ctx context.Context, token, owner, spender common.Address, amt *uint256.Int) error {
	m := &sqlstore.AllowanceModel{
		Token:   sqlstore.Addr(token),
		Owner:   sqlstore.Addr(owner),
		Spender: sqlstore.Addr(spender),
		Amount:  sqlstore.Amount(amt),
	}
	if _, err := upsert(s.q(ctx).NewInsert(m), "token, owner, spender", "amount").Exec(ctx); err != nil {
		return wrap("set allowance", err)
	}
	return nil
}
