package sqlite

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/xraph/launchpad"
	"github.com/xraph/launchpad/store/internal/sqlstore"
	"github.com/xraph/launchpad/vesting"
)

// ==================== Vesting Store ====================

func (s *Store) GetVestingState(ctx context.Context) (*vesting.State, error) {
	m := new(sqlstore.VestingStateModel)
	err := s.q(ctx).NewSelect(m).Where("id = ?", sqlstore.SingletonID).Scan(ctx)
	if isNoRows(err) {
		return vesting.NewState(), nil
	}
	if err != nil {
		return nil, wrap("get vesting state", err)
	}
	st, err := m.State()
	if err != nil {
		return nil, wrap("decode vesting state", err)
	}
	return st, nil
}

func (s *Store) SaveVestingState(ctx context.Context, st *vesting.State) error {
	m := sqlstore.ToVestingStateModel(st)
	_, err := upsert(s.q(ctx).NewInsert(m), "id",
		"global_allocated", "global_claimed", "tge_unlocked", "start_time", "paused", "updated_at",
	).Exec(ctx)
	if err != nil {
		return wrap("save vesting state", err)
	}
	return nil
}

func (s *Store) GetSchedule(ctx context.Context, beneficiary common.Address) (*vesting.Schedule, error) {
	m := new(sqlstore.ScheduleModel)
	err := s.q(ctx).NewSelect(m).Where("beneficiary = ?", sqlstore.Addr(beneficiary)).Scan(ctx)
	if isNoRows(err) {
		return nil, launchpad.ErrScheduleNotFound
	}
	if err != nil {
		return nil, wrap("get schedule", err)
	}
	sch, err := m.Schedule()
	if err != nil {
		return nil, wrap("decode schedule", err)
	}
	return sch, nil
}

func (s *Store) SaveSchedule(ctx context.Context, sch *vesting.Schedule) error {
	m := sqlstore.ToScheduleModel(sch)
	_, err := upsert(s.q(ctx).NewInsert(m), "beneficiary",
		"total_allocation", "vesting_principal", "cliff", "duration", "released",
		"claimed_total", "tge_claimed", "tge_bps", "group_name", "created_at", "updated_at",
	).Exec(ctx)
	if err != nil {
		return wrap("save schedule", err)
	}
	return nil
}

func (s *Store) DeleteSchedule(ctx context.Context, beneficiary common.Address) error {
	res, err := s.q(ctx).NewDelete((*sqlstore.ScheduleModel)(nil)).
		Where("beneficiary = ?", sqlstore.Addr(beneficiary)).
		Exec(ctx)
	if err != nil {
		return wrap("delete schedule", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return launchpad.ErrScheduleNotFound
	}
	return nil
}

func (s *Store) ListSchedules(ctx context.Context, opts vesting.ListOpts) ([]*vesting.Schedule, error) {
	var ms []sqlstore.ScheduleModel
	q := s.q(ctx).NewSelect(&ms)
	if opts.Group != "" {
		q = q.Where("group_name = ?", opts.Group)
	}
	if err := page(q.OrderExpr("beneficiary ASC"), opts.Offset, opts.Limit).Scan(ctx); err != nil {
		return nil, wrap("list schedules", err)
	}
	out, err := sqlstore.Schedules(ms)
	if err != nil {
		return nil, wrap("decode schedule", err)
	}
	return out, nil
}
