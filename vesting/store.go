package vesting

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
)

type Store interface {
	// GetVestingState returns NewState() when nothing has been persisted yet.
	GetVestingState(ctx context.Context) (*State, error)
	SaveVestingState(ctx context.Context, st *State) error

	GetSchedule(ctx context.Context, beneficiary common.Address) (*Schedule, error)
	SaveSchedule(ctx context.Context, s *Schedule) error
	DeleteSchedule(ctx context.Context, beneficiary common.Address) error
	ListSchedules(ctx context.Context, opts ListOpts) ([]*Schedule, error)
}

// ListOpts pages through schedules ordered by beneficiary address.
type ListOpts struct {
	Group  string
	Limit  int
	Offset int
}
