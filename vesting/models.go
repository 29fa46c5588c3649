package vesting

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/xraph/launchpad/types"
)

// Schedule is a beneficiary's token entitlement. There is at most one per
// address and it exists only while TotalAllocation is positive.
type Schedule struct {
	types.Entity
	Beneficiary      common.Address `json:"beneficiary"`
	TotalAllocation  *uint256.Int   `json:"total_allocation"`
	VestingPrincipal *uint256.Int   `json:"vesting_principal"`
	Cliff            time.Duration  `json:"cliff"`
	Duration         time.Duration  `json:"duration"`
	Released         *uint256.Int   `json:"released"`
	ClaimedTotal     *uint256.Int   `json:"claimed_total"`
	TGEClaimed       bool           `json:"tge_claimed"`
	TGEBps           uint16         `json:"tge_bps"`
	Group            string         `json:"group,omitempty"`
}

// Clone returns a deep copy of s.
func (s *Schedule) Clone() *Schedule {
	if s == nil {
		return nil
	}
	c := *s
	c.TotalAllocation = types.OrZero(s.TotalAllocation)
	c.VestingPrincipal = types.OrZero(s.VestingPrincipal)
	c.Released = types.OrZero(s.Released)
	c.ClaimedTotal = types.OrZero(s.ClaimedTotal)
	return &c
}

// TGEAmount is the unlock-time cut of the current total.
func (s *Schedule) TGEAmount() (*uint256.Int, error) {
	return types.ApplyBps(types.OrZero(s.TotalAllocation), uint64(s.TGEBps))
}

// Unreleased is the principal not yet released through the linear schedule.
func (s *Schedule) Unreleased() (*uint256.Int, error) {
	return types.Sub(types.OrZero(s.VestingPrincipal), types.OrZero(s.Released))
}

// Unpaid is the part of the total not yet claimed, floored at zero.
func (s *Schedule) Unpaid() *uint256.Int {
	total, claimed := types.OrZero(s.TotalAllocation), types.OrZero(s.ClaimedTotal)
	if claimed.Gt(total) {
		return types.Zero()
	}
	return new(uint256.Int).Sub(total, claimed)
}

// CliffEnd is the instant linear release begins for a ledger started at start.
func (s *Schedule) CliffEnd(start time.Time) time.Time {
	return start.Add(s.Cliff)
}

// End is the instant the principal is fully vested for a ledger started at start.
func (s *Schedule) End(start time.Time) time.Time {
	return start.Add(s.Cliff).Add(s.Duration)
}

// State holds the ledger-wide vesting counters and the TGE switch.
type State struct {
	GlobalAllocated *uint256.Int `json:"global_allocated"`
	GlobalClaimed   *uint256.Int `json:"global_claimed"`
	TGEUnlocked     bool         `json:"tge_unlocked"`
	StartTime       time.Time    `json:"start_time"`
	Paused          bool         `json:"paused"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

// NewState returns the state of a ledger that has never been written.
func NewState() *State {
	return &State{
		GlobalAllocated: types.Zero(),
		GlobalClaimed:   types.Zero(),
	}
}

// Clone returns a deep copy of st.
func (st *State) Clone() *State {
	if st == nil {
		return nil
	}
	c := *st
	c.GlobalAllocated = types.OrZero(st.GlobalAllocated)
	c.GlobalClaimed = types.OrZero(st.GlobalClaimed)
	return &c
}

// Template is the schedule shape a presale applies to its buyers.
type Template struct {
	Cliff    time.Duration `json:"cliff"`
	Duration time.Duration `json:"duration"`
	TGEBps   uint16        `json:"tge_bps"`
	Group    string        `json:"group,omitempty"`
}
