package vesting

import (
	"time"

	"github.com/holiman/uint256"

	"github.com/xraph/launchpad/types"
)

// Split divides total into the TGE cut and the linearly vested principal.
func Split(total *uint256.Int, bps uint16) (tge, principal *uint256.Int, err error) {
	tge, err = types.ApplyBps(total, uint64(bps))
	if err != nil {
		return nil, nil, err
	}
	principal, err = types.Sub(total, tge)
	if err != nil {
		return nil, nil, err
	}
	return tge, principal, nil
}

// Releasable returns how much of s's principal can be released at now.
//
// Nothing is releasable before the TGE unlock or before the cliff ends. Once
// cliff+duration has elapsed the whole unreleased principal is. In between the
// elapsed fraction is floored to basis points first and the amount is floored
// from those basis points, so rounding matches fixed-point percentage
// accounting. Times are truncated to whole seconds.
//
// The result never exceeds the unpaid part of the total, which is smaller
// than the unreleased principal when the total was overwritten with a
// principal and the TGE cut has been paid from it.
func Releasable(s *Schedule, st *State, now time.Time) (*uint256.Int, error) {
	if s == nil {
		return types.Zero(), nil
	}
	vested, err := unreleased(s, st, now)
	if err != nil {
		return nil, err
	}
	return types.Min(vested, s.Unpaid()), nil
}

func unreleased(s *Schedule, st *State, now time.Time) (*uint256.Int, error) {
	if s == nil || st == nil || !st.TGEUnlocked {
		return types.Zero(), nil
	}

	cliffEnd := st.StartTime.Unix() + seconds(s.Cliff)
	t := now.Unix()
	if t < cliffEnd {
		return types.Zero(), nil
	}

	principal := types.OrZero(s.VestingPrincipal)
	released := types.OrZero(s.Released)

	duration := seconds(s.Duration)
	if t >= cliffEnd+duration {
		return types.Sub(principal, released)
	}

	// duration > 0 here: t >= cliffEnd and t < cliffEnd+duration.
	elapsed := uint256.NewInt(uint64(t - cliffEnd))
	bps, err := types.MulDiv(elapsed, uint256.NewInt(types.BpsDenominator), uint256.NewInt(uint64(duration)))
	if err != nil {
		return nil, err
	}
	vested, err := types.ApplyBps(principal, bps.Uint64())
	if err != nil {
		return nil, err
	}
	return types.Sub(vested, released)
}

func seconds(d time.Duration) int64 {
	if d < 0 {
		return 0
	}
	return int64(d / time.Second)
}
