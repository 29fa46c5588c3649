package presale

import (
	"errors"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/xraph/launchpad/types"
)

func TestCost(t *testing.T) {
	tests := []struct {
		name      string
		amount    *uint256.Int
		price     uint64
		decimals  uint8
		wantUnits uint64
		wantCost  uint64
	}{
		{"whole units", mustUnits(t, 10, 18), 1, 18, 10, 10},
		{"fraction is free", new(uint256.Int).Sub(mustUnits(t, 2, 18), uint256.NewInt(1)), 5, 18, 1, 5},
		{"below one unit", uint256.NewInt(999), 7, 3, 0, 0},
		{"scaled price", uint256.NewInt(12_345), 3, 2, 123, 369},
		{"zero decimals", uint256.NewInt(4), 25, 0, 4, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			units, cost, err := Cost(tt.amount, uint256.NewInt(tt.price), tt.decimals)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if units.Uint64() != tt.wantUnits || cost.Uint64() != tt.wantCost {
				t.Errorf("got %s units for %s, want %d for %d", units, cost, tt.wantUnits, tt.wantCost)
			}
		})
	}
}

func TestCostOverflow(t *testing.T) {
	maxAmount := new(uint256.Int).SetAllOne()
	if _, _, err := Cost(maxAmount, uint256.NewInt(2), 0); !errors.Is(err, types.ErrOverflow) {
		t.Errorf("error = %v, want overflow", err)
	}
	if _, _, err := Cost(uint256.NewInt(1), uint256.NewInt(1), 78); !errors.Is(err, types.ErrOverflow) {
		t.Errorf("decimals 78: error = %v, want overflow", err)
	}
}

func TestPhase(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	p := &Presale{StartTime: start, EndTime: start.Add(time.Hour)}

	tests := []struct {
		at      time.Time
		want    Phase
		started bool
		ended   bool
	}{
		{start.Add(-time.Second), PhaseUpcoming, false, false},
		{start, PhaseActive, true, false},
		{start.Add(time.Hour), PhaseActive, true, false},
		{start.Add(time.Hour + time.Second), PhaseEnded, true, true},
	}

	for _, tt := range tests {
		if got := p.Phase(tt.at); got != tt.want {
			t.Errorf("Phase(%s) = %s, want %s", tt.at, got, tt.want)
		}
		if p.Started(tt.at) != tt.started || p.Ended(tt.at) != tt.ended {
			t.Errorf("at %s: started=%v ended=%v", tt.at, p.Started(tt.at), p.Ended(tt.at))
		}
	}
}

func TestPaysNative(t *testing.T) {
	if !(&Presale{}).PaysNative() {
		t.Error("zero payment token should mean native currency")
	}
	p := &Presale{PaymentToken: common.HexToAddress("0x00000000000000000000000000000000000000aa")}
	if p.PaysNative() {
		t.Error("token-paid presale reported as native")
	}
}

func mustUnits(t *testing.T, whole uint64, decimals uint8) *uint256.Int {
	t.Helper()
	u, err := types.Units(whole, decimals)
	if err != nil {
		t.Fatal(err)
	}
	return u
}
