package presale

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/xraph/launchpad/types"
	"github.com/xraph/launchpad/vesting"
)

// Phase is where a presale sits relative to its sale window.
type Phase string

const (
	PhaseUpcoming Phase = "upcoming"
	PhaseActive   Phase = "active"
	PhaseEnded    Phase = "ended"
)

type Presale struct {
	types.Entity
	ID               uint64           `json:"id"`
	SaleToken        common.Address   `json:"sale_token"`
	PaymentToken     common.Address   `json:"payment_token"`
	TokensToSell     *uint256.Int     `json:"tokens_to_sell"`
	TokensRemaining  *uint256.Int     `json:"tokens_remaining"`
	StartTime        time.Time        `json:"start_time"`
	EndTime          time.Time        `json:"end_time"`
	Price            *uint256.Int     `json:"price"`
	SaleDecimals     uint8            `json:"sale_decimals"`
	Destination      common.Address   `json:"destination"`
	WhitelistEnabled bool             `json:"whitelist_enabled"`
	DeferToVesting   bool             `json:"defer_to_vesting"`
	Vesting          vesting.Template `json:"vesting"`
	Paused           bool             `json:"paused"`
}

// Phase reports the sale phase at now. The window is inclusive at both ends.
func (p *Presale) Phase(now time.Time) Phase {
	switch {
	case now.Before(p.StartTime):
		return PhaseUpcoming
	case now.After(p.EndTime):
		return PhaseEnded
	default:
		return PhaseActive
	}
}

// Started reports whether now is at or past the start time.
func (p *Presale) Started(now time.Time) bool { return !now.Before(p.StartTime) }

// Ended reports whether now is past the end time.
func (p *Presale) Ended(now time.Time) bool { return now.After(p.EndTime) }

// PaysNative reports whether the presale is paid in native currency.
func (p *Presale) PaysNative() bool { return p.PaymentToken == (common.Address{}) }

// Clone returns a deep copy of p.
func (p *Presale) Clone() *Presale {
	if p == nil {
		return nil
	}
	c := *p
	c.TokensToSell = types.OrZero(p.TokensToSell)
	c.TokensRemaining = types.OrZero(p.TokensRemaining)
	c.Price = types.OrZero(p.Price)
	return &c
}

// Config is the input to presale creation.
type Config struct {
	StartTime        time.Time
	EndTime          time.Time
	Price            *uint256.Int
	TokensToSell     *uint256.Int
	PaymentToken     common.Address
	SaleDecimals     uint8
	Destination      common.Address
	WhitelistEnabled bool
	DeferToVesting   bool
	Vesting          vesting.Template
}

// Purchase is a buyer's cumulative position in one presale. Seq is the
// buyer's zero-based position in the presale's participant list.
type Purchase struct {
	types.Entity
	PresaleID      uint64         `json:"presale_id"`
	Buyer          common.Address `json:"buyer"`
	Amount         *uint256.Int   `json:"amount"`
	LastPurchaseAt time.Time      `json:"last_purchase_at"`
	Seq            int            `json:"seq"`
}

func (p *Purchase) Clone() *Purchase {
	if p == nil {
		return nil
	}
	c := *p
	c.Amount = types.OrZero(p.Amount)
	return &c
}

// State holds the ledger-wide presale counters.
type State struct {
	LastID    uint64    `json:"last_id"`
	Paused    bool      `json:"paused"`
	UpdatedAt time.Time `json:"updated_at"`
}
