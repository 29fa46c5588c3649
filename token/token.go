// Package token models the payment medium the ledgers move value through.
//
// Ledger is the collaborator interface. Every asset, including native
// currency, is addressed by a token address; native currency uses the zero
// address (Native). Bank is the store-backed implementation: balances and
// allowances live in the same store as the ledgers, so a transfer made inside
// a ledger operation commits or rolls back with it.
package token

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Native is the token address reserved for native currency.
var Native = common.Address{}

var (
	ErrInsufficientBalance   = errors.New("launchpad: insufficient balance")
	ErrInsufficientAllowance = errors.New("launchpad: insufficient allowance")
	ErrInvalidRecipient      = errors.New("launchpad: invalid transfer recipient")
	ErrRejected              = errors.New("launchpad: transfer rejected by recipient")
)

// Ledger is the fungible transfer primitive. Transfers fail as a whole on
// insufficient balance or allowance.
type Ledger interface {
	BalanceOf(ctx context.Context, token, holder common.Address) (*uint256.Int, error)
	Allowance(ctx context.Context, token, owner, spender common.Address) (*uint256.Int, error)
	// Transfer moves amount of token from from to to.
	Transfer(ctx context.Context, token, from, to common.Address, amount *uint256.Int) error
	// TransferFrom moves amount from from to to on behalf of spender, consuming
	// spender's allowance.
	TransferFrom(ctx context.Context, token, spender, from, to common.Address, amount *uint256.Int) error
}

// Store persists balances and allowances. Missing entries read as zero.
type Store interface {
	GetBalance(ctx context.Context, token, holder common.Address) (*uint256.Int, error)
	SetBalance(ctx context.Context, token, holder common.Address, amount *uint256.Int) error
	GetAllowance(ctx context.Context, token, owner, spender common.Address) (*uint256.Int, error)
	SetAllowance(ctx context.Context, token, owner, spender common.Address, amount *uint256.Int) error
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Receiver is notified when an address it is registered for receives funds.
// Returning an error rejects the transfer.
type Receiver interface {
	OnReceive(ctx context.Context, token, from common.Address, amount *uint256.Int) error
}

// ReceiverFunc adapts a function to Receiver.
type ReceiverFunc func(ctx context.Context, token, from common.Address, amount *uint256.Int) error

func (f ReceiverFunc) OnReceive(ctx context.Context, token, from common.Address, amount *uint256.Int) error {
	return f(ctx, token, from, amount)
}
