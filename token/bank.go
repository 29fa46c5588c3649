package token

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/sasha-s/go-deadlock"

	"github.com/xraph/launchpad/types"
)

// Compile-time check.
var _ Ledger = (*Bank)(nil)

// Bank implements Ledger over a Store.
type Bank struct {
	store  Store
	logger *slog.Logger

	mu        deadlock.RWMutex
	receivers map[common.Address]Receiver
}

// NewBank creates a Bank over s.
func NewBank(s Store) *Bank {
	return &Bank{
		store:     s,
		logger:    slog.Default(),
		receivers: make(map[common.Address]Receiver),
	}
}

// WithLogger sets the logger for the bank.
func (b *Bank) WithLogger(logger *slog.Logger) *Bank {
	b.logger = logger
	return b
}

// RegisterReceiver installs r as the receive hook of addr, replacing any
// previous one.
func (b *Bank) RegisterReceiver(addr common.Address, r Receiver) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.receivers[addr] = r
}

// UnregisterReceiver removes the receive hook of addr.
func (b *Bank) UnregisterReceiver(addr common.Address) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.receivers, addr)
}

func (b *Bank) receiver(addr common.Address) Receiver {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.receivers[addr]
}

// BalanceOf returns holder's balance of token.
func (b *Bank) BalanceOf(ctx context.Context, token, holder common.Address) (*uint256.Int, error) {
	return b.store.GetBalance(ctx, token, holder)
}

// Allowance returns how much of owner's token spender may move.
func (b *Bank) Allowance(ctx context.Context, token, owner, spender common.Address) (*uint256.Int, error) {
	return b.store.GetAllowance(ctx, token, owner, spender)
}

// Approve sets spender's allowance over owner's token.
func (b *Bank) Approve(ctx context.Context, token, owner, spender common.Address, amount *uint256.Int) error {
	if spender == (common.Address{}) {
		return ErrInvalidRecipient
	}
	return b.store.RunInTx(ctx, func(ctx context.Context) error {
		return b.store.SetAllowance(ctx, token, owner, spender, types.OrZero(amount))
	})
}

// Mint credits amount of token to to. It exists for funding accounts in
// tests and tooling; it does not invoke receive hooks.
func (b *Bank) Mint(ctx context.Context, token, to common.Address, amount *uint256.Int) error {
	if to == (common.Address{}) {
		return ErrInvalidRecipient
	}
	return b.store.RunInTx(ctx, func(ctx context.Context) error {
		return b.credit(ctx, token, to, amount)
	})
}

// Transfer moves amount of token from from to to.
func (b *Bank) Transfer(ctx context.Context, token, from, to common.Address, amount *uint256.Int) error {
	return b.store.RunInTx(ctx, func(ctx context.Context) error {
		return b.move(ctx, token, from, to, amount)
	})
}

// TransferFrom moves amount from from to to, consuming spender's allowance.
func (b *Bank) TransferFrom(ctx context.Context, token, spender, from, to common.Address, amount *uint256.Int) error {
	amount = types.OrZero(amount)
	return b.store.RunInTx(ctx, func(ctx context.Context) error {
		allowed, err := b.store.GetAllowance(ctx, token, from, spender)
		if err != nil {
			return err
		}
		if allowed.Lt(amount) {
			return fmt.Errorf("%w: %s allowed to %s, need %s", ErrInsufficientAllowance, allowed, spender.Hex(), amount)
		}
		remaining, err := types.Sub(allowed, amount)
		if err != nil {
			return err
		}
		if err := b.store.SetAllowance(ctx, token, from, spender, remaining); err != nil {
			return err
		}
		return b.move(ctx, token, from, to, amount)
	})
}

func (b *Bank) move(ctx context.Context, token, from, to common.Address, amount *uint256.Int) error {
	if to == (common.Address{}) {
		return ErrInvalidRecipient
	}
	amount = types.OrZero(amount)

	bal, err := b.store.GetBalance(ctx, token, from)
	if err != nil {
		return err
	}
	if bal.Lt(amount) {
		return fmt.Errorf("%w: %s holds %s, need %s", ErrInsufficientBalance, from.Hex(), bal, amount)
	}
	left, err := types.Sub(bal, amount)
	if err != nil {
		return err
	}
	if err := b.store.SetBalance(ctx, token, from, left); err != nil {
		return err
	}
	if err := b.credit(ctx, token, to, amount); err != nil {
		return err
	}

	b.logger.Debug("token transferred",
		"token", token.Hex(),
		"from", from.Hex(),
		"to", to.Hex(),
		"amount", amount.Dec(),
	)

	if r := b.receiver(to); r != nil {
		if err := r.OnReceive(ctx, token, from, amount); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrRejected, to.Hex(), err)
		}
	}
	return nil
}

func (b *Bank) credit(ctx context.Context, token, to common.Address, amount *uint256.Int) error {
	bal, err := b.store.GetBalance(ctx, token, to)
	if err != nil {
		return err
	}
	sum, err := types.Add(bal, types.OrZero(amount))
	if err != nil {
		return err
	}
	return b.store.SetBalance(ctx, token, to, sum)
}
