package types

import (
	"errors"
	"fmt"
	"strings"

	"github.com/holiman/uint256"
)

// Arithmetic errors. Every amount computation in launchpad fails closed with
// one of these instead of wrapping.
var (
	ErrOverflow       = errors.New("launchpad: arithmetic overflow")
	ErrUnderflow      = errors.New("launchpad: arithmetic underflow")
	ErrDivisionByZero = errors.New("launchpad: division by zero")
)

// BpsDenominator is 100% expressed in basis points.
const BpsDenominator = 10_000

// MaxDecimals is the largest decimal scale whose 10^n fits in 256 bits.
const MaxDecimals = 77

var bpsDenominator = uint256.NewInt(BpsDenominator)

// Zero returns a fresh zero amount.
func Zero() *uint256.Int { return new(uint256.Int) }

// NewAmount returns v as an amount.
func NewAmount(v uint64) *uint256.Int { return uint256.NewInt(v) }

// OrZero returns a copy of x, or zero when x is nil. Stores and models use it
// so a missing amount never surfaces as a nil pointer.
func OrZero(x *uint256.Int) *uint256.Int {
	if x == nil {
		return Zero()
	}
	return x.Clone()
}

// ParseAmount parses a decimal or 0x-prefixed hexadecimal amount. Empty input
// parses as zero.
func ParseAmount(s string) (*uint256.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Zero(), nil
	}
	z := new(uint256.Int)
	if err := z.UnmarshalText([]byte(s)); err != nil {
		return nil, fmt.Errorf("types: parse amount %q: %w", s, err)
	}
	return z, nil
}

// FormatAmount renders x in decimal; nil renders as "0".
func FormatAmount(x *uint256.Int) string {
	if x == nil {
		return "0"
	}
	return x.Dec()
}

// Add returns a+b.
func Add(a, b *uint256.Int) (*uint256.Int, error) {
	z, overflow := new(uint256.Int).AddOverflow(a, b)
	if overflow {
		return nil, ErrOverflow
	}
	return z, nil
}

// Sub returns a-b.
func Sub(a, b *uint256.Int) (*uint256.Int, error) {
	z, underflow := new(uint256.Int).SubOverflow(a, b)
	if underflow {
		return nil, ErrUnderflow
	}
	return z, nil
}

// Mul returns a*b.
func Mul(a, b *uint256.Int) (*uint256.Int, error) {
	z, overflow := new(uint256.Int).MulOverflow(a, b)
	if overflow {
		return nil, ErrOverflow
	}
	return z, nil
}

// Div returns floor(a/b).
func Div(a, b *uint256.Int) (*uint256.Int, error) {
	if b.IsZero() {
		return nil, ErrDivisionByZero
	}
	return new(uint256.Int).Div(a, b), nil
}

// MulDiv returns floor(a*b/d). The product must fit in 256 bits: an
// intermediate overflow is an error, not a wider computation.
func MulDiv(a, b, d *uint256.Int) (*uint256.Int, error) {
	p, err := Mul(a, b)
	if err != nil {
		return nil, err
	}
	return Div(p, d)
}

// ApplyBps returns floor(amount*bps/10000).
func ApplyBps(amount *uint256.Int, bps uint64) (*uint256.Int, error) {
	return MulDiv(amount, uint256.NewInt(bps), bpsDenominator)
}

// Pow10 returns 10^n for n <= MaxDecimals.
func Pow10(n uint8) (*uint256.Int, error) {
	if n > MaxDecimals {
		return nil, ErrOverflow
	}
	z := uint256.NewInt(1)
	ten := uint256.NewInt(10)
	for i := uint8(0); i < n; i++ {
		z.Mul(z, ten)
	}
	return z, nil
}

// Units returns whole*10^decimals, the raw amount of whole tokens at the
// given scale.
func Units(whole uint64, decimals uint8) (*uint256.Int, error) {
	scale, err := Pow10(decimals)
	if err != nil {
		return nil, err
	}
	return Mul(uint256.NewInt(whole), scale)
}

// Min returns the smaller of a and b.
func Min(a, b *uint256.Int) *uint256.Int {
	if a.Lt(b) {
		return a
	}
	return b
}
