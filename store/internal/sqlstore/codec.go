package sqlstore

import (
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/xraph/launchpad/types"
)

// Addr stores addresses as lowercase hex so text order matches byte order.
func Addr(a common.Address) string {
	return strings.ToLower(a.Hex())
}

func Amount(x *uint256.Int) string {
	return types.FormatAmount(x)
}

// ParseAmount reads a stored amount column.
func ParseAmount(s string) (*uint256.Int, error) {
	return types.ParseAmount(s)
}

// Nanos stores t as Unix nanoseconds; the zero time is stored as 0.
func Nanos(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func FromNanos(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}

// decoder parses scanned columns and keeps the first failure.
type decoder struct {
	err error
}

func (d *decoder) amount(s string) *uint256.Int {
	if d.err != nil {
		return nil
	}
	x, err := types.ParseAmount(s)
	if err != nil {
		d.err = err
		return nil
	}
	return x
}

func (d *decoder) address(s string) common.Address {
	if d.err == nil && !common.IsHexAddress(s) {
		d.err = &addressError{s}
	}
	return common.HexToAddress(s)
}

type addressError struct{ value string }

func (e *addressError) Error() string {
	return "invalid stored address " + e.value
}
