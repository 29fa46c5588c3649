package presale

import (
	"github.com/holiman/uint256"

	"github.com/xraph/launchpad/types"
)

// Cost prices a purchase of amount raw sale-token units. Only whole tokens
// are charged: amount is floored to whole units of 10^decimals before it is
// multiplied by the unit price, so fractional remainders are free.
func Cost(amount, price *uint256.Int, decimals uint8) (wholeUnits, cost *uint256.Int, err error) {
	scale, err := types.Pow10(decimals)
	if err != nil {
		return nil, nil, err
	}
	wholeUnits, err = types.Div(amount, scale)
	if err != nil {
		return nil, nil, err
	}
	cost, err = types.Mul(wholeUnits, price)
	if err != nil {
		return nil, nil, err
	}
	return wholeUnits, cost, nil
}
