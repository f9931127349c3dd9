package rpcclient

import (
	"fmt"
	"strings"

	"github.com/holiman/uint256"
)

// marsDecimals is the chain's native-unit precision: 1 MARS = 1e18 wei,
// mirroring Ether's denomination.
const marsDecimals = 18

// maxFractionDigits bounds weiToMars's rendered fractional part.
const maxFractionDigits = 6

// WeiToMars renders a hex-encoded 256-bit wei quantity (as returned by
// eth_getBalance et al.) as a human string: at most six fractional digits,
// trailing zeros trimmed.
func WeiToMars(hexWei string) (string, error) {
	v, err := parseHexUint256(hexWei)
	if err != nil {
		return "", err
	}

	divisor := new(uint256.Int).Exp(uint256.NewInt(10), uint256.NewInt(marsDecimals))
	whole := new(uint256.Int).Div(v, divisor)
	remainder := new(uint256.Int).Mod(v, divisor)

	fracStr := remainder.Dec()
	if pad := marsDecimals - len(fracStr); pad > 0 {
		fracStr = strings.Repeat("0", pad) + fracStr
	}
	fracStr = fracStr[:maxFractionDigits]
	fracStr = strings.TrimRight(fracStr, "0")

	if fracStr == "" {
		return whole.Dec(), nil
	}
	return whole.Dec() + "." + fracStr, nil
}

func parseHexUint256(hexWei string) (*uint256.Int, error) {
	s := strings.TrimLeft(strings.TrimPrefix(hexWei, "0x"), "0")
	if s == "" {
		s = "0"
	}
	v, err := uint256.FromHex("0x" + s)
	if err != nil {
		return nil, fmt.Errorf("parse wei value %q: %w", hexWei, err)
	}
	return v, nil
}
