package chain

import (
	"math/big"
	"strings"
)

// ToBaseUnits scales whole tokens by 10^decimals.
func ToBaseUnits(amount uint64, decimals uint8) *big.Int {
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	return scale.Mul(scale, new(big.Int).SetUint64(amount))
}

// FormatUnits renders v with decimals fractional digits, trimming trailing
// zeros but keeping at least one, e.g. 1500000 with 6 decimals is "1.5".
func FormatUnits(v *big.Int, decimals uint8) string {
	if v == nil {
		return "0.0"
	}
	neg := v.Sign() < 0
	abs := new(big.Int).Abs(v)
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	whole, frac := new(big.Int).QuoRem(abs, scale, new(big.Int))

	fs := ""
	if decimals > 0 {
		fs = frac.String()
		fs = strings.Repeat("0", int(decimals)-len(fs)) + fs
		fs = strings.TrimRight(fs, "0")
	}
	if fs == "" {
		fs = "0"
	}
	res := whole.String() + "." + fs
	if neg {
		res = "-" + res
	}
	return res
}
