package tokens

import "github.com/shopspring/decimal"

// Token is a fully resolved token record, the unit of output of the scraper.
type Token struct {
	Chain       string          `json:"chain"`
	Address     string          `json:"address"`
	Name        string          `json:"name"`
	Symbol      string          `json:"symbol"`
	Decimals    uint8           `json:"decimals"`
	TotalSupply decimal.Decimal `json:"total_supply"`

	// LP is set when the token is a liquidity-pool mint.
	LP *LPInfo `json:"lp,omitempty"`
}

// LPInfo describes a liquidity-pool token: which protocol minted it and,
// when discoverable, the pool account it belongs to.
type LPInfo struct {
	Protocol string `json:"protocol"`
	Pool     string `json:"pool,omitempty"`
}

// scaledSupply converts a raw integer supply into a human amount using the
// token's decimals.
func scaledSupply(raw decimal.Decimal, decimals uint8) decimal.Decimal {
	return raw.Shift(-int32(decimals))
}
