package tokens

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// Token is one entry in the resolver registry.
type Token struct {
	Address  string
	Decimals int
}

// Registry maps uppercase token symbols to their canonical mainnet address
// and decimal count. It is immutable after construction; pass an alternate
// map in tests to exercise resolution without touching the real registry.
type Registry map[string]Token

// DefaultRegistry returns the standard set of tokens the swap tools accept.
func DefaultRegistry() Registry {
	return Registry{
		"ETH":  {Address: "0xEeeeeEeeeEeEeeEeEeEeeEEEeeeeEeeeeeeeEEeE", Decimals: 18},
		"WETH": {Address: "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2", Decimals: 18},
		"USDT": {Address: "0xdAC17F958D2ee523a2206206994597C13D831ec7", Decimals: 6},
		"USDC": {Address: "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48", Decimals: 6},
		"DAI":  {Address: "0x6B175474E89094C44Da98b954EedeAC495271d0F", Decimals: 18},
		"WBTC": {Address: "0x2260FAC5E5542a773Aa44fBCfeDf7C193bc2C599", Decimals: 18},
	}
}

// UnknownTokenError is returned when a symbol or address cannot be resolved.
// It carries the supported symbol list so the tool surface can report it.
type UnknownTokenError struct {
	Token     string
	Supported []string
}

func (e *UnknownTokenError) Error() string {
	return fmt.Sprintf("unknown token %q, supported symbols: %s", e.Token, strings.Join(e.Supported, ", "))
}

// Resolver resolves token symbols and raw addresses against a fixed registry.
type Resolver struct {
	registry Registry
	byAddr   map[string]Token
}

// NewResolver builds a resolver over the given registry. The registry is
// read-only after this call.
func NewResolver(registry Registry) *Resolver {
	byAddr := make(map[string]Token, len(registry))
	for _, tok := range registry {
		byAddr[strings.ToLower(tok.Address)] = tok
	}
	return &Resolver{registry: registry, byAddr: byAddr}
}

// Supported returns the registry's symbols in sorted order.
func (r *Resolver) Supported() []string {
	out := make([]string, 0, len(r.registry))
	for sym := range r.registry {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}

// Resolve maps a symbol or hex address to its canonical address and decimal
// count. Raw addresses must carry the lowercase 0x prefix and pass through
// unchanged; unknown addresses default to 18 decimals.
func (r *Resolver) Resolve(token string) (Token, error) {
	token = strings.TrimSpace(token)

	if strings.HasPrefix(token, "0x") && common.IsHexAddress(token) {
		if tok, ok := r.byAddr[strings.ToLower(token)]; ok {
			return Token{Address: token, Decimals: tok.Decimals}, nil
		}
		return Token{Address: token, Decimals: 18}, nil
	}

	if tok, ok := r.registry[strings.ToUpper(token)]; ok {
		return tok, nil
	}

	return Token{}, &UnknownTokenError{Token: token, Supported: r.Supported()}
}

// ToSmallestUnit converts a human-readable amount into the integer
// smallest-unit string for a token with the given decimal count. The scaling
// is exact decimal arithmetic; fractional dust below the token's resolution
// is truncated, never rounded up.
func ToSmallestUnit(amount string, decimals int) (string, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil {
		return "", fmt.Errorf("invalid amount %q: %w", amount, err)
	}
	if d.Sign() <= 0 {
		return "", fmt.Errorf("amount must be greater than zero")
	}
	return d.Shift(int32(decimals)).Truncate(0).String(), nil
}
