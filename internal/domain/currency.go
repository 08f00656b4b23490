package domain

import "strings"

// ChainID identifies a network. The zero value means the chain is unknown.
type ChainID uint64

// CurrencyKind separates the chain's base asset from secondary tokens.
type CurrencyKind string

const (
	CurrencyKindNative CurrencyKind = "native"
	CurrencyKindToken  CurrencyKind = "token"
)

// Currency identifies a fungible asset. Tokens are identified by their
// contract address; the native currency has no address.
type Currency struct {
	Kind    CurrencyKind
	Address string
	Symbol  string
}

// Native is the chain's base currency.
var Native = Currency{Kind: CurrencyKindNative, Symbol: "ETH"}

func NewToken(address, symbol string) Currency {
	return Currency{Kind: CurrencyKindToken, Address: strings.ToLower(address), Symbol: symbol}
}

func (c Currency) IsNative() bool {
	return c.Kind == CurrencyKindNative
}

// Equal compares identity only; symbols are display data.
func (c Currency) Equal(other Currency) bool {
	if c.Kind != other.Kind {
		return false
	}
	if c.Kind == CurrencyKindNative {
		return true
	}
	return strings.EqualFold(c.Address, other.Address)
}
