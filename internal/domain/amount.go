package domain

import "math/big"

// CurrencyAmount is a non-negative magnitude of a currency on a chain.
// Values are treated as immutable; Raw returns a copy.
type CurrencyAmount struct {
	currency Currency
	chainID  ChainID
	raw      *big.Int
}

// NewCurrencyAmount copies raw and clamps negative values to zero.
func NewCurrencyAmount(currency Currency, chainID ChainID, raw *big.Int) *CurrencyAmount {
	value := new(big.Int)
	if raw != nil && raw.Sign() > 0 {
		value.Set(raw)
	}
	return &CurrencyAmount{currency: currency, chainID: chainID, raw: value}
}

func NativeAmount(raw *big.Int, chainID ChainID) *CurrencyAmount {
	return NewCurrencyAmount(Native, chainID, raw)
}

func (a *CurrencyAmount) Currency() Currency {
	return a.currency
}

func (a *CurrencyAmount) ChainID() ChainID {
	return a.chainID
}

func (a *CurrencyAmount) Raw() *big.Int {
	return new(big.Int).Set(a.raw)
}

func (a *CurrencyAmount) Cmp(other *big.Int) int {
	return a.raw.Cmp(other)
}

func (a *CurrencyAmount) String() string {
	return a.raw.String()
}
