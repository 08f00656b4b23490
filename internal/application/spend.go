package application

import (
	"math/big"

	"swapwatch/internal/domain"
)

// DefaultReserve is 0.01 of an 18-decimals native unit, kept back so the
// account can still pay for a later transaction.
var DefaultReserve = new(big.Int).Exp(big.NewInt(10), big.NewInt(16), nil)

// SpendCalculator bounds a spend by the native currency reserve. It is read
// only after construction.
type SpendCalculator struct {
	Reserve       *big.Int
	ChainReserves map[domain.ChainID]*big.Int
}

func NewSpendCalculator(reserve *big.Int, chainReserves map[domain.ChainID]*big.Int) SpendCalculator {
	if reserve == nil || reserve.Sign() < 0 {
		reserve = DefaultReserve
	}
	return SpendCalculator{Reserve: new(big.Int).Set(reserve), ChainReserves: chainReserves}
}

// ReserveFor returns the reserve that applies on chainID.
func (c SpendCalculator) ReserveFor(chainID domain.ChainID) *big.Int {
	if reserve, ok := c.ChainReserves[chainID]; ok && reserve != nil && reserve.Sign() >= 0 {
		return reserve
	}
	if c.Reserve == nil {
		return DefaultReserve
	}
	return c.Reserve
}

// MaxSpendable returns the largest amount of the given currency that may be
// spent. It returns nil when the amount or chain is not known yet.
func (c SpendCalculator) MaxSpendable(amount *domain.CurrencyAmount, chainID domain.ChainID, reserveMinimum bool) *domain.CurrencyAmount {
	if amount == nil || chainID == 0 {
		return nil
	}
	if !amount.Currency().Equal(domain.Native) || !reserveMinimum {
		return amount
	}
	reserve := c.ReserveFor(chainID)
	if amount.Cmp(reserve) > 0 {
		return domain.NativeAmount(new(big.Int).Sub(amount.Raw(), reserve), chainID)
	}
	return domain.NativeAmount(big.NewInt(0), chainID)
}

// MaxSpendable applies DefaultReserve.
func MaxSpendable(amount *domain.CurrencyAmount, chainID domain.ChainID, reserveMinimum bool) *domain.CurrencyAmount {
	return SpendCalculator{Reserve: DefaultReserve}.MaxSpendable(amount, chainID, reserveMinimum)
}
