package application

import (
	"math/big"
	"testing"

	"swapwatch/internal/domain"

	"github.com/stretchr/testify/require"
)

func TestMaxSpendable_NativeAboveReserve(t *testing.T) {
	calc := NewSpendCalculator(big.NewInt(10), nil)

	got := calc.MaxSpendable(domain.NativeAmount(big.NewInt(1000), 1), 1, true)
	require.NotNil(t, got)
	require.True(t, got.Currency().IsNative())
	require.Equal(t, domain.ChainID(1), got.ChainID())
	require.Equal(t, "990", got.String())

	got = calc.MaxSpendable(domain.NativeAmount(big.NewInt(11), 1), 1, true)
	require.Equal(t, "1", got.String())
}

func TestMaxSpendable_NativeAtOrBelowReserveClampsToZero(t *testing.T) {
	calc := NewSpendCalculator(big.NewInt(10), nil)

	for _, raw := range []int64{0, 5, 10} {
		got := calc.MaxSpendable(domain.NativeAmount(big.NewInt(raw), 1), 1, true)
		require.NotNil(t, got)
		require.True(t, got.Currency().IsNative())
		require.Equal(t, 0, got.Raw().Sign(), "raw=%d", raw)
	}
}

func TestMaxSpendable_PassThrough(t *testing.T) {
	calc := NewSpendCalculator(big.NewInt(10), nil)

	token := domain.NewCurrencyAmount(domain.NewToken("0xABC", "DXD"), 1, big.NewInt(5))
	require.Same(t, token, calc.MaxSpendable(token, 1, true))

	native := domain.NativeAmount(big.NewInt(5), 1)
	require.Same(t, native, calc.MaxSpendable(native, 1, false))
}

func TestMaxSpendable_NotReady(t *testing.T) {
	calc := NewSpendCalculator(big.NewInt(10), nil)

	require.Nil(t, calc.MaxSpendable(nil, 1, true))
	require.Nil(t, calc.MaxSpendable(domain.NativeAmount(big.NewInt(1000), 1), 0, true))
	require.Nil(t, calc.MaxSpendable(nil, 0, false))
}

func TestMaxSpendable_ArbitraryPrecision(t *testing.T) {
	calc := NewSpendCalculator(big.NewInt(10), nil)
	huge := new(big.Int).Lsh(big.NewInt(1), 300)

	input := domain.NativeAmount(huge, 1)
	got := calc.MaxSpendable(input, 1, true)

	want := new(big.Int).Sub(huge, big.NewInt(10))
	require.Zero(t, want.Cmp(got.Raw()))
	require.Zero(t, huge.Cmp(input.Raw()), "input must not change")
}

func TestMaxSpendable_ChainReserveOverride(t *testing.T) {
	calc := NewSpendCalculator(big.NewInt(10), map[domain.ChainID]*big.Int{100: big.NewInt(400)})

	require.Equal(t, "600", calc.MaxSpendable(domain.NativeAmount(big.NewInt(1000), 100), 100, true).String())
	require.Equal(t, "990", calc.MaxSpendable(domain.NativeAmount(big.NewInt(1000), 1), 1, true).String())
}

func TestMaxSpendable_DefaultReserve(t *testing.T) {
	oneEther := new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

	got := MaxSpendable(domain.NativeAmount(oneEther, 1), 1, true)

	want := new(big.Int).Sub(oneEther, DefaultReserve)
	require.Zero(t, want.Cmp(got.Raw()))
	require.Equal(t, "10000000000000000", DefaultReserve.String())
}
