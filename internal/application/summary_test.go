package application

import (
	"testing"

	"swapwatch/internal/domain"
)

func TestSummarizeTransaction(t *testing.T) {
	tests := []struct {
		name string
		tx   domain.IndexedTransaction
		want string
	}{
		{
			name: "no swaps",
			tx:   domain.IndexedTransaction{ID: "0x1", BlockNumber: 9001},
			want: "Transaction confirmed in block 9001",
		},
		{
			name: "token0 in",
			tx: domain.IndexedTransaction{Swaps: []domain.Swap{{
				Amount0In: "1.5", Amount1In: "0", Amount0Out: "0", Amount1Out: "300",
				Token0Symbol: "WETH", Token1Symbol: "DXD",
			}}},
			want: "Swap 1.5 WETH for 300 DXD",
		},
		{
			name: "token1 in",
			tx: domain.IndexedTransaction{Swaps: []domain.Swap{{
				Amount0In: "0.000", Amount1In: "25", Amount0Out: "0.1", Amount1Out: "0",
				Token0Symbol: "WETH", Token1Symbol: "DXD",
			}}},
			want: "Swap 25 DXD for 0.1 WETH",
		},
		{
			name: "first swap only",
			tx: domain.IndexedTransaction{Swaps: []domain.Swap{
				{Amount0In: "2", Amount1Out: "4", Token0Symbol: "A", Token1Symbol: "B"},
				{Amount0In: "8", Amount1Out: "16", Token0Symbol: "C", Token1Symbol: "D"},
			}},
			want: "Swap 2 A for 4 B",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SummarizeTransaction(tt.tx); got != tt.want {
				t.Errorf("SummarizeTransaction() = %q, want %q", got, tt.want)
			}
		})
	}
}
