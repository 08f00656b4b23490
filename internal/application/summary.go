package application

import (
	"fmt"
	"math/big"

	"swapwatch/internal/domain"
)

// SummarizeTransaction describes the first swap of a transaction, e.g.
// "Swap 1.5 WETH for 300 DXD".
func SummarizeTransaction(tx domain.IndexedTransaction) string {
	if len(tx.Swaps) == 0 {
		return fmt.Sprintf("Transaction confirmed in block %d", tx.BlockNumber)
	}
	swap := tx.Swaps[0]
	if !isZeroDecimal(swap.Amount0In) {
		return fmt.Sprintf("Swap %s %s for %s %s", swap.Amount0In, swap.Token0Symbol, swap.Amount1Out, swap.Token1Symbol)
	}
	return fmt.Sprintf("Swap %s %s for %s %s", swap.Amount1In, swap.Token1Symbol, swap.Amount0Out, swap.Token0Symbol)
}

func isZeroDecimal(value string) bool {
	if value == "" {
		return true
	}
	parsed, ok := new(big.Rat).SetString(value)
	return !ok || parsed.Sign() == 0
}
