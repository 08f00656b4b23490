package domain

// Swap is a single pair swap recorded by the indexer inside a transaction.
type Swap struct {
	Amount0In    string
	Amount1In    string
	Amount0Out   string
	Amount1Out   string
	Token0Symbol string
	Token1Symbol string
}

// IndexedTransaction is a transaction as it appears in the indexing service.
type IndexedTransaction struct {
	ID          string
	BlockNumber uint64
	Timestamp   uint64
	Swaps       []Swap
}
