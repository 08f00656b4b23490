package domain

// Token is an entry of the indexer's token listing.
type Token struct {
	ID     string
	Symbol string
	Name   string
}
