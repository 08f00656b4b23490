package domain

// QueryKind selects the shape of an index query.
type QueryKind string

const (
	QueryKindTransaction QueryKind = "transaction"
	QueryKindTokenList   QueryKind = "token_list"
)

// QueryRequest names what is being asked of the indexer.
type QueryRequest struct {
	Kind QueryKind
	Key  string
}
