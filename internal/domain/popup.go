package domain

// TransactionPopup reports the indexing result of a submitted transaction.
type TransactionPopup struct {
	Hash    string
	Success bool
	Summary string
}

// ListUpdate describes a change between two snapshots of a token list.
type ListUpdate struct {
	ListURL  string
	OldCount int
	NewCount int
	Added    []string
	Removed  []string
	Updated  []string
	Auto     bool
}

func (u ListUpdate) Changed() bool {
	return len(u.Added) > 0 || len(u.Removed) > 0 || len(u.Updated) > 0
}
