package application

import (
	"context"

	"swapwatch/internal/domain"
)

// RecordStore persists what the watcher has observed on the index.
type RecordStore interface {
	StoreTransactions(ctx context.Context, transactions []domain.IndexedTransaction) error
	GetTransaction(ctx context.Context, id string) (domain.IndexedTransaction, bool, error)
	StoreTokenSnapshot(ctx context.Context, listURL string, tokens []domain.Token) error
	LatestTokenSnapshot(ctx context.Context, listURL string) ([]domain.Token, bool, error)
	Ping(ctx context.Context) error
}

type EventPublisher interface {
	PublishTransactionPopup(ctx context.Context, popup domain.TransactionPopup) error
	PublishListUpdate(ctx context.Context, update domain.ListUpdate) error
}

type TokenCache interface {
	InvalidateTokens(ctx context.Context, first int)
}
