package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"swapwatch/internal/domain"
)

// Watcher waits for submitted transactions to show up in the index and keeps
// a snapshot of the indexed token list.
type Watcher struct {
	client    *IndexQueryClient
	store     RecordStore
	publisher EventPublisher
	tokens    TokenCache
	listURL   string

	refreshMu sync.Mutex
}

var txHashPattern = regexp.MustCompile(`^0x[0-9a-f]{64}$`)

func NewWatcher(client *IndexQueryClient, store RecordStore, publisher EventPublisher, tokens TokenCache, listURL string) (*Watcher, error) {
	if client == nil {
		return nil, errors.New("index query client is required")
	}
	if strings.TrimSpace(listURL) == "" {
		return nil, errors.New("token list url is required")
	}
	return &Watcher{client: client, store: store, publisher: publisher, tokens: tokens, listURL: listURL}, nil
}

// WaitForTransaction returns the indexed transaction, polling the index when
// it has not been seen before. A popup event is published for every poll
// that ends with a found or an exhausted record.
func (w *Watcher) WaitForTransaction(ctx context.Context, hash string) (domain.IndexedTransaction, error) {
	hash = strings.ToLower(strings.TrimSpace(hash))
	if hash == "" {
		return domain.IndexedTransaction{}, fmt.Errorf("transaction hash: %w", ErrMissingInput)
	}
	if !txHashPattern.MatchString(hash) {
		return domain.IndexedTransaction{}, fmt.Errorf("transaction hash %q is malformed: %w", hash, ErrMissingInput)
	}
	if w.store != nil {
		if tx, ok, err := w.store.GetTransaction(ctx, hash); err != nil {
			slog.Warn("stored transaction lookup failed", "tx_hash", hash, "error", err)
		} else if ok {
			return tx, nil
		}
	}

	payload, err := w.client.FetchTransactionByHash(ctx, hash)
	if errors.Is(err, ErrRetryBudgetExceeded) {
		w.publishPopup(ctx, domain.TransactionPopup{
			Hash:    hash,
			Success: false,
			Summary: "Transaction not indexed",
		})
		return domain.IndexedTransaction{}, err
	}
	if err != nil {
		return domain.IndexedTransaction{}, err
	}

	tx := payload.Transactions[0]
	if w.store != nil {
		if err := w.store.StoreTransactions(ctx, payload.Transactions); err != nil {
			slog.Error("store indexed transaction failed", "tx_hash", hash, "error", err)
		}
	}
	w.publishPopup(ctx, domain.TransactionPopup{
		Hash:    hash,
		Success: true,
		Summary: SummarizeTransaction(tx),
	})
	return tx, nil
}

// RefreshTokenList fetches the token listing and compares it with the last
// stored snapshot. The returned update is published only when it changed.
// Refreshes are serialized so each diff sees the previous refresh's snapshot.
func (w *Watcher) RefreshTokenList(ctx context.Context, auto bool) (domain.ListUpdate, error) {
	w.refreshMu.Lock()
	defer w.refreshMu.Unlock()

	if w.tokens != nil {
		w.tokens.InvalidateTokens(ctx, w.client.Config().TokenListSize)
	}
	payload, err := w.client.FetchTokenList(ctx)
	if err != nil {
		return domain.ListUpdate{}, err
	}

	var previous []domain.Token
	if w.store != nil {
		previous, _, err = w.store.LatestTokenSnapshot(ctx, w.listURL)
		if err != nil {
			return domain.ListUpdate{}, fmt.Errorf("load token snapshot: %w", err)
		}
	}

	update := DiffTokenLists(w.listURL, previous, payload.Tokens)
	update.Auto = auto
	if !update.Changed() {
		return update, nil
	}

	if w.store != nil {
		if err := w.store.StoreTokenSnapshot(ctx, w.listURL, payload.Tokens); err != nil {
			return update, fmt.Errorf("store token snapshot: %w", err)
		}
	}
	if w.publisher != nil {
		if err := w.publisher.PublishListUpdate(ctx, update); err != nil {
			slog.Error("publish list update failed", "list_url", w.listURL, "error", err)
		}
	}
	slog.Info("token list updated",
		"list_url", w.listURL,
		"old_count", update.OldCount,
		"new_count", update.NewCount,
		"added", len(update.Added),
		"removed", len(update.Removed),
	)
	return update, nil
}

// RunTokenRefresh refreshes the token list every interval until ctx ends.
// Refresh failures are logged and retried on the next tick.
func (w *Watcher) RunTokenRefresh(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return errors.New("token refresh interval must be positive")
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if _, err := w.RefreshTokenList(ctx, true); err != nil && ctx.Err() == nil {
			slog.Error("token list refresh failed", "list_url", w.listURL, "error", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Tokens returns the current listing without touching the stored snapshot.
func (w *Watcher) Tokens(ctx context.Context) ([]domain.Token, error) {
	payload, err := w.client.FetchTokenList(ctx)
	if err != nil {
		return nil, err
	}
	return payload.Tokens, nil
}

func (w *Watcher) publishPopup(ctx context.Context, popup domain.TransactionPopup) {
	if w.publisher == nil {
		return
	}
	if err := w.publisher.PublishTransactionPopup(ctx, popup); err != nil {
		slog.Error("publish transaction popup failed", "tx_hash", popup.Hash, "error", err)
	}
}

// DiffTokenLists reports tokens added, removed or renamed between snapshots.
func DiffTokenLists(listURL string, previous, current []domain.Token) domain.ListUpdate {
	old := make(map[string]domain.Token, len(previous))
	for _, token := range previous {
		old[token.ID] = token
	}
	update := domain.ListUpdate{ListURL: listURL, OldCount: len(previous), NewCount: len(current)}
	seen := make(map[string]struct{}, len(current))
	for _, token := range current {
		seen[token.ID] = struct{}{}
		prev, ok := old[token.ID]
		switch {
		case !ok:
			update.Added = append(update.Added, token.ID)
		case prev.Symbol != token.Symbol || prev.Name != token.Name:
			update.Updated = append(update.Updated, token.ID)
		}
	}
	for _, token := range previous {
		if _, ok := seen[token.ID]; !ok {
			update.Removed = append(update.Removed, token.ID)
		}
	}
	sort.Strings(update.Added)
	sort.Strings(update.Removed)
	sort.Strings(update.Updated)
	return update
}
