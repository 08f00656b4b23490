package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"swapwatch/internal/domain"

	_ "modernc.org/sqlite"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(dbPath string) (*Repository, error) {
	if dbPath == "" {
		return nil, errors.New("db path is required")
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	// ":memory:" databases exist per connection.
	db.SetMaxOpenConns(1)
	if err := createSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Repository{db: db}, nil
}

func createSchema(db *sql.DB) error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS transactions (
			id TEXT PRIMARY KEY,
			block_number INTEGER NOT NULL,
			timestamp INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS swaps (
			tx_id TEXT NOT NULL,
			swap_index INTEGER NOT NULL,
			amount0_in TEXT NOT NULL,
			amount1_in TEXT NOT NULL,
			amount0_out TEXT NOT NULL,
			amount1_out TEXT NOT NULL,
			token0_symbol TEXT NOT NULL,
			token1_symbol TEXT NOT NULL,
			PRIMARY KEY (tx_id, swap_index)
		)`,
		`CREATE TABLE IF NOT EXISTS token_lists (
			list_url TEXT PRIMARY KEY,
			token_count INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS tokens (
			list_url TEXT NOT NULL,
			position INTEGER NOT NULL,
			token_id TEXT NOT NULL,
			symbol TEXT NOT NULL,
			name TEXT NOT NULL,
			PRIMARY KEY (list_url, position)
		)`,
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}

func (r *Repository) StoreTransactions(ctx context.Context, transactions []domain.IndexedTransaction) error {
	if len(transactions) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	for _, indexed := range transactions {
		id := strings.ToLower(indexed.ID)
		if _, err := tx.ExecContext(ctx, `INSERT INTO transactions (id, block_number, timestamp) VALUES (?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET block_number = excluded.block_number, timestamp = excluded.timestamp`,
			id, indexed.BlockNumber, indexed.Timestamp); err != nil {
			_ = tx.Rollback()
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM swaps WHERE tx_id = ?`, id); err != nil {
			_ = tx.Rollback()
			return err
		}
		for i, swap := range indexed.Swaps {
			if _, err := tx.ExecContext(ctx, `INSERT INTO swaps (tx_id, swap_index, amount0_in, amount1_in, amount0_out, amount1_out, token0_symbol, token1_symbol)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				id, i, swap.Amount0In, swap.Amount1In, swap.Amount0Out, swap.Amount1Out, swap.Token0Symbol, swap.Token1Symbol); err != nil {
				_ = tx.Rollback()
				return err
			}
		}
	}
	return tx.Commit()
}

func (r *Repository) GetTransaction(ctx context.Context, id string) (domain.IndexedTransaction, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	id = strings.ToLower(id)
	indexed := domain.IndexedTransaction{ID: id}
	err := r.db.QueryRowContext(ctx, `SELECT block_number, timestamp FROM transactions WHERE id = ?`, id).
		Scan(&indexed.BlockNumber, &indexed.Timestamp)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.IndexedTransaction{}, false, nil
	}
	if err != nil {
		return domain.IndexedTransaction{}, false, err
	}

	rows, err := r.db.QueryContext(ctx, `SELECT amount0_in, amount1_in, amount0_out, amount1_out, token0_symbol, token1_symbol
		FROM swaps WHERE tx_id = ? ORDER BY swap_index ASC`, id)
	if err != nil {
		return domain.IndexedTransaction{}, false, err
	}
	defer rows.Close()
	for rows.Next() {
		var swap domain.Swap
		if err := rows.Scan(&swap.Amount0In, &swap.Amount1In, &swap.Amount0Out, &swap.Amount1Out, &swap.Token0Symbol, &swap.Token1Symbol); err != nil {
			return domain.IndexedTransaction{}, false, err
		}
		indexed.Swaps = append(indexed.Swaps, swap)
	}
	if err := rows.Err(); err != nil {
		return domain.IndexedTransaction{}, false, err
	}
	return indexed, true, nil
}

func (r *Repository) StoreTokenSnapshot(ctx context.Context, listURL string, tokens []domain.Token) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM tokens WHERE list_url = ?`, listURL); err != nil {
		_ = tx.Rollback()
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO tokens (list_url, position, token_id, symbol, name) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()
	for i, token := range tokens {
		if _, err := stmt.ExecContext(ctx, listURL, i, token.ID, token.Symbol, token.Name); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO token_lists (list_url, token_count, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(list_url) DO UPDATE SET token_count = excluded.token_count, updated_at = excluded.updated_at`,
		listURL, len(tokens), time.Now().Unix()); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (r *Repository) LatestTokenSnapshot(ctx context.Context, listURL string) ([]domain.Token, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var count int
	err := r.db.QueryRowContext(ctx, `SELECT token_count FROM token_lists WHERE list_url = ?`, listURL).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	rows, err := r.db.QueryContext(ctx, `SELECT token_id, symbol, name FROM tokens WHERE list_url = ? ORDER BY position ASC`, listURL)
	if err != nil {
		return nil, false, err
	}
	defer rows.Close()
	tokens := make([]domain.Token, 0, count)
	for rows.Next() {
		var token domain.Token
		if err := rows.Scan(&token.ID, &token.Symbol, &token.Name); err != nil {
			return nil, false, err
		}
		tokens = append(tokens, token)
	}
	if err := rows.Err(); err != nil {
		return nil, false, err
	}
	return tokens, true, nil
}

func (r *Repository) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return r.db.PingContext(ctx)
}
