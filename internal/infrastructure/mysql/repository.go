package mysql

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"swapwatch/internal/domain"

	_ "github.com/go-sql-driver/mysql"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// maxTextLen is the VARCHAR width of symbol and name columns. Token metadata
// is user supplied and gets clipped to fit.
const maxTextLen = 255

type Repository struct {
	db *sql.DB
}

func NewRepository(dsn string) (*Repository, error) {
	if dsn == "" {
		return nil, errors.New("db dsn is required")
	}
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := createSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Repository{db: db}, nil
}

func createSchema(db *sql.DB) error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS transactions (
			id VARCHAR(66) NOT NULL,
			block_number BIGINT UNSIGNED NOT NULL,
			timestamp BIGINT UNSIGNED NOT NULL,
			PRIMARY KEY (id),
			KEY transactions_block_idx (block_number)
		)`,
		`CREATE TABLE IF NOT EXISTS swaps (
			tx_id VARCHAR(66) NOT NULL,
			swap_index INT UNSIGNED NOT NULL,
			amount0_in VARCHAR(96) NOT NULL,
			amount1_in VARCHAR(96) NOT NULL,
			amount0_out VARCHAR(96) NOT NULL,
			amount1_out VARCHAR(96) NOT NULL,
			token0_symbol VARCHAR(255) NOT NULL,
			token1_symbol VARCHAR(255) NOT NULL,
			PRIMARY KEY (tx_id, swap_index)
		)`,
		`CREATE TABLE IF NOT EXISTS token_lists (
			list_url VARCHAR(255) NOT NULL,
			token_count INT UNSIGNED NOT NULL,
			updated_at BIGINT NOT NULL,
			PRIMARY KEY (list_url)
		)`,
		`CREATE TABLE IF NOT EXISTS tokens (
			list_url VARCHAR(255) NOT NULL,
			position INT UNSIGNED NOT NULL,
			token_id VARCHAR(66) NOT NULL,
			symbol VARCHAR(255) NOT NULL,
			name VARCHAR(255) NOT NULL,
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

func (r *Repository) StoreTransactions(ctx context.Context, transactions []domain.IndexedTransaction) (err error) {
	if len(transactions) == 0 {
		return nil
	}
	ctx, span := startSpan(ctx, "mysql.store_transactions", attribute.Int("tx.count", len(transactions)))
	defer func() { endSpan(span, err) }()
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	for _, indexed := range transactions {
		id := strings.ToLower(indexed.ID)
		if _, err = tx.ExecContext(ctx, `INSERT INTO transactions (id, block_number, timestamp) VALUES (?, ?, ?)
			ON DUPLICATE KEY UPDATE block_number = VALUES(block_number), timestamp = VALUES(timestamp)`,
			id, indexed.BlockNumber, indexed.Timestamp); err != nil {
			_ = tx.Rollback()
			return err
		}
		if _, err = tx.ExecContext(ctx, `DELETE FROM swaps WHERE tx_id = ?`, id); err != nil {
			_ = tx.Rollback()
			return err
		}
		for i, swap := range indexed.Swaps {
			if _, err = tx.ExecContext(ctx, `INSERT INTO swaps (tx_id, swap_index, amount0_in, amount1_in, amount0_out, amount1_out, token0_symbol, token1_symbol)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				id, i, swap.Amount0In, swap.Amount1In, swap.Amount0Out, swap.Amount1Out, clip(swap.Token0Symbol), clip(swap.Token1Symbol)); err != nil {
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

func (r *Repository) StoreTokenSnapshot(ctx context.Context, listURL string, tokens []domain.Token) (err error) {
	ctx, span := startSpan(ctx, "mysql.store_token_snapshot",
		attribute.String("list.url", listURL),
		attribute.Int("tokens.count", len(tokens)),
	)
	defer func() { endSpan(span, err) }()
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM tokens WHERE list_url = ?`, listURL); err != nil {
		_ = tx.Rollback()
		return err
	}

	const batchSize = 200
	for start := 0; start < len(tokens); start += batchSize {
		end := start + batchSize
		if end > len(tokens) {
			end = len(tokens)
		}
		placeholders := make([]string, 0, end-start)
		args := make([]any, 0, (end-start)*5)
		for i := start; i < end; i++ {
			placeholders = append(placeholders, "(?, ?, ?, ?, ?)")
			args = append(args, listURL, i, tokens[i].ID, clip(tokens[i].Symbol), clip(tokens[i].Name))
		}
		query := `INSERT INTO tokens (list_url, position, token_id, symbol, name) VALUES ` + strings.Join(placeholders, ", ")
		if _, err = tx.ExecContext(ctx, query, args...); err != nil {
			_ = tx.Rollback()
			return err
		}
	}

	if _, err = tx.ExecContext(ctx, `INSERT INTO token_lists (list_url, token_count, updated_at) VALUES (?, ?, ?)
		ON DUPLICATE KEY UPDATE token_count = VALUES(token_count), updated_at = VALUES(updated_at)`,
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

func clip(value string) string {
	if utf8.RuneCountInString(value) <= maxTextLen {
		return value
	}
	runes := []rune(value)
	return string(runes[:maxTextLen])
}

func startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	ctx, span := otel.Tracer("swapwatch/mysql").Start(ctx, name, trace.WithSpanKind(trace.SpanKindClient))
	span.SetAttributes(attribute.String("db.system", "mysql"))
	span.SetAttributes(attrs...)
	return ctx, span
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
