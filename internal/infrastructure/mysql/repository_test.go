package mysql

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"strings"
	"testing"

	"swapwatch/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

func newMockRepository(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return &Repository{db: db}, mock
}

func TestStoreTransactions_ReplacesSwaps(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO transactions").
		WithArgs("0xabc", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("DELETE FROM swaps").
		WithArgs("0xabc").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("INSERT INTO swaps").
		WithArgs("0xabc", sqlmock.AnyArg(), "1.5", "0", "0", "300", "WETH", "DXD").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := repo.StoreTransactions(context.Background(), []domain.IndexedTransaction{{
		ID:          "0xABC",
		BlockNumber: 9137,
		Timestamp:   1617000000,
		Swaps: []domain.Swap{{
			Amount0In: "1.5", Amount1In: "0", Amount0Out: "0", Amount1Out: "300",
			Token0Symbol: "WETH", Token1Symbol: "DXD",
		}},
	}})
	require.NoError(t, err)
}

func TestStoreTransactions_RollsBackOnError(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO transactions").WillReturnError(errors.New("deadlock"))
	mock.ExpectRollback()

	err := repo.StoreTransactions(context.Background(), []domain.IndexedTransaction{{ID: "0x1"}})
	require.EqualError(t, err, "deadlock")
}

func TestGetTransaction(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectQuery("SELECT block_number, timestamp FROM transactions").
		WithArgs("0xabc").
		WillReturnRows(sqlmock.NewRows([]string{"block_number", "timestamp"}).AddRow(int64(9137), int64(1617000000)))
	mock.ExpectQuery("FROM swaps WHERE tx_id").
		WithArgs("0xabc").
		WillReturnRows(sqlmock.NewRows([]string{"amount0_in", "amount1_in", "amount0_out", "amount1_out", "token0_symbol", "token1_symbol"}).
			AddRow("1.5", "0", "0", "300", "WETH", "DXD"))

	tx, ok, err := repo.GetTransaction(context.Background(), "0xABC")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(9137), tx.BlockNumber)
	require.Equal(t, uint64(1617000000), tx.Timestamp)
	require.Equal(t, []domain.Swap{{
		Amount0In: "1.5", Amount1In: "0", Amount0Out: "0", Amount1Out: "300",
		Token0Symbol: "WETH", Token1Symbol: "DXD",
	}}, tx.Swaps)
}

func TestGetTransaction_NotFound(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectQuery("SELECT block_number, timestamp FROM transactions").
		WithArgs("0xabc").
		WillReturnError(sql.ErrNoRows)

	_, ok, err := repo.GetTransaction(context.Background(), "0xabc")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestStoreTokenSnapshot_BatchesAndClipsText(t *testing.T) {
	repo, mock := newMockRepository(t)
	const listURL = "https://index.example/swapr"

	tokens := make([]domain.Token, 201)
	for i := range tokens {
		tokens[i] = domain.Token{ID: "0x1", Symbol: "TKN", Name: "Token"}
	}
	tokens[0].Symbol = strings.Repeat("S", 300)
	tokens[0].Name = strings.Repeat("é", 256)

	firstBatch := make([]driver.Value, 0, 200*5)
	for i := 0; i < 200; i++ {
		symbol, name := "TKN", "Token"
		if i == 0 {
			symbol, name = strings.Repeat("S", 255), strings.Repeat("é", 255)
		}
		firstBatch = append(firstBatch, listURL, sqlmock.AnyArg(), "0x1", symbol, name)
	}

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM tokens WHERE list_url").
		WithArgs(listURL).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO tokens").
		WithArgs(firstBatch...).
		WillReturnResult(sqlmock.NewResult(0, 200))
	mock.ExpectExec("INSERT INTO tokens").
		WithArgs(listURL, sqlmock.AnyArg(), "0x1", "TKN", "Token").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO token_lists").
		WithArgs(listURL, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.StoreTokenSnapshot(context.Background(), listURL, tokens))
}

func TestLatestTokenSnapshot(t *testing.T) {
	repo, mock := newMockRepository(t)
	const listURL = "https://index.example/swapr"

	mock.ExpectQuery("SELECT token_count FROM token_lists").
		WithArgs(listURL).
		WillReturnRows(sqlmock.NewRows([]string{"token_count"}).AddRow(2))
	mock.ExpectQuery("SELECT token_id, symbol, name FROM tokens").
		WithArgs(listURL).
		WillReturnRows(sqlmock.NewRows([]string{"token_id", "symbol", "name"}).
			AddRow("0x2", "DXD", "DXdao").
			AddRow("0x1", "WETH", "Wrapped Ether"))

	tokens, ok, err := repo.LatestTokenSnapshot(context.Background(), listURL)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []domain.Token{
		{ID: "0x2", Symbol: "DXD", Name: "DXdao"},
		{ID: "0x1", Symbol: "WETH", Name: "Wrapped Ether"},
	}, tokens)
}

func TestClip(t *testing.T) {
	require.Equal(t, "WETH", clip("WETH"))
	require.Equal(t, maxTextLen, len([]rune(clip(strings.Repeat("ü", 400)))))
}
