package subgraph

import (
	"context"
	"testing"

	"swapwatch/internal/domain"

	"github.com/stretchr/testify/require"
)

type countingBackend struct {
	txCalls    int
	tokenCalls int
}

func (b *countingBackend) Transactions(ctx context.Context, id string) ([]domain.IndexedTransaction, error) {
	b.txCalls++
	return []domain.IndexedTransaction{{ID: id}}, nil
}

func (b *countingBackend) Tokens(ctx context.Context, first int) ([]domain.Token, error) {
	b.tokenCalls++
	return []domain.Token{{ID: "0x1", Symbol: "WETH"}}, nil
}

func TestCachedBackend_PassThroughWithoutRedis(t *testing.T) {
	base := &countingBackend{}
	backend, err := NewCachedBackend(base, CacheConfig{})
	require.NoError(t, err)
	defer backend.Close()

	for i := 0; i < 2; i++ {
		_, err := backend.Transactions(context.Background(), "0xabc")
		require.NoError(t, err)
		_, err = backend.Tokens(context.Background(), 500)
		require.NoError(t, err)
	}
	backend.InvalidateTokens(context.Background(), 500)

	require.Equal(t, 2, base.txCalls)
	require.Equal(t, 2, base.tokenCalls)
}

func TestNewCachedBackend_RequiresBase(t *testing.T) {
	_, err := NewCachedBackend(nil, CacheConfig{})
	require.Error(t, err)
}
