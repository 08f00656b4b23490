package subgraph

import (
	"context"
	"testing"
	"time"

	"swapwatch/internal/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

// scriptedBackend answers transaction lookups from found and counts every call.
type scriptedBackend struct {
	found      map[string]bool
	txCalls    map[string]int
	tokenCalls int
}

func (b *scriptedBackend) Transactions(ctx context.Context, id string) ([]domain.IndexedTransaction, error) {
	b.txCalls[id]++
	if !b.found[id] {
		return nil, nil
	}
	return []domain.IndexedTransaction{{ID: id, BlockNumber: 12}}, nil
}

func (b *scriptedBackend) Tokens(ctx context.Context, first int) ([]domain.Token, error) {
	b.tokenCalls++
	return []domain.Token{{ID: "0x1", Symbol: "WETH", Name: "Wrapped Ether"}}, nil
}

func newRedisBackend(t *testing.T, ttl time.Duration) (*CachedBackend, *scriptedBackend, *miniredis.Miniredis) {
	t.Helper()
	server := miniredis.RunT(t)
	base := &scriptedBackend{found: make(map[string]bool), txCalls: make(map[string]int)}
	backend := newCachedBackend(base, redis.NewClient(&redis.Options{Addr: server.Addr()}), ttl)
	t.Cleanup(func() { _ = backend.Close() })
	return backend, base, server
}

func TestCachedBackend_EmptyLookupsReachIndex(t *testing.T) {
	backend, base, server := newRedisBackend(t, time.Minute)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		transactions, err := backend.Transactions(ctx, "0xpending")
		require.NoError(t, err)
		require.Empty(t, transactions)
	}
	require.Equal(t, 2, base.txCalls["0xpending"])
	require.False(t, server.Exists(txCacheKeyPrefix+"0xpending"))
}

func TestCachedBackend_FoundTransactionsCachedWithoutExpiry(t *testing.T) {
	backend, base, server := newRedisBackend(t, time.Minute)
	ctx := context.Background()
	base.found["0xABC"] = true

	transactions, err := backend.Transactions(ctx, "0xABC")
	require.NoError(t, err)
	require.Len(t, transactions, 1)

	key := txCacheKeyPrefix + "0xabc"
	require.True(t, server.Exists(key))
	require.Zero(t, server.TTL(key))

	server.FastForward(24 * time.Hour)
	transactions, err = backend.Transactions(ctx, "0xabc")
	require.NoError(t, err)
	require.Equal(t, []domain.IndexedTransaction{{ID: "0xABC", BlockNumber: 12}}, transactions)
	require.Equal(t, 1, base.txCalls["0xABC"])
	require.Zero(t, base.txCalls["0xabc"])
}

func TestCachedBackend_TokensExpireAndInvalidate(t *testing.T) {
	backend, base, server := newRedisBackend(t, time.Minute)
	ctx := context.Background()

	fetch := func() {
		t.Helper()
		tokens, err := backend.Tokens(ctx, 500)
		require.NoError(t, err)
		require.Len(t, tokens, 1)
	}

	fetch()
	fetch()
	require.Equal(t, 1, base.tokenCalls)
	require.Equal(t, time.Minute, server.TTL(tokenCacheKeyPrefix+"500"))

	backend.InvalidateTokens(ctx, 500)
	fetch()
	require.Equal(t, 2, base.tokenCalls)

	server.FastForward(2 * time.Minute)
	fetch()
	require.Equal(t, 3, base.tokenCalls)

	_, err := backend.Tokens(ctx, 50)
	require.NoError(t, err)
	require.Equal(t, 4, base.tokenCalls)
}

func TestNewCachedBackend_DefaultTTL(t *testing.T) {
	backend, _, _ := newRedisBackend(t, 0)
	require.Equal(t, defaultCacheTTL, backend.ttl)
}
