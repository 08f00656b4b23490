package subgraph

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"swapwatch/internal/application"
	"swapwatch/internal/domain"

	"github.com/redis/go-redis/v9"
)

const (
	tokenCacheKeyPrefix = "swapwatch:tokens:first="
	txCacheKeyPrefix    = "swapwatch:tx:"
	defaultCacheTTL     = 5 * time.Minute
)

type CacheConfig struct {
	Addr string
	TTL  time.Duration
}

// CachedBackend keeps token listings for TTL and indexed transactions
// indefinitely. Empty transaction lookups are never cached so polling still
// reaches the index.
type CachedBackend struct {
	application.IndexBackend
	cache *redis.Client
	ttl   time.Duration
}

func NewCachedBackend(base application.IndexBackend, cfg CacheConfig) (*CachedBackend, error) {
	if base == nil {
		return nil, errors.New("base backend is required")
	}
	if strings.TrimSpace(cfg.Addr) == "" {
		return &CachedBackend{IndexBackend: base}, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr: cfg.Addr,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return newCachedBackend(base, client, cfg.TTL), nil
}

func newCachedBackend(base application.IndexBackend, client *redis.Client, ttl time.Duration) *CachedBackend {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &CachedBackend{IndexBackend: base, cache: client, ttl: ttl}
}

func (b *CachedBackend) Close() error {
	if b.cache == nil {
		return nil
	}
	return b.cache.Close()
}

func (b *CachedBackend) Transactions(ctx context.Context, id string) ([]domain.IndexedTransaction, error) {
	if b.cache == nil {
		return b.IndexBackend.Transactions(ctx, id)
	}
	key := txCacheKeyPrefix + strings.ToLower(id)
	if cached, err := b.cache.Get(ctx, key).Result(); err == nil {
		var transactions []domain.IndexedTransaction
		if err := json.Unmarshal([]byte(cached), &transactions); err == nil && len(transactions) > 0 {
			return transactions, nil
		}
	}

	transactions, err := b.IndexBackend.Transactions(ctx, id)
	if err != nil || len(transactions) == 0 {
		return transactions, err
	}
	if payload, err := json.Marshal(transactions); err == nil {
		_ = b.cache.Set(ctx, key, payload, 0).Err()
	}
	return transactions, nil
}

func (b *CachedBackend) Tokens(ctx context.Context, first int) ([]domain.Token, error) {
	if b.cache == nil {
		return b.IndexBackend.Tokens(ctx, first)
	}
	key := tokenCacheKeyPrefix + strconv.Itoa(first)
	if cached, err := b.cache.Get(ctx, key).Result(); err == nil {
		var tokens []domain.Token
		if err := json.Unmarshal([]byte(cached), &tokens); err == nil {
			return tokens, nil
		}
	}

	tokens, err := b.IndexBackend.Tokens(ctx, first)
	if err != nil {
		return nil, err
	}
	if payload, err := json.Marshal(tokens); err == nil {
		_ = b.cache.Set(ctx, key, payload, b.ttl).Err()
	}
	return tokens, nil
}

// InvalidateTokens drops cached listings so the next call reaches the index.
func (b *CachedBackend) InvalidateTokens(ctx context.Context, first int) {
	if b.cache == nil {
		return
	}
	_ = b.cache.Del(ctx, tokenCacheKeyPrefix+strconv.Itoa(first)).Err()
}
