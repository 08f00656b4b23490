package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(EnvMap{})
	require.NoError(t, err)

	require.Equal(t, defaultSubgraphURL, cfg.SubgraphURL)
	require.Equal(t, 30*time.Second, cfg.SubgraphTimeout)
	require.Equal(t, "10000000000000000", cfg.ReserveMinimum.String())
	require.Nil(t, cfg.ChainReserves)
	require.Equal(t, 200, cfg.MaxAttempts)
	require.Equal(t, time.Second, cfg.RetryDelay)
	require.Zero(t, cfg.TransportRetries)
	require.Equal(t, 500, cfg.TokenListSize)
	require.Zero(t, cfg.TokenRefresh)
	require.Equal(t, "sqlite", cfg.DBDriver)
	require.Equal(t, "swapwatch.db", cfg.DBDSN)
	require.Equal(t, ":8080", cfg.HTTPAddr)
	require.Equal(t, "swapwatch-popups", cfg.KafkaTopic)
	require.Empty(t, cfg.KafkaBrokers)
	require.Equal(t, 5*time.Minute, cfg.CacheTTL)
	require.Equal(t, "info", cfg.LogLevel)
	require.Equal(t, 100, cfg.LogMaxSizeMB)
	require.Equal(t, 3, cfg.LogMaxBackups)
}

func TestLoad_Overrides(t *testing.T) {
	cfg, err := Load(EnvMap{
		"SUBGRAPH_URL":           "http://localhost:8000/subgraphs/name/swapr",
		"RESERVE_MINIMUM":        "5000",
		"CHAIN_RESERVES":         "1:100, 100:0",
		"RETRY_MAX_ATTEMPTS":     "10",
		"RETRY_DELAY":            "250ms",
		"TRANSPORT_RETRIES":      "3",
		"TOKEN_REFRESH_INTERVAL": "1m",
		"DB_DRIVER":              "MySQL",
		"KAFKA_BROKERS":          "kafka-1:9092, kafka-2:9092,",
		"REDIS_ADDR":             " localhost:6379 ",
	})
	require.NoError(t, err)

	require.Equal(t, "http://localhost:8000/subgraphs/name/swapr", cfg.SubgraphURL)
	require.Equal(t, "5000", cfg.ReserveMinimum.String())
	require.Len(t, cfg.ChainReserves, 2)
	require.Equal(t, "100", cfg.ChainReserves[1].String())
	require.Zero(t, cfg.ChainReserves[100].Sign())
	require.Equal(t, 10, cfg.MaxAttempts)
	require.Equal(t, 250*time.Millisecond, cfg.RetryDelay)
	require.Equal(t, 3, cfg.TransportRetries)
	require.Equal(t, time.Minute, cfg.TokenRefresh)
	require.Equal(t, "mysql", cfg.DBDriver)
	require.Contains(t, cfg.DBDSN, "/swapwatch")
	require.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokers)
	require.Equal(t, "localhost:6379", cfg.RedisAddr)
}

func TestLoad_Invalid(t *testing.T) {
	tests := map[string]EnvMap{
		"zero attempts":     {"RETRY_MAX_ATTEMPTS": "0"},
		"negative retries":  {"TRANSPORT_RETRIES": "-1"},
		"bad delay":         {"RETRY_DELAY": "soon"},
		"negative reserve":  {"RESERVE_MINIMUM": "-1"},
		"fractional amount": {"RESERVE_MINIMUM": "0.01"},
		"bad chain entry":   {"CHAIN_RESERVES": "1=100"},
		"zero chain":        {"CHAIN_RESERVES": "0:100"},
		"unknown driver":    {"DB_DRIVER": "postgres"},
	}
	for name, env := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Load(env)
			require.Error(t, err)
		})
	}

	_, err := Load(nil)
	require.Error(t, err)
}
