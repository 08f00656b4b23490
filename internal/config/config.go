package config

import (
	"errors"
	"fmt"
	"math/big"
	"os"
	"strconv"
	"strings"
	"time"
)

const defaultSubgraphURL = "https://api.thegraph.com/subgraphs/name/dxgraphs/swapr-rinkeby"

type Config struct {
	SubgraphURL      string
	SubgraphTimeout  time.Duration
	HTTPAddr         string
	ReserveMinimum   *big.Int
	ChainReserves    map[uint64]*big.Int
	MaxAttempts      int
	RetryDelay       time.Duration
	TransportRetries int
	TokenListSize    int
	TokenRefresh     time.Duration
	DBDriver         string
	DBDSN            string
	RedisAddr        string
	CacheTTL         time.Duration
	KafkaBrokers     []string
	KafkaTopic       string
	OtelEndpoint     string
	LogLevel         string
	LogFormat        string
	LogFile          string
	LogMaxSizeMB     int
	LogMaxBackups    int
}

type EnvSource interface {
	Lookup(key string) (string, bool)
}

type EnvMap map[string]string

func (e EnvMap) Lookup(key string) (string, bool) {
	value, ok := e[key]
	return value, ok
}

type osEnv struct{}

func (osEnv) Lookup(key string) (string, bool) {
	return os.LookupEnv(key)
}

func FromEnviron() EnvSource {
	return osEnv{}
}

func Load(source EnvSource) (Config, error) {
	if source == nil {
		return Config{}, errors.New("env source is required")
	}

	subgraphURL := lookupString(source, "SUBGRAPH_URL", defaultSubgraphURL)
	subgraphTimeout, err := parseDurationEnv(source, "SUBGRAPH_TIMEOUT", 30*time.Second)
	if err != nil {
		return Config{}, err
	}

	reserve := new(big.Int).Exp(big.NewInt(10), big.NewInt(16), nil)
	if raw, ok := source.Lookup("RESERVE_MINIMUM"); ok && strings.TrimSpace(raw) != "" {
		reserve, err = parseAmount("RESERVE_MINIMUM", raw)
		if err != nil {
			return Config{}, err
		}
	}
	chainReserves, err := parseChainReserves(source, "CHAIN_RESERVES")
	if err != nil {
		return Config{}, err
	}

	maxAttempts, err := parseIntEnv(source, "RETRY_MAX_ATTEMPTS", 200)
	if err != nil {
		return Config{}, err
	}
	if maxAttempts <= 0 {
		return Config{}, errors.New("RETRY_MAX_ATTEMPTS must be positive")
	}
	retryDelay, err := parseDurationEnv(source, "RETRY_DELAY", time.Second)
	if err != nil {
		return Config{}, err
	}
	transportRetries, err := parseIntEnv(source, "TRANSPORT_RETRIES", 0)
	if err != nil {
		return Config{}, err
	}
	tokenListSize, err := parseIntEnv(source, "TOKEN_LIST_SIZE", 500)
	if err != nil {
		return Config{}, err
	}
	tokenRefresh, err := parseDurationEnv(source, "TOKEN_REFRESH_INTERVAL", 0)
	if err != nil {
		return Config{}, err
	}

	dbDriver := strings.ToLower(lookupString(source, "DB_DRIVER", "sqlite"))
	var dbDSN string
	switch dbDriver {
	case "sqlite":
		dbDSN = lookupString(source, "DB_DSN", "swapwatch.db")
	case "mysql":
		dbDSN = lookupString(source, "DB_DSN", "root:@tcp(127.0.0.1:3306)/swapwatch?parseTime=true")
	case "none":
	default:
		return Config{}, fmt.Errorf("invalid DB_DRIVER: %s", dbDriver)
	}

	cacheTTL, err := parseDurationEnv(source, "CACHE_TTL", 5*time.Minute)
	if err != nil {
		return Config{}, err
	}
	logMaxSize, err := parseIntEnv(source, "LOG_MAX_SIZE_MB", 100)
	if err != nil {
		return Config{}, err
	}
	logMaxBackups, err := parseIntEnv(source, "LOG_MAX_BACKUPS", 3)
	if err != nil {
		return Config{}, err
	}

	otelEndpoint, _ := source.Lookup("OTEL_EXPORTER_OTLP_ENDPOINT")
	redisAddr, _ := source.Lookup("REDIS_ADDR")
	logFile, _ := source.Lookup("LOG_FILE")

	return Config{
		SubgraphURL:      subgraphURL,
		SubgraphTimeout:  subgraphTimeout,
		HTTPAddr:         lookupString(source, "HTTP_ADDR", ":8080"),
		ReserveMinimum:   reserve,
		ChainReserves:    chainReserves,
		MaxAttempts:      maxAttempts,
		RetryDelay:       retryDelay,
		TransportRetries: transportRetries,
		TokenListSize:    tokenListSize,
		TokenRefresh:     tokenRefresh,
		DBDriver:         dbDriver,
		DBDSN:            dbDSN,
		RedisAddr:        strings.TrimSpace(redisAddr),
		CacheTTL:         cacheTTL,
		KafkaBrokers:     parseList(source, "KAFKA_BROKERS"),
		KafkaTopic:       lookupString(source, "KAFKA_TOPIC", "swapwatch-popups"),
		OtelEndpoint:     strings.TrimSpace(otelEndpoint),
		LogLevel:         lookupString(source, "LOG_LEVEL", "info"),
		LogFormat:        lookupString(source, "LOG_FORMAT", "text"),
		LogFile:          strings.TrimSpace(logFile),
		LogMaxSizeMB:     logMaxSize,
		LogMaxBackups:    logMaxBackups,
	}, nil
}

func lookupString(source EnvSource, key, defaultValue string) string {
	raw, ok := source.Lookup(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return defaultValue
	}
	return strings.TrimSpace(raw)
}

func parseIntEnv(source EnvSource, key string, defaultValue int) (int, error) {
	raw, ok := source.Lookup(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return defaultValue, nil
	}
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if value < 0 {
		return 0, fmt.Errorf("invalid %s: must not be negative", key)
	}
	return value, nil
}

func parseDurationEnv(source EnvSource, key string, defaultValue time.Duration) (time.Duration, error) {
	raw, ok := source.Lookup(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return defaultValue, nil
	}
	duration, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return duration, nil
}

func parseAmount(key, raw string) (*big.Int, error) {
	value, ok := new(big.Int).SetString(strings.TrimSpace(raw), 10)
	if !ok || value.Sign() < 0 {
		return nil, fmt.Errorf("invalid %s: %q", key, raw)
	}
	return value, nil
}

func parseList(source EnvSource, key string) []string {
	raw, ok := source.Lookup(key)
	if !ok {
		return nil
	}
	var values []string
	for _, item := range strings.Split(raw, ",") {
		if value := strings.TrimSpace(item); value != "" {
			values = append(values, value)
		}
	}
	return values
}

// parseChainReserves reads "chain:amount" pairs, e.g. "1:10000000000000000,100:0".
func parseChainReserves(source EnvSource, key string) (map[uint64]*big.Int, error) {
	items := parseList(source, key)
	if len(items) == 0 {
		return nil, nil
	}
	reserves := make(map[uint64]*big.Int, len(items))
	for _, item := range items {
		chainRaw, amountRaw, ok := strings.Cut(item, ":")
		if !ok {
			return nil, fmt.Errorf("invalid %s entry: %q", key, item)
		}
		chainID, err := strconv.ParseUint(strings.TrimSpace(chainRaw), 10, 64)
		if err != nil || chainID == 0 {
			return nil, fmt.Errorf("invalid %s chain id: %q", key, chainRaw)
		}
		amount, err := parseAmount(key, amountRaw)
		if err != nil {
			return nil, err
		}
		reserves[chainID] = amount
	}
	return reserves, nil
}
