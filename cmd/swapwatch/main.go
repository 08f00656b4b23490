package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"math/big"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"swapwatch/internal/application"
	"swapwatch/internal/config"
	"swapwatch/internal/domain"
	"swapwatch/internal/infrastructure/kafka"
	"swapwatch/internal/infrastructure/logging"
	"swapwatch/internal/infrastructure/mysql"
	"swapwatch/internal/infrastructure/sqlite"
	"swapwatch/internal/infrastructure/subgraph"
	"swapwatch/internal/infrastructure/telemetry"
	"swapwatch/internal/interfaces/httpapi"
)

var (
	version   = "dev"
	commit    = "none"
	buildTime = "unknown"
)

type closableStore interface {
	application.RecordStore
	Close() error
}

func main() {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logFile, err := logging.Init(logging.Config{
		Level:      cfg.LogLevel,
		Format:     cfg.LogFormat,
		File:       cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
	})
	if err != nil {
		log.Fatalf("logging error: %v", err)
	}
	if logFile != nil {
		defer logFile.Close()
	}

	shutdownTracing, err := telemetry.InitTracer(context.Background(), telemetry.Config{
		ServiceName:    "swapwatch",
		ServiceVersion: version,
		Endpoint:       cfg.OtelEndpoint,
	})
	if err != nil {
		slog.Warn("tracing init error", "error", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(ctx); err != nil {
			slog.Warn("tracing shutdown error", "error", err)
		}
	}()

	store, err := openStore(cfg)
	if err != nil {
		log.Fatalf("db error: %v", err)
	}
	var (
		records application.RecordStore
		pinger  httpapi.Pinger
	)
	if store != nil {
		defer store.Close()
		records = store
		pinger = store
	}

	client, err := subgraph.NewClient(subgraph.Config{URL: cfg.SubgraphURL, Timeout: cfg.SubgraphTimeout})
	if err != nil {
		log.Fatalf("subgraph error: %v", err)
	}
	var (
		backend    application.IndexBackend = client
		tokenCache application.TokenCache
	)
	if cached, err := subgraph.NewCachedBackend(client, subgraph.CacheConfig{
		Addr: cfg.RedisAddr,
		TTL:  cfg.CacheTTL,
	}); err != nil {
		slog.Warn("redis cache disabled", "error", err)
	} else {
		defer cached.Close()
		backend = cached
		tokenCache = cached
	}

	var publisher application.EventPublisher
	if len(cfg.KafkaBrokers) > 0 {
		producer, err := kafka.NewProducer(kafka.ProducerConfig{Brokers: cfg.KafkaBrokers, Topic: cfg.KafkaTopic})
		if err != nil {
			log.Fatalf("kafka error: %v", err)
		}
		defer producer.Close()
		publisher = producer
	}

	metrics := httpapi.NewMetrics()
	queries, err := application.NewIndexQueryClient(backend, application.TimerSleeper, metrics, application.IndexQueryConfig{
		MaxAttempts:      cfg.MaxAttempts,
		RetryDelay:       cfg.RetryDelay,
		TokenListSize:    cfg.TokenListSize,
		TransportRetries: cfg.TransportRetries,
	})
	if err != nil {
		log.Fatalf("index client error: %v", err)
	}
	watcher, err := application.NewWatcher(queries, records, publisher, tokenCache, client.URL())
	if err != nil {
		log.Fatalf("watcher error: %v", err)
	}

	spend := application.NewSpendCalculator(cfg.ReserveMinimum, chainReserves(cfg.ChainReserves))
	server, err := httpapi.NewServer(cfg, watcher, pinger, spend, metrics, httpapi.BuildInfo{
		Version:   version,
		Commit:    commit,
		BuildTime: buildTime,
	})
	if err != nil {
		log.Fatalf("http server error: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var wg sync.WaitGroup
	if cfg.TokenRefresh > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := watcher.RunTokenRefresh(ctx, cfg.TokenRefresh); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("token refresh stopped", "error", err)
			}
		}()
	}

	slog.Info("swapwatch started",
		"http_addr", cfg.HTTPAddr,
		"subgraph_url", cfg.SubgraphURL,
		"db_driver", cfg.DBDriver,
		"max_attempts", cfg.MaxAttempts,
		"retry_delay", cfg.RetryDelay,
		"version", version,
	)
	if err := server.ListenAndServe(ctx, cfg.HTTPAddr); err != nil {
		slog.Error("http server error", "error", err)
		cancel()
	}
	wg.Wait()
}

func openStore(cfg config.Config) (closableStore, error) {
	switch cfg.DBDriver {
	case "sqlite":
		return sqlite.NewRepository(cfg.DBDSN)
	case "mysql":
		return mysql.NewRepository(cfg.DBDSN)
	default:
		return nil, nil
	}
}

func chainReserves(raw map[uint64]*big.Int) map[domain.ChainID]*big.Int {
	if len(raw) == 0 {
		return nil
	}
	reserves := make(map[domain.ChainID]*big.Int, len(raw))
	for chainID, amount := range raw {
		reserves[domain.ChainID(chainID)] = amount
	}
	return reserves
}
