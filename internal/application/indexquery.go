package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"swapwatch/internal/domain"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultMaxAttempts      = 200
	DefaultRetryDelay       = time.Second
	DefaultTokenListSize    = 500
	defaultTransportBackoff = 500 * time.Millisecond
)

// IndexBackend issues single, idempotent queries against the indexing service.
type IndexBackend interface {
	Transactions(ctx context.Context, id string) ([]domain.IndexedTransaction, error)
	Tokens(ctx context.Context, first int) ([]domain.Token, error)
}

// Sleeper waits between poll attempts. It returns early with ctx.Err() when
// the context ends.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

type SleeperFunc func(ctx context.Context, d time.Duration) error

func (f SleeperFunc) Sleep(ctx context.Context, d time.Duration) error {
	return f(ctx, d)
}

// TimerSleeper sleeps on the wall clock.
var TimerSleeper = SleeperFunc(func(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
})

type QueryObserver interface {
	OnQuery(kind domain.QueryKind, outcome OutcomeKind)
	OnExhausted(kind domain.QueryKind)
}

type IndexQueryConfig struct {
	MaxAttempts   int
	RetryDelay    time.Duration
	TokenListSize int
	// TransportRetries is the number of extra tries for a transport failure
	// within one poll attempt. Zero propagates transport failures at once.
	TransportRetries int
	TransportBackoff time.Duration
}

// IndexQueryClient polls an eventually consistent index until a record is
// visible or the per-call retry budget runs out.
type IndexQueryClient struct {
	backend  IndexBackend
	sleeper  Sleeper
	observer QueryObserver
	cfg      IndexQueryConfig
}

func NewIndexQueryClient(backend IndexBackend, sleeper Sleeper, observer QueryObserver, cfg IndexQueryConfig) (*IndexQueryClient, error) {
	if backend == nil {
		return nil, errors.New("index backend is required")
	}
	if sleeper == nil {
		sleeper = TimerSleeper
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}
	if cfg.TokenListSize <= 0 {
		cfg.TokenListSize = DefaultTokenListSize
	}
	if cfg.TransportRetries < 0 {
		cfg.TransportRetries = 0
	}
	if cfg.TransportBackoff <= 0 {
		cfg.TransportBackoff = defaultTransportBackoff
	}
	return &IndexQueryClient{backend: backend, sleeper: sleeper, observer: observer, cfg: cfg}, nil
}

func (c *IndexQueryClient) Config() IndexQueryConfig {
	return c.cfg
}

// FetchTransactionByHash polls until the transaction is indexed. It fails with
// ErrRetryBudgetExceeded after MaxAttempts empty results and with a
// *TransportError when the backend cannot be reached.
func (c *IndexQueryClient) FetchTransactionByHash(ctx context.Context, id string) (TransactionsPayload, error) {
	if id == "" {
		return TransactionsPayload{}, fmt.Errorf("transaction id: %w", ErrMissingInput)
	}
	ctx, span := otel.Tracer("swapwatch/indexquery").Start(ctx, "indexquery.fetch_transaction", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(attribute.String("tx.hash", id))

	budget := NewRetryBudget(c.cfg.MaxAttempts)
	for {
		outcome := c.Attempt(ctx, id)
		more := budget.Record()
		switch outcome.Kind {
		case OutcomeSuccess:
			span.SetAttributes(attribute.Int("query.attempts", budget.Attempts()))
			return outcome.Payload, nil
		case OutcomeTransportFailure:
			span.RecordError(outcome.Err)
			span.SetStatus(codes.Error, outcome.Err.Error())
			return TransactionsPayload{}, outcome.Err
		}

		if !more {
			if c.observer != nil {
				c.observer.OnExhausted(domain.QueryKindTransaction)
			}
			slog.Warn("transaction not indexed within retry budget", "tx_hash", id, "attempts", budget.Attempts())
			err := fmt.Errorf("transaction %s after %d attempts: %w", id, budget.Attempts(), ErrRetryBudgetExceeded)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return TransactionsPayload{}, err
		}
		slog.Debug("transaction not indexed yet", "tx_hash", id, "attempt", budget.Attempts(), "delay", c.cfg.RetryDelay)
		if err := c.sleeper.Sleep(ctx, c.cfg.RetryDelay); err != nil {
			span.RecordError(err)
			return TransactionsPayload{}, fmt.Errorf("waiting for transaction %s: %w", id, err)
		}
	}
}

// Attempt issues one transaction lookup and classifies the result.
func (c *IndexQueryClient) Attempt(ctx context.Context, id string) Outcome[TransactionsPayload] {
	request := domain.QueryRequest{Kind: domain.QueryKindTransaction, Key: id}
	transactions, err := c.queryTransactions(ctx, id)
	var outcome Outcome[TransactionsPayload]
	switch {
	case err != nil:
		outcome = TransportFailure[TransactionsPayload](&TransportError{Request: request, Err: err})
	case len(transactions) == 0:
		outcome = Empty[TransactionsPayload]()
	default:
		outcome = Success(TransactionsPayload{Transactions: transactions})
	}
	if c.observer != nil {
		c.observer.OnQuery(request.Kind, outcome.Kind)
	}
	return outcome
}

func (c *IndexQueryClient) queryTransactions(ctx context.Context, id string) ([]domain.IndexedTransaction, error) {
	if c.cfg.TransportRetries == 0 {
		return c.backend.Transactions(ctx, id)
	}
	operation := func() ([]domain.IndexedTransaction, error) {
		transactions, err := c.backend.Transactions(ctx, id)
		if err != nil && ctx.Err() != nil {
			return nil, backoff.Permanent(err)
		}
		return transactions, err
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.cfg.TransportBackoff
	policy.MaxElapsedTime = 0
	strategy := backoff.WithContext(backoff.WithMaxRetries(policy, uint64(c.cfg.TransportRetries)), ctx)
	return backoff.RetryNotifyWithData(operation, strategy, func(err error, next time.Duration) {
		slog.Debug("index transport failure, retrying", "tx_hash", id, "error", err, "next", next)
	})
}

// FetchTokenList issues a single token listing query. It never retries and
// does not inspect the result.
func (c *IndexQueryClient) FetchTokenList(ctx context.Context) (TokensPayload, error) {
	ctx, span := otel.Tracer("swapwatch/indexquery").Start(ctx, "indexquery.fetch_tokens", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	tokens, err := c.backend.Tokens(ctx, c.cfg.TokenListSize)
	if err != nil {
		if c.observer != nil {
			c.observer.OnQuery(domain.QueryKindTokenList, OutcomeTransportFailure)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return TokensPayload{}, &TransportError{Request: domain.QueryRequest{Kind: domain.QueryKindTokenList}, Err: err}
	}
	if c.observer != nil {
		c.observer.OnQuery(domain.QueryKindTokenList, OutcomeSuccess)
	}
	span.SetAttributes(attribute.Int("tokens.count", len(tokens)))
	return TokensPayload{Tokens: tokens}, nil
}
