package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"strconv"
	"strings"
	"time"

	"swapwatch/internal/application"
	"swapwatch/internal/config"
	"swapwatch/internal/domain"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

type Watcher interface {
	WaitForTransaction(ctx context.Context, hash string) (domain.IndexedTransaction, error)
	RefreshTokenList(ctx context.Context, auto bool) (domain.ListUpdate, error)
	Tokens(ctx context.Context) ([]domain.Token, error)
}

type Pinger interface {
	Ping(ctx context.Context) error
}

type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
}

type Server struct {
	cfg       config.Config
	watcher   Watcher
	store     Pinger
	spend     application.SpendCalculator
	metrics   *Metrics
	buildInfo BuildInfo
}

// NewServer builds the HTTP API. store may be nil when persistence is disabled.
func NewServer(cfg config.Config, watcher Watcher, store Pinger, spend application.SpendCalculator, metrics *Metrics, buildInfo BuildInfo) (*Server, error) {
	if watcher == nil {
		return nil, errors.New("http server dependencies must not be nil")
	}
	if metrics == nil {
		metrics = NewMetrics()
	}
	return &Server{cfg: cfg, watcher: watcher, store: store, spend: spend, metrics: metrics, buildInfo: buildInfo}, nil
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.route(mux, "GET /healthz", s.handleHealth)
	s.route(mux, "GET /readyz", s.handleReady)
	s.route(mux, "GET /version", s.handleVersion)
	s.route(mux, "GET /state", s.handleState)
	s.route(mux, "GET /transactions/{hash}", s.handleTransaction)
	s.route(mux, "GET /tokens", s.handleTokens)
	s.route(mux, "POST /tokens/refresh", s.handleTokenRefresh)
	s.route(mux, "GET /spendable", s.handleSpendable)
	mux.Handle("GET /metrics", s.metrics.Handler())
	return mux
}

func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) route(mux *http.ServeMux, pattern string, handler http.HandlerFunc) {
	tracer := otel.Tracer("swapwatch/httpapi")
	mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
		ctx, span := tracer.Start(ctx, pattern, trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		handler(rec, r.WithContext(ctx))
		span.SetAttributes(attribute.Int("http.status_code", rec.status))
		s.metrics.ObserveRequest(pattern, rec.status, time.Since(start))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.store.Ping(ctx); err != nil {
		respondError(w, http.StatusServiceUnavailable, "db not ready")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.buildInfo)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	reserve := ""
	if s.spend.Reserve != nil {
		reserve = s.spend.Reserve.String()
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"subgraph_url":      s.cfg.SubgraphURL,
		"http_addr":         s.cfg.HTTPAddr,
		"reserve_minimum":   reserve,
		"max_attempts":      s.cfg.MaxAttempts,
		"retry_delay":       s.cfg.RetryDelay.String(),
		"transport_retries": s.cfg.TransportRetries,
		"token_list_size":   s.cfg.TokenListSize,
		"db_driver":         s.cfg.DBDriver,
	})
}

type swapResponse struct {
	Amount0In    string `json:"amount0_in"`
	Amount1In    string `json:"amount1_in"`
	Amount0Out   string `json:"amount0_out"`
	Amount1Out   string `json:"amount1_out"`
	Token0Symbol string `json:"token0_symbol"`
	Token1Symbol string `json:"token1_symbol"`
}

type transactionResponse struct {
	ID          string         `json:"id"`
	BlockNumber uint64         `json:"block_number"`
	Timestamp   uint64         `json:"timestamp"`
	Summary     string         `json:"summary"`
	Swaps       []swapResponse `json:"swaps"`
}

func (s *Server) handleTransaction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if raw := r.URL.Query().Get("timeout"); raw != "" {
		timeout, err := time.ParseDuration(raw)
		if err != nil || timeout <= 0 {
			respondError(w, http.StatusBadRequest, "invalid timeout")
			return
		}
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	tx, err := s.watcher.WaitForTransaction(ctx, r.PathValue("hash"))
	if err != nil {
		respondQueryError(w, err)
		return
	}
	response := transactionResponse{
		ID:          tx.ID,
		BlockNumber: tx.BlockNumber,
		Timestamp:   tx.Timestamp,
		Summary:     application.SummarizeTransaction(tx),
		Swaps:       make([]swapResponse, 0, len(tx.Swaps)),
	}
	for _, swap := range tx.Swaps {
		response.Swaps = append(response.Swaps, swapResponse(swap))
	}
	respondJSON(w, http.StatusOK, response)
}

type tokenResponse struct {
	ID     string `json:"id"`
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
}

func (s *Server) handleTokens(w http.ResponseWriter, r *http.Request) {
	tokens, err := s.watcher.Tokens(r.Context())
	if err != nil {
		respondQueryError(w, err)
		return
	}
	response := make([]tokenResponse, 0, len(tokens))
	for _, token := range tokens {
		response = append(response, tokenResponse(token))
	}
	respondJSON(w, http.StatusOK, response)
}

func (s *Server) handleTokenRefresh(w http.ResponseWriter, r *http.Request) {
	update, err := s.watcher.RefreshTokenList(r.Context(), false)
	if err != nil {
		respondQueryError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"list_url":  update.ListURL,
		"changed":   update.Changed(),
		"old_count": update.OldCount,
		"new_count": update.NewCount,
		"added":     nonNil(update.Added),
		"removed":   nonNil(update.Removed),
		"updated":   nonNil(update.Updated),
	})
}

func (s *Server) handleSpendable(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	chainID, err := parseOptionalUint(query.Get("chain_id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid chain_id")
		return
	}
	var amount *domain.CurrencyAmount
	if raw := strings.TrimSpace(query.Get("amount")); raw != "" {
		value, ok := new(big.Int).SetString(raw, 10)
		if !ok || value.Sign() < 0 {
			respondError(w, http.StatusBadRequest, "invalid amount")
			return
		}
		amount = domain.NewCurrencyAmount(parseCurrency(query.Get("currency"), query.Get("symbol")), domain.ChainID(chainID), value)
	}
	reserveMinimum := true
	if raw := query.Get("reserve"); raw != "" {
		reserveMinimum, err = strconv.ParseBool(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid reserve")
			return
		}
	}

	result := s.spend.MaxSpendable(amount, domain.ChainID(chainID), reserveMinimum)
	if result == nil {
		s.metrics.ObserveSpend("not_ready")
		respondJSON(w, http.StatusOK, map[string]any{"ready": false, "error": application.ErrMissingInput.Error()})
		return
	}
	s.metrics.ObserveSpend("computed")

	currency := "native"
	if !result.Currency().IsNative() {
		currency = result.Currency().Address
	}
	response := map[string]any{
		"ready":         true,
		"chain_id":      chainID,
		"currency":      currency,
		"amount":        amount.String(),
		"max_spendable": result.String(),
	}
	if result.Currency().IsNative() && reserveMinimum {
		response["reserve"] = s.spend.ReserveFor(domain.ChainID(chainID)).String()
	}
	respondJSON(w, http.StatusOK, response)
}

func parseCurrency(raw, symbol string) domain.Currency {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.EqualFold(raw, "native") || strings.EqualFold(raw, domain.Native.Symbol) {
		return domain.Native
	}
	return domain.NewToken(raw, symbol)
}

func parseOptionalUint(raw string) (uint64, error) {
	if strings.TrimSpace(raw) == "" {
		return 0, nil
	}
	return strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

func respondQueryError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, application.ErrMissingInput):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		respondError(w, http.StatusGatewayTimeout, "index query timed out")
	case errors.Is(err, application.ErrRetryBudgetExceeded):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, application.ErrTransportFailure):
		respondError(w, http.StatusBadGateway, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, "query failed")
	}
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
