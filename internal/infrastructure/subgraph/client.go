package subgraph

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"swapwatch/internal/domain"
)

// DefaultURL is the swapr rinkeby subgraph.
const DefaultURL = "https://api.thegraph.com/subgraphs/name/dxgraphs/swapr-rinkeby"

type Client struct {
	url        string
	httpClient *http.Client
}

type Config struct {
	URL     string
	Timeout time.Duration
}

func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.New("subgraph url is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		url:        cfg.URL,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

func (c *Client) URL() string {
	return c.url
}

func (c *Client) Transactions(ctx context.Context, id string) ([]domain.IndexedTransaction, error) {
	var data struct {
		Transactions []gqlTransaction `json:"transactions"`
	}
	if err := c.query(ctx, transactionQuery(id), &data); err != nil {
		return nil, err
	}

	transactions := make([]domain.IndexedTransaction, 0, len(data.Transactions))
	for _, tx := range data.Transactions {
		blockNumber, err := parseUint(tx.BlockNumber)
		if err != nil {
			return nil, fmt.Errorf("invalid blockNumber for %s: %w", tx.ID, err)
		}
		timestamp, err := parseUint(tx.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("invalid timestamp for %s: %w", tx.ID, err)
		}
		swaps := make([]domain.Swap, 0, len(tx.Swaps))
		for _, swap := range tx.Swaps {
			swaps = append(swaps, domain.Swap{
				Amount0In:    swap.Amount0In,
				Amount1In:    swap.Amount1In,
				Amount0Out:   swap.Amount0Out,
				Amount1Out:   swap.Amount1Out,
				Token0Symbol: swap.Pair.Token0.Symbol,
				Token1Symbol: swap.Pair.Token1.Symbol,
			})
		}
		transactions = append(transactions, domain.IndexedTransaction{
			ID:          tx.ID,
			BlockNumber: blockNumber,
			Timestamp:   timestamp,
			Swaps:       swaps,
		})
	}
	return transactions, nil
}

func (c *Client) Tokens(ctx context.Context, first int) ([]domain.Token, error) {
	var data struct {
		Tokens []gqlToken `json:"tokens"`
	}
	if err := c.query(ctx, tokensQuery(first), &data); err != nil {
		return nil, err
	}
	tokens := make([]domain.Token, 0, len(data.Tokens))
	for _, token := range data.Tokens {
		tokens = append(tokens, domain.Token{
			ID:     strings.ToLower(token.ID),
			Symbol: token.Symbol,
			Name:   token.Name,
		})
	}
	return tokens, nil
}

func transactionQuery(id string) string {
	return `{
 transactions(where:{id:` + strconv.Quote(id) + `}){
  id
  blockNumber
  timestamp
  swaps{
    amount0In
    amount1In
    amount0Out
    amount1Out
    pair{
      token0{
        symbol
      }
      token1{
        symbol
      }
    }
  }
 }
}`
}

func tokensQuery(first int) string {
	return fmt.Sprintf(`{
 tokens(first:%d){
  id
  symbol
  name
 }
}`, first)
}

type gqlTransaction struct {
	ID          string    `json:"id"`
	BlockNumber string    `json:"blockNumber"`
	Timestamp   string    `json:"timestamp"`
	Swaps       []gqlSwap `json:"swaps"`
}

type gqlSwap struct {
	Amount0In  string `json:"amount0In"`
	Amount1In  string `json:"amount1In"`
	Amount0Out string `json:"amount0Out"`
	Amount1Out string `json:"amount1Out"`
	Pair       struct {
		Token0 gqlSymbol `json:"token0"`
		Token1 gqlSymbol `json:"token1"`
	} `json:"pair"`
}

type gqlSymbol struct {
	Symbol string `json:"symbol"`
}

type gqlToken struct {
	ID     string `json:"id"`
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
}

type gqlRequest struct {
	Query string `json:"query"`
}

type gqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []gqlError      `json:"errors"`
}

type gqlError struct {
	Message string `json:"message"`
}

func (c *Client) query(ctx context.Context, query string, result any) error {
	payload, err := json.Marshal(gqlRequest{Query: query})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("subgraph status %d", resp.StatusCode)
	}

	var decoded gqlResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return err
	}
	if len(decoded.Errors) > 0 {
		messages := make([]string, 0, len(decoded.Errors))
		for _, e := range decoded.Errors {
			messages = append(messages, e.Message)
		}
		return fmt.Errorf("subgraph error: %s", strings.Join(messages, "; "))
	}
	if len(decoded.Data) == 0 || string(decoded.Data) == "null" {
		return errors.New("subgraph data is empty")
	}
	return json.Unmarshal(decoded.Data, result)
}

func parseUint(value string) (uint64, error) {
	if value == "" {
		return 0, nil
	}
	return strconv.ParseUint(value, 10, 64)
}
