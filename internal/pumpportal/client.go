// internal/pumpportal/client.go
package pumpportal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/mr-tron/base58"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/pumpbundle/internal/trade"
)

const (
	DefaultTradeURL  = "https://pumpportal.fun/api/trade-local"
	DefaultWalletURL = "https://pumpportal.fun/api/create-wallet"
	DefaultIPFSURL   = "https://pump.fun/api/ipfs"

	maxErrorBody = 512
)

// Config holds endpoints and transport settings for the pumpportal APIs.
type Config struct {
	TradeURL   string
	WalletURL  string
	IPFSURL    string
	Timeout    time.Duration
	Retries    uint
	MaxElapsed time.Duration
}

// Client talks to the trade-local, IPFS upload and create-wallet endpoints.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *zap.Logger
}

// NewClient создает клиент с таймаутами по умолчанию для пустых полей.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if cfg.TradeURL == "" {
		cfg.TradeURL = DefaultTradeURL
	}
	if cfg.WalletURL == "" {
		cfg.WalletURL = DefaultWalletURL
	}
	if cfg.IPFSURL == "" {
		cfg.IPFSURL = DefaultIPFSURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Retries == 0 {
		cfg.Retries = 1
	}
	if cfg.MaxElapsed <= 0 {
		cfg.MaxElapsed = 15 * time.Second
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger.Named("pumpportal"),
	}
}

// TradeLocal requests one unsigned transaction. The response body is the raw serialized transaction.
func (c *Client) TradeLocal(ctx context.Context, payload trade.Payload) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode trade payload: %w", err)
	}

	raw, err := c.postWithRetry(ctx, c.cfg.TradeURL, body)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, ErrEmptyResponse
	}

	c.logger.Debug("Received transaction template",
		zap.String("action", payload.Action),
		zap.String("mint", payload.Mint),
		zap.Int("bytes", len(raw)))
	return raw, nil
}

// TradeLocalBundle requests one unsigned transaction per payload. The response is
// a JSON array of base58 strings in request order.
func (c *Client) TradeLocalBundle(ctx context.Context, payloads []trade.Payload) ([][]byte, error) {
	body, err := json.Marshal(payloads)
	if err != nil {
		return nil, fmt.Errorf("failed to encode bundle payload: %w", err)
	}

	raw, err := c.postWithRetry(ctx, c.cfg.TradeURL, body)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, ErrEmptyResponse
	}

	var encoded []string
	if err := json.Unmarshal(raw, &encoded); err != nil {
		return nil, fmt.Errorf("failed to decode bundle templates: %w", err)
	}
	if len(encoded) == 0 {
		return nil, ErrEmptyResponse
	}

	templates := make([][]byte, len(encoded))
	for i, s := range encoded {
		tx, err := base58.Decode(s)
		if err != nil {
			return nil, fmt.Errorf("template %d is not base58: %w", i, err)
		}
		templates[i] = tx
	}

	c.logger.Debug("Received bundle templates",
		zap.Int("requested", len(payloads)),
		zap.Int("received", len(templates)))
	return templates, nil
}

// GeneratedWallet is a fresh keypair issued by the create-wallet endpoint.
type GeneratedWallet struct {
	APIKey          string `json:"apiKey"`
	WalletPublicKey string `json:"walletPublicKey"`
	PrivateKey      string `json:"privateKey"`
}

// CreateWallet asks pumpportal for a new wallet. Nothing is stored locally.
func (c *Client) CreateWallet(ctx context.Context) (*GeneratedWallet, error) {
	op := func() (*GeneratedWallet, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.WalletURL, nil)
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		raw, err := c.do(req)
		if err != nil {
			return nil, err
		}

		var w GeneratedWallet
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, backoff.Permanent(fmt.Errorf("failed to decode wallet response: %w", err))
		}
		if w.WalletPublicKey == "" || w.PrivateKey == "" {
			return nil, backoff.Permanent(errors.New("wallet response is missing keys"))
		}
		return &w, nil
	}

	w, err := retryWith(ctx, c, "create-wallet", op)
	if err != nil {
		return nil, err
	}
	c.logger.Info("Wallet generated", zap.String("public_key", w.WalletPublicKey))
	return w, nil
}

func (c *Client) postWithRetry(ctx context.Context, url string, body []byte) ([]byte, error) {
	op := func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		return c.do(req)
	}
	return retryWith(ctx, c, "trade-local", op)
}

func retryWith[T any](ctx context.Context, c *Client, name string, op func() (T, error)) (T, error) {
	attempt := 0
	return backoff.Retry(ctx, func() (T, error) {
		attempt++
		v, err := op()
		if err != nil {
			c.logger.Debug("Request attempt failed",
				zap.String("endpoint", name),
				zap.Int("attempt", attempt),
				zap.Error(err))
		}
		return v, err
	},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(c.cfg.Retries),
		backoff.WithMaxElapsedTime(c.cfg.MaxElapsed),
	)
}

// do executes the request and classifies failures for the retry loop.
func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		if req.Context().Err() != nil {
			return nil, backoff.Permanent(err)
		}
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		statusErr := &StatusError{
			Endpoint:   req.URL.Path,
			StatusCode: resp.StatusCode,
			Body:       truncate(string(raw), maxErrorBody),
		}
		if statusErr.Retryable() {
			return nil, statusErr
		}
		return nil, backoff.Permanent(statusErr)
	}
	return raw, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
