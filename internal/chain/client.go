// internal/chain/client.go

// Package chain mirrors the on-chain prediction-pump program state:
// it fetches and decodes market and oracle accounts so the off-chain
// engine can compare its books against the chain. Read-only; nothing
// here signs or sends transactions.
package chain

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"
)

const (
	maxRetries     = 3
	defaultTimeout = 15 * time.Second
)

// rpcEndpoint хранит один RPC узел и его состояние.
type rpcEndpoint struct {
	client *rpc.Client
	url    string

	mu       sync.Mutex
	active   bool
	failures uint64
}

func (e *rpcEndpoint) isActive() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active
}

func (e *rpcEndpoint) setActive(active bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.active = active
	if !active {
		e.failures++
	}
}

// Client — клиент Solana RPC с ротацией узлов.
type Client struct {
	endpoints []*rpcEndpoint
	logger    *zap.Logger

	mutex     sync.Mutex
	currIndex int
}

// NewClient создает новый экземпляр клиента
func NewClient(ctx context.Context, rpcURLs []string, logger *zap.Logger) (*Client, error) {
	if len(rpcURLs) == 0 {
		return nil, errors.New("empty RPC URL list")
	}

	var endpoints []*rpcEndpoint
	for _, urlStr := range rpcURLs {
		if _, err := url.Parse(urlStr); err != nil {
			logger.Warn("Invalid RPC URL", zap.String("url", urlStr), zap.Error(err))
			continue
		}
		endpoints = append(endpoints, &rpcEndpoint{
			client: rpc.New(urlStr),
			url:    urlStr,
			active: true,
		})
	}

	if len(endpoints) == 0 {
		return nil, errors.New("no valid RPC URLs provided")
	}

	c := &Client{
		endpoints: endpoints,
		logger:    logger,
	}

	if err := c.validateConnections(ctx); err != nil {
		return nil, fmt.Errorf("failed to validate connections: %w", err)
	}

	return c, nil
}

// validateConnections проверяет каждый узел с экспоненциальным повтором.
func (c *Client) validateConnections(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var wg sync.WaitGroup
	for _, ep := range c.endpoints {
		wg.Add(1)
		go func(ep *rpcEndpoint) {
			defer wg.Done()

			policy := backoff.NewExponentialBackOff()
			policy.InitialInterval = 200 * time.Millisecond
			policy.MaxInterval = 2 * time.Second

			notify := func(err error, duration time.Duration) {
				c.logger.Debug("Повтор проверки RPC узла",
					zap.String("url", ep.url),
					zap.Duration("backoff", duration),
					zap.Error(err))
			}

			operation := func() (struct{}, error) {
				version, err := ep.client.GetVersion(ctx)
				if err != nil {
					return struct{}{}, fmt.Errorf("failed to get version: %w", err)
				}
				c.logger.Debug("Successfully connected to RPC",
					zap.String("url", ep.url),
					zap.String("solana_core", version.SolanaCore))
				return struct{}{}, nil
			}

			_, err := backoff.Retry(ctx, operation,
				backoff.WithBackOff(policy),
				backoff.WithMaxTries(maxRetries),
				backoff.WithNotify(notify))
			if err != nil {
				c.logger.Warn("RPC узел недоступен", zap.String("url", ep.url), zap.Error(err))
				ep.setActive(false)
			}
		}(ep)
	}
	wg.Wait()

	if !c.hasActiveEndpoints() {
		return errors.New("no active RPC connections available")
	}
	return nil
}

// GetAccountInfo получает информацию об аккаунте
func (c *Client) GetAccountInfo(ctx context.Context, pubkey solana.PublicKey) (*rpc.GetAccountInfoResult, error) {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		ep := c.getNextEndpoint()
		if ep == nil {
			return nil, errors.New("no active RPC clients available")
		}

		result, err := ep.client.GetAccountInfoWithOpts(ctx, pubkey, &rpc.GetAccountInfoOpts{
			Encoding:   solana.EncodingBase64,
			Commitment: rpc.CommitmentConfirmed,
		})
		if err != nil {
			lastErr = err
			ep.setActive(false)
			continue
		}
		return result, nil
	}
	return nil, fmt.Errorf("failed to get account info after %d attempts: %w", maxRetries, lastErr)
}

// GetBalance возвращает баланс аккаунта в лампортах
func (c *Client) GetBalance(ctx context.Context, pubkey solana.PublicKey) (uint64, error) {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		ep := c.getNextEndpoint()
		if ep == nil {
			return 0, errors.New("no active RPC clients available")
		}

		result, err := ep.client.GetBalance(ctx, pubkey, rpc.CommitmentConfirmed)
		if err != nil {
			lastErr = err
			ep.setActive(false)
			continue
		}
		return result.Value, nil
	}
	return 0, fmt.Errorf("failed to get balance after %d attempts: %w", maxRetries, lastErr)
}

// GetProgramAccounts возвращает все аккаунты программы
func (c *Client) GetProgramAccounts(ctx context.Context, programID solana.PublicKey) (rpc.GetProgramAccountsResult, error) {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		ep := c.getNextEndpoint()
		if ep == nil {
			return nil, errors.New("no active RPC clients available")
		}

		result, err := ep.client.GetProgramAccountsWithOpts(ctx, programID, &rpc.GetProgramAccountsOpts{
			Commitment: rpc.CommitmentConfirmed,
			Encoding:   solana.EncodingBase64,
		})
		if err != nil {
			lastErr = err
			ep.setActive(false)
			continue
		}
		return result, nil
	}
	return nil, fmt.Errorf("failed to get program accounts after %d attempts: %w", maxRetries, lastErr)
}

// Вспомогательные методы для Client

func (c *Client) hasActiveEndpoints() bool {
	for _, ep := range c.endpoints {
		if ep.isActive() {
			return true
		}
	}
	return false
}

func (c *Client) getNextEndpoint() *rpcEndpoint {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	initialIndex := c.currIndex
	for {
		c.currIndex = (c.currIndex + 1) % len(c.endpoints)
		if c.endpoints[c.currIndex].isActive() {
			return c.endpoints[c.currIndex]
		}
		if c.currIndex == initialIndex {
			return nil
		}
	}
}
