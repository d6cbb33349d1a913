package solana

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// SubmitConfig bounds the retry/confirmation behavior of writes.
type SubmitConfig struct {
	MaxRetries     int
	BackoffBase    time.Duration
	BackoffFactor  float64
	ConfirmTimeout time.Duration
	ConfirmPoll    time.Duration
	RPS            int
}

// DefaultSubmitConfig returns the tuned submission defaults.
func DefaultSubmitConfig() SubmitConfig {
	return SubmitConfig{
		MaxRetries:     3,
		BackoffBase:    500 * time.Millisecond,
		BackoffFactor:  2,
		ConfirmTimeout: 30 * time.Second,
		ConfirmPoll:    time.Second,
		RPS:            5,
	}
}

// Client wraps the RPC client with signing, rate limiting, bounded retry
// and an explicit confirmation wait for every write.
type Client struct {
	rpc     *rpc.Client
	limiter *rate.Limiter
	wallet  solana.PrivateKey
	cfg     SubmitConfig
}

// NewClient builds a signing client for the given endpoint and wallet.
func NewClient(endpoint string, wallet solana.PrivateKey, cfg SubmitConfig) *Client {
	if cfg.RPS <= 0 {
		cfg.RPS = 5
	}
	return &Client{
		rpc:     rpc.New(endpoint),
		limiter: rate.NewLimiter(rate.Limit(cfg.RPS), cfg.RPS),
		wallet:  wallet,
		cfg:     cfg,
	}
}

// NewClientFromEnv builds a client from SOLANA_RPC and the keystore env.
func NewClientFromEnv(wallet solana.PrivateKey) *Client {
	endpoint := os.Getenv("SOLANA_RPC")
	if endpoint == "" {
		endpoint = rpc.MainNetBeta_RPC
	}
	cfg := DefaultSubmitConfig()
	if v := os.Getenv("SOLANA_RPS"); v != "" {
		if rps, err := strconv.Atoi(v); err == nil && rps > 0 {
			cfg.RPS = rps
		}
	}
	return NewClient(endpoint, wallet, cfg)
}

// RPC exposes the raw client for read paths.
func (c *Client) RPC() *rpc.Client { return c.rpc }

// Wallet returns the signing public key.
func (c *Client) Wallet() solana.PublicKey { return c.wallet.PublicKey() }

// SendAndConfirm builds, signs, submits and confirms a transaction from the
// given instructions. Retries transient failures with exponential backoff;
// program rejections are returned immediately for the caller to classify.
func (c *Client) SendAndConfirm(ctx context.Context, ixs []solana.Instruction) (solana.Signature, error) {
	var lastErr error
	backoff := c.cfg.BackoffBase

	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			log.Warnf("transaction attempt %d/%d failed, retrying in %v: %v",
				attempt, c.cfg.MaxRetries, backoff, lastErr)
			select {
			case <-ctx.Done():
				return solana.Signature{}, ctx.Err()
			case <-time.After(backoff):
			}
			backoff = time.Duration(float64(backoff) * c.cfg.BackoffFactor)
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return solana.Signature{}, err
		}

		bh, err := c.rpc.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
		if err != nil {
			lastErr = fmt.Errorf("get blockhash: %w", err)
			continue
		}
		tx, err := solana.NewTransaction(ixs, bh.Value.Blockhash, solana.TransactionPayer(c.wallet.PublicKey()))
		if err != nil {
			return solana.Signature{}, fmt.Errorf("build transaction: %w", err)
		}
		if _, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
			if key.Equals(c.wallet.PublicKey()) {
				return &c.wallet
			}
			return nil
		}); err != nil {
			return solana.Signature{}, fmt.Errorf("sign transaction: %w", err)
		}

		sig, err := c.rpc.SendTransaction(ctx, tx)
		if err != nil {
			if !isRetryable(err) {
				return solana.Signature{}, err
			}
			lastErr = err
			continue
		}

		if err := c.waitConfirmation(ctx, sig); err != nil {
			lastErr = err
			continue
		}
		return sig, nil
	}
	return solana.Signature{}, fmt.Errorf("transaction not confirmed after %d attempts: %w", c.cfg.MaxRetries+1, lastErr)
}

// SubmitTransaction signs and submits an externally built transaction (e.g.
// an aggregator swap) and waits for confirmation. The transaction carries
// its own blockhash, so there is no rebuild-and-retry loop here.
func (c *Client) SubmitTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return solana.Signature{}, err
	}
	if _, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(c.wallet.PublicKey()) {
			return &c.wallet
		}
		return nil
	}); err != nil {
		return solana.Signature{}, fmt.Errorf("sign transaction: %w", err)
	}
	sig, err := c.rpc.SendTransaction(ctx, tx)
	if err != nil {
		return solana.Signature{}, err
	}
	if err := c.waitConfirmation(ctx, sig); err != nil {
		return solana.Signature{}, err
	}
	return sig, nil
}

// waitConfirmation polls signature status until confirmed or the timeout
// elapses.
func (c *Client) waitConfirmation(ctx context.Context, sig solana.Signature) error {
	deadline := time.Now().Add(c.cfg.ConfirmTimeout)
	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.cfg.ConfirmPoll):
		}
		res, err := c.rpc.GetSignatureStatuses(ctx, true, sig)
		if err != nil {
			continue
		}
		if len(res.Value) == 0 || res.Value[0] == nil {
			continue
		}
		status := res.Value[0]
		if status.Err != nil {
			return fmt.Errorf("transaction %s failed on chain: %v", sig, status.Err)
		}
		switch status.ConfirmationStatus {
		case rpc.ConfirmationStatusConfirmed, rpc.ConfirmationStatusFinalized:
			return nil
		}
	}
	return fmt.Errorf("timeout waiting for confirmation of %s", sig)
}

// SolBalance returns the wallet's native balance in lamports.
func (c *Client) SolBalance(ctx context.Context, owner solana.PublicKey) (uint64, error) {
	resp, err := c.rpc.GetBalance(ctx, owner, rpc.CommitmentFinalized)
	if err != nil {
		return 0, fmt.Errorf("get balance for %s: %w", owner, err)
	}
	return resp.Value, nil
}

// TokenBalance sums the owner's balance across all token accounts for the
// mint.
func (c *Client) TokenBalance(ctx context.Context, owner, mint solana.PublicKey) (uint64, error) {
	resp, err := c.rpc.GetTokenAccountsByOwner(ctx, owner, &rpc.GetTokenAccountsConfig{
		Mint: &mint,
	}, &rpc.GetTokenAccountsOpts{Encoding: solana.EncodingBase64})
	if err != nil {
		return 0, fmt.Errorf("get token accounts for %s: %w", owner, err)
	}

	total := uint64(0)
	for _, v := range resp.Value {
		balResp, err := c.rpc.GetTokenAccountBalance(ctx, v.Pubkey, rpc.CommitmentFinalized)
		if err != nil || balResp == nil || balResp.Value == nil {
			log.Warnf("get token balance for %s: %v", v.Pubkey, err)
			continue
		}
		amt, err := strconv.ParseUint(balResp.Value.Amount, 10, 64)
		if err != nil {
			continue
		}
		total += amt
	}
	return total, nil
}

func isRetryable(err error) bool {
	msg := err.Error()
	for _, probe := range []string{
		"connection refused", "timeout", "deadline exceeded", "EOF",
		"429", "blockhash not found", "node is behind",
	} {
		if strings.Contains(msg, probe) {
			return true
		}
	}
	return false
}
