package utils

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gagliardetto/solana-go"
	log "github.com/sirupsen/logrus"

	chain "gridagent/pkg/solana"
)

// JupiterSwapper sells reward tokens for SOL through the Jupiter aggregator
// and submits the returned transaction with the agent's wallet.
type JupiterSwapper struct {
	Client      *chain.Client
	Mint        string
	SlippageBps int
}

func NewJupiterSwapper(client *chain.Client, mint string) *JupiterSwapper {
	return &JupiterSwapper{
		Client:      client,
		Mint:        mint,
		SlippageBps: 100,
	}
}

type swapRequest struct {
	QuoteResponse    *JupiterQuoteResponse `json:"quoteResponse"`
	UserPublicKey    string                `json:"userPublicKey"`
	WrapAndUnwrapSol bool                  `json:"wrapAndUnwrapSol"`
}

type swapResponse struct {
	SwapTransaction string `json:"swapTransaction"`
	LastValidBlock  uint64 `json:"lastValidBlockHeight"`
}

// SwapTokenForSol quotes and executes an ExactIn swap of the given token
// amount. Returns the signature and the quoted lamports received.
func (s *JupiterSwapper) SwapTokenForSol(ctx context.Context, tokens uint64) (string, uint64, error) {
	quote, err := GetSwapQuote(s.Mint, solMint, tokens, s.SlippageBps)
	if err != nil {
		return "", 0, fmt.Errorf("swap quote: %w", err)
	}
	lamportsOut, err := strconv.ParseUint(quote.OutAmount, 10, 64)
	if err != nil {
		return "", 0, fmt.Errorf("failed to parse outAmount: %w", err)
	}
	if lamportsOut == 0 {
		return "", 0, fmt.Errorf("no route for %d tokens of %s", tokens, s.Mint)
	}

	reqBody, err := json.Marshal(swapRequest{
		QuoteResponse:    quote,
		UserPublicKey:    s.Client.Wallet().String(),
		WrapAndUnwrapSol: true,
	})
	if err != nil {
		return "", 0, fmt.Errorf("failed to marshal swap request: %w", err)
	}

	resp, err := http.Post(jupiterBaseURL+"/swap", "application/json", bytes.NewReader(reqBody))
	if err != nil {
		return "", 0, fmt.Errorf("swap request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", 0, fmt.Errorf("swap request failed with status: %d", resp.StatusCode)
	}

	var swapResp swapResponse
	if err := json.NewDecoder(resp.Body).Decode(&swapResp); err != nil {
		return "", 0, fmt.Errorf("failed to decode swap response: %w", err)
	}

	tx, err := solana.TransactionFromBase64(swapResp.SwapTransaction)
	if err != nil {
		return "", 0, fmt.Errorf("failed to decode swap transaction: %w", err)
	}

	sig, err := s.Client.SubmitTransaction(ctx, tx)
	if err != nil {
		return "", 0, fmt.Errorf("submit swap: %w", err)
	}

	log.WithFields(log.Fields{
		"signature":    sig.String(),
		"tokens_in":    tokens,
		"lamports_out": lamportsOut,
	}).Info("swap confirmed")

	return sig.String(), lamportsOut, nil
}
