package utils

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"gridagent/internal/engine"
)

const (
	jupiterBaseURL = "https://lite-api.jup.ag/swap/v1"
	solMint        = "So11111111111111111111111111111111111111112"

	// Probe size for price quotes, in reward-token base units.
	priceProbeAmount = 1_000_000_000_000
)

// JupiterQuoteResponse represents the response structure from Jupiter API
type JupiterQuoteResponse struct {
	InputMint            string      `json:"inputMint"`
	InAmount             string      `json:"inAmount"`
	OutputMint           string      `json:"outputMint"`
	OutAmount            string      `json:"outAmount"`
	OtherAmountThreshold string      `json:"otherAmountThreshold"`
	SwapMode             string      `json:"swapMode"`
	SlippageBps          int         `json:"slippageBps"`
	PlatformFee          any         `json:"platformFee"`
	PriceImpactPct       string      `json:"priceImpactPct"`
	RoutePlan            []RoutePlan `json:"routePlan"`
	ContextSlot          int         `json:"contextSlot"`
	TimeTaken            float64     `json:"timeTaken"`
	SwapUsdValue         string      `json:"swapUsdValue"`
	SimplerRouteUsed     bool        `json:"simplerRouteUsed"`
}

// RoutePlan represents a route plan in the Jupiter response
type RoutePlan struct {
	SwapInfo SwapInfo `json:"swapInfo"`
	Percent  int      `json:"percent"`
	Bps      int      `json:"bps"`
}

// SwapInfo represents swap information in a route plan
type SwapInfo struct {
	AmmKey     string `json:"ammKey"`
	Label      string `json:"label"`
	InputMint  string `json:"inputMint"`
	OutputMint string `json:"outputMint"`
	InAmount   string `json:"inAmount"`
	OutAmount  string `json:"outAmount"`
	FeeAmount  string `json:"feeAmount"`
	FeeMint    string `json:"feeMint"`
}

// GetSwapQuote retrieves a swap quote from the Jupiter API.
func GetSwapQuote(inputMint, outputMint string, amount uint64, slippageBps int) (*JupiterQuoteResponse, error) {
	if amount <= 100 {
		// Dust amounts are not routable; short-circuit with a zero quote.
		return &JupiterQuoteResponse{
			InputMint:   inputMint,
			InAmount:    strconv.FormatUint(amount, 10),
			OutputMint:  outputMint,
			OutAmount:   "0",
			SwapMode:    "ExactIn",
			SlippageBps: slippageBps,
			RoutePlan:   []RoutePlan{},
		}, nil
	}

	params := url.Values{}
	params.Add("inputMint", inputMint)
	params.Add("outputMint", outputMint)
	params.Add("amount", strconv.FormatUint(amount, 10))
	params.Add("slippageBps", strconv.Itoa(slippageBps))
	params.Add("restrictIntermediateTokens", "true")

	fullURL := fmt.Sprintf("%s/quote?%s", jupiterBaseURL, params.Encode())

	resp, err := http.Get(fullURL)
	if err != nil {
		return nil, fmt.Errorf("failed to make HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP request failed with status: %d", resp.StatusCode)
	}

	var quoteResponse JupiterQuoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&quoteResponse); err != nil {
		return nil, fmt.Errorf("failed to decode JSON response: %w", err)
	}

	return &quoteResponse, nil
}

// PriceOracle quotes the reward-token price via Jupiter, with an in-memory
// TTL cache. A failed refresh serves the stale price up to MaxStale; past
// that the zero quote signals the oracle is down.
type PriceOracle struct {
	Mint     string
	TTL      time.Duration
	MaxStale time.Duration

	mu        sync.Mutex
	cached    engine.Quote
	updatedAt time.Time
}

// NewPriceOracle builds an oracle for the given mint with the default
// 2 minute TTL and 10 minute staleness ceiling.
func NewPriceOracle(mint string) *PriceOracle {
	return &PriceOracle{
		Mint:     mint,
		TTL:      2 * time.Minute,
		MaxStale: 10 * time.Minute,
	}
}

// TokenPrice returns the cached or freshly fetched quote. Never errors: an
// unreachable aggregator past the staleness ceiling yields the zero quote.
func (o *PriceOracle) TokenPrice() engine.Quote {
	o.mu.Lock()
	defer o.mu.Unlock()

	if time.Since(o.updatedAt) < o.TTL && o.cached.SolPerToken > 0 {
		return o.cached
	}

	quote, err := o.fetch()
	if err != nil {
		if time.Since(o.updatedAt) < o.MaxStale && o.cached.SolPerToken > 0 {
			log.Warnf("price refresh failed, serving cached quote: %v", err)
			return o.cached
		}
		log.Errorf("price oracle unavailable: %v", err)
		return engine.Quote{}
	}

	o.cached = quote
	o.updatedAt = time.Now()
	return quote
}

func (o *PriceOracle) fetch() (engine.Quote, error) {
	resp, err := GetSwapQuote(o.Mint, solMint, priceProbeAmount, 50)
	if err != nil {
		return engine.Quote{}, err
	}

	outAmount, err := strconv.ParseFloat(resp.OutAmount, 64)
	if err != nil {
		return engine.Quote{}, fmt.Errorf("failed to parse outAmount: %w", err)
	}
	if outAmount <= 0 {
		return engine.Quote{}, fmt.Errorf("empty route for %s", o.Mint)
	}

	// Both legs carry 9 decimals, so the ratio of base units is the price.
	price := outAmount / float64(priceProbeAmount)
	return engine.Quote{
		SolPerToken: price,
		TokenPerSol: 1 / price,
	}, nil
}
