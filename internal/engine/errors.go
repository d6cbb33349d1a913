package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrorKind buckets a failed chain operation by how the loop should react.
type ErrorKind int

const (
	// KindTransient covers network and RPC failures worth retrying.
	KindTransient ErrorKind = iota
	// KindCheckpointRequired means the miner checkpoint lags the current
	// round; catch up and retry the write once.
	KindCheckpointRequired
	// KindAlreadySatisfied is a benign "already done" rejection.
	KindAlreadySatisfied
	// KindInsufficientFunds escalates to a refund or rescale.
	KindInsufficientFunds
	// KindRejected is any other program rejection; skip the round.
	KindRejected
	// KindShutdown is operator-driven cancellation.
	KindShutdown
)

func (k ErrorKind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindCheckpointRequired:
		return "checkpoint_required"
	case KindAlreadySatisfied:
		return "already_satisfied"
	case KindInsufficientFunds:
		return "insufficient_funds"
	case KindRejected:
		return "rejected"
	case KindShutdown:
		return "shutdown"
	}
	return "unknown"
}

// ChainError wraps a failed chain write with its classification.
type ChainError struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *ChainError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *ChainError) Unwrap() error { return e.Err }

// NewChainError builds a classified chain error.
func NewChainError(kind ErrorKind, op string, err error) *ChainError {
	return &ChainError{Kind: kind, Op: op, Err: err}
}

// Minefield program custom error codes, matched against the RPC error text
// ("custom program error: 0x...").
const (
	codeNeedsCheckpoint   = "0x1770"
	codeAlreadyDeployed   = "0x1771"
	codeInsufficientFunds = "0x1772"
	codeRoundClosed       = "0x1773"
	codeNothingToClaim    = "0x1774"
)

// Classify maps an error from a chain operation to its kind. A pre-tagged
// ChainError wins; otherwise the RPC error text is inspected.
func Classify(err error) ErrorKind {
	if err == nil {
		return KindAlreadySatisfied
	}
	var ce *ChainError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return KindShutdown
	}

	msg := err.Error()
	switch {
	case strings.Contains(msg, codeNeedsCheckpoint):
		return KindCheckpointRequired
	case strings.Contains(msg, codeAlreadyDeployed), strings.Contains(msg, codeNothingToClaim):
		return KindAlreadySatisfied
	case strings.Contains(msg, codeInsufficientFunds),
		strings.Contains(msg, "insufficient funds"),
		strings.Contains(msg, "insufficient lamports"):
		return KindInsufficientFunds
	case strings.Contains(msg, codeRoundClosed), strings.Contains(msg, "custom program error"):
		return KindRejected
	case strings.Contains(msg, "connection refused"),
		strings.Contains(msg, "timeout"),
		strings.Contains(msg, "deadline exceeded"),
		strings.Contains(msg, "EOF"),
		strings.Contains(msg, "429"),
		strings.Contains(msg, "blockhash not found"):
		return KindTransient
	}
	return KindRejected
}
