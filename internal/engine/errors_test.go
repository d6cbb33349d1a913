package engine

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"checkpoint code", errors.New("transaction failed: custom program error: 0x1770"), KindCheckpointRequired},
		{"already deployed code", errors.New("custom program error: 0x1771"), KindAlreadySatisfied},
		{"nothing to claim code", errors.New("custom program error: 0x1774"), KindAlreadySatisfied},
		{"insufficient funds code", errors.New("custom program error: 0x1772"), KindInsufficientFunds},
		{"insufficient lamports", errors.New("Transfer: insufficient lamports 12, need 100"), KindInsufficientFunds},
		{"round closed code", errors.New("custom program error: 0x1773"), KindRejected},
		{"unknown program error", errors.New("custom program error: 0xbeef"), KindRejected},
		{"connection refused", errors.New("dial tcp: connection refused"), KindTransient},
		{"rate limited", errors.New("server responded with 429 Too Many Requests"), KindTransient},
		{"stale blockhash", errors.New("blockhash not found"), KindTransient},
		{"cancelled context", context.Canceled, KindShutdown},
		{"arbitrary failure", errors.New("something odd"), KindRejected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestClassifyChainErrorWins(t *testing.T) {
	inner := errors.New("custom program error: 0x1770")
	tagged := NewChainError(KindRejected, "deploy", inner)
	assert.Equal(t, KindRejected, Classify(tagged), "an explicit tag overrides text matching")

	wrapped := fmt.Errorf("submit: %w", tagged)
	assert.Equal(t, KindRejected, Classify(wrapped))
}

func TestChainErrorMessage(t *testing.T) {
	err := NewChainError(KindInsufficientFunds, "refund", errors.New("boom"))
	assert.Contains(t, err.Error(), "refund")
	assert.Contains(t, err.Error(), "insufficient_funds")
	assert.ErrorContains(t, err, "boom")
}
