package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func baseInput() EvaluateInput {
	return EvaluateInput{
		CostPerRound:        0.1,
		RewardPoolTokens:    1000,
		TokenPriceSOL:       0.01,
		CompetingDeployment: 0.5,
		FixedEmissionTokens: 1,
		HitProbability:      0.04,
		ProtocolFeeRate:     0.10,
		RefundRate:          0.75,
		FallbackMultiplier:  10,
		MinCompeting:        0.01,
		MinExpectedValue:    0,
	}
}

func TestEvaluateDeterministic(t *testing.T) {
	in := baseInput()
	first := Evaluate(in)
	second := Evaluate(in)
	assert.Equal(t, first, second, "identical inputs must yield identical verdicts")
}

func TestEvaluateProfitable(t *testing.T) {
	snap := Evaluate(baseInput())
	assert.Equal(t, SourceOnChain, snap.CompetitionSource)
	assert.True(t, snap.Profitable)
	// share = 0.1/0.6; rewardTokens = share * (1 + 0.04*1000) * 0.9
	assert.InDelta(t, 6.15, snap.ExpectedRewardTokens, 1e-9)
	assert.InDelta(t, 0.0615+0.075-0.1, snap.ExpectedValue, 1e-9)
}

func TestEvaluateEmptyPoolNeverProfitable(t *testing.T) {
	in := baseInput()
	in.RewardPoolTokens = 0
	snap := Evaluate(in)
	assert.Less(t, snap.ExpectedValue, in.CostPerRound)
	assert.False(t, snap.Profitable)
}

func TestEvaluateOracleDownIsPessimistic(t *testing.T) {
	in := baseInput()
	in.TokenPriceSOL = 0
	in.RewardPoolTokens = 1e9 // no pool size can rescue a dead oracle
	snap := Evaluate(in)
	assert.False(t, snap.Profitable)
	assert.Zero(t, snap.ExpectedRewardValue)
}

func TestEvaluateFallsBackToEstimate(t *testing.T) {
	in := baseInput()
	in.CompetingDeployment = 0.001 // below MinCompeting
	snap := Evaluate(in)
	assert.Equal(t, SourceEstimate, snap.CompetitionSource)

	// share = cost / (cost + 10*cost) = 1/11
	expectedTokens := (1.0 / 11.0) * (1 + 0.04*1000) * 0.9
	assert.InDelta(t, expectedTokens, snap.ExpectedRewardTokens, 1e-9)
}

func TestEvaluateThreshold(t *testing.T) {
	in := baseInput()
	in.MinExpectedValue = 1.0 // far above the achievable EV
	snap := Evaluate(in)
	assert.False(t, snap.Profitable)
	assert.Positive(t, snap.ExpectedValue)
}

func TestEvaluateZeroCost(t *testing.T) {
	in := baseInput()
	in.CostPerRound = 0
	in.CompetingDeployment = 0
	snap := Evaluate(in)
	assert.Zero(t, snap.ExpectedRewardTokens)
	assert.Zero(t, snap.ExpectedValue)
}
