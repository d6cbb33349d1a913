package engine

// CompetitionSource names where the competing-deployment figure came from.
// SourceEstimate is a documented degraded mode used when the on-chain figure
// is negligible.
type CompetitionSource string

const (
	SourceOnChain  CompetitionSource = "onchain"
	SourceEstimate CompetitionSource = "estimate"
)

// EvaluateInput carries everything the profitability verdict depends on.
// All amounts are in SOL (native) or whole reward tokens; the caller
// converts from base units.
type EvaluateInput struct {
	CostPerRound        float64 // SOL committed this round
	RewardPoolTokens    float64 // accumulated bonus pool, whole tokens
	TokenPriceSOL       float64 // SOL per token; zero means oracle down
	CompetingDeployment float64 // on-chain total competing SOL this round

	FixedEmissionTokens float64 // base per-round emission, whole tokens
	HitProbability      float64 // chance of winning the pool share
	ProtocolFeeRate     float64 // fraction skimmed from claimed rewards
	RefundRate          float64 // empirical fraction of cost refunded
	FallbackMultiplier  float64 // competing = cost x this when no figure
	MinCompeting        float64 // SOL below which the figure is ignored
	MinExpectedValue    float64 // SOL; verdict threshold, default 0
}

// Snapshot is the per-cycle verdict. Recomputed every cycle, never stored.
type Snapshot struct {
	ProductionCost       float64
	ExpectedRewardTokens float64
	ExpectedRewardValue  float64
	ExpectedRefundValue  float64
	ExpectedValue        float64
	CompetitionSource    CompetitionSource
	Profitable           bool
}

// Evaluate is a pure function of its input: no side effects, no hidden
// state. An unavailable market price (zero) always yields "not profitable",
// never "unknown so proceed".
func Evaluate(in EvaluateInput) Snapshot {
	snap := Snapshot{
		ProductionCost:    in.CostPerRound,
		CompetitionSource: SourceOnChain,
	}

	competing := in.CompetingDeployment
	if competing < in.MinCompeting {
		competing = in.CostPerRound * in.FallbackMultiplier
		snap.CompetitionSource = SourceEstimate
	}

	var share float64
	if total := in.CostPerRound + competing; total > 0 {
		share = in.CostPerRound / total
	}

	snap.ExpectedRewardTokens = share *
		(in.FixedEmissionTokens + in.HitProbability*in.RewardPoolTokens) *
		(1 - in.ProtocolFeeRate)
	snap.ExpectedRefundValue = in.CostPerRound * in.RefundRate

	if in.TokenPriceSOL <= 0 {
		// Oracle failure sentinel: value the reward at zero and refuse
		// to deploy regardless of the pool size.
		snap.ExpectedValue = snap.ExpectedRefundValue - in.CostPerRound
		snap.Profitable = false
		return snap
	}

	snap.ExpectedRewardValue = snap.ExpectedRewardTokens * in.TokenPriceSOL
	snap.ExpectedValue = snap.ExpectedRewardValue + snap.ExpectedRefundValue - in.CostPerRound
	snap.Profitable = snap.ExpectedValue >= in.MinExpectedValue
	return snap
}
