package strategy

// AdjustedParams carries a beta-scaled parameter set together with the
// inputs that produced it, so reports can show whether an instrument ran
// on real beta or on the neutral fallback.
type AdjustedParams struct {
	Params      StrategyParams `json:"params"`
	Beta        float64        `json:"beta"`
	Coefficient float64        `json:"coefficient"`
	// Fallback is set when no beta was supplied and 1.0 was assumed.
	Fallback bool `json:"fallback"`
}

// AdjustParams multiplies every percentage-type threshold in base by
// beta * coefficient. Non-percentage parameters (multipliers, lot counts,
// reference prices) pass through unchanged. A nil beta falls back to 1.0
// and annotates the result; the simulation is never blocked.
//
// The substitution happens once per instrument at setup; incremental
// add-ons later operate on the already-scaled base.
func AdjustParams(base StrategyParams, beta *float64, coefficient float64) AdjustedParams {
	adjusted := AdjustedParams{
		Params:      base.Clone(),
		Coefficient: coefficient,
	}

	if beta == nil {
		adjusted.Beta = 1.0
		adjusted.Fallback = true
		return adjusted
	}
	adjusted.Beta = *beta

	factor := adjusted.Beta * coefficient
	if factor == 1.0 {
		return adjusted
	}

	p := &adjusted.Params
	p.GridSpacing *= factor
	p.ProfitTarget *= factor
	p.ReboundThreshold *= factor
	if p.TrailingBuy != nil {
		p.TrailingBuy.Activation *= factor
		p.TrailingBuy.Retrace *= factor
	}
	if p.TrailingSell != nil {
		p.TrailingSell.Activation *= factor
		p.TrailingSell.Retrace *= factor
	}
	if p.Profile != nil {
		p.Profile.Conservative.GridSpacing *= factor
		p.Profile.Conservative.ProfitTarget *= factor
		p.Profile.Aggressive.GridSpacing *= factor
		p.Profile.Aggressive.ProfitTarget *= factor
	}
	return adjusted
}
