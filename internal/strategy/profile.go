package strategy

// ProfileState is the dynamic-profile position of an instrument.
type ProfileState int

const (
	ProfileAggressive ProfileState = iota
	ProfileConservative
)

func (s ProfileState) String() string {
	if s == ProfileConservative {
		return "CONSERVATIVE"
	}
	return "AGGRESSIVE"
}

// profileFor maps cumulative realized P&L onto a profile: losing
// positions trade conservatively, flat or winning ones aggressively.
func profileFor(realizedPnL float64) ProfileState {
	if realizedPnL < 0 {
		return ProfileConservative
	}
	return ProfileAggressive
}

// EvaluateProfile re-resolves the instrument's policy from its dynamic
// profile, if one is configured. Called once per simulated day before
// intent generation. Overrides always derive from the retained base
// parameters, so switching back fully restores them.
func (inst *Instrument) EvaluateProfile() {
	prof := inst.baseParams.Profile
	if prof == nil {
		return
	}

	next := profileFor(inst.realizedPnL)
	if next == inst.profile && inst.profileResolved {
		return
	}
	inst.profile = next
	inst.profileResolved = true

	override := prof.Aggressive
	if next == ProfileConservative {
		override = prof.Conservative
	}

	params := inst.baseParams.Clone()
	if override.GridSpacing > 0 {
		params.GridSpacing = override.GridSpacing
	}
	if override.ProfitTarget > 0 {
		params.ProfitTarget = override.ProfitTarget
	}
	inst.policy = ResolvePolicy(params)
}

// Profile returns the instrument's current dynamic-profile state.
func (inst *Instrument) Profile() ProfileState { return inst.profile }
