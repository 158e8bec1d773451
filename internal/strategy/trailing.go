package strategy

// trailDirection distinguishes a trailing buy (tracks the low) from a
// trailing sell (tracks the high).
type trailDirection int

const (
	trailBuy trailDirection = iota
	trailSell
)

// trailingStop is the INACTIVE -> ACTIVE(extremum) -> TRIGGERED -> INACTIVE
// sub-state machine. Observe only reports TRIGGERED; the stop stays armed
// with its extremum until the executed trade calls Reset, so a signal the
// ledger refuses recurs unchanged on a later day.
type trailingStop struct {
	direction trailDirection
	active    bool
	extremum  float64
}

// Activate arms the stop and records the current price as the favorable
// extremum. No-op while already active.
func (t *trailingStop) Activate(price float64) {
	if t.active {
		return
	}
	t.active = true
	t.extremum = price
}

// Observe feeds one day's price into an armed stop. It updates the
// extremum on favorable moves and reports true when the configured
// retracement from the extremum has occurred. The stop is not disarmed
// here; that happens on execution.
func (t *trailingStop) Observe(price, retrace float64) bool {
	if !t.active {
		return false
	}

	if t.direction == trailBuy {
		if price < t.extremum {
			t.extremum = price
			return false
		}
		return price >= t.extremum*(1+retrace)
	}

	if price > t.extremum {
		t.extremum = price
		return false
	}
	return price <= t.extremum*(1-retrace)
}

// Reset returns the stop to INACTIVE.
func (t *trailingStop) Reset() {
	t.active = false
	t.extremum = 0
}

// Active reports whether the stop is armed.
func (t *trailingStop) Active() bool {
	return t.active
}

// Extremum returns the favorable extremum recorded since activation.
func (t *trailingStop) Extremum() float64 {
	return t.extremum
}
