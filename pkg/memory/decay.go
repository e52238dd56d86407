package memory

import "time"

// Decay defaults: importance fades over thirty days down to a tenth of its
// prior, then holds there.
const (
	DefaultDecayWindow = 30 * 24 * time.Hour
	DefaultDecayFloor  = 0.1
)

// DecayPolicy controls how episodic importance fades with record age. The
// factor falls linearly from 1.0 at age zero to Floor at Window and stays
// flat afterwards, so age alone never makes a record unselectable.
type DecayPolicy struct {
	Window time.Duration
	Floor  float64
}

// DefaultDecayPolicy returns the stock thirty-day policy.
func DefaultDecayPolicy() DecayPolicy {
	return DecayPolicy{Window: DefaultDecayWindow, Floor: DefaultDecayFloor}
}

// Factor returns the decay multiplier for a record of the given age. The
// result is monotonically non-increasing in age and bounded below by Floor.
func (p DecayPolicy) Factor(age time.Duration) float64 {
	window := p.Window
	if window <= 0 {
		window = DefaultDecayWindow
	}
	floor := p.Floor
	if floor <= 0 {
		floor = DefaultDecayFloor
	}

	if age <= 0 {
		return 1
	}
	if age >= window {
		return floor
	}
	return 1 - (1-floor)*(float64(age)/float64(window))
}

// Effective returns the record's importance after decay.
func (p DecayPolicy) Effective(importance float64, age time.Duration) float64 {
	return importance * p.Factor(age)
}
