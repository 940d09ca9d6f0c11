package testutil

import "time"

// UnitBudget is a deadline that has time left for exactly n checks.
//
// The reconciler checks its deadline once before every unit of work, so a
// UnitBudget of n lets exactly n units run before the loop yields.
type UnitBudget struct {
	left   int
	checks int
}

// NewUnitBudget creates a budget good for n checks.
func NewUnitBudget(n int) *UnitBudget {
	return &UnitBudget{left: n}
}

// TimeRemaining reports one second while checks remain, zero afterwards.
func (b *UnitBudget) TimeRemaining() time.Duration {
	b.checks++
	if b.left <= 0 {
		return 0
	}
	b.left--
	return time.Second
}

// Checks returns how many times the budget was consulted.
func (b *UnitBudget) Checks() int {
	return b.checks
}
