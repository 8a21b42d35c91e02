package models

// Constraints describes the structural rules every scenario must satisfy.
type Constraints struct {
	TotalPicks   int `json:"total_picks" mapstructure:"total_picks"`
	MaxThreeZero int `json:"max_3_0" mapstructure:"max_3_0"`
	MaxZeroThree int `json:"max_0_3" mapstructure:"max_0_3"`
	AdvancePicks int `json:"advance_picks" mapstructure:"advance_picks"`
}

// DefaultConstraints returns the Swiss-stage defaults.
func DefaultConstraints() Constraints {
	return Constraints{
		TotalPicks:   9,
		MaxThreeZero: 1,
		MaxZeroThree: 1,
		AdvancePicks: 7,
	}
}

// Validate rejects constraint values that make any scenario impossible.
func (c Constraints) Validate() error {
	if c.TotalPicks <= 0 {
		return ConstraintViolation("total_picks must be positive, got %d", c.TotalPicks)
	}
	if c.MaxThreeZero < 0 {
		return ConstraintViolation("max_3_0 cannot be negative, got %d", c.MaxThreeZero)
	}
	if c.MaxZeroThree < 0 {
		return ConstraintViolation("max_0_3 cannot be negative, got %d", c.MaxZeroThree)
	}
	if c.AdvancePicks < 0 {
		return ConstraintViolation("advance_picks cannot be negative, got %d", c.AdvancePicks)
	}
	if c.AdvancePicks > c.TotalPicks {
		return ConstraintViolation("advance_picks (%d) exceeds total_picks (%d)", c.AdvancePicks, c.TotalPicks)
	}
	return nil
}
