package dice

import "go.uber.org/zap"

// Roller wraps a Source and logger so that every draw is auditable.
// All draws are logged at debug level with their bound and result.
//
// Roller itself satisfies Source.
type Roller struct {
	src    Source
	logger *zap.Logger
}

// NewLoggedRoller creates a Roller that draws from src and logs each draw to logger.
//
// Precondition: src and logger must be non-nil.
func NewLoggedRoller(src Source, logger *zap.Logger) *Roller {
	return &Roller{src: src, logger: logger}
}

// Intn draws from the wrapped Source and logs the result.
//
// Precondition: n > 0.
func (r *Roller) Intn(n int) int {
	v := r.src.Intn(n)
	r.logger.Debug("dice roll",
		zap.Int("sides", n),
		zap.Int("result", v),
	)
	return v
}

// Float64 draws from the wrapped Source and logs the result.
func (r *Roller) Float64() float64 {
	v := r.src.Float64()
	r.logger.Debug("dice chance", zap.Float64("result", v))
	return v
}

// RangeInt returns a uniform int in [lo, hi].
//
// Precondition: hi >= lo.
// Postcondition: lo <= result <= hi.
func RangeInt(src Source, lo, hi int) int {
	return lo + src.Intn(hi-lo+1)
}

// Chance reports whether a draw falls below p.
func Chance(src Source, p float64) bool {
	if p <= 0 {
		return false
	}
	return src.Float64() < p
}
