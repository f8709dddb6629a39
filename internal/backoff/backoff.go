// Package backoff provides the retry delay strategies used between generation
// attempts for the same item. All strategies are stateless and safe for
// concurrent use.
package backoff

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Strategy computes the delay before a retry.
type Strategy interface {
	// Delay returns how long to wait after failed attempt n (1-indexed)
	// before attempt n+1 starts.
	Delay(attempt int) time.Duration
}

// Constant always returns the same delay regardless of attempt number.
type Constant struct {
	Interval time.Duration
}

// NewConstant creates a constant backoff strategy.
func NewConstant(interval time.Duration) *Constant {
	return &Constant{Interval: interval}
}

// Delay returns the fixed interval.
func (c *Constant) Delay(_ int) time.Duration {
	return c.Interval
}

// Linear increases the delay linearly with the attempt number.
// Delay = min(Base * attempt, Max). With a 5s base and three attempts the
// sleeps are 5s then 10s.
type Linear struct {
	Base time.Duration
	Max  time.Duration
}

// NewLinear creates a linear backoff strategy. A zero max means uncapped.
func NewLinear(base, maxDelay time.Duration) *Linear {
	return &Linear{Base: base, Max: maxDelay}
}

// Delay returns Base * attempt, capped at Max.
func (l *Linear) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := l.Base * time.Duration(attempt)
	if l.Max > 0 && d > l.Max {
		return l.Max
	}
	return d
}

// Exponential doubles the delay each attempt.
// Delay = min(Base * 2^(attempt-1), Max).
type Exponential struct {
	Base time.Duration
	Max  time.Duration
}

// NewExponential creates an exponential backoff strategy. A zero max means uncapped.
func NewExponential(base, maxDelay time.Duration) *Exponential {
	return &Exponential{Base: base, Max: maxDelay}
}

// Delay returns Base * 2^(attempt-1), capped at Max.
func (e *Exponential) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := time.Duration(float64(e.Base) * math.Pow(2, float64(attempt-1)))
	if e.Max > 0 && d > e.Max {
		return e.Max
	}
	return d
}

// Strategy names accepted by New.
const (
	KindConstant    = "constant"
	KindLinear      = "linear"
	KindExponential = "exponential"
)

// New builds a strategy by name. An empty name selects linear.
func New(kind string, base, maxDelay time.Duration) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", KindLinear:
		return NewLinear(base, maxDelay), nil
	case KindConstant:
		return NewConstant(base), nil
	case KindExponential:
		return NewExponential(base, maxDelay), nil
	default:
		return nil, fmt.Errorf("unknown backoff strategy %q", kind)
	}
}
