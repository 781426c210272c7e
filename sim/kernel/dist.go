package kernel

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/qnetworks/qnet/sim"
)

// sampler draws one non-negative duration per call.
type sampler interface {
	sample(rng *rand.Rand) float64
}

// exponentialSampler draws Exp(rate) durations.
type exponentialSampler struct {
	rate float64
}

func (s *exponentialSampler) sample(rng *rand.Rand) float64 {
	return rng.ExpFloat64() / s.rate
}

// deterministicSampler always returns the same fixed duration.
type deterministicSampler struct {
	value float64
}

func (s *deterministicSampler) sample(_ *rand.Rand) float64 {
	return s.value
}

// uniformSampler draws U(min, max) durations.
type uniformSampler struct {
	min, max float64
}

func (s *uniformSampler) sample(rng *rand.Rand) float64 {
	return s.min + (s.max-s.min)*rng.Float64()
}

// triangularSampler draws Triangular(min, mode, max) durations via the
// inverse CDF.
type triangularSampler struct {
	min, mode, max float64
}

func (s *triangularSampler) sample(rng *rand.Rand) float64 {
	if s.max == s.min {
		return s.min
	}
	u := rng.Float64()
	fc := (s.mode - s.min) / (s.max - s.min)
	if u < fc {
		return s.min + math.Sqrt(u*(s.max-s.min)*(s.mode-s.min))
	}
	return s.max - math.Sqrt((1-u)*(s.max-s.min)*(s.max-s.mode))
}

// newSampler constructs a sampler from the compiler's distribution form.
// Parameter domains were validated at the schema boundary; the guards here
// protect against hand-built networks bypassing that boundary.
func newSampler(d sim.Dist) (sampler, error) {
	switch d.Kind {
	case sim.DistExponential:
		if d.Rate <= 0 || math.IsInf(d.Rate, 0) || math.IsNaN(d.Rate) {
			return nil, fmt.Errorf("exponential rate must be positive and finite, got %g", d.Rate)
		}
		return &exponentialSampler{rate: d.Rate}, nil
	case sim.DistDeterministic:
		if d.Value < 0 {
			return nil, fmt.Errorf("deterministic value must be non-negative, got %g", d.Value)
		}
		return &deterministicSampler{value: d.Value}, nil
	case sim.DistUniform:
		if d.Min < 0 || d.Max < d.Min {
			return nil, fmt.Errorf("uniform bounds must satisfy 0 <= min <= max, got [%g, %g]", d.Min, d.Max)
		}
		return &uniformSampler{min: d.Min, max: d.Max}, nil
	case sim.DistTriangular:
		if d.Min < 0 || d.Mode < d.Min || d.Max < d.Mode {
			return nil, fmt.Errorf("triangular bounds must satisfy 0 <= min <= mode <= max, got [%g, %g, %g]", d.Min, d.Mode, d.Max)
		}
		return &triangularSampler{min: d.Min, mode: d.Mode, max: d.Max}, nil
	default:
		return nil, fmt.Errorf("kernel has no sampler for distribution kind %q", d.Kind)
	}
}
