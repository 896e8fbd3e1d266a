package stats

import (
	"errors"
	"math"
)

// ErrEmptySample is returned when a distribution is fitted on no observations.
var ErrEmptySample = errors.New("empty sample")

// KDE is a Gaussian kernel density estimate over a set of observations.
// Drawing picks an observation uniformly and perturbs it by N(0, bandwidth²).
type KDE struct {
	samples   []float64
	bandwidth float64
}

// FitKDE fits a kernel density on samples. The slice is copied.
func FitKDE(samples []float64, bandwidth float64) (*KDE, error) {
	if len(samples) == 0 {
		return nil, ErrEmptySample
	}
	if bandwidth < 0 {
		bandwidth = 0
	}
	return &KDE{
		samples:   append([]float64(nil), samples...),
		bandwidth: bandwidth,
	}, nil
}

// FitKDEOr fits on samples, substituting fallback when samples is empty.
// The second return value reports whether the fallback was used.
func FitKDEOr(samples, fallback []float64, bandwidth float64) (*KDE, bool) {
	if k, err := FitKDE(samples, bandwidth); err == nil {
		return k, false
	}
	k, err := FitKDE(fallback, bandwidth)
	if err != nil {
		// An empty fallback degenerates to a point mass at zero.
		k = &KDE{samples: []float64{0}, bandwidth: bandwidth}
	}
	return k, true
}

// Len returns the number of fitted observations.
func (k *KDE) Len() int { return len(k.samples) }

// Bandwidth returns the kernel standard deviation.
func (k *KDE) Bandwidth() float64 { return k.bandwidth }

// Sample draws one variate.
func (k *KDE) Sample(src Source) float64 {
	x := k.samples[src.Intn(len(k.samples))]
	return x + src.NormFloat64()*k.bandwidth
}

// SampleRounded draws one variate rounded half-to-even to a whole number.
func (k *KDE) SampleRounded(src Source) int {
	return int(math.RoundToEven(k.Sample(src)))
}

// DrawRounded fits and samples in one step, for call sites that never reuse the fit.
func DrawRounded(samples, fallback []float64, bandwidth float64, src Source) (int, bool) {
	k, usedFallback := FitKDEOr(samples, fallback, bandwidth)
	return k.SampleRounded(src), usedFallback
}
