package stats

import (
	"cmp"
	"slices"
)

// Categorical is a discrete empirical distribution over observed labels, sampled by
// inverse CDF. Labels are ordered by descending count, ties by first appearance.
type Categorical[T comparable] struct {
	labels     []T
	counts     []int
	cumulative []float64
}

// FitCategorical builds the cumulative table from raw observations.
func FitCategorical[T comparable](observations []T) (*Categorical[T], error) {
	if len(observations) == 0 {
		return nil, ErrEmptySample
	}

	index := make(map[T]int)
	var labels []T
	var counts []int
	for _, o := range observations {
		i, ok := index[o]
		if !ok {
			i = len(labels)
			index[o] = i
			labels = append(labels, o)
			counts = append(counts, 0)
		}
		counts[i]++
	}
	return newCategorical(labels, counts), nil
}

// FitCounts builds the cumulative table from labels with precomputed counts.
// Labels with a non-positive count are ignored.
func FitCounts[T comparable](labels []T, counts []int) (*Categorical[T], error) {
	var ls []T
	var cs []int
	for i, l := range labels {
		if i < len(counts) && counts[i] > 0 {
			ls = append(ls, l)
			cs = append(cs, counts[i])
		}
	}
	if len(ls) == 0 {
		return nil, ErrEmptySample
	}
	return newCategorical(ls, cs), nil
}

func newCategorical[T comparable](labels []T, counts []int) *Categorical[T] {
	order := make([]int, len(labels))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		return cmp.Compare(counts[b], counts[a])
	})

	total := 0
	for _, c := range counts {
		total += c
	}

	c := &Categorical[T]{
		labels:     make([]T, len(order)),
		counts:     make([]int, len(order)),
		cumulative: make([]float64, len(order)),
	}
	running := 0
	for i, idx := range order {
		running += counts[idx]
		c.labels[i] = labels[idx]
		c.counts[i] = counts[idx]
		c.cumulative[i] = float64(running) / float64(total)
	}
	c.cumulative[len(order)-1] = 1.0
	return c
}

// Pick returns the first label whose cumulative probability exceeds u.
func (c *Categorical[T]) Pick(u float64) T {
	for i, p := range c.cumulative {
		if u < p {
			return c.labels[i]
		}
	}
	return c.labels[len(c.labels)-1]
}

// Sample draws a uniform from src and picks a label.
func (c *Categorical[T]) Sample(src Source) T {
	return c.Pick(src.Float64())
}

// Labels returns the labels in table order.
func (c *Categorical[T]) Labels() []T {
	return append([]T(nil), c.labels...)
}

// Cumulative returns the cumulative probabilities in table order.
func (c *Categorical[T]) Cumulative() []float64 {
	return append([]float64(nil), c.cumulative...)
}

// Count returns how often label was observed.
func (c *Categorical[T]) Count(label T) int {
	for i, l := range c.labels {
		if l == label {
			return c.counts[i]
		}
	}
	return 0
}
