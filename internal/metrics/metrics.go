// Package metrics counts sampler behaviour during planning and simulation runs:
// how often each distribution site is drawn from, how often it degraded to its
// fallback sample, and how often bounded retries ran out.
package metrics

import (
	"sort"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Distribution sites.
const (
	SiteCaseCount         = "case_count"
	SiteCaseSequence      = "case_sequence"
	SiteFirstStart        = "first_start"
	SiteScheduledDuration = "scheduled_duration"
	SiteScheduledTurnover = "scheduled_turnover"
	SiteStartOffset       = "start_offset"
	SiteDurationDelta     = "duration_delta"
	SiteTurnoverAfterCxl  = "turnover_after_cancelled"
	SiteTurnoverAfterCase = "turnover_after_completed"
)

// Option applies a configuration option to the Recorder.
type Option func(*Recorder)

// WithNamespace sets the namespace for all metrics.
func WithNamespace(namespace string) Option {
	return func(r *Recorder) {
		if namespace != "" {
			r.namespace = namespace
		}
	}
}

// WithRegistry registers the metrics on a caller-provided registry.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(r *Recorder) {
		if reg != nil {
			r.registry = reg
		}
	}
}

// Recorder holds the run counters. A nil *Recorder is valid and records nothing.
type Recorder struct {
	namespace string
	registry  *prometheus.Registry

	draws         *prometheus.CounterVec
	fallbacks     *prometheus.CounterVec
	exhausted     *prometheus.CounterVec
	roomsSkipped  *prometheus.CounterVec
	daysTruncated prometheus.Counter
	casesPlanned  prometheus.Counter
	casesSimmed   prometheus.Counter
}

// New creates a Recorder on its own registry unless WithRegistry is given.
func New(opts ...Option) *Recorder {
	r := &Recorder{
		namespace: "orsim",
		registry:  prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(r)
	}

	auto := promauto.With(r.registry)
	r.draws = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: r.namespace,
		Name:      "draws_total",
		Help:      "Random draws taken per distribution site",
	}, []string{"site"})
	r.fallbacks = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: r.namespace,
		Name:      "fallbacks_total",
		Help:      "Distributions fitted on a fixed fallback sample because history was empty",
	}, []string{"site"})
	r.exhausted = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: r.namespace,
		Name:      "retries_exhausted_total",
		Help:      "Bounded redraw loops that ended on their policy constant",
	}, []string{"site"})
	r.roomsSkipped = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: r.namespace,
		Name:      "rooms_skipped_total",
		Help:      "Rooms producing no cases for the selected day",
	}, []string{"reason"})
	r.daysTruncated = auto.NewCounter(prometheus.CounterOpts{
		Namespace: r.namespace,
		Name:      "days_truncated_total",
		Help:      "Room-days cut short by the end-of-day bound",
	})
	r.casesPlanned = auto.NewCounter(prometheus.CounterOpts{
		Namespace: r.namespace,
		Name:      "cases_planned_total",
		Help:      "Planned cases emitted",
	})
	r.casesSimmed = auto.NewCounter(prometheus.CounterOpts{
		Namespace: r.namespace,
		Name:      "cases_simulated_total",
		Help:      "Simulated cases emitted",
	})
	return r
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

func (r *Recorder) Draw(site string) {
	if r != nil {
		r.draws.WithLabelValues(site).Inc()
	}
}

func (r *Recorder) Fallback(site string) {
	if r != nil {
		r.fallbacks.WithLabelValues(site).Inc()
	}
}

func (r *Recorder) RetriesExhausted(site string) {
	if r != nil {
		r.exhausted.WithLabelValues(site).Inc()
	}
}

func (r *Recorder) RoomSkipped(reason string) {
	if r != nil {
		r.roomsSkipped.WithLabelValues(reason).Inc()
	}
}

func (r *Recorder) DayTruncated() {
	if r != nil {
		r.daysTruncated.Inc()
	}
}

func (r *Recorder) CasesPlanned(n int) {
	if r != nil {
		r.casesPlanned.Add(float64(n))
	}
}

func (r *Recorder) CasesSimulated(n int) {
	if r != nil {
		r.casesSimmed.Add(float64(n))
	}
}

// Sample is one counter value from a Snapshot.
type Sample struct {
	Name   string            `json:"name"`
	Labels map[string]string `json:"labels,omitempty"`
	Value  float64           `json:"value"`
}

// Snapshot gathers all non-zero counters, sorted by name.
func (r *Recorder) Snapshot() ([]Sample, error) {
	if r == nil {
		return nil, nil
	}
	families, err := r.registry.Gather()
	if err != nil {
		return nil, err
	}

	var out []Sample
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			v := m.GetCounter().GetValue()
			if v == 0 {
				continue
			}
			s := Sample{Name: mf.GetName(), Value: v}
			if lp := m.GetLabel(); len(lp) > 0 {
				s.Labels = make(map[string]string, len(lp))
				for _, l := range lp {
					s.Labels[l.GetName()] = l.GetValue()
				}
			}
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
