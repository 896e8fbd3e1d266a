package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestRecorderCreation(t *testing.T) {
	Convey("Given recorder creation", t, func() {
		Convey("When creating with default options", func() {
			r := New()

			Convey("Then it should own a fresh registry", func() {
				So(r, ShouldNotBeNil)
				So(r.Registry(), ShouldNotBeNil)
			})
		})

		Convey("When creating with a custom registry and namespace", func() {
			reg := prometheus.NewRegistry()
			r := New(WithRegistry(reg), WithNamespace("test"))
			r.Draw(SiteCaseCount)

			Convey("Then metrics should be registered there under the namespace", func() {
				families, err := reg.Gather()
				So(err, ShouldBeNil)
				names := make([]string, 0, len(families))
				for _, f := range families {
					names = append(names, f.GetName())
				}
				So(names, ShouldContain, "test_draws_total")
			})
		})
	})
}

func TestRecorderCounting(t *testing.T) {
	Convey("Given a recorder", t, func() {
		r := New()

		Convey("When recording draws, fallbacks and exhausted retries", func() {
			r.Draw(SiteScheduledTurnover)
			r.Draw(SiteScheduledTurnover)
			r.Fallback(SiteScheduledTurnover)
			r.RetriesExhausted(SiteTurnoverAfterCase)
			r.RoomSkipped("no_history")
			r.DayTruncated()
			r.CasesPlanned(3)
			r.CasesSimulated(3)

			Convey("Then counters should reflect each call", func() {
				So(testutil.ToFloat64(r.draws.WithLabelValues(SiteScheduledTurnover)), ShouldEqual, 2)
				So(testutil.ToFloat64(r.fallbacks.WithLabelValues(SiteScheduledTurnover)), ShouldEqual, 1)
				So(testutil.ToFloat64(r.exhausted.WithLabelValues(SiteTurnoverAfterCase)), ShouldEqual, 1)
				So(testutil.ToFloat64(r.daysTruncated), ShouldEqual, 1)
				So(testutil.ToFloat64(r.casesPlanned), ShouldEqual, 3)
			})

			Convey("And the snapshot should list only non-zero counters", func() {
				snap, err := r.Snapshot()
				So(err, ShouldBeNil)
				So(len(snap), ShouldEqual, 7)
				for _, s := range snap {
					So(s.Value, ShouldBeGreaterThan, 0)
				}
			})
		})
	})
}

func TestNilRecorder(t *testing.T) {
	Convey("Given a nil recorder", t, func() {
		var r *Recorder

		Convey("Then every call should be a no-op", func() {
			So(func() {
				r.Draw(SiteCaseCount)
				r.Fallback(SiteCaseCount)
				r.RetriesExhausted(SiteCaseCount)
				r.RoomSkipped("x")
				r.DayTruncated()
				r.CasesPlanned(1)
				r.CasesSimulated(1)
			}, ShouldNotPanic)
			snap, err := r.Snapshot()
			So(err, ShouldBeNil)
			So(snap, ShouldBeEmpty)
		})
	})
}
