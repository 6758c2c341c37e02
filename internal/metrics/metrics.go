// Package metrics records the outcome of a run as Prometheus metrics and
// writes them to a textfile for the node exporter textfile collector.
package metrics

import (
	"errors"
	"fmt"
	"time"

	"github.com/naka-gawa/codestats-box/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Run outcomes reported by the outcome gauge.
const (
	OutcomeUpdated = "updated"
	OutcomeSkipped = "skipped"
	OutcomeDryRun  = "dry_run"
	OutcomeFailed  = "failed"
)

var outcomes = []string{OutcomeUpdated, OutcomeSkipped, OutcomeDryRun, OutcomeFailed}

// Recorder holds the gauges of a single run on its own registry.
type Recorder struct {
	namespace string
	registry  *prometheus.Registry

	totalXP       prometheus.Gauge
	recentTotalXP prometheus.Gauge
	skills        prometheus.Gauge
	skillXP       *prometheus.GaugeVec

	runDuration  prometheus.Gauge
	runTimestamp prometheus.Gauge
	outcome      *prometheus.GaugeVec
	errorKind    *prometheus.GaugeVec
}

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

// NewRecorder creates a Recorder with a private registry.
func NewRecorder(opts ...Option) *Recorder {
	r := &Recorder{
		namespace: "codestats_box",
		registry:  prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(r)
	}

	auto := promauto.With(r.registry)
	r.totalXP = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: r.namespace,
		Name:      "total_xp",
		Help:      "Total XP reported by Code::Stats",
	})
	r.recentTotalXP = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: r.namespace,
		Name:      "recent_total_xp",
		Help:      "XP earned in the recent window reported by Code::Stats",
	})
	r.skills = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: r.namespace,
		Name:      "skills",
		Help:      "Number of languages in the fetched profile",
	})
	r.skillXP = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: r.namespace,
		Name:      "skill_xp",
		Help:      "XP per language",
	}, []string{"skill"})
	r.runDuration = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: r.namespace,
		Name:      "last_run_duration_seconds",
		Help:      "Wall time of the last run",
	})
	r.runTimestamp = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: r.namespace,
		Name:      "last_run_timestamp_seconds",
		Help:      "Unix time the last run finished",
	})
	r.outcome = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: r.namespace,
		Name:      "last_run_outcome",
		Help:      "1 for the outcome of the last run, 0 for the others",
	}, []string{"outcome"})
	r.errorKind = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: r.namespace,
		Name:      "last_run_error",
		Help:      "1 labelled with the kind of error the last run failed with",
	}, []string{"kind"})
	return r
}

// Registry exposes the underlying registry, mainly for tests.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// ObserveSnapshot records the fetched stats.
func (r *Recorder) ObserveSnapshot(s *domain.StatsSnapshot) {
	if s == nil {
		return
	}
	r.totalXP.Set(float64(s.TotalXP))
	r.recentTotalXP.Set(float64(s.RecentTotalXP))
	r.skills.Set(float64(len(s.Skills)))
	for _, skill := range s.Skills {
		r.skillXP.WithLabelValues(skill.Name).Set(float64(skill.TotalXP))
	}
}

// ObserveRun records how the run ended. err wins over outcome.
func (r *Recorder) ObserveRun(outcome string, duration time.Duration, finished time.Time, err error) {
	if err != nil {
		outcome = OutcomeFailed
		r.errorKind.WithLabelValues(ErrorKind(err)).Set(1)
	}
	for _, o := range outcomes {
		v := 0.0
		if o == outcome {
			v = 1
		}
		r.outcome.WithLabelValues(o).Set(v)
	}
	r.runDuration.Set(duration.Seconds())
	r.runTimestamp.Set(float64(finished.Unix()))
}

// WriteTextfile writes all metrics in the text exposition format to path.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}

// ErrorKind names the error category of err for the error gauge.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidMode):
		return "invalid_mode"
	case errors.Is(err, domain.ErrSourceUnavailable):
		return "source_unavailable"
	case errors.Is(err, domain.ErrSourceMalformed):
		return "source_malformed"
	case errors.Is(err, domain.ErrSinkUnauthorized):
		return "sink_unauthorized"
	case errors.Is(err, domain.ErrSinkNotFound):
		return "sink_not_found"
	case errors.Is(err, domain.ErrSinkUnavailable):
		return "sink_unavailable"
	default:
		return "other"
	}
}
