// Package metrics exports operational counters for scheduling and delivery.
package metrics

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "study_streak"

// Observer records outcomes of the bot's operations. A nil *Observer is valid
// and records nothing.
type Observer struct {
	reminderOutcomes *prometheus.CounterVec
	cancelFailures   *prometheus.CounterVec
	deliveries       *prometheus.CounterVec
	activityMarks    *prometheus.CounterVec
}

// NewObserver registers the counters with reg (prometheus.DefaultRegisterer when nil).
func NewObserver(reg prometheus.Registerer) (*Observer, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	o := &Observer{
		reminderOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reminder_schedule_total",
			Help:      "Reminder scheduling calls by category and outcome.",
		}, []string{"category", "outcome"}),
		cancelFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reminder_cancel_failures_total",
			Help:      "Pending entries that could not be cancelled while rescheduling.",
		}, []string{"category"}),
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notification_deliveries_total",
			Help:      "Dispatched notifications by category and result.",
		}, []string{"category", "result"}),
		activityMarks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "activity_marks_total",
			Help:      "Calls marking today as studied, by outcome.",
		}, []string{"outcome"}),
	}

	var err error
	for _, c := range []**prometheus.CounterVec{&o.reminderOutcomes, &o.cancelFailures, &o.deliveries, &o.activityMarks} {
		if *c, err = registerCounterVec(reg, *c); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// registerCounterVec returns the already registered collector when a second
// observer is built against the same registry.
func registerCounterVec(reg prometheus.Registerer, c *prometheus.CounterVec) (*prometheus.CounterVec, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
		}
		return nil, fmt.Errorf("register metric: %w", err)
	}
	return c, nil
}

func (o *Observer) ReminderOutcome(category, outcome string) {
	if o == nil {
		return
	}
	o.reminderOutcomes.WithLabelValues(category, outcome).Inc()
}

func (o *Observer) CancelFailures(category string, n int) {
	if o == nil || n <= 0 {
		return
	}
	o.cancelFailures.WithLabelValues(category).Add(float64(n))
}

func (o *Observer) Delivery(category, result string) {
	if o == nil {
		return
	}
	o.deliveries.WithLabelValues(category, result).Inc()
}

func (o *Observer) ActivityMark(outcome string) {
	if o == nil {
		return
	}
	o.activityMarks.WithLabelValues(outcome).Inc()
}

// Handler serves the registry in the Prometheus text format.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
