package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "ngrelay"

var (
	userMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "user_messages_total",
			Help:      "User messages handled by the relay, by outcome",
		},
		[]string{"outcome"},
	)

	operatorRepliesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operator_replies_total",
			Help:      "Operator replies handled by the relay, by outcome",
		},
		[]string{"outcome"},
	)

	adminCommandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "admin_commands_total",
			Help:      "Admin commands executed, by command",
		},
		[]string{"command"},
	)

	eventDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "event_duration_seconds",
			Help:      "Time spent handling a single relay event",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	registerOnce sync.Once
	registerErr  error
)

// RegisterMetrics adds the relay collectors to reg. Repeated calls are no-ops.
func RegisterMetrics(reg prometheus.Registerer) error {
	registerOnce.Do(func() {
		for _, c := range []prometheus.Collector{
			userMessagesTotal,
			operatorRepliesTotal,
			adminCommandsTotal,
			eventDuration,
		} {
			if err := reg.Register(c); err != nil {
				registerErr = err
				return
			}
		}
	})
	return registerErr
}

func RecordUserMessage(outcome string) {
	userMessagesTotal.WithLabelValues(outcome).Inc()
}

func RecordOperatorReply(outcome string) {
	operatorRepliesTotal.WithLabelValues(outcome).Inc()
}

func RecordAdminCommand(command string) {
	adminCommandsTotal.WithLabelValues(command).Inc()
}

// StartEvent returns a function that records how long the event of the given kind took.
func StartEvent(kind string) func() {
	start := time.Now()
	return func() {
		eventDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	}
}
