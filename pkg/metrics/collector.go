// Package metrics exposes Prometheus instrumentation for the bot, the
// reconciliation engine, and the moderation queue.
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	botCommandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_commands_total",
			Help: "Total number of bot commands received labeled by command and status",
		},
		[]string{"command", "status"},
	)
	commandDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "command_duration_seconds",
			Help:    "Duration of bot commands in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"command"},
	)
	stateTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "state_transitions_total",
			Help: "Total number of conversation flow transitions",
		},
		[]string{"from", "to"},
	)
	reconcileOutcomesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reconcile_outcomes_total",
			Help: "Deposit reconciliation outcomes (approved, pending, rejected)",
		},
		[]string{"outcome"},
	)
	moderationApprovalsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "moderation_approvals_total",
			Help: "Pending deposits approved by an operator",
		},
	)
	referralBonusesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "referral_bonuses_total",
			Help: "Referral bonuses paid to inviters",
		},
	)
	usersCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "users_created_total",
			Help: "New accounts created on first contact",
		},
	)
	pendingDeposits = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pending_deposits",
			Help: "Current depth of the manual moderation queue",
		},
	)
	errorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "errors_total",
			Help: "Total number of errors split by type and severity",
		},
		[]string{"type", "severity"},
	)
)

// RecordCommand increments command counters and records duration.
func RecordCommand(command, status string, duration time.Duration) {
	if command == "" {
		command = "unknown"
	}
	if status == "" {
		status = "unknown"
	}

	botCommandsTotal.WithLabelValues(command, status).Inc()
	commandDurationSeconds.WithLabelValues(command).Observe(duration.Seconds())
}

// RecordStateTransition tracks conversation flow transitions.
func RecordStateTransition(from, to string) {
	if from == "" {
		from = "unknown"
	}
	if to == "" {
		to = "unknown"
	}

	stateTransitionsTotal.WithLabelValues(from, to).Inc()
}

// RecordReconcile counts one reconciliation attempt by outcome.
func RecordReconcile(outcome string) {
	if outcome == "" {
		outcome = "unknown"
	}

	reconcileOutcomesTotal.WithLabelValues(outcome).Inc()
}

// RecordModerationApproval counts one operator approval.
func RecordModerationApproval() {
	moderationApprovalsTotal.Inc()
}

// RecordReferralBonus counts one referral bonus payout.
func RecordReferralBonus() {
	referralBonusesTotal.Inc()
}

// RecordUserCreated counts one new account.
func RecordUserCreated() {
	usersCreatedTotal.Inc()
}

// RecordError increments error counters with metadata.
func RecordError(errType, severity string) {
	if errType == "" {
		errType = "unknown"
	}
	if severity == "" {
		severity = "unknown"
	}

	errorsTotal.WithLabelValues(errType, severity).Inc()
}

// SetPendingDeposits updates the moderation queue depth gauge.
func SetPendingDeposits(count int) {
	pendingDeposits.Set(float64(count))
}

// PendingCounter reports the moderation queue depth.
type PendingCounter interface {
	PendingCount(ctx context.Context) (int, error)
}

// QueueDepthCollector periodically samples the moderation queue depth into
// the pending_deposits gauge.
type QueueDepthCollector struct {
	counter  PendingCounter
	interval time.Duration
}

func NewQueueDepthCollector(counter PendingCounter) *QueueDepthCollector {
	return &QueueDepthCollector{counter: counter, interval: 30 * time.Second}
}

// Run polls until ctx is cancelled. Sampling errors are skipped; the gauge
// keeps its last value.
func (c *QueueDepthCollector) Run(ctx context.Context) {
	if c == nil || c.counter == nil {
		return
	}

	for {
		if count, err := c.counter.PendingCount(ctx); err == nil {
			SetPendingDeposits(count)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(c.interval):
		}
	}
}
