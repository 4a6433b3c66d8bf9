// Package metrics exposes Prometheus collectors for ledger traffic.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"cardgame/go-client/internal/rpckit"
)

const namespace = "cardgame"

const OutcomeOK = "ok"

type Collector struct {
	transactions *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	queries      *prometheus.CounterVec
	sessions     *prometheus.CounterVec
}

// New registers the collectors on reg. A nil reg keeps them unregistered,
// which is what tests and one-shot CLI runs use.
func New(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		transactions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transactions_total",
			Help:      "Dispatched transactions by action and outcome.",
		}, []string{"action", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "transaction_duration_seconds",
			Help:      "Time from dispatch to ledger acceptance or failure.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 8),
		}, []string{"action"}),
		queries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "table_queries_total",
			Help:      "Table reads by table and outcome.",
		}, []string{"table", "outcome"}),
		sessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_transitions_total",
			Help:      "Credential store transitions (login, rollback, logout).",
		}, []string{"event"}),
	}
	if reg == nil {
		return c, nil
	}
	for _, col := range []prometheus.Collector{c.transactions, c.duration, c.queries, c.sessions} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Outcome maps an error to its label value.
func Outcome(err error) string {
	if err == nil {
		return OutcomeOK
	}
	return rpckit.KindOf(err).String()
}

func (c *Collector) ObserveTransaction(action string, started time.Time, err error) {
	if c == nil {
		return
	}
	c.transactions.WithLabelValues(action, Outcome(err)).Inc()
	c.duration.WithLabelValues(action).Observe(time.Since(started).Seconds())
}

func (c *Collector) ObserveQuery(table, outcome string) {
	if c == nil {
		return
	}
	c.queries.WithLabelValues(table, outcome).Inc()
}

func (c *Collector) ObserveSession(event string) {
	if c == nil {
		return
	}
	c.sessions.WithLabelValues(event).Inc()
}
