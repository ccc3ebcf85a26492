// Package metrics provides Prometheus instrumentation for the connection
// runtime. A nil *Collector is a safe no-op, so the runtime can be used
// unmetered.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector gathers connection and transaction lifecycle metrics.
type Collector struct {
	connectionsOpened      prometheus.Counter
	connectionsClosed      prometheus.Counter
	transactionsBegun      prometheus.Counter
	transactionsJoined     prometheus.Counter
	transactionsCommitted  prometheus.Counter
	transactionsRolledBack prometheus.Counter
	statementDuration      prometheus.Histogram
}

// NewCollector registers the runtime metrics on the given registerer under
// the given namespace.
func NewCollector(namespace string, reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)
	return &Collector{
		connectionsOpened: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "db_connections_opened_total",
			Help:      "Number of physical database connections opened.",
		}),
		connectionsClosed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "db_connections_closed_total",
			Help:      "Number of physical database connections closed.",
		}),
		transactionsBegun: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "db_transactions_begun_total",
			Help:      "Number of outermost transaction scopes entered.",
		}),
		transactionsJoined: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "db_transactions_joined_total",
			Help:      "Number of nested scopes that joined a running transaction.",
		}),
		transactionsCommitted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "db_transactions_committed_total",
			Help:      "Number of transactions committed.",
		}),
		transactionsRolledBack: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "db_transactions_rolled_back_total",
			Help:      "Number of transactions rolled back.",
		}),
		statementDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "db_statement_duration_seconds",
			Help:      "SQL statement execution time.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

// ConnectionOpened records a physical connect.
func (c *Collector) ConnectionOpened() {
	if c == nil {
		return
	}
	c.connectionsOpened.Inc()
}

// ConnectionClosed records a physical close.
func (c *Collector) ConnectionClosed() {
	if c == nil {
		return
	}
	c.connectionsClosed.Inc()
}

// TransactionBegun records an outermost transaction entry.
func (c *Collector) TransactionBegun() {
	if c == nil {
		return
	}
	c.transactionsBegun.Inc()
}

// TransactionJoined records a nested scope joining the running transaction.
func (c *Collector) TransactionJoined() {
	if c == nil {
		return
	}
	c.transactionsJoined.Inc()
}

// TransactionCommitted records a successful commit.
func (c *Collector) TransactionCommitted() {
	if c == nil {
		return
	}
	c.transactionsCommitted.Inc()
}

// TransactionRolledBack records a successful rollback.
func (c *Collector) TransactionRolledBack() {
	if c == nil {
		return
	}
	c.transactionsRolledBack.Inc()
}

// ObserveStatement records the execution time of one SQL statement.
func (c *Collector) ObserveStatement(elapsed time.Duration) {
	if c == nil {
		return
	}
	c.statementDuration.Observe(elapsed.Seconds())
}
