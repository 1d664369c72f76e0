package observability

import (
	"context"
	"strconv"

	"streambet/events"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors of the service
type Metrics struct {
	WagersPlaced       prometheus.Counter
	WageredAmount      prometheus.Counter
	MarketsSettled     *prometheus.CounterVec
	SettlementPaid     prometheus.Counter
	SettlementResidual prometheus.Counter
	BalanceChanges     *prometheus.CounterVec
	UsersCreated       prometheus.Counter
	ChatMessages       prometheus.Counter
	RateLimited        *prometheus.CounterVec
	EventsEmitted      *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them on reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		WagersPlaced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: MetricPrefix,
			Name:      "wagers_placed_total",
			Help:      "Wagers admitted",
		}),
		WageredAmount: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: MetricPrefix,
			Name:      "wagered_amount_total",
			Help:      "Sum of admitted stakes",
		}),
		MarketsSettled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: MetricPrefix,
			Name:      "markets_settled_total",
			Help:      "Markets settled, by whether the pool was refunded",
		}, []string{LabelRefunded}),
		SettlementPaid: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: MetricPrefix,
			Name:      "settlement_paid_total",
			Help:      "Sum credited to wallets by settlement",
		}),
		SettlementResidual: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: MetricPrefix,
			Name:      "settlement_remainder_total",
			Help:      "Rounding remainder retained by settlement",
		}),
		BalanceChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: MetricPrefix,
			Name:      "balance_changes_total",
			Help:      "Ledger writes by transaction type",
		}, []string{LabelType}),
		UsersCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: MetricPrefix,
			Name:      "users_created_total",
			Help:      "Users created",
		}),
		ChatMessages: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: MetricPrefix,
			Name:      "chat_messages_total",
			Help:      "Chat messages posted",
		}),
		RateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: MetricPrefix,
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the rate limiter, by bucket",
		}, []string{LabelBucket}),
		EventsEmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: MetricPrefix,
			Name:      "events_total",
			Help:      "Domain events emitted after commit",
		}, []string{LabelEventType}),
	}

	reg.MustRegister(
		m.WagersPlaced,
		m.WageredAmount,
		m.MarketsSettled,
		m.SettlementPaid,
		m.SettlementResidual,
		m.BalanceChanges,
		m.UsersCreated,
		m.ChatMessages,
		m.RateLimited,
		m.EventsEmitted,
	)
	return m
}

// ObserveRateLimited counts a rejection in the given bucket
func (m *Metrics) ObserveRateLimited(bucket string) {
	m.RateLimited.WithLabelValues(bucket).Inc()
}

// Subscribe updates the collectors from committed domain events
func (m *Metrics) Subscribe(bus *events.Bus) {
	bus.SubscribeAll(func(ctx context.Context, event events.Event) {
		m.EventsEmitted.WithLabelValues(string(event.Type())).Inc()

		switch e := event.(type) {
		case events.WagerPlacedEvent:
			m.WagersPlaced.Inc()
			m.WageredAmount.Add(float64(e.Amount))
		case events.MarketSettledEvent:
			m.MarketsSettled.WithLabelValues(strconv.FormatBool(e.Refunded)).Inc()
			m.SettlementPaid.Add(float64(e.TotalPaid))
			m.SettlementResidual.Add(float64(e.Remainder))
		case events.BalanceChangeEvent:
			m.BalanceChanges.WithLabelValues(string(e.TransactionType)).Inc()
		case events.UserCreatedEvent:
			m.UsersCreated.Inc()
		case events.ChatMessageCreatedEvent:
			m.ChatMessages.Inc()
		}
	})
}
