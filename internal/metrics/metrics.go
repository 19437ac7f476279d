// Package metrics доменные метрики Prometheus: переходы сделок, соединения и присутствие.
// Метки ограничены статусами и именами событий, поэтому кардинальность фиксирована.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	TransactionTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "escrow_transaction_transitions_total",
			Help: "Успешные переходы статусов сделок.",
		},
		[]string{"from", "to", "event"},
	)

	TransitionConflicts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "escrow_transition_conflicts_total",
			Help: "Переходы, отклонённые из-за параллельного изменения статуса.",
		},
		[]string{"event"},
	)

	SweeperRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "escrow_sweeper_transactions_total",
			Help: "Сделки, обработанные фоновым обходчиком.",
		},
		[]string{"action"},
	)

	WebsocketConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "escrow_ws_connections",
			Help: "Открытые websocket-соединения.",
		},
	)

	OnlineUsers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "escrow_online_users",
			Help: "Пользователи хотя бы с одним открытым соединением.",
		},
	)

	ChatEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "escrow_chat_events_total",
			Help: "Входящие события чата по типу и результату.",
		},
		[]string{"event", "result"},
	)
)

func init() {
	prometheus.MustRegister(
		TransactionTransitions,
		TransitionConflicts,
		SweeperRuns,
		WebsocketConnections,
		OnlineUsers,
		ChatEvents,
	)
}
