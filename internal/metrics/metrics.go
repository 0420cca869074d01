// Package metrics регистрирует счётчики Prometheus жизненного цикла подписок.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PaymentsConfirmed — платежи, проведённые через сверку в success.
	PaymentsConfirmed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "club_payments_confirmed_total",
		Help: "Number of payments reconciled into success status.",
	})

	// PaymentsFailed — платежи, завершившиеся отказом.
	PaymentsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "club_payments_failed_total",
		Help: "Number of payments marked as failed.",
	})

	// RemindersSent — отправленные напоминания об истечении подписки.
	RemindersSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "club_reminders_sent_total",
		Help: "Number of expiration reminders sent to users.",
	})

	// SubscriptionsRevoked — подписки, погашенные планировщиком.
	SubscriptionsRevoked = promauto.NewCounter(prometheus.CounterOpts{
		Name: "club_subscriptions_revoked_total",
		Help: "Number of expired subscriptions revoked by the sweeper.",
	})

	// ChannelGrantFailures — неудачные попытки выдать доступ в платный канал
	// после успешного платежа.
	ChannelGrantFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "club_channel_grant_failures_total",
		Help: "Number of failed paid channel grants after successful payment.",
	})

	// ChannelRevokeFailures — неудачные попытки исключить пользователя
	// из платного канала.
	ChannelRevokeFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "club_channel_revoke_failures_total",
		Help: "Number of failed paid channel removals for expired subscriptions.",
	})
)
