package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics содержит счётчики рассылки и планировщика.
type Metrics struct {
	SendsTotal      *prometheus.CounterVec // result: success, failed, throttled
	ThrottleSeconds prometheus.Counter
	DeliveryTime    prometheus.Histogram

	SweepsTotal     prometheus.Counter
	SweepErrors     prometheus.Counter
	AccountPanics   prometheus.Counter
	AccountsActive  prometheus.Gauge
	SweepDuration   prometheus.Histogram
	SessionsActive  prometheus.Gauge
	SessionFailures prometheus.Counter
}

// New регистрирует метрики в reg. В main передаётся prometheus.DefaultRegisterer, в тестах используется отдельный реестр.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		SendsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "autosender_sends_total",
				Help: "Попытки отправки сообщений в группы по результату",
			},
			[]string{"result"},
		),
		ThrottleSeconds: f.NewCounter(prometheus.CounterOpts{
			Name: "autosender_throttle_wait_seconds_total",
			Help: "Суммарное ожидание по FLOOD_WAIT",
		}),
		DeliveryTime: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "autosender_delivery_duration_seconds",
			Help:    "Длительность рассылки одного сообщения по всем группам",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}),
		SweepsTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "autosender_sweeps_total",
			Help: "Проходы планировщика по аккаунтам",
		}),
		SweepErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "autosender_sweep_errors_total",
			Help: "Сбои прохода планировщика",
		}),
		AccountPanics: f.NewCounter(prometheus.CounterOpts{
			Name: "autosender_account_panics_total",
			Help: "Паники при обработке аккаунта",
		}),
		AccountsActive: f.NewGauge(prometheus.GaugeOpts{
			Name: "autosender_accounts_in_flight",
			Help: "Аккаунты, которые обрабатываются прямо сейчас",
		}),
		SweepDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "autosender_sweep_duration_seconds",
			Help:    "Время запуска прохода по всем аккаунтам",
			Buckets: prometheus.DefBuckets,
		}),
		SessionsActive: f.NewGauge(prometheus.GaugeOpts{
			Name: "autosender_sessions_active",
			Help: "Живые сессии Telegram в пуле",
		}),
		SessionFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "autosender_session_failures_total",
			Help: "Неудачные попытки поднять сессию",
		}),
	}
}
