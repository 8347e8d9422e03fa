package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	RecordsCreated prometheus.Counter
	RecordsUpdated prometheus.Counter
	SavesFailed    prometheus.Counter
	WebhooksSent   *prometheus.CounterVec
}

func New() *Metrics {
	return &Metrics{
		RecordsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "holdfast_records_created_total",
			Help: "Total number of records inserted",
		}),
		RecordsUpdated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "holdfast_records_updated_total",
			Help: "Total number of records rewritten in place",
		}),
		SavesFailed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "holdfast_record_saves_failed_total",
			Help: "Total number of record saves that raised from the backing store",
		}),
		WebhooksSent: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "holdfast_record_webhooks_sent_total",
			Help: "Total number of state-transition webhooks emitted",
		}, []string{"topic"}),
	}
}

func (m *Metrics) IncrementSaved(newRecord bool) {
	if newRecord {
		m.RecordsCreated.Inc()
		return
	}
	m.RecordsUpdated.Inc()
}

func (m *Metrics) IncrementSaveFailed() {
	m.SavesFailed.Inc()
}

func (m *Metrics) IncrementWebhookSent(topic string) {
	m.WebhooksSent.WithLabelValues(topic).Inc()
}
