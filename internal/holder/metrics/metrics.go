package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	CredentialsStored   prometheus.Counter
	CredentialsDeleted  prometheus.Counter
	FetchRounds         prometheus.Counter
	PresentationMatches prometheus.Histogram
}

func New() *Metrics {
	return &Metrics{
		CredentialsStored: promauto.NewCounter(prometheus.CounterOpts{
			Name: "holdfast_credentials_stored_total",
			Help: "Total number of credentials stored in the wallet",
		}),
		CredentialsDeleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "holdfast_credentials_deleted_total",
			Help: "Total number of credentials deleted from the wallet",
		}),
		FetchRounds: promauto.NewCounter(prometheus.CounterOpts{
			Name: "holdfast_search_fetch_rounds_total",
			Help: "Total number of chunked search fetch round trips",
		}),
		PresentationMatches: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "holdfast_presentation_matches",
			Help:    "Distinct credentials matched per presentation request search",
			Buckets: []float64{0, 1, 2, 5, 10, 25, 50, 100},
		}),
	}
}

func (m *Metrics) IncrementCredentialsStored() {
	m.CredentialsStored.Inc()
}

func (m *Metrics) IncrementCredentialsDeleted() {
	m.CredentialsDeleted.Inc()
}

func (m *Metrics) IncrementFetchRounds() {
	m.FetchRounds.Inc()
}

func (m *Metrics) ObservePresentationMatches(n int) {
	m.PresentationMatches.Observe(float64(n))
}
