package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "quick_form"

// Submission outcomes, used as the result label.
const (
	Accepted = "accepted"
	Invalid  = "invalid"
	Inactive = "inactive"
)

// Validation call sites, used as the site label.
const (
	Advisory      = "advisory"
	Authoritative = "authoritative"
)

type Metrics struct {
	FormsCreatedTotal prometheus.Counter
	SubmissionsTotal  *prometheus.CounterVec
	ValidationsTotal  *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// New creates and registers all metrics with the default registry
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates and registers all metrics with a custom registry
func NewWithRegistry(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)

	gatherer, ok := registerer.(prometheus.Gatherer)
	if !ok {
		gatherer = prometheus.DefaultGatherer
	}

	return &Metrics{
		gatherer: gatherer,

		FormsCreatedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "forms_created_total",
				Help:      "Total number of forms created",
			},
		),
		SubmissionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "submissions_total",
				Help:      "Total number of submissions received, by outcome",
			},
			[]string{"result"},
		),
		ValidationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "validations_total",
				Help:      "Total number of answer validations, by call site and outcome",
			},
			[]string{"site", "valid"},
		),
	}
}

func (m *Metrics) IncrementFormCreated() {
	m.FormsCreatedTotal.Inc()
}

func (m *Metrics) IncrementSubmission(result string) {
	m.SubmissionsTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveValidation(site string, valid bool) {
	m.ValidationsTotal.WithLabelValues(site, strconv.FormatBool(valid)).Inc()
}

// Handler exposes the metrics of the registry they were created with.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
