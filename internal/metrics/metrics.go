package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the service counters. A nil *Metrics is valid and records
// nothing, which keeps tests and CLI commands free of registry plumbing.
type Metrics struct {
	itemsCreated *prometheus.CounterVec
	itemsDeleted *prometheus.CounterVec
	resolutions  *prometheus.CounterVec
	adminDenied  *prometheus.CounterVec
	botUpdates   *prometheus.CounterVec
	imports      *prometheus.CounterVec
}

// New registers the counters on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		itemsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kamix",
			Name:      "items_created_total",
			Help:      "Hosted items created, by kind.",
		}, []string{"kind"}),
		itemsDeleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kamix",
			Name:      "items_deleted_total",
			Help:      "Hosted items deleted, by kind.",
		}, []string{"kind"}),
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kamix",
			Name:      "resolutions_total",
			Help:      "Shared link resolutions, by mode and outcome.",
		}, []string{"mode", "outcome"}),
		adminDenied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kamix",
			Name:      "admin_denied_total",
			Help:      "Rejected admin checks, by channel.",
		}, []string{"channel"}),
		botUpdates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kamix",
			Name:      "bot_updates_total",
			Help:      "Telegram updates handled, by action.",
		}, []string{"action"}),
		imports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kamix",
			Name:      "article_imports_total",
			Help:      "Queued article imports processed, by outcome.",
		}, []string{"outcome"}),
	}
	reg.MustRegister(m.itemsCreated, m.itemsDeleted, m.resolutions, m.adminDenied, m.botUpdates, m.imports)
	return m
}

func (m *Metrics) ItemCreated(kind string) {
	if m != nil {
		m.itemsCreated.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) ItemDeleted(kind string) {
	if m != nil {
		m.itemsDeleted.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) Resolved(mode, outcome string) {
	if m != nil {
		m.resolutions.WithLabelValues(mode, outcome).Inc()
	}
}

func (m *Metrics) AdminDenied(channel string) {
	if m != nil {
		m.adminDenied.WithLabelValues(channel).Inc()
	}
}

func (m *Metrics) BotUpdate(action string) {
	if m != nil {
		m.botUpdates.WithLabelValues(action).Inc()
	}
}

func (m *Metrics) Imported(outcome string) {
	if m != nil {
		m.imports.WithLabelValues(outcome).Inc()
	}
}
