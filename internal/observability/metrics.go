package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for configuration and refinement activity.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry        *prometheus.Registry
	CatalogSyncs    *prometheus.CounterVec
	CatalogSize     prometheus.Gauge
	Verifications   *prometheus.CounterVec
	Mutations       *prometheus.CounterVec
	ModelSelections *prometheus.CounterVec
	Completions     *prometheus.CounterVec
	Tokens          *prometheus.CounterVec
}

// NewMetrics constructs a registry with all collectors registered
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()

	syncs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "modelkombat_catalog_syncs_total",
		Help: "Catalog synchronizations by result",
	}, []string{"result"})

	size := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "modelkombat_catalog_models",
		Help: "Models in the most recently synced catalog",
	})

	verifications := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "modelkombat_credential_verifications_total",
		Help: "Credential verifications by result",
	}, []string{"result"})

	mutations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "modelkombat_config_mutations_total",
		Help: "Configuration mutations by operation and error kind",
	}, []string{"operation", "result"})

	selections := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "modelkombat_model_selections_total",
		Help: "Models selected for refinement rounds by role",
	}, []string{"role", "model"})

	completions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "modelkombat_completions_total",
		Help: "Chat completions issued by refinement rounds",
	}, []string{"model", "result"})

	tokens := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "modelkombat_tokens_total",
		Help: "Tokens consumed by refinement rounds",
	}, []string{"model", "kind"})

	reg.MustRegister(syncs, size, verifications, mutations, selections, completions, tokens)

	return &Metrics{
		registry:        reg,
		CatalogSyncs:    syncs,
		CatalogSize:     size,
		Verifications:   verifications,
		Mutations:       mutations,
		ModelSelections: selections,
		Completions:     completions,
		Tokens:          tokens,
	}
}

// Registry returns the underlying Prometheus registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordCatalogSync counts a sync; size is only recorded on success
func (m *Metrics) RecordCatalogSync(ok bool, size int) {
	if m == nil {
		return
	}
	if !ok {
		m.CatalogSyncs.WithLabelValues("failure").Inc()
		return
	}
	m.CatalogSyncs.WithLabelValues("success").Inc()
	m.CatalogSize.Set(float64(size))
}

// RecordVerification counts a credential verification
func (m *Metrics) RecordVerification(ok bool) {
	if m == nil {
		return
	}
	m.Verifications.WithLabelValues(result(ok)).Inc()
}

// RecordMutation counts a configuration mutation. kind is the error kind, "" on success.
func (m *Metrics) RecordMutation(operation, kind string) {
	if m == nil {
		return
	}
	if kind == "" {
		kind = "success"
	}
	m.Mutations.WithLabelValues(operation, kind).Inc()
}

// RecordModelSelection counts a model chosen for a role
func (m *Metrics) RecordModelSelection(role, model string) {
	if m == nil {
		return
	}
	if role == "" {
		role = "unknown"
	}
	if model == "" {
		model = "unknown"
	}
	m.ModelSelections.WithLabelValues(role, model).Inc()
}

// RecordCompletion counts one chat completion and its token usage
func (m *Metrics) RecordCompletion(model string, ok bool, promptTokens, completionTokens int) {
	if m == nil {
		return
	}
	m.Completions.WithLabelValues(model, result(ok)).Inc()
	if !ok {
		return
	}
	m.Tokens.WithLabelValues(model, "prompt").Add(float64(promptTokens))
	m.Tokens.WithLabelValues(model, "completion").Add(float64(completionTokens))
}

func result(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}
