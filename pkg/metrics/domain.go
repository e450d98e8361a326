package metrics

import "github.com/prometheus/client_golang/prometheus"

// DomainMetrics counts business events worth alerting on.
type DomainMetrics struct {
	formulaDecisions *prometheus.CounterVec
	stockAdjustments *prometheus.CounterVec
}

// NewDomainMetrics registers the domain counters on the provided registerer.
func NewDomainMetrics(reg prometheus.Registerer) *DomainMetrics {
	if reg == nil {
		return &DomainMetrics{}
	}
	decisions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "formula_request_decisions_total",
		Help: "Pending formula requests resolved, by decision.",
	}, []string{"decision"})
	adjustments := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stock_adjustments_total",
		Help: "Stock quantity changes, by source.",
	}, []string{"source"})
	reg.MustRegister(decisions, adjustments)
	return &DomainMetrics{formulaDecisions: decisions, stockAdjustments: adjustments}
}

// IncFormulaDecision counts an approve or reject.
func (m *DomainMetrics) IncFormulaDecision(decision string) {
	if m == nil || m.formulaDecisions == nil {
		return
	}
	m.formulaDecisions.WithLabelValues(normalizeLabel(decision)).Inc()
}

// IncStockAdjustment counts a stock change from automation, maturation or manual edits.
func (m *DomainMetrics) IncStockAdjustment(source string) {
	if m == nil || m.stockAdjustments == nil {
		return
	}
	m.stockAdjustments.WithLabelValues(normalizeLabel(source)).Inc()
}
