package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SurveyMetrics exposes counters/histograms for the survey loop.
type SurveyMetrics struct {
	answersTotal     *prometheus.CounterVec
	generationsTotal *prometheus.CounterVec
	reportsTotal     prometheus.Counter
	llmLatency       *prometheus.HistogramVec
}

func NewSurveyMetrics(reg prometheus.Registerer) *SurveyMetrics {
	m := &SurveyMetrics{
		answersTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sonar",
			Subsystem: "survey",
			Name:      "answers_total",
			Help:      "Answer submissions by question type and result",
		}, []string{"question_type", "result"}),
		generationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sonar",
			Subsystem: "survey",
			Name:      "generation_attempts_total",
			Help:      "Question generation attempts by result",
		}, []string{"result"}),
		reportsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sonar",
			Subsystem: "survey",
			Name:      "reports_generated_total",
			Help:      "Reports generated",
		}),
		llmLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "sonar",
			Subsystem: "llm",
			Name:      "request_duration_seconds",
			Help:      "Latency of model calls",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		}, []string{"operation"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.answersTotal, m.generationsTotal, m.reportsTotal, m.llmLatency)
	return m
}

func (m *SurveyMetrics) ObserveAnswer(questionType, result string) {
	if m == nil {
		return
	}
	m.answersTotal.WithLabelValues(questionType, result).Inc()
}

func (m *SurveyMetrics) ObserveGeneration(result string) {
	if m == nil {
		return
	}
	m.generationsTotal.WithLabelValues(result).Inc()
}

func (m *SurveyMetrics) ObserveReport() {
	if m == nil {
		return
	}
	m.reportsTotal.Inc()
}

func (m *SurveyMetrics) ObserveLLM(operation string, d time.Duration) {
	if m == nil {
		return
	}
	m.llmLatency.WithLabelValues(operation).Observe(d.Seconds())
}
