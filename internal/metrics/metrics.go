// Package metrics 暴露分析服务的 Prometheus 指标
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"resume-screening-go/internal/types"
)

const namespace = "resume_screening"

// Metrics 分析服务指标集合
type Metrics struct {
	registry *prometheus.Registry

	analysisTotal    *prometheus.CounterVec
	analysisDuration *prometheus.HistogramVec
	enrichmentTotal  *prometheus.CounterVec
	classifierFaults prometheus.Counter
	modelTrained     prometheus.Gauge
	modelClassifiers prometheus.Gauge
	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
	batchItems       *prometheus.CounterVec
}

// New 创建并注册所有指标
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		analysisTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "analysis",
				Name:      "total",
				Help:      "Total analyzed documents by extraction method.",
			},
			[]string{"method"},
		),
		analysisDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "analysis",
				Name:      "duration_seconds",
				Help:      "Analysis duration in seconds by extraction method.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method"},
		),
		enrichmentTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "enrichment",
				Name:      "total",
				Help:      "External AI enrichment attempts by outcome.",
			},
			[]string{"outcome"},
		),
		classifierFaults: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "classifier",
				Name:      "scoring_faults_total",
				Help:      "Per-skill classifier scoring faults replaced by the substring fallback.",
			},
		),
		modelTrained: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "model",
				Name:      "trained",
				Help:      "1 when a trained statistical model is published.",
			},
		),
		modelClassifiers: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "model",
				Name:      "classifiers",
				Help:      "Number of retained per-skill classifiers.",
			},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "HTTP requests by method, route and status.",
			},
			[]string{"method", "route", "status"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request duration in seconds by method and route.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		batchItems: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "batch",
				Name:      "items_total",
				Help:      "Batch items processed by result.",
			},
			[]string{"result"},
		),
	}

	registry.MustRegister(
		m.analysisTotal, m.analysisDuration, m.enrichmentTotal, m.classifierFaults,
		m.modelTrained, m.modelClassifiers, m.httpRequests, m.httpDuration, m.batchItems,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler 返回 /metrics 处理器
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry 指标注册表
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) ObserveAnalysis(method types.AnalysisMethod, elapsed time.Duration) {
	m.analysisTotal.WithLabelValues(string(method)).Inc()
	m.analysisDuration.WithLabelValues(string(method)).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveEnrichment(outcome string) {
	m.enrichmentTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) AddClassifierFaults(n int) {
	if n > 0 {
		m.classifierFaults.Add(float64(n))
	}
}

func (m *Metrics) SetModelState(trained bool, classifiers int) {
	if trained {
		m.modelTrained.Set(1)
	} else {
		m.modelTrained.Set(0)
	}
	m.modelClassifiers.Set(float64(classifiers))
}

// ObserveBatch 记录批量结果中的成功与失败条数
func (m *Metrics) ObserveBatch(succeeded, failed int) {
	m.batchItems.WithLabelValues("success").Add(float64(succeeded))
	m.batchItems.WithLabelValues("error").Add(float64(failed))
}

// Middleware Hertz 请求指标中间件，route 使用注册时的路径模板
func (m *Metrics) Middleware() app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		start := time.Now()
		c.Next(ctx)

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := string(c.Method())
		m.httpRequests.WithLabelValues(method, route, strconv.Itoa(c.Response.StatusCode())).Inc()
		m.httpDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}
