// Package xrayprom exports the outcomes of the traced calls as Prometheus metrics.
//
//	p := xrayprom.NewPlugin(prometheus.DefaultRegisterer)
//	xray.AddPlugin(p)
//
// Only sampled traces are observed, because plugins see a trace just before it is emitted.
package xrayprom

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/shogo82148/xray-httpclient-go/xray"
	"github.com/shogo82148/xray-httpclient-go/xray/schema"
)

// Plugin is a [xray.Plugin] that counts the HTTP calls recorded in the traces.
//
// Metrics:
//   - xray_http_calls_total: the number of the calls by namespace and outcome
//   - xray_http_call_duration_seconds: the duration of the calls by namespace
type Plugin struct {
	calls    *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

var _ xray.Plugin = (*Plugin)(nil)

// NewPlugin creates and registers the metrics with reg.
// A nil reg skips the registration.
func NewPlugin(reg prometheus.Registerer) *Plugin {
	p := &Plugin{
		calls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "xray",
				Subsystem: "http",
				Name:      "calls_total",
				Help:      "Total number of the traced HTTP calls",
			},
			[]string{"namespace", "outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "xray",
				Subsystem: "http",
				Name:      "call_duration_seconds",
				Help:      "Duration of the traced HTTP calls in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"namespace"},
		),
	}
	if reg != nil {
		reg.MustRegister(p.calls, p.duration)
	}
	return p
}

// HandleSegment implements [xray.Plugin].
func (p *Plugin) HandleSegment(seg *xray.Segment, doc *schema.Segment) {
	for _, sub := range doc.Subsegments {
		p.walk(sub)
	}
}

func (p *Plugin) walk(doc *schema.Segment) {
	if doc.HTTP != nil && !doc.InProgress {
		namespace := doc.Namespace
		if namespace == "" {
			namespace = "local"
		}
		p.calls.WithLabelValues(namespace, outcome(doc).String()).Inc()
		if d := doc.EndTime - doc.StartTime; d >= 0 {
			p.duration.WithLabelValues(namespace).Observe(d)
		}
	}
	for _, sub := range doc.Subsegments {
		p.walk(sub)
	}
}

func outcome(doc *schema.Segment) xray.Outcome {
	switch {
	case doc.Fault:
		return xray.OutcomeFault
	case doc.Throttle:
		return xray.OutcomeThrottle
	case doc.Error:
		return xray.OutcomeError
	}
	return xray.OutcomeOK
}
