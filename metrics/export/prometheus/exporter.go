package prometheus

import (
	"fmt"
	"net/http"
	"strings"

	goBiometric "github.com/MrEthical07/goBiometric"
	"github.com/MrEthical07/goBiometric/metrics/export/internaldefs"
)

type metricsSource interface {
	MetricsSnapshot() goBiometric.MetricsSnapshot
	AuditDropped() uint64
}

// PrometheusExporter serves broker counters and latency histograms in the
// Prometheus text exposition format. Rendering reads one snapshot per
// scrape, so a page is internally consistent even while the broker runs.
type PrometheusExporter struct {
	source metricsSource
}

// NewPrometheusExporter creates a Prometheus exporter that reads from the given [goBiometric.Broker].
func NewPrometheusExporter(broker *goBiometric.Broker) *PrometheusExporter {
	return &PrometheusExporter{source: broker}
}

// NewPrometheusExporterFromSource creates a Prometheus exporter from a
// custom metrics source.
func NewPrometheusExporterFromSource(source metricsSource) *PrometheusExporter {
	return &PrometheusExporter{source: source}
}

// Handler returns an http.Handler that serves Prometheus metrics.
func (p *PrometheusExporter) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		_, _ = w.Write([]byte(p.Render()))
	})
}

// Render writes the current metrics in Prometheus text exposition format.
func (p *PrometheusExporter) Render() string {
	if p == nil || p.source == nil {
		return ""
	}

	snap := p.source.MetricsSnapshot()
	dropped := p.source.AuditDropped()
	if len(snap.Counters) == 0 && len(snap.Histograms) == 0 && dropped == 0 {
		return ""
	}

	var page strings.Builder
	page.Grow(8192)

	for _, def := range internaldefs.CounterDefs {
		family(&page, def.Name, def.Help, "counter")
		fmt.Fprintf(&page, "%s %d\n", def.Name, snap.Counters[def.ID])
	}

	for _, def := range internaldefs.HistogramDefs {
		family(&page, def.Name, def.Help, "histogram")
		raw := snap.Histograms[def.ID]
		var running uint64
		for i, le := range internaldefs.HistogramBounds {
			if i < len(raw) {
				running += raw[i]
			}
			fmt.Fprintf(&page, "%s_bucket{le=%q} %d\n", def.Name, le, running)
		}
		fmt.Fprintf(&page, "%s_count %d\n", def.Name, running)
		// The core histogram keeps per-bucket counts only; sum stays zero.
		fmt.Fprintf(&page, "%s_sum 0\n", def.Name)
	}

	family(&page, internaldefs.AuditDroppedName, internaldefs.AuditDroppedHelp, "counter")
	fmt.Fprintf(&page, "%s %d\n", internaldefs.AuditDroppedName, dropped)

	return page.String()
}

func family(page *strings.Builder, name, help, kind string) {
	help = strings.ReplaceAll(help, "\\", "\\\\")
	help = strings.ReplaceAll(help, "\n", "\\n")
	fmt.Fprintf(page, "# HELP %s %s\n# TYPE %s %s\n", name, help, name, kind)
}
