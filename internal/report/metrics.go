package report

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry returns a Prometheus registry holding the coverage gauges
// of doc.
func Registry(doc *Document) (*prometheus.Registry, error) {
	reg := prometheus.NewRegistry()

	total := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "apicov_conditions_total",
		Help: "Number of conditions derived from the contract.",
	})
	covered := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "apicov_conditions_covered",
		Help: "Number of conditions covered by captures.",
	})
	missed := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "apicov_missed_operations",
		Help: "Captured operations absent from the contract.",
	})
	failed := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "apicov_failed_captures",
		Help: "Capture sources that could not be read.",
	})
	elapsed := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "apicov_generation_seconds",
		Help: "Wall-clock duration of the coverage run.",
	})
	ratio := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "apicov_operation_coverage_ratio",
		Help: "Covered share of conditions per operation, 0 to 1.",
	}, []string{"operation"})

	for _, c := range []prometheus.Collector{total, covered, missed, failed, elapsed, ratio} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("registering metric: %w", err)
		}
	}

	total.Set(float64(doc.Summary.Conditions))
	covered.Set(float64(doc.Summary.CoveredConditions))
	missed.Set(float64(len(doc.Missed)))
	failed.Set(float64(doc.GenerationStatistics.FailedFileCount))
	elapsed.Set(doc.GenerationStatistics.GenerationTime.Seconds())
	for _, op := range doc.Operations {
		ratio.WithLabelValues(op.Key()).Set(op.Percentage / 100)
	}
	return reg, nil
}

// WriteMetrics writes doc's gauges to path in the Prometheus text
// exposition format, for the node_exporter textfile collector.
func WriteMetrics(path string, doc *Document) error {
	reg, err := Registry(doc)
	if err != nil {
		return err
	}
	if err := prometheus.WriteToTextfile(path, reg); err != nil {
		return fmt.Errorf("writing metrics %s: %w", path, err)
	}
	return nil
}
