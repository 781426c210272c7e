package sim

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/stat"
)

// Metric names recorded per node by the kernel and aggregated across
// replications. Time-averaged metrics exclude the warmup period.
const (
	MetricArrivals        = "arrivals"          // customers arriving at the node
	MetricMeanWait        = "mean_wait"         // mean time in queue before service
	MetricMeanService     = "mean_service"      // mean service time of served customers
	MetricUtilization     = "utilization"       // time-averaged busy fraction of the server bank
	MetricMeanQueueLength = "mean_queue_length" // time-averaged number waiting
	MetricThroughput      = "throughput"        // departures per unit simulated time
)

// metricOrder fixes row order in rendered tables.
var metricOrder = []string{
	MetricArrivals,
	MetricMeanWait,
	MetricMeanService,
	MetricUtilization,
	MetricMeanQueueLength,
	MetricThroughput,
}

// friendlyMetricNames maps internal metric names to report labels.
var friendlyMetricNames = map[string]string{
	MetricArrivals:        "Mean arrivals",
	MetricMeanWait:        "Mean waiting time",
	MetricMeanService:     "Mean service time",
	MetricUtilization:     "Mean utilisation",
	MetricMeanQueueLength: "Mean queue length",
	MetricThroughput:      "Mean throughput",
}

// MetricSummary is the cross-replication aggregate of one metric at one
// node. StdErr is nil when fewer than two replications observed the metric
// (the sample standard deviation is undefined for a single sample).
type MetricSummary struct {
	Mean   float64
	Count  int
	StdErr *float64
}

// SummaryReport is the only artifact that outlives a pipeline call:
// per-node, per-metric aggregates plus replication accounting. Immutable
// once produced.
type SummaryReport struct {
	Nodes        map[string]map[string]MetricSummary
	Replications int // successful replications aggregated
	Failures     int // replications excluded due to kernel errors
}

// Aggregate computes per-node, per-metric sample means and dispersion
// across replication observations. Aggregation is order-independent up to
// floating-point summation order: shuffling the input permutes each
// metric's sample multiset but not its statistics.
func Aggregate(observations []Observation) *SummaryReport {
	samples := make(map[string]map[string][]float64)
	for _, obs := range observations {
		for nodeID, metrics := range obs.Metrics {
			if samples[nodeID] == nil {
				samples[nodeID] = make(map[string][]float64)
			}
			for name, value := range metrics {
				samples[nodeID][name] = append(samples[nodeID][name], value)
			}
		}
	}

	report := &SummaryReport{
		Nodes:        make(map[string]map[string]MetricSummary, len(samples)),
		Replications: len(observations),
	}
	for nodeID, metrics := range samples {
		agg := make(map[string]MetricSummary, len(metrics))
		for name, values := range metrics {
			// Sort before summing so any permutation of the input
			// produces bit-identical statistics.
			sort.Float64s(values)
			summary := MetricSummary{
				Mean:  stat.Mean(values, nil),
				Count: len(values),
			}
			if len(values) >= 2 {
				se := stat.StdDev(values, nil) / math.Sqrt(float64(len(values)))
				summary.StdErr = &se
			}
			agg[name] = summary
		}
		report.Nodes[nodeID] = agg
	}
	return report
}

// NodeIDsSorted returns the report's node identifiers in lexical order.
func (r *SummaryReport) NodeIDsSorted() []string {
	ids := make([]string, 0, len(r.Nodes))
	for id := range r.Nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Table renders the report as a transposed text table: metrics as rows,
// nodes as columns. nodeOrder controls column order; nil means lexical.
func (r *SummaryReport) Table(nodeOrder []string) string {
	if nodeOrder == nil {
		nodeOrder = r.NodeIDsSorted()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%-22s", "Metric"))
	for _, id := range nodeOrder {
		sb.WriteString(fmt.Sprintf(" %14s", id))
	}
	sb.WriteString("\n")

	for _, metric := range metricOrder {
		sb.WriteString(fmt.Sprintf("%-22s", friendlyMetricNames[metric]))
		for _, id := range nodeOrder {
			if summary, ok := r.Nodes[id][metric]; ok {
				sb.WriteString(fmt.Sprintf(" %14.4f", summary.Mean))
			} else {
				sb.WriteString(fmt.Sprintf(" %14s", "-"))
			}
		}
		sb.WriteString("\n")
	}

	sb.WriteString(fmt.Sprintf("\nReplications: %d successful, %d failed\n", r.Replications, r.Failures))
	return sb.String()
}
