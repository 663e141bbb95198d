package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// getMetricValue retrieves the current float64 value of a gauge or counter.
// Returns an error if the metric cannot be written.
func getMetricValue(metric prometheus.Collector) (float64, error) {
	c := make(chan prometheus.Metric, 1)
	metric.Collect(c)
	m := <-c

	pb := &dto.Metric{}
	if err := m.Write(pb); err != nil {
		return 0, err
	}

	switch {
	case pb.Gauge != nil:
		return pb.Gauge.GetValue(), nil
	case pb.Counter != nil:
		return pb.Counter.GetValue(), nil
	case pb.Histogram != nil:
		return float64(pb.Histogram.GetSampleCount()), nil
	}
	return 0, nil
}
