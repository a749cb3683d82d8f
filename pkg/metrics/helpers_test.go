package metrics

import (
	"fmt"

	dto "github.com/prometheus/client_model/go"
)

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

// findSample returns the first sample of name whose labels include every
// key/value pair in want (given as alternating key, value).
func findSample(mfs []*dto.MetricFamily, name string, want ...string) (*dto.Metric, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return nil, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		labels := map[string]string{}
		for _, lp := range metric.GetLabel() {
			labels[lp.GetName()] = lp.GetValue()
		}
		matched := true
		for i := 0; i+1 < len(want); i += 2 {
			if labels[want[i]] != want[i+1] {
				matched = false
				break
			}
		}
		if matched {
			return metric, nil
		}
	}
	return nil, fmt.Errorf("metric %q has no sample with labels %v", name, want)
}

func fetchCounterValue(mfs []*dto.MetricFamily, name string, labels ...string) (float64, error) {
	sample, err := findSample(mfs, name, labels...)
	if err != nil {
		return 0, err
	}
	return sample.GetCounter().GetValue(), nil
}
