package utils

import (
	"fmt"
	"strings"
)

type metricEntry struct {
	metricName  string
	duration_ms int64
}

// PerfMetrics accumulates named lap timings for a single operation and
// renders them as one compact string for the completion log line.
type PerfMetrics struct {
	perfTimer *PerfTimer
	metrics   []metricEntry
}

func NewPerfMetrics() *PerfMetrics {
	return &PerfMetrics{
		perfTimer: NewPerfTimer(),
		metrics:   []metricEntry{},
	}
}

func (pm *PerfMetrics) SetMetric(metricName string, duration_ms int64) {
	pm.metrics = append(pm.metrics, metricEntry{
		metricName:  metricName,
		duration_ms: duration_ms,
	})
}

func (pm *PerfMetrics) RecordLap(metricName string) {
	pm.SetMetric(metricName, pm.perfTimer.Lap_ms())
}

func (pm *PerfMetrics) RecordElapsed(metricName string) {
	pm.SetMetric(metricName, pm.perfTimer.Elapsed_ms())
}

func (pm *PerfMetrics) ToString(includeTotalElapsed bool) string {
	var sb strings.Builder
	for i, entry := range pm.metrics {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%s=%dms", entry.metricName, entry.duration_ms)
	}

	if includeTotalElapsed {
		return fmt.Sprintf("%dms (%s)", pm.perfTimer.Elapsed_ms(), sb.String())
	}

	return sb.String()
}
