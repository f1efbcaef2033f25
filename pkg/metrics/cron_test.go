package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func TestCronJobMetricsRecordsRuns(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCronJobMetrics(reg)
	finished := time.Date(2026, 10, 16, 3, 0, 0, 0, time.UTC)

	m.ObserveRun("sell-session-cleanup", 250*time.Millisecond, finished, nil)
	m.ObserveRun("sell-session-cleanup", 100*time.Millisecond, finished.Add(time.Hour), errors.New("db down"))
	m.IncLockSkipped()

	require.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("sell-session-cleanup", "success")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("sell-session-cleanup", "failure")))
	require.Equal(t, float64(finished.Unix()), testutil.ToFloat64(m.lastSuccess.WithLabelValues("sell-session-cleanup")),
		"a failed run must not move the success timestamp")
	require.Equal(t, 1.0, testutil.ToFloat64(m.lockSkips))

	mfs, err := reg.Gather()
	require.NoError(t, err)
	hist := histogramFor(mfs, "resellr_cron_job_duration_seconds", "sell-session-cleanup")
	require.NotNil(t, hist)
	require.Equal(t, uint64(2), hist.GetSampleCount())
	require.InDelta(t, 0.35, hist.GetSampleSum(), 1e-9)
}

func TestCronJobMetricsNilSafe(t *testing.T) {
	var m *CronJobMetrics
	m.ObserveRun("x", time.Second, time.Now(), nil)
	m.IncLockSkipped()
	NewCronJobMetrics(nil).ObserveRun("x", time.Second, time.Now(), errors.New("boom"))
}

func histogramFor(mfs []*dto.MetricFamily, name, job string) *dto.Histogram {
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.GetMetric() {
			for _, label := range metric.GetLabel() {
				if label.GetName() == "job" && label.GetValue() == job {
					return metric.GetHistogram()
				}
			}
		}
	}
	return nil
}
