package dashboard

import (
	"fmt"
	"math"
	"sort"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

const refreshLatencyFamily = "nnia_dashboard_refresh_latency_seconds"

// RefreshLatencySnapshot summarizes the refresh-cycle latency histogram for
// successful cycles.
type RefreshLatencySnapshot struct {
	Total   int64                  `json:"total"`
	P90Ms   float64                `json:"p90_ms"`
	P95Ms   float64                `json:"p95_ms"`
	Buckets []RefreshLatencyBucket `json:"buckets"`
}

type RefreshLatencyBucket struct {
	LeSeconds float64 `json:"le_seconds"`
	Label     string  `json:"label,omitempty"`
	Count     int64   `json:"count"`
}

func snapshotRefreshLatency(gatherer prometheus.Gatherer) RefreshLatencySnapshot {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	mfs, err := gatherer.Gather()
	if err != nil {
		return RefreshLatencySnapshot{}
	}

	var family *dto.MetricFamily
	for _, mf := range mfs {
		if mf != nil && mf.GetName() == refreshLatencyFamily {
			family = mf
			break
		}
	}
	if family == nil {
		return RefreshLatencySnapshot{}
	}

	// Aggregate histograms, keeping only outcome="ok" cycles.
	cumulativeByUpper := map[float64]uint64{}
	var sampleCount uint64

	for _, metric := range family.Metric {
		if metric == nil {
			continue
		}
		if !hasLabel(metric, "outcome", "ok") {
			continue
		}
		h := metric.GetHistogram()
		if h == nil {
			continue
		}
		sampleCount += h.GetSampleCount()
		for _, b := range h.Bucket {
			if b == nil {
				continue
			}
			cumulativeByUpper[b.GetUpperBound()] += b.GetCumulativeCount()
		}
	}

	if sampleCount == 0 || len(cumulativeByUpper) == 0 {
		return RefreshLatencySnapshot{}
	}

	uppers := make([]float64, 0, len(cumulativeByUpper))
	for upper := range cumulativeByUpper {
		uppers = append(uppers, upper)
	}
	sort.Float64s(uppers)

	buckets := make([]RefreshLatencyBucket, 0, len(uppers))
	var prev uint64
	var lastFiniteUpper float64
	for _, upper := range uppers {
		cum := cumulativeByUpper[upper]
		if math.IsInf(upper, 1) {
			overflow := int64(0)
			if cum >= prev {
				overflow = int64(cum - prev)
			} else {
				overflow = int64(cum)
			}
			if overflow > 0 {
				buckets = append(buckets, RefreshLatencyBucket{
					LeSeconds: lastFiniteUpper,
					Label:     fmt.Sprintf(">%s", formatSeconds(lastFiniteUpper)),
					Count:     overflow,
				})
			}
			prev = cum
			continue
		}

		lastFiniteUpper = upper
		count := int64(0)
		if cum >= prev {
			count = int64(cum - prev)
		} else {
			count = int64(cum)
		}
		buckets = append(buckets, RefreshLatencyBucket{
			LeSeconds: upper,
			Count:     count,
		})
		prev = cum
	}

	p90 := histogramQuantile(0.90, sampleCount, uppers, cumulativeByUpper)
	p95 := histogramQuantile(0.95, sampleCount, uppers, cumulativeByUpper)

	return RefreshLatencySnapshot{
		Total:   int64(sampleCount),
		P90Ms:   p90 * 1000.0,
		P95Ms:   p95 * 1000.0,
		Buckets: buckets,
	}
}

func hasLabel(metric *dto.Metric, name, value string) bool {
	for _, lp := range metric.Label {
		if lp == nil {
			continue
		}
		if lp.GetName() == name && lp.GetValue() == value {
			return true
		}
	}
	return false
}

func histogramQuantile(q float64, total uint64, uppers []float64, cumulativeByUpper map[float64]uint64) float64 {
	if total == 0 || q <= 0 {
		return 0
	}
	if q >= 1 {
		for i := len(uppers) - 1; i >= 0; i-- {
			if !math.IsInf(uppers[i], 1) {
				return uppers[i]
			}
		}
		return 0
	}

	target := q * float64(total)
	var prevUpper float64
	var prevCum float64

	for _, upper := range uppers {
		cum := float64(cumulativeByUpper[upper])
		if cum < target {
			prevUpper = upper
			prevCum = cum
			continue
		}

		// If we can't interpolate, return the bucket upper bound.
		bucketCount := cum - prevCum
		if bucketCount <= 0 || upper == prevUpper {
			return upper
		}
		if math.IsInf(upper, 1) {
			return prevUpper
		}

		fraction := (target - prevCum) / bucketCount
		if fraction < 0 {
			fraction = 0
		}
		if fraction > 1 {
			fraction = 1
		}

		lower := prevUpper
		return lower + fraction*(upper-lower)
	}

	return uppers[len(uppers)-1]
}

func formatSeconds(seconds float64) string {
	if seconds <= 0 {
		return "0s"
	}
	if seconds < 1 {
		return fmt.Sprintf("%.2fs", seconds)
	}
	if seconds < 10 {
		return fmt.Sprintf("%.1fs", seconds)
	}
	return fmt.Sprintf("%.0fs", seconds)
}
