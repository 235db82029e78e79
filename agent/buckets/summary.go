// SPDX-License-Identifier: GPL-3.0-or-later

package buckets

import (
	"math"
	"slices"
	"strconv"
	"strings"
)

// TimerSummary is the reduction of one timer's samples over a flush interval.
type TimerSummary struct {
	Count       int
	Sum         float64
	Min         float64
	Max         float64
	Mean        float64
	Percentiles []PercentileValue
}

type PercentileValue struct {
	Percentile float64
	Value      float64
}

// Name returns the metric suffix of the percentile: 90 -> "p90", 99.9 -> "p99_9".
func (p PercentileValue) Name() string {
	return "p" + strings.ReplaceAll(strconv.FormatFloat(p.Percentile, 'f', -1, 64), ".", "_")
}

// Summarize reduces values to a TimerSummary.
//
// Percentiles use the nearest-rank rule on the ascending sorted values:
// rank = ceil(p/100 * n), result = sorted[rank-1]. An empty input yields a
// zero summary with zero percentile values.
func Summarize(values []float64, percentiles []float64) TimerSummary {
	var s TimerSummary

	s.Percentiles = make([]PercentileValue, 0, len(percentiles))

	if len(values) == 0 {
		for _, p := range percentiles {
			s.Percentiles = append(s.Percentiles, PercentileValue{Percentile: p})
		}
		return s
	}

	sorted := slices.Clone(values)
	slices.Sort(sorted)

	s.Count = len(sorted)
	s.Min = sorted[0]
	s.Max = sorted[len(sorted)-1]
	for _, v := range sorted {
		s.Sum += v
	}
	s.Mean = s.Sum / float64(s.Count)

	for _, p := range percentiles {
		s.Percentiles = append(s.Percentiles, PercentileValue{
			Percentile: p,
			Value:      sorted[nearestRank(p, len(sorted))-1],
		})
	}

	return s
}

func nearestRank(p float64, n int) int {
	rank := int(math.Ceil(p / 100 * float64(n)))
	return min(max(rank, 1), n)
}
