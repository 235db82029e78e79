// SPDX-License-Identifier: GPL-3.0-or-later

package metric

import "fmt"

// Kind is the statsd metric type.
type Kind uint8

const (
	Counter Kind = iota
	Gauge
	Timer
)

func (k Kind) String() string {
	switch k {
	case Counter:
		return "counter"
	case Gauge:
		return "gauge"
	case Timer:
		return "timer"
	default:
		return fmt.Sprintf("kind(%d)", k)
	}
}

// Metric is a single parsed sample.
type Metric struct {
	Name       string
	Value      float64
	Kind       Kind
	SampleRate float64
}

// Scaled returns the number of occurrences the sample stands for:
// Value divided by SampleRate.
func (m Metric) Scaled() float64 {
	if m.SampleRate <= 0 {
		return m.Value
	}
	return m.Value / m.SampleRate
}

func (m Metric) String() string {
	return fmt.Sprintf("%s:%g|%s@%g", m.Name, m.Value, m.Kind, m.SampleRate)
}
