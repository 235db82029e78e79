// SPDX-License-Identifier: GPL-3.0-or-later

package metric

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"
)

var (
	ErrInvalidLine       = errors.New("invalid metric line")
	ErrInvalidValue      = errors.New("invalid metric value")
	ErrInvalidType       = errors.New("invalid metric type")
	ErrInvalidSampleRate = errors.New("invalid sample rate")
	ErrInvalidEncoding   = errors.New("datagram is not valid UTF-8")
)

// ParseDatagram decodes a raw datagram and parses it as one metric line.
func ParseDatagram(b []byte) (Metric, error) {
	if !utf8.Valid(b) {
		return Metric{}, ErrInvalidEncoding
	}
	return Parse(string(b))
}

// Parse parses a line of the form name:value|type[|@sample_rate].
// A single trailing line break is tolerated.
func Parse(line string) (Metric, error) {
	line = strings.TrimRight(line, "\r\n")

	name, rest, ok := strings.Cut(line, ":")
	if !ok || name == "" || strings.ContainsAny(name, " \t|@") {
		return Metric{}, fmt.Errorf("%w: '%s'", ErrInvalidLine, line)
	}

	parts := strings.Split(rest, "|")
	if len(parts) < 2 || len(parts) > 3 {
		return Metric{}, fmt.Errorf("%w: '%s'", ErrInvalidLine, line)
	}

	value, err := strconv.ParseFloat(parts[0], 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return Metric{}, fmt.Errorf("%w: '%s'", ErrInvalidValue, parts[0])
	}

	kind, err := parseKind(parts[1])
	if err != nil {
		return Metric{}, err
	}

	m := Metric{Name: name, Value: value, Kind: kind, SampleRate: 1}

	if len(parts) == 3 {
		rate, err := parseSampleRate(parts[2])
		if err != nil {
			return Metric{}, err
		}
		m.SampleRate = rate
	}

	return m, nil
}

func parseKind(s string) (Kind, error) {
	switch s {
	case "c":
		return Counter, nil
	case "g":
		return Gauge, nil
	case "ms":
		return Timer, nil
	default:
		return 0, fmt.Errorf("%w: '%s'", ErrInvalidType, s)
	}
}

func parseSampleRate(s string) (float64, error) {
	v, ok := strings.CutPrefix(s, "@")
	if !ok {
		return 0, fmt.Errorf("%w: '%s'", ErrInvalidSampleRate, s)
	}
	rate, err := strconv.ParseFloat(v, 64)
	if err != nil || !(rate > 0 && rate <= 1) {
		return 0, fmt.Errorf("%w: '%s'", ErrInvalidSampleRate, s)
	}
	return rate, nil
}
