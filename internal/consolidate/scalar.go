// Package consolidate merges several scouts' reports of the same event into
// one canonical value: outlier resistant averaging for numbers, majority
// votes for booleans and categories, and step by step voting with inventory
// checks for timelines.
package consolidate

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Round rounds half to even to 0 or 2 decimal places.
func Round(v float64, decimals bool) float64 {
	if decimals {
		return math.RoundToEven(v*100) / 100
	}
	return math.RoundToEven(v)
}

// modes returns the most frequent values in first-seen order and their count.
func modes[T comparable](values []T) ([]T, int) {
	counts := make(map[T]int, len(values))
	var order []T
	for _, v := range values {
		if counts[v] == 0 {
			order = append(order, v)
		}
		counts[v]++
	}
	best := 0
	for _, v := range order {
		best = max(best, counts[v])
	}
	var out []T
	for _, v := range order {
		if counts[v] == best {
			out = append(out, v)
		}
	}
	return out, best
}

// Numeric reduces numeric reports to one value. A unique mode wins. Failing
// that, the mean is returned when it is itself one of the reports; repeated
// values narrow the vote to the modal values; otherwise every report is
// weighted by the inverse square of its z-score so values near the mean
// dominate. An empty input yields 0.
func Numeric(values []float64, decimals bool) float64 {
	if len(values) == 0 {
		return 0
	}
	modal, count := modes(values)
	if len(modal) == 1 {
		return modal[0]
	}

	mean, std := stat.PopMeanStdDev(values, nil)
	for _, v := range values {
		if v == mean {
			return Round(mean, decimals)
		}
	}
	if count > 1 {
		return Numeric(modal, decimals)
	}
	if std == 0 || math.IsNaN(std) {
		return Round(mean, decimals)
	}

	weights := make([]float64, len(values))
	for i, v := range values {
		z := (v - mean) / std
		// z is never zero here since the mean is not among the values.
		weights[i] = 1 / (z * z)
	}
	return Round(stat.Mean(values, weights), decimals)
}

// Ints is Numeric for integer reports rounded to a whole number.
func Ints(values []int) int {
	fs := make([]float64, len(values))
	for i, v := range values {
		fs[i] = float64(v)
	}
	return int(Numeric(fs, false))
}

// Boolean returns the majority vote. Ties and empty input are false.
func Boolean(values []bool) bool {
	yes := 0
	for _, v := range values {
		if v {
			yes++
		}
	}
	return yes*2 > len(values)
}

// Categorical returns the unique most common value. Without one, the
// positions of the reports in domain are averaged and the value at the
// rounded position is returned, so partial agreement lands between the
// reported values. Reports outside domain are ignored for the average; when
// none are in domain the first most common report wins.
func Categorical(values []string, domain []string) string {
	if len(values) == 0 {
		return ""
	}
	modal, _ := modes(values)
	if len(modal) == 1 {
		return modal[0]
	}

	index := make(map[string]int, len(domain))
	for i, d := range domain {
		index[d] = i
	}
	var positions []float64
	for _, v := range values {
		if i, ok := index[v]; ok {
			positions = append(positions, float64(i))
		}
	}
	if len(positions) == 0 {
		return modal[0]
	}
	i := int(Round(stat.Mean(positions, nil), false))
	return domain[i]
}
