// file: internals/features/correction/service/combination.go
package service

import (
	"math"
	"sort"

	model "longessay_backend/internals/features/correction/model"
)

// Combiner folds the authorized points of all correctors into one result.
// Callers never pass an empty slice.
type Combiner func(points []float64) float64

var combiners = map[model.CombinationRule]Combiner{
	model.CombineAverage: func(p []float64) float64 {
		sum := 0.0
		for _, v := range p {
			sum += v
		}
		return sum / float64(len(p))
	},
	model.CombineMinimum: func(p []float64) float64 {
		m := p[0]
		for _, v := range p[1:] {
			m = math.Min(m, v)
		}
		return m
	},
	model.CombineMaximum: func(p []float64) float64 {
		m := p[0]
		for _, v := range p[1:] {
			m = math.Max(m, v)
		}
		return m
	},
	model.CombineMedian: func(p []float64) float64 {
		s := append([]float64(nil), p...)
		sort.Float64s(s)
		n := len(s)
		if n%2 == 1 {
			return s[n/2]
		}
		return (s[n/2-1] + s[n/2]) / 2
	},
}

// CombinerFor falls back to the average for unknown rules.
func CombinerFor(rule model.CombinationRule) Combiner {
	if c, ok := combiners[rule]; ok {
		return c
	}
	return combiners[model.CombineAverage]
}

func roundTo(v float64, decimals int) float64 {
	if decimals < 0 {
		decimals = 0
	}
	f := math.Pow(10, float64(decimals))
	return math.Round(v*f) / f
}
