// Package stats accumulates per competitor win rates across games and
// renders them as a table.
package stats

import (
	"fmt"
	"math"
)

// z95 is the squared z score of a 95% confidence interval.
const z95 = 3.84

// Variable is a running mean of 0/1 samples.
type Variable struct {
	Total   float64 `json:"total"`
	Samples int     `json:"samples"`
}

func (v *Variable) Sample(value float64) {
	v.Total += value
	v.Samples++
}

// Estimate is the plain mean, or 0.5 without samples.
func (v Variable) Estimate() float64 {
	if v.Samples == 0 {
		return 0.5
	}
	return v.Total / float64(v.Samples)
}

// Interval returns the Agresti-Coull centre and half width. It stays usable
// for rates at 0% or 100% but may exceed 100% for very few samples.
func (v Variable) Interval() (value, err float64) {
	n := float64(v.Samples) + z95
	value = (v.Total + z95*0.5) / n
	err = 1.96 * math.Sqrt(value*(1-value)/n)
	return value, err
}

// Detail formats the interval as "75.00% (e=12.34 n=10  )".
func (v Variable) Detail() string {
	value, err := v.Interval()
	return fmt.Sprintf("%5.2f%% (e=%4.2f n=%-4d)", value*100, err*100, v.Samples)
}

func (v Variable) String() string {
	if v.Samples == 0 {
		return "   N/A"
	}
	value := 100 * v.Total / float64(v.Samples)
	if value == 100 {
		return "100.0%"
	}
	return fmt.Sprintf("%5.2f%%", value)
}
