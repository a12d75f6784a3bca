package fairness

import (
	"fmt"
	"math"
	"sort"
)

// Measure names accepted by LookupMeasure.
const (
	MeasureElift                = "elift"
	MeasureOddsRatio            = "odds_ratio"
	MeasureImpactRatio          = "impact_ratio"
	MeasureMeanDifference       = "mean_difference"
	MeasureNormalizedDifference = "normalized_difference"
)

// MeasureFunc is a group-level measure over aligned outcome and protected vectors.
type MeasureFunc func(outcomes, protected []int) (float64, error)

var measures = map[string]MeasureFunc{ //nolint:gochecknoglobals // immutable registry
	MeasureElift:                Elift,
	MeasureOddsRatio:            OddsRatio,
	MeasureImpactRatio:          ImpactRatio,
	MeasureMeanDifference:       MeanDifference,
	MeasureNormalizedDifference: NormalizedDifference,
}

// LookupMeasure returns the group measure registered under name.
func LookupMeasure(name string) (MeasureFunc, error) {
	fn, ok := measures[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMeasure, name)
	}
	return fn, nil
}

// MeasureNames lists the registered group measures in lexical order.
func MeasureNames() []string {
	names := make([]string, 0, len(measures))
	for name := range measures {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Elift is p(outcome=1, protected=0) / p(outcome=1).
// It is 0 when there are no positive outcomes.
func Elift(outcomes, protected []int) (float64, error) {
	s, err := groupStatistics("fairness.elift", outcomes, protected)
	if err != nil {
		return 0, err
	}
	return ratio(s.PosUnprotected, s.Pos), nil
}

// OddsRatio is (p(1,0)·p(0,1)) / (p(1,1)·p(0,0)), 0 on a zero denominator.
func OddsRatio(outcomes, protected []int) (float64, error) {
	s, err := groupStatistics("fairness.odds_ratio", outcomes, protected)
	if err != nil {
		return 0, err
	}
	return ratio(s.PosUnprotected*s.NegProtected, s.PosProtected*s.NegUnprotected), nil
}

// ImpactRatio is p(1,1) / p(1,0), 0 when group 0 has no positive outcomes.
func ImpactRatio(outcomes, protected []int) (float64, error) {
	s, err := groupStatistics("fairness.impact_ratio", outcomes, protected)
	if err != nil {
		return 0, err
	}
	return ratio(s.PosProtected, s.PosUnprotected), nil
}

// MeanDifference is p(1,0) - p(1,1). Positive values favour group 0.
func MeanDifference(outcomes, protected []int) (float64, error) {
	s, err := groupStatistics("fairness.mean_difference", outcomes, protected)
	if err != nil {
		return 0, err
	}
	return meanDifference(s), nil
}

// NormalizedDifference scales MeanDifference by the largest difference the
// marginals allow, dmax = min(p(o=1)/p(p=0), p(o=0)/p(p=1)). It is 0 when dmax
// is 0 or when either protected group is empty.
func NormalizedDifference(outcomes, protected []int) (float64, error) {
	s, err := groupStatistics("fairness.normalized_difference", outcomes, protected)
	if err != nil {
		return 0, err
	}
	if s.Unprotected == 0 || s.Protected == 0 {
		return 0, nil
	}
	dmax := math.Min(s.Pos/s.Unprotected, s.Neg/s.Protected)
	return ratio(meanDifference(s), dmax), nil
}

func meanDifference(s GroupStatistics) float64 {
	return s.PosUnprotected - s.PosProtected
}

// ratio divides num by den and reports 0 for a zero denominator.
func ratio(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}
