package fairness

import "math"

// SoftScores turns per-individual distances to the favourable and the
// unfavourable class prototype, given as {favourable, unfavourable}, into a
// score in (0, 1): sigma((dUnfav-dFav)/(dUnfav+dFav)). Individuals sitting on
// both prototypes score 0.5.
func SoftScores(distances [][2]float64) ([]float64, error) {
	const op = "fairness.soft_scores"
	if len(distances) == 0 {
		return nil, invalid(op, "distances must not be empty")
	}
	scores := make([]float64, len(distances))
	for i, d := range distances {
		fav, unfav := d[0], d[1]
		if fav < 0 || unfav < 0 || math.IsNaN(fav+unfav) || math.IsInf(fav+unfav, 0) {
			return nil, invalid(op, "distances[%d] must be finite and non-negative", i)
		}
		scores[i] = sigmoid(ratio(unfav-fav, unfav+fav))
	}
	return scores, nil
}

func sigmoid(x float64) float64 { return 1 / (1 + math.Exp(-x)) }

// ScoreMeanDifference is the mean score of group 0 minus the mean score of
// group 1, or 0 when either group is empty. The orientation follows
// MeanDifference, so a positive value favours group 0. Scoring conventions
// that subtract the unprotected mean from the protected one report the
// negation of this value.
func ScoreMeanDifference(scores []float64, protected []int) (float64, error) {
	const op = "fairness.score_mean_difference"
	switch {
	case len(scores) == 0:
		return 0, invalid(op, "scores must not be empty")
	case len(scores) != len(protected):
		return 0, invalid(op, "scores and protected differ in length (%d != %d)", len(scores), len(protected))
	}
	if err := validateBinary(op, "protected", protected); err != nil {
		return 0, err
	}

	var sum [2]float64
	var count [2]int
	for i, v := range scores {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, invalid(op, "scores[%d] is not finite", i)
		}
		sum[protected[i]] += v
		count[protected[i]]++
	}
	if count[0] == 0 || count[1] == 0 {
		return 0, nil
	}
	return sum[0]/float64(count[0]) - sum[1]/float64(count[1]), nil
}

// ErrorRates holds the misclassification fraction inside each
// (protected group, actual outcome) cell.
type ErrorRates struct {
	UnprotectedNegative float64 `json:"unprotected_negative"` // protected=0, actual=0
	UnprotectedPositive float64 `json:"unprotected_positive"` // protected=0, actual=1
	ProtectedNegative   float64 `json:"protected_negative"`   // protected=1, actual=0
	ProtectedPositive   float64 `json:"protected_positive"`   // protected=1, actual=1
}

// PredictiveEquality compares actual outcomes with predictions per cell.
// Empty cells report 0.
func PredictiveEquality(actual, predicted, protected []int) (ErrorRates, error) {
	const op = "fairness.predictive_equality"
	if err := validatePairs(op, actual, protected); err != nil {
		return ErrorRates{}, err
	}
	if len(predicted) != len(actual) {
		return ErrorRates{}, invalid(op, "predicted and actual differ in length (%d != %d)", len(predicted), len(actual))
	}
	if err := validateBinary(op, "predicted", predicted); err != nil {
		return ErrorRates{}, err
	}

	// [protected][actual]
	var wrong, total [2][2]int
	for i, y := range actual {
		g := protected[i]
		total[g][y]++
		if predicted[i] != y {
			wrong[g][y]++
		}
	}
	rate := func(g, y int) float64 { return ratio(float64(wrong[g][y]), float64(total[g][y])) }
	return ErrorRates{
		UnprotectedNegative: rate(0, 0),
		UnprotectedPositive: rate(0, 1),
		ProtectedNegative:   rate(1, 0),
		ProtectedPositive:   rate(1, 1),
	}, nil
}
