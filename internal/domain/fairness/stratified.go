package fairness

// stratumTally accumulates group sizes and positive outcomes in one stratum.
type stratumTally struct {
	size [2]int
	pos  [2]int
}

// pStar is the unweighted mean acceptance rate of both groups in the stratum.
// ok is false when either group is absent from it.
func (t stratumTally) pStar() (float64, bool) {
	if t.size[0] == 0 || t.size[1] == 0 {
		return 0, false
	}
	rate0 := float64(t.pos[0]) / float64(t.size[0])
	rate1 := float64(t.pos[1]) / float64(t.size[1])
	return (rate0 + rate1) / 2, true
}

// UnexplainedDifference is MeanDifference minus the part explained by the
// stratum, leaving the share attributable to protected-group membership.
func UnexplainedDifference[S comparable](outcomes, protected []int, stratum []S) (float64, error) {
	const op = "fairness.unexplained_difference"
	split, err := splitDifference(op, outcomes, protected, stratum)
	return split.Unexplained, err
}

// ExplainedDifference is Σ_s p*(s)·(n0(s)-n1(s))/n, where p*(s) is the mean
// acceptance rate of both groups inside stratum s. Strata missing one of the
// groups contribute nothing.
func ExplainedDifference[S comparable](outcomes, protected []int, stratum []S) (float64, error) {
	split, err := splitDifference("fairness.explained_difference", outcomes, protected, stratum)
	return split.Explained, err
}

// DifferenceSplit is the mean difference divided into the part the stratum
// explains and the rest.
type DifferenceSplit struct {
	Explained   float64
	Unexplained float64
	Strata      int // distinct stratum values
}

// SplitDifference computes both parts of the mean difference in one pass.
func SplitDifference[S comparable](outcomes, protected []int, stratum []S) (DifferenceSplit, error) {
	return splitDifference("fairness.split_difference", outcomes, protected, stratum)
}

func splitDifference[S comparable](op string, outcomes, protected []int, stratum []S) (DifferenceSplit, error) {
	if len(stratum) != len(outcomes) {
		return DifferenceSplit{}, invalid(op, "stratum and outcomes differ in length (%d != %d)", len(stratum), len(outcomes))
	}
	s, err := groupStatistics(op, outcomes, protected)
	if err != nil {
		return DifferenceSplit{}, err
	}

	// First-seen order keeps the floating point sum independent of map iteration.
	tallies := make(map[S]*stratumTally)
	order := make([]S, 0)
	for i, label := range stratum {
		t, ok := tallies[label]
		if !ok {
			t = &stratumTally{}
			tallies[label] = t
			order = append(order, label)
		}
		g := protected[i]
		t.size[g]++
		t.pos[g] += outcomes[i]
	}

	n := float64(s.N)
	var explained float64
	for _, label := range order {
		t := tallies[label]
		p, ok := t.pStar()
		if !ok {
			continue
		}
		explained += p * float64(t.size[0]-t.size[1]) / n
	}
	return DifferenceSplit{
		Explained:   explained,
		Unexplained: meanDifference(s) - explained,
		Strata:      len(order),
	}, nil
}
