// Package fairness measures discrimination of a binary decision process
// against a binary protected attribute.
//
// Group-level measures work on empirical joint probabilities over
// (outcome, protected) pairs. The stratified measure removes the share of the
// mean difference explained by a confounding stratum, and situation testing
// compares every protected-group-1 individual with its nearest neighbours in
// both groups. All functions are pure: inputs are never mutated and nothing is
// cached between calls.
package fairness

// GroupStatistics holds counts and empirical probabilities over
// (outcome, protected) pairs. Probabilities are count divided by n.
type GroupStatistics struct {
	N int

	// Joint counts indexed as [outcome][protected].
	Joint [2][2]int

	PosUnprotected float64 // p(outcome=1, protected=0)
	PosProtected   float64 // p(outcome=1, protected=1)
	NegUnprotected float64 // p(outcome=0, protected=0)
	NegProtected   float64 // p(outcome=0, protected=1)

	Pos         float64 // p(outcome=1)
	Neg         float64 // p(outcome=0)
	Unprotected float64 // p(protected=0)
	Protected   float64 // p(protected=1)
}

// NewGroupStatistics validates outcomes and protected and tallies them.
func NewGroupStatistics(outcomes, protected []int) (GroupStatistics, error) {
	return groupStatistics("fairness.group_statistics", outcomes, protected)
}

func groupStatistics(op string, outcomes, protected []int) (GroupStatistics, error) {
	if err := validatePairs(op, outcomes, protected); err != nil {
		return GroupStatistics{}, err
	}

	var s GroupStatistics
	s.N = len(outcomes)
	for i, o := range outcomes {
		s.Joint[o][protected[i]]++
	}

	n := float64(s.N)
	s.PosUnprotected = float64(s.Joint[1][0]) / n
	s.PosProtected = float64(s.Joint[1][1]) / n
	s.NegUnprotected = float64(s.Joint[0][0]) / n
	s.NegProtected = float64(s.Joint[0][1]) / n
	s.Pos = float64(s.Joint[1][0]+s.Joint[1][1]) / n
	s.Neg = float64(s.Joint[0][0]+s.Joint[0][1]) / n
	s.Unprotected = float64(s.Joint[0][0]+s.Joint[1][0]) / n
	s.Protected = float64(s.Joint[0][1]+s.Joint[1][1]) / n
	return s, nil
}

// GroupSize returns the number of individuals with the given protected label.
func (s GroupStatistics) GroupSize(group int) int {
	return s.Joint[0][group] + s.Joint[1][group]
}

func validatePairs(op string, outcomes, protected []int) error {
	switch {
	case len(outcomes) == 0:
		return invalid(op, "outcomes must not be empty")
	case len(outcomes) != len(protected):
		return invalid(op, "outcomes and protected differ in length (%d != %d)", len(outcomes), len(protected))
	}
	if err := validateBinary(op, "outcomes", outcomes); err != nil {
		return err
	}
	return validateBinary(op, "protected", protected)
}

func validateBinary(op, name string, values []int) error {
	for i, v := range values {
		if v != 0 && v != 1 {
			return invalid(op, "%s[%d] = %d, must be 0 or 1", name, i, v)
		}
	}
	return nil
}
