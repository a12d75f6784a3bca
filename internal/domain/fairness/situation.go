package fairness

import (
	"context"
	"fmt"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// SituationVerdict is the outcome of situation testing one protected-group-1 individual.
type SituationVerdict struct {
	Index         int     `json:"index"`
	PositiveRate  float64 `json:"positive_rate"` // mean outcome of the k nearest group-1 neighbours
	NegativeRate  float64 `json:"negative_rate"` // mean outcome of the k nearest group-0 neighbours
	Discriminated bool    `json:"discriminated"`
}

// Tester runs situation testing with an explicit neighbour configuration.
// A Tester holds no per-call state and is safe for concurrent use.
type Tester struct {
	metric      Metric
	dimension   int
	parallelism int
	excludeSelf bool
}

// NewTester creates a Tester. Defaults: euclidean metric, dimension inferred,
// one query goroutine per available CPU, the tested individual counted among
// its own group's neighbours.
func NewTester(opts ...Option) *Tester {
	t := &Tester{
		metric:      MetricEuclidean,
		parallelism: runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// SituationTesting runs a default Tester and returns the discriminated fraction.
func SituationTesting(outcomes, protected []int, individuals [][]float64, threshold float64, k int) (float64, error) {
	return NewTester().Test(context.Background(), outcomes, protected, individuals, threshold, k)
}

// Test returns the fraction of protected-group-1 individuals whose group-0
// neighbours fare better than their group-1 neighbours by at least threshold.
func (t *Tester) Test(ctx context.Context, outcomes, protected []int, individuals [][]float64, threshold float64, k int) (float64, error) {
	verdicts, err := t.Verdicts(ctx, outcomes, protected, individuals, threshold, k)
	if err != nil {
		return 0, err
	}
	var flagged int
	for _, v := range verdicts {
		if v.Discriminated {
			flagged++
		}
	}
	return float64(flagged) / float64(len(verdicts)), nil
}

// Verdicts tests every protected-group-1 individual and returns the verdicts
// in input order.
func (t *Tester) Verdicts(ctx context.Context, outcomes, protected []int, individuals [][]float64, threshold float64, k int) ([]SituationVerdict, error) {
	const op = "fairness.situation_testing"
	s, err := groupStatistics(op, outcomes, protected)
	if err != nil {
		return nil, err
	}
	if err := t.validate(op, s, individuals, threshold, k); err != nil {
		return nil, err
	}

	same := newNeighborIndex(t.metric, individuals, outcomes, protected, 1)
	other := newNeighborIndex(t.metric, individuals, outcomes, protected, 0)

	verdicts := make([]SituationVerdict, same.size())
	skip := func(id int) int {
		if t.excludeSelf {
			return id
		}
		return -1
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(t.parallelism)
	chunk := (len(verdicts) + t.parallelism - 1) / t.parallelism
	for lo := 0; lo < len(verdicts); lo += chunk {
		hi := min(lo+chunk, len(verdicts))
		g.Go(func() error {
			for i := lo; i < hi; i++ {
				if err := ctx.Err(); err != nil {
					return fmt.Errorf("situation testing cancelled: %w", err)
				}
				id := same.ids[i]
				q := individuals[id]
				pos := same.meanOutcome(q, k, skip(id))
				neg := other.meanOutcome(q, k, -1)
				verdicts[i] = SituationVerdict{
					Index:         id,
					PositiveRate:  pos,
					NegativeRate:  neg,
					Discriminated: neg-pos >= threshold,
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return verdicts, nil
}

func (t *Tester) validate(op string, s GroupStatistics, individuals [][]float64, threshold float64, k int) error {
	if len(individuals) != s.N {
		return invalid(op, "individuals and outcomes differ in length (%d != %d)", len(individuals), s.N)
	}
	if math.IsNaN(threshold) || math.IsInf(threshold, 0) {
		return invalid(op, "threshold must be finite")
	}

	dim := t.dimension
	if dim == 0 {
		dim = len(individuals[0])
	}
	if dim < 1 {
		return invalid(op, "feature vectors must have at least one dimension")
	}
	for i, x := range individuals {
		if len(x) != dim {
			return invalid(op, "individuals[%d] has dimension %d, want %d", i, len(x), dim)
		}
		for _, v := range x {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return invalid(op, "individuals[%d] has a non-finite coordinate", i)
			}
		}
	}

	own := s.GroupSize(1)
	if t.excludeSelf {
		own--
	}
	switch {
	case k < 1:
		return invalid(op, "k must be at least 1, got %d", k)
	case k > own:
		return invalid(op, "k = %d exceeds the protected-group-1 neighbour pool (%d)", k, own)
	case k > s.GroupSize(0):
		return invalid(op, "k = %d exceeds the protected-group-0 size (%d)", k, s.GroupSize(0))
	}
	return nil
}
