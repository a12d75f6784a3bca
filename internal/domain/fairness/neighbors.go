package fairness

import (
	"container/heap"
	"fmt"
	"math"
	"strings"
)

// Metric names a distance function over feature vectors.
type Metric string

// Supported metrics.
const (
	MetricEuclidean Metric = "euclidean"
	MetricManhattan Metric = "manhattan"
	MetricChebyshev Metric = "chebyshev"
)

// ParseMetric maps a case-insensitive name to a Metric.
func ParseMetric(name string) (Metric, error) {
	switch m := Metric(strings.ToLower(strings.TrimSpace(name))); m {
	case MetricEuclidean, MetricManhattan, MetricChebyshev:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMetric, name)
	}
}

// span is a non-negative length stored as frac·2^exp with frac in [0.5, 1),
// so it never overflows for finite coordinates. A zero length has exp
// math.MinInt.
type span struct {
	exp  int
	frac float64
}

func (a span) less(b span) bool {
	if a.exp != b.exp {
		return a.exp < b.exp
	}
	return a.frac < b.frac
}

// distance returns half the metric distance between a and b. Coordinates are
// halved before subtracting and every difference is scaled by the largest one,
// as math.Hypot does.
func (m Metric) distance(a, b []float64) span {
	var peak float64
	for i := range a {
		peak = math.Max(peak, math.Abs(a[i]/2-b[i]/2))
	}
	if peak == 0 {
		return span{exp: math.MinInt}
	}

	scaled := 1.0
	switch m {
	case MetricChebyshev:
	case MetricManhattan:
		scaled = 0
		for i := range a {
			scaled += math.Abs(a[i]/2-b[i]/2) / peak
		}
	default:
		var sum float64
		for i := range a {
			r := (a[i]/2 - b[i]/2) / peak
			sum += r * r
		}
		scaled = math.Sqrt(sum)
	}

	// scaled lies in [1, len(a)], so joining the exponents stays exact in range.
	pf, pe := math.Frexp(peak)
	f, e := math.Frexp(pf * scaled)
	return span{exp: pe + e, frac: f}
}

// neighborIndex is the feature space of one protected group. Rows are kept in
// input order so that equal distances resolve to the lowest input index.
type neighborIndex struct {
	metric   Metric
	points   [][]float64
	outcomes []int
	ids      []int
}

func newNeighborIndex(metric Metric, individuals [][]float64, outcomes, protected []int, group int) *neighborIndex {
	x := &neighborIndex{metric: metric}
	for i, g := range protected {
		if g != group {
			continue
		}
		x.points = append(x.points, individuals[i])
		x.outcomes = append(x.outcomes, outcomes[i])
		x.ids = append(x.ids, i)
	}
	return x
}

func (x *neighborIndex) size() int { return len(x.ids) }

// meanOutcome averages the outcomes of the k rows nearest to q. The row whose
// input index equals skip is ignored; pass -1 to consider every row.
func (x *neighborIndex) meanOutcome(q []float64, k, skip int) float64 {
	h := make(candidates, 0, k)
	for i, p := range x.points {
		if x.ids[i] == skip {
			continue
		}
		c := candidate{dist: x.metric.distance(q, p), id: x.ids[i], outcome: x.outcomes[i]}
		if len(h) < k {
			heap.Push(&h, c)
			continue
		}
		// ids ascend, so an equal distance never displaces an earlier row.
		if c.dist.less(h[0].dist) {
			h[0] = c
			heap.Fix(&h, 0)
		}
	}
	if len(h) == 0 {
		return 0
	}
	var sum int
	for _, c := range h {
		sum += c.outcome
	}
	return float64(sum) / float64(len(h))
}

type candidate struct {
	dist    span
	id      int
	outcome int
}

// candidates is a max-heap: the farthest neighbour, then the highest index, sits on top.
type candidates []candidate

func (h candidates) Len() int { return len(h) }
func (h candidates) Less(i, j int) bool {
	if h[i].dist != h[j].dist {
		return h[j].dist.less(h[i].dist)
	}
	return h[i].id > h[j].id
}
func (h candidates) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *candidates) Push(v any)   { *h = append(*h, v.(candidate)) }
func (h *candidates) Pop() any {
	old := *h
	n := len(old)
	v := old[n-1]
	*h = old[:n-1]
	return v
}
