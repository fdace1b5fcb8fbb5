// Package cluster splits taxa into two subpopulations by k-means style
// partitioning of their genotype feature vectors.
package cluster

import (
	"math"

	"github.com/yumyai/recombmap/pkg/genotype"
	"gonum.org/v1/gonum/mat"
)

// Vectorize turns a taxon's allele presence into a feature vector:
// 2 for major only, 0 for minor only, 1 for both or neither.
// Neither (a missing call) is deliberately not given a negative value.
func Vectorize(major, minor []bool) []float64 {
	out := make([]float64, len(major))
	for s := range major {
		switch {
		case major[s] && minor[s]:
			out[s] = 1
		case major[s]:
			out[s] = 2
		case minor[s]:
			out[s] = 0
		default:
			out[s] = 1
		}
	}
	return out
}

// TaxonVector vectorizes taxon t of m.
func TaxonVector(m *genotype.Matrix, t int) []float64 {
	return Vectorize(m.AllelePresence(t, genotype.Major), m.AllelePresence(t, genotype.Minor))
}

// FeatureMatrix vectorizes every taxon, one row per taxon. m must have at
// least one taxon and one site.
func FeatureMatrix(m *genotype.Matrix) *mat.Dense {
	fm := mat.NewDense(m.NumTaxa(), m.NumSites(), nil)
	for t := 0; t < m.NumTaxa(); t++ {
		fm.SetRow(t, TaxonVector(m, t))
	}
	return fm
}

// Distance is the mean absolute difference over the coordinates where both
// vectors are non-negative. It is NaN when no coordinate qualifies.
func Distance(a, b []float64) float64 {
	if len(a) != len(b) {
		panic("cluster: vector length mismatch")
	}
	var d float64
	n := 0
	for s := range a {
		if a[s] >= 0 && b[s] >= 0 {
			d += math.Abs(a[s] - b[s])
			n++
		}
	}
	if n == 0 {
		return math.NaN()
	}
	return d / float64(n)
}

// runningMean is a cluster location updated one member at a time. size
// counts, per coordinate, the members that contributed to loc.
type runningMean struct {
	loc  []float64
	size []int
}

func newRunningMean(seed []float64) *runningMean {
	r := &runningMean{
		loc:  append([]float64(nil), seed...),
		size: make([]int, len(seed)),
	}
	for s, v := range seed {
		if v >= 0 {
			r.size[s] = 1
		}
	}
	return r
}

func (r *runningMean) add(v []float64) {
	for s := range v {
		if v[s] < 0 {
			continue
		}
		if r.size[s] > 0 {
			r.loc[s] = (r.loc[s]*float64(r.size[s]) + v[s]) / float64(r.size[s]+1)
			r.size[s]++
		} else {
			r.loc[s] = v[s]
			r.size[s] = 1
		}
	}
}

func (r *runningMean) remove(v []float64) {
	for s := range v {
		if v[s] < 0 {
			continue
		}
		if r.size[s] > 1 {
			r.loc[s] = (r.loc[s]*float64(r.size[s]) - v[s]) / float64(r.size[s]-1)
			r.size[s]--
		} else {
			r.loc[s] = 0
			r.size[s] = 0
		}
	}
}

// batchMean averages the member rows of fm coordinate by coordinate,
// skipping NaN. Coordinates with no value are NaN.
func batchMean(fm *mat.Dense, members []int) []float64 {
	_, nsites := fm.Dims()
	sum := make([]float64, nsites)
	count := make([]int, nsites)
	for _, t := range members {
		for s, v := range fm.RawRowView(t) {
			if !math.IsNaN(v) {
				sum[s] += v
				count[s]++
			}
		}
	}
	for s := range sum {
		if count[s] > 0 {
			sum[s] /= float64(count[s])
		} else {
			sum[s] = math.NaN()
		}
	}
	return sum
}
