package cluster

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/yumyai/recombmap/logger"
	"github.com/yumyai/recombmap/pkg/genotype"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Unknown marks a parent that is not among the taxa.
const Unknown = -1

const (
	DefaultMaxIterations = 5
	DefaultTrials        = 5
	DefaultMinTaxa       = 10
)

// Partition is the result of a two cluster split. Both lists index the
// input matrix and keep its order.
type Partition struct {
	First  []int
	Second []int
	// Distance between the two cluster locations at the end of the run.
	Distance float64
	// Trial that produced the partition, -1 in seeded mode.
	Trial int
}

// Matrices returns the sub-matrices of the two clusters.
func (p *Partition) Matrices(m *genotype.Matrix) (*genotype.Matrix, *genotype.Matrix) {
	return m.SubsetTaxa(p.First), m.SubsetTaxa(p.Second)
}

// Coverage selects the taxa admitted to multi-trial clustering.
type Coverage struct {
	MinCount    int     // minimum number of non-missing sites
	MinFraction float64 // minimum fraction of non-missing sites
}

func (c Coverage) admits(nonMissing, sites int) bool {
	if nonMissing < c.MinCount {
		return false
	}
	return sites > 0 && float64(nonMissing)/float64(sites) >= c.MinFraction
}

// Partitioner holds the settings of a clustering run. Rand is required
// whenever a seed has to be drawn; each Partitioner must own its source.
type Partitioner struct {
	Rand          *rand.Rand
	MaxIterations int
	Trials        int
	MinTaxa       int
}

func (p *Partitioner) maxIterations() int {
	if p.MaxIterations > 0 {
		return p.MaxIterations
	}
	return DefaultMaxIterations
}

func (p *Partitioner) trials() int {
	if p.Trials > 0 {
		return p.Trials
	}
	return DefaultTrials
}

func (p *Partitioner) minTaxa() int {
	if p.MinTaxa > 0 {
		return p.MinTaxa
	}
	return DefaultMinTaxa
}

func (p *Partitioner) randomPair(n int) (int, int, error) {
	if p.Rand == nil {
		return 0, 0, fmt.Errorf("cluster: random seeds requested without a random source")
	}
	a := p.Rand.Intn(n)
	b := a
	for b == a {
		b = p.Rand.Intn(n)
	}
	return a, b, nil
}

// Seeded grows two clusters from the parents' genotypes. A parent given as
// Unknown is replaced by the taxon farthest from the known one, or both by
// random taxa when neither is known. Cluster locations are running means
// updated as members join and leave.
func (p *Partitioner) Seeded(ctx context.Context, m *genotype.Matrix, parents [2]int) (*Partition, error) {
	ntaxa := m.NumTaxa()
	if ntaxa < 2 || m.NumSites() == 0 {
		return nil, fmt.Errorf("%w: %d taxa, %d sites", genotype.ErrInsufficientData, ntaxa, m.NumSites())
	}
	for _, par := range parents {
		if par != Unknown && (par < 0 || par >= ntaxa) {
			return nil, fmt.Errorf("%w: parent index %d outside %d taxa", genotype.ErrMalformedInput, par, ntaxa)
		}
	}
	if parents[0] != Unknown && parents[0] == parents[1] {
		return nil, fmt.Errorf("%w: both parents are taxon %d", genotype.ErrMalformedInput, parents[0])
	}

	fm := FeatureMatrix(m)
	row := func(t int) []float64 { return fm.RawRowView(t) }

	seed1, seed2 := parents[0], parents[1]
	switch {
	case seed1 == Unknown && seed2 == Unknown:
		var err error
		if seed1, seed2, err = p.randomPair(ntaxa); err != nil {
			return nil, err
		}
	case seed1 == Unknown:
		seed1 = farthest(fm, seed2)
	case seed2 == Unknown:
		seed2 = farthest(fm, seed1)
	}
	if seed1 == Unknown || seed2 == Unknown {
		return nil, fmt.Errorf("%w: no taxon at a computable distance from the known parent", genotype.ErrInsufficientData)
	}

	loc1 := newRunningMean(row(seed1))
	loc2 := newRunningMean(row(seed2))
	inFirst := make([]bool, ntaxa)
	inFirst[seed1] = true

	for t := 0; t < ntaxa; t++ {
		if t == seed1 || t == seed2 {
			continue
		}
		tloc := row(t)
		if Distance(loc1.loc, tloc) <= Distance(loc2.loc, tloc) {
			inFirst[t] = true
			loc1.add(tloc)
		} else {
			loc2.add(tloc)
		}
	}

	for iter := 0; iter < p.maxIterations(); iter++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		changed := false
		for t := 0; t < ntaxa; t++ {
			tloc := row(t)
			d1, d2 := Distance(loc1.loc, tloc), Distance(loc2.loc, tloc)
			if d1 <= d2 && !inFirst[t] {
				inFirst[t] = true
				loc1.add(tloc)
				loc2.remove(tloc)
				changed = true
			} else if d1 > d2 && inFirst[t] {
				inFirst[t] = false
				loc1.remove(tloc)
				loc2.add(tloc)
				changed = true
			}
		}
		if !changed {
			break
		}
	}

	dist := Distance(loc1.loc, loc2.loc)
	logger.Info("distance between clusters", zap.Float64("distance", dist),
		zap.Int("seed1", seed1), zap.Int("seed2", seed2))

	part := splitIndices(inFirst, nil)
	part.Distance = dist
	part.Trial = -1
	return part, nil
}

// farthest returns the taxon at the greatest distance from known, scanning
// in order and keeping the first maximum. Unknown when no distance is defined.
func farthest(fm *mat.Dense, known int) int {
	ntaxa, _ := fm.Dims()
	ref := fm.RawRowView(known)
	best, bestDist := Unknown, -1.0
	for t := 0; t < ntaxa; t++ {
		if t == known {
			continue
		}
		if d := Distance(ref, fm.RawRowView(t)); d > bestDist {
			best, bestDist = t, d
		}
	}
	return best
}

// MultiTrial clusters the adequately covered taxa of m without parents.
// Each trial starts from two random seeds and recomputes both centroids from
// the current members on every pass; a trial that empties a cluster is
// discarded. The trial with the largest final distance between centroids wins.
func (p *Partitioner) MultiTrial(ctx context.Context, m *genotype.Matrix, cov Coverage) (*Partition, error) {
	var kept []int
	for t := 0; t < m.NumTaxa(); t++ {
		if cov.admits(m.NonMissingForTaxon(t), m.NumSites()) {
			kept = append(kept, t)
		}
	}
	if len(kept) < p.minTaxa() || len(kept) < 2 {
		first := ""
		if m.NumSites() > 0 {
			first = m.Marker(0).Name
		}
		logger.Info("too few adequately covered taxa to cluster",
			zap.Int("included", len(kept)), zap.Int("required", p.minTaxa()), zap.String("first_site", first))
		return nil, fmt.Errorf("%w: %d adequately covered taxa, need %d", genotype.ErrInsufficientData, len(kept), p.minTaxa())
	}

	if p.Rand == nil {
		return nil, fmt.Errorf("cluster: multi-trial clustering requires a random source")
	}
	fm := FeatureMatrix(m.SubsetTaxa(kept))

	var best []bool
	bestTrial, maxDistance := -1, 0.0
	var distances []float64
	for trial := 0; trial < p.trials(); trial++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		inFirst, dist, err := p.runTrial(ctx, fm)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			logger.Info("discarding trial", zap.Int("trial", trial), zap.Error(err))
			continue
		}
		logger.Info("trial finished", zap.Int("trial", trial), zap.Float64("distance", dist))
		distances = append(distances, dist)
		if dist > maxDistance {
			maxDistance, bestTrial, best = dist, trial, inFirst
		}
	}

	if len(distances) > 1 {
		mean, sd := stat.MeanStdDev(distances, nil)
		logger.Debug("trial distances", zap.Float64("mean", mean), zap.Float64("sd", sd), zap.Int("valid", len(distances)))
	}
	if bestTrial < 0 {
		return nil, fmt.Errorf("%w: none of %d trials produced two separated clusters", genotype.ErrAmbiguousTrial, p.trials())
	}

	part := splitIndices(best, kept)
	part.Distance = maxDistance
	part.Trial = bestTrial
	return part, nil
}

// runTrial performs one random start. It fails with ErrAmbiguousTrial when a
// pass would leave a cluster empty.
func (p *Partitioner) runTrial(ctx context.Context, fm *mat.Dense) ([]bool, float64, error) {
	ntaxa, _ := fm.Dims()
	row := func(t int) []float64 { return fm.RawRowView(t) }

	seed1, seed2, err := p.randomPair(ntaxa)
	if err != nil {
		return nil, 0, err
	}
	inFirst := make([]bool, ntaxa)
	inFirst[seed1] = true

	for t := 0; t < ntaxa; t++ {
		if t == seed1 || t == seed2 {
			continue
		}
		d1, d2 := Distance(row(seed1), row(t)), Distance(row(seed2), row(t))
		switch {
		case d1 < d2:
			inFirst[t] = true
		case d1 > d2:
			inFirst[t] = false
		default:
			inFirst[t] = p.Rand.Float64() > 0.5
		}
	}

	var mean1, mean2 []float64
	for iter := 0; iter < p.maxIterations(); iter++ {
		if err := ctx.Err(); err != nil {
			return nil, 0, err
		}
		var first, second []int
		for t, in := range inFirst {
			if in {
				first = append(first, t)
			} else {
				second = append(second, t)
			}
		}
		if len(first) == 0 || len(second) == 0 {
			return nil, 0, fmt.Errorf("%w: empty cluster on pass %d", genotype.ErrAmbiguousTrial, iter)
		}

		mean1, mean2 = batchMean(fm, first), batchMean(fm, second)
		changed := false
		for t := 0; t < ntaxa; t++ {
			d1, d2 := Distance(mean1, row(t)), Distance(mean2, row(t))
			if d1 < d2 && !inFirst[t] {
				inFirst[t] = true
				changed = true
			} else if d1 > d2 && inFirst[t] {
				inFirst[t] = false
				changed = true
			}
		}
		if !changed {
			break
		}
	}

	return inFirst, Distance(mean1, mean2), nil
}

// splitIndices turns membership flags into a Partition. When index is
// non-nil, flag i belongs to taxon index[i].
func splitIndices(inFirst []bool, index []int) *Partition {
	part := &Partition{}
	for i, in := range inFirst {
		t := i
		if index != nil {
			t = index[i]
		}
		if in {
			part.First = append(part.First, t)
		} else {
			part.Second = append(part.Second, t)
		}
	}
	return part
}
