package genotype

import "math"

// MonomorphicThreshold is the major allele frequency above which a site
// counts as monomorphic.
const MonomorphicThreshold = 0.75

// AlleleStats summarizes the major allele frequency spectrum of a matrix.
type AlleleStats struct {
	Mono int
	Poly int
	// Bins[i] counts polymorphic sites with frequency in [i/20, (i+1)/20).
	Bins [20]int
}

func ComputeAlleleStats(m *Matrix) AlleleStats {
	var st AlleleStats
	for s := 0; s < m.NumSites(); s++ {
		maf := m.MajorAlleleFrequency(s)
		if maf > MonomorphicThreshold {
			st.Mono++
			continue
		}
		st.Poly++
		bin := int(math.Floor(20 * maf))
		if bin >= len(st.Bins) {
			bin = len(st.Bins) - 1
		}
		st.Bins[bin]++
	}
	return st
}
