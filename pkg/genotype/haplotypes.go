package genotype

// Haplotypes maps a taxon name to its two haplotypes, one nucleotide letter
// per marker, 'N' where the call is missing.
type Haplotypes map[string][2][]byte

// PhasedHaplotypes splits every diploid call into its two alleles. Calls are
// unphased, so heterozygotes place the alphabetically first allele on the
// first haplotype.
func PhasedHaplotypes(m *Matrix) Haplotypes {
	haps := make(Haplotypes, m.NumTaxa())
	for t, name := range m.Taxa() {
		h0 := make([]byte, m.NumSites())
		h1 := make([]byte, m.NumSites())
		for s := range h0 {
			d := m.Genotype(t, s).Diploid()
			h0[s], h1[s] = d[0], d[1]
		}
		haps[name] = [2][]byte{h0, h1}
	}
	return haps
}
