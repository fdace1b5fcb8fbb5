package genotype

import (
	"fmt"
	"sync"

	"github.com/yumyai/recombmap/internal/util"
)

// Marker is one ordered site of a genotype matrix.
type Marker struct {
	Name       string
	Chromosome string
	Position   int
}

// Block is a half-open marker range [Start, End) on one chromosome.
type Block struct {
	Chromosome string
	Start      int
	End        int
}

// WhichAllele selects the major or minor allele of a site.
type WhichAllele int

const (
	Major WhichAllele = iota
	Minor
)

// Matrix holds genotype calls for markers x taxa. It is read-only once built.
type Matrix struct {
	taxa      []string
	taxaIndex map[string]int
	markers   []Marker
	calls     []Call // site-major, calls[s*ntaxa+t]

	allelesOnce sync.Once
	alleles     [][2]int // major/minor nucleotide per site
}

// NewMatrix validates the shape of the input and builds a matrix. calls is
// indexed calls[site][taxon]. Markers must ascend by position within each
// chromosome, and a chromosome must occupy one contiguous run of markers.
func NewMatrix(taxa []string, markers []Marker, calls [][]Call) (*Matrix, error) {
	if len(calls) != len(markers) {
		return nil, fmt.Errorf("%w: %d markers but %d call rows", ErrMalformedInput, len(markers), len(calls))
	}

	index := make(map[string]int, len(taxa))
	for i, name := range taxa {
		if _, dup := index[name]; dup {
			return nil, fmt.Errorf("%w: duplicate taxon %q", ErrMalformedInput, name)
		}
		index[name] = i
	}

	seen := make(map[string]bool)
	flat := make([]Call, 0, len(markers)*len(taxa))
	for s, row := range calls {
		if len(row) != len(taxa) {
			return nil, fmt.Errorf("%w: marker %d has %d calls for %d taxa", ErrMalformedInput, s, len(row), len(taxa))
		}
		if s > 0 && markers[s].Chromosome == markers[s-1].Chromosome {
			if markers[s].Position <= markers[s-1].Position {
				return nil, fmt.Errorf("%w: marker %d (%s:%d) does not follow %s:%d",
					ErrMalformedInput, s, markers[s].Chromosome, markers[s].Position, markers[s-1].Chromosome, markers[s-1].Position)
			}
		} else {
			if seen[markers[s].Chromosome] {
				return nil, fmt.Errorf("%w: chromosome %s is not contiguous", ErrMalformedInput, markers[s].Chromosome)
			}
			seen[markers[s].Chromosome] = true
		}
		flat = append(flat, row...)
	}

	return &Matrix{
		taxa:      append([]string(nil), taxa...),
		taxaIndex: index,
		markers:   append([]Marker(nil), markers...),
		calls:     flat,
	}, nil
}

func (m *Matrix) NumTaxa() int { return len(m.taxa) }

func (m *Matrix) NumSites() int { return len(m.markers) }

func (m *Matrix) Taxa() []string { return m.taxa }

func (m *Matrix) TaxonName(t int) string { return m.taxa[t] }

// TaxonIndex returns the index of a taxon, -1 when absent.
func (m *Matrix) TaxonIndex(name string) int {
	if i, ok := m.taxaIndex[name]; ok {
		return i
	}
	return -1
}

func (m *Matrix) Marker(s int) Marker { return m.markers[s] }

func (m *Matrix) Chromosome(s int) string { return m.markers[s].Chromosome }

func (m *Matrix) Position(s int) int { return m.markers[s].Position }

// Genotype returns the call of taxon t at site s.
func (m *Matrix) Genotype(t, s int) Call {
	return m.calls[s*len(m.taxa)+t]
}

// SiteCalls returns the calls of every taxon at site s. The slice must not be modified.
func (m *Matrix) SiteCalls(s int) []Call {
	n := len(m.taxa)
	return m.calls[s*n : (s+1)*n : (s+1)*n]
}

// NonMissingForTaxon counts the sites where taxon t has a call.
func (m *Matrix) NonMissingForTaxon(t int) int {
	count := 0
	for s := range m.markers {
		if !m.Genotype(t, s).IsMissing() {
			count++
		}
	}
	return count
}

// Blocks splits the markers into contiguous per-chromosome ranges.
func (m *Matrix) Blocks() []Block {
	var blocks []Block
	for s := range m.markers {
		if s == 0 || m.markers[s].Chromosome != m.markers[s-1].Chromosome {
			blocks = append(blocks, Block{Chromosome: m.markers[s].Chromosome, Start: s})
		}
		blocks[len(blocks)-1].End = s + 1
	}
	return blocks
}

// AlleleCounts counts nucleotides over every non-missing call at site s.
func (m *Matrix) AlleleCounts(s int) [NumNucleotides]int {
	var counts [NumNucleotides]int
	for _, c := range m.SiteCalls(s) {
		if c.IsMissing() {
			continue
		}
		a, b := c.Alleles()
		counts[a]++
		counts[b]++
	}
	return counts
}

// Allele returns the nucleotide index of the major or minor allele at site s,
// -1 when the site has no such allele.
func (m *Matrix) Allele(s int, which WhichAllele) int {
	m.allelesOnce.Do(func() {
		m.alleles = make([][2]int, len(m.markers))
		for i := range m.markers {
			m.alleles[i] = m.rankAlleles(i)
		}
	})
	return m.alleles[s][which]
}

func (m *Matrix) rankAlleles(s int) [2]int {
	counts := m.AlleleCounts(s)
	order := util.ReverseOrder(counts[:])
	ranked := [2]int{-1, -1}
	for i := 0; i < 2; i++ {
		if counts[order[i]] > 0 {
			ranked[i] = order[i]
		}
	}
	return ranked
}

// AllelePresence reports, for every site, whether taxon t carries the
// major or minor allele.
func (m *Matrix) AllelePresence(t int, which WhichAllele) []bool {
	out := make([]bool, len(m.markers))
	for s := range m.markers {
		out[s] = m.Genotype(t, s).Has(m.Allele(s, which))
	}
	return out
}

// MajorAlleleFrequency is the fraction of non-missing alleles at s that are the major allele.
func (m *Matrix) MajorAlleleFrequency(s int) float64 {
	counts := m.AlleleCounts(s)
	total := 0
	for _, c := range counts {
		total += c
	}
	major := m.Allele(s, Major)
	if total == 0 || major < 0 {
		return 0
	}
	return float64(counts[major]) / float64(total)
}

// SubsetTaxa returns a new matrix restricted to the given taxa, in the given order.
func (m *Matrix) SubsetTaxa(taxa []int) *Matrix {
	names := make([]string, len(taxa))
	index := make(map[string]int, len(taxa))
	for i, t := range taxa {
		names[i] = m.taxa[t]
		index[names[i]] = i
	}

	flat := make([]Call, 0, len(taxa)*len(m.markers))
	for s := range m.markers {
		row := m.SiteCalls(s)
		for _, t := range taxa {
			flat = append(flat, row[t])
		}
	}

	return &Matrix{
		taxa:      names,
		taxaIndex: index,
		markers:   m.markers,
		calls:     flat,
	}
}

// ParseRows builds a matrix from one string of single letter calls per
// marker, one letter per taxon.
func ParseRows(taxa []string, markers []Marker, rows []string) (*Matrix, error) {
	calls := make([][]Call, len(rows))
	for s, row := range rows {
		calls[s] = make([]Call, len(row))
		for t := 0; t < len(row); t++ {
			c, err := ParseCall(row[t : t+1])
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", s, err)
			}
			calls[s][t] = c
		}
	}
	return NewMatrix(taxa, markers, calls)
}
