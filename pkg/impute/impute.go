// Package impute places markers on a regular genetic map grid and fills in
// each taxon's genotype there from the nearest observed flanking calls.
package impute

import (
	"context"
	"fmt"
	"math"
	"strconv"

	"github.com/yumyai/recombmap/logger"
	"github.com/yumyai/recombmap/pkg/genmap"
	"github.com/yumyai/recombmap/pkg/genotype"
	"go.uber.org/zap"
)

// Missing output symbols.
const (
	MissingDosage     = "-"
	MissingNucleotide = "N"
)

// ImputedMarker is one grid point with a value per output taxon.
type ImputedMarker struct {
	Chromosome string
	Position   int
	CM         float64
	Values     []string
}

// Name is the marker identifier written in the first column.
func (im ImputedMarker) Name() string {
	return "S" + im.Chromosome + "_" + strconv.Itoa(im.Position)
}

// dosage classes of a biallelic A/C site
const (
	classA = iota
	classHet
	classC
	noClass
)

func classOf(c genotype.Call) int {
	switch c {
	case genotype.AA:
		return classA
	case genotype.AC:
		return classHet
	case genotype.CC:
		return classC
	}
	return noClass
}

var (
	dosageValue   = [3]float64{0, 1, 2}
	dosageText    = [3]string{"0", "1", "2"}
	nucleotideSym = [3]string{"A", "M", "C"}
)

// Interpolator computes ImputedMarkers every Step cM. Calls other than AA,
// AC and CC are treated as missing.
type Interpolator struct {
	Oracle genmap.Oracle
	Step   float64
	// Nucleotides writes A/M/C symbols instead of 0/1/2 dosages. Flanks that
	// disagree give N rather than a blended dosage.
	Nucleotides bool
	// Flip swaps the A and C orientation of the output.
	Flip bool
	// Exclude lists taxa left out of the output.
	Exclude []string
}

// OutputTaxa returns the indices of the taxa written, in matrix order.
func (ip *Interpolator) OutputTaxa(m *genotype.Matrix) []int {
	skip := make(map[string]bool, len(ip.Exclude))
	for _, name := range ip.Exclude {
		skip[name] = true
	}
	out := make([]int, 0, m.NumTaxa())
	for t, name := range m.Taxa() {
		if !skip[name] {
			out = append(out, t)
		}
	}
	return out
}

func (ip *Interpolator) class(c genotype.Call) int {
	k := classOf(c)
	if ip.Flip && k != noClass {
		k = classC - k
	}
	return k
}

func (ip *Interpolator) symbol(k int) string {
	if ip.Nucleotides {
		return nucleotideSym[k]
	}
	return dosageText[k]
}

func (ip *Interpolator) missing() string {
	if ip.Nucleotides {
		return MissingNucleotide
	}
	return MissingDosage
}

// Interpolate walks every chromosome block of m and calls emit once per grid
// point, in order. Flank cursors only move forward within a block.
func (ip *Interpolator) Interpolate(ctx context.Context, m *genotype.Matrix, emit func(ImputedMarker) error) error {
	if ip.Oracle == nil {
		return fmt.Errorf("impute: no genetic map")
	}
	if !(ip.Step > 0) {
		return fmt.Errorf("impute: step must be positive, got %v", ip.Step)
	}
	taxa := ip.OutputTaxa(m)

	for _, block := range m.Blocks() {
		chr := block.Chromosome
		firstCM, err := ip.Oracle.CMFromPosition(chr, m.Position(block.Start))
		if err != nil {
			return err
		}
		lastCM, err := ip.Oracle.CMFromPosition(chr, m.Position(block.End-1))
		if err != nil {
			return err
		}
		kFirst := int64(math.Ceil(firstCM / ip.Step))
		kLast := int64(math.Floor(lastCM / ip.Step))
		logger.Debug("imputing chromosome", zap.String("chr", chr),
			zap.Float64("start_cm", float64(kFirst)*ip.Step), zap.Int64("steps", kLast-kFirst+1))

		right := block.Start
		for k := kFirst; k <= kLast; k++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			cm := float64(k) * ip.Step
			phys, err := ip.Oracle.PositionFromCM(chr, cm)
			if err != nil {
				return err
			}
			for right < block.End && phys > m.Position(right) {
				right++
			}
			left := right - 1

			im := ImputedMarker{Chromosome: chr, Position: phys, CM: cm, Values: make([]string, len(taxa))}
			for i, t := range taxa {
				im.Values[i] = ip.resolve(m, block, t, left, right, phys)
			}
			if err := emit(im); err != nil {
				return err
			}
		}
	}
	return nil
}

// resolve finds taxon t's nearest usable calls at or left of left and at or
// right of right, staying inside block, and combines them.
func (ip *Interpolator) resolve(m *genotype.Matrix, block genotype.Block, t, left, right, phys int) string {
	l := left
	for l >= block.Start && ip.class(m.Genotype(t, l)) == noClass {
		l--
	}
	r := right
	for r < block.End && ip.class(m.Genotype(t, r)) == noClass {
		r++
	}
	lk, rk := noClass, noClass
	if l >= block.Start {
		lk = ip.class(m.Genotype(t, l))
	}
	if r < block.End {
		rk = ip.class(m.Genotype(t, r))
	}

	switch {
	case lk == noClass && rk == noClass:
		return ip.missing()
	case lk == noClass:
		return ip.symbol(rk)
	case rk == noClass, lk == rk:
		return ip.symbol(lk)
	}

	rpos := m.Position(r)
	if phys == rpos {
		return ip.symbol(rk)
	}
	if ip.Nucleotides {
		return MissingNucleotide
	}
	lpos := m.Position(l)
	pd := float64(phys-lpos) / float64(rpos-lpos)
	return formatFloat(dosageValue[lk]*(1-pd) + dosageValue[rk]*pd)
}

// Export writes every imputed marker of m to w and returns the count.
func (ip *Interpolator) Export(ctx context.Context, m *genotype.Matrix, w MarkerWriter) (int, error) {
	n := 0
	err := ip.Interpolate(ctx, m, func(im ImputedMarker) error {
		n++
		return w.WriteMarker(im)
	})
	return n, err
}

// ReferenceOrientation reports whether output must be flipped so that the
// named reference taxon reads as A: true when its most frequent call is not
// AA. Ties go to the call listed first in the Call enumeration.
func ReferenceOrientation(m *genotype.Matrix, taxon string) (bool, error) {
	t := m.TaxonIndex(taxon)
	if t < 0 {
		return false, fmt.Errorf("%w: reference taxon %q not found", genotype.ErrMalformedInput, taxon)
	}
	counts := make(map[genotype.Call]int)
	for s := 0; s < m.NumSites(); s++ {
		if c := m.Genotype(t, s); !c.IsMissing() {
			counts[c]++
		}
	}
	best, bestCount := genotype.Missing, 0
	for c := genotype.AA; c <= genotype.GT; c++ {
		if counts[c] > bestCount {
			best, bestCount = c, counts[c]
		}
	}
	return best != genotype.AA, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
