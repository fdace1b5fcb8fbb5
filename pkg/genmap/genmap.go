// Package genmap converts between physical and genetic (cM) positions.
package genmap

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/yumyai/recombmap/internal/util"
	"github.com/yumyai/recombmap/pkg/genotype"
)

var ErrUnknownChromosome = errors.New("chromosome not in genetic map")

// Oracle maps positions monotonically in both directions, per chromosome.
type Oracle interface {
	CMFromPosition(chromosome string, position int) (float64, error)
	PositionFromCM(chromosome string, cm float64) (int, error)
}

type anchor struct {
	pos int
	cm  float64
}

// Table is an Oracle backed by anchor points. Positions between anchors are
// interpolated linearly; positions outside the anchors are clamped to the
// first or last anchor.
type Table struct {
	chromosomes map[string][]anchor
}

// NewTable returns an empty table. Anchors may be added in any order; call
// Finalize before querying.
func NewTable() *Table {
	return &Table{chromosomes: make(map[string][]anchor)}
}

// Add registers one anchor.
func (tb *Table) Add(chromosome string, position int, cm float64) {
	tb.chromosomes[chromosome] = append(tb.chromosomes[chromosome], anchor{pos: position, cm: cm})
}

// Finalize sorts the anchors and checks monotonicity.
func (tb *Table) Finalize() error {
	for chr, anchors := range tb.chromosomes {
		positions := make([]int, len(anchors))
		for i, a := range anchors {
			positions[i] = a.pos
		}
		sorted := make([]anchor, len(anchors))
		for i, j := range util.Order(positions) {
			sorted[i] = anchors[j]
		}
		for i := 1; i < len(sorted); i++ {
			if sorted[i].pos == sorted[i-1].pos {
				return fmt.Errorf("%w: chromosome %s has two anchors at %d", genotype.ErrMalformedInput, chr, sorted[i].pos)
			}
			if sorted[i].cm < sorted[i-1].cm {
				return fmt.Errorf("%w: chromosome %s is not monotonic at %d", genotype.ErrMalformedInput, chr, sorted[i].pos)
			}
		}
		tb.chromosomes[chr] = sorted
	}
	return nil
}

// LoadTable reads a tab separated map with columns chromosome, position, cM.
// Lines starting with '#' are ignored, as is a header line whose position
// column is not numeric.
func LoadTable(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.Comment = '#'
	cr.FieldsPerRecord = -1

	tb := NewTable()
	line := 0
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", genotype.ErrMalformedInput, err)
		}
		line++
		if len(rec) < 3 {
			return nil, &genotype.ParseError{Line: line, Msg: fmt.Sprintf("%d columns, need 3", len(rec))}
		}
		pos, err := strconv.Atoi(strings.TrimSpace(rec[1]))
		if err != nil {
			if line == 1 {
				continue
			}
			return nil, &genotype.ParseError{Line: line, Msg: fmt.Sprintf("bad position %q", rec[1])}
		}
		cm, err := strconv.ParseFloat(strings.TrimSpace(rec[2]), 64)
		if err != nil {
			return nil, &genotype.ParseError{Line: line, Msg: fmt.Sprintf("bad genetic position %q", rec[2])}
		}
		tb.Add(strings.TrimSpace(rec[0]), pos, cm)
	}

	if err := tb.Finalize(); err != nil {
		return nil, err
	}
	return tb, nil
}

func (tb *Table) lookup(chromosome string) ([]anchor, error) {
	anchors := tb.chromosomes[chromosome]
	if len(anchors) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownChromosome, chromosome)
	}
	return anchors, nil
}

func (tb *Table) CMFromPosition(chromosome string, position int) (float64, error) {
	anchors, err := tb.lookup(chromosome)
	if err != nil {
		return 0, err
	}
	if position <= anchors[0].pos {
		return anchors[0].cm, nil
	}
	last := anchors[len(anchors)-1]
	if position >= last.pos {
		return last.cm, nil
	}

	// first anchor strictly right of position
	i := sort.Search(len(anchors), func(i int) bool { return anchors[i].pos > position })
	left, right := anchors[i-1], anchors[i]
	frac := float64(position-left.pos) / float64(right.pos-left.pos)
	return left.cm + frac*(right.cm-left.cm), nil
}

func (tb *Table) PositionFromCM(chromosome string, cm float64) (int, error) {
	anchors, err := tb.lookup(chromosome)
	if err != nil {
		return 0, err
	}
	if cm <= anchors[0].cm {
		return anchors[0].pos, nil
	}
	last := anchors[len(anchors)-1]
	if cm >= last.cm {
		return last.pos, nil
	}

	// first anchor at or beyond cm; flat stretches resolve to their left end
	i := sort.Search(len(anchors), func(i int) bool { return anchors[i].cm >= cm })
	left, right := anchors[i-1], anchors[i]
	if right.cm == left.cm {
		return left.pos, nil
	}
	frac := (cm - left.cm) / (right.cm - left.cm)
	return left.pos + int(math.Round(frac*float64(right.pos-left.pos))), nil
}

// Span returns the first and last genetic positions of a chromosome.
func (tb *Table) Span(chromosome string) (float64, float64, error) {
	anchors, err := tb.lookup(chromosome)
	if err != nil {
		return 0, 0, err
	}
	return anchors[0].cm, anchors[len(anchors)-1].cm, nil
}
