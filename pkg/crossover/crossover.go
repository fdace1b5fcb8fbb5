// Package crossover finds recombination breakpoints along each taxon's
// ordered genotype calls.
package crossover

import (
	"context"
	"fmt"

	"github.com/yumyai/recombmap/pkg/genotype"
)

// Boundary selects how the start of an interval moves between switches.
type Boundary int

const (
	// Breakpoint moves the start to every marker that repeats the current
	// call, so an interval spans the last marker of the old state to the
	// first marker of the new one.
	Breakpoint Boundary = iota
	// Segment keeps the start at the first marker of the current state, so
	// consecutive intervals of a taxon chain end to start.
	Segment
)

func ParseBoundary(s string) (Boundary, error) {
	switch s {
	case "", "breakpoint":
		return Breakpoint, nil
	case "segment":
		return Segment, nil
	}
	return Breakpoint, fmt.Errorf("unknown boundary %q", s)
}

// Interval is one detected crossover.
type Interval struct {
	Taxon      string
	Chromosome string
	Start      int
	End        int
}

// Transition is an emitted interval with the calls on either side of it.
type Transition struct {
	Interval
	TaxonIndex int
	From, To   genotype.Call
}

// IntervalWriter receives detected intervals.
type IntervalWriter interface {
	WriteInterval(Interval) error
}

// Detector walks a matrix ordered by chromosome and position.
type Detector struct {
	Boundary Boundary
}

const cancelCheckEvery = 4096

// Detect calls emit for every change of call, in marker order. Missing calls
// are skipped; a new chromosome resets every taxon to that chromosome's
// first calls without emitting.
func (d *Detector) Detect(ctx context.Context, m *genotype.Matrix, emit func(Transition) error) error {
	ntaxa := m.NumTaxa()
	current := make([]genotype.Call, ntaxa)
	start := make([]int, ntaxa)

	for _, block := range m.Blocks() {
		if err := ctx.Err(); err != nil {
			return err
		}
		first := m.Position(block.Start)
		copy(current, m.SiteCalls(block.Start))
		for t := range start {
			start[t] = first
		}

		for s := block.Start + 1; s < block.End; s++ {
			if (s-block.Start)%cancelCheckEvery == 0 {
				if err := ctx.Err(); err != nil {
					return err
				}
			}
			pos := m.Position(s)
			for t, call := range m.SiteCalls(s) {
				switch {
				case current[t].IsMissing():
					if !call.IsMissing() {
						current[t] = call
						start[t] = pos
					}
				case call.IsMissing():
				case call != current[t]:
					tr := Transition{
						Interval:   Interval{Taxon: m.TaxonName(t), Chromosome: block.Chromosome, Start: start[t], End: pos},
						TaxonIndex: t,
						From:       current[t],
						To:         call,
					}
					if err := emit(tr); err != nil {
						return err
					}
					current[t] = call
					start[t] = pos
				default:
					if d.Boundary == Breakpoint {
						start[t] = pos
					}
				}
			}
		}
	}
	return nil
}

// Export writes every crossover to w and returns how many were written.
func (d *Detector) Export(ctx context.Context, m *genotype.Matrix, w IntervalWriter) (int, error) {
	n := 0
	err := d.Detect(ctx, m, func(tr Transition) error {
		n++
		return w.WriteInterval(tr.Interval)
	})
	return n, err
}

// ParentCounts reports how many intervals went to each parent.
type ParentCounts struct {
	Maternal int
	Paternal int
}

// ExportByParent writes each crossover between two homozygous parent
// classes to the writer of the parent it is attributed to; a switch to the
// reciprocal homozygote goes to both. Other switches are not written.
func (d *Detector) ExportByParent(ctx context.Context, m *genotype.Matrix, maternal, paternal IntervalWriter) (ParentCounts, error) {
	var counts ParentCounts
	err := d.Detect(ctx, m, func(tr Transition) error {
		origin := Classify(tr.From, tr.To)
		if origin&Maternal != 0 {
			counts.Maternal++
			if err := maternal.WriteInterval(tr.Interval); err != nil {
				return err
			}
		}
		if origin&Paternal != 0 {
			counts.Paternal++
			if err := paternal.WriteInterval(tr.Interval); err != nil {
				return err
			}
		}
		return nil
	})
	return counts, err
}
