package crossover

import "github.com/yumyai/recombmap/pkg/genotype"

// Origin is the parent a crossover is attributed to.
type Origin uint8

const (
	Maternal Origin = 1 << iota
	Paternal
	Both     = Maternal | Paternal
	NoOrigin = Origin(0)
)

func (o Origin) String() string {
	switch o {
	case Maternal:
		return "maternal"
	case Paternal:
		return "paternal"
	case Both:
		return "both"
	}
	return "none"
}

// Each homozygote stands for one pairing of maternal and paternal
// haplotypes: AA m1p1, CC m1p2, GG m2p1, TT m2p2.
func parentClass(c genotype.Call) (int, bool) {
	if !c.IsHomozygous() {
		return 0, false
	}
	return int(c - genotype.AA), true
}

// originTable[from][to] over AA, CC, GG, TT.
var originTable = [4][4]Origin{
	//        AA        CC        GG        TT
	/* AA */ {NoOrigin, Paternal, Maternal, Both},
	/* CC */ {Paternal, NoOrigin, Both, Maternal},
	/* GG */ {Maternal, Both, NoOrigin, Paternal},
	/* TT */ {Both, Maternal, Paternal, NoOrigin},
}

// Classify attributes a change of call. Anything involving a heterozygous or
// missing call has no origin.
func Classify(from, to genotype.Call) Origin {
	i, ok := parentClass(from)
	if !ok {
		return NoOrigin
	}
	j, ok := parentClass(to)
	if !ok {
		return NoOrigin
	}
	return originTable[i][j]
}
