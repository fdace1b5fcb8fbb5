package genotype

import (
	"fmt"
	"strings"
)

// Call is a diploid nucleotide genotype.
type Call uint8

const (
	Missing Call = iota
	AA
	CC
	GG
	TT
	AC // M
	AG // R
	AT // W
	CG // S
	CT // Y
	GT // K
	numCalls
)

// Nucleotide indices used for allele counting, in tie-break order.
const (
	NucA = iota
	NucC
	NucG
	NucT
	NumNucleotides
)

var nucleotideLetters = [NumNucleotides]byte{'A', 'C', 'G', 'T'}

var callIUPAC = [numCalls]byte{
	Missing: 'N',
	AA:      'A',
	CC:      'C',
	GG:      'G',
	TT:      'T',
	AC:      'M',
	AG:      'R',
	AT:      'W',
	CG:      'S',
	CT:      'Y',
	GT:      'K',
}

var callAlleles = [numCalls][2]int{
	Missing: {-1, -1},
	AA:      {NucA, NucA},
	CC:      {NucC, NucC},
	GG:      {NucG, NucG},
	TT:      {NucT, NucT},
	AC:      {NucA, NucC},
	AG:      {NucA, NucG},
	AT:      {NucA, NucT},
	CG:      {NucC, NucG},
	CT:      {NucC, NucT},
	GT:      {NucG, NucT},
}

// byPair[a][b] is the call made of nucleotides a and b.
var byPair = func() (t [NumNucleotides][NumNucleotides]Call) {
	for c := AA; c < numCalls; c++ {
		a := callAlleles[c]
		t[a[0]][a[1]] = c
		t[a[1]][a[0]] = c
	}
	return t
}()

func (c Call) IsMissing() bool {
	return c == Missing || c >= numCalls
}

func (c Call) IsHomozygous() bool {
	return c >= AA && c <= TT
}

func (c Call) IsHeterozygous() bool {
	return c >= AC && c < numCalls
}

// Alleles returns the nucleotide indices of both alleles, -1 when missing.
func (c Call) Alleles() (int, int) {
	if c.IsMissing() {
		return -1, -1
	}
	a := callAlleles[c]
	return a[0], a[1]
}

// Has reports whether the call carries the nucleotide.
func (c Call) Has(nuc int) bool {
	if c.IsMissing() || nuc < 0 {
		return false
	}
	a := callAlleles[c]
	return a[0] == nuc || a[1] == nuc
}

// IUPAC returns the single letter code, 'N' for missing.
func (c Call) IUPAC() byte {
	if c >= numCalls {
		return 'N'
	}
	return callIUPAC[c]
}

func (c Call) String() string {
	return string(c.IUPAC())
}

// Diploid returns the call as two allele letters, "NN" for missing.
func (c Call) Diploid() [2]byte {
	if c.IsMissing() {
		return [2]byte{'N', 'N'}
	}
	a := callAlleles[c]
	return [2]byte{nucleotideLetters[a[0]], nucleotideLetters[a[1]]}
}

// CallFromAlleles builds a call from two nucleotide letters.
func CallFromAlleles(a, b byte) (Call, error) {
	ia, ib := nucleotideIndex(a), nucleotideIndex(b)
	if ia < 0 || ib < 0 {
		if isMissingLetter(a) || isMissingLetter(b) {
			return Missing, nil
		}
		return Missing, fmt.Errorf("%w: bad allele pair %c%c", ErrMalformedInput, a, b)
	}
	return byPair[ia][ib], nil
}

// ParseCall reads a hapmap cell: one IUPAC letter, a two letter diploid code
// or a slash separated pair.
func ParseCall(s string) (Call, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "/", "")
	switch len(s) {
	case 1:
		b := s[0]
		if isMissingLetter(b) {
			return Missing, nil
		}
		for c := AA; c < numCalls; c++ {
			if callIUPAC[c] == b {
				return c, nil
			}
		}
	case 2:
		return CallFromAlleles(s[0], s[1])
	}
	return Missing, fmt.Errorf("%w: unknown genotype %q", ErrMalformedInput, s)
}

func nucleotideIndex(b byte) int {
	switch b {
	case 'A', 'a':
		return NucA
	case 'C', 'c':
		return NucC
	case 'G', 'g':
		return NucG
	case 'T', 't':
		return NucT
	}
	return -1
}

// NucleotideLetter returns 'A', 'C', 'G', 'T' for a nucleotide index, 'N' otherwise.
func NucleotideLetter(nuc int) byte {
	if nuc < 0 || nuc >= NumNucleotides {
		return 'N'
	}
	return nucleotideLetters[nuc]
}

func isMissingLetter(b byte) bool {
	return b == 'N' || b == 'n' || b == '-' || b == '0' || b == '?'
}
