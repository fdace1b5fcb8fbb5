package genmap

import (
	"errors"
	"strings"
	"testing"

	"github.com/yumyai/recombmap/pkg/genotype"
)

const testMap = `# chr	pos	cm
chr	pos	cm
1	1000	0
1	3000	2
1	2000	1
1	5000	2
1	9000	6
2	100	10
`

func loadTest(t *testing.T) *Table {
	t.Helper()
	tb, err := LoadTable(strings.NewReader(testMap))
	if err != nil {
		t.Fatalf("LoadTable: %v", err)
	}
	return tb
}

func TestCMFromPosition(t *testing.T) {
	tb := loadTest(t)
	tests := []struct {
		pos  int
		want float64
	}{
		{500, 0},
		{1000, 0},
		{1500, 0.5},
		{2000, 1},
		{4000, 2},
		{7000, 4},
		{9000, 6},
		{20000, 6},
	}
	for _, tt := range tests {
		got, err := tb.CMFromPosition("1", tt.pos)
		if err != nil {
			t.Fatalf("CMFromPosition(%d): %v", tt.pos, err)
		}
		if got != tt.want {
			t.Errorf("CMFromPosition(%d) = %v, want %v", tt.pos, got, tt.want)
		}
	}
}

func TestPositionFromCM(t *testing.T) {
	tb := loadTest(t)
	tests := []struct {
		cm   float64
		want int
	}{
		{-1, 1000},
		{0, 1000},
		{0.5, 1500},
		{1.5, 2500},
		{2, 3000}, // flat stretch 3000..5000 resolves to its left end
		{4, 7000},
		{6, 9000},
		{10, 9000},
	}
	for _, tt := range tests {
		got, err := tb.PositionFromCM("1", tt.cm)
		if err != nil {
			t.Fatalf("PositionFromCM(%v): %v", tt.cm, err)
		}
		if got != tt.want {
			t.Errorf("PositionFromCM(%v) = %d, want %d", tt.cm, got, tt.want)
		}
	}
}

func TestMonotonicRoundTrip(t *testing.T) {
	tb := loadTest(t)
	prev := -1.0
	for pos := 0; pos <= 10000; pos += 250 {
		cm, err := tb.CMFromPosition("1", pos)
		if err != nil {
			t.Fatal(err)
		}
		if cm < prev {
			t.Fatalf("cM decreased at %d: %v < %v", pos, cm, prev)
		}
		prev = cm
	}

	for _, pos := range []int{1000, 1500, 2750, 6000, 9000} {
		cm, _ := tb.CMFromPosition("1", pos)
		back, _ := tb.PositionFromCM("1", cm)
		if back != pos {
			t.Errorf("round trip %d -> %v -> %d", pos, cm, back)
		}
	}
}

func TestErrors(t *testing.T) {
	tb := loadTest(t)
	if _, err := tb.CMFromPosition("9", 1); !errors.Is(err, ErrUnknownChromosome) {
		t.Errorf("unknown chromosome err = %v", err)
	}
	if lo, hi, err := tb.Span("2"); err != nil || lo != 10 || hi != 10 {
		t.Errorf("Span(2) = %v, %v, %v", lo, hi, err)
	}

	_, err := LoadTable(strings.NewReader("1\t100\t5\n1\t200\t4\n"))
	if !errors.Is(err, genotype.ErrMalformedInput) {
		t.Errorf("decreasing map err = %v", err)
	}
	_, err = LoadTable(strings.NewReader("1\t100\t5\n1\tabc\t6\n"))
	if !errors.Is(err, genotype.ErrMalformedInput) {
		t.Errorf("bad position err = %v", err)
	}
}
