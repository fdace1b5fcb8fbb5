package impute

import (
	"bufio"
	"io"
	"strconv"
)

var (
	plainHeader  = []string{"Snp", "allele", "chr", "pos", "cm"}
	hapmapHeader = []string{"rs#", "alleles", "chrom", "pos", "cm", "assembly#", "center", "protLSID", "assayLSID", "panelLSID", "QCcode"}
)

// hapmap rows pad the fixed columns after cm
const hapmapPadding = "\tNA\tNA\tNA\tNA\tNA\tNA"

// MarkerWriter receives imputed markers.
type MarkerWriter interface {
	WriteMarker(ImputedMarker) error
}

// TSVWriter writes imputed markers as a tab separated table, one row per
// marker, in the plain or hapmap compatible layout.
type TSVWriter struct {
	bw     *bufio.Writer
	hapmap bool
}

// NewTSVWriter writes the header for the given taxa columns.
func NewTSVWriter(w io.Writer, taxa []string, hapmap bool) (*TSVWriter, error) {
	bw := bufio.NewWriter(w)
	header := plainHeader
	if hapmap {
		header = hapmapHeader
	}
	for i, col := range header {
		if i > 0 {
			bw.WriteByte('\t')
		}
		bw.WriteString(col)
	}
	for _, name := range taxa {
		bw.WriteByte('\t')
		bw.WriteString(name)
	}
	if err := bw.WriteByte('\n'); err != nil {
		return nil, err
	}
	return &TSVWriter{bw: bw, hapmap: hapmap}, nil
}

func (tw *TSVWriter) WriteMarker(im ImputedMarker) error {
	tw.bw.WriteString(im.Name())
	tw.bw.WriteString("\tNA\t")
	tw.bw.WriteString(im.Chromosome)
	tw.bw.WriteByte('\t')
	tw.bw.WriteString(strconv.Itoa(im.Position))
	tw.bw.WriteByte('\t')
	tw.bw.WriteString(formatFloat(im.CM))
	if tw.hapmap {
		tw.bw.WriteString(hapmapPadding)
	}
	for _, v := range im.Values {
		tw.bw.WriteByte('\t')
		tw.bw.WriteString(v)
	}
	if err := tw.bw.WriteByte('\n'); err != nil {
		return err
	}
	// rows go out as soon as they are complete
	return tw.bw.Flush()
}

func (tw *TSVWriter) Flush() error {
	return tw.bw.Flush()
}
