package crossover

import (
	"bufio"
	"io"
	"strconv"
)

// Header is the first line of every crossover table.
const Header = "taxon\tchr\tstart\tend"

// TSVWriter writes intervals as tab separated rows after a header line.
type TSVWriter struct {
	bw *bufio.Writer
}

func NewTSVWriter(w io.Writer) (*TSVWriter, error) {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(Header + "\n"); err != nil {
		return nil, err
	}
	return &TSVWriter{bw: bw}, nil
}

func (tw *TSVWriter) WriteInterval(iv Interval) error {
	tw.bw.WriteString(iv.Taxon)
	tw.bw.WriteByte('\t')
	tw.bw.WriteString(iv.Chromosome)
	tw.bw.WriteByte('\t')
	tw.bw.WriteString(strconv.Itoa(iv.Start))
	tw.bw.WriteByte('\t')
	tw.bw.WriteString(strconv.Itoa(iv.End))
	return tw.bw.WriteByte('\n')
}

// Flush pushes buffered rows to the underlying writer.
func (tw *TSVWriter) Flush() error {
	return tw.bw.Flush()
}
