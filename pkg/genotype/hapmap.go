package genotype

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// HapmapFixedColumns is the number of marker description columns that
// precede the taxa in a hapmap file.
const HapmapFixedColumns = 11

// HapmapHeader is the fixed part of a hapmap header line.
var HapmapHeader = []string{"rs#", "alleles", "chrom", "pos", "strand", "assembly#", "center", "protLSID", "assayLSID", "panelLSID", "QCcode"}

// ReadHapmap parses a tab separated hapmap table into a matrix.
func ReadHapmap(r io.Reader) (*Matrix, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 1<<20), 1<<28)

	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, err
		}
		return nil, &ParseError{Line: 1, Msg: "empty hapmap input"}
	}
	header := strings.Split(strings.TrimRight(scanner.Text(), "\r"), "\t")
	if len(header) < HapmapFixedColumns {
		return nil, &ParseError{Line: 1, Msg: fmt.Sprintf("header has %d columns, need at least %d", len(header), HapmapFixedColumns)}
	}
	taxa := header[HapmapFixedColumns:]

	var markers []Marker
	var calls [][]Call
	line := 1
	for scanner.Scan() {
		line++
		text := strings.TrimRight(scanner.Text(), "\r")
		if text == "" {
			continue
		}
		fields := strings.Split(text, "\t")
		if len(fields) != len(header) {
			return nil, &ParseError{Line: line, Msg: fmt.Sprintf("%d columns, header has %d", len(fields), len(header))}
		}
		pos, err := strconv.Atoi(fields[3])
		if err != nil {
			return nil, &ParseError{Line: line, Msg: fmt.Sprintf("bad position %q", fields[3])}
		}
		row := make([]Call, len(taxa))
		for t, cell := range fields[HapmapFixedColumns:] {
			c, err := ParseCall(cell)
			if err != nil {
				return nil, &ParseError{Line: line, Msg: err.Error()}
			}
			row[t] = c
		}
		markers = append(markers, Marker{Name: fields[0], Chromosome: fields[2], Position: pos})
		calls = append(calls, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return NewMatrix(taxa, markers, calls)
}

// WriteHapmap writes the matrix as a hapmap table with single letter calls.
func WriteHapmap(w io.Writer, m *Matrix) error {
	bw := bufio.NewWriter(w)

	bw.WriteString(strings.Join(HapmapHeader, "\t"))
	for _, name := range m.Taxa() {
		bw.WriteByte('\t')
		bw.WriteString(name)
	}
	bw.WriteByte('\n')

	for s := 0; s < m.NumSites(); s++ {
		mk := m.Marker(s)
		fmt.Fprintf(bw, "%s\t%s\t%s\t%d\t+\tNA\tNA\tNA\tNA\tNA\tNA", mk.Name, alleleColumn(m, s), mk.Chromosome, mk.Position)
		for _, c := range m.SiteCalls(s) {
			bw.WriteByte('\t')
			bw.WriteByte(c.IUPAC())
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}

	return bw.Flush()
}

func alleleColumn(m *Matrix, s int) string {
	major, minor := m.Allele(s, Major), m.Allele(s, Minor)
	switch {
	case major < 0:
		return "N"
	case minor < 0:
		return string(NucleotideLetter(major))
	}
	return string([]byte{NucleotideLetter(major), '/', NucleotideLetter(minor)})
}
