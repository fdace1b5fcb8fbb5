package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/yumyai/recombmap/pkg/config"
	"github.com/yumyai/recombmap/pkg/genotype"
)

const hapmapInput = "rs#\talleles\tchrom\tpos\tstrand\tassembly#\tcenter\tprotLSID\tassayLSID\tpanelLSID\tQCcode\tp1\tp2\tx\n" +
	"s1\tA/C\t1\t100\t+\tNA\tNA\tNA\tNA\tNA\tNA\tA\tC\tA\n" +
	"s2\tA/C\t1\t200\t+\tNA\tNA\tNA\tNA\tNA\tNA\tA\tC\tC\n" +
	"s3\tA/C\t1\t400\t+\tNA\tNA\tNA\tNA\tNA\tNA\tA\tC\tC\n"

func testEnv(t *testing.T) (*env, string) {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.OutDir = filepath.Join(dir, "out")
	in := filepath.Join(dir, "in.hmp.txt")
	if err := os.WriteFile(in, []byte(hapmapInput), 0644); err != nil {
		t.Fatal(err)
	}
	return &env{cfg: cfg, log: zap.NewNop()}, in
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}

func TestRunCrossover(t *testing.T) {
	e, in := testEnv(t)
	if err := runCrossover(context.Background(), e, []string{"-in", in}); err != nil {
		t.Fatalf("runCrossover: %v", err)
	}
	got := readFile(t, filepath.Join(e.cfg.OutDir, "crossovers.txt"))
	if want := "taxon\tchr\tstart\tend\nx\t1\t100\t200\n"; got != want {
		t.Errorf("crossovers = %q, want %q", got, want)
	}
}

func TestRunCrossoverParents(t *testing.T) {
	e, in := testEnv(t)
	if err := runCrossoverParents(context.Background(), e, []string{"-in", in}); err != nil {
		t.Fatalf("runCrossoverParents: %v", err)
	}
	// A -> C is attributed to the paternal side
	if got := readFile(t, filepath.Join(e.cfg.OutDir, "crossovers.paternal.txt")); !strings.Contains(got, "x\t1\t100\t200\n") {
		t.Errorf("paternal = %q", got)
	}
	if got := readFile(t, filepath.Join(e.cfg.OutDir, "crossovers.maternal.txt")); got != "taxon\tchr\tstart\tend\n" {
		t.Errorf("maternal = %q", got)
	}
}

func TestRunClusterSeeded(t *testing.T) {
	e, in := testEnv(t)
	if err := runCluster(context.Background(), e, []string{"-in", in, "-parent1", "p1", "-parent2", "p2", "-seed", "3"}); err != nil {
		t.Fatalf("runCluster: %v", err)
	}
	first := readFile(t, filepath.Join(e.cfg.OutDir, "cluster1.hmp.txt"))
	second := readFile(t, filepath.Join(e.cfg.OutDir, "cluster2.hmp.txt"))
	if !strings.HasSuffix(strings.SplitN(first, "\n", 2)[0], "\tp1") {
		t.Errorf("first cluster header = %q", strings.SplitN(first, "\n", 2)[0])
	}
	if !strings.HasSuffix(strings.SplitN(second, "\n", 2)[0], "\tp2\tx") {
		t.Errorf("second cluster header = %q", strings.SplitN(second, "\n", 2)[0])
	}

	err := runCluster(context.Background(), e, []string{"-in", in, "-parent1", "nobody"})
	if exitCode(e.log, err) != 1 {
		t.Errorf("unknown parent: err = %v", err)
	}
}

func TestRunClusterTooFewTaxaExitsCleanly(t *testing.T) {
	e, in := testEnv(t)
	err := runCluster(context.Background(), e, []string{"-in", in, "-multi", "-seed", "1"})
	if err == nil {
		t.Fatal("three taxa clustered in multi-trial mode")
	}
	if code := exitCode(e.log, err); code != 0 {
		t.Errorf("exit code = %d for %v", code, err)
	}
}

func TestRunImpute(t *testing.T) {
	e, in := testEnv(t)
	mapFile := filepath.Join(filepath.Dir(in), "map.txt")
	if err := os.WriteFile(mapFile, []byte("chr\tpos\tcm\n1\t100\t1\n1\t400\t4\n"), 0644); err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(e.cfg.OutDir, "imputed.txt")
	if err := runImpute(context.Background(), e, []string{"-in", in, "-map", mapFile, "-out", out}); err != nil {
		t.Fatalf("runImpute: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(readFile(t, out)), "\n")
	if len(lines) != 5 {
		t.Fatalf("got %d lines:\n%s", len(lines), strings.Join(lines, "\n"))
	}
	if lines[0] != "Snp\tallele\tchr\tpos\tcm\tp1\tp2\tx" {
		t.Errorf("header = %q", lines[0])
	}
	if lines[3] != "S1_300\tNA\t1\t300\t3\t0\t2\t2" {
		t.Errorf("row = %q", lines[3])
	}
}

func TestRunHaplotypes(t *testing.T) {
	e, in := testEnv(t)
	e.cfg.HaplotypeDB = filepath.Join(filepath.Dir(in), "db", "haps.db")
	ctx := context.Background()
	if err := runHaplotypes(ctx, e, []string{"save", "-in", in}); err != nil {
		t.Fatalf("save: %v", err)
	}
	out := filepath.Join(e.cfg.OutDir, "haps.txt")
	if err := runHaplotypes(ctx, e, []string{"restore", "-out", out}); err != nil {
		t.Fatalf("restore: %v", err)
	}
	want := "p1\tAAA\tAAA\np2\tCCC\tCCC\nx\tACC\tACC\n"
	if got := readFile(t, out); got != want {
		t.Errorf("restored = %q, want %q", got, want)
	}
	if err := runHaplotypes(ctx, e, []string{"merge"}); err == nil {
		t.Errorf("unknown action accepted")
	}
}

func TestReadTaxaList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "exclude.txt")
	os.WriteFile(path, []byte("# dropped lines\nB97\n\n  Mo17 \n"), 0644)
	got, err := readTaxaList(path)
	if err != nil {
		t.Fatal(err)
	}
	if fmt.Sprint(got) != "[B97 Mo17]" {
		t.Errorf("taxa = %v", got)
	}
}

func TestWriteHaplotypesSorted(t *testing.T) {
	var buf bytes.Buffer
	haps := genotype.Haplotypes{"b": {[]byte("A"), []byte("C")}, "a": {[]byte("G"), []byte("G")}}
	if err := writeHaplotypes(&buf, haps); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "a\tG\tG\nb\tA\tC\n" {
		t.Errorf("output = %q", buf.String())
	}
}

func TestExitCode(t *testing.T) {
	log := zap.NewNop()
	if exitCode(log, nil) != 0 {
		t.Errorf("nil error")
	}
	if exitCode(log, fmt.Errorf("x: %w", genotype.ErrAmbiguousTrial)) != 0 {
		t.Errorf("ambiguous result should not fail")
	}
	if exitCode(log, fmt.Errorf("x: %w", genotype.ErrMalformedInput)) != 1 {
		t.Errorf("malformed input should fail")
	}
}
