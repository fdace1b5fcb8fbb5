package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/yumyai/recombmap/internal/util"
	"github.com/yumyai/recombmap/pkg/cluster"
	"github.com/yumyai/recombmap/pkg/config"
	"github.com/yumyai/recombmap/pkg/crossover"
	"github.com/yumyai/recombmap/pkg/db"
	"github.com/yumyai/recombmap/pkg/genmap"
	"github.com/yumyai/recombmap/pkg/genotype"
	"github.com/yumyai/recombmap/pkg/impute"
)

type env struct {
	cfg *config.Config
	log *zap.Logger
}

type command struct {
	name    string
	summary string
	run     func(ctx context.Context, e *env, args []string) error
}

var commandOrder = []string{"cluster", "crossover", "crossover-parents", "impute", "haplotypes", "stats"}

var commands = map[string]command{
	"cluster":           {"cluster", "split taxa into two subpopulations", runCluster},
	"crossover":         {"crossover", "export crossover intervals", runCrossover},
	"crossover-parents": {"crossover-parents", "export crossovers by parent of origin", runCrossoverParents},
	"impute":            {"impute", "interpolate markers on a genetic map grid", runImpute},
	"haplotypes":        {"haplotypes", "save, restore or list phased haplotype snapshots", runHaplotypes},
	"stats":             {"stats", "print allele frequency statistics", runStats},
}

func newFlags(name string) *flag.FlagSet {
	return flag.NewFlagSet(name, flag.ContinueOnError)
}

func (e *env) outPath(flagValue, name string) string {
	if flagValue != "" {
		return flagValue
	}
	return filepath.Join(e.cfg.OutDir, name)
}

func readMatrix(e *env, path string) (*genotype.Matrix, error) {
	if path == "" {
		return nil, fmt.Errorf("no genotype input given (-in)")
	}
	if !util.FileExists(path) {
		return nil, fmt.Errorf("%w: %s", os.ErrNotExist, path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	m, err := genotype.ReadHapmap(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	e.log.Info("Read genotypes", zap.String("file", path), zap.Int("taxa", m.NumTaxa()), zap.Int("sites", m.NumSites()))
	return m, nil
}

// createOutput opens path for writing, creating its directory.
func createOutput(path string) (*os.File, error) {
	if err := util.EnsureParentDir(path); err != nil {
		return nil, err
	}
	return os.Create(path)
}

func writeHapmapFile(path string, m *genotype.Matrix) (err error) {
	f, err := createOutput(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return genotype.WriteHapmap(f, m)
}

func logAlleleStats(log *zap.Logger, m *genotype.Matrix) genotype.AlleleStats {
	st := genotype.ComputeAlleleStats(m)
	log.Info("allele stats", zap.Int("monomorphic", st.Mono), zap.Int("polymorphic", st.Poly),
		zap.Ints("bins", st.Bins[:]))
	return st
}

func runCluster(ctx context.Context, e *env, args []string) error {
	cc := e.cfg.Cluster
	fs := newFlags("cluster")
	in := fs.String("in", "", "hapmap genotype file")
	out1 := fs.String("out1", "", "hapmap output of the first cluster (default <output_dir>/cluster1.hmp.txt)")
	out2 := fs.String("out2", "", "hapmap output of the second cluster (default <output_dir>/cluster2.hmp.txt)")
	parent1 := fs.String("parent1", cc.Parent1, "taxon seeding the first cluster")
	parent2 := fs.String("parent2", cc.Parent2, "taxon seeding the second cluster")
	multi := fs.Bool("multi", false, "run unseeded multi-trial clustering over well covered taxa")
	seed := fs.Int64("seed", e.cfg.Seed, "random seed, 0 picks one from the clock")
	if err := fs.Parse(args); err != nil {
		return err
	}

	m, err := readMatrix(e, *in)
	if err != nil {
		return err
	}
	logAlleleStats(e.log, m)

	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}
	e.log.Info("random source", zap.Int64("seed", *seed))
	p := &cluster.Partitioner{
		Rand:          rand.New(rand.NewSource(*seed)),
		MaxIterations: cc.MaxIterations,
		Trials:        cc.Trials,
		MinTaxa:       cc.MinTaxa,
	}

	var part *cluster.Partition
	if *multi {
		part, err = p.MultiTrial(ctx, m, cluster.Coverage{MinCount: cc.MinNonMissing, MinFraction: cc.MinCoverage})
	} else {
		var parents [2]int
		for i, name := range []string{*parent1, *parent2} {
			parents[i] = cluster.Unknown
			if name == "" {
				continue
			}
			if parents[i] = m.TaxonIndex(name); parents[i] < 0 {
				return fmt.Errorf("%w: parent %q not among the taxa", genotype.ErrMalformedInput, name)
			}
		}
		part, err = p.Seeded(ctx, m, parents)
	}
	if err != nil {
		return err
	}

	e.log.Info("partitioned taxa", zap.Int("first", len(part.First)), zap.Int("second", len(part.Second)),
		zap.Float64("distance", part.Distance), zap.Int("trial", part.Trial))
	first, second := part.Matrices(m)
	if err := writeHapmapFile(e.outPath(*out1, "cluster1.hmp.txt"), first); err != nil {
		return err
	}
	return writeHapmapFile(e.outPath(*out2, "cluster2.hmp.txt"), second)
}

// intervalFile is a crossover table on disk.
type intervalFile struct {
	f  *os.File
	tw *crossover.TSVWriter
}

func createIntervalFile(path string) (*intervalFile, error) {
	f, err := createOutput(path)
	if err != nil {
		return nil, err
	}
	tw, err := crossover.NewTSVWriter(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	return &intervalFile{f: f, tw: tw}, nil
}

// Close flushes what was written, including after a failed run.
func (iv *intervalFile) Close() error {
	ferr := iv.tw.Flush()
	if err := iv.f.Close(); ferr == nil {
		ferr = err
	}
	return ferr
}

func detector(boundary string) (*crossover.Detector, error) {
	b, err := crossover.ParseBoundary(boundary)
	if err != nil {
		return nil, err
	}
	return &crossover.Detector{Boundary: b}, nil
}

func runCrossover(ctx context.Context, e *env, args []string) (err error) {
	fs := newFlags("crossover")
	in := fs.String("in", "", "hapmap genotype file")
	out := fs.String("out", "", "crossover table (default <output_dir>/crossovers.txt)")
	boundary := fs.String("boundary", e.cfg.Crossover.Boundary, "interval start rule: breakpoint or segment")
	if err := fs.Parse(args); err != nil {
		return err
	}
	d, err := detector(*boundary)
	if err != nil {
		return err
	}
	m, err := readMatrix(e, *in)
	if err != nil {
		return err
	}

	w, err := createIntervalFile(e.outPath(*out, "crossovers.txt"))
	if err != nil {
		return err
	}
	defer func() {
		if cerr := w.Close(); err == nil {
			err = cerr
		}
	}()

	n, err := d.Export(ctx, m, w.tw)
	e.log.Info("exported crossovers", zap.Int("intervals", n), zap.String("file", w.f.Name()))
	return err
}

func runCrossoverParents(ctx context.Context, e *env, args []string) (err error) {
	fs := newFlags("crossover-parents")
	in := fs.String("in", "", "hapmap genotype file")
	maternal := fs.String("maternal", "", "maternal crossover table (default <output_dir>/crossovers.maternal.txt)")
	paternal := fs.String("paternal", "", "paternal crossover table (default <output_dir>/crossovers.paternal.txt)")
	boundary := fs.String("boundary", e.cfg.Crossover.Boundary, "interval start rule: breakpoint or segment")
	if err := fs.Parse(args); err != nil {
		return err
	}
	d, err := detector(*boundary)
	if err != nil {
		return err
	}
	m, err := readMatrix(e, *in)
	if err != nil {
		return err
	}

	mw, err := createIntervalFile(e.outPath(*maternal, "crossovers.maternal.txt"))
	if err != nil {
		return err
	}
	defer func() {
		if cerr := mw.Close(); err == nil {
			err = cerr
		}
	}()
	pw, err := createIntervalFile(e.outPath(*paternal, "crossovers.paternal.txt"))
	if err != nil {
		return err
	}
	defer func() {
		if cerr := pw.Close(); err == nil {
			err = cerr
		}
	}()

	counts, err := d.ExportByParent(ctx, m, mw.tw, pw.tw)
	e.log.Info("exported crossovers by parent", zap.Int("maternal", counts.Maternal), zap.Int("paternal", counts.Paternal))
	return err
}

// readTaxaList reads one taxon name per line, ignoring blanks and '#' lines.
func readTaxaList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var names []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		names = append(names, line)
	}
	return names, sc.Err()
}

func loadGeneticMap(path string) (*genmap.Table, error) {
	if path == "" {
		return nil, fmt.Errorf("no genetic map given (-map or genetic_map)")
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tb, err := genmap.LoadTable(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return tb, nil
}

func runImpute(ctx context.Context, e *env, args []string) (err error) {
	ic := e.cfg.Impute
	fs := newFlags("impute")
	in := fs.String("in", "", "hapmap genotype file")
	mapFile := fs.String("map", e.cfg.GeneticMap, "genetic map table (chr, pos, cm)")
	out := fs.String("out", "", "imputed marker table (default <output_dir>/imputed.<interval>cm.txt)")
	interval := fs.Float64("interval", ic.Interval, "grid step in cM")
	hapmap := fs.Bool("hapmap", ic.HapmapFormat, "write the hapmap compatible header")
	nucleotides := fs.Bool("nucleotides", ic.Nucleotides, "write A/M/C instead of dosages")
	reference := fs.String("reference", ic.ReferenceTaxon, "taxon whose majority call is written as A")
	exclude := fs.String("exclude", ic.ExcludeFile, "file of taxa to leave out, one per line")
	if err := fs.Parse(args); err != nil {
		return err
	}

	m, err := readMatrix(e, *in)
	if err != nil {
		return err
	}
	gm, err := loadGeneticMap(*mapFile)
	if err != nil {
		return err
	}

	ip := &impute.Interpolator{Oracle: gm, Step: *interval, Nucleotides: *nucleotides}
	if *reference != "" {
		if ip.Flip, err = impute.ReferenceOrientation(m, *reference); err != nil {
			return err
		}
		e.log.Info("reference orientation", zap.String("taxon", *reference), zap.Bool("flip", ip.Flip))
	}
	if *exclude != "" {
		if ip.Exclude, err = readTaxaList(*exclude); err != nil {
			return err
		}
		e.log.Info("excluding taxa", zap.Int("count", len(ip.Exclude)))
	}

	path := e.outPath(*out, fmt.Sprintf("imputed.%gcm.txt", *interval))
	f, err := createOutput(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	var taxa []string
	for _, t := range ip.OutputTaxa(m) {
		taxa = append(taxa, m.TaxonName(t))
	}
	tw, err := impute.NewTSVWriter(f, taxa, *hapmap)
	if err != nil {
		return err
	}
	defer tw.Flush()

	n, err := ip.Export(ctx, m, tw)
	e.log.Info("imputed markers", zap.Int("markers", n), zap.Int("taxa", len(taxa)), zap.String("file", path))
	return err
}

func runHaplotypes(ctx context.Context, e *env, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("haplotypes: expected save, restore or list")
	}
	fs := newFlags("haplotypes " + args[0])
	dbPath := fs.String("db", e.cfg.HaplotypeDB, "sqlite snapshot store")
	in := fs.String("in", "", "hapmap genotype file (save)")
	id := fs.String("id", "", "snapshot to restore, latest when empty (restore)")
	out := fs.String("out", "", "haplotype table (restore, default stdout)")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}

	store, err := db.Open(ctx, *dbPath)
	if err != nil {
		return err
	}
	defer store.Close()
	e.log.Info("Open database on", zap.String("DB_LOC", *dbPath))

	switch args[0] {
	case "save":
		m, err := readMatrix(e, *in)
		if err != nil {
			return err
		}
		sid, err := store.Save(ctx, genotype.PhasedHaplotypes(m))
		if err != nil {
			return err
		}
		e.log.Info("saved haplotypes", zap.String("snapshot", sid), zap.Int("taxa", m.NumTaxa()))
		fmt.Println(sid)
		return nil

	case "restore":
		haps, sid, err := store.Restore(ctx, *id)
		if err != nil {
			return err
		}
		e.log.Info("restored haplotypes", zap.String("snapshot", sid), zap.Int("taxa", len(haps)))
		if *out == "" {
			return writeHaplotypes(os.Stdout, haps)
		}
		f, err := createOutput(*out)
		if err != nil {
			return err
		}
		defer f.Close()
		return writeHaplotypes(f, haps)

	case "list":
		snaps, err := store.List(ctx)
		if err != nil {
			return err
		}
		for _, s := range snaps {
			fmt.Printf("%s\t%s\t%d\n", s.ID, s.Created.Format(time.RFC3339), s.Taxa)
		}
		return nil
	}
	return fmt.Errorf("haplotypes: unknown action %q", args[0])
}

// writeHaplotypes writes taxon, hap0, hap1 rows sorted by taxon.
func writeHaplotypes(w io.Writer, haps genotype.Haplotypes) error {
	names := make([]string, 0, len(haps))
	for name := range haps {
		names = append(names, name)
	}
	sort.Strings(names)

	bw := bufio.NewWriter(w)
	for _, name := range names {
		h := haps[name]
		fmt.Fprintf(bw, "%s\t%s\t%s\n", name, h[0], h[1])
	}
	return bw.Flush()
}

func runStats(ctx context.Context, e *env, args []string) error {
	fs := newFlags("stats")
	in := fs.String("in", "", "hapmap genotype file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	m, err := readMatrix(e, *in)
	if err != nil {
		return err
	}
	st := logAlleleStats(e.log, m)

	fmt.Printf("monomorphic\t%d\npolymorphic\t%d\n", st.Mono, st.Poly)
	width := 1.0 / float64(len(st.Bins))
	for i, n := range st.Bins {
		fmt.Printf("%.2f-%.2f\t%d\n", float64(i)*width, float64(i+1)*width, n)
	}
	return nil
}
