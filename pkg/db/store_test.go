package db

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/yumyai/recombmap/pkg/genotype"
)

func openTemp(t *testing.T) *HaplotypeStore {
	t.Helper()
	hs, err := Open(context.Background(), filepath.Join(t.TempDir(), "sub", "haps.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { hs.Close() })
	return hs
}

func TestSaveRestore(t *testing.T) {
	hs := openTemp(t)
	ctx := context.Background()

	first := genotype.Haplotypes{
		"B73":  {[]byte("ACGN"), []byte("ACTN")},
		"Mo17": {[]byte("CCCC"), []byte("CCCC")},
	}
	second := genotype.Haplotypes{
		"W22": {[]byte("TT"), []byte("GT")},
	}

	id1, err := hs.Save(ctx, first)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	id2, err := hs.Save(ctx, second)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if id1 == id2 {
		t.Fatalf("snapshot ids collide: %s", id1)
	}

	got, id, err := hs.Restore(ctx, id1)
	if err != nil {
		t.Fatalf("Restore(%s): %v", id1, err)
	}
	if id != id1 || !reflect.DeepEqual(got, first) {
		t.Errorf("Restore(%s) = %v (%s), want %v", id1, got, id, first)
	}

	got, id, err = hs.Restore(ctx, "")
	if err != nil {
		t.Fatalf("Restore latest: %v", err)
	}
	if id != id2 || !reflect.DeepEqual(got, second) {
		t.Errorf("latest = %v (%s), want %v (%s)", got, id, second, id2)
	}

	snaps, err := hs.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(snaps) != 2 || snaps[0].ID != id1 || snaps[0].Taxa != 2 || snaps[1].ID != id2 {
		t.Errorf("List = %+v", snaps)
	}
}

func TestRestoreMissing(t *testing.T) {
	hs := openTemp(t)
	ctx := context.Background()
	if _, _, err := hs.Restore(ctx, ""); !errors.Is(err, ErrSnapshotNotExists) {
		t.Errorf("empty store: err = %v", err)
	}
	if _, _, err := hs.Restore(ctx, "no-such-id"); !errors.Is(err, ErrSnapshotNotExists) {
		t.Errorf("unknown id: err = %v", err)
	}
}

func TestSaveRejectsUnevenHaplotypes(t *testing.T) {
	hs := openTemp(t)
	_, err := hs.Save(context.Background(), genotype.Haplotypes{"x": {[]byte("AC"), []byte("A")}})
	if !errors.Is(err, genotype.ErrMalformedInput) {
		t.Errorf("err = %v", err)
	}
	if snaps, _ := hs.List(context.Background()); len(snaps) != 0 {
		t.Errorf("rejected save left %d snapshots", len(snaps))
	}
}

func TestPhasedMatrixRoundTrip(t *testing.T) {
	markers := []genotype.Marker{
		{Name: "s1", Chromosome: "1", Position: 10},
		{Name: "s2", Chromosome: "1", Position: 20},
	}
	m, err := genotype.ParseRows([]string{"a", "b"}, markers, []string{"AM", "NC"})
	if err != nil {
		t.Fatal(err)
	}
	haps := genotype.PhasedHaplotypes(m)

	hs := openTemp(t)
	id, err := hs.Save(context.Background(), haps)
	if err != nil {
		t.Fatal(err)
	}
	got, _, err := hs.Restore(context.Background(), id)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, haps) {
		t.Errorf("round trip = %v, want %v", got, haps)
	}
}
