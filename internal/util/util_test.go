package util

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestOrder(t *testing.T) {
	values := []int{5, 1, 4, 1, 9}

	if got, want := Order(values), []int{1, 3, 2, 0, 4}; !reflect.DeepEqual(got, want) {
		t.Errorf("Order(%v) = %v, want %v", values, got, want)
	}
	if got, want := ReverseOrder(values), []int{4, 0, 2, 1, 3}; !reflect.DeepEqual(got, want) {
		t.Errorf("ReverseOrder(%v) = %v, want %v", values, got, want)
	}
}

func TestExists(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "a.txt")
	if err := os.WriteFile(file, []byte("x"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if !DirExists(dir) || DirExists(file) {
		t.Errorf("DirExists misreports %s / %s", dir, file)
	}
	if !FileExists(file) || FileExists(dir) {
		t.Errorf("FileExists misreports %s / %s", file, dir)
	}
	if FileExists(filepath.Join(dir, "missing")) {
		t.Errorf("FileExists reports a missing file")
	}

	nested := filepath.Join(dir, "out", "deep", "x.tsv")
	if err := EnsureParentDir(nested); err != nil {
		t.Fatalf("EnsureParentDir: %v", err)
	}
	if !DirExists(filepath.Dir(nested)) {
		t.Errorf("parent of %s was not created", nested)
	}
}
