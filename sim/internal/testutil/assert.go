// Package testutil provides shared test helpers for the sim packages.
package testutil

import (
	"bufio"
	"math"
	"os"
	"strings"
	"testing"
)

// AssertFloat64Equal compares two float64 values with relative tolerance.
// Uses relative tolerance: |want - got| / max(|want|, 1) <= relTol.
func AssertFloat64Equal(t *testing.T, name string, want, got, relTol float64) {
	t.Helper()
	diff := math.Abs(want - got)
	denom := math.Max(math.Abs(want), 1.0)
	if diff/denom > relTol {
		t.Errorf("%s: got %v, want %v (diff=%v, relTol=%v)", name, got, want, diff, relTol)
	}
}

// ReadLines returns the lines of a trace file, failing the test if it
// cannot be read.
func ReadLines(t *testing.T, path string) []string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()
	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return lines
}

// SplitLines splits buffered trace output into lines, dropping the final
// empty line.
func SplitLines(s string) []string {
	s = strings.TrimSuffix(s, "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}
