package sim

import (
	"bytes"
	"slices"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/popgen-sim/infsites/sim/trace"
)

// newTestPop creates a population, failing the test on error.
func newTestPop(t *testing.T, subPopSizes []int, numLoci ...int) *Population {
	t.Helper()
	pop, err := NewPopulation(subPopSizes, numLoci)
	require.NoError(t, err)
	return pop
}

// newTestRegions creates a region table, failing the test on error.
func newTestRegions(t *testing.T, regions ...Region) *RegionTable {
	t.Helper()
	rt, err := NewRegionTable(regions)
	require.NoError(t, err)
	return rt
}

// setHap overwrites the slot array of (ind, p, ch) with the given mutants.
func setHap(t *testing.T, pop *Population, ind, p, ch int, mutants ...Allele) {
	t.Helper()
	require.LessOrEqual(t, len(mutants), pop.NumLoci(ch), "haplotype capacity")
	hap := pop.Haplotype(ind, p, ch)
	n := copy(hap, mutants)
	clear(hap[n:])
}

// hapOf returns a copy of the mutants of (ind, p, ch).
func hapOf(pop *Population, ind, p, ch int) []Allele {
	return slices.Clone(Mutants(pop.Haplotype(ind, p, ch)))
}

// assertLeftPacked fails when any slot array has a nonzero entry after a zero.
func assertLeftPacked(t *testing.T, pop *Population) {
	t.Helper()
	for ind := 0; ind < pop.Size(); ind++ {
		for p := 0; p < pop.Ploidy(); p++ {
			for ch := 0; ch < pop.NumChrom(); ch++ {
				hap := pop.Haplotype(ind, p, ch)
				n := len(Mutants(hap))
				for j := n; j < len(hap); j++ {
					if hap[j] != 0 {
						t.Fatalf("haplotype (%d, %d, %d) not left-packed: %v", ind, p, ch, hap)
					}
				}
			}
		}
	}
}

// bufferSink returns a sink writing into the returned buffer.
func bufferSink() (*trace.WriterSink, *bytes.Buffer) {
	var buf bytes.Buffer
	return trace.NewWriterSink(&buf), &buf
}

// constantFactory returns a factory resolving every locus to (s, h).
func constantFactory(t *testing.T, s, h float64) *SelectionCoefficientFactory {
	t.Helper()
	f, err := NewSelectionCoefficientFactory(nil, NullaryFunc(func() (CoefValue, error) {
		return Sequence(s, h), nil
	}), nil)
	require.NoError(t, err)
	return f
}
