// Package sim provides the forward-time infinite-sites engine.
//
// # Reading Guide
//
// Start with these files to understand one generation:
//   - population.go: the flat haplotype store every operator reads and writes
//   - mutator.go: geometric mutation placement and collision relocation
//   - fitness.go: per-individual fitness from memoized selection coefficients
//   - transmit.go: offspring haplotypes with or without recombination
//   - fixation.go: removal of loci carried by every haplotype
//   - simulator.go: the generation loop tying the operators together
//
// # Architecture
//
// Operators hold no population state of their own except the mutation
// occupancy set and the coefficient cache, both of which persist across
// generations of one replicate. All random draws of a replicate come from a
// single Stream in a fixed nested order, so a seed and a config reproduce a
// run exactly. Replicates are independent and run in parallel (replicate.go).
//
// Sub-packages:
//   - sim/dist/: coefficient distributions (constant, gamma)
//   - sim/trace/: output records, line formats and sinks
//   - sim/store/: population snapshots (memory, sqlite)
package sim
