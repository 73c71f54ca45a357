package sim

import (
	"fmt"
	"slices"

	"github.com/sirupsen/logrus"
)

// TransmissionEngine builds offspring haplotypes from two parents. The
// recombination rate selects the strategy: 0 copies one parental copy
// verbatim, 0.5 transmits every locus independently, and anything in
// between simulates crossover breakpoints.
// Thread-safety: NOT thread-safe.
type TransmissionEngine struct {
	rate    float64
	regions *RegionTable
	subPops []int // applicable offspring subpopulations; nil = all
	rng     *Stream
	metrics *Metrics
}

// NewTransmissionEngine creates an engine. metrics may be nil.
func NewTransmissionEngine(rate float64, regions *RegionTable, subPops []int, rng *Stream, metrics *Metrics) (*TransmissionEngine, error) {
	if rate < 0 || rate > 0.5 {
		return nil, fmt.Errorf("%w: recombination rate %v outside [0, 0.5]", ErrConfig, rate)
	}
	return &TransmissionEngine{rate: rate, regions: regions, subPops: subPops, rng: rng, metrics: metrics}, nil
}

// ApplyDuringMating fills offspring off of offPop from mother (copy 0) and
// father (copy 1) of pop. Offspring outside the applicable subpopulations
// are left untouched.
func (t *TransmissionEngine) ApplyDuringMating(pop, offPop *Population, off, mother, father int) error {
	if !t.applicable(offPop, off) {
		return nil
	}
	if pop.NumChrom() != offPop.NumChrom() || pop.NumChrom() != t.regions.NumChrom() {
		return fmt.Errorf("%w: parent and offspring chromosome counts differ", ErrConfig)
	}
	switch {
	case t.rate == 0:
		for ch := 0; ch < pop.NumChrom(); ch++ {
			t.write(offPop, off, 0, ch, Mutants(pop.Haplotype(mother, t.coin(), ch)))
			t.write(offPop, off, 1, ch, Mutants(pop.Haplotype(father, t.coin(), ch)))
		}
	case t.rate == 0.5:
		t.transmitUnion(pop, offPop, mother, off, 0)
		t.transmitUnion(pop, offPop, father, off, 1)
	default:
		t.transmitRecombined(pop, offPop, mother, off, 0)
		t.transmitRecombined(pop, offPop, father, off, 1)
	}
	return nil
}

func (t *TransmissionEngine) applicable(offPop *Population, off int) bool {
	if len(t.subPops) == 0 {
		return true
	}
	for _, sp := range t.subPops {
		if sp < 0 || sp >= offPop.NumSubPop() {
			continue
		}
		begin := offPop.SubPopBegin(sp)
		if off >= begin && off < begin+offPop.SubPopSize(sp) {
			return true
		}
	}
	return false
}

func (t *TransmissionEngine) coin() int {
	if t.rng.Bit() {
		return 1
	}
	return 0
}

// transmitUnion keeps loci on both parental copies and each single-copy
// locus with probability 0.5.
func (t *TransmissionEngine) transmitUnion(pop, offPop *Population, parent, off, ploidy int) {
	for ch := 0; ch < pop.NumChrom(); ch++ {
		counts := MutantCounts(Mutants(pop.Haplotype(parent, 0, ch)))
		for a, n := range MutantCounts(Mutants(pop.Haplotype(parent, 1, ch))) {
			counts[a] += n
		}
		loci := make([]Allele, 0, len(counts))
		for a := range counts {
			loci = append(loci, a)
		}
		slices.Sort(loci)

		alleles := make([]Allele, 0, len(loci))
		for _, a := range loci {
			if counts[a] >= 2 || t.rng.Bit() {
				alleles = append(alleles, a)
			}
		}
		t.write(offPop, off, ploidy, ch, alleles)
	}
}

// transmitRecombined copies intervals between geometric breakpoints,
// alternating parental copies after each breakpoint. Breakpoints are drawn
// until one falls past the chromosome end or every allele of both copies
// has been copied. Alleles skipped because their interval came from the
// other copy still count as remaining.
func (t *TransmissionEngine) transmitRecombined(pop, offPop *Population, parent, off, ploidy int) {
	for ch := 0; ch < pop.NumChrom(); ch++ {
		r := t.regions.Region(ch)
		width := r.Width()
		var beg uint64
		end := t.rng.Geometric(t.rate)
		p := 1
		if t.rng.Bit() {
			p = 0
		}
		if end >= width {
			t.write(offPop, off, ploidy, ch, Mutants(pop.Haplotype(parent, p, ch)))
			continue
		}

		copies := [2][]Allele{
			Mutants(pop.Haplotype(parent, 0, ch)),
			Mutants(pop.Haplotype(parent, 1, ch)),
		}
		remaining := [2]int{len(copies[0]), len(copies[1])}
		var alleles []Allele
		for {
			n := len(alleles)
			alleles = appendInterval(alleles, copies[p], r.Begin, beg, end)
			remaining[p] -= len(alleles) - n
			p = 1 - p
			beg = end
			step := t.rng.Geometric(t.rate)
			if step >= width-end {
				break
			}
			end += step
			if remaining[0] == 0 && remaining[1] == 0 {
				break
			}
		}
		if remaining[0] > 0 || remaining[1] > 0 {
			alleles = appendInterval(alleles, copies[p], r.Begin, beg, width)
		}
		t.write(offPop, off, ploidy, ch, alleles)
	}
}

// appendInterval appends the alleles of hap whose offset from begin lies in
// [lo, hi).
func appendInterval(dst, hap []Allele, begin, lo, hi uint64) []Allele {
	for _, a := range hap {
		if pos := uint64(a) - begin; pos >= lo && pos < hi {
			dst = append(dst, a)
		}
	}
	return dst
}

// write stores alleles left-packed into (off, ploidy, ch), growing the
// chromosome for the whole offspring population when it would not leave a
// trailing empty slot.
func (t *TransmissionEngine) write(offPop *Population, off, ploidy, ch int, alleles []Allele) {
	if need := len(alleles) + 1; need > offPop.NumLoci(ch) {
		add := need - offPop.NumLoci(ch) + 1
		logrus.Debugf("extending chromosome %d of offspring population to %d slots", ch, offPop.NumLoci(ch)+add)
		offPop.AddLoci(ch, add)
		t.metrics.recordSlotGrowth()
	}
	hap := offPop.Haplotype(off, ploidy, ch)
	n := copy(hap, alleles)
	clear(hap[n:])
}
