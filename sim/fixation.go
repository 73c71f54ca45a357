package sim

import (
	"slices"

	"github.com/popgen-sim/infsites/sim/trace"
)

// FixationReverter removes loci carried by every haplotype of the population.
// Fixed loci become part of the ancestral background and are no longer
// tracked.
type FixationReverter struct {
	sink    trace.Sink
	metrics *Metrics
}

// NewFixationReverter creates a reverter. sink and metrics may be nil.
func NewFixationReverter(sink trace.Sink, metrics *Metrics) *FixationReverter {
	return &FixationReverter{sink: sink, metrics: metrics}
}

// FixedLoci returns the loci present on both copies of every individual, in
// ascending order. It stops as soon as the running intersection is empty.
func FixedLoci(pop *Population) []Allele {
	if pop.Size() == 0 || pop.TotNumLoci() == 0 {
		return nil
	}
	common := alleleSet(copySlots(pop, 0, 0))
	for ind := 0; ind < pop.Size() && len(common) > 0; ind++ {
		for p := 0; p < pop.Ploidy() && len(common) > 0; p++ {
			carried := alleleSet(copySlots(pop, ind, p))
			for a := range common {
				if _, ok := carried[a]; !ok {
					delete(common, a)
				}
			}
		}
	}
	if len(common) == 0 {
		return nil
	}
	fixed := make([]Allele, 0, len(common))
	for a := range common {
		fixed = append(fixed, a)
	}
	slices.Sort(fixed)
	return fixed
}

// Apply strips the fixed loci from every haplotype and returns them.
func (r *FixationReverter) Apply(pop *Population) (fixed []Allele, err error) {
	fixed = FixedLoci(pop)
	if len(fixed) == 0 {
		return nil, nil
	}
	r.metrics.recordFixed(len(fixed))
	if r.sink != nil {
		if err := r.log(pop.Generation(), fixed); err != nil {
			return fixed, err
		}
	}
	drop := alleleSet(fixed)
	for ind := 0; ind < pop.Size(); ind++ {
		for p := 0; p < pop.Ploidy(); p++ {
			for ch := 0; ch < pop.NumChrom(); ch++ {
				hap := pop.Haplotype(ind, p, ch)
				kept := slices.DeleteFunc(Mutants(hap), func(a Allele) bool {
					_, ok := drop[a]
					return ok
				})
				clear(hap[len(kept):])
			}
		}
	}
	return fixed, nil
}

func (r *FixationReverter) log(gen int, fixed []Allele) (err error) {
	out, err := r.sink.Open()
	if err != nil {
		return err
	}
	defer func() {
		if cerr := r.sink.Close(); err == nil {
			err = cerr
		}
	}()
	loci := make([]uint64, len(fixed))
	for i, a := range fixed {
		loci[i] = uint64(a)
	}
	return trace.WriteLine(out, trace.FixedSitesRecord{Generation: gen, Loci: loci}.Line())
}

// copySlots returns every slot of one ploidy copy across chromosomes.
func copySlots(pop *Population, ind, p int) []Allele {
	geno := pop.Genotype(ind)
	return geno[p*pop.TotNumLoci() : (p+1)*pop.TotNumLoci()]
}

func alleleSet(alleles []Allele) map[Allele]struct{} {
	set := make(map[Allele]struct{}, len(alleles))
	for _, a := range alleles {
		if a != 0 {
			set[a] = struct{}{}
		}
	}
	return set
}
