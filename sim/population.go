package sim

import (
	"fmt"
	"math"

	"github.com/sirupsen/logrus"
)

// Allele is the value stored in one haplotype slot: a mutant locus ID, or 0
// for an empty slot.
type Allele uint32

// MaxAllele bounds locus IDs: a locus must be strictly below it to be stored.
const MaxAllele = math.MaxUint32

// Population is the haplotype store shared by all operators.
//
// Genotypes live in one flat slice laid out individual-major, then ploidy
// copy, then chromosome, then slot. Each (individual, copy, chromosome) slot
// array is left-packed: nonzero mutant IDs first, zero padding after.
// AddLoci reallocates the slice and shifts every offset, so a slice returned
// by Haplotype or Genotype must be re-resolved after any growth.
//
// Thread-safety: NOT thread-safe.
type Population struct {
	ploidy      int
	numLoci     []int // slot capacity per chromosome
	chromBegin  []int // slot offset of each chromosome within a ploidy copy
	totLoci     int   // slots per ploidy copy
	subPopSizes []int
	geno        []Allele
	fitness     []float64
	gen         int
}

// NewPopulation creates a diploid population with all slots empty.
// numLoci gives the initial slot capacity of each chromosome.
func NewPopulation(subPopSizes []int, numLoci []int) (*Population, error) {
	if len(subPopSizes) == 0 {
		return nil, fmt.Errorf("%w: at least one subpopulation is required", ErrConfig)
	}
	for i, sz := range subPopSizes {
		if sz < 0 {
			return nil, fmt.Errorf("%w: subpopulation %d has negative size %d", ErrConfig, i, sz)
		}
	}
	if len(numLoci) == 0 {
		return nil, fmt.Errorf("%w: at least one chromosome is required", ErrConfig)
	}
	for ch, n := range numLoci {
		if n < 1 {
			return nil, fmt.Errorf("%w: chromosome %d needs at least one slot, got %d", ErrConfig, ch, n)
		}
	}
	p := &Population{
		ploidy:      2,
		numLoci:     append([]int(nil), numLoci...),
		subPopSizes: append([]int(nil), subPopSizes...),
	}
	p.relayout()
	n := p.Size()
	p.geno = make([]Allele, n*p.ploidy*p.totLoci)
	p.fitness = make([]float64, n)
	for i := range p.fitness {
		p.fitness[i] = 1
	}
	return p, nil
}

func (p *Population) relayout() {
	p.chromBegin = make([]int, len(p.numLoci))
	p.totLoci = 0
	for ch, n := range p.numLoci {
		p.chromBegin[ch] = p.totLoci
		p.totLoci += n
	}
}

// Size returns the number of individuals.
func (p *Population) Size() int {
	n := 0
	for _, sz := range p.subPopSizes {
		n += sz
	}
	return n
}

// Ploidy returns the number of haplotype copies per individual.
func (p *Population) Ploidy() int { return p.ploidy }

// NumChrom returns the number of chromosomes.
func (p *Population) NumChrom() int { return len(p.numLoci) }

// NumLoci returns the slot capacity of chromosome ch.
func (p *Population) NumLoci(ch int) int { return p.numLoci[ch] }

// TotNumLoci returns the slot capacity of one ploidy copy.
func (p *Population) TotNumLoci() int { return p.totLoci }

// NumSubPop returns the number of subpopulations.
func (p *Population) NumSubPop() int { return len(p.subPopSizes) }

// SubPopSizes returns a copy of the subpopulation sizes.
func (p *Population) SubPopSizes() []int { return append([]int(nil), p.subPopSizes...) }

// SubPopSize returns the size of subpopulation sp.
func (p *Population) SubPopSize(sp int) int { return p.subPopSizes[sp] }

// SubPopBegin returns the absolute index of the first individual of sp.
func (p *Population) SubPopBegin(sp int) int {
	begin := 0
	for i := 0; i < sp; i++ {
		begin += p.subPopSizes[i]
	}
	return begin
}

// Generation returns the generation counter.
func (p *Population) Generation() int { return p.gen }

// SetGeneration sets the generation counter.
func (p *Population) SetGeneration(gen int) { p.gen = gen }

// Fitness returns the last evaluated fitness of individual ind.
func (p *Population) Fitness(ind int) float64 { return p.fitness[ind] }

// SetFitness records the fitness of individual ind.
func (p *Population) SetFitness(ind int, f float64) { p.fitness[ind] = f }

func (p *Population) offset(ind, ploidy, ch int) int {
	return (ind*p.ploidy+ploidy)*p.totLoci + p.chromBegin[ch]
}

// Haplotype returns the slot array of (ind, ploidy, ch). The returned slice
// aliases population storage and is invalidated by AddLoci.
func (p *Population) Haplotype(ind, ploidy, ch int) []Allele {
	off := p.offset(ind, ploidy, ch)
	return p.geno[off : off+p.numLoci[ch] : off+p.numLoci[ch]]
}

// Genotype returns every slot of individual ind across copies and
// chromosomes. Invalidated by AddLoci.
func (p *Population) Genotype(ind int) []Allele {
	sz := p.ploidy * p.totLoci
	return p.geno[ind*sz : (ind+1)*sz : (ind+1)*sz]
}

// Slot reads slot j of (ind, ploidy, ch). Unlike Haplotype it stays valid
// across growth because it resolves the address on every call.
func (p *Population) Slot(ind, ploidy, ch, j int) Allele {
	return p.geno[p.offset(ind, ploidy, ch)+j]
}

// SetSlot writes slot j of (ind, ploidy, ch).
func (p *Population) SetSlot(ind, ploidy, ch, j int, a Allele) {
	p.geno[p.offset(ind, ploidy, ch)+j] = a
}

// AddLoci widens chromosome ch by n empty slots for every individual,
// preserving existing contents.
func (p *Population) AddLoci(ch, n int) {
	if n <= 0 {
		return
	}
	oldTot := p.totLoci
	oldBegin := p.chromBegin
	oldNumLoci := append([]int(nil), p.numLoci...)

	p.numLoci[ch] += n
	p.relayout()

	copies := p.Size() * p.ploidy
	geno := make([]Allele, copies*p.totLoci)
	for c := 0; c < copies; c++ {
		for k := range p.numLoci {
			src := p.geno[c*oldTot+oldBegin[k] : c*oldTot+oldBegin[k]+oldNumLoci[k]]
			copy(geno[c*p.totLoci+p.chromBegin[k]:], src)
		}
	}
	p.geno = geno
	logrus.Debugf("chromosome %d widened by %d slots to %d", ch, n, p.numLoci[ch])
}

// Contains reports whether any haplotype in the population carries a.
func (p *Population) Contains(a Allele) bool {
	for _, g := range p.geno {
		if g == a {
			return true
		}
	}
	return false
}

// Alleles calls fn for every nonzero slot in the population.
func (p *Population) Alleles(fn func(Allele)) {
	for _, g := range p.geno {
		if g != 0 {
			fn(g)
		}
	}
}

// NewOffspring creates an empty population with the same chromosome layout
// and the given subpopulation sizes.
func (p *Population) NewOffspring(subPopSizes []int) (*Population, error) {
	off, err := NewPopulation(subPopSizes, p.numLoci)
	if err != nil {
		return nil, err
	}
	off.gen = p.gen
	return off, nil
}

// Mutants returns the nonzero prefix of a left-packed slot array.
func Mutants(hap []Allele) []Allele {
	for j, a := range hap {
		if a == 0 {
			return hap[:j]
		}
	}
	return hap
}
