package sim

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/popgen-sim/infsites/sim/trace"
)

// MutationModel selects how collisions with existing mutations are treated.
type MutationModel string

const (
	// MutationModelStrict enforces infinite sites: a position currently
	// carried anywhere in the population is relocated before use.
	MutationModelStrict MutationModel = "strict"
	// MutationModelRelaxed places every drawn position as-is.
	MutationModelRelaxed MutationModel = "relaxed"
)

// slotGrowth is the number of slots added when a haplotype is full.
const slotGrowth = 10

// MutationPlacer places new mutations on every individual of the applicable
// subpopulations with a geometric renewal process along the genome.
//
// The occupancy set approximates the positions mutated anywhere in the
// population; it goes stale after fixation reversion or loss by drift and
// is rebuilt only when a relocation scan is exhausted. It persists across
// calls. Thread-safety: NOT thread-safe.
type MutationPlacer struct {
	rate     float64
	model    MutationModel
	regions  *RegionTable
	subPops  []int // nil = all
	rng      *Stream
	sink     trace.Sink
	metrics  *Metrics
	occupied map[uint64]struct{}
}

// MutationPlacerConfig groups MutationPlacer parameters.
type MutationPlacerConfig struct {
	Rate    float64       // per-site, per-copy mutation probability
	Model   MutationModel // "strict" (default) or "relaxed"
	SubPops []int         // applicable subpopulations; empty = all
}

// NewMutationPlacer creates a placer. sink and metrics may be nil.
func NewMutationPlacer(cfg MutationPlacerConfig, regions *RegionTable, rng *Stream, sink trace.Sink, metrics *Metrics) (*MutationPlacer, error) {
	if cfg.Rate < 0 || cfg.Rate > 1 {
		return nil, fmt.Errorf("%w: mutation rate %v outside [0, 1]", ErrConfig, cfg.Rate)
	}
	model := cfg.Model
	if model == "" {
		model = MutationModelStrict
	}
	if model != MutationModelStrict && model != MutationModelRelaxed {
		return nil, fmt.Errorf("%w: unknown mutation model %q", ErrConfig, cfg.Model)
	}
	return &MutationPlacer{
		rate:     cfg.Rate,
		model:    model,
		regions:  regions,
		subPops:  cfg.SubPops,
		rng:      rng,
		sink:     sink,
		metrics:  metrics,
		occupied: make(map[uint64]struct{}),
	}, nil
}

// Occupied reports whether locus is in the occupancy set.
func (m *MutationPlacer) Occupied(locus uint64) bool {
	_, ok := m.occupied[locus]
	return ok
}

// Apply mutates every individual of the applicable subpopulations.
func (m *MutationPlacer) Apply(pop *Population) (err error) {
	if pop.NumChrom() != m.regions.NumChrom() {
		return fmt.Errorf("%w: population has %d chromosomes, region table has %d",
			ErrConfig, pop.NumChrom(), m.regions.NumChrom())
	}
	var out io.Writer
	if m.sink != nil {
		if out, err = m.sink.Open(); err != nil {
			return err
		}
		defer func() {
			if cerr := m.sink.Close(); err == nil {
				err = cerr
			}
		}()
	}

	ploidyWidth := m.regions.PloidyWidth()
	indWidth := uint64(pop.Ploidy()) * ploidyWidth
	saturated := false

	for _, sp := range applicableSubPops(pop, m.subPops) {
		begin := pop.SubPopBegin(sp)
		for ind := begin; ind < begin+pop.SubPopSize(sp); ind++ {
			var loc uint64
			for {
				step := m.rng.Geometric(m.rate)
				if step > indWidth-loc {
					break
				}
				loc += step
				p := int((loc - 1) / ploidyWidth)
				ch, mutLoc := m.regions.Locate((loc - 1) - uint64(p)*ploidyWidth)

				if m.model == MutationModelStrict {
					if saturated {
						if err := m.emit(out, pop, mutLoc, ind, trace.EventDropped); err != nil {
							return err
						}
						continue
					}
					if m.Occupied(mutLoc) && pop.Contains(Allele(mutLoc)) {
						logrus.Debugf("relocating locus %d", mutLoc)
						newLoc := m.locateVacantLocus(pop, m.regions.Region(ch))
						code := trace.EventRelocated
						if newLoc == 0 {
							code = trace.EventDropped
						}
						if err := m.emit(out, pop, mutLoc, ind, code); err != nil {
							return err
						}
						if newLoc == 0 {
							logrus.Debugf("no vacant locus left on chromosome %d; dropping further collisions", ch)
							saturated = true
							continue
						}
						mutLoc = newLoc
					}
					m.occupied[mutLoc] = struct{}{}
				}
				if err := m.place(out, pop, ind, p, ch, mutLoc); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// place writes mutLoc into haplotype (ind, p, ch), growing it if full.
func (m *MutationPlacer) place(out io.Writer, pop *Population, ind, p, ch int, mutLoc uint64) error {
	if mutLoc >= MaxAllele {
		return fmt.Errorf("%w: locus %d", ErrLocusOverflow, mutLoc)
	}
	hap := pop.Haplotype(ind, p, ch)
	if hap[len(hap)-1] != 0 {
		logrus.Debugf("adding %d slots to chromosome %d", slotGrowth, ch)
		pop.AddLoci(ch, slotGrowth)
		m.metrics.recordSlotGrowth()
		// storage moved; re-resolve
		hap = pop.Haplotype(ind, p, ch)
	}
	a := Allele(mutLoc)
	for j := range hap {
		if hap[j] == 0 {
			hap[j] = a
			return m.emit(out, pop, mutLoc, ind, trace.EventNew)
		}
		if hap[j] == a {
			// back mutation: the last carried mutant fills slot j
			last := len(Mutants(hap)) - 1
			hap[j] = hap[last]
			hap[last] = 0
			return m.emit(out, pop, mutLoc, ind, trace.EventBackMutation)
		}
	}
	return nil
}

// locateVacantLocus draws a uniform candidate in r and, if it is occupied,
// scans forward then backward for the nearest free coordinate, rebuilding
// the occupancy set once before giving up. Returns 0 when none is found.
func (m *MutationPlacer) locateVacantLocus(pop *Population, r Region) uint64 {
	cand := m.rng.UintN(r.Width()) + r.Begin
	if !m.Occupied(cand) {
		return cand
	}
	if loc := m.scanVacant(cand, r); loc != 0 {
		return loc
	}
	logrus.Debug("rebuilding mutation occupancy set")
	m.rebuild(pop)
	return m.scanVacant(cand, r)
}

func (m *MutationPlacer) scanVacant(cand uint64, r Region) uint64 {
	for loc := cand + 1; loc < r.End; loc++ {
		if !m.Occupied(loc) {
			return loc
		}
	}
	for loc := cand; loc > r.Begin; {
		loc--
		if !m.Occupied(loc) {
			return loc
		}
	}
	return 0
}

// rebuild replaces the occupancy set with the loci currently carried.
func (m *MutationPlacer) rebuild(pop *Population) {
	m.occupied = make(map[uint64]struct{}, len(m.occupied))
	pop.Alleles(func(a Allele) {
		m.occupied[uint64(a)] = struct{}{}
	})
	m.metrics.recordRebuild()
}

func (m *MutationPlacer) emit(out io.Writer, pop *Population, locus uint64, ind int, code trace.EventCode) error {
	m.metrics.recordMutation(code)
	if out == nil {
		return nil
	}
	return trace.WriteLine(out, trace.MutationRecord{
		Generation: pop.Generation(),
		Locus:      locus,
		Individual: ind,
		Code:       code,
	}.Line())
}

// applicableSubPops resolves a subpopulation filter; nil or empty means all.
func applicableSubPops(pop *Population, subPops []int) []int {
	if len(subPops) == 0 {
		all := make([]int, pop.NumSubPop())
		for i := range all {
			all[i] = i
		}
		return all
	}
	valid := make([]int, 0, len(subPops))
	for _, sp := range subPops {
		if sp >= 0 && sp < pop.NumSubPop() {
			valid = append(valid, sp)
		}
	}
	return valid
}
