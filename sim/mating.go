package sim

import "fmt"

// Mating produces the next generation by Wright–Fisher sampling: every
// offspring of a subpopulation picks both parents from that subpopulation
// with probability proportional to parental fitness.
// Thread-safety: NOT thread-safe.
type Mating struct {
	transmitter *TransmissionEngine
	rng         *Stream
}

// NewMating creates a mating driver around a transmission engine.
func NewMating(transmitter *TransmissionEngine, rng *Stream) *Mating {
	return &Mating{transmitter: transmitter, rng: rng}
}

// Apply returns the offspring population. Per offspring the stream is
// consumed in the order mother, father, then transmission.
func (m *Mating) Apply(pop *Population) (*Population, error) {
	offPop, err := pop.NewOffspring(pop.SubPopSizes())
	if err != nil {
		return nil, err
	}
	for sp := 0; sp < pop.NumSubPop(); sp++ {
		begin := pop.SubPopBegin(sp)
		size := pop.SubPopSize(sp)
		if size == 0 {
			continue
		}
		weights := make([]float64, size)
		for i := range weights {
			weights[i] = max(0, pop.Fitness(begin+i))
		}
		pick := m.rng.NewCategorical(weights)
		for off := begin; off < begin+size; off++ {
			mother := begin + pick()
			father := begin + pick()
			if err := m.transmitter.ApplyDuringMating(pop, offPop, off, mother, father); err != nil {
				return nil, fmt.Errorf("offspring %d: %w", off, err)
			}
		}
	}
	return offPop, nil
}
