// Package trace provides the line-oriented output records of the simulation
// operators and the sinks they are written to.
// This package has no dependencies on sim/; it stores pure data types.
package trace

import (
	"strconv"
	"strings"
)

// EventCode classifies an accepted mutation event.
type EventCode int

const (
	// EventNew is a mutation placed in an empty slot.
	EventNew EventCode = 0
	// EventBackMutation is a mutation hitting a locus already on the haplotype.
	EventBackMutation EventCode = 1
	// EventRelocated is a collision moved to a vacant locus.
	EventRelocated EventCode = 2
	// EventDropped is a collision discarded because no vacant locus remains.
	EventDropped EventCode = 3
)

func (c EventCode) String() string {
	switch c {
	case EventNew:
		return "new"
	case EventBackMutation:
		return "back-mutation"
	case EventRelocated:
		return "relocated"
	case EventDropped:
		return "dropped"
	default:
		return "unknown"
	}
}

// MutationRecord captures one mutation event.
type MutationRecord struct {
	Generation int
	Locus      uint64
	Individual int
	Code       EventCode
}

// Line formats the record as generation<TAB>locus<TAB>individual<TAB>code.
func (r MutationRecord) Line() string {
	return strconv.Itoa(r.Generation) + "\t" +
		strconv.FormatUint(r.Locus, 10) + "\t" +
		strconv.Itoa(r.Individual) + "\t" +
		strconv.Itoa(int(r.Code))
}

// NewMutantRecord captures the coefficients sampled for a newly seen locus.
type NewMutantRecord struct {
	Locus uint64
	S     float64
	H     float64
}

// Line formats the record as locus<TAB>s<TAB>h.
func (r NewMutantRecord) Line() string {
	return strconv.FormatUint(r.Locus, 10) + "\t" +
		strconv.FormatFloat(r.S, 'g', -1, 64) + "\t" +
		strconv.FormatFloat(r.H, 'g', -1, 64)
}

// FixedSitesRecord captures the loci fixed in one generation, sorted ascending.
type FixedSitesRecord struct {
	Generation int
	Loci       []uint64
}

// Line formats the record as generation<TAB>locus1<TAB>locus2...
func (r FixedSitesRecord) Line() string {
	var b strings.Builder
	b.WriteString(strconv.Itoa(r.Generation))
	for _, l := range r.Loci {
		b.WriteByte('\t')
		b.WriteString(strconv.FormatUint(l, 10))
	}
	return b.String()
}
