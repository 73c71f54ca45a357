package sim

import "fmt"

// Region is a half-open genomic coordinate range [Begin, End) covered by one
// chromosome. Every coordinate in a region is a candidate locus ID.
type Region struct {
	Begin uint64 `yaml:"begin"`
	End   uint64 `yaml:"end"`
}

// Width returns the number of coordinates in the region.
func (r Region) Width() uint64 {
	return r.End - r.Begin
}

// RegionTable maps a flat per-ploidy offset into (chromosome, coordinate).
type RegionTable struct {
	regions    []Region
	cumulative []uint64 // cumulative[i] = sum of widths of regions[0..i]
}

// NewRegionTable validates regions and precomputes cumulative widths.
// Coordinates must be positive (0 is the empty-slot sentinel) and storable.
func NewRegionTable(regions []Region) (*RegionTable, error) {
	if len(regions) == 0 {
		return nil, fmt.Errorf("%w: at least one region is required", ErrConfig)
	}
	cum := make([]uint64, len(regions))
	var total uint64
	for i, r := range regions {
		if r.Begin == 0 {
			return nil, fmt.Errorf("%w: region %d begins at 0, which is reserved for empty slots", ErrConfig, i)
		}
		if r.End <= r.Begin {
			return nil, fmt.Errorf("%w: region %d [%d, %d) is empty", ErrConfig, i, r.Begin, r.End)
		}
		if r.End > MaxAllele {
			return nil, fmt.Errorf("%w: region %d ends at %d, beyond the largest storable locus %d",
				ErrLocusOverflow, i, r.End, uint64(MaxAllele))
		}
		total += r.Width()
		cum[i] = total
	}
	return &RegionTable{regions: append([]Region(nil), regions...), cumulative: cum}, nil
}

// NumChrom returns the number of regions (one per chromosome).
func (t *RegionTable) NumChrom() int { return len(t.regions) }

// Region returns the region of chromosome ch.
func (t *RegionTable) Region(ch int) Region { return t.regions[ch] }

// PloidyWidth is the summed width of all chromosomes of one ploidy copy.
func (t *RegionTable) PloidyWidth() uint64 {
	return t.cumulative[len(t.cumulative)-1]
}

// Locate maps a 0-based offset within one ploidy copy to its chromosome and
// genomic coordinate. offset must be < PloidyWidth().
func (t *RegionTable) Locate(offset uint64) (ch int, locus uint64) {
	for i, c := range t.cumulative {
		if offset < c {
			ch = i
			break
		}
	}
	locus = offset + t.regions[ch].Begin
	if ch > 0 {
		locus -= t.cumulative[ch-1]
	}
	return ch, locus
}
