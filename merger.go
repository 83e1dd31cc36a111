package trackmatch

import "fmt"

// NoStub marks a combined seed without a silicon partner.
const NoStub = -1

// CombinedSeed references one outer (TPC) stub and, when matched, one inner
// (silicon) stub. CrossingEstimate is the z-mismatch estimate of the pair;
// it is undefined for unmatched seeds.
type CombinedSeed struct {
	TpcID            int
	SiliconID        int
	CrossingEstimate Crossing
}

func (s CombinedSeed) Matched() bool {
	return s.SiliconID != NoStub
}

func (s CombinedSeed) String() string {
	if !s.Matched() {
		return fmt.Sprintf("seed{tpc %d}", s.TpcID)
	}
	return fmt.Sprintf("seed{tpc %d, si %d, crossing estimate %v}", s.TpcID, s.SiliconID, s.CrossingEstimate)
}

// SeedContainer is the output collection of the module. It is reset, then
// filled, once per event.
type SeedContainer struct {
	Seeds []CombinedSeed
}

func (c *SeedContainer) Reset() {
	c.Seeds = c.Seeds[:0]
}

func (c *SeedContainer) Insert(seed CombinedSeed) {
	c.Seeds = append(c.Seeds, seed)
}

func (c *SeedContainer) Size() int {
	return len(c.Seeds)
}

// MergeSeeds turns a match result into combined seeds: one per surviving
// match, in match order, followed by one per unmatched outer stub.
func MergeSeeds(res *MatchResult, out *SeedContainer) {
	out.Reset()
	for _, match := range res.Matches {
		out.Insert(CombinedSeed{
			TpcID:            match.Outer,
			SiliconID:        match.Inner,
			CrossingEstimate: match.Crossing,
		})
	}
	for _, id := range res.Unmatched {
		out.Insert(CombinedSeed{
			TpcID:            id,
			SiliconID:        NoStub,
			CrossingEstimate: CrossingUndefined,
		})
	}
}
