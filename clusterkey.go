package trackmatch

import "fmt"

// ClusterKey identifies a reconstructed cluster. The upper 32 bits hold the
// hitset key (tracker id, layer and subsystem bits), the lower 32 bits the
// cluster index within the hitset.
type ClusterKey uint64

type TrkrID uint8

const (
	MvtxID TrkrID = iota
	InttID
	TpcID
	MicromegasID
)

const (
	hitsetShift    = 32
	trkrIDShift    = 24
	layerShift     = 16
	tpcSectorShift = 8
	tpcSideShift   = 0
)

// TPC sides. South is the -z half, north the +z half.
const (
	SideSouth = 0
	SideNorth = 1
)

func NewClusterKey(trkr TrkrID, layer uint8, subsys uint16, index uint32) ClusterKey {
	hitset := uint32(trkr)<<trkrIDShift | uint32(layer)<<layerShift | uint32(subsys)
	return ClusterKey(uint64(hitset)<<hitsetShift | uint64(index))
}

// NewTpcClusterKey builds a key for a TPC cluster on the given sector and side.
func NewTpcClusterKey(layer, sector, side uint8, index uint32) ClusterKey {
	subsys := uint16(sector)<<tpcSectorShift | uint16(side&1)<<tpcSideShift
	return NewClusterKey(TpcID, layer, subsys, index)
}

func (k ClusterKey) hitset() uint32 {
	return uint32(k >> hitsetShift)
}

func (k ClusterKey) Trkr() TrkrID {
	return TrkrID(k.hitset() >> trkrIDShift)
}

func (k ClusterKey) Layer() uint8 {
	return uint8(k.hitset() >> layerShift)
}

func (k ClusterKey) Index() uint32 {
	return uint32(k)
}

// Side returns the TPC side bit. It is only meaningful for TPC clusters.
func (k ClusterKey) Side() int {
	return int(k.hitset()>>tpcSideShift) & 1
}

func (k ClusterKey) Sector() uint8 {
	return uint8(k.hitset() >> tpcSectorShift)
}

func (k ClusterKey) String() string {
	return fmt.Sprintf("%s/L%d/%d", k.Trkr(), k.Layer(), k.Index())
}

func (t TrkrID) String() string {
	switch t {
	case MvtxID:
		return "mvtx"
	case InttID:
		return "intt"
	case TpcID:
		return "tpc"
	case MicromegasID:
		return "micromegas"
	}
	return fmt.Sprintf("trkr%d", uint8(t))
}
