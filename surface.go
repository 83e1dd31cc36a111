package trackmatch

// SurfaceLookup resolves a cluster to its global position on a detector
// surface. ok is false when the cluster has no surface attached.
type SurfaceLookup interface {
	Surface(key ClusterKey) (pos Vec3, ok bool)
}

// SurfaceMap is a SurfaceLookup backed by a plain map, filled per event by
// the input adapters.
type SurfaceMap map[ClusterKey]Vec3

func (m SurfaceMap) Surface(key ClusterKey) (Vec3, bool) {
	pos, ok := m[key]
	return pos, ok
}

// DefaultExcludedLayers are TPC layers dropped from every cluster list.
var DefaultExcludedLayers = []uint8{7, 22, 23, 38, 39}

// effectiveClusters returns the clusters of a stub that resolve to a surface
// and are not on an excluded layer, in their original order.
func effectiveClusters(stub *TrackStub, surfaces SurfaceLookup, excluded map[uint8]bool) []ClusterKey {
	keys := make([]ClusterKey, 0, len(stub.Clusters))
	for _, key := range stub.Clusters {
		if _, ok := surfaces.Surface(key); !ok {
			continue
		}
		if excluded[key.Layer()] {
			continue
		}
		keys = append(keys, key)
	}
	return keys
}

// firstTpcSide reports the side of the first TPC cluster in keys.
func firstTpcSide(keys []ClusterKey) (side int, ok bool) {
	for _, key := range keys {
		if key.Trkr() == TpcID {
			return key.Side(), true
		}
	}
	return 0, false
}
