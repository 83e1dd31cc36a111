package trackmatch

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// straightLine places clusters at the given radii on a line leaving the
// point (d0 offset perpendicular to phi, z0) in direction phi with cot(theta).
func straightLine(phi, d0, z0, cotTheta float64, radii ...float64) ([]ClusterKey, SurfaceMap) {
	surfaces := SurfaceMap{}
	keys := make([]ClusterKey, len(radii))
	ux, uy := math.Cos(phi), math.Sin(phi)
	px, py := -d0*uy, d0*ux
	for i, s := range radii {
		keys[i] = NewTpcClusterKey(uint8(10+i), 0, SideNorth, uint32(i))
		surfaces[keys[i]] = Vec3{X: px + s*ux, Y: py + s*uy, Z: z0 + s*cotTheta}
	}
	return keys, surfaces
}

func TestZeroFieldKinematics(t *testing.T) {
	tests := []struct {
		name               string
		phi, d0, z0, cotTh float64
	}{
		{"first quadrant", 0.3, 0, 2, 0.5},
		{"backward", 2.8, 0, -4, -1.2},
		{"vertical", math.Pi / 2, 0, 0, 0},
		{"displaced", -1.0, 0.2, 1, 0.1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			keys, surfaces := straightLine(tt.phi, tt.d0, tt.z0, tt.cotTh, 30, 40, 50, 60)

			kin, err := zeroFieldKinematics(keys, surfaces)
			require.NoError(t, err)

			assert.InDelta(t, tt.phi, kin.Phi, 1e-9)
			assert.InDelta(t, math.Asinh(tt.cotTh), kin.Eta, 1e-9)
			assert.InDelta(t, -tt.d0*math.Sin(tt.phi), kin.Pos.X, 1e-9)
			assert.InDelta(t, tt.d0*math.Cos(tt.phi), kin.Pos.Y, 1e-9)
			assert.InDelta(t, tt.z0, kin.Pos.Z, 1e-9)
			assert.Zero(t, kin.Pt)
			assert.Zero(t, kin.Charge)
			assert.False(t, kin.PositiveCharge())
		})
	}
}

func TestZeroFieldKinematics_ClusterOrder(t *testing.T) {
	keys, surfaces := straightLine(0.3, 0, 2, 0.5, 60, 30, 50, 40)

	kin, err := zeroFieldKinematics(keys, surfaces)
	require.NoError(t, err)
	assert.InDelta(t, 0.3, kin.Phi, 1e-9)
}

func TestZeroFieldKinematics_Failures(t *testing.T) {
	keys, surfaces := straightLine(0.3, 0, 2, 0.5, 30, 40)
	_, err := zeroFieldKinematics(keys, surfaces)
	assert.ErrorIs(t, err, ErrFitFailure)

	keys, surfaces = straightLine(0.3, 0, 2, 0.5, 30, 30, 30)
	_, err = zeroFieldKinematics(keys, surfaces)
	assert.ErrorIs(t, err, ErrFitFailure)

	keys, surfaces = straightLine(0.3, 0, 2, 0.5, 30, 40, 50)
	delete(surfaces, keys[1])
	_, err = zeroFieldKinematics(keys, surfaces)
	assert.ErrorIs(t, err, ErrFitFailure)
}

func TestHelixKinematics(t *testing.T) {
	stub := &TrackStub{
		QOverR:   -0.0042,
		Phi:      1.2,
		Eta:      -0.4,
		Position: Vec3{X: 0.1, Y: -0.2, Z: 3},
		Momentum: Vec3{X: 0.36, Y: 0.93, Z: -0.41},
		Charge:   -1,
	}

	kin := helixKinematics(stub, 1.4)
	assert.InDelta(t, 1.0, kin.Pt, 1e-12)
	assert.Equal(t, stub.Phi, kin.Phi)
	assert.Equal(t, stub.Eta, kin.Eta)
	assert.Equal(t, stub.Position, kin.Pos)
	assert.Equal(t, stub.Momentum, kin.Mom)
	assert.False(t, kin.PositiveCharge())
}
