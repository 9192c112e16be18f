package occmap

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/occgrid/occmap/grid"
)

// Transform is the linear world<->index coordinate mapping: w = r*i, with r
// the grid resolution in meters per voxel edge (§4.1). This engine fixes
// the general affine form's translation term o at the origin.
type Transform struct {
	resolution float64
}

// NewTransform builds a Transform for the given strictly-positive
// resolution.
func NewTransform(resolution float64) Transform {
	return Transform{resolution: resolution}
}

func (t Transform) Resolution() float64 { return t.resolution }

// WorldToIndex maps world meters to (fractional) index space, exactly, with
// no rounding.
func (t Transform) WorldToIndex(w mgl64.Vec3) mgl64.Vec3 {
	return w.Mul(1.0 / t.resolution)
}

// IndexToWorld maps an integer voxel coordinate to its world-space corner,
// exactly.
func (t Transform) IndexToWorld(c grid.Coord) mgl64.Vec3 {
	return mgl64.Vec3{
		float64(c.I) * t.resolution,
		float64(c.J) * t.resolution,
		float64(c.K) * t.resolution,
	}
}

// FloorToCoord takes the componentwise floor of index-space coordinates.
func (t Transform) FloorToCoord(v mgl64.Vec3) grid.Coord {
	return grid.Coord{
		I: int32(math.Floor(v.X())),
		J: int32(math.Floor(v.Y())),
		K: int32(math.Floor(v.Z())),
	}
}

// RoundToCoord takes the componentwise nearest integer of index-space
// coordinates, rounding ties away from zero (the standard library's native
// math.Round behavior). Ties land on exact voxel boundaries and are
// astronomically rare for real sensor data, so this is documented rather
// than made configurable.
func (t Transform) RoundToCoord(v mgl64.Vec3) grid.Coord {
	return grid.Coord{
		I: int32(math.Round(v.X())),
		J: int32(math.Round(v.Y())),
		K: int32(math.Round(v.Z())),
	}
}
