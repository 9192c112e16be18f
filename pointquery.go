package occmap

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/occgrid/occmap/grid"
)

// pointQuery implements §4.7: walks voxels from origin along d via DDA,
// stopping at the first active voxel in the persistent grid or once the
// traveled world-space distance reaches maxLength, whichever comes first.
func pointQuery[V any](t Transform, persistent *grid.Grid[V], origin mgl64.Vec3, d mgl64.Vec3, maxLength float64) (hit mgl64.Vec3, ok bool) {
	if d.Len() == 0 {
		return mgl64.Vec3{}, false
	}
	d = d.Normalize()

	startIdx := t.WorldToIndex(origin)
	c := t.FloorToCoord(startIdx)

	var step [3]int32
	var tMax, tDelta [3]float64
	idx := [3]float64{startIdx.X(), startIdx.Y(), startIdx.Z()}

	for a := 0; a < 3; a++ {
		switch {
		case d[a] > 0:
			step[a] = 1
			tDelta[a] = 1 / d[a]
			tMax[a] = (math.Floor(idx[a])+1 - idx[a]) / d[a]
		case d[a] < 0:
			step[a] = -1
			tDelta[a] = -1 / d[a]
			tMax[a] = (idx[a] - math.Floor(idx[a])) / -d[a]
		default:
			tMax[a] = math.Inf(1)
			tDelta[a] = math.Inf(1)
		}
	}

	for {
		world := t.IndexToWorld(c)
		if origin.Sub(world).Len() >= maxLength {
			return mgl64.Vec3{}, false
		}
		if _, active, found := persistent.Get(c); found && active {
			return world, true
		}

		axis := 0
		if tMax[1] < tMax[axis] {
			axis = 1
		}
		if tMax[2] < tMax[axis] {
			axis = 2
		}
		switch axis {
		case 0:
			c.I += step[0]
			tMax[0] += tDelta[0]
		case 1:
			c.J += step[1]
			tMax[1] += tDelta[1]
		case 2:
			c.K += step[2]
			tMax[2] += tDelta[2]
		}
	}
}
