package occmap

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/occgrid/occmap/grid"
)

// raycastResult is the per-observation output of the raycasting stage: the
// update grid plus the ancillary per-hit observations carried alongside it,
// since the update grid payload itself is bool-only (§4.3, §4.5).
type raycastResult struct {
	update *grid.Grid[struct{}]
	hits   map[grid.Coord]Observation
}

// raycastPointCloud implements §4.4: for every finite point it walks the
// segment from origin to the point (truncated to maxRange if set) via 3D
// DDA, marking traversed voxels as misses and the corrected endpoint as a
// hit. Per §5's ordering guarantee, every point's miss traversal runs
// before any point's hit is written, so a hit always wins over an
// earlier-in-the-observation miss at the same coordinate.
func raycastPointCloud(t Transform, cloud PointCloud, origin mgl64.Vec3, maxRange float64, staticEnv bool, logger Logger) raycastResult {
	update := grid.New[struct{}]()
	hits := make(map[grid.Coord]Observation)

	type pending struct {
		point     Point
		endCoord  grid.Coord
		sign      [3]int32
		truncated bool
	}
	deferred := make([]pending, 0, len(cloud))

	startIdx := t.WorldToIndex(origin)
	r := t.Resolution()

	for _, p := range cloud {
		if !p.finite() {
			logger.Debugf("raycast: skipping non-finite point %+v", p)
			continue
		}
		pw := mgl64.Vec3{p.X, p.Y, p.Z}
		delta := pw.Sub(origin)
		truncated := false
		if maxRange > 0 {
			if dist := delta.Len(); dist > maxRange {
				pw = origin.Add(delta.Normalize().Mul(maxRange))
				delta = pw.Sub(origin)
				truncated = true
			}
		}

		var sign [3]int32
		for a := 0; a < 3; a++ {
			switch {
			case delta[a] < -r:
				sign[a] = -1
			case delta[a] > r:
				sign[a] = 1
			}
		}
		biasedTarget := mgl64.Vec3{
			pw.X() - float64(sign[0])*r,
			pw.Y() - float64(sign[1])*r,
			pw.Z() - float64(sign[2])*r,
		}
		biasedIdx := t.WorldToIndex(biasedTarget)
		endCoord := t.FloorToCoord(biasedIdx)

		if !staticEnv {
			walkDDA(startIdx, biasedIdx, endCoord, func(c grid.Coord) bool {
				update.SetValue(c, struct{}{}, false)
				return true
			})
		}

		deferred = append(deferred, pending{point: p, endCoord: endCoord, sign: sign, truncated: truncated})
	}

	for _, d := range deferred {
		if d.truncated {
			continue
		}
		cEnd := grid.Coord{
			I: d.endCoord.I + d.sign[0],
			J: d.endCoord.J + d.sign[1],
			K: d.endCoord.K + d.sign[2],
		}
		update.SetValue(cEnd, struct{}{}, true)
		hits[cEnd] = d.point.toObservation()
	}

	return raycastResult{update: update, hits: hits}
}

// walkDDA performs an Amanatides-Woo voxel traversal from the voxel
// containing startIdx toward (but not including) endCoord, calling visit for
// every intervening voxel including the start voxel. visit returning false
// stops the walk early. startIdx/endIdx are index-space (fractional)
// coordinates; endCoord is the floor of endIdx, passed separately so the
// caller's rounding is authoritative for the stopping condition.
func walkDDA(startIdx, endIdx mgl64.Vec3, endCoord grid.Coord, visit func(c grid.Coord) bool) {
	c := grid.Coord{
		I: int32(math.Floor(startIdx.X())),
		J: int32(math.Floor(startIdx.Y())),
		K: int32(math.Floor(startIdx.Z())),
	}
	if c == endCoord {
		return
	}

	dir := endIdx.Sub(startIdx)
	var step [3]int32
	var tMax, tDelta [3]float64
	idx := [3]float64{startIdx.X(), startIdx.Y(), startIdx.Z()}

	for a := 0; a < 3; a++ {
		switch {
		case dir[a] > 0:
			step[a] = 1
			tDelta[a] = 1 / dir[a]
			tMax[a] = (math.Floor(idx[a])+1 - idx[a]) / dir[a]
		case dir[a] < 0:
			step[a] = -1
			tDelta[a] = -1 / dir[a]
			tMax[a] = (idx[a] - math.Floor(idx[a])) / -dir[a]
		default:
			tMax[a] = math.Inf(1)
			tDelta[a] = math.Inf(1)
		}
	}

	for {
		if !visit(c) {
			return
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
		if c == endCoord {
			return
		}
	}
}
