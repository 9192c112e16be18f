package occmap

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/occgrid/occmap/grid"
)

// Section is a detached bounded sub-grid produced by ExtractSection, with
// the index-space AABB it was extracted from attached as metadata (§4.6).
// It aliases nothing in the persistent grid: Apply copies data in.
type Section[V any] struct {
	Grid      *grid.Grid[V]
	BBMin     grid.Coord
	BBMax     grid.Coord
	hasBounds bool
}

func aabbCorners(wMin, wMax mgl64.Vec3) [8]mgl64.Vec3 {
	return [8]mgl64.Vec3{
		{wMin.X(), wMin.Y(), wMin.Z()},
		{wMax.X(), wMin.Y(), wMin.Z()},
		{wMin.X(), wMax.Y(), wMin.Z()},
		{wMax.X(), wMax.Y(), wMin.Z()},
		{wMin.X(), wMin.Y(), wMax.Z()},
		{wMax.X(), wMin.Y(), wMax.Z()},
		{wMin.X(), wMax.Y(), wMax.Z()},
		{wMax.X(), wMax.Y(), wMax.Z()},
	}
}

// worldAABB transforms the 8 corners of [wMin, wMax] by T and returns the
// componentwise min/max of the results: the AABB in map frame (§4.6).
func worldAABB(wMin, wMax mgl64.Vec3, T mgl64.Mat4) (mgl64.Vec3, mgl64.Vec3) {
	corners := aabbCorners(wMin, wMax)
	first := T.Mul4x1(corners[0].Vec4(1)).Vec3()
	min, max := first, first
	for i := 1; i < len(corners); i++ {
		p := T.Mul4x1(corners[i].Vec4(1)).Vec3()
		for a := 0; a < 3; a++ {
			if p[a] < min[a] {
				min[a] = p[a]
			}
			if p[a] > max[a] {
				max[a] = p[a]
			}
		}
	}
	return min, max
}

func coordInAABB(c, bbMin, bbMax grid.Coord) bool {
	return c.I >= bbMin.I && c.I <= bbMax.I &&
		c.J >= bbMin.J && c.J <= bbMax.J &&
		c.K >= bbMin.K && c.K <= bbMax.K
}

// extractSection implements the full-value variant of §4.6: every active
// voxel of persistent inside the AABB is copied, value and all, into a
// fresh detached section.
func extractSection[V any](t Transform, persistent *grid.Grid[V], wMin, wMax mgl64.Vec3, T mgl64.Mat4) Section[V] {
	bbMin, bbMax := indexAABB(t, wMin, wMax, T)

	sec := grid.New[V]()
	for c, v := range persistent.IterActive() {
		if coordInAABB(c, bbMin, bbMax) {
			sec.SetValue(c, v, true)
		}
	}
	return Section[V]{Grid: sec, BBMin: bbMin, BBMax: bbMax, hasBounds: true}
}

// extractSectionMask implements the boolean variant: identical semantics,
// but the section grid only records activity, not the persistent payload.
func extractSectionMask[V any](t Transform, persistent *grid.Grid[V], wMin, wMax mgl64.Vec3, T mgl64.Mat4) Section[struct{}] {
	bbMin, bbMax := indexAABB(t, wMin, wMax, T)

	sec := grid.New[struct{}]()
	for c := range persistent.IterActive() {
		if coordInAABB(c, bbMin, bbMax) {
			sec.SetValue(c, struct{}{}, true)
		}
	}
	return Section[struct{}]{Grid: sec, BBMin: bbMin, BBMax: bbMax, hasBounds: true}
}

func indexAABB(t Transform, wMin, wMax mgl64.Vec3, T mgl64.Mat4) (grid.Coord, grid.Coord) {
	mMin, mMax := worldAABB(wMin, wMax, T)
	return t.FloorToCoord(t.WorldToIndex(mMin)), t.FloorToCoord(t.WorldToIndex(mMax))
}

// applySection implements Apply for the full-value variant (§4.6): it
// deactivates every currently active persistent voxel inside the section's
// AABB (preserving their values), then activates every voxel present in the
// section, copying its value in.
func applySection[V any](persistent *grid.Grid[V], sec Section[V]) error {
	if !sec.hasBounds {
		return newError(SectionMetadataMissing, "section grid has no bb_min/bb_max metadata")
	}
	deactivateAABB(persistent, sec.BBMin, sec.BBMax)
	for c, v := range sec.Grid.IterActive() {
		persistent.SetValue(c, v, true)
	}
	return nil
}

// applySectionMask is the boolean variant: a voxel newly created by apply
// gets the persistent grid's zero value; one that already had a slot keeps
// its existing value and is only reactivated.
func applySectionMask[V any](persistent *grid.Grid[V], sec Section[struct{}]) error {
	if !sec.hasBounds {
		return newError(SectionMetadataMissing, "section grid has no bb_min/bb_max metadata")
	}
	deactivateAABB(persistent, sec.BBMin, sec.BBMax)
	for c := range sec.Grid.IterActive() {
		persistent.SetActive(c, true)
	}
	return nil
}

func deactivateAABB[V any](persistent *grid.Grid[V], bbMin, bbMax grid.Coord) {
	var toDeactivate []grid.Coord
	for c := range persistent.IterActive() {
		if coordInAABB(c, bbMin, bbMax) {
			toDeactivate = append(toDeactivate, c)
		}
	}
	for _, c := range toDeactivate {
		persistent.SetActive(c, false)
	}
}
