package grid

// Grid is a sparse mapping from Coord to a (value V, active bool, touched)
// triple. "Touched" means the slot has ever been written; a grid whose V is
// struct{} and whose values are never inspected (only the touched/active
// bits matter) doubles as an update/change grid: touched=false
// means "absent", touched&&!active means "present-and-false" (miss),
// touched&&active means "present-and-true" (hit).
//
// Grid is not safe for concurrent use; per §5 all mutation is serialized
// through the owning engine.
type Grid[V any] struct {
	sectors map[[3]int32]*sector[V]
	acc     *Accessor[V]
}

// New returns an empty grid.
func New[V any]() *Grid[V] {
	g := &Grid[V]{sectors: make(map[[3]int32]*sector[V])}
	g.acc = &Accessor[V]{g: g}
	return g
}

// Get reports the value and active flag stored at c, and whether the slot
// has ever been written at all.
func (g *Grid[V]) Get(c Coord) (value V, active bool, found bool) {
	return g.acc.Get(c)
}

// SetValue overwrites the slot at c with value and active, creating it if
// absent.
func (g *Grid[V]) SetValue(c Coord, value V, active bool) {
	g.acc.SetValue(c, value, active)
}

// SetActive sets only the active flag at c, leaving the value untouched. A
// slot that did not exist is created with the zero value of V.
func (g *Grid[V]) SetActive(c Coord, active bool) {
	g.acc.SetActive(c, active)
}

// Modify fuses lookup and mutation into one accessor descent: fn receives
// pointers to the slot's current value and active flag (default-zero if the
// slot didn't exist) and may mutate both in place.
func (g *Grid[V]) Modify(c Coord, fn func(value *V, active *bool)) {
	g.acc.Modify(c, fn)
}

// Accessor returns a fresh accessor bound to this grid, for callers (like
// the raycaster) that want to cache leaf-node locality across a run of
// nearby coordinates themselves.
func (g *Grid[V]) Accessor() *Accessor[V] {
	return &Accessor[V]{g: g}
}

// IterActive returns a restartable, range-over-func sequence of every
// active (coord, value) pair. Iteration order is unspecified but stable
// within a single call.
func (g *Grid[V]) IterActive() func(yield func(Coord, V) bool) {
	return func(yield func(Coord, V) bool) {
		for secCoord, sec := range g.sectors {
			cont := sec.forEachBrick(func(bKey [3]int32, brk *brick[V]) bool {
				return brk.forEachActive(func(idx int) bool {
					return yield(coordFromFlat(secCoord, bKey, idx), brk.values[idx])
				})
			})
			if !cont {
				return
			}
		}
	}
}

// IterPresent returns a restartable sequence of every touched (present)
// voxel paired with its current active flag. This is what the update grid's
// fusion pass ranges over: touched&&active is a hit, touched&&!active is a
// miss. The value itself is omitted (callers needing it use Get) since Go's
// for-range over a func value only accepts one- or two-result shapes.
func (g *Grid[V]) IterPresent() func(yield func(Coord, bool) bool) {
	return func(yield func(Coord, bool) bool) {
		for secCoord, sec := range g.sectors {
			cont := sec.forEachBrick(func(bKey [3]int32, brk *brick[V]) bool {
				return brk.forEachTouched(func(idx int) bool {
					return yield(coordFromFlat(secCoord, bKey, idx), brk.isActive(idx))
				})
			})
			if !cont {
				return
			}
		}
	}
}

// All calls yield once for every touched voxel with its value and active
// flag, stopping early if yield returns false. Unlike IterPresent this is a
// plain callback rather than a range-over-func sequence, so it is not
// restricted to the one/two-result shapes "range" accepts; persistence uses
// it to snapshot every slot's full payload.
func (g *Grid[V]) All(yield func(c Coord, value V, active bool) bool) {
	for secCoord, sec := range g.sectors {
		cont := sec.forEachBrick(func(bKey [3]int32, brk *brick[V]) bool {
			return brk.forEachTouched(func(idx int) bool {
				return yield(coordFromFlat(secCoord, bKey, idx), brk.values[idx], brk.isActive(idx))
			})
		})
		if !cont {
			return
		}
	}
}

// Clear empties all slots.
func (g *Grid[V]) Clear() {
	g.sectors = make(map[[3]int32]*sector[V])
	g.acc = &Accessor[V]{g: g}
}

// IsEmpty reports whether the grid has no sectors at all.
func (g *Grid[V]) IsEmpty() bool {
	return len(g.sectors) == 0
}

func coordFromFlat(sec [3]int32, b [3]int32, idx int) Coord {
	vx := int32(idx % BrickSize)
	vy := int32((idx / BrickSize) % BrickSize)
	vz := int32(idx / (BrickSize * BrickSize))
	return Coord{
		I: sec[0]*SectorSize + b[0]*BrickSize + vx,
		J: sec[1]*SectorSize + b[1]*BrickSize + vy,
		K: sec[2]*SectorSize + b[2]*BrickSize + vz,
	}
}
