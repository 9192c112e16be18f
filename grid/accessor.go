package grid

// Accessor caches the path to the most recently touched sector and brick so
// that consecutive queries within the same leaf skip both hash lookups.
// This is the locality trick a raycaster's DDA walk depends on: successive
// steps along a ray are overwhelmingly likely to land in the same brick, or
// at worst the same sector.
type Accessor[V any] struct {
	g *Grid[V]

	haveSec bool
	secKey  [3]int32
	sec     *sector[V]

	haveBrick bool
	brickKey  [3]int32
	brk       *brick[V]
}

func (a *Accessor[V]) invalidate() {
	a.haveSec = false
	a.haveBrick = false
	a.sec = nil
	a.brk = nil
}

// resolveRead locates the brick and voxel index for c without creating
// anything. ok is false if the sector or brick doesn't exist.
func (a *Accessor[V]) resolveRead(c Coord) (brk *brick[V], idx int, ok bool) {
	sKey, local := sectorKey(c)
	if !a.haveSec || a.secKey != sKey || a.sec == nil {
		a.sec = a.g.sectors[sKey]
		a.secKey = sKey
		a.haveSec = true
		a.haveBrick = false
	}
	if a.sec == nil {
		return nil, 0, false
	}

	bKey, vox := brickKey(local)
	if !a.haveBrick || a.brickKey != bKey || a.brk == nil {
		a.brk = a.sec.getBrick(bKey)
		a.brickKey = bKey
		a.haveBrick = true
	}
	if a.brk == nil {
		return nil, 0, false
	}
	return a.brk, voxelFlatIndex(vox), true
}

// resolveWrite locates the brick and voxel index for c, creating the sector
// and/or brick if absent.
func (a *Accessor[V]) resolveWrite(c Coord) (brk *brick[V], idx int) {
	sKey, local := sectorKey(c)
	if !a.haveSec || a.secKey != sKey || a.sec == nil {
		sec, ok := a.g.sectors[sKey]
		if !ok {
			sec = newSector[V](sKey)
			a.g.sectors[sKey] = sec
		}
		a.sec = sec
		a.secKey = sKey
		a.haveSec = true
		a.haveBrick = false
	}

	bKey, vox := brickKey(local)
	if !a.haveBrick || a.brickKey != bKey || a.brk == nil {
		a.brk = a.sec.getOrCreateBrick(bKey)
		a.brickKey = bKey
		a.haveBrick = true
	}
	return a.brk, voxelFlatIndex(vox)
}

func (a *Accessor[V]) Get(c Coord) (value V, active bool, found bool) {
	brk, idx, ok := a.resolveRead(c)
	if !ok {
		return value, false, false
	}
	return brk.values[idx], brk.isActive(idx), brk.isTouched(idx)
}

func (a *Accessor[V]) SetValue(c Coord, value V, active bool) {
	brk, idx := a.resolveWrite(c)
	brk.values[idx] = value
	brk.setTouched(idx, true)
	brk.setActiveBit(idx, active)
}

func (a *Accessor[V]) SetActive(c Coord, active bool) {
	brk, idx := a.resolveWrite(c)
	if !brk.isTouched(idx) {
		var zero V
		brk.values[idx] = zero
		brk.setTouched(idx, true)
	}
	brk.setActiveBit(idx, active)
}

func (a *Accessor[V]) Modify(c Coord, fn func(value *V, active *bool)) {
	brk, idx := a.resolveWrite(c)
	if !brk.isTouched(idx) {
		var zero V
		brk.values[idx] = zero
		brk.setTouched(idx, true)
	}
	active := brk.isActive(idx)
	fn(&brk.values[idx], &active)
	brk.setActiveBit(idx, active)
}
