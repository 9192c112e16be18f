package occmap

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"

	"github.com/occgrid/occmap/grid"
)

const mapFileExt = "cbor"

// savedVoxel is the on-disk record for one touched slot of the persistent
// grid. The byte layout is owned by this engine, not prescribed by the
// spec it implements: only round-trip fidelity is contractual (§8).
type savedVoxel[V any] struct {
	I, J, K int32
	Active  bool
	Value   V
}

type savedMap[V any] struct {
	EngineID   uuid.UUID
	Resolution float64
	Voxels     []savedVoxel[V]
}

// saveGrid encodes every touched slot of g as CBOR and writes it to
// <dir>/<timestamp>_map.cbor, creating dir if necessary. It returns the path
// written. The saving engine's id is stamped into the file header so a
// later load can log provenance even across engine instances.
func saveGrid[V any](t Transform, g *grid.Grid[V], dir string, id uuid.UUID, now time.Time) (string, error) {
	payload := savedMap[V]{EngineID: id, Resolution: t.Resolution()}
	g.All(func(c grid.Coord, v V, active bool) bool {
		payload.Voxels = append(payload.Voxels, savedVoxel[V]{I: c.I, J: c.J, K: c.K, Active: active, Value: v})
		return true
	})

	data, err := cbor.Marshal(payload)
	if err != nil {
		return "", wrapError(IOError, "encode map", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", wrapError(IOError, "create map directory", err)
	}

	name := fmt.Sprintf("%s_map.%s", now.Format("2006-01-02_15-04-05"), mapFileExt)
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", wrapError(IOError, "write map file", err)
	}
	return path, nil
}

// loadGrid decodes a file written by saveGrid and rebuilds a grid from it,
// along with the id of the engine that produced it.
func loadGrid[V any](path string) (*grid.Grid[V], Transform, uuid.UUID, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, Transform{}, uuid.UUID{}, wrapError(IOError, "read map file", err)
	}
	var payload savedMap[V]
	if err := cbor.Unmarshal(data, &payload); err != nil {
		return nil, Transform{}, uuid.UUID{}, wrapError(IOError, "decode map", err)
	}

	g := grid.New[V]()
	for _, sv := range payload.Voxels {
		g.SetValue(grid.Coord{I: sv.I, J: sv.J, K: sv.K}, sv.Value, sv.Active)
	}
	return g, NewTransform(payload.Resolution), payload.EngineID, nil
}
