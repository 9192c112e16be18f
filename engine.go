package occmap

import (
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"

	"github.com/occgrid/occmap/grid"
)

// Engine is the facade over the sparse persistent grid, the raycaster, and
// the fusion engine: the whole occupancy mapping pipeline for one sensor's
// worth of observations (§4, §6). V is the per-voxel payload type; PV
// constrains its pointer to the Value contract the fusion engine needs.
type Engine[V any, PV ValuePtr[V]] struct {
	id uuid.UUID

	transform  Transform
	persistent *grid.Grid[V]

	cfg     *Config
	derived derivedConfig

	logger Logger
}

// NewEngine constructs an engine using the default Occupancy voxel payload
// (log-odds occupancy, color, and semantic label) at the given resolution,
// in meters per voxel edge.
func NewEngine(resolution float64) *Engine[Occupancy, *Occupancy] {
	return NewEngineWith[Occupancy, *Occupancy](resolution)
}

// NewEngineWith constructs an engine parameterized over a caller-supplied
// voxel payload type V, whose pointer must satisfy Value.
func NewEngineWith[V any, PV ValuePtr[V]](resolution float64) *Engine[V, PV] {
	return &Engine[V, PV]{
		id:         uuid.New(),
		transform:  NewTransform(resolution),
		persistent: grid.New[V](),
		logger:     NewDefaultLogger("occmap", false),
	}
}

// ID identifies this engine instance, e.g. for log correlation across
// multiple concurrently-running maps.
func (e *Engine[V, PV]) ID() uuid.UUID { return e.id }

// SetLogger replaces the engine's diagnostic sink. The default is a
// DefaultLogger writing to stderr/stdout.
func (e *Engine[V, PV]) SetLogger(l Logger) { e.logger = l }

// SetConfig validates and installs cfg. An invalid Config is rejected and
// the engine's existing configuration, if any, is left untouched (§7).
func (e *Engine[V, PV]) SetConfig(cfg Config) error {
	if err := validateConfig(cfg); err != nil {
		return err
	}
	derived := deriveConfig(cfg)
	e.cfg = &cfg
	e.derived = derived
	return nil
}

func (e *Engine[V, PV]) configured() bool { return e.cfg != nil }

func (e *Engine[V, PV]) requireConfigured(op string) error {
	if !e.configured() {
		return newError(ConfigMissing, op+" called before set_config")
	}
	return nil
}

// InsertPointCloud runs one observation through the raycaster and fusion
// engine: it mutates the persistent grid in place and returns the
// observation's update grid (hits and misses) and the change grid (voxels
// whose active flag flipped), per §4.4-§4.5.
func (e *Engine[V, PV]) InsertPointCloud(cloud PointCloud, origin mgl64.Vec3) (update, change *grid.Grid[struct{}], err error) {
	if err := e.requireConfigured("insert_point_cloud"); err != nil {
		return nil, nil, err
	}
	res := raycastPointCloud(e.transform, cloud, origin, e.cfg.MaxRange, e.cfg.StaticEnv, e.logger)
	change = fuse[V, PV](e.persistent, res.update, res.hits, e.derived, e.cfg.semanticHistorySize())
	return res.update, change, nil
}

// Reset recreates the persistent grid empty, preserving resolution.
func (e *Engine[V, PV]) Reset() error {
	if err := e.requireConfigured("reset"); err != nil {
		return err
	}
	e.persistent = grid.New[V]()
	return nil
}

// Save writes the persistent grid to MapDirectoryPath and returns the path
// written.
func (e *Engine[V, PV]) Save() (string, error) {
	if err := e.requireConfigured("save"); err != nil {
		return "", err
	}
	return saveGrid(e.transform, e.persistent, e.cfg.MapDirectoryPath, e.id, time.Now())
}

// Load replaces the persistent grid (and resolution) with the contents of
// the map file at path.
func (e *Engine[V, PV]) Load(path string) error {
	if err := e.requireConfigured("load"); err != nil {
		return err
	}
	g, tr, sourceID, err := loadGrid[V](path)
	if err != nil {
		e.logger.Warnf("load map from %s failed: %v", path, err)
		return err
	}
	e.logger.Infof("loaded map from %s (saved by engine %s)", path, sourceID)
	e.persistent = g
	e.transform = tr
	return nil
}

// ExtractSection implements the full-value variant of §4.6.
func (e *Engine[V, PV]) ExtractSection(wMin, wMax mgl64.Vec3, refToMap mgl64.Mat4) Section[V] {
	return extractSection[V](e.transform, e.persistent, wMin, wMax, refToMap)
}

// ExtractSectionMask implements the boolean variant of §4.6.
func (e *Engine[V, PV]) ExtractSectionMask(wMin, wMax mgl64.Vec3, refToMap mgl64.Mat4) Section[struct{}] {
	return extractSectionMask[V](e.transform, e.persistent, wMin, wMax, refToMap)
}

// ApplySection implements Apply for the full-value variant of §4.6.
func (e *Engine[V, PV]) ApplySection(sec Section[V]) error {
	return applySection[V](e.persistent, sec)
}

// ApplySectionMask implements Apply for the boolean variant of §4.6.
func (e *Engine[V, PV]) ApplySectionMask(sec Section[struct{}]) error {
	return applySectionMask[V](e.persistent, sec)
}

// PointQuery implements §4.7: raytraces against the persistent grid from
// origin along d, returning the first active voxel's world point hit within
// maxLength, or false on a miss.
func (e *Engine[V, PV]) PointQuery(origin, d mgl64.Vec3, maxLength float64) (mgl64.Vec3, bool) {
	return pointQuery[V](e.transform, e.persistent, origin, d, maxLength)
}

// IterActive exposes the persistent grid's active voxels directly.
func (e *Engine[V, PV]) IterActive() func(yield func(grid.Coord, V) bool) {
	return e.persistent.IterActive()
}

// Resolution returns the engine's fixed meters-per-voxel scale.
func (e *Engine[V, PV]) Resolution() float64 { return e.transform.Resolution() }
