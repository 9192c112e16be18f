package occmap

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/occgrid/occmap/grid"
)

func scenarioConfig() Config {
	return Config{
		ProbHit:      0.7,
		ProbMiss:     0.4,
		ProbThresMin: 0.4,
		ProbThresMax: 0.7,
	}
}

func TestEngineOperationsRequireConfig(t *testing.T) {
	e := NewEngine(0.1)
	if _, _, err := e.InsertPointCloud(PointCloud{{X: 1}}, mgl64.Vec3{}); err == nil {
		t.Fatalf("expected ConfigMissing before set_config")
	}
	if err := e.Reset(); err == nil {
		t.Fatalf("expected ConfigMissing for reset before set_config")
	}
	if _, err := e.Save(); err == nil {
		t.Fatalf("expected ConfigMissing for save before set_config")
	}
}

func TestEngineRejectsInvalidConfig(t *testing.T) {
	e := NewEngine(0.1)
	bad := scenarioConfig()
	bad.ProbThresMin = 0.9
	bad.ProbThresMax = 0.1
	if err := e.SetConfig(bad); err == nil {
		t.Fatalf("expected ConfigInvalid for thres_min > thres_max")
	}
	if err := e.SetConfig(scenarioConfig()); err != nil {
		t.Fatalf("a valid config after a rejected one must still be accepted: %v", err)
	}
}

// Scenario 1: single unbounded-range ray establishes the expected log-odds.
func TestScenarioSingleRayLogOdds(t *testing.T) {
	e := NewEngine(0.1)
	if err := e.SetConfig(scenarioConfig()); err != nil {
		t.Fatalf("set_config: %v", err)
	}

	// A miss only updates a slot the persistent grid already has (a
	// never-observed voxel stays unobserved), so seed the traversed voxels
	// with the default value before the observation.
	for i := int32(0); i < 9; i++ {
		e.persistent.SetValue(grid.Coord{I: i, J: 0, K: 0}, Occupancy{}, false)
	}

	_, _, err := e.InsertPointCloud(PointCloud{{X: 1.0, Y: 0, Z: 0}}, mgl64.Vec3{0, 0, 0})
	if err != nil {
		t.Fatalf("insert_point_cloud: %v", err)
	}

	// The point sits exactly on the boundary between voxel 9 and voxel 10
	// (1.0 / 0.1 == 10.0 exactly in float64), so under the floor convention
	// the hit lands in voxel 10; voxels 0..8 are the nine traversed misses.
	hit := grid.Coord{I: 10, J: 0, K: 0}
	v, active, found := e.persistent.Get(hit)
	if !found {
		t.Fatalf("expected slot at %+v", hit)
	}
	if active {
		t.Fatalf("a single hit must not yet activate the voxel")
	}
	wantHit := float32(math.Log(0.7 / 0.3))
	if math.Abs(float64(v.LogOddsValue-wantHit)) > 1e-3 {
		t.Fatalf("expected l ~ %v at the hit voxel, got %v", wantHit, v.LogOddsValue)
	}

	wantMiss := float32(math.Log(0.4 / 0.6))
	for i := int32(0); i < 9; i++ {
		mv, _, found := e.persistent.Get(grid.Coord{I: i, J: 0, K: 0})
		if !found {
			t.Fatalf("expected miss slot at i=%d", i)
		}
		if math.Abs(float64(mv.LogOddsValue-wantMiss)) > 1e-3 {
			t.Fatalf("expected l ~ %v at i=%d, got %v", wantMiss, i, mv.LogOddsValue)
		}
	}
}

// Scenario 2: seven consecutive hits cross the activation threshold exactly once.
func TestScenarioRepeatedHitsActivateOnce(t *testing.T) {
	e := NewEngine(0.1)
	if err := e.SetConfig(scenarioConfig()); err != nil {
		t.Fatalf("set_config: %v", err)
	}
	hit := grid.Coord{I: 10, J: 0, K: 0}

	activations := 0
	for i := 0; i < 7; i++ {
		_, change, err := e.InsertPointCloud(PointCloud{{X: 1.0, Y: 0, Z: 0}}, mgl64.Vec3{0, 0, 0})
		if err != nil {
			t.Fatalf("insert_point_cloud: %v", err)
		}
		if _, flipped, found := change.Get(hit); found && flipped {
			activations++
		}
	}
	if activations != 1 {
		t.Fatalf("expected exactly one activating observation, got %d", activations)
	}
	if _, active, _ := e.persistent.Get(hit); !active {
		t.Fatalf("expected the voxel active after seven hits")
	}
}

// Scenario 3: a truncated ray writes no endpoint hit.
func TestScenarioTruncatedRangeNoHit(t *testing.T) {
	e := NewEngine(0.1)
	cfg := scenarioConfig()
	cfg.MaxRange = 2.0
	if err := e.SetConfig(cfg); err != nil {
		t.Fatalf("set_config: %v", err)
	}

	update, _, err := e.InsertPointCloud(PointCloud{{X: 5.0, Y: 0, Z: 0}}, mgl64.Vec3{0, 0, 0})
	if err != nil {
		t.Fatalf("insert_point_cloud: %v", err)
	}

	// floor(5.0 / 0.1) == 50.
	untouched := grid.Coord{I: 50, J: 0, K: 0}
	if _, _, found := e.persistent.Get(untouched); found {
		t.Fatalf("voxel containing the original (untruncated) endpoint must stay untouched")
	}

	e.persistent.All(func(c grid.Coord, v Occupancy, active bool) bool {
		if active {
			t.Fatalf("a truncated ray must not record any hit, but %+v is active", c)
		}
		return true
	})

	// On a fresh map the misses land in the returned update grid only: fusion
	// does not create persistent slots for never-observed voxels.
	misses := 0
	for _, hit := range update.IterPresent() {
		if !hit {
			misses++
		}
	}
	if misses == 0 {
		t.Fatalf("expected miss voxels written along the truncated ray")
	}
}

// Scenario 4: static_env mode writes exactly one slot (the hit), no misses.
func TestScenarioStaticEnvOnlyHit(t *testing.T) {
	e := NewEngine(0.1)
	cfg := scenarioConfig()
	cfg.StaticEnv = true
	if err := e.SetConfig(cfg); err != nil {
		t.Fatalf("set_config: %v", err)
	}

	_, _, err := e.InsertPointCloud(PointCloud{{X: 1.0, Y: 0, Z: 0}}, mgl64.Vec3{0, 0, 0})
	if err != nil {
		t.Fatalf("insert_point_cloud: %v", err)
	}

	count := 0
	for range e.persistent.IterActive() {
		count++
	}
	slots := 0
	e.persistent.All(func(c grid.Coord, v Occupancy, active bool) bool {
		slots++
		return true
	})
	if slots != 1 {
		t.Fatalf("expected exactly one slot in static_env mode, got %d", slots)
	}
}

// Scenario 5: section extract/apply transplants exactly the active set inside the AABB.
func TestScenarioSectionExtractApplyAcrossEngines(t *testing.T) {
	src := NewEngine(0.1)
	if err := src.SetConfig(scenarioConfig()); err != nil {
		t.Fatalf("set_config: %v", err)
	}
	a := grid.Coord{I: 1, J: 1, K: 1}
	b := grid.Coord{I: 2, J: 2, K: 2}
	outside := grid.Coord{I: 100, J: 100, K: 100}
	src.persistent.SetValue(a, Occupancy{LogOddsValue: 1}, true)
	src.persistent.SetValue(b, Occupancy{LogOddsValue: 1}, true)
	src.persistent.SetValue(outside, Occupancy{LogOddsValue: 1}, true)

	sec := src.ExtractSection(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{0.35, 0.35, 0.35}, mgl64.Ident4())

	dst := NewEngine(0.1)
	if err := dst.SetConfig(scenarioConfig()); err != nil {
		t.Fatalf("set_config: %v", err)
	}
	if err := dst.ApplySection(sec); err != nil {
		t.Fatalf("apply_section: %v", err)
	}

	wantActive := map[grid.Coord]bool{a: true, b: true}
	gotActive := map[grid.Coord]bool{}
	for c := range dst.IterActive() {
		gotActive[c] = true
	}
	if len(gotActive) != len(wantActive) {
		t.Fatalf("expected active set %v, got %v", wantActive, gotActive)
	}
	for c := range wantActive {
		if !gotActive[c] {
			t.Fatalf("expected %+v active in destination engine", c)
		}
	}
}

// Scenario 6: point query against a map with one active voxel hits within a voxel of it.
func TestScenarioPointQueryHitsMap(t *testing.T) {
	e := NewEngine(0.1)
	if err := e.SetConfig(scenarioConfig()); err != nil {
		t.Fatalf("set_config: %v", err)
	}
	e.persistent.SetValue(grid.Coord{I: 9, J: 0, K: 0}, Occupancy{}, true)

	hit, ok := e.PointQuery(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{1, 0, 0}, 1.5)
	if !ok {
		t.Fatalf("expected a hit")
	}
	if math.Abs(hit.X()-0.9) > 1e-9 || hit.Y() != 0 || hit.Z() != 0 {
		t.Fatalf("expected hit at world (0.9,0,0), got %+v", hit)
	}
}

// §8: save, reset, then load from the same file must reconstruct an
// identical active set, exercised through the Engine facade rather than
// the bare persistence functions.
func TestEngineSaveResetLoadRoundTrip(t *testing.T) {
	e := NewEngine(0.1)
	cfg := scenarioConfig()
	cfg.MapDirectoryPath = t.TempDir()
	if err := e.SetConfig(cfg); err != nil {
		t.Fatalf("set_config: %v", err)
	}

	c := grid.Coord{I: 3, J: -2, K: 7}
	e.persistent.SetValue(c, Occupancy{LogOddsValue: 2, R: 0.5}, true)

	path, err := e.Save()
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	if err := e.Reset(); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if !e.persistent.IsEmpty() {
		t.Fatalf("expected empty grid after reset")
	}

	if err := e.Load(path); err != nil {
		t.Fatalf("load: %v", err)
	}

	v, active, found := e.persistent.Get(c)
	if !found || !active {
		t.Fatalf("expected %+v active after load, found=%v active=%v", c, found, active)
	}
	if v.LogOddsValue != 2 || v.R != 0.5 {
		t.Fatalf("expected value to survive the round trip, got %+v", v)
	}
	if e.Resolution() != 0.1 {
		t.Fatalf("expected resolution to survive the round trip, got %v", e.Resolution())
	}
}
