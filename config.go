package occmap

import "math"

// Config holds the engine's tunable parameters. It is immutable once
// accepted by Engine.SetConfig; SetConfig rejects an invalid Config without
// mutating the engine's existing configuration (§6, §7).
type Config struct {
	// MaxRange bounds how far a ray is allowed to travel before being
	// truncated. Zero means unbounded; SetConfig rejects a negative value.
	MaxRange float64

	// ProbHit/ProbMiss are the sensor model's hit/miss probabilities,
	// converted internally to log-odds increments.
	ProbHit  float64
	ProbMiss float64

	// ProbThresMin/ProbThresMax are the hysteresis thresholds: a voxel
	// activates when its probability rises above ProbThresMax and
	// deactivates when it falls below ProbThresMin.
	ProbThresMin float64
	ProbThresMax float64

	// MapDirectoryPath is where Save writes map files.
	MapDirectoryPath string

	// StaticEnv disables miss-marking during raycasting (§4.4).
	StaticEnv bool

	// SemanticHistorySize bounds the majority-vote FIFO used by the
	// default Occupancy value's semantic label fusion. Zero means the
	// default of 5.
	SemanticHistorySize uint32
}

const defaultSemanticHistorySize = 5

// clampProbMin/clampProbMax bound the confidence log-odds can express,
// keeping the map responsive to change (§4.5).
const (
	clampProbMin = 0.01
	clampProbMax = 0.99
)

// derivedConfig is the log-odds form of Config, computed once by SetConfig.
type derivedConfig struct {
	deltaHit  float32
	deltaMiss float32
	lThresMin float32
	lThresMax float32
	lMin      float32
	lMax      float32
}

func logOdds(p float64) float32 {
	return float32(math.Log(p / (1 - p)))
}

func validateConfig(cfg Config) error {
	if cfg.MaxRange < 0 {
		return newError(ConfigInvalid, "max_range must be >= 0")
	}
	if !(cfg.ProbHit > 0.5 && cfg.ProbHit < 1) {
		return newError(ConfigInvalid, "prob_hit must be in (0.5, 1)")
	}
	if !(cfg.ProbMiss > 0 && cfg.ProbMiss < 0.5) {
		return newError(ConfigInvalid, "prob_miss must be in (0, 0.5)")
	}
	if !(cfg.ProbThresMin > 0 && cfg.ProbThresMin < 1) {
		return newError(ConfigInvalid, "prob_thres_min must be in (0, 1)")
	}
	if !(cfg.ProbThresMax > 0 && cfg.ProbThresMax < 1) {
		return newError(ConfigInvalid, "prob_thres_max must be in (0, 1)")
	}
	if cfg.ProbThresMin > cfg.ProbThresMax {
		return newError(ConfigInvalid, "prob_thres_min must be <= prob_thres_max")
	}
	return nil
}

func deriveConfig(cfg Config) derivedConfig {
	return derivedConfig{
		deltaHit:  logOdds(cfg.ProbHit),
		deltaMiss: logOdds(cfg.ProbMiss),
		lThresMin: logOdds(cfg.ProbThresMin),
		lThresMax: logOdds(cfg.ProbThresMax),
		lMin:      logOdds(clampProbMin),
		lMax:      logOdds(clampProbMax),
	}
}

func (c Config) semanticHistorySize() int {
	if c.SemanticHistorySize == 0 {
		return defaultSemanticHistorySize
	}
	return int(c.SemanticHistorySize)
}
