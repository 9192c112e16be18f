package occmap

import "github.com/occgrid/occmap/grid"

// Value is the capability every voxel payload type must provide: a log-odds
// occupancy scalar the fusion engine reads and updates in place (§4.5).
// Implementations are expected to be used through a pointer; see ValuePtr.
type Value interface {
	LogOdds() float32
	SetLogOdds(float32)
}

// AttributeFuser is the optional capability a Value payload may additionally
// provide: appearance/semantic evidence folded in only while the voxel is
// active, immediately after a hit confirms or keeps it so (§4.5's resolved
// Open Question). A payload type that only tracks occupancy need not
// implement it.
type AttributeFuser interface {
	FuseHit(obs Observation, historySize int)
}

// ValuePtr constrains a generic Engine[V, PV] to payload types whose pointer
// satisfies Value. Storing V by value inside Grid keeps the dense per-brick
// array allocation-free; PV is how the fusion engine still gets a
// mutate-in-place method call on it without boxing into interface{}.
type ValuePtr[V any] interface {
	*V
	Value
}

// Occupancy is the default voxel payload: a log-odds occupancy scalar plus
// the attribute evidence described in §4.5 (running-average color, bounded
// majority-vote semantic label).
type Occupancy struct {
	LogOddsValue float32

	R, G, B float32

	Semantic int32
	history  []int32
}

func (o *Occupancy) LogOdds() float32     { return o.LogOddsValue }
func (o *Occupancy) SetLogOdds(l float32) { o.LogOddsValue = l }

// FuseHit folds one hit's color and label evidence into the voxel. Color is
// chromaticity-normalized (divided by its channel sum) before being blended
// into a running average; label is pushed into a bounded FIFO and the
// current semantic is recomputed as its mode, ties broken toward the most
// recent label.
func (o *Occupancy) FuseHit(obs Observation, historySize int) {
	if obs.HasColor {
		r, g, b := obs.Color[0], obs.Color[1], obs.Color[2]
		if sum := r + g + b; sum > 0 {
			r, g, b = r/sum, g/sum, b/sum
		}
		o.R = (o.R + r) / 2
		o.G = (o.G + g) / 2
		o.B = (o.B + b) / 2
	}
	if obs.HasLabel {
		if historySize <= 0 {
			historySize = defaultSemanticHistorySize
		}
		o.history = append(o.history, obs.Label)
		if len(o.history) > historySize {
			o.history = o.history[len(o.history)-historySize:]
		}
		o.Semantic = modeTiebreakRecent(o.history)
	}
}

// modeTiebreakRecent returns the most frequent label in history, breaking
// ties in favor of whichever tied label occurs later (more recently).
func modeTiebreakRecent(history []int32) int32 {
	counts := make(map[int32]int, len(history))
	for _, l := range history {
		counts[l]++
	}
	best := history[len(history)-1]
	bestCount := 0
	for i := len(history) - 1; i >= 0; i-- {
		l := history[i]
		if c := counts[l]; c > bestCount {
			bestCount = c
			best = l
		}
	}
	return best
}

// fuse walks every voxel touched by update, applies the hit/miss log-odds
// delta and hysteresis to the matching slot of persistent, and returns a
// change grid recording every voxel whose active flag flipped (§4.5).
//
// A miss against a slot the persistent grid has never seen is dropped: a
// never-observed voxel stays unobserved rather than being materialized as a
// confident free-space belief from a single grazing ray.
func fuse[V any, PV ValuePtr[V]](persistent *grid.Grid[V], update *grid.Grid[struct{}], hits map[grid.Coord]Observation, derived derivedConfig, histSize int) *grid.Grid[struct{}] {
	change := grid.New[struct{}]()
	for c, hit := range update.IterPresent() {
		if !hit {
			if _, _, found := persistent.Get(c); !found {
				continue
			}
		}
		var wasActive, isActive bool
		persistent.Modify(c, func(v *V, active *bool) {
			wasActive = *active
			pv := PV(v)
			if hit {
				applyHit(pv, active, derived, hits[c], histSize)
			} else {
				applyMiss(pv, active, derived)
			}
			isActive = *active
		})
		if isActive != wasActive {
			change.SetValue(c, struct{}{}, isActive)
		}
	}
	return change
}

func applyHit(pv Value, active *bool, derived derivedConfig, obs Observation, histSize int) {
	l := clampLogOdds(pv.LogOdds()+derived.deltaHit, derived.lMin, derived.lMax)
	pv.SetLogOdds(l)
	if l > derived.lThresMax {
		*active = true
	}
	if *active {
		if af, ok := pv.(AttributeFuser); ok {
			af.FuseHit(obs, histSize)
		}
	}
}

func applyMiss(pv Value, active *bool, derived derivedConfig) {
	l := clampLogOdds(pv.LogOdds()+derived.deltaMiss, derived.lMin, derived.lMax)
	pv.SetLogOdds(l)
	if l < derived.lThresMin {
		*active = false
	}
}

func clampLogOdds(l, lMin, lMax float32) float32 {
	if l < lMin {
		return lMin
	}
	if l > lMax {
		return lMax
	}
	return l
}
