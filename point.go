package occmap

import "math"

// Point is one sample of a point cloud in world-frame coordinates (§6 input
// contract). Color may be given either as [0,255] or [0,1] per channel;
// toObservation normalizes it. Label is an optional semantic class id.
type Point struct {
	X, Y, Z float64

	HasColor bool
	R, G, B  float32
	HasLabel bool
	Label    int32
}

// PointCloud is an ordered batch of points making up one observation.
type PointCloud []Point

// Observation carries the ancillary per-hit data (color, label) that rides
// alongside a hit voxel. The update grid itself only stores bool (§4.5);
// Observation is the parallel channel for enriching hits with
// appearance/semantic evidence.
type Observation struct {
	Color    [3]float32
	HasColor bool
	Label    int32
	HasLabel bool
}

func (p Point) finite() bool {
	return isFinite(p.X) && isFinite(p.Y) && isFinite(p.Z)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// toObservation normalizes the point's optional color into [0,1] per
// channel and packages it with the optional label.
func (p Point) toObservation() Observation {
	obs := Observation{HasLabel: p.HasLabel, Label: p.Label}
	if !p.HasColor {
		return obs
	}
	r, g, b := p.R, p.G, p.B
	if r > 1 || g > 1 || b > 1 {
		r, g, b = r/255, g/255, b/255
	}
	obs.HasColor = true
	obs.Color = [3]float32{r, g, b}
	return obs
}
