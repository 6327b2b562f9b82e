// Package anim plays keyframe clips on scene nodes.
//
// A Clip holds per-node tracks addressed by node name. A Mixer binds clips
// to the nodes under one root and advances them with Update.
package anim

import (
	"sort"

	"github.com/Faultbox/castleview/pkg/math"
)

// VectorKey is a position or scale keyframe. Time is in seconds.
type VectorKey struct {
	Time  float32
	Value math.Vec3
}

// QuatKey is a rotation keyframe. Time is in seconds.
type QuatKey struct {
	Time  float32
	Value math.Quat
}

// Track animates one node. Empty channels leave the node's value untouched.
// With ScaleRelative set, scale keys are factors on the node's scale at the
// time the clip is bound instead of absolute values.
type Track struct {
	Node          string
	Position      []VectorKey
	Rotation      []QuatKey
	Scale         []VectorKey
	ScaleRelative bool
}

// Empty reports whether the track has no keyframes at all.
func (t *Track) Empty() bool {
	return len(t.Position) == 0 && len(t.Rotation) == 0 && len(t.Scale) == 0
}

// Clip is a named set of tracks. Duration is in seconds.
type Clip struct {
	Name     string
	Duration float32
	Tracks   []Track
}

// NewClip creates a clip, sorting every channel by time and dropping empty
// tracks. A non-positive duration is replaced by the last key time.
func NewClip(name string, duration float32, tracks []Track) *Clip {
	c := &Clip{Name: name, Duration: duration}
	for _, tr := range tracks {
		if tr.Empty() {
			continue
		}
		sort.SliceStable(tr.Position, func(i, j int) bool { return tr.Position[i].Time < tr.Position[j].Time })
		sort.SliceStable(tr.Rotation, func(i, j int) bool { return tr.Rotation[i].Time < tr.Rotation[j].Time })
		sort.SliceStable(tr.Scale, func(i, j int) bool { return tr.Scale[i].Time < tr.Scale[j].Time })
		c.Tracks = append(c.Tracks, tr)
	}
	if c.Duration <= 0 {
		c.Duration = c.lastKeyTime()
	}
	return c
}

func (c *Clip) lastKeyTime() float32 {
	var last float32
	for i := range c.Tracks {
		tr := &c.Tracks[i]
		if n := len(tr.Position); n > 0 && tr.Position[n-1].Time > last {
			last = tr.Position[n-1].Time
		}
		if n := len(tr.Rotation); n > 0 && tr.Rotation[n-1].Time > last {
			last = tr.Rotation[n-1].Time
		}
		if n := len(tr.Scale); n > 0 && tr.Scale[n-1].Time > last {
			last = tr.Scale[n-1].Time
		}
	}
	return last
}

// Track returns the track for the named node, or nil.
func (c *Clip) Track(node string) *Track {
	for i := range c.Tracks {
		if c.Tracks[i].Node == node {
			return &c.Tracks[i]
		}
	}
	return nil
}

// bracket finds the keys around t. It returns the same index twice when t
// is before the first key or at/after the last one.
func bracket(n int, timeAt func(int) float32, t float32) (prev, next int, frac float32) {
	// keys are sorted; find the first key strictly after t
	next = sort.Search(n, func(i int) bool { return timeAt(i) > t })
	if next == 0 {
		return 0, 0, 0
	}
	if next == n {
		return n - 1, n - 1, 0
	}
	prev = next - 1
	t0, t1 := timeAt(prev), timeAt(next)
	if t1 > t0 {
		frac = (t - t0) / (t1 - t0)
	}
	return prev, next, frac
}

// SampleVector interpolates linearly between vector keys.
func SampleVector(keys []VectorKey, t float32) math.Vec3 {
	switch len(keys) {
	case 0:
		return math.Vec3{}
	case 1:
		return keys[0].Value
	}
	prev, next, frac := bracket(len(keys), func(i int) float32 { return keys[i].Time }, t)
	if prev == next {
		return keys[prev].Value
	}
	return keys[prev].Value.Lerp(keys[next].Value, frac)
}

// SampleRotation interpolates spherically between rotation keys.
func SampleRotation(keys []QuatKey, t float32) math.Quat {
	switch len(keys) {
	case 0:
		return math.QuatIdentity()
	case 1:
		return keys[0].Value
	}
	prev, next, frac := bracket(len(keys), func(i int) float32 { return keys[i].Time }, t)
	if prev == next {
		return keys[prev].Value
	}
	return keys[prev].Value.Slerp(keys[next].Value, frac)
}
