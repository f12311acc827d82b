package sketch

import (
	"github.com/gogpu/gg"
)

// lengthAccuracy is the tolerance, in pixels, of arc length measurement.
const lengthAccuracy = 0.01

// Track accumulates the pointer samples of one stroke and the smoothed
// path through them.
//
// Each new station appends a quadratic segment whose control point is the
// previous station and whose end point is the midpoint between the previous
// and the new station. A Track with fewer than two stations is empty.
//
// Track is not safe for concurrent use. Publish clones across goroutines.
type Track struct {
	stations []PointV
	path     *gg.Path
	lastEnd  Point
	length   float64
	started  bool

	// seg holds the newest segment while it is measured.
	seg *gg.Path
}

// NewTrack returns an empty track.
func NewTrack() *Track {
	return &Track{path: gg.NewPath()}
}

// Departure starts the track at p. It is ignored if the track has already
// started.
func (t *Track) Departure(p PointV) {
	if t.started {
		Logger().Debug("sketch: departure on started track ignored", "x", p.X, "y", p.Y)
		return
	}
	t.started = true
	t.stations = append(t.stations, p)
	t.path.MoveTo(p.X, p.Y)
	t.lastEnd = p.Point
}

// AddStation appends p to the track. A track that has not started departs
// at p instead.
func (t *Track) AddStation(p PointV) {
	if !t.started {
		t.Departure(p)
		return
	}
	prev := t.stations[len(t.stations)-1].Point
	end := midpoint(prev, p.Point)
	t.path.QuadraticTo(prev.X, prev.Y, end.X, end.Y)
	if t.seg == nil {
		t.seg = gg.NewPath()
	}
	t.seg.Clear()
	t.seg.MoveTo(t.lastEnd.X, t.lastEnd.Y)
	t.seg.QuadraticTo(prev.X, prev.Y, end.X, end.Y)
	t.length += t.seg.Length(lengthAccuracy)
	t.lastEnd = end
	t.stations = append(t.stations, p)
}

// IsEmpty reports whether the track has fewer than two stations.
func (t *Track) IsEmpty() bool {
	return len(t.stations) < 2
}

// Len returns the number of stations.
func (t *Track) Len() int {
	return len(t.stations)
}

// Started reports whether Departure has been called since the last Reset.
func (t *Track) Started() bool {
	return t.started
}

// Stations returns a copy of the stations.
func (t *Track) Stations() []PointV {
	out := make([]PointV, len(t.stations))
	copy(out, t.stations)
	return out
}

// Path returns a copy of the smoothed path.
func (t *Track) Path() *gg.Path {
	return t.path.Clone()
}

// Length returns the measured length of the smoothed path. It never
// decreases while stations are added.
func (t *Track) Length() float64 {
	return t.length
}

// Bounds returns the tight bounding box of the smoothed path.
func (t *Track) Bounds() (minPt, maxPt Point) {
	r := t.path.BoundingBox()
	return r.Min, r.Max
}

// Transform returns a new track whose stations and path are mapped by m.
// Velocities are mapped without translation.
func (t *Track) Transform(m gg.Matrix) *Track {
	out := &Track{
		stations: make([]PointV, len(t.stations)),
		path:     t.path.Transform(m),
		lastEnd:  m.TransformPoint(t.lastEnd),
		started:  t.started,
	}
	for i, s := range t.stations {
		v := m.TransformVector(Point{X: s.V.X, Y: s.V.Y})
		out.stations[i] = PointV{Point: m.TransformPoint(s.Point), V: Velocity{X: v.X, Y: v.Y}}
	}
	out.length = out.path.Length(lengthAccuracy)
	return out
}

// Clone returns a deep copy.
func (t *Track) Clone() *Track {
	out := &Track{
		stations: make([]PointV, len(t.stations)),
		path:     t.path.Clone(),
		lastEnd:  t.lastEnd,
		length:   t.length,
		started:  t.started,
	}
	copy(out.stations, t.stations)
	return out
}

// Reset empties the track so it can start again.
func (t *Track) Reset() {
	t.stations = t.stations[:0]
	t.path.Clear()
	t.lastEnd = Point{}
	t.length = 0
	t.started = false
}
