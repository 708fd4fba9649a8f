package core

import "strings"

// #region depth
// ResonanceDepth is the qualitative stage a core occupies on the depth ladder.
// Depths are ordered; the zero value is Dormant.
type ResonanceDepth int

const (
	Dormant ResonanceDepth = iota
	Emerging
	Developing
	Deepening
	Integrated
	Transcendent
)

// DepthCount is the number of rungs on the ladder.
const DepthCount = 6

// MaxDepthIndex is the index of the terminal depth, used for distance scoring.
const MaxDepthIndex = int(Transcendent)

// #endregion depth

// #region ladder
// band holds the per-depth constants for one rung of the ladder.
type band struct {
	name     string
	minLevel float64
	maxLevel float64
	minDwell int     // entries required at a depth before it can be left
	ascent   float64 // strength must exceed this to move up one rung
	descent  float64 // strength must exceed this to move down one rung
}

// ladder is indexed by depth. Ranges are contiguous and span [0, 1]. Minimum
// dwell and ascent thresholds rise with depth, while each descent threshold
// sits below its ascent threshold: regression registers more easily than
// progress. The dormant descent and the transcendent ascent are pinned at 1.0,
// which a strict > comparison can never clear.
var ladder = [DepthCount]band{
	{name: "dormant", minLevel: 0.00, maxLevel: 0.10, minDwell: 3, ascent: 0.60, descent: 1.00},
	{name: "emerging", minLevel: 0.10, maxLevel: 0.25, minDwell: 5, ascent: 0.65, descent: 0.50},
	{name: "developing", minLevel: 0.25, maxLevel: 0.45, minDwell: 7, ascent: 0.70, descent: 0.55},
	{name: "deepening", minLevel: 0.45, maxLevel: 0.65, minDwell: 10, ascent: 0.75, descent: 0.58},
	{name: "integrated", minLevel: 0.65, maxLevel: 0.85, minDwell: 15, ascent: 0.80, descent: 0.60},
	{name: "transcendent", minLevel: 0.85, maxLevel: 1.00, minDwell: 20, ascent: 1.00, descent: 0.62},
}

// #endregion ladder

// #region depth-methods
// Valid reports whether d is a defined depth.
func (d ResonanceDepth) Valid() bool {
	return d >= Dormant && d <= Transcendent
}

// String returns the lower-case depth name used on the wire and in storage.
func (d ResonanceDepth) String() string {
	if !d.Valid() {
		return "unknown"
	}
	return ladder[d].name
}

// MinLevel returns the inclusive lower bound of this depth's numeric range.
func (d ResonanceDepth) MinLevel() float64 {
	return ladder[d].minLevel
}

// MaxLevel returns the inclusive upper bound of this depth's numeric range.
func (d ResonanceDepth) MaxLevel() float64 {
	return ladder[d].maxLevel
}

// Midpoint is the level a core is assigned when it transitions into this depth.
func (d ResonanceDepth) Midpoint() float64 {
	return (ladder[d].minLevel + ladder[d].maxLevel) / 2
}

// Contains reports whether level falls inside this depth's range.
func (d ResonanceDepth) Contains(level float64) bool {
	return level >= ladder[d].minLevel && level <= ladder[d].maxLevel
}

// MinimumDwell returns how many entries a core must spend at this depth
// before a transition away from it can fire.
func (d ResonanceDepth) MinimumDwell() int {
	return ladder[d].minDwell
}

// AscentThreshold returns the strength a signal must exceed to move a core
// up from this depth.
func (d ResonanceDepth) AscentThreshold() float64 {
	return ladder[d].ascent
}

// DescentThreshold returns the strength a signal must exceed to move a core
// down from this depth.
func (d ResonanceDepth) DescentThreshold() float64 {
	return ladder[d].descent
}

// #endregion depth-methods

// #region parse
// ParseDepth matches name against the depth names, case-insensitively and
// ignoring surrounding whitespace. The boolean is false for unknown names;
// callers treat that as "no suggested change", never as an error.
func ParseDepth(name string) (ResonanceDepth, bool) {
	n := strings.ToLower(strings.TrimSpace(name))
	for i := range ladder {
		if ladder[i].name == n {
			return ResonanceDepth(i), true
		}
	}
	return Dormant, false
}

// DepthDistance returns the absolute index distance between two depths.
func DepthDistance(a, b ResonanceDepth) int {
	if a > b {
		return int(a - b)
	}
	return int(b - a)
}

// #endregion parse
