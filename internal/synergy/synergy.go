// Package synergy scores how closely each core moves with its related cores.
// Scores are a read-side projection: they are computed from a snapshot on
// demand and never persisted.
package synergy

import "github.com/innerbloomapp/innerbloom/go-engine/internal/core"

// #region scores
// Scores returns a per-core synergy score in [0, 1]. A core's score is the
// mean depth proximity to its related cores, where proximity is 1 for equal
// depths and falls linearly to 0 at the maximum ladder distance.
//
// Related ids that do not resolve to a core in the snapshot are skipped. A
// core with nothing to compare against gets no entry at all, so callers can
// tell "no data" from "score zero".
func Scores(reg *core.Registry, cores []core.EmotionalCore) map[string]float64 {
	depths := make(map[string]core.ResonanceDepth, len(cores))
	for _, c := range cores {
		depths[c.ID] = c.Depth
	}

	scores := make(map[string]float64, len(cores))
	for _, c := range cores {
		var sum float64
		var n int
		for _, rel := range reg.Related(c.ID) {
			other, ok := depths[rel]
			if !ok {
				continue
			}
			dist := core.DepthDistance(c.Depth, other)
			sum += float64(core.MaxDepthIndex-dist) / float64(core.MaxDepthIndex)
			n++
		}
		if n == 0 {
			continue
		}
		scores[c.ID] = sum / float64(n)
	}
	return scores
}

// #endregion scores
