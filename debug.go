package compositor

import (
	"time"

	"github.com/rs/zerolog"
)

// dispatchStats holds per-dispatch timing and transaction counts.
type dispatchStats struct {
	subTime      time.Duration
	movementTime time.Duration
	propertyTime time.Duration
	animateTime  time.Duration
	sub          int
	movements    int
	properties   int
	animations   int
	rejected     int
}

func (s dispatchStats) total() time.Duration {
	return s.subTime + s.movementTime + s.propertyTime + s.animateTime
}

// debugLog logs timing and transaction stats. Only called in debug mode.
func debugLog(l zerolog.Logger, stats dispatchStats) {
	l.Debug().
		Dur("sub", stats.subTime).
		Dur("movement", stats.movementTime).
		Dur("property", stats.propertyTime).
		Dur("animation", stats.animateTime).
		Dur("total", stats.total()).
		Int("subCount", stats.sub).
		Int("movementCount", stats.movements).
		Int("propertyCount", stats.properties).
		Int("animationCount", stats.animations).
		Int("rejected", stats.rejected).
		Msg("dispatch")
}

// debugCheckTreeDepth warns if a node sits deeper than the threshold.
const debugMaxTreeDepth = 32

func debugCheckTreeDepth(l zerolog.Logger, n *DisplayNode) {
	depth := 0
	for p := n; p != nil; p = p.Supernode() {
		depth++
	}
	if depth > debugMaxTreeDepth {
		l.Warn().Int("depth", depth).Int("threshold", debugMaxTreeDepth).
			Uint64("node", n.RefID()).Msg("tree depth exceeds threshold")
	}
}

// debugCheckChildCount warns if a node has more than 1000 subnodes.
const debugMaxChildCount = 1000

func debugCheckChildCount(l zerolog.Logger, n *DisplayNode) {
	if c := n.NumSubnodes(); c > debugMaxChildCount {
		l.Warn().Int("children", c).Int("threshold", debugMaxChildCount).
			Uint64("node", n.RefID()).Msg("node child count exceeds threshold")
	}
}
