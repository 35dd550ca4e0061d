package routing

import (
	"context"
	"errors"
	"math"

	"github.com/sirupsen/logrus"

	"isochrone_engine/pkg/graph"
)

var log = logrus.WithField("module", "routing")

// ErrSourceOutOfRange is returned when the source is not a dense vertex id of the network.
var ErrSourceOutOfRange = errors.New("routing: source vertex out of range")

// ctxCheckInterval is how many heap pops happen between context checks.
const ctxCheckInterval = 1024

// Run computes one-to-all shortest distances from source, stopping as soon
// as the smallest queued key is >= cutoff. Labels that end up beyond the
// cutoff are cleared, so afterwards every finite Dist is <= cutoff.
func (s *SearchState) Run(ctx context.Context, n *graph.Network, source int32, cutoff float64) error {
	s.Reset()
	if source < 0 || int(source) >= len(s.Dist) || int(source) >= n.NumVertices() {
		return ErrSourceOutOfRange
	}
	s.cutoff = cutoff

	s.touch(source, 0, graph.NoVertex)
	s.PQ.Push(source, 0)

	iterations := 0
	settled := 0
	for s.PQ.Len() > 0 {
		// Check context cancellation periodically.
		iterations++
		if iterations%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}

		if s.PQ.PeekDist() >= cutoff {
			break
		}
		item := s.PQ.Pop()
		u, d := item.Node, item.Dist
		if d > s.Dist[u] {
			continue // stale entry
		}
		settled++

		for _, a := range n.ArcsFrom(u) {
			newDist := d + a.Cost
			if newDist < s.Dist[a.Head] {
				s.touch(a.Head, newDist, u)
				s.PQ.Push(a.Head, newDist)
			}
		}
	}

	// Tentative labels past the cutoff were never settled; nothing points to them.
	for _, v := range s.Touched {
		if s.Dist[v] > cutoff {
			s.Dist[v] = math.Inf(1)
			s.Pred[v] = graph.NoVertex
		}
	}

	log.Debugf("dijkstra from %d: settled %d, touched %d, cutoff %g", source, settled, len(s.Touched), cutoff)
	return nil
}
