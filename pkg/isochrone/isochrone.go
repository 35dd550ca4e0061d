package isochrone

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/paulmach/orb"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"isochrone_engine/pkg/concave"
	"isochrone_engine/pkg/geo"
	"isochrone_engine/pkg/graph"
	"isochrone_engine/pkg/routing"
)

var log = logrus.WithField("module", "isochrone")

// Calculator computes isochrones over one network. It is safe for
// concurrent use; every Calculate call owns its scratch space.
type Calculator struct {
	net     *graph.Network
	workers int
	refiner Refiner
}

// Option configures a Calculator.
type Option func(*Calculator)

// WithWorkers sets how many start vertices are computed in parallel.
// Values below 1 are ignored.
func WithWorkers(n int) Option {
	return func(c *Calculator) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithRefiner replaces the concave refinement applied to every convex hull.
func WithRefiner(r Refiner) Option {
	return func(c *Calculator) {
		if r != nil {
			c.refiner = r
		}
	}
}

// New builds the network from edges and returns a Calculator over it.
// The edges slice is referenced, not copied, and must not change afterwards.
func New(edges []graph.Edge, opts ...Option) (*Calculator, error) {
	net, err := graph.Build(edges)
	if err != nil {
		return nil, fmt.Errorf("build network: %w", err)
	}
	return NewFromNetwork(net, opts...), nil
}

// NewFromNetwork returns a Calculator over an already built network.
func NewFromNetwork(net *graph.Network, opts ...Option) *Calculator {
	c := &Calculator{
		net:     net,
		workers: runtime.GOMAXPROCS(0),
		refiner: concave.Refiner{Concavity: concave.DefaultConcavity},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Network returns the network the Calculator works on.
func (c *Calculator) Network() *graph.Network {
	return c.net
}

// vertexResult is the output of one start vertex.
type vertexResult struct {
	edges []NetworkEdge
	point StartPoint
}

// Calculate computes the isochrones of every start vertex in req.
// Start vertices are spread over the worker pool; the result follows the
// request order regardless of which worker finished first.
func (c *Calculator) Calculate(ctx context.Context, req Request) (*Result, error) {
	limits, err := NormalizeLimits(req.Limits)
	if err != nil {
		return nil, err
	}
	started := time.Now()

	slots := make([]vertexResult, len(req.StartVertices))
	workers := min(c.workers, len(req.StartVertices))

	g, gctx := errgroup.WithContext(ctx)
	jobs := make(chan int)

	g.Go(func() error {
		defer close(jobs)
		for i := range req.StartVertices {
			select {
			case jobs <- i:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	for w := 0; w < workers; w++ {
		g.Go(func() error {
			state := routing.NewSearchState(c.net.NumVertices())
			x := newExtractor(c.net, limits, req.OnlyMinimumCover)
			for i := range jobs {
				res, err := c.computeVertex(gctx, state, x, req.StartVertices[i])
				if err != nil {
					return fmt.Errorf("start vertex %d: %w", req.StartVertices[i], err)
				}
				slots[i] = res
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &Result{StartPoints: make([]StartPoint, 0, len(slots))}
	for i := range slots {
		result.Network = append(result.Network, slots[i].edges...)
		result.StartPoints = append(result.StartPoints, slots[i].point)
	}

	log.WithFields(logrus.Fields{
		"starts":   len(req.StartVertices),
		"limits":   len(limits),
		"pieces":   len(result.Network),
		"workers":  workers,
		"duration": time.Since(started),
	}).Debug("isochrones computed")

	return result, nil
}

// computeVertex runs the search, extraction and shape building for one
// start vertex using the worker's scratch state.
func (c *Calculator) computeVertex(ctx context.Context, state *routing.SearchState, x *extractor, startID int64) (vertexResult, error) {
	if err := ctx.Err(); err != nil {
		return vertexResult{}, err
	}

	start, ok := c.net.Remap.Dense(startID)
	if !ok {
		return vertexResult{
			edges: []NetworkEdge{{
				StartID:  startID,
				EdgeID:   graph.NoEdge,
				Geometry: orb.LineString{},
			}},
			point: StartPoint{StartID: startID},
		}, nil
	}

	if err := state.Run(ctx, c.net, start, x.limits[len(x.limits)-1]); err != nil {
		return vertexResult{}, err
	}

	x.reset()
	x.extract(startID, start, state)

	point := StartPoint{StartID: startID}
	for li, limit := range x.limits {
		ring, err := c.shape(x.clouds[li])
		if err != nil {
			return vertexResult{}, fmt.Errorf("limit %g: %w", limit, err)
		}
		if ring != nil {
			point.Shapes = append(point.Shapes, Shape{Limit: limit, Ring: ring})
		}
	}

	edges := make([]NetworkEdge, len(x.edges))
	copy(edges, x.edges)
	return vertexResult{edges: edges, point: point}, nil
}

// shape builds the boundary of one point cloud. Clouds of fewer than two
// points have no shape; clouds too small for a hull are closed as they are.
func (c *Calculator) shape(points []orb.Point) (orb.Ring, error) {
	switch {
	case len(points) < 2:
		return nil, nil
	case len(points) < geo.MinHullPoints:
		ring := make(orb.Ring, 0, len(points)+1)
		ring = append(ring, points...)
		return append(ring, points[0]), nil
	}

	hull, err := geo.ConvexHull(points)
	if err != nil {
		return nil, err
	}
	return c.refiner.Refine(points, hull.Indices), nil
}
