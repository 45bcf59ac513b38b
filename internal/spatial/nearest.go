// Package spatial builds greedy seed tours with an R-tree index.
package spatial

import (
	"fmt"

	"github.com/dhconnelly/rtreego"

	"github.com/copyleftdev/tourfit/internal/tour"
)

// pointTolerance is the half-width of the box each point occupies in the
// index; rtreego rejects zero-size rectangles.
const pointTolerance = 1e-9

// pointEntry wraps a point index for R-tree storage
type pointEntry struct {
	index int
	bbox  rtreego.Rect
}

// Bounds implements rtreego.Spatial interface
func (p *pointEntry) Bounds() rtreego.Rect {
	return p.bbox
}

// Index answers nearest-unvisited-point queries over a fixed point set.
type Index struct {
	tree    *rtreego.Rtree
	entries []*pointEntry
	points  []tour.Point
}

// NewIndex indexes points by their X and Y coordinates.
func NewIndex(points []tour.Point) *Index {
	tree := rtreego.NewTree(2, 25, 50)
	entries := make([]*pointEntry, len(points))
	for i, p := range points {
		entries[i] = &pointEntry{
			index: i,
			bbox:  rtreego.Point{p.X, p.Y}.ToRect(pointTolerance),
		}
		tree.Insert(entries[i])
	}
	return &Index{tree: tree, entries: entries, points: points}
}

// Len returns the number of points still in the index.
func (x *Index) Len() int {
	return x.tree.Size()
}

// Remove takes point i out of the index.
func (x *Index) Remove(i int) bool {
	return x.tree.Delete(x.entries[i])
}

// Nearest returns the index of the remaining point closest to p, or -1 when
// the index is empty.
func (x *Index) Nearest(p tour.Point) int {
	if x.tree.Size() == 0 {
		return -1
	}
	nn := x.tree.NearestNeighbor(rtreego.Point{p.X, p.Y})
	if nn == nil {
		return -1
	}
	return nn.(*pointEntry).index
}

// NearestNeighbourTour returns the greedy tour that starts at start and
// always moves to the closest unvisited point. The result is a permutation
// of [0, len(points)). Distances are planar; for geographic coordinates the
// order is an approximation.
func NearestNeighbourTour(points []tour.Point, start int) ([]int, error) {
	if len(points) == 0 {
		return nil, tour.ErrNoPoints
	}
	if start < 0 || start >= len(points) {
		return nil, fmt.Errorf("%w: start %d", tour.ErrGeneOutOfRange, start)
	}

	idx := NewIndex(points)
	order := make([]int, 0, len(points))
	current := start
	for {
		idx.Remove(current)
		order = append(order, current)
		next := idx.Nearest(points[current])
		if next < 0 {
			break
		}
		current = next
	}
	return order, nil
}
