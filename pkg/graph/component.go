package graph

// UnionFind implements a disjoint-set data structure with path compression
// and union by rank.
type UnionFind struct {
	parent []uint32
	rank   []byte // ranks stay below 32
	size   []uint32
}

// NewUnionFind creates a UnionFind for n elements.
func NewUnionFind(n uint32) *UnionFind {
	parent := make([]uint32, n)
	size := make([]uint32, n)
	for i := uint32(0); i < n; i++ {
		parent[i] = i
		size[i] = 1
	}
	return &UnionFind{
		parent: parent,
		rank:   make([]byte, n),
		size:   size,
	}
}

// Find returns the representative of the set containing x, with path halving.
func (uf *UnionFind) Find(x uint32) uint32 {
	for uf.parent[x] != x {
		uf.parent[x] = uf.parent[uf.parent[x]] // path halving
		x = uf.parent[x]
	}
	return x
}

// Union merges the sets containing x and y. Returns false if already same set.
func (uf *UnionFind) Union(x, y uint32) bool {
	rx := uf.Find(x)
	ry := uf.Find(y)
	if rx == ry {
		return false
	}

	// Union by rank.
	if uf.rank[rx] < uf.rank[ry] {
		rx, ry = ry, rx
	}
	uf.parent[ry] = rx
	uf.size[rx] += uf.size[ry]
	if uf.rank[rx] == uf.rank[ry] {
		uf.rank[rx]++
	}
	return true
}

// LargestComponent returns a mask over dense vertex ids marking the largest
// weakly connected component (edge directions are ignored).
func LargestComponent(n *Network) []bool {
	numNodes := uint32(n.NumVertices())
	if numNodes == 0 {
		return nil
	}

	uf := NewUnionFind(numNodes)
	for i := range n.Edges {
		uf.Union(uint32(n.Source[i]), uint32(n.Target[i]))
	}

	// Ties go to the lowest vertex id so the result is deterministic.
	bestRoot := uint32(0)
	bestSize := uint32(0)
	for v := uint32(0); v < numNodes; v++ {
		root := uf.Find(v)
		if uf.size[root] > bestSize {
			bestRoot = root
			bestSize = uf.size[root]
		}
	}

	keep := make([]bool, numNodes)
	for v := uint32(0); v < numNodes; v++ {
		keep[v] = uf.Find(v) == bestRoot
	}
	return keep
}

// FilterToComponent returns the edges of n whose endpoints are both kept.
// Edge order is preserved.
func FilterToComponent(n *Network, keep []bool) []Edge {
	out := make([]Edge, 0, len(n.Edges))
	for i := range n.Edges {
		if keep[n.Source[i]] && keep[n.Target[i]] {
			out = append(out, n.Edges[i])
		}
	}
	log.Debugf("component filter kept %d of %d edges", len(out), len(n.Edges))
	return out
}
