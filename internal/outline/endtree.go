package outline

import "math"

// endTree is a max segment tree over the span ends of a start-sorted region
// list. It finds the next region that reaches past an offset in O(log n),
// so regions that end early are skipped even when an enclosing region keeps
// the prefix maximum high.
type endTree struct {
	size  int   // number of leaves, a power of two
	nodes []int // nodes[1] is the root; leaves start at nodes[size]
}

func newEndTree(regions []Region) endTree {
	size := 1
	for size < len(regions) {
		size <<= 1
	}
	nodes := make([]int, 2*size)
	for i := range nodes {
		nodes[i] = math.MinInt
	}
	for i, r := range regions {
		nodes[size+i] = r.Span.End()
	}
	for i := size - 1; i > 0; i-- {
		nodes[i] = max(nodes[2*i], nodes[2*i+1])
	}
	return endTree{size: size, nodes: nodes}
}

// next returns the smallest index i >= from whose end is greater than x,
// or -1. visited, if non-nil, counts the nodes examined.
func (t endTree) next(from, x int, visited *int) int {
	if len(t.nodes) == 0 {
		return -1
	}
	return t.search(1, 0, t.size, from, x, visited)
}

func (t endTree) search(node, lo, hi, from, x int, visited *int) int {
	if visited != nil {
		*visited++
	}
	if hi <= from || t.nodes[node] <= x {
		return -1
	}
	if hi-lo == 1 {
		return lo
	}
	mid := (lo + hi) / 2
	if i := t.search(2*node, lo, mid, from, x, visited); i >= 0 {
		return i
	}
	return t.search(2*node+1, mid, hi, from, x, visited)
}
