package repository

import "github.com/cosnor/winged/internal/domain/types"

// rankIndex is a treap ordered by value DESC, then user id ASC, so an
// in-order walk yields the leaderboard from best to worst. Subtree sizes
// give O(log n) counts of users strictly above a value.
type rankIndex struct {
	root *node
}

type node struct {
	id    int64
	value int64
	prio  uint64
	left  *node
	right *node
	size  int
}

func nsize(n *node) int {
	if n == nil {
		return 0
	}
	return n.size
}

func fix(n *node) {
	if n != nil {
		n.size = 1 + nsize(n.left) + nsize(n.right)
	}
}

// less reports whether (aVal, aID) ranks before (bVal, bID).
func less(aVal, aID, bVal, bID int64) bool {
	if aVal != bVal {
		return aVal > bVal
	}
	return aID < bID
}

// priority scrambles the user id (splitmix64) so the heap order is
// independent of the key order.
func priority(id int64) uint64 {
	z := uint64(id) + 0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

func rotateRight(y *node) *node {
	x := y.left
	y.left = x.right
	x.right = y
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	x.right = y.left
	y.left = x
	fix(x)
	fix(y)
	return y
}

func insert(n *node, id, value int64) *node {
	if n == nil {
		return &node{id: id, value: value, prio: priority(id), size: 1}
	}
	if less(value, id, n.value, n.id) {
		n.left = insert(n.left, id, value)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, id, value)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

func deleteNode(n *node, id, value int64) *node {
	if n == nil {
		return nil
	}
	switch {
	case value == n.value && id == n.id:
		if n.left == nil {
			return n.right
		}
		if n.right == nil {
			return n.left
		}
		if n.left.prio > n.right.prio {
			n = rotateRight(n)
			n.right = deleteNode(n.right, id, value)
		} else {
			n = rotateLeft(n)
			n.left = deleteNode(n.left, id, value)
		}
	case less(value, id, n.value, n.id):
		n.left = deleteNode(n.left, id, value)
	default:
		n.right = deleteNode(n.right, id, value)
	}
	fix(n)
	return n
}

// set moves id from old to value. hadOld is false for a new id.
func (r *rankIndex) set(id, old, value int64, hadOld bool) {
	if hadOld {
		if old == value {
			return
		}
		r.root = deleteNode(r.root, id, old)
	}
	r.root = insert(r.root, id, value)
}

// countAbove returns how many ids have a value strictly greater than v.
func (r *rankIndex) countAbove(v int64) int {
	count := 0
	n := r.root
	for n != nil {
		if n.value > v {
			count += nsize(n.left) + 1
			n = n.right
		} else {
			n = n.left
		}
	}
	return count
}

// topN appends up to limit entries in rank order. Ranks are left at 0.
func (r *rankIndex) topN(limit int) []types.Entry {
	out := make([]types.Entry, 0, min(limit, nsize(r.root)))
	collectTopN(r.root, limit, &out)
	return out
}

func collectTopN(n *node, limit int, out *[]types.Entry) {
	if n == nil || len(*out) >= limit {
		return
	}
	collectTopN(n.left, limit, out)
	if len(*out) < limit {
		*out = append(*out, types.Entry{UserID: n.id, Value: n.value})
	}
	if len(*out) < limit {
		collectTopN(n.right, limit, out)
	}
}

func (r *rankIndex) len() int { return nsize(r.root) }
