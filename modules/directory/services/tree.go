package services

import (
	"errors"
	"fmt"
	"sort"
)

// ErrTooManyRoots is the structural error raised when a data source exceeds
// the per-source tree_id index space.
var ErrTooManyRoots = errors.New("too many root departments for the tree_id index space")

// ErrCyclicParents is raised when the raw parent pointers do not form a
// forest.
var ErrCyclicParents = errors.New("department parent chain contains a cycle")

// treeIDSpan is the tree_id index space reserved per data source:
// tree_id = data_source_id*treeIDSpan + root index.
const treeIDSpan = 10000

type treeNode struct {
	code         string
	departmentID int64
	parent       *treeNode
	children     []*treeNode

	treeID             int64
	level, left, right int
	relationID         int64
}

// buildForest assembles a forest from a child->parent code map. order fixes
// the sibling ordering for codes it mentions; remaining codes follow in
// lexicographic order. A node whose parent code is unknown becomes a root.
// Nodes unreachable from any root sit on a parent cycle, which violates the
// forest invariant.
func buildForest(parents map[string]string, order []string) ([]*treeNode, error) {
	nodes := make(map[string]*treeNode, len(parents))
	for code := range parents {
		nodes[code] = &treeNode{code: code}
	}

	ordered := make([]string, 0, len(parents))
	seen := make(map[string]bool, len(parents))
	for _, code := range order {
		if _, ok := nodes[code]; ok && !seen[code] {
			ordered = append(ordered, code)
			seen[code] = true
		}
	}
	rest := make([]string, 0, len(parents)-len(ordered))
	for code := range parents {
		if !seen[code] {
			rest = append(rest, code)
		}
	}
	sort.Strings(rest)
	ordered = append(ordered, rest...)

	var roots []*treeNode
	for _, code := range ordered {
		node := nodes[code]
		parentCode := parents[code]
		parent, ok := nodes[parentCode]
		if parentCode == "" || !ok || parentCode == code {
			roots = append(roots, node)
			continue
		}
		node.parent = parent
		parent.children = append(parent.children, node)
	}

	if reachable := countReachable(roots); reachable != len(nodes) {
		return nil, fmt.Errorf("%w: %d of %d departments unreachable from any root",
			ErrCyclicParents, len(nodes)-reachable, len(nodes))
	}
	return roots, nil
}

func countReachable(roots []*treeNode) int {
	n := 0
	stack := append([]*treeNode(nil), roots...)
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n++
		stack = append(stack, node.children...)
	}
	return n
}

// assignTreeIDs derives each root's tree_id deterministically from the data
// source id and the root's index, and fails loudly once the index space is
// exhausted.
func assignTreeIDs(roots []*treeNode, dataSourceID int64, maxRoots int) error {
	if maxRoots <= 0 || maxRoots > treeIDSpan {
		maxRoots = treeIDSpan
	}
	if len(roots) >= maxRoots {
		return fmt.Errorf("%w: data source %d has %d roots (max %d)",
			ErrTooManyRoots, dataSourceID, len(roots), maxRoots)
	}
	for i, root := range roots {
		treeID := dataSourceID*treeIDSpan + int64(i)
		for _, node := range subtree(root) {
			node.treeID = treeID
		}
	}
	return nil
}

func subtree(root *treeNode) []*treeNode {
	out := []*treeNode{}
	stack := []*treeNode{root}
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		out = append(out, node)
		stack = append(stack, node.children...)
	}
	return out
}

// breadthFirst flattens the forest so every parent precedes its children.
func breadthFirst(roots []*treeNode) []*treeNode {
	out := make([]*treeNode, 0, len(roots))
	queue := append([]*treeNode(nil), roots...)
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		out = append(out, node)
		queue = append(queue, node.children...)
	}
	return out
}

// renumber computes the nested-set traversal coordinates for one tree: an
// O(n) depth-first pass assigning left/right bounds and levels.
func renumber(root *treeNode) {
	counter := 1
	var walk func(node *treeNode, level int)
	walk = func(node *treeNode, level int) {
		node.level = level
		node.left = counter
		counter++
		for _, child := range node.children {
			walk(child, level+1)
		}
		node.right = counter
		counter++
	}
	walk(root, 0)
}
