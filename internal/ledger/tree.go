package ledger

import "sort"

// AccountNode is one node in the chart of accounts forest.
type AccountNode struct {
	Account
	Children []AccountNode `json:",omitempty"`
}

// BuildForest arranges a flat account list into root nodes with children
// eagerly nested, ordered by code at every level. Nodes whose parent is
// missing from the list, or that would close a cycle, are promoted to roots
// rather than dropped.
func BuildForest(accounts []Account) []AccountNode {
	byID := make(map[int64]*treeNode, len(accounts))
	order := make([]*treeNode, 0, len(accounts))
	for _, account := range accounts {
		node := &treeNode{account: account}
		byID[account.ID] = node
		order = append(order, node)
	}
	var roots []*treeNode
	for _, node := range order {
		parentID := node.account.ParentID
		if parentID == nil || *parentID == node.account.ID {
			roots = append(roots, node)
			continue
		}
		parent, ok := byID[*parentID]
		if !ok || createsCycle(node, parent) {
			roots = append(roots, node)
			continue
		}
		node.parent = parent
		parent.children = append(parent.children, node)
	}
	forest := make([]AccountNode, 0, len(roots))
	for _, node := range roots {
		forest = append(forest, node.materialize())
	}
	sortNodes(forest)
	return forest
}

// Depth returns the height of the subtree rooted at the node.
func (n AccountNode) Depth() int {
	depth := 1
	for _, child := range n.Children {
		if d := child.Depth() + 1; d > depth {
			depth = d
		}
	}
	return depth
}

type treeNode struct {
	account  Account
	parent   *treeNode
	children []*treeNode
}

func (n *treeNode) materialize() AccountNode {
	out := AccountNode{Account: n.account}
	for _, child := range n.children {
		out.Children = append(out.Children, child.materialize())
	}
	sortNodes(out.Children)
	return out
}

func createsCycle(node, parent *treeNode) bool {
	for p := parent; p != nil; p = p.parent {
		if p == node {
			return true
		}
	}
	return false
}

func sortNodes(nodes []AccountNode) {
	sort.Slice(nodes, func(i, j int) bool {
		return nodes[i].Code < nodes[j].Code
	})
}
