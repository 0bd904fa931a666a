package nexus

import "strings"

// WorkflowState is the named state of a grant or reference.
type WorkflowState struct {
	ID   ID     `json:"id"`
	Name string `json:"name"`
}

// ReferenceNode is one node of a pathway reference tree. Nodes link to the
// entity they reference through _links.referencedObject.
type ReferenceNode struct {
	ID            ID               `json:"id"`
	Type          string           `json:"type"`
	Name          string           `json:"name"`
	Active        *bool            `json:"active,omitempty"`
	WorkflowState *WorkflowState   `json:"workflowState,omitempty"`
	Children      []*ReferenceNode `json:"children,omitempty"`
	Links         Links            `json:"_links"`
}

// StateName returns the node's workflow state name, or "" when it has none.
func (n *ReferenceNode) StateName() string {
	if n == nil || n.WorkflowState == nil {
		return ""
	}
	return n.WorkflowState.Name
}

func (n *ReferenceNode) inactive() bool {
	return n.Active != nil && !*n.Active
}

// FilterByPath returns the nodes whose path from a root matches pattern.
// The pattern is a slash separated list of segments; each segment matches a
// node by type or name, and "*" matches any node. With activeOnly set,
// inactive nodes and their subtrees are skipped.
func FilterByPath(roots []*ReferenceNode, pattern string, activeOnly bool) []*ReferenceNode {
	segments := splitPattern(pattern)
	if len(segments) == 0 {
		return nil
	}
	var matches []*ReferenceNode
	var walk func(nodes []*ReferenceNode, depth int)
	walk = func(nodes []*ReferenceNode, depth int) {
		for _, node := range nodes {
			if node == nil || !segmentMatches(segments[depth], node) {
				continue
			}
			if activeOnly && node.inactive() {
				continue
			}
			if depth == len(segments)-1 {
				matches = append(matches, node)
				continue
			}
			walk(node.Children, depth+1)
		}
	}
	walk(roots, 0)
	return matches
}

// FilterByPredicate walks the trees depth first and returns every node for
// which keep returns true, in traversal order.
func FilterByPredicate(roots []*ReferenceNode, keep func(*ReferenceNode) bool) []*ReferenceNode {
	var matches []*ReferenceNode
	var walk func(nodes []*ReferenceNode)
	walk = func(nodes []*ReferenceNode) {
		for _, node := range nodes {
			if node == nil {
				continue
			}
			if keep(node) {
				matches = append(matches, node)
			}
			walk(node.Children)
		}
	}
	walk(roots)
	return matches
}

func splitPattern(pattern string) []string {
	parts := strings.Split(strings.Trim(strings.TrimSpace(pattern), "/"), "/")
	segments := parts[:0]
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			segments = append(segments, part)
		}
	}
	return segments
}

func segmentMatches(segment string, node *ReferenceNode) bool {
	return segment == "*" || segment == node.Type || segment == node.Name
}
