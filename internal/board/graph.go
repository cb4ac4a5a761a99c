package board

import (
	"slices"

	"github.com/hylla/taskboard/internal/domain"
)

// CyclePath reports whether adding the edge "dependentID is blocked by
// blockerID" would close a cycle. When it would, the returned path runs from
// blockerID through its transitive blockers back to dependentID.
func CyclePath(c *Collection, dependentID, blockerID string) ([]string, bool) {
	if dependentID == blockerID {
		return []string{dependentID}, true
	}
	visited := map[string]bool{}
	parent := map[string]string{}
	stack := []string{blockerID}
	visited[blockerID] = true
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if node == dependentID {
			path := []string{node}
			for node != blockerID {
				node = parent[node]
				path = append(path, node)
			}
			slices.Reverse(path)
			return path, true
		}
		for _, next := range c.dependencies(node) {
			if visited[next] {
				continue
			}
			visited[next] = true
			parent[next] = node
			stack = append(stack, next)
		}
	}
	return nil, false
}

// WouldCreateCycle is CyclePath without the path.
func WouldCreateCycle(c *Collection, dependentID, blockerID string) bool {
	_, cyclic := CyclePath(c, dependentID, blockerID)
	return cyclic
}

// DetectCycle returns one dependency cycle in c as a closed path (first id
// repeated at the end), or nil when the graph is acyclic. Collections built
// before cycle rejection was enabled may hold one.
// Uses DFS colouring: white (unvisited), gray (on stack), black (done).
func DetectCycle(c *Collection) []string {
	const (
		white = 0
		gray  = 1
		black = 2
	)

	color := map[string]int{}
	parent := map[string]string{}

	var dfs func(node string) []string
	dfs = func(node string) []string {
		color[node] = gray
		for _, next := range c.dependencies(node) {
			if !c.Has(next) {
				continue
			}
			switch color[next] {
			case gray:
				cycle := []string{next, node}
				cur := node
				for cur != next {
					cur = parent[cur]
					cycle = append(cycle, cur)
				}
				slices.Reverse(cycle)
				return cycle
			case white:
				parent[next] = node
				if cycle := dfs(next); cycle != nil {
					return cycle
				}
			}
		}
		color[node] = black
		return nil
	}

	ids := make([]string, 0, c.Len())
	c.each(func(task domain.Task) {
		ids = append(ids, task.ID)
	})
	slices.Sort(ids)
	for _, id := range ids {
		if color[id] == white {
			if cycle := dfs(id); cycle != nil {
				return cycle
			}
		}
	}
	return nil
}
