// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package graph

import (
	"fmt"
)

// TraverseGraph walks the universe from a starting dream up to maxHops away
func (m *Manager) TraverseGraph(startDreamID string, maxHops int, breadthFirst bool) (*Graph, error) {
	if _, ok := m.dreams[startDreamID]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDream, startDreamID)
	}
	if maxHops > MaxHops {
		maxHops = MaxHops // Safety limit
	}
	if maxHops < 0 {
		maxHops = 0
	}

	t := &traversal{
		m:       m,
		maxHops: maxHops,
		graph:   &Graph{Nodes: []GraphNode{}, Edges: []GraphEdge{}},
		visited: make(map[string]bool),
		seen:    make(map[string]bool),
	}

	if breadthFirst {
		t.bfs(startDreamID)
	} else {
		t.dfs(startDreamID, 0)
	}
	return t.graph, nil
}

type traversal struct {
	m       *Manager
	maxHops int
	graph   *Graph
	visited map[string]bool
	seen    map[string]bool // edge keys
}

func (t *traversal) addEdge(e GraphEdge) {
	if k := e.key(); !t.seen[k] {
		t.seen[k] = true
		t.graph.Edges = append(t.graph.Edges, e)
	}
}

// bfs performs breadth-first traversal
func (t *traversal) bfs(startID string) {
	type queueItem struct {
		dreamID string
		depth   int
	}

	queue := []queueItem{{startID, 0}}
	t.visited[startID] = true
	t.graph.Nodes = append(t.graph.Nodes, t.m.node(startID, 0))

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		if current.depth >= t.maxHops {
			continue
		}

		for _, edge := range t.m.adj[current.dreamID] {
			t.addEdge(edge)

			neighborID := edge.other(current.dreamID)
			if !t.visited[neighborID] {
				t.visited[neighborID] = true
				t.graph.Nodes = append(t.graph.Nodes, t.m.node(neighborID, current.depth+1))
				queue = append(queue, queueItem{neighborID, current.depth + 1})
			}
		}
	}
}

// dfs performs depth-first traversal
func (t *traversal) dfs(dreamID string, depth int) {
	if t.visited[dreamID] {
		return
	}
	t.visited[dreamID] = true
	t.graph.Nodes = append(t.graph.Nodes, t.m.node(dreamID, depth))

	if depth >= t.maxHops {
		return
	}

	for _, edge := range t.m.adj[dreamID] {
		t.addEdge(edge)
		t.dfs(edge.other(dreamID), depth+1)
	}
}
