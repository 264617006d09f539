// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package graph

import (
	"errors"
	"fmt"
	"time"

	"github.com/tejzpr/dreamscape-mcp/internal/dream"
)

// Edge types
const (
	EdgeRelated    = "related"
	EdgeSharedTags = "shared_tags"
)

// MaxHops caps traversal depth
const MaxHops = 5

// ErrUnknownDream is returned when a traversal starts from a dream not in the universe
var ErrUnknownDream = errors.New("dream not in universe")

// GraphNode represents a dream in the universe graph
type GraphNode struct {
	DreamID string     `json:"id"`
	Title   string     `json:"title"`
	Type    dream.Type `json:"type"`
	Date    time.Time  `json:"date"`
	Tags    []string   `json:"tags"`
	Depth   int        `json:"depth"`
}

// GraphEdge is an undirected connection between two dreams.
// Strength is the linker score for related edges and the shared tag count otherwise.
type GraphEdge struct {
	SourceID   string   `json:"source"`
	TargetID   string   `json:"target"`
	Type       string   `json:"type"`
	Strength   float64  `json:"strength"`
	SharedTags []string `json:"sharedTags,omitempty"`
}

func (e GraphEdge) key() string {
	a, b := e.SourceID, e.TargetID
	if b < a {
		a, b = b, a
	}
	return e.Type + "|" + a + "|" + b
}

func (e GraphEdge) other(id string) string {
	if e.SourceID == id {
		return e.TargetID
	}
	return e.SourceID
}

// Graph represents the dream universe or a traversal of it
type Graph struct {
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
}

// Manager answers graph queries over a snapshot of the journal
type Manager struct {
	dreams map[string]dream.Dream
	order  []string
	edges  []GraphEdge
	adj    map[string][]GraphEdge
}

// NewManager indexes corpus. Related links pointing at dreams outside the corpus are ignored.
func NewManager(corpus []dream.Dream) *Manager {
	m := &Manager{
		dreams: make(map[string]dream.Dream, len(corpus)),
		adj:    make(map[string][]GraphEdge),
	}
	for _, d := range corpus {
		if _, ok := m.dreams[d.ID]; ok {
			continue
		}
		m.dreams[d.ID] = d
		m.order = append(m.order, d.ID)
	}

	for i := 0; i < len(m.order); i++ {
		for j := i + 1; j < len(m.order); j++ {
			a, b := m.dreams[m.order[i]], m.dreams[m.order[j]]
			if a.HasRelated(b.ID) || b.HasRelated(a.ID) {
				m.addEdge(GraphEdge{
					SourceID: a.ID,
					TargetID: b.ID,
					Type:     EdgeRelated,
					Strength: float64(dream.Score(a, b)),
				})
			}
			if shared := sharedTags(a.Tags, b.Tags); len(shared) > 0 {
				m.addEdge(GraphEdge{
					SourceID:   a.ID,
					TargetID:   b.ID,
					Type:       EdgeSharedTags,
					Strength:   float64(len(shared)),
					SharedTags: shared,
				})
			}
		}
	}
	return m
}

func (m *Manager) addEdge(e GraphEdge) {
	m.edges = append(m.edges, e)
	m.adj[e.SourceID] = append(m.adj[e.SourceID], e)
	m.adj[e.TargetID] = append(m.adj[e.TargetID], e)
}

// sharedTags returns the distinct tags of a that also appear in b, in a's order
func sharedTags(a, b []string) []string {
	inB := make(map[string]bool, len(b))
	for _, t := range b {
		inB[t] = true
	}
	var out []string
	seen := make(map[string]bool)
	for _, t := range a {
		if inB[t] && !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}

// Universe returns every dream as a node and every edge, in corpus order
func (m *Manager) Universe() *Graph {
	graph := &Graph{
		Nodes: make([]GraphNode, 0, len(m.order)),
		Edges: make([]GraphEdge, len(m.edges)),
	}
	for _, id := range m.order {
		graph.Nodes = append(graph.Nodes, m.node(id, 0))
	}
	copy(graph.Edges, m.edges)
	return graph
}

// GetAssociations returns every edge touching a dream
func (m *Manager) GetAssociations(dreamID string) ([]GraphEdge, error) {
	if _, ok := m.dreams[dreamID]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDream, dreamID)
	}
	out := make([]GraphEdge, len(m.adj[dreamID]))
	copy(out, m.adj[dreamID])
	return out, nil
}

func (m *Manager) node(id string, depth int) GraphNode {
	d := m.dreams[id]
	return GraphNode{
		DreamID: d.ID,
		Title:   d.Title,
		Type:    d.Type,
		Date:    d.Date,
		Tags:    d.Tags,
		Depth:   depth,
	}
}
