// Package graph provides the sparse relationship graph backing the
// graph-proximity retrieval channel.
package graph

import (
	"sort"
)

// Edge represents a directed edge in the relationship graph.
type Edge struct {
	From   string  // Source node ID
	To     string  // Target node ID
	Weight float64 // Edge weight (0.0-1.0)
	Kind   string  // Edge kind: "call", "reference", "import", "type"
}

// Graph represents a sparse directed graph of code relationships.
type Graph struct {
	nodes    []string
	nodeIdx  map[string]int
	numNodes int

	// Adjacency list: outEdges[i] = list of (neighbor_idx, weight)
	outEdges [][]edgeEntry
	inEdges  [][]edgeEntry

	// Edge metadata
	edgeKinds map[string]map[string]string // from -> to -> kind
}

type edgeEntry struct {
	target int
	weight float64
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{
		nodes:     make([]string, 0),
		nodeIdx:   make(map[string]int),
		outEdges:  make([][]edgeEntry, 0),
		inEdges:   make([][]edgeEntry, 0),
		edgeKinds: make(map[string]map[string]string),
	}
}

// AddNode adds a node if it doesn't exist, returns its index.
func (g *Graph) AddNode(id string) int {
	if idx, ok := g.nodeIdx[id]; ok {
		return idx
	}
	idx := len(g.nodes)
	g.nodes = append(g.nodes, id)
	g.nodeIdx[id] = idx
	g.outEdges = append(g.outEdges, nil)
	g.inEdges = append(g.inEdges, nil)
	g.numNodes++
	return idx
}

// AddEdge adds a directed edge from src to dst.
func (g *Graph) AddEdge(src, dst string, weight float64, kind string) {
	srcIdx := g.AddNode(src)
	dstIdx := g.AddNode(dst)

	g.outEdges[srcIdx] = append(g.outEdges[srcIdx], edgeEntry{target: dstIdx, weight: weight})
	g.inEdges[dstIdx] = append(g.inEdges[dstIdx], edgeEntry{target: srcIdx, weight: weight})

	if g.edgeKinds[src] == nil {
		g.edgeKinds[src] = make(map[string]string)
	}
	g.edgeKinds[src][dst] = kind
}

// AddEdges adds multiple edges at once.
func (g *Graph) AddEdges(edges []Edge) {
	for _, e := range edges {
		g.AddEdge(e.From, e.To, e.Weight, e.Kind)
	}
}

// NumNodes returns the number of nodes in the graph.
func (g *Graph) NumNodes() int {
	return g.numNodes
}

// NumEdges returns the total number of edges.
func (g *Graph) NumEdges() int {
	total := 0
	for _, edges := range g.outEdges {
		total += len(edges)
	}
	return total
}

// AllNodes returns all node IDs in the graph.
func (g *Graph) AllNodes() []string {
	return g.nodes
}

// HasNode checks if a node exists in the graph.
func (g *Graph) HasNode(id string) bool {
	_, ok := g.nodeIdx[id]
	return ok
}

// Neighbors returns the outgoing neighbors of a node.
func (g *Graph) Neighbors(id string) []string {
	idx, ok := g.nodeIdx[id]
	if !ok {
		return nil
	}

	neighbors := make([]string, len(g.outEdges[idx]))
	for i, e := range g.outEdges[idx] {
		neighbors[i] = g.nodes[e.target]
	}
	return neighbors
}

// GetEdgeKind returns the kind of edge between two nodes.
func (g *Graph) GetEdgeKind(from, to string) string {
	if m, ok := g.edgeKinds[from]; ok {
		return m[to]
	}
	return ""
}

// ProximityResult is a node ranked by hop distance from a seed set.
type ProximityResult struct {
	NodeID string  `json:"nodeId"`
	Score  float64 `json:"score"` // 1/(1+hops), 1.0 for seeds
	Hops   int     `json:"hops"`  // Hop distance from the nearest seed
}

// ProximitySearch ranks nodes by hop distance from the seed nodes using a
// breadth-first traversal over both edge directions. Seeds score 1.0 and
// score decays as 1/(1+hops). Unknown seeds are skipped; no known seeds
// yields an empty result. Results are sorted by score descending, ties
// broken by node ID for determinism.
func (g *Graph) ProximitySearch(seeds []string, maxHops, limit int) []ProximityResult {
	if maxHops <= 0 {
		maxHops = 3
	}
	if limit <= 0 {
		limit = 20
	}

	hops := make(map[int]int, g.numNodes)
	frontier := make([]int, 0, len(seeds))
	for _, s := range seeds {
		if idx, ok := g.nodeIdx[s]; ok {
			if _, seen := hops[idx]; !seen {
				hops[idx] = 0
				frontier = append(frontier, idx)
			}
		}
	}
	if len(frontier) == 0 {
		return []ProximityResult{}
	}

	for depth := 1; depth <= maxHops && len(frontier) > 0; depth++ {
		next := make([]int, 0)
		for _, idx := range frontier {
			for _, e := range g.outEdges[idx] {
				if _, seen := hops[e.target]; !seen {
					hops[e.target] = depth
					next = append(next, e.target)
				}
			}
			for _, e := range g.inEdges[idx] {
				if _, seen := hops[e.target]; !seen {
					hops[e.target] = depth
					next = append(next, e.target)
				}
			}
		}
		frontier = next
	}

	results := make([]ProximityResult, 0, len(hops))
	for idx, h := range hops {
		results = append(results, ProximityResult{
			NodeID: g.nodes[idx],
			Score:  1.0 / float64(1+h),
			Hops:   h,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].NodeID < results[j].NodeID
	})

	if len(results) > limit {
		results = results[:limit]
	}
	return results
}
