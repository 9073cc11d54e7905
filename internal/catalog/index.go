package catalog

import (
	"sync"

	"github.com/coder/hnsw"
)

// HNSW index parameters for catalog similarity queries
const (
	// hnswMaxNeighbors (M) is the maximum number of neighbors per node.
	// Higher values improve recall but increase memory and build time.
	hnswMaxNeighbors = 16
)

// Neighbor is one result of a similarity query against the catalog.
type Neighbor struct {
	Label    string  `json:"label"`
	Distance float64 `json:"distance"`
}

// Index is an HNSW graph over the catalog's embeddings for approximate
// nearest-neighbor queries.
//
// The index serves inspection queries only ("which known identities look like
// this face"). Identity assignment never goes through it: MatchOrRegister's
// first-match tie-break depends on catalog insertion order, which an
// approximate index does not preserve.
type Index struct {
	mu      sync.RWMutex
	graph   *hnsw.Graph[int]
	labels  map[int]string
	matcher Matcher
}

// NewIndex builds an index over the given records.
func NewIndex(m Matcher, records []Record) *Index {
	x := &Index{
		labels:  make(map[int]string, len(records)),
		matcher: m,
	}

	if len(records) == 0 {
		return x
	}

	g := hnsw.NewGraph[int]()
	g.M = hnswMaxNeighbors
	g.Ml = 1.0 / float64(hnswMaxNeighbors) // Standard HNSW formula
	if m.Metric == MetricCosine {
		g.Distance = hnsw.CosineDistance
	} else {
		g.Distance = hnsw.EuclideanDistance
	}

	for i, rec := range records {
		if len(rec.Embedding) == 0 {
			continue
		}
		g.Add(hnsw.MakeNode(i, rec.Embedding))
		x.labels[i] = rec.Label
	}

	x.graph = g
	return x
}

// Search returns up to k nearest identities to the query embedding, closest
// first. Distances are recomputed exactly under the matcher's metric.
func (x *Index) Search(query []float32, k int) []Neighbor {
	x.mu.RLock()
	defer x.mu.RUnlock()

	if x.graph == nil {
		return nil
	}

	nodes := x.graph.Search(query, k)
	neighbors := make([]Neighbor, 0, len(nodes))
	for _, n := range nodes {
		label, ok := x.labels[n.Key]
		if !ok {
			continue
		}
		neighbors = append(neighbors, Neighbor{
			Label:    label,
			Distance: x.matcher.Distance(query, n.Value),
		})
	}
	return neighbors
}

// Add appends one record to the index.
func (x *Index) Add(id int, rec Record) {
	x.mu.Lock()
	defer x.mu.Unlock()

	if len(rec.Embedding) == 0 {
		return
	}

	if x.graph == nil {
		g := hnsw.NewGraph[int]()
		g.M = hnswMaxNeighbors
		g.Ml = 1.0 / float64(hnswMaxNeighbors)
		if x.matcher.Metric == MetricCosine {
			g.Distance = hnsw.CosineDistance
		} else {
			g.Distance = hnsw.EuclideanDistance
		}
		x.graph = g
	}

	x.graph.Add(hnsw.MakeNode(id, rec.Embedding))
	x.labels[id] = rec.Label
}

// Count returns the number of indexed identities.
func (x *Index) Count() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.labels)
}
