// Package topicgraph holds the per-course topic-affinity graph: an
// undirected weighted graph over a course's topics, loaded once per course
// and memoized, supporting bisection of a topic set into two
// maximal-affinity groups for weakest-link probing.
package topicgraph

import (
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/katalvlaran/lvlath/core"

	"github.com/Azen0n/enginesvc/internal/apperr"
	"github.com/Azen0n/enginesvc/internal/metrics"
	"github.com/Azen0n/enginesvc/internal/store"
)

// Graph wraps a course's affinity graph: an lvlath core.Graph answering
// topology questions (adjacency, degree, vertex census) plus a weight index
// holding the edge magnitudes, which the core API does not expose per pair.
type Graph struct {
	CourseID uuid.UUID
	g        *core.Graph
	weight   map[[2]uuid.UUID]float64
}

func pairKey(a, b uuid.UUID) [2]uuid.UUID {
	if a.String() > b.String() {
		a, b = b, a
	}
	return [2]uuid.UUID{a, b}
}

// Weight returns weight(a,b), defaulting to 0 when the graph holds no edge
// between them. Adjacency is answered by the lvlath graph; only an adjacent
// pair's magnitude is read from the weight index.
func (gr *Graph) Weight(a, b uuid.UUID) float64 {
	if a == b {
		return 0
	}
	neighbors, err := gr.g.NeighborIDs(a.String())
	if err != nil {
		return 0
	}
	bs := b.String()
	for _, id := range neighbors {
		if id == bs {
			return gr.weight[pairKey(a, b)]
		}
	}
	return 0
}

// Vertices returns every topic id in the graph, in the lvlath-assigned
// deterministic order.
func (gr *Graph) Vertices() []uuid.UUID {
	ids := gr.g.Vertices()
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if u, err := uuid.Parse(id); err == nil {
			out = append(out, u)
		}
	}
	return out
}

// WeightOfSet computes W(S) = Σ_{{u,v}⊂S} weight(u,v).
func (gr *Graph) WeightOfSet(topics []uuid.UUID) float64 {
	total := 0.0
	for i := 0; i < len(topics); i++ {
		for j := i + 1; j < len(topics); j++ {
			total += gr.Weight(topics[i], topics[j])
		}
	}
	return total
}

// Bisect partitions topics into (A, B) maximizing W(A)+W(B), with
// |A| = floor(n/2), |B| = ceil(n/2). For n <= 1, A=topics, B=nil. For n==2,
// the pair is split into two singletons. Ties break lexicographically on
// sorted topic ids of A.
func Bisect(topics []uuid.UUID, gr *Graph) (a, b []uuid.UUID) {
	n := len(topics)
	if n <= 1 {
		return append([]uuid.UUID(nil), topics...), nil
	}
	sorted := append([]uuid.UUID(nil), topics...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].String() < sorted[j].String() })

	if n == 2 {
		return []uuid.UUID{sorted[0]}, []uuid.UUID{sorted[1]}
	}

	sizeA := n / 2
	bestScore := -1.0
	var bestA, bestB []uuid.UUID
	var bestKey string

	combinations(sorted, sizeA, func(candidateA []uuid.UUID) {
		setA := make(map[uuid.UUID]struct{}, len(candidateA))
		for _, t := range candidateA {
			setA[t] = struct{}{}
		}
		candidateB := make([]uuid.UUID, 0, n-sizeA)
		for _, t := range sorted {
			if _, in := setA[t]; !in {
				candidateB = append(candidateB, t)
			}
		}
		score := gr.WeightOfSet(candidateA) + gr.WeightOfSet(candidateB)
		key := keyOf(candidateA)
		if score > bestScore || (score == bestScore && key < bestKey) {
			bestScore = score
			bestA = candidateA
			bestB = candidateB
			bestKey = key
		}
	})
	return bestA, bestB
}

func keyOf(ids []uuid.UUID) string {
	sorted := append([]uuid.UUID(nil), ids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].String() < sorted[j].String() })
	s := ""
	for _, id := range sorted {
		s += id.String() + ","
	}
	return s
}

// combinations enumerates every size-k subset of items, in input order, and
// calls fn with each.
func combinations(items []uuid.UUID, k int, fn func([]uuid.UUID)) {
	n := len(items)
	if k > n {
		return
	}
	idx := make([]int, k)
	for i := range idx {
		idx[i] = i
	}
	for {
		subset := make([]uuid.UUID, k)
		for i, pos := range idx {
			subset[i] = items[pos]
		}
		fn(subset)

		i := k - 1
		for i >= 0 && idx[i] == i+n-k {
			i--
		}
		if i < 0 {
			return
		}
		idx[i]++
		for j := i + 1; j < k; j++ {
			idx[j] = idx[j-1] + 1
		}
	}
}

// Registry memoizes one Graph per course id, built lazily on first access
// and cached indefinitely. Course content is read-only at runtime, so there
// is no invalidation path.
type Registry struct {
	db    *store.Store
	mu    sync.Mutex
	cache map[uuid.UUID]*Graph
}

func NewRegistry(db *store.Store) *Registry {
	return &Registry{db: db, cache: make(map[uuid.UUID]*Graph)}
}

// Load returns the memoized Graph for course, building it on first access.
func (r *Registry) Load(course uuid.UUID) (*Graph, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if g, ok := r.cache[course]; ok {
		metrics.TopicGraphLoad.WithLabelValues("hit").Inc()
		return g, nil
	}
	g, err := r.build(course)
	if err != nil {
		return nil, err
	}
	r.cache[course] = g
	metrics.TopicGraphLoad.WithLabelValues("miss").Inc()
	return g, nil
}

func (r *Registry) build(course uuid.UUID) (*Graph, error) {
	lg := core.NewGraph(core.WithWeighted(), core.WithDirected(false))
	gr := &Graph{CourseID: course, g: lg, weight: make(map[[2]uuid.UUID]float64)}

	rows, err := r.db.Query(`
		SELECT t.id FROM topics t
		JOIN modules m ON m.id = t.module_id
		WHERE m.course_id = $1
	`, course)
	if err != nil {
		return nil, fmt.Errorf("load topic vertices: %w", err)
	}
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan topic vertex: %w", err)
		}
		if err := lg.AddVertex(id.String()); err != nil {
			rows.Close()
			return nil, fmt.Errorf("add vertex %s: %w", id, err)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	edgeRows, err := r.db.Query(`
		SELECT topic1, topic2, weight FROM topic_graph_edges WHERE course_id = $1
	`, course)
	if err != nil {
		return nil, fmt.Errorf("load topic edges: %w", err)
	}
	defer edgeRows.Close()
	for edgeRows.Next() {
		var t1, t2 uuid.UUID
		var w float64
		if err := edgeRows.Scan(&t1, &t2, &w); err != nil {
			return nil, fmt.Errorf("scan topic edge: %w", err)
		}
		if _, err := lg.AddEdge(t1.String(), t2.String(), w); err != nil {
			return nil, fmt.Errorf("add edge %s-%s: %w", t1, t2, err)
		}
		gr.weight[pairKey(t1, t2)] = w
	}
	if err := edgeRows.Err(); err != nil {
		return nil, err
	}

	// Validate off the built graph rather than the row counters: an empty
	// vertex census or a zero total degree means unusable content.
	topics := gr.Vertices()
	if len(topics) == 0 {
		return nil, apperr.New(apperr.ContentInconsistency, "course %s has no topics to build an affinity graph over", course)
	}
	totalDegree := 0
	for _, id := range topics {
		_, _, d, err := lg.Degree(id.String())
		if err != nil {
			return nil, fmt.Errorf("degree of %s: %w", id, err)
		}
		totalDegree += d
	}
	if totalDegree == 0 {
		return nil, apperr.New(apperr.ContentInconsistency, "course %s has no topic-affinity edges", course)
	}
	return gr, nil
}
