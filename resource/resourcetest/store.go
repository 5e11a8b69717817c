// Package resourcetest provides an in-memory triple store for tests of code
// built on the resource layer.
package resourcetest

import (
	"context"
	"sync"

	"github.com/cayleygraph/quad/voc"

	"skmf.evalgo.org/db"
	"skmf.evalgo.org/rdf"
)

// Namespace is the base IRI the store resolves skmf: names against.
const Namespace = "http://localhost/skmf"

// SelectCall records the arguments of one Select.
type SelectCall struct {
	Graphs    []string
	Labels    []string
	Pattern   *rdf.Pattern
	Optionals []*rdf.Pattern
}

// MemoryStore keeps expanded triples per graph. Describe, Insert and Delete
// act on them; Select returns Result as configured by the test.
type MemoryStore struct {
	mu       sync.Mutex
	prefixes *voc.Namespaces
	graphs   map[string][]rdf.Triple

	Selects []SelectCall
	Result  *db.SPARQLResult

	// Err, when set, fails every call.
	Err error
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		prefixes: rdf.NewNamespaces(Namespace),
		graphs:   map[string][]rdf.Triple{},
	}
}

func (m *MemoryStore) expand(t rdf.Term) rdf.Term {
	if t.Kind != rdf.KindPrefixed || t.IsBlank() {
		return t
	}
	if iri, ok := rdf.Expand(m.prefixes, t.Value); ok {
		return rdf.URI(iri)
	}
	return t
}

func (m *MemoryStore) norm(t rdf.Triple) rdf.Triple {
	return rdf.Triple{Subject: m.expand(t.Subject), Predicate: m.expand(t.Predicate), Object: m.expand(t.Object)}
}

func (m *MemoryStore) index(graph string, t rdf.Triple) int {
	for i, s := range m.graphs[graph] {
		if s.Subject.Equal(t.Subject) && s.Predicate.Equal(t.Predicate) && s.Object.Equal(t.Object) {
			return i
		}
	}
	return -1
}

// Seed adds triples to graph without going through Insert.
func (m *MemoryStore) Seed(graph string, triples ...rdf.Triple) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.add(graph, triples)
}

func (m *MemoryStore) add(graph string, triples []rdf.Triple) {
	for _, t := range triples {
		t = m.norm(t)
		if m.index(graph, t) < 0 {
			m.graphs[graph] = append(m.graphs[graph], t)
		}
	}
}

// Count returns the number of triples in graph.
func (m *MemoryStore) Count(graph string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.graphs[graph])
}

func (m *MemoryStore) Namespace() string {
	return Namespace
}

func (m *MemoryStore) Select(ctx context.Context, graphs, labels []string, pattern *rdf.Pattern, optionals []*rdf.Pattern) (*db.SPARQLResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Selects = append(m.Selects, SelectCall{Graphs: graphs, Labels: labels, Pattern: pattern.Clone(), Optionals: optionals})
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Result == nil {
		return &db.SPARQLResult{}, nil
	}
	return m.Result, nil
}

// Value converts a term to its SPARQL JSON form.
func Value(t rdf.Term) db.SPARQLValue {
	if t.Kind == rdf.KindLiteral {
		return db.SPARQLValue{Type: "literal", Value: t.Value, Lang: t.Lang}
	}
	return db.SPARQLValue{Type: "uri", Value: t.Value}
}

func (m *MemoryStore) Describe(ctx context.Context, subject rdf.Term, graphs []string) (*db.SPARQLResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return nil, m.Err
	}
	subject = m.expand(subject)
	result := &db.SPARQLResult{Head: db.SPARQLHead{Vars: []string{"o", "p"}}}
	for _, g := range graphs {
		for _, t := range m.graphs[g] {
			if t.Subject.Equal(subject) {
				result.Results.Bindings = append(result.Results.Bindings, map[string]db.SPARQLValue{
					"p": Value(t.Predicate),
					"o": Value(t.Object),
				})
			}
		}
	}
	return result, nil
}

func (m *MemoryStore) Insert(ctx context.Context, graphs []string, pattern *rdf.Pattern) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return m.Err
	}
	for _, g := range graphs {
		m.add(g, pattern.Triples())
	}
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, graphs []string, pattern *rdf.Pattern) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return m.Err
	}
	for _, g := range graphs {
		for _, t := range pattern.Triples() {
			if i := m.index(g, m.norm(t)); i >= 0 {
				m.graphs[g] = append(m.graphs[g][:i], m.graphs[g][i+1:]...)
			}
		}
	}
	return nil
}
