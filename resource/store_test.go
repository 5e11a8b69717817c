package resource

import (
	"context"

	"github.com/cayleygraph/quad/voc"

	"skmf.evalgo.org/db"
	"skmf.evalgo.org/rdf"
)

const testNamespace = "http://localhost/skmf"

type selectCall struct {
	graphs    []string
	labels    []string
	pattern   *rdf.Pattern
	optionals []*rdf.Pattern
}

// memoryStore is a Store double that keeps expanded triples per graph
type memoryStore struct {
	prefixes *voc.Namespaces
	graphs   map[string][]rdf.Triple

	selects   []selectCall
	inserts   [][]string
	deletes   [][]string
	result    *db.SPARQLResult
	insertErr error
	deleteErr error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		prefixes: rdf.NewNamespaces(testNamespace),
		graphs:   map[string][]rdf.Triple{},
	}
}

func (m *memoryStore) expand(t rdf.Term) rdf.Term {
	if t.Kind != rdf.KindPrefixed || t.IsBlank() {
		return t
	}
	if iri, ok := rdf.Expand(m.prefixes, t.Value); ok {
		return rdf.URI(iri)
	}
	return t
}

func (m *memoryStore) has(graph string, t rdf.Triple) int {
	for i, s := range m.graphs[graph] {
		if s.Subject.Equal(t.Subject) && s.Predicate.Equal(t.Predicate) && s.Object.Equal(t.Object) {
			return i
		}
	}
	return -1
}

func (m *memoryStore) seed(graph string, triples ...rdf.Triple) {
	for _, t := range triples {
		t = rdf.Triple{Subject: m.expand(t.Subject), Predicate: m.expand(t.Predicate), Object: m.expand(t.Object)}
		if m.has(graph, t) < 0 {
			m.graphs[graph] = append(m.graphs[graph], t)
		}
	}
}

func (m *memoryStore) count(graph string) int {
	return len(m.graphs[graph])
}

func (m *memoryStore) Namespace() string {
	return testNamespace
}

func (m *memoryStore) Select(ctx context.Context, graphs, labels []string, pattern *rdf.Pattern, optionals []*rdf.Pattern) (*db.SPARQLResult, error) {
	m.selects = append(m.selects, selectCall{graphs: graphs, labels: labels, pattern: pattern.Clone(), optionals: optionals})
	if m.result == nil {
		return &db.SPARQLResult{}, nil
	}
	return m.result, nil
}

func toValue(t rdf.Term) db.SPARQLValue {
	if t.Kind == rdf.KindLiteral {
		return db.SPARQLValue{Type: "literal", Value: t.Value, Lang: t.Lang}
	}
	return db.SPARQLValue{Type: "uri", Value: t.Value}
}

func (m *memoryStore) Describe(ctx context.Context, subject rdf.Term, graphs []string) (*db.SPARQLResult, error) {
	subject = m.expand(subject)
	result := &db.SPARQLResult{Head: db.SPARQLHead{Vars: []string{"o", "p"}}}
	for _, g := range graphs {
		for _, t := range m.graphs[g] {
			if !t.Subject.Equal(subject) {
				continue
			}
			result.Results.Bindings = append(result.Results.Bindings, map[string]db.SPARQLValue{
				"p": toValue(t.Predicate),
				"o": toValue(t.Object),
			})
		}
	}
	return result, nil
}

func (m *memoryStore) Insert(ctx context.Context, graphs []string, pattern *rdf.Pattern) error {
	m.inserts = append(m.inserts, graphs)
	if m.insertErr != nil {
		return m.insertErr
	}
	for _, g := range graphs {
		m.seed(g, pattern.Triples()...)
	}
	return nil
}

func (m *memoryStore) Delete(ctx context.Context, graphs []string, pattern *rdf.Pattern) error {
	m.deletes = append(m.deletes, graphs)
	if m.deleteErr != nil {
		return m.deleteErr
	}
	for _, g := range graphs {
		for _, t := range pattern.Triples() {
			t = rdf.Triple{Subject: m.expand(t.Subject), Predicate: m.expand(t.Predicate), Object: m.expand(t.Object)}
			if i := m.has(g, t); i >= 0 {
				m.graphs[g] = append(m.graphs[g][:i], m.graphs[g][i+1:]...)
			}
		}
	}
	return nil
}
