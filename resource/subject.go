// Package resource provides the Subject, Query and User abstractions that let
// callers read and change RDF data without building SPARQL by hand.
//
// Instances are not safe for concurrent mutation. A Subject or Query is
// meant to live for one request or operation.
package resource

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/cayleygraph/quad/voc"

	"skmf.evalgo.org/db"
	"skmf.evalgo.org/rdf"
	"skmf.evalgo.org/sparql"
)

// DefaultGraph is the short name of the store's default graph.
const DefaultGraph = ""

// Store is the subset of sparql.Client the resource layer depends on.
type Store interface {
	Namespace() string
	Select(ctx context.Context, graphs, labels []string, pattern *rdf.Pattern, optionals []*rdf.Pattern) (*db.SPARQLResult, error)
	Describe(ctx context.Context, subject rdf.Term, graphs []string) (*db.SPARQLResult, error)
	Insert(ctx context.Context, graphs []string, pattern *rdf.Pattern) error
	Delete(ctx context.Context, graphs []string, pattern *rdf.Pattern) error
}

var _ Store = (*sparql.Client)(nil)

// Subject caches the statements known about one RDF subject and keeps the
// store in step with every change made through it.
type Subject struct {
	ID     rdf.Term
	Graphs map[string]struct{}
	Preds  *rdf.Predicates

	store Store
}

func newGraphSet(graphs []string) map[string]struct{} {
	set := map[string]struct{}{DefaultGraph: {}}
	for _, g := range graphs {
		set[g] = struct{}{}
	}
	return set
}

// NewSubject builds a subject without contacting the store.
// The default graph is always part of its scope.
func NewSubject(store Store, id rdf.Term, graphs []string, preds *rdf.Predicates) *Subject {
	if preds == nil {
		preds = rdf.NewPredicates()
	}
	return &Subject{
		ID:     id,
		Graphs: newGraphSet(graphs),
		Preds:  preds,
		store:  store,
	}
}

// LoadSubject fetches every statement about id visible in graphs. A subject
// the store knows nothing about is returned with no predicates.
// Placeholder ids describe query variables and are never fetched.
func LoadSubject(ctx context.Context, store Store, id rdf.Term, graphs []string) (*Subject, error) {
	s := NewSubject(store, id, graphs, nil)
	if id.Kind == rdf.KindPlaceholder {
		if err := id.Validate(); err != nil {
			return nil, err
		}
		return s, nil
	}
	if err := s.Load(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Load replaces the cached predicates with the store's current view.
func (s *Subject) Load(ctx context.Context) error {
	result, err := s.store.Describe(ctx, s.ID, s.GraphList())
	if err != nil {
		return err
	}
	preds, err := predicatesFromResult(result)
	if err != nil {
		return err
	}
	s.Preds = preds
	return nil
}

// predicatesFromResult folds ?p ?o bindings into a predicate set.
func predicatesFromResult(result *db.SPARQLResult) (*rdf.Predicates, error) {
	preds := rdf.NewPredicates()
	if result == nil {
		return preds, nil
	}
	for i, binding := range result.Results.Bindings {
		p, okP := binding["p"]
		o, okO := binding["o"]
		if !okP || !okO {
			return nil, fmt.Errorf("binding %d: missing p or o", i)
		}
		pred, err := rdf.FromBinding(p.Type, p.Value, p.Lang)
		if err != nil {
			return nil, fmt.Errorf("binding %d predicate: %w", i, err)
		}
		obj, err := rdf.FromBinding(o.Type, o.Value, o.Lang)
		if err != nil {
			return nil, fmt.Errorf("binding %d object: %w", i, err)
		}
		if _, err := preds.Record(pred, obj); err != nil {
			return nil, fmt.Errorf("binding %d: %w", i, err)
		}
	}
	return preds, nil
}

// GraphList returns the subject's graphs in sorted order.
func (s *Subject) GraphList() []string {
	return sparql.SortedGraphs(s.Graphs)
}

// AddGraphs extends the subject's graph scope.
func (s *Subject) AddGraphs(graphs ...string) {
	for _, g := range graphs {
		s.Graphs[g] = struct{}{}
	}
}

// RemoveGraphs narrows the subject's graph scope. The default graph stays.
func (s *Subject) RemoveGraphs(graphs ...string) {
	for _, g := range graphs {
		if g == DefaultGraph {
			continue
		}
		delete(s.Graphs, g)
	}
}

// InGraph reports whether graph is in the subject's scope.
func (s *Subject) InGraph(graph string) bool {
	_, ok := s.Graphs[graph]
	return ok
}

// allowed intersects graphs with the subject's scope, sorted.
func (s *Subject) allowed(graphs []string) []string {
	set := make(map[string]struct{}, len(graphs))
	for _, g := range graphs {
		if s.InGraph(g) {
			set[g] = struct{}{}
		}
	}
	return sparql.SortedGraphs(set)
}

// AddData records preds on the subject and inserts what was new into every
// requested graph that belongs to the subject. Graphs outside the subject's
// scope are dropped. When no graph applies nothing changes. When nothing is new
// the store is not contacted and added is empty.
//
// Prefixed names are matched against the full IRIs a loaded subject caches.
// A store failure is returned as is; the cached predicates keep the change.
func (s *Subject) AddData(ctx context.Context, graphs []string, preds *rdf.Predicates) (applied []string, added *rdf.Predicates, err error) {
	applied = s.allowed(graphs)
	if len(applied) == 0 {
		return nil, rdf.NewPredicates(), nil
	}
	if err := preds.Validate(); err != nil {
		return nil, nil, err
	}

	added, err = s.Preds.Merge(s.align(preds))
	if err != nil {
		return nil, nil, err
	}
	if added.IsEmpty() {
		return applied, added, nil
	}

	pattern := rdf.NewPattern()
	if _, err := pattern.AddPredicates(s.ID, added); err != nil {
		return nil, nil, err
	}
	if err := s.store.Insert(ctx, applied, pattern); err != nil {
		return applied, added, err
	}
	return applied, added, nil
}

// RemoveData drops preds from the subject and deletes what was present from
// every requested graph that belongs to the subject. It mirrors AddData.
func (s *Subject) RemoveData(ctx context.Context, graphs []string, preds *rdf.Predicates) (applied []string, removed *rdf.Predicates, err error) {
	applied = s.allowed(graphs)
	if len(applied) == 0 {
		return nil, rdf.NewPredicates(), nil
	}
	if err := preds.Validate(); err != nil {
		return nil, nil, err
	}

	removed = s.Preds.Subtract(s.align(preds))
	if removed.IsEmpty() {
		return applied, removed, nil
	}

	pattern := rdf.NewPattern()
	if _, err := pattern.AddPredicates(s.ID, removed); err != nil {
		return nil, nil, err
	}
	if err := s.store.Delete(ctx, applied, pattern); err != nil {
		return applied, removed, err
	}
	return applied, removed, nil
}

// align rewrites preds into the form the cache already holds them in, so that
// skmf:x matches a cached <ns#x>. Terms the cache does not know are kept.
func (s *Subject) align(preds *rdf.Predicates) *rdf.Predicates {
	ns := rdf.NewNamespaces(s.namespace())
	out := rdf.NewPredicates()
	for _, e := range preds.Entries() {
		pred := cachedForm(ns, e.Predicate, s.Preds.Has)
		cached := s.Preds.Objects(pred)
		objects := make([]rdf.Term, 0, len(e.Objects))
		for _, o := range e.Objects {
			objects = append(objects, cachedForm(ns, o, func(t rdf.Term) bool {
				for _, c := range cached {
					if c.Equal(t) {
						return true
					}
				}
				return false
			}))
		}
		// preds was validated by the caller
		_, _ = out.Record(pred, objects...)
	}
	return out
}

// cachedForm returns the full IRI of a prefixed name when only that form is known.
func cachedForm(ns *voc.Namespaces, t rdf.Term, known func(rdf.Term) bool) rdf.Term {
	if t.Kind != rdf.KindPrefixed || known(t) {
		return t
	}
	iri, ok := rdf.Resolve(ns, t)
	if !ok {
		return t
	}
	if full := rdf.URI(iri); known(full) {
		return full
	}
	return t
}

// UpdateData would apply a conditional update. It has no defined semantics.
func (s *Subject) UpdateData(ctx context.Context, graphs []string, preds *rdf.Predicates) error {
	return fmt.Errorf("update data for %s: %w", s.ID, ErrUnsupportedOperation)
}

// RefreshStore would rewrite the store from the cache. It has no defined semantics.
func (s *Subject) RefreshStore(ctx context.Context) error {
	return fmt.Errorf("refresh store for %s: %w", s.ID, ErrUnsupportedOperation)
}

// Pattern returns the cached statements as a pattern rooted at the subject.
func (s *Subject) Pattern() *rdf.Pattern {
	p := rdf.NewPattern()
	if s.Preds.IsEmpty() {
		return p
	}
	// ID and cached predicates were validated when they were recorded
	_, _ = p.AddPredicates(s.ID, s.Preds)
	return p
}

// Label returns the rdfs:label in lang, falling back to any label.
func (s *Subject) Label(lang string) (string, bool) {
	return s.literal(rdf.RDFSLabel, lang)
}

// Comment returns the rdfs:comment in lang, falling back to any comment.
func (s *Subject) Comment(lang string) (string, bool) {
	return s.literal(rdf.RDFSComment, lang)
}

// literal looks a predicate up under both its prefixed and its full form,
// since loaded subjects carry full IRIs.
func (s *Subject) literal(curie, lang string) (string, bool) {
	var objects []rdf.Term
	objects = append(objects, s.Preds.Objects(rdf.Prefixed(curie))...)
	if iri, ok := rdf.Expand(rdf.NewNamespaces(s.namespace()), curie); ok {
		objects = append(objects, s.Preds.Objects(rdf.URI(iri))...)
	}

	var fallback *rdf.Term
	for i := range objects {
		o := objects[i]
		if o.Kind != rdf.KindLiteral {
			continue
		}
		if lang == "" || strings.EqualFold(o.Lang, lang) {
			return o.Value, true
		}
		if fallback == nil {
			fallback = &objects[i]
		}
	}
	if fallback != nil {
		return fallback.Value, true
	}
	return "", false
}

func (s *Subject) namespace() string {
	if s.store == nil {
		return ""
	}
	return s.store.Namespace()
}

// SortedPredicates returns the cached predicates ordered by their rendered form.
func (s *Subject) SortedPredicates() []rdf.PredicateEntry {
	entries := s.Preds.Entries()
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Predicate.Value < entries[j].Predicate.Value
	})
	return entries
}
