package resource

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"skmf.evalgo.org/db"
	"skmf.evalgo.org/rdf"
	"skmf.evalgo.org/sparql"
)

// Resource categories understood by the front end.
var (
	CategoryResource = rdf.Prefixed(rdf.LocalPrefix + "Resource")
	CategoryProperty = rdf.Prefixed(rdf.RDFProperty)
)

const labelSuffix = "_label"

// Entry is one caller-supplied triple of a user-built query.
type Entry = rdf.Triple

// ResourceEntry is one row of GetResources.
type ResourceEntry struct {
	Resource string `json:"resource"`
	Label    string `json:"label,omitempty"`
	Lang     string `json:"lang,omitempty"`
}

// Query assembles constraints over several subjects and placeholders and
// submits them as one statement.
type Query struct {
	Graphs    map[string]struct{}
	Labels    map[string]struct{}
	Subjects  *rdf.Pattern
	Optionals []*rdf.Pattern

	store Store
}

// NewQuery returns an empty query scoped to graphs plus the default graph.
func NewQuery(store Store, graphs ...string) *Query {
	return &Query{
		Graphs:   newGraphSet(graphs),
		Labels:   map[string]struct{}{},
		Subjects: rdf.NewPattern(),
		store:    store,
	}
}

// AddGraphs extends the query's graph scope.
func (q *Query) AddGraphs(graphs ...string) {
	for _, g := range graphs {
		q.Graphs[g] = struct{}{}
	}
}

// RemoveGraphs narrows the query's graph scope. The default graph stays.
func (q *Query) RemoveGraphs(graphs ...string) {
	for _, g := range graphs {
		if g == DefaultGraph {
			continue
		}
		delete(q.Graphs, g)
	}
}

// AddConstraints merges labels, the statements cached on subject and pattern
// into the query. It returns only what was not already present. No store I/O.
func (q *Query) AddConstraints(subject *Subject, labels []string, pattern *rdf.Pattern) ([]string, *rdf.Pattern, error) {
	incoming := rdf.NewPattern()
	if subject != nil && !subject.Preds.IsEmpty() {
		if _, err := incoming.AddPredicates(subject.ID, subject.Preds); err != nil {
			return nil, nil, err
		}
	}
	if _, err := incoming.Merge(pattern); err != nil {
		return nil, nil, err
	}
	for _, l := range labels {
		if err := rdf.Placeholder(l).Validate(); err != nil {
			return nil, nil, err
		}
	}

	added, err := q.Subjects.Merge(incoming)
	if err != nil {
		return nil, nil, err
	}

	var newLabels []string
	for _, l := range labels {
		l = strings.TrimPrefix(l, "?")
		if _, ok := q.Labels[l]; ok {
			continue
		}
		q.Labels[l] = struct{}{}
		newLabels = append(newLabels, l)
	}
	return newLabels, added, nil
}

// RemoveConstraints prunes labels, the statements cached on subject and
// pattern from the query. It returns only what was present. No store I/O.
func (q *Query) RemoveConstraints(subject *Subject, labels []string, pattern *rdf.Pattern) ([]string, *rdf.Pattern) {
	var oldLabels []string
	for _, l := range labels {
		l = strings.TrimPrefix(l, "?")
		if _, ok := q.Labels[l]; !ok {
			continue
		}
		delete(q.Labels, l)
		oldLabels = append(oldLabels, l)
	}

	removed := rdf.NewPattern()
	if subject != nil {
		preds := q.Subjects.RemovePredicates(subject.ID, subject.Preds)
		if !preds.IsEmpty() {
			_, _ = removed.AddPredicates(subject.ID, preds)
		}
	}
	if !pattern.IsEmpty() {
		for _, e := range q.Subjects.Subtract(pattern).Entries() {
			_, _ = removed.AddPredicates(e.Subject, e.Predicates)
		}
	}
	return oldLabels, removed
}

// AddOptional appends an OPTIONAL block to the query.
func (q *Query) AddOptional(pattern *rdf.Pattern) error {
	if err := pattern.Validate(); err != nil {
		return err
	}
	if pattern.IsEmpty() {
		return nil
	}
	q.Optionals = append(q.Optionals, pattern.Clone())
	return nil
}

// SubmitQuery runs the query's SELECT.
func (q *Query) SubmitQuery(ctx context.Context) (*db.SPARQLResult, error) {
	return q.store.Select(ctx, sparql.SortedGraphs(q.Graphs), sparql.SortedLabels(q.Labels), q.Subjects, q.Optionals)
}

// SubmitInsert writes the query's statements into each of its graphs.
func (q *Query) SubmitInsert(ctx context.Context) error {
	return q.store.Insert(ctx, sparql.SortedGraphs(q.Graphs), q.Subjects)
}

// SubmitDelete removes the query's statements from each of its graphs.
func (q *Query) SubmitDelete(ctx context.Context) error {
	return q.store.Delete(ctx, sparql.SortedGraphs(q.Graphs), q.Subjects)
}

// GetResources lists every subject typed category, with its rdfs:label when
// it has one. A missing label never filters a subject out.
func (q *Query) GetResources(ctx context.Context, category rdf.Term) ([]ResourceEntry, error) {
	resource := rdf.Placeholder("resource")
	label := rdf.Placeholder("label")

	pattern, err := rdf.PatternOf(rdf.Triple{Subject: resource, Predicate: rdf.Prefixed(rdf.TypeKeyword), Object: category})
	if err != nil {
		return nil, err
	}
	optional, err := rdf.PatternOf(rdf.Triple{Subject: resource, Predicate: rdf.Prefixed(rdf.RDFSLabel), Object: label})
	if err != nil {
		return nil, err
	}

	result, err := q.store.Select(ctx, sparql.SortedGraphs(q.Graphs), []string{"label", "resource"}, pattern, []*rdf.Pattern{optional})
	if err != nil {
		return nil, err
	}

	entries := make([]ResourceEntry, 0, result.Len())
	for _, b := range result.Results.Bindings {
		r, ok := b["resource"]
		if !ok {
			continue
		}
		entry := ResourceEntry{Resource: r.Value}
		if l, ok := b["label"]; ok {
			entry.Label = l.Value
			entry.Lang = l.Lang
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// checkEntry validates one caller triple position by position.
func checkEntry(i int, e Entry) error {
	positions := []struct {
		name string
		term rdf.Term
		node bool
	}{
		{"subject", e.Subject, true},
		{"predicate", e.Predicate, true},
		{"object", e.Object, false},
	}
	for _, p := range positions {
		if err := p.term.Validate(); err != nil {
			return &EntryError{Index: i, Position: p.name, Err: fmt.Errorf("%w: %w", rdf.ErrMalformedPattern, err)}
		}
		if p.node && p.term.Kind == rdf.KindLiteral {
			return &EntryError{Index: i, Position: p.name, Err: fmt.Errorf("%w: literal %s", rdf.ErrMalformedPattern, p.name)}
		}
	}
	return nil
}

// GetEntries turns caller triples into constraints, requests every
// placeholder in the header together with its rdfs:label and runs the query.
// The first invalid triple aborts the call before anything is sent.
func (q *Query) GetEntries(ctx context.Context, entries []Entry) ([]map[string]db.SPARQLValue, error) {
	for i, e := range entries {
		if err := checkEntry(i, e); err != nil {
			return nil, err
		}
	}

	pattern := rdf.NewPattern()
	var labels []string
	for _, e := range entries {
		if _, err := pattern.AddTriple(e.Subject, e.Predicate, e.Object); err != nil {
			return nil, err
		}
		for _, t := range []rdf.Term{e.Subject, e.Predicate, e.Object} {
			if t.Kind == rdf.KindPlaceholder {
				labels = append(labels, t.Value)
			}
		}
	}

	if _, _, err := q.AddConstraints(nil, labels, pattern); err != nil {
		return nil, err
	}
	if err := q.setLabelConstraints(); err != nil {
		return nil, err
	}

	result, err := q.SubmitQuery(ctx)
	if err != nil {
		return nil, err
	}
	return result.Results.Bindings, nil
}

// setLabelConstraints adds an OPTIONAL rdfs:label lookup for every label that
// is not itself a label companion, and exposes the companion in the header.
func (q *Query) setLabelConstraints() error {
	for _, l := range sparql.SortedLabels(q.Labels) {
		if strings.Contains(l, labelSuffix) {
			continue
		}
		companion := l + labelSuffix
		if _, ok := q.Labels[companion]; ok {
			continue
		}
		opt, err := rdf.PatternOf(rdf.Triple{
			Subject:   rdf.Placeholder(l),
			Predicate: rdf.Prefixed(rdf.RDFSLabel),
			Object:    rdf.Placeholder(companion),
		})
		if err != nil {
			return err
		}
		q.Optionals = append(q.Optionals, opt)
		q.Labels[companion] = struct{}{}
	}
	return nil
}

// ResourceID derives a resource IRI from a human label: the label's letters
// and digits, lower-cased, appended to namespace#.
func ResourceID(namespace, label string) (string, error) {
	var b strings.Builder
	for _, r := range label {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("%w: label %q has no letters or digits", rdf.ErrMalformedTerm, label)
	}
	return namespace + "#" + b.String(), nil
}

// AddResource creates a categorized, labeled and described resource in the
// default graph. A resource whose derived id already has statements is left
// untouched and ErrResourceExists is returned.
func (q *Query) AddResource(ctx context.Context, category rdf.Term, label, description, lang string) (*Subject, error) {
	id, err := ResourceID(q.store.Namespace(), label)
	if err != nil {
		return nil, err
	}

	subject, err := LoadSubject(ctx, q.store, rdf.URI(id), nil)
	if err != nil {
		return nil, err
	}
	if !subject.Preds.IsEmpty() {
		return subject, fmt.Errorf("%s: %w", id, ErrResourceExists)
	}

	newLiteral := func(v string) rdf.Term {
		if lang != "" {
			return rdf.LangLiteral(v, lang)
		}
		return rdf.Literal(v)
	}

	categories := []rdf.Term{category}
	if category.Equal(CategoryResource) {
		categories = append(categories, rdf.Prefixed(rdf.RDFSClass))
	}

	preds := rdf.NewPredicates()
	if _, err := preds.Add(rdf.Prefixed(rdf.TypeKeyword), categories...); err != nil {
		return nil, err
	}
	if _, err := preds.Add(rdf.Prefixed(rdf.RDFSLabel), newLiteral(label)); err != nil {
		return nil, err
	}
	if description != "" {
		if _, err := preds.Add(rdf.Prefixed(rdf.RDFSComment), newLiteral(description)); err != nil {
			return nil, err
		}
	}

	if _, _, err := subject.AddData(ctx, []string{DefaultGraph}, preds); err != nil {
		return subject, err
	}
	return subject, nil
}
