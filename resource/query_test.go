package resource

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skmf.evalgo.org/db"
	"skmf.evalgo.org/rdf"
	"skmf.evalgo.org/sparql"
)

// TestQueryConstraints tests local add and remove of labels and statements
func TestQueryConstraints(t *testing.T) {
	q := NewQuery(newMemoryStore())
	assert.Equal(t, map[string]struct{}{"": {}}, q.Graphs)

	s := NewSubject(nil, rdf.Placeholder("s"), nil, predsOf(t, rdf.Prefixed("a"), rdf.Prefixed("skmf:Resource")))
	extra, err := rdf.PatternOf(rdf.Triple{Subject: blah, Predicate: bleh, Object: bluh})
	require.NoError(t, err)

	labels, added, err := q.AddConstraints(s, []string{"s", "?s"}, extra)
	require.NoError(t, err)
	assert.Equal(t, []string{"s"}, labels)
	assert.Equal(t, 2, added.Len())

	labels, added, err = q.AddConstraints(s, []string{"s"}, extra)
	require.NoError(t, err)
	assert.Empty(t, labels)
	assert.True(t, added.IsEmpty(), "repeated constraints add nothing")

	removedLabels, removed := q.RemoveConstraints(nil, []string{"s", "missing"}, extra)
	assert.Equal(t, []string{"s"}, removedLabels)
	assert.Equal(t, 1, removed.Len())
	assert.Equal(t, 1, q.Subjects.Len())

	_, removed = q.RemoveConstraints(s, nil, nil)
	assert.Equal(t, 1, removed.Len())
	assert.True(t, q.Subjects.IsEmpty())

	t.Run("invalid label", func(t *testing.T) {
		_, _, err := q.AddConstraints(nil, []string{"not valid"}, nil)
		assert.ErrorIs(t, err, rdf.ErrMalformedTerm)
		assert.Empty(t, q.Labels)
	})

	t.Run("graphs", func(t *testing.T) {
		q.AddGraphs("users", "tags")
		q.RemoveGraphs("tags")
		assert.Equal(t, []string{"", "users"}, sparql.SortedGraphs(q.Graphs))
	})

	t.Run("default graph cannot be removed", func(t *testing.T) {
		q := NewQuery(newMemoryStore(), "a")
		q.RemoveGraphs("", "a")
		assert.Equal(t, []string{""}, sparql.SortedGraphs(q.Graphs))
	})
}

// TestQuerySubmit tests delegation of the assembled state
func TestQuerySubmit(t *testing.T) {
	store := newMemoryStore()
	q := NewQuery(store, "users")
	p, err := rdf.PatternOf(rdf.Triple{Subject: blah, Predicate: bleh, Object: bluh})
	require.NoError(t, err)
	_, _, err = q.AddConstraints(nil, nil, p)
	require.NoError(t, err)

	require.NoError(t, q.SubmitInsert(context.Background()))
	assert.Equal(t, [][]string{{"", "users"}}, store.inserts)
	assert.Equal(t, 1, store.count("users"))

	_, err = q.SubmitQuery(context.Background())
	require.NoError(t, err)
	require.Len(t, store.selects, 1)
	assert.Equal(t, []string{"", "users"}, store.selects[0].graphs)
	assert.Empty(t, store.selects[0].labels)

	require.NoError(t, q.SubmitDelete(context.Background()))
	assert.Equal(t, 0, store.count("users"))
	assert.Equal(t, 0, store.count(""))
}

// TestGetResources tests resource listing with optional labels
func TestGetResources(t *testing.T) {
	store := newMemoryStore()
	store.result = &db.SPARQLResult{
		Head: db.SPARQLHead{Vars: []string{"label", "resource"}},
		Results: db.SPARQLBindings{Bindings: []map[string]db.SPARQLValue{
			{
				"resource": {Type: "uri", Value: testNamespace + "#user"},
				"label":    {Type: "literal", Value: "User", Lang: "en"},
			},
			{
				"resource": {Type: "uri", Value: testNamespace + "#unlabeled"},
			},
		}},
	}

	q := NewQuery(store)
	entries, err := q.GetResources(context.Background(), CategoryResource)
	require.NoError(t, err)
	assert.Equal(t, []ResourceEntry{
		{Resource: testNamespace + "#user", Label: "User", Lang: "en"},
		{Resource: testNamespace + "#unlabeled"},
	}, entries)

	require.Len(t, store.selects, 1)
	call := store.selects[0]
	assert.Equal(t, []string{"label", "resource"}, call.labels)

	out, err := sparql.NewFormatter(testNamespace, nil).FormatSelect(call.graphs, call.labels, call.pattern, call.optionals)
	require.NoError(t, err)
	assert.Contains(t, out, "SELECT DISTINCT ?label ?resource\n")
	assert.Contains(t, out, "?resource a skmf:Resource .")
	assert.Contains(t, out, "OPTIONAL { ?resource rdfs:label ?label . }")
}

// TestGetEntries tests label registration and label completion
func TestGetEntries(t *testing.T) {
	store := newMemoryStore()
	store.result = &db.SPARQLResult{Results: db.SPARQLBindings{Bindings: []map[string]db.SPARQLValue{
		{"s": {Type: "uri", Value: testNamespace + "#user"}},
	}}}
	q := NewQuery(store)

	rows, err := q.GetEntries(context.Background(), []Entry{
		{Subject: rdf.Placeholder("s"), Predicate: rdf.Prefixed("a"), Object: CategoryResource},
		{Subject: rdf.Placeholder("s"), Predicate: rdf.Placeholder("p"), Object: rdf.Literal("x")},
	})
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	require.Len(t, store.selects, 1)
	call := store.selects[0]
	assert.Equal(t, []string{"p", "p_label", "s", "s_label"}, call.labels)
	assert.Len(t, call.optionals, 2)

	out, err := sparql.NewFormatter(testNamespace, nil).FormatSelect(call.graphs, call.labels, call.pattern, call.optionals)
	require.NoError(t, err)
	assert.Contains(t, out, "OPTIONAL { ?s rdfs:label ?s_label . }")
	assert.Contains(t, out, "OPTIONAL { ?p rdfs:label ?p_label . }")
	assert.Contains(t, out, "?s a skmf:Resource ; ?p \"x\" .")

	t.Run("repeated call does not duplicate companions", func(t *testing.T) {
		_, err := q.GetEntries(context.Background(), nil)
		require.NoError(t, err)
		assert.Len(t, q.Optionals, 2)
	})

	t.Run("labels containing the companion marker get no companion", func(t *testing.T) {
		q := NewQuery(newMemoryStore())
		_, err := q.GetEntries(context.Background(), []Entry{
			{Subject: rdf.Placeholder("tag_label_en"), Predicate: rdf.Prefixed("a"), Object: CategoryResource},
		})
		require.NoError(t, err)
		assert.Empty(t, q.Optionals)
		assert.Equal(t, map[string]struct{}{"tag_label_en": {}}, q.Labels)
	})
}

// TestGetEntriesInvalid tests that the failing triple is identified and nothing is sent
func TestGetEntriesInvalid(t *testing.T) {
	tests := []struct {
		name     string
		entries  []Entry
		index    int
		position string
	}{
		{
			name: "missing object",
			entries: []Entry{
				{Subject: blah, Predicate: bleh, Object: bluh},
				{Subject: blah, Predicate: bleh, Object: rdf.Literal("")},
			},
			index:    1,
			position: "object",
		},
		{
			name:     "missing predicate",
			entries:  []Entry{{Subject: blah, Object: bluh}},
			index:    0,
			position: "predicate",
		},
		{
			name:     "literal subject",
			entries:  []Entry{{Subject: rdf.Literal("s"), Predicate: bleh, Object: bluh}},
			index:    0,
			position: "subject",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemoryStore()
			q := NewQuery(store)

			_, err := q.GetEntries(context.Background(), tt.entries)
			require.Error(t, err)
			assert.ErrorIs(t, err, rdf.ErrMalformedPattern)

			var entryErr *EntryError
			require.True(t, errors.As(err, &entryErr))
			assert.Equal(t, tt.index, entryErr.Index)
			assert.Equal(t, tt.position, entryErr.Position)

			assert.Empty(t, store.selects)
			assert.True(t, q.Subjects.IsEmpty())
		})
	}
}

// TestResourceID tests id derivation from labels
func TestResourceID(t *testing.T) {
	id, err := ResourceID(testNamespace, "My New Tag!")
	require.NoError(t, err)
	assert.Equal(t, testNamespace+"#mynewtag", id)

	_, err = ResourceID(testNamespace, " -- ")
	assert.ErrorIs(t, err, rdf.ErrMalformedTerm)
}

// TestAddResource tests resource creation and collision handling
func TestAddResource(t *testing.T) {
	store := newMemoryStore()
	q := NewQuery(store)

	s, err := q.AddResource(context.Background(), CategoryResource, "Project Tag", "Tags a project", "en")
	require.NoError(t, err)
	assert.Equal(t, rdf.URI(testNamespace+"#projecttag"), s.ID)
	assert.Equal(t, [][]string{{""}}, store.inserts)
	assert.Equal(t, 4, store.count(""), "two types, one label, one comment")

	label, ok := s.Label("en")
	assert.True(t, ok)
	assert.Equal(t, "Project Tag", label)

	_, err = q.AddResource(context.Background(), CategoryResource, "project-tag", "Duplicate", "en")
	assert.ErrorIs(t, err, ErrResourceExists)
	assert.Len(t, store.inserts, 1)

	t.Run("property category", func(t *testing.T) {
		s, err := q.AddResource(context.Background(), CategoryProperty, "Owns", "", "")
		require.NoError(t, err)
		assert.Equal(t, []rdf.Term{CategoryProperty}, s.Preds.Objects(rdf.Prefixed("a")))
		assert.False(t, s.Preds.Has(rdf.Prefixed(rdf.RDFSComment)))
	})
}
