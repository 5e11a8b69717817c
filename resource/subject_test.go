package resource

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skmf.evalgo.org/db"
	"skmf.evalgo.org/rdf"
	"skmf.evalgo.org/sparql"
)

var (
	blah = rdf.Prefixed("skmf:blah")
	bleh = rdf.Prefixed("skmf:bleh")
	bluh = rdf.Prefixed("skmf:bluh")

	rdfsLabelIRI = rdf.URI("http://www.w3.org/2000/01/rdf-schema#label")
)

func predsOf(t *testing.T, pred rdf.Term, objects ...rdf.Term) *rdf.Predicates {
	t.Helper()
	p := rdf.NewPredicates()
	_, err := p.Add(pred, objects...)
	require.NoError(t, err)
	return p
}

// TestLoadSubjectFromEndpoint tests hydration through the real client and wire format
func TestLoadSubjectFromEndpoint(t *testing.T) {
	var query string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		query = r.PostForm.Get("query")
		_, _ = w.Write([]byte(`{
			"head": {"vars": ["p", "o"]},
			"results": {"bindings": [
				{"p": {"type": "uri", "value": "http://www.w3.org/2000/01/rdf-schema#label"},
				 "o": {"type": "literal", "value": "UserID", "xml:lang": "en-US"}}
			]}
		}`))
	}))
	defer srv.Close()

	endpoint, err := db.NewSPARQLEndpoint(srv.URL+"/sparql/", srv.URL+"/update/", 5*time.Second)
	require.NoError(t, err)
	client := sparql.NewClient(sparql.NewFormatter(testNamespace, nil), endpoint)

	s, err := LoadSubject(context.Background(), client, rdf.URI(testNamespace+"#User"), []string{""})
	require.NoError(t, err)

	assert.Contains(t, query, "<http://localhost/skmf#User> ?p ?o .")
	assert.Contains(t, query, "FROM <http://localhost/skmf>\n")
	assert.Equal(t, []rdf.Term{rdf.LangLiteral("UserID", "en-US")}, s.Preds.Objects(rdfsLabelIRI))

	label, ok := s.Label("en-us")
	assert.True(t, ok)
	assert.Equal(t, "UserID", label)
}

// TestLoadSubject tests graph scoping and empty results
func TestLoadSubject(t *testing.T) {
	store := newMemoryStore()
	store.seed("", rdf.Triple{Subject: blah, Predicate: bleh, Object: bluh})
	store.seed("other", rdf.Triple{Subject: blah, Predicate: bleh, Object: rdf.Literal("hidden")})

	s, err := LoadSubject(context.Background(), store, blah, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{""}, s.GraphList())
	assert.Equal(t, 1, s.Preds.Len())

	t.Run("unknown subject is empty, not an error", func(t *testing.T) {
		s, err := LoadSubject(context.Background(), store, rdf.Prefixed("skmf:nothing"), []string{"other"})
		require.NoError(t, err)
		assert.True(t, s.Preds.IsEmpty())
		assert.True(t, s.InGraph(""))
		assert.True(t, s.InGraph("other"))
	})

	t.Run("placeholder is not fetched", func(t *testing.T) {
		store := newMemoryStore()
		s, err := LoadSubject(context.Background(), store, rdf.Placeholder("s"), nil)
		require.NoError(t, err)
		assert.True(t, s.Preds.IsEmpty())
		assert.Empty(t, store.selects)
	})
}

// TestSubjectAddDataIdempotent tests that a repeated add reports nothing and writes nothing
func TestSubjectAddDataIdempotent(t *testing.T) {
	store := newMemoryStore()
	s := NewSubject(store, blah, nil, nil)

	applied, added, err := s.AddData(context.Background(), []string{""}, predsOf(t, bleh, bluh))
	require.NoError(t, err)
	assert.Equal(t, []string{""}, applied)
	assert.Equal(t, 1, added.Len())
	assert.Len(t, store.inserts, 1)

	applied, added, err = s.AddData(context.Background(), []string{""}, predsOf(t, bleh, bluh))
	require.NoError(t, err)
	assert.Equal(t, []string{""}, applied)
	assert.True(t, added.IsEmpty())
	assert.Len(t, store.inserts, 1, "no-op must not reach the store")
	assert.Equal(t, []rdf.Term{bluh}, s.Preds.Objects(bleh))
	assert.Equal(t, 1, store.count(""))
}

// TestSubjectAddRemoveInverse tests that remove undoes add
func TestSubjectAddRemoveInverse(t *testing.T) {
	store := newMemoryStore()
	s := NewSubject(store, blah, nil, predsOf(t, rdf.Prefixed("rdfs:label"), rdf.Literal("Blah")))
	before := s.Preds.Clone()

	_, added, err := s.AddData(context.Background(), []string{""}, predsOf(t, bleh, bluh))
	require.NoError(t, err)

	applied, removed, err := s.RemoveData(context.Background(), []string{""}, added)
	require.NoError(t, err)
	assert.Equal(t, []string{""}, applied)
	assert.Equal(t, 1, removed.Len())
	assert.Equal(t, before.Entries(), s.Preds.Entries())
	assert.False(t, s.Preds.Has(bleh))
	assert.Equal(t, 0, store.count(""))

	t.Run("removing absent data is a no-op", func(t *testing.T) {
		_, removed, err := s.RemoveData(context.Background(), []string{""}, predsOf(t, bleh, bluh))
		require.NoError(t, err)
		assert.True(t, removed.IsEmpty())
		assert.Len(t, store.deletes, 1)
	})
}

// TestSubjectPrefixedMatchesLoaded tests that prefixed names find the full
// IRIs a loaded subject caches
func TestSubjectPrefixedMatchesLoaded(t *testing.T) {
	store := newMemoryStore()
	store.seed("", rdf.Triple{Subject: blah, Predicate: rdf.Prefixed("rdfs:label"), Object: rdf.Literal("Blah")})
	store.seed("", rdf.Triple{Subject: blah, Predicate: rdf.Prefixed("a"), Object: rdf.Prefixed("skmf:Resource")})

	s, err := LoadSubject(context.Background(), store, blah, nil)
	require.NoError(t, err)
	require.Equal(t, []rdf.Term{rdf.Literal("Blah")}, s.Preds.Objects(rdfsLabelIRI))

	_, added, err := s.AddData(context.Background(), []string{""}, predsOf(t, rdf.Prefixed("rdfs:label"), rdf.Literal("Blah")))
	require.NoError(t, err)
	assert.True(t, added.IsEmpty())
	assert.Empty(t, store.inserts)

	_, removed, err := s.RemoveData(context.Background(), []string{""}, predsOf(t, rdf.Prefixed("a"), rdf.Prefixed("skmf:Resource")))
	require.NoError(t, err)
	assert.Equal(t, 1, removed.Len())
	assert.Equal(t, 1, store.count(""))

	_, removed, err = s.RemoveData(context.Background(), []string{""}, predsOf(t, rdf.Prefixed("rdfs:label"), rdf.Literal("Blah")))
	require.NoError(t, err)
	assert.Equal(t, []rdf.Term{rdf.Literal("Blah")}, removed.Objects(rdfsLabelIRI))
	assert.True(t, s.Preds.IsEmpty())
	assert.Equal(t, 0, store.count(""))
}

// TestSubjectGraphWhitelist tests that graphs outside the subject's scope are ignored
func TestSubjectGraphWhitelist(t *testing.T) {
	store := newMemoryStore()
	s := NewSubject(store, blah, []string{"users"}, nil)

	applied, added, err := s.AddData(context.Background(), []string{"forbidden"}, predsOf(t, bleh, bluh))
	require.NoError(t, err)
	assert.Empty(t, applied)
	assert.True(t, added.IsEmpty())
	assert.Empty(t, store.inserts)
	assert.True(t, s.Preds.IsEmpty())

	applied, _, err = s.AddData(context.Background(), []string{"forbidden", "users"}, predsOf(t, bleh, bluh))
	require.NoError(t, err)
	assert.Equal(t, []string{"users"}, applied)
	assert.Equal(t, [][]string{{"users"}}, store.inserts)

	s.RemoveGraphs("users", "")
	assert.False(t, s.InGraph("users"))
	assert.True(t, s.InGraph(""), "default graph always stays in scope")
	s.AddGraphs("a", "b")
	assert.Equal(t, []string{"", "a", "b"}, s.GraphList())
}

// TestSubjectStoreFailure tests that store errors surface and the cache is not rolled back
func TestSubjectStoreFailure(t *testing.T) {
	store := newMemoryStore()
	store.insertErr = db.ErrEndpointInternal
	s := NewSubject(store, blah, nil, nil)

	applied, added, err := s.AddData(context.Background(), []string{""}, predsOf(t, bleh, bluh))
	assert.ErrorIs(t, err, db.ErrEndpointInternal)
	assert.Equal(t, []string{""}, applied)
	assert.Equal(t, 1, added.Len())
	assert.True(t, s.Preds.Has(bleh))

	t.Run("empty removal makes no call", func(t *testing.T) {
		store := newMemoryStore()
		s := NewSubject(store, blah, nil, predsOf(t, bleh, bluh))

		_, removed, err := s.RemoveData(context.Background(), []string{""}, rdf.NewPredicates())
		require.NoError(t, err)
		assert.True(t, removed.IsEmpty())
		assert.Empty(t, store.deletes)
	})
}

// TestSubjectUnsupported tests operations without defined semantics
func TestSubjectUnsupported(t *testing.T) {
	s := NewSubject(newMemoryStore(), blah, nil, nil)
	assert.ErrorIs(t, s.UpdateData(context.Background(), []string{""}, rdf.NewPredicates()), ErrUnsupportedOperation)
	assert.ErrorIs(t, s.RefreshStore(context.Background()), ErrUnsupportedOperation)
}

// TestSubjectLiterals tests label and comment lookup
func TestSubjectLiterals(t *testing.T) {
	preds := predsOf(t, rdf.Prefixed("rdfs:label"), rdf.LangLiteral("Tag", "en"), rdf.LangLiteral("Etikett", "de"))
	_, err := preds.Add(rdf.URI("http://www.w3.org/2000/01/rdf-schema#comment"), rdf.Literal("A tag"))
	require.NoError(t, err)
	s := NewSubject(newMemoryStore(), blah, nil, preds)

	label, ok := s.Label("de")
	assert.True(t, ok)
	assert.Equal(t, "Etikett", label)

	label, ok = s.Label("fr")
	assert.True(t, ok)
	assert.Equal(t, "Tag", label, "falls back to the first label")

	comment, ok := s.Comment("")
	assert.True(t, ok)
	assert.Equal(t, "A tag", comment)

	_, ok = NewSubject(nil, blah, nil, nil).Label("")
	assert.False(t, ok)
}
