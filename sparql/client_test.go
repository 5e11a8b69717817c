package sparql

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skmf.evalgo.org/common"
	"skmf.evalgo.org/db"
	"skmf.evalgo.org/rdf"
)

// recordingExecutor captures statements and fails updates whose text contains failOn
type recordingExecutor struct {
	queries []string
	updates []string
	result  *db.SPARQLResult
	failOn  string
	err     error
}

func (r *recordingExecutor) ExecuteQuery(ctx context.Context, query string) (*db.SPARQLResult, error) {
	r.queries = append(r.queries, query)
	if r.err != nil && r.failOn == "" {
		return nil, r.err
	}
	if r.result == nil {
		return &db.SPARQLResult{}, nil
	}
	return r.result, nil
}

func (r *recordingExecutor) ExecuteUpdate(ctx context.Context, update string) error {
	if r.failOn != "" && strings.Contains(update, r.failOn) {
		return r.err
	}
	r.updates = append(r.updates, update)
	return nil
}

// TestClientSelect tests query delegation
func TestClientSelect(t *testing.T) {
	exec := &recordingExecutor{result: &db.SPARQLResult{
		Head: db.SPARQLHead{Vars: []string{"p", "o"}},
		Results: db.SPARQLBindings{Bindings: []map[string]db.SPARQLValue{
			{"p": {Type: "uri", Value: testNamespace + "#bleh"}, "o": {Type: "uri", Value: testNamespace + "#bluh"}},
		}},
	}}
	client := NewClient(newTestFormatter(), exec)

	result, err := client.Describe(context.Background(), blah, []string{""})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Len())

	require.Len(t, exec.queries, 1)
	assert.Contains(t, exec.queries[0], "SELECT DISTINCT ?o ?p\n")
	assert.Contains(t, exec.queries[0], "skmf:blah ?p ?o .")

	t.Run("empty select returns zero bindings", func(t *testing.T) {
		result, err := client.Select(context.Background(), nil, nil, rdf.NewPattern(), nil)
		require.NoError(t, err)
		assert.NotNil(t, result)
	})

	t.Run("endpoint error is returned unchanged", func(t *testing.T) {
		failing := NewClient(newTestFormatter(), &recordingExecutor{err: db.ErrEndpointUnreachable})
		_, err := failing.Describe(context.Background(), blah, []string{""})
		assert.ErrorIs(t, err, db.ErrEndpointUnreachable)
	})

	t.Run("malformed pattern makes no call", func(t *testing.T) {
		exec := &recordingExecutor{}
		c := NewClient(newTestFormatter(), exec)
		_, err := c.Describe(context.Background(), rdf.Literal("x"), []string{""})
		assert.ErrorIs(t, err, rdf.ErrMalformedPattern)
		assert.Empty(t, exec.queries)
	})
}

// TestClientInsertFanOut tests that one statement is sent per graph
func TestClientInsertFanOut(t *testing.T) {
	exec := &recordingExecutor{}
	client := NewClient(newTestFormatter(), exec)
	p := mustPattern(t, rdf.Triple{Subject: blah, Predicate: bleh, Object: bluh})

	err := client.Insert(context.Background(), []string{"b", "a", "b"}, p)
	require.NoError(t, err)

	require.Len(t, exec.updates, 2)
	assert.Contains(t, exec.updates[0], "GRAPH <http://localhost/skmf/a>")
	assert.Contains(t, exec.updates[1], "GRAPH <http://localhost/skmf/b>")
	for _, u := range exec.updates {
		assert.Contains(t, u, "INSERT DATA")
		assert.Contains(t, u, "skmf:blah skmf:bleh skmf:bluh .")
	}
}

// TestClientPartialUpdate tests that a failing graph stops the fan-out and is reported
func TestClientPartialUpdate(t *testing.T) {
	exec := &recordingExecutor{failOn: "skmf/b>", err: db.ErrEndpointInternal}
	client := NewClient(newTestFormatter(), exec)
	p := mustPattern(t, rdf.Triple{Subject: blah, Predicate: bleh, Object: bluh})

	err := client.Delete(context.Background(), []string{"a", "b", "c"}, p)
	require.Error(t, err)
	assert.ErrorIs(t, err, db.ErrEndpointInternal)

	var upErr *UpdateError
	require.True(t, errors.As(err, &upErr))
	assert.Equal(t, Delete, upErr.Action)
	assert.Equal(t, []string{"a"}, upErr.Applied)
	assert.Equal(t, "b", upErr.Failed)
	assert.Len(t, exec.updates, 1, "graph c must not be attempted")
	assert.Contains(t, upErr.Error(), `graph "b"`)
}

// TestClientUpdateValidation tests that malformed updates never reach the store
func TestClientUpdateValidation(t *testing.T) {
	exec := &recordingExecutor{}
	client := NewClient(newTestFormatter(), exec)

	err := client.Insert(context.Background(), []string{"", "users"}, rdf.NewPattern())
	assert.ErrorIs(t, err, rdf.ErrMalformedPattern)

	bad := mustPattern(t, rdf.Triple{Subject: blah, Predicate: bleh, Object: rdf.Prefixed("dc:title")})
	err = client.Insert(context.Background(), []string{""}, bad)
	assert.ErrorIs(t, err, rdf.ErrMalformedTerm)

	assert.Empty(t, exec.updates)
}

// TestClientTiming tests that every statement sent is timed at debug level
func TestClientTiming(t *testing.T) {
	var buf bytes.Buffer
	logger := common.NewLogger(common.LoggerConfig{Level: common.LogLevelDebug, Format: "json"})
	logger.SetOutput(&buf)

	client := NewClient(newTestFormatter(), &recordingExecutor{})
	client.logger = common.NewContextLogger(logger, nil)

	_, err := client.Describe(context.Background(), blah, []string{""})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `"operation":"select"`)

	buf.Reset()
	require.NoError(t, client.Insert(context.Background(), []string{"a", "b"}, mustPattern(t, rdf.Triple{Subject: blah, Predicate: bleh, Object: bluh})))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	for i, graph := range []string{"a", "b"} {
		assert.Contains(t, lines[i], `"operation":"insert"`)
		assert.Contains(t, lines[i], `"graph":"`+graph+`"`)
		assert.Contains(t, lines[i], "duration_ms")
	}
}
