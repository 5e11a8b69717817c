package bolt

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	Name string `json:"name"`
}

func openTemp(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"), "items")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// TestJSONRoundTrip tests put, get and delete
func TestJSONRoundTrip(t *testing.T) {
	db := openTemp(t)

	require.NoError(t, db.PutJSON("items", "a", item{Name: "alpha"}))

	var got item
	require.NoError(t, db.GetJSON("items", "a", &got))
	assert.Equal(t, "alpha", got.Name)

	require.NoError(t, db.Delete("items", "a"))
	assert.ErrorIs(t, db.GetJSON("items", "a", &got), ErrNotFound)

	t.Run("missing bucket", func(t *testing.T) {
		assert.ErrorIs(t, db.PutJSON("nope", "a", item{}), ErrNotFound)
	})
}

// TestRange tests bounded key iteration
func TestRange(t *testing.T) {
	db := openTemp(t)
	for _, k := range []string{"a", "b", "c", "d"} {
		require.NoError(t, db.PutJSON("items", k, item{Name: k}))
	}

	var keys []string
	err := db.Range("items", "b", "d", func(key string, _ []byte) error {
		keys = append(keys, key)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c"}, keys)

	keys = nil
	err = db.Range("items", "", "", func(key string, _ []byte) error {
		keys = append(keys, key)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c", "d"}, keys)

	n, err := db.Count("items")
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}
