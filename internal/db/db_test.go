package db

import (
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDSN(t *testing.T) {
	path, query, ok := strings.Cut(dsn("/tmp/lib.sqlite3"), "?")
	require.True(t, ok)
	assert.Equal(t, "/tmp/lib.sqlite3", path)

	values, err := url.ParseQuery(query)
	require.NoError(t, err)
	assert.Equal(t, "immediate", values.Get("_txlock"), "writers must take the lock at BEGIN")
	assert.ElementsMatch(t, pragmas, values["_pragma"])
}

func TestOpenAppliesPragmas(t *testing.T) {
	database, err := Open(filepath.Join(t.TempDir(), "lib.sqlite3"))
	require.NoError(t, err)
	defer database.Close()

	var fk int
	require.NoError(t, database.Get(&fk, `PRAGMA foreign_keys`))
	assert.Equal(t, 1, fk)

	var mode string
	require.NoError(t, database.Get(&mode, `PRAGMA journal_mode`))
	assert.Equal(t, "wal", mode)
}

func TestFoldLowersUnicode(t *testing.T) {
	database := NewTestDB(t)

	var got string
	require.NoError(t, database.Get(&got, `SELECT fold(?)`, "ČRNA Žaba ŠE"))
	assert.Equal(t, "črna žaba še", got)

	var null *string
	require.NoError(t, database.Get(&null, `SELECT fold(NULL)`))
	assert.Nil(t, null)
}
