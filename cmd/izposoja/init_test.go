package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/izposoja/internal/auth"
	"github.com/erazemk/izposoja/internal/db"
	"github.com/erazemk/izposoja/internal/store"
)

func TestGeneratePassword(t *testing.T) {
	a, err := generatePassword(16)
	require.NoError(t, err)
	b, err := generatePassword(16)
	require.NoError(t, err)

	assert.Len(t, a, 16)
	assert.NotEqual(t, a, b)
}

func TestInitDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lib.sqlite3")

	password, err := initDatabase(path, "ana")
	require.NoError(t, err)
	require.FileExists(t, path)

	database, err := db.Open(path)
	require.NoError(t, err)
	defer database.Close()

	admin, err := store.GetAdminByUsername(context.Background(), database, "ana")
	require.NoError(t, err)
	require.NotNil(t, admin)
	assert.Equal(t, "ana", admin.Name)
	assert.True(t, auth.CheckPassword(admin.PasswordHash, password))
}

func TestInitDatabaseRemovesFileOnFailure(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "missing")
	path := filepath.Join(dir, "lib.sqlite3")

	_, err := initDatabase(path, "ana")
	require.Error(t, err)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestInitCommandUsesFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lib.sqlite3")

	root := newRootCmd()
	root.SetArgs([]string{"init", "--db", path, "--admin-user", "bor"})
	require.NoError(t, root.Execute())

	database, err := db.Open(path)
	require.NoError(t, err)
	defer database.Close()

	admin, err := store.GetAdminByUsername(context.Background(), database, "bor")
	require.NoError(t, err)
	assert.NotNil(t, admin)

	root = newRootCmd()
	root.SetArgs([]string{"init", "--db", path})
	assert.ErrorContains(t, root.Execute(), "already exists")
}
