package db

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadMigrations(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600))
	}
	write("002_add_index.sql", "CREATE INDEX x;")
	write("001_initial_schema.sql", "CREATE TABLE a();")
	write("README.md", "ignored")
	write("notes.sql", "ignored, no number")
	write("abc_thing.sql", "ignored, bad number")

	got, err := ReadMigrations(dir)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, Migration{Number: 1, Name: "initial_schema", SQL: "CREATE TABLE a();"}, got[0])
	assert.Equal(t, 2, got[1].Number)
	assert.Equal(t, "add_index", got[1].Name)
}

func TestReadMigrationsMissingDir(t *testing.T) {
	_, err := ReadMigrations(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestRepoMigrationsParse(t *testing.T) {
	got, err := ReadMigrations("../../migrations")
	require.NoError(t, err)
	require.NotEmpty(t, got)
	assert.Equal(t, 1, got[0].Number)
	assert.Contains(t, got[0].SQL, "notifications_changed")
}

func TestWithSSLDisabled(t *testing.T) {
	assert.Equal(t, "postgres://u@h/db?sslmode=disable", withSSLDisabled("postgres://u@h/db"))
	assert.Equal(t, "postgres://u@h/db?x=1&sslmode=disable", withSSLDisabled("postgres://u@h/db?x=1"))
	assert.Equal(t, "host=h dbname=db sslmode=disable", withSSLDisabled("host=h dbname=db"))
}

func TestNewRequiresDSN(t *testing.T) {
	_, err := New(context.Background(), "")
	assert.Error(t, err)
}
