package migrations

import (
	"errors"
	"io"
	"os"
	"testing"

	"ms-marketplace/internal/logger"

	"github.com/golang-migrate/migrate/v4/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const repoMigrations = "../../../migrations"

func TestInitialize_MissingDirectory(t *testing.T) {
	r := NewRunner(nil, MigrateOptions{MigrationsDir: "./does-not-exist"}, logger.Nop())
	err := r.Initialize()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")
	assert.NoError(t, r.Close())
}

// Every migration must have both directions, and the schema must come
// before the seed data.
func TestMigrationFiles_ArePaired(t *testing.T) {
	src, err := source.Open(MigrateOptions{MigrationsDir: repoMigrations}.SourceURL())
	require.NoError(t, err)
	defer src.Close()

	var versions []uint
	version, err := src.First()
	for err == nil {
		versions = append(versions, version)

		up, _, uerr := src.ReadUp(version)
		require.NoError(t, uerr, "missing up migration %d", version)
		up.Close()
		down, _, derr := src.ReadDown(version)
		require.NoError(t, derr, "missing down migration %d", version)
		down.Close()

		version, err = src.Next(version)
	}
	require.True(t, errors.Is(err, os.ErrNotExist) || errors.Is(err, io.EOF), "unexpected error: %v", err)

	require.NotEmpty(t, versions)
	assert.Equal(t, SchemaVersion, versions[0])
	assert.Greater(t, len(versions), 1, "seed migration missing")
}
