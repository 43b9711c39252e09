package dialectcfg_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/navql/dialect"
	"github.com/syssam/navql/dialectcfg"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dialect.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadFileBuildsProfileFromBase(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "base: postgres\n")
	cfg, err := dialectcfg.LoadFile(path)
	require.NoError(t, err)

	profile, err := cfg.Profile()
	require.NoError(t, err)
	assert.Equal(t, dialect.Postgres, profile.Name)
	assert.True(t, profile.SupportsNullsOrdering)
}

func TestLoadFileAppliesOverrides(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "base: postgres\nsupports_nulls_ordering: false\n")
	cfg, err := dialectcfg.LoadFile(path)
	require.NoError(t, err)

	profile, err := cfg.Profile()
	require.NoError(t, err)
	assert.False(t, profile.SupportsNullsOrdering)
}

func TestLoadFileRejectsUnknownBase(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "base: nonexistent\n")
	cfg, err := dialectcfg.LoadFile(path)
	require.NoError(t, err)

	_, err = cfg.Profile()
	assert.Error(t, err)
}

func TestLoadFileMissingPath(t *testing.T) {
	t.Parallel()

	_, err := dialectcfg.LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
