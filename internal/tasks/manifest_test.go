package tasks_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/clapper/internal/tasks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "brief.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestReadManifest(t *testing.T) {
	t.Run("Valid", func(t *testing.T) {
		path := writeManifest(t, `{"title": "  The Lighthouse Keeper ", "acts": [{"title": "Introduction"}]}`)
		m, err := tasks.ReadManifest(path)
		require.NoError(t, err)
		assert.Equal(t, "The Lighthouse Keeper", m.Title)
	})

	t.Run("MissingTitle", func(t *testing.T) {
		path := writeManifest(t, `{"acts": []}`)
		_, err := tasks.ReadManifest(path)
		var merr *tasks.ManifestError
		require.ErrorAs(t, err, &merr)
		assert.Equal(t, path, merr.Path)
		assert.NotEmpty(t, merr.Issues)
	})

	t.Run("BlankTitle", func(t *testing.T) {
		path := writeManifest(t, `{"title": "   "}`)
		_, err := tasks.ReadManifest(path)
		var merr *tasks.ManifestError
		assert.ErrorAs(t, err, &merr)
	})

	t.Run("WrongType", func(t *testing.T) {
		path := writeManifest(t, `{"title": 42}`)
		_, err := tasks.ReadManifest(path)
		var merr *tasks.ManifestError
		assert.ErrorAs(t, err, &merr)
	})

	t.Run("NotJSON", func(t *testing.T) {
		path := writeManifest(t, `title: yaml`)
		_, err := tasks.ReadManifest(path)
		assert.Error(t, err)
	})

	t.Run("MissingFile", func(t *testing.T) {
		_, err := tasks.ReadManifest(filepath.Join(t.TempDir(), "nope.json"))
		assert.ErrorIs(t, err, os.ErrNotExist)
	})
}
