package fetcher

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeZip(t *testing.T, entries map[string]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.zip")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close() //nolint:errcheck

	w := zip.NewWriter(f)
	for name, content := range entries {
		entry, err := w.Create(name)
		require.NoError(t, err)
		_, err = entry.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return path
}

func TestExtractZIP(t *testing.T) {
	zipPath := writeZip(t, map[string]string{
		"cb_2023_us_state_500k.shp": "shp bytes",
		"cb_2023_us_state_500k.dbf": "dbf bytes",
		"docs/readme.txt":           "notes",
	})

	destDir := t.TempDir()
	paths, err := ExtractZIP(zipPath, destDir)
	require.NoError(t, err)
	require.Len(t, paths, 3)

	data, err := os.ReadFile(filepath.Join(destDir, "cb_2023_us_state_500k.shp"))
	require.NoError(t, err)
	assert.Equal(t, "shp bytes", string(data))

	data, err = os.ReadFile(filepath.Join(destDir, "docs", "readme.txt"))
	require.NoError(t, err)
	assert.Equal(t, "notes", string(data))
}

func TestExtractZIP_ZipSlip(t *testing.T) {
	zipPath := writeZip(t, map[string]string{
		"../evil.txt": "escape",
	})

	destDir := t.TempDir()
	_, err := ExtractZIP(zipPath, destDir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "zip slip")

	_, statErr := os.Stat(filepath.Join(filepath.Dir(destDir), "evil.txt"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestExtractZIP_MissingArchive(t *testing.T) {
	_, err := ExtractZIP(filepath.Join(t.TempDir(), "nope.zip"), t.TempDir())
	require.Error(t, err)
}

func TestFindByExt(t *testing.T) {
	paths := []string{
		"/tmp/x/cb_2023_us_state_500k.dbf",
		"/tmp/x/cb_2023_us_state_500k.SHP",
		"/tmp/x/cb_2023_us_state_500k.prj",
	}

	shp, err := FindByExt(paths, ".shp")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/x/cb_2023_us_state_500k.SHP", shp)

	_, err = FindByExt(paths, ".shx")
	require.Error(t, err)
	assert.Contains(t, err.Error(), ".shx")
}
