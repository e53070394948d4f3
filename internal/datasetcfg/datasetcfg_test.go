package datasetcfg

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jcom-dev/ctod-go/internal/mesh"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "datasets.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadParsesDatasetsAndOverlay(t *testing.T) {
	path := writeConfig(t, `{
		"datasets": [
			{
				"name": "alps",
				"options": {
					"cog": "/data/alps.tif",
					"meshingMethod": "delatin",
					"minZoom": 5,
					"zoomGridSizes": {"15": 25, "16": 30},
					"extensions": ["octvertexnormals"]
				}
			}
		]
	}`)

	cfg := Load(path)
	require.ElementsMatch(t, []string{"alps"}, cfg.Names())

	opts, ok := cfg.Get("alps")
	require.True(t, ok)
	require.Equal(t, "/data/alps.tif", *opts.COG)
	require.Equal(t, mesh.MethodDelatin, *opts.MeshingMethod)
	require.Equal(t, 5, *opts.MinZoom)
	require.Equal(t, 25, opts.ZoomGridSizes[15])
	require.Equal(t, []string{"octvertexnormals"}, opts.Extensions)
}

func TestLoadMissingFileYieldsEmptyConfig(t *testing.T) {
	cfg := Load(filepath.Join(t.TempDir(), "missing.json"))
	require.Empty(t, cfg.Names())

	_, ok := cfg.Get("anything")
	require.False(t, ok)
}

func TestLoadRejectsNonJSONExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "datasets.txt")
	require.NoError(t, os.WriteFile(path, []byte(`{}`), 0o644))

	cfg := Load(path)
	require.Empty(t, cfg.Names())
}

func TestLoadStopsAtUnnamedDataset(t *testing.T) {
	path := writeConfig(t, `{
		"datasets": [
			{"name": "first", "options": {}},
			{"name": "", "options": {}},
			{"name": "never-reached", "options": {}}
		]
	}`)

	cfg := Load(path)
	require.ElementsMatch(t, []string{"first"}, cfg.Names())
}

func TestLoadEmptyPathYieldsEmptyConfig(t *testing.T) {
	cfg := Load("")
	require.Empty(t, cfg.Names())
}
