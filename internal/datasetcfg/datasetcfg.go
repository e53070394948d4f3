// Package datasetcfg loads named terrain datasets from a JSON document,
// each carrying a default query-parameter overlay applied when a client
// requests /tiles/{dataset}/... instead of /tiles/dynamic/....
package datasetcfg

import (
	"encoding/json"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/jcom-dev/ctod-go/internal/cog"
	"github.com/jcom-dev/ctod-go/internal/mesh"
)

// Options is one dataset's default overlay over the terrain request query
// parameters. Every field is optional; an unset field means "use the
// server-wide default", matching the original's None-sentinel semantics.
type Options struct {
	COG              *string
	MinZoom          *int
	MaxZoom          *int
	ResamplingMethod *cog.Resampling
	MeshingMethod    *mesh.Method
	SkipCache        *bool
	DefaultGridSize  *int
	ZoomGridSizes    map[int]int
	DefaultMaxError  *float64
	ZoomMaxErrors    map[int]float64
	Extensions       []string
	NoData           *float64
}

// Config is the loaded set of named datasets, keyed by name.
type Config struct {
	datasets map[string]Options
}

// rawFile mirrors the on-disk JSON shape: {"datasets": [{"name": ..., "options": {...}}]}.
type rawFile struct {
	Datasets []rawDataset `json:"datasets"`
}

type rawDataset struct {
	Name    string          `json:"name"`
	Options json.RawMessage `json:"options"`
}

type rawOptions struct {
	COG              *string            `json:"cog"`
	MinZoom          *int               `json:"minZoom"`
	MaxZoom          *int               `json:"maxZoom"`
	ResamplingMethod *string            `json:"resamplingMethod"`
	MeshingMethod    *string            `json:"meshingMethod"`
	SkipCache        *bool              `json:"skipCache"`
	DefaultGridSize  *int               `json:"defaultGridSize"`
	ZoomGridSizes    map[string]int     `json:"zoomGridSizes"`
	DefaultMaxError  *float64           `json:"defaultMaxError"`
	ZoomMaxErrors    map[string]float64 `json:"zoomMaxErrors"`
	Extensions       []string           `json:"extensions"`
	NoData           *float64           `json:"noData"`
}

// Load reads and parses path. A missing file, a non-.json extension, or
// malformed content are logged and yield an empty Config rather than an
// error: a broken dataset file disables named datasets, it does not crash
// the server, matching the original's _validate_path/_load_json behavior.
func Load(path string) *Config {
	cfg := &Config{datasets: make(map[string]Options)}

	if path == "" {
		return cfg
	}
	if !strings.HasSuffix(path, ".json") {
		slog.Error("dataset config: invalid file type, expected .json", "path", path)
		return cfg
	}
	data, err := os.ReadFile(path)
	if err != nil {
		slog.Error("dataset config: file not found", "path", path, "error", err)
		return cfg
	}

	var raw rawFile
	if err := json.Unmarshal(data, &raw); err != nil {
		slog.Error("dataset config: invalid json", "path", path, "error", err)
		return cfg
	}

	for _, d := range raw.Datasets {
		if d.Name == "" {
			slog.Error("dataset config: dataset name is required, stopping")
			break
		}

		var ro rawOptions
		if len(d.Options) > 0 {
			if err := json.Unmarshal(d.Options, &ro); err != nil {
				slog.Error("dataset config: invalid options, skipping dataset", "dataset", d.Name, "error", err)
				continue
			}
		}

		cfg.datasets[d.Name] = toOptions(ro)
	}

	return cfg
}

func toOptions(ro rawOptions) Options {
	opts := Options{
		COG:             ro.COG,
		MinZoom:         ro.MinZoom,
		MaxZoom:         ro.MaxZoom,
		SkipCache:       ro.SkipCache,
		DefaultGridSize: ro.DefaultGridSize,
		DefaultMaxError: ro.DefaultMaxError,
		Extensions:      ro.Extensions,
		NoData:          ro.NoData,
	}

	if ro.ResamplingMethod != nil {
		r := cog.Resampling(*ro.ResamplingMethod)
		opts.ResamplingMethod = &r
	}
	if ro.MeshingMethod != nil {
		m := mesh.Method(*ro.MeshingMethod)
		opts.MeshingMethod = &m
	}
	opts.ZoomGridSizes = stringKeysToInt(ro.ZoomGridSizes)
	opts.ZoomMaxErrors = stringKeysToFloat(ro.ZoomMaxErrors)

	return opts
}

func stringKeysToInt(m map[string]int) map[int]int {
	if m == nil {
		return nil
	}
	out := make(map[int]int, len(m))
	for k, v := range m {
		if z, err := strconv.Atoi(k); err == nil {
			out[z] = v
		}
	}
	return out
}

func stringKeysToFloat(m map[string]float64) map[int]float64 {
	if m == nil {
		return nil
	}
	out := make(map[int]float64, len(m))
	for k, v := range m {
		if z, err := strconv.Atoi(k); err == nil {
			out[z] = v
		}
	}
	return out
}

// Names returns the configured dataset names.
func (c *Config) Names() []string {
	names := make([]string, 0, len(c.datasets))
	for name := range c.datasets {
		names = append(names, name)
	}
	return names
}

// Get returns the overlay for name and whether it exists.
func (c *Config) Get(name string) (Options, bool) {
	opts, ok := c.datasets[name]
	return opts, ok
}
