package cog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// DatasetKind classifies a source path into one of three raster access
// strategies. The distilled two-way split (plain COG vs. mosaic) is
// widened to a closed three-way enum so Pool dispatch never falls back to
// a boolean.
type DatasetKind int

const (
	KindCOG DatasetKind = iota
	KindVRT
	KindMosaic
)

func (k DatasetKind) String() string {
	switch k {
	case KindVRT:
		return "vrt"
	case KindMosaic:
		return "mosaic"
	default:
		return "cog"
	}
}

// ChildDataset is one member raster of a mosaic, with its own geographic
// extent used for the intersection test.
type ChildDataset struct {
	Path   string     `json:"path"`
	Extent [4]float64 `json:"extent"` // minx, miny, maxx, maxy
}

// MosaicManifest is the parsed JSON shape of a mosaic source: a list of
// child rasters in composite priority order (first non-empty wins).
type MosaicManifest struct {
	Datasets []ChildDataset `json:"datasets"`
}

// DatasetConfig is the resolved shape of a source path.
type DatasetConfig struct {
	Kind     DatasetKind
	Path     string
	Mosaic   *MosaicManifest // non-nil iff Kind == KindMosaic
}

// ClassifyKind determines a DatasetKind purely from the source path's
// extension, mirroring dataset_configs.py's get_dataset_type dispatch.
func ClassifyKind(path string) DatasetKind {
	ext := strings.ToLower(filepath.Ext(stripQuery(path)))
	switch ext {
	case ".vrt":
		return KindVRT
	case ".ctod", ".json":
		return KindMosaic
	default:
		return KindCOG
	}
}

func stripQuery(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		return path[:i]
	}
	return path
}

// ConfigLoader caches parsed DatasetConfigs per source path, since a mosaic
// manifest is read once and reused across every tile request against it.
type ConfigLoader struct {
	mu     sync.Mutex
	cached map[string]DatasetConfig
}

func NewConfigLoader() *ConfigLoader {
	return &ConfigLoader{cached: make(map[string]DatasetConfig)}
}

// Get resolves and caches the DatasetConfig for a source path.
func (l *ConfigLoader) Get(path string) (DatasetConfig, error) {
	l.mu.Lock()
	if cfg, ok := l.cached[path]; ok {
		l.mu.Unlock()
		return cfg, nil
	}
	l.mu.Unlock()

	cfg, err := l.build(path)
	if err != nil {
		return DatasetConfig{}, err
	}

	l.mu.Lock()
	l.cached[path] = cfg
	l.mu.Unlock()
	return cfg, nil
}

func (l *ConfigLoader) build(path string) (DatasetConfig, error) {
	kind := ClassifyKind(path)
	switch kind {
	case KindMosaic:
		manifest, err := loadMosaicManifest(path)
		if err != nil {
			return DatasetConfig{}, fmt.Errorf("cog: load mosaic manifest %q: %w", path, err)
		}
		return DatasetConfig{Kind: KindMosaic, Path: path, Mosaic: manifest}, nil
	default:
		return DatasetConfig{Kind: kind, Path: path}, nil
	}
}

func loadMosaicManifest(path string) (*MosaicManifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var manifest MosaicManifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	return &manifest, nil
}
