// Package cog reads elevation windows out of Cloud-Optimized GeoTIFFs (and
// mosaics of them) through airbusgeo/godal, the same GDAL binding the
// original import tooling this module grew out of used for raster access.
package cog

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/airbusgeo/godal"
)

func init() {
	godal.RegisterAll()
}

// Resampling names the GDAL resampling algorithm used when cropping a tile
// window out of the source raster.
type Resampling string

const (
	ResamplingNearest      Resampling = "nearest"
	ResamplingBilinear     Resampling = "bilinear"
	ResamplingCubic        Resampling = "cubic"
	ResamplingCubicSpline  Resampling = "cubic_spline"
	ResamplingLanczos      Resampling = "lanczos"
	ResamplingAverage      Resampling = "average"
	ResamplingMode         Resampling = "mode"
	ResamplingGauss        Resampling = "gauss"
	ResamplingRMS          Resampling = "rms"
	defaultResampling      = ResamplingBilinear
	baseTileSize           = 256
	safeLevelOverviewBase  = 256
	safeLevelMargin        = 4.0
)

// Info describes the static properties of an opened raster.
type Info struct {
	Bounds             [4]float64 // minx, miny, maxx, maxy
	PixelWidth         int
	PixelHeight        int
	OverviewFactors    []int
	NoData             float64
	HasNoData          bool
	SafeLevel          int
}

// Heightmap is a square grid of elevation samples in row-major order, row 0
// at the top of the raster (matching GDAL's top-origin convention).
type Heightmap struct {
	Size   int
	Values []float64
}

func NewHeightmap(size int) *Heightmap {
	return &Heightmap{Size: size, Values: make([]float64, size*size)}
}

func (h *Heightmap) At(row, col int) float64 {
	return h.Values[row*h.Size+col]
}

func (h *Heightmap) Set(row, col int, v float64) {
	h.Values[row*h.Size+col] = v
}

// Reader is the per-source raster access surface. Implementations must be
// safe to call from multiple goroutines concurrently only in the sense that
// the Pool never hands the same Reader to two goroutines at once — an
// individual Reader is always used by exactly one caller at a time.
type Reader interface {
	Info() Info
	TileExists(z, x, y int) bool
	// ReadTile crops and resamples the source to a size x size window
	// (size = 256 + int(2*buffer), fraction dropped). Returns (nil, false) if the read is
	// refused (unsafe zoom) or fails; the caller degrades to an empty tile.
	ReadTile(ctx context.Context, z, x, y int, resampling Resampling, buffer float64, alignBounds bool, noData float64, unsafe bool) (*Heightmap, bool)
	Close() error
}

// gdalMu serializes GDAL open/close and metadata calls. GDAL and the
// underlying libtiff carry process-global state that is not safe for
// concurrent access; only the per-dataset pixel read is safe to parallelize
// once a dataset is open.
var gdalMu sync.Mutex

type gdalReader struct {
	path string
	ds   *godal.Dataset
	info Info
	mu   sync.Mutex // guards reads against this specific dataset
}

// Open opens a source path (a COG or a VRT) as a Reader.
func Open(path string) (Reader, error) {
	gdalMu.Lock()
	ds, err := godal.Open(path)
	gdalMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("cog: open %q: %w", path, err)
	}

	gdalMu.Lock()
	info, err := buildInfo(ds)
	gdalMu.Unlock()
	if err != nil {
		ds.Close()
		return nil, fmt.Errorf("cog: inspect %q: %w", path, err)
	}

	return &gdalReader{path: path, ds: ds, info: info}, nil
}

func buildInfo(ds *godal.Dataset) (Info, error) {
	gt, err := ds.GeoTransform()
	if err != nil {
		return Info{}, fmt.Errorf("geotransform: %w", err)
	}

	structure := ds.Structure()
	bands := ds.Bands()
	if len(bands) == 0 {
		return Info{}, fmt.Errorf("no bands")
	}

	minX := gt[0]
	maxY := gt[3]
	maxX := minX + float64(structure.SizeX)*gt[1]
	minY := maxY + float64(structure.SizeY)*gt[5]

	info := Info{
		Bounds:      [4]float64{minX, minY, maxX, maxY},
		PixelWidth:  structure.SizeX,
		PixelHeight: structure.SizeY,
	}

	if nd, ok := bands[0].NoData(); ok {
		info.NoData = nd
		info.HasNoData = true
	}

	overviews := bands[0].Overviews()
	info.OverviewFactors = make([]int, 0, len(overviews))
	for _, ov := range overviews {
		ovStruct := ov.Structure()
		if ovStruct.SizeX == 0 {
			continue
		}
		factor := structure.SizeX / ovStruct.SizeX
		if factor < 1 {
			factor = 1
		}
		info.OverviewFactors = append(info.OverviewFactors, factor)
	}

	info.SafeLevel = computeSafeLevel(info)
	return info, nil
}

// computeSafeLevel finds the lowest zoom at which a 256px-wide tile read
// does not force reading more than safeLevelMargin times the best available
// overview's resolution. Matches the spec's formula:
// (pixelWidth / geoWidth) * tileGeoWidth <= margin * (256 * maxOverviewFactor)
func computeSafeLevel(info Info) int {
	geoWidth := info.Bounds[2] - info.Bounds[0]
	if geoWidth <= 0 {
		return 0
	}
	pixelsPerDegree := float64(info.PixelWidth) / geoWidth

	maxOverview := 1
	for _, f := range info.OverviewFactors {
		if f > maxOverview {
			maxOverview = f
		}
	}

	threshold := safeLevelMargin * (safeLevelOverviewBase * float64(maxOverview))

	for z := 0; z <= 23; z++ {
		tilesAcross := 2.0 * math.Exp2(float64(z))
		tileGeoWidth := 360.0 / tilesAcross
		if pixelsPerDegree*tileGeoWidth <= threshold {
			return z
		}
	}
	return 23
}

func (r *gdalReader) Info() Info { return r.info }

func (r *gdalReader) TileExists(z, x, y int) bool {
	b := tileGeoBounds(z, x, y)
	return overlaps(b, r.info.Bounds)
}

func tileGeoBounds(z, x, y int) [4]float64 {
	tilesAcross := 2.0 * math.Exp2(float64(z))
	tilesUp := math.Exp2(float64(z))
	degX := 360.0 / tilesAcross
	degY := 180.0 / tilesUp
	minX := -180.0 + float64(x)*degX
	minY := -90.0 + float64(y)*degY
	return [4]float64{minX, minY, minX + degX, minY + degY}
}

func overlaps(a, b [4]float64) bool {
	return a[0] < b[2] && a[2] > b[0] && a[1] < b[3] && a[3] > b[1]
}

func (r *gdalReader) ReadTile(ctx context.Context, z, x, y int, resampling Resampling, buffer float64, alignBounds bool, noData float64, unsafe bool) (*Heightmap, bool) {
	if !unsafe && z < r.info.SafeLevel {
		return nil, false
	}
	if !r.TileExists(z, x, y) {
		return nil, false
	}

	tb := tileGeoBounds(z, x, y)
	size := baseTileSize + int(2*buffer)

	r.mu.Lock()
	defer r.mu.Unlock()

	select {
	case <-ctx.Done():
		return nil, false
	default:
	}

	hm, err := r.readWindow(tb, size, resampling, noData)
	if err != nil {
		return nil, false
	}
	return hm, true
}

func (r *gdalReader) readWindow(bounds [4]float64, size int, resampling Resampling, noData float64) (*Heightmap, error) {
	bands := r.ds.Bands()
	if len(bands) == 0 {
		return nil, fmt.Errorf("no bands")
	}

	structure := r.ds.Structure()
	gt, err := r.ds.GeoTransform()
	if err != nil {
		return nil, err
	}

	minXPix := (bounds[0] - gt[0]) / gt[1]
	maxYPix := (bounds[3] - gt[3]) / gt[5]
	maxXPix := (bounds[2] - gt[0]) / gt[1]
	minYPix := (bounds[1] - gt[3]) / gt[5]

	winX := int(math.Round(minXPix))
	winY := int(math.Round(maxYPix))
	winW := int(math.Round(maxXPix - minXPix))
	winH := int(math.Round(minYPix - maxYPix))
	if winW <= 0 {
		winW = 1
	}
	if winH <= 0 {
		winH = 1
	}

	buf := make([]float64, size*size)

	opts := []godal.BandIOOption{godal.Window(winW, winH), godal.Resampling(resamplingAlg(resampling))}
	_ = structure
	if err := bands[0].Read(winX, winY, buf, size, size, opts...); err != nil {
		return nil, fmt.Errorf("read window: %w", err)
	}

	hm := &Heightmap{Size: size, Values: buf}
	fill := noData
	hasND, ndVal := r.info.HasNoData, r.info.NoData
	for i, v := range hm.Values {
		if hasND && (v == ndVal || math.IsNaN(v)) {
			hm.Values[i] = fill
		}
	}
	return hm, nil
}

func resamplingAlg(r Resampling) godal.ResamplingAlg {
	switch r {
	case ResamplingNearest:
		return godal.NearestResampling
	case ResamplingCubic:
		return godal.CubicResampling
	case ResamplingCubicSpline:
		return godal.CubicSplineResampling
	case ResamplingLanczos:
		return godal.LanczosResampling
	case ResamplingAverage:
		return godal.AverageResampling
	case ResamplingMode:
		return godal.ModeResampling
	case ResamplingGauss:
		return godal.GaussResampling
	case ResamplingRMS:
		return godal.RMSResampling
	default:
		return godal.BilinearResampling
	}
}

func (r *gdalReader) Close() error {
	gdalMu.Lock()
	defer gdalMu.Unlock()
	return r.ds.Close()
}
