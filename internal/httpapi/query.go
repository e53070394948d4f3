package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/jcom-dev/ctod-go/internal/cog"
	"github.com/jcom-dev/ctod-go/internal/datasetcfg"
	"github.com/jcom-dev/ctod-go/internal/mesh"
)

// Hardcoded fallbacks, ported from queries.py's Query(...) defaults.
const (
	defaultMinZoom         = 1
	defaultMaxZoom         = 18
	defaultMeshingMethod   = mesh.MethodGrid
	defaultResamplingMethod = cog.ResamplingBilinear
	defaultSkipCache       = false
	defaultGridSizeValue   = 20
	defaultMaxErrorValue   = 4.0
	defaultNoData          = -9999.0
)

func defaultZoomGridSizes() map[int]int {
	return map[int]int{15: 25, 16: 25, 17: 30, 18: 35, 19: 35, 20: 35, 21: 35, 22: 35}
}

func defaultZoomMaxErrors() map[int]float64 {
	return map[int]float64{15: 8, 16: 5, 17: 3, 18: 2, 19: 1, 20: 0.5, 21: 0.3, 22: 0.1}
}

// queryOverlay parses the subset of datasetcfg.Options present in a
// request's query string. A field is left nil/absent when the client didn't
// pass it, so it can be layered over a dataset's own overlay using the same
// merge logic dataset config options use.
func queryOverlay(r *http.Request) datasetcfg.Options {
	q := r.URL.Query()
	var opts datasetcfg.Options

	if v := q.Get("cog"); v != "" {
		opts.COG = &v
	}
	if v, ok := queryInt(q, "minZoom"); ok {
		opts.MinZoom = &v
	}
	if v, ok := queryInt(q, "maxZoom"); ok {
		opts.MaxZoom = &v
	}
	if v := q.Get("resamplingMethod"); v != "" {
		rm := cog.Resampling(v)
		opts.ResamplingMethod = &rm
	}
	if v := q.Get("meshingMethod"); v != "" {
		mm := mesh.Method(v)
		opts.MeshingMethod = &mm
	}
	if v, ok := queryBool(q, "skipCache"); ok {
		opts.SkipCache = &v
	}
	if v, ok := queryInt(q, "defaultGridSize"); ok {
		opts.DefaultGridSize = &v
	}
	if v, ok := queryZoomIntMap(q, "zoomGridSizes"); ok {
		opts.ZoomGridSizes = v
	}
	if v, ok := queryFloat(q, "defaultMaxError"); ok {
		opts.DefaultMaxError = &v
	}
	if v, ok := queryZoomFloatMap(q, "zoomMaxErrors"); ok {
		opts.ZoomMaxErrors = v
	}
	if v, ok := queryFloat(q, "noData"); ok {
		opts.NoData = &v
	}

	return opts
}

func queryInt(q map[string][]string, key string) (int, bool) {
	v, ok := first(q, key)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

func queryFloat(q map[string][]string, key string) (float64, bool) {
	v, ok := first(q, key)
	if !ok {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func queryBool(q map[string][]string, key string) (bool, bool) {
	v, ok := first(q, key)
	if !ok {
		return false, false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, false
	}
	return b, true
}

// queryZoomIntMap parses a JSON object of zoom->value, e.g.
// {"15":25,"16":25}, matching zoomGridSizes/zoomMaxErrors' wire shape.
func queryZoomIntMap(q map[string][]string, key string) (map[int]int, bool) {
	v, ok := first(q, key)
	if !ok {
		return nil, false
	}
	var raw map[string]int
	if err := json.Unmarshal([]byte(v), &raw); err != nil {
		return nil, false
	}
	out := make(map[int]int, len(raw))
	for k, n := range raw {
		if z, err := strconv.Atoi(k); err == nil {
			out[z] = n
		}
	}
	return out, true
}

func queryZoomFloatMap(q map[string][]string, key string) (map[int]float64, bool) {
	v, ok := first(q, key)
	if !ok {
		return nil, false
	}
	var raw map[string]float64
	if err := json.Unmarshal([]byte(v), &raw); err != nil {
		return nil, false
	}
	out := make(map[int]float64, len(raw))
	for k, n := range raw {
		if z, err := strconv.Atoi(k); err == nil {
			out[z] = n
		}
	}
	return out, true
}

func first(q map[string][]string, key string) (string, bool) {
	vs, ok := q[key]
	if !ok || len(vs) == 0 || vs[0] == "" {
		return "", false
	}
	return vs[0], true
}

// effective is the fully-resolved set of terrain-request parameters after
// layering query overrides over a dataset's overlay over hardcoded
// defaults (query wins, then dataset, then default).
type effective struct {
	Source           string
	MinZoom          int
	MaxZoom          int
	ResamplingMethod cog.Resampling
	MeshingMethod    mesh.Method
	SkipCache        bool
	NoData           float64
	Mesh             mesh.Params
}

// resolve merges dataset (may be nil, for the dynamic endpoint) and query
// overlays into an effective parameter set.
func resolve(dataset *datasetcfg.Options, query datasetcfg.Options) effective {
	e := effective{
		MinZoom:          defaultMinZoom,
		MaxZoom:          defaultMaxZoom,
		ResamplingMethod: defaultResamplingMethod,
		MeshingMethod:    defaultMeshingMethod,
		SkipCache:        defaultSkipCache,
		NoData:           defaultNoData,
		Mesh: mesh.Params{
			DefaultGridSize: defaultGridSizeValue,
			ZoomGridSizes:   defaultZoomGridSizes(),
			DefaultMaxError: defaultMaxErrorValue,
			ZoomMaxErrors:   defaultZoomMaxErrors(),
		},
	}

	if dataset != nil {
		applyOverlay(&e, *dataset)
	}
	applyOverlay(&e, query)

	return e
}

func applyOverlay(e *effective, o datasetcfg.Options) {
	if o.COG != nil {
		e.Source = *o.COG
	}
	if o.MinZoom != nil {
		e.MinZoom = *o.MinZoom
	}
	if o.MaxZoom != nil {
		e.MaxZoom = *o.MaxZoom
	}
	if o.ResamplingMethod != nil {
		e.ResamplingMethod = *o.ResamplingMethod
	}
	if o.MeshingMethod != nil {
		e.MeshingMethod = *o.MeshingMethod
	}
	if o.SkipCache != nil {
		e.SkipCache = *o.SkipCache
	}
	if o.DefaultGridSize != nil {
		e.Mesh.DefaultGridSize = *o.DefaultGridSize
	}
	if o.ZoomGridSizes != nil {
		e.Mesh.ZoomGridSizes = o.ZoomGridSizes
	}
	if o.DefaultMaxError != nil {
		e.Mesh.DefaultMaxError = *o.DefaultMaxError
	}
	if o.ZoomMaxErrors != nil {
		e.Mesh.ZoomMaxErrors = o.ZoomMaxErrors
	}
	if o.NoData != nil {
		e.NoData = *o.NoData
	}
}
