package httpapi

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/jcom-dev/ctod-go/internal/datasetcfg"
	"github.com/jcom-dev/ctod-go/internal/factory"
	"github.com/jcom-dev/ctod-go/internal/generator"
	"github.com/jcom-dev/ctod-go/internal/mesh"
	"github.com/jcom-dev/ctod-go/internal/tileindex"
	"github.com/jcom-dev/ctod-go/internal/tilestore"
)

// terrainHandler serves one quantized-mesh tile. When dynamic is true the
// request came through /tiles/dynamic/... and the source COG must be given
// by the ?cog= query parameter instead of a named dataset.
func terrainHandler(deps *Deps, dynamic bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		z, x, y, ok := parseTileCoords(r)
		if !ok {
			http.Error(w, "invalid tile coordinates", http.StatusBadRequest)
			return
		}

		var overlay *datasetcfg.Options
		if dynamic {
			if deps.NoDynamic {
				http.Error(w, "dynamic endpoint disabled", http.StatusNotFound)
				return
			}
		} else {
			name := chi.URLParam(r, "dataset")
			opts, found := deps.Datasets.Get(name)
			if !found {
				http.Error(w, "unknown dataset", http.StatusNotFound)
				return
			}
			overlay = &opts
		}

		params := resolve(overlay, queryOverlay(r))
		if params.Source == "" {
			http.Error(w, "missing cog source", http.StatusBadRequest)
			return
		}

		tms := tileindex.CesiumToTMS(z, x, y)
		extensions := parseExtensions(r)
		method := params.MeshingMethod

		if !params.SkipCache && deps.Store != nil {
			key := tilestore.Key{Source: params.Source, Method: string(method), Z: tms.Z, X: tms.X, Y: tms.Y}
			if data, found, err := deps.Store.Get(r.Context(), key); err == nil && found {
				writeTerrain(w, data)
				return
			}
		}

		if tms.Z == 0 || tms.Z < params.MinZoom {
			data := generator.EmptyTile(tms.Z, tms.X, tms.Y)
			saveToStore(r.Context(), deps, params.Source, string(method), tms, data)
			writeTerrain(w, data)
			return
		}

		req := factory.NewTerrainRequest(params.Source, method, tms.Z, tms.X, tms.Y, factory.BuildParams{
			Resampling:      params.ResamplingMethod,
			Buffer:          readBuffer(method),
			AlignBounds:     true,
			NoData:          params.NoData,
			Unsafe:          deps.Unsafe,
			GenerateNormals: extensions["octvertexnormals"],
			Mesh:            params.Mesh,
		})

		deps.Factory.Handle(r.Context(), req)
		var res factory.Result
		select {
		case res = <-req.Done():
		case <-r.Context().Done():
			http.Error(w, "terrain generation timed out", http.StatusGatewayTimeout)
			return
		}
		if res.Err != nil {
			http.Error(w, "terrain generation failed", http.StatusInternalServerError)
			return
		}

		saveToStore(r.Context(), deps, params.Source, string(method), tms, res.Data)
		writeTerrain(w, res.Data)
	}
}

// readBuffer returns the extra read-window border a meshing method needs
// from the source raster. Martini's RTIN extraction requires a 2^n+1 grid;
// reading with a 0.5px buffer pads the plain 256x256 tile to 257x257
// (baseTileSize + int(2*buffer)), matching the original's backfill to a
// power-of-two-plus-one side length. Grid and Delatin operate directly on
// the unbuffered 256x256 read.
func readBuffer(method mesh.Method) float64 {
	if method == mesh.MethodMartini {
		return 0.5
	}
	return 0
}

func saveToStore(ctx context.Context, deps *Deps, source, method string, tms tileindex.Key, data []byte) {
	if deps.Store == nil {
		return
	}
	key := tilestore.Key{Source: source, Method: method, Z: tms.Z, X: tms.X, Y: tms.Y}
	_ = deps.Store.Put(ctx, key, data)
}

func writeTerrain(w http.ResponseWriter, data []byte) {
	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func parseTileCoords(r *http.Request) (z, x, y int, ok bool) {
	var err error
	if z, err = strconv.Atoi(chi.URLParam(r, "z")); err != nil {
		return 0, 0, 0, false
	}
	if x, err = strconv.Atoi(chi.URLParam(r, "x")); err != nil {
		return 0, 0, 0, false
	}
	if y, err = strconv.Atoi(chi.URLParam(r, "y")); err != nil {
		return 0, 0, 0, false
	}
	return z, x, y, true
}
