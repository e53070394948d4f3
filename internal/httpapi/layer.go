package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jcom-dev/ctod-go/internal/datasetcfg"
	"github.com/jcom-dev/ctod-go/internal/layerjson"
)

func layerHandler(deps *Deps, dynamic bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var overlay *datasetcfg.Options
		tilesPath := "{z}/{x}/{y}.terrain"

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
			tilesPath = "../{z}/{x}/{y}.terrain"
		}

		params := resolve(overlay, queryOverlay(r))
		if params.Source == "" {
			http.Error(w, "missing cog source", http.StatusBadRequest)
			return
		}

		bounds, err := sourceBounds(deps, params.Source)
		if err != nil {
			http.Error(w, "could not read source bounds", http.StatusInternalServerError)
			return
		}

		extensions := extensionNames(parseExtensions(r))
		layer := layerjson.Build(bounds, params.MaxZoom, tilesPath, extensions)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(layer)
	}
}

// sourceBounds acquires a source's reader just long enough to read its
// static geographic extent, mirroring the original's open-read-close
// COGReader use in generate_layer_json (no pooling benefit there since
// layer.json is requested once per client session, not per tile).
func sourceBounds(deps *Deps, source string) ([4]float64, error) {
	reader, err := deps.Pool.Acquire(source)
	if err != nil {
		return [4]float64{}, err
	}
	defer deps.Pool.Release(source, reader)
	return reader.Info().Bounds, nil
}

func extensionNames(found map[string]bool) []string {
	names := make([]string, 0, len(found))
	for _, ext := range supportedExtensions {
		if found[ext] {
			names = append(names, ext)
		}
	}
	return names
}
