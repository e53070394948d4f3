package mesh

import "github.com/jcom-dev/ctod-go/internal/cog"

// DelatinProcessor builds a right-triangulated irregular network over the
// full heightmap under a per-zoom max-error budget: flat regions collapse
// to few large triangles, high-relief regions keep many small ones.
type DelatinProcessor struct{}

func (DelatinProcessor) Process(hm *cog.Heightmap, zoom int, params Params) Mesh {
	maxError := params.MaxError(zoom)
	triangles := rtinBuild(hm, maxError)
	return toMesh(hm, triangles, false)
}
