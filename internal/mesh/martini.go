package mesh

import "github.com/jcom-dev/ctod-go/internal/cog"

// MartiniProcessor builds its RTIN over a 257x257 heightmap (obtained via a
// 0.5px read buffer) rather than Delatin's plain 256x256; the extra row and
// column let the subdivision reach an exact power-of-two side length
// (2^8+1), matching the construction Martini-style RTIN extraction expects.
// Vertices are flipped along X before return to match the orientation the
// other processors share.
type MartiniProcessor struct{}

func (MartiniProcessor) Process(hm *cog.Heightmap, zoom int, params Params) Mesh {
	maxError := params.MaxError(zoom)
	triangles := rtinBuild(hm, maxError)
	return toMesh(hm, triangles, true)
}
