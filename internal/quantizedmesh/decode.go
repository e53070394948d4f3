package quantizedmesh

import (
	"bytes"
	"encoding/binary"
	"io"
)

// Decoded is the structured result of parsing a Quantized-Mesh 1.0 tile,
// used by tests to assert round-trip fidelity.
type Decoded struct {
	Center                      Vec3
	MinHeight, MaxHeight        float64
	BoundingSphereCenter        Vec3
	BoundingSphereRadius        float64
	HorizonOcclusionPoint       Vec3
	U, V, H                     []uint16
	Triangles                   []uint32
	West, South, East, North    []uint32
	Normals                     [][2]byte
	HasNormals                  bool
}

// Decode parses a Quantized-Mesh 1.0 tile back into its quantized form.
// It does not re-derive geographic coordinates; callers compare quantized
// u/v/h and topology against what they encoded.
func Decode(data []byte) (*Decoded, error) {
	r := bytes.NewReader(data)
	d := &Decoded{}

	if err := readHeader(r, d); err != nil {
		return nil, err
	}

	var vertexCount uint32
	if err := binary.Read(r, binary.LittleEndian, &vertexCount); err != nil {
		return nil, err
	}

	d.U = readZigZagDeltas(r, int(vertexCount))
	d.V = readZigZagDeltas(r, int(vertexCount))
	d.H = readZigZagDeltas(r, int(vertexCount))

	var triangleCount uint32
	if err := binary.Read(r, binary.LittleEndian, &triangleCount); err != nil {
		return nil, err
	}

	indexCount := int(triangleCount) * 3
	d.Triangles = readHighWaterMarkIndices(r, indexCount, int(vertexCount))

	d.West = readEdgeList(r)
	d.South = readEdgeList(r)
	d.East = readEdgeList(r)
	d.North = readEdgeList(r)

	for {
		var extID uint8
		if err := binary.Read(r, binary.LittleEndian, &extID); err != nil {
			if err == io.EOF {
				break
			}
			return nil, err
		}
		var extLen uint32
		if err := binary.Read(r, binary.LittleEndian, &extLen); err != nil {
			return nil, err
		}
		payload := make([]byte, extLen)
		if _, err := io.ReadFull(r, payload); err != nil {
			return nil, err
		}
		if extID == extensionIDOctVertexNormals {
			d.HasNormals = true
			for i := 0; i+1 < len(payload); i += 2 {
				d.Normals = append(d.Normals, [2]byte{payload[i], payload[i+1]})
			}
		}
	}

	return d, nil
}

func readHeader(r *bytes.Reader, d *Decoded) error {
	fields := []interface{}{
		&d.Center[0], &d.Center[1], &d.Center[2],
	}
	for _, f := range fields {
		if err := binary.Read(r, binary.LittleEndian, f); err != nil {
			return err
		}
	}

	var minH, maxH float32
	if err := binary.Read(r, binary.LittleEndian, &minH); err != nil {
		return err
	}
	if err := binary.Read(r, binary.LittleEndian, &maxH); err != nil {
		return err
	}
	d.MinHeight = float64(minH)
	d.MaxHeight = float64(maxH)

	sphereFields := []interface{}{
		&d.BoundingSphereCenter[0], &d.BoundingSphereCenter[1], &d.BoundingSphereCenter[2],
		&d.BoundingSphereRadius,
		&d.HorizonOcclusionPoint[0], &d.HorizonOcclusionPoint[1], &d.HorizonOcclusionPoint[2],
	}
	for _, f := range sphereFields {
		if err := binary.Read(r, binary.LittleEndian, f); err != nil {
			return err
		}
	}
	return nil
}

func readZigZagDeltas(r *bytes.Reader, count int) []uint16 {
	out := make([]uint16, count)
	var prev int32
	for i := 0; i < count; i++ {
		var code uint16
		binary.Read(r, binary.LittleEndian, &code)
		delta := zigZagDecode(code)
		prev += delta
		out[i] = uint16(prev)
	}
	return out
}

func readHighWaterMarkIndices(r *bytes.Reader, count, vertexCount int) []uint32 {
	out := make([]uint32, count)
	if vertexCount > 65536 {
		highest := uint32(0)
		for i := 0; i < count; i++ {
			var code uint32
			binary.Read(r, binary.LittleEndian, &code)
			idx := highest - code
			out[i] = idx
			if code == 0 {
				highest++
			}
		}
		return out
	}

	highest := uint16(0)
	for i := 0; i < count; i++ {
		var code uint16
		binary.Read(r, binary.LittleEndian, &code)
		idx := highest - code
		out[i] = uint32(idx)
		if code == 0 {
			highest++
		}
	}
	return out
}

func readEdgeList(r *bytes.Reader) []uint32 {
	var count uint32
	binary.Read(r, binary.LittleEndian, &count)
	out := make([]uint32, count)
	for i := range out {
		binary.Read(r, binary.LittleEndian, &out[i])
	}
	return out
}
