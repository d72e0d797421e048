package core

import (
	"github.com/chewxy/math32"

	"github.com/vsRushy/AGP-Project2/engine/rt/gpu"
)

// Attribute locations shared by meshes and shaders.
const (
	LocPosition uint32 = 0
	LocNormal   uint32 = 1
	LocTexCoord uint32 = 2
)

// StandardLayout is position, normal, uv: the layout lit meshes use.
func StandardLayout() gpu.VertexBufferLayout {
	return gpu.VertexBufferLayout{
		Attributes: []gpu.VertexBufferAttribute{
			{Location: LocPosition, ComponentCount: 3, Offset: 0},
			{Location: LocNormal, ComponentCount: 3, Offset: 12},
			{Location: LocTexCoord, ComponentCount: 2, Offset: 24},
		},
		Stride: 32,
	}
}

func positionLayout() gpu.VertexBufferLayout {
	return gpu.VertexBufferLayout{
		Attributes: []gpu.VertexBufferAttribute{{Location: LocPosition, ComponentCount: 3}},
		Stride:     12,
	}
}

// QuadData is a full-screen quad in clip space with uvs.
func QuadData() MeshData {
	return MeshData{
		Name: "quad",
		Submeshes: []SubmeshData{{
			Layout: gpu.VertexBufferLayout{
				Attributes: []gpu.VertexBufferAttribute{
					{Location: LocPosition, ComponentCount: 3, Offset: 0},
					{Location: LocTexCoord, ComponentCount: 2, Offset: 12},
				},
				Stride: 20,
			},
			Vertices: []float32{
				-1, -1, 0, 0, 0,
				1, -1, 0, 1, 0,
				1, 1, 0, 1, 1,
				-1, 1, 0, 0, 1,
			},
			Indices: []uint32{0, 1, 2, 0, 2, 3},
		}},
	}
}

// SphereData is a unit UV sphere, positions only.
func SphereData(stacks, slices int) MeshData {
	var vertices []float32
	for i := 0; i <= stacks; i++ {
		phi := math32.Pi * float32(i) / float32(stacks)
		for j := 0; j <= slices; j++ {
			theta := 2 * math32.Pi * float32(j) / float32(slices)
			vertices = append(vertices,
				math32.Sin(phi)*math32.Cos(theta),
				math32.Cos(phi),
				math32.Sin(phi)*math32.Sin(theta),
			)
		}
	}
	var indices []uint32
	row := uint32(slices + 1)
	for i := uint32(0); i < uint32(stacks); i++ {
		for j := uint32(0); j < uint32(slices); j++ {
			a := i*row + j
			b := a + row
			indices = append(indices, a, b, a+1, a+1, b, b+1)
		}
	}
	return MeshData{
		Name:      "sphere",
		Submeshes: []SubmeshData{{Layout: positionLayout(), Vertices: vertices, Indices: indices}},
	}
}

// CubeData is a unit cube around the origin, positions only. Used for the
// skybox.
func CubeData() MeshData {
	return MeshData{
		Name: "cube",
		Submeshes: []SubmeshData{{
			Layout: positionLayout(),
			Vertices: []float32{
				-1, -1, -1, 1, -1, -1, 1, 1, -1, -1, 1, -1,
				-1, -1, 1, 1, -1, 1, 1, 1, 1, -1, 1, 1,
			},
			Indices: []uint32{
				0, 1, 2, 2, 3, 0, // back
				4, 6, 5, 6, 4, 7, // front
				0, 3, 7, 7, 4, 0, // left
				1, 5, 6, 6, 2, 1, // right
				3, 2, 6, 6, 7, 3, // top
				0, 4, 5, 5, 1, 0, // bottom
			},
		}},
	}
}

// PlaneData is a horizontal 2x2 quad at y = 0, positions only.
func PlaneData() MeshData {
	return MeshData{
		Name: "plane",
		Submeshes: []SubmeshData{{
			Layout:   positionLayout(),
			Vertices: []float32{-1, 0, -1, 1, 0, -1, 1, 0, 1, -1, 0, 1},
			Indices:  []uint32{0, 2, 1, 0, 3, 2},
		}},
	}
}

// LitCubeData is a unit cube with per-face normals and uvs.
func LitCubeData() MeshData {
	faces := []struct {
		n, u, v [3]float32
	}{
		{[3]float32{0, 0, 1}, [3]float32{1, 0, 0}, [3]float32{0, 1, 0}},
		{[3]float32{0, 0, -1}, [3]float32{-1, 0, 0}, [3]float32{0, 1, 0}},
		{[3]float32{1, 0, 0}, [3]float32{0, 0, -1}, [3]float32{0, 1, 0}},
		{[3]float32{-1, 0, 0}, [3]float32{0, 0, 1}, [3]float32{0, 1, 0}},
		{[3]float32{0, 1, 0}, [3]float32{1, 0, 0}, [3]float32{0, 0, -1}},
		{[3]float32{0, -1, 0}, [3]float32{1, 0, 0}, [3]float32{0, 0, 1}},
	}
	corners := [4][2]float32{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}}

	var vertices []float32
	var indices []uint32
	for f, face := range faces {
		for _, c := range corners {
			for k := 0; k < 3; k++ {
				vertices = append(vertices, 0.5*(face.n[k]+c[0]*face.u[k]+c[1]*face.v[k]))
			}
			vertices = append(vertices, face.n[0], face.n[1], face.n[2], (c[0]+1)/2, (c[1]+1)/2)
		}
		base := uint32(4 * f)
		indices = append(indices, base, base+1, base+2, base, base+2, base+3)
	}
	return MeshData{
		Name:      "lit-cube",
		Submeshes: []SubmeshData{{Layout: StandardLayout(), Vertices: vertices, Indices: indices}},
	}
}

// GroundData is a lit horizontal plane of the given half size with tiled uvs.
func GroundData(half, tiles float32) MeshData {
	return MeshData{
		Name: "ground",
		Submeshes: []SubmeshData{{
			Layout: StandardLayout(),
			Vertices: []float32{
				-half, 0, -half, 0, 1, 0, 0, 0,
				half, 0, -half, 0, 1, 0, tiles, 0,
				half, 0, half, 0, 1, 0, tiles, tiles,
				-half, 0, half, 0, 1, 0, 0, tiles,
			},
			Indices: []uint32{0, 2, 1, 0, 3, 2},
		}},
	}
}
