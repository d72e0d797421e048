package core

import (
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsRushy/AGP-Project2/engine/rt/assets"
	"github.com/vsRushy/AGP-Project2/engine/rt/gpu"
	"github.com/vsRushy/AGP-Project2/engine/rt/gpu/gputest"
)

type fakeLoader struct {
	images map[string]*assets.Image
	calls  int
}

func (l *fakeLoader) LoadImage(path string) (*assets.Image, error) {
	l.calls++
	if img, ok := l.images[path]; ok {
		return img, nil
	}
	if path == "corrupt.png" {
		return nil, errors.New("png: invalid format")
	}
	return nil, assets.ErrNotFound
}

func newTestScene(t *testing.T) (*Scene, *gputest.Recorder) {
	rec := gputest.NewRecorder()
	s, err := NewScene(rec, nil)
	require.NoError(t, err)
	return s, rec
}

func TestNewScene_Placeholders(t *testing.T) {
	s, rec := newTestScene(t)
	assert.Len(t, s.Textures, 4)
	for _, idx := range []uint32{s.White, s.Black, s.Normal, s.Magenta} {
		desc, ok := rec.Texture(s.Textures[idx].Handle)
		require.True(t, ok)
		assert.Equal(t, 1, desc.Width)
	}
	require.NotNil(t, s.Primitives.Quad)
	require.NotNil(t, s.Primitives.Sphere)
	assert.Equal(t, int32(6), s.Primitives.Quad.IndexCount)
	assert.Equal(t, int32(36), s.Primitives.Cube.IndexCount)
}

func TestScene_LoadTexture2DDedupByPath(t *testing.T) {
	s, _ := newTestScene(t)
	loader := &fakeLoader{images: map[string]*assets.Image{"dice.png": assets.Solid(1, 2, 3, 4)}}

	a := s.LoadTexture2D(loader, "dice.png")
	b := s.LoadTexture2D(loader, "dice.png")
	assert.Equal(t, a, b)
	assert.Equal(t, 1, loader.calls)
	assert.Equal(t, "dice.png", s.Textures[a].Path)
}

func TestScene_LoadTexture2DFailures(t *testing.T) {
	s, _ := newTestScene(t)
	loader := &fakeLoader{}

	assert.Equal(t, uint32(NoTexture), s.LoadTexture2D(loader, "missing.png"))
	assert.Equal(t, uint32(NoTexture), s.LoadTexture2D(loader, "corrupt.png"))
	assert.Equal(t, s.Textures[s.White].Handle, s.TextureHandle(NoTexture, s.White))
}

func TestScene_UploadMeshPacksSubmeshes(t *testing.T) {
	s, rec := newTestScene(t)
	cube := LitCubeData().Submeshes[0]
	quad := QuadData().Submeshes[0]

	idx, err := s.UploadMesh(MeshData{Name: "two", Submeshes: []SubmeshData{cube, quad}})
	require.NoError(t, err)
	mesh := s.Meshes[idx]
	require.Len(t, mesh.Parts, 2)

	assert.Equal(t, 0, mesh.Parts[0].VertexOffset)
	assert.Equal(t, 4*len(cube.Vertices), mesh.Parts[1].VertexOffset)
	assert.Equal(t, 4*len(cube.Indices), mesh.Parts[1].IndexOffset)
	assert.Equal(t, mesh.VertexBuffer, mesh.Parts[1].VertexBuffer)
	assert.Equal(t, gpu.IndexUint32, mesh.Parts[1].IndexType)
	assert.Len(t, rec.BufferData(mesh.VertexBuffer), 4*(len(cube.Vertices)+len(quad.Vertices)))
}

func TestScene_UploadMeshRejectsBadGeometry(t *testing.T) {
	s, _ := newTestScene(t)
	layout := StandardLayout()

	_, err := s.UploadMesh(MeshData{Name: "ragged", Submeshes: []SubmeshData{{Layout: layout, Vertices: make([]float32, 9)}}})
	assert.Error(t, err)

	_, err = s.UploadMesh(MeshData{Name: "oob", Submeshes: []SubmeshData{{Layout: layout, Vertices: make([]float32, 8), Indices: []uint32{0, 1, 2}}}})
	assert.Error(t, err)

	_, err = s.UploadMesh(MeshData{Name: "empty"})
	assert.Error(t, err)
}

func TestScene_AddModelMaterials(t *testing.T) {
	s, _ := newTestScene(t)
	red := NewMaterial("red", mgl32.Vec3{1, 0, 0})

	data := ModelData{
		Mesh: MeshData{Name: "m", Submeshes: []SubmeshData{
			LitCubeData().Submeshes[0],
			LitCubeData().Submeshes[0],
		}},
		Materials:     []Material{red},
		MaterialIndex: []int{0, -1},
	}
	idx, err := s.AddModel(data)
	require.NoError(t, err)

	model := s.Models[idx]
	assert.Equal(t, "red", s.Materials[model.Materials[0]].Name)
	assert.Equal(t, s.DefaultMaterial, model.Materials[1])
	assert.Equal(t, s.Textures[s.White].Handle, s.AlbedoHandle(model.Materials[0]))

	_, err = s.AddModel(ModelData{Mesh: data.Mesh, MaterialIndex: []int{0}})
	assert.Error(t, err)
}

func TestScene_SkyboxFallback(t *testing.T) {
	s, rec := newTestScene(t)
	s.LoadSkybox(&fakeLoader{}, [6]string{"px.png", "nx.png", "py.png", "ny.png", "pz.png", "nz.png"})
	require.NotEqual(t, gpu.NoHandle, s.Skybox)
	_, ok := rec.Texture(s.Skybox)
	assert.True(t, ok)

	s.LoadDudvMap(&fakeLoader{}, "")
	assert.NotEqual(t, uint32(NoTexture), s.DudvMap)
}

func TestScene_Release(t *testing.T) {
	s, rec := newTestScene(t)
	s.Release()
	assert.Equal(t, 0, rec.LiveObjects())
}

func TestLight_BlockAndVolume(t *testing.T) {
	l := Light{Type: LightPoint, Color: mgl32.Vec3{1, 1, 1}, Position: mgl32.Vec3{1, 2, 3}, Radius: 4, Intensity: 2}
	b := l.Block()
	assert.Equal(t, gpu.LightPoint, b.Type)
	assert.Equal(t, float32(4), b.Radius)

	v := l.Volume()
	assert.Equal(t, mgl32.Vec3{1, 2, 3}, v.Col(3).Vec3())
	assert.Equal(t, float32(4), v.At(0, 0))

	lt, err := ParseLightType("directional")
	require.NoError(t, err)
	assert.Equal(t, LightDirectional, lt)
	_, err = ParseLightType("spot")
	assert.Error(t, err)
	assert.Equal(t, "point", LightPoint.String())
}
