package core

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"

	agp "github.com/vsRushy/AGP-Project2"
	"github.com/vsRushy/AGP-Project2/engine/rt/assets"
	"github.com/vsRushy/AGP-Project2/engine/rt/gpu"
)

// NoTexture is returned by LoadTexture2D when the image could not be used.
const NoTexture = math.MaxUint32

type Texture struct {
	Handle gpu.Handle
	Path   string
	Width  int
	Height int
}

type Material struct {
	Name       string
	Albedo     mgl32.Vec3
	Emissive   mgl32.Vec3
	Smoothness float32

	AlbedoTexture   uint32
	EmissiveTexture uint32
	SpecularTexture uint32
	NormalsTexture  uint32
	BumpTexture     uint32
}

// NewMaterial has no textures bound.
func NewMaterial(name string, albedo mgl32.Vec3) Material {
	return Material{
		Name:            name,
		Albedo:          albedo,
		AlbedoTexture:   NoTexture,
		EmissiveTexture: NoTexture,
		SpecularTexture: NoTexture,
		NormalsTexture:  NoTexture,
		BumpTexture:     NoTexture,
	}
}

// SubmeshData is decoded geometry for one submesh.
type SubmeshData struct {
	Layout   gpu.VertexBufferLayout
	Vertices []float32
	Indices  []uint32
}

type MeshData struct {
	Name      string
	Submeshes []SubmeshData
}

// ModelData is what the asset loader hands over: geometry plus materials.
// MaterialIndex maps each submesh to an entry of Materials, -1 for the
// default material.
type ModelData struct {
	Mesh          MeshData
	Materials     []Material
	MaterialIndex []int
}

// Mesh owns one vertex and one index buffer shared by all its parts.
type Mesh struct {
	Name         string
	VertexBuffer gpu.Handle
	IndexBuffer  gpu.Handle
	Parts        []*gpu.MeshPart
}

type Model struct {
	Mesh int
	// Materials holds a scene material index per submesh.
	Materials []int
}

type Entity struct {
	Name      string
	Transform Transform
	Model     int
	// Block is the entity's instance block for the current frame.
	Block gpu.Block
}

// Primitives are the meshes the passes draw on their own.
type Primitives struct {
	Quad   *gpu.MeshPart
	Sphere *gpu.MeshPart
	Cube   *gpu.MeshPart
	Water  *gpu.MeshPart
}

// ImageLoader decodes an image file.
type ImageLoader interface {
	LoadImage(path string) (*assets.Image, error)
}

type Scene struct {
	device gpu.Device
	log    agp.Logger

	Textures  []Texture
	Materials []Material
	Meshes    []*Mesh
	Models    []Model
	Entities  []*Entity
	Lights    []Light

	// Placeholder texture indices.
	White, Black, Normal, Magenta uint32

	DefaultMaterial int
	Primitives      Primitives

	Skybox  gpu.Handle
	DudvMap uint32

	textureByPath map[string]uint32
}

// NewScene creates the placeholder textures, the default material and the
// primitive meshes.
func NewScene(device gpu.Device, log agp.Logger) (*Scene, error) {
	s := &Scene{
		device:        device,
		log:           agp.OrNop(log),
		textureByPath: make(map[string]uint32),
		DudvMap:       NoTexture,
	}
	s.White = s.CreateTexture("<white>", assets.Solid(255, 255, 255, 255), false)
	s.Black = s.CreateTexture("<black>", assets.Solid(0, 0, 0, 255), false)
	s.Normal = s.CreateTexture("<normal>", assets.Solid(128, 128, 255, 255), false)
	s.Magenta = s.CreateTexture("<magenta>", assets.Solid(255, 0, 255, 255), false)

	s.DefaultMaterial = len(s.Materials)
	s.Materials = append(s.Materials, NewMaterial("default", mgl32.Vec3{1, 1, 1}))

	var err error
	if s.Primitives.Quad, err = s.uploadPrimitive(QuadData()); err != nil {
		return nil, err
	}
	if s.Primitives.Sphere, err = s.uploadPrimitive(SphereData(16, 32)); err != nil {
		return nil, err
	}
	if s.Primitives.Cube, err = s.uploadPrimitive(CubeData()); err != nil {
		return nil, err
	}
	if s.Primitives.Water, err = s.uploadPrimitive(PlaneData()); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Scene) uploadPrimitive(data MeshData) (*gpu.MeshPart, error) {
	idx, err := s.UploadMesh(data)
	if err != nil {
		return nil, err
	}
	return s.Meshes[idx].Parts[0], nil
}

func validateSubmesh(i int, sm SubmeshData) error {
	stride := int(sm.Layout.Stride)
	if stride <= 0 || stride%4 != 0 {
		return fmt.Errorf("submesh %d: stride %d", i, stride)
	}
	if len(sm.Vertices)*4%stride != 0 {
		return fmt.Errorf("submesh %d: %d floats is not a whole number of %d byte vertices", i, len(sm.Vertices), stride)
	}
	for _, a := range sm.Layout.Attributes {
		if a.Offset+int(a.ComponentCount)*4 > stride {
			return fmt.Errorf("submesh %d: attribute %d overruns the vertex", i, a.Location)
		}
	}
	count := uint32(len(sm.Vertices) * 4 / stride)
	for _, idx := range sm.Indices {
		if idx >= count {
			return fmt.Errorf("submesh %d: index %d out of range (%d vertices)", i, idx, count)
		}
	}
	return nil
}

// UploadMesh packs every submesh into one vertex buffer and one index buffer
// and records each part's byte offsets.
func (s *Scene) UploadMesh(data MeshData) (int, error) {
	if len(data.Submeshes) == 0 {
		return -1, errors.New("mesh has no submeshes")
	}
	var vertexBytes, indexBytes int
	for i, sm := range data.Submeshes {
		if err := validateSubmesh(i, sm); err != nil {
			return -1, fmt.Errorf("mesh %q: %w", data.Name, err)
		}
		vertexBytes += 4 * len(sm.Vertices)
		indexBytes += 4 * len(sm.Indices)
	}

	vertices := make([]byte, 0, vertexBytes)
	indices := make([]byte, 0, indexBytes)
	mesh := &Mesh{Name: data.Name}
	for i, sm := range data.Submeshes {
		part := &gpu.MeshPart{
			Name:         fmt.Sprintf("%s#%d", data.Name, i),
			VertexOffset: len(vertices),
			IndexOffset:  len(indices),
			IndexCount:   int32(len(sm.Indices)),
			IndexType:    gpu.IndexUint32,
			Layout:       sm.Layout,
		}
		for _, f := range sm.Vertices {
			vertices = binary.LittleEndian.AppendUint32(vertices, math.Float32bits(f))
		}
		for _, idx := range sm.Indices {
			indices = binary.LittleEndian.AppendUint32(indices, idx)
		}
		mesh.Parts = append(mesh.Parts, part)
	}

	mesh.VertexBuffer = s.device.CreateBuffer(gpu.ArrayBuffer, len(vertices), vertices, gpu.StaticDraw)
	mesh.IndexBuffer = s.device.CreateBuffer(gpu.ElementArrayBuffer, len(indices), indices, gpu.StaticDraw)
	for _, p := range mesh.Parts {
		p.VertexBuffer = mesh.VertexBuffer
		p.IndexBuffer = mesh.IndexBuffer
	}

	s.Meshes = append(s.Meshes, mesh)
	s.log.Debugf("mesh %q: %d parts, %d vertex bytes, %d index bytes", data.Name, len(mesh.Parts), len(vertices), len(indices))
	return len(s.Meshes) - 1, nil
}

// AddModel is the entry point for decoded model data.
func (s *Scene) AddModel(data ModelData) (int, error) {
	if len(data.MaterialIndex) != 0 && len(data.MaterialIndex) != len(data.Mesh.Submeshes) {
		return -1, fmt.Errorf("model %q: %d material indices for %d submeshes",
			data.Mesh.Name, len(data.MaterialIndex), len(data.Mesh.Submeshes))
	}
	meshIdx, err := s.UploadMesh(data.Mesh)
	if err != nil {
		return -1, err
	}

	base := len(s.Materials)
	s.Materials = append(s.Materials, data.Materials...)

	model := Model{Mesh: meshIdx, Materials: make([]int, len(data.Mesh.Submeshes))}
	for i := range model.Materials {
		model.Materials[i] = s.DefaultMaterial
		if i < len(data.MaterialIndex) {
			if m := data.MaterialIndex[i]; m >= 0 && m < len(data.Materials) {
				model.Materials[i] = base + m
			}
		}
	}
	s.Models = append(s.Models, model)
	return len(s.Models) - 1, nil
}

func (s *Scene) AddEntity(name string, t Transform, model int) *Entity {
	e := &Entity{Name: name, Transform: t, Model: model}
	s.Entities = append(s.Entities, e)
	return e
}

func (s *Scene) AddLight(l Light) {
	s.Lights = append(s.Lights, l)
}

// CreateTexture uploads an RGBA8 image and registers it under path.
func (s *Scene) CreateTexture(path string, img *assets.Image, mipmaps bool) uint32 {
	filter := gpu.FilterLinear
	if mipmaps {
		filter = gpu.FilterLinearMipmap
	}
	h := s.device.CreateTexture2D(gpu.TextureDesc{
		Width:   img.Width,
		Height:  img.Height,
		Format:  gpu.FormatRGBA8,
		Filter:  filter,
		Repeat:  true,
		Mipmaps: mipmaps,
	}, img.Pix)
	idx := uint32(len(s.Textures))
	s.Textures = append(s.Textures, Texture{Handle: h, Path: path, Width: img.Width, Height: img.Height})
	s.textureByPath[path] = idx
	return idx
}

// LoadTexture2D returns the texture for path, loading it on first use. A
// failure is logged and returns NoTexture.
func (s *Scene) LoadTexture2D(loader ImageLoader, path string) uint32 {
	if idx, ok := s.textureByPath[path]; ok {
		return idx
	}
	img, err := loader.LoadImage(path)
	if err != nil {
		if errors.Is(err, assets.ErrNotFound) {
			s.log.Warnf("texture %s not found, using placeholder", path)
		} else {
			s.log.Errorf("texture %s: %v", path, err)
		}
		return NoTexture
	}
	return s.CreateTexture(path, img, true)
}

// TextureHandle resolves an index, substituting fallback for NoTexture.
func (s *Scene) TextureHandle(idx, fallback uint32) gpu.Handle {
	if idx == NoTexture || int(idx) >= len(s.Textures) {
		idx = fallback
	}
	if int(idx) >= len(s.Textures) {
		return gpu.NoHandle
	}
	return s.Textures[idx].Handle
}

// AlbedoHandle is the albedo texture of a material, white if it has none.
func (s *Scene) AlbedoHandle(material int) gpu.Handle {
	if material < 0 || material >= len(s.Materials) {
		return s.TextureHandle(s.Magenta, s.Magenta)
	}
	return s.TextureHandle(s.Materials[material].AlbedoTexture, s.White)
}

// LoadSkybox builds the cubemap from six face images, falling back to a
// generated sky if any face is missing.
func (s *Scene) LoadSkybox(loader ImageLoader, faces [6]string) {
	var imgs [6]*assets.Image
	ok := faces[0] != ""
	for i := 0; ok && i < len(faces); i++ {
		img, err := loader.LoadImage(faces[i])
		if err != nil {
			s.log.Warnf("skybox face %s: %v, using generated sky", faces[i], err)
			ok = false
			break
		}
		imgs[i] = img
	}
	if !ok {
		imgs = assets.SkyFaces(64)
	}

	size := imgs[0].Width
	var pix [6][]byte
	for i, img := range imgs {
		pix[i] = img.Resize(size, size).Pix
	}
	if s.Skybox != gpu.NoHandle {
		s.device.DeleteTexture(s.Skybox)
	}
	s.Skybox = s.device.CreateCubemap(size, pix)
}

// LoadDudvMap loads the water distortion map, or generates one.
func (s *Scene) LoadDudvMap(loader ImageLoader, path string) {
	if path != "" {
		if idx := s.LoadTexture2D(loader, path); idx != NoTexture {
			s.DudvMap = idx
			return
		}
	}
	s.DudvMap = s.CreateTexture("<dudv>", assets.DudvNoise(128, 1), true)
}

func (s *Scene) Release() {
	for _, m := range s.Meshes {
		for _, p := range m.Parts {
			p.Release(s.device)
		}
		s.device.DeleteBuffer(m.VertexBuffer)
		s.device.DeleteBuffer(m.IndexBuffer)
	}
	for _, t := range s.Textures {
		s.device.DeleteTexture(t.Handle)
	}
	if s.Skybox != gpu.NoHandle {
		s.device.DeleteTexture(s.Skybox)
	}
	s.Meshes, s.Textures, s.Skybox = nil, nil, gpu.NoHandle
	s.textureByPath = make(map[string]uint32)
}
