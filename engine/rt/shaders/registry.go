package shaders

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	agp "github.com/vsRushy/AGP-Project2"
	"github.com/vsRushy/AGP-Project2/engine/rt/gpu"
)

const versionHeader = "#version 430\n"

// Program is one named variant of a shader file.
type Program struct {
	ID       uuid.UUID
	Name     string
	Path     string
	Handle   gpu.Handle
	Revision uint32
	ModTime  time.Time
	Layout   gpu.VertexShaderLayout

	// LastError is the most recent compile failure, cleared by a good build.
	LastError error

	uniforms map[string]int32
}

func (p *Program) Key() gpu.ProgramKey                 { return gpu.ProgramKey{ID: p.ID, Revision: p.Revision} }
func (p *Program) ProgramName() string                 { return p.Name }
func (p *Program) InputLayout() gpu.VertexShaderLayout { return p.Layout }

// Valid reports whether the program has ever linked.
func (p *Program) Valid() bool { return p.Handle != gpu.NoHandle }

// Uniform returns the location of a plain uniform, -1 if the program does not
// use it. Locations are cached until the next reload.
func (p *Program) Uniform(device gpu.Device, name string) int32 {
	if loc, ok := p.uniforms[name]; ok {
		return loc
	}
	loc := device.UniformLocation(p.Handle, name)
	if p.uniforms == nil {
		p.uniforms = make(map[string]int32)
	}
	p.uniforms[name] = loc
	return loc
}

type CompileError struct {
	Program string
	Path    string
	Err     error
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("shader program %s (%s): %v", e.Program, e.Path, e.Err)
}

func (e *CompileError) Unwrap() error { return e.Err }

// Registry owns every program. Programs are created by Load and replaced in
// place by PollAndReload; they are never removed.
type Registry struct {
	device gpu.Device
	source SourceProvider
	log    agp.Logger

	programs []*Program
	byID     map[uuid.UUID]*Program
	byName   map[string]*Program
}

func NewRegistry(device gpu.Device, source SourceProvider, log agp.Logger) *Registry {
	return &Registry{
		device: device,
		source: source,
		log:    agp.OrNop(log),
		byID:   make(map[uuid.UUID]*Program),
		byName: make(map[string]*Program),
	}
}

func stageSources(text, name string) (string, string) {
	header := versionHeader + "#define " + name + "\n"
	return header + "#define VERTEX\n" + text, header + "#define FRAGMENT\n" + text
}

func (r *Registry) build(p *Program) (gpu.Handle, gpu.VertexShaderLayout, error) {
	text, err := r.source.ReadSource(p.Path)
	if err != nil {
		return gpu.NoHandle, gpu.VertexShaderLayout{}, &CompileError{Program: p.Name, Path: p.Path, Err: err}
	}
	vs, fs := stageSources(text, p.Name)
	h, err := r.device.CreateProgram(p.Name, vs, fs)
	if err != nil {
		return gpu.NoHandle, gpu.VertexShaderLayout{}, &CompileError{Program: p.Name, Path: p.Path, Err: err}
	}
	return h, gpu.NewVertexShaderLayout(r.device.ActiveAttributes(h)), nil
}

// Load compiles variant name of the shader file at path. A failed build still
// registers the program, without a handle, so a later edit can bring it up.
func (r *Registry) Load(path, name string) (uuid.UUID, error) {
	if _, ok := r.byName[name]; ok {
		return uuid.Nil, fmt.Errorf("shader program %s already loaded", name)
	}

	p := &Program{ID: uuid.New(), Name: name, Path: path}
	if mt, err := r.source.ModTime(path); err == nil {
		p.ModTime = mt
	}
	r.programs = append(r.programs, p)
	r.byID[p.ID] = p
	r.byName[name] = p

	h, layout, err := r.build(p)
	if err != nil {
		p.LastError = err
		r.log.Errorf("%v", err)
		return p.ID, err
	}
	p.Handle = h
	p.Layout = layout
	p.Revision = 1
	r.log.Debugf("shader program %s: handle %d, inputs %v", name, h, layout.Attributes)
	return p.ID, nil
}

// PollAndReload rebuilds every program whose source changed since it was last
// seen and returns how many were replaced. A failed rebuild keeps the previous
// handle and layout; the new timestamp is recorded either way so the same bad
// edit is not retried every frame.
func (r *Registry) PollAndReload() int {
	reloaded := 0
	for _, p := range r.programs {
		mt, err := r.source.ModTime(p.Path)
		if err != nil || !mt.After(p.ModTime) {
			continue
		}
		p.ModTime = mt

		h, layout, err := r.build(p)
		if err != nil {
			p.LastError = err
			r.log.Errorf("reload failed, keeping previous build: %v", err)
			continue
		}
		if p.Valid() {
			r.device.DeleteProgram(p.Handle)
		}
		p.Handle = h
		p.Layout = layout
		p.Revision++
		p.LastError = nil
		p.uniforms = nil
		reloaded++
		r.log.Infof("shader program %s reloaded (revision %d)", p.Name, p.Revision)
	}
	return reloaded
}

func (r *Registry) Get(id uuid.UUID) *Program { return r.byID[id] }

func (r *Registry) ByName(name string) *Program { return r.byName[name] }

func (r *Registry) Programs() []*Program { return r.programs }

// LoadAll loads every variant from one file and returns the failures.
func (r *Registry) LoadAll(path string, names []string) []error {
	var errs []error
	for _, name := range names {
		if _, err := r.Load(path, name); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

func (r *Registry) Release() {
	for _, p := range r.programs {
		if p.Valid() {
			r.device.DeleteProgram(p.Handle)
			p.Handle = gpu.NoHandle
		}
	}
}
