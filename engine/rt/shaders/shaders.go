package shaders

import (
	_ "embed"
)

// EmbeddedPath is the name the built-in shader file is registered under.
const EmbeddedPath = "shaders.glsl"

//go:embed shaders.glsl
var ShadersGLSL string

// Program variants defined in shaders.glsl.
const (
	TexturedGeometry    = "TEXTURED_GEOMETRY"
	ForwardShading      = "FORWARD_SHADING"
	ClippingPlane       = "CLIPPING_PLANE"
	Skybox              = "SKYBOX"
	Water               = "WATER"
	DeferredGeometry    = "DEFERRED_GEOMETRY"
	DeferredLighting    = "DEFERRED_LIGHTING"
	DeferredLightVolume = "DEFERRED_LIGHT_VOLUME"
)

// Variants lists every program the passes use, in load order.
var Variants = []string{
	TexturedGeometry,
	ForwardShading,
	ClippingPlane,
	Skybox,
	Water,
	DeferredGeometry,
	DeferredLighting,
	DeferredLightVolume,
}
