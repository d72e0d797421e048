package core

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

type MoveDir int

const (
	MoveForward MoveDir = iota
	MoveBack
	MoveLeft
	MoveRight
	MoveUp
	MoveDown
)

// Camera is a Y-up fly camera. Yaw and pitch are in degrees.
type Camera struct {
	Position mgl32.Vec3
	Front    mgl32.Vec3
	Right    mgl32.Vec3
	Up       mgl32.Vec3
	WorldUp  mgl32.Vec3

	Yaw   float32
	Pitch float32

	Fov         float32
	AspectRatio float32
	Near        float32
	Far         float32

	Speed       float32
	Sensitivity float32
}

func NewCamera(pos mgl32.Vec3, fov, near, far float32) *Camera {
	c := &Camera{
		Position:    pos,
		WorldUp:     mgl32.Vec3{0, 1, 0},
		Yaw:         -90,
		Fov:         fov,
		AspectRatio: 16.0 / 9.0,
		Near:        near,
		Far:         far,
		Speed:       0.25,
		Sensitivity: 0.25,
	}
	c.updateVectors()
	return c
}

func (c *Camera) SetAspectRatio(width, height int) {
	if height > 0 {
		c.AspectRatio = float32(width) / float32(height)
	}
}

func (c *Camera) updateVectors() {
	yaw := mgl32.DegToRad(c.Yaw)
	pitch := mgl32.DegToRad(c.Pitch)
	f := mgl32.Vec3{
		math32.Cos(yaw) * math32.Cos(pitch),
		math32.Sin(pitch),
		math32.Sin(yaw) * math32.Cos(pitch),
	}
	c.Front = f.Normalize()
	c.Right = c.Front.Cross(c.WorldUp).Normalize()
	c.Up = c.Right.Cross(c.Front).Normalize()
}

func (c *Camera) Move(dir MoveDir) {
	switch dir {
	case MoveForward:
		c.Position = c.Position.Add(c.Front.Mul(c.Speed))
	case MoveBack:
		c.Position = c.Position.Sub(c.Front.Mul(c.Speed))
	case MoveLeft:
		c.Position = c.Position.Sub(c.Right.Mul(c.Speed))
	case MoveRight:
		c.Position = c.Position.Add(c.Right.Mul(c.Speed))
	case MoveUp:
		c.Position = c.Position.Add(c.Up.Mul(c.Speed))
	case MoveDown:
		c.Position = c.Position.Sub(c.Up.Mul(c.Speed))
	}
}

// Rotate applies mouse deltas. Pitch stays within +-89 degrees.
func (c *Camera) Rotate(dx, dy float32) {
	c.Yaw += dx * c.Sensitivity
	c.Pitch += dy * c.Sensitivity
	c.Pitch = mgl32.Clamp(c.Pitch, -89, 89)
	c.updateVectors()
}

func (c *Camera) Zoom(dy float32) {
	c.Fov = mgl32.Clamp(c.Fov-dy*2, 2, 178)
}

func (c *Camera) GetViewMatrix() mgl32.Mat4 {
	return mgl32.LookAtV(c.Position, c.Position.Add(c.Front), c.Up)
}

func (c *Camera) GetProjectionMatrix() mgl32.Mat4 {
	return mgl32.Perspective(mgl32.DegToRad(c.Fov), c.AspectRatio, c.Near, c.Far)
}

func (c *Camera) GetViewProjection() mgl32.Mat4 {
	return c.GetProjectionMatrix().Mul4(c.GetViewMatrix())
}

// Mirrored returns a copy reflected about the horizontal plane y = height,
// as seen from below the water surface.
func (c *Camera) Mirrored(height float32) *Camera {
	m := *c
	m.Position[1] = height - (c.Position[1] - height)
	m.Pitch = -c.Pitch
	m.updateVectors()
	return &m
}
