package scene

import (
	"math"
	"sync"

	"github.com/go-gl/mathgl/mgl64"
)

// Target is the display object scene commands are applied to.
type Target interface {
	Position() mgl64.Vec3
	SetPosition(p mgl64.Vec3)
	EulerAngles() mgl64.Vec3
	SetEulerAngles(e mgl64.Vec3)
	Scale() mgl64.Vec3
	SetScale(s mgl64.Vec3)
	Color() Color
	SetColor(c Color)
}

// BoundsProvider is implemented by targets that can report their
// world-space axis-aligned bounds.
type BoundsProvider interface {
	Bounds() (min, max mgl64.Vec3, ok bool)
}

// Transform is a snapshot of an object's state.
type Transform struct {
	Position    mgl64.Vec3 `json:"position"`
	EulerAngles mgl64.Vec3 `json:"euler_angles"`
	Scale       mgl64.Vec3 `json:"scale"`
	Color       Color      `json:"color"`
}

// Object is an in-memory unit cube. All accessors are serialized so the
// object can be mutated from the tick goroutine and read from HTTP handlers.
type Object struct {
	mu          sync.RWMutex
	position    mgl64.Vec3
	eulerAngles mgl64.Vec3
	scale       mgl64.Vec3
	color       Color
}

var (
	_ Target         = (*Object)(nil)
	_ BoundsProvider = (*Object)(nil)
)

// NewObject creates a unit cube at the origin with a white base color.
func NewObject() *Object {
	return &Object{
		scale: mgl64.Vec3{1, 1, 1},
		color: White,
	}
}

func (o *Object) Position() mgl64.Vec3 {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.position
}

func (o *Object) SetPosition(p mgl64.Vec3) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.position = p
}

func (o *Object) EulerAngles() mgl64.Vec3 {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.eulerAngles
}

func (o *Object) SetEulerAngles(e mgl64.Vec3) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.eulerAngles = e
}

func (o *Object) Scale() mgl64.Vec3 {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.scale
}

func (o *Object) SetScale(s mgl64.Vec3) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.scale = s
}

func (o *Object) Color() Color {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.color
}

func (o *Object) SetColor(c Color) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.color = c
}

// Snapshot returns a consistent copy of the object state.
func (o *Object) Snapshot() Transform {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return Transform{
		Position:    o.position,
		EulerAngles: o.eulerAngles,
		Scale:       o.scale,
		Color:       o.color,
	}
}

// Bounds returns the axis-aligned box enclosing the rotated, scaled cube.
func (o *Object) Bounds() (mgl64.Vec3, mgl64.Vec3, bool) {
	t := o.Snapshot()
	rot := EulerToQuat(t.EulerAngles)
	half := t.Scale.Mul(0.5)

	min := mgl64.Vec3{math.Inf(1), math.Inf(1), math.Inf(1)}
	max := mgl64.Vec3{math.Inf(-1), math.Inf(-1), math.Inf(-1)}
	for _, sx := range []float64{-1, 1} {
		for _, sy := range []float64{-1, 1} {
			for _, sz := range []float64{-1, 1} {
				local := mgl64.Vec3{sx * half.X(), sy * half.Y(), sz * half.Z()}
				world := rot.Rotate(local).Add(t.Position)
				for i := 0; i < 3; i++ {
					min[i] = math.Min(min[i], world[i])
					max[i] = math.Max(max[i], world[i])
				}
			}
		}
	}
	return min, max, true
}

// BoxCorners lists the 8 corners of an axis-aligned box in the order the
// diagnostics report them: bottom face first, then top face.
func BoxCorners(min, max mgl64.Vec3) [8]mgl64.Vec3 {
	return [8]mgl64.Vec3{
		min,
		{max.X(), min.Y(), min.Z()},
		{min.X(), min.Y(), max.Z()},
		{max.X(), min.Y(), max.Z()},
		{min.X(), max.Y(), min.Z()},
		{max.X(), max.Y(), min.Z()},
		{min.X(), max.Y(), max.Z()},
		max,
	}
}
