package scene

import (
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const eps = 1e-9

func TestEulerToQuatYaw(t *testing.T) {
	q := EulerToQuat(mgl64.Vec3{0, 90, 0})
	// Yaw of 90 degrees turns forward (+Z) into +X.
	got := q.Rotate(mgl64.Vec3{0, 0, 1})
	assert.InDelta(t, 1.0, got.X(), 1e-9)
	assert.InDelta(t, 0.0, got.Y(), 1e-9)
	assert.InDelta(t, 0.0, got.Z(), 1e-9)
}

func TestAngleBetween(t *testing.T) {
	a := mgl64.QuatIdent()
	b := EulerToQuat(mgl64.Vec3{0, 45, 0})

	assert.InDelta(t, 45.0, AngleBetween(a, b), 1e-6)
	assert.InDelta(t, 0.0, AngleBetween(b, b), 1e-6)

	// q and -q are the same rotation.
	neg := mgl64.Quat{W: -b.W, V: b.V.Mul(-1)}
	assert.InDelta(t, 0.0, AngleBetween(b, neg), 1e-6)
}

func TestInverseTransformPoint(t *testing.T) {
	pose := Pose{
		Position:    mgl64.Vec3{0, 1, 0},
		Orientation: EulerToQuat(mgl64.Vec3{0, 90, 0}),
	}
	// A point one unit along +X of the viewer is straight ahead after a 90 degree yaw.
	local := InverseTransformPoint(pose, mgl64.Vec3{1, 1, 0})
	assert.InDelta(t, 0.0, local.X(), 1e-9)
	assert.InDelta(t, 0.0, local.Y(), 1e-9)
	assert.InDelta(t, 1.0, local.Z(), 1e-9)
}

func TestObjectDefaultsAndSnapshot(t *testing.T) {
	o := NewObject()
	snap := o.Snapshot()
	assert.Equal(t, mgl64.Vec3{1, 1, 1}, snap.Scale)
	assert.Equal(t, White, snap.Color)

	o.SetPosition(mgl64.Vec3{1, 2, 3})
	o.SetEulerAngles(mgl64.Vec3{0, 90, 0})
	o.SetScale(mgl64.Vec3{2, 2, 2})
	o.SetColor(Color{R: 1})

	snap = o.Snapshot()
	assert.Equal(t, mgl64.Vec3{1, 2, 3}, snap.Position)
	assert.Equal(t, mgl64.Vec3{0, 90, 0}, snap.EulerAngles)
	assert.Equal(t, mgl64.Vec3{2, 2, 2}, snap.Scale)
	assert.Equal(t, Color{R: 1}, snap.Color)
}

func TestObjectBounds(t *testing.T) {
	o := NewObject()
	o.SetPosition(mgl64.Vec3{1, 0, 0})
	o.SetScale(mgl64.Vec3{2, 2, 2})

	min, max, ok := o.Bounds()
	require.True(t, ok)
	assert.True(t, min.ApproxEqualThreshold(mgl64.Vec3{0, -1, -1}, eps), "min %v", min)
	assert.True(t, max.ApproxEqualThreshold(mgl64.Vec3{2, 1, 1}, eps), "max %v", max)

	corners := BoxCorners(min, max)
	assert.Equal(t, min, corners[0])
	assert.Equal(t, max, corners[7])
}

func TestTrackedViewpointAvailability(t *testing.T) {
	v := NewTrackedViewpoint()
	_, ok := v.Pose()
	assert.False(t, ok)

	v.Update(Pose{Position: mgl64.Vec3{0, 1.6, 0}, Orientation: mgl64.QuatIdent()})
	p, ok := v.Pose()
	require.True(t, ok)
	assert.Equal(t, mgl64.Vec3{0, 1.6, 0}, p.Position)

	_, ok = v.AngularVelocity()
	assert.False(t, ok)
	v.UpdateIMU(mgl64.Vec3{0, 1, 0}, mgl64.Vec3{0, -9.8, 0})
	w, ok := v.AngularVelocity()
	require.True(t, ok)
	assert.Equal(t, mgl64.Vec3{0, 1, 0}, w)

	v.Lost()
	_, ok = v.Pose()
	assert.False(t, ok)
}

func TestOrbitViewpointMoves(t *testing.T) {
	now := time.Unix(0, 0)
	v := NewOrbitViewpoint(func() time.Time { return now })

	first, ok := v.Pose()
	require.True(t, ok)

	now = now.Add(time.Second)
	second, _ := v.Pose()

	assert.Greater(t, second.Position.Sub(first.Position).Len(), 0.01)
	assert.InDelta(t, 30.0, AngleBetween(first.Orientation, second.Orientation), 1e-6)
}
