// Package scene holds the display-side collaborators of the probe: the
// target object mutated by scene commands and the tracked viewpoint whose
// motion triggers latency measurements.
package scene

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Pose is a world-space position and orientation.
type Pose struct {
	Position    mgl64.Vec3 `json:"position"`
	Orientation mgl64.Quat `json:"orientation"`
}

// IdentityPose returns a pose at the origin with no rotation.
func IdentityPose() Pose {
	return Pose{Orientation: mgl64.QuatIdent()}
}

// Color is a normalized RGB color, each channel in [0,1].
type Color struct {
	R float64 `json:"r"`
	G float64 `json:"g"`
	B float64 `json:"b"`
}

// String formats the color the way the probe logs it.
func (c Color) String() string {
	return fmt.Sprintf("RGB(%.3f, %.3f, %.3f)", c.R, c.G, c.B)
}

// White is the default base color of a new object.
var White = Color{R: 1, G: 1, B: 1}

// EulerToQuat converts Euler angles in degrees to a quaternion using the
// renderer convention: rotate around Z, then X, then Y.
func EulerToQuat(euler mgl64.Vec3) mgl64.Quat {
	qx := mgl64.QuatRotate(mgl64.DegToRad(euler.X()), mgl64.Vec3{1, 0, 0})
	qy := mgl64.QuatRotate(mgl64.DegToRad(euler.Y()), mgl64.Vec3{0, 1, 0})
	qz := mgl64.QuatRotate(mgl64.DegToRad(euler.Z()), mgl64.Vec3{0, 0, 1})
	return qy.Mul(qx).Mul(qz).Normalize()
}

// AngleBetween returns the angle in degrees between two orientations.
func AngleBetween(a, b mgl64.Quat) float64 {
	dot := math.Abs(a.Normalize().Dot(b.Normalize()))
	if dot > 1 {
		dot = 1
	}
	return mgl64.RadToDeg(2 * math.Acos(dot))
}

// InverseTransformPoint maps a world-space point into the local space of pose.
func InverseTransformPoint(pose Pose, world mgl64.Vec3) mgl64.Vec3 {
	return pose.Orientation.Inverse().Rotate(world.Sub(pose.Position))
}

// FormatVec3 formats a vector with the precision used in diagnostics.
func FormatVec3(v mgl64.Vec3) string {
	return fmt.Sprintf("(%.3f, %.3f, %.3f)", v.X(), v.Y(), v.Z())
}
