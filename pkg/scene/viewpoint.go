package scene

import (
	"math"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl64"
)

// Viewpoint is the tracked camera or headset. Pose reports false while
// tracking is unavailable.
type Viewpoint interface {
	Pose() (Pose, bool)
}

// IMUReader is implemented by viewpoints that also expose raw inertial data.
type IMUReader interface {
	AngularVelocity() (mgl64.Vec3, bool)
	Acceleration() (mgl64.Vec3, bool)
}

// TrackedViewpoint holds the latest pose pushed by an external tracker.
// It is unavailable until the first update arrives.
type TrackedViewpoint struct {
	mu              sync.RWMutex
	pose            Pose
	havePose        bool
	angularVelocity mgl64.Vec3
	acceleration    mgl64.Vec3
	haveIMU         bool
}

var (
	_ Viewpoint = (*TrackedViewpoint)(nil)
	_ IMUReader = (*TrackedViewpoint)(nil)
)

// NewTrackedViewpoint creates a viewpoint with no pose yet.
func NewTrackedViewpoint() *TrackedViewpoint {
	return &TrackedViewpoint{}
}

// Update stores the latest tracked pose.
func (v *TrackedViewpoint) Update(p Pose) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.pose = p
	v.havePose = true
}

// UpdateIMU stores the latest inertial sample.
func (v *TrackedViewpoint) UpdateIMU(angularVelocity, acceleration mgl64.Vec3) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.angularVelocity = angularVelocity
	v.acceleration = acceleration
	v.haveIMU = true
}

// Lost marks tracking as unavailable until the next Update.
func (v *TrackedViewpoint) Lost() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.havePose = false
	v.haveIMU = false
}

func (v *TrackedViewpoint) Pose() (Pose, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.pose, v.havePose
}

func (v *TrackedViewpoint) AngularVelocity() (mgl64.Vec3, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.angularVelocity, v.haveIMU
}

func (v *TrackedViewpoint) Acceleration() (mgl64.Vec3, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.acceleration, v.haveIMU
}

// OrbitViewpoint is a mock headset that circles the origin at eye height
// while slowly turning, so the probe has motion to measure without hardware.
type OrbitViewpoint struct {
	start time.Time
	now   func() time.Time
}

// NewOrbitViewpoint creates an orbiting viewpoint. A nil now uses time.Now.
func NewOrbitViewpoint(now func() time.Time) *OrbitViewpoint {
	if now == nil {
		now = time.Now
	}
	return &OrbitViewpoint{start: now(), now: now}
}

func (v *OrbitViewpoint) Pose() (Pose, bool) {
	elapsed := v.now().Sub(v.start).Seconds()

	return Pose{
		Position: mgl64.Vec3{
			0.1 * math.Sin(elapsed),
			1.6,
			0.1 * math.Cos(elapsed*0.7),
		},
		Orientation: EulerToQuat(mgl64.Vec3{0, math.Mod(elapsed*30, 360), 0}),
	}, true
}
