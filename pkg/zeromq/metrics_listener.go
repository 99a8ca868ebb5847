package zeromq

import (
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	zmq "github.com/pebbe/zmq4"

	customlog "github.com/open-teleop/latencyprobe/pkg/log"
	"github.com/open-teleop/latencyprobe/pkg/render"
	"github.com/open-teleop/latencyprobe/pkg/scene"
)

// Telemetry message types published by the headset runtime bridge
const (
	MsgTypeDisplayMetric = "DISPLAY_METRIC"
	MsgTypeViewpointPose = "VIEWPOINT_POSE"
	MsgTypeViewpointIMU  = "VIEWPOINT_IMU"
	MsgTypeViewpointLost = "VIEWPOINT_LOST"
	MsgTypeRenderTarget  = "RENDER_TARGET"
)

// DisplayMetricData carries one hardware counter sample
type DisplayMetricData struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
	// Timestamp in seconds since the epoch; zero means now
	Timestamp float64 `json:"timestamp,omitempty"`
}

// ViewpointPoseData carries a tracked pose. Rotation is a quaternion x, y, z, w.
type ViewpointPoseData struct {
	Position [3]float64 `json:"position"`
	Rotation [4]float64 `json:"rotation"`
}

// ViewpointIMUData carries one inertial sample
type ViewpointIMUData struct {
	AngularVelocity [3]float64 `json:"angular_velocity"`
	Acceleration    [3]float64 `json:"acceleration"`
}

// RenderTargetData reports whether the render target exists
type RenderTargetData struct {
	Available bool `json:"available"`
}

// MetricsListener subscribes to runtime telemetry: hardware display
// counters, viewpoint poses and render target state.
type MetricsListener struct {
	socket    *zmq.Socket
	metrics   *render.MetricStore
	viewpoint *scene.TrackedViewpoint
	backend   *render.Backend
	logger    customlog.Logger
	now       func() time.Time
	running   atomic.Bool
	wg        sync.WaitGroup
}

// NewMetricsListener creates a listener. metrics, viewpoint and backend may
// be nil; messages for a missing target are ignored.
func NewMetricsListener(metrics *render.MetricStore, viewpoint *scene.TrackedViewpoint, backend *render.Backend, logger customlog.Logger) *MetricsListener {
	return &MetricsListener{
		metrics:   metrics,
		viewpoint: viewpoint,
		backend:   backend,
		logger:    logger.WithCategory(customlog.CategoryZeroMQ),
		now:       time.Now,
	}
}

// Start binds a SUB socket on ctx and begins receiving
func (l *MetricsListener) Start(ctx *zmq.Context, address string) error {
	socket, err := ctx.NewSocket(zmq.SUB)
	if err != nil {
		return fmt.Errorf("failed to create SUB socket: %w", err)
	}
	if err := socket.SetSubscribe(""); err != nil {
		socket.Close()
		return fmt.Errorf("failed to subscribe: %w", err)
	}
	if err := socket.SetLinger(0); err != nil {
		socket.Close()
		return fmt.Errorf("failed to set linger option: %w", err)
	}
	if err := socket.SetRcvtimeo(500 * time.Millisecond); err != nil {
		socket.Close()
		return fmt.Errorf("failed to set receive timeout: %w", err)
	}
	if err := socket.Bind(address); err != nil {
		socket.Close()
		return fmt.Errorf("failed to bind to %s: %w", address, err)
	}

	l.socket = socket
	l.running.Store(true)
	l.wg.Add(1)
	go l.receiveLoop()

	l.logger.Infof("Metrics listener started on %s", address)
	return nil
}

// Stop stops the listener and closes its socket
func (l *MetricsListener) Stop() {
	if !l.running.CompareAndSwap(true, false) {
		return
	}
	l.wg.Wait()
	l.socket.Close()
	l.socket = nil
	l.logger.Infof("Metrics listener stopped")
}

func (l *MetricsListener) receiveLoop() {
	defer l.wg.Done()

	for l.running.Load() {
		frames, err := l.socket.RecvMessageBytes(0)
		if err != nil {
			if zmq.AsErrno(err) == zmq.Errno(syscall.EAGAIN) {
				continue
			}
			if l.running.Load() {
				l.logger.Warnf("Error receiving telemetry: %v", err)
				time.Sleep(100 * time.Millisecond)
			}
			continue
		}
		if len(frames) == 0 {
			continue
		}

		// Publishers may send [topic, payload] or a bare payload
		if err := l.HandleMessage(frames[len(frames)-1]); err != nil {
			l.logger.Warnf("Dropped telemetry message: %v", err)
		}
	}
}

// HandleMessage applies one telemetry envelope
func (l *MetricsListener) HandleMessage(data []byte) error {
	var msg incomingMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}

	switch msg.Type {
	case MsgTypeDisplayMetric:
		var m DisplayMetricData
		if err := json.Unmarshal(msg.Data, &m); err != nil || m.Name == "" {
			return fmt.Errorf("%w: display metric", ErrInvalidMessage)
		}
		if l.metrics == nil {
			return nil
		}
		at := l.now()
		if m.Timestamp > 0 {
			at = time.Unix(0, int64(m.Timestamp*float64(time.Second)))
		}
		l.metrics.Set(m.Name, m.Value, at)
		l.logger.Debugf("Display metric %s = %.3f", m.Name, m.Value)

	case MsgTypeViewpointPose:
		var p ViewpointPoseData
		if err := json.Unmarshal(msg.Data, &p); err != nil {
			return fmt.Errorf("%w: viewpoint pose", ErrInvalidMessage)
		}
		q := mgl64.Quat{W: p.Rotation[3], V: mgl64.Vec3{p.Rotation[0], p.Rotation[1], p.Rotation[2]}}
		if q.Len() == 0 {
			return fmt.Errorf("%w: zero rotation quaternion", ErrInvalidMessage)
		}
		if l.viewpoint != nil {
			l.viewpoint.Update(scene.Pose{
				Position:    mgl64.Vec3(p.Position),
				Orientation: q.Normalize(),
			})
		}

	case MsgTypeViewpointIMU:
		var s ViewpointIMUData
		if err := json.Unmarshal(msg.Data, &s); err != nil {
			return fmt.Errorf("%w: viewpoint imu", ErrInvalidMessage)
		}
		if l.viewpoint != nil {
			l.viewpoint.UpdateIMU(mgl64.Vec3(s.AngularVelocity), mgl64.Vec3(s.Acceleration))
		}

	case MsgTypeViewpointLost:
		if l.viewpoint != nil {
			l.viewpoint.Lost()
		}
		l.logger.Warnf("Viewpoint tracking lost")

	case MsgTypeRenderTarget:
		var r RenderTargetData
		if err := json.Unmarshal(msg.Data, &r); err != nil {
			return fmt.Errorf("%w: render target", ErrInvalidMessage)
		}
		if l.backend != nil {
			l.backend.SetAvailable(r.Available)
		}
		l.logger.Infof("Render target available: %v", r.Available)

	default:
		return fmt.Errorf("%w: %s", ErrUnknownMessageType, msg.Type)
	}
	return nil
}
