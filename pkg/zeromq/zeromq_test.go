package zeromq

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pebbe/zmq4"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/open-teleop/latencyprobe/pkg/channel"
	"github.com/open-teleop/latencyprobe/pkg/config"
	customlog "github.com/open-teleop/latencyprobe/pkg/log"
	"github.com/open-teleop/latencyprobe/pkg/render"
	"github.com/open-teleop/latencyprobe/pkg/scene"
)

func testLogger() customlog.Logger {
	l, _ := test.NewNullLogger()
	return customlog.FromLogrus(l)
}

func request(t *testing.T, messageType string, data interface{}) []byte {
	t.Helper()
	out, err := json.Marshal(ZeroMQMessage{Type: messageType, Timestamp: 1, Data: data})
	require.NoError(t, err)
	return out
}

type staticTuning config.Tuning

func (s staticTuning) GetTuning() config.Tuning { return config.Tuning(s) }

func TestDispatcherRoutesByType(t *testing.T) {
	d := NewMessageDispatcher(testLogger())
	d.RegisterHandler("PING", HandlerFunc(func(data []byte) ([]byte, error) {
		return []byte("pong"), nil
	}))

	resp, err := d.Dispatch(request(t, "PING", nil))
	require.NoError(t, err)
	assert.Equal(t, "pong", string(resp))

	_, err = d.Dispatch(request(t, "NOPE", nil))
	assert.True(t, errors.Is(err, ErrUnknownMessageType))

	_, err = d.Dispatch([]byte("1.0,2.0,3.0;0,0,0;1,1,1"))
	assert.True(t, errors.Is(err, ErrInvalidMessage))

	_, err = d.Dispatch([]byte(`{"timestamp": 1}`))
	assert.True(t, errors.Is(err, ErrInvalidMessage))
}

func TestSceneCommandHandler(t *testing.T) {
	slot := channel.NewLatestValue()
	h := NewSceneCommandHandler(slot, testLogger())

	resp, err := h.HandleMessage(request(t, MsgTypeSceneCommand, SceneCommandData{Command: "1,2,3;0,0,0;1,1,1"}))
	require.NoError(t, err)

	var ack ZeroMQMessage
	require.NoError(t, json.Unmarshal(resp, &ack))
	assert.Equal(t, MsgTypeAck, ack.Type)

	v, ok := slot.Read()
	require.True(t, ok)
	assert.Equal(t, "1,2,3;0,0,0;1,1,1", v)

	_, err = h.HandleMessage(request(t, MsgTypeSceneCommand, SceneCommandData{Command: "  "}))
	assert.True(t, errors.Is(err, ErrInvalidMessage))
}

func TestSceneCommandHandlerWithoutSink(t *testing.T) {
	h := NewSceneCommandHandler(nil, testLogger())

	_, err := h.HandleMessage(request(t, MsgTypeSceneCommand, SceneCommandData{Command: "1,2,3;0,0,0;1,1,1"}))
	require.True(t, errors.Is(err, ErrCommandsDisabled))

	var resp struct {
		Type string        `json:"type"`
		Data ErrorResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(errorResponse(err), &resp))
	assert.Equal(t, MsgTypeError, resp.Type)
	assert.Equal(t, 409, resp.Data.Code)
}

func TestConfigHandlerReturnsTuning(t *testing.T) {
	tuning := staticTuning{TuningID: "lab", Version: "1"}
	tuning.Motion.MovementThreshold = 0.01
	h := NewConfigHandler(tuning, testLogger())

	resp, err := h.HandleMessage(request(t, MsgTypeConfigRequest, nil))
	require.NoError(t, err)

	var msg struct {
		Type string        `json:"type"`
		Data config.Tuning `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp, &msg))
	assert.Equal(t, MsgTypeConfigResponse, msg.Type)
	assert.Equal(t, "lab", msg.Data.TuningID)
	assert.Equal(t, 0.01, msg.Data.Motion.MovementThreshold)

	_, err = h.HandleMessage(request(t, MsgTypeStatusRequest, nil))
	assert.Error(t, err)
}

func TestStatusHandler(t *testing.T) {
	h := NewStatusHandler(StatusFunc(func() interface{} {
		return map[string]int{"in_flight": 2}
	}))
	resp, err := h.HandleMessage(request(t, MsgTypeStatusRequest, nil))
	require.NoError(t, err)
	assert.Contains(t, string(resp), `"in_flight":2`)
}

func TestMetricsListenerHandleMessage(t *testing.T) {
	store := render.NewMetricStore(0)
	viewpoint := scene.NewTrackedViewpoint()
	backend := render.NewBackend(render.NewFrameClock(), store)
	l := NewMetricsListener(store, viewpoint, backend, testLogger())

	require.NoError(t, l.HandleMessage(request(t, MsgTypeDisplayMetric, DisplayMetricData{Name: render.MetricMotionToPhoton, Value: 19.5})))
	v, ok := backend.PrimaryLatency()
	require.True(t, ok)
	assert.Equal(t, 19.5, v)

	require.NoError(t, l.HandleMessage(request(t, MsgTypeViewpointPose, ViewpointPoseData{
		Position: [3]float64{0, 1.6, 0},
		Rotation: [4]float64{0, 0, 0, 2},
	})))
	pose, ok := viewpoint.Pose()
	require.True(t, ok)
	assert.Equal(t, mgl64.Vec3{0, 1.6, 0}, pose.Position)
	assert.InDelta(t, 1.0, pose.Orientation.W, 1e-12, "orientation is normalized")

	require.NoError(t, l.HandleMessage(request(t, MsgTypeViewpointIMU, ViewpointIMUData{
		AngularVelocity: [3]float64{0.1, 0, 0},
		Acceleration:    [3]float64{0, -9.8, 0},
	})))
	acc, ok := viewpoint.Acceleration()
	require.True(t, ok)
	assert.Equal(t, -9.8, acc.Y())

	require.NoError(t, l.HandleMessage(request(t, MsgTypeViewpointLost, nil)))
	_, ok = viewpoint.Pose()
	assert.False(t, ok)

	require.NoError(t, l.HandleMessage(request(t, MsgTypeRenderTarget, RenderTargetData{Available: false})))
	assert.False(t, backend.Available())

	err := l.HandleMessage(request(t, MsgTypeViewpointPose, ViewpointPoseData{}))
	assert.True(t, errors.Is(err, ErrInvalidMessage))
	err = l.HandleMessage(request(t, "SOMETHING", nil))
	assert.True(t, errors.Is(err, ErrUnknownMessageType))
}

func TestServiceRequestReply(t *testing.T) {
	svc, err := NewZeroMQService(config.ZeroMQBootstrap{
		RequestBindAddress: "inproc://latencyprobe-test-req",
	}, testLogger())
	require.NoError(t, err)

	slot := channel.NewLatestValue()
	svc.RegisterHandler(MsgTypeSceneCommand, NewSceneCommandHandler(slot, testLogger()))
	require.NoError(t, svc.Start())

	client, err := svc.Context().NewSocket(zmq4.REQ)
	require.NoError(t, err)
	require.NoError(t, client.SetRcvtimeo(5*time.Second))
	require.NoError(t, client.SetLinger(0))
	require.NoError(t, client.Connect("inproc://latencyprobe-test-req"))

	_, err = client.SendBytes(request(t, MsgTypeSceneCommand, SceneCommandData{Command: "0,0,1;0,45,0;1,1,1"}), 0)
	require.NoError(t, err)
	resp, err := client.RecvBytes(0)
	require.NoError(t, err)
	assert.Contains(t, string(resp), MsgTypeAck)

	_, err = client.SendBytes([]byte("not json"), 0)
	require.NoError(t, err)
	resp, err = client.RecvBytes(0)
	require.NoError(t, err)
	assert.Contains(t, string(resp), MsgTypeError)

	v, ok := slot.Read()
	require.True(t, ok)
	assert.Equal(t, "0,0,1;0,45,0;1,1,1", v)

	assert.True(t, errors.Is(svc.PublishMessage("x", nil), ErrNoPublisher))

	client.Close()
	svc.Stop()
	assert.True(t, errors.Is(svc.PublishMessage("x", nil), ErrServiceClosed))
}

type recordingJSON struct {
	topic, messageType string
	data               interface{}
}

func (r *recordingJSON) PublishJSON(topic, messageType string, data interface{}) error {
	r.topic, r.messageType, r.data = topic, messageType, data
	return nil
}

func TestConfigPublisherNotification(t *testing.T) {
	rec := &recordingJSON{}
	p := NewConfigPublisher(rec, testLogger())

	require.NoError(t, p.PublishConfigUpdatedNotification(config.Tuning{TuningID: "t1", Version: "2"}))
	assert.Equal(t, TopicTuningNotification, rec.topic)
	assert.Equal(t, MsgTypeTuningUpdated, rec.messageType)
	assert.Equal(t, "t1", rec.data.(map[string]interface{})["tuning_id"])

	require.NoError(t, p.PublishConfigUpdate(config.Tuning{TuningID: "t2"}))
	assert.Equal(t, TopicTuningUpdate, rec.topic)
}
