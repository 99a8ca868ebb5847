package command

import (
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	customlog "github.com/open-teleop/latencyprobe/pkg/log"
	"github.com/open-teleop/latencyprobe/pkg/scene"
)

func newApplier(t *testing.T) (*Applier, *scene.Object, *test.Hook) {
	t.Helper()
	l, hook := test.NewNullLogger()
	obj := scene.NewObject()
	return NewApplier(obj, customlog.FromLogrus(l)), obj, hook
}

func errorCount(hook *test.Hook) int {
	n := 0
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.ErrorLevel {
			n++
		}
	}
	return n
}

func TestApplyFullCommand(t *testing.T) {
	a, obj, hook := newApplier(t)

	cmd, err := a.Apply("1,2,3;0,90,0;1,1,1;255,0,0")
	require.NoError(t, err)
	assert.Empty(t, cmd.Errors)

	snap := obj.Snapshot()
	assert.Equal(t, mgl64.Vec3{1, 2, 3}, snap.Position)
	assert.Equal(t, mgl64.Vec3{0, 90, 0}, snap.EulerAngles)
	assert.Equal(t, mgl64.Vec3{1, 1, 1}, snap.Scale)
	assert.Equal(t, scene.Color{R: 1, G: 0, B: 0}, snap.Color)
	assert.Equal(t, 0, errorCount(hook))
}

func TestApplyWithoutColorKeepsColor(t *testing.T) {
	a, obj, hook := newApplier(t)
	obj.SetColor(scene.Color{G: 1})

	cmd, err := a.Apply("0.5,0,-1;10,20,30;2,2,2")
	require.NoError(t, err)
	assert.False(t, cmd.HasColor())

	snap := obj.Snapshot()
	assert.Equal(t, mgl64.Vec3{0.5, 0, -1}, snap.Position)
	assert.Equal(t, mgl64.Vec3{10, 20, 30}, snap.EulerAngles)
	assert.Equal(t, mgl64.Vec3{2, 2, 2}, snap.Scale)
	assert.Equal(t, scene.Color{G: 1}, snap.Color)
	assert.Equal(t, 0, errorCount(hook))
}

func TestApplyRejectsTooFewSegments(t *testing.T) {
	for _, raw := range []string{"1,2,3", "1,2,3;0,0,0", "garbage"} {
		t.Run(raw, func(t *testing.T) {
			a, obj, hook := newApplier(t)
			obj.SetPosition(mgl64.Vec3{9, 9, 9})
			before := obj.Snapshot()

			_, err := a.Apply(raw)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidCommand))
			assert.Equal(t, before, obj.Snapshot(), "rejected command must not mutate the target")
			assert.Equal(t, 1, errorCount(hook))
		})
	}
}

func TestApplyMalformedPositionFallsBackToZero(t *testing.T) {
	a, obj, hook := newApplier(t)
	obj.SetPosition(mgl64.Vec3{5, 5, 5})

	cmd, err := a.Apply("1,2;0,0,0;1,1,1")
	require.NoError(t, err)
	require.Len(t, cmd.Errors, 1)
	assert.Equal(t, FieldPosition, cmd.Errors[0].Field)
	assert.True(t, errors.Is(cmd.Errors[0], ErrInvalidVector))

	snap := obj.Snapshot()
	assert.Equal(t, mgl64.Vec3{0, 0, 0}, snap.Position)
	assert.Equal(t, mgl64.Vec3{0, 0, 0}, snap.EulerAngles)
	assert.Equal(t, mgl64.Vec3{1, 1, 1}, snap.Scale)
	assert.Equal(t, 1, errorCount(hook))
}

func TestApplySingleMalformedFieldKeepsOthers(t *testing.T) {
	cases := []struct {
		name  string
		raw   string
		field string
	}{
		{"position non-numeric", "a,b,c;10,20,30;2,3,4", FieldPosition},
		{"rotation arity", "1,2,3;10,20;2,3,4", FieldRotation},
		{"scale non-numeric", "1,2,3;10,20,30;2,x,4", FieldScale},
		{"position hex float", "0x1p3,0,0;10,20,30;2,3,4", FieldPosition},
		{"rotation infinity", "1,2,3;Inf,20,30;2,3,4", FieldRotation},
		{"scale nan", "1,2,3;10,20,30;2,nan,4", FieldScale},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a, obj, _ := newApplier(t)

			cmd, err := a.Apply(tc.raw)
			require.NoError(t, err)
			require.Len(t, cmd.Errors, 1)
			assert.Equal(t, tc.field, cmd.Errors[0].Field)

			want := map[string]mgl64.Vec3{
				FieldPosition: {1, 2, 3},
				FieldRotation: {10, 20, 30},
				FieldScale:    {2, 3, 4},
			}
			want[tc.field] = mgl64.Vec3{}

			snap := obj.Snapshot()
			assert.Equal(t, want[FieldPosition], snap.Position)
			assert.Equal(t, want[FieldRotation], snap.EulerAngles)
			assert.Equal(t, want[FieldScale], snap.Scale)
		})
	}
}

func TestApplyMalformedColorSkipsColorOnly(t *testing.T) {
	for _, color := range []string{"255,0", "255,0,0,0", "255,0.5,0", "red,0,0", "256,0,0", "300,0,0", "-1,0,0"} {
		t.Run(color, func(t *testing.T) {
			a, obj, hook := newApplier(t)
			prior := scene.Color{B: 1}
			obj.SetColor(prior)

			cmd, err := a.Apply("1,2,3;0,90,0;3,3,3;" + color)
			require.NoError(t, err)
			assert.False(t, cmd.HasColor())

			snap := obj.Snapshot()
			assert.Equal(t, prior, snap.Color)
			assert.Equal(t, mgl64.Vec3{1, 2, 3}, snap.Position)
			assert.Equal(t, mgl64.Vec3{0, 90, 0}, snap.EulerAngles)
			assert.Equal(t, mgl64.Vec3{3, 3, 3}, snap.Scale)
			assert.Equal(t, 1, errorCount(hook))
		})
	}
}

func TestParseVectorInvariantFormat(t *testing.T) {
	v, err := ParseVector(" 1.5, -2e-3 ,3")
	require.NoError(t, err)
	assert.Equal(t, mgl64.Vec3{1.5, -0.002, 3}, v)

	v, err = ParseVector("+.5,5.,1E2")
	require.NoError(t, err)
	assert.Equal(t, mgl64.Vec3{0.5, 5, 100}, v)

	// Comma decimal separators are never accepted as decimals.
	_, err = ParseVector("1,5;2,0")
	assert.Error(t, err)

	for _, raw := range []string{"0x1p3,0,0", "Inf,0,0", "-inf,0,0", "nan,0,0", "Infinity,0,0", "NaN,0,0", "1_000,0,0", "1e999,0,0", "1e,0,0", ".,0,0"} {
		v, err := ParseVector(raw)
		assert.ErrorIs(t, err, ErrInvalidVector, raw)
		assert.Equal(t, mgl64.Vec3{}, v, raw)
	}
}

func TestParseColorNormalizes(t *testing.T) {
	c, err := ParseColor("0,51,255")
	require.NoError(t, err)
	assert.InDelta(t, 0.0, c.R, 1e-12)
	assert.InDelta(t, 0.2, c.G, 1e-12)
	assert.InDelta(t, 1.0, c.B, 1e-12)
}

func TestFormatParseRoundTrip(t *testing.T) {
	pos := mgl64.Vec3{0.1, -2.25, 1e-7}
	rot := mgl64.Vec3{359.5, 0, -45}
	scale := mgl64.Vec3{1, 0.333, 12}

	cmd, err := Parse(Format(pos, rot, scale, &[3]int{10, 20, 30}))
	require.NoError(t, err)
	assert.Empty(t, cmd.Errors)
	assert.Equal(t, pos, cmd.Position)
	assert.Equal(t, rot, cmd.Rotation)
	assert.Equal(t, scale, cmd.Scale)
	require.NotNil(t, cmd.Color)
	assert.InDelta(t, 10.0/255, cmd.Color.R, 1e-12)
}
