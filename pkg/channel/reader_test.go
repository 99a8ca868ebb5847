package channel

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	customlog "github.com/open-teleop/latencyprobe/pkg/log"
)

func newTestLogger() customlog.Logger {
	l, _ := test.NewNullLogger()
	return customlog.FromLogrus(l)
}

func TestReaderIdleWhenNoValue(t *testing.T) {
	r := NewReader(NewLatestValue(), newTestLogger())
	_, ok := r.Poll()
	assert.False(t, ok)
}

func TestReaderDeduplicatesUnchangedValue(t *testing.T) {
	slot := NewLatestValue()
	r := NewReader(slot, newTestLogger())

	slot.Set("1,2,3;0,0,0;1,1,1")
	raw, ok := r.Poll()
	require.True(t, ok)
	assert.Equal(t, "1,2,3;0,0,0;1,1,1", raw)

	// Same value on the next tick is a no-op.
	_, ok = r.Poll()
	assert.False(t, ok)

	slot.Set("4,5,6;0,0,0;1,1,1")
	raw, ok = r.Poll()
	require.True(t, ok)
	assert.Equal(t, "4,5,6;0,0,0;1,1,1", raw)
}

func TestReaderIgnoresEmptyAndWhitespace(t *testing.T) {
	slot := NewLatestValue()
	r := NewReader(slot, newTestLogger())

	slot.Set("")
	_, ok := r.Poll()
	assert.False(t, ok)

	slot.Set("   \n")
	_, ok = r.Poll()
	assert.False(t, ok)
	assert.Equal(t, "", r.LastAccepted())
}

func TestReaderMarksMalformedValueConsumed(t *testing.T) {
	slot := NewLatestValue()
	r := NewReader(slot, newTestLogger())

	slot.Set("garbage")
	raw, ok := r.Poll()
	require.True(t, ok)
	assert.Equal(t, "garbage", raw)
	assert.Equal(t, "garbage", r.LastAccepted())

	// Resending the same malformed value is not delivered again.
	slot.Set("garbage")
	_, ok = r.Poll()
	assert.False(t, ok)
}

func TestReaderTrimsBeforeComparing(t *testing.T) {
	slot := NewLatestValue()
	r := NewReader(slot, newTestLogger())

	slot.Set("1,2,3;0,0,0;1,1,1\n")
	_, ok := r.Poll()
	require.True(t, ok)

	slot.Set("  1,2,3;0,0,0;1,1,1")
	_, ok = r.Poll()
	assert.False(t, ok)
}

func TestFileSource(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "adb_command.txt")
	src := NewFileSource(path, newTestLogger())
	r := NewReader(src, newTestLogger())

	_, ok := r.Poll()
	assert.False(t, ok, "missing file is the idle state")

	require.NoError(t, os.WriteFile(path, []byte("1,2,3;0,90,0;1,1,1;255,0,0\n"), 0644))
	raw, ok := r.Poll()
	require.True(t, ok)
	assert.Equal(t, "1,2,3;0,90,0;1,1,1;255,0,0", raw)

	_, ok = r.Poll()
	assert.False(t, ok)
}
