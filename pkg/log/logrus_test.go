package log

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimpleFormatterCategoryAndFields(t *testing.T) {
	f := &SimpleFormatter{TimestampFormat: "15:04:05"}
	entry := &logrus.Entry{
		Time:    time.Date(2025, 4, 6, 17, 30, 0, 0, time.UTC),
		Level:   logrus.WarnLevel,
		Message: "Frame wait timed out",
		Data: logrus.Fields{
			categoryField: CategoryLatency,
			"trigger":     "abc",
			"cause":       "motion",
		},
	}

	out, err := f.Format(entry)
	require.NoError(t, err)
	assert.Equal(t, "17:30:00 [WAR] [latency] Frame wait timed out cause=motion trigger=abc\n", string(out))
}

func TestSimpleFormatterWithoutCategory(t *testing.T) {
	f := &SimpleFormatter{}
	entry := &logrus.Entry{
		Time:    time.Date(2025, 4, 6, 17, 30, 0, 0, time.UTC),
		Level:   logrus.InfoLevel,
		Message: "started",
		Data:    logrus.Fields{},
	}

	out, err := f.Format(entry)
	require.NoError(t, err)
	assert.Equal(t, "2025/04/06 17:30:00.000000 [INF] started\n", string(out))
}

func TestWithCategoryTagsEntries(t *testing.T) {
	base, hook := test.NewNullLogger()
	logger := FromLogrus(base).WithCategory(CategoryCommand).WithField("raw", "1,2,3")

	logger.Errorf("Invalid vector format: %s", "1,2")

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.ErrorLevel, entry.Level)
	assert.Equal(t, CategoryCommand, entry.Data[categoryField])
	assert.Equal(t, "1,2,3", entry.Data["raw"])
	assert.Equal(t, "Invalid vector format: 1,2", entry.Message)
}
