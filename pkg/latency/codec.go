package latency

import (
	"errors"
	"fmt"
	"time"

	flatbuffers "github.com/google/flatbuffers/go"

	fb "github.com/open-teleop/latencyprobe/pkg/flatbuffers/latencyprobe/report"
)

// ReportTopic is the publish topic for encoded reports.
const ReportTopic = "latency.report"

// ErrInvalidReport is returned when a buffer does not hold a LatencyReport.
var ErrInvalidReport = errors.New("invalid latency report buffer")

// MarshalReport encodes a report as a LatencyReport flatbuffer.
func MarshalReport(r Report) []byte {
	builder := flatbuffers.NewBuilder(128)
	idOffset := builder.CreateString(r.TriggerID)
	causeOffset := builder.CreateString(string(r.Cause))

	fb.LatencyReportStart(builder)
	fb.LatencyReportAddTriggerId(builder, idOffset)
	fb.LatencyReportAddCause(builder, causeOffset)
	fb.LatencyReportAddTriggeredAtNs(builder, r.TriggeredAt.UnixNano())
	fb.LatencyReportAddRenderLatencyMs(builder, r.RenderLatencyMs)
	fb.LatencyReportAddDisplayLatencyMs(builder, r.DisplayLatencyMs)
	fb.LatencyReportAddHasDisplayLatency(builder, r.HasDisplayLatency)
	fb.LatencyReportAddSource(builder, fb.LatencySource(r.Source))
	builder.Finish(fb.LatencyReportEnd(builder))

	return builder.FinishedBytes()
}

// UnmarshalReport decodes a LatencyReport flatbuffer.
func UnmarshalReport(data []byte) (report Report, err error) {
	if len(data) < 2*flatbuffers.SizeUOffsetT {
		return Report{}, fmt.Errorf("%w: %d bytes", ErrInvalidReport, len(data))
	}
	defer func() {
		if r := recover(); r != nil {
			report = Report{}
			err = fmt.Errorf("%w: %v", ErrInvalidReport, r)
		}
	}()

	msg := fb.GetRootAsLatencyReport(data, 0)
	source := Source(msg.Source())
	if source < SourcePrimaryPlatformAPI || source > SourceManualFallback {
		return Report{}, fmt.Errorf("%w: unknown source %s", ErrInvalidReport, msg.Source())
	}

	return Report{
		TriggerID:         string(msg.TriggerId()),
		Cause:             Cause(msg.Cause()),
		TriggeredAt:       time.Unix(0, msg.TriggeredAtNs()),
		RenderLatencyMs:   msg.RenderLatencyMs(),
		DisplayLatencyMs:  msg.DisplayLatencyMs(),
		HasDisplayLatency: msg.HasDisplayLatency(),
		Source:            source,
	}, nil
}
