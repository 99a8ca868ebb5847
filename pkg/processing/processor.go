package processing

import (
	"fmt"

	"github.com/open-teleop/latencyprobe/pkg/latency"
	customlog "github.com/open-teleop/latencyprobe/pkg/log"
)

// FlatbufferReportProcessor encodes reports as LatencyReport flatbuffers
type FlatbufferReportProcessor struct {
	logger customlog.Logger
}

// NewFlatbufferReportProcessor creates a new report processor
func NewFlatbufferReportProcessor(logger customlog.Logger) *FlatbufferReportProcessor {
	return &FlatbufferReportProcessor{logger: logger}
}

// ProcessReport validates and encodes a report
func (p *FlatbufferReportProcessor) ProcessReport(report latency.Report) ([]byte, error) {
	if report.TriggerID == "" {
		return nil, fmt.Errorf("report has no trigger id")
	}
	if report.Source < latency.SourcePrimaryPlatformAPI || report.Source > latency.SourceManualFallback {
		return nil, fmt.Errorf("report %s has unknown source %d", report.TriggerID, report.Source)
	}

	data := latency.MarshalReport(report)
	p.logger.Debugf("Encoded report %s (%s, %d bytes)", report.TriggerID, report.Source, len(data))
	return data, nil
}

// CreateProcessorFunc creates a ReportProcessor function for the ProcessingPool
func (p *FlatbufferReportProcessor) CreateProcessorFunc() ReportProcessor {
	return p.ProcessReport
}
