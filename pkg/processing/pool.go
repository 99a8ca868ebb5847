package processing

import (
	"sync"
	"time"

	"github.com/open-teleop/latencyprobe/pkg/latency"
	customlog "github.com/open-teleop/latencyprobe/pkg/log"
)

// ProcessResult is the result of processing a report
type ProcessResult struct {
	Topic     string
	Report    latency.Report
	Data      []byte
	Timestamp int64
	Error     error
}

// ResultHandler is a function that handles processed results
type ResultHandler func(result *ProcessResult)

// ReportProcessor turns a report into its wire form in a worker
type ReportProcessor func(report latency.Report) ([]byte, error)

// ProcessingPool hands finished reports from measurement goroutines to a
// fixed set of workers. Emit never blocks; a full queue drops the report.
type ProcessingPool struct {
	name          string
	topic         string
	workerCount   int
	logger        customlog.Logger
	reportQueue   chan latency.Report
	running       bool
	wg            sync.WaitGroup
	mu            sync.Mutex
	processor     ReportProcessor
	resultHandler ResultHandler
	queueSize     int
	metrics       *PoolMetrics
}

// PoolMetrics tracks metrics for a processing pool
type PoolMetrics struct {
	ProcessedCount    int64
	ErrorCount        int64
	QueuedCount       int64
	DroppedCount      int64
	LastProcessedTime int64
	ProcessingTimeAvg int64 // in microseconds
	ProcessingTimeMax int64 // in microseconds
	mu                sync.Mutex
}

// NewProcessingPool creates a new processing pool whose results carry topic
func NewProcessingPool(
	name string,
	topic string,
	workerCount int,
	queueSize int,
	logger customlog.Logger,
) *ProcessingPool {
	if workerCount < 1 {
		workerCount = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	return &ProcessingPool{
		name:        name,
		topic:       topic,
		workerCount: workerCount,
		queueSize:   queueSize,
		logger:      logger,
		reportQueue: make(chan latency.Report, queueSize),
		metrics:     &PoolMetrics{},
	}
}

// SetProcessor sets the report processor function
func (p *ProcessingPool) SetProcessor(processor ReportProcessor) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.processor = processor
}

// SetResultHandler sets the result handler function
func (p *ProcessingPool) SetResultHandler(handler ResultHandler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resultHandler = handler
}

// Emit queues a report for processing. It implements latency.Sink.
func (p *ProcessingPool) Emit(report latency.Report) {
	p.ProcessReport(report)
}

// ProcessReport adds a report to the queue for processing
func (p *ProcessingPool) ProcessReport(report latency.Report) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		p.logger.Warnf("%s pool not running, discarding report %s", p.name, report.TriggerID)
		return false
	}

	p.metrics.mu.Lock()
	p.metrics.QueuedCount++
	p.metrics.mu.Unlock()

	select {
	case p.reportQueue <- report:
		return true
	default:
		p.metrics.mu.Lock()
		p.metrics.DroppedCount++
		p.metrics.mu.Unlock()
		p.logger.Warnf("%s pool queue is full, discarding report %s", p.name, report.TriggerID)
		return false
	}
}

// Start starts the processing pool workers
func (p *ProcessingPool) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return
	}

	p.running = true
	p.logger.Infof("Starting %s pool with %d workers", p.name, p.workerCount)

	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// Stop stops the processing pool after draining queued reports
func (p *ProcessingPool) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	close(p.reportQueue)
	p.mu.Unlock()

	p.logger.Infof("Stopping %s pool", p.name)

	p.wg.Wait()
	p.logger.Infof("%s pool stopped", p.name)

	p.logMetrics()
}

// worker processes reports from the queue
func (p *ProcessingPool) worker(id int) {
	defer p.wg.Done()

	p.logger.Debugf("%s pool worker %d started", p.name, id)

	for report := range p.reportQueue {
		p.logger.Debugf("%s pool worker %d processing report %s", p.name, id, report.TriggerID)

		p.mu.Lock()
		processor := p.processor
		resultHandler := p.resultHandler
		p.mu.Unlock()

		if processor == nil {
			p.logger.Errorf("No report processor set for %s pool", p.name)
			continue
		}

		startTime := time.Now()
		data, err := processor(report)
		processingTime := time.Since(startTime).Microseconds()

		p.metrics.mu.Lock()
		p.metrics.ProcessedCount++
		p.metrics.LastProcessedTime = time.Now().UnixNano()
		if p.metrics.ProcessingTimeAvg == 0 {
			p.metrics.ProcessingTimeAvg = processingTime
		} else {
			// Simple moving average
			p.metrics.ProcessingTimeAvg = (p.metrics.ProcessingTimeAvg + processingTime) / 2
		}
		if processingTime > p.metrics.ProcessingTimeMax {
			p.metrics.ProcessingTimeMax = processingTime
		}
		if err != nil {
			p.metrics.ErrorCount++
		}
		p.metrics.mu.Unlock()

		if err != nil {
			p.logger.Errorf("Error processing report in %s pool: %v", p.name, err)
		}

		if resultHandler != nil {
			resultHandler(&ProcessResult{
				Topic:     p.topic,
				Report:    report,
				Data:      data,
				Timestamp: report.TriggeredAt.UnixNano(),
				Error:     err,
			})
		}
	}

	p.logger.Debugf("%s pool worker %d stopped", p.name, id)
}

// GetMetrics returns a copy of the current metrics
func (p *ProcessingPool) GetMetrics() PoolMetrics {
	p.metrics.mu.Lock()
	defer p.metrics.mu.Unlock()

	return PoolMetrics{
		ProcessedCount:    p.metrics.ProcessedCount,
		ErrorCount:        p.metrics.ErrorCount,
		QueuedCount:       p.metrics.QueuedCount,
		DroppedCount:      p.metrics.DroppedCount,
		LastProcessedTime: p.metrics.LastProcessedTime,
		ProcessingTimeAvg: p.metrics.ProcessingTimeAvg,
		ProcessingTimeMax: p.metrics.ProcessingTimeMax,
	}
}

func (p *ProcessingPool) logMetrics() {
	metrics := p.GetMetrics()

	p.logger.Infof("%s pool metrics: processed=%d, errors=%d, dropped=%d, avg_time=%dµs, max_time=%dµs",
		p.name, metrics.ProcessedCount, metrics.ErrorCount, metrics.DroppedCount,
		metrics.ProcessingTimeAvg, metrics.ProcessingTimeMax)
}

// GetName returns the pool name
func (p *ProcessingPool) GetName() string {
	return p.name
}

// GetQueueLength returns the current length of the report queue
func (p *ProcessingPool) GetQueueLength() int {
	return len(p.reportQueue)
}

// GetQueueCapacity returns the capacity of the report queue
func (p *ProcessingPool) GetQueueCapacity() int {
	return p.queueSize
}
