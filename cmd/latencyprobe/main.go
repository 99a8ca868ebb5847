package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"

	"github.com/open-teleop/latencyprobe/domain/command"
	"github.com/open-teleop/latencyprobe/domain/diagnostic"
	"github.com/open-teleop/latencyprobe/pkg/api"
	"github.com/open-teleop/latencyprobe/pkg/channel"
	scenecmd "github.com/open-teleop/latencyprobe/pkg/command"
	"github.com/open-teleop/latencyprobe/pkg/config"
	"github.com/open-teleop/latencyprobe/pkg/latency"
	customlog "github.com/open-teleop/latencyprobe/pkg/log"
	"github.com/open-teleop/latencyprobe/pkg/metrics"
	"github.com/open-teleop/latencyprobe/pkg/motion"
	"github.com/open-teleop/latencyprobe/pkg/probe"
	"github.com/open-teleop/latencyprobe/pkg/processing"
	"github.com/open-teleop/latencyprobe/pkg/render"
	"github.com/open-teleop/latencyprobe/pkg/scene"
	"github.com/open-teleop/latencyprobe/pkg/zeromq"
	"github.com/open-teleop/latencyprobe/services"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var configDir string
	var logLevel string

	flagSet := pflag.NewFlagSet("latencyprobe", pflag.ContinueOnError)
	flagSet.StringVar(&configDir, "config-dir", "./config", "directory containing latencyprobe.yaml")
	flagSet.StringVar(&logLevel, "log-level", "", "override logging.level from the bootstrap config")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}

	bootstrap, err := config.LoadBootstrapConfig(configDir)
	if err != nil {
		return err
	}
	if logLevel != "" {
		bootstrap.Logging.Level = logLevel
	}

	appLogger, err := customlog.NewLogrusLogger(bootstrap.Logging.Level, bootstrap.Logging.LogPath)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	appLogger.Infof("Loaded bootstrap config from %s", configDir)

	// Scene and render backend
	target := scene.NewObject()
	clock := render.NewFrameClock()
	hwMetrics := render.NewMetricStore(time.Duration(bootstrap.Latency.MetricMaxAgeMs) * time.Millisecond)
	backend := render.NewBackend(clock, hwMetrics)
	backend.LogCapabilities(appLogger)

	var viewpoint scene.Viewpoint
	var tracked *scene.TrackedViewpoint
	switch bootstrap.Viewpoint.Mode {
	case config.ViewpointModeNetwork:
		tracked = scene.NewTrackedViewpoint()
		viewpoint = tracked
	case config.ViewpointModeOrbit:
		viewpoint = scene.NewOrbitViewpoint(time.Now)
	}
	appLogger.Infof("Viewpoint mode: %s", bootstrap.Viewpoint.Mode)

	// Command channel. Injected commands only reach the reader in network
	// mode; in file mode the injectors get no sink and refuse them.
	var source channel.Source
	var injector interface{ Set(raw string) }
	if bootstrap.Channel.Mode == config.ChannelModeFile {
		fileSource := channel.NewFileSource(bootstrap.Channel.FilePath, appLogger)
		source = fileSource
		appLogger.Infof("Reading scene commands from %s", fileSource.Path())
	} else {
		network := channel.NewLatestValue()
		source = network
		injector = network
		appLogger.Infof("Reading scene commands from HTTP, WebSocket and ZeroMQ")
	}
	reader := channel.NewReader(source, appLogger)
	applier := scenecmd.NewApplier(target, appLogger)

	var monitor *motion.Monitor
	var thresholds services.ThresholdSetter
	if viewpoint != nil {
		monitor = motion.NewMonitor(viewpoint, motion.Thresholds{
			Movement: bootstrap.Motion.MovementThreshold,
			Rotation: bootstrap.Motion.RotationThreshold,
		}, appLogger)
		thresholds = monitor
	}

	// ZeroMQ transport
	zmqService, err := zeromq.NewZeroMQService(bootstrap.ZeroMQ, appLogger)
	if err != nil {
		return fmt.Errorf("failed to create ZeroMQ service: %w", err)
	}

	// Report sinks
	collector := metrics.NewCollector(prometheus.DefaultRegisterer)
	diagnosticService := diagnostic.NewDiagnosticService()

	poolLogger := appLogger.WithCategory(customlog.CategoryLatency)
	reportPool := processing.NewProcessingPool("latency-report", latency.ReportTopic,
		bootstrap.Processing.ReportWorkers, bootstrap.Processing.ReportQueueSize, poolLogger)
	reportPool.SetProcessor(processing.NewFlatbufferReportProcessor(poolLogger).CreateProcessorFunc())
	var reportPublisher processing.MessagePublisher
	if bootstrap.ZeroMQ.PublishBindAddress != "" {
		reportPublisher = zmqService
	}
	reportPool.SetResultHandler(processing.NewLoggingResultHandler(poolLogger, reportPublisher).CreateHandlerFunc())

	pipeline := latency.NewPipeline(backend, appLogger,
		latency.WithSinks(reportPool, collector, diagnosticService),
		latency.WithFrameTimeout(time.Duration(bootstrap.Latency.FrameTimeoutMs)*time.Millisecond),
	)
	diagnosticService.SetInFlightFunc(pipeline.InFlight)
	diagnosticService.SetQueueFunc(func() (int, int) {
		return reportPool.GetQueueLength(), reportPool.GetQueueCapacity()
	})

	// Runtime tuning
	tuningService, err := services.NewTuningService(bootstrap.TuningPath(), *config.TuningFromBootstrap(bootstrap), appLogger)
	if err != nil {
		return fmt.Errorf("failed to load tuning: %w", err)
	}
	applyTuning := services.ApplyTuning(thresholds, pipeline)
	applyTuning(tuningService.GetTuning())
	tuningService.OnChange(applyTuning)

	// ZeroMQ handlers
	zmqService.RegisterHandler(zeromq.MsgTypeSceneCommand, zeromq.NewSceneCommandHandler(injector, appLogger))
	configPublisher := zeromq.RegisterConfigHandlers(zmqService, tuningService, appLogger)
	if bootstrap.ZeroMQ.PublishBindAddress != "" {
		tuningService.SetPublisher(configPublisher)
	}
	zmqService.RegisterHandler(zeromq.MsgTypeStatusRequest, zeromq.NewStatusHandler(zeromq.StatusFunc(func() interface{} {
		return fiber.Map{
			"frame":       clock.LastFrame().Index,
			"render":      backend.Available(),
			"diagnostics": diagnosticService.GetMetrics(),
		}
	})))
	if err := zmqService.Start(); err != nil {
		return fmt.Errorf("failed to start ZeroMQ service: %w", err)
	}

	var listener *zeromq.MetricsListener
	if bootstrap.ZeroMQ.MetricsBindAddress != "" {
		listener = zeromq.NewMetricsListener(hwMetrics, tracked, backend, appLogger)
		if err := listener.Start(zmqService.Context(), bootstrap.ZeroMQ.MetricsBindAddress); err != nil {
			appLogger.Warnf("Failed to start metrics listener: %v", err)
			listener = nil
		}
	}

	// Frame loop
	reportPool.Start()
	p := probe.NewProbe(reader, applier, monitorOrNil(monitor), pipeline, appLogger,
		probe.WithDiagnostics(viewpoint, target),
		probe.WithObserver(collector),
	)
	loop := probe.NewLoop(p, clock, bootstrap.Render.FrameRateHz, appLogger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var loopWG sync.WaitGroup
	loopWG.Add(1)
	go func() {
		defer loopWG.Done()
		loop.Run(ctx)
	}()

	// HTTP server
	app := fiber.New(fiber.Config{
		AppName:      "latencyprobe",
		ErrorHandler: customErrorHandler,
	})
	app.Use(logger.New())
	app.Use(recover.New())

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "online",
			"service": "latencyprobe",
		})
	})
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "healthy"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	apiGroup := app.Group("/api")
	apiGroup.Get("/diagnostics", diagnosticService.GetMetricsHandler)

	commandService := command.NewCommandService(injector, target, appLogger)
	commandRoutes := apiGroup.Group("/command")
	commandRoutes.Post("/", commandService.CommandHandler)
	commandRoutes.Get("/target", commandService.TargetHandler)

	api.RegisterConfigRoutes(app, tuningService, appLogger)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/command", websocket.New(func(conn *websocket.Conn) {
		api.CommandWebSocketHandler(conn, appLogger, injector)
	}))

	go func() {
		addr := fmt.Sprintf(":%d", bootstrap.Server.HTTPPort)
		appLogger.Infof("Server starting on %s", addr)
		if err := app.Listen(addr); err != nil {
			appLogger.Errorf("Server stopped: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Infof("Shutting down latencyprobe...")

	cancel()
	loopWG.Wait()
	pipeline.Wait()
	reportPool.Stop()
	if listener != nil {
		listener.Stop()
	}
	zmqService.Stop()
	clock.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	appLogger.Infof("latencyprobe exited properly")
	return nil
}

// monitorOrNil keeps a nil *motion.Monitor from becoming a non-nil interface.
func monitorOrNil(m *motion.Monitor) probe.MotionChecker {
	if m == nil {
		return nil
	}
	return m
}

// Custom error handler
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
	})
}
