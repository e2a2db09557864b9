package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	flag "github.com/spf13/pflag"

	"github.com/voice-arm/controller/domain/diagnostic"
	"github.com/voice-arm/controller/domain/teleop"
	"github.com/voice-arm/controller/pkg/api"
	"github.com/voice-arm/controller/pkg/arm"
	"github.com/voice-arm/controller/pkg/command"
	"github.com/voice-arm/controller/pkg/commandserver"
	"github.com/voice-arm/controller/pkg/config"
	customlog "github.com/voice-arm/controller/pkg/log"
	"github.com/voice-arm/controller/pkg/processing"
	"github.com/voice-arm/controller/pkg/sim"
	"github.com/voice-arm/controller/pkg/zeromq"
	"github.com/voice-arm/controller/services"
)

func main() {
	configDir := flag.String("config-dir", "./config", "Directory containing "+config.BootstrapFilename)
	logLevel := flag.String("log", "", "Log level override (debug, info, warn, error)")
	flag.Parse()

	bootstrapCfg, err := config.LoadBootstrapConfig(*configDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load bootstrap config: %v\n", err)
		os.Exit(1)
	}
	if *logLevel != "" {
		bootstrapCfg.Logging.Level = *logLevel
	}

	logger, err := customlog.NewLogrusLogger(bootstrapCfg.Logging.Level, bootstrapCfg.Logging.LogPath, "controller")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logger.Infof("Loaded bootstrap configuration from %s", *configDir)

	// Presets
	configService, err := services.NewPresetsConfigService(bootstrapCfg.Data.PresetsPath(), logger)
	if err != nil {
		logger.Fatalf("Failed to load presets: %v", err)
	}
	robotID := configService.GetCurrentConfig().RobotID

	// Simulated host and arm devices
	simCfg := sim.DefaultConfig()
	simCfg.BasicTimeStepMs = bootstrapCfg.Simulation.BasicTimeStepMs
	simCfg.MaxVelocity = bootstrapCfg.Simulation.MaxVelocity
	simCfg.RealTime = !bootstrapCfg.Simulation.FastForward
	robot := sim.NewRobot(simCfg)

	robotArm, err := arm.Bind(robot)
	if err != nil {
		logger.Fatalf("Failed to bind arm devices: %v", err)
	}

	// Dispatcher
	queue := command.NewQueue()
	presets := processing.NewPresetTable(logger)
	configService.OnApply(presets.LoadFromConfig)
	dispatcher := processing.NewDispatcher(logger, queue, robotArm, presets, processing.NewActionRegistry(logger))

	// Optional ZeroMQ bridge
	var zmqService *zeromq.ZeroMQService
	var resultPublisher processing.MessagePublisher
	if bootstrapCfg.ZeroMQ.Enabled {
		zmqService, err = zeromq.NewZeroMQService(bootstrapCfg.ZeroMQ, logger)
		if err != nil {
			logger.Fatalf("Failed to create ZeroMQ service: %v", err)
		}
		configService.SetPublisher(zeromq.Register(zmqService, configService, queue, logger))
		if err := zmqService.Start(); err != nil {
			logger.Fatalf("Failed to start ZeroMQ service: %v", err)
		}
		resultPublisher = zmqService

		if every := bootstrapCfg.Simulation.TelemetryEvery(); every > 0 {
			dispatcher.SetTelemetry(every, zeromq.NewTelemetryPublisher(zmqService, robotID, logger).Publish)
			logger.Infof("Publishing telemetry every %d ticks", every)
		}
	}
	dispatcher.SetResultHandler(processing.NewLoggingResultHandler(logger, resultPublisher).CreateHandlerFunc())

	// Raw TCP command listener
	cmdServer := commandserver.New(bootstrapCfg.CommandServer, queue, logger)
	if err := cmdServer.Start(); err != nil {
		logger.Fatalf("Failed to start command server: %v", err)
	}

	// HTTP / WebSocket API
	var app *fiber.App
	if port := bootstrapCfg.Server.HTTPPort; port > 0 {
		app = api.NewApp(api.Deps{
			Logger:        logger,
			Queue:         queue,
			ConfigService: configService,
			Teleop:        teleop.NewTeleopService(queue, logger),
			Diagnostic:    diagnostic.NewDiagnosticService(robotID, dispatcher, cmdServer.Stats),
			AccessLog:     os.Stdout,
		})
		go func() {
			logger.Infof("HTTP API starting on port %d", port)
			if err := app.Listen(fmt.Sprintf(":%d", port)); err != nil {
				logger.Errorf("HTTP API stopped: %v", err)
			}
		}()
	}

	// Tick loop
	simDone := make(chan struct{})
	go func() {
		defer close(simDone)
		dispatcher.Run(robot, robotArm.TimeStep())
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		logger.Infof("Received %s, shutting down...", sig)
		robot.Close()
		<-simDone
	case <-simDone:
		logger.Infof("Simulation ended, shutting down...")
	}

	cmdServer.Stop()

	if app != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := app.ShutdownWithContext(ctx); err != nil {
			logger.Errorf("HTTP API forced to shutdown: %v", err)
		}
		cancel()
	}

	if zmqService != nil {
		zmqService.Stop()
	}

	dispatcher.LogMetrics()
	logger.Infof("Controller exited properly")
}
