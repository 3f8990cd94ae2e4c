package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/astroshed/starcapture/internal/api"
	"github.com/astroshed/starcapture/internal/config"
	"github.com/astroshed/starcapture/internal/imager"
	"github.com/astroshed/starcapture/internal/logger"
	"github.com/astroshed/starcapture/internal/recorder"
)

var (
	recordDir      string
	recordFormat   string
	recordFrames   uint64
	recordDuration time.Duration
	recordFPS      int
	recordWidth    int
	recordHeight   int
	recordServe    bool
)

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record a capture session to disk",
	Long: `Start a recording session fed by the built-in simulated camera.

Frames are produced at camera rate, pass through the bounded recording
queue and are written by a dedicated writer goroutine. The session ends
when the configured frame limit is reached, the duration elapses, or on
Ctrl+C; the metadata sidecar is written next to the recording.`,
	Example: `  # Record 500 frames of 640x480 test pattern as SER
  starcapture record --dir ./captures --frames 500

  # Record 10 seconds at 60 fps as a TIFF sequence
  starcapture record --dir ./captures --format tiff --fps 60 --duration 10s

  # Record with the observability API running
  starcapture record --dir ./captures --serve`,
	RunE: runRecord,
}

func init() {
	rootCmd.AddCommand(recordCmd)

	recordCmd.Flags().StringVar(&recordDir, "dir", "", "save directory (overrides config)")
	recordCmd.Flags().StringVar(&recordFormat, "format", "", "save format: ser or tiff (overrides config)")
	recordCmd.Flags().Uint64Var(&recordFrames, "frames", 0, "frame limit, 0 = unbounded (overrides config)")
	recordCmd.Flags().DurationVar(&recordDuration, "duration", 0, "stop after this long (0 = until frame limit or Ctrl+C)")
	recordCmd.Flags().IntVar(&recordFPS, "fps", 30, "simulated camera frame rate")
	recordCmd.Flags().IntVar(&recordWidth, "width", 640, "simulated camera frame width")
	recordCmd.Flags().IntVar(&recordHeight, "height", 480, "simulated camera frame height")
	recordCmd.Flags().BoolVar(&recordServe, "serve", false, "run the REST/websocket API while recording")
}

func runRecord(cmd *cobra.Command, args []string) error {
	configMgr, err := config.NewManager(GetConfigFile())
	if err != nil {
		return fmt.Errorf("failed to initialize config manager: %w", err)
	}

	if viper.IsSet("server_port") {
		if port := viper.GetInt("server_port"); port > 0 {
			configMgr.SetPort(port)
		}
	}
	if viper.IsSet("log_level") {
		if level := viper.GetString("log_level"); level != "" {
			configMgr.SetLogLevel(level)
		}
	}

	configMgr.Override(func(cfg *config.Config) {
		if recordDir != "" {
			cfg.SaveDirectory = recordDir
		}
		if recordFormat != "" {
			cfg.SaveFormat = recordFormat
		}
		if cmd.Flags().Changed("frames") {
			cfg.FramesLimit = recordFrames
		}
	})

	cfg := configMgr.Get()
	logger.Init(cfg.LogLevel, true)
	log := logger.WithComponent("record")

	if cfg.SaveDirectory == "" {
		return fmt.Errorf("no save directory configured (set save_directory or pass --dir)")
	}

	controller := recorder.NewController(configMgr)

	if recordServe {
		server := api.NewServer(controller, configMgr)
		go func() {
			if err := server.Start(cfg.ServerPort); err != nil {
				log.Error().Err(err).Msg("API server error")
			}
		}()
	}

	events, cancelEvents := controller.Subscribe()
	defer cancelEvents()
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		for ev := range events {
			switch ev.Type {
			case recorder.EventStarted:
				log.Info().Str("path", ev.Path).Msg("Recording to")
			case recorder.EventSaveFPS:
				log.Debug().Float64("fps", ev.FPS).Msg("Save rate")
			case recorder.EventMeanFPS:
				log.Info().Float64("fps", ev.FPS).Msg("Mean save rate")
			case recorder.EventFramesDropped:
				log.Warn().Uint64("dropped", ev.Count).Msg("Frames dropped")
			case recorder.EventFinished:
				return
			}
		}
	}()

	sim := imager.NewSimulator(recordWidth, recordHeight, recordFPS)

	streamCtx, stopStream := context.WithCancel(cmd.Context())
	defer stopStream()
	go sim.Stream(streamCtx, controller.Handle)

	controller.StartRecording(sim)
	if !controller.IsRecording() {
		return fmt.Errorf("recording did not start (check save directory and format)")
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	var timeout <-chan time.Time
	if recordDuration > 0 {
		timer := time.NewTimer(recordDuration)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case <-sigChan:
		log.Info().Msg("Interrupted, stopping recording")
		controller.EndRecording()
	case <-timeout:
		log.Info().Dur("duration", recordDuration).Msg("Duration elapsed, stopping recording")
		controller.EndRecording()
	case <-finished:
		// Frame limit reached; the worker stopped on its own.
	}

	// Wait for the worker to drain its frame in hand and persist metadata
	select {
	case <-finished:
	case <-time.After(10 * time.Second):
		log.Warn().Msg("Timed out waiting for recording to finish")
	}

	stopStream()
	status := controller.GetStatus()
	log.Info().
		Uint64("saved", status.SavedFrames).
		Uint64("dropped", status.DroppedFrames).
		Str("path", status.OutputPath).
		Msg("Session complete")
	return nil
}
