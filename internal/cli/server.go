package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"proctor-quiz-service/internal/alert"
	"proctor-quiz-service/internal/app"
	"proctor-quiz-service/internal/capture"
	"proctor-quiz-service/internal/config"
	"proctor-quiz-service/internal/eventloop"
	"proctor-quiz-service/internal/logging"
	"proctor-quiz-service/internal/telemetry"
	transport "proctor-quiz-service/internal/transport/http"
)

const defaultTelemetryURL = "ws://localhost:5000/ws"

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the proctored quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg, logger); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	st, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	loop := eventloop.New()

	telemetryURL := cfg.Telemetry.URL
	if telemetryURL == "" {
		telemetryURL = defaultTelemetryURL
	}
	channel := telemetry.NewChannel(telemetry.Config{
		URL:          telemetryURL,
		ReconnectMin: config.Duration(cfg.Telemetry.ReconnectMin, 500*time.Millisecond),
		ReconnectMax: config.Duration(cfg.Telemetry.ReconnectMax, 10*time.Second),
		SendBuffer:   cfg.Telemetry.SendBuffer,
	}, loop, logger.Named("telemetry"))

	var device capture.Device
	if cfg.Capture.Device != "" {
		device = capture.NewDirDevice(cfg.Capture.Device)
	}
	frames := capture.NewLoop(loop, device, config.Duration(cfg.Capture.Interval, capture.DefaultInterval), logger.Named("capture"))
	frames.SetConsumer(channel.SendFrame)

	proctor := app.NewProctor(app.ProctorConfig{
		Scheduler:     loop,
		Link:          channel,
		Capture:       frames,
		Quizzes:       st.quizzes,
		Results:       st.results,
		Logger:        logger,
		DefaultQuizID: defaultQuizID(cfg),
		AlertOptions: []alert.Option{alert.WithLifetimes(
			config.Duration(cfg.Alerts.Lifetime, alert.DefaultLifetime),
			config.Duration(cfg.Alerts.RelayLifetime, alert.DefaultRelayLifetime),
		)},
	})
	channel.OnState(func(s telemetry.State) { proctor.HandleConnection(s == telemetry.StateConnected) })
	channel.OnTelemetry(proctor.HandleSample)
	channel.OnAlert(proctor.HandleAlert)

	server := &http.Server{
		Addr:        ":" + finalPort,
		Handler:     transport.NewMux(proctor, logger),
		ReadTimeout: 15 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The loop outlives the HTTP server so Close can still run on it.
	loopCtx, stopLoop := context.WithCancel(context.Background())
	defer stopLoop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := loop.Run(loopCtx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		logger.Info("starting proctor quiz service", zap.String("port", finalPort), zap.String("telemetry", telemetryURL))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := server.Shutdown(shutdownCtx)
		if cerr := proctor.Close(shutdownCtx); cerr != nil && err == nil {
			err = cerr
		}
		channel.Wait()
		stopLoop()
		return err
	})
	return g.Wait()
}
