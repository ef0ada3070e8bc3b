package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BrandonDHaskell/Parkgate/server/internal/camera"
	"github.com/BrandonDHaskell/Parkgate/server/internal/config"
	"github.com/BrandonDHaskell/Parkgate/server/internal/db"
	"github.com/BrandonDHaskell/Parkgate/server/internal/detect"
	"github.com/BrandonDHaskell/Parkgate/server/internal/health"
	"github.com/BrandonDHaskell/Parkgate/server/internal/httpapi"
	"github.com/BrandonDHaskell/Parkgate/server/internal/imagestore"
	"github.com/BrandonDHaskell/Parkgate/server/internal/logging"
	"github.com/BrandonDHaskell/Parkgate/server/internal/parkgate/service"
	"github.com/BrandonDHaskell/Parkgate/server/internal/parkgate/store/sqlstore"
	"github.com/BrandonDHaskell/Parkgate/server/internal/parkgate/types"
	"github.com/BrandonDHaskell/Parkgate/server/internal/transport/mqtt"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(os.Stdout, logging.Options{
		Backend: cfg.Log.Backend,
		Format:  cfg.Log.Format,
		Level:   cfg.Log.Level,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	logger = logger.With("service", "parkgate-server")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error(ctx, "fatal", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger logging.Logger) error {
	// Store
	conn, err := db.Open(ctx, db.Config{Driver: cfg.DBDriver, Path: cfg.DBPath, DSN: cfg.DBDSN})
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer conn.Close()

	if cfg.Env == "dev" && cfg.SeedSampleCredentials {
		n, err := db.SeedDev(ctx, conn, cfg.DBDriver)
		if err != nil {
			return fmt.Errorf("seed: %w", err)
		}
		if n > 0 {
			logger.Info(ctx, "seeded sample credentials", "count", n)
		}
	}

	writer := db.NewWorker(conn)
	defer writer.Close()

	st := sqlstore.New(conn, writer, cfg.DBDriver)
	access := service.NewAccessService(st, logger)
	readers := service.NewReaderRegistry(st)

	images, err := buildImageStore(ctx, cfg.Images)
	if err != nil {
		return err
	}

	// Camera
	var detector camera.Detector
	if cfg.Detector.URL != "" {
		detector = detect.NewClient(cfg.Detector.URL, cfg.Detector.Timeout)
	} else {
		logger.Warn(ctx, "no detector configured, plate extraction disabled")
	}

	cam := camera.NewManager(camera.Options{
		Factory:      deviceFactory(cfg.Camera),
		Detector:     detector,
		Recorder:     access,
		Confidence:   cfg.Camera.Confidence,
		FrameTimeout: cfg.Camera.FrameTimeout,
		AutoSave:     cfg.Camera.AutoSave,
		Logger:       logger,
	})
	if err := cam.OpenCamera(ctx, cfg.Camera.Index); err != nil {
		logger.Warn(ctx, "camera unavailable, snapshots will fail until restart", "error", err)
	}
	defer cam.Close()

	// Workflow and transport
	hub := httpapi.NewHub(logger)
	publishers := []service.Publisher{hub}

	var (
		transport       *mqtt.Client
		transportStatus httpapi.TransportStatus
	)
	if cfg.MQTT.Enabled {
		brokers := append([]string{cfg.MQTT.Broker}, cfg.MQTT.Fallbacks...)
		transport = mqtt.New(mqtt.Options{
			Brokers:      brokers,
			ClientID:     cfg.MQTT.ClientID,
			Username:     cfg.MQTT.Username,
			Password:     cfg.MQTT.Password,
			ProbeTimeout: cfg.MQTT.ProbeTimeout,
			Topics:       mqtt.NewTopics(cfg.MQTT.TopicPrefix),
			Logger:       logger,
		})
		transportStatus = transport
		publishers = append(publishers, transport)
	}

	wf := service.NewWorkflow(service.WorkflowDeps{
		Access:     access,
		Readers:    readers,
		Camera:     cam,
		Images:     images,
		Publishers: publishers,
		Logger:     logger,
	})

	if transport != nil {
		err := transport.Start(ctx, func(ctx context.Context, ev types.ScanEvent) {
			_, _ = wf.Handle(ctx, ev)
		})
		if errors.Is(err, mqtt.ErrNoBroker) {
			logger.Warn(ctx, "event transport offline, serving HTTP only")
		} else if err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
		defer transport.Close()
	}

	// Background jobs
	pruner := service.NewObservationPruner(st, service.PrunerConfig{
		RetentionDays: cfg.ObservationRetentionDays,
		IntervalHours: cfg.PruneIntervalHours,
	}, logger)
	pruner.Start(ctx)
	defer pruner.Stop()

	if cfg.HealthAddr != "" {
		hs := health.NewServer(cfg.HealthAddr, map[string]health.Check{
			"camera": func(context.Context) error {
				if !cam.IsOpen() {
					return errors.New("camera closed")
				}
				return nil
			},
			"store": st.Ping,
			"transport": func(context.Context) error {
				if transport == nil || !transport.Connected() {
					return errors.New("transport offline")
				}
				return nil
			},
		}, health.DefaultInterval, logger)
		go func() {
			if err := hs.Run(ctx); err != nil {
				logger.Error(ctx, "health server error", "error", err)
			}
		}()
	}

	// HTTP
	srv := httpapi.NewServer(httpapi.Dependencies{
		Logger:    logger,
		Addr:      cfg.HTTPAddr,
		Access:    access,
		Readers:   readers,
		Workflow:  wf,
		Camera:    cam,
		Images:    images,
		Transport: transportStatus,
		Hub:       hub,
		JWTSecret: []byte(cfg.Auth.JWTSecret),
	})

	errCh := make(chan error, 1)
	go func() {
		logger.Info(ctx, "listening", "addr", cfg.HTTPAddr)
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func deviceFactory(c config.CameraConfig) camera.DeviceFactory {
	return func(index int) (camera.Device, error) {
		switch c.Source {
		case "file":
			return camera.NewFileDevice(c.FilePath), nil
		default:
			path := c.DevicePath
			if path == "" {
				path = fmt.Sprintf("/dev/video%d", index)
			}
			return camera.NewFFmpegDevice(path, c.Width, c.Height), nil
		}
	}
}

func buildImageStore(ctx context.Context, c config.ImageConfig) (imagestore.Store, error) {
	switch c.Backend {
	case "s3":
		s, err := imagestore.NewS3(ctx, imagestore.S3Config{
			Bucket:    c.Bucket,
			Region:    c.Region,
			Endpoint:  c.Endpoint,
			AccessKey: c.Access,
			SecretKey: c.Secret,
		})
		if err != nil {
			return nil, fmt.Errorf("image store: %w", err)
		}
		return s, nil
	case "none":
		return imagestore.Nop{}, nil
	default:
		l, err := imagestore.NewLocal(c.Dir)
		if err != nil {
			return nil, fmt.Errorf("image store: %w", err)
		}
		return l, nil
	}
}
