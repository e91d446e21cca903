package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/user/livedrops/internal/announce"
	"github.com/user/livedrops/internal/clock"
	"github.com/user/livedrops/internal/httpapi"
	"github.com/user/livedrops/internal/source"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the livedrops daemon",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

const pidFileName = "livedrops.pid"

func writePIDFile(dataDir string) (string, error) {
	pidPath := filepath.Join(dataDir, pidFileName)
	pid := os.Getpid()
	if err := os.WriteFile(pidPath, []byte(strconv.Itoa(pid)+"\n"), 0644); err != nil {
		return "", fmt.Errorf("write PID file: %w", err)
	}
	return pidPath, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	setupLogging(cfg)

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	pidPath, err := writePIDFile(cfg.DataDir)
	if err != nil {
		return err
	}
	defer os.Remove(pidPath)

	a := newApp(cfg, clock.Real())
	defer a.close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	snap := newSnapshotSource(cfg)
	loadCtx, loadCancel := context.WithTimeout(ctx, 30*time.Second)
	if err := a.engine.Load(loadCtx, snap); err != nil {
		// Push deliveries still arrive; the feed starts empty.
		slog.Warn("initial snapshot failed", "url", cfg.Snapshot.URL, "error", err)
	}
	loadCancel()

	// Announcements
	reg := announce.NewRegistry()
	reg.Register("log:", announce.LogHandler)
	telegramReady := false
	if cfg.Telegram.Token != "" {
		tg, err := announce.NewTelegram(cfg.Telegram.Token)
		if err != nil {
			return fmt.Errorf("create telegram sink: %w", err)
		}
		reg.Register(announce.TelegramPrefix, tg.Deliver)
		telegramReady = true
	} else {
		slog.Warn("telegram announcements disabled (no token)")
	}
	announcer := announce.NewAnnouncer(reg, announceTargets(cfg, telegramReady))
	a.subscribe(announcer.OnReveal)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return announcer.Run(gctx) })

	if cfg.Snapshot.PollSchedule != "" {
		poller := source.NewPoller(snap, a.engine, cfg.Snapshot.PollSchedule)
		if err := poller.Start(); err != nil {
			return fmt.Errorf("start poller: %w", err)
		}
		defer poller.Stop()
	}

	if cfg.MQTT.Broker != "" {
		sub := source.NewMQTTSubscriber(source.MQTTConfig{
			Broker:   cfg.MQTT.Broker,
			ClientID: cfg.MQTT.ClientID,
			Username: cfg.MQTT.Username,
			Password: cfg.MQTT.Password,
			Topic:    cfg.MQTT.Topic,
		}, a.engine)
		g.Go(func() error { return sub.Run(gctx) })
	}

	if cfg.HTTP.Enabled {
		httpServer := &http.Server{
			Addr:              cfg.HTTP.Listen,
			Handler:           httpapi.NewServer(a.engine, a.ambient, a.notifier, a.counters),
			ReadHeaderTimeout: 10 * time.Second,
		}
		g.Go(func() error {
			slog.Info("http server started", "listen", cfg.HTTP.Listen)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return httpServer.Shutdown(shutdownCtx)
		})
	}

	slog.Info("livedrops started",
		"data_dir", cfg.DataDir,
		"log_level", cfg.LogLevel,
		"snapshot_url", cfg.Snapshot.URL,
		"visible", len(a.engine.Snapshot()),
		"pending", a.engine.Pending(),
		"pid_file", pidPath,
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigChan)

	restart := false
wait:
	for {
		select {
		case sig := <-sigChan:
			if sig == syscall.SIGHUP {
				slog.Info("received SIGHUP, restarting")
				restart = true
			} else {
				slog.Info("shutting down", "signal", sig)
			}
			break wait
		case <-gctx.Done():
			break wait
		}
	}

	cancel()
	if err := g.Wait(); err != nil {
		return err
	}
	if restart {
		a.close()
		return reexec(pidPath)
	}
	return nil
}

// reexec replaces the process with a fresh copy of itself.
func reexec(pidPath string) error {
	execPath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("get executable path: %w", err)
	}
	os.Remove(pidPath)
	if err := syscall.Exec(execPath, os.Args, os.Environ()); err != nil {
		return fmt.Errorf("re-exec: %w", err)
	}
	return nil
}
