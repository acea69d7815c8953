package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/collabmd/server/internal/auditlog"
	"github.com/collabmd/server/internal/batch"
	"github.com/collabmd/server/internal/config"
	"github.com/collabmd/server/internal/document"
	"github.com/collabmd/server/internal/editapi"
	"github.com/collabmd/server/internal/queue"
	"github.com/collabmd/server/internal/registry"
	"github.com/collabmd/server/internal/roles"
	"github.com/collabmd/server/internal/snapshot"
	"github.com/collabmd/server/internal/transport"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
)

func main() {
	cliIntervalMS := 0
	if len(os.Args) > 1 {
		v, err := strconv.Atoi(os.Args[1])
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid broadcast interval argument %q: %v\n", os.Args[1], err)
			os.Exit(1)
		}
		cliIntervalMS = v
	}

	cfg, err := config.Load(cliIntervalMS)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Log.Level),
	}))

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	doc := document.New()
	svc := editapi.NewService()
	roleStore := roles.New(cfg.Roles.Path)
	reg := registry.New(roleStore, cfg.Server.SessionCapacity, logger)
	q := queue.New[batch.Record](cfg.Server.QueueCapacity, queue.OverflowDropOldest)

	auditRepo, err := auditlog.OpenFileRepository(cfg.AuditLog.Path)
	if err != nil {
		return fmt.Errorf("open audit log: %w", err)
	}
	defer auditRepo.Close()
	audit := auditlog.NewService(auditRepo, logger)

	snap := snapshot.New(doc, cfg.Snapshot.Path)

	promReg := prometheus.NewRegistry()
	loop := batch.NewLoop(q, doc, svc, reg, audit, cfg.BroadcastIntervalDuration(), promReg, logger)

	srv, err := transport.Listen(cfg.Server.ListenAddr, q, doc, reg, audit, snap, logger)
	if err != nil {
		return fmt.Errorf("start transport: %w", err)
	}

	// Printed on startup so an operator or wrapper script can discover
	// where the server is listening.
	fmt.Println(srv.Addr())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return loop.Run(gctx)
	})
	g.Go(func() error {
		return srv.Serve(gctx)
	})
	g.Go(func() error {
		return serveMetrics(gctx, promReg, logger)
	})
	g.Go(func() error {
		return runOperatorLoop(gctx, cancel, reg, logger)
	})

	go func() {
		select {
		case <-stop:
			logger.Info("shutting down")
			cancel()
		case <-gctx.Done():
		}
	}()

	waitErr := g.Wait()
	if err := snap.Write(); err != nil {
		logger.Error("final snapshot failed", "error", err)
	}
	if waitErr != nil && waitErr != context.Canceled {
		return waitErr
	}
	return nil
}

// serveMetrics exposes Prometheus metrics on a loopback debug listener.
func serveMetrics(ctx context.Context, reg *prometheus.Registry, logger *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	server := &http.Server{Addr: "127.0.0.1:9090", Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("metrics server error", "error", err)
	}
	return nil
}

// runOperatorLoop reads operator commands from stdin. QUIT is refused
// while any session is active. A clean QUIT calls cancel itself: returning
// nil from an errgroup member does not cancel the group's derived context,
// so without this call the other goroutines (batch loop, transport accept
// loop) would keep running forever and g.Wait() would never return.
func runOperatorLoop(ctx context.Context, cancel context.CancelFunc, reg *registry.Registry, logger *slog.Logger) error {
	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				cancel()
				return nil
			}
			if line != "QUIT" {
				continue
			}
			if n := reg.Count(); n > 0 {
				logger.Warn("QUIT refused, sessions active", "count", n)
				continue
			}
			cancel()
			return nil
		}
	}
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
