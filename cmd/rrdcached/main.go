// rrdcached buffers time-series samples in an in-memory accumulator
// cache and flushes them to on-disk RRD files through a single writer
// goroutine, coalescing bursts of updates to the same file into one
// disk write. See internal/core for the write path this binary wires
// together.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/xtxerr/rrdcached/internal/audit"
	"github.com/xtxerr/rrdcached/internal/backpressure"
	"github.com/xtxerr/rrdcached/internal/config"
	"github.com/xtxerr/rrdcached/internal/control"
	"github.com/xtxerr/rrdcached/internal/core"
	"github.com/xtxerr/rrdcached/internal/history"
	"github.com/xtxerr/rrdcached/internal/logging"
	"github.com/xtxerr/rrdcached/internal/opstats"
	"github.com/xtxerr/rrdcached/internal/poller"
	"github.com/xtxerr/rrdcached/internal/rrdlib"
)

var version = "dev"

func main() {
	cfgPath := flag.String("config", "/etc/rrdcached/config.yaml", "config file path")
	debug := flag.Bool("debug", false, "enable debug logging")
	jsonLogs := flag.Bool("json", false, "emit logs as JSON")
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logging.Init(level, *jsonLogs)
	log := logging.Component("main")
	log.Info("rrdcached starting", "version", version)

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Warn("no config file found, using defaults", "path", *cfgPath)
			cfg = config.DefaultConfig()
		} else {
			log.Error("load config", "error", err)
			os.Exit(1)
		}
	}

	ring := history.New(cfg.Audit.RingCapacity)
	stats := opstats.NewStats()
	hooks := newEventHooks(ring, stats)

	updater, creator := newFileRRDStore()

	co := core.Init(core.Config{
		DataDir:      cfg.DataDir,
		CacheTimeout: cfg.Cache.TimeoutSec,
		CacheFlush:   cfg.Cache.FlushTimeoutSec,
		Create: rrdlib.CreateConfig{
			StepSize:    cfg.Create.StepSize,
			HeartBeat:   cfg.Create.HeartBeat,
			RRARows:     cfg.Create.RRARows,
			RRATimespan: cfg.Create.RRATimespan,
			XFF:         cfg.Create.XFF,
		},
	}, updater, creator, hooks.onEvent)

	bp := backpressure.New(backpressure.Config{
		Enabled: cfg.Backpressure.Enabled,
		Thresholds: backpressure.Thresholds{
			Warning:   cfg.Backpressure.Thresholds.Warning,
			Critical:  cfg.Backpressure.Thresholds.Critical,
			Emergency: cfg.Backpressure.Thresholds.Emergency,
		},
		Recovery: backpressure.Recovery{
			Hysteresis: cfg.Backpressure.Recovery.Hysteresis,
			Cooldown:   cfg.Backpressure.Recovery.Cooldown,
		},
	}, co)
	bp.SetOnLevelChange(func(old, next backpressure.Level) {
		log.Warn("backpressure level changed", "from", old, "to", next)
	})

	var ctl *control.Server
	if cfg.ControlSocket != "" {
		ctl = control.New(co, cfg.ControlSocket)
		if err := ctl.ListenAndServe(); err != nil {
			log.Error("control socket", "error", err)
			os.Exit(1)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	group, gctx := errgroup.WithContext(ctx)

	var flusher *audit.Flusher
	if cfg.Audit.Enabled {
		flusher = audit.NewFlusher(ring, cfg.AuditDir(), cfg.Audit.FlushInterval)
		group.Go(func() error {
			flusher.Run()
			return nil
		})
	}

	checkInterval := cfg.Backpressure.Recovery.Cooldown
	if checkInterval <= 0 {
		checkInterval = time.Second
	}
	group.Go(func() error {
		ticker := time.NewTicker(checkInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				bp.Check()
			}
		}
	})

	if cfg.Poller.Enabled {
		p := poller.New(cfg.Poller, co, bp)
		group.Go(func() error {
			p.Run(gctx)
			return nil
		})
	}

	group.Go(func() error {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				hooks.logSnapshot(log)
			}
		}
	})

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		log.Info("signal received, shutting down")
		cancel()
	}()

	<-gctx.Done()
	_ = group.Wait()

	if ctl != nil {
		_ = ctl.Close()
	}
	co.Shutdown()
	hooks.logSnapshot(log)
	if flusher != nil {
		flusher.Stop()
	}
	log.Info("rrdcached stopped")
}
