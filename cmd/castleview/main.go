// Package main is the entry point for the castle scene viewer.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"go.uber.org/zap"

	"github.com/Faultbox/castleview/internal/assets"
	"github.com/Faultbox/castleview/internal/config"
	"github.com/Faultbox/castleview/internal/engine/input"
	"github.com/Faultbox/castleview/internal/engine/renderer"
	"github.com/Faultbox/castleview/internal/engine/window"
	"github.com/Faultbox/castleview/internal/loader"
	"github.com/Faultbox/castleview/internal/logger"
	"github.com/Faultbox/castleview/internal/viewer"
)

func init() {
	// SDL and OpenGL calls must stay on the main thread
	runtime.LockOSThread()
}

func main() {
	config.ParseFlags()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if config.WriteConfigRequested() {
		path, err := cfg.Save()
		if err != nil {
			logger.Error("failed to write config", zap.Error(err))
			os.Exit(1)
		}
		logger.Info("config written", zap.String("path", path))
		return
	}

	logger.Info("=== Castle Viewer ===")
	logger.Sugar.Debugf("Config: %+v", cfg)

	if err := run(cfg); err != nil {
		logger.Error("viewer error", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
	logger.Info("viewer closed normally")
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	win, err := window.New(window.Config{
		Title:      cfg.Window.Title,
		Width:      cfg.Window.Width,
		Height:     cfg.Window.Height,
		Fullscreen: cfg.Window.Fullscreen,
		VSync:      cfg.Window.VSync,
	})
	if err != nil {
		return err
	}
	surf := newSurface(win, input.New())

	dw, dh := win.DrawableSize()
	drawer, err := renderer.New(renderer.Config{Width: dw, Height: dh})
	if err != nil {
		win.Close()
		return err
	}

	var overlay viewer.Overlay
	if cfg.Overlay.ShowFPS {
		ww, wh := win.Size()
		o, err := newFPSOverlay(ww, wh)
		if err != nil {
			logger.Warn("fps overlay disabled", zap.Error(err))
		} else {
			surf.onResize = o.Resize
			overlay = o
		}
	}

	st, err := viewer.NewState(cfg, dw, dh)
	if err != nil {
		drawer.Close()
		win.Close()
		return err
	}

	loop := viewer.NewLoop(st, viewer.Deps{
		Drawer:  drawer,
		Surface: surf,
		Overlay: overlay,
	})

	manager := assets.NewManager()
	defer manager.Close()
	for _, path := range cfg.Assets.Archives {
		if err := manager.AddArchive(path, cfg.Assets.ArchiveRoot); err != nil {
			loop.Close()
			return err
		}
		logger.Info("archive mounted", zap.String("path", path))
	}
	if err := manager.AddDir(cfg.Assets.Dir); err != nil {
		loop.Close()
		return err
	}

	loadCtx, cancelLoads := context.WithCancel(ctx)
	ld := loader.New(manager, loop.Queue())
	viewer.LoadAssets(loadCtx, st, ld, cfg.Assets)

	runErr := loop.Run(ctx)

	// loaders blocked on a full queue give up once the context ends
	cancelLoads()
	ld.Wait()

	hits, misses := manager.Cache().Stats()
	logger.Debug("asset cache", zap.Int("hits", hits), zap.Int("misses", misses))

	if err := loop.Close(); err != nil {
		logger.Warn("shutdown", zap.Error(err))
	}
	return runErr
}
