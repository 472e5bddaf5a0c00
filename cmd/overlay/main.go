// Command overlay plays a sprite-sheet animation on a compositor overlay anchored to a tracked device.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/Carmen-Shannon/oxy-overlay/common"
	"github.com/Carmen-Shannon/oxy-overlay/config"
	"github.com/Carmen-Shannon/oxy-overlay/engine"
	"github.com/Carmen-Shannon/oxy-overlay/engine/compositor/desktop"
	"github.com/Carmen-Shannon/oxy-overlay/engine/overlay"
	"github.com/Carmen-Shannon/oxy-overlay/engine/renderer"
	"github.com/Carmen-Shannon/oxy-overlay/engine/spritesheet"
	"github.com/Carmen-Shannon/oxy-overlay/engine/telemetry"
	"github.com/Carmen-Shannon/oxy-overlay/engine/window"
)

func init() {
	// GLFW and the GPU surface must stay on the main thread.
	runtime.LockOSThread()
}

func main() {
	configPath := flag.String("config", "", "YAML config file (defaults are used when empty)")
	sheet := flag.String("sheet", "", "sprite sheet image, overrides sprite_sheet.path")
	frameWidth := flag.Int("frame-width", 0, "frame width in pixels, overrides sprite_sheet.frame_width")
	frameHeight := flag.Int("frame-height", 0, "frame height in pixels, overrides sprite_sheet.frame_height")
	interval := flag.Float64("interval", 0, "seconds per frame, overrides sprite_sheet.frame_interval")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		exit(err)
	}
	cfg.SpriteSheet.Path = common.Coalesce(*sheet, cfg.SpriteSheet.Path)
	cfg.SpriteSheet.FrameWidth = common.Coalesce(*frameWidth, cfg.SpriteSheet.FrameWidth)
	cfg.SpriteSheet.FrameHeight = common.Coalesce(*frameHeight, cfg.SpriteSheet.FrameHeight)
	cfg.SpriteSheet.FrameInterval = common.Coalesce(*interval, cfg.SpriteSheet.FrameInterval)
	if err := cfg.Validate(); err != nil {
		exit(err)
	}

	if err := run(cfg); err != nil {
		exit(err)
	}
}

func run(cfg config.Config) error {
	clearColor, err := cfg.ClearColor()
	if err != nil {
		return err
	}

	w, err := window.NewWindow(
		window.WithTitle(cfg.Window.Title),
		window.WithSize(cfg.Window.Width, cfg.Window.Height),
	)
	if err != nil {
		return err
	}

	r, err := renderer.NewRenderer(
		renderer.BackendTypeWGPU,
		renderer.WithSurface(w),
		renderer.WithForceSoftwareRenderer(cfg.Renderer.ForceSoftware),
		renderer.WithClearColor(clearColor),
	)
	if err != nil {
		w.Close()
		return err
	}

	comp := desktop.NewCompositor(
		desktop.WithGPUContext(r.GPUContext(), w),
		desktop.WithTrackedDevices(desktop.DefaultDevices(cfg.Compositor.TrackHMD)...),
	)

	options := []engine.EngineBuilderOption{
		engine.WithCompositor(comp),
		engine.WithRenderer(r),
		engine.WithInput(w),
		engine.WithLoader(spritesheet.NewLoader(
			spritesheet.WithAllocator(r),
			spritesheet.WithFlipWorkers(cfg.SpriteSheet.FlipWorkers),
		)),
		engine.WithSpriteSheet(cfg.SpriteSheet.Path, cfg.SpriteSheet.FrameWidth, cfg.SpriteSheet.FrameHeight),
		engine.WithFrameInterval(cfg.FrameInterval()),
		engine.WithOverlay(cfg.Overlay.Key, cfg.Overlay.Name),
		engine.WithAnchor(cfg.AnchorClass()),
		engine.WithSubmitterOptions(
			overlay.WithSubmitRetries(cfg.Overlay.SubmitRetries),
			overlay.WithAnchorOffset(cfg.Overlay.AnchorOffset),
		),
		engine.WithConnectRetryInterval(cfg.Compositor.RetryInterval),
		engine.WithRenderFrameLimit(cfg.Renderer.FrameLimit),
		engine.WithProfiling(cfg.Profiling),
	}

	if cfg.Telemetry.Broker != "" {
		pub, err := telemetry.NewPublisher(
			telemetry.WithBroker(cfg.Telemetry.Broker),
			telemetry.WithTopic(cfg.Telemetry.Topic),
			telemetry.WithClientID(cfg.Telemetry.ClientID),
			telemetry.WithCredentials(cfg.Telemetry.Username, cfg.Telemetry.Password),
		)
		if err != nil {
			log.Printf("[Telemetry] disabled: %v", err)
		} else {
			defer pub.Close()
			options = append(options, engine.WithObserver(pub))
		}
	}

	eng := engine.NewEngine(options...)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := eng.Load(ctx); err != nil {
		return err
	}
	return eng.Run(ctx)
}

func exit(err error) {
	fmt.Fprintf(os.Stderr, "overlay: %v\n", err)
	os.Exit(1)
}
