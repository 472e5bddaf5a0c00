package engine

import (
	"time"

	"github.com/Carmen-Shannon/oxy-overlay/engine/compositor"
	"github.com/Carmen-Shannon/oxy-overlay/engine/overlay"
	"github.com/Carmen-Shannon/oxy-overlay/engine/spritesheet"
)

// EngineBuilderOption is a functional option for configuring an Engine.
// Use the With* functions to create options that are applied directly to the engine instance.
type EngineBuilderOption func(*engine)

// WithCompositor sets the compositor the overlay is created in. The engine connects it in Load and shuts it down
// during teardown.
//
// Parameters:
//   - c: the compositor
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithCompositor(c compositor.Compositor) EngineBuilderOption {
	return func(e *engine) {
		e.compositor = c
	}
}

// WithRenderer sets the renderer that allocates, binds and draws the sprite frames. The engine releases it during
// teardown.
//
// Parameters:
//   - r: the renderer
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRenderer(r FrameRenderer) EngineBuilderOption {
	return func(e *engine) {
		e.renderer = r
	}
}

// WithInput sets the source of the quit signal, usually the window. The engine polls it every tick and closes it
// last during teardown. Without one the engine runs until Quit or context cancellation.
//
// Parameters:
//   - in: the input source
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithInput(in InputSource) EngineBuilderOption {
	return func(e *engine) {
		e.input = in
	}
}

// WithLoader replaces the sprite sheet loader. By default one is created that allocates through the renderer.
//
// Parameters:
//   - l: the loader
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithLoader(l spritesheet.Loader) EngineBuilderOption {
	return func(e *engine) {
		e.loader = l
	}
}

// WithSpriteSheet sets the sprite sheet image and the size of one frame.
//
// Parameters:
//   - path: the image path
//   - frameWidth: frame width in pixels
//   - frameHeight: frame height in pixels
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithSpriteSheet(path string, frameWidth, frameHeight int) EngineBuilderOption {
	return func(e *engine) {
		e.sheetPath = path
		e.frameWidth = frameWidth
		e.frameHeight = frameHeight
	}
}

// WithFrameInterval sets how long each animation frame is shown. Values <= 0 keep the default of 100ms.
//
// Parameters:
//   - d: the frame interval
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithFrameInterval(d time.Duration) EngineBuilderOption {
	return func(e *engine) {
		if d > 0 {
			e.frameInterval = d
		}
	}
}

// WithOverlay sets the overlay key and display name.
//
// Parameters:
//   - key: the unique overlay key
//   - name: the overlay title
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithOverlay(key, name string) EngineBuilderOption {
	return func(e *engine) {
		e.overlayKey = key
		e.overlayName = name
	}
}

// WithAnchor sets the class of the device the overlay is anchored to. Defaults to the head-mounted display.
//
// Parameters:
//   - class: the anchor device class
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithAnchor(class compositor.DeviceClass) EngineBuilderOption {
	return func(e *engine) {
		e.anchorClass = class
	}
}

// WithSubmitterOptions passes options to the overlay submitter created in Load.
//
// Parameters:
//   - options: submitter options such as overlay.WithSubmitRetries
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithSubmitterOptions(options ...overlay.SubmitterBuilderOption) EngineBuilderOption {
	return func(e *engine) {
		e.submitterOptions = append(e.submitterOptions, options...)
	}
}

// WithConnectRetryInterval sets the pause between compositor connection attempts. Defaults to 500ms.
//
// Parameters:
//   - d: the retry interval
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithConnectRetryInterval(d time.Duration) EngineBuilderOption {
	return func(e *engine) {
		if d > 0 {
			e.connectRetryInterval = d
		}
	}
}

// WithObserver registers an observer during construction.
//
// Parameters:
//   - o: the observer
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithObserver(o Observer) EngineBuilderOption {
	return func(e *engine) {
		e.observers = append(e.observers, o)
	}
}

// WithProfiling enables or disables performance profiling output.
//
// Parameters:
//   - enabled: if true, enables performance profiling
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiling(enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.profilingEnabled = enabled
	}
}

// WithRenderFrameLimit sets an optional tick rate cap in frames per second.
// Pass 0 to uncap the loop (default).
//
// Parameters:
//   - fps: maximum ticks per second (0 = uncapped)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRenderFrameLimit(fps float64) EngineBuilderOption {
	return func(e *engine) {
		if fps <= 0 {
			e.renderFrameLimit = 0
			return
		}
		e.renderFrameLimit = time.Duration(float64(time.Second) / fps)
	}
}
