package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/oxy-overlay/engine/compositor"
	"github.com/Carmen-Shannon/oxy-overlay/engine/overlay"
	"github.com/Carmen-Shannon/oxy-overlay/engine/profiler"
	"github.com/Carmen-Shannon/oxy-overlay/engine/renderer/animator"
	"github.com/Carmen-Shannon/oxy-overlay/engine/spritesheet"
)

var (
	// ErrInvalidState is returned when an operation is called in the wrong lifecycle state.
	ErrInvalidState = errors.New("invalid engine state")

	// ErrConcurrentTick is returned when Tick is entered while another Tick is still running.
	// Rendering and submission are ordered only by running on one thread, so overlapping ticks are a bug.
	ErrConcurrentTick = errors.New("concurrent tick")

	// ErrQuitRequested is returned by Load when the input source asks to quit before the compositor connected.
	ErrQuitRequested = errors.New("quit requested")
)

// InputSource polls platform events and reports the quit signal. window.Window satisfies it.
type InputSource interface {
	PollEvents()
	IsRunning() bool
	Close() error
}

// FrameRenderer draws sprite frames into the render target handed to the compositor. renderer.Renderer satisfies it.
type FrameRenderer interface {
	spritesheet.Allocator
	BindFrames(frames *spritesheet.FrameTextureArray) error
	RenderFrame(layer uint32) error
	RenderTarget() compositor.Texture
	Release()
}

// Engine is the application loop: it connects to the compositor, loads the sprite sheet, then per tick advances the
// animation clock, renders the current frame and submits it to the overlay.
//
// All methods except Quit, State and Err must be called from the thread that owns the GPU context.
type Engine interface {
	// Load connects to the compositor, retrying every retry interval while it reports compositor.ErrNotReady, then
	// creates and anchors the overlay, loads the sprite sheet, binds it to the renderer and shows the first frame.
	// On failure everything created so far is torn down and the engine ends Terminated.
	//
	// Parameters:
	//   - ctx: cancels the connection retry loop
	//
	// Returns:
	//   - error: ErrInvalidState unless Uninitialized, ctx.Err() if cancelled or ErrQuitRequested if the input quit
	//     while waiting, or the fatal error
	Load(ctx context.Context) error

	// Run ticks until Quit is called, ctx is cancelled, the input source stops running or a tick fails, then tears
	// everything down.
	//
	// Parameters:
	//   - ctx: cancelling it quits the loop
	//
	// Returns:
	//   - error: ErrInvalidState unless Loaded, otherwise the fatal error that stopped the loop or nil
	Run(ctx context.Context) error

	// Tick runs one update, render and submit cycle. Run calls it once per iteration while Running.
	// A failing tick records the error and signals quit.
	//
	// Parameters:
	//   - deltaSeconds: time since the previous tick
	//
	// Returns:
	//   - error: ErrConcurrentTick, ErrInvalidState unless Running, or the render or submit error
	Tick(deltaSeconds float64) error

	// Quit signals the loop to stop. Safe to call multiple times and from any goroutine.
	Quit()

	// State returns the current lifecycle state.
	//
	// Returns:
	//   - State: the state
	State() State

	// Err returns the first fatal error, or nil.
	//
	// Returns:
	//   - error: the recorded error
	Err() error

	// Frame returns the animation frame drawn by the last tick.
	//
	// Returns:
	//   - uint32: the frame index
	Frame() uint32

	// AddObserver registers an observer for state changes and frame advances.
	//
	// Parameters:
	//   - o: the observer
	AddObserver(o Observer)
}

type engine struct {
	mu    *sync.Mutex
	state State
	err   error

	quitChannel chan struct{}
	quitOnce    sync.Once
	ticking     atomic.Bool

	compositor compositor.Compositor
	input      InputSource
	renderer   FrameRenderer
	loader     spritesheet.Loader

	connectRetryInterval time.Duration
	connected            bool

	overlayKey       string
	overlayName      string
	anchorClass      compositor.DeviceClass
	submitterOptions []overlay.SubmitterBuilderOption
	submitter        overlay.Submitter

	sheetPath     string
	frameWidth    int
	frameHeight   int
	frameInterval time.Duration
	clock         animator.Animator

	observers []Observer

	profiler         *profiler.Profiler
	profilingEnabled bool
	renderFrameLimit time.Duration

	tornDown bool
}

var _ Engine = &engine{}

// NewEngine creates an Engine. WithCompositor and WithRenderer are required before Load.
//
// Parameters:
//   - options: functional options for engine configuration
//
// Returns:
//   - Engine: the new engine, Uninitialized
func NewEngine(options ...EngineBuilderOption) Engine {
	e := &engine{
		mu:                   &sync.Mutex{},
		state:                StateUninitialized,
		quitChannel:          make(chan struct{}),
		connectRetryInterval: 500 * time.Millisecond,
		overlayKey:           "oxy.overlay.animation",
		overlayName:          "Anim Test",
		anchorClass:          compositor.DeviceClassHMD,
		sheetPath:            "Tiles/sheet1.png",
		frameWidth:           233,
		frameHeight:          233,
		frameInterval:        animator.DefaultFrameInterval,
		profiler:             profiler.NewProfiler(),
	}
	for _, opt := range options {
		opt(e)
	}
	if e.loader == nil && e.renderer != nil {
		e.loader = spritesheet.NewLoader(spritesheet.WithAllocator(e.renderer))
	}
	return e
}

func (e *engine) Load(ctx context.Context) error {
	if s := e.State(); s != StateUninitialized {
		return fmt.Errorf("%w: load called while %s", ErrInvalidState, s)
	}
	if err := e.load(ctx); err != nil {
		e.fail(err)
		e.shutdown()
		return err
	}
	e.transition(StateLoaded)
	return nil
}

func (e *engine) load(ctx context.Context) error {
	switch {
	case e.compositor == nil:
		return errors.New("engine has no compositor")
	case e.renderer == nil:
		return errors.New("engine has no renderer")
	case e.loader == nil:
		return errors.New("engine has no sprite sheet loader")
	}

	if err := e.connect(ctx); err != nil {
		return err
	}

	e.submitter = overlay.NewSubmitter(e.compositor, e.submitterOptions...)
	if _, err := e.submitter.Create(e.overlayKey, e.overlayName); err != nil {
		return err
	}
	if _, err := e.submitter.AnchorToDevice(e.anchorClass); err != nil {
		return err
	}

	frames, err := e.loader.Load(e.sheetPath, e.frameWidth, e.frameHeight)
	if err != nil {
		return err
	}
	if err := e.renderer.BindFrames(frames); err != nil {
		frames.Release()
		return err
	}
	e.clock = animator.NewAnimator(frames.FrameCount(), animator.WithFrameInterval(e.frameInterval))

	if err := e.renderer.RenderFrame(e.clock.Frame()); err != nil {
		return fmt.Errorf("render first frame: %w", err)
	}
	if err := e.submitter.SetTexture(e.renderer.RenderTarget()); err != nil {
		return err
	}
	return e.submitter.Show()
}

// connect polls Init until the compositor is available. Only compositor.ErrNotReady is retried.
func (e *engine) connect(ctx context.Context) error {
	for attempt := 1; ; attempt++ {
		err := e.compositor.Init()
		if err == nil {
			e.connected = true
			log.Printf("[Engine] connected to compositor after %d attempt(s)", attempt)
			return nil
		}
		if !errors.Is(err, compositor.ErrNotReady) {
			return fmt.Errorf("connect to compositor: %w", err)
		}
		log.Printf("[Engine] waiting for compositor (attempt %d): %v", attempt, err)

		timer := time.NewTimer(e.connectRetryInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		// Window resizes only arrive through polling, and the compositor may be waiting on one.
		if e.input != nil {
			e.input.PollEvents()
			if !e.input.IsRunning() {
				return fmt.Errorf("%w: quit while waiting for compositor", ErrQuitRequested)
			}
		}
	}
}

func (e *engine) Run(ctx context.Context) error {
	if s := e.State(); s != StateLoaded {
		return fmt.Errorf("%w: run called while %s", ErrInvalidState, s)
	}
	e.transition(StateRunning)
	e.profiler.Reset()

	stop := context.AfterFunc(ctx, e.Quit)
	defer stop()

	last := time.Now()
	for !e.quitting() {
		now := time.Now()
		dt := now.Sub(last).Seconds()
		last = now

		if err := e.Tick(dt); err != nil {
			e.fail(err)
			break
		}

		if e.profilingEnabled {
			e.profiler.Tick()
		}

		if e.renderFrameLimit > 0 {
			if remaining := e.renderFrameLimit - time.Since(now); remaining > 0 {
				time.Sleep(remaining)
			}
		}
	}

	e.shutdown()
	return e.Err()
}

func (e *engine) Tick(deltaSeconds float64) error {
	if !e.ticking.CompareAndSwap(false, true) {
		return ErrConcurrentTick
	}
	defer e.ticking.Store(false)

	if s := e.State(); s != StateRunning {
		return fmt.Errorf("%w: tick called while %s", ErrInvalidState, s)
	}

	if e.input != nil {
		e.input.PollEvents()
		if !e.input.IsRunning() {
			log.Printf("[Engine] quit requested by input")
			e.Quit()
			return nil
		}
	}

	frame, advanced := e.clock.Advance(deltaSeconds)
	if advanced {
		e.profiler.FrameAdvanced()
		for _, o := range e.observerList() {
			o.OnFrameAdvance(frame)
		}
	}

	// Submission must follow the render on this thread; there is no fence between them.
	if err := e.renderer.RenderFrame(frame); err != nil {
		err = fmt.Errorf("render frame %d: %w", frame, err)
		e.fail(err)
		return err
	}
	if err := e.submitter.Submit(e.renderer.RenderTarget()); err != nil {
		e.fail(err)
		return err
	}
	return nil
}

func (e *engine) Quit() {
	e.quitOnce.Do(func() {
		close(e.quitChannel)
	})
}

func (e *engine) quitting() bool {
	select {
	case <-e.quitChannel:
		return true
	default:
		return false
	}
}

func (e *engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *engine) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.err
}

func (e *engine) Frame() uint32 {
	if e.clock == nil {
		return 0
	}
	return e.clock.Frame()
}

func (e *engine) AddObserver(o Observer) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.observers = append(e.observers, o)
}

func (e *engine) observerList() []Observer {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Observer(nil), e.observers...)
}

// fail records the first fatal error and signals quit.
func (e *engine) fail(err error) {
	e.mu.Lock()
	if e.err == nil {
		e.err = err
		log.Printf("[Engine] fatal: %v", err)
	}
	e.mu.Unlock()
	e.Quit()
}

// transition moves to the next state and notifies observers. Invalid edges are ignored and logged.
func (e *engine) transition(to State) bool {
	e.mu.Lock()
	from := e.state
	if !canTransition(from, to) {
		e.mu.Unlock()
		log.Printf("[Engine] ignoring transition %s -> %s", from, to)
		return false
	}
	e.state = to
	observers := append([]Observer(nil), e.observers...)
	e.mu.Unlock()

	log.Printf("[Engine] %s -> %s", from, to)
	for _, o := range observers {
		o.OnStateChange(from, to)
	}
	return true
}

// shutdown releases everything in dependency order: GPU objects first, then the overlay, the compositor
// connection and finally the window.
func (e *engine) shutdown() {
	if !e.transition(StateShuttingDown) || e.tornDown {
		return
	}
	e.tornDown = true

	// The renderer goes first on purpose even though the compositor's presenter holds pipelines created on its
	// device. wgpu handles are reference counted, so the device lives until the presenter releases them.
	if e.renderer != nil {
		e.renderer.Release()
	}
	if e.submitter != nil {
		if err := e.submitter.Release(); err != nil {
			log.Printf("[Engine] failed to release overlay: %v", err)
		}
	}
	if e.connected {
		if err := e.compositor.Shutdown(); err != nil {
			log.Printf("[Engine] failed to shut down compositor: %v", err)
		}
		e.connected = false
	}
	if e.input != nil {
		if err := e.input.Close(); err != nil {
			log.Printf("[Engine] failed to close input: %v", err)
		}
	}

	e.transition(StateTerminated)
}
