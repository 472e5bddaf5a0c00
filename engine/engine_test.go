package engine

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-overlay/engine/compositor"
	"github.com/Carmen-Shannon/oxy-overlay/engine/compositor/compositortest"
	"github.com/Carmen-Shannon/oxy-overlay/engine/overlay"
	"github.com/Carmen-Shannon/oxy-overlay/engine/spritesheet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeArray struct {
	layers   uint32
	written  []uint32
	released bool
}

func (a *fakeArray) WriteLayer(_ []byte, region spritesheet.LayerRegion) error {
	a.written = append(a.written, region.Layer)
	return nil
}

func (a *fakeArray) Layers() uint32 { return a.layers }

func (a *fakeArray) Release() { a.released = true }

type fakeRenderer struct {
	comp *compositortest.Compositor

	bindErr   error
	renderErr error
	array     *fakeArray
	bound     *spritesheet.FrameTextureArray
	rendered  []uint32
	released  bool

	// releasedBeforeOverlay records whether Release ran while the overlay still existed.
	releasedBeforeOverlay bool
}

func (r *fakeRenderer) CreateTextureArray(_ string, _, _, layers uint32) (spritesheet.TextureArray, error) {
	r.array = &fakeArray{layers: layers}
	return r.array, nil
}

func (r *fakeRenderer) BindFrames(frames *spritesheet.FrameTextureArray) error {
	if r.bindErr != nil {
		return r.bindErr
	}
	r.bound = frames
	return nil
}

func (r *fakeRenderer) RenderFrame(layer uint32) error {
	if r.renderErr != nil {
		return r.renderErr
	}
	r.rendered = append(r.rendered, layer)
	return nil
}

func (r *fakeRenderer) RenderTarget() compositor.Texture {
	return compositor.Texture{Handle: "render-target", Type: compositor.TextureTypeWebGPU}
}

func (r *fakeRenderer) Release() {
	r.released = true
	if r.comp != nil {
		r.releasedBeforeOverlay = r.comp.Count("DestroyOverlay") == 0
	}
	if r.bound != nil {
		r.bound.Release()
	}
}

type fakeInput struct {
	comp *compositortest.Compositor

	polls       int
	runningFor  int
	closed      bool
	closedAfter bool
}

func (in *fakeInput) PollEvents() { in.polls++ }

func (in *fakeInput) IsRunning() bool {
	return in.runningFor < 0 || in.polls <= in.runningFor
}

func (in *fakeInput) Close() error {
	in.closed = true
	if in.comp != nil {
		in.closedAfter = !in.comp.Connected()
	}
	return nil
}

type recordingObserver struct {
	mu          sync.Mutex
	transitions [][2]State
	frames      []uint32
	onChange    func(from, to State)
}

func (o *recordingObserver) OnStateChange(from, to State) {
	o.mu.Lock()
	o.transitions = append(o.transitions, [2]State{from, to})
	o.mu.Unlock()
	if o.onChange != nil {
		o.onChange(from, to)
	}
}

func (o *recordingObserver) OnFrameAdvance(frame uint32) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.frames = append(o.frames, frame)
}

// writeSheet writes a cols x rows grid of 2x2 frames and returns its path.
func writeSheet(t *testing.T, cols, rows int) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, cols*2, rows*2))
	for y := 0; y < rows*2; y++ {
		for x := 0; x < cols*2; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x), G: uint8(y), A: 255})
		}
	}
	path := filepath.Join(t.TempDir(), "sheet.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
	return path
}

type harness struct {
	engine   Engine
	comp     *compositortest.Compositor
	renderer *fakeRenderer
	input    *fakeInput
	observer *recordingObserver
}

func newHarness(t *testing.T, options ...EngineBuilderOption) *harness {
	t.Helper()
	h := &harness{
		comp:     compositortest.New(),
		observer: &recordingObserver{},
	}
	h.renderer = &fakeRenderer{comp: h.comp}
	h.input = &fakeInput{comp: h.comp, runningFor: -1}
	base := []EngineBuilderOption{
		WithCompositor(h.comp),
		WithRenderer(h.renderer),
		WithInput(h.input),
		WithSpriteSheet(writeSheet(t, 3, 2), 2, 2),
		WithConnectRetryInterval(time.Millisecond),
		WithObserver(h.observer),
	}
	h.engine = NewEngine(append(base, options...)...)
	return h
}

func TestLoad(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.engine.Load(context.Background()))

	assert.Equal(t, StateLoaded, h.engine.State())
	assert.Equal(t, []uint32{0, 1, 2, 3, 4, 5}, h.renderer.array.written)
	require.NotNil(t, h.renderer.bound)
	assert.Equal(t, uint32(6), h.renderer.bound.FrameCount())
	assert.Equal(t, []uint32{0}, h.renderer.rendered)
	assert.Equal(t, []string{
		"Init", "CreateOverlay", "SetOverlayTransformAbsolute", "SetOverlayTexture", "ShowOverlay",
	}, h.comp.Methods())
	assert.Equal(t, [][2]State{{StateUninitialized, StateLoaded}}, h.observer.transitions)
}

func TestLoadRetriesUntilCompositorReady(t *testing.T) {
	h := newHarness(t)
	h.comp.NotReadyAttempts = 3

	require.NoError(t, h.engine.Load(context.Background()))
	assert.Equal(t, 4, h.comp.Count("Init"))
	assert.Equal(t, 3, h.input.polls, "input is polled between attempts")
	assert.Equal(t, StateLoaded, h.engine.State())
}

func TestLoadStopsWaitingWhenInputQuits(t *testing.T) {
	h := newHarness(t)
	h.comp.NotReadyAttempts = 1 << 30
	h.input.runningFor = 2

	err := h.engine.Load(context.Background())
	assert.ErrorIs(t, err, ErrQuitRequested)
	assert.Equal(t, 3, h.comp.Count("Init"))
	assert.Equal(t, 3, h.input.polls)
	assert.Equal(t, StateTerminated, h.engine.State())
	assert.True(t, h.input.closed)
}

func TestLoadCancelledWhileWaiting(t *testing.T) {
	h := newHarness(t, WithConnectRetryInterval(time.Hour))
	h.comp.NotReadyAttempts = 1 << 30

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	err := h.engine.Load(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateTerminated, h.engine.State())
	assert.True(t, h.renderer.released)
	assert.True(t, h.input.closed)
	assert.Equal(t, 0, h.comp.Count("Shutdown"), "never connected")
}

func TestLoadFailures(t *testing.T) {
	cases := []struct {
		name      string
		setup     func(h *harness)
		options   []EngineBuilderOption
		wantErr   error
		wantCalls []string
	}{
		{
			name:      "compositor init fatal",
			setup:     func(h *harness) { h.comp.InitErr = errors.New("runtime missing") },
			wantCalls: []string{"Init"},
		},
		{
			name:      "overlay rejected",
			setup:     func(h *harness) { h.comp.CreateErr = compositor.ErrOverlayCreate },
			wantErr:   compositor.ErrOverlayCreate,
			wantCalls: []string{"Init", "CreateOverlay", "Shutdown"},
		},
		{
			name:      "sprite sheet missing",
			options:   []EngineBuilderOption{WithSpriteSheet(filepath.Join(os.TempDir(), "does-not-exist.png"), 2, 2)},
			wantErr:   spritesheet.ErrDecode,
			wantCalls: []string{"Init", "CreateOverlay", "SetOverlayTransformAbsolute", "HideOverlay", "DestroyOverlay", "Shutdown"},
		},
		{
			name:      "frame larger than sheet",
			options:   []EngineBuilderOption{WithSpriteSheet(writeSheet(t, 1, 1), 4, 4)},
			wantErr:   spritesheet.ErrGeometry,
			wantCalls: []string{"Init", "CreateOverlay", "SetOverlayTransformAbsolute", "HideOverlay", "DestroyOverlay", "Shutdown"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t, tc.options...)
			if tc.setup != nil {
				tc.setup(h)
			}

			err := h.engine.Load(context.Background())
			require.Error(t, err)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
			}
			assert.Equal(t, err, h.engine.Err())
			assert.Equal(t, StateTerminated, h.engine.State())
			assert.Equal(t, tc.wantCalls, h.comp.Methods())
			assert.True(t, h.renderer.released)
			assert.True(t, h.input.closed)

			assert.ErrorIs(t, h.engine.Load(context.Background()), ErrInvalidState)
		})
	}
}

func TestLoadBindFailureReleasesFrames(t *testing.T) {
	h := newHarness(t)
	h.renderer.bindErr = errors.New("out of memory")

	require.Error(t, h.engine.Load(context.Background()))
	require.NotNil(t, h.renderer.array)
	assert.True(t, h.renderer.array.released)
}

func TestTickAdvancesRendersAndSubmits(t *testing.T) {
	h := newHarness(t, WithFrameInterval(100*time.Millisecond))
	require.NoError(t, h.engine.Load(context.Background()))

	assert.ErrorIs(t, h.engine.Tick(0.1), ErrInvalidState, "not running yet")

	// Enter Running without Run so the test owns the tick sequence.
	e := h.engine.(*engine)
	require.True(t, e.transition(StateRunning))
	before := h.comp.Count("SetOverlayTexture")

	require.NoError(t, e.Tick(0.05))
	require.NoError(t, e.Tick(0.05))
	require.NoError(t, e.Tick(1.0))
	for range 5 {
		require.NoError(t, e.Tick(0.1))
	}

	assert.Equal(t, []uint32{0, 0, 1, 2, 3, 4, 5, 0, 1}, h.renderer.rendered)
	assert.Equal(t, []uint32{1, 2, 3, 4, 5, 0, 1}, h.observer.frames)
	assert.Equal(t, uint32(1), h.engine.Frame())
	assert.Equal(t, 8, h.comp.Count("SetOverlayTexture")-before)
}

func TestTickFailureIsFatal(t *testing.T) {
	cases := []struct {
		name    string
		setup   func(h *harness)
		wantErr error
	}{
		{
			name:    "render",
			setup:   func(h *harness) { h.renderer.renderErr = errors.New("device lost") },
			wantErr: nil,
		},
		{
			name:    "submit",
			setup:   func(h *harness) { h.comp.TextureErrs = []error{compositor.ErrTexture} },
			wantErr: overlay.ErrSubmit,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			require.NoError(t, h.engine.Load(context.Background()))
			tc.setup(h)

			err := h.engine.Run(context.Background())
			require.Error(t, err)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
			}
			assert.Equal(t, StateTerminated, h.engine.State())
			assert.Equal(t, err, h.engine.Err())
			assert.Equal(t, [][2]State{
				{StateUninitialized, StateLoaded},
				{StateLoaded, StateRunning},
				{StateRunning, StateShuttingDown},
				{StateShuttingDown, StateTerminated},
			}, h.observer.transitions)
		})
	}
}

func TestRunSubmitsEveryTickWhileRunning(t *testing.T) {
	h := newHarness(t)
	h.input.runningFor = 5

	var callsAtRunning int
	h.observer.onChange = func(_, to State) {
		if to == StateRunning {
			callsAtRunning = len(h.comp.Calls())
		}
	}

	require.NoError(t, h.engine.Load(context.Background()))
	require.NoError(t, h.engine.Run(context.Background()))

	after := h.comp.Calls()[callsAtRunning:]
	var submits, shows int
	for _, c := range after {
		switch c.Method {
		case "SetOverlayTexture":
			submits++
		case "ShowOverlay":
			shows++
		}
	}
	assert.Equal(t, 5, submits)
	assert.Equal(t, 5, shows)
	assert.Equal(t, 6, h.input.polls)
	assert.NoError(t, h.engine.Err())
}

func TestTeardownOrder(t *testing.T) {
	h := newHarness(t)
	h.input.runningFor = 1

	require.NoError(t, h.engine.Load(context.Background()))
	require.NoError(t, h.engine.Run(context.Background()))

	assert.True(t, h.renderer.releasedBeforeOverlay)
	assert.True(t, h.renderer.array.released, "renderer owns the bound frames")
	methods := h.comp.Methods()
	assert.Equal(t, []string{"HideOverlay", "DestroyOverlay", "Shutdown"}, methods[len(methods)-3:])
	assert.True(t, h.input.closedAfter)
	assert.Equal(t, StateTerminated, h.engine.State())
}

func TestRunStopsOnQuitAndContext(t *testing.T) {
	t.Run("quit", func(t *testing.T) {
		h := newHarness(t)
		require.NoError(t, h.engine.Load(context.Background()))

		done := make(chan error, 1)
		go func() { done <- h.engine.Run(context.Background()) }()
		time.Sleep(10 * time.Millisecond)
		h.engine.Quit()
		h.engine.Quit()

		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("run did not stop after quit")
		}
		assert.Equal(t, StateTerminated, h.engine.State())
	})

	t.Run("context", func(t *testing.T) {
		h := newHarness(t, WithRenderFrameLimit(1000))
		require.NoError(t, h.engine.Load(context.Background()))

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		assert.NoError(t, h.engine.Run(ctx))
		assert.Equal(t, StateTerminated, h.engine.State())
	})
}

func TestRunRequiresLoaded(t *testing.T) {
	h := newHarness(t)
	assert.ErrorIs(t, h.engine.Run(context.Background()), ErrInvalidState)
	assert.Equal(t, StateUninitialized, h.engine.State())
}

func TestConcurrentTickRejected(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.engine.Load(context.Background()))
	e := h.engine.(*engine)
	require.True(t, e.transition(StateRunning))

	e.ticking.Store(true)
	assert.ErrorIs(t, e.Tick(0.01), ErrConcurrentTick)
	e.ticking.Store(false)
	assert.NoError(t, e.Tick(0.01))
}

func TestInputQuitStopsTick(t *testing.T) {
	h := newHarness(t)
	h.input.runningFor = 0
	require.NoError(t, h.engine.Load(context.Background()))
	e := h.engine.(*engine)
	require.True(t, e.transition(StateRunning))
	rendered := len(h.renderer.rendered)

	require.NoError(t, e.Tick(0.01))
	assert.True(t, e.quitting())
	assert.Len(t, h.renderer.rendered, rendered, "no render after quit")
}

func TestSubmitRetriesPassedThrough(t *testing.T) {
	h := newHarness(t, WithSubmitterOptions(overlay.WithSubmitRetries(1), overlay.WithRetryBackoff(time.Microsecond)))
	require.NoError(t, h.engine.Load(context.Background()))
	e := h.engine.(*engine)
	require.True(t, e.transition(StateRunning))

	h.comp.TextureErrs = []error{errors.New("busy")}
	assert.NoError(t, e.Tick(0.01))
}

func TestStateTransitions(t *testing.T) {
	cases := []struct {
		from, to State
		want     bool
	}{
		{StateUninitialized, StateLoaded, true},
		{StateUninitialized, StateRunning, false},
		{StateLoaded, StateRunning, true},
		{StateRunning, StateShuttingDown, true},
		{StateUninitialized, StateShuttingDown, true},
		{StateShuttingDown, StateTerminated, true},
		{StateTerminated, StateShuttingDown, false},
		{StateRunning, StateLoaded, false},
	}
	for _, tc := range cases {
		t.Run(tc.from.String()+"->"+tc.to.String(), func(t *testing.T) {
			assert.Equal(t, tc.want, canTransition(tc.from, tc.to))
		})
	}
	assert.Equal(t, "State(9)", State(9).String())
}
