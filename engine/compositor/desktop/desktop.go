// Package desktop implements the compositor contract on a desktop window, for running the overlay without a VR
// runtime. Visible overlays are drawn over each other into the window surface every time one of them receives a
// texture, and the tracked device list is a fixed, configurable set of poses.
package desktop

import (
	"fmt"
	"log"
	"slices"
	"sync"

	"github.com/Carmen-Shannon/oxy-overlay/common"
	"github.com/Carmen-Shannon/oxy-overlay/engine/compositor"
	"github.com/cogentcore/webgpu/wgpu"
)

// presenter draws overlay textures into the output surface.
type presenter interface {
	// Ready reports whether the surface can currently be drawn to. A minimized window is not ready.
	Ready() bool
	// Present clears the surface and draws the views in order, each stretched over the whole surface.
	Present(views []*wgpu.TextureView) error
	// Release frees the presenter's GPU objects. The views it was given are not released.
	Release()
}

type desktopOverlay struct {
	key       string
	name      string
	visible   bool
	transform common.Matrix34
	texture   *wgpu.TextureView
}

type desktopCompositor struct {
	mu *sync.Mutex

	newPresenter func() (presenter, error)
	presenter    presenter
	connected    bool

	devices  []compositor.Pose
	overlays map[compositor.OverlayHandle]*desktopOverlay
	order    []compositor.OverlayHandle
	next     compositor.OverlayHandle
}

var _ compositor.Compositor = &desktopCompositor{}

// DefaultDevices returns the device list reported when none is configured.
// With trackHMD a head-mounted display occupies slot 0; without it slot 0 holds a tracking reference, so anchoring
// to an HMD has to fall back.
//
// Parameters:
//   - trackHMD: whether slot 0 holds a head-mounted display
//
// Returns:
//   - []compositor.Pose: one connected device at slot 0 with an identity pose
func DefaultDevices(trackHMD bool) []compositor.Pose {
	class := compositor.DeviceClassTrackingReference
	if trackHMD {
		class = compositor.DeviceClassHMD
	}
	return []compositor.Pose{{
		Device:           0,
		Class:            class,
		Connected:        true,
		Valid:            true,
		DeviceToAbsolute: common.Identity34(),
	}}
}

// NewCompositor creates a desktop compositor. It does not touch the GPU until Init.
// WithGPUContext is required unless a presenter is injected.
//
// Parameters:
//   - options: functional options for the compositor
//
// Returns:
//   - compositor.Compositor: the desktop compositor
func NewCompositor(options ...CompositorBuilderOption) compositor.Compositor {
	c := &desktopCompositor{
		mu:       &sync.Mutex{},
		devices:  DefaultDevices(true),
		overlays: make(map[compositor.OverlayHandle]*desktopOverlay),
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

func (c *desktopCompositor) Init() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.connected {
		return nil
	}
	if c.presenter == nil {
		if c.newPresenter == nil {
			return fmt.Errorf("desktop compositor has no GPU context to present with")
		}
		p, err := c.newPresenter()
		if err != nil {
			return err
		}
		c.presenter = p
	}
	if !c.presenter.Ready() {
		return fmt.Errorf("%w: window surface has no area", compositor.ErrNotReady)
	}
	c.connected = true
	log.Printf("[Compositor] desktop compositor ready with %d tracked device(s)", len(c.devices))
	return nil
}

func (c *desktopCompositor) Shutdown() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected {
		return compositor.ErrNotConnected
	}
	c.connected = false
	clear(c.overlays)
	c.order = nil
	if c.presenter != nil {
		c.presenter.Release()
		c.presenter = nil
	}
	return nil
}

func (c *desktopCompositor) CreateOverlay(key, name string) (compositor.OverlayHandle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected {
		return compositor.InvalidOverlayHandle, compositor.ErrNotConnected
	}
	if key == "" {
		return compositor.InvalidOverlayHandle, fmt.Errorf("%w: empty key", compositor.ErrOverlayCreate)
	}
	for _, o := range c.overlays {
		if o.key == key {
			return compositor.InvalidOverlayHandle, fmt.Errorf("%w: key %q is in use", compositor.ErrOverlayCreate, key)
		}
	}

	c.next++
	c.overlays[c.next] = &desktopOverlay{
		key:       key,
		name:      name,
		transform: common.Identity34(),
	}
	c.order = append(c.order, c.next)
	return c.next, nil
}

func (c *desktopCompositor) DestroyOverlay(h compositor.OverlayHandle) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.overlay(h); err != nil {
		return err
	}
	delete(c.overlays, h)
	c.order = slices.DeleteFunc(c.order, func(o compositor.OverlayHandle) bool { return o == h })
	return nil
}

func (c *desktopCompositor) ShowOverlay(h compositor.OverlayHandle) error {
	return c.setVisible(h, true)
}

func (c *desktopCompositor) HideOverlay(h compositor.OverlayHandle) error {
	return c.setVisible(h, false)
}

func (c *desktopCompositor) setVisible(h compositor.OverlayHandle, visible bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	o, err := c.overlay(h)
	if err != nil {
		return err
	}
	o.visible = visible
	return nil
}

func (c *desktopCompositor) SetOverlayTransformAbsolute(h compositor.OverlayHandle, transform common.Matrix34) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	o, err := c.overlay(h)
	if err != nil {
		return err
	}
	o.transform = transform
	return nil
}

func (c *desktopCompositor) SetOverlayTexture(h compositor.OverlayHandle, tex compositor.Texture) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	o, err := c.overlay(h)
	if err != nil {
		return err
	}
	if tex.Type != compositor.TextureTypeWebGPU {
		return fmt.Errorf("%w: unsupported texture type %d", compositor.ErrTexture, tex.Type)
	}
	view, ok := tex.Handle.(*wgpu.TextureView)
	if !ok || view == nil {
		return fmt.Errorf("%w: handle is not a texture view", compositor.ErrTexture)
	}
	o.texture = view

	if !c.presenter.Ready() {
		return nil
	}
	if err := c.presenter.Present(c.visibleViews()); err != nil {
		return fmt.Errorf("%w: %w", compositor.ErrTexture, err)
	}
	return nil
}

func (c *desktopCompositor) TrackedDevicesOfClass(class compositor.DeviceClass) []compositor.DeviceIndex {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []compositor.DeviceIndex
	for _, p := range c.devices {
		if p.Connected && p.Class == class {
			out = append(out, p.Device)
		}
	}
	return out
}

func (c *desktopCompositor) DevicePoses() []compositor.Pose {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.devices)
}

// overlay resolves a handle. Callers hold mu.
func (c *desktopCompositor) overlay(h compositor.OverlayHandle) (*desktopOverlay, error) {
	if !c.connected {
		return nil, compositor.ErrNotConnected
	}
	o, ok := c.overlays[h]
	if !ok {
		return nil, fmt.Errorf("%w: %d", compositor.ErrInvalidHandle, h)
	}
	return o, nil
}

// visibleViews lists the textures of visible overlays in creation order. Callers hold mu.
func (c *desktopCompositor) visibleViews() []*wgpu.TextureView {
	views := make([]*wgpu.TextureView, 0, len(c.order))
	for _, h := range c.order {
		if o := c.overlays[h]; o.visible && o.texture != nil {
			views = append(views, o.texture)
		}
	}
	return views
}
