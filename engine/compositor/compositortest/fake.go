// Package compositortest provides an in-memory compositor that records every call, for testing code that drives a
// compositor.Compositor.
package compositortest

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-overlay/common"
	"github.com/Carmen-Shannon/oxy-overlay/engine/compositor"
)

// Call is one recorded compositor call.
type Call struct {
	Method string
	Handle compositor.OverlayHandle
}

// Compositor is a scripted compositor.Compositor. Set the exported fields before use; all methods are safe for
// concurrent use.
type Compositor struct {
	mu sync.Mutex

	// NotReadyAttempts is the number of Init calls that fail with compositor.ErrNotReady before one succeeds.
	NotReadyAttempts int
	// InitErr, when set, is returned by Init after the not-ready attempts are used up.
	InitErr error
	// CreateErr is returned by CreateOverlay when set.
	CreateErr error
	// TextureErrs are returned by successive SetOverlayTexture calls; nil entries succeed. Calls past the end succeed.
	TextureErrs []error
	// ShowErr is returned by ShowOverlay when set.
	ShowErr error
	// Devices is returned by DevicePoses and filtered by TrackedDevicesOfClass.
	Devices []compositor.Pose
	// OnTexture, when set, runs inside every SetOverlayTexture call and must not call back into the compositor.
	OnTexture func(compositor.Texture)

	connected  bool
	next       compositor.OverlayHandle
	calls      []Call
	inits      int
	visible    map[compositor.OverlayHandle]bool
	transforms map[compositor.OverlayHandle]common.Matrix34
	textures   []compositor.Texture
}

var _ compositor.Compositor = &Compositor{}

// New returns a compositor that connects on the first Init and tracks one HMD at slot 0 with an identity pose.
func New() *Compositor {
	return &Compositor{
		Devices: []compositor.Pose{{
			Device:           0,
			Class:            compositor.DeviceClassHMD,
			Connected:        true,
			Valid:            true,
			DeviceToAbsolute: common.Identity34(),
		}},
	}
}

func (c *Compositor) record(method string, h compositor.OverlayHandle) {
	c.calls = append(c.calls, Call{Method: method, Handle: h})
}

func (c *Compositor) Init() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("Init", 0)
	c.inits++
	if c.inits <= c.NotReadyAttempts {
		return fmt.Errorf("%w: attempt %d", compositor.ErrNotReady, c.inits)
	}
	if c.InitErr != nil {
		return c.InitErr
	}
	c.connected = true
	c.visible = make(map[compositor.OverlayHandle]bool)
	c.transforms = make(map[compositor.OverlayHandle]common.Matrix34)
	return nil
}

func (c *Compositor) Shutdown() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("Shutdown", 0)
	if !c.connected {
		return compositor.ErrNotConnected
	}
	c.connected = false
	return nil
}

func (c *Compositor) CreateOverlay(key, name string) (compositor.OverlayHandle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("CreateOverlay", 0)
	if !c.connected {
		return compositor.InvalidOverlayHandle, compositor.ErrNotConnected
	}
	if c.CreateErr != nil {
		return compositor.InvalidOverlayHandle, c.CreateErr
	}
	c.next++
	c.visible[c.next] = false
	return c.next, nil
}

func (c *Compositor) check(h compositor.OverlayHandle) error {
	if !c.connected {
		return compositor.ErrNotConnected
	}
	if _, ok := c.visible[h]; !ok {
		return fmt.Errorf("%w: %d", compositor.ErrInvalidHandle, h)
	}
	return nil
}

func (c *Compositor) DestroyOverlay(h compositor.OverlayHandle) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("DestroyOverlay", h)
	if err := c.check(h); err != nil {
		return err
	}
	delete(c.visible, h)
	return nil
}

func (c *Compositor) ShowOverlay(h compositor.OverlayHandle) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("ShowOverlay", h)
	if err := c.check(h); err != nil {
		return err
	}
	if c.ShowErr != nil {
		return c.ShowErr
	}
	c.visible[h] = true
	return nil
}

func (c *Compositor) HideOverlay(h compositor.OverlayHandle) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("HideOverlay", h)
	if err := c.check(h); err != nil {
		return err
	}
	c.visible[h] = false
	return nil
}

func (c *Compositor) SetOverlayTransformAbsolute(h compositor.OverlayHandle, transform common.Matrix34) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("SetOverlayTransformAbsolute", h)
	if err := c.check(h); err != nil {
		return err
	}
	c.transforms[h] = transform
	return nil
}

func (c *Compositor) SetOverlayTexture(h compositor.OverlayHandle, tex compositor.Texture) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("SetOverlayTexture", h)
	if err := c.check(h); err != nil {
		return err
	}
	if c.OnTexture != nil {
		c.OnTexture(tex)
	}
	if len(c.TextureErrs) > 0 {
		err := c.TextureErrs[0]
		c.TextureErrs = c.TextureErrs[1:]
		if err != nil {
			return err
		}
	}
	c.textures = append(c.textures, tex)
	return nil
}

func (c *Compositor) TrackedDevicesOfClass(class compositor.DeviceClass) []compositor.DeviceIndex {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []compositor.DeviceIndex
	for _, p := range c.Devices {
		if p.Connected && p.Class == class {
			out = append(out, p.Device)
		}
	}
	return out
}

func (c *Compositor) DevicePoses() []compositor.Pose {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]compositor.Pose(nil), c.Devices...)
}

// Calls returns the recorded calls in order.
func (c *Compositor) Calls() []Call {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Call(nil), c.calls...)
}

// Methods returns the names of the recorded calls in order.
func (c *Compositor) Methods() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.calls))
	for i, call := range c.calls {
		out[i] = call.Method
	}
	return out
}

// Count returns how many times method was called.
func (c *Compositor) Count(method string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, call := range c.calls {
		if call.Method == method {
			n++
		}
	}
	return n
}

// Visible reports whether the overlay is currently shown.
func (c *Compositor) Visible(h compositor.OverlayHandle) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.visible[h]
}

// Exists reports whether the overlay has been created and not destroyed.
func (c *Compositor) Exists(h compositor.OverlayHandle) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.visible[h]
	return ok
}

// Transform returns the last absolute transform set for the overlay.
func (c *Compositor) Transform(h compositor.OverlayHandle) (common.Matrix34, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.transforms[h]
	return m, ok
}

// Textures returns every successfully submitted texture in order.
func (c *Compositor) Textures() []compositor.Texture {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]compositor.Texture(nil), c.textures...)
}

// Connected reports whether Init succeeded and Shutdown has not been called since.
func (c *Compositor) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}
