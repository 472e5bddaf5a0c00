package desktop

import (
	"slices"

	"github.com/Carmen-Shannon/oxy-overlay/engine/compositor"
	"github.com/Carmen-Shannon/oxy-overlay/engine/renderer"
	"github.com/Carmen-Shannon/oxy-overlay/engine/window"
)

// CompositorBuilderOption is a functional option applied to the desktop compositor by NewCompositor.
type CompositorBuilderOption func(*desktopCompositor)

// WithGPUContext presents through the given device and surface. The window provides the surface size.
// The GPU objects stay owned by the caller.
//
// Parameters:
//   - ctx: the GPU context with a configured-for-presentation surface
//   - w: the window the surface belongs to
//
// Returns:
//   - CompositorBuilderOption: option function to apply
func WithGPUContext(ctx renderer.GPUContext, w window.Window) CompositorBuilderOption {
	return func(c *desktopCompositor) {
		c.newPresenter = func() (presenter, error) {
			return newWGPUPresenter(ctx, w)
		}
	}
}

// WithTrackedDevices replaces the reported devices. Passing no poses reports no devices at all.
//
// Parameters:
//   - poses: the device poses, Device fields are the slot numbers
//
// Returns:
//   - CompositorBuilderOption: option function to apply
func WithTrackedDevices(poses ...compositor.Pose) CompositorBuilderOption {
	return func(c *desktopCompositor) {
		c.devices = slices.Clone(poses)
	}
}

// withPresenter injects a presenter, used by tests.
func withPresenter(p presenter) CompositorBuilderOption {
	return func(c *desktopCompositor) {
		c.presenter = p
	}
}
