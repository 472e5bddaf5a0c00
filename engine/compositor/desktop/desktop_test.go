package desktop

import (
	"errors"
	"testing"

	"github.com/Carmen-Shannon/oxy-overlay/common"
	"github.com/Carmen-Shannon/oxy-overlay/engine/compositor"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePresenter struct {
	ready    bool
	err      error
	presents [][]*wgpu.TextureView
	released bool
}

func (p *fakePresenter) Ready() bool { return p.ready }

func (p *fakePresenter) Present(views []*wgpu.TextureView) error {
	p.presents = append(p.presents, views)
	return p.err
}

func (p *fakePresenter) Release() { p.released = true }

func connected(t *testing.T, options ...CompositorBuilderOption) (compositor.Compositor, *fakePresenter) {
	t.Helper()
	p := &fakePresenter{ready: true}
	c := NewCompositor(append([]CompositorBuilderOption{withPresenter(p)}, options...)...)
	require.NoError(t, c.Init())
	return c, p
}

func TestInitNotReadyUntilSurfaceHasArea(t *testing.T) {
	p := &fakePresenter{}
	c := NewCompositor(withPresenter(p))

	err := c.Init()
	assert.ErrorIs(t, err, compositor.ErrNotReady)

	p.ready = true
	assert.NoError(t, c.Init())
	assert.NoError(t, c.Init())
}

func TestInitWithoutGPUContextFails(t *testing.T) {
	err := NewCompositor().Init()
	require.Error(t, err)
	assert.False(t, errors.Is(err, compositor.ErrNotReady))
}

func TestCallsBeforeInit(t *testing.T) {
	c := NewCompositor(withPresenter(&fakePresenter{ready: true}))

	_, err := c.CreateOverlay("k", "n")
	assert.ErrorIs(t, err, compositor.ErrNotConnected)
	assert.ErrorIs(t, c.ShowOverlay(1), compositor.ErrNotConnected)
	assert.ErrorIs(t, c.Shutdown(), compositor.ErrNotConnected)
}

func TestCreateOverlay(t *testing.T) {
	c, _ := connected(t)

	h, err := c.CreateOverlay("oxy.test", "Test")
	require.NoError(t, err)
	assert.True(t, h.Valid())

	_, err = c.CreateOverlay("oxy.test", "Again")
	assert.ErrorIs(t, err, compositor.ErrOverlayCreate)

	_, err = c.CreateOverlay("", "Empty")
	assert.ErrorIs(t, err, compositor.ErrOverlayCreate)

	h2, err := c.CreateOverlay("oxy.other", "Other")
	require.NoError(t, err)
	assert.NotEqual(t, h, h2)
}

func TestUnknownHandle(t *testing.T) {
	c, _ := connected(t)

	assert.ErrorIs(t, c.ShowOverlay(42), compositor.ErrInvalidHandle)
	assert.ErrorIs(t, c.HideOverlay(42), compositor.ErrInvalidHandle)
	assert.ErrorIs(t, c.DestroyOverlay(42), compositor.ErrInvalidHandle)
	assert.ErrorIs(t, c.SetOverlayTransformAbsolute(42, common.Identity34()), compositor.ErrInvalidHandle)
	assert.ErrorIs(t, c.SetOverlayTexture(42, compositor.Texture{Handle: &wgpu.TextureView{}}), compositor.ErrInvalidHandle)
}

func TestSetOverlayTexturePresentsVisibleOverlays(t *testing.T) {
	c, p := connected(t)
	first, err := c.CreateOverlay("a", "A")
	require.NoError(t, err)
	second, err := c.CreateOverlay("b", "B")
	require.NoError(t, err)

	v1, v2 := &wgpu.TextureView{}, &wgpu.TextureView{}

	require.NoError(t, c.SetOverlayTexture(first, compositor.Texture{Handle: v1}))
	require.Len(t, p.presents, 1)
	assert.Empty(t, p.presents[0], "hidden overlays are not drawn")

	require.NoError(t, c.ShowOverlay(first))
	require.NoError(t, c.ShowOverlay(second))
	require.NoError(t, c.SetOverlayTexture(second, compositor.Texture{Handle: v2}))
	require.Len(t, p.presents, 2)
	assert.Equal(t, []*wgpu.TextureView{v1, v2}, p.presents[1])

	require.NoError(t, c.HideOverlay(first))
	require.NoError(t, c.SetOverlayTexture(second, compositor.Texture{Handle: v2}))
	assert.Equal(t, []*wgpu.TextureView{v2}, p.presents[2])

	require.NoError(t, c.DestroyOverlay(second))
	require.NoError(t, c.ShowOverlay(first))
	require.NoError(t, c.SetOverlayTexture(first, compositor.Texture{Handle: v1}))
	assert.Equal(t, []*wgpu.TextureView{v1}, p.presents[3])
}

func TestSetOverlayTextureRejects(t *testing.T) {
	cases := []struct {
		name string
		tex  compositor.Texture
	}{
		{name: "nil handle", tex: compositor.Texture{}},
		{name: "typed nil view", tex: compositor.Texture{Handle: (*wgpu.TextureView)(nil)}},
		{name: "wrong handle type", tex: compositor.Texture{Handle: 7}},
		{name: "unknown texture type", tex: compositor.Texture{Handle: &wgpu.TextureView{}, Type: compositor.TextureType(9)}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, p := connected(t)
			h, err := c.CreateOverlay("k", "n")
			require.NoError(t, err)

			assert.ErrorIs(t, c.SetOverlayTexture(h, tc.tex), compositor.ErrTexture)
			assert.Empty(t, p.presents)
		})
	}
}

func TestPresentFailureIsTextureError(t *testing.T) {
	c, p := connected(t)
	p.err = errors.New("surface lost")
	h, err := c.CreateOverlay("k", "n")
	require.NoError(t, err)

	assert.ErrorIs(t, c.SetOverlayTexture(h, compositor.Texture{Handle: &wgpu.TextureView{}}), compositor.ErrTexture)
}

func TestSetOverlayTextureSkipsPresentWhileMinimized(t *testing.T) {
	c, p := connected(t)
	h, err := c.CreateOverlay("k", "n")
	require.NoError(t, err)
	p.ready = false

	assert.NoError(t, c.SetOverlayTexture(h, compositor.Texture{Handle: &wgpu.TextureView{}}))
	assert.Empty(t, p.presents)
}

func TestTrackedDevices(t *testing.T) {
	t.Run("default hmd at slot 0", func(t *testing.T) {
		c, _ := connected(t)
		assert.Equal(t, []compositor.DeviceIndex{0}, c.TrackedDevicesOfClass(compositor.DeviceClassHMD))
		assert.Empty(t, c.TrackedDevicesOfClass(compositor.DeviceClassController))

		poses := c.DevicePoses()
		require.Len(t, poses, 1)
		assert.Equal(t, common.Identity34(), poses[0].DeviceToAbsolute)
	})

	t.Run("without hmd", func(t *testing.T) {
		c, _ := connected(t, WithTrackedDevices(DefaultDevices(false)...))
		assert.Empty(t, c.TrackedDevicesOfClass(compositor.DeviceClassHMD))
		assert.Len(t, c.DevicePoses(), 1)
	})

	t.Run("disconnected devices are not listed", func(t *testing.T) {
		c, _ := connected(t, WithTrackedDevices(
			compositor.Pose{Device: 0, Class: compositor.DeviceClassHMD},
			compositor.Pose{Device: 1, Class: compositor.DeviceClassController, Connected: true},
			compositor.Pose{Device: 2, Class: compositor.DeviceClassController, Connected: true},
		))
		assert.Empty(t, c.TrackedDevicesOfClass(compositor.DeviceClassHMD))
		assert.Equal(t, []compositor.DeviceIndex{1, 2}, c.TrackedDevicesOfClass(compositor.DeviceClassController))
	})

	t.Run("poses are copied", func(t *testing.T) {
		c, _ := connected(t)
		poses := c.DevicePoses()
		poses[0].Valid = false
		assert.True(t, c.DevicePoses()[0].Valid)
	})
}

func TestShutdownReleasesPresenter(t *testing.T) {
	c, p := connected(t)
	h, err := c.CreateOverlay("k", "n")
	require.NoError(t, err)

	require.NoError(t, c.Shutdown())
	assert.True(t, p.released)
	assert.ErrorIs(t, c.ShowOverlay(h), compositor.ErrNotConnected)
}
