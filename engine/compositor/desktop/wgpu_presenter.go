package desktop

import (
	_ "embed"
	"errors"
	"fmt"
	"slices"

	"github.com/Carmen-Shannon/oxy-overlay/common"
	"github.com/Carmen-Shannon/oxy-overlay/engine/renderer"
	"github.com/Carmen-Shannon/oxy-overlay/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-overlay/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-overlay/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-overlay/engine/window"
	"github.com/cogentcore/webgpu/wgpu"
)

//go:embed assets/blit.vert.wgsl
var blitVertexSource string

//go:embed assets/blit.frag.wgsl
var blitFragmentSource string

// wgpuPresenter stretches overlay textures over the window surface with a fullscreen triangle.
type wgpuPresenter struct {
	gpu    renderer.GPUContext
	window window.Window

	format        wgpu.TextureFormat
	alphaMode     wgpu.CompositeAlphaMode
	width, height int

	pipeline    pipeline.Pipeline
	textureSlot int
	samplerSlot int
	groups      map[*wgpu.TextureView]bind_group_provider.BindGroupProvider
	clear       common.Color
}

var _ presenter = &wgpuPresenter{}

func newWGPUPresenter(gpu renderer.GPUContext, w window.Window) (*wgpuPresenter, error) {
	if gpu.Device == nil || gpu.Surface == nil || gpu.Adapter == nil {
		return nil, errors.New("desktop compositor needs a device created with a window surface")
	}
	if w == nil {
		return nil, errors.New("desktop compositor needs a window")
	}

	capabilities := gpu.Surface.GetCapabilities(gpu.Adapter)
	if len(capabilities.Formats) == 0 || len(capabilities.AlphaModes) == 0 {
		return nil, errors.New("surface reports no formats")
	}

	vs, err := shader.NewShader("blit.vert", shader.ShaderTypeVertex, blitVertexSource)
	if err != nil {
		return nil, err
	}
	fs, err := shader.NewShader("blit.frag", shader.ShaderTypeFragment, blitFragmentSource)
	if err != nil {
		return nil, err
	}
	textureSlot, ok := fs.BindingIndex(0, "overlayTexture")
	samplerSlot, ok2 := fs.BindingIndex(0, "overlaySampler")
	if !ok || !ok2 {
		return nil, errors.New("blit shader is missing a binding")
	}

	p := &wgpuPresenter{
		gpu:         gpu,
		window:      w,
		format:      capabilities.Formats[0],
		alphaMode:   capabilities.AlphaModes[0],
		textureSlot: textureSlot,
		samplerSlot: samplerSlot,
		groups:      make(map[*wgpu.TextureView]bind_group_provider.BindGroupProvider),
	}
	p.pipeline = pipeline.NewPipeline("overlay-blit",
		pipeline.WithVertexShader(vs),
		pipeline.WithFragmentShader(fs),
		pipeline.WithColorFormat(p.format),
		// Later overlays are drawn over earlier ones.
		pipeline.WithBlendEnabled(true),
	)
	if err := p.pipeline.Create(gpu.Device); err != nil {
		return nil, fmt.Errorf("failed to create blit pipeline: %w", err)
	}
	p.configure()
	return p, nil
}

// configure (re)configures the surface for the current window size. Zero sizes are skipped.
func (p *wgpuPresenter) configure() {
	width, height := p.window.Width(), p.window.Height()
	if width <= 0 || height <= 0 {
		return
	}
	p.gpu.Surface.Configure(p.gpu.Adapter, p.gpu.Device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      p.format,
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: wgpu.PresentModeFifo,
		AlphaMode:   p.alphaMode,
	})
	p.width, p.height = width, height
}

func (p *wgpuPresenter) Ready() bool {
	return p.window.Width() > 0 && p.window.Height() > 0
}

func (p *wgpuPresenter) Present(views []*wgpu.TextureView) error {
	if p.window.Width() != p.width || p.window.Height() != p.height {
		p.configure()
	}

	groups := make([]*wgpu.BindGroup, 0, len(views))
	for _, view := range views {
		bg, err := p.bindGroup(view)
		if err != nil {
			return err
		}
		groups = append(groups, bg)
	}
	p.prune(views)

	surfaceTexture, err := p.gpu.Surface.GetCurrentTexture()
	if err != nil {
		return err
	}
	defer surfaceTexture.Release()
	target, err := surfaceTexture.CreateView(nil)
	if err != nil {
		return err
	}
	defer target.Release()

	encoder, err := p.gpu.Device.CreateCommandEncoder(nil)
	if err != nil {
		return err
	}
	defer encoder.Release()

	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:       target,
				LoadOp:     wgpu.LoadOpClear,
				StoreOp:    wgpu.StoreOpStore,
				ClearValue: p.clear.GPU(),
			},
		},
	})
	pass.SetPipeline(p.pipeline.RenderPipeline())
	for _, bg := range groups {
		pass.SetBindGroup(0, bg, nil)
		pass.Draw(3, 1, 0, 0)
	}
	pass.End()
	pass.Release()

	commandBuffer, err := encoder.Finish(nil)
	if err != nil {
		return err
	}
	p.gpu.Queue.Submit(commandBuffer)
	commandBuffer.Release()
	p.gpu.Surface.Present()
	return nil
}

// bindGroup returns the cached bind group sampling view, creating it on first use.
func (p *wgpuPresenter) bindGroup(view *wgpu.TextureView) (*wgpu.BindGroup, error) {
	if provider, ok := p.groups[view]; ok {
		return provider.BindGroup(), nil
	}

	s := common.LinearClampSampler
	sampler, err := p.gpu.Device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         "Overlay Blit Sampler",
		AddressModeU:  s.AddressModeU,
		AddressModeV:  s.AddressModeV,
		AddressModeW:  s.AddressModeW,
		MagFilter:     s.MagFilter,
		MinFilter:     s.MinFilter,
		MipmapFilter:  s.MipmapFilter,
		LodMinClamp:   s.LodMinClamp,
		LodMaxClamp:   common.Coalesce(s.LodMaxClamp, 32.0),
		MaxAnisotropy: common.Coalesce(s.MaxAnisotropy, 1),
	})
	if err != nil {
		return nil, err
	}
	provider := bind_group_provider.NewBindGroupProvider("Overlay Blit",
		bind_group_provider.WithTextureView(p.textureSlot, view),
		bind_group_provider.WithSampler(p.samplerSlot, sampler),
	)

	descriptor := p.pipeline.BindGroupLayoutDescriptors()[0]
	entries, missing := provider.Entries(descriptor)
	if len(missing) > 0 {
		provider.Release()
		return nil, fmt.Errorf("blit bindings %v have no resource", missing)
	}
	bg, err := p.gpu.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   "Overlay Blit Bind Group",
		Layout:  p.pipeline.BindGroupLayout(0),
		Entries: entries,
	})
	if err != nil {
		provider.Release()
		return nil, err
	}
	provider.SetBindGroup(bg)
	p.groups[view] = provider
	return bg, nil
}

// prune drops bind groups of views that are no longer presented.
func (p *wgpuPresenter) prune(views []*wgpu.TextureView) {
	for view, provider := range p.groups {
		if !slices.Contains(views, view) {
			provider.Release()
			delete(p.groups, view)
		}
	}
}

func (p *wgpuPresenter) Release() {
	for view, provider := range p.groups {
		provider.Release()
		delete(p.groups, view)
	}
	if p.pipeline != nil {
		p.pipeline.Release()
		p.pipeline = nil
	}
}
