package renderer

import (
	"github.com/Carmen-Shannon/oxy-overlay/common"
	"github.com/Carmen-Shannon/oxy-overlay/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-overlay/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-overlay/engine/spritesheet"
	"github.com/cogentcore/webgpu/wgpu"
)

// RendererBackendType identifies the GPU backend implementation used by the Renderer.
type RendererBackendType int

const (
	// BackendTypeWGPU selects the WebGPU-based rendering backend.
	BackendTypeWGPU RendererBackendType = iota
)

// GPUContext exposes the device objects of a renderer so other components can share the same GPU.
type GPUContext struct {
	Instance *wgpu.Instance
	Adapter  *wgpu.Adapter
	Device   *wgpu.Device
	Queue    *wgpu.Queue
	// Surface is nil for a headless renderer.
	Surface *wgpu.Surface
}

// OffscreenPass describes a single indexed draw into a texture.
type OffscreenPass struct {
	Target     *wgpu.TextureView
	Width      uint32
	Height     uint32
	Clear      common.Color
	Pipeline   pipeline.Pipeline
	Mesh       bind_group_provider.BindGroupProvider
	BindGroups []bind_group_provider.BindGroupProvider
}

// RendererBackend is the GPU API behind a Renderer.
type RendererBackend interface {
	// GPUContext returns the backend's device objects.
	GPUContext() GPUContext

	// CreateTextureArray allocates an RGBA8 sRGB texture array and a 2D-array view over all of its layers.
	CreateTextureArray(label string, width, height, layers uint32) (spritesheet.TextureArray, error)

	// CreateRenderTarget allocates a texture that can be rendered to, sampled and copied from.
	CreateRenderTarget(label string, width, height uint32) (*wgpu.Texture, *wgpu.TextureView, error)

	// RegisterRenderPipeline builds the GPU pipeline for p.
	RegisterRenderPipeline(p pipeline.Pipeline) error

	// InitMeshBuffers uploads vertex and index data and stores the buffers on the provider.
	InitMeshBuffers(provider bind_group_provider.BindGroupProvider, vertexData, indexData []byte, indexCount int) error

	// InitSampler creates a sampler and stores it on the provider at binding.
	InitSampler(provider bind_group_provider.BindGroupProvider, binding int, data common.SamplerStagingData) error

	// InitBindGroup creates any missing buffers for the layout, then the bind group itself.
	InitBindGroup(provider bind_group_provider.BindGroupProvider, layout *wgpu.BindGroupLayout, descriptor wgpu.BindGroupLayoutDescriptor) error

	// WriteBuffers queues buffer writes.
	WriteBuffers(writes []bind_group_provider.BufferWrite)

	// RenderPass encodes and submits one offscreen pass.
	RenderPass(pass OffscreenPass) error

	// Release frees the device objects.
	Release()
}
