package renderer

import (
	_ "embed"
	"errors"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-overlay/common"
	"github.com/Carmen-Shannon/oxy-overlay/engine/compositor"
	"github.com/Carmen-Shannon/oxy-overlay/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-overlay/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-overlay/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-overlay/engine/spritesheet"
	"github.com/Carmen-Shannon/oxy-overlay/engine/window"
	"github.com/cogentcore/webgpu/wgpu"
)

var (
	// ErrAllocation is returned when a GPU object could not be created or a texture upload does not fit.
	ErrAllocation = errors.New("gpu allocation failed")

	// ErrNotBound is returned by RenderFrame before BindFrames succeeded.
	ErrNotBound = errors.New("no sprite frames bound")

	// ErrLayerRange is returned by RenderFrame for a layer outside the bound texture array.
	ErrLayerRange = errors.New("frame layer out of range")
)

//go:embed assets/frame.vert.wgsl
var frameVertexSource string

//go:embed assets/frame.frag.wgsl
var frameFragmentSource string

const framePipelineKey = "sprite-frame"

// quadVertex matches the VertexInput struct of the frame vertex shader.
type quadVertex struct {
	Position [3]float32
	UV       [2]float32
}

// frameParams matches the FrameParams uniform of the frame fragment shader.
type frameParams struct {
	Layer uint32
	_     [3]uint32
}

// The quad covers the whole render target. UV v grows upward so that the first row of a flipped frame lands at the
// bottom of the target.
var (
	quadVertices = []quadVertex{
		{Position: [3]float32{1, 1, 0}, UV: [2]float32{1, 1}},
		{Position: [3]float32{1, -1, 0}, UV: [2]float32{1, 0}},
		{Position: [3]float32{-1, -1, 0}, UV: [2]float32{0, 0}},
		{Position: [3]float32{-1, 1, 0}, UV: [2]float32{0, 1}},
	}
	quadIndices = []uint32{0, 1, 3, 1, 2, 3}
)

// renderer is the implementation of the Renderer interface.
type renderer struct {
	mu *sync.Mutex

	backendType RendererBackendType
	backend     RendererBackend

	forceFallbackAdapter bool
	surfaceWindow        window.Window
	clearColor           common.Color

	frames       *spritesheet.FrameTextureArray
	pipeline     pipeline.Pipeline
	mesh         bind_group_provider.BindGroupProvider
	frameGroup   bind_group_provider.BindGroupProvider
	uniformSlot  int
	target       *wgpu.Texture
	targetView   *wgpu.TextureView
	layer        uint32
	layerWritten bool
}

// Renderer draws one sprite frame at a time into a fixed-size offscreen render target.
//
// The renderer also allocates the frame texture array for the sprite sheet loader, and takes ownership of the loaded
// frames once they are bound: releasing the renderer releases the frames, the render target and the device.
type Renderer interface {
	spritesheet.Allocator

	// BindFrames takes ownership of a loaded texture array and creates everything needed to draw its layers: a render
	// target sized to one frame, the textured quad, the frame sampler, the layer uniform and the pipeline.
	// Binding a second array releases the first. On failure the caller keeps ownership of frames.
	//
	// Parameters:
	//   - frames: the loaded sprite frames, allocated by this renderer
	//
	// Returns:
	//   - error: an error wrapping ErrAllocation if any GPU object could not be created
	BindFrames(frames *spritesheet.FrameTextureArray) error

	// RenderFrame clears the render target and draws the given layer into it.
	//
	// Parameters:
	//   - layer: the frame index to draw
	//
	// Returns:
	//   - error: ErrNotBound before BindFrames, ErrLayerRange if layer >= frame count, or a GPU submission error
	RenderFrame(layer uint32) error

	// RenderTarget returns the render target as a compositor texture. The handle is a *wgpu.TextureView.
	//
	// Returns:
	//   - compositor.Texture: the render target reference, with a nil handle before BindFrames
	RenderTarget() compositor.Texture

	// FrameSize returns the render target dimensions.
	//
	// Returns:
	//   - uint32: width in pixels
	//   - uint32: height in pixels
	FrameSize() (uint32, uint32)

	// SetClearColor sets the color the render target is cleared to before each draw.
	//
	// Parameters:
	//   - c: the clear color
	SetClearColor(c common.Color)

	// GPUContext returns the device objects so other components can share the renderer's GPU.
	//
	// Returns:
	//   - GPUContext: the instance, adapter, device, queue and optional surface
	GPUContext() GPUContext

	// Release frees the bound frames, the render target and the device.
	Release()
}

var _ Renderer = &renderer{}

// NewRenderer creates a Renderer and its GPU device.
//
// Parameters:
//   - backendType: the GPU backend to use
//   - options: functional options for the renderer
//
// Returns:
//   - Renderer: the new renderer
//   - error: an error wrapping ErrAllocation if no adapter or device is available
func NewRenderer(backendType RendererBackendType, options ...RendererBuilderOption) (Renderer, error) {
	r := &renderer{
		mu:          &sync.Mutex{},
		backendType: backendType,
		clearColor:  common.Color{R: 0.2, G: 0.3, B: 0.3, A: 1},
	}
	for _, opt := range options {
		opt(r)
	}

	if r.backend == nil {
		var surface *wgpu.SurfaceDescriptor
		if r.surfaceWindow != nil {
			surface = r.surfaceWindow.SurfaceDescriptor()
		}
		switch backendType {
		case BackendTypeWGPU:
			fallthrough
		default:
			b, err := newWGPURendererBackend(surface, r.forceFallbackAdapter)
			if err != nil {
				return nil, err
			}
			r.backend = b
		}
	}
	return r, nil
}

func (r *renderer) CreateTextureArray(label string, width, height, layers uint32) (spritesheet.TextureArray, error) {
	return r.backend.CreateTextureArray(label, width, height, layers)
}

func (r *renderer) BindFrames(frames *spritesheet.FrameTextureArray) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if frames == nil || frames.Texture == nil || frames.FrameCount() == 0 {
		return fmt.Errorf("%w: no frames to bind", ErrAllocation)
	}
	arr, ok := frames.Texture.(textureArrayView)
	if !ok {
		return fmt.Errorf("%w: texture array was not allocated by this renderer", ErrAllocation)
	}

	if r.frames == frames {
		r.frames = nil
	}
	r.releaseFrames()

	if err := r.bind(frames, arr.View()); err != nil {
		r.releaseFrames()
		return err
	}
	r.frames = frames
	return nil
}

// bind creates the per-sheet GPU state. The caller releases partial state on error.
func (r *renderer) bind(frames *spritesheet.FrameTextureArray, view *wgpu.TextureView) error {
	width, height := frames.Sheet.FrameWidth, frames.Sheet.FrameHeight

	var err error
	r.target, r.targetView, err = r.backend.CreateRenderTarget("Overlay Render Target", width, height)
	if err != nil {
		return err
	}

	vs, err := shader.NewShader("frame.vert", shader.ShaderTypeVertex, frameVertexSource)
	if err != nil {
		return err
	}
	fs, err := shader.NewShader("frame.frag", shader.ShaderTypeFragment, frameFragmentSource)
	if err != nil {
		return err
	}
	r.pipeline = pipeline.NewPipeline(framePipelineKey,
		pipeline.WithVertexShader(vs),
		pipeline.WithFragmentShader(fs),
		pipeline.WithColorFormat(RenderTargetFormat),
	)
	if err := r.backend.RegisterRenderPipeline(r.pipeline); err != nil {
		return fmt.Errorf("%w: %w", ErrAllocation, err)
	}

	r.mesh = bind_group_provider.NewBindGroupProvider("Quad")
	if err := r.backend.InitMeshBuffers(r.mesh, common.SliceToBytes(quadVertices), common.SliceToBytes(quadIndices), len(quadIndices)); err != nil {
		return fmt.Errorf("%w: %w", ErrAllocation, err)
	}

	textureSlot, ok := fs.BindingIndex(0, "frames")
	samplerSlot, ok2 := fs.BindingIndex(0, "frameSampler")
	uniformSlot, ok3 := fs.BindingIndex(0, "params")
	if !ok || !ok2 || !ok3 {
		return fmt.Errorf("%w: frame shader is missing a binding", ErrAllocation)
	}
	r.uniformSlot = uniformSlot

	r.frameGroup = bind_group_provider.NewBindGroupProvider("Frame", bind_group_provider.WithTextureView(textureSlot, view))
	if err := r.backend.InitSampler(r.frameGroup, samplerSlot, common.NearestClampSampler); err != nil {
		return fmt.Errorf("%w: %w", ErrAllocation, err)
	}
	if err := r.backend.InitBindGroup(r.frameGroup, r.pipeline.BindGroupLayout(0), r.pipeline.BindGroupLayoutDescriptors()[0]); err != nil {
		return fmt.Errorf("%w: %w", ErrAllocation, err)
	}

	r.writeLayer(0)
	return nil
}

func (r *renderer) RenderFrame(layer uint32) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frames == nil {
		return ErrNotBound
	}
	if count := r.frames.FrameCount(); layer >= count {
		return fmt.Errorf("%w: layer %d, frame count %d", ErrLayerRange, layer, count)
	}
	if !r.layerWritten || layer != r.layer {
		r.writeLayer(layer)
	}

	return r.backend.RenderPass(OffscreenPass{
		Target:     r.targetView,
		Width:      r.frames.Sheet.FrameWidth,
		Height:     r.frames.Sheet.FrameHeight,
		Clear:      r.clearColor,
		Pipeline:   r.pipeline,
		Mesh:       r.mesh,
		BindGroups: []bind_group_provider.BindGroupProvider{r.frameGroup},
	})
}

// writeLayer queues the layer uniform.
func (r *renderer) writeLayer(layer uint32) {
	params := frameParams{Layer: layer}
	r.backend.WriteBuffers([]bind_group_provider.BufferWrite{{
		Provider: r.frameGroup,
		Binding:  r.uniformSlot,
		Data:     common.StructToBytes(&params),
	}})
	r.layer = layer
	r.layerWritten = true
}

func (r *renderer) RenderTarget() compositor.Texture {
	r.mu.Lock()
	defer r.mu.Unlock()
	return compositor.Texture{
		Handle:     r.targetView,
		Type:       compositor.TextureTypeWebGPU,
		ColorSpace: compositor.ColorSpaceAuto,
	}
}

func (r *renderer) FrameSize() (uint32, uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frames == nil {
		return 0, 0
	}
	return r.frames.Sheet.FrameWidth, r.frames.Sheet.FrameHeight
}

func (r *renderer) SetClearColor(c common.Color) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clearColor = c
}

func (r *renderer) GPUContext() GPUContext {
	return r.backend.GPUContext()
}

func (r *renderer) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.releaseFrames()
	r.backend.Release()
}

// releaseFrames frees everything created by BindFrames, including the frames themselves.
func (r *renderer) releaseFrames() {
	if r.frameGroup != nil {
		r.frameGroup.Release()
		r.frameGroup = nil
	}
	if r.mesh != nil {
		r.mesh.Release()
		r.mesh = nil
	}
	if r.pipeline != nil {
		r.pipeline.Release()
		r.pipeline = nil
	}
	if r.targetView != nil {
		r.targetView.Release()
		r.targetView = nil
	}
	if r.target != nil {
		r.target.Release()
		r.target = nil
	}
	if r.frames != nil {
		r.frames.Release()
		r.frames = nil
	}
	r.layerWritten = false
}
