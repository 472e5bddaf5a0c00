package bind_group_provider

import (
	"github.com/cogentcore/webgpu/wgpu"
)

// bindGroupProvider is the unexported implementation of BindGroupProvider.
type bindGroupProvider struct {
	label string

	// GPU resources populated by the renderer. Buffers, samplers and the bind group are owned by the provider;
	// texture views are borrowed from the texture that created them.
	bindGroup    *wgpu.BindGroup
	buffers      map[int]*wgpu.Buffer
	textureViews map[int]*wgpu.TextureView
	samplers     map[int]*wgpu.Sampler

	vertexBuffer *wgpu.Buffer
	indexBuffer  *wgpu.Buffer
	indexCount   int
}

// BindGroupProvider collects the GPU resources behind one bind group, plus the mesh buffers drawn with it.
//
// Usage pattern:
//  1. The renderer creates a provider and fills buffers, texture views and samplers per binding
//  2. The renderer creates the bind group against the pipeline's layout and stores it with SetBindGroup
//  3. Per frame the renderer writes uniforms through Buffer(binding) and binds BindGroup() for the draw
type BindGroupProvider interface {
	// Release releases the buffers, samplers, mesh buffers and bind group held by this provider.
	// Texture views are left to their owning texture.
	Release()

	// Label returns the debug label for this provider.
	//
	// Returns:
	//   - string: the debug label
	Label() string

	// BindGroup returns the created bind group, or nil before SetBindGroup.
	//
	// Returns:
	//   - *wgpu.BindGroup: the bind group or nil
	BindGroup() *wgpu.BindGroup

	// Buffer returns the buffer at a binding, or nil if not set.
	//
	// Parameters:
	//   - binding: the binding index
	//
	// Returns:
	//   - *wgpu.Buffer: the buffer or nil
	Buffer(binding int) *wgpu.Buffer

	// TextureView returns the texture view at a binding, or nil if not set.
	//
	// Parameters:
	//   - binding: the binding index
	//
	// Returns:
	//   - *wgpu.TextureView: the texture view or nil
	TextureView(binding int) *wgpu.TextureView

	// Sampler returns the sampler at a binding, or nil if not set.
	//
	// Parameters:
	//   - binding: the binding index
	//
	// Returns:
	//   - *wgpu.Sampler: the sampler or nil
	Sampler(binding int) *wgpu.Sampler

	// Entries builds the bind group entries for a layout from the resources set on this provider.
	//
	// Parameters:
	//   - descriptor: the layout the bind group will be created against
	//
	// Returns:
	//   - []wgpu.BindGroupEntry: one entry per layout entry
	//   - []int: bindings from the layout that have no resource set
	Entries(descriptor wgpu.BindGroupLayoutDescriptor) ([]wgpu.BindGroupEntry, []int)

	// VertexBuffer returns the mesh vertex buffer, or nil if not set.
	VertexBuffer() *wgpu.Buffer

	// IndexBuffer returns the mesh index buffer, or nil if not set.
	IndexBuffer() *wgpu.Buffer

	// IndexCount returns the number of indices drawn from IndexBuffer.
	IndexCount() int

	// SetBindGroup stores the created bind group, releasing any previous one.
	//
	// Parameters:
	//   - bg: the created bind group
	SetBindGroup(bg *wgpu.BindGroup)

	// SetBuffer stores a buffer at a binding.
	//
	// Parameters:
	//   - binding: the binding index
	//   - buf: the buffer
	SetBuffer(binding int, buf *wgpu.Buffer)

	// SetTextureView stores a borrowed texture view at a binding.
	//
	// Parameters:
	//   - binding: the binding index
	//   - view: the texture view
	SetTextureView(binding int, view *wgpu.TextureView)

	// SetSampler stores a sampler at a binding.
	//
	// Parameters:
	//   - binding: the binding index
	//   - s: the sampler
	SetSampler(binding int, s *wgpu.Sampler)

	// SetMesh stores the vertex and index buffers and the index count.
	//
	// Parameters:
	//   - vertex: the vertex buffer
	//   - index: the index buffer of uint32 indices
	//   - indexCount: the number of indices
	SetMesh(vertex, index *wgpu.Buffer, indexCount int)
}

var _ BindGroupProvider = &bindGroupProvider{}

// NewBindGroupProvider creates an empty BindGroupProvider.
//
// Parameters:
//   - label: the debug label used for GPU objects created for this provider
//   - opts: functional options for the provider
//
// Returns:
//   - BindGroupProvider: the new provider
func NewBindGroupProvider(label string, opts ...BindGroupProviderOption) BindGroupProvider {
	p := &bindGroupProvider{
		label:        label,
		buffers:      make(map[int]*wgpu.Buffer),
		textureViews: make(map[int]*wgpu.TextureView),
		samplers:     make(map[int]*wgpu.Sampler),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *bindGroupProvider) Label() string {
	return p.label
}

func (p *bindGroupProvider) BindGroup() *wgpu.BindGroup {
	return p.bindGroup
}

func (p *bindGroupProvider) Buffer(binding int) *wgpu.Buffer {
	return p.buffers[binding]
}

func (p *bindGroupProvider) TextureView(binding int) *wgpu.TextureView {
	return p.textureViews[binding]
}

func (p *bindGroupProvider) Sampler(binding int) *wgpu.Sampler {
	return p.samplers[binding]
}

func (p *bindGroupProvider) Entries(descriptor wgpu.BindGroupLayoutDescriptor) ([]wgpu.BindGroupEntry, []int) {
	entries := make([]wgpu.BindGroupEntry, 0, len(descriptor.Entries))
	var missing []int
	for _, e := range descriptor.Entries {
		binding := int(e.Binding)
		entry := wgpu.BindGroupEntry{Binding: e.Binding}
		switch {
		case e.Texture.SampleType != wgpu.TextureSampleTypeUndefined:
			entry.TextureView = p.textureViews[binding]
			if entry.TextureView == nil {
				missing = append(missing, binding)
			}
		case e.Sampler.Type != wgpu.SamplerBindingTypeUndefined:
			entry.Sampler = p.samplers[binding]
			if entry.Sampler == nil {
				missing = append(missing, binding)
			}
		default:
			entry.Buffer = p.buffers[binding]
			entry.Size = wgpu.WholeSize
			if entry.Buffer == nil {
				missing = append(missing, binding)
			}
		}
		entries = append(entries, entry)
	}
	return entries, missing
}

func (p *bindGroupProvider) VertexBuffer() *wgpu.Buffer {
	return p.vertexBuffer
}

func (p *bindGroupProvider) IndexBuffer() *wgpu.Buffer {
	return p.indexBuffer
}

func (p *bindGroupProvider) IndexCount() int {
	return p.indexCount
}

func (p *bindGroupProvider) SetBindGroup(bg *wgpu.BindGroup) {
	if p.bindGroup != nil && p.bindGroup != bg {
		p.bindGroup.Release()
	}
	p.bindGroup = bg
}

func (p *bindGroupProvider) SetBuffer(binding int, buf *wgpu.Buffer) {
	p.buffers[binding] = buf
}

func (p *bindGroupProvider) SetTextureView(binding int, view *wgpu.TextureView) {
	p.textureViews[binding] = view
}

func (p *bindGroupProvider) SetSampler(binding int, s *wgpu.Sampler) {
	p.samplers[binding] = s
}

func (p *bindGroupProvider) SetMesh(vertex, index *wgpu.Buffer, indexCount int) {
	p.vertexBuffer = vertex
	p.indexBuffer = index
	p.indexCount = indexCount
}

func (p *bindGroupProvider) Release() {
	if p.bindGroup != nil {
		p.bindGroup.Release()
		p.bindGroup = nil
	}
	for _, buf := range p.buffers {
		if buf != nil {
			buf.Release()
		}
	}
	clear(p.buffers)
	for _, s := range p.samplers {
		if s != nil {
			s.Release()
		}
	}
	clear(p.samplers)
	clear(p.textureViews)
	if p.vertexBuffer != nil {
		p.vertexBuffer.Release()
		p.vertexBuffer = nil
	}
	if p.indexBuffer != nil {
		p.indexBuffer.Release()
		p.indexBuffer = nil
	}
	p.indexCount = 0
}
