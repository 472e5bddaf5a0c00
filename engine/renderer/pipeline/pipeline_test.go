package pipeline

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-overlay/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const vertexSource = `
struct VertexInput {
    @location(0) position: vec3f,
    @location(1) uv: vec2f,
};
struct VertexOutput {
    @builtin(position) clip: vec4f,
    @location(0) uv: vec2f,
};
struct FrameParams {
    layer: u32,
    _pad0: u32,
    _pad1: u32,
    _pad2: u32,
};
@group(0) @binding(2) var<uniform> params: FrameParams;
@vertex
fn vs_main(in: VertexInput) -> VertexOutput {
    var out: VertexOutput;
    out.clip = vec4f(in.position, 1.0);
    out.uv = in.uv;
    return out;
}
`

const fragmentSource = `
struct FrameParams {
    layer: u32,
    _pad0: u32,
    _pad1: u32,
    _pad2: u32,
};
@group(0) @binding(0) var frames: texture_2d_array<f32>;
@group(0) @binding(1) var frameSampler: sampler;
@group(0) @binding(2) var<uniform> params: FrameParams;
@fragment
fn fs_main(@location(0) uv: vec2f) -> @location(0) vec4f {
    return textureSample(frames, frameSampler, uv, params.layer);
}
`

func TestBindGroupLayoutDescriptorsMergeStages(t *testing.T) {
	vs, err := shader.NewShader("vs", shader.ShaderTypeVertex, vertexSource)
	require.NoError(t, err)
	fs, err := shader.NewShader("fs", shader.ShaderTypeFragment, fragmentSource)
	require.NoError(t, err)

	p := NewPipeline("frame", WithVertexShader(vs), WithFragmentShader(fs))
	merged := p.BindGroupLayoutDescriptors()
	require.Len(t, merged, 1)

	entries := merged[0].Entries
	require.Len(t, entries, 3)
	assert.Equal(t, []uint32{0, 1, 2}, []uint32{entries[0].Binding, entries[1].Binding, entries[2].Binding})
	assert.Equal(t, wgpu.ShaderStageFragment, entries[0].Visibility)
	assert.Equal(t, wgpu.ShaderStageFragment, entries[1].Visibility)
	assert.Equal(t, wgpu.ShaderStageVertex|wgpu.ShaderStageFragment, entries[2].Visibility)
	assert.Equal(t, uint64(16), entries[2].Buffer.MinBindingSize)
}

func TestNewPipelineDefaults(t *testing.T) {
	p := NewPipeline("defaults")
	assert.Equal(t, "defaults", p.PipelineKey())
	assert.Equal(t, wgpu.TextureFormatRGBA8UnormSrgb, p.ColorFormat())
	assert.False(t, p.BlendEnabled())
	assert.Equal(t, wgpu.CullModeNone, p.CullMode())
	assert.Equal(t, wgpu.PrimitiveTopologyTriangleList, p.Topology())
	assert.Equal(t, wgpu.FrontFaceCCW, p.FrontFace())
	assert.Equal(t, wgpu.ColorWriteMaskAll, p.WriteMask())
	assert.NotNil(t, p.BlendState())
	assert.Nil(t, p.RenderPipeline())
	assert.Nil(t, p.BindGroupLayout(0))
	assert.Nil(t, p.Shader(shader.ShaderTypeVertex))
}

func TestNewPipelineOptions(t *testing.T) {
	blend := &wgpu.BlendState{}
	p := NewPipeline("opts",
		WithColorFormat(wgpu.TextureFormatBGRA8Unorm),
		WithBlendEnabled(true),
		WithBlendState(blend),
		WithCullMode(wgpu.CullModeBack),
		WithTopology(wgpu.PrimitiveTopologyTriangleStrip),
		WithFrontFace(wgpu.FrontFaceCW),
		WithWriteMask(wgpu.ColorWriteMaskRed),
	)
	assert.Equal(t, wgpu.TextureFormatBGRA8Unorm, p.ColorFormat())
	assert.True(t, p.BlendEnabled())
	assert.Same(t, blend, p.BlendState())
	assert.Equal(t, wgpu.CullModeBack, p.CullMode())
	assert.Equal(t, wgpu.PrimitiveTopologyTriangleStrip, p.Topology())
	assert.Equal(t, wgpu.FrontFaceCW, p.FrontFace())
	assert.Equal(t, wgpu.ColorWriteMaskRed, p.WriteMask())
}

func TestCreateRequiresBothShaders(t *testing.T) {
	p := NewPipeline("incomplete")
	assert.Error(t, p.Create(nil))
}
