package shader

import (
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testVertexSource = `
// quad vertex input
struct VertexInput {
    @location(0) position: vec3f,
    @location(1) uv: vec2f,
};

struct VertexOutput {
    @builtin(position) clip: vec4f,
    @location(0) uv: vec2f,
};

/* unused /* nested */ block
@group(3) @binding(0) var<uniform> ignored: f32;
*/

@vertex
fn vs_main(in: VertexInput) -> VertexOutput {
    var out: VertexOutput;
    out.clip = vec4f(in.position, 1.0);
    out.uv = in.uv;
    return out;
}
`

const testFragmentSource = `
struct FrameParams {
    layer: u32,
    _pad0: u32,
    _pad1: u32,
    _pad2: u32,
};

struct Tint {
    color: vec3f,
    strength: f32,
    offsets: array<vec2f, 3>,
};

@group(0) @binding(2) var<uniform> params: FrameParams;
@group(0) @binding(0) var frames: texture_2d_array<f32>;
@group(0) @binding(1) var frameSampler: sampler;
@group(1) @binding(0) var<uniform> tint: Tint;
@group(1) @binding(1) var<storage, read> history: array<u32>;

@fragment
fn fs_main(@location(0) uv: vec2f) -> @location(0) vec4f {
    return textureSample(frames, frameSampler, uv, params.layer);
}
`

func TestNewShaderVertex(t *testing.T) {
	s, err := NewShader("frame.vert", ShaderTypeVertex, testVertexSource)
	require.NoError(t, err)

	assert.Equal(t, "vs_main", s.EntryPoint())
	assert.Equal(t, ShaderTypeVertex, s.ShaderType())
	assert.Empty(t, s.BindGroupLayoutDescriptors(), "commented declarations are ignored")

	layouts := s.VertexLayouts()
	require.Len(t, layouts, 1)
	assert.Equal(t, uint64(20), layouts[0].ArrayStride)
	assert.Equal(t, []wgpu.VertexAttribute{
		{Format: wgpu.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 0},
		{Format: wgpu.VertexFormatFloat32x2, Offset: 12, ShaderLocation: 1},
	}, layouts[0].Attributes)

	require.NotNil(t, s.Module())
	assert.Equal(t, "frame.vert", s.Module().Label)
	assert.Equal(t, testVertexSource, s.Module().WGSLDescriptor.Code)
}

func TestNewShaderFragmentBindings(t *testing.T) {
	s, err := NewShader("frame.frag", ShaderTypeFragment, testFragmentSource)
	require.NoError(t, err)

	assert.Equal(t, "fs_main", s.EntryPoint())
	assert.Nil(t, s.VertexLayouts())

	layouts := s.BindGroupLayoutDescriptors()
	require.Len(t, layouts, 2)

	group0 := layouts[0].Entries
	require.Len(t, group0, 3)
	for i, e := range group0 {
		assert.Equal(t, uint32(i), e.Binding, "entries are sorted by binding")
		assert.Equal(t, wgpu.ShaderStageFragment, e.Visibility)
	}
	assert.Equal(t, wgpu.TextureViewDimension2DArray, group0[0].Texture.ViewDimension)
	assert.Equal(t, wgpu.TextureSampleTypeFloat, group0[0].Texture.SampleType)
	assert.Equal(t, wgpu.SamplerBindingTypeFiltering, group0[1].Sampler.Type)
	assert.Equal(t, wgpu.BufferBindingTypeUniform, group0[2].Buffer.Type)
	assert.Equal(t, uint64(16), group0[2].Buffer.MinBindingSize)

	group1 := layouts[1].Entries
	require.Len(t, group1, 2)
	// vec3f + f32 packs into 16 bytes, three vec2f add 24, rounded up to the 16-byte struct alignment.
	assert.Equal(t, uint64(48), group1[0].Buffer.MinBindingSize)
	assert.Equal(t, wgpu.BufferBindingTypeReadOnlyStorage, group1[1].Buffer.Type)
	assert.Equal(t, uint64(4), group1[1].Buffer.MinBindingSize)

	assert.Equal(t, "params", s.BindingName(0, 2))
	assert.Equal(t, "", s.BindingName(4, 0))
	binding, ok := s.BindingIndex(0, "frameSampler")
	assert.True(t, ok)
	assert.Equal(t, 1, binding)
	_, ok = s.BindingIndex(0, "missing")
	assert.False(t, ok)
}

func TestNewShaderErrors(t *testing.T) {
	_, err := NewShader("empty", ShaderTypeVertex, "")
	assert.Error(t, err)

	_, err = NewShader("wrong stage", ShaderTypeVertex, testFragmentSource)
	assert.Error(t, err)
}

func TestStripComments(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{name: "line", in: "a // b\nc", want: "a \nc"},
		{name: "trailing line", in: "a // b", want: "a "},
		{name: "block", in: "a /* b */ c", want: "a  c"},
		{name: "nested block", in: "a /* b /* c */ d */ e", want: "a  e"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, stripComments(tc.in))
		})
	}
}

func TestResolveLayout(t *testing.T) {
	known := map[string]typeLayout{"Pair": {size: 8, align: 4}}
	cases := []struct {
		typeName string
		want     typeLayout
		ok       bool
	}{
		{typeName: "vec3f", want: typeLayout{12, 16}, ok: true},
		{typeName: "Pair", want: typeLayout{8, 4}, ok: true},
		{typeName: "array<vec3f, 2>", want: typeLayout{32, 16}, ok: true},
		{typeName: "array<Pair>", want: typeLayout{8, 4}, ok: true},
		{typeName: "Unknown", ok: false},
		{typeName: "array<f32, n>", ok: false},
	}
	for _, tc := range cases {
		t.Run(tc.typeName, func(t *testing.T) {
			got, ok := resolveLayout(tc.typeName, known)
			assert.Equal(t, tc.ok, ok)
			if tc.ok {
				assert.Equal(t, tc.want, got)
			}
		})
	}
}
