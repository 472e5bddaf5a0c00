package shader

import (
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/cogentcore/webgpu/wgpu"
)

// typeLayout is the byte size and alignment of a host-shareable WGSL type.
type typeLayout struct {
	size  uint64
	align uint64
}

// field is a single member of a WGSL struct.
type field struct {
	name     string
	typeName string
	location int
	builtin  bool
}

// wgslStruct is a parsed struct declaration.
type wgslStruct struct {
	name   string
	fields []field
}

// vertexFormats maps WGSL vertex input types to their vertex format and byte size.
var vertexFormats = map[string]struct {
	format wgpu.VertexFormat
	size   uint64
}{
	"f32":   {wgpu.VertexFormatFloat32, 4},
	"vec2f": {wgpu.VertexFormatFloat32x2, 8},
	"vec3f": {wgpu.VertexFormatFloat32x3, 12},
	"vec4f": {wgpu.VertexFormatFloat32x4, 16},
	"u32":   {wgpu.VertexFormatUint32, 4},
	"vec2u": {wgpu.VertexFormatUint32x2, 8},
	"vec4u": {wgpu.VertexFormatUint32x4, 16},
	"i32":   {wgpu.VertexFormatSint32, 4},
	"vec2i": {wgpu.VertexFormatSint32x2, 8},
	"vec4i": {wgpu.VertexFormatSint32x4, 16},
}

// primitiveLayouts holds size and alignment of scalar, vector and matrix types.
var primitiveLayouts = map[string]typeLayout{
	"f32":     {4, 4},
	"i32":     {4, 4},
	"u32":     {4, 4},
	"vec2f":   {8, 8},
	"vec2u":   {8, 8},
	"vec2i":   {8, 8},
	"vec3f":   {12, 16},
	"vec3u":   {12, 16},
	"vec3i":   {12, 16},
	"vec4f":   {16, 16},
	"vec4u":   {16, 16},
	"vec4i":   {16, 16},
	"mat3x4f": {48, 16},
	"mat4x4f": {64, 16},
}

// textureDimensions maps sampled texture types to their view dimension.
var textureDimensions = map[string]wgpu.TextureViewDimension{
	"texture_2d":         wgpu.TextureViewDimension2D,
	"texture_2d_array":   wgpu.TextureViewDimension2DArray,
	"texture_cube":       wgpu.TextureViewDimensionCube,
	"texture_3d":         wgpu.TextureViewDimension3D,
	"texture_cube_array": wgpu.TextureViewDimensionCubeArray,
}

var (
	structRegex   = regexp.MustCompile(`struct\s+(\w+)\s*\{([^}]*)\}`)
	locationRegex = regexp.MustCompile(`@location\((\d+)\)`)
	memberRegex   = regexp.MustCompile(`(\w+)\s*:\s*(.+)$`)
	entryRegex    = map[ShaderType]*regexp.Regexp{
		ShaderTypeVertex:   regexp.MustCompile(`(?s)@vertex\b.*?\bfn\s+(\w+)`),
		ShaderTypeFragment: regexp.MustCompile(`(?s)@fragment\b.*?\bfn\s+(\w+)`),
	}
	// @group(0) @binding(1) var<uniform> params: FrameParams;
	bindingRegex = regexp.MustCompile(`@group\((\d+)\)\s*@binding\((\d+)\)\s*var(?:<([^>]*)>)?\s+(\w+)\s*:\s*([^;]+?)\s*;`)
)

// parseEntryPoint returns the name of the first entry point function for the stage, or "".
func parseEntryPoint(source string, shaderType ShaderType) string {
	re, ok := entryRegex[shaderType]
	if !ok {
		return ""
	}
	if m := re.FindStringSubmatch(source); m != nil {
		return m[1]
	}
	return ""
}

// parseStructs extracts every struct declaration from comment-free source.
func parseStructs(source string) []wgslStruct {
	var out []wgslStruct
	for _, m := range structRegex.FindAllStringSubmatch(source, -1) {
		s := wgslStruct{name: m[1]}
		for _, member := range splitTopLevel(m[2]) {
			member = strings.TrimSpace(member)
			mm := memberRegex.FindStringSubmatch(member)
			if mm == nil {
				continue
			}
			f := field{
				name:     mm[1],
				typeName: strings.TrimSpace(mm[2]),
				location: -1,
				builtin:  strings.Contains(member, "@builtin("),
			}
			if lm := locationRegex.FindStringSubmatch(member); lm != nil {
				f.location, _ = strconv.Atoi(lm[1])
			}
			s.fields = append(s.fields, f)
		}
		out = append(out, s)
	}
	return out
}

// parseVertexLayouts builds a vertex buffer layout for every struct made only of @location members.
// Structs with a @builtin member are stage outputs and are skipped, as are structs with unsupported member types.
func parseVertexLayouts(structs []wgslStruct) []wgpu.VertexBufferLayout {
	var layouts []wgpu.VertexBufferLayout
outer:
	for _, s := range structs {
		if len(s.fields) == 0 {
			continue
		}
		var offset uint64
		attrs := make([]wgpu.VertexAttribute, 0, len(s.fields))
		for _, f := range s.fields {
			vf, ok := vertexFormats[f.typeName]
			if f.builtin || f.location < 0 || !ok {
				continue outer
			}
			attrs = append(attrs, wgpu.VertexAttribute{
				Format:         vf.format,
				Offset:         offset,
				ShaderLocation: uint32(f.location),
			})
			offset += vf.size
		}
		layouts = append(layouts, wgpu.VertexBufferLayout{
			ArrayStride: offset,
			StepMode:    wgpu.VertexStepModeVertex,
			Attributes:  attrs,
		})
	}
	return layouts
}

// parseBindGroupLayouts turns every @group/@binding declaration into a layout entry and records the variable names.
func parseBindGroupLayouts(source string, structs []wgslStruct, visibility wgpu.ShaderStage) (map[int]wgpu.BindGroupLayoutDescriptor, map[int]map[int]string) {
	sizes := structLayouts(structs)
	entries := make(map[int][]wgpu.BindGroupLayoutEntry)
	names := make(map[int]map[int]string)

	for _, m := range bindingRegex.FindAllStringSubmatch(source, -1) {
		group, _ := strconv.Atoi(m[1])
		binding, _ := strconv.Atoi(m[2])
		entry := classifyBinding(uint32(binding), visibility, strings.TrimSpace(m[3]), m[5])
		if entry.Buffer.Type != wgpu.BufferBindingTypeUndefined {
			if l, ok := resolveLayout(m[5], sizes); ok {
				entry.Buffer.MinBindingSize = l.size
			}
		}
		entries[group] = append(entries[group], entry)
		if names[group] == nil {
			names[group] = make(map[int]string)
		}
		names[group][binding] = m[4]
	}

	layouts := make(map[int]wgpu.BindGroupLayoutDescriptor, len(entries))
	for group, list := range entries {
		slices.SortFunc(list, func(a, b wgpu.BindGroupLayoutEntry) int {
			return int(a.Binding) - int(b.Binding)
		})
		layouts[group] = wgpu.BindGroupLayoutDescriptor{Entries: list}
	}
	return layouts, names
}

// classifyBinding fills the buffer, sampler or texture part of a layout entry from a declaration.
func classifyBinding(binding uint32, visibility wgpu.ShaderStage, addressSpace, typeName string) wgpu.BindGroupLayoutEntry {
	entry := wgpu.BindGroupLayoutEntry{Binding: binding, Visibility: visibility}
	switch {
	case addressSpace == "uniform":
		entry.Buffer.Type = wgpu.BufferBindingTypeUniform
	case strings.HasPrefix(addressSpace, "storage") && strings.Contains(addressSpace, "read_write"):
		entry.Buffer.Type = wgpu.BufferBindingTypeStorage
	case strings.HasPrefix(addressSpace, "storage"):
		entry.Buffer.Type = wgpu.BufferBindingTypeReadOnlyStorage
	case typeName == "sampler":
		entry.Sampler.Type = wgpu.SamplerBindingTypeFiltering
	case typeName == "sampler_comparison":
		entry.Sampler.Type = wgpu.SamplerBindingTypeComparison
	case strings.HasPrefix(typeName, "texture_"):
		base, param, _ := strings.Cut(typeName, "<")
		entry.Texture.ViewDimension = textureDimensions[base]
		switch strings.TrimSuffix(param, ">") {
		case "u32":
			entry.Texture.SampleType = wgpu.TextureSampleTypeUint
		case "i32":
			entry.Texture.SampleType = wgpu.TextureSampleTypeSint
		default:
			entry.Texture.SampleType = wgpu.TextureSampleTypeFloat
		}
	}
	return entry
}

// structLayouts computes host-shareable layouts for every struct whose members can be resolved.
// Structs may reference each other in any order, so resolution repeats until nothing new resolves.
func structLayouts(structs []wgslStruct) map[string]typeLayout {
	known := make(map[string]typeLayout, len(structs))
	for progress := true; progress; {
		progress = false
		for _, s := range structs {
			if _, done := known[s.name]; done {
				continue
			}
			var offset uint64
			align := uint64(1)
			ok := true
			for _, f := range s.fields {
				l, found := resolveLayout(f.typeName, known)
				if !found {
					ok = false
					break
				}
				offset = roundUp(l.align, offset) + l.size
				align = max(align, l.align)
			}
			if ok {
				known[s.name] = typeLayout{size: roundUp(align, offset), align: align}
				progress = true
			}
		}
	}
	return known
}

// resolveLayout finds the layout of a primitive, known struct or fixed-size array type.
func resolveLayout(typeName string, known map[string]typeLayout) (typeLayout, bool) {
	typeName = strings.TrimSpace(typeName)
	if l, ok := primitiveLayouts[typeName]; ok {
		return l, true
	}
	if l, ok := known[typeName]; ok {
		return l, true
	}
	inner, ok := strings.CutPrefix(typeName, "array<")
	if !ok {
		return typeLayout{}, false
	}
	elem, count, fixed := strings.Cut(strings.TrimSuffix(inner, ">"), ",")
	el, ok := resolveLayout(elem, known)
	if !ok {
		return typeLayout{}, false
	}
	stride := roundUp(el.align, el.size)
	if !fixed {
		return typeLayout{size: stride, align: el.align}, true
	}
	n, err := strconv.ParseUint(strings.TrimSpace(count), 10, 64)
	if err != nil {
		return typeLayout{}, false
	}
	return typeLayout{size: n * stride, align: el.align}, true
}

// roundUp rounds v up to a multiple of the power-of-two alignment a.
func roundUp(a, v uint64) uint64 {
	if a == 0 {
		return v
	}
	return (v + a - 1) &^ (a - 1)
}

// splitTopLevel splits a struct body at commas that are not inside angle brackets.
func splitTopLevel(s string) []string {
	var parts []string
	depth, start := 0, 0
	for i, c := range s {
		switch c {
		case '<':
			depth++
		case '>':
			depth = max(depth-1, 0)
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}

// stripComments removes line comments and nested block comments.
func stripComments(source string) string {
	var sb strings.Builder
	sb.Grow(len(source))
	depth := 0
	for i := 0; i < len(source); i++ {
		switch {
		case depth == 0 && strings.HasPrefix(source[i:], "//"):
			end := strings.IndexByte(source[i:], '\n')
			if end < 0 {
				return sb.String()
			}
			i += end - 1
		case strings.HasPrefix(source[i:], "/*"):
			depth++
			i++
		case depth > 0 && strings.HasPrefix(source[i:], "*/"):
			depth--
			i++
		case depth == 0:
			sb.WriteByte(source[i])
		}
	}
	return sb.String()
}
