// package common contains plain types and helpers shared by the overlay engine packages. They are not interface-wrapped
// structs, just small value types and functions.
package common

import (
	"github.com/cogentcore/webgpu/wgpu"
)

// Color is a linear RGBA color with components in [0, 1].
type Color struct {
	R, G, B, A float64
}

// GPU converts the color to the wgpu clear value representation.
//
// Returns:
//   - wgpu.Color: the color as a wgpu clear value
func (c Color) GPU() wgpu.Color {
	return wgpu.Color{R: c.R, G: c.G, B: c.B, A: c.A}
}

// SamplerStagingData holds the configuration for a sampler binding pending GPU creation.
// Zero values fall back to the renderer defaults (repeat addressing, linear filtering).
type SamplerStagingData struct {
	// AddressModeU, AddressModeV, AddressModeW specify the addressing mode for texture coordinates outside the [0, 1] range.
	AddressModeU, AddressModeV, AddressModeW wgpu.AddressMode
	// MagFilter and MinFilter specify the filtering mode for magnification and minification.
	MagFilter, MinFilter wgpu.FilterMode
	// MipmapFilter specifies the filtering mode for mipmap level selection.
	MipmapFilter wgpu.MipmapFilterMode
	// LodMinClamp and LodMaxClamp specify the minimum and maximum level of detail.
	LodMinClamp, LodMaxClamp float32
	// MaxAnisotropy specifies the maximum anisotropy level for anisotropic filtering.
	MaxAnisotropy uint16
}

// NearestClampSampler is the sampler used to read sprite frames: no filtering between texels and no wrap at the edges.
var NearestClampSampler = SamplerStagingData{
	AddressModeU: wgpu.AddressModeClampToEdge,
	AddressModeV: wgpu.AddressModeClampToEdge,
	AddressModeW: wgpu.AddressModeClampToEdge,
	MagFilter:    wgpu.FilterModeNearest,
	MinFilter:    wgpu.FilterModeNearest,
	MipmapFilter: wgpu.MipmapFilterModeNearest,
}

// LinearClampSampler is the sampler used when the finished overlay frame is scaled for presentation.
var LinearClampSampler = SamplerStagingData{
	AddressModeU: wgpu.AddressModeClampToEdge,
	AddressModeV: wgpu.AddressModeClampToEdge,
	AddressModeW: wgpu.AddressModeClampToEdge,
	MagFilter:    wgpu.FilterModeLinear,
	MinFilter:    wgpu.FilterModeLinear,
	MipmapFilter: wgpu.MipmapFilterModeLinear,
}
