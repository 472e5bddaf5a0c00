package renderer

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-overlay/engine/spritesheet"
	"github.com/cogentcore/webgpu/wgpu"
)

// textureArrayView is implemented by texture arrays that can be bound to a shader.
type textureArrayView interface {
	View() *wgpu.TextureView
}

// wgpuTextureArray is a WebGPU 2D texture array holding one sprite frame per layer.
type wgpuTextureArray struct {
	queue   *wgpu.Queue
	texture *wgpu.Texture
	view    *wgpu.TextureView
	width   uint32
	height  uint32
	layers  uint32
}

var _ spritesheet.TextureArray = &wgpuTextureArray{}
var _ textureArrayView = &wgpuTextureArray{}

func (t *wgpuTextureArray) WriteLayer(pix []byte, region spritesheet.LayerRegion) error {
	if err := validateRegion(len(pix), region, t.width, t.height, t.layers); err != nil {
		return err
	}
	t.queue.WriteTexture(
		&wgpu.ImageCopyTexture{
			Texture:  t.texture,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{X: 0, Y: 0, Z: region.Layer},
			Aspect:   wgpu.TextureAspectAll,
		},
		pix,
		&wgpu.TextureDataLayout{
			Offset:       region.Offset,
			BytesPerRow:  region.BytesPerRow,
			RowsPerImage: region.RowsPerImage,
		},
		&wgpu.Extent3D{
			Width:              region.Width,
			Height:             region.Height,
			DepthOrArrayLayers: 1,
		},
	)
	return nil
}

func (t *wgpuTextureArray) Layers() uint32 {
	return t.layers
}

func (t *wgpuTextureArray) View() *wgpu.TextureView {
	return t.view
}

func (t *wgpuTextureArray) Release() {
	if t.view != nil {
		t.view.Release()
		t.view = nil
	}
	if t.texture != nil {
		t.texture.Release()
		t.texture = nil
	}
}

// validateRegion checks that a layer upload stays inside both the source buffer and the texture array.
func validateRegion(pixLen int, region spritesheet.LayerRegion, width, height, layers uint32) error {
	if region.Layer >= layers {
		return fmt.Errorf("%w: layer %d out of range [0, %d)", ErrAllocation, region.Layer, layers)
	}
	if region.Width != width || region.Height != height {
		return fmt.Errorf("%w: region %dx%d does not match layer size %dx%d", ErrAllocation, region.Width, region.Height, width, height)
	}
	rowBytes := uint64(region.Width) * spritesheet.BytesPerPixel
	if region.BytesPerRow == 0 || uint64(region.BytesPerRow) < rowBytes || region.RowsPerImage < region.Height {
		return fmt.Errorf("%w: row pitch %d is smaller than a %d pixel row", ErrAllocation, region.BytesPerRow, region.Width)
	}
	end := region.Offset + uint64(region.Height-1)*uint64(region.BytesPerRow) + rowBytes
	if end > uint64(pixLen) {
		return fmt.Errorf("%w: layer %d reads %d bytes past a %d byte buffer", ErrAllocation, region.Layer, end-uint64(pixLen), pixLen)
	}
	return nil
}
