package spritesheet

// Allocator creates GPU texture arrays for sprite frames.
type Allocator interface {
	// CreateTextureArray allocates an RGBA8 2D texture array.
	//
	// Parameters:
	//   - label: a debug label for the texture
	//   - width: the width of each layer in pixels
	//   - height: the height of each layer in pixels
	//   - layers: the number of layers
	//
	// Returns:
	//   - TextureArray: the allocated texture array
	//   - error: an error if the allocation failed
	CreateTextureArray(label string, width, height, layers uint32) (TextureArray, error)
}

// TextureArray is a GPU-resident array texture with one layer per frame.
type TextureArray interface {
	// WriteLayer uploads one frame into its layer.
	//
	// Parameters:
	//   - pix: the source buffer containing the frame
	//   - region: where the frame sits inside pix and which layer receives it
	//
	// Returns:
	//   - error: an error if the region does not fit the buffer or the array
	WriteLayer(pix []byte, region LayerRegion) error

	// Layers returns the number of layers in the array.
	Layers() uint32

	// Release frees the GPU resources held by the array.
	Release()
}

// FrameTextureArray is a loaded sprite sheet: its geometry plus the texture array holding every frame.
type FrameTextureArray struct {
	Sheet   SpriteSheet
	Texture TextureArray
}

// FrameCount returns the number of layers that can be sampled.
func (f *FrameTextureArray) FrameCount() uint32 {
	return f.Sheet.FrameCount()
}

// Release frees the texture array. It is safe to call more than once.
func (f *FrameTextureArray) Release() {
	if f == nil || f.Texture == nil {
		return
	}
	f.Texture.Release()
	f.Texture = nil
}
