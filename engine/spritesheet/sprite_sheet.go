package spritesheet

import (
	"errors"
	"fmt"
)

// BytesPerPixel is the size of one RGBA8 texel.
const BytesPerPixel = 4

var (
	// ErrDecode is returned when the sheet image cannot be read or decoded.
	ErrDecode = errors.New("sprite sheet decode failed")

	// ErrGeometry is returned when the frame size does not produce at least one frame.
	ErrGeometry = errors.New("invalid sprite sheet geometry")
)

// SpriteSheet describes a grid of equally sized frames packed into one image.
// Frame 0 is the bottom-left cell of the source image after it has been flipped vertically, and indices advance
// left to right and then upward.
type SpriteSheet struct {
	ImageWidth  uint32
	ImageHeight uint32
	FrameWidth  uint32
	FrameHeight uint32
	Columns     uint32
	Rows        uint32
}

// LayerRegion locates one frame inside the decoded pixel buffer as a texture upload region.
type LayerRegion struct {
	Layer        uint32
	Offset       uint64
	BytesPerRow  uint32
	RowsPerImage uint32
	Width        uint32
	Height       uint32
}

// NewSpriteSheet computes the frame grid of an image using floor division.
// Frames that do not fit entirely inside the image are dropped from the grid.
//
// Parameters:
//   - imageWidth: width of the source image in pixels
//   - imageHeight: height of the source image in pixels
//   - frameWidth: width of one frame in pixels
//   - frameHeight: height of one frame in pixels
//
// Returns:
//   - SpriteSheet: the computed sheet geometry
//   - error: ErrGeometry if a dimension is not positive or no complete frame fits
func NewSpriteSheet(imageWidth, imageHeight, frameWidth, frameHeight int) (SpriteSheet, error) {
	if frameWidth <= 0 || frameHeight <= 0 {
		return SpriteSheet{}, fmt.Errorf("%w: frame size %dx%d must be positive", ErrGeometry, frameWidth, frameHeight)
	}
	if imageWidth <= 0 || imageHeight <= 0 {
		return SpriteSheet{}, fmt.Errorf("%w: image size %dx%d must be positive", ErrGeometry, imageWidth, imageHeight)
	}
	s := SpriteSheet{
		ImageWidth:  uint32(imageWidth),
		ImageHeight: uint32(imageHeight),
		FrameWidth:  uint32(frameWidth),
		FrameHeight: uint32(frameHeight),
		Columns:     uint32(imageWidth / frameWidth),
		Rows:        uint32(imageHeight / frameHeight),
	}
	if s.FrameCount() == 0 {
		return SpriteSheet{}, fmt.Errorf("%w: frame %dx%d does not fit in image %dx%d", ErrGeometry, frameWidth, frameHeight, imageWidth, imageHeight)
	}
	return s, nil
}

// FrameCount returns the number of complete frames in the grid.
func (s SpriteSheet) FrameCount() uint32 {
	return s.Columns * s.Rows
}

// Truncated reports whether the frame size leaves pixels uncovered on the right or top edge.
func (s SpriteSheet) Truncated() bool {
	return s.Columns*s.FrameWidth != s.ImageWidth || s.Rows*s.FrameHeight != s.ImageHeight
}

// Region returns the upload region of frame i in a tightly packed RGBA8 buffer of the whole image.
// The row pitch is the full image row, since frames sit side by side within each source row.
//
// Parameters:
//   - i: the frame index
//
// Returns:
//   - LayerRegion: the offset and pitch of the frame within the buffer
//   - error: ErrGeometry if i is out of range
func (s SpriteSheet) Region(i uint32) (LayerRegion, error) {
	if i >= s.FrameCount() {
		return LayerRegion{}, fmt.Errorf("%w: frame %d out of range [0, %d)", ErrGeometry, i, s.FrameCount())
	}
	col := uint64(i % s.Columns)
	row := uint64(i / s.Columns)
	offset := uint64(s.FrameWidth)*BytesPerPixel*col + uint64(s.ImageWidth)*BytesPerPixel*uint64(s.FrameHeight)*row
	return LayerRegion{
		Layer:        i,
		Offset:       offset,
		BytesPerRow:  s.ImageWidth * BytesPerPixel,
		RowsPerImage: s.FrameHeight,
		Width:        s.FrameWidth,
		Height:       s.FrameHeight,
	}, nil
}

// FramePixels copies frame i out of a tightly packed RGBA8 buffer of the whole image.
//
// Parameters:
//   - pix: the image buffer, ImageWidth*ImageHeight*4 bytes
//   - i: the frame index
//
// Returns:
//   - []byte: FrameWidth*FrameHeight*4 bytes of the frame, row-major
//   - error: ErrGeometry if i is out of range or pix is too short
func (s SpriteSheet) FramePixels(pix []byte, i uint32) ([]byte, error) {
	region, err := s.Region(i)
	if err != nil {
		return nil, err
	}
	if uint64(len(pix)) < uint64(s.ImageWidth)*uint64(s.ImageHeight)*BytesPerPixel {
		return nil, fmt.Errorf("%w: buffer of %d bytes is smaller than a %dx%d image", ErrGeometry, len(pix), s.ImageWidth, s.ImageHeight)
	}
	rowBytes := int(region.Width) * BytesPerPixel
	out := make([]byte, 0, rowBytes*int(region.Height))
	for y := range int(region.Height) {
		start := int(region.Offset) + y*int(region.BytesPerRow)
		out = append(out, pix[start:start+rowBytes]...)
	}
	return out, nil
}
