package spritesheet

import (
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"runtime"
)

// loader is the implementation of the Loader interface.
type loader struct {
	allocator   Allocator
	flipWorkers int
	baseDir     string
}

// Loader turns a sprite sheet image into a populated FrameTextureArray.
type Loader interface {
	// Load decodes the image at path, flips it vertically, slices it into frames and uploads every frame into
	// its own layer of a new texture array. It does not return until every layer has been written.
	//
	// Parameters:
	//   - path: the image path, resolved against the loader's base directory when relative
	//   - frameWidth: the width of one frame in pixels
	//   - frameHeight: the height of one frame in pixels
	//
	// Returns:
	//   - *FrameTextureArray: the loaded frames
	//   - error: an error wrapping ErrDecode or ErrGeometry, or the allocator's error; nothing is retained on failure
	Load(path string, frameWidth, frameHeight int) (*FrameTextureArray, error)
}

var _ Loader = &loader{}

// NewLoader creates a Loader.
//
// Parameters:
//   - options: functional options, WithAllocator is required
//
// Returns:
//   - Loader: the new loader
func NewLoader(options ...LoaderBuilderOption) Loader {
	l := &loader{
		flipWorkers: runtime.NumCPU(),
	}
	for _, opt := range options {
		opt(l)
	}
	return l
}

func (l *loader) Load(path string, frameWidth, frameHeight int) (*FrameTextureArray, error) {
	if l.allocator == nil {
		return nil, errors.New("sprite sheet loader has no texture allocator")
	}
	if l.baseDir != "" && !filepath.IsAbs(path) {
		path = filepath.Join(l.baseDir, path)
	}

	img, err := Decode(path)
	if err != nil {
		return nil, err
	}
	FlipVertical(img, l.flipWorkers)

	sheet, err := NewSpriteSheet(img.Rect.Dx(), img.Rect.Dy(), frameWidth, frameHeight)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if sheet.Truncated() {
		log.Printf("[SpriteSheet] %dx%d frames do not tile %s (%dx%d), using a %dx%d grid",
			frameWidth, frameHeight, path, sheet.ImageWidth, sheet.ImageHeight, sheet.Columns, sheet.Rows)
	}

	tex, err := l.allocator.CreateTextureArray(filepath.Base(path), sheet.FrameWidth, sheet.FrameHeight, sheet.FrameCount())
	if err != nil {
		return nil, fmt.Errorf("failed to allocate %d frame layers: %w", sheet.FrameCount(), err)
	}

	for i := range sheet.FrameCount() {
		region, err := sheet.Region(i)
		if err == nil {
			err = tex.WriteLayer(img.Pix, region)
		}
		if err != nil {
			tex.Release()
			return nil, fmt.Errorf("failed to upload frame %d: %w", i, err)
		}
	}

	log.Printf("[SpriteSheet] loaded %d frames (%dx%d) from %s", sheet.FrameCount(), sheet.FrameWidth, sheet.FrameHeight, path)
	return &FrameTextureArray{Sheet: sheet, Texture: tex}, nil
}
