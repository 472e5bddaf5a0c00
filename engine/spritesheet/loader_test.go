package spritesheet

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTextureArray struct {
	width, height uint32
	layers        [][]byte
	failLayer     int
	released      bool
}

func (f *fakeTextureArray) WriteLayer(pix []byte, region LayerRegion) error {
	if int(region.Layer) == f.failLayer {
		return errors.New("layer write failed")
	}
	if region.Layer >= uint32(len(f.layers)) || region.Width != f.width || region.Height != f.height {
		return fmt.Errorf("region %+v does not fit the array", region)
	}
	rowBytes := int(region.Width) * BytesPerPixel
	out := make([]byte, 0, rowBytes*int(region.Height))
	for y := range int(region.RowsPerImage) {
		start := int(region.Offset) + y*int(region.BytesPerRow)
		out = append(out, pix[start:start+rowBytes]...)
	}
	f.layers[region.Layer] = out
	return nil
}

func (f *fakeTextureArray) Layers() uint32 { return uint32(len(f.layers)) }

func (f *fakeTextureArray) Release() { f.released = true }

type fakeAllocator struct {
	created   *fakeTextureArray
	failLayer int
	err       error
}

func (a *fakeAllocator) CreateTextureArray(label string, width, height, layers uint32) (TextureArray, error) {
	if a.err != nil {
		return nil, a.err
	}
	a.created = &fakeTextureArray{width: width, height: height, layers: make([][]byte, layers), failLayer: a.failLayer}
	return a.created, nil
}

// coordColor encodes a pixel position so any texel can be traced back to its source.
func coordColor(x, y int) color.RGBA {
	return color.RGBA{R: uint8(x), G: uint8(y), B: uint8(x>>8)<<4 | uint8(y>>8), A: 255}
}

func writeSheet(t *testing.T, w, h int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.SetRGBA(x, y, coordColor(x, y))
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	path := filepath.Join(t.TempDir(), "sheet.png")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

func TestLoadUploadsFlippedFrames(t *testing.T) {
	const w, h, fw, fh = 699, 466, 233, 233
	path := writeSheet(t, w, h)
	alloc := &fakeAllocator{failLayer: -1}

	frames, err := NewLoader(WithAllocator(alloc), WithFlipWorkers(4)).Load(path, fw, fh)
	require.NoError(t, err)
	assert.Equal(t, uint32(6), frames.FrameCount())
	require.Len(t, alloc.created.layers, 6)

	for i := range 6 {
		layer := alloc.created.layers[i]
		require.Len(t, layer, fw*fh*BytesPerPixel, "layer %d", i)
		col, row := i%3, i/3
		// Layer row y holds source row h-1-(row*fh+y) once the sheet is flipped.
		for _, p := range []image.Point{{0, 0}, {fw - 1, 0}, {0, fh - 1}, {fw - 1, fh - 1}, {117, 42}} {
			want := coordColor(col*fw+p.X, h-1-(row*fh+p.Y))
			off := (p.Y*fw + p.X) * BytesPerPixel
			got := color.RGBA{R: layer[off], G: layer[off+1], B: layer[off+2], A: layer[off+3]}
			assert.Equal(t, want, got, "layer %d texel %v", i, p)
		}
	}
}

func TestLoadTruncatedGrid(t *testing.T) {
	path := writeSheet(t, 70, 30)
	alloc := &fakeAllocator{failLayer: -1}

	frames, err := NewLoader(WithAllocator(alloc), WithFlipWorkers(1)).Load(path, 32, 16)
	require.NoError(t, err)
	assert.True(t, frames.Sheet.Truncated())
	assert.Equal(t, uint32(2), frames.FrameCount())
}

func TestLoadBaseDir(t *testing.T) {
	path := writeSheet(t, 8, 8)
	alloc := &fakeAllocator{failLayer: -1}

	frames, err := NewLoader(WithAllocator(alloc), WithBaseDir(filepath.Dir(path))).Load("sheet.png", 4, 4)
	require.NoError(t, err)
	assert.Equal(t, uint32(4), frames.FrameCount())
}

func TestLoadFailures(t *testing.T) {
	good := writeSheet(t, 16, 16)
	corrupt := filepath.Join(t.TempDir(), "corrupt.png")
	require.NoError(t, os.WriteFile(corrupt, []byte("not an image"), 0o644))
	allocErr := errors.New("out of memory")

	cases := []struct {
		name    string
		path    string
		frameW  int
		alloc   *fakeAllocator
		wantErr error
	}{
		{name: "missing file", path: filepath.Join(t.TempDir(), "missing.png"), frameW: 8, alloc: &fakeAllocator{failLayer: -1}, wantErr: ErrDecode},
		{name: "corrupt file", path: corrupt, frameW: 8, alloc: &fakeAllocator{failLayer: -1}, wantErr: ErrDecode},
		{name: "frame too large", path: good, frameW: 32, alloc: &fakeAllocator{failLayer: -1}, wantErr: ErrGeometry},
		{name: "allocation failure", path: good, frameW: 8, alloc: &fakeAllocator{failLayer: -1, err: allocErr}, wantErr: allocErr},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			frames, err := NewLoader(WithAllocator(tc.alloc)).Load(tc.path, tc.frameW, 8)
			assert.Nil(t, frames)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestLoadReleasesOnUploadFailure(t *testing.T) {
	path := writeSheet(t, 16, 16)
	alloc := &fakeAllocator{failLayer: 2}

	frames, err := NewLoader(WithAllocator(alloc)).Load(path, 8, 8)
	assert.Nil(t, frames)
	assert.Error(t, err)
	require.NotNil(t, alloc.created)
	assert.True(t, alloc.created.released)
}

func TestLoadWithoutAllocator(t *testing.T) {
	_, err := NewLoader().Load("sheet.png", 8, 8)
	assert.Error(t, err)
}

func TestFlipVerticalBands(t *testing.T) {
	// Tall enough to be split across several bands.
	const w, h = 5, 301
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.SetRGBA(x, y, coordColor(x, y))
		}
	}

	FlipVertical(img, 4)

	for y := range h {
		for x := range w {
			assert.Equal(t, coordColor(x, h-1-y), img.RGBAAt(x, y), "pixel (%d,%d)", x, y)
		}
	}
}

func TestFlipVerticalTwiceIsIdentity(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 3, 7))
	for y := range 7 {
		for x := range 3 {
			img.SetRGBA(x, y, coordColor(x, y))
		}
	}
	orig := append([]byte(nil), img.Pix...)

	FlipVertical(img, 2)
	FlipVertical(img, 2)
	assert.Equal(t, orig, img.Pix)
}

func TestDecodeReaderConvertsToRGBA(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	src.SetNRGBA(1, 0, color.NRGBA{R: 10, G: 20, B: 30, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, src))

	img, err := DecodeReader(&buf)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 2, 2), img.Rect)
	assert.Equal(t, 2*BytesPerPixel, img.Stride)
	assert.Equal(t, color.RGBA{R: 10, G: 20, B: 30, A: 255}, img.RGBAAt(1, 0))
}
