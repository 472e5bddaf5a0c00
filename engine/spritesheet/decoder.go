package spritesheet

import (
	"fmt"
	"image"
	"io"
	"os"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	xdraw "golang.org/x/image/draw"

	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// minRowsPerBand keeps small images from being split into bands too thin to be worth a task.
const minRowsPerBand = 32

// Decode reads an image file and returns it as a tightly packed RGBA8 image with its origin at (0, 0).
//
// Parameters:
//   - path: the image file path
//
// Returns:
//   - *image.RGBA: the decoded image
//   - error: an error wrapping ErrDecode if the file is missing or not a supported image
func Decode(path string) (*image.RGBA, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	defer f.Close()

	img, err := DecodeReader(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return img, nil
}

// DecodeReader decodes an image stream in any registered format (PNG, JPEG, BMP, TIFF, WebP) into RGBA8.
//
// Parameters:
//   - r: the encoded image stream
//
// Returns:
//   - *image.RGBA: the decoded image
//   - error: an error wrapping ErrDecode on failure
func DecodeReader(r io.Reader) (*image.RGBA, error) {
	src, format, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}

	b := src.Bounds()
	if b.Empty() {
		return nil, fmt.Errorf("%w: %s image is empty", ErrDecode, format)
	}
	if rgba, ok := src.(*image.RGBA); ok && b.Min == (image.Point{}) && rgba.Stride == b.Dx()*BytesPerPixel {
		return rgba, nil
	}

	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	xdraw.Draw(dst, dst.Bounds(), src, b.Min, xdraw.Src)
	return dst, nil
}

// FlipVertical mirrors an image top to bottom in place.
// Row pairs are split into bands that are swapped concurrently on a worker pool; the call returns once every band
// has been swapped.
//
// Parameters:
//   - img: the image to flip
//   - workers: the maximum number of concurrent workers, values < 1 use one worker
func FlipVertical(img *image.RGBA, workers int) {
	height := img.Rect.Dy()
	pairs := height / 2
	if pairs == 0 {
		return
	}

	workers = max(workers, 1)
	bandRows := max((pairs+workers-1)/workers, minRowsPerBand)
	bands := (pairs + bandRows - 1) / bandRows
	if bands == 1 {
		flipRows(img, 0, pairs)
		return
	}

	pool := worker.NewDynamicWorkerPool(workers, bands, 1*time.Second)
	defer pool.Stop()

	var wg sync.WaitGroup
	for band := range bands {
		start := band * bandRows
		end := min(start+bandRows, pairs)
		wg.Add(1)
		pool.SubmitTask(worker.Task{
			ID: band,
			Do: func() (any, error) {
				defer wg.Done()
				flipRows(img, start, end)
				return nil, nil
			},
		})
	}
	wg.Wait()
}

// flipRows swaps rows [start, end) with their mirrored counterparts.
func flipRows(img *image.RGBA, start, end int) {
	height := img.Rect.Dy()
	rowBytes := img.Rect.Dx() * BytesPerPixel
	tmp := make([]byte, rowBytes)
	for y := start; y < end; y++ {
		top := img.Pix[y*img.Stride : y*img.Stride+rowBytes]
		mirror := (height - 1 - y) * img.Stride
		bottom := img.Pix[mirror : mirror+rowBytes]
		copy(tmp, top)
		copy(top, bottom)
		copy(bottom, tmp)
	}
}
