package imaging

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"

	"github.com/nfnt/resize"
)

const (
	thumbnailMaxDim = 480
	jpegQuality     = 85
)

// Result holds everything derived from an uploaded image: a JPEG
// thumbnail fitting within a 480px bounding box, an average-color
// placeholder for progressive loading, and the source dimensions.
type Result struct {
	Thumbnail   []byte
	Placeholder string
	Width       int
	Height      int
	ContentType string
}

// Process decodes the uploaded bytes and derives the thumbnail,
// placeholder and dimensions. JPEG, PNG and GIF are supported.
func Process(data []byte) (*Result, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	bounds := img.Bounds()

	thumb := resize.Thumbnail(thumbnailMaxDim, thumbnailMaxDim, img, resize.Lanczos3)
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, thumb, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode thumbnail: %w", err)
	}

	return &Result{
		Thumbnail:   buf.Bytes(),
		Placeholder: averageColor(thumb),
		Width:       bounds.Dx(),
		Height:      bounds.Dy(),
		ContentType: "image/" + format,
	}, nil
}

// averageColor reduces an image to its mean color as a #rrggbb string.
// Computed over the thumbnail, which is small enough for a full pass.
func averageColor(img image.Image) string {
	bounds := img.Bounds()
	var r, g, b, n uint64
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			cr, cg, cb, _ := img.At(x, y).RGBA()
			r += uint64(cr >> 8)
			g += uint64(cg >> 8)
			b += uint64(cb >> 8)
			n++
		}
	}
	if n == 0 {
		return "#000000"
	}
	return fmt.Sprintf("#%02x%02x%02x", r/n, g/n, b/n)
}
