package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"
)

func solidPNG(t *testing.T, width, height int, c color.RGBA) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode test image: %v", err)
	}
	return buf.Bytes()
}

func TestProcess(t *testing.T) {
	data := solidPNG(t, 100, 50, color.RGBA{R: 255, A: 255})

	result, err := Process(data)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if result.Width != 100 || result.Height != 50 {
		t.Errorf("dimensions = %dx%d, want 100x50", result.Width, result.Height)
	}
	if result.ContentType != "image/png" {
		t.Errorf("ContentType = %q, want image/png", result.ContentType)
	}
	if result.Placeholder != "#ff0000" {
		t.Errorf("Placeholder = %q, want #ff0000", result.Placeholder)
	}

	thumb, err := jpeg.Decode(bytes.NewReader(result.Thumbnail))
	if err != nil {
		t.Fatalf("thumbnail is not valid JPEG: %v", err)
	}
	// Source fits inside the bounding box, so no downscaling happens.
	bounds := thumb.Bounds()
	if bounds.Dx() != 100 || bounds.Dy() != 50 {
		t.Errorf("thumbnail = %dx%d, want 100x50", bounds.Dx(), bounds.Dy())
	}
}

func TestProcessDownscalesLargeImages(t *testing.T) {
	data := solidPNG(t, 960, 480, color.RGBA{G: 128, A: 255})

	result, err := Process(data)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if result.Width != 960 || result.Height != 480 {
		t.Errorf("source dimensions = %dx%d, want 960x480", result.Width, result.Height)
	}

	thumb, err := jpeg.Decode(bytes.NewReader(result.Thumbnail))
	if err != nil {
		t.Fatalf("thumbnail is not valid JPEG: %v", err)
	}
	bounds := thumb.Bounds()
	if bounds.Dx() != 480 || bounds.Dy() != 240 {
		t.Errorf("thumbnail = %dx%d, want 480x240", bounds.Dx(), bounds.Dy())
	}
}

func TestProcessRejectsGarbage(t *testing.T) {
	if _, err := Process([]byte("definitely not an image")); err == nil {
		t.Fatal("expected error for non-image payload")
	}
}
