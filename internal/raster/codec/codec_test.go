package codec_test

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/ibooker/imgloader/internal/raster"
	"github.com/ibooker/imgloader/internal/raster/codec"
)

func testImage(width, height int) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.NRGBA{uint8(x * 255 / width), uint8(y * 255 / height), 128, 255})
		}
	}
	return img
}

func TestRoundTrip(t *testing.T) {
	c := codec.New()
	src := testImage(40, 30)

	for _, format := range []raster.OutputFormat{raster.PNG, raster.JPEG, raster.WebP} {
		t.Run(format.String(), func(t *testing.T) {
			data, err := c.Encode(src, format, 80)
			if err != nil {
				t.Fatal(err)
			}

			img, err := c.Decode(data)
			if err != nil {
				t.Fatal(err)
			}

			if img.Bounds().Dx() != 40 || img.Bounds().Dy() != 30 {
				t.Errorf("wrong dimensions %v", img.Bounds())
			}
		})
	}
}

func TestPNGIsLossless(t *testing.T) {
	c := codec.New()
	src := testImage(8, 8)

	data, err := c.Encode(src, raster.PNG, 1)
	if err != nil {
		t.Fatal(err)
	}

	img, err := c.Decode(data)
	if err != nil {
		t.Fatal(err)
	}

	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			if color.NRGBAModel.Convert(img.At(x, y)) != src.At(x, y) {
				t.Fatalf("pixel %d,%d changed", x, y)
			}
		}
	}
}

func TestJPEGQualityAffectsSize(t *testing.T) {
	c := codec.New()
	src := testImage(64, 64)

	low, err := c.Encode(src, raster.JPEG, 5)
	if err != nil {
		t.Fatal(err)
	}

	high, err := c.Encode(src, raster.JPEG, 100)
	if err != nil {
		t.Fatal(err)
	}

	if len(low) >= len(high) {
		t.Errorf("low quality output (%d bytes) is not smaller than high quality output (%d bytes)", len(low), len(high))
	}
}

func TestErrors(t *testing.T) {
	c := codec.New()

	if _, err := c.Decode(nil); !errors.Is(err, codec.ErrEmptyBuffer) {
		t.Errorf("wrong error for empty buffer: %v", err)
	}

	if _, err := c.Decode([]byte("definitely not an image")); err == nil {
		t.Error("no error for garbage data")
	}

	if _, err := c.Encode(nil, raster.PNG, 50); !errors.Is(err, codec.ErrNoImage) {
		t.Errorf("wrong error for nil image: %v", err)
	}
}
