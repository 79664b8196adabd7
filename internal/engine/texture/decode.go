// Package texture provides image decoding for model textures.
package texture

import (
	"bytes"
	"fmt"
	"image"

	_ "image/jpeg" // JPEG decoder registration
	_ "image/png"  // PNG decoder registration

	_ "golang.org/x/image/bmp" // BMP decoder registration
)

// Decode decodes an image into raw pixel bytes.
// Returns width, height, channel count (3 or 4) and tightly packed pixels
// (RGB or RGBA row-major, top-down). Formats with no alpha channel report 3
// channels; callers expand to RGBA before GPU upload.
func Decode(data []byte) (width, height, channels int, pixels []byte, err error) {
	if len(data) == 0 {
		return 0, 0, 0, nil, fmt.Errorf("empty image data")
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		// Not a registered format; try TGA, which has no magic bytes and
		// cannot be registered with the image package.
		img, tgaErr := DecodeTGA(data)
		if tgaErr != nil {
			return 0, 0, 0, nil, fmt.Errorf("decoding image: %w", err)
		}
		return flatten(img, 4)
	}

	// JPEG and friends have no alpha; report 3 channels so callers know the
	// source was opaque.
	if format == "jpeg" {
		return flatten(img, 3)
	}
	return flatten(img, 4)
}

// flatten converts a decoded image into a tightly packed byte slice with the
// requested channel count.
func flatten(img image.Image, channels int) (int, int, int, []byte, error) {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= 0 || h <= 0 {
		return 0, 0, 0, nil, fmt.Errorf("invalid image dimensions %dx%d", w, h)
	}

	pixels := make([]byte, w*h*channels)
	i := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r16, g16, b16, a16 := img.At(x, y).RGBA()
			pixels[i] = uint8(r16 >> 8)
			pixels[i+1] = uint8(g16 >> 8)
			pixels[i+2] = uint8(b16 >> 8)
			if channels == 4 {
				pixels[i+3] = uint8(a16 >> 8)
			}
			i += channels
		}
	}

	return w, h, channels, pixels, nil
}

// ExpandRGB converts 3-channel pixel data to RGBA with alpha 255.
// 4-channel input is returned unchanged.
func ExpandRGB(pixels []byte, width, height, channels int) []byte {
	if channels == 4 {
		return pixels
	}

	out := make([]byte, width*height*4)
	for p := 0; p < width*height; p++ {
		out[p*4] = pixels[p*3]
		out[p*4+1] = pixels[p*3+1]
		out[p*4+2] = pixels[p*3+2]
		out[p*4+3] = 255
	}
	return out
}
