package texture

import (
	"fmt"
	"image"
	"image/color"
)

// TGA image type codes.
const (
	tgaTypeUncompressed = 2  // Uncompressed true-color
	tgaTypeRLE          = 10 // RLE compressed true-color
)

// DecodeTGA decodes a TGA image. Supports uncompressed and RLE true-color
// files at 24 or 32 bits per pixel.
func DecodeTGA(data []byte) (image.Image, error) {
	if len(data) < 18 {
		return nil, fmt.Errorf("TGA data too short")
	}

	idLength := int(data[0])
	colorMapType := data[1]
	imageType := data[2]
	width := int(data[12]) | int(data[13])<<8
	height := int(data[14]) | int(data[15])<<8
	bpp := int(data[16])
	descriptor := data[17]

	if colorMapType != 0 {
		return nil, fmt.Errorf("color-mapped TGA not supported")
	}
	if imageType != tgaTypeUncompressed && imageType != tgaTypeRLE {
		return nil, fmt.Errorf("unsupported TGA type %d", imageType)
	}
	if bpp != 24 && bpp != 32 {
		return nil, fmt.Errorf("unsupported TGA bit depth %d", bpp)
	}

	offset := 18 + idLength
	if offset > len(data) {
		return nil, fmt.Errorf("TGA data truncated")
	}
	pixelData := data[offset:]

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	bytesPerPixel := bpp / 8
	// Bit 5 of the descriptor: rows stored top-to-bottom.
	topToBottom := (descriptor & 0x20) != 0

	set := func(pixelIdx int, c color.RGBA) {
		x := pixelIdx % width
		y := pixelIdx / width
		if !topToBottom {
			y = height - 1 - y
		}
		img.SetRGBA(x, y, c)
	}

	readPixel := func(i int) (color.RGBA, bool) {
		if i+bytesPerPixel > len(pixelData) {
			return color.RGBA{}, false
		}
		c := color.RGBA{B: pixelData[i], G: pixelData[i+1], R: pixelData[i+2], A: 255}
		if bytesPerPixel == 4 {
			c.A = pixelData[i+3]
		}
		return c, true
	}

	pixelCount := width * height

	if imageType == tgaTypeUncompressed {
		if len(pixelData) < pixelCount*bytesPerPixel {
			return nil, fmt.Errorf("TGA pixel data truncated")
		}
		for p := 0; p < pixelCount; p++ {
			c, _ := readPixel(p * bytesPerPixel)
			set(p, c)
		}
		return img, nil
	}

	// RLE: each packet header encodes a run (high bit set) or a raw span.
	pixelIdx := 0
	dataIdx := 0
	for pixelIdx < pixelCount && dataIdx < len(pixelData) {
		packet := pixelData[dataIdx]
		dataIdx++
		count := int(packet&0x7F) + 1

		if packet&0x80 != 0 {
			c, ok := readPixel(dataIdx)
			if !ok {
				break
			}
			dataIdx += bytesPerPixel
			for i := 0; i < count && pixelIdx < pixelCount; i++ {
				set(pixelIdx, c)
				pixelIdx++
			}
		} else {
			for i := 0; i < count && pixelIdx < pixelCount; i++ {
				c, ok := readPixel(dataIdx)
				if !ok {
					break
				}
				dataIdx += bytesPerPixel
				set(pixelIdx, c)
				pixelIdx++
			}
		}
	}

	return img, nil
}
