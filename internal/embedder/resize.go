package embedder

import (
	"bytes"
	"image"
	"image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"

	"github.com/Abhigyan126/Make-FaceDB/internal/constants"
)

// resizeForUpload downscales an image so neither dimension exceeds
// constants.MaxImageSize, re-encoding as JPEG. Images that are already small
// enough, or that cannot be decoded locally, are returned unchanged - the
// embedding server does its own decoding and reports decode errors.
func resizeForUpload(data []byte) []byte {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return data
	}

	resized := resizeImage(img, constants.MaxImageSize)
	if resized == img {
		return data
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, resized, &jpeg.Options{Quality: 90}); err != nil {
		return data
	}
	return buf.Bytes()
}

// resizeImage resizes an image to fit within maxSize while maintaining aspect ratio
func resizeImage(img image.Image, maxSize int) image.Image {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	// Calculate new dimensions
	var newWidth, newHeight int
	if width > height {
		if width <= maxSize {
			return img
		}
		newWidth = maxSize
		newHeight = height * maxSize / width
	} else {
		if height <= maxSize {
			return img
		}
		newHeight = maxSize
		newWidth = width * maxSize / height
	}

	// Create resized image
	dst := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}
