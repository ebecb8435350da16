package ocr

import (
	"bytes"
	"fmt"

	"github.com/disintegration/imaging"
)

const (
	// MaxImageBytes is the largest upload accepted for recognition (20MB).
	MaxImageBytes = 20 * 1024 * 1024

	// MaxImageWidth is the width wider images are scaled down to.
	MaxImageWidth = 2000
)

// PrepareImage validates an uploaded invoice image and normalizes it for
// recognition: EXIF orientation applied, at most MaxImageWidth pixels wide,
// encoded as PNG.
func PrepareImage(data []byte) ([]byte, error) {
	const op = "PrepareImage"

	if len(data) == 0 {
		return nil, WrapOCRError(op, ErrInvalidImage, "empty image")
	}
	if len(data) > MaxImageBytes {
		return nil, WrapOCRError(op, ErrImageTooLarge, fmt.Sprintf("file size: %d bytes", len(data)))
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, WrapOCRError(op, ErrInvalidImage, err.Error())
	}

	if img.Bounds().Dx() > MaxImageWidth {
		img = imaging.Resize(img, MaxImageWidth, 0, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, WrapOCRError(op, err, "failed to encode image")
	}
	return buf.Bytes(), nil
}
